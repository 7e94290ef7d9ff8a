// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"sccp-opt/internal/lspview"
)

const lsName = "sccp-opt"

var (
	version = "0.1.0"
	handler protocol.Handler
)

func main() {
	commonlog.Configure(1, nil)

	view := lspview.NewHandler()

	handler = protocol.Handler{
		Initialize:            view.Initialize,
		Initialized:           view.Initialized,
		Shutdown:              view.Shutdown,
		SetTrace:              view.SetTrace,
		TextDocumentDidOpen:   view.TextDocumentDidOpen,
		TextDocumentDidChange: view.TextDocumentDidChange,
		TextDocumentDidClose:  view.TextDocumentDidClose,
		TextDocumentHover:     view.TextDocumentHover,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Printf("Starting %s LSP server (%s)...", lsName, version)

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting LSP server:", err)
		os.Exit(1)
	}
}
