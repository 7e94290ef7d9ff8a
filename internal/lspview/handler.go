package lspview

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"sccp-opt/internal/diag"
)

// Handler implements the LSP server handlers for the IR assembly surface,
// generalized from the teacher compiler's KansoHandler.
type Handler struct {
	store *Store
}

// NewHandler creates a Handler with an empty document store.
func NewHandler() *Handler {
	return &Handler{store: NewStore()}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("sccp-opt LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: &protocol.HoverOptions{},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("sccp-opt LSP initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("sccp-opt LSP shutdown")
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.refresh(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync only (TextDocumentSyncKindFull): the last change carries
	// the entire document text.
	change, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return fmt.Errorf("sccp-opt LSP: expected whole-document change event")
	}
	return h.refresh(ctx, params.TextDocument.URI, change.Text)
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	h.store.Close(path)
	return nil
}

func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	doc, ok := h.store.Get(path)
	if !ok || doc.Program == nil {
		return nil, nil
	}

	fnName, valueName, ok := wordsAroundPosition(doc.Source, params.Position)
	if !ok {
		return nil, nil
	}

	text, ok := HoverText(doc, fnName, valueName)
	if !ok {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindPlainText, Value: text},
	}, nil
}

func (h *Handler) refresh(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return err
	}

	doc := h.store.Update(path, text)
	sendDiagnostics(ctx, uri, doc)
	return nil
}

func sendDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, doc *Document) {
	var diagnostics []protocol.Diagnostic

	if doc.ParseErr != nil {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 1}},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("sccp-opt-parser"),
			Message:  doc.ParseErr.Error(),
		})
	}

	for _, d := range doc.Diagnostics {
		diagnostics = append(diagnostics, convertDiagnostic(d))
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// convertDiagnostic maps a pass-level diagnostic onto an LSP diagnostic.
// Since internal/diag diagnostics are IR-level (keyed by value/block name,
// not by byte offset) the range always spans the whole first line; editors
// still surface the message and severity correctly via the Source/code.
func convertDiagnostic(d diag.Diagnostic) protocol.Diagnostic {
	sev := protocol.DiagnosticSeverityWarning
	if d.Severity == diag.Error {
		sev = protocol.DiagnosticSeverityError
	}

	code := protocol.IntegerOrString{Value: d.Slug()}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 1},
		},
		Severity: ptrSeverity(sev),
		Code:     &code,
		Source:   ptrString("sccp-opt"),
		Message:  d.String(),
	}
}

var identPattern = regexp.MustCompile(`[%a-zA-Z0-9_]+`)

// wordsAroundPosition finds the "func" name enclosing position and the
// "%value" token under the cursor, by scanning raw text. This is
// deliberately simple: the IR surface has no nested scopes besides
// function bodies, so a linear scan suffices for a hover feature.
func wordsAroundPosition(source string, pos protocol.Position) (fn, value string, ok bool) {
	lines := strings.Split(source, "\n")
	if int(pos.Line) >= len(lines) {
		return "", "", false
	}

	for i := int(pos.Line); i >= 0; i-- {
		if idx := strings.Index(lines[i], "func @"); idx >= 0 {
			rest := lines[i][idx+len("func @"):]
			name := identPattern.FindString(rest)
			fn = strings.TrimPrefix(name, "%")
			break
		}
	}
	if fn == "" {
		return "", "", false
	}

	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start, end := col, col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	if start == end {
		return "", "", false
	}

	value = strings.TrimPrefix(line[start:end], "%")
	return fn, value, true
}

func isWordByte(c byte) bool {
	return c == '%' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }

func ptrString(s string) *string { return &s }
