// Package lspview adapts the optimizer's diagnostic sink and lattice state
// to the Language Server Protocol, generalized from the teacher compiler's
// internal/lsp package. It re-runs the propagator (without rewriting) over
// each open document purely to surface per-value lattice state on hover;
// the CLI and batch driver in internal/pass are the ones that actually
// rewrite and persist IR.
package lspview

import (
	"fmt"
	"sync"

	"sccp-opt/internal/diag"
	"sccp-opt/internal/ir"
	"sccp-opt/internal/irtext"
	"sccp-opt/internal/sccp"
)

// Document is the result of parsing and analysing one open text document.
type Document struct {
	Source      string
	Program     *ir.Program
	ParseErr    error
	Diagnostics []diag.Diagnostic
	// Lattice holds, per function name, the propagator's final state. Kept
	// separately from *ir.Program since it is throwaway analysis state, not
	// part of the IR itself.
	Lattice map[string]*sccp.LatticeMap
}

// Store tracks the set of currently-open documents, keyed by filesystem
// path, the way the teacher's KansoHandler tracked content/asts.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Update parses and analyses source, replacing path's entry, and returns
// the resulting document.
func (s *Store) Update(path, source string) *Document {
	doc := analyze(source)

	s.mu.Lock()
	s.docs[path] = doc
	s.mu.Unlock()

	return doc
}

// Get returns the last analysed document for path, if any.
func (s *Store) Get(path string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path]
	return doc, ok
}

// Close forgets path's document.
func (s *Store) Close(path string) {
	s.mu.Lock()
	delete(s.docs, path)
	s.mu.Unlock()
}

func analyze(source string) *Document {
	doc := &Document{Source: source, Lattice: make(map[string]*sccp.LatticeMap)}

	parsed, err := irtext.ParseString("document", source)
	if err != nil {
		doc.ParseErr = err
		return doc
	}

	program, err := irtext.Build("document", parsed)
	if err != nil {
		doc.ParseErr = err
		return doc
	}
	doc.Program = program

	sink := &diag.CollectSink{}
	for _, fn := range program.Functions {
		if fn.External {
			continue
		}
		prop := sccp.NewPropagator(fn, sink, sccp.DefaultConfig())
		result := prop.Run()
		doc.Lattice[fn.Name] = result.Lattice
	}
	doc.Diagnostics = sink.Items

	return doc
}

// HoverText renders the lattice state known for a value name within a
// function, for display in an editor hover tooltip.
func HoverText(doc *Document, functionName, valueName string) (string, bool) {
	if doc == nil || doc.Program == nil {
		return "", false
	}
	lattice, ok := doc.Lattice[functionName]
	if !ok {
		return "", false
	}
	for _, fn := range doc.Program.Functions {
		if fn.Name != functionName {
			continue
		}
		v := findValue(fn, valueName)
		if v == nil {
			return "", false
		}
		lv := lattice.Get(v)
		return fmt.Sprintf("%%%s: %s %s", valueName, lv.String(), latticeSwatch(lv)), true
	}
	return "", false
}

// findValue looks a value up by its name without the '%' sigil; the IR
// stores value names with the sigil, as the lexer's Value token carries it.
func findValue(fn *ir.Function, name string) *ir.Value {
	name = "%" + name
	for _, p := range fn.Params {
		if p.Value != nil && p.Value.Name == name {
			return p.Value
		}
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if v := inst.GetResult(); v != nil && v.Name == name {
				return v
			}
		}
	}
	return nil
}
