// Package diag is the optimizer's diagnostic sink, generalized from the
// teacher compiler's internal/errors package (CompilerError/ErrorReporter)
// to the IR-level diagnostics an optimization pass emits: warnings that
// widen a value to Bottom, and errors that trigger a rollback.
package diag

import (
	"fmt"

	"github.com/iancoleman/strcase"
)

// Severity mirrors spec.md section 7's two observable levels.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is a single structured message, the optimizer-level analogue
// of the teacher's CompilerError.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Value    string // SSA value name/id the diagnostic is about, if any
	Block    string // basic block label the diagnostic is about, if any
}

// Slug renders Code as a kebab-case identifier, used as the LSP
// diagnostic's `code` field (conventionally kebab-case).
func (d Diagnostic) Slug() string {
	return strcase.ToKebab(d.Code)
}

func (d Diagnostic) String() string {
	loc := ""
	switch {
	case d.Value != "" && d.Block != "":
		loc = fmt.Sprintf(" (value=%s, block=%s)", d.Value, d.Block)
	case d.Value != "":
		loc = fmt.Sprintf(" (value=%s)", d.Value)
	case d.Block != "":
		loc = fmt.Sprintf(" (block=%s)", d.Block)
	}
	return fmt.Sprintf("%s[%s]: %s%s", d.Severity, d.Code, d.Message, loc)
}

// Sink receives diagnostics as the pass runs. Decoupling the optimizer from
// how diagnostics are displayed is spec.md section 6's "diagnostic sink".
type Sink interface {
	Emit(Diagnostic)
}

// CollectSink accumulates diagnostics in memory; used by tests and by the
// pass driver's PassOutcome.Warnings.
type CollectSink struct {
	Items []Diagnostic
}

func (c *CollectSink) Emit(d Diagnostic) {
	c.Items = append(c.Items, d)
}

// Errors returns only the Error-severity diagnostics collected so far.
func (c *CollectSink) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Items {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the Warning-severity diagnostics collected so far.
func (c *CollectSink) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Items {
		if d.Severity == Warning {
			out = append(out, d)
		}
	}
	return out
}

// Discard silently drops every diagnostic; useful for benchmarks and for
// the skip_verification fast path.
type Discard struct{}

func (Discard) Emit(Diagnostic) {}

// Multi fans a diagnostic out to every sink in the slice, letting the pass
// driver log AND collect at once.
type Multi []Sink

func (m Multi) Emit(d Diagnostic) {
	for _, s := range m {
		s.Emit(d)
	}
}
