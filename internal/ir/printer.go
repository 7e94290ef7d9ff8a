package ir

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for IR, grounded on the teacher's
// indent-tracking strings.Builder printer.
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new IR printer.
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the string representation of an IR program.
func Print(program *Program) string {
	p := NewPrinter()
	p.printProgram(program)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printProgram(program *Program) {
	p.writeLine("PROGRAM %s (IR)", program.Name)
	p.writeLine("")
	for _, fn := range program.Functions {
		p.printFunction(fn)
		p.writeLine("")
	}
}

func (p *Printer) printFunction(fn *Function) {
	sig := fmt.Sprintf("FUNCTION %s(", fn.Name)
	for i, param := range fn.Params {
		if i > 0 {
			sig += ", "
		}
		sig += fmt.Sprintf("%s: %s", param.Name, param.Type.String())
	}
	sig += ")"
	if fn.ReturnType != nil {
		sig += fmt.Sprintf(" -> %s", fn.ReturnType.String())
	}
	p.writeLine("%s", sig)
	p.indent++
	for _, block := range fn.Blocks {
		p.printBlock(block)
	}
	p.indent--
}

func (p *Printer) printBlock(block *BasicBlock) {
	preds := make([]string, len(block.Predecessors))
	for i, pr := range block.Predecessors {
		preds[i] = pr.Label
	}
	if len(preds) > 0 {
		p.writeLine("%s:  ; preds: %s", block.Label, strings.Join(preds, ", "))
	} else {
		p.writeLine("%s:", block.Label)
	}
	p.indent++
	for _, inst := range block.Instructions {
		p.writeLine("%s", inst.String())
	}
	if block.Terminator != nil {
		p.writeLine("%s", block.Terminator.String())
	}
	p.indent--
}
