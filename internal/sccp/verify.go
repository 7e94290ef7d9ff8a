package sccp

import (
	"fmt"

	"sccp-opt/internal/diag"
	"sccp-opt/internal/ir"
)

// Verifier checks the three invariants of spec.md section 4.8 after the
// rewriter runs: SSA form, CFG integrity, and operand/result type
// consistency. Any failure is an Error-severity diagnostic that the pass
// driver treats as grounds for rollback.
type Verifier struct {
	sink diag.Sink
}

func NewVerifier(sink diag.Sink) *Verifier {
	if sink == nil {
		sink = diag.Discard{}
	}
	return &Verifier{sink: sink}
}

// Verify runs all three checks and reports whether fn passed every one.
func (v *Verifier) Verify(fn *ir.Function) bool {
	ok := true
	if !v.verifySSA(fn) {
		ok = false
	}
	if !v.verifyCFG(fn) {
		ok = false
	}
	if !v.verifyTypes(fn) {
		ok = false
	}
	return ok
}

// verifySSA checks that every value is defined exactly once, that every
// operand of a non-terminator instruction is a parameter, an external
// reference or a value defined somewhere in fn, that every phi's arity
// matches its block's predecessor count, and that the entry block has no
// phi. It does not check dominance (a use may precede its definition), nor
// the operands of terminators.
func (v *Verifier) verifySSA(fn *ir.Function) bool {
	ok := true
	defined := make(map[*ir.Value]bool)
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			r := inst.GetResult()
			if r == nil {
				continue
			}
			if defined[r] {
				v.fail(diag.CodeSSAViolation, fmt.Sprintf("value %s redefined", r), r.String(), block.Label)
				ok = false
				continue
			}
			defined[r] = true
		}
		for _, phi := range block.Phis() {
			if len(phi.Inputs) != len(block.Predecessors) {
				v.fail(diag.CodeSSAViolation,
					fmt.Sprintf("phi arity %d does not match %d predecessors", len(phi.Inputs), len(block.Predecessors)),
					phi.Result.String(), block.Label)
				ok = false
			}
		}
		if block == fn.Entry && len(block.Phis()) > 0 {
			v.fail(diag.CodeInvalidPhiInEntry, "entry block cannot contain a phi", "", block.Label)
			ok = false
		}
	}
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			for _, operand := range inst.GetOperands() {
				if operand == nil {
					continue
				}
				if operand.IsParam || operand.IsExternal {
					continue
				}
				if !defined[operand] {
					v.fail(diag.CodeSSAViolation, fmt.Sprintf("use of undefined value %s", operand), operand.String(), block.Label)
					ok = false
				}
			}
		}
	}
	return ok
}

// verifyCFG checks that every block has a terminator, every successor
// listed by a terminator has a matching predecessor entry back, and every
// block is reachable from the entry (unreachable blocks should already
// have been pruned by the rewriter before verification runs).
func (v *Verifier) verifyCFG(fn *ir.Function) bool {
	ok := true
	blockSet := make(map[*ir.BasicBlock]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blockSet[b] = true
	}
	for _, block := range fn.Blocks {
		if block.Terminator == nil {
			v.fail(diag.CodeCFGViolation, "block has no terminator", "", block.Label)
			ok = false
			continue
		}
		for _, succ := range block.Terminator.GetSuccessors() {
			if succ == nil || !blockSet[succ] {
				v.fail(diag.CodeCFGViolation, "terminator targets a block outside the function", "", block.Label)
				ok = false
				continue
			}
			if !containsBlock(succ.Predecessors, block) {
				v.fail(diag.CodeCFGViolation, fmt.Sprintf("successor %s missing back-reference to %s", succ.Label, block.Label), "", block.Label)
				ok = false
			}
		}
	}

	if fn.Entry != nil {
		reached := reachableBlocks(fn.Entry)
		for _, block := range fn.Blocks {
			if !reached[block] {
				v.fail(diag.CodeCFGViolation, "unreachable block survived rewriting", "", block.Label)
				ok = false
			}
		}
	}
	return ok
}

func containsBlock(list []*ir.BasicBlock, b *ir.BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

func reachableBlocks(entry *ir.BasicBlock) map[*ir.BasicBlock]bool {
	seen := map[*ir.BasicBlock]bool{entry: true}
	stack := []*ir.BasicBlock{entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range b.Successors {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// verifyTypes checks that every phi's incoming values share the phi's
// result type and that both operands of every binary operator share one
// type. Casts and other instruction kinds are not checked.
func (v *Verifier) verifyTypes(fn *ir.Function) bool {
	ok := true
	for _, block := range fn.Blocks {
		for _, phi := range block.Phis() {
			for _, in := range phi.Inputs {
				if in.Value != nil && phi.Result != nil && !typesEqual(in.Value.Type, phi.Result.Type) {
					v.fail(diag.CodeTypeViolation, "phi incoming value type disagrees with result type", phi.Result.String(), block.Label)
					ok = false
				}
			}
		}
		for _, inst := range block.NonPhis() {
			if b, isBin := inst.(*ir.BinaryInstruction); isBin {
				if b.Left != nil && b.Right != nil && !typesEqual(b.Left.Type, b.Right.Type) {
					v.fail(diag.CodeTypeViolation, "binary operator operands have different types", b.Result.String(), block.Label)
					ok = false
				}
			}
		}
	}
	return ok
}

func typesEqual(a, b ir.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

func (v *Verifier) fail(code, message, value, block string) {
	v.sink.Emit(diag.Diagnostic{Severity: diag.Error, Code: code, Message: message, Value: value, Block: block})
}
