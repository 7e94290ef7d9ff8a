// Package pass drives the SCCP optimizer over a whole program: per function,
// it runs analysis, rewrite and verification, committing the rewrite only if
// verification passes and rolling back to the pre-pass snapshot otherwise.
// This generalises the teacher compiler's OptimizationPass/
// OptimizationPipeline abstraction (internal/ir/optimizations.go) from a
// fixed EVM-specific pass list to a single configurable SCCP driver preceded
// by a CSE pre-pass.
package pass

import (
	"fmt"

	"sccp-opt/internal/diag"
	"sccp-opt/internal/ir"
	"sccp-opt/internal/sccp"
)

// PassOutcome reports what happened running the driver over one function.
type PassOutcome struct {
	Changed        bool
	ValuesFolded   int
	BranchesFolded int
	BlocksPruned   int
	RolledBack     bool
	Warnings       []diag.Diagnostic
	Errors         []diag.Diagnostic
}

// Driver runs a CSE pass followed by the SCCP pass over a Program, one
// function at a time, and aggregates Stats across the run. CSE always runs;
// Config has no option to turn it off on its own.
type Driver struct {
	cfg   Config
	stats *Stats
}

// NewDriver builds a driver with the given configuration.
func NewDriver(cfg Config) *Driver {
	return &Driver{cfg: cfg, stats: NewStats()}
}

// Stats exposes the driver's running statistics.
func (d *Driver) Stats() *Stats { return d.stats }

// RunProgram runs the pass over every function in program, returning the
// per-function outcomes in order.
func (d *Driver) RunProgram(program *ir.Program) []PassOutcome {
	outcomes := make([]PassOutcome, 0, len(program.Functions))
	for _, fn := range program.Functions {
		outcomes = append(outcomes, d.RunFunction(fn))
	}
	return outcomes
}

// RunFunction applies the configured pass sequence to a single function.
func (d *Driver) RunFunction(fn *ir.Function) PassOutcome {
	if !d.cfg.Enabled {
		return PassOutcome{}
	}
	if fn.External {
		// An external function has no body to analyse.
		return PassOutcome{}
	}
	if fn.Entry != nil && len(fn.Entry.Phis()) > 0 {
		// A phi in the entry block has no predecessors to select among:
		// refuse the function before any pass touches it.
		outcome := PassOutcome{Errors: []diag.Diagnostic{{
			Severity: diag.Error,
			Code:     diag.CodeInvalidPhiInEntry,
			Message:  "entry block cannot contain a phi",
			Block:    fn.Entry.Label,
		}}}
		d.stats.recordFunction(outcome)
		return outcome
	}

	if d.cfg.Verbose {
		fmt.Printf("sccp: analyzing %s\n", fn.Name)
	}

	changed := false
	if applyCSE(fn) {
		changed = true
	}

	outcome := d.runSCCP(fn)
	outcome.Changed = outcome.Changed || changed
	d.stats.recordFunction(outcome)

	if d.cfg.Verbose {
		if outcome.RolledBack {
			fmt.Printf("sccp: %s rolled back (%d errors)\n", fn.Name, len(outcome.Errors))
		} else if outcome.Changed {
			fmt.Printf("sccp: %s folded %d value(s), %d branch(es), pruned %d block(s)\n",
				fn.Name, outcome.ValuesFolded, outcome.BranchesFolded, outcome.BlocksPruned)
		}
	}

	return outcome
}

// runSCCP implements spec.md section 4.9's per-function
// analyse-rewrite-verify-commit-or-rollback loop.
func (d *Driver) runSCCP(fn *ir.Function) PassOutcome {
	snap := sccp.TakeSnapshot(fn)

	sink := &diag.CollectSink{}
	propagator := sccp.NewPropagator(fn, sink, d.cfg.sccpConfig())
	result := propagator.Run()

	constsBefore, branchesBefore := countFoldedShapes(fn)
	blocksBefore := len(fn.Blocks)

	rewriter := sccp.NewRewriter(fn, result)
	outcome := rewriter.Rewrite()

	constsAfter, branchesAfter := countFoldedShapes(fn)

	po := PassOutcome{
		Changed:        outcome.Changed,
		ValuesFolded:   constsAfter - constsBefore,
		BranchesFolded: branchesAfter - branchesBefore,
		BlocksPruned:   blocksBefore - len(fn.Blocks),
		Warnings:       sink.Warnings(),
	}

	if d.cfg.SkipVerification {
		return po
	}

	verifier := sccp.NewVerifier(sink)
	if verifier.Verify(fn) {
		po.Errors = sink.Errors()
		return po
	}

	// Verification failed: roll back to the pre-pass snapshot atomically.
	if err := snap.Restore(fn); err != nil {
		// Restoration itself failed; surface both problems rather than
		// silently leaving the function in a half-rewritten state.
		po.Errors = append(sink.Errors(), diag.Diagnostic{
			Severity: diag.Error,
			Code:     diag.CodeCFGViolation,
			Message:  "rollback failed: " + err.Error(),
		})
		return po
	}
	po.Changed = false
	po.ValuesFolded = 0
	po.BranchesFolded = 0
	po.BlocksPruned = 0
	po.RolledBack = true
	po.Errors = sink.Errors()
	return po
}

// countFoldedShapes counts the constant instructions and unconditional
// branches currently present in fn, used as a before/after delta to report
// how much the rewriter actually folded.
func countFoldedShapes(fn *ir.Function) (consts, branches int) {
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if _, isConst := inst.(*ir.ConstInstruction); isConst {
				consts++
			}
		}
		if _, isBranch := b.Terminator.(*ir.BranchTerminator); isBranch {
			branches++
		}
	}
	return
}
