package sccp

import "sccp-opt/internal/ir"

// Rewriter applies the propagator's Result back onto the IR in four ordered
// phases: unreachable-block removal (which also drops phi inputs arriving
// over non-executable edges), phi fix-up, constant materialisation, branch
// folding. Each phase preserves SSA form:
// no value id is ever reused, dominance is preserved, and phi arity always
// matches the (possibly shrunk) predecessor list.
type Rewriter struct {
	fn     *ir.Function
	result *Result
	bldr   *ir.Builder
}

func NewRewriter(fn *ir.Function, result *Result) *Rewriter {
	return &Rewriter{fn: fn, result: result, bldr: &ir.Builder{Func: fn}}
}

// RewriteOutcome reports whether Rewrite mutated fn.
type RewriteOutcome struct {
	Changed bool
}

// Rewrite runs all four phases in order and recomputes the CFG at the end.
func (r *Rewriter) Rewrite() RewriteOutcome {
	changed := false
	changed = r.pruneUnreachableBlocks() || changed
	changed = r.fixupPhis() || changed
	changed = r.materializeConstants() || changed
	changed = r.foldBranches() || changed
	ir.ConnectCFG(r.fn)
	return RewriteOutcome{Changed: changed}
}

// pruneUnreachableBlocks drops every block the propagator never proved
// reachable (spec.md 4.7, "Unreachable-block removal"). Running this first
// means later phases (phi fix-up, branch folding) only ever see blocks that
// survive, so phi arity math and successor rewiring stay simple.
func (r *Rewriter) pruneUnreachableBlocks() bool {
	kept := make([]*ir.BasicBlock, 0, len(r.fn.Blocks))
	removed := make(map[*ir.BasicBlock]bool)
	for _, b := range r.fn.Blocks {
		if r.result.Executable.blockReachable(b) {
			kept = append(kept, b)
		} else {
			removed[b] = true
		}
	}
	changed := len(removed) > 0
	if changed {
		r.fn.Blocks = kept
		if removed[r.fn.Entry] {
			// The entry block is always reachable by definition; this would
			// only happen for a function with no blocks at all.
			r.fn.Entry = nil
		}
	}
	// Drop every phi input whose edge (pred, block) was never proven
	// executable (spec.md 4.7 step 1), not merely inputs whose predecessor
	// was removed wholesale above. A predecessor can survive pruning (it is
	// still reachable) while the specific edge it takes into this block is
	// dead - e.g. it ends in a CondBranch whose constant condition always
	// selects the other target. Leaving that input in place would make the
	// phi's arity outlive ir.ConnectCFG shrinking block.Predecessors to
	// match, so this has to consult the executable-edge set directly
	// rather than trust the removed-block map alone.
	for _, b := range r.fn.Blocks {
		for _, phi := range b.Phis() {
			survivors := phi.Inputs[:0]
			for _, in := range phi.Inputs {
				if removed[in.Pred] || !r.result.Executable.contains(in.Pred, b) {
					changed = true
					continue
				}
				survivors = append(survivors, in)
			}
			phi.Inputs = survivors
		}
	}
	return changed
}

// fixupPhis implements spec.md 4.7's "Phi simplification": a phi whose
// every remaining (post-prune) input resolves to the identical incoming
// value, or has exactly one input left, is replaced with a direct
// reference to that value everywhere it is used; a fully-Bottom,
// multi-input phi is left alone (it genuinely merges distinct runtime
// values). Phi removal always runs before constant materialisation so a
// simplified phi can still be found to be Constant in the next phase.
func (r *Rewriter) fixupPhis() bool {
	changed := false
	for _, b := range r.fn.Blocks {
		var kept []ir.Instruction
		for _, inst := range b.Instructions {
			phi, isPhi := inst.(*ir.PhiInstruction)
			if !isPhi {
				kept = append(kept, inst)
				continue
			}
			if replacement, ok := singleValuePhi(phi); ok {
				r.replaceAllUses(phi.Result, replacement)
				changed = true
				continue
			}
			kept = append(kept, phi)
		}
		b.Instructions = kept
	}
	return changed
}

// singleValuePhi reports the one distinct value a phi's inputs agree on,
// if they all agree (including the trivial single-input case).
func singleValuePhi(phi *ir.PhiInstruction) (*ir.Value, bool) {
	if len(phi.Inputs) == 0 {
		return nil, false
	}
	first := phi.Inputs[0].Value
	for _, in := range phi.Inputs[1:] {
		if in.Value != first {
			return nil, false
		}
	}
	return first, true
}

// replaceAllUses rewrites every use of old to point at replacement,
// including phi incoming slots, and moves old's Uses list onto
// replacement so later rewrites see a consistent def-use chain.
func (r *Rewriter) replaceAllUses(old, replacement *ir.Value) {
	for _, use := range old.Uses {
		switch inst := use.User.(type) {
		case *ir.PhiInstruction:
			for i := range inst.Inputs {
				if inst.Inputs[i].Value == old {
					inst.Inputs[i].Value = replacement
				}
			}
		case *ir.BinaryInstruction:
			replaceOperand(&inst.Left, old, replacement)
			replaceOperand(&inst.Right, old, replacement)
		case *ir.UnaryInstruction:
			replaceOperand(&inst.Operand, old, replacement)
		case *ir.CastInstruction:
			replaceOperand(&inst.Source, old, replacement)
		case *ir.LoadInstruction:
			replaceOperand(&inst.Address, old, replacement)
		case *ir.StoreInstruction:
			replaceOperand(&inst.Address, old, replacement)
			replaceOperand(&inst.Value, old, replacement)
		case *ir.CallInstruction:
			for i := range inst.Args {
				if inst.Args[i] == old {
					inst.Args[i] = replacement
				}
			}
		case *ir.GEPInstruction:
			replaceOperand(&inst.Base, old, replacement)
			replaceOperand(&inst.Index, old, replacement)
		case *ir.ReturnTerminator:
			replaceOperand(&inst.Value, old, replacement)
		case *ir.CondBranchTerminator:
			replaceOperand(&inst.Condition, old, replacement)
		case *ir.SwitchTerminator:
			replaceOperand(&inst.Selector, old, replacement)
		}
		replacement.Uses = append(replacement.Uses, use)
	}
	old.Uses = nil
}

func replaceOperand(slot **ir.Value, old, replacement *ir.Value) {
	if *slot == old {
		*slot = replacement
	}
}

// materializeConstants implements spec.md 4.7's "Constant substitution":
// every instruction the propagator proved Constant is replaced by a Const
// instruction producing the same value, and every use of its result is
// repointed at that new value. Source spans are preserved so diagnostics
// attributed to the original instruction still point at the same location.
func (r *Rewriter) materializeConstants() bool {
	changed := false
	for _, b := range r.fn.Blocks {
		insts := append([]ir.Instruction(nil), b.Instructions...)
		var phis []ir.Instruction
		kept := make([]ir.Instruction, 0, len(insts))
		for _, orig := range insts {
			_, isPhi := orig.(*ir.PhiInstruction)
			res := orig.GetResult()
			var c ir.Constant
			isConst := false
			if res != nil {
				c, isConst = r.result.Lattice.Get(res).AsConstant()
			}
			if !isConst {
				if isPhi {
					phis = append(phis, orig)
				} else {
					kept = append(kept, orig)
				}
				continue
			}
			if _, already := orig.(*ir.ConstInstruction); already {
				kept = append(kept, orig)
				continue
			}
			newResult := &ir.Value{ID: r.fn.NextValueID(), Name: res.Name, Type: res.Type}
			newInst := r.bldr.EmitConst(b, newResult, c)
			newInst.SetSpan(orig.Span())
			r.replaceAllUses(res, newResult)
			kept = append(kept, newInst)
			changed = true
		}
		b.Instructions = append(phis, kept...)
	}
	return changed
}

func phisOf(b *ir.BasicBlock) []ir.Instruction {
	var out []ir.Instruction
	for _, p := range b.Phis() {
		out = append(out, p)
	}
	return out
}

// foldBranches implements spec.md 4.7's "Branch folding": a CondBranch or
// Switch whose condition/selector the propagator proved Constant is
// replaced by an unconditional Branch to the one target that constant
// selects, dropping the instruction's now-dead operand use.
func (r *Rewriter) foldBranches() bool {
	changed := false
	for _, b := range r.fn.Blocks {
		switch t := b.Terminator.(type) {
		case *ir.CondBranchTerminator:
			lv := r.result.Lattice.Get(t.Condition)
			c, ok := lv.AsConstant()
			if !ok {
				continue
			}
			target := t.FalseBlock
			if c.Bool() {
				target = t.TrueBlock
			}
			span := t.Span()
			nt := r.bldr.SetBranch(b, target)
			nt.SetSpan(span)
			dropOperandUse(t.Condition, t)
			changed = true
		case *ir.SwitchTerminator:
			lv := r.result.Lattice.Get(t.Selector)
			c, ok := lv.AsConstant()
			if !ok {
				continue
			}
			target := t.Default
			for _, sc := range t.Cases {
				if sc.Value.Equal(c) {
					target = sc.Target
					break
				}
			}
			span := t.Span()
			nt := r.bldr.SetBranch(b, target)
			nt.SetSpan(span)
			dropOperandUse(t.Selector, t)
			changed = true
		}
	}
	return changed
}

func dropOperandUse(v *ir.Value, user ir.Instruction) {
	if v == nil {
		return
	}
	kept := v.Uses[:0]
	for _, u := range v.Uses {
		if u.User != user {
			kept = append(kept, u)
		}
	}
	v.Uses = kept
}
