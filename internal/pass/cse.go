package pass

import "sccp-opt/internal/ir"

// applyCSE eliminates redundant binary/unary/cast computations within a
// basic block, adapted from the teacher compiler's
// CommonSubexpressionElimination (internal/ir/optimizations.go): it tracks
// "available expressions" seen earlier in the same block and repoints every
// use of a later identical computation's result onto the earlier result.
// The later instruction itself stays in the block, left with no uses; it is
// not deleted. Running CSE before SCCP lets the
// propagator's evaluator see fewer, shared operands instead of duplicated
// ones.
func applyCSE(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if cseBlock(b) {
			changed = true
		}
	}
	return changed
}

type exprKey struct {
	kind string
	a, b *ir.Value
	op   int
	typ  string
}

func cseBlock(b *ir.BasicBlock) bool {
	changed := false
	available := make(map[exprKey]*ir.Value)

	for _, inst := range b.NonPhis() {
		key, ok := keyOf(inst)
		if !ok {
			continue
		}
		if existing, found := available[key]; found {
			replaceResultUses(inst.GetResult(), existing)
			changed = true
			continue
		}
		available[key] = inst.GetResult()
	}
	return changed
}

func keyOf(inst ir.Instruction) (exprKey, bool) {
	switch n := inst.(type) {
	case *ir.BinaryInstruction:
		return exprKey{kind: "bin", a: n.Left, b: n.Right, op: int(n.Op)}, true
	case *ir.UnaryInstruction:
		return exprKey{kind: "un", a: n.Operand, op: int(n.Op)}, true
	case *ir.CastInstruction:
		return exprKey{kind: "cast", a: n.Source, typ: n.To.String()}, true
	default:
		return exprKey{}, false
	}
}

// replaceResultUses repoints every use of old onto replacement. keyOf only
// matches pure binary/unary/cast instructions, so this never needs to
// reason about an intervening Load/Store/Call invalidating availability.
func replaceResultUses(old, replacement *ir.Value) {
	if old == nil || replacement == nil || old == replacement {
		return
	}
	for _, use := range old.Uses {
		switch inst := use.User.(type) {
		case *ir.PhiInstruction:
			for i := range inst.Inputs {
				if inst.Inputs[i].Value == old {
					inst.Inputs[i].Value = replacement
				}
			}
		case *ir.BinaryInstruction:
			if inst.Left == old {
				inst.Left = replacement
			}
			if inst.Right == old {
				inst.Right = replacement
			}
		case *ir.UnaryInstruction:
			if inst.Operand == old {
				inst.Operand = replacement
			}
		case *ir.CastInstruction:
			if inst.Source == old {
				inst.Source = replacement
			}
		case *ir.CallInstruction:
			for i := range inst.Args {
				if inst.Args[i] == old {
					inst.Args[i] = replacement
				}
			}
		case *ir.LoadInstruction:
			if inst.Address == old {
				inst.Address = replacement
			}
		case *ir.StoreInstruction:
			if inst.Address == old {
				inst.Address = replacement
			}
			if inst.Value == old {
				inst.Value = replacement
			}
		case *ir.GEPInstruction:
			if inst.Base == old {
				inst.Base = replacement
			}
			if inst.Index == old {
				inst.Index = replacement
			}
		case *ir.ReturnTerminator:
			if inst.Value == old {
				inst.Value = replacement
			}
		case *ir.CondBranchTerminator:
			if inst.Condition == old {
				inst.Condition = replacement
			}
		case *ir.SwitchTerminator:
			if inst.Selector == old {
				inst.Selector = replacement
			}
		}
		replacement.Uses = append(replacement.Uses, use)
	}
	old.Uses = nil
}
