package ir

// CloneInstruction returns a structurally identical copy of inst rooted at
// block, with every *Value and *BasicBlock operand rewritten through valueOf
// and blockOf. internal/sccp's rollback snapshot uses this to deep-clone a
// function's instruction graph before the rewriter runs (spec.md section
// 4.9, "atomic commit-or-rollback") - the base{id, block, span} fields are
// unexported, so cloning an instruction from outside this package needs this
// entry point rather than a struct literal.
func CloneInstruction(inst Instruction, block *BasicBlock, valueOf func(*Value) *Value, blockOf func(*BasicBlock) *BasicBlock) Instruction {
	vOf := func(v *Value) *Value {
		if v == nil {
			return nil
		}
		return valueOf(v)
	}
	bOf := func(b *BasicBlock) *BasicBlock {
		if b == nil {
			return nil
		}
		return blockOf(b)
	}

	b := base{id: inst.GetID(), block: block, span: inst.Span()}
	switch t := inst.(type) {
	case *PhiInstruction:
		inputs := make([]PhiIncoming, len(t.Inputs))
		for i, in := range t.Inputs {
			inputs[i] = PhiIncoming{Pred: bOf(in.Pred), Value: vOf(in.Value)}
		}
		return &PhiInstruction{base: b, Result: vOf(t.Result), Inputs: inputs}
	case *BinaryInstruction:
		return &BinaryInstruction{base: b, Result: vOf(t.Result), Op: t.Op, Left: vOf(t.Left), Right: vOf(t.Right)}
	case *UnaryInstruction:
		return &UnaryInstruction{base: b, Result: vOf(t.Result), Op: t.Op, Operand: vOf(t.Operand)}
	case *CastInstruction:
		return &CastInstruction{base: b, Result: vOf(t.Result), Source: vOf(t.Source), To: t.To}
	case *ConstInstruction:
		return &ConstInstruction{base: b, Result: vOf(t.Result), Value: t.Value}
	case *LoadInstruction:
		return &LoadInstruction{base: b, Result: vOf(t.Result), Address: vOf(t.Address)}
	case *StoreInstruction:
		return &StoreInstruction{base: b, Address: vOf(t.Address), Value: vOf(t.Value)}
	case *CallInstruction:
		args := make([]*Value, len(t.Args))
		for i, a := range t.Args {
			args[i] = vOf(a)
		}
		return &CallInstruction{base: b, Result: vOf(t.Result), Function: t.Function, Args: args}
	case *GEPInstruction:
		return &GEPInstruction{base: b, Result: vOf(t.Result), Base: vOf(t.Base), Index: vOf(t.Index)}
	case *ReturnTerminator:
		return &ReturnTerminator{base: b, Value: vOf(t.Value)}
	case *BranchTerminator:
		return &BranchTerminator{base: b, Target: bOf(t.Target)}
	case *CondBranchTerminator:
		return &CondBranchTerminator{base: b, Condition: vOf(t.Condition), TrueBlock: bOf(t.TrueBlock), FalseBlock: bOf(t.FalseBlock)}
	case *SwitchTerminator:
		cases := make([]SwitchCase, len(t.Cases))
		for i, c := range t.Cases {
			cases[i] = SwitchCase{Value: c.Value, Target: bOf(c.Target)}
		}
		return &SwitchTerminator{base: b, Selector: vOf(t.Selector), Cases: cases, Default: bOf(t.Default)}
	case *UnreachableTerminator:
		return &UnreachableTerminator{base: b}
	default:
		panic("ir: CloneInstruction: unknown instruction type")
	}
}
