package irtext

import (
	"fmt"
	"strconv"
	"strings"

	"sccp-opt/internal/ir"
)

// funcScope accumulates value/block lookups while building a single
// function, letting forward references (a value used before its
// defining line, e.g. a phi naming a block not yet built) resolve in a
// second pass.
type funcScope struct {
	bldr   *ir.Builder
	fn     *ir.Function
	values map[string]*ir.Value
	blocks map[string]*ir.BasicBlock
}

// Build translates a parsed Program into an *ir.Program. It performs two
// passes per function: the first creates every block (so branch targets and
// phi predecessors resolve by label), the second builds every instruction
// and terminator in order. A value used before its defining line gets an
// untyped placeholder that the defining line later fills in.
func Build(name string, prog *Program) (*ir.Program, error) {
	functions := make([]*ir.Function, 0, len(prog.Functions))
	for _, f := range prog.Functions {
		fn, err := buildFunction(f)
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	return ir.BuildProgram(name, functions), nil
}

func buildFunction(f *Function) (*ir.Function, error) {
	params := make([]*ir.Parameter, 0, len(f.Params))
	for _, p := range f.Params {
		t, err := resolveType(p.Type)
		if err != nil {
			return nil, err
		}
		params = append(params, &ir.Parameter{Name: p.Name, Type: t})
	}
	var ret ir.Type
	if f.Return != nil {
		t, err := resolveType(f.Return)
		if err != nil {
			return nil, err
		}
		ret = t
	}

	bldr := ir.NewBuilder(f.Name, params, ret)
	bldr.Func.External = f.External
	for _, p := range bldr.Func.Params {
		p.Value = bldr.NewValue(p.Name, p.Type)
		p.Value.IsParam = true
	}

	if f.External || len(f.Blocks) == 0 {
		return bldr.Func, nil
	}

	scope := &funcScope{bldr: bldr, fn: bldr.Func, values: make(map[string]*ir.Value), blocks: make(map[string]*ir.BasicBlock)}
	for _, p := range bldr.Func.Params {
		scope.values[p.Name] = p.Value
	}

	for _, b := range f.Blocks {
		blk := bldr.NewBlock(b.Label)
		scope.blocks[b.Label] = blk
	}

	for i, b := range f.Blocks {
		blk := bldr.Func.Blocks[i]
		if err := buildBlockInstructions(scope, blk, b); err != nil {
			return nil, err
		}
		if err := buildTerminator(scope, blk, b.Terminator); err != nil {
			return nil, err
		}
	}

	bldr.Finalize()
	return bldr.Func, nil
}

func resolveType(t *TypeRef) (ir.Type, error) {
	switch t.Name {
	case "I8":
		return ir.I8, nil
	case "I16":
		return ir.I16, nil
	case "I32":
		return ir.I32, nil
	case "I64":
		return ir.I64, nil
	case "U8":
		return ir.U8, nil
	case "U16":
		return ir.U16, nil
	case "U32":
		return ir.U32, nil
	case "U64":
		return ir.U64, nil
	case "F32":
		return ir.F32, nil
	case "F64":
		return ir.F64, nil
	case "Bool":
		return ir.Bool, nil
	case "Char":
		return ir.Char, nil
	case "String":
		return ir.Str, nil
	default:
		return nil, fmt.Errorf("irtext: unknown type %q", t.Name)
	}
}

// result allocates (or, on a second encounter, returns) the SSA value a
// "%name = ..." instruction defines.
func (s *funcScope) result(name string, typ ir.Type) *ir.Value {
	if v, ok := s.values[name]; ok {
		if v.Type == nil {
			v.Type = typ
		}
		return v
	}
	v := s.bldr.NewValue(name, typ)
	s.values[name] = v
	return v
}

// operand resolves a "%name" reference to an already (or not-yet) defined
// value, allocating an untyped placeholder if it is a genuine forward
// reference within the same function (only phi inputs legitimately do
// this, pointing at a block not yet processed).
func (s *funcScope) operand(name string) *ir.Value {
	if v, ok := s.values[name]; ok {
		return v
	}
	v := s.bldr.NewValue(name, nil)
	s.values[name] = v
	return v
}

func (s *funcScope) block(label string) (*ir.BasicBlock, error) {
	b, ok := s.blocks[label]
	if !ok {
		return nil, fmt.Errorf("irtext: undefined block %q", label)
	}
	return b, nil
}

func buildBlockInstructions(scope *funcScope, blk *ir.BasicBlock, src *Block) error {
	for _, inst := range src.Instructions {
		if err := buildInstruction(scope, blk, inst); err != nil {
			return err
		}
	}
	return nil
}

func buildInstruction(scope *funcScope, blk *ir.BasicBlock, inst *Instruction) error {
	switch {
	case inst.Phi != nil:
		return buildPhi(scope, blk, inst.Phi)
	case inst.Binary != nil:
		return buildBinary(scope, blk, inst.Binary)
	case inst.Unary != nil:
		return buildUnary(scope, blk, inst.Unary)
	case inst.Cast != nil:
		return buildCast(scope, blk, inst.Cast)
	case inst.Const != nil:
		return buildConst(scope, blk, inst.Const)
	case inst.Load != nil:
		addr := scope.operand(inst.Load.Address)
		v := scope.result(inst.Load.Result, nil)
		scope.bldr.EmitLoad(blk, v, addr)
		return nil
	case inst.Store != nil:
		addr := scope.operand(inst.Store.Address)
		val := scope.operand(inst.Store.Value)
		scope.bldr.EmitStore(blk, addr, val)
		return nil
	case inst.Call != nil:
		args := make([]*ir.Value, 0, len(inst.Call.Args))
		for _, a := range inst.Call.Args {
			args = append(args, scope.operand(a))
		}
		v := scope.result(inst.Call.Result, nil)
		scope.bldr.EmitCall(blk, v, inst.Call.Function, args)
		return nil
	case inst.GEP != nil:
		base := scope.operand(inst.GEP.Base)
		idx := scope.operand(inst.GEP.Index)
		v := scope.result(inst.GEP.Result, nil)
		scope.bldr.EmitGEP(blk, v, base, idx)
		return nil
	default:
		return fmt.Errorf("irtext: empty instruction")
	}
}

func buildPhi(scope *funcScope, blk *ir.BasicBlock, src *PhiInst) error {
	name := ""
	if src.Result != nil {
		name = *src.Result
	}
	v := scope.result(name, nil)
	phi := scope.bldr.EmitPhi(blk, v)
	for _, in := range src.Inputs {
		pred, err := scope.block(in.Pred)
		if err != nil {
			return err
		}
		val := scope.operand(in.Value)
		scope.bldr.AddIncoming(phi, pred, val)
	}
	return nil
}

func buildBinary(scope *funcScope, blk *ir.BasicBlock, src *BinaryInst) error {
	op, err := resolveBinaryOp(src.Op)
	if err != nil {
		return err
	}
	l := scope.operand(src.Left)
	r := scope.operand(src.Right)
	v := scope.result(src.Result, l.Type)
	scope.bldr.EmitBinary(blk, v, op, l, r)
	return nil
}

func buildUnary(scope *funcScope, blk *ir.BasicBlock, src *UnaryInst) error {
	var op ir.UnaryOp
	switch src.Op {
	case "neg":
		op = ir.OpNeg
	case "bitnot":
		op = ir.OpBitNot
	default:
		return fmt.Errorf("irtext: unknown unary op %q", src.Op)
	}
	operand := scope.operand(src.Operand)
	v := scope.result(src.Result, operand.Type)
	scope.bldr.EmitUnary(blk, v, op, operand)
	return nil
}

func buildCast(scope *funcScope, blk *ir.BasicBlock, src *CastInst) error {
	to, err := resolveType(src.To)
	if err != nil {
		return err
	}
	source := scope.operand(src.Source)
	v := scope.result(src.Result, to)
	scope.bldr.EmitCast(blk, v, source, to)
	return nil
}

func buildConst(scope *funcScope, blk *ir.BasicBlock, src *ConstInst) error {
	typ, err := resolveType(src.Type)
	if err != nil {
		return err
	}
	c, err := parseConstant(typ, src.Value)
	if err != nil {
		return err
	}
	v := scope.result(src.Result, typ)
	scope.bldr.EmitConst(blk, v, c)
	return nil
}

func parseConstant(typ ir.Type, text string) (ir.Constant, error) {
	switch t := typ.(type) {
	case *ir.IntType:
		if t.Signed {
			n, err := strconv.ParseInt(text, 0, 64)
			if err != nil {
				return ir.Constant{}, err
			}
			return ir.ConstInt(n, t), nil
		}
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return ir.Constant{}, err
		}
		return ir.ConstUint(n, t), nil
	case *ir.FloatType:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return ir.Constant{}, err
		}
		if t.Bits == 32 {
			return ir.ConstFloat32(float32(f)), nil
		}
		return ir.ConstFloat64(f), nil
	case *ir.BoolType:
		return ir.ConstBool(text == "true"), nil
	default:
		return ir.Constant{}, fmt.Errorf("irtext: cannot parse constant of type %s", typ)
	}
}

func resolveBinaryOp(s string) (ir.BinaryOp, error) {
	switch strings.ToLower(s) {
	case "add":
		return ir.OpAdd, nil
	case "sub":
		return ir.OpSub, nil
	case "mul":
		return ir.OpMul, nil
	case "div":
		return ir.OpDiv, nil
	case "mod":
		return ir.OpMod, nil
	case "and":
		return ir.OpAnd, nil
	case "or":
		return ir.OpOr, nil
	case "xor":
		return ir.OpXor, nil
	case "shl":
		return ir.OpShl, nil
	case "shr":
		return ir.OpShr, nil
	case "eq":
		return ir.OpEq, nil
	case "ne":
		return ir.OpNe, nil
	case "lt":
		return ir.OpLt, nil
	case "le":
		return ir.OpLe, nil
	case "gt":
		return ir.OpGt, nil
	case "ge":
		return ir.OpGe, nil
	default:
		return 0, fmt.Errorf("irtext: unknown binary op %q", s)
	}
}

func buildTerminator(scope *funcScope, blk *ir.BasicBlock, src *Terminator) error {
	switch {
	case src.Return != nil:
		var v *ir.Value
		if src.Return.Value != "" {
			v = scope.operand(src.Return.Value)
		}
		scope.bldr.SetReturn(blk, v)
		return nil
	case src.Branch != nil:
		target, err := scope.block(src.Branch.Target)
		if err != nil {
			return err
		}
		scope.bldr.SetBranch(blk, target)
		return nil
	case src.CondBranch != nil:
		cond := scope.operand(src.CondBranch.Condition)
		trueB, err := scope.block(src.CondBranch.True)
		if err != nil {
			return err
		}
		falseB, err := scope.block(src.CondBranch.False)
		if err != nil {
			return err
		}
		scope.bldr.SetCondBranch(blk, cond, trueB, falseB)
		return nil
	case src.Switch != nil:
		sel := scope.operand(src.Switch.Selector)
		def, err := scope.block(src.Switch.Default)
		if err != nil {
			return err
		}
		var cases []ir.SwitchCase
		for _, c := range src.Switch.Cases {
			target, err := scope.block(c.Target)
			if err != nil {
				return err
			}
			val, err := parseConstant(sel.Type, c.Value)
			if err != nil {
				return err
			}
			cases = append(cases, ir.SwitchCase{Value: val, Target: target})
		}
		scope.bldr.SetSwitch(blk, sel, cases, def)
		return nil
	case src.Unreachable != nil:
		scope.bldr.SetUnreachable(blk)
		return nil
	default:
		return fmt.Errorf("irtext: block %q has no terminator", blk.Label)
	}
}
