package ir

// This file is the IR "collaborator" boundary described in spec.md section
// 6: a small, deliberately unoptimised construction API used by internal/
// irtext and by tests to assemble *Function / *Program values. The SCCP
// analysis only reads the resulting graph through the Instruction/
// Terminator/Value interfaces; the SCCP rewriter calls EmitConst, SetBranch
// and ConnectCFG from here, and snapshot restore calls ConnectCFG.

// Builder assembles a single function's instructions and control-flow
// graph, wiring def-use chains and block successors/predecessors as it
// goes, the way internal/ir's original AST-to-IR builder did for the
// Kanso language before this module narrowed its scope to the optimizer.
type Builder struct {
	Func *Function
}

// NewBuilder starts building a function with the given name and parameters.
func NewBuilder(name string, params []*Parameter, ret Type) *Builder {
	fn := &Function{Name: name, Params: params, ReturnType: ret}
	return &Builder{Func: fn}
}

// NewBlock appends a fresh block to the function; the first block created
// becomes the entry block.
func (b *Builder) NewBlock(label string) *BasicBlock {
	blk := &BasicBlock{Label: label}
	b.Func.Blocks = append(b.Func.Blocks, blk)
	if b.Func.Entry == nil {
		b.Func.Entry = blk
	}
	return blk
}

// NewValue allocates a fresh SSA value of the given type.
func (b *Builder) NewValue(name string, typ Type) *Value {
	return &Value{ID: b.Func.NextValueID(), Name: name, Type: typ}
}

func (b *Builder) nextID() int { return b.Func.NextValueID() }

// use records that inst uses v, appending a Use record to v's use list.
func use(v *Value, inst Instruction, block *BasicBlock) {
	if v == nil {
		return
	}
	v.Uses = append(v.Uses, &Use{Value: v, User: inst, Block: block})
}

func define(v *Value, block *BasicBlock, inst Instruction) {
	if v == nil {
		return
	}
	v.DefBlock = block
	v.DefInst = inst
}

func (b *Builder) append(block *BasicBlock, inst Instruction) {
	block.Instructions = append(block.Instructions, inst)
}

// EmitPhi appends a (still incoming-less) phi to block; use AddIncoming to
// populate its operands.
func (b *Builder) EmitPhi(block *BasicBlock, result *Value) *PhiInstruction {
	p := &PhiInstruction{base: base{id: b.nextID(), block: block}, Result: result}
	define(result, block, p)
	b.append(block, p)
	return p
}

// AddIncoming adds a (pred, value) pair to a phi and records the use.
func (b *Builder) AddIncoming(p *PhiInstruction, pred *BasicBlock, v *Value) {
	p.Inputs = append(p.Inputs, PhiIncoming{Pred: pred, Value: v})
	use(v, p, p.block)
}

func (b *Builder) EmitBinary(block *BasicBlock, result *Value, op BinaryOp, l, r *Value) *BinaryInstruction {
	inst := &BinaryInstruction{base: base{id: b.nextID(), block: block}, Result: result, Op: op, Left: l, Right: r}
	define(result, block, inst)
	use(l, inst, block)
	use(r, inst, block)
	b.append(block, inst)
	return inst
}

func (b *Builder) EmitUnary(block *BasicBlock, result *Value, op UnaryOp, v *Value) *UnaryInstruction {
	inst := &UnaryInstruction{base: base{id: b.nextID(), block: block}, Result: result, Op: op, Operand: v}
	define(result, block, inst)
	use(v, inst, block)
	b.append(block, inst)
	return inst
}

func (b *Builder) EmitCast(block *BasicBlock, result *Value, v *Value, to Type) *CastInstruction {
	inst := &CastInstruction{base: base{id: b.nextID(), block: block}, Result: result, Source: v, To: to}
	define(result, block, inst)
	use(v, inst, block)
	b.append(block, inst)
	return inst
}

func (b *Builder) EmitConst(block *BasicBlock, result *Value, c Constant) *ConstInstruction {
	inst := &ConstInstruction{base: base{id: b.nextID(), block: block}, Result: result, Value: c}
	define(result, block, inst)
	b.append(block, inst)
	return inst
}

func (b *Builder) EmitLoad(block *BasicBlock, result *Value, addr *Value) *LoadInstruction {
	inst := &LoadInstruction{base: base{id: b.nextID(), block: block}, Result: result, Address: addr}
	define(result, block, inst)
	use(addr, inst, block)
	b.append(block, inst)
	return inst
}

func (b *Builder) EmitStore(block *BasicBlock, addr, v *Value) *StoreInstruction {
	inst := &StoreInstruction{base: base{id: b.nextID(), block: block}, Address: addr, Value: v}
	use(addr, inst, block)
	use(v, inst, block)
	b.append(block, inst)
	return inst
}

func (b *Builder) EmitCall(block *BasicBlock, result *Value, fn string, args []*Value) *CallInstruction {
	inst := &CallInstruction{base: base{id: b.nextID(), block: block}, Result: result, Function: fn, Args: args}
	define(result, block, inst)
	for _, a := range args {
		use(a, inst, block)
	}
	b.append(block, inst)
	return inst
}

func (b *Builder) EmitGEP(block *BasicBlock, result *Value, base_, index *Value) *GEPInstruction {
	inst := &GEPInstruction{base: base{id: b.nextID(), block: block}, Result: result, Base: base_, Index: index}
	define(result, block, inst)
	use(base_, inst, block)
	use(index, inst, block)
	b.append(block, inst)
	return inst
}

func (b *Builder) SetReturn(block *BasicBlock, v *Value) *ReturnTerminator {
	t := &ReturnTerminator{base: base{id: b.nextID(), block: block}, Value: v}
	use(v, t, block)
	block.Terminator = t
	return t
}

func (b *Builder) SetBranch(block *BasicBlock, target *BasicBlock) *BranchTerminator {
	t := &BranchTerminator{base: base{id: b.nextID(), block: block}, Target: target}
	block.Terminator = t
	return t
}

func (b *Builder) SetCondBranch(block *BasicBlock, cond *Value, trueB, falseB *BasicBlock) *CondBranchTerminator {
	t := &CondBranchTerminator{base: base{id: b.nextID(), block: block}, Condition: cond, TrueBlock: trueB, FalseBlock: falseB}
	use(cond, t, block)
	block.Terminator = t
	return t
}

func (b *Builder) SetSwitch(block *BasicBlock, selector *Value, cases []SwitchCase, def *BasicBlock) *SwitchTerminator {
	t := &SwitchTerminator{base: base{id: b.nextID(), block: block}, Selector: selector, Cases: cases, Default: def}
	use(selector, t, block)
	block.Terminator = t
	return t
}

func (b *Builder) SetUnreachable(block *BasicBlock) *UnreachableTerminator {
	t := &UnreachableTerminator{base: base{id: b.nextID(), block: block}}
	block.Terminator = t
	return t
}

// Finalize recomputes every block's Predecessors/Successors from its
// terminator. Call once after a function's blocks and terminators are all
// in place.
func (b *Builder) Finalize() {
	ConnectCFG(b.Func)
}

// ConnectCFG recomputes Predecessors/Successors for every block in fn from
// its terminator's GetSuccessors(). Safe to call repeatedly (e.g. after the
// rewriter mutates terminators).
func ConnectCFG(fn *Function) {
	for _, blk := range fn.Blocks {
		blk.Successors = nil
	}
	for _, blk := range fn.Blocks {
		blk.Predecessors = nil
	}
	for _, blk := range fn.Blocks {
		if blk.Terminator == nil {
			continue
		}
		for _, succ := range blk.Terminator.GetSuccessors() {
			if succ == nil {
				continue
			}
			blk.Successors = append(blk.Successors, succ)
			succ.Predecessors = append(succ.Predecessors, blk)
		}
	}
}

// BuildProgram is the entry point package callers use once they have built
// each function with a Builder.
func BuildProgram(name string, functions []*Function) *Program {
	return &Program{Name: name, Functions: functions}
}

// PrintProgram returns a pretty-printed representation of the IR.
func PrintProgram(program *Program) string {
	return Print(program)
}
