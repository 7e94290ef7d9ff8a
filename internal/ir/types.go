package ir

import (
	"fmt"
)

// IR types and structures for a general-purpose SSA intermediate
// representation. Functions are composed of basic blocks connected by a
// control-flow graph; every value has exactly one defining instruction
// (the SSA invariant).

// Program represents a whole compilation unit in IR form.
type Program struct {
	Name      string
	Functions []*Function
}

// Function represents a function in IR form.
type Function struct {
	Name       string
	External   bool
	Params     []*Parameter
	ReturnType Type
	Entry      *BasicBlock
	Blocks     []*BasicBlock
	nextValue  int
}

// NextValueID hands out a fresh, monotonically increasing SSA value id
// scoped to this function.
func (f *Function) NextValueID() int {
	f.nextValue++
	return f.nextValue
}

// NextValueSnapshot and SetNextValueSnapshot expose the value-id counter so
// a snapshot/rollback harness can restore it verbatim; ordinary callers
// should only ever advance the counter through NextValueID.
func (f *Function) NextValueSnapshot() int       { return f.nextValue }
func (f *Function) SetNextValueSnapshot(n int)   { f.nextValue = n }

// BasicBlock represents a sequence of instructions with a single entry and
// a single exit (the terminator). Phi nodes, if any, precede every other
// instruction in Instructions.
type BasicBlock struct {
	Label        string
	Instructions []Instruction
	Terminator   Terminator
	Predecessors []*BasicBlock
	Successors   []*BasicBlock
}

// Phis returns the leading phi instructions of the block.
func (b *BasicBlock) Phis() []*PhiInstruction {
	var phis []*PhiInstruction
	for _, inst := range b.Instructions {
		phi, ok := inst.(*PhiInstruction)
		if !ok {
			break
		}
		phis = append(phis, phi)
	}
	return phis
}

// NonPhis returns the instructions of the block following the leading phis.
func (b *BasicBlock) NonPhis() []Instruction {
	phis := b.Phis()
	return b.Instructions[len(phis):]
}

// Value represents a value in SSA form; each value has exactly one
// definition (DefInst/DefBlock), and zero or more uses.
type Value struct {
	ID       int
	Name     string
	Type     Type
	DefBlock *BasicBlock
	DefInst  Instruction
	Uses     []*Use

	// IsParam marks function parameters; IsExternal marks references to a
	// module-level or external symbol. Both are initialised to Bottom by
	// the propagator (spec.md 4.5, initialisation step 2).
	IsParam    bool
	IsExternal bool
}

func (v *Value) String() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("%%%d", v.ID)
}

// Use represents a single use of an SSA value by an instruction.
type Use struct {
	Value *Value
	User  Instruction
	Block *BasicBlock
}

// Parameter represents a function parameter.
type Parameter struct {
	Name  string
	Type  Type
	Value *Value
}

// SourceSpan records where an instruction came from, preserved across
// rewriter replacements so later diagnostics stay attributable
// (spec.md 4.7, "Source-span preservation").
type SourceSpan struct {
	File      string
	Line, Col int
	Length    int
}

// Instruction is the common interface implemented by every IR instruction,
// terminators included.
type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	GetBlock() *BasicBlock
	IsTerminator() bool
	String() string
	GetEffects() []Effect
	Span() SourceSpan
	SetSpan(SourceSpan)
}

// Effect represents the side effects of an instruction.
type Effect interface {
	EffectKind() string
}

// MemoryEffect represents effects on addressable memory.
type MemoryEffect struct {
	Type MemoryEffectType
}

func (m *MemoryEffect) EffectKind() string { return "memory" }

type MemoryEffectType string

const (
	MemoryEffectRead  MemoryEffectType = "read"
	MemoryEffectWrite MemoryEffectType = "write"
)

// CallEffect represents the unknown side effects of an external call.
type CallEffect struct{}

func (c *CallEffect) EffectKind() string { return "call" }

// PureEffect indicates no side effects.
type PureEffect struct{}

func (p *PureEffect) EffectKind() string { return "pure" }

// Terminator ends a basic block.
type Terminator interface {
	Instruction
	GetSuccessors() []*BasicBlock
}

// Core instruction kinds (spec.md section 3/4.6).

type base struct {
	id    int
	block *BasicBlock
	span  SourceSpan
}

func (b *base) GetID() int            { return b.id }
func (b *base) GetBlock() *BasicBlock { return b.block }
func (b *base) Span() SourceSpan      { return b.span }
func (b *base) SetSpan(s SourceSpan)  { b.span = s }

// PhiIncoming pairs a predecessor block with the value flowing in from it.
// Ordered (not a map) so arity and iteration order are deterministic,
// needed to check "phi arity equals predecessor count" (spec.md 4.8).
type PhiIncoming struct {
	Pred  *BasicBlock
	Value *Value
}

type PhiInstruction struct {
	base
	Result *Value
	Inputs []PhiIncoming
}

func (p *PhiInstruction) GetResult() *Value { return p.Result }
func (p *PhiInstruction) GetOperands() []*Value {
	ops := make([]*Value, len(p.Inputs))
	for i, in := range p.Inputs {
		ops[i] = in.Value
	}
	return ops
}
func (p *PhiInstruction) IsTerminator() bool { return false }
func (p *PhiInstruction) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}
func (p *PhiInstruction) String() string {
	s := fmt.Sprintf("%s = phi [", p.Result)
	for i, in := range p.Inputs {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %s", in.Pred.Label, in.Value)
	}
	return s + "]"
}

// BinaryOp enumerates the binary operator families of spec.md 4.2.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	default:
		return "?"
	}
}

type BinaryInstruction struct {
	base
	Result      *Value
	Op          BinaryOp
	Left, Right *Value
}

func (b *BinaryInstruction) GetResult() *Value     { return b.Result }
func (b *BinaryInstruction) GetOperands() []*Value { return []*Value{b.Left, b.Right} }
func (b *BinaryInstruction) IsTerminator() bool    { return false }
func (b *BinaryInstruction) GetEffects() []Effect  { return []Effect{&PureEffect{}} }
func (b *BinaryInstruction) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.Result, b.Op, b.Left, b.Right)
}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpBitNot
)

func (op UnaryOp) String() string {
	if op == OpNeg {
		return "neg"
	}
	return "bitnot"
}

type UnaryInstruction struct {
	base
	Result  *Value
	Op      UnaryOp
	Operand *Value
}

func (u *UnaryInstruction) GetResult() *Value     { return u.Result }
func (u *UnaryInstruction) GetOperands() []*Value { return []*Value{u.Operand} }
func (u *UnaryInstruction) IsTerminator() bool    { return false }
func (u *UnaryInstruction) GetEffects() []Effect  { return []Effect{&PureEffect{}} }
func (u *UnaryInstruction) String() string {
	return fmt.Sprintf("%s = %s %s", u.Result, u.Op, u.Operand)
}

type CastInstruction struct {
	base
	Result *Value
	Source *Value
	To     Type
}

func (c *CastInstruction) GetResult() *Value     { return c.Result }
func (c *CastInstruction) GetOperands() []*Value { return []*Value{c.Source} }
func (c *CastInstruction) IsTerminator() bool    { return false }
func (c *CastInstruction) GetEffects() []Effect  { return []Effect{&PureEffect{}} }
func (c *CastInstruction) String() string {
	return fmt.Sprintf("%s = cast %s to %s", c.Result, c.Source, c.To)
}

type ConstInstruction struct {
	base
	Result *Value
	Value  Constant
}

func (c *ConstInstruction) GetResult() *Value     { return c.Result }
func (c *ConstInstruction) GetOperands() []*Value { return nil }
func (c *ConstInstruction) IsTerminator() bool    { return false }
func (c *ConstInstruction) GetEffects() []Effect  { return []Effect{&PureEffect{}} }
func (c *ConstInstruction) String() string {
	return fmt.Sprintf("%s = const %s", c.Result, c.Value)
}

type LoadInstruction struct {
	base
	Result  *Value
	Address *Value
}

func (l *LoadInstruction) GetResult() *Value     { return l.Result }
func (l *LoadInstruction) GetOperands() []*Value { return []*Value{l.Address} }
func (l *LoadInstruction) IsTerminator() bool    { return false }
func (l *LoadInstruction) GetEffects() []Effect {
	return []Effect{&MemoryEffect{Type: MemoryEffectRead}}
}
func (l *LoadInstruction) String() string {
	return fmt.Sprintf("%s = load %s", l.Result, l.Address)
}

type StoreInstruction struct {
	base
	Address *Value
	Value   *Value
}

func (s *StoreInstruction) GetResult() *Value     { return nil }
func (s *StoreInstruction) GetOperands() []*Value { return []*Value{s.Address, s.Value} }
func (s *StoreInstruction) IsTerminator() bool    { return false }
func (s *StoreInstruction) GetEffects() []Effect {
	return []Effect{&MemoryEffect{Type: MemoryEffectWrite}}
}
func (s *StoreInstruction) String() string {
	return fmt.Sprintf("store %s, %s", s.Address, s.Value)
}

type CallInstruction struct {
	base
	Result   *Value
	Function string
	Args     []*Value
}

func (c *CallInstruction) GetResult() *Value     { return c.Result }
func (c *CallInstruction) GetOperands() []*Value { return c.Args }
func (c *CallInstruction) IsTerminator() bool    { return false }
func (c *CallInstruction) GetEffects() []Effect  { return []Effect{&CallEffect{}} }
func (c *CallInstruction) String() string {
	return fmt.Sprintf("%s = call %s(...)", c.Result, c.Function)
}

type GEPInstruction struct {
	base
	Result *Value
	Base   *Value
	Index  *Value
}

func (g *GEPInstruction) GetResult() *Value     { return g.Result }
func (g *GEPInstruction) GetOperands() []*Value { return []*Value{g.Base, g.Index} }
func (g *GEPInstruction) IsTerminator() bool    { return false }
func (g *GEPInstruction) GetEffects() []Effect  { return []Effect{&PureEffect{}} }
func (g *GEPInstruction) String() string {
	return fmt.Sprintf("%s = gep %s, %s", g.Result, g.Base, g.Index)
}

// Terminators (spec.md section 3).

type ReturnTerminator struct {
	base
	Value *Value
}

func (r *ReturnTerminator) GetResult() *Value { return nil }
func (r *ReturnTerminator) GetOperands() []*Value {
	if r.Value != nil {
		return []*Value{r.Value}
	}
	return nil
}
func (r *ReturnTerminator) IsTerminator() bool           { return true }
func (r *ReturnTerminator) GetSuccessors() []*BasicBlock { return nil }
func (r *ReturnTerminator) GetEffects() []Effect         { return []Effect{&PureEffect{}} }
func (r *ReturnTerminator) String() string {
	if r.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", r.Value)
}

// BranchTerminator is the unconditional Branch(target) of spec.md section 3.
type BranchTerminator struct {
	base
	Target *BasicBlock
}

func (b *BranchTerminator) GetResult() *Value            { return nil }
func (b *BranchTerminator) GetOperands() []*Value        { return nil }
func (b *BranchTerminator) IsTerminator() bool           { return true }
func (b *BranchTerminator) GetSuccessors() []*BasicBlock { return []*BasicBlock{b.Target} }
func (b *BranchTerminator) GetEffects() []Effect         { return []Effect{&PureEffect{}} }
func (b *BranchTerminator) String() string {
	return fmt.Sprintf("br %s", b.Target.Label)
}

// CondBranchTerminator is CondBranch(cond, true-target, false-target).
type CondBranchTerminator struct {
	base
	Condition             *Value
	TrueBlock, FalseBlock *BasicBlock
}

func (c *CondBranchTerminator) GetResult() *Value     { return nil }
func (c *CondBranchTerminator) GetOperands() []*Value { return []*Value{c.Condition} }
func (c *CondBranchTerminator) IsTerminator() bool    { return true }
func (c *CondBranchTerminator) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{c.TrueBlock, c.FalseBlock}
}
func (c *CondBranchTerminator) GetEffects() []Effect { return []Effect{&PureEffect{}} }
func (c *CondBranchTerminator) String() string {
	return fmt.Sprintf("br %s, %s, %s", c.Condition, c.TrueBlock.Label, c.FalseBlock.Label)
}

// SwitchCase pairs a case constant with its target block.
type SwitchCase struct {
	Value  Constant
	Target *BasicBlock
}

// SwitchTerminator is Switch(selector, cases, default).
type SwitchTerminator struct {
	base
	Selector *Value
	Cases    []SwitchCase
	Default  *BasicBlock
}

func (s *SwitchTerminator) GetResult() *Value     { return nil }
func (s *SwitchTerminator) GetOperands() []*Value { return []*Value{s.Selector} }
func (s *SwitchTerminator) IsTerminator() bool    { return true }
func (s *SwitchTerminator) GetSuccessors() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(s.Cases)+1)
	for _, c := range s.Cases {
		succs = append(succs, c.Target)
	}
	return append(succs, s.Default)
}
func (s *SwitchTerminator) GetEffects() []Effect { return []Effect{&PureEffect{}} }
func (s *SwitchTerminator) String() string {
	return fmt.Sprintf("switch %s, default %s (%d cases)", s.Selector, s.Default.Label, len(s.Cases))
}

// UnreachableTerminator marks a block whose end can never be reached at
// runtime. Legal input (spec.md 4.6 edge cases); DCE removes it post-pass.
type UnreachableTerminator struct {
	base
}

func (u *UnreachableTerminator) GetResult() *Value            { return nil }
func (u *UnreachableTerminator) GetOperands() []*Value        { return nil }
func (u *UnreachableTerminator) IsTerminator() bool           { return true }
func (u *UnreachableTerminator) GetSuccessors() []*BasicBlock { return nil }
func (u *UnreachableTerminator) GetEffects() []Effect         { return []Effect{&PureEffect{}} }
func (u *UnreachableTerminator) String() string               { return "unreachable" }

// Types (spec.md section 3).

type Type interface {
	String() string
	Equal(Type) bool
}

type IntType struct {
	Bits   int
	Signed bool
}

func (i *IntType) String() string {
	if i.Signed {
		return fmt.Sprintf("I%d", i.Bits)
	}
	return fmt.Sprintf("U%d", i.Bits)
}
func (i *IntType) Equal(o Type) bool {
	oi, ok := o.(*IntType)
	return ok && oi.Bits == i.Bits && oi.Signed == i.Signed
}

type FloatType struct {
	Bits int // 32 or 64
}

func (f *FloatType) String() string { return fmt.Sprintf("F%d", f.Bits) }
func (f *FloatType) Equal(o Type) bool {
	of, ok := o.(*FloatType)
	return ok && of.Bits == f.Bits
}

type BoolType struct{}

func (b *BoolType) String() string    { return "Bool" }
func (b *BoolType) Equal(o Type) bool { _, ok := o.(*BoolType); return ok }

type CharType struct{}

func (c *CharType) String() string    { return "Char" }
func (c *CharType) Equal(o Type) bool { _, ok := o.(*CharType); return ok }

type StringType struct{}

func (s *StringType) String() string    { return "String" }
func (s *StringType) Equal(o Type) bool { _, ok := o.(*StringType); return ok }

type PointerType struct {
	Elem Type
}

func (p *PointerType) String() string { return fmt.Sprintf("Ptr<%s>", p.Elem) }
func (p *PointerType) Equal(o Type) bool {
	op, ok := o.(*PointerType)
	return ok && op.Elem.Equal(p.Elem)
}

// Convenience constructors mirroring spec.md section 3's type list.
var (
	I8   = &IntType{Bits: 8, Signed: true}
	I16  = &IntType{Bits: 16, Signed: true}
	I32  = &IntType{Bits: 32, Signed: true}
	I64  = &IntType{Bits: 64, Signed: true}
	U8   = &IntType{Bits: 8, Signed: false}
	U16  = &IntType{Bits: 16, Signed: false}
	U32  = &IntType{Bits: 32, Signed: false}
	U64  = &IntType{Bits: 64, Signed: false}
	F32  = &FloatType{Bits: 32}
	F64  = &FloatType{Bits: 64}
	Bool = &BoolType{}
	Char = &CharType{}
	Str  = &StringType{}
)
