package sccp

import (
	"github.com/pkg/errors"

	"sccp-opt/internal/ir"
)

// Snapshot is a deep clone of a function's mutable shape, taken before the
// rewriter runs so a failed verification can restore the exact pre-pass
// state (spec.md section 4.9, "atomic commit-or-rollback"). The clone
// touches every block, instruction, terminator and Value reachable from fn,
// so a later Restore hands back a function wholly independent of whatever
// the rewriter mutated in place - restoring fn.Blocks alone is not enough,
// since replaceAllUses and dropOperandUse (rewrite.go) edit instruction
// operands and Value.Uses slices on the live objects directly.
type Snapshot struct {
	blocks     []*ir.BasicBlock
	entry      *ir.BasicBlock
	params     []*ir.Parameter
	nextValue  int
	blockIndex map[*ir.BasicBlock]int
}

// TakeSnapshot deep-copies every block, instruction, terminator and Value of
// fn so the rewriter can mutate the live function in place and still have a
// faithful rollback target.
func TakeSnapshot(fn *ir.Function) *Snapshot {
	s := &Snapshot{
		nextValue:  fn.NextValueSnapshot(),
		blockIndex: make(map[*ir.BasicBlock]int, len(fn.Blocks)),
	}

	blockClones := make([]*ir.BasicBlock, len(fn.Blocks))
	blockCloneOf := make(map[*ir.BasicBlock]*ir.BasicBlock, len(fn.Blocks))
	for i, b := range fn.Blocks {
		c := &ir.BasicBlock{Label: b.Label}
		blockClones[i] = c
		blockCloneOf[b] = c
		s.blockIndex[b] = i
	}
	blockOf := func(b *ir.BasicBlock) *ir.BasicBlock {
		if c, ok := blockCloneOf[b]; ok {
			return c
		}
		return b
	}

	// valueCloneOf is built lazily: the first reference to a *ir.Value -
	// whether from a param, an instruction result, or an operand - creates
	// its clone. Every subsequent reference to that same original Value
	// resolves to the same clone, so the cloned graph's sharing structure
	// (two instructions using one value) matches the original exactly.
	valueCloneOf := make(map[*ir.Value]*ir.Value)
	valueOf := func(v *ir.Value) *ir.Value {
		if c, ok := valueCloneOf[v]; ok {
			return c
		}
		c := &ir.Value{
			ID:         v.ID,
			Name:       v.Name,
			Type:       v.Type,
			IsParam:    v.IsParam,
			IsExternal: v.IsExternal,
		}
		valueCloneOf[v] = c
		return c
	}

	paramClones := make([]*ir.Parameter, len(fn.Params))
	for i, p := range fn.Params {
		pc := &ir.Parameter{Name: p.Name, Type: p.Type}
		if p.Value != nil {
			pc.Value = valueOf(p.Value)
		}
		paramClones[i] = pc
	}

	instCloneOf := make(map[ir.Instruction]ir.Instruction)
	for i, b := range fn.Blocks {
		c := blockClones[i]
		insts := make([]ir.Instruction, len(b.Instructions))
		for j, inst := range b.Instructions {
			clone := ir.CloneInstruction(inst, c, valueOf, blockOf)
			insts[j] = clone
			instCloneOf[inst] = clone
		}
		c.Instructions = insts
		if b.Terminator != nil {
			clone := ir.CloneInstruction(b.Terminator, c, valueOf, blockOf).(ir.Terminator)
			c.Terminator = clone
			instCloneOf[b.Terminator] = clone
		}
	}

	// Wire each cloned Value's def-site and use list to mirror the
	// original: DefBlock/DefInst name the clone's defining instruction, and
	// Uses is rebuilt use-by-use (in original order) rather than copied,
	// since every Use.User must point at the cloned instruction, not the
	// live one the rewriter is about to mutate.
	for orig, clone := range valueCloneOf {
		clone.DefBlock = blockOf(orig.DefBlock)
		if orig.DefInst != nil {
			clone.DefInst = instCloneOf[orig.DefInst]
		}
		for _, u := range orig.Uses {
			clone.Uses = append(clone.Uses, &ir.Use{
				Value: clone,
				User:  instCloneOf[u.User],
				Block: blockOf(u.Block),
			})
		}
	}

	for i, b := range fn.Blocks {
		c := blockClones[i]
		c.Predecessors = remapBlocks(b.Predecessors, blockCloneOf)
		c.Successors = remapBlocks(b.Successors, blockCloneOf)
	}

	s.blocks = blockClones
	s.params = paramClones
	if fn.Entry != nil {
		s.entry = blockOf(fn.Entry)
	}
	return s
}

func remapBlocks(in []*ir.BasicBlock, cloneOf map[*ir.BasicBlock]*ir.BasicBlock) []*ir.BasicBlock {
	if in == nil {
		return nil
	}
	out := make([]*ir.BasicBlock, len(in))
	for i, b := range in {
		if c, ok := cloneOf[b]; ok {
			out[i] = c
		} else {
			out[i] = b
		}
	}
	return out
}

// Restore overwrites fn's blocks, entry and params with the snapshot's
// clones, undoing any rewriter mutation in one atomic step. Params is
// restored along with Blocks/Entry so that a parameter value's Uses list -
// which the rewriter can also mutate in place via replaceAllUses - comes
// back byte-identical too, not just the instructions reachable from Blocks.
func (s *Snapshot) Restore(fn *ir.Function) error {
	if s == nil {
		return errors.New("sccp: nil snapshot, nothing to roll back to")
	}
	fn.Blocks = s.blocks
	fn.Entry = s.entry
	fn.Params = s.params
	fn.SetNextValueSnapshot(s.nextValue)
	ir.ConnectCFG(fn)
	return nil
}
