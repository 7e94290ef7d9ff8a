package sccp

import (
	"testing"

	"sccp-opt/internal/diag"
	"sccp-opt/internal/ir"
)

func TestVerifierAcceptsRewrittenStraightLineFunction(t *testing.T) {
	fn := buildFunction(t, `
func @straight() -> I32 {
entry:
  %a = const I32 2
  %b = const I32 3
  %c = add %a, %b
  return %c
}`)

	sink := &diag.CollectSink{}
	result := NewPropagator(fn, sink, DefaultConfig()).Run()
	NewRewriter(fn, result).Rewrite()

	if !NewVerifier(diag.Discard{}).Verify(fn) {
		t.Fatalf("verifier rejected a valid rewritten function")
	}
}

func TestRewritePruningIsIdempotent(t *testing.T) {
	fn := buildFunction(t, `
func @branchy() -> I32 {
entry:
  %cond = const Bool true
  br %cond, taken, skipped
taken:
  %a = const I32 1
  return %a
skipped:
  %b = const I32 2
  return %b
}`)

	sink := &diag.CollectSink{}
	result1 := NewPropagator(fn, sink, DefaultConfig()).Run()
	NewRewriter(fn, result1).Rewrite()

	blocksAfterFirst := len(fn.Blocks)

	// Running the whole analyse+rewrite cycle again on the already-folded
	// function should find nothing left to do.
	result2 := NewPropagator(fn, sink, DefaultConfig()).Run()
	outcome2 := NewRewriter(fn, result2).Rewrite()

	if outcome2.Changed {
		t.Errorf("second rewrite pass reported a change on an already-folded function")
	}
	if len(fn.Blocks) != blocksAfterFirst {
		t.Errorf("second rewrite pass changed the block count: %d -> %d", blocksAfterFirst, len(fn.Blocks))
	}
}

// TestRewriteDropsPhiInputOnDeadEdgeFromSurvivingPredecessor exercises the
// case a removed-block-only phi prune misses: %p stays reachable (entry's
// branch into it depends on unresolved parameters, so both its targets are
// executable), but %p's own branch condition is a literal, so only one of
// *its* outgoing edges is ever executable - and that one doesn't go to
// %join. The stale (p, %a) phi input must be dropped even though %p itself
// survives pruning, or %join's phi arity stops matching its (shrunk)
// predecessor list and verifySSA rejects otherwise-valid input.
func TestRewriteDropsPhiInputOnDeadEdgeFromSurvivingPredecessor(t *testing.T) {
	fn := buildFunction(t, `
func @diamond(%x: I32, %y: I32) -> I32 {
entry:
  %cond = lt %x, %y
  br %cond, p, q
p:
  %never = const Bool true
  %a = const I32 1
  br %never, elsewhere, join
elsewhere:
  %e = const I32 99
  return %e
q:
  %b = add %x, %x
  br join
join:
  %m = phi [p: %a, q: %b]
  return %m
}`)

	sink := &diag.CollectSink{}
	result := NewPropagator(fn, sink, DefaultConfig()).Run()

	entry := findBlock(fn, "entry")
	p := findBlock(fn, "p")
	join := findBlock(fn, "join")
	if !result.Executable.contains(entry, p) {
		t.Fatalf("entry -> p should be executable: %%cond is unresolved, so both targets are live")
	}
	if !result.Executable.blockReachable(p) {
		t.Fatalf("p should be reachable via entry")
	}
	if result.Executable.contains(p, join) {
		t.Fatalf("p -> join should be dead: %%never is always true, so p only ever branches to elsewhere")
	}
	if !result.Executable.blockReachable(join) {
		t.Fatalf("join should still be reachable via q")
	}

	outcome := NewRewriter(fn, result).Rewrite()
	if !outcome.Changed {
		t.Fatalf("rewrite should have folded p's branch and simplified join's phi")
	}

	join = findBlock(fn, "join")
	if join == nil {
		t.Fatalf("join block should survive (reachable via q)")
	}
	if p := findBlock(fn, "p"); p == nil {
		t.Fatalf("p block should survive (reachable via entry)")
	}
	for _, phi := range join.Phis() {
		t.Fatalf("join still has a phi %s after simplification; its single surviving input should have collapsed it", phi)
	}
	if len(join.Predecessors) != 1 || join.Predecessors[0].Label != "q" {
		t.Fatalf("join.Predecessors = %v, want exactly [q]", join.Predecessors)
	}

	if !NewVerifier(diag.Discard{}).Verify(fn) {
		t.Fatalf("verifier rejected a function the rewriter should have produced in valid SSA form")
	}
}

func TestSnapshotRestoreUndoesRewrite(t *testing.T) {
	fn := buildFunction(t, `
func @branchy() -> I32 {
entry:
  %cond = const Bool true
  br %cond, taken, skipped
taken:
  %a = const I32 1
  return %a
skipped:
  %b = const I32 2
  return %b
}`)

	blocksBefore := len(fn.Blocks)
	snap := TakeSnapshot(fn)

	sink := &diag.CollectSink{}
	result := NewPropagator(fn, sink, DefaultConfig()).Run()
	NewRewriter(fn, result).Rewrite()

	if len(fn.Blocks) == blocksBefore {
		t.Fatalf("rewrite should have pruned a block before the rollback test is meaningful")
	}

	if err := snap.Restore(fn); err != nil {
		t.Fatalf("Restore failed: %s", err)
	}
	if len(fn.Blocks) != blocksBefore {
		t.Errorf("after Restore, len(fn.Blocks) = %d, want %d", len(fn.Blocks), blocksBefore)
	}

	entry := findBlock(fn, "entry")
	if entry == nil {
		t.Fatalf("restored function lost its entry block")
	}
	if len(entry.Instructions) != 1 {
		t.Fatalf("restored entry has %d instructions, want 1 (%%cond)", len(entry.Instructions))
	}
	br, ok := entry.Terminator.(*ir.CondBranchTerminator)
	if !ok {
		t.Fatalf("restored entry terminator = %T, want *ir.CondBranchTerminator (branch folding should be undone)", entry.Terminator)
	}
	if br.TrueBlock.Label != "taken" || br.FalseBlock.Label != "skipped" {
		t.Errorf("restored branch targets = (%s, %s), want (taken, skipped)", br.TrueBlock.Label, br.FalseBlock.Label)
	}

	cond := findValue(fn, "%cond")
	if cond == nil {
		t.Fatalf("restored function lost %%cond")
	}
	if br.Condition != cond {
		t.Errorf("restored branch condition does not reference the restored %%cond value")
	}
	if len(cond.Uses) != 1 || cond.Uses[0].User != br {
		t.Errorf("restored %%cond.Uses = %v, want exactly one use by the restored branch", cond.Uses)
	}
}

// TestSnapshotRestoreUndoesInPlaceMutation guards the deep-clone property
// directly: materializeConstants and foldBranches rewrite operands and
// Value.Uses on shared objects in place (rewrite.go), so a shallow snapshot
// that only copies the instruction-pointer slice would see those mutations
// bleed through Restore. A surviving instruction's operand, and the operand
// value's use list, must come back exactly as they were pre-pass.
func TestSnapshotRestoreUndoesInPlaceMutation(t *testing.T) {
	fn := buildFunction(t, `
func @fold(%x: I32) -> I32 {
entry:
  %a = const I32 2
  %b = const I32 3
  %c = add %a, %b
  %d = add %c, %x
  return %d
}`)

	c := findValue(fn, "%c")
	cUsesBefore := len(c.Uses)

	snap := TakeSnapshot(fn)

	sink := &diag.CollectSink{}
	result := NewPropagator(fn, sink, DefaultConfig()).Run()
	NewRewriter(fn, result).Rewrite()

	// Confirm the pass actually folded %c into a materialized const and
	// rewired %d's left operand onto the new value, or this test proves
	// nothing about the rollback path.
	entryAfter := findBlock(fn, "entry")
	var dAfter *ir.BinaryInstruction
	for _, inst := range entryAfter.Instructions {
		if bin, ok := inst.(*ir.BinaryInstruction); ok && bin.Result.Name == "%d" {
			dAfter = bin
		}
	}
	if dAfter == nil {
		t.Fatalf("rewrite dropped %%d entirely")
	}
	if dAfter.Left == c {
		t.Fatalf("rewrite should have repointed %%d's left operand away from the pre-fold %%c")
	}
	if len(c.Uses) != 0 {
		t.Fatalf("rewrite should have cleared the folded %%c's use list in place, got %d uses", len(c.Uses))
	}

	if err := snap.Restore(fn); err != nil {
		t.Fatalf("Restore failed: %s", err)
	}

	entryRestored := findBlock(fn, "entry")
	var cRestored, dRestored *ir.BinaryInstruction
	for _, inst := range entryRestored.Instructions {
		bin, ok := inst.(*ir.BinaryInstruction)
		if !ok {
			continue
		}
		switch bin.Result.Name {
		case "%c":
			cRestored = bin
		case "%d":
			dRestored = bin
		}
	}
	if cRestored == nil || dRestored == nil {
		t.Fatalf("restored entry is missing %%c or %%d")
	}
	if dRestored.Left != cRestored.Result {
		t.Errorf("restored %%d's left operand does not reference the restored %%c")
	}
	if len(cRestored.Result.Uses) != cUsesBefore {
		t.Errorf("restored %%c.Uses has %d entries, want %d (pre-pass count)", len(cRestored.Result.Uses), cUsesBefore)
	}
}
