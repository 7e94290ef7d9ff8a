package sccp

import (
	"testing"

	"sccp-opt/internal/diag"
	"sccp-opt/internal/ir"
	"sccp-opt/internal/irtext"
)

func buildFunction(t *testing.T, source string) *ir.Function {
	t.Helper()

	parsed, err := irtext.ParseString("test.ir", source)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	program, err := irtext.Build("test", parsed)
	if err != nil {
		t.Fatalf("build error: %s", err)
	}
	if len(program.Functions) != 1 {
		t.Fatalf("expected exactly one function, got %d", len(program.Functions))
	}
	return program.Functions[0]
}

func findValue(fn *ir.Function, name string) *ir.Value {
	for _, p := range fn.Params {
		if p.Value != nil && p.Value.Name == name {
			return p.Value
		}
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if v := inst.GetResult(); v != nil && v.Name == name {
				return v
			}
		}
	}
	return nil
}

func findBlock(fn *ir.Function, label string) *ir.BasicBlock {
	for _, b := range fn.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

func TestPropagatorFoldsStraightLineArithmetic(t *testing.T) {
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

	c := findValue(fn, "%c")
	lv := result.Lattice.Get(c)
	cst, ok := lv.AsConstant()
	if !ok {
		t.Fatalf("%%c = %s, want a folded constant", lv)
	}
	if cst.Int() != 5 {
		t.Errorf("%%c = %d, want 5", cst.Int())
	}
}

func TestPropagatorResolvesConstantBranch(t *testing.T) {
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
	result := NewPropagator(fn, sink, DefaultConfig()).Run()

	entry := findBlock(fn, "entry")
	taken := findBlock(fn, "taken")
	skipped := findBlock(fn, "skipped")

	if !result.Executable.contains(entry, taken) {
		t.Errorf("entry -> taken should be executable when %%cond is always true")
	}
	if result.Executable.contains(entry, skipped) {
		t.Errorf("entry -> skipped should NOT be executable when %%cond is always true")
	}

	// The value defined only in the unreachable block is never visited, so
	// it must stay at Top rather than being (incorrectly) widened to
	// Bottom (spec.md's "sparse" property).
	b := findValue(fn, "%b")
	if lv := result.Lattice.Get(b); !lv.IsTop() {
		t.Errorf("%%b in a dead block = %s, want Top (never visited)", lv)
	}
}

func TestPropagatorMergesEqualPhiInputsToConstant(t *testing.T) {
	fn := buildFunction(t, `
func @merge(%cond: Bool) -> I32 {
entry:
  br %cond, left, right
left:
  %a = const I32 7
  br join
right:
  %b = const I32 7
  br join
join:
  %m = phi [left: %a, right: %b]
  return %m
}`)

	sink := &diag.CollectSink{}
	result := NewPropagator(fn, sink, DefaultConfig()).Run()

	m := findValue(fn, "%m")
	lv := result.Lattice.Get(m)
	cst, ok := lv.AsConstant()
	if !ok {
		t.Fatalf("%%m = %s, want a folded constant", lv)
	}
	if cst.Int() != 7 {
		t.Errorf("%%m = %d, want 7", cst.Int())
	}
}

func TestPropagatorDisagreeingPhiInputsGoBottom(t *testing.T) {
	fn := buildFunction(t, `
func @disagree(%cond: Bool) -> I32 {
entry:
  br %cond, left, right
left:
  %a = const I32 7
  br join
right:
  %b = const I32 8
  br join
join:
  %m = phi [left: %a, right: %b]
  return %m
}`)

	sink := &diag.CollectSink{}
	result := NewPropagator(fn, sink, DefaultConfig()).Run()

	m := findValue(fn, "%m")
	if lv := result.Lattice.Get(m); !lv.IsBottom() {
		t.Errorf("%%m = %s, want Bottom (inputs disagree)", lv)
	}
}
