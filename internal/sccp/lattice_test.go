package sccp

import (
	"testing"

	"sccp-opt/internal/ir"
)

func TestMeetIdentityWithTop(t *testing.T) {
	c := ConstantValue(ir.ConstInt(7, ir.I32))

	if got, _ := Meet(TopValue(), c); !got.Equal(c) {
		t.Errorf("Top ⊓ Constant(7) = %s, want %s", got, c)
	}
	if got, _ := Meet(c, TopValue()); !got.Equal(c) {
		t.Errorf("Constant(7) ⊓ Top = %s, want %s", got, c)
	}
}

func TestMeetAbsorbsBottom(t *testing.T) {
	c := ConstantValue(ir.ConstInt(7, ir.I32))

	if got, _ := Meet(BottomValue(), c); !got.IsBottom() {
		t.Errorf("Bottom ⊓ Constant = %s, want Bottom", got)
	}
	if got, _ := Meet(c, BottomValue()); !got.IsBottom() {
		t.Errorf("Constant ⊓ Bottom = %s, want Bottom", got)
	}
	if got, _ := Meet(BottomValue(), BottomValue()); !got.IsBottom() {
		t.Errorf("Bottom ⊓ Bottom = %s, want Bottom", got)
	}
}

func TestMeetEqualConstantsStaySame(t *testing.T) {
	a := ConstantValue(ir.ConstInt(7, ir.I32))
	b := ConstantValue(ir.ConstInt(7, ir.I32))

	got, mismatch := Meet(a, b)
	if mismatch {
		t.Fatalf("Meet of equal constants reported a type mismatch")
	}
	if !got.IsConstant() {
		t.Fatalf("Meet(7, 7) = %s, want Constant(7)", got)
	}
}

func TestMeetDisagreeingConstantsGoBottom(t *testing.T) {
	a := ConstantValue(ir.ConstInt(7, ir.I32))
	b := ConstantValue(ir.ConstInt(8, ir.I32))

	got, mismatch := Meet(a, b)
	if mismatch {
		t.Fatalf("disagreeing same-typed constants should not report a type mismatch")
	}
	if !got.IsBottom() {
		t.Fatalf("Meet(7, 8) = %s, want Bottom", got)
	}
}

func TestMeetCrossTypeConstantsReportsMismatch(t *testing.T) {
	a := ConstantValue(ir.ConstInt(7, ir.I32))
	b := ConstantValue(ir.ConstInt(7, ir.I64))

	got, mismatch := Meet(a, b)
	if !mismatch {
		t.Fatalf("cross-type constant meet should report a mismatch")
	}
	if !got.IsBottom() {
		t.Fatalf("cross-type constant meet = %s, want Bottom", got)
	}
}

func TestLatticeMapDefaultsToTop(t *testing.T) {
	m := NewLatticeMap()
	v := &ir.Value{ID: 1, Name: "x"}

	if got := m.Get(v); !got.IsTop() {
		t.Errorf("unmapped value read as %s, want Top", got)
	}
	if got := m.Get(nil); !got.IsTop() {
		t.Errorf("nil value read as %s, want Top", got)
	}
}

func TestLatticeMapSetThenGet(t *testing.T) {
	m := NewLatticeMap()
	v := &ir.Value{ID: 1, Name: "x"}
	c := ConstantValue(ir.ConstInt(42, ir.I32))

	m.Set(v, c)
	if got := m.Get(v); !got.Equal(c) {
		t.Errorf("Get after Set = %s, want %s", got, c)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}
