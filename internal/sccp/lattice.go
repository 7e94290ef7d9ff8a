// Package sccp implements the Sparse Conditional Constant Propagation
// optimizer of spec.md: the three-point lattice, the per-instruction
// abstract interpreter, the dual-worklist propagator, the IR rewriter and
// its verification-and-rollback harness.
package sccp

import (
	"sccp-opt/internal/ir"
)

// Kind identifies which of the three lattice shapes a LatticeValue holds
// (spec.md section 3, "Lattice value").
type Kind int

const (
	// Top is the optimistic least element: "not yet proven anything".
	Top Kind = iota
	// ConstantKind: a single known compile-time value.
	ConstantKind
	// Bottom is the pessimistic greatest element: "known to vary".
	Bottom
)

func (k Kind) String() string {
	switch k {
	case Top:
		return "Top"
	case ConstantKind:
		return "Constant"
	case Bottom:
		return "Bottom"
	default:
		return "?"
	}
}

// LatticeValue is the tagged union of spec.md section 3: exactly one of
// Top, Constant(literal), Bottom.
type LatticeValue struct {
	kind  Kind
	value ir.Constant
}

// TopValue is the optimistic starting point for every SSA value.
func TopValue() LatticeValue { return LatticeValue{kind: Top} }

// BottomValue is the pessimistic, "give up" lattice element.
func BottomValue() LatticeValue { return LatticeValue{kind: Bottom} }

// ConstantValue wraps a single known literal.
func ConstantValue(c ir.Constant) LatticeValue {
	return LatticeValue{kind: ConstantKind, value: c}
}

func (v LatticeValue) IsTop() bool      { return v.kind == Top }
func (v LatticeValue) IsBottom() bool   { return v.kind == Bottom }
func (v LatticeValue) IsConstant() bool { return v.kind == ConstantKind }
func (v LatticeValue) Kind() Kind       { return v.kind }

// AsConstant extracts the constant payload, if any.
func (v LatticeValue) AsConstant() (ir.Constant, bool) {
	if v.kind != ConstantKind {
		return ir.Constant{}, false
	}
	return v.value, true
}

// Equal reports whether two lattice values are the same point in the
// three-point lattice: the same kind, and for Constant the same literal.
func (v LatticeValue) Equal(o LatticeValue) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == ConstantKind {
		return v.value.Equal(o.value)
	}
	return true
}

func (v LatticeValue) String() string {
	switch v.kind {
	case Top:
		return "Top"
	case Bottom:
		return "Bottom"
	default:
		return "Constant(" + v.value.String() + ")"
	}
}

// Meet computes a ⊓ b per spec.md section 4.1. The second return value is
// true only when the meet combined two different-typed constants — callers
// widen to Bottom and surface diag.CodeTypeMismatchInMeet in that case (the
// lattice package itself stays diagnostic-free and pure).
func Meet(a, b LatticeValue) (LatticeValue, bool) {
	switch {
	case a.kind == Top:
		return b, false
	case b.kind == Top:
		return a, false
	case a.kind == Bottom || b.kind == Bottom:
		return BottomValue(), false
	default:
		// Both Constant.
		if !a.value.Typ.Equal(b.value.Typ) {
			return BottomValue(), true
		}
		if a.value.Equal(b.value) {
			return a, false
		}
		return BottomValue(), false
	}
}

// LatticeMap is the finite partial function SSA-value -> LatticeValue of
// spec.md section 3. Unmapped values read as Top.
type LatticeMap struct {
	values map[*ir.Value]LatticeValue
}

// NewLatticeMap creates an empty lattice map.
func NewLatticeMap() *LatticeMap {
	return &LatticeMap{values: make(map[*ir.Value]LatticeValue)}
}

// Get returns the lattice value for v, defaulting to Top when unmapped.
func (m *LatticeMap) Get(v *ir.Value) LatticeValue {
	if v == nil {
		return TopValue()
	}
	if lv, ok := m.values[v]; ok {
		return lv
	}
	return TopValue()
}

// Set records v's lattice value, overwriting any previous entry.
// The monotonicity invariant (spec.md section 3) is the propagator's
// responsibility to uphold; Set itself is a plain assignment.
func (m *LatticeMap) Set(v *ir.Value, lv LatticeValue) {
	m.values[v] = lv
}

// Len reports how many values currently have a non-Top entry, used by the
// memory-bound guard of spec.md section 5.
func (m *LatticeMap) Len() int {
	return len(m.values)
}
