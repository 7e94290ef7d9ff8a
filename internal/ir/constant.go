package ir

import (
	"fmt"
	"math"
)

// Constant is a typed compile-time literal value (spec.md section 3,
// "Constant(literal)"). Integers, bools and chars are stored as their raw
// bit pattern truncated to the type's width; floats are stored as their
// raw IEEE-754 bit pattern so that equality is bitwise (two NaNs are equal
// only if their bits match, and -0.0 != +0.0, per spec.md section 4.1).
type Constant struct {
	Typ  Type
	Bits uint64
}

// CanonicalNaN32 / CanonicalNaN64 are the single bit patterns used for
// every freshly produced NaN (spec.md 9, "Floating-point canonicalisation"),
// chosen once so Constant(NaN) == Constant(NaN) is deterministic.
const (
	CanonicalNaN32 uint32 = 0x7fc00000
	CanonicalNaN64 uint64 = 0x7ff8000000000000
)

func maskBits(bits uint64, width int) uint64 {
	if width >= 64 {
		return bits
	}
	return bits & ((uint64(1) << uint(width)) - 1)
}

// ConstInt builds a Constant of an integer type from a signed value,
// truncating deterministically to the type's width.
func ConstInt(v int64, t *IntType) Constant {
	return Constant{Typ: t, Bits: maskBits(uint64(v), t.Bits)}
}

// ConstUint builds a Constant of an integer type from an unsigned value.
func ConstUint(v uint64, t *IntType) Constant {
	return Constant{Typ: t, Bits: maskBits(v, t.Bits)}
}

// ConstFloat32 builds an F32 constant, canonicalising NaN payloads.
func ConstFloat32(v float32) Constant {
	bits := math.Float32bits(v)
	if math.IsNaN(float64(v)) {
		bits = CanonicalNaN32
	}
	return Constant{Typ: F32, Bits: uint64(bits)}
}

// ConstFloat64 builds an F64 constant, canonicalising NaN payloads.
func ConstFloat64(v float64) Constant {
	bits := math.Float64bits(v)
	if math.IsNaN(v) {
		bits = CanonicalNaN64
	}
	return Constant{Typ: F64, Bits: bits}
}

// ConstBool builds a Bool constant.
func ConstBool(b bool) Constant {
	if b {
		return Constant{Typ: Bool, Bits: 1}
	}
	return Constant{Typ: Bool, Bits: 0}
}

// ConstChar builds a Char constant from a Unicode scalar value.
func ConstChar(r rune) Constant {
	return Constant{Typ: Char, Bits: uint64(uint32(r))}
}

// Int returns the constant's value reinterpreted as a signed integer of its
// declared width. Only meaningful when Typ is *IntType.
func (c Constant) Int() int64 {
	it := c.Typ.(*IntType)
	bits := c.Bits
	if it.Bits < 64 {
		signBit := uint64(1) << uint(it.Bits-1)
		if it.Signed && bits&signBit != 0 {
			return int64(bits) - int64(uint64(1)<<uint(it.Bits))
		}
	}
	return int64(bits)
}

// Uint returns the constant's value reinterpreted as an unsigned integer.
func (c Constant) Uint() uint64 { return c.Bits }

// Float32 returns the constant's value as a float32. Only meaningful when
// Typ is F32.
func (c Constant) Float32() float32 { return math.Float32frombits(uint32(c.Bits)) }

// Float64 returns the constant's value as a float64. Only meaningful when
// Typ is F64.
func (c Constant) Float64() float64 { return math.Float64frombits(c.Bits) }

// Bool returns the constant's value as a bool. Only meaningful when Typ is
// Bool.
func (c Constant) Bool() bool { return c.Bits != 0 }

// Char returns the constant's value as a rune. Only meaningful when Typ is
// Char.
func (c Constant) Char() rune { return rune(uint32(c.Bits)) }

// Equal reports whether two constants are the same literal of the same
// type (spec.md 4.1, "Constant equality").
func (c Constant) Equal(o Constant) bool {
	return c.Typ.Equal(o.Typ) && c.Bits == o.Bits
}

func (c Constant) String() string {
	switch t := c.Typ.(type) {
	case *IntType:
		if t.Signed {
			return fmt.Sprintf("%s %d", t, c.Int())
		}
		return fmt.Sprintf("%s %d", t, c.Uint())
	case *FloatType:
		if t.Bits == 32 {
			return fmt.Sprintf("F32 %v", c.Float32())
		}
		return fmt.Sprintf("F64 %v", c.Float64())
	case *BoolType:
		return fmt.Sprintf("%v", c.Bool())
	case *CharType:
		return fmt.Sprintf("Char %q", c.Char())
	default:
		return fmt.Sprintf("<const %v>", c.Bits)
	}
}
