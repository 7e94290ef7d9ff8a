package sccp

import (
	"math"

	"sccp-opt/internal/diag"
	"sccp-opt/internal/ir"
)

// Evaluator is the pure, thread-safe constant folder of spec.md section
// 4.2. It has no state of its own; the sink parameter lets it optionally
// emit a diagnostic (integer divide-by-zero) without compromising purity
// of its return value.
type Evaluator struct {
	Sink diag.Sink
}

// NewEvaluator builds an evaluator reporting through sink (diag.Discard{}
// is fine when diagnostics are not wanted).
func NewEvaluator(sink diag.Sink) *Evaluator {
	if sink == nil {
		sink = diag.Discard{}
	}
	return &Evaluator{Sink: sink}
}

func (e *Evaluator) warn(code, msg string, value string) {
	e.Sink.Emit(diag.Diagnostic{Severity: diag.Warning, Code: code, Message: msg, Value: value})
}

// EvalBinary implements spec.md section 4.2's per-family contract for
// binary operators. ok=false means the caller must widen to Bottom.
func (e *Evaluator) EvalBinary(op ir.BinaryOp, l, r ir.Constant) (ir.Constant, bool) {
	switch op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
		if it, ok := l.Typ.(*ir.IntType); ok {
			return e.evalIntArith(op, it, l, r)
		}
		if ft, ok := l.Typ.(*ir.FloatType); ok {
			return e.evalFloatArith(op, ft, l, r)
		}
		return ir.Constant{}, false
	case ir.OpAnd, ir.OpOr, ir.OpXor:
		it, ok := l.Typ.(*ir.IntType)
		if !ok {
			return ir.Constant{}, false
		}
		return e.evalBitwise(op, it, l, r), true
	case ir.OpShl, ir.OpShr:
		it, ok := l.Typ.(*ir.IntType)
		if !ok {
			return ir.Constant{}, false
		}
		return e.evalShift(op, it, l, r)
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return e.evalCompare(op, l, r)
	default:
		return ir.Constant{}, false
	}
}

func (e *Evaluator) evalIntArith(op ir.BinaryOp, it *ir.IntType, l, r ir.Constant) (ir.Constant, bool) {
	if it.Signed {
		a, b := l.Int(), r.Int()
		min, max := signedBounds(it.Bits)
		switch op {
		case ir.OpAdd:
			res := a + b
			if overflowsAdd(a, b, res, it.Bits) {
				return ir.Constant{}, false
			}
			return ir.ConstInt(res, it), inBounds(res, min, max)
		case ir.OpSub:
			res := a - b
			if overflowsSub(a, b, res, it.Bits) {
				return ir.Constant{}, false
			}
			return ir.ConstInt(res, it), inBounds(res, min, max)
		case ir.OpMul:
			res := a * b
			if a != 0 && res/a != b {
				return ir.Constant{}, false
			}
			return ir.ConstInt(res, it), inBounds(res, min, max)
		case ir.OpDiv:
			if b == 0 {
				e.warn(diag.CodeDivideByZero, "integer division by zero", "")
				return ir.Constant{}, false
			}
			if a == min && b == -1 {
				return ir.Constant{}, false // MIN / -1 overflows
			}
			return ir.ConstInt(a/b, it), true
		case ir.OpMod:
			if b == 0 {
				e.warn(diag.CodeDivideByZero, "integer modulo by zero", "")
				return ir.Constant{}, false
			}
			return ir.ConstInt(a%b, it), true
		}
	} else {
		a, b := l.Uint(), r.Uint()
		mask := uintMask(it.Bits)
		switch op {
		case ir.OpAdd:
			res := (a + b) & mask
			if res < a {
				return ir.Constant{}, false
			}
			return ir.ConstUint(res, it), true
		case ir.OpSub:
			if b > a {
				return ir.Constant{}, false
			}
			return ir.ConstUint(a-b, it), true
		case ir.OpMul:
			res := a * b
			if a != 0 && res/a != b {
				return ir.Constant{}, false
			}
			if res&^mask != 0 {
				return ir.Constant{}, false
			}
			return ir.ConstUint(res, it), true
		case ir.OpDiv:
			if b == 0 {
				e.warn(diag.CodeDivideByZero, "integer division by zero", "")
				return ir.Constant{}, false
			}
			return ir.ConstUint(a/b, it), true
		case ir.OpMod:
			if b == 0 {
				e.warn(diag.CodeDivideByZero, "integer modulo by zero", "")
				return ir.Constant{}, false
			}
			return ir.ConstUint(a%b, it), true
		}
	}
	return ir.Constant{}, false
}

func (e *Evaluator) evalBitwise(op ir.BinaryOp, it *ir.IntType, l, r ir.Constant) ir.Constant {
	a, b := l.Uint(), r.Uint()
	var res uint64
	switch op {
	case ir.OpAnd:
		res = a & b
	case ir.OpOr:
		res = a | b
	case ir.OpXor:
		res = a ^ b
	}
	return ir.ConstUint(res, it)
}

func (e *Evaluator) evalShift(op ir.BinaryOp, it *ir.IntType, l, r ir.Constant) (ir.Constant, bool) {
	amount := r.Int()
	if amount < 0 || amount >= int64(it.Bits) {
		return ir.Constant{}, false
	}
	if op == ir.OpShl {
		return ir.ConstUint(l.Uint()<<uint(amount), it), true
	}
	// Shr: arithmetic (sign-extending) for signed types, logical for unsigned.
	if it.Signed {
		return ir.ConstInt(l.Int()>>uint(amount), it), true
	}
	return ir.ConstUint(l.Uint()>>uint(amount), it), true
}

func (e *Evaluator) evalFloatArith(op ir.BinaryOp, ft *ir.FloatType, l, r ir.Constant) (ir.Constant, bool) {
	if ft.Bits == 32 {
		a, b := l.Float32(), r.Float32()
		var res float32
		switch op {
		case ir.OpAdd:
			res = a + b
		case ir.OpSub:
			res = a - b
		case ir.OpMul:
			res = a * b
		case ir.OpDiv:
			res = a / b
		}
		return ir.ConstFloat32(res), true
	}
	a, b := l.Float64(), r.Float64()
	var res float64
	switch op {
	case ir.OpAdd:
		res = a + b
	case ir.OpSub:
		res = a - b
	case ir.OpMul:
		res = a * b
	case ir.OpDiv:
		res = a / b
	}
	return ir.ConstFloat64(res), true
}

// evalCompare implements spec.md's Eq/Ne/Lt/Le/Gt/Ge family, including the
// NaN special-casing ("NaN comparisons return false except Ne which
// returns true") and unsigned-vs-signed ordering.
func (e *Evaluator) evalCompare(op ir.BinaryOp, l, r ir.Constant) (ir.Constant, bool) {
	switch t := l.Typ.(type) {
	case *ir.FloatType:
		var a, b float64
		var isNaN bool
		if t.Bits == 32 {
			af, bf := l.Float32(), r.Float32()
			a, b = float64(af), float64(bf)
			isNaN = math.IsNaN(float64(af)) || math.IsNaN(float64(bf))
		} else {
			a, b = l.Float64(), r.Float64()
			isNaN = math.IsNaN(a) || math.IsNaN(b)
		}
		if isNaN {
			return ir.ConstBool(op == ir.OpNe), true
		}
		return ir.ConstBool(compareOrdered(op, cmpFloat(a, b))), true
	case *ir.IntType:
		if t.Signed {
			a, b := l.Int(), r.Int()
			return ir.ConstBool(compareOrdered(op, cmpInt(a, b))), true
		}
		a, b := l.Uint(), r.Uint()
		return ir.ConstBool(compareOrdered(op, cmpUint(a, b))), true
	case *ir.BoolType:
		a, b := l.Bool(), r.Bool()
		switch op {
		case ir.OpEq:
			return ir.ConstBool(a == b), true
		case ir.OpNe:
			return ir.ConstBool(a != b), true
		}
		return ir.Constant{}, false
	case *ir.CharType:
		a, b := l.Char(), r.Char()
		return ir.ConstBool(compareOrdered(op, cmpInt(int64(a), int64(b)))), true
	default:
		return ir.Constant{}, false
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrdered(op ir.BinaryOp, cmp int) bool {
	switch op {
	case ir.OpEq:
		return cmp == 0
	case ir.OpNe:
		return cmp != 0
	case ir.OpLt:
		return cmp < 0
	case ir.OpLe:
		return cmp <= 0
	case ir.OpGt:
		return cmp > 0
	case ir.OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// EvalUnary implements spec.md section 4.2's Neg/BitNot contract.
func (e *Evaluator) EvalUnary(op ir.UnaryOp, v ir.Constant) (ir.Constant, bool) {
	switch op {
	case ir.OpNeg:
		switch t := v.Typ.(type) {
		case *ir.IntType:
			if !t.Signed {
				return ir.Constant{}, false
			}
			a := v.Int()
			min, _ := signedBounds(t.Bits)
			if a == min {
				return ir.Constant{}, false // Neg(MIN) overflows
			}
			return ir.ConstInt(-a, t), true
		case *ir.FloatType:
			if t.Bits == 32 {
				return ir.ConstFloat32(-v.Float32()), true
			}
			return ir.ConstFloat64(-v.Float64()), true
		}
	case ir.OpBitNot:
		if t, ok := v.Typ.(*ir.IntType); ok {
			return ir.ConstUint(^v.Uint()&uintMask(t.Bits), t), true
		}
	}
	return ir.Constant{}, false
}

// EvalCast implements spec.md section 4.2's cast family.
func (e *Evaluator) EvalCast(v ir.Constant, to ir.Type) (ir.Constant, bool) {
	switch dst := to.(type) {
	case *ir.IntType:
		switch src := v.Typ.(type) {
		case *ir.IntType:
			if dst.Bits >= src.Bits {
				return ir.Constant{Typ: dst, Bits: signExtendOrZero(v.Bits, src, dst)}, true
			}
			return ir.Constant{Typ: dst, Bits: maskToWidth(v.Bits, dst.Bits)}, true
		case *ir.FloatType:
			return e.floatToInt(v, src, dst)
		case *ir.BoolType:
			return ir.ConstUint(v.Bits, dst), true
		case *ir.CharType:
			return ir.ConstUint(v.Bits, dst), true
		}
	case *ir.FloatType:
		switch src := v.Typ.(type) {
		case *ir.IntType:
			return e.intToFloat(v, src, dst)
		case *ir.FloatType:
			if dst.Bits == src.Bits {
				return v, true
			}
			if dst.Bits == 64 {
				return ir.ConstFloat64(float64(v.Float32())), true
			}
			return ir.ConstFloat32(float32(v.Float64())), true
		}
	case *ir.CharType:
		if src, ok := v.Typ.(*ir.IntType); ok && !src.Signed && src.Bits == 32 {
			r := rune(v.Uint())
			if r >= 0xD800 && r <= 0xDFFF {
				e.warn(diag.CodeInvalidUnicodeCodepoint, "surrogate code point cannot be a Char constant", "")
				return ir.Constant{}, false
			}
			if r > 0x10FFFF {
				e.warn(diag.CodeInvalidUnicodeCodepoint, "scalar value exceeds U+10FFFF", "")
				return ir.Constant{}, false
			}
			return ir.ConstChar(r), true
		}
	}
	// Pointer-involving casts and anything else: no compile-time value.
	return ir.Constant{}, false
}

func (e *Evaluator) floatToInt(v ir.Constant, src *ir.FloatType, dst *ir.IntType) (ir.Constant, bool) {
	var f float64
	if src.Bits == 32 {
		f = float64(v.Float32())
	} else {
		f = v.Float64()
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ir.Constant{}, false
	}
	min, max := signedBounds(dst.Bits)
	if dst.Signed {
		if f < float64(min) || f > float64(max) {
			return ir.Constant{}, false
		}
		return ir.ConstInt(int64(f), dst), true
	}
	maxU := float64(uintMask(dst.Bits))
	if f < 0 || f > maxU {
		return ir.Constant{}, false
	}
	return ir.ConstUint(uint64(f), dst), true
}

func (e *Evaluator) intToFloat(v ir.Constant, src *ir.IntType, dst *ir.FloatType) (ir.Constant, bool) {
	if src.Signed {
		f := float64(v.Int())
		if dst.Bits == 32 {
			return ir.ConstFloat32(float32(f)), true
		}
		return ir.ConstFloat64(f), true
	}
	f := float64(v.Uint())
	if dst.Bits == 32 {
		return ir.ConstFloat32(float32(f)), true
	}
	return ir.ConstFloat64(f), true
}

// --- integer bit-width helpers ---

func uintMask(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(bits)) - 1
}

func signedBounds(bits int) (min, max int64) {
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	max = int64(1)<<uint(bits-1) - 1
	min = -(int64(1) << uint(bits-1))
	return
}

func inBounds(v, min, max int64) bool { return v >= min && v <= max }

func overflowsAdd(a, b, res int64, bits int) bool {
	if bits >= 64 {
		return (a > 0 && b > 0 && res < 0) || (a < 0 && b < 0 && res >= 0)
	}
	min, max := signedBounds(bits)
	return res < min || res > max
}

func overflowsSub(a, b, res int64, bits int) bool {
	if bits >= 64 {
		return (a >= 0 && b < 0 && res < 0) || (a < 0 && b > 0 && res >= 0)
	}
	min, max := signedBounds(bits)
	return res < min || res > max
}

func signExtendOrZero(bits uint64, src, dst *ir.IntType) uint64 {
	if !src.Signed {
		return bits
	}
	signBit := uint64(1) << uint(src.Bits-1)
	if bits&signBit == 0 {
		return bits
	}
	// sign-extend: set all bits above src.Bits up to dst.Bits
	ext := uintMask(dst.Bits) &^ uintMask(src.Bits)
	return bits | ext
}

func maskToWidth(bits uint64, width int) uint64 {
	return bits & uintMask(width)
}
