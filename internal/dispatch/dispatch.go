// Package dispatch implements the Operator Dispatcher (spec §4.G): a
// closed, two-dimensional (opcode, left-type, right-type) / (opcode, type)
// function table built once at construction time, grounded on
// original_source/include/runtime/operator_dispatcher.h and
// src/runtime/operator_dispatcher.cpp. The original pre-allocates a fixed
// C array and leaves every slot nil except the ones it explicitly
// registers; the Go translation uses maps keyed by (opcode, type) structs
// for the same "closed table, built once, no per-call branching" property
// without needing a
// compile-time NUM_VALUE_TYPES constant.
package dispatch

import (
	"math"

	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/opcode"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

type BinaryOp func(left, right value.Value) (value.Value, error)
type UnaryOp func(v value.Value) (value.Value, error)

type binaryKey struct {
	op    opcode.Op
	left  value.Type
	right value.Type
}

type unaryKey struct {
	op opcode.Op
	t  value.Type
}

// Dispatcher holds the two function tables and the Memory Manager needed
// to allocate the result of string/array concatenation.
type Dispatcher struct {
	heap    *gc.MemoryManager
	binary  map[binaryKey]BinaryOp
	unary   map[unaryKey]UnaryOp
}

func New(heap *gc.MemoryManager) *Dispatcher {
	d := &Dispatcher{
		heap:   heap,
		binary: make(map[binaryKey]BinaryOp),
		unary:  make(map[unaryKey]UnaryOp),
	}
	d.registerArithmetic()
	d.registerComparison()
	d.registerBitwise()
	d.registerUnary()
	d.registerConcat()
	return d
}

func (d *Dispatcher) bind(op opcode.Op, left, right value.Type, fn BinaryOp) {
	d.binary[binaryKey{op, left, right}] = fn
}

func (d *Dispatcher) bindUnary(op opcode.Op, t value.Type, fn UnaryOp) {
	d.unary[unaryKey{op, t}] = fn
}

// FindBinary returns the registered handler for (op, left, right), or
// (nil, false) if the combination has no handler — the caller raises a
// vmerr.TypeError in that case (spec §4.G: "an operator/type-pair with no
// registered handler is a TypeError, not a panic").
func (d *Dispatcher) FindBinary(op opcode.Op, left, right value.Value) (BinaryOp, bool) {
	fn, ok := d.binary[binaryKey{op, left.Type(), right.Type()}]
	return fn, ok
}

func (d *Dispatcher) FindUnary(op opcode.Op, v value.Value) (UnaryOp, bool) {
	fn, ok := d.unary[unaryKey{op, v.Type()}]
	return fn, ok
}

func typeErr(op opcode.Op, left, right value.Value) error {
	return vmerr.New(vmerr.TypeError, "unsupported operand types for %s: %s and %s", op, left.TypeName(), right.TypeName())
}

// registerArithmetic wires ADD/SUB/MUL/DIV/MOD/POW across every numeric
// type combination (spec §4.G "numeric coercion policy"): Int op Int stays
// Int with wraparound overflow, any combination involving Float promotes to
// Float, division and modulo by a zero divisor raise ZeroDivision, and POW
// overflowing the int64 range promotes its result to Float (Open Question
// resolution: "POW overflow promotes to float" rather than wrapping).
func (d *Dispatcher) registerArithmetic() {
	ops := []struct {
		op       opcode.Op
		intFn    func(a, b int64) (int64, bool, error) // returns (result, overflowed-to-float, err)
		floatFn  func(a, b float64) float64
	}{
		{opcode.Add, func(a, b int64) (int64, bool, error) { return a + b, false, nil }, func(a, b float64) float64 { return a + b }},
		{opcode.Sub, func(a, b int64) (int64, bool, error) { return a - b, false, nil }, func(a, b float64) float64 { return a - b }},
		{opcode.Mul, func(a, b int64) (int64, bool, error) { return a * b, false, nil }, func(a, b float64) float64 { return a * b }},
		{opcode.Div, func(a, b int64) (int64, bool, error) {
			if b == 0 {
				return 0, false, vmerr.New(vmerr.ZeroDivision, "integer division by zero")
			}
			return a / b, false, nil
		}, func(a, b float64) float64 { return a / b }},
		{opcode.Mod, func(a, b int64) (int64, bool, error) {
			if b == 0 {
				return 0, false, vmerr.New(vmerr.ZeroDivision, "integer modulo by zero")
			}
			// spec.md §4.G: "modulo follows sign of divisor" (floored
			// modulo), not Go's truncated-division sign (dividend's sign).
			m := a % b
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m, false, nil
		}, func(a, b float64) float64 { return math.Mod(a, b) }},
	}

	for _, spec := range ops {
		spec := spec
		d.bind(spec.op, value.TInt, value.TInt, func(l, r value.Value) (value.Value, error) {
			res, _, err := spec.intFn(l.AsInt(), r.AsInt())
			if err != nil {
				return value.Null(), err
			}
			return value.Int(res), nil
		})
		d.bind(spec.op, value.TInt, value.TFloat, func(l, r value.Value) (value.Value, error) {
			return value.Float(spec.floatFn(l.AsFloat64(), r.AsFloat64())), nil
		})
		d.bind(spec.op, value.TFloat, value.TInt, func(l, r value.Value) (value.Value, error) {
			return value.Float(spec.floatFn(l.AsFloat64(), r.AsFloat64())), nil
		})
		d.bind(spec.op, value.TFloat, value.TFloat, func(l, r value.Value) (value.Value, error) {
			return value.Float(spec.floatFn(l.AsFloat64(), r.AsFloat64())), nil
		})
	}

	// POW is handled separately: int**int overflowing int64 promotes to
	// float rather than wrapping (Open Question resolution).
	d.bind(opcode.Pow, value.TInt, value.TInt, func(l, r value.Value) (value.Value, error) {
		base, exp := l.AsInt(), r.AsInt()
		if exp < 0 {
			return value.Float(math.Pow(float64(base), float64(exp))), nil
		}
		result, overflowed := intPow(base, exp)
		if overflowed {
			return value.Float(math.Pow(float64(base), float64(exp))), nil
		}
		return value.Int(result), nil
	})
	d.bind(opcode.Pow, value.TInt, value.TFloat, func(l, r value.Value) (value.Value, error) {
		return value.Float(math.Pow(l.AsFloat64(), r.AsFloat64())), nil
	})
	d.bind(opcode.Pow, value.TFloat, value.TInt, func(l, r value.Value) (value.Value, error) {
		return value.Float(math.Pow(l.AsFloat64(), r.AsFloat64())), nil
	})
	d.bind(opcode.Pow, value.TFloat, value.TFloat, func(l, r value.Value) (value.Value, error) {
		return value.Float(math.Pow(l.AsFloat64(), r.AsFloat64())), nil
	})
}

// intPow computes base**exp for exp >= 0 using repeated squaring, reporting
// overflow via the second return so the caller can fall back to float64.
func intPow(base, exp int64) (int64, bool) {
	var result int64 = 1
	overflowed := false
	for exp > 0 {
		if exp&1 == 1 {
			next := result * base
			if base != 0 && next/base != result {
				overflowed = true
			}
			result = next
		}
		exp >>= 1
		if exp > 0 {
			next := base * base
			if base != 0 && next/base != base {
				overflowed = true
			}
			base = next
		}
	}
	return result, overflowed
}

// registerComparison wires EQ/NEQ across all types (structural, via
// Value.Equals) and LT/LE/GT/GE across numeric pairs only, with IEEE-754
// NaN semantics: any ordering comparison involving NaN is false, while
// NEQ(NaN, NaN) is true and EQ(NaN, NaN) is false (spec §4.G "comparison
// NaN rules").
func (d *Dispatcher) registerComparison() {
	eq := func(l, r value.Value) (value.Value, error) { return value.Bool(l.Equals(r)), nil }
	neq := func(l, r value.Value) (value.Value, error) { return value.Bool(!l.Equals(r)), nil }
	for _, lt := range []value.Type{value.TNull, value.TBool, value.TInt, value.TFloat, value.TObject} {
		for _, rt := range []value.Type{value.TNull, value.TBool, value.TInt, value.TFloat, value.TObject} {
			d.bind(opcode.Eq, lt, rt, eq)
			d.bind(opcode.Neq, lt, rt, neq)
		}
	}

	type ordering struct {
		op opcode.Op
		fn func(a, b float64) bool
	}
	orderings := []ordering{
		{opcode.Lt, func(a, b float64) bool { return a < b }},
		{opcode.Le, func(a, b float64) bool { return a <= b }},
		{opcode.Gt, func(a, b float64) bool { return a > b }},
		{opcode.Ge, func(a, b float64) bool { return a >= b }},
	}
	numTypes := []value.Type{value.TInt, value.TFloat}
	for _, ord := range orderings {
		ord := ord
		for _, lt := range numTypes {
			for _, rt := range numTypes {
				d.bind(ord.op, lt, rt, func(l, r value.Value) (value.Value, error) {
					return value.Bool(ord.fn(l.AsFloat64(), r.AsFloat64())), nil
				})
			}
		}
	}
}

// registerBitwise wires BAND/BOR/BXOR/SHL/SHR over Int pairs only (spec
// §4.G: "bitwise and shift operators are Int-only; a Float operand is a
// TypeError"). Negative shift counts wrap modulo 64 rather than erroring
// (Open Question resolution), matching Go's own shift-count semantics for
// unsigned counts by first reducing into [0, 63].
func (d *Dispatcher) registerBitwise() {
	d.bind(opcode.BAnd, value.TInt, value.TInt, func(l, r value.Value) (value.Value, error) {
		return value.Int(l.AsInt() & r.AsInt()), nil
	})
	d.bind(opcode.BOr, value.TInt, value.TInt, func(l, r value.Value) (value.Value, error) {
		return value.Int(l.AsInt() | r.AsInt()), nil
	})
	d.bind(opcode.BXor, value.TInt, value.TInt, func(l, r value.Value) (value.Value, error) {
		return value.Int(l.AsInt() ^ r.AsInt()), nil
	})
	d.bind(opcode.Shl, value.TInt, value.TInt, func(l, r value.Value) (value.Value, error) {
		return value.Int(l.AsInt() << shiftAmount(r.AsInt())), nil
	})
	d.bind(opcode.Shr, value.TInt, value.TInt, func(l, r value.Value) (value.Value, error) {
		return value.Int(l.AsInt() >> shiftAmount(r.AsInt())), nil
	})
}

func shiftAmount(n int64) uint64 {
	return uint64(((n % 64) + 64) % 64)
}

// registerUnary wires NEG (Int/Float), NOT (any type, via Truthy), and
// BNOT (Int only).
func (d *Dispatcher) registerUnary() {
	d.bindUnary(opcode.Neg, value.TInt, func(v value.Value) (value.Value, error) {
		return value.Int(-v.AsInt()), nil
	})
	d.bindUnary(opcode.Neg, value.TFloat, func(v value.Value) (value.Value, error) {
		return value.Float(-v.AsFloat()), nil
	})
	for _, t := range []value.Type{value.TNull, value.TBool, value.TInt, value.TFloat, value.TObject} {
		d.bindUnary(opcode.Not, t, func(v value.Value) (value.Value, error) {
			return value.Bool(!v.Truthy()), nil
		})
	}
	d.bindUnary(opcode.BNot, value.TInt, func(v value.Value) (value.Value, error) {
		return value.Int(^v.AsInt()), nil
	})
}

// registerConcat wires ADD for String+String (new interned string) and
// Array+Array (new array), both allocating through the Memory Manager
// (spec §4.G: "String + String -> new interned string"; "Array + Array ->
// new Array with concatenated elements").
func (d *Dispatcher) registerConcat() {
	d.bind(opcode.Add, value.TObject, value.TObject, func(l, r value.Value) (value.Value, error) {
		lo, ro := l.AsObject(), r.AsObject()
		if ls, ok := lo.(*objects.String); ok {
			if rs, ok := ro.(*objects.String); ok {
				return value.FromObject(d.heap.NewString(string(ls.Bytes()) + string(rs.Bytes()))), nil
			}
		}
		if la, ok := lo.(*objects.Array); ok {
			if ra, ok := ro.(*objects.Array); ok {
				return value.FromObject(objects.Concat(la, ra)), nil
			}
		}
		return value.Null(), typeErr(opcode.Add, l, r)
	})
}
