// Package value defines the tagged Value union at the root of the Meow VM's
// object graph (spec §3, §4.A) and the small set of interfaces
// (Object, Visitor) that let heap objects and the garbage collector refer to
// each other without an import cycle between internal/value and
// internal/objects.
package value

import (
	"fmt"
	"math"
)

// Type is the discriminator of a Value: four primitives plus one catch-all
// for every heap object kind. The heap kind itself is further discriminated
// by Object.ObjKind().
type Type uint8

const (
	TNull Type = iota
	TBool
	TInt
	TFloat
	TObject
)

func (t Type) String() string {
	switch t {
	case TNull:
		return "Null"
	case TBool:
		return "Bool"
	case TInt:
		return "Int"
	case TFloat:
		return "Float"
	case TObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// Kind discriminates the eleven heap object variants (spec §3 "Heap objects").
type Kind uint8

const (
	KindString Kind = iota
	KindArray
	KindHash
	KindClass
	KindInstance
	KindBoundMethod
	KindUpvalue
	KindProto
	KindClosure
	KindNative
	KindModule
	NumKinds
)

func (k Kind) String() string {
	names := [...]string{
		"String", "Array", "Hash", "Class", "Instance",
		"BoundMethod", "Upvalue", "Proto", "Closure", "Native", "Module",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Visitor is implemented by the garbage collector (internal/gc.MarkSweepGC);
// every Object.Trace call invokes VisitValue for reachable Values and
// VisitObject for direct object references (spec §4.A).
type Visitor interface {
	VisitValue(Value)
	VisitObject(Object)
}

// Object is implemented by every heap-allocated kind. Adding a new kind
// requires adding a Kind constant, a case in every exhaustive switch over
// Kind (dispatcher, parser constant grammar), and a Trace implementation —
// this is intentional (spec §4.A: "closed, tagged variant").
type Object interface {
	ObjKind() Kind
	Inspect() string
	Trace(v Visitor)
}

// Value is a stack-allocated tagged union: bits holds the bit pattern for
// Int/Float/Bool, obj holds the heap reference for TObject. This mirrors the
// teacher's vm.Value layout (internal/vm/value.go in funvibe/funxy) almost
// exactly, generalized from four heap kinds to eleven.
type Value struct {
	typ Type
	bits uint64
	obj  Object
}

func Null() Value { return Value{typ: TNull} }

func Bool(v bool) Value {
	var b uint64
	if v {
		b = 1
	}
	return Value{typ: TBool, bits: b}
}

func Int(v int64) Value     { return Value{typ: TInt, bits: uint64(v)} }
func Float(v float64) Value { return Value{typ: TFloat, bits: math.Float64bits(v)} }

func FromObject(o Object) Value {
	if o == nil {
		return Null()
	}
	return Value{typ: TObject, obj: o}
}

func (v Value) Type() Type { return v.typ }

func (v Value) IsNull() bool   { return v.typ == TNull }
func (v Value) IsBool() bool   { return v.typ == TBool }
func (v Value) IsInt() bool    { return v.typ == TInt }
func (v Value) IsFloat() bool  { return v.typ == TFloat }
func (v Value) IsObject() bool { return v.typ == TObject }
func (v Value) IsNumber() bool { return v.typ == TInt || v.typ == TFloat }

func (v Value) IsKind(k Kind) bool {
	return v.typ == TObject && v.obj != nil && v.obj.ObjKind() == k
}

func (v Value) AsBool() bool     { return v.bits == 1 }
func (v Value) AsInt() int64     { return int64(v.bits) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.bits) }
func (v Value) AsObject() Object { return v.obj }

// AsFloat64 widens an Int or Float value for mixed arithmetic (spec §4.G).
func (v Value) AsFloat64() float64 {
	if v.typ == TInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// Truthy implements the truthiness rule used by NOT and JUMP_IF_*:
// null/false/zero-int/zero-float are false, everything else (including
// every heap object, per spec §4.G which only names those four) is true.
func (v Value) Truthy() bool {
	switch v.typ {
	case TNull:
		return false
	case TBool:
		return v.AsBool()
	case TInt:
		return v.AsInt() != 0
	case TFloat:
		return v.AsFloat() != 0
	default:
		return true
	}
}

// Equals implements Value equality (spec §3): structural for primitives
// (with implicit int/float widening), reference identity for heap values.
// Strings are reference-identical too because the memory manager interns
// them (spec: "Equality on heap values is reference identity except
// strings, which are interned and therefore also identity-equal iff
// byte-equal").
func (v Value) Equals(other Value) bool {
	if v.typ != other.typ {
		if v.typ == TInt && other.typ == TFloat {
			return float64(v.AsInt()) == other.AsFloat()
		}
		if v.typ == TFloat && other.typ == TInt {
			return v.AsFloat() == float64(other.AsInt())
		}
		return false
	}
	switch v.typ {
	case TNull:
		return true
	case TBool:
		return v.AsBool() == other.AsBool()
	case TInt:
		return v.AsInt() == other.AsInt()
	case TFloat:
		return v.AsFloat() == other.AsFloat()
	case TObject:
		return v.obj == other.obj
	default:
		return false
	}
}

// Inspect renders a Value for REPL echo, error messages and backtraces.
func (v Value) Inspect() string {
	switch v.typ {
	case TNull:
		return "null"
	case TBool:
		return fmt.Sprintf("%t", v.AsBool())
	case TInt:
		return fmt.Sprintf("%d", v.AsInt())
	case TFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case TObject:
		if v.obj == nil {
			return "null"
		}
		return v.obj.Inspect()
	default:
		return "<?>"
	}
}

// TypeName names a Value's dynamic type, used in TypeError messages.
func (v Value) TypeName() string {
	switch v.typ {
	case TNull:
		return "Null"
	case TBool:
		return "Bool"
	case TInt:
		return "Int"
	case TFloat:
		return "Float"
	case TObject:
		if v.obj == nil {
			return "Null"
		}
		return v.obj.ObjKind().String()
	default:
		return "Unknown"
	}
}
