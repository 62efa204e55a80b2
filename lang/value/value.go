// Package value implements glipt's runtime value representation: every
// value a running program can hold is a single 64-bit NaN-boxed Value -- a
// double stored as-is, or a quiet-NaN bit pattern tagging nil, a bool, or
// a pointer to a heap Obj.
package value

import "math"

// Value is a NaN-boxed 64-bit runtime value: either an IEEE-754 double
// stored bit-for-bit, or a quiet-NaN payload tagging nil, true, false, or a
// pointer to an Obj living on the VM's own traced heap (see lang/gc).
type Value uint64

const (
	signBit uint64 = 0x8000000000000000
	qnan    uint64 = 0x7FFC000000000000

	tagNil   uint64 = 1
	tagFalse uint64 = 2
	tagTrue  uint64 = 3
)

var (
	Nil   = Value(qnan | tagNil)
	True  = Value(qnan | tagTrue)
	False = Value(qnan | tagFalse)
)

// Bool returns True or False.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number wraps a float64 as a Value, bits unchanged. The NaN a division
// or sqrt produces has only the standard quiet bit set, so it never
// collides with the tag patterns, which all carry an extra payload bit.
func Number(f float64) Value {
	return Value(math.Float64bits(f))
}

// Int is a convenience wrapper storing n as a float64, since glipt has a
// single numeric type.
func Int(n int64) Value { return Number(float64(n)) }

// Obj is implemented by every heap-allocated value kind: strings, lists,
// maps, functions, closures, upvalues and native functions. It is the unit
// the garbage collector traces (see lang/gc's Heap.blacken).
type Obj interface {
	objKind() ObjKind
}

// ObjKind identifies the concrete heap type a pointer-tagged Value refers
// to, so the VM can switch on it without a Go type assertion on every hot
// path access.
type ObjKind uint8

const (
	ObjString ObjKind = iota
	ObjList
	ObjMap
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjNative
)

// object boxes and unboxes work through a stable handle table rather than
// raw pointer bit-stuffing: Go's garbage collector must always be able to
// find every live pointer, and a moving collector would invalidate a
// pointer hidden inside a uint64. objTable below is the single place that
// keeps every live Obj reachable from ordinary Go memory; Values only ever
// carry an index into it.
var objTable = newHandleTable()

// ObjValue boxes a heap object, allocating (or reusing) a handle slot for it.
func ObjValue(o Obj) Value {
	h := objTable.alloc(o)
	return Value(signBit | qnan | uint64(h))
}

// AsNumber unboxes v as a float64. Behavior is undefined if !v.IsNumber().
func (v Value) AsNumber() float64 { return math.Float64frombits(uint64(v)) }

// AsBool unboxes v as a bool. Behavior is undefined if !v.IsBool().
func (v Value) AsBool() bool { return v == True }

// AsObj unboxes v as its heap object. Behavior is undefined if !v.IsObj().
func (v Value) AsObj() Obj {
	h := handle(uint64(v) &^ (signBit | qnan))
	return objTable.get(h)
}

func (v Value) IsNil() bool    { return v == Nil }
func (v Value) IsBool() bool   { return v == True || v == False }
func (v Value) IsNumber() bool { return uint64(v)&qnan != qnan }
func (v Value) IsObj() bool    { return uint64(v)&(signBit|qnan) == (signBit | qnan) }

// Kind returns the ObjKind of v's heap object. Panics if v is not an Obj.
func (v Value) Kind() ObjKind { return v.AsObj().objKind() }

// IsFalsey implements glipt's truthiness rule: nil, false and the
// number zero are falsey; everything else, including empty strings, lists
// and maps, is truthy.
func (v Value) IsFalsey() bool {
	switch {
	case v.IsNil():
		return true
	case v.IsBool():
		return v == False
	case v.IsNumber():
		return v.AsNumber() == 0
	default:
		return false
	}
}

// Equal implements glipt's == operator: numbers compare by value, strings
// by content, everything else (lists, maps, functions, closures) by
// reference identity.
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() == b.AsNumber()
	}
	if a.IsObj() && b.IsObj() {
		as, aok := a.AsObj().(*StringObj)
		bs, bok := b.AsObj().(*StringObj)
		if aok && bok {
			return as == bs // interned: pointer equality implies content equality
		}
	}
	return a == b
}
