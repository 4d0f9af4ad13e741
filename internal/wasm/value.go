package wasm

import (
	"math"
)

// ValueType tags a RuntimeValue or a declared local/global/param type.
type ValueType byte

const (
	ValueTypeI32 ValueType = iota
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
	ValueTypeAnyFunc
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeAnyFunc:
		return "anyfunc"
	default:
		return "unknown"
	}
}

// RuntimeValue is the tagged union described by the data model: one of the
// four numeric types, or an AnyFunc table slot (a function index in the
// combined imports-first index space, or null). Values are immutable; every operation on one produces a new
// RuntimeValue.
//
// Numeric payloads are stored bit-for-bit in bits so that store/load
// round-trips and reinterpret casts are exact, including signalling NaN
// patterns.
type RuntimeValue struct {
	typ    ValueType
	bits   uint64
	isNull bool // meaningful only when typ == ValueTypeAnyFunc
}

func I32(v int32) RuntimeValue { return RuntimeValue{typ: ValueTypeI32, bits: uint64(uint32(v))} }
func I64(v int64) RuntimeValue { return RuntimeValue{typ: ValueTypeI64, bits: uint64(v)} }
func F32(v float32) RuntimeValue {
	return RuntimeValue{typ: ValueTypeF32, bits: uint64(math.Float32bits(v))}
}
func F64(v float64) RuntimeValue {
	return RuntimeValue{typ: ValueTypeF64, bits: math.Float64bits(v)}
}

// AnyFunc constructs a non-null table slot referring to function index idx
// (combined index space).
func AnyFunc(idx uint32) RuntimeValue {
	return RuntimeValue{typ: ValueTypeAnyFunc, bits: uint64(idx)}
}

// NullAnyFunc constructs the null table slot.
func NullAnyFunc() RuntimeValue {
	return RuntimeValue{typ: ValueTypeAnyFunc, isNull: true}
}

// ZeroValue returns the declared-type zero used to initialize locals.
func ZeroValue(t ValueType) RuntimeValue {
	switch t {
	case ValueTypeI32:
		return I32(0)
	case ValueTypeI64:
		return I64(0)
	case ValueTypeF32:
		return F32(0)
	case ValueTypeF64:
		return F64(0)
	case ValueTypeAnyFunc:
		return NullAnyFunc()
	default:
		return RuntimeValue{}
	}
}

func (v RuntimeValue) Type() ValueType { return v.typ }

func (v RuntimeValue) I32() int32 { return int32(uint32(v.bits)) }
func (v RuntimeValue) U32() uint32 { return uint32(v.bits) }
func (v RuntimeValue) I64() int64 { return int64(v.bits) }
func (v RuntimeValue) U64() uint64 { return v.bits }
func (v RuntimeValue) F32() float32 { return math.Float32frombits(uint32(v.bits)) }
func (v RuntimeValue) F64() float64 { return math.Float64frombits(v.bits) }

// AnyFuncIndex returns the referenced function index and whether
// the slot is non-null.
func (v RuntimeValue) AnyFuncIndex() (uint32, bool) {
	return uint32(v.bits), !v.isNull
}

// Bits returns the raw bit pattern backing the value, used for bitwise
// comparisons (NaN-sensitive equality excluded) and for the little-endian
// memory codec.
func (v RuntimeValue) Bits() uint64 { return v.bits }

// I32Bool converts the WebAssembly boolean convention (0 = false, any
// other i32 = true) carried by an i32 RuntimeValue on the stack.
func (v RuntimeValue) I32Bool() bool { return v.I32() != 0 }

// BoolToI32 is the inverse of I32Bool, used by comparison opcodes.
func BoolToI32(b bool) RuntimeValue {
	if b {
		return I32(1)
	}
	return I32(0)
}

// little-endian codec ---------------------------------------------------

// EncodeLittleEndian writes v's canonical little-endian byte representation
// for numeric type t into a fresh slice sized for that type (4 bytes for
// i32/f32, 8 for i64/f64).
func EncodeLittleEndian(t ValueType, v RuntimeValue) []byte {
	switch t {
	case ValueTypeI32, ValueTypeF32:
		b := make([]byte, 4)
		putU32(b, uint32(v.bits))
		return b
	case ValueTypeI64, ValueTypeF64:
		b := make([]byte, 8)
		putU64(b, v.bits)
		return b
	default:
		return nil
	}
}

// DecodeLittleEndian is the inverse of EncodeLittleEndian.
func DecodeLittleEndian(t ValueType, b []byte) RuntimeValue {
	switch t {
	case ValueTypeI32:
		return I32(int32(getU32(b)))
	case ValueTypeF32:
		return RuntimeValue{typ: ValueTypeF32, bits: uint64(getU32(b))}
	case ValueTypeI64:
		return I64(int64(getU64(b)))
	case ValueTypeF64:
		return RuntimeValue{typ: ValueTypeF64, bits: getU64(b)}
	default:
		return RuntimeValue{}
	}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// widthOf returns the byte width of a load/store for a narrow integer
// access (8/16/32-bit loads that sign/zero extend into i32/i64).
func widthOf(bits int) int { return bits / 8 }
