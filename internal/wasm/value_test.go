package wasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntimeValue_Accessors(t *testing.T) {
	require.Equal(t, int32(-7), I32(-7).I32())
	require.Equal(t, uint32(0xFFFFFFF9), I32(-7).U32())
	require.Equal(t, int64(-7), I64(-7).I64())
	require.Equal(t, float32(1.5), F32(1.5).F32())
	require.Equal(t, 1.5, F64(1.5).F64())
}

func TestRuntimeValue_BitExactThroughNaN(t *testing.T) {
	signaling := math.Float64frombits(0x7ff0000000000001)
	v := F64(signaling)
	require.Equal(t, math.Float64bits(signaling), v.Bits())
}

func TestRuntimeValue_AnyFunc(t *testing.T) {
	idx, ok := AnyFunc(3).AnyFuncIndex()
	require.True(t, ok)
	require.Equal(t, uint32(3), idx)

	_, ok = NullAnyFunc().AnyFuncIndex()
	require.False(t, ok)
}

func TestLittleEndianCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  ValueType
		v    RuntimeValue
	}{
		{"i32", ValueTypeI32, I32(-123456)},
		{"i64", ValueTypeI64, I64(-123456789012)},
		{"f32", ValueTypeF32, F32(3.14)},
		{"f64", ValueTypeF64, F64(2.718281828)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeLittleEndian(tc.typ, tc.v)
			decoded := DecodeLittleEndian(tc.typ, encoded)
			require.Equal(t, tc.v.Bits(), decoded.Bits())
		})
	}
}

func TestLittleEndianCodec_ByteOrder(t *testing.T) {
	b := EncodeLittleEndian(ValueTypeI32, I32(0x01020304))
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
}
