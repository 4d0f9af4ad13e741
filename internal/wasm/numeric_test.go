package wasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDivS_TrapsOnZeroAndOverflow(t *testing.T) {
	_, err := divS[int32](10, 0)
	require.Error(t, err)

	_, err = divS[int32](math.MinInt32, -1)
	require.Error(t, err)

	v, err := divS[int32](7, 2)
	require.NoError(t, err)
	require.Equal(t, int32(3), v)
}

func TestRemS_OverflowCaseReturnsZeroInsteadOfTrapping(t *testing.T) {
	v, err := remS[int32](math.MinInt32, -1)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)

	_, err = remS[int32](1, 0)
	require.Error(t, err)
}

func TestDivU_RemU_TrapOnlyOnZero(t *testing.T) {
	_, err := divU[uint32](1, 0)
	require.Error(t, err)

	v, err := divU[uint32](7, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(3), v)

	_, err = remU[uint32](1, 0)
	require.Error(t, err)

	v, err = remU[uint32](7, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(1), v)
}

func TestShiftAmount_MasksToOperandWidth(t *testing.T) {
	require.Equal(t, uint32(1), shiftAmount(int32(33))) // 33 & 31
	require.Equal(t, uint32(1), shiftAmount(int64(65))) // 65 & 63
}

func TestRotl_Rotr_Roundtrip(t *testing.T) {
	v := int32(0x12345678)
	require.Equal(t, v, rotr(rotl(v, 5), 5))
}

func TestClzCtzPopcnt(t *testing.T) {
	require.Equal(t, int32(31), clz(int32(1)))
	require.Equal(t, int32(32), clz(int32(0)))
	require.Equal(t, int32(0), ctz(int32(1)))
	require.Equal(t, int32(32), ctz(int32(0)))
	require.Equal(t, int32(4), popcnt(int32(0b1111)))
}

func TestIntegerWrapArithmetic(t *testing.T) {
	// WebAssembly integer arithmetic wraps on overflow, which falls out of
	// Go's own wraparound semantics for fixed-width int32/int64 addition.
	var a, b int32 = math.MaxInt32, 1
	require.Equal(t, int32(math.MinInt32), a+b)
}

func TestFnearest_TiesToEven(t *testing.T) {
	require.Equal(t, 2.0, fnearest64(2.5))
	require.Equal(t, 4.0, fnearest64(3.5))
	require.Equal(t, -2.0, fnearest64(-2.5))
}

func TestFminFmax_NaNPropagates(t *testing.T) {
	require.True(t, math.IsNaN(float64(fmin32(float32(math.NaN()), 1))))
	require.True(t, math.IsNaN(float64(fmax32(1, float32(math.NaN())))))
}

func TestFminFmax_SignedZero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	require.Equal(t, negZero, fmin64(0, negZero))
	require.Equal(t, 0.0, fmax64(0, negZero))
}

func TestTruncFloatToInt_TrapsOnNaNInfOverflow(t *testing.T) {
	_, err := truncF32ToI32S(float32(math.NaN()))
	require.Error(t, err)

	_, err = truncF64ToI32S(math.Inf(1))
	require.Error(t, err)

	_, err = truncF64ToI32S(1e10)
	require.Error(t, err)

	v, err := truncF64ToI32S(3.9)
	require.NoError(t, err)
	require.Equal(t, int32(3), v)
}

func TestTruncFloatToUint_RejectsNegative(t *testing.T) {
	_, err := truncF64ToI32U(-1)
	require.Error(t, err)
}

func TestReinterpret_PreservesBits(t *testing.T) {
	require.Equal(t, int32(0x3f800000), reinterpretF32ToI32(1.0))
	require.Equal(t, float32(1.0), reinterpretI32ToF32(0x3f800000))
}

func TestWrapAndExtend(t *testing.T) {
	require.Equal(t, int32(-1), wrapI64ToI32(0xFFFFFFFF))
	require.Equal(t, int64(-1), extendI32SToI64(-1))
	require.Equal(t, int64(0xFFFFFFFF), extendI32UToI64(-1))
}
