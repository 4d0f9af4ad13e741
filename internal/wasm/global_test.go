package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariableInstance_ImmutableWriteFails(t *testing.T) {
	v, err := NewVariableInstance(ValueTypeI32, false, I32(42))
	require.NoError(t, err)

	err = v.Set(I32(43))
	require.Error(t, err)
	var wasmErr *Error
	require.ErrorAs(t, err, &wasmErr)
	require.Equal(t, KindGlobal, wasmErr.Kind)
	require.Equal(t, int32(42), v.Get().I32())
}

func TestVariableInstance_MutableWrite(t *testing.T) {
	v, err := NewVariableInstance(ValueTypeI64, true, I64(1))
	require.NoError(t, err)

	require.NoError(t, v.Set(I64(2)))
	require.Equal(t, int64(2), v.Get().I64())
}

func TestVariableInstance_TypeMismatch(t *testing.T) {
	_, err := NewVariableInstance(ValueTypeI32, true, F32(1))
	require.Error(t, err)

	v, err := NewVariableInstance(ValueTypeI32, true, I32(1))
	require.NoError(t, err)
	require.Error(t, v.Set(F64(1)))
}
