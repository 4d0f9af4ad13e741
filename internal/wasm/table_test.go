package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableInstance_InitializedNull(t *testing.T) {
	tbl, err := NewTableInstance(3, nil)
	require.NoError(t, err)

	for i := uint32(0); i < 3; i++ {
		slot, err := tbl.Get(i)
		require.NoError(t, err)
		_, nonNull := slot.AnyFuncIndex()
		require.False(t, nonNull)
	}
}

func TestTableInstance_SetGet(t *testing.T) {
	tbl, err := NewTableInstance(2, nil)
	require.NoError(t, err)

	require.NoError(t, tbl.Set(1, AnyFunc(5)))
	slot, err := tbl.Get(1)
	require.NoError(t, err)
	idx, nonNull := slot.AnyFuncIndex()
	require.True(t, nonNull)
	require.Equal(t, uint32(5), idx)
}

func TestTableInstance_OutOfBounds(t *testing.T) {
	tbl, err := NewTableInstance(2, nil)
	require.NoError(t, err)

	_, err = tbl.Get(2)
	require.Error(t, err)
	var wasmErr *Error
	require.ErrorAs(t, err, &wasmErr)
	require.Equal(t, KindTable, wasmErr.Kind)
}

func TestTableInstance_SetRaw(t *testing.T) {
	tbl, err := NewTableInstance(4, nil)
	require.NoError(t, err)

	require.NoError(t, tbl.SetRaw(1, []uint32{7, 8}))
	slot, err := tbl.Get(2)
	require.NoError(t, err)
	idx, _ := slot.AnyFuncIndex()
	require.Equal(t, uint32(8), idx)
}

func TestTableInstance_SetRawOverflow(t *testing.T) {
	tbl, err := NewTableInstance(2, nil)
	require.NoError(t, err)

	err = tbl.SetRaw(1, []uint32{1, 2})
	require.Error(t, err)
}
