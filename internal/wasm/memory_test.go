package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryInstance_SetGetRoundTrip(t *testing.T) {
	mem, err := NewMemoryInstance(1, nil)
	require.NoError(t, err)

	require.NoError(t, mem.Set(100, []byte{1, 2, 3, 4}))
	got, err := mem.Get(100, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestMemoryInstance_OutOfBounds(t *testing.T) {
	mem, err := NewMemoryInstance(1, nil)
	require.NoError(t, err)

	_, err = mem.Get(PageSize-2, 4)
	require.Error(t, err)
	var wasmErr *Error
	require.ErrorAs(t, err, &wasmErr)
	require.Equal(t, KindMemory, wasmErr.Kind)

	err = mem.Set(PageSize-2, []byte{1, 2, 3, 4})
	require.Error(t, err)
}

func TestMemoryInstance_GrowMonotonic(t *testing.T) {
	maximum := uint32(3)
	mem, err := NewMemoryInstance(1, &maximum)
	require.NoError(t, err)

	before := mem.Grow(1)
	require.Equal(t, int32(1), before)
	require.Equal(t, uint32(2), mem.SizePages())

	// growing past the declared maximum fails and does not shrink memory
	failed := mem.Grow(5)
	require.Equal(t, int32(-1), failed)
	require.Equal(t, uint32(2), mem.SizePages())

	again := mem.Grow(1)
	require.Equal(t, int32(2), again)
	require.Equal(t, uint32(3), mem.SizePages())
}

func TestNewMemoryInstance_RejectsBadLimits(t *testing.T) {
	small := uint32(1)
	_, err := NewMemoryInstance(2, &small)
	require.Error(t, err)
}
