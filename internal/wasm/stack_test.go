package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStack_PushPopOrder(t *testing.T) {
	s := NewStack[RuntimeValue](4)
	require.NoError(t, s.Push(I32(1)))
	require.NoError(t, s.Push(I32(2)))
	require.NoError(t, s.Push(I32(3)))

	top, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, int32(3), top.I32())
	require.Equal(t, 2, s.Len())
}

func TestStack_LimitEnforced(t *testing.T) {
	s := NewStack[RuntimeValue](2)
	require.NoError(t, s.Push(I32(1)))
	require.NoError(t, s.Push(I32(2)))
	err := s.Push(I32(3))
	require.Error(t, err)
	var wasmErr *Error
	require.ErrorAs(t, err, &wasmErr)
	require.Equal(t, KindStack, wasmErr.Kind)
}

func TestStack_PopEmpty(t *testing.T) {
	s := NewStack[RuntimeValue](4)
	_, err := s.Pop()
	require.Error(t, err)
}

func TestStack_Resize(t *testing.T) {
	s := NewStack[RuntimeValue](8)
	require.NoError(t, s.Push(I32(1)))
	require.NoError(t, s.Push(I32(2)))
	require.NoError(t, s.Push(I32(3)))
	s.Resize(1, RuntimeValue{})
	require.Equal(t, 1, s.Len())

	s.Resize(3, I64(9))
	require.Equal(t, 3, s.Len())
	top, err := s.Top()
	require.NoError(t, err)
	require.Equal(t, int64(9), top.I64())
}

func TestPopAs_TypeMismatchFails(t *testing.T) {
	s := NewStack[RuntimeValue](4)
	require.NoError(t, s.Push(F32(1.0)))
	_, err := PopAs[int32](s)
	require.Error(t, err)
}

func TestPopPairAs_SourceOrder(t *testing.T) {
	s := NewStack[RuntimeValue](4)
	require.NoError(t, s.Push(I32(10))) // pushed first -> left operand
	require.NoError(t, s.Push(I32(3)))  // pushed second -> right operand

	left, right, err := PopPairAs[int32](s)
	require.NoError(t, err)
	require.Equal(t, int32(10), left)
	require.Equal(t, int32(3), right)
}
