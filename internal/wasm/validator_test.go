package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func i32Result() *ValueType {
	t := ValueTypeI32
	return &t
}

func TestValidator_SimpleArithmeticFunction(t *testing.T) {
	sig := &FunctionType{Result: i32Result()}
	body := &FuncBody{
		Code: []Instruction{
			{Op: OpI32Const, I32Val: 1},
			{Op: OpI32Const, I32Val: 2},
			{Op: OpI32Add},
			{Op: OpEnd},
		},
	}

	v := NewValidator(1024, 64)
	err := v.ValidateFunction(sig, body, nil, 1, 0, 0, 0, nil)
	require.NoError(t, err)
}

func TestValidator_ResultTypeMismatch(t *testing.T) {
	sig := &FunctionType{Result: i32Result()}
	body := &FuncBody{
		Code: []Instruction{
			{Op: OpF32Const, F32Val: 0},
			{Op: OpEnd},
		},
	}

	v := NewValidator(1024, 64)
	err := v.ValidateFunction(sig, body, nil, 1, 0, 0, 0, nil)
	require.Error(t, err)
}

func TestValidator_BlockLabelsComputed(t *testing.T) {
	sig := &FunctionType{}
	body := &FuncBody{
		Code: []Instruction{
			{Op: OpBlock, BlockType: NoResult}, // pc 0
			{Op: OpNop},                        // pc 1
			{Op: OpEnd},                        // pc 2, matches block at pc 0
			{Op: OpEnd},                        // pc 3, function end
		},
	}

	v := NewValidator(1024, 64)
	err := v.ValidateFunction(sig, body, nil, 1, 0, 0, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 2, body.Labels[0])
}

func TestValidator_IfElseLabelsComputed(t *testing.T) {
	sig := &FunctionType{Result: i32Result()}
	body := &FuncBody{
		Code: []Instruction{
			{Op: OpI32Const, I32Val: 1},
			{Op: OpIf, BlockType: ValueResult(ValueTypeI32)}, // pc 1
			{Op: OpI32Const, I32Val: 10},                     // pc 2
			{Op: OpElse},                                     // pc 3
			{Op: OpI32Const, I32Val: 20},                     // pc 4
			{Op: OpEnd},                                      // pc 5, matches if at pc 1
			{Op: OpEnd},                                      // pc 6, function end
		},
	}

	v := NewValidator(1024, 64)
	err := v.ValidateFunction(sig, body, nil, 1, 0, 0, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 5, body.Labels[1])
	require.Equal(t, 3, body.ElsePos[1])
}

func TestValidator_BranchDepthOutOfRangeFails(t *testing.T) {
	sig := &FunctionType{}
	body := &FuncBody{
		Code: []Instruction{
			{Op: OpBr, Index: 5}, // no enclosing blocks, depth 5 is invalid
			{Op: OpEnd},
		},
	}

	v := NewValidator(1024, 64)
	err := v.ValidateFunction(sig, body, nil, 1, 0, 0, 0, nil)
	require.Error(t, err)
}

func TestValidator_UnreachableMakesStackPolymorphic(t *testing.T) {
	// after `unreachable`, any further pops/pushes are permitted by the
	// validator even though, textually, the stack is empty.
	sig := &FunctionType{Result: i32Result()}
	body := &FuncBody{
		Code: []Instruction{
			{Op: OpUnreachable},
			{Op: OpI32Add}, // would underflow a concrete stack, but is fine here
			{Op: OpEnd},
		},
	}

	v := NewValidator(1024, 64)
	err := v.ValidateFunction(sig, body, nil, 1, 0, 0, 0, nil)
	require.NoError(t, err)
}

func TestValidator_CallIndexOutOfRangeFails(t *testing.T) {
	sig := &FunctionType{}
	body := &FuncBody{
		Code: []Instruction{
			{Op: OpCall, Index: 99},
			{Op: OpEnd},
		},
	}

	v := NewValidator(1024, 64)
	err := v.ValidateFunction(sig, body, nil, 1, 0, 0, 0, nil)
	require.Error(t, err)
}
