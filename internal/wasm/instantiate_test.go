package wasm

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testOptions() InstantiateOptions {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return InstantiateOptions{
		Limits:                DefaultLimits,
		CheckExportUniqueness: true,
		Logger:                log,
	}
}

// E1: instantiate a module with one exported add function and call it.
func TestInstantiate_AddFunctionCall(t *testing.T) {
	resultI32 := i32Result()
	mod := &Module{
		Types:           []*FunctionType{{Params: []ValueType{ValueTypeI32, ValueTypeI32}, Result: resultI32}},
		FuncTypeIndices: []uint32{0},
		Code: []*FuncBody{{
			Code: []Instruction{
				{Op: OpGetLocal, Index: 0},
				{Op: OpGetLocal, Index: 1},
				{Op: OpI32Add},
				{Op: OpEnd},
			},
		}},
		Exports: []Export{{Name: "add", Kind: ExportFunction, Index: 0}},
	}

	store := NewStore()
	mi, err := Instantiate(store, "m", mod, nil, testOptions())
	require.NoError(t, err)

	result, err := mi.ExecuteExport("add", nil, []RuntimeValue{I32(3), I32(4)})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, int32(7), result.I32())
}

// E2: an exported function that always executes unreachable traps.
func TestInstantiate_UnreachableTraps(t *testing.T) {
	mod := &Module{
		Types:           []*FunctionType{{}},
		FuncTypeIndices: []uint32{0},
		Code: []*FuncBody{{
			Code: []Instruction{
				{Op: OpUnreachable},
				{Op: OpEnd},
			},
		}},
		Exports: []Export{{Name: "boom", Kind: ExportFunction, Index: 0}},
	}

	store := NewStore()
	mi, err := Instantiate(store, "m", mod, nil, testOptions())
	require.NoError(t, err)

	_, err = mi.ExecuteExport("boom", nil, nil)
	require.Error(t, err)
	var wasmErr *Error
	require.ErrorAs(t, err, &wasmErr)
	require.Equal(t, KindTrap, wasmErr.Kind)
}

// E3: a loop that decrements its parameter to zero, then returns 0.
func TestInstantiate_LoopCountdown(t *testing.T) {
	resultI32 := i32Result()
	mod := &Module{
		Types:           []*FunctionType{{Params: []ValueType{ValueTypeI32}, Result: resultI32}},
		FuncTypeIndices: []uint32{0},
		Code: []*FuncBody{{
			Code: []Instruction{
				{Op: OpLoop, BlockType: NoResult}, // pc 0
				{Op: OpGetLocal, Index: 0},        // pc 1
				{Op: OpI32Const, I32Val: 1},        // pc 2
				{Op: OpI32Sub},                     // pc 3
				{Op: OpSetLocal, Index: 0},          // pc 4
				{Op: OpGetLocal, Index: 0},          // pc 5
				{Op: OpI32Const, I32Val: 0},         // pc 6
				{Op: OpI32Ne},                       // pc 7
				{Op: OpBrIf, Index: 0},              // pc 8
				{Op: OpEnd},                          // pc 9, matches loop
				{Op: OpI32Const, I32Val: 0},          // pc 10
				{Op: OpEnd},                           // pc 11, function end
			},
		}},
		Exports: []Export{{Name: "countdown", Kind: ExportFunction, Index: 0}},
	}

	store := NewStore()
	mi, err := Instantiate(store, "m", mod, nil, testOptions())
	require.NoError(t, err)

	result, err := mi.ExecuteExport("countdown", nil, []RuntimeValue{I32(5)})
	require.NoError(t, err)
	require.Equal(t, int32(0), result.I32())
}

// E4: grow_memory returns the previous size and never shrinks on success.
func TestInstantiate_GrowMemorySequence(t *testing.T) {
	mod := &Module{
		Memories:        []MemoryType{{Initial: 1}},
		Types:           []*FunctionType{{Result: i32Result()}},
		FuncTypeIndices: []uint32{0},
		Code: []*FuncBody{{
			Code: []Instruction{
				{Op: OpI32Const, I32Val: 1},
				{Op: OpGrowMemory},
				{Op: OpEnd},
			},
		}},
		Exports: []Export{{Name: "grow", Kind: ExportFunction, Index: 0}},
	}

	store := NewStore()
	mi, err := Instantiate(store, "m", mod, nil, testOptions())
	require.NoError(t, err)

	first, err := mi.ExecuteExport("grow", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), first.I32())

	second, err := mi.ExecuteExport("grow", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), second.I32())

	mem, err := mi.Memory(IndexSpace(0))
	require.NoError(t, err)
	require.Equal(t, uint32(3), mem.SizePages())
}

// E5: module B imports and calls an exported function from module A,
// sharing the same Store.
func TestInstantiate_TwoModuleCrossImport(t *testing.T) {
	modA := &Module{
		Types:           []*FunctionType{{Result: i32Result()}},
		FuncTypeIndices: []uint32{0},
		Code: []*FuncBody{{
			Code: []Instruction{
				{Op: OpI32Const, I32Val: 42},
				{Op: OpEnd},
			},
		}},
		Exports: []Export{{Name: "get42", Kind: ExportFunction, Index: 0}},
	}

	store := NewStore()
	_, err := Instantiate(store, "a", modA, nil, testOptions())
	require.NoError(t, err)

	modB := &Module{
		Types: []*FunctionType{{Result: i32Result()}},
		Imports: []Import{
			{Module: "a", Field: "get42", Kind: ImportFunction, FuncTypeIndex: 0},
		},
		FuncTypeIndices: []uint32{0},
		Code: []*FuncBody{{
			Code: []Instruction{
				{Op: OpCall, Index: 0}, // combined index 0: the imported get42
				{Op: OpEnd},
			},
		}},
		Exports: []Export{{Name: "callA", Kind: ExportFunction, Index: 1}},
	}

	mi, err := Instantiate(store, "b", modB, nil, testOptions())
	require.NoError(t, err)

	result, err := mi.ExecuteExport("callA", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(42), result.I32())
}

// E6: call_indirect traps when the table slot's function signature doesn't
// match the declared type index.
func TestInstantiate_CallIndirectTypeMismatchTraps(t *testing.T) {
	typeNoArgs := &FunctionType{Result: i32Result()}
	typeOneArg := &FunctionType{Params: []ValueType{ValueTypeI32}, Result: i32Result()}

	mod := &Module{
		Types:           []*FunctionType{typeNoArgs, typeOneArg},
		Tables:          []TableType{{Initial: 1}},
		FuncTypeIndices: []uint32{0, 0},
		Code: []*FuncBody{
			{ // target: function index 0, type 0 (no args)
				Code: []Instruction{
					{Op: OpI32Const, I32Val: 99},
					{Op: OpEnd},
				},
			},
			{ // caller: function index 1, calls through the table expecting type 1
				Code: []Instruction{
					{Op: OpI32Const, I32Val: 7}, // argument call_indirect expects
					{Op: OpI32Const, I32Val: 0}, // table slot
					{Op: OpCallIndirect, Index: 1},
					{Op: OpEnd},
				},
			},
		},
		Elements: []ElementSegment{{
			TableIndex:  0,
			Offset:      []Instruction{{Op: OpI32Const, I32Val: 0}, {Op: OpEnd}},
			FuncIndices: []uint32{0},
		}},
		Exports: []Export{{Name: "caller", Kind: ExportFunction, Index: 1}},
	}

	store := NewStore()
	mi, err := Instantiate(store, "m", mod, nil, testOptions())
	require.NoError(t, err)

	_, err = mi.ExecuteExport("caller", nil, nil)
	require.Error(t, err)
	var wasmErr *Error
	require.ErrorAs(t, err, &wasmErr)
	require.Equal(t, KindFunction, wasmErr.Kind)
}

func TestInstantiate_DuplicateExportRejectedWhenChecked(t *testing.T) {
	mod := &Module{
		Types:           []*FunctionType{{}},
		FuncTypeIndices: []uint32{0, 0},
		Code: []*FuncBody{
			{Code: []Instruction{{Op: OpEnd}}},
			{Code: []Instruction{{Op: OpEnd}}},
		},
		Exports: []Export{
			{Name: "dup", Kind: ExportFunction, Index: 0},
			{Name: "dup", Kind: ExportFunction, Index: 1},
		},
	}

	store := NewStore()
	_, err := Instantiate(store, "m", mod, nil, testOptions())
	require.Error(t, err)
}

func TestInstantiate_MutableGlobalExportRejected(t *testing.T) {
	mod := &Module{
		Globals: []GlobalDecl{{
			Type: GlobalType{Type: ValueTypeI32, Mutable: true},
			Init: []Instruction{{Op: OpI32Const, I32Val: 1}, {Op: OpEnd}},
		}},
		Exports: []Export{{Name: "g", Kind: ExportGlobal, Index: 0}},
	}

	store := NewStore()
	_, err := Instantiate(store, "m", mod, nil, testOptions())
	require.Error(t, err)
}

func TestInstantiate_StartFunctionInvoked(t *testing.T) {
	startIdx := uint32(0)
	mod := &Module{
		Types:           []*FunctionType{{}},
		FuncTypeIndices: []uint32{0},
		Memories:        []MemoryType{{Initial: 1}},
		Code: []*FuncBody{{
			Code: []Instruction{
				{Op: OpI32Const, I32Val: 1},
				{Op: OpI32Const, I32Val: 123},
				{Op: OpI32Store},
				{Op: OpEnd},
			},
		}},
		Start: &startIdx,
	}

	store := NewStore()
	mi, err := Instantiate(store, "m", mod, nil, testOptions())
	require.NoError(t, err)

	mem, err := mi.Memory(IndexSpace(0))
	require.NoError(t, err)
	b, err := mem.Get(1, 4)
	require.NoError(t, err)
	require.Equal(t, int32(123), DecodeLittleEndian(ValueTypeI32, b).I32())
}
