package wasmcore

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mikeshort10/wasmcore/internal/wasm"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func i32Result() *wasm.ValueType {
	t := wasm.ValueTypeI32
	return &t
}

func TestConfig_WithMethodsDoNotMutateReceiver(t *testing.T) {
	base := NewConfig()
	derived := base.WithValueStackLimit(64).WithExportUniquenessCheck(false)

	require.Equal(t, wasm.DefaultLimits.ValueStackLimit, base.valueStackLimit)
	require.Equal(t, 64, derived.valueStackLimit)
	require.True(t, base.checkExportUniqueness)
	require.False(t, derived.checkExportUniqueness)
}

func TestConfig_WithBlessedModuleAddsWithoutRemoving(t *testing.T) {
	cfg := NewConfig().WithBlessedModule("wasi_snapshot_preview1")
	require.True(t, cfg.blessedModules["env"])
	require.True(t, cfg.blessedModules["wasi_snapshot_preview1"])
}

func TestProgram_AddModuleAndCallExport(t *testing.T) {
	cfg := NewConfig().WithLogger(discardLogger())
	p := NewProgram(cfg)

	mod := &Module{
		Types:           []*FunctionType{{Params: []ValueType{wasm.ValueTypeI32}, Result: i32Result()}},
		FuncTypeIndices: []uint32{0},
		Code: []*wasm.FuncBody{{
			Code: []wasm.Instruction{
				{Op: wasm.OpGetLocal, Index: 0},
				{Op: wasm.OpI32Const, I32Val: 1},
				{Op: wasm.OpI32Add},
				{Op: wasm.OpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "increment", Kind: wasm.ExportFunction, Index: 0}},
	}

	mi, err := p.AddModule("m", mod, nil)
	require.NoError(t, err)

	result, err := mi.ExecuteExport("increment", nil, []RuntimeValue{I32(41)})
	require.NoError(t, err)
	require.Equal(t, int32(42), result.I32())

	found, ok := p.Module("m")
	require.True(t, ok)
	require.Same(t, mi, found)

	_, ok = p.Module("does-not-exist")
	require.False(t, ok)
}
