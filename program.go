package wasmcore

import (
	"github.com/mikeshort10/wasmcore/internal/wasm"
)

// Re-exported so callers never need to import the internal package
// directly.
type (
	Module         = wasm.Module
	ModuleInstance = wasm.ModuleInstance
	RuntimeValue   = wasm.RuntimeValue
	ValueType      = wasm.ValueType
	ItemIndex      = wasm.ItemIndex
	ExportKind     = wasm.ExportKind
	FunctionType   = wasm.FunctionType
	HostFunc       = wasm.HostFunc
	Error          = wasm.Error
	Kind           = wasm.Kind
)

// Value constructors, re-exported for the same reason.
var (
	I32          = wasm.I32
	I64          = wasm.I64
	F32          = wasm.F32
	F64          = wasm.F64
	IndexSpace   = wasm.IndexSpace
	ExternalIdx  = wasm.External
	InternalIdx  = wasm.Internal
)

// Program is a Store of instantiated modules built against a shared
// Config. It is the façade most callers use instead of reaching into
// internal/wasm directly.
type Program struct {
	cfg   *Config
	store *wasm.Store
}

// NewProgram creates an empty Program. A nil cfg is replaced by
// NewConfig()'s defaults.
func NewProgram(cfg *Config) *Program {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Program{cfg: cfg, store: wasm.NewStore()}
}

// AddModule instantiates mod under name against whatever modules have
// already been added to this Program (resolved by name) plus externals
// (resolved first, letting a caller override or supply modules that
// aren't registered in this Program at all). The returned ModuleInstance
// is also registered under name for later AddModule calls to import from.
func (p *Program) AddModule(name string, mod *Module, externals map[string]*ModuleInstance) (*ModuleInstance, error) {
	return wasm.Instantiate(p.store, name, mod, externals, p.cfg.instantiateOptions())
}

// Module looks up a previously added module by name.
func (p *Program) Module(name string) (*ModuleInstance, bool) {
	mi, err := p.store.Resolve(nil, name)
	if err != nil {
		return nil, false
	}
	return mi, true
}
