package wasm

import (
	"sync"

	"github.com/google/uuid"
)

// FuncRef, TableRef, MemRef and GlobalRef are opaque handles minted by the
// Store at instantiation time. The interpreter's hot path keeps these
// alongside the plain pointer it resolves them to, so repeated dispatch of
// the same call/global/memory op never needs to re-walk the import graph
// (spec.md §4.1: "the store also owns long-lived references by opaque id
// ... so the interpreter does not chase owner chains during hot dispatch").
type FuncRef = uuid.UUID
type TableRef = uuid.UUID
type MemRef = uuid.UUID
type GlobalRef = uuid.UUID

// FuncInstance is either a function defined in some module's code section,
// or a host callback. This closes the TODO the original interpreter left
// open (Design Notes §9, "Host functions").
type FuncInstance interface {
	Type() *FunctionType
}

// DefinedFunc is a function whose body lives in a ModuleInstance's code
// section.
type DefinedFunc struct {
	Module *ModuleInstance
	Index  uint32 // internal function index within Module
	Sig    *FunctionType
}

func (f *DefinedFunc) Type() *FunctionType { return f.Sig }

// HostFunc wraps a Go callback invoked as: pop params, invoke callback,
// push the result (spec.md §4.5 "Host functions").
type HostFunc struct {
	Sig      *FunctionType
	Callback func(args []RuntimeValue) (*RuntimeValue, error)
}

func (f *HostFunc) Type() *FunctionType { return f.Sig }

// resolvedFunc/resolvedTable/resolvedMem/resolvedGlobal pair an opaque
// handle with the concrete entity it names, precomputed once at
// instantiation time and stored inline in the combined index space of a
// ModuleInstance.
type resolvedFunc struct {
	Ref  FuncRef
	Inst FuncInstance
}

type resolvedTable struct {
	Ref  TableRef
	Inst *TableInstance
}

type resolvedMem struct {
	Ref  MemRef
	Inst *MemoryInstance
}

type resolvedGlobal struct {
	Ref  GlobalRef
	Inst *VariableInstance
}

// Store is the process-wide module registry: a name -> ModuleInstance map
// addressable by opaque id. Modules may import from each other and form
// cycles; the Store never embeds ownership of one ModuleInstance inside
// another, only indirections through itself, so cyclic graphs are
// tolerated for the lifetime of the Store (spec.md §9).
type Store struct {
	mu      sync.RWMutex
	modules map[string]*ModuleInstance

	funcs   map[FuncRef]FuncInstance
	tables  map[TableRef]*TableInstance
	mems    map[MemRef]*MemoryInstance
	globals map[GlobalRef]*VariableInstance
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{
		modules: make(map[string]*ModuleInstance),
		funcs:   make(map[FuncRef]FuncInstance),
		tables:  make(map[TableRef]*TableInstance),
		mems:    make(map[MemRef]*MemoryInstance),
		globals: make(map[GlobalRef]*VariableInstance),
	}
}

// Register installs mod under name, overwriting any prior registration of
// that name.
func (s *Store) Register(name string, mod *ModuleInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = mod
}

// Resolve looks up a module by name, checking externals first (a
// per-invocation override map), then the registry. Fails with KindProgram
// when absent.
func (s *Store) Resolve(externals map[string]*ModuleInstance, name string) (*ModuleInstance, error) {
	if externals != nil {
		if m, ok := externals[name]; ok {
			return m, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[name]
	if !ok {
		return nil, programErr("module %q is not registered", name)
	}
	return m, nil
}

func (s *Store) mintFunc(inst FuncInstance) resolvedFunc {
	ref := uuid.New()
	s.mu.Lock()
	s.funcs[ref] = inst
	s.mu.Unlock()
	return resolvedFunc{Ref: ref, Inst: inst}
}

func (s *Store) mintTable(inst *TableInstance) resolvedTable {
	ref := uuid.New()
	s.mu.Lock()
	s.tables[ref] = inst
	s.mu.Unlock()
	return resolvedTable{Ref: ref, Inst: inst}
}

func (s *Store) mintMem(inst *MemoryInstance) resolvedMem {
	ref := uuid.New()
	s.mu.Lock()
	s.mems[ref] = inst
	s.mu.Unlock()
	return resolvedMem{Ref: ref, Inst: inst}
}

func (s *Store) mintGlobal(inst *VariableInstance) resolvedGlobal {
	ref := uuid.New()
	s.mu.Lock()
	s.globals[ref] = inst
	s.mu.Unlock()
	return resolvedGlobal{Ref: ref, Inst: inst}
}
