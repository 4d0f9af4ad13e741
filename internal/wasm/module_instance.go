package wasm

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Limits bundles the two stack caps (spec.md §4.3, §5): value_stack <=
// ValueStackLimit entries, frame_stack <= FrameStackLimit entries. The
// value budget is shared and shrinks across nested FunctionContexts; the
// frame limit is applied to each call on its own and is not shared across
// a call chain, so it does not bound call depth.
type Limits struct {
	ValueStackLimit int
	FrameStackLimit int
}

// DefaultLimits matches spec.md §4.3's DEFAULT_VALUE_STACK_LIMIT /
// DEFAULT_FRAME_STACK_LIMIT.
var DefaultLimits = Limits{ValueStackLimit: 16384, FrameStackLimit: 1024}

// ModuleInstance is a module wired to its imports, with its own defined
// memories/tables/globals allocated and its exports recorded. Every
// MemoryInstance, TableInstance, VariableInstance and FuncBody the
// instance owns is uniquely owned by it; other modules hold shared
// references only through the Store's import graph (spec.md §3
// "Ownership").
type ModuleInstance struct {
	store   *Store
	mod     *Module
	name    string
	limits  Limits
	log     logrus.FieldLogger

	imports *ImportsResolver

	// combined index space: imports first, then internally defined,
	// matching spec.md §3 ItemIndex "IndexSpace" ordering.
	funcs   []resolvedFunc
	tables  []resolvedTable
	mems    []resolvedMem
	globals []resolvedGlobal

	exportByName map[string]Export

	invocationMu sync.Mutex
}

// Name returns the name this instance was registered under.
func (m *ModuleInstance) Name() string { return m.name }

// exportEntryInternal resolves an export name to a (kind, combined-index)
// pair, used both by ExportEntry and by the imports resolver when one
// module imports another's export.
func (m *ModuleInstance) exportEntryInternal(name string) (ExportKind, uint32, error) {
	e, ok := m.exportByName[name]
	if !ok {
		return 0, 0, programErr("module %q has no export named %q", m.name, name)
	}
	return e.Kind, e.Index, nil
}

// ExportEntry is the introspection operation from spec.md §6.
func (m *ModuleInstance) ExportEntry(name string) (ExportKind, uint32, error) {
	return m.exportEntryInternal(name)
}

// resolvedFuncAt returns the combined-index-space entry for idx, whatever
// form it arrives in (IndexSpace/Internal/External).
func (m *ModuleInstance) resolvedFuncAt(idx ItemIndex) (resolvedFunc, error) {
	resolved := m.imports.ParseFunctionIndex(idx)
	i, err := combinedIndex(resolved, m.imports.FuncImportCount(), uint32(len(m.funcs)))
	if err != nil {
		return resolvedFunc{}, wrapErr(KindFunction, err, "resolving function index")
	}
	return m.funcs[i], nil
}

// Memory returns the memory named by index, per spec.md §6.
func (m *ModuleInstance) Memory(index ItemIndex) (*MemoryInstance, error) {
	resolved := m.imports.ParseMemoryIndex(index)
	i, err := combinedIndex(resolved, m.imports.MemImportCount(), uint32(len(m.mems)))
	if err != nil {
		return nil, wrapErr(KindMemory, err, "resolving memory index")
	}
	return m.mems[i].Inst, nil
}

// Table returns the table named by index, per spec.md §6.
func (m *ModuleInstance) Table(index ItemIndex) (*TableInstance, error) {
	resolved := m.imports.ParseTableIndex(index)
	i, err := combinedIndex(resolved, m.imports.TableImportCount(), uint32(len(m.tables)))
	if err != nil {
		return nil, wrapErr(KindTable, err, "resolving table index")
	}
	return m.tables[i].Inst, nil
}

// Global returns the global named by index, per spec.md §6.
func (m *ModuleInstance) Global(index ItemIndex) (*VariableInstance, error) {
	resolved := m.imports.ParseGlobalIndex(index)
	i, err := combinedIndex(resolved, m.imports.GlobalImportCount(), uint32(len(m.globals)))
	if err != nil {
		return nil, wrapErr(KindGlobal, err, "resolving global index")
	}
	return m.globals[i].Inst, nil
}

// combinedIndex maps an Internal/External ItemIndex back onto the
// position in a combined (imports-first) slice of length total, bounds
// checking along the way.
func combinedIndex(idx ItemIndex, importCount, total uint32) (uint32, error) {
	switch idx.Kind {
	case ExternalKind:
		if idx.Value >= importCount {
			return 0, newErr(KindProgram, "external index %d out of range (only %d imports)", idx.Value, importCount)
		}
		return idx.Value, nil
	case InternalKind:
		combined := importCount + idx.Value
		if combined >= total {
			return 0, newErr(KindProgram, "internal index %d out of range (only %d entries)", idx.Value, total-importCount)
		}
		return combined, nil
	default:
		return 0, newErr(KindProgram, "expected a resolved index, got IndexSpace")
	}
}

// ExecuteMain invokes the module's declared start function, failing with
// KindProgram if none was declared.
func (m *ModuleInstance) ExecuteMain(externals map[string]*ModuleInstance, args []RuntimeValue) (*RuntimeValue, error) {
	if m.mod.Start == nil {
		return nil, programErr("module %q has no start section", m.name)
	}
	return m.ExecuteIndex(*m.mod.Start, externals, args)
}

// ExecuteExport invokes the function exported under name.
func (m *ModuleInstance) ExecuteExport(name string, externals map[string]*ModuleInstance, args []RuntimeValue) (*RuntimeValue, error) {
	e, ok := m.exportByName[name]
	if !ok || e.Kind != ExportFunction {
		return nil, functionErr("module %q has no exported function named %q", m.name, name)
	}
	return m.ExecuteIndex(e.Index, externals, args)
}

// ExecuteIndex invokes the function at the given function-index-space
// index, building the root FunctionContext from args and entering the
// interpreter.
func (m *ModuleInstance) ExecuteIndex(index uint32, externals map[string]*ModuleInstance, args []RuntimeValue) (*RuntimeValue, error) {
	m.invocationMu.Lock()
	defer m.invocationMu.Unlock()

	valueStack := NewStackWithData(append([]RuntimeValue{}, args...), m.limits.ValueStackLimit)
	outer := &callerContext{
		limits:     m.limits,
		valueStack: valueStack,
		externals:  externals,
	}
	return m.callFunction(outer, IndexSpace(index))
}

// callFunction resolves idx through the combined index space (imports and
// internal functions alike were already bound at instantiation time) and
// dispatches on the concrete FuncInstance kind.
func (m *ModuleInstance) callFunction(outer *callerContext, idx ItemIndex) (*RuntimeValue, error) {
	entry, err := m.resolvedFuncAt(idx)
	if err != nil {
		return nil, err
	}
	return dispatchFunc(outer, entry.Inst, nil)
}

// dispatchFunc invokes a resolved FuncInstance, optionally checking its
// signature against wantType first (used by call_indirect).
func dispatchFunc(outer *callerContext, inst FuncInstance, wantType *FunctionType) (*RuntimeValue, error) {
	if wantType != nil && !wantType.Equal(inst.Type()) {
		return nil, functionErr("expected function with signature %v, got %v", wantType, inst.Type())
	}
	switch f := inst.(type) {
	case *DefinedFunc:
		return f.Module.callInternalFunction(outer, f.Index)
	case *HostFunc:
		return callHostFunc(outer, f)
	default:
		return nil, functionErr("unsupported function instance %T", inst)
	}
}

// callHostFunc pops the callback's declared parameters off the caller's
// value stack and invokes it directly, without entering the interpreter
// (spec.md §4.5 "Host functions").
func callHostFunc(outer *callerContext, f *HostFunc) (*RuntimeValue, error) {
	args := make([]RuntimeValue, len(f.Sig.Params))
	for i := len(f.Sig.Params) - 1; i >= 0; i-- {
		v, err := outer.valueStack.Pop()
		if err != nil {
			return nil, err
		}
		if v.Type() != f.Sig.Params[i] {
			return nil, functionErr("invalid parameter %d type: expected %s, got %s", i, f.Sig.Params[i], v.Type())
		}
		args[i] = v
	}
	return f.Callback(args)
}

// callInternalFunction runs the function at internal index idx within m.
// This is the single place a new FunctionContext is built and handed to
// the interpreter.
func (m *ModuleInstance) callInternalFunction(outer *callerContext, idx uint32) (*RuntimeValue, error) {
	if int(idx) >= len(m.mod.FuncTypeIndices) {
		return nil, functionErr("function index %d out of range (%d defined functions)", idx, len(m.mod.FuncTypeIndices))
	}
	sig := m.mod.Types[m.mod.FuncTypeIndices[idx]]
	body := m.mod.Code[idx]

	locals, err := prepareLocals(sig, body, outer.valueStack)
	if err != nil {
		return nil, err
	}

	ctx := &FunctionContext{
		Module:     m,
		ReturnType: sig.BlockType(),
		Locals:     locals,
		ValueStack: NewStack[RuntimeValue](outer.remainingValueBudget()),
		FrameStack: NewStack[BlockFrame](outer.remainingFrameBudget()),
		Externals:  outer.externals,
	}
	return runInterpreter(ctx, body)
}

// callFunctionIndirect implements call_indirect for a table index the
// interpreter has already popped: load the slot, trap if null or the
// signature disagrees with typeIdx.
func (m *ModuleInstance) callFunctionIndirect(outer *callerContext, typeIdx uint32, tableFuncIdx uint32) (*RuntimeValue, error) {
	if int(typeIdx) >= len(m.mod.Types) {
		return nil, functionErr("call_indirect: type index %d out of range", typeIdx)
	}
	wantType := m.mod.Types[typeIdx]

	table, err := m.Table(IndexSpace(0))
	if err != nil {
		return nil, functionErr("call_indirect requires a table: %v", err)
	}
	slot, err := table.Get(tableFuncIdx)
	if err != nil {
		return nil, err
	}
	funcIdx, nonNull := slot.AnyFuncIndex()
	if !nonNull {
		return nil, functionErr("call_indirect: table slot %d is null", tableFuncIdx)
	}
	entry, err := m.resolvedFuncAt(IndexSpace(funcIdx))
	if err != nil {
		return nil, err
	}
	return dispatchFunc(outer, entry.Inst, wantType)
}

// prepareLocals pops |sig.Params| values off the caller's value stack
// (type-checked defensively), then appends zero-initialized declared
// locals, producing the callee's locals vector.
func prepareLocals(sig *FunctionType, body *FuncBody, callerStack *ValueStack) ([]RuntimeValue, error) {
	params := make([]RuntimeValue, len(sig.Params))
	for i := len(sig.Params) - 1; i >= 0; i-- {
		v, err := callerStack.Pop()
		if err != nil {
			return nil, err
		}
		if v.Type() != sig.Params[i] {
			return nil, functionErr("invalid parameter %d type: expected %s, got %s", i, sig.Params[i], v.Type())
		}
		params[i] = v
	}
	for _, l := range body.Locals {
		for i := uint32(0); i < l.Count; i++ {
			params = append(params, ZeroValue(l.Type))
		}
	}
	return params, nil
}

// callerContext is the nested-call-budget carrier spec.md §9's Design
// Notes propose as an alternative to a distinct CallerContext type: it's
// folded directly into the state threaded into callInternalFunction.
type callerContext struct {
	limits     Limits
	valueStack *ValueStack
	externals  map[string]*ModuleInstance
}

func (c *callerContext) remainingValueBudget() int {
	return c.limits.ValueStackLimit - c.valueStack.Len()
}

func (c *callerContext) remainingFrameBudget() int {
	return c.limits.FrameStackLimit
}
