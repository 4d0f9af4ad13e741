package wasm

// ImportsResolver does the index-space arithmetic described in spec.md
// §3 "ItemIndex": every namespace lists imports first, then internally
// defined entities, so converting a raw IndexSpace index to Internal or
// External is "subtract the import count" once you know which side of
// the boundary it falls on.
type ImportsResolver struct {
	funcImportCount   uint32
	tableImportCount  uint32
	memImportCount    uint32
	globalImportCount uint32
}

// NewImportsResolver counts imports per namespace up front.
func NewImportsResolver(imports []Import) *ImportsResolver {
	r := &ImportsResolver{}
	for _, im := range imports {
		switch im.Kind {
		case ImportFunction:
			r.funcImportCount++
		case ImportTable:
			r.tableImportCount++
		case ImportMemory:
			r.memImportCount++
		case ImportGlobal:
			r.globalImportCount++
		}
	}
	return r
}

func (r *ImportsResolver) FuncImportCount() uint32   { return r.funcImportCount }
func (r *ImportsResolver) TableImportCount() uint32  { return r.tableImportCount }
func (r *ImportsResolver) MemImportCount() uint32    { return r.memImportCount }
func (r *ImportsResolver) GlobalImportCount() uint32 { return r.globalImportCount }

func parseIndex(idx ItemIndex, importCount uint32) ItemIndex {
	switch idx.Kind {
	case IndexSpaceKind:
		if idx.Value < importCount {
			return External(idx.Value)
		}
		return Internal(idx.Value - importCount)
	default:
		return idx
	}
}

func (r *ImportsResolver) ParseFunctionIndex(idx ItemIndex) ItemIndex {
	return parseIndex(idx, r.funcImportCount)
}

func (r *ImportsResolver) ParseTableIndex(idx ItemIndex) ItemIndex {
	return parseIndex(idx, r.tableImportCount)
}

func (r *ImportsResolver) ParseMemoryIndex(idx ItemIndex) ItemIndex {
	return parseIndex(idx, r.memImportCount)
}

func (r *ImportsResolver) ParseGlobalIndex(idx ItemIndex) ItemIndex {
	return parseIndex(idx, r.globalImportCount)
}

// resolveImportedFunc binds a Function import: looks up the exporting
// module, fetches its export of the given field, requires it is a
// function, and requires the importer's declared signature (from its own
// type table) structurally equals the exporter's.
func resolveImportedFunc(store *Store, externals map[string]*ModuleInstance, importerTypes []*FunctionType, im Import) (resolvedFunc, error) {
	exporter, err := store.Resolve(externals, im.Module)
	if err != nil {
		return resolvedFunc{}, err
	}
	kind, index, err := exporter.exportEntryInternal(im.Field)
	if err != nil {
		return resolvedFunc{}, err
	}
	if kind != ImportFunction {
		return resolvedFunc{}, validationErr("import %s.%s is not a function", im.Module, im.Field)
	}
	exported := exporter.funcs[index]
	wanted := importerTypes[im.FuncTypeIndex]
	if !wanted.Equal(exported.Inst.Type()) {
		return resolvedFunc{}, validationErr("import %s.%s signature mismatch: want %v, got %v", im.Module, im.Field, wanted, exported.Inst.Type())
	}
	return exported, nil
}

// resolveImportedGlobal binds a Global import: the importer declares
// immutable type T; the exporter's global must be immutable with type T.
func resolveImportedGlobal(store *Store, externals map[string]*ModuleInstance, im Import) (resolvedGlobal, error) {
	exporter, err := store.Resolve(externals, im.Module)
	if err != nil {
		return resolvedGlobal{}, err
	}
	kind, index, err := exporter.exportEntryInternal(im.Field)
	if err != nil {
		return resolvedGlobal{}, err
	}
	if kind != ImportGlobal {
		return resolvedGlobal{}, validationErr("import %s.%s is not a global", im.Module, im.Field)
	}
	exported := exporter.globals[index]
	if exported.Inst.IsMutable() {
		return resolvedGlobal{}, validationErr("import %s.%s: cannot import a mutable global", im.Module, im.Field)
	}
	if exported.Inst.Type() != im.Global.Type {
		return resolvedGlobal{}, validationErr("import %s.%s type mismatch: want %s, got %s", im.Module, im.Field, im.Global.Type, exported.Inst.Type())
	}
	return exported, nil
}

// resolveImportedMemory binds a Memory import: exporter.initial >=
// importer.initial; if importer declares a maximum, exporter must declare
// one <= importer's.
func resolveImportedMemory(store *Store, externals map[string]*ModuleInstance, im Import) (resolvedMem, error) {
	exporter, err := store.Resolve(externals, im.Module)
	if err != nil {
		return resolvedMem{}, err
	}
	kind, index, err := exporter.exportEntryInternal(im.Field)
	if err != nil {
		return resolvedMem{}, err
	}
	if kind != ImportMemory {
		return resolvedMem{}, validationErr("import %s.%s is not a memory", im.Module, im.Field)
	}
	exported := exporter.mems[index]
	if exported.Inst.SizePages() < im.Memory.Initial {
		return resolvedMem{}, validationErr("import %s.%s: exporter initial %d is less than required %d", im.Module, im.Field, exported.Inst.SizePages(), im.Memory.Initial)
	}
	if im.Memory.Maximum != nil {
		expMax := exported.Inst.Maximum()
		if expMax == nil || *expMax > *im.Memory.Maximum {
			return resolvedMem{}, validationErr("import %s.%s: exporter maximum exceeds required %d", im.Module, im.Field, *im.Memory.Maximum)
		}
	}
	return exported, nil
}

// resolveImportedTable binds a Table import with the same shape of check
// as memory, over element counts instead of byte pages.
func resolveImportedTable(store *Store, externals map[string]*ModuleInstance, im Import) (resolvedTable, error) {
	exporter, err := store.Resolve(externals, im.Module)
	if err != nil {
		return resolvedTable{}, err
	}
	kind, index, err := exporter.exportEntryInternal(im.Field)
	if err != nil {
		return resolvedTable{}, err
	}
	if kind != ImportTable {
		return resolvedTable{}, validationErr("import %s.%s is not a table", im.Module, im.Field)
	}
	exported := exporter.tables[index]
	if exported.Inst.Len() < im.Table.Initial {
		return resolvedTable{}, validationErr("import %s.%s: exporter initial %d is less than required %d", im.Module, im.Field, exported.Inst.Len(), im.Table.Initial)
	}
	if im.Table.Maximum != nil {
		expMax := exported.Inst.Maximum()
		if expMax == nil || *expMax > *im.Table.Maximum {
			return resolvedTable{}, validationErr("import %s.%s: exporter maximum exceeds required %d", im.Module, im.Field, *im.Table.Maximum)
		}
	}
	return exported, nil
}
