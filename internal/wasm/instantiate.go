package wasm

import "github.com/sirupsen/logrus"

// InstantiateOptions carries the caller-tunable knobs Instantiate needs,
// translated by the outer package from its fluent Config (spec.md §4.7)
// so this package never imports back up to it.
type InstantiateOptions struct {
	Limits                Limits
	CheckExportUniqueness bool
	BlessedModules        map[string]bool
	Logger                logrus.FieldLogger
}

// Instantiate runs the full module instantiation pipeline described by
// spec.md §4.4: bind imports, allocate owned memories/tables/globals,
// cross-check the MVP's at-most-one-memory/table rule, check export
// uniqueness and exported-global immutability, validate every function
// body (producing their label maps along the way), apply data and
// element segments, and finally invoke the start function if declared.
func Instantiate(store *Store, name string, mod *Module, externals map[string]*ModuleInstance, opts InstantiateOptions) (*ModuleInstance, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("module", name)

	imports := NewImportsResolver(mod.Imports)

	log.Debug("resolving imports")
	funcsImported, tablesImported, memsImported, globalsImported, err := resolveAllImports(store, mod, externals, opts.BlessedModules, log)
	if err != nil {
		return nil, err
	}

	mi := &ModuleInstance{
		store:   store,
		mod:     mod,
		name:    name,
		limits:  opts.Limits,
		log:     log,
		imports: imports,
	}

	log.Debug("binding functions")
	funcs := append([]resolvedFunc{}, funcsImported...)
	for i, typeIdx := range mod.FuncTypeIndices {
		if int(typeIdx) >= len(mod.Types) {
			return nil, validationErr("function %d references type index %d out of range", i, typeIdx)
		}
		sig := mod.Types[typeIdx]
		df := &DefinedFunc{Module: mi, Index: uint32(i), Sig: sig}
		funcs = append(funcs, store.mintFunc(df))
	}
	mi.funcs = funcs

	log.Debug("allocating tables")
	tables := append([]resolvedTable{}, tablesImported...)
	for _, tt := range mod.Tables {
		inst, err := NewTableInstance(tt.Initial, tt.Maximum)
		if err != nil {
			return nil, err
		}
		tables = append(tables, store.mintTable(inst))
	}
	mi.tables = tables

	log.Debug("allocating memories")
	mems := append([]resolvedMem{}, memsImported...)
	for _, mt := range mod.Memories {
		inst, err := NewMemoryInstance(mt.Initial, mt.Maximum)
		if err != nil {
			return nil, err
		}
		mems = append(mems, store.mintMem(inst))
	}
	mi.mems = mems

	if len(mi.tables) > 1 {
		return nil, validationErr("module declares %d tables; WebAssembly 1.0 allows at most one", len(mi.tables))
	}
	if len(mi.mems) > 1 {
		return nil, validationErr("module declares %d memories; WebAssembly 1.0 allows at most one", len(mi.mems))
	}

	log.Debug("evaluating global initializers")
	mi.globals = append([]resolvedGlobal{}, globalsImported...)
	for i, gd := range mod.Globals {
		val, err := evalConstExpr(mi, gd.Init)
		if err != nil {
			return nil, wrapErr(KindInitialization, err, "evaluating initializer for global %d", i)
		}
		vi, err := NewVariableInstance(gd.Type.Type, gd.Type.Mutable, val)
		if err != nil {
			return nil, err
		}
		mi.globals = append(mi.globals, store.mintGlobal(vi))
	}

	if err := buildExports(mi, opts.CheckExportUniqueness); err != nil {
		return nil, err
	}

	if mod.Start != nil {
		if err := checkStartSignature(mi, *mod.Start); err != nil {
			return nil, err
		}
	}

	log.Debug("validating function bodies")
	if err := validateAllFunctions(mi, opts.Limits); err != nil {
		return nil, err
	}

	log.Debug("applying data segments")
	if err := applyDataSegments(mi, mod.Data); err != nil {
		return nil, err
	}

	log.Debug("applying element segments")
	if err := applyElementSegments(mi, mod.Elements); err != nil {
		return nil, err
	}

	store.Register(name, mi)

	if mod.Start != nil {
		log.Debug("invoking start function")
		if _, err := mi.ExecuteMain(externals, nil); err != nil {
			return nil, err
		}
	}

	return mi, nil
}

func resolveAllImports(store *Store, mod *Module, externals map[string]*ModuleInstance, blessed map[string]bool, log logrus.FieldLogger) ([]resolvedFunc, []resolvedTable, []resolvedMem, []resolvedGlobal, error) {
	var funcs []resolvedFunc
	var tables []resolvedTable
	var mems []resolvedMem
	var globals []resolvedGlobal

	for _, im := range mod.Imports {
		if len(blessed) > 0 && !blessed[im.Module] {
			log.WithField("from", im.Module).Debug("import module is not in the blessed allow-list")
		}
		switch im.Kind {
		case ImportFunction:
			rf, err := resolveImportedFunc(store, externals, mod.Types, im)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			funcs = append(funcs, rf)
		case ImportTable:
			rt, err := resolveImportedTable(store, externals, im)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			tables = append(tables, rt)
		case ImportMemory:
			rm, err := resolveImportedMemory(store, externals, im)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			mems = append(mems, rm)
		case ImportGlobal:
			rg, err := resolveImportedGlobal(store, externals, im)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			globals = append(globals, rg)
		}
	}
	return funcs, tables, mems, globals, nil
}

// evalConstExpr evaluates a constant expression (a single numeric const,
// or a reference to an already-bound global, followed by End) as used by
// global initializers and segment offsets (spec.md §4.4 step 3).
func evalConstExpr(mi *ModuleInstance, expr []Instruction) (RuntimeValue, error) {
	var result RuntimeValue
	set := false
	for _, instr := range expr {
		switch instr.Op {
		case OpI32Const, OpI64Const, OpF32Const, OpF64Const:
			result = instr.ConstValue()
			set = true
		case OpGetGlobal:
			g, err := mi.Global(IndexSpace(instr.Index))
			if err != nil {
				return RuntimeValue{}, err
			}
			result = g.Get()
			set = true
		case OpEnd:
			// terminator, nothing to do
		default:
			return RuntimeValue{}, initializationErr("instruction %v is not valid in a constant expression", instr.Op)
		}
	}
	if !set {
		return RuntimeValue{}, initializationErr("empty constant expression")
	}
	return result, nil
}

func buildExports(mi *ModuleInstance, checkUniqueness bool) error {
	mi.exportByName = make(map[string]Export, len(mi.mod.Exports))
	for _, e := range mi.mod.Exports {
		if checkUniqueness {
			if _, dup := mi.exportByName[e.Name]; dup {
				return validationErr("duplicate export name %q", e.Name)
			}
		}
		if e.Kind == ExportGlobal {
			g, err := mi.Global(IndexSpace(e.Index))
			if err != nil {
				return wrapErr(KindValidation, err, "export %q", e.Name)
			}
			if g.IsMutable() {
				return validationErr("export %q: exporting a mutable global is not allowed", e.Name)
			}
		}
		mi.exportByName[e.Name] = e
	}
	return nil
}

func checkStartSignature(mi *ModuleInstance, startIdx uint32) error {
	entry, err := mi.resolvedFuncAt(IndexSpace(startIdx))
	if err != nil {
		return wrapErr(KindValidation, err, "resolving start function")
	}
	sig := entry.Inst.Type()
	if len(sig.Params) != 0 || sig.HasResult() {
		return validationErr("start function must take no parameters and return no value, got %v", sig)
	}
	return nil
}

func validateAllFunctions(mi *ModuleInstance, limits Limits) error {
	v := NewValidator(limits.ValueStackLimit, limits.FrameStackLimit)

	globalTypes := make([]ValueType, len(mi.globals))
	for i, g := range mi.globals {
		globalTypes[i] = g.Inst.Type()
	}

	for i, typeIdx := range mi.mod.FuncTypeIndices {
		sig := mi.mod.Types[typeIdx]
		body := mi.mod.Code[i]
		if err := v.ValidateFunction(sig, body, mi.mod.Types, uint32(len(mi.funcs)), uint32(len(mi.tables)), uint32(len(mi.mems)), uint32(len(mi.globals)), globalTypes); err != nil {
			return wrapErr(KindValidation, err, "validating function %d", i)
		}
	}
	return nil
}

func applyDataSegments(mi *ModuleInstance, segments []DataSegment) error {
	type write struct {
		mem  *MemoryInstance
		addr uint32
		data []byte
	}
	writes := make([]write, 0, len(segments))
	for i, ds := range segments {
		mem, err := mi.Memory(IndexSpace(ds.MemoryIndex))
		if err != nil {
			return wrapErr(KindInitialization, err, "data segment %d", i)
		}
		offset, err := evalConstExpr(mi, ds.Offset)
		if err != nil {
			return wrapErr(KindInitialization, err, "data segment %d offset", i)
		}
		addr := offset.U32()
		if uint64(addr)+uint64(len(ds.Bytes)) > uint64(mem.SizePages())*PageSize {
			return initializationErr("data segment %d at offset %d with %d bytes overflows memory of %d pages", i, addr, len(ds.Bytes), mem.SizePages())
		}
		writes = append(writes, write{mem: mem, addr: addr, data: ds.Bytes})
	}
	for _, w := range writes {
		if err := w.mem.Set(w.addr, w.data); err != nil {
			return wrapErr(KindInitialization, err, "applying data segment")
		}
	}
	return nil
}

func applyElementSegments(mi *ModuleInstance, segments []ElementSegment) error {
	type write struct {
		table *TableInstance
		addr  uint32
		funcs []uint32
	}
	writes := make([]write, 0, len(segments))
	for i, es := range segments {
		table, err := mi.Table(IndexSpace(es.TableIndex))
		if err != nil {
			return wrapErr(KindInitialization, err, "element segment %d", i)
		}
		offset, err := evalConstExpr(mi, es.Offset)
		if err != nil {
			return wrapErr(KindInitialization, err, "element segment %d offset", i)
		}
		addr := offset.U32()
		if uint64(addr)+uint64(len(es.FuncIndices)) > uint64(table.Len()) {
			return initializationErr("element segment %d at offset %d with %d entries overflows table of length %d", i, addr, len(es.FuncIndices), table.Len())
		}
		for j, fi := range es.FuncIndices {
			if _, err := mi.resolvedFuncAt(IndexSpace(fi)); err != nil {
				return wrapErr(KindInitialization, err, "element segment %d entry %d references function index %d", i, j, fi)
			}
		}
		writes = append(writes, write{table: table, addr: addr, funcs: es.FuncIndices})
	}
	for _, w := range writes {
		if err := w.table.SetRaw(w.addr, w.funcs); err != nil {
			return wrapErr(KindInitialization, err, "applying element segment")
		}
	}
	return nil
}
