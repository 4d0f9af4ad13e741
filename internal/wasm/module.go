package wasm

// This file defines the pre-parsed module shape the interpreter core
// consumes. Producing these structures from the WebAssembly binary format
// is the out-of-scope parser's job (spec.md §1); everything downstream of
// here only ever sees already-decoded sections.

// FunctionType is (params, optional result). Equality is structural.
type FunctionType struct {
	Params []ValueType
	Result *ValueType
}

// Equal reports structural equality on both fields, used to check import
// signature matches and call_indirect type checks.
func (f *FunctionType) Equal(other *FunctionType) bool {
	if f == other {
		return true
	}
	if f == nil || other == nil {
		return false
	}
	if len(f.Params) != len(other.Params) {
		return false
	}
	for i, p := range f.Params {
		if p != other.Params[i] {
			return false
		}
	}
	if (f.Result == nil) != (other.Result == nil) {
		return false
	}
	if f.Result != nil && *f.Result != *other.Result {
		return false
	}
	return true
}

func (f *FunctionType) HasResult() bool { return f.Result != nil }

// BlockType converts a function's return shape into the BlockType used
// to push its synthetic Function frame.
func (f *FunctionType) BlockType() BlockType {
	if f.Result == nil {
		return NoResult
	}
	return ValueResult(*f.Result)
}

// ImportKind tags which namespace an import or export entry belongs to.
type ImportKind byte

const (
	ImportFunction ImportKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
)

type TableType struct {
	Initial uint32
	Maximum *uint32
}

type MemoryType struct {
	Initial uint32
	Maximum *uint32
}

type GlobalType struct {
	Type    ValueType
	Mutable bool
}

// Import is one entry of the import section: (module, field, kind,
// descriptor) per spec.md §4.2.
type Import struct {
	Module string
	Field  string
	Kind   ImportKind

	FuncTypeIndex uint32 // ImportFunction
	Table         TableType
	Memory        MemoryType
	Global        GlobalType
}

// ExportKind reuses ImportKind's namespace tags.
type ExportKind = ImportKind

const (
	ExportFunction = ImportFunction
	ExportTable    = ImportTable
	ExportMemory   = ImportMemory
	ExportGlobal   = ImportGlobal
)

// Export is one entry of the export section: a name plus a kind+index
// into the relevant index space.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// LocalDecl is a (type, count) run from a function body's locals vector.
type LocalDecl struct {
	Type  ValueType
	Count uint32
}

// FuncBody is a function's bytecode plus its declared locals and the
// precomputed label map the validator produces (spec.md §3, "the only
// metadata the interpreter needs to execute structured control flow in
// O(1) per branch").
type FuncBody struct {
	Locals []LocalDecl
	Code   []Instruction

	// Labels maps the position of a Block/Loop/If opcode to the
	// position of its matching End. For If, ElsePos additionally records
	// the position of the matching Else, if any.
	Labels  map[int]int
	ElsePos map[int]int
}

// GlobalDecl is a defined (not imported) global: its type plus a constant
// initializer expression (spec.md §4.4 step 3).
type GlobalDecl struct {
	Type GlobalType
	Init []Instruction
}

// ElementSegment fills a table with function indices (combined,
// imports-first index space) starting at a constant-expression offset.
type ElementSegment struct {
	TableIndex  uint32
	Offset      []Instruction
	FuncIndices []uint32
}

// DataSegment copies raw bytes into a memory starting at a
// constant-expression offset.
type DataSegment struct {
	MemoryIndex uint32
	Offset      []Instruction
	Bytes       []byte
}

// Module is the full pre-parsed module: sections of types, imports,
// functions (by type-section index, matched 1:1 with Code), tables,
// memories, globals, exports, elements, data and an optional start
// function index.
type Module struct {
	Types []*FunctionType

	Imports []Import

	// FuncTypeIndices[i] is the index into Types for the i'th internally
	// defined function; Code[i] is its body. Both are indexed from 0 in
	// the *internal* function namespace (imports are not included).
	FuncTypeIndices []uint32
	Code            []*FuncBody

	Tables   []TableType
	Memories []MemoryType
	Globals  []GlobalDecl

	Exports []Export
	Start   *uint32

	Elements []ElementSegment
	Data     []DataSegment
}

// ItemIndexKind distinguishes the three index forms spec.md §3 describes
// for every namespace.
type ItemIndexKind byte

const (
	// IndexSpaceKind: raw index into the combined (imports-first) index
	// space for a namespace.
	IndexSpaceKind ItemIndexKind = iota
	// InternalKind: index into the namespace's internally-defined vector
	// only (imports excluded).
	InternalKind
	// ExternalKind: index into the import section entries of that kind
	// only.
	ExternalKind
)

// ItemIndex is a tagged index into one of functions/tables/memories/
// globals, in one of the three forms above.
type ItemIndex struct {
	Kind  ItemIndexKind
	Value uint32
}

func IndexSpace(v uint32) ItemIndex { return ItemIndex{Kind: IndexSpaceKind, Value: v} }
func Internal(v uint32) ItemIndex   { return ItemIndex{Kind: InternalKind, Value: v} }
func External(v uint32) ItemIndex   { return ItemIndex{Kind: ExternalKind, Value: v} }
