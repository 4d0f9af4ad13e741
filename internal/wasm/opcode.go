package wasm

// Op identifies one of the ~180 WebAssembly 1.0 opcodes the interpreter
// dispatches on. The exact numeric values are internal to this package
// (the binary encoding is the out-of-scope parser's concern); what matters
// here is that every opcode the validator accepts has a matching case in
// the interpreter's dispatch table.
type Op uint16

const (
	OpUnreachable Op = iota
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpBrTable
	OpReturn
	OpCall
	OpCallIndirect

	OpDrop
	OpSelect

	OpGetLocal
	OpSetLocal
	OpTeeLocal
	OpGetGlobal
	OpSetGlobal

	OpI32Load
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Load8S
	OpI32Load8U
	OpI32Load16S
	OpI32Load16U
	OpI64Load8S
	OpI64Load8U
	OpI64Load16S
	OpI64Load16U
	OpI64Load32S
	OpI64Load32U
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpI32Store8
	OpI32Store16
	OpI64Store8
	OpI64Store16
	OpI64Store32
	OpCurrentMemory
	OpGrowMemory

	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU

	OpI64Eqz
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU

	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge

	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge

	OpI32Clz
	OpI32Ctz
	OpI32Popcnt
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr

	OpI64Clz
	OpI64Ctz
	OpI64Popcnt
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr

	OpF32Abs
	OpF32Neg
	OpF32Ceil
	OpF32Floor
	OpF32Trunc
	OpF32Nearest
	OpF32Sqrt
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign

	OpF64Abs
	OpF64Neg
	OpF64Ceil
	OpF64Floor
	OpF64Trunc
	OpF64Nearest
	OpF64Sqrt
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign

	OpI32WrapI64
	OpI32TruncSF32
	OpI32TruncUF32
	OpI32TruncSF64
	OpI32TruncUF64
	OpI64ExtendSI32
	OpI64ExtendUI32
	OpI64TruncSF32
	OpI64TruncUF32
	OpI64TruncSF64
	OpI64TruncUF64
	OpF32ConvertSI32
	OpF32ConvertUI32
	OpF32ConvertSI64
	OpF32ConvertUI64
	OpF32DemoteF64
	OpF64ConvertSI32
	OpF64ConvertUI32
	OpF64ConvertSI64
	OpF64ConvertUI64
	OpF64PromoteF32

	OpI32ReinterpretF32
	OpI64ReinterpretF64
	OpF32ReinterpretI32
	OpF64ReinterpretI64

	opEnd // sentinel, not a real opcode
)

// BlockType is the declared result arity of a block/loop/if/function: at
// most one value in WebAssembly 1.0, or none.
type BlockType struct {
	HasResult bool
	Result    ValueType
}

// NoResult is the BlockType carried by blocks with no declared result.
var NoResult = BlockType{}

// ValueResult builds a BlockType declaring a single result of type t.
func ValueResult(t ValueType) BlockType { return BlockType{HasResult: true, Result: t} }

// Arity returns 0 or 1, the number of values a block of this type leaves
// on the stack when it completes normally.
func (b BlockType) Arity() int {
	if b.HasResult {
		return 1
	}
	return 0
}

// Instruction is one decoded opcode plus whichever immediates it carries.
// Which fields are meaningful depends on Op; this flattened shape (rather
// than one Go type per opcode) mirrors how the pre-parsed module already
// represents bytecode arrays, and keeps the interpreter's dispatch a flat
// switch instead of a type-switch over ~180 types.
type Instruction struct {
	Op Op

	// Block/Loop/If
	BlockType BlockType

	// GetLocal/SetLocal/TeeLocal/GetGlobal/SetGlobal/Call/CallIndirect
	// /Br/BrIf: index or label depth.
	Index uint32

	// BrTable
	Targets []uint32
	Default uint32

	// memory ops
	Align  uint32
	Offset uint32

	// consts
	I32Val int32
	I64Val int64
	F32Val uint32 // raw IEEE-754 bits
	F64Val uint64 // raw IEEE-754 bits
}

func (i Instruction) ConstValue() RuntimeValue {
	switch i.Op {
	case OpI32Const:
		return I32(i.I32Val)
	case OpI64Const:
		return I64(i.I64Val)
	case OpF32Const:
		return RuntimeValue{typ: ValueTypeF32, bits: uint64(i.F32Val)}
	case OpF64Const:
		return RuntimeValue{typ: ValueTypeF64, bits: i.F64Val}
	default:
		return RuntimeValue{}
	}
}
