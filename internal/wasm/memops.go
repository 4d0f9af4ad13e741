package wasm

// This file implements the load/store opcode family. Every access computes
// an effective address (base + static offset, trapping on overflow) before
// delegating to MemoryInstance.Get/Set, which performs the actual bounds
// check (spec.md §4.5 "Memory instructions").

func isLoadStore(op Op) bool {
	switch op {
	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		return true
	default:
		return false
	}
}

func effectiveAddress(base uint32, offset uint32) (uint32, error) {
	addr := uint64(base) + uint64(offset)
	if addr > uint64(^uint32(0)) {
		return 0, memoryErr("effective address %d overflows 32 bits", addr)
	}
	return uint32(addr), nil
}

func execMemoryOp(ctx *FunctionContext, instr Instruction) error {
	mem, err := ctx.Module.Memory(IndexSpace(0))
	if err != nil {
		return err
	}

	if isStoreOp(instr.Op) {
		return execStore(ctx, mem, instr)
	}
	return execLoad(ctx, mem, instr)
}

func isStoreOp(op Op) bool {
	switch op {
	case OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		return true
	default:
		return false
	}
}

func execLoad(ctx *FunctionContext, mem *MemoryInstance, instr Instruction) error {
	base, err := PopAs[uint32](ctx.ValueStack)
	if err != nil {
		return err
	}
	addr, err := effectiveAddress(base, instr.Offset)
	if err != nil {
		return err
	}

	switch instr.Op {
	case OpI32Load:
		b, err := mem.Get(addr, 4)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(DecodeLittleEndian(ValueTypeI32, b))
	case OpF32Load:
		b, err := mem.Get(addr, 4)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(DecodeLittleEndian(ValueTypeF32, b))
	case OpI64Load:
		b, err := mem.Get(addr, 8)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(DecodeLittleEndian(ValueTypeI64, b))
	case OpF64Load:
		b, err := mem.Get(addr, 8)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(DecodeLittleEndian(ValueTypeF64, b))

	case OpI32Load8S:
		b, err := mem.Get(addr, 1)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I32(int32(int8(b[0]))))
	case OpI32Load8U:
		b, err := mem.Get(addr, 1)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I32(int32(b[0])))
	case OpI32Load16S:
		b, err := mem.Get(addr, 2)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I32(int32(int16(getU32(pad(b, 4))))))
	case OpI32Load16U:
		b, err := mem.Get(addr, 2)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I32(int32(uint16(getU32(pad(b, 4))))))

	case OpI64Load8S:
		b, err := mem.Get(addr, 1)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I64(int64(int8(b[0]))))
	case OpI64Load8U:
		b, err := mem.Get(addr, 1)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I64(int64(b[0])))
	case OpI64Load16S:
		b, err := mem.Get(addr, 2)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I64(int64(int16(getU32(pad(b, 4))))))
	case OpI64Load16U:
		b, err := mem.Get(addr, 2)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I64(int64(uint16(getU32(pad(b, 4))))))
	case OpI64Load32S:
		b, err := mem.Get(addr, 4)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I64(int64(int32(getU32(b)))))
	case OpI64Load32U:
		b, err := mem.Get(addr, 4)
		if err != nil {
			return err
		}
		return ctx.ValueStack.Push(I64(int64(getU32(b))))

	default:
		return validationErr("unhandled load opcode %v", instr.Op)
	}
}

// pad right-pads b with zero bytes up to n, used to reuse getU32 for
// narrower little-endian reads.
func pad(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

func execStore(ctx *FunctionContext, mem *MemoryInstance, instr Instruction) error {
	v, err := ctx.ValueStack.Pop()
	if err != nil {
		return err
	}
	base, err := PopAs[uint32](ctx.ValueStack)
	if err != nil {
		return err
	}
	addr, err := effectiveAddress(base, instr.Offset)
	if err != nil {
		return err
	}

	switch instr.Op {
	case OpI32Store:
		return mem.Set(addr, EncodeLittleEndian(ValueTypeI32, v))
	case OpF32Store:
		return mem.Set(addr, EncodeLittleEndian(ValueTypeF32, v))
	case OpI64Store:
		return mem.Set(addr, EncodeLittleEndian(ValueTypeI64, v))
	case OpF64Store:
		return mem.Set(addr, EncodeLittleEndian(ValueTypeF64, v))
	case OpI32Store8:
		return mem.Set(addr, []byte{byte(v.U32())})
	case OpI32Store16:
		scratch := make([]byte, 4)
		putU32(scratch, v.U32())
		return mem.Set(addr, scratch[:2])
	case OpI64Store8:
		return mem.Set(addr, []byte{byte(v.U64())})
	case OpI64Store16:
		scratch := make([]byte, 4)
		putU32(scratch, uint32(v.U64()))
		return mem.Set(addr, scratch[:2])
	case OpI64Store32:
		b := make([]byte, 4)
		putU32(b, uint32(v.U64()))
		return mem.Set(addr, b)
	default:
		return validationErr("unhandled store opcode %v", instr.Op)
	}
}
