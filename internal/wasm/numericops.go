package wasm

// This file implements every opcode that is neither control flow, a
// variable access, nor a load/store: comparisons, arithmetic, bitwise
// operators, and the numeric conversions/reinterprets. It is a long flat
// switch by design, mirroring how runner.rs dispatches one run_* method
// per opcode rather than grouping by a shared interface.

func isNumeric(op Op) bool {
	return op >= OpI32Eqz && op < opEnd
}

func execNumericOp(ctx *FunctionContext, op Op) error {
	s := ctx.ValueStack
	switch op {

	// i32 comparisons ----------------------------------------------------
	case OpI32Eqz:
		v, err := PopAs[int32](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(v == 0))
	case OpI32Eq, OpI32Ne, OpI32LtS, OpI32GtS, OpI32LeS, OpI32GeS:
		a, b, err := PopPairAs[int32](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(compareSigned(op, a, b)))
	case OpI32LtU, OpI32GtU, OpI32LeU, OpI32GeU:
		a, b, err := PopPairAs[uint32](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(compareUnsigned(op, a, b)))

	// i64 comparisons ----------------------------------------------------
	case OpI64Eqz:
		v, err := PopAs[int64](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(v == 0))
	case OpI64Eq, OpI64Ne, OpI64LtS, OpI64GtS, OpI64LeS, OpI64GeS:
		a, b, err := PopPairAs[int64](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(compareSigned(op, a, b)))
	case OpI64LtU, OpI64GtU, OpI64LeU, OpI64GeU:
		a, b, err := PopPairAs[uint64](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(compareUnsigned(op, a, b)))

	// float comparisons ---------------------------------------------------
	case OpF32Eq, OpF32Ne, OpF32Lt, OpF32Gt, OpF32Le, OpF32Ge:
		a, b, err := PopPairAs[float32](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(compareFloat(op, float64(a), float64(b))))
	case OpF64Eq, OpF64Ne, OpF64Lt, OpF64Gt, OpF64Le, OpF64Ge:
		a, b, err := PopPairAs[float64](s)
		if err != nil {
			return err
		}
		return s.Push(BoolToI32(compareFloat(op, a, b)))

	// i32 arithmetic / bitwise --------------------------------------------
	case OpI32Clz:
		return unaryOp[int32](s, func(v int32) int32 { return clz(v) })
	case OpI32Ctz:
		return unaryOp[int32](s, func(v int32) int32 { return ctz(v) })
	case OpI32Popcnt:
		return unaryOp[int32](s, func(v int32) int32 { return popcnt(v) })
	case OpI32Add:
		return binaryOp[int32](s, func(a, b int32) int32 { return a + b })
	case OpI32Sub:
		return binaryOp[int32](s, func(a, b int32) int32 { return a - b })
	case OpI32Mul:
		return binaryOp[int32](s, func(a, b int32) int32 { return a * b })
	case OpI32DivS:
		return binaryOpErr[int32](s, divS[int32])
	case OpI32DivU:
		return binaryOpErrU[uint32](s, divU[uint32])
	case OpI32RemS:
		return binaryOpErr[int32](s, remS[int32])
	case OpI32RemU:
		return binaryOpErrU[uint32](s, remU[uint32])
	case OpI32And:
		return binaryOp[int32](s, func(a, b int32) int32 { return a & b })
	case OpI32Or:
		return binaryOp[int32](s, func(a, b int32) int32 { return a | b })
	case OpI32Xor:
		return binaryOp[int32](s, func(a, b int32) int32 { return a ^ b })
	case OpI32Shl:
		return binaryOp[int32](s, func(a, b int32) int32 { return a << shiftAmount(b) })
	case OpI32ShrS:
		return binaryOp[int32](s, func(a, b int32) int32 { return a >> shiftAmount(b) })
	case OpI32ShrU:
		return binaryOp[uint32](s, func(a, b uint32) uint32 { return a >> shiftAmount(b) })
	case OpI32Rotl:
		return binaryOp[int32](s, func(a, b int32) int32 { return rotl(a, uint32(b)) })
	case OpI32Rotr:
		return binaryOp[int32](s, func(a, b int32) int32 { return rotr(a, uint32(b)) })

	// i64 arithmetic / bitwise --------------------------------------------
	case OpI64Clz:
		return unaryOp[int64](s, func(v int64) int64 { return clz(v) })
	case OpI64Ctz:
		return unaryOp[int64](s, func(v int64) int64 { return ctz(v) })
	case OpI64Popcnt:
		return unaryOp[int64](s, func(v int64) int64 { return popcnt(v) })
	case OpI64Add:
		return binaryOp[int64](s, func(a, b int64) int64 { return a + b })
	case OpI64Sub:
		return binaryOp[int64](s, func(a, b int64) int64 { return a - b })
	case OpI64Mul:
		return binaryOp[int64](s, func(a, b int64) int64 { return a * b })
	case OpI64DivS:
		return binaryOpErr[int64](s, divS[int64])
	case OpI64DivU:
		return binaryOpErrU[uint64](s, divU[uint64])
	case OpI64RemS:
		return binaryOpErr[int64](s, remS[int64])
	case OpI64RemU:
		return binaryOpErrU[uint64](s, remU[uint64])
	case OpI64And:
		return binaryOp[int64](s, func(a, b int64) int64 { return a & b })
	case OpI64Or:
		return binaryOp[int64](s, func(a, b int64) int64 { return a | b })
	case OpI64Xor:
		return binaryOp[int64](s, func(a, b int64) int64 { return a ^ b })
	case OpI64Shl:
		return binaryOp[int64](s, func(a, b int64) int64 { return a << shiftAmount(b) })
	case OpI64ShrS:
		return binaryOp[int64](s, func(a, b int64) int64 { return a >> shiftAmount(b) })
	case OpI64ShrU:
		return binaryOp[uint64](s, func(a, b uint64) uint64 { return a >> shiftAmount(b) })
	case OpI64Rotl:
		return binaryOp[int64](s, func(a, b int64) int64 { return rotl(a, uint32(b)) })
	case OpI64Rotr:
		return binaryOp[int64](s, func(a, b int64) int64 { return rotr(a, uint32(b)) })

	// f32 arithmetic -------------------------------------------------------
	case OpF32Abs:
		return unaryOp[float32](s, func(v float32) float32 {
			if v < 0 {
				return -v
			}
			return v
		})
	case OpF32Neg:
		return unaryOp[float32](s, func(v float32) float32 { return -v })
	case OpF32Ceil:
		return unaryOpF32(s, ceilF32)
	case OpF32Floor:
		return unaryOpF32(s, floorF32)
	case OpF32Trunc:
		return unaryOpF32(s, truncF32)
	case OpF32Nearest:
		return unaryOp[float32](s, fnearest32)
	case OpF32Sqrt:
		return unaryOpF32(s, sqrtF32)
	case OpF32Add:
		return binaryOp[float32](s, func(a, b float32) float32 { return a + b })
	case OpF32Sub:
		return binaryOp[float32](s, func(a, b float32) float32 { return a - b })
	case OpF32Mul:
		return binaryOp[float32](s, func(a, b float32) float32 { return a * b })
	case OpF32Div:
		return binaryOp[float32](s, func(a, b float32) float32 { return a / b })
	case OpF32Min:
		return binaryOp[float32](s, fmin32)
	case OpF32Max:
		return binaryOp[float32](s, fmax32)
	case OpF32Copysign:
		return binaryOp[float32](s, fcopysign32)

	// f64 arithmetic -------------------------------------------------------
	case OpF64Abs:
		return unaryOp[float64](s, func(v float64) float64 {
			if v < 0 {
				return -v
			}
			return v
		})
	case OpF64Neg:
		return unaryOp[float64](s, func(v float64) float64 { return -v })
	case OpF64Ceil:
		return unaryOpF64(s, ceilF64)
	case OpF64Floor:
		return unaryOpF64(s, floorF64)
	case OpF64Trunc:
		return unaryOpF64(s, truncF64)
	case OpF64Nearest:
		return unaryOp[float64](s, fnearest64)
	case OpF64Sqrt:
		return unaryOpF64(s, sqrtF64)
	case OpF64Add:
		return binaryOp[float64](s, func(a, b float64) float64 { return a + b })
	case OpF64Sub:
		return binaryOp[float64](s, func(a, b float64) float64 { return a - b })
	case OpF64Mul:
		return binaryOp[float64](s, func(a, b float64) float64 { return a * b })
	case OpF64Div:
		return binaryOp[float64](s, func(a, b float64) float64 { return a / b })
	case OpF64Min:
		return binaryOp[float64](s, fmin64)
	case OpF64Max:
		return binaryOp[float64](s, fmax64)
	case OpF64Copysign:
		return binaryOp[float64](s, fcopysign64)

	// conversions -----------------------------------------------------------
	case OpI32WrapI64:
		v, err := PopAs[int64](s)
		if err != nil {
			return err
		}
		return s.Push(I32(wrapI64ToI32(v)))
	case OpI32TruncSF32:
		return convertErr[float32, int32](s, truncF32ToI32S, I32)
	case OpI32TruncUF32:
		return convertErr[float32, int32](s, truncF32ToI32U, I32)
	case OpI32TruncSF64:
		return convertErr[float64, int32](s, truncF64ToI32S, I32)
	case OpI32TruncUF64:
		return convertErr[float64, int32](s, truncF64ToI32U, I32)
	case OpI64ExtendSI32:
		v, err := PopAs[int32](s)
		if err != nil {
			return err
		}
		return s.Push(I64(extendI32SToI64(v)))
	case OpI64ExtendUI32:
		v, err := PopAs[int32](s)
		if err != nil {
			return err
		}
		return s.Push(I64(extendI32UToI64(v)))
	case OpI64TruncSF32:
		return convertErr[float32, int64](s, truncF32ToI64S, I64)
	case OpI64TruncUF32:
		return convertErr[float32, int64](s, truncF32ToI64U, I64)
	case OpI64TruncSF64:
		return convertErr[float64, int64](s, truncF64ToI64S, I64)
	case OpI64TruncUF64:
		return convertErr[float64, int64](s, truncF64ToI64U, I64)
	case OpF32ConvertSI32:
		return convert[int32, float32](s, convertI32SToF32, F32)
	case OpF32ConvertUI32:
		return convert[int32, float32](s, convertI32UToF32, F32)
	case OpF32ConvertSI64:
		return convert[int64, float32](s, convertI64SToF32, F32)
	case OpF32ConvertUI64:
		return convert[int64, float32](s, convertI64UToF32, F32)
	case OpF32DemoteF64:
		return convert[float64, float32](s, demoteF64ToF32, F32)
	case OpF64ConvertSI32:
		return convert[int32, float64](s, convertI32SToF64, F64)
	case OpF64ConvertUI32:
		return convert[int32, float64](s, convertI32UToF64, F64)
	case OpF64ConvertSI64:
		return convert[int64, float64](s, convertI64SToF64, F64)
	case OpF64ConvertUI64:
		return convert[int64, float64](s, convertI64UToF64, F64)
	case OpF64PromoteF32:
		return convert[float32, float64](s, promoteF32ToF64, F64)

	case OpI32ReinterpretF32:
		return convert[float32, int32](s, reinterpretF32ToI32, I32)
	case OpI64ReinterpretF64:
		return convert[float64, int64](s, reinterpretF64ToI64, I64)
	case OpF32ReinterpretI32:
		return convert[int32, float32](s, reinterpretI32ToF32, F32)
	case OpF64ReinterpretI64:
		return convert[int64, float64](s, reinterpretI64ToF64, F64)

	default:
		return validationErr("unhandled numeric opcode %v", op)
	}
}

func unaryOp[T Number](s *ValueStack, f func(T) T) error {
	v, err := PopAs[T](s)
	if err != nil {
		return err
	}
	return PushNumber(s, f(v))
}

func binaryOp[T Number](s *ValueStack, f func(a, b T) T) error {
	a, b, err := PopPairAs[T](s)
	if err != nil {
		return err
	}
	return PushNumber(s, f(a, b))
}

func binaryOpErr[T int32 | int64](s *ValueStack, f func(a, b T) (T, error)) error {
	a, b, err := PopPairAs[T](s)
	if err != nil {
		return err
	}
	r, err := f(a, b)
	if err != nil {
		return err
	}
	return PushNumber(s, r)
}

func binaryOpErrU[T uint32 | uint64](s *ValueStack, f func(a, b T) (T, error)) error {
	a, b, err := PopPairAs[T](s)
	if err != nil {
		return err
	}
	r, err := f(a, b)
	if err != nil {
		return err
	}
	return PushNumber(s, r)
}

func unaryOpF32(s *ValueStack, f func(float32) float32) error { return unaryOp[float32](s, f) }
func unaryOpF64(s *ValueStack, f func(float64) float64) error { return unaryOp[float64](s, f) }

// convert pops a value of source numeric type In, applies f, and pushes
// the RuntimeValue built by wrap.
func convert[In, Out Number](s *ValueStack, f func(In) Out, wrap func(Out) RuntimeValue) error {
	v, err := PopAs[In](s)
	if err != nil {
		return err
	}
	return s.Push(wrap(f(v)))
}

// convertErr is convert's trapping variant, used by the truncate family.
func convertErr[In, Out Number](s *ValueStack, f func(In) (Out, error), wrap func(Out) RuntimeValue) error {
	v, err := PopAs[In](s)
	if err != nil {
		return err
	}
	r, err := f(v)
	if err != nil {
		return err
	}
	return s.Push(wrap(r))
}

func compareSigned[T int32 | int64](op Op, a, b T) bool {
	switch op {
	case OpI32Eq, OpI64Eq:
		return a == b
	case OpI32Ne, OpI64Ne:
		return a != b
	case OpI32LtS, OpI64LtS:
		return a < b
	case OpI32GtS, OpI64GtS:
		return a > b
	case OpI32LeS, OpI64LeS:
		return a <= b
	case OpI32GeS, OpI64GeS:
		return a >= b
	default:
		return false
	}
}

func compareUnsigned[T uint32 | uint64](op Op, a, b T) bool {
	switch op {
	case OpI32LtU, OpI64LtU:
		return a < b
	case OpI32GtU, OpI64GtU:
		return a > b
	case OpI32LeU, OpI64LeU:
		return a <= b
	case OpI32GeU, OpI64GeU:
		return a >= b
	default:
		return false
	}
}

func compareFloat(op Op, a, b float64) bool {
	switch op {
	case OpF32Eq, OpF64Eq:
		return a == b
	case OpF32Ne, OpF64Ne:
		return a != b
	case OpF32Lt, OpF64Lt:
		return a < b
	case OpF32Gt, OpF64Gt:
		return a > b
	case OpF32Le, OpF64Le:
		return a <= b
	case OpF32Ge, OpF64Ge:
		return a >= b
	default:
		return false
	}
}
