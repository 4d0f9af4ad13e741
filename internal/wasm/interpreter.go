package wasm

import "github.com/sirupsen/logrus"

// FunctionContext is the per-invocation state threaded through the
// dispatch loop: a private value stack, a private control-flow frame
// stack, the callee's locals, and whatever the callee needs to resolve
// calls and memory/table/global accesses against its own module.
//
// One FunctionContext is built per call (including nested calls); it is
// never reused or pooled. spec.md §4.5 deliberately leaves this as a
// single flat struct rather than a recursive Rust-style CallerContext.
type FunctionContext struct {
	Module     *ModuleInstance
	ReturnType BlockType
	Locals     []RuntimeValue
	ValueStack *ValueStack
	FrameStack *Stack[BlockFrame]
	Externals  map[string]*ModuleInstance
}

// BlockFrame is one entry of the control-flow stack: a Block, Loop or If
// currently executing. BranchPC is where execution resumes when `br`
// targets this frame (the loop's start for OpLoop, just past the matching
// End for OpBlock/OpIf); EndPC is the position of the matching End,
// precomputed by the validator into FuncBody.Labels.
type BlockFrame struct {
	Op          Op
	BlockType   BlockType
	BranchPC    int
	EndPC       int
	StackHeight int
}

func (ctx *FunctionContext) asCaller() *callerContext {
	return &callerContext{
		limits: Limits{
			ValueStackLimit: ctx.ValueStack.Limit(),
			FrameStackLimit: ctx.FrameStack.Limit(),
		},
		valueStack: ctx.ValueStack,
		externals:  ctx.Externals,
	}
}

var interpLog = logrus.WithField("component", "interpreter")

// runInterpreter executes body's bytecode to completion, returning the
// single result value the function's signature declares (or nil for a
// function with no result), or an *Error (a trap or a deeper structural
// failure) on abnormal exit.
func runInterpreter(ctx *FunctionContext, body *FuncBody) (*RuntimeValue, error) {
	code := body.Code
	pc := 0

	log := interpLog
	if entry, ok := ctx.Module.log.(*logrus.Entry); ok {
		log = entry.WithField("component", "interpreter")
	}

	for {
		if pc >= len(code) {
			return finishFunction(ctx)
		}
		instr := code[pc]

		if log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			log.WithFields(logrus.Fields{"op": instr.Op, "pc": pc}).Trace("dispatch")
		}

		switch instr.Op {
		case OpUnreachable:
			return nil, trapErr("unreachable instruction executed")

		case OpNop:
			pc++

		case OpBlock:
			end, ok := body.Labels[pc]
			if !ok {
				return nil, validationErr("block at pc %d has no matching end", pc)
			}
			if err := ctx.FrameStack.Push(BlockFrame{
				Op:          OpBlock,
				BlockType:   instr.BlockType,
				BranchPC:    end + 1,
				EndPC:       end,
				StackHeight: ctx.ValueStack.Len(),
			}); err != nil {
				return nil, err
			}
			pc++

		case OpLoop:
			end, ok := body.Labels[pc]
			if !ok {
				return nil, validationErr("loop at pc %d has no matching end", pc)
			}
			if err := ctx.FrameStack.Push(BlockFrame{
				Op:          OpLoop,
				BlockType:   instr.BlockType,
				BranchPC:    pc + 1,
				EndPC:       end,
				StackHeight: ctx.ValueStack.Len(),
			}); err != nil {
				return nil, err
			}
			pc++

		case OpIf:
			cond, err := PopAs[int32](ctx.ValueStack)
			if err != nil {
				return nil, err
			}
			end, ok := body.Labels[pc]
			if !ok {
				return nil, validationErr("if at pc %d has no matching end", pc)
			}
			elsePos, hasElse := body.ElsePos[pc]
			if err := ctx.FrameStack.Push(BlockFrame{
				Op:          OpIf,
				BlockType:   instr.BlockType,
				BranchPC:    end + 1,
				EndPC:       end,
				StackHeight: ctx.ValueStack.Len(),
			}); err != nil {
				return nil, err
			}
			switch {
			case cond != 0:
				pc++
			case hasElse:
				pc = elsePos + 1
			default:
				if _, err := ctx.FrameStack.Pop(); err != nil {
					return nil, err
				}
				pc = end + 1
			}

		case OpElse:
			frame, err := ctx.FrameStack.Top()
			if err != nil {
				return nil, err
			}
			pc = frame.EndPC

		case OpEnd:
			if ctx.FrameStack.Len() == 0 {
				return finishFunction(ctx)
			}
			if _, err := ctx.FrameStack.Pop(); err != nil {
				return nil, err
			}
			pc++

		case OpBr:
			next, done, result, err := branch(ctx, instr.Index)
			if err != nil {
				return nil, err
			}
			if done {
				return result, nil
			}
			pc = next

		case OpBrIf:
			cond, err := PopAs[int32](ctx.ValueStack)
			if err != nil {
				return nil, err
			}
			if cond == 0 {
				pc++
				continue
			}
			next, done, result, err := branch(ctx, instr.Index)
			if err != nil {
				return nil, err
			}
			if done {
				return result, nil
			}
			pc = next

		case OpBrTable:
			idx, err := PopAs[int32](ctx.ValueStack)
			if err != nil {
				return nil, err
			}
			depth := instr.Default
			if idx >= 0 && int(idx) < len(instr.Targets) {
				depth = instr.Targets[idx]
			}
			next, done, result, err := branch(ctx, depth)
			if err != nil {
				return nil, err
			}
			if done {
				return result, nil
			}
			pc = next

		case OpReturn:
			return finishFunction(ctx)

		case OpCall:
			result, err := ctx.Module.callFunction(ctx.asCaller(), IndexSpace(instr.Index))
			if err != nil {
				return nil, err
			}
			if result != nil {
				if err := ctx.ValueStack.Push(*result); err != nil {
					return nil, err
				}
			}
			pc++

		case OpCallIndirect:
			tableIdx, err := PopAs[uint32](ctx.ValueStack)
			if err != nil {
				return nil, err
			}
			result, err := ctx.Module.callFunctionIndirect(ctx.asCaller(), instr.Index, tableIdx)
			if err != nil {
				return nil, err
			}
			if result != nil {
				if err := ctx.ValueStack.Push(*result); err != nil {
					return nil, err
				}
			}
			pc++

		case OpDrop:
			if _, err := ctx.ValueStack.Pop(); err != nil {
				return nil, err
			}
			pc++

		case OpSelect:
			cond, err := PopAs[int32](ctx.ValueStack)
			if err != nil {
				return nil, err
			}
			b, err := ctx.ValueStack.Pop()
			if err != nil {
				return nil, err
			}
			a, err := ctx.ValueStack.Pop()
			if err != nil {
				return nil, err
			}
			if cond != 0 {
				err = ctx.ValueStack.Push(a)
			} else {
				err = ctx.ValueStack.Push(b)
			}
			if err != nil {
				return nil, err
			}
			pc++

		case OpGetLocal:
			if int(instr.Index) >= len(ctx.Locals) {
				return nil, localErr("local index %d out of range (%d locals)", instr.Index, len(ctx.Locals))
			}
			if err := ctx.ValueStack.Push(ctx.Locals[instr.Index]); err != nil {
				return nil, err
			}
			pc++

		case OpSetLocal:
			if int(instr.Index) >= len(ctx.Locals) {
				return nil, localErr("local index %d out of range (%d locals)", instr.Index, len(ctx.Locals))
			}
			v, err := ctx.ValueStack.Pop()
			if err != nil {
				return nil, err
			}
			ctx.Locals[instr.Index] = v
			pc++

		case OpTeeLocal:
			if int(instr.Index) >= len(ctx.Locals) {
				return nil, localErr("local index %d out of range (%d locals)", instr.Index, len(ctx.Locals))
			}
			v, err := ctx.ValueStack.Top()
			if err != nil {
				return nil, err
			}
			ctx.Locals[instr.Index] = v
			pc++

		case OpGetGlobal:
			g, err := ctx.Module.Global(IndexSpace(instr.Index))
			if err != nil {
				return nil, err
			}
			if err := ctx.ValueStack.Push(g.Get()); err != nil {
				return nil, err
			}
			pc++

		case OpSetGlobal:
			g, err := ctx.Module.Global(IndexSpace(instr.Index))
			if err != nil {
				return nil, err
			}
			v, err := ctx.ValueStack.Pop()
			if err != nil {
				return nil, err
			}
			if err := g.Set(v); err != nil {
				return nil, err
			}
			pc++

		case OpI32Const, OpI64Const, OpF32Const, OpF64Const:
			if err := ctx.ValueStack.Push(instr.ConstValue()); err != nil {
				return nil, err
			}
			pc++

		case OpCurrentMemory:
			mem, err := ctx.Module.Memory(IndexSpace(instr.Index))
			if err != nil {
				return nil, err
			}
			if err := ctx.ValueStack.Push(I32(int32(mem.SizePages()))); err != nil {
				return nil, err
			}
			pc++

		case OpGrowMemory:
			mem, err := ctx.Module.Memory(IndexSpace(instr.Index))
			if err != nil {
				return nil, err
			}
			n, err := PopAs[uint32](ctx.ValueStack)
			if err != nil {
				return nil, err
			}
			if err := ctx.ValueStack.Push(I32(mem.Grow(n))); err != nil {
				return nil, err
			}
			pc++

		default:
			if isLoadStore(instr.Op) {
				if err := execMemoryOp(ctx, instr); err != nil {
					return nil, err
				}
			} else if isNumeric(instr.Op) {
				if err := execNumericOp(ctx, instr.Op); err != nil {
					return nil, err
				}
			} else {
				return nil, validationErr("unhandled opcode %v", instr.Op)
			}
			pc++
		}
	}
}

// finishFunction pops the declared result (if any) and returns it,
// discarding whatever else remains on the value stack.
func finishFunction(ctx *FunctionContext) (*RuntimeValue, error) {
	if !ctx.ReturnType.HasResult {
		return nil, nil
	}
	v, err := ctx.ValueStack.Pop()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// branch implements the shared unwind-and-jump logic for br/br_if/
// br_table: pop `depth` enclosing frames, truncate the value stack back to
// the target frame's entry height (preserving its declared arity of
// result values), and report where to resume. depth == FrameStack.Len()
// means branching out of the function itself, equivalent to return.
func branch(ctx *FunctionContext, depth uint32) (nextPC int, done bool, result *RuntimeValue, err error) {
	if int(depth) >= ctx.FrameStack.Len() {
		result, err = finishFunction(ctx)
		return 0, true, result, err
	}

	target, err := ctx.FrameStack.PeekAt(int(depth))
	if err != nil {
		return 0, false, nil, err
	}

	// A Loop's label type is empty: branching re-enters at the loop header
	// rather than exiting with a value, so it carries no result (mirrors
	// validator.go's labelType).
	arity := 0
	if target.Op != OpLoop {
		arity = target.BlockType.Arity()
	}
	kept := make([]RuntimeValue, arity)
	for i := arity - 1; i >= 0; i-- {
		v, perr := ctx.ValueStack.Pop()
		if perr != nil {
			return 0, false, nil, perr
		}
		kept[i] = v
	}
	ctx.ValueStack.Resize(target.StackHeight, RuntimeValue{})
	for _, v := range kept {
		if perr := ctx.ValueStack.Push(v); perr != nil {
			return 0, false, nil, perr
		}
	}

	for i := 0; i < int(depth); i++ {
		if _, perr := ctx.FrameStack.Pop(); perr != nil {
			return 0, false, nil, perr
		}
	}

	if target.Op == OpLoop {
		return target.BranchPC, false, nil, nil
	}
	if _, perr := ctx.FrameStack.Pop(); perr != nil {
		return 0, false, nil, perr
	}
	return target.BranchPC, false, nil, nil
}
