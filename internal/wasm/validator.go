package wasm

// Validator performs the structural and type-stack checks spec.md §4.3
// requires before a function body may be instantiated, and produces the
// Labels/ElsePos maps the interpreter later uses for O(1) branch
// resolution. It never executes code; it only walks bytecode once.
type Validator struct {
	valueStackLimit int
	frameStackLimit int
}

// NewValidator builds a Validator enforcing the given stack limits while
// type-checking (the same caps later enforced at runtime, so a function
// that validates is guaranteed not to overflow them during execution of
// straight-line code; actual recursion depth is a separate runtime
// concern).
func NewValidator(valueStackLimit, frameStackLimit int) *Validator {
	return &Validator{valueStackLimit: valueStackLimit, frameStackLimit: frameStackLimit}
}

// ctrlFrame is the validator's control-stack entry, tracking where a
// Block/Loop/If started so operand types below it can't be popped by
// code inside it (spec.md §4.3's "height" rule).
type ctrlFrame struct {
	op          Op
	blockType   BlockType
	pc          int // position of the opening instruction
	startHeight int // value type stack height when the frame was entered
	unreachable bool
}

// funcValidationContext is one function body's validation state.
type funcValidationContext struct {
	v        *Validator
	sig      *FunctionType
	locals   []ValueType
	types    []*FunctionType
	maxFunc  uint32 // for call target bounds checks below the combined index space
	maxTable uint32
	maxMem   uint32
	maxGlob  uint32
	globalTypes []ValueType

	typeStack []ValueType
	ctrl      []ctrlFrame

	labels  map[int]int
	elsePos map[int]int
}

// ValidateFunction type-checks body against sig, within a module whose
// shape (type section, combined function/table/memory/global counts, and
// global types) is described by the remaining parameters, used to check
// call/call_indirect/get_global targets. It fills body.Labels/ElsePos as
// a side effect and returns a *Error (KindValidation) on the first
// violation.
func (v *Validator) ValidateFunction(sig *FunctionType, body *FuncBody, types []*FunctionType, funcCount, tableCount, memCount, globalCount uint32, globalTypes []ValueType) error {
	locals := make([]ValueType, 0, len(sig.Params)+len(body.Locals))
	locals = append(locals, sig.Params...)
	for _, l := range body.Locals {
		for i := uint32(0); i < l.Count; i++ {
			locals = append(locals, l.Type)
		}
	}

	fc := &funcValidationContext{
		v:           v,
		sig:         sig,
		locals:      locals,
		types:       types,
		maxFunc:     funcCount,
		maxTable:    tableCount,
		maxMem:      memCount,
		maxGlob:     globalCount,
		globalTypes: globalTypes,
		labels:      make(map[int]int),
		elsePos:     make(map[int]int),
	}

	fc.pushCtrl(Op(opEnd), sig.BlockType(), -1)

	for pc, instr := range body.Code {
		if err := fc.step(pc, instr); err != nil {
			return err
		}
		if len(fc.ctrl) > v.frameStackLimit {
			return validationErr("control stack exceeds limit %d", v.frameStackLimit)
		}
		if len(fc.typeStack) > v.valueStackLimit {
			return validationErr("value stack exceeds limit %d", v.valueStackLimit)
		}
	}

	if len(fc.ctrl) != 0 {
		return validationErr("function body ends with %d unterminated block(s)", len(fc.ctrl))
	}

	body.Labels = fc.labels
	body.ElsePos = fc.elsePos
	return nil
}

func (fc *funcValidationContext) pushCtrl(op Op, bt BlockType, pc int) {
	fc.ctrl = append(fc.ctrl, ctrlFrame{op: op, blockType: bt, pc: pc, startHeight: len(fc.typeStack)})
}

func (fc *funcValidationContext) topCtrl() *ctrlFrame {
	return &fc.ctrl[len(fc.ctrl)-1]
}

func (fc *funcValidationContext) popCtrl() (ctrlFrame, error) {
	if len(fc.ctrl) == 0 {
		return ctrlFrame{}, validationErr("control stack underflow")
	}
	top := fc.ctrl[len(fc.ctrl)-1]
	// a block's result, if any, must be present on the stack at its end.
	if top.blockType.HasResult {
		if err := fc.popExpect(top.blockType.Result); err != nil {
			return ctrlFrame{}, err
		}
	}
	if len(fc.typeStack) != top.startHeight {
		return ctrlFrame{}, validationErr("block leaves %d extra value(s) on the stack", len(fc.typeStack)-top.startHeight)
	}
	fc.ctrl = fc.ctrl[:len(fc.ctrl)-1]
	return top, nil
}

func (fc *funcValidationContext) push(t ValueType) { fc.typeStack = append(fc.typeStack, t) }

func (fc *funcValidationContext) pop() (ValueType, error) {
	top := fc.topCtrl()
	if len(fc.typeStack) == top.startHeight {
		if top.unreachable {
			return ValueTypeI32, nil // polymorphic stack after unreachable code
		}
		return 0, validationErr("type stack underflow within current block")
	}
	n := len(fc.typeStack) - 1
	v := fc.typeStack[n]
	fc.typeStack = fc.typeStack[:n]
	return v, nil
}

func (fc *funcValidationContext) popExpect(want ValueType) error {
	got, err := fc.pop()
	if err != nil {
		return err
	}
	if got != want && !fc.topCtrl().unreachable {
		return validationErr("expected type %s, got %s", want, got)
	}
	return nil
}

func (fc *funcValidationContext) setUnreachable() {
	top := fc.topCtrl()
	fc.typeStack = fc.typeStack[:top.startHeight]
	top.unreachable = true
}

// labelType returns the type a branch targeting frame must carry: a
// Loop's label type is empty (branching re-enters at the top, it doesn't
// need the loop's eventual result), everything else is the frame's
// BlockType.
func labelType(f ctrlFrame) BlockType {
	if f.op == OpLoop {
		return NoResult
	}
	return f.blockType
}

func (fc *funcValidationContext) checkBranch(depth uint32) error {
	if int(depth) >= len(fc.ctrl) {
		return validationErr("branch depth %d exceeds enclosing block count %d", depth, len(fc.ctrl))
	}
	target := fc.ctrl[len(fc.ctrl)-1-int(depth)]
	bt := labelType(target)
	if bt.HasResult {
		return fc.popExpect(bt.Result)
	}
	return nil
}

func (fc *funcValidationContext) step(pc int, instr Instruction) error {
	switch instr.Op {
	case OpUnreachable:
		fc.setUnreachable()

	case OpNop:

	case OpBlock:
		fc.pushCtrl(OpBlock, instr.BlockType, pc)

	case OpLoop:
		fc.pushCtrl(OpLoop, instr.BlockType, pc)

	case OpIf:
		if err := fc.popExpect(ValueTypeI32); err != nil {
			return err
		}
		fc.pushCtrl(OpIf, instr.BlockType, pc)

	case OpElse:
		top := fc.topCtrl()
		if top.op != OpIf {
			return validationErr("else without matching if")
		}
		ifPC := top.pc
		if top.blockType.HasResult {
			if err := fc.popExpect(top.blockType.Result); err != nil {
				return err
			}
		}
		if len(fc.typeStack) != top.startHeight {
			return validationErr("if-branch leaves extra values before else")
		}
		fc.elsePos[ifPC] = pc
		top.unreachable = false
		fc.ctrl[len(fc.ctrl)-1] = *top

	case OpEnd:
		frame, err := fc.popCtrl()
		if err != nil {
			return err
		}
		if frame.pc >= 0 {
			fc.labels[frame.pc] = pc
		}
		if frame.blockType.HasResult {
			fc.push(frame.blockType.Result)
		}

	case OpBr:
		if err := fc.checkBranch(instr.Index); err != nil {
			return err
		}
		fc.setUnreachable()

	case OpBrIf:
		if err := fc.popExpect(ValueTypeI32); err != nil {
			return err
		}
		if err := fc.checkBranch(instr.Index); err != nil {
			return err
		}

	case OpBrTable:
		if err := fc.popExpect(ValueTypeI32); err != nil {
			return err
		}
		if err := fc.checkBranch(instr.Default); err != nil {
			return err
		}
		for _, d := range instr.Targets {
			if err := fc.checkBranch(d); err != nil {
				return err
			}
		}
		fc.setUnreachable()

	case OpReturn:
		if fc.sig.HasResult() {
			if err := fc.popExpect(*fc.sig.Result); err != nil {
				return err
			}
		}
		fc.setUnreachable()

	case OpCall:
		if instr.Index >= fc.maxFunc {
			return validationErr("call target %d out of range", instr.Index)
		}
		// callee signature is resolved by the instantiator, which has the
		// combined index space available; the validator only bounds-checks.

	case OpCallIndirect:
		if int(instr.Index) >= len(fc.types) {
			return validationErr("call_indirect type index %d out of range", instr.Index)
		}
		if err := fc.popExpect(ValueTypeI32); err != nil {
			return err
		}
		sig := fc.types[instr.Index]
		for i := len(sig.Params) - 1; i >= 0; i-- {
			if err := fc.popExpect(sig.Params[i]); err != nil {
				return err
			}
		}
		if sig.HasResult() {
			fc.push(*sig.Result)
		}

	case OpDrop:
		if _, err := fc.pop(); err != nil {
			return err
		}

	case OpSelect:
		if err := fc.popExpect(ValueTypeI32); err != nil {
			return err
		}
		b, err := fc.pop()
		if err != nil {
			return err
		}
		if err := fc.popExpect(b); err != nil {
			return err
		}
		fc.push(b)

	case OpGetLocal:
		if int(instr.Index) >= len(fc.locals) {
			return validationErr("local index %d out of range", instr.Index)
		}
		fc.push(fc.locals[instr.Index])

	case OpSetLocal:
		if int(instr.Index) >= len(fc.locals) {
			return validationErr("local index %d out of range", instr.Index)
		}
		if err := fc.popExpect(fc.locals[instr.Index]); err != nil {
			return err
		}

	case OpTeeLocal:
		if int(instr.Index) >= len(fc.locals) {
			return validationErr("local index %d out of range", instr.Index)
		}
		t := fc.locals[instr.Index]
		if err := fc.popExpect(t); err != nil {
			return err
		}
		fc.push(t)

	case OpGetGlobal:
		if int(instr.Index) >= len(fc.globalTypes) {
			return validationErr("global index %d out of range", instr.Index)
		}
		fc.push(fc.globalTypes[instr.Index])

	case OpSetGlobal:
		if int(instr.Index) >= len(fc.globalTypes) {
			return validationErr("global index %d out of range", instr.Index)
		}
		if err := fc.popExpect(fc.globalTypes[instr.Index]); err != nil {
			return err
		}

	case OpI32Const:
		fc.push(ValueTypeI32)
	case OpI64Const:
		fc.push(ValueTypeI64)
	case OpF32Const:
		fc.push(ValueTypeF32)
	case OpF64Const:
		fc.push(ValueTypeF64)

	case OpCurrentMemory:
		if fc.maxMem == 0 {
			return validationErr("current_memory requires a memory")
		}
		fc.push(ValueTypeI32)

	case OpGrowMemory:
		if fc.maxMem == 0 {
			return validationErr("grow_memory requires a memory")
		}
		if err := fc.popExpect(ValueTypeI32); err != nil {
			return err
		}
		fc.push(ValueTypeI32)

	default:
		if isLoadStore(instr.Op) {
			return fc.checkLoadStore(instr)
		}
		return fc.checkNumeric(instr.Op)
	}
	return nil
}

func (fc *funcValidationContext) checkLoadStore(instr Instruction) error {
	if fc.maxMem == 0 {
		return validationErr("memory instruction requires a memory")
	}
	if isStoreOp(instr.Op) {
		t := storeValueType(instr.Op)
		if err := fc.popExpect(t); err != nil {
			return err
		}
		return fc.popExpect(ValueTypeI32)
	}
	if err := fc.popExpect(ValueTypeI32); err != nil {
		return err
	}
	fc.push(loadResultType(instr.Op))
	return nil
}

func storeValueType(op Op) ValueType {
	switch op {
	case OpI32Store, OpI32Store8, OpI32Store16:
		return ValueTypeI32
	case OpI64Store, OpI64Store8, OpI64Store16, OpI64Store32:
		return ValueTypeI64
	case OpF32Store:
		return ValueTypeF32
	case OpF64Store:
		return ValueTypeF64
	default:
		return ValueTypeI32
	}
}

func loadResultType(op Op) ValueType {
	switch op {
	case OpI32Load, OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U:
		return ValueTypeI32
	case OpI64Load, OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U:
		return ValueTypeI64
	case OpF32Load:
		return ValueTypeF32
	case OpF64Load:
		return ValueTypeF64
	default:
		return ValueTypeI32
	}
}

// checkNumeric type-checks every comparison/arithmetic/conversion opcode
// by its declared (pops..., push?) shape.
func (fc *funcValidationContext) checkNumeric(op Op) error {
	unary := func(in, out ValueType) error {
		if err := fc.popExpect(in); err != nil {
			return err
		}
		fc.push(out)
		return nil
	}
	binary := func(in, out ValueType) error {
		if err := fc.popExpect(in); err != nil {
			return err
		}
		if err := fc.popExpect(in); err != nil {
			return err
		}
		fc.push(out)
		return nil
	}
	cmp := func(in ValueType) error { return binary(in, ValueTypeI32) }

	switch op {
	case OpI32Eqz:
		return unary(ValueTypeI32, ValueTypeI32)
	case OpI64Eqz:
		return unary(ValueTypeI64, ValueTypeI32)

	case OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU, OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU:
		return cmp(ValueTypeI32)
	case OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU, OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU:
		return cmp(ValueTypeI64)
	case OpF32Eq, OpF32Ne, OpF32Lt, OpF32Gt, OpF32Le, OpF32Ge:
		return cmp(ValueTypeF32)
	case OpF64Eq, OpF64Ne, OpF64Lt, OpF64Gt, OpF64Le, OpF64Ge:
		return cmp(ValueTypeF64)

	case OpI32Clz, OpI32Ctz, OpI32Popcnt:
		return unary(ValueTypeI32, ValueTypeI32)
	case OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU,
		OpI32And, OpI32Or, OpI32Xor, OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr:
		return binary(ValueTypeI32, ValueTypeI32)

	case OpI64Clz, OpI64Ctz, OpI64Popcnt:
		return unary(ValueTypeI64, ValueTypeI64)
	case OpI64Add, OpI64Sub, OpI64Mul, OpI64DivS, OpI64DivU, OpI64RemS, OpI64RemU,
		OpI64And, OpI64Or, OpI64Xor, OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr:
		return binary(ValueTypeI64, ValueTypeI64)

	case OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt:
		return unary(ValueTypeF32, ValueTypeF32)
	case OpF32Add, OpF32Sub, OpF32Mul, OpF32Div, OpF32Min, OpF32Max, OpF32Copysign:
		return binary(ValueTypeF32, ValueTypeF32)

	case OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt:
		return unary(ValueTypeF64, ValueTypeF64)
	case OpF64Add, OpF64Sub, OpF64Mul, OpF64Div, OpF64Min, OpF64Max, OpF64Copysign:
		return binary(ValueTypeF64, ValueTypeF64)

	case OpI32WrapI64:
		return unary(ValueTypeI64, ValueTypeI32)
	case OpI32TruncSF32, OpI32TruncUF32:
		return unary(ValueTypeF32, ValueTypeI32)
	case OpI32TruncSF64, OpI32TruncUF64:
		return unary(ValueTypeF64, ValueTypeI32)
	case OpI64ExtendSI32, OpI64ExtendUI32:
		return unary(ValueTypeI32, ValueTypeI64)
	case OpI64TruncSF32, OpI64TruncUF32:
		return unary(ValueTypeF32, ValueTypeI64)
	case OpI64TruncSF64, OpI64TruncUF64:
		return unary(ValueTypeF64, ValueTypeI64)
	case OpF32ConvertSI32, OpF32ConvertUI32:
		return unary(ValueTypeI32, ValueTypeF32)
	case OpF32ConvertSI64, OpF32ConvertUI64:
		return unary(ValueTypeI64, ValueTypeF32)
	case OpF32DemoteF64:
		return unary(ValueTypeF64, ValueTypeF32)
	case OpF64ConvertSI32, OpF64ConvertUI32:
		return unary(ValueTypeI32, ValueTypeF64)
	case OpF64ConvertSI64, OpF64ConvertUI64:
		return unary(ValueTypeI64, ValueTypeF64)
	case OpF64PromoteF32:
		return unary(ValueTypeF32, ValueTypeF64)

	case OpI32ReinterpretF32:
		return unary(ValueTypeF32, ValueTypeI32)
	case OpI64ReinterpretF64:
		return unary(ValueTypeF64, ValueTypeI64)
	case OpF32ReinterpretI32:
		return unary(ValueTypeI32, ValueTypeF32)
	case OpF64ReinterpretI64:
		return unary(ValueTypeI64, ValueTypeF64)

	default:
		return validationErr("unhandled opcode %v during validation", op)
	}
}
