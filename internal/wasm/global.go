package wasm

import "sync"

// VariableInstance is a cell holding a declared type, a mutability flag,
// and a current RuntimeValue. It backs globals; locals are kept as plain
// RuntimeValues in FunctionContext.Locals (spec.md §3: "value.type ==
// declared_type at all times").
type VariableInstance struct {
	mu        sync.Mutex
	typ       ValueType
	mutable   bool
	value     RuntimeValue
}

// NewVariableInstance creates a cell of the given type and mutability,
// seeded with value. Returns KindGlobal if value's type disagrees with
// typ.
func NewVariableInstance(typ ValueType, mutable bool, value RuntimeValue) (*VariableInstance, error) {
	if value.Type() != typ {
		return nil, globalErr("initial value type %s does not match declared type %s", value.Type(), typ)
	}
	return &VariableInstance{typ: typ, mutable: mutable, value: value}, nil
}

func (v *VariableInstance) Type() ValueType { return v.typ }
func (v *VariableInstance) IsMutable() bool { return v.mutable }

// Get reads the current value. Reads are atomic per cell (spec.md §5).
func (v *VariableInstance) Get() RuntimeValue {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set writes a new value, failing with KindGlobal if the cell is immutable
// or the value's type disagrees with the declared type.
func (v *VariableInstance) Set(value RuntimeValue) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mutable {
		return globalErr("attempted to write immutable global")
	}
	if value.Type() != v.typ {
		return globalErr("value type %s does not match declared type %s", value.Type(), v.typ)
	}
	v.value = value
	return nil
}
