package wasm

import "sync"

// TableInstance is a fixed-length vector of AnyFunc slots with an optional
// declared maximum (there is no grow operation): each slot is either null
// or a function index in the module's combined (imports-first) function
// index space.
type TableInstance struct {
	mu      sync.RWMutex
	slots   []RuntimeValue
	maximum *uint32
}

// NewTableInstance allocates a table of `initial` null slots.
func NewTableInstance(initial uint32, maximum *uint32) (*TableInstance, error) {
	if maximum != nil && *maximum < initial {
		return nil, validationErr("table maximum %d is less than initial %d", *maximum, initial)
	}
	slots := make([]RuntimeValue, initial)
	for i := range slots {
		slots[i] = NullAnyFunc()
	}
	return &TableInstance{slots: slots, maximum: maximum}, nil
}

// Maximum returns the declared maximum element count, or nil if none.
func (t *TableInstance) Maximum() *uint32 {
	if t.maximum == nil {
		return nil
	}
	v := *t.maximum
	return &v
}

func (t *TableInstance) Len() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint32(len(t.slots))
}

// Get returns the slot at idx, trapping (KindTable) if idx is out of
// range.
func (t *TableInstance) Get(idx uint32) (RuntimeValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx >= uint32(len(t.slots)) {
		return RuntimeValue{}, tableErr("table index %d out of bounds (len %d)", idx, len(t.slots))
	}
	return t.slots[idx], nil
}

// Set writes a single slot, trapping (KindTable) on an out-of-bounds idx.
func (t *TableInstance) Set(idx uint32, v RuntimeValue) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx >= uint32(len(t.slots)) {
		return tableErr("table index %d out of bounds (len %d)", idx, len(t.slots))
	}
	t.slots[idx] = v
	return nil
}

// SetRaw writes a run of combined-index-space function indices starting at offset, as
// done by element-segment initialization. Fails with KindInitialization
// (the caller wraps it) if the run doesn't fit.
func (t *TableInstance) SetRaw(offset uint32, funcIndices []uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	end := uint64(offset) + uint64(len(funcIndices))
	if end > uint64(len(t.slots)) {
		return tableErr("element segment at offset %d with %d entries overflows table of length %d", offset, len(funcIndices), len(t.slots))
	}
	for i, fi := range funcIndices {
		t.slots[uint64(offset)+uint64(i)] = AnyFunc(fi)
	}
	return nil
}
