package wasm

import "sync"

// PageSize is the size in bytes of one linear memory page (spec.md GLOSSARY
// "Page").
const PageSize = 65536

// MaxPages is the absolute ceiling on memory size imposed by the 32-bit
// address space (size_pages <= 65536).
const MaxPages = 65536

// MemoryInstance is linear memory sized in 64 KiB pages, with an optional
// declared maximum. Mutated only through Set and Grow; size reads and byte
// accesses are guarded by a mutex so that concurrent invocations sharing a
// ModuleInstance observe a consistent size field (spec.md §5).
type MemoryInstance struct {
	mu       sync.RWMutex
	data     []byte
	initial  uint32
	maximum  *uint32 // nil means no declared maximum
}

// NewMemoryInstance allocates a zeroed memory of `initial` pages, checking
// initial <= maximum <= MaxPages when maximum is declared.
func NewMemoryInstance(initial uint32, maximum *uint32) (*MemoryInstance, error) {
	if initial > MaxPages {
		return nil, validationErr("memory initial size %d exceeds %d pages", initial, MaxPages)
	}
	if maximum != nil {
		if *maximum > MaxPages {
			return nil, validationErr("memory maximum %d exceeds %d pages", *maximum, MaxPages)
		}
		if *maximum < initial {
			return nil, validationErr("memory maximum %d is less than initial %d", *maximum, initial)
		}
	}
	return &MemoryInstance{
		data:    make([]byte, uint64(initial)*PageSize),
		initial: initial,
		maximum: maximum,
	}, nil
}

// Maximum returns the declared maximum in pages, or nil if none was
// declared. Used by the imports resolver to check an importer's declared
// maximum against the exporter's.
func (m *MemoryInstance) Maximum() *uint32 {
	if m.maximum == nil {
		return nil
	}
	v := *m.maximum
	return &v
}

// SizePages returns the current size in pages.
func (m *MemoryInstance) SizePages() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint32(len(m.data) / PageSize)
}

// Get reads n bytes at addr, trapping (KindMemory) if the access runs past
// the end of memory or addr+n overflows.
func (m *MemoryInstance) Get(addr uint32, n int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	end := uint64(addr) + uint64(n)
	if end > uint64(len(m.data)) {
		return nil, memoryErr("out of bounds memory access: %d+%d > %d", addr, n, len(m.data))
	}
	out := make([]byte, n)
	copy(out, m.data[addr:end])
	return out, nil
}

// Set writes b at addr, trapping (KindMemory) if it would run past the end
// of memory. Used both for store instructions and for data-segment
// initialization.
func (m *MemoryInstance) Set(addr uint32, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := uint64(addr) + uint64(len(b))
	if end > uint64(len(m.data)) {
		return memoryErr("out of bounds memory write: %d+%d > %d", addr, len(b), len(m.data))
	}
	copy(m.data[addr:end], b)
	return nil
}

// Grow adds n pages, returning the size (in pages) before the grow on
// success, or -1 on failure (past declared maximum, or past MaxPages).
// Failure never shrinks memory, matching the grow-monotonicity property.
func (m *MemoryInstance) Grow(n uint32) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := uint32(len(m.data) / PageSize)
	newSize := old + n
	if newSize < old { // overflow
		return -1
	}
	if newSize > MaxPages {
		return -1
	}
	if m.maximum != nil && newSize > *m.maximum {
		return -1
	}
	m.data = append(m.data, make([]byte, uint64(n)*PageSize)...)
	return int32(old)
}
