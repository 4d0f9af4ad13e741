package wasm

// Stack is a capped LIFO. Push past Limit fails with KindStack; Pop from
// an empty stack fails with KindStack. It backs both the per-call value
// stack (Stack[RuntimeValue]) and the frame stack (Stack[BlockFrame]).
type Stack[T any] struct {
	data  []T
	limit int
}

// NewStack creates an empty stack capped at limit entries.
func NewStack[T any](limit int) *Stack[T] {
	return &Stack[T]{limit: limit}
}

// NewStackWithData seeds a stack from existing data (used to build the
// root invocation's value stack from caller-supplied arguments), still
// capped at limit.
func NewStackWithData[T any](data []T, limit int) *Stack[T] {
	return &Stack[T]{data: data, limit: limit}
}

func (s *Stack[T]) Len() int   { return len(s.data) }
func (s *Stack[T]) Limit() int { return s.limit }

// SetLimit narrows (or widens) the cap. Nested FunctionContexts get their
// reduced budget from NewStack instead; nothing in this package calls it.
func (s *Stack[T]) SetLimit(limit int) { s.limit = limit }

func (s *Stack[T]) Push(v T) error {
	if len(s.data) >= s.limit {
		return stackErr("exceeded stack limit %d", s.limit)
	}
	s.data = append(s.data, v)
	return nil
}

func (s *Stack[T]) Pop() (T, error) {
	var zero T
	if len(s.data) == 0 {
		return zero, stackErr("popped from empty stack")
	}
	n := len(s.data) - 1
	v := s.data[n]
	s.data = s.data[:n]
	return v, nil
}

// Top peeks the top entry without removing it.
func (s *Stack[T]) Top() (T, error) {
	var zero T
	if len(s.data) == 0 {
		return zero, stackErr("peeked empty stack")
	}
	return s.data[len(s.data)-1], nil
}

// PeekAt returns the entry at depth n from the top (0 = top) without
// removing anything; used by the interpreter's branch to find the target
// frame of a br/br_if/br_table.
func (s *Stack[T]) PeekAt(n int) (T, error) {
	var zero T
	idx := len(s.data) - 1 - n
	if idx < 0 || idx >= len(s.data) {
		return zero, stackErr("peeked out of range at depth %d", n)
	}
	return s.data[idx], nil
}

// Resize truncates or pads the stack to exactly n entries, padding with
// fill when growing. Used when unwinding a frame's value stack back to the
// block's entry height.
func (s *Stack[T]) Resize(n int, fill T) {
	if n <= len(s.data) {
		s.data = s.data[:n]
		return
	}
	for len(s.data) < n {
		s.data = append(s.data, fill)
	}
}

// ValueStack is a Stack[RuntimeValue] with typed pop helpers matching the
// original interpreter's TryInto<T, Error>-bounded accessors.
type ValueStack = Stack[RuntimeValue]

// Number is the set of Go types a RuntimeValue can be narrowed to.
type Number interface {
	int32 | uint32 | int64 | uint64 | float32 | float64
}

// PopAs pops the top value and asserts it carries the ValueType matching
// T, reporting KindStack on a tag mismatch (the validator should prevent
// this ever firing; it exists as a defensive check per spec.md §4.5).
func PopAs[T Number](s *ValueStack) (T, error) {
	v, err := s.Pop()
	if err != nil {
		var zero T
		return zero, err
	}
	return valueAs[T](v)
}

// PopPairAs pops two values, returning (second-from-top, top) as left,
// right operands in source order, i.e. for `a b op`, left=a, right=b.
func PopPairAs[T Number](s *ValueStack) (left, right T, err error) {
	right, err = PopAs[T](s)
	if err != nil {
		return
	}
	left, err = PopAs[T](s)
	return
}

func valueAs[T Number](v RuntimeValue) (T, error) {
	var zero T
	switch any(zero).(type) {
	case int32:
		if v.Type() != ValueTypeI32 {
			return zero, stackErr("expected i32 on stack, got %s", v.Type())
		}
		return T(v.I32()), nil
	case uint32:
		if v.Type() != ValueTypeI32 {
			return zero, stackErr("expected i32 on stack, got %s", v.Type())
		}
		return T(v.U32()), nil
	case int64:
		if v.Type() != ValueTypeI64 {
			return zero, stackErr("expected i64 on stack, got %s", v.Type())
		}
		return T(v.I64()), nil
	case uint64:
		if v.Type() != ValueTypeI64 {
			return zero, stackErr("expected i64 on stack, got %s", v.Type())
		}
		return T(v.U64()), nil
	case float32:
		if v.Type() != ValueTypeF32 {
			return zero, stackErr("expected f32 on stack, got %s", v.Type())
		}
		return T(v.F32()), nil
	case float64:
		if v.Type() != ValueTypeF64 {
			return zero, stackErr("expected f64 on stack, got %s", v.Type())
		}
		return T(v.F64()), nil
	default:
		return zero, stackErr("unsupported stack value type")
	}
}

// PushNumber wraps a Go numeric value back into the matching RuntimeValue
// and pushes it.
func PushNumber[T Number](s *ValueStack, v T) error {
	return s.Push(numberToValue(v))
}

func numberToValue[T Number](v T) RuntimeValue {
	switch x := any(v).(type) {
	case int32:
		return I32(x)
	case uint32:
		return I32(int32(x))
	case int64:
		return I64(x)
	case uint64:
		return I64(int64(x))
	case float32:
		return F32(x)
	case float64:
		return F64(x)
	default:
		panic("unreachable: unsupported Number type")
	}
}
