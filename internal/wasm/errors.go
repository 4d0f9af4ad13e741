package wasm

import "fmt"

// Kind classifies a runtime or validation failure. Every operation in this
// package that can fail returns an *Error tagged with one of these, so
// callers at the API boundary can distinguish a trap (recoverable, the
// module survives) from a structural problem (the module is unusable).
type Kind int

const (
	// KindValidation means a module or function body is ill-typed.
	KindValidation Kind = iota
	// KindInitialization means a constant expression failed, or a data/
	// element segment wrote out of bounds during instantiation.
	KindInitialization
	// KindProgram means API misuse or a registry lookup miss.
	KindProgram
	// KindFunction means a signature mismatch or missing function body.
	KindFunction
	// KindMemory means an out-of-bounds memory access or a failed grow.
	KindMemory
	// KindTable means an out-of-bounds table access.
	KindTable
	// KindGlobal means a type mismatch or a write to an immutable global.
	KindGlobal
	// KindStack means a value or frame stack overflow/underflow.
	KindStack
	// KindLocal means a bad local index; the validator should have caught
	// this, so seeing it at runtime indicates a validator bug.
	KindLocal
	// KindTrap means unreachable, div-by-zero, an out-of-range trunc, or
	// any other instruction defined to trap.
	KindTrap
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindInitialization:
		return "Initialization"
	case KindProgram:
		return "Program"
	case KindFunction:
		return "Function"
	case KindMemory:
		return "Memory"
	case KindTable:
		return "Table"
	case KindGlobal:
		return "Global"
	case KindStack:
		return "Stack"
	case KindLocal:
		return "Local"
	case KindTrap:
		return "Trap"
	default:
		return "Unknown"
	}
}

// Error is the single error type surfaced across the package boundary. It
// is never retried internally: any step that produces one unwinds the
// entire invocation stack.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, letting
// callers use errors.Is(err, wasm.ErrTrap) style checks via the sentinel
// values below.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func validationErr(format string, args ...interface{}) *Error {
	return newErr(KindValidation, format, args...)
}

func initializationErr(format string, args ...interface{}) *Error {
	return newErr(KindInitialization, format, args...)
}

func programErr(format string, args ...interface{}) *Error {
	return newErr(KindProgram, format, args...)
}

func functionErr(format string, args ...interface{}) *Error {
	return newErr(KindFunction, format, args...)
}

func memoryErr(format string, args ...interface{}) *Error {
	return newErr(KindMemory, format, args...)
}

func tableErr(format string, args ...interface{}) *Error {
	return newErr(KindTable, format, args...)
}

func globalErr(format string, args ...interface{}) *Error {
	return newErr(KindGlobal, format, args...)
}

func stackErr(format string, args ...interface{}) *Error {
	return newErr(KindStack, format, args...)
}

func localErr(format string, args ...interface{}) *Error {
	return newErr(KindLocal, format, args...)
}

func trapErr(format string, args ...interface{}) *Error {
	return newErr(KindTrap, format, args...)
}

// sentinel kind markers, useful with errors.Is when callers only have a
// wasm.Error and want to compare Kind without reaching into the struct.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrInitialization = &Error{Kind: KindInitialization}
	ErrProgram        = &Error{Kind: KindProgram}
	ErrFunction       = &Error{Kind: KindFunction}
	ErrMemory         = &Error{Kind: KindMemory}
	ErrTable          = &Error{Kind: KindTable}
	ErrGlobal         = &Error{Kind: KindGlobal}
	ErrStack          = &Error{Kind: KindStack}
	ErrLocal          = &Error{Kind: KindLocal}
	ErrTrap           = &Error{Kind: KindTrap}
)
