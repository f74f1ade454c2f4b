package value

import (
	"fmt"

	"capsule/internal/ast"
)

// Caller lets builtins call back into the interpreter.
type Caller interface {
	Call(fn Value, args []Value, kwargs map[string]Value) (Value, error)
}

// BuiltinFunc implements a builtin. kwargs is nil when no keywords were passed.
type BuiltinFunc func(c Caller, args []Value, kwargs map[string]Value) (Value, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (*Builtin) Kind() Kind       { return KindBuiltin }
func (*Builtin) TypeName() string { return KindBuiltin.String() }

// ExceptionType is a builtin exception class such as ValueError.
type ExceptionType struct {
	Name string
	Base *ExceptionType
}

func (*ExceptionType) Kind() Kind       { return KindExceptionType }
func (*ExceptionType) TypeName() string { return KindExceptionType.String() }

// IsSubtype reports whether t is other or derives from it.
func (t *ExceptionType) IsSubtype(other *ExceptionType) bool {
	for c := t; c != nil; c = c.Base {
		if c == other {
			return true
		}
	}
	return false
}

// Exception is a raised or constructed exception value.
type Exception struct {
	Type *ExceptionType
	Args []Value
	// Instance is set when the exception was raised from an instance of a
	// user class deriving from Type.
	Instance *Instance
}

func (*Exception) Kind() Kind         { return KindException }
func (e *Exception) TypeName() string { return e.Type.Name }

// Message renders the exception arguments the way str() does.
func (e *Exception) Message() string {
	switch len(e.Args) {
	case 0:
		return ""
	case 1:
		return ToStr(e.Args[0])
	}
	return Repr(NewTuple(e.Args...))
}

// RemoteRef names an object that already lives on the remote side.
type RemoteRef struct {
	Path string
}

func (*RemoteRef) Kind() Kind       { return KindRemote }
func (*RemoteRef) TypeName() string { return KindRemote.String() }

// Native wraps a host object. Type selects a pure replacement, if one is registered.
type Native struct {
	Type string
	Data any
}

func (*Native) Kind() Kind         { return KindNative }
func (n *Native) TypeName() string { return n.Type }

// ScopedBlock is the body of a with-statement lifted out of its frame.
type ScopedBlock struct {
	File string
	Line int
	Node *ast.With
	// Bound holds the frame variables visible to the block: locals and closure cells.
	Bound map[string]Value
	// Unbound lists locals of the enclosing function not yet assigned.
	Unbound []string
	Globals *Module
}

func (*ScopedBlock) Kind() Kind       { return KindScopedBlock }
func (*ScopedBlock) TypeName() string { return KindScopedBlock.String() }

// BlockCapturer is a with-statement context that takes its body instead of
// letting the interpreter run it. The returned variables are written back to
// the frame.
type BlockCapturer interface {
	Value
	CaptureBlock(b *ScopedBlock) (map[string]Value, error)
}

// Unconvertible stands in for a value capture could not represent. Any use
// other than passing it around fails.
type Unconvertible struct {
	Reason string
}

func (*Unconvertible) Kind() Kind       { return KindUnconvertible }
func (*Unconvertible) TypeName() string { return KindUnconvertible.String() }

// UseError is returned when an Unconvertible is used.
func (u *Unconvertible) UseError(op string) error {
	return fmt.Errorf("cannot %s an unconvertible value (%s)", op, u.Reason)
}
