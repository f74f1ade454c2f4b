package diag

import (
	"errors"
	"fmt"
	"strings"

	"capsule/internal/source"
)

// Frame records one enclosing definition an error bubbled through.
type Frame struct {
	Path string
	Line int
	Name string
}

func (f Frame) String() string {
	if f.Name != "" {
		return fmt.Sprintf("%s:%d (%s)", f.Path, f.Line, f.Name)
	}
	return fmt.Sprintf("%s:%d", f.Path, f.Line)
}

// Error is a fatal, structured pipeline error. Trace is ordered innermost first.
type Error struct {
	Code  Code
	Msg   string
	Pos   source.Position
	Trace []Frame
	Err   error
}

// Sentinels for errors.Is matching by code.
var (
	ErrUnresolvedFreeVariable    = &Error{Code: CapUnresolvedFreeVariable}
	ErrReservedNameUsed          = &Error{Code: CapReservedNameUsed}
	ErrSelfReferencingContainer  = &Error{Code: CapSelfReferencingContainer}
	ErrNamespaceAttributeMissing = &Error{Code: CapNamespaceAttributeMissing}
	ErrBadScopedBlock            = &Error{Code: CapBadScopedBlock}
	ErrUnconvertible             = &Error{Code: RunUnconvertible}
)

// Errorf builds an Error at pos.
func Errorf(code Code, pos source.Position, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// Wrap builds an Error whose cause is err.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.ID())
	sb.WriteString(": ")
	if e.Msg != "" {
		sb.WriteString(e.Msg)
	} else {
		sb.WriteString(e.Code.Title())
	}
	if e.Pos.Path != "" {
		sb.WriteString(" at ")
		sb.WriteString(e.Pos.String())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	for _, f := range e.Trace {
		sb.WriteString("\n  in ")
		sb.WriteString(f.String())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithFrame appends an outer frame and returns e.
func (e *Error) WithFrame(f Frame) *Error {
	e.Trace = append(e.Trace, f)
	return e
}

// AsError unwraps err to the first *Error in its chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err carries an *Error with code.
func IsCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}
