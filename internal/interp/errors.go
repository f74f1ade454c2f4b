package interp

import (
	"errors"
	"fmt"

	"capsule/internal/diag"
	"capsule/internal/source"
	"capsule/internal/value"
)

// Raised carries a host-language exception through Go error returns. It is
// always wrapped in a *diag.Error with code RunError.
type Raised struct {
	Exc *value.Exception
}

func (r *Raised) Error() string {
	if msg := r.Exc.Message(); msg != "" {
		return r.Exc.Type.Name + ": " + msg
	}
	return r.Exc.Type.Name
}

// raiseExc wraps an exception value for propagation.
func raiseExc(exc *value.Exception) *diag.Error {
	return &diag.Error{Code: diag.RunError, Err: &Raised{Exc: exc}}
}

func throw(t *value.ExceptionType, format string, args ...any) *diag.Error {
	return raiseExc(&value.Exception{Type: t, Args: []value.Value{value.Str(fmt.Sprintf(format, args...))}})
}

// unconvertibleUse reports any operation on a placeholder.
func unconvertibleUse(u *value.Unconvertible, op string) *diag.Error {
	return &diag.Error{Code: diag.RunUnconvertible, Err: u.UseError(op)}
}

// ExceptionOf returns the host exception carried by err, if any.
func ExceptionOf(err error) (*value.Exception, bool) {
	var r *Raised
	if errors.As(err, &r) {
		return r.Exc, true
	}
	return nil, false
}

// locate gives err a position if it has none yet. Errors from Go code that are
// not *diag.Error become RuntimeError exceptions.
func locate(err error, pos source.Position) error {
	de, ok := diag.AsError(err)
	if !ok {
		de = throw(RuntimeError, "%v", err)
	}
	if de.Pos.Line == 0 {
		de.Pos = pos
	}
	return de
}

// addFrame records the call a runtime error escaped from.
func addFrame(err error, f diag.Frame) error {
	if de, ok := diag.AsError(err); ok && (de.Code == diag.RunError || de.Code == diag.RunUnconvertible) {
		de.WithFrame(f)
	}
	return err
}
