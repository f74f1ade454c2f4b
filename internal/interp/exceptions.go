package interp

import "capsule/internal/value"

// Builtin exception hierarchy.
var (
	BaseException       = &value.ExceptionType{Name: "Exception"}
	ValueError          = &value.ExceptionType{Name: "ValueError", Base: BaseException}
	TypeError           = &value.ExceptionType{Name: "TypeError", Base: BaseException}
	KeyError            = &value.ExceptionType{Name: "KeyError", Base: BaseException}
	IndexError          = &value.ExceptionType{Name: "IndexError", Base: BaseException}
	ZeroDivisionError   = &value.ExceptionType{Name: "ZeroDivisionError", Base: BaseException}
	NameError           = &value.ExceptionType{Name: "NameError", Base: BaseException}
	AttributeError      = &value.ExceptionType{Name: "AttributeError", Base: BaseException}
	RuntimeError        = &value.ExceptionType{Name: "RuntimeError", Base: BaseException}
	RecursionError      = &value.ExceptionType{Name: "RecursionError", Base: RuntimeError}
	NotImplementedError = &value.ExceptionType{Name: "NotImplementedError", Base: RuntimeError}
	ImportError         = &value.ExceptionType{Name: "ImportError", Base: BaseException}
)

// ExceptionTypes lists every builtin exception type.
var ExceptionTypes = []*value.ExceptionType{
	BaseException, ValueError, TypeError, KeyError, IndexError, ZeroDivisionError,
	NameError, AttributeError, RuntimeError, RecursionError, NotImplementedError, ImportError,
}
