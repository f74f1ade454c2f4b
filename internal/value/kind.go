// Package value defines the live object model of the host language: the
// values a running program holds and that capture walks.
package value

import "fmt"

// Kind identifies the runtime category of a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind.
	KindInvalid Kind = iota
	// KindNone is the None singleton.
	KindNone
	// KindBool is True or False.
	KindBool
	// KindInt is a signed 64-bit integer.
	KindInt
	// KindFloat is a float64.
	KindFloat
	// KindStr is a text string.
	KindStr
	// KindBytes is a byte string.
	KindBytes
	// KindList is a mutable sequence.
	KindList
	// KindTuple is an immutable sequence.
	KindTuple
	// KindDict is an insertion-ordered mapping.
	KindDict
	// KindFunction is a def or lambda closure.
	KindFunction
	// KindClass is a user class.
	KindClass
	// KindInstance is an instance of a user class.
	KindInstance
	// KindBoundMethod is a function bound to an instance.
	KindBoundMethod
	// KindModule is a namespace produced by running a file.
	KindModule
	// KindBuiltin is a function implemented in Go.
	KindBuiltin
	// KindExceptionType is a builtin exception class.
	KindExceptionType
	// KindException is an instance of a builtin exception class.
	KindException
	// KindRemote is a reference to an object that lives on the remote side.
	KindRemote
	// KindNative is a host object with no source-level representation.
	KindNative
	// KindScopedBlock is a with-block lifted out of its frame.
	KindScopedBlock
	// KindUnconvertible is the placeholder for a value capture could not represent.
	KindUnconvertible
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	KindNone:          "NoneType",
	KindBool:          "bool",
	KindInt:           "int",
	KindFloat:         "float",
	KindStr:           "str",
	KindBytes:         "bytes",
	KindList:          "list",
	KindTuple:         "tuple",
	KindDict:          "dict",
	KindFunction:      "function",
	KindClass:         "type",
	KindInstance:      "instance",
	KindBoundMethod:   "method",
	KindModule:        "module",
	KindBuiltin:       "builtin_function",
	KindExceptionType: "type",
	KindException:     "exception",
	KindRemote:        "remote",
	KindNative:        "native",
	KindScopedBlock:   "scoped_block",
	KindUnconvertible: "unconvertible",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsPrimitive reports whether values of kind k are scalars that pack into a
// single primitive record.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindNone, KindBool, KindInt, KindFloat, KindStr, KindBytes:
		return true
	}
	return false
}
