package defs

import "fmt"

// Kind is the wire code of a definition. The numbering is part of the
// envelope format and must not be reordered.
type Kind uint8

const (
	KindNone                     Kind = 1
	KindInt                      Kind = 2
	KindLong                     Kind = 3 // reserved: ints are 64-bit, never produced
	KindFloat                    Kind = 4
	KindBool                     Kind = 5
	KindStr                      Kind = 6
	KindListOfPrimitives         Kind = 7
	KindTuple                    Kind = 8
	KindPackedHomogenousData     Kind = 9 // reserved
	KindList                     Kind = 10
	KindFile                     Kind = 11
	KindDict                     Kind = 12
	KindRemoteObject             Kind = 13
	KindBuiltinExceptionInstance Kind = 14
	KindNamedSingleton           Kind = 15
	KindFunction                 Kind = 16
	KindClass                    Kind = 17
	KindUnconvertible            Kind = 18
	KindClassInstance            Kind = 19
	KindInstanceMethod           Kind = 20
	KindWithBlock                Kind = 21
)

var kindNames = map[Kind]string{
	KindNone:                     "none",
	KindInt:                      "int",
	KindLong:                     "long",
	KindFloat:                    "float",
	KindBool:                     "bool",
	KindStr:                      "str",
	KindListOfPrimitives:         "primitives",
	KindTuple:                    "tuple",
	KindPackedHomogenousData:     "packed",
	KindList:                     "list",
	KindFile:                     "file",
	KindDict:                     "dict",
	KindRemoteObject:             "remote",
	KindBuiltinExceptionInstance: "exception",
	KindNamedSingleton:           "singleton",
	KindFunction:                 "function",
	KindClass:                    "class",
	KindUnconvertible:            "unconvertible",
	KindClassInstance:            "instance",
	KindInstanceMethod:           "method",
	KindWithBlock:                "with-block",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Empty returns a zero definition of the variant that kind k decodes into.
func Empty(k Kind) (Definition, error) {
	switch k {
	case KindNone, KindInt, KindFloat, KindBool, KindStr, KindListOfPrimitives:
		return &Primitive{}, nil
	case KindTuple:
		return &Tuple{}, nil
	case KindList:
		return &List{}, nil
	case KindFile:
		return &SourceFile{}, nil
	case KindDict:
		return &Dict{}, nil
	case KindRemoteObject:
		return &RemoteObjectReference{}, nil
	case KindBuiltinExceptionInstance:
		return &BuiltinExceptionInstance{}, nil
	case KindNamedSingleton:
		return &NamedSingleton{}, nil
	case KindFunction:
		return &Function{}, nil
	case KindClass:
		return &Class{}, nil
	case KindUnconvertible:
		return &Unconvertible{}, nil
	case KindClassInstance:
		return &ClassInstance{}, nil
	case KindInstanceMethod:
		return &InstanceMethod{}, nil
	case KindWithBlock:
		return &ScopedBlock{}, nil
	}
	return nil, fmt.Errorf("unknown definition kind %d", uint8(k))
}
