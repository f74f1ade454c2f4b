package value

import (
	"strconv"
)

// Value is anything a program can hold. Every implementation is comparable,
// so a Value can key an identity map: scalars compare by content and all
// other kinds are pointers that compare by identity.
type Value interface {
	Kind() Kind
	TypeName() string
}

type (
	// NoneType is the type of None.
	NoneType struct{}
	Bool     bool
	Int      int64
	Float    float64
	Str      string
	// Bytes holds raw bytes in a string so that it stays comparable.
	Bytes string
)

// None is the only NoneType value.
var None = NoneType{}

// True and False are the two Bool values.
const (
	True  = Bool(true)
	False = Bool(false)
)

func (NoneType) Kind() Kind { return KindNone }
func (Bool) Kind() Kind     { return KindBool }
func (Int) Kind() Kind      { return KindInt }
func (Float) Kind() Kind    { return KindFloat }
func (Str) Kind() Kind      { return KindStr }
func (Bytes) Kind() Kind    { return KindBytes }

func (NoneType) TypeName() string { return KindNone.String() }
func (Bool) TypeName() string     { return KindBool.String() }
func (Int) TypeName() string      { return KindInt.String() }
func (Float) TypeName() string    { return KindFloat.String() }
func (Str) TypeName() string      { return KindStr.String() }
func (Bytes) TypeName() string    { return KindBytes.String() }

// IsPrimitive reports whether v is a scalar.
func IsPrimitive(v Value) bool {
	return v != nil && v.Kind().IsPrimitive()
}

// AllPrimitive reports whether every element is a scalar.
func AllPrimitive(elems []Value) bool {
	for _, e := range elems {
		if !IsPrimitive(e) {
			return false
		}
	}
	return true
}

// FormatFloat renders f the way repr does: always with a fractional part or exponent.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'N' || c == 'I' {
			return s
		}
	}
	return s + ".0"
}
