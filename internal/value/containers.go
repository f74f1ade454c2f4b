package value

import (
	"fmt"
	"math"
	"strings"
)

type (
	List struct {
		Elems []Value
	}

	// Tuple is a pointer so that two equal tuples keep distinct identities.
	Tuple struct {
		Elems []Value
	}

	// Dict keeps insertion order. Keys must be hashable.
	Dict struct {
		keys  []Value
		vals  []Value
		index map[any]int
	}
)

func NewList(elems ...Value) *List   { return &List{Elems: elems} }
func NewTuple(elems ...Value) *Tuple { return &Tuple{Elems: elems} }
func NewDict() *Dict                 { return &Dict{index: make(map[any]int)} }

func (*List) Kind() Kind  { return KindList }
func (*Tuple) Kind() Kind { return KindTuple }
func (*Dict) Kind() Kind  { return KindDict }

func (*List) TypeName() string  { return KindList.String() }
func (*Tuple) TypeName() string { return KindTuple.String() }
func (*Dict) TypeName() string  { return KindDict.String() }

// Set inserts or replaces the entry for k.
func (d *Dict) Set(k, v Value) error {
	h, err := HashKey(k)
	if err != nil {
		return err
	}
	if i, ok := d.index[h]; ok {
		d.vals[i] = v
		return nil
	}
	d.index[h] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	return nil
}

// Get looks k up. An unhashable key is reported as an error.
func (d *Dict) Get(k Value) (Value, bool, error) {
	h, err := HashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[h]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value { return append([]Value(nil), d.keys...) }

// Values returns the values in insertion order.
func (d *Dict) Values() []Value { return append([]Value(nil), d.vals...) }

// Items calls f for each entry in insertion order until f returns false.
func (d *Dict) Items(f func(k, v Value) bool) {
	for i := range d.keys {
		if !f(d.keys[i], d.vals[i]) {
			return
		}
	}
}

// UnhashableError reports a key that cannot be used in a dict.
type UnhashableError struct {
	TypeName string
}

func (e *UnhashableError) Error() string {
	return fmt.Sprintf("unhashable type: '%s'", e.TypeName)
}

// HashKey maps a hashable value to a Go map key. Numbers that compare equal
// (1, 1.0, True) share a key. Pointer kinds other than list and dict hash by identity.
func HashKey(v Value) (any, error) {
	switch x := v.(type) {
	case NoneType, Str:
		return x, nil
	case Bytes:
		return struct{ b string }{string(x)}, nil
	case Bool:
		if x {
			return Int(1), nil
		}
		return Int(0), nil
	case Int:
		return x, nil
	case Float:
		f := float64(x)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return Int(int64(f)), nil
		}
		return x, nil
	case *Tuple:
		var b strings.Builder
		b.WriteByte('(')
		for _, e := range x.Elems {
			k, err := HashKey(e)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "%T:%v,", k, k)
		}
		b.WriteByte(')')
		return struct{ tuple string }{b.String()}, nil
	case *List, *Dict:
		return nil, &UnhashableError{TypeName: v.TypeName()}
	}
	return v, nil
}
