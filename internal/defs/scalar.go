package defs

import (
	"encoding/base64"
	"fmt"

	"capsule/internal/value"
)

type ScalarType uint8

const (
	ScalarNone ScalarType = iota
	ScalarBool
	ScalarInt
	ScalarFloat
	ScalarStr
	ScalarBytes
)

func (t ScalarType) kind() Kind {
	switch t {
	case ScalarBool:
		return KindBool
	case ScalarInt:
		return KindInt
	case ScalarFloat:
		return KindFloat
	case ScalarStr, ScalarBytes:
		return KindStr
	}
	return KindNone
}

// Scalar is one primitive value. Str and Bytes travel base64-encoded in Text.
type Scalar struct {
	Type  ScalarType `msgpack:"t"`
	Bool  bool       `msgpack:"b,omitempty"`
	Int   int64      `msgpack:"i,omitempty"`
	Float float64    `msgpack:"f"`
	Text  string     `msgpack:"s,omitempty"`
}

// ScalarOf encodes a primitive runtime value.
func ScalarOf(v value.Value) (Scalar, bool) {
	switch x := v.(type) {
	case value.NoneType:
		return Scalar{Type: ScalarNone}, true
	case value.Bool:
		return Scalar{Type: ScalarBool, Bool: bool(x)}, true
	case value.Int:
		return Scalar{Type: ScalarInt, Int: int64(x)}, true
	case value.Float:
		return Scalar{Type: ScalarFloat, Float: float64(x)}, true
	case value.Str:
		return Scalar{Type: ScalarStr, Text: base64.StdEncoding.EncodeToString([]byte(x))}, true
	case value.Bytes:
		return Scalar{Type: ScalarBytes, Text: base64.StdEncoding.EncodeToString([]byte(x))}, true
	}
	return Scalar{}, false
}

// Value decodes the scalar back into a runtime value.
func (s Scalar) Value() (value.Value, error) {
	switch s.Type {
	case ScalarNone:
		return value.None, nil
	case ScalarBool:
		return value.Bool(s.Bool), nil
	case ScalarInt:
		return value.Int(s.Int), nil
	case ScalarFloat:
		return value.Float(s.Float), nil
	case ScalarStr, ScalarBytes:
		raw, err := base64.StdEncoding.DecodeString(s.Text)
		if err != nil {
			return nil, fmt.Errorf("bad base64 payload: %w", err)
		}
		if s.Type == ScalarBytes {
			return value.Bytes(raw), nil
		}
		return value.Str(raw), nil
	}
	return nil, fmt.Errorf("unknown scalar type %d", s.Type)
}

// PrimitiveOf packs a scalar, or a list or tuple of scalars, into one
// Primitive. pack=false limits it to scalars.
func PrimitiveOf(v value.Value, pack bool) (*Primitive, bool) {
	if s, ok := ScalarOf(v); ok {
		return &Primitive{Shape: ShapeScalar, Items: []Scalar{s}}, true
	}
	if !pack {
		return nil, false
	}
	var (
		elems []value.Value
		shape Shape
	)
	switch x := v.(type) {
	case *value.List:
		elems, shape = x.Elems, ShapeList
	case *value.Tuple:
		elems, shape = x.Elems, ShapeTuple
	default:
		return nil, false
	}
	if !value.AllPrimitive(elems) {
		return nil, false
	}
	items := make([]Scalar, len(elems))
	for i, e := range elems {
		items[i], _ = ScalarOf(e)
	}
	return &Primitive{Shape: shape, Items: items}, true
}

// Value rebuilds the runtime value. Packed lists come back as fresh lists.
func (p *Primitive) Value() (value.Value, error) {
	if p.Shape == ShapeScalar {
		if len(p.Items) != 1 {
			return nil, fmt.Errorf("scalar primitive with %d items", len(p.Items))
		}
		return p.Items[0].Value()
	}
	elems := make([]value.Value, len(p.Items))
	for i, s := range p.Items {
		v, err := s.Value()
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	if p.Shape == ShapeTuple {
		return value.NewTuple(elems...), nil
	}
	return value.NewList(elems...), nil
}
