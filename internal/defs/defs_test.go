package defs

import (
	"slices"
	"testing"

	"capsule/internal/value"
)

func TestPrimitivePacking(t *testing.T) {
	v := value.NewTuple(value.Int(1), value.Str("héllo"), value.None, value.Float(2.5), value.Bytes("\x00\x01"))
	p, ok := PrimitiveOf(v, true)
	if !ok {
		t.Fatal("all-primitive tuple was not packed")
	}
	if p.Kind() != KindListOfPrimitives || p.Shape != ShapeTuple {
		t.Fatalf("kind = %s shape = %d", p.Kind(), p.Shape)
	}
	if p.Items[1].Text != "aMOpbGxv" {
		t.Fatalf("str payload = %q, want base64", p.Items[1].Text)
	}
	back, err := p.Value()
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(back, v) {
		t.Fatalf("round trip = %s", value.Repr(back))
	}
	if _, ok := back.(*value.Tuple); !ok {
		t.Fatalf("round trip type = %T", back)
	}

	if _, ok := PrimitiveOf(value.NewList(value.Int(1), value.NewList()), true); ok {
		t.Fatal("nested list should not pack")
	}
	if _, ok := PrimitiveOf(value.NewList(value.Int(1)), false); ok {
		t.Fatal("packing disabled but list packed")
	}
}

func TestScalarKinds(t *testing.T) {
	cases := []struct {
		v    value.Value
		want Kind
	}{
		{value.None, KindNone},
		{value.True, KindBool},
		{value.Int(3), KindInt},
		{value.Float(1), KindFloat},
		{value.Str("x"), KindStr},
	}
	for _, c := range cases {
		p, ok := PrimitiveOf(c.v, true)
		if !ok || p.Kind() != c.want {
			t.Errorf("%s: kind %v, want %v", value.Repr(c.v), p.Kind(), c.want)
		}
	}
}

func TestBadPayload(t *testing.T) {
	p := &Primitive{Items: []Scalar{{Type: ScalarStr, Text: "!!"}}}
	if _, err := p.Value(); err == nil {
		t.Fatal("expected base64 error")
	}
}

func TestDepsAreStable(t *testing.T) {
	fn := &Function{SourceFile: 9, Line: 3, Chains: map[string]ObjectID{"b.c": 4, "a": 2, "z": 7}}
	if got := fn.Deps(); !slices.Equal(got, []ObjectID{2, 4, 7, 9}) {
		t.Fatalf("function deps = %v", got)
	}
	cls := &Class{SourceFile: 1, Chains: map[string]ObjectID{"x": 5}, Bases: []ObjectID{3}}
	if got := cls.Deps(); !slices.Equal(got, []ObjectID{5, 1, 3}) {
		t.Fatalf("class deps = %v", got)
	}
	inst := &ClassInstance{Class: 8, Members: map[string]ObjectID{"y": 2, "x": 1}}
	if got := inst.Deps(); !slices.Equal(got, []ObjectID{8, 1, 2}) {
		t.Fatalf("instance deps = %v", got)
	}
	d := &Dict{Keys: []ObjectID{1, 2}, Values: []ObjectID{3, 4}}
	if got := d.Deps(); !slices.Equal(got, []ObjectID{1, 2, 3, 4}) {
		t.Fatalf("dict deps = %v", got)
	}
}

func TestEmptyCoversEveryKind(t *testing.T) {
	for k := KindNone; k <= KindWithBlock; k++ {
		d, err := Empty(k)
		if k == KindLong || k == KindPackedHomogenousData {
			if err == nil {
				t.Errorf("%s: reserved kind decoded", k)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", k, err)
		}
		if _, isPrim := d.(*Primitive); !isPrim && d.Kind() != k {
			t.Errorf("Empty(%s) gave %s", k, d.Kind())
		}
	}
	if _, err := Empty(99); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestIDConversion(t *testing.T) {
	if id, err := IDFromInt(42); err != nil || id != 42 {
		t.Fatalf("IDFromInt(42) = %v, %v", id, err)
	}
	if _, err := IDFromInt(-1); err == nil {
		t.Fatal("negative id accepted")
	}
	if _, err := IDFromInt(int64(1) << 40); err == nil {
		t.Fatal("overflowing id accepted")
	}
}
