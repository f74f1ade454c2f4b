package convert_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"capsule/internal/convert"
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/interp"
	"capsule/internal/registry"
	"capsule/internal/testkit"
	"capsule/internal/value"
	"capsule/internal/walker"
	"capsule/internal/wire"
)

// roundTrip captures the global name of src, ships it through the wire
// format and rebuilds it in a fresh interpreter.
func roundTrip(t *testing.T, src string, modules map[string]string, name string) (value.Value, *convert.Converter) {
	t.Helper()
	mods := make(map[string][]byte, len(modules))
	for k, v := range modules {
		mods[k] = []byte(v)
	}
	in := interp.New(interp.Options{Stdout: &bytes.Buffer{}, Modules: mods})
	in.Builtins().Attrs.Set("ghost", &value.Native{Type: "socket"})
	mod, err := in.RunSource("main.py", []byte(src))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	v, ok := mod.Attrs.Get(name)
	if !ok {
		t.Fatalf("global %s not set", name)
	}
	reg := registry.New(nil)
	w := walker.New(reg, walker.Options{Files: in.Files(), Builtins: in.Builtins()})
	root, err := w.Walk(v)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	env, err := wire.Export(context.Background(), reg, root)
	if err != nil {
		t.Fatal(err)
	}
	data, err := env.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	env, err = wire.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	remote, err := wire.Import(env)
	if err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckClosure(remote, env.Root); err != nil {
		t.Fatal(err)
	}
	c := convert.New(remote, convert.Options{Interp: interp.New(interp.Options{Stdout: &bytes.Buffer{}})})
	out, err := c.Convert(env.Root)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return out, c
}

func call(t *testing.T, c *convert.Converter, fn value.Value, args ...value.Value) value.Value {
	t.Helper()
	v, err := c.Interp().Call(fn, args, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	return v
}

func TestAcyclicContainersRoundTrip(t *testing.T) {
	src := `x = {"a": [1, 2.5, "s", b"by"], "t": (None, True, -3), 3: [[1], {}], "u": "héllo"}`
	out, _ := roundTrip(t, src+"\n", nil, "x")
	want := `{'a': [1, 2.5, 's', b'by'], 't': (None, True, -3), 3: [[1], {}], 'u': 'héllo'}`
	if got := value.Repr(out); got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestClosureOverModuleAttribute(t *testing.T) {
	src := `import b
a = 1
def f():
    return a + b.c
`
	fn, c := roundTrip(t, src, map[string]string{"b": "c = 2\n"}, "f")
	if got := call(t, c, fn); got != value.Int(3) {
		t.Fatalf("f() = %s", value.Repr(got))
	}
}

func TestSameLineDefinitionsKeepTheirOwnBodies(t *testing.T) {
	src := `pair = (lambda: 1, lambda: 2)
second = pair[1]
mk = lambda: lambda: 42
inner = mk()
def h(): return lambda: 7
fromdef = h()
`
	for name, want := range map[string]value.Value{"second": value.Int(2), "inner": value.Int(42), "fromdef": value.Int(7)} {
		fn, c := roundTrip(t, src, nil, name)
		if got := call(t, c, fn); got != want {
			t.Fatalf("%s() = %s, want %s", name, value.Repr(got), value.Repr(want))
		}
	}
}

func TestMutualRecursionRebuildsBothFunctions(t *testing.T) {
	src := `def f(n):
    return 0 if n == 0 else g(n - 1) + 1
def g(n):
    return f(n)
`
	fv, c := roundTrip(t, src, nil, "f")
	f := fv.(*value.Function)
	g, ok := f.Chains["g"].(*value.Function)
	if !ok || g.Name != "g" {
		t.Fatalf("f.g = %#v", f.Chains["g"])
	}
	if g.Chains["f"] != value.Value(f) {
		t.Fatal("g does not call the rebuilt f")
	}
	if got := call(t, c, f, value.Int(4)); got != value.Int(4) {
		t.Fatalf("f(4) = %s", value.Repr(got))
	}
}

func TestSelfRecursion(t *testing.T) {
	src := `def fact(n):
    return 1 if n <= 1 else n * fact(n - 1)
`
	fn, c := roundTrip(t, src, nil, "fact")
	if got := call(t, c, fn, value.Int(5)); got != value.Int(120) {
		t.Fatalf("fact(5) = %s", value.Repr(got))
	}
}

func TestClassesInstancesAndMethods(t *testing.T) {
	src := `class Base:
    def scale(self):
        return 10
class Point(Base):
    def __init__(self, x, y):
        self.x = x
        self.y = y
    def norm(self):
        return (abs(self.x) + abs(self.y)) * self.scale()
p = Point(1, -2)
m = p.norm
`
	m, c := roundTrip(t, src, nil, "m")
	bm, ok := m.(*value.BoundMethod)
	if !ok {
		t.Fatalf("m = %#v", m)
	}
	if bm.Self.Class.Name != "Point" || len(bm.Self.Class.Bases) != 1 {
		t.Fatalf("class = %s bases %d", bm.Self.Class.Name, len(bm.Self.Class.Bases))
	}
	if got := call(t, c, m); got != value.Int(30) {
		t.Fatalf("m() = %s", value.Repr(got))
	}
}

func TestCyclicInstances(t *testing.T) {
	src := `class Node:
    def __init__(self, name):
        self.name = name
        self.peer = None
a = Node("a")
b = Node("b")
a.peer = b
b.peer = a
`
	out, c := roundTrip(t, src, nil, "a")
	a := out.(*value.Instance)
	peer, _ := a.Attrs.Get("peer")
	back, _ := peer.(*value.Instance).Attrs.Get("peer")
	if back != value.Value(a) {
		t.Fatal("a.peer.peer is not a")
	}
	names := c.BundleNames()
	if len(names) != 2 || !strings.HasPrefix(names[0], "instance_") {
		t.Fatalf("bundle = %v", names)
	}
	if v, ok := c.Bundle(names[0]); !ok || (v != value.Value(a) && v != peer) {
		t.Fatalf("bundle member %s = %v", names[0], v)
	}
}

func TestUnconvertibleDegrades(t *testing.T) {
	out, c := roundTrip(t, "t = (1, ghost, 2)\n", nil, "t")
	tup := out.(*value.Tuple)
	if len(tup.Elems) != 3 || tup.Elems[0] != value.Int(1) || tup.Elems[2] != value.Int(2) {
		t.Fatalf("t = %s", value.Repr(out))
	}
	u, ok := tup.Elems[1].(*value.Unconvertible)
	if !ok {
		t.Fatalf("middle = %#v", tup.Elems[1])
	}
	if _, err := c.Interp().Call(u, nil, nil); !diag.IsCode(err, diag.RunUnconvertible) {
		t.Fatalf("call placeholder: %v", err)
	}
}

func TestScopedBlockBecomesFunction(t *testing.T) {
	src := `def f(base):
    total = 1
    with ctx:
        total = total + base * scale
`
	in := interp.New(interp.Options{})
	in.Files().AddVirtual("blk.py", []byte(src))
	globals := value.NewModule("blk", "blk.py")
	globals.Attrs.Set("scale", value.Int(3))
	reg := registry.New(nil)
	w := walker.New(reg, walker.Options{Files: in.Files(), Builtins: in.Builtins()})
	id, err := w.Walk(&value.ScopedBlock{
		File: "blk.py", Line: 3,
		Bound:   map[string]value.Value{"base": value.Int(2), "total": value.Int(1)},
		Globals: globals,
	})
	if err != nil {
		t.Fatal(err)
	}
	c := convert.New(reg, convert.Options{})
	fn, err := c.Convert(id)
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Interp().Call(fn, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	total, ok, _ := out.(*value.Dict).Get(value.Str("total"))
	if !ok || total != value.Int(7) {
		t.Fatalf("vars = %s", value.Repr(out))
	}
}

func TestSelfReferencingContainerRejected(t *testing.T) {
	reg := registry.New(nil)
	id, err := reg.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.DefineList(id, []defs.ObjectID{id}); err != nil {
		t.Fatal(err)
	}
	_, err = convert.New(reg, convert.Options{}).Convert(id)
	if !diag.IsCode(err, diag.CapSelfReferencingContainer) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoteReferences(t *testing.T) {
	reg := registry.New(nil)
	id, _ := reg.Allocate()
	if err := reg.DefineRemoteObject(id, "models.weights"); err != nil {
		t.Fatal(err)
	}
	if _, err := convert.New(reg, convert.Options{}).Convert(id); !diag.IsCode(err, diag.CnvRemoteMissing) {
		t.Fatalf("err = %v", err)
	}
	weights := value.NewList(value.Float(0.5))
	c := convert.New(reg, convert.Options{Remote: convert.RemoteMap{"models.weights": weights}})
	v, err := c.Convert(id)
	if err != nil || v != value.Value(weights) {
		t.Fatalf("v = %v, err = %v", v, err)
	}
}

func TestExceptionRoundTrip(t *testing.T) {
	out, _ := roundTrip(t, "e = ValueError(\"bad\", 3)\n", nil, "e")
	exc, ok := out.(*value.Exception)
	if !ok || exc.Type.Name != "ValueError" || len(exc.Args) != 2 {
		t.Fatalf("e = %#v", out)
	}
}
