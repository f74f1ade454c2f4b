package walker_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/graph"
	"capsule/internal/interp"
	"capsule/internal/purity"
	"capsule/internal/registry"
	"capsule/internal/testkit"
	"capsule/internal/value"
	"capsule/internal/walker"
)

type fixture struct {
	in  *interp.Interp
	mod *value.Module
	reg *registry.Registry
	bag *diag.Bag
	w   *walker.Walker
}

func setup(t *testing.T, src string, modules map[string]string, tweak func(*walker.Options)) *fixture {
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
	reg := registry.New(nil)
	bag := diag.NewBag(10)
	opts := walker.Options{
		Files:    in.Files(),
		Builtins: in.Builtins(),
		Purity:   purity.Default(),
		Reporter: diag.BagReporter{Bag: bag},
	}
	if tweak != nil {
		tweak(&opts)
	}
	return &fixture{in: in, mod: mod, reg: reg, bag: bag, w: walker.New(reg, opts)}
}

func (f *fixture) global(t *testing.T, name string) value.Value {
	t.Helper()
	v, ok := f.mod.Attrs.Get(name)
	if !ok {
		t.Fatalf("global %s not set", name)
	}
	return v
}

func (f *fixture) walk(t *testing.T, name string) defs.ObjectID {
	t.Helper()
	id, err := f.w.Walk(f.global(t, name))
	if err != nil {
		t.Fatalf("walk %s: %v", name, err)
	}
	return id
}

func (f *fixture) def(t *testing.T, id defs.ObjectID) defs.Definition {
	t.Helper()
	d, err := f.reg.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestWalkIsIdempotent(t *testing.T) {
	f := setup(t, "d = {'k': [1, 2]}\npair = (d, d)\n", nil, nil)
	first := f.walk(t, "d")
	n := f.reg.Store().Len()
	if again := f.walk(t, "d"); again != first {
		t.Fatalf("second walk gave %s, want %s", again, first)
	}
	if f.reg.Store().Len() != n {
		t.Fatalf("second walk wrote definitions")
	}
	tup := f.def(t, f.walk(t, "pair")).(*defs.Tuple)
	if tup.Members[0] != first || tup.Members[1] != first {
		t.Fatalf("shared dict captured twice: %v", tup.Members)
	}
}

func TestPackingPrimitiveSequences(t *testing.T) {
	src := "xs = [1, 2.5, 'a', None]\nys = [1, [2]]\n"
	f := setup(t, src, nil, nil)
	p, ok := f.def(t, f.walk(t, "xs")).(*defs.Primitive)
	if !ok || p.Shape != defs.ShapeList || len(p.Items) != 4 {
		t.Fatalf("xs = %#v", p)
	}
	if _, ok := f.def(t, f.walk(t, "ys")).(*defs.List); !ok {
		t.Fatalf("nested list was packed")
	}

	f = setup(t, src, nil, func(o *walker.Options) { o.NoPacking = true })
	l, ok := f.def(t, f.walk(t, "xs")).(*defs.List)
	if !ok || len(l.Members) != 4 {
		t.Fatalf("xs without packing = %#v", l)
	}
}

func TestSignedZerosKeepSeparateIDs(t *testing.T) {
	f := setup(t, "", nil, func(o *walker.Options) { o.NoPacking = true })
	zero, negZero := value.Float(0), value.Float(math.Copysign(0, -1))
	id, err := f.w.Walk(value.NewList(zero, negZero, zero))
	if err != nil {
		t.Fatal(err)
	}
	l, ok := f.def(t, id).(*defs.List)
	if !ok || len(l.Members) != 3 {
		t.Fatalf("list = %#v", f.def(t, id))
	}
	if l.Members[0] == l.Members[1] || l.Members[0] != l.Members[2] {
		t.Fatalf("members = %v", l.Members)
	}
	p, ok := f.def(t, l.Members[1]).(*defs.Primitive)
	if !ok || !math.Signbit(p.Items[0].Float) {
		t.Fatalf("-0.0 = %#v", f.def(t, l.Members[1]))
	}
}

func TestClosureChainsResolveToValues(t *testing.T) {
	src := `import b
a = 1
def f():
    return a + b.c
`
	f := setup(t, src, map[string]string{"b": "c = 2\nd = 3\n"}, nil)
	fn := f.def(t, f.walk(t, "f")).(*defs.Function)
	if len(fn.Chains) != 2 {
		t.Fatalf("chains = %v", fn.Chains)
	}
	want := map[string]value.Value{"a": value.Int(1), "b.c": value.Int(2)}
	for key, v := range want {
		id, ok := fn.Chains[key]
		if !ok {
			t.Fatalf("chain %s missing from %v", key, fn.Chains)
		}
		p := f.def(t, id).(*defs.Primitive)
		got, err := p.Value()
		if err != nil || got != v {
			t.Fatalf("%s = %v (%v), want %v", key, got, err, v)
		}
	}
	src2 := f.def(t, fn.SourceFile).(*defs.SourceFile)
	if src2.Path != "main.py" || fn.Line != 3 {
		t.Fatalf("source = %s:%d", src2.Path, fn.Line)
	}
}

func TestMissingNamespaceAttribute(t *testing.T) {
	src := `import b
def f():
    return b.zz
`
	f := setup(t, src, map[string]string{"b": "c = 2\n"}, nil)
	_, err := f.w.Walk(f.global(t, "f"))
	if !diag.IsCode(err, diag.CapNamespaceAttributeMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestUnresolvedFreeVariableCarriesFrames(t *testing.T) {
	src := `def inner():
    return missing
def outer():
    return inner()
`
	f := setup(t, src, nil, nil)
	_, err := f.w.Walk(f.global(t, "outer"))
	de, ok := diag.AsError(err)
	if !ok || de.Code != diag.CapUnresolvedFreeVariable {
		t.Fatalf("err = %v", err)
	}
	if de.Pos.Line != 2 || de.Pos.Path != "main.py" {
		t.Fatalf("pos = %+v", de.Pos)
	}
	if len(de.Trace) != 2 || de.Trace[0].Name != "inner" || de.Trace[1].Name != "outer" {
		t.Fatalf("trace = %+v", de.Trace)
	}
}

func TestMutualRecursionFormsOneComponent(t *testing.T) {
	src := `def f(n):
    return 0 if n == 0 else g(n - 1)
def g(n):
    return f(n)
`
	f := setup(t, src, nil, nil)
	fid := f.walk(t, "f")
	gid := f.walk(t, "g")
	if f.def(t, fid).(*defs.Function).Chains["g"] != gid {
		t.Fatalf("f does not point at g")
	}
	if f.def(t, gid).(*defs.Function).Chains["f"] != fid {
		t.Fatalf("g does not point at f")
	}
	g, err := f.reg.DependencyGraph(fid)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, c := range graph.Components(g) {
		if len(c) == 2 && c[0] == fid && c[1] == gid {
			found = true
		}
	}
	if !found {
		t.Fatalf("no {f, g} component in %v", graph.Components(g))
	}
	if err := testkit.CheckClosure(f.reg, fid); err != nil {
		t.Fatal(err)
	}
}

func TestSelfReferencingListFailsFast(t *testing.T) {
	f := setup(t, "l = [1]\nl.append(l)\n", nil, nil)
	done := make(chan error, 1)
	go func() {
		_, err := f.w.Walk(f.global(t, "l"))
		done <- err
	}()
	select {
	case err := <-done:
		if !diag.IsCode(err, diag.CapSelfReferencingContainer) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("walk did not terminate")
	}
}

func TestScopedBlockWithReturn(t *testing.T) {
	src := `def f():
    with ctx:
        x = 1
        return x
`
	f := setup(t, "pass\n", nil, nil)
	f.in.Files().AddVirtual("blk.py", []byte(src))
	_, err := f.w.Walk(&value.ScopedBlock{File: "blk.py", Line: 2, Globals: f.mod})
	de, ok := diag.AsError(err)
	if !ok || de.Code != diag.CapBadScopedBlock {
		t.Fatalf("err = %v", err)
	}
	if de.Pos.Line != 4 {
		t.Fatalf("line = %d, want 4", de.Pos.Line)
	}
}

func TestScopedBlockCapturesOuterNames(t *testing.T) {
	src := `scale = 3
def f(base):
    total = 0
    with ctx:
        total = total + base * scale
`
	f := setup(t, "pass\n", nil, nil)
	f.in.Files().AddVirtual("blk.py", []byte(src))
	globals := value.NewModule("blk", "blk.py")
	globals.Attrs.Set("scale", value.Int(3))
	b := &value.ScopedBlock{
		File:    "blk.py",
		Line:    4,
		Bound:   map[string]value.Value{"base": value.Int(2), "total": value.Int(0)},
		Globals: globals,
	}
	id, err := f.w.Walk(b)
	if err != nil {
		t.Fatal(err)
	}
	blk := f.def(t, id).(*defs.ScopedBlock)
	for _, key := range []string{"base", "scale", "total"} {
		if _, ok := blk.Chains[key]; !ok {
			t.Fatalf("chain %s missing from %v", key, blk.Chains)
		}
	}
}

func TestUnconvertibleMemberDegrades(t *testing.T) {
	f := setup(t, "t = (1, ghost, 2)\n", nil, nil)
	tup, ok := f.def(t, f.walk(t, "t")).(*defs.Tuple)
	if !ok || len(tup.Members) != 3 {
		t.Fatalf("t = %#v", tup)
	}
	if _, ok := f.def(t, tup.Members[1]).(*defs.Unconvertible); !ok {
		t.Fatalf("middle member = %#v", f.def(t, tup.Members[1]))
	}
	if !f.bag.HasWarnings() {
		t.Fatal("no warning reported")
	}
}

func TestSameLineLambdasRecordTheirColumn(t *testing.T) {
	f := setup(t, "pair = (lambda: 1, lambda: 2)\n", nil, nil)
	pair := f.global(t, "pair").(*value.Tuple)
	id, err := f.w.Walk(pair.Elems[1])
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := f.def(t, id).(*defs.Function)
	if !ok || fn.Site() != (defs.Site{Line: 1, Col: 20, Name: "<lambda>"}) {
		t.Fatalf("second lambda = %#v", f.def(t, id))
	}

	// No syntax node: the line alone names two lambdas.
	orphan := &value.Function{Name: "<lambda>", File: "main.py", Line: 1}
	id, err = f.w.Walk(orphan)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.def(t, id).(*defs.Unconvertible); !ok {
		t.Fatalf("orphan lambda = %#v", f.def(t, id))
	}
}

func TestReservedDefinitionsRejected(t *testing.T) {
	f := setup(t, `def __inline_remote(x):
    return x
def f(v):
    return __inline_remote(v)
class __inline_remote_cls:
    pass
`, nil, func(o *walker.Options) { o.Reserved = []string{"__inline_remote", "__inline_remote_cls"} })
	for _, name := range []string{"__inline_remote", "f", "__inline_remote_cls"} {
		_, err := f.w.Walk(f.global(t, name))
		if !diag.IsCode(err, diag.CapReservedNameUsed) {
			t.Fatalf("%s: want ReservedNameUsed, got %v", name, err)
		}
	}
}

func TestPureReplacement(t *testing.T) {
	f := setup(t, "pass\n", nil, nil)
	arr := &value.Native{Type: "array", Data: []float64{1, 2}}
	id, err := f.w.Walk(arr)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := f.def(t, id).(*defs.Primitive)
	if !ok || p.Shape != defs.ShapeList || len(p.Items) != 2 {
		t.Fatalf("array = %#v", f.def(t, id))
	}
	if again, _ := f.w.Walk(arr); again != id {
		t.Fatalf("replacement not memoized")
	}
}

func TestClassesAndInstances(t *testing.T) {
	src := `class Base:
    kind = 'base'
class Point(Base):
    def __init__(self, x, y):
        self.x = x
        self.y = y
    def norm(self):
        return abs(self.x) + abs(self.y)
p = Point(1, -2)
m = p.norm
`
	f := setup(t, src, nil, nil)
	inst := f.def(t, f.walk(t, "p")).(*defs.ClassInstance)
	cls := f.def(t, inst.Class).(*defs.Class)
	if len(cls.Bases) != 1 {
		t.Fatalf("bases = %v", cls.Bases)
	}
	if _, ok := inst.Members["x"]; !ok {
		t.Fatalf("members = %v", inst.Members)
	}
	meth := f.def(t, f.walk(t, "m")).(*defs.InstanceMethod)
	if meth.Instance != f.walk(t, "p") || meth.Method != "norm" {
		t.Fatalf("method = %+v", meth)
	}
	if err := testkit.CheckClosure(f.reg, f.walk(t, "m")); err != nil {
		t.Fatal(err)
	}
}

func TestDepthLimit(t *testing.T) {
	f := setup(t, "x = [[[[1]]]]\n", nil, func(o *walker.Options) { o.MaxDepth = 2 })
	if _, err := f.w.Walk(f.global(t, "x")); !diag.IsCode(err, diag.CapDepthExceeded) {
		t.Fatalf("err = %v", err)
	}
}
