package interp_test

import (
	"bytes"
	"strings"
	"testing"

	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/interp"
	"capsule/internal/parser"
	"capsule/internal/value"
)

func run(t *testing.T, src string) *value.Module {
	t.Helper()
	in := interp.New(interp.Options{Stdout: &bytes.Buffer{}})
	mod, err := in.RunSource("main.py", []byte(src))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return mod
}

func global(t *testing.T, mod *value.Module, name string) value.Value {
	t.Helper()
	v, ok := mod.Attrs.Get(name)
	if !ok {
		t.Fatalf("global %s not set", name)
	}
	return v
}

func TestArithmeticAndContainers(t *testing.T) {
	src := `
a = 7 // 2 + 7 % 3 - 2 ** 3
b = -7 // 2
c = [x * x for x in range(5) if x % 2 == 0]
d = {"k": (1, 2), 3: [4]}
e = d["k"][1] + len(c) + sum([1, 2, 3])
f = "ab" * 2 + str(1.5)
g = sorted([3, 1, 2], reverse=True)
h = 1 < 2 <= 2 and not (3 in [1, 2])
s = "a,b".split(",")
`
	mod := run(t, src)
	checks := map[string]string{
		"a": "-4", "b": "-4", "c": "[0, 4, 16]", "e": "11",
		"f": "'abab1.5'", "g": "[3, 2, 1]", "h": "True", "s": "['a', 'b']",
	}
	for name, want := range checks {
		if got := value.Repr(global(t, mod, name)); got != want {
			t.Errorf("%s = %s, want %s", name, got, want)
		}
	}
}

func TestClosuresSeeLaterAssignments(t *testing.T) {
	src := `
def outer():
    def get():
        return n
    n = 1
    first = get()
    n = 2
    return first, get()
r = outer()
`
	mod := run(t, src)
	if got := value.Repr(global(t, mod, "r")); got != "(1, 2)" {
		t.Fatalf("r = %s", got)
	}
}

func TestClassesAndMethods(t *testing.T) {
	src := `
class Base:
    kind = "base"
    def __init__(self, v):
        self.v = v
    def double(self):
        return self.v * 2

class Child(Base):
    def triple(self):
        return self.v * 3

c = Child(5)
m = c.double
r = (m(), c.triple(), c.kind, isinstance(c, Base))
`
	mod := run(t, src)
	if got := value.Repr(global(t, mod, "r")); got != "(10, 15, 'base', True)" {
		t.Fatalf("r = %s", got)
	}
	if _, ok := global(t, mod, "m").(*value.BoundMethod); !ok {
		t.Fatal("c.double is not a bound method")
	}
}

func TestRuntimeErrorTrace(t *testing.T) {
	src := `def inner(x):
    return x / 0

def outer():
    return inner(1)

outer()
`
	in := interp.New(interp.Options{})
	_, err := in.RunSource("boom.py", []byte(src))
	if !diag.IsCode(err, diag.RunError) {
		t.Fatalf("want RunError, got %v", err)
	}
	exc, ok := interp.ExceptionOf(err)
	if !ok || exc.Type != interp.ZeroDivisionError {
		t.Fatalf("exception = %v", exc)
	}
	de, _ := diag.AsError(err)
	if de.Pos.Line != 2 {
		t.Fatalf("error line = %d, want 2", de.Pos.Line)
	}
	if len(de.Trace) != 2 || de.Trace[0].Name != "inner" || de.Trace[1].Name != "outer" {
		t.Fatalf("trace = %+v", de.Trace)
	}
}

func TestUserExceptions(t *testing.T) {
	src := `class Oops(ValueError):
    pass

raise Oops("bad", 3)
`
	in := interp.New(interp.Options{})
	_, err := in.RunSource("exc.py", []byte(src))
	exc, ok := interp.ExceptionOf(err)
	if !ok || exc.Type != interp.ValueError || exc.Instance == nil {
		t.Fatalf("exception = %+v (%v)", exc, err)
	}
	if got := exc.Message(); got != "('bad', 3)" {
		t.Fatalf("message = %s", got)
	}
}

func TestRecursionLimitAndGenerators(t *testing.T) {
	in := interp.New(interp.Options{MaxDepth: 50})
	_, err := in.RunSource("rec.py", []byte("def f(n):\n    return f(n + 1)\nf(0)\n"))
	if exc, ok := interp.ExceptionOf(err); !ok || exc.Type != interp.RecursionError {
		t.Fatalf("want RecursionError, got %v", err)
	}
	_, err = in.RunSource("gen.py", []byte("def g():\n    yield 1\ng()\n"))
	if exc, ok := interp.ExceptionOf(err); !ok || exc.Type != interp.TypeError {
		t.Fatalf("want TypeError, got %v", err)
	}
}

func TestImportAndIntrinsics(t *testing.T) {
	var out bytes.Buffer
	in := interp.New(interp.Options{
		Stdout:  &out,
		Modules: map[string][]byte{"helpers": []byte("scale = 3\ndef twice(x):\n    return 2 * x\n")},
	})
	src := `import helpers
import math as m
x = helpers.twice(helpers.scale)
y = m.floor(m.sqrt(17))
z = __inline_remote("dot", [1, 2], array([3, 4]))
print(x, y, z, sep="|")
`
	if _, err := in.RunSource("main.py", []byte(src)); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "6|4|11.0" {
		t.Fatalf("output = %q", got)
	}
	if v, ok := in.Singleton("math.sqrt"); !ok || v.(*value.Builtin).Name != "math.sqrt" {
		t.Fatalf("singleton lookup failed: %v", v)
	}
}

type fakeCapturer struct {
	block *value.ScopedBlock
}

func (*fakeCapturer) Kind() value.Kind { return value.KindNative }
func (*fakeCapturer) TypeName() string { return "fake" }
func (f *fakeCapturer) CaptureBlock(b *value.ScopedBlock) (map[string]value.Value, error) {
	f.block = b
	return map[string]value.Value{"total": value.Int(42), "unrelated": value.Int(1)}, nil
}

func TestWithBlockCapture(t *testing.T) {
	rc := &fakeCapturer{}
	in := interp.New(interp.Options{})
	in.Builtins().Attrs.Set("remote_ctx", rc)
	src := `def f(base):
    pending = None
    late = 0
    with remote_ctx:
        total = base + 1
    return total
r = f(10)
`
	mod, err := in.RunSource("with.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if got := value.Repr(global(t, mod, "r")); got != "42" {
		t.Fatalf("r = %s", got)
	}
	b := rc.block
	if b == nil || b.Line != 4 || b.Bound["base"] != value.Int(10) {
		t.Fatalf("block = %+v", b)
	}
	if strings.Join(b.Unbound, ",") != "total" {
		t.Fatalf("unbound = %v", b.Unbound)
	}
}

func TestBuildFunctionWithChains(t *testing.T) {
	src := "def area(r, k=scale):\n    return k * geo.pi * r * r + helper(r)\n"
	in := interp.New(interp.Options{})
	f := in.Files().Get(in.Files().AddVirtual("remote.py", []byte(src)))
	node, _, err := parser.ParseAt(f, 1, "area")
	if err != nil {
		t.Fatal(err)
	}
	helper := &value.Builtin{Name: "helper", Fn: func(_ value.Caller, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		return value.Int(100), nil
	}}
	fn := &value.Function{
		Node:    node.(*ast.FuncDef),
		File:    f.Path,
		Line:    1,
		Globals: value.NewModule("remote", f.Path),
		Chains: map[string]value.Value{
			"scale":  value.Int(2),
			"geo.pi": value.Int(3),
			"helper": helper,
		},
	}
	if err := in.BuildFunction(fn); err != nil {
		t.Fatal(err)
	}
	res, err := in.Call(fn, []value.Value{value.Int(1)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res != value.Int(106) {
		t.Fatalf("result = %s", value.Repr(res))
	}
}

func TestUnconvertibleFailsOnUse(t *testing.T) {
	in := interp.New(interp.Options{})
	in.Builtins().Attrs.Set("ghost", &value.Unconvertible{Reason: "socket"})
	mod, err := in.RunSource("ok.py", []byte("t = (1, ghost, 2)\n"))
	if err != nil {
		t.Fatalf("passing a placeholder around failed: %v", err)
	}
	if got := value.Repr(global(t, mod, "t")); !strings.Contains(got, "unconvertible") {
		t.Fatalf("t = %s", got)
	}
	_, err = in.RunSource("bad.py", []byte("ghost.read()\n"))
	if !diag.IsCode(err, diag.RunUnconvertible) {
		t.Fatalf("want RunUnconvertible, got %v", err)
	}
}
