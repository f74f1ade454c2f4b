package resolve_test

import (
	"testing"

	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/parser"
	"capsule/internal/resolve"
	"capsule/internal/source"
	"capsule/internal/value"
)

func parseDef(t *testing.T, src string, line int, name string) (ast.Node, *source.File) {
	t.Helper()
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("m.py", []byte(src)))
	node, _, err := parser.ParseAt(f, line, name)
	if err != nil {
		t.Fatal(err)
	}
	return node, f
}

func namespace(pairs ...any) *value.Module {
	m := value.NewModule("b", "b.py")
	for i := 0; i < len(pairs); i += 2 {
		m.Attrs.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return m
}

func TestResolveClosureAndNamespace(t *testing.T) {
	node, f := parseDef(t, "def f():\n    return a + b.c\n", 1, "f")
	globals := value.NewNamespace()
	globals.Set("b", namespace("c", value.Int(2)))
	sc := resolve.Scope{
		Closure: map[string]value.Value{"a": value.Int(1)},
		Globals: globals,
		Owner:   "f",
		File:    f,
	}
	got, err := resolve.New().Resolve(node, sc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("resolutions = %v", got)
	}
	if got["a"].Value != value.Int(1) || got["b.c"].Value != value.Int(2) {
		t.Fatalf("a=%v b.c=%v", got["a"].Value, got["b.c"].Value)
	}
	if chain := got["b.c"].Chain; len(chain) != 2 || chain[0] != "b" || chain[1] != "c" {
		t.Fatalf("b.c chain = %v", chain)
	}
}

func TestMissingNamespaceAttribute(t *testing.T) {
	node, f := parseDef(t, "def f():\n    return b.c\n", 1, "f")
	globals := value.NewNamespace()
	globals.Set("b", namespace("d", value.Int(2)))
	_, err := resolve.New().Resolve(node, resolve.Scope{Globals: globals, Owner: "f", File: f})
	if !diag.IsCode(err, diag.CapNamespaceAttributeMissing) {
		t.Fatalf("want NamespaceAttributeMissing, got %v", err)
	}
	de, _ := diag.AsError(err)
	if de.Pos.Line != 2 || de.Pos.Path != "m.py" {
		t.Fatalf("position = %v", de.Pos)
	}
}

func TestChainStopsAtNonNamespace(t *testing.T) {
	node, _ := parseDef(t, "def f():\n    return cfg.inner.value.deep\n", 1, "f")
	inner := &value.Instance{Attrs: value.NewNamespace()}
	globals := value.NewNamespace()
	globals.Set("cfg", namespace("inner", inner))
	got, err := resolve.New().Resolve(node, resolve.Scope{Globals: globals})
	if err != nil {
		t.Fatal(err)
	}
	res, ok := got["cfg.inner"]
	if !ok || len(got) != 1 {
		t.Fatalf("resolutions = %v", got)
	}
	if res.Value != inner {
		t.Fatalf("cfg.inner resolved to %v", res.Value)
	}
}

func TestSearchOrder(t *testing.T) {
	node, _ := parseDef(t, "def f():\n    return x + len(y) + geo.pi\n", 1, "f")
	globals := value.NewNamespace()
	globals.Set("x", value.Int(10))
	globals.Set("y", value.Int(20))
	builtins := value.NewNamespace()
	builtins.Set("len", &value.Builtin{Name: "len"})
	builtins.Set("x", value.Int(99))
	sc := resolve.Scope{
		Closure:  map[string]value.Value{"x": value.Int(1)},
		Chains:   map[string]value.Value{"geo.pi": value.Float(3.14)},
		Globals:  globals,
		Builtins: builtins,
	}
	got, err := resolve.New().Resolve(node, sc)
	if err != nil {
		t.Fatal(err)
	}
	if got["x"].Value != value.Int(1) {
		t.Fatalf("closure should win, got %v", got["x"].Value)
	}
	if _, ok := got["len"].Value.(*value.Builtin); !ok {
		t.Fatalf("len = %v", got["len"].Value)
	}
	if got["geo.pi"].Value != value.Float(3.14) {
		t.Fatalf("geo.pi = %v", got["geo.pi"].Value)
	}
}

func TestUnresolved(t *testing.T) {
	node, _ := parseDef(t, "def outer():\n    def f():\n        return nowhere\n    return f\n", 2, "f")
	_, err := resolve.New().Resolve(node, resolve.Scope{Owner: "f"})
	if !diag.IsCode(err, diag.CapUnresolvedFreeVariable) {
		t.Fatalf("want UnresolvedFreeVariable, got %v", err)
	}
	de, _ := diag.AsError(err)
	if de.Pos.Line != 3 {
		t.Fatalf("line = %d, want 3", de.Pos.Line)
	}
}

func TestReservedNames(t *testing.T) {
	node, _ := parseDef(t, "def f(v):\n    return __inline_remote(\"norm\", v)\n", 1, "f")
	got, err := resolve.New().Resolve(node, resolve.Scope{})
	if err != nil {
		t.Fatalf("direct call of reserved name: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("reserved name resolved: %v", got)
	}

	node, _ = parseDef(t, "def f():\n    g = __inline_remote\n    return g\n", 1, "f")
	_, err = resolve.New().Resolve(node, resolve.Scope{})
	if !diag.IsCode(err, diag.CapReservedNameUsed) {
		t.Fatalf("want ReservedNameUsed, got %v", err)
	}

	node, _ = parseDef(t, "def f():\n    return magic()\n", 1, "f")
	if _, err := resolve.New("magic").Resolve(node, resolve.Scope{}); err != nil {
		t.Fatalf("custom reserved name: %v", err)
	}
}

func TestReservedNamesCannotBeBound(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		def  string
	}{
		{"def name", "def __inline_remote(x):\n    return x\n", 1, "__inline_remote"},
		{"local", "def f():\n    __inline_remote = 1\n    return __inline_remote\n", 1, "f"},
		{"parameter", "def f(__inline_remote):\n    return 1\n", 1, "f"},
		{"nested lambda", "def f():\n    return lambda __inline_remote: 1\n", 1, "f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, f := parseDef(t, tt.src, tt.line, tt.def)
			_, err := resolve.New().Resolve(node, resolve.Scope{File: f})
			if !diag.IsCode(err, diag.CapReservedNameUsed) {
				t.Fatalf("want ReservedNameUsed, got %v", err)
			}
		})
	}
}

func TestShadowedReservedCallee(t *testing.T) {
	node, _ := parseDef(t, "def f(v):\n    return __inline_remote(v)\n", 1, "f")
	globals := value.NewNamespace()
	globals.Set("__inline_remote", value.Int(0))
	_, err := resolve.New().Resolve(node, resolve.Scope{Globals: globals})
	if !diag.IsCode(err, diag.CapReservedNameUsed) {
		t.Fatalf("want ReservedNameUsed, got %v", err)
	}
}

func TestUnboundCellHidesGlobal(t *testing.T) {
	node, _ := parseDef(t, "def f():\n    return late\n", 1, "f")
	globals := value.NewNamespace()
	globals.Set("late", value.Int(1))
	_, err := resolve.New().Resolve(node, resolve.Scope{
		Closure: map[string]value.Value{"late": nil},
		Globals: globals,
	})
	if !diag.IsCode(err, diag.CapUnresolvedFreeVariable) {
		t.Fatalf("want UnresolvedFreeVariable, got %v", err)
	}
}
