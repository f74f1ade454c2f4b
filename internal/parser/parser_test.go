package parser_test

import (
	"testing"

	"capsule/internal/ast"
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/parser"
	"capsule/internal/source"
	"capsule/internal/token"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("test.py", []byte(src)))
	mod, err := parser.ParseFile(f, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return mod
}

func parseErr(t *testing.T, src string) *diag.Error {
	t.Helper()
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("test.py", []byte(src)))
	_, err := parser.ParseFile(f, parser.Options{})
	if err == nil {
		t.Fatalf("expected error for %q", src)
	}
	de, ok := diag.AsError(err)
	if !ok {
		t.Fatalf("expected *diag.Error, got %T", err)
	}
	return de
}

func TestParseFuncDefAndClass(t *testing.T) {
	src := "def f(a, b=2):\n    return a + b\n\nclass C(Base):\n    x = 1\n    def m(self):\n        return self.x\n"
	mod := parse(t, src)
	if len(mod.Body) != 2 {
		t.Fatalf("want 2 statements, got %d", len(mod.Body))
	}
	fn, ok := mod.Body[0].(*ast.FuncDef)
	if !ok || fn.Name != "f" {
		t.Fatalf("first stmt: %#v", mod.Body[0])
	}
	if got := fn.Params.Names(); len(got) != 2 || got[1] != "b" || fn.Params.List[1].Default == nil {
		t.Fatalf("params: %v", got)
	}
	ret := fn.Body[0].(*ast.Return)
	bin, ok := ret.Value.(*ast.BinOp)
	if !ok || bin.Op != token.Plus {
		t.Fatalf("return value: %#v", ret.Value)
	}
	cls := mod.Body[1].(*ast.ClassDef)
	if cls.Name != "C" || len(cls.Bases) != 1 || len(cls.Body) != 2 {
		t.Fatalf("class: %#v", cls)
	}
	if cls.Line() != 4 {
		t.Fatalf("class line = %d", cls.Line())
	}
}

func TestParseExpressions(t *testing.T) {
	mod := parse(t, "x = a.b.c(1, k=2)[0:n] if not y in z else lambda q: q ** 2\n")
	as := mod.Body[0].(*ast.Assign)
	ife, ok := as.Value.(*ast.IfExp)
	if !ok {
		t.Fatalf("want IfExp, got %T", as.Value)
	}
	sub := ife.Then.(*ast.Subscript)
	if _, ok := sub.Index.(*ast.Slice); !ok {
		t.Fatalf("want slice index, got %T", sub.Index)
	}
	call := sub.X.(*ast.Call)
	if got := ast.DottedPath(call.Fn); len(got) != 3 || got[2] != "c" {
		t.Fatalf("dotted path = %v", got)
	}
	if len(call.Keywords) != 1 || call.Keywords[0].Name != "k" {
		t.Fatalf("keywords: %#v", call.Keywords)
	}
	not := ife.Cond.(*ast.UnaryOp)
	if cmp := not.X.(*ast.Compare); cmp.Ops[0] != ast.CmpIn {
		t.Fatalf("compare op = %v", cmp.Ops[0])
	}
	if _, ok := ife.Else.(*ast.Lambda); !ok {
		t.Fatalf("want lambda, got %T", ife.Else)
	}
}

func TestParseCollectionsAndComparisons(t *testing.T) {
	mod := parse(t, "t = (1, 'a' 'b', b'x')\nd = {1: [i for i in r if i], 2: ()}\nc = a is not None and b not in s\n")
	tup := mod.Body[0].(*ast.Assign).Value.(*ast.TupleExpr)
	if len(tup.Elts) != 3 {
		t.Fatalf("tuple len = %d", len(tup.Elts))
	}
	if s := tup.Elts[1].(*ast.Constant); s.Kind != ast.ConstStr || s.Value != "ab" {
		t.Fatalf("concat: %#v", s)
	}
	if b := tup.Elts[2].(*ast.Constant); b.Kind != ast.ConstBytes {
		t.Fatalf("bytes kind = %v", b.Kind)
	}
	d := mod.Body[1].(*ast.Assign).Value.(*ast.DictExpr)
	if _, ok := d.Values[0].(*ast.ListComp); !ok {
		t.Fatalf("want listcomp, got %T", d.Values[0])
	}
	boolOp := mod.Body[2].(*ast.Assign).Value.(*ast.BoolOp)
	if boolOp.Values[0].(*ast.Compare).Ops[0] != ast.CmpIsNot || boolOp.Values[1].(*ast.Compare).Ops[0] != ast.CmpNotIn {
		t.Fatalf("compare ops wrong: %#v", boolOp)
	}
}

func TestParseWithAndFor(t *testing.T) {
	mod := parse(t, "with capture() as c:\n    for k, v in items:\n        pass\n")
	w := mod.Body[0].(*ast.With)
	if w.Var == nil {
		t.Fatal("with var missing")
	}
	f := w.Body[0].(*ast.For)
	if tup, ok := f.Target.(*ast.TupleExpr); !ok || len(tup.Elts) != 2 {
		t.Fatalf("for target: %#v", f.Target)
	}
}

func TestParseAtLine(t *testing.T) {
	src := "x = 1\n\ndef outer():\n    g = lambda: 3\n    def inner():\n        pass\n    return inner\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("test.py", []byte(src)))

	n, _, err := parser.ParseAt(f, 5, "inner")
	if err != nil {
		t.Fatal(err)
	}
	if fn, ok := n.(*ast.FuncDef); !ok || fn.Name != "inner" {
		t.Fatalf("got %#v", n)
	}
	n, _, err = parser.ParseAt(f, 4, "<lambda>")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(*ast.Lambda); !ok {
		t.Fatalf("got %T", n)
	}
	_, _, err = parser.ParseAt(f, 1, "outer")
	if !diag.IsCode(err, diag.SynNoNodeAtLine) {
		t.Fatalf("want SynNoNodeAtLine, got %v", err)
	}
}

func TestParseSiteSeparatesSameLineDefinitions(t *testing.T) {
	src := "pair = (lambda: 1, lambda: 2)\nmk = lambda: lambda: 42\ndef h(): return lambda: 7\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("test.py", []byte(src)))

	_, _, err := parser.ParseAt(f, 1, "<lambda>")
	if !diag.IsCode(err, diag.SynAmbiguousSite) {
		t.Fatalf("want SynAmbiguousSite, got %v", err)
	}
	_, _, err = parser.ParseAt(f, 3, "")
	if !diag.IsCode(err, diag.SynAmbiguousSite) {
		t.Fatalf("def and lambda on one line: want SynAmbiguousSite, got %v", err)
	}

	tests := []struct {
		at   defs.Site
		want string
	}{
		{defs.Site{Line: 1, Col: 9, Name: "<lambda>"}, "1"},
		{defs.Site{Line: 1, Col: 20, Name: "<lambda>"}, "2"},
		{defs.Site{Line: 2, Col: 14, Name: "<lambda>"}, "42"},
		{defs.Site{Line: 3, Col: 17}, "7"},
	}
	for _, tt := range tests {
		n, _, err := parser.ParseSite(f, tt.at)
		if err != nil {
			t.Fatalf("%+v: %v", tt.at, err)
		}
		lam, ok := n.(*ast.Lambda)
		if !ok {
			t.Fatalf("%+v: got %T", tt.at, n)
		}
		if c, ok := lam.Body.(*ast.Constant); !ok || c.Value != tt.want {
			t.Fatalf("%+v: body %#v", tt.at, lam.Body)
		}
	}
	n, _, err := parser.ParseSite(f, defs.Site{Line: 3, Name: "h"})
	if fn, ok := n.(*ast.FuncDef); err != nil || !ok || fn.Name != "h" {
		t.Fatalf("def h: %#v %v", n, err)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
		line int
	}{
		{"missing colon", "def f()\n    pass\n", diag.SynExpectColon, 1},
		{"missing colon after class", "x = 1\nclass A\n    pass\n", diag.SynExpectColon, 2},
		{"dangling operator", "x = 1 +\ny = 2\n", diag.SynExpectExpression, 1},
		{"bad target", "x = 1\n1 = x\n", diag.SynBadAssignTarget, 2},
		{"unclosed", "x = (1,\n", diag.SynExpectExpression, 2},
		{"no block", "if x:\npass\n", diag.SynExpectIndent, 2},
		{"default order", "def f(a=1, b):\n    pass\n", diag.SynUnexpectedToken, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErr(t, tt.src)
			if err.Code != tt.code {
				t.Fatalf("code = %s, want %s (%v)", err.Code.ID(), tt.code.ID(), err)
			}
			if err.Pos.Line != tt.line {
				t.Fatalf("line = %d, want %d", err.Pos.Line, tt.line)
			}
		})
	}
}
