package transform_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"

	"capsule/internal/diag"
	"capsule/internal/interp"
	"capsule/internal/purity"
	"capsule/internal/transform"
	"capsule/internal/value"
)

func TestGoldenTree(t *testing.T) {
	d := value.NewDict()
	_ = d.Set(value.Str("a"), value.NewList(value.Int(1), value.Float(2.5)))
	_ = d.Set(value.Str("t"), value.NewTuple(value.Str("x"), value.None))
	res, err := transform.Transform(d, transform.Options{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.MarshalIndent(res.Tree(), "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "dict_tree", append(data, '\n'))
}

func TestEqualSubtreesStoredOnce(t *testing.T) {
	s := value.Str("abc")
	res, err := transform.Transform(value.NewList(s, s), transform.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Objects) != 2 {
		t.Fatalf("objects = %d", len(res.Objects))
	}
	// 20 + len("YWJj") for the string, 20 for the list.
	if res.Bytes != 44 {
		t.Fatalf("bytes = %d", res.Bytes)
	}

	res, err = transform.Transform(value.NewTuple(value.NewList(value.Int(1)), value.NewList(value.Int(1))), transform.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Objects) != 3 {
		t.Fatalf("objects = %d", len(res.Objects))
	}
	tup := res.Objects[res.Root]["tuple"].([]any)
	if tup[0] != tup[1] {
		t.Fatalf("equal lists hashed differently: %v", tup)
	}
}

func TestByteBudget(t *testing.T) {
	v := value.NewList(value.Str("abc"), value.Str("def"))
	_, err := transform.Transform(v, transform.Options{MaxBytes: 30})
	if !errors.Is(err, transform.ErrHalted) || !diag.IsCode(err, diag.CnvResultTooLarge) {
		t.Fatalf("err = %v", err)
	}
	if _, err := transform.Transform(v, transform.Options{MaxBytes: 68}); err != nil {
		t.Fatalf("exact budget: %v", err)
	}
}

func TestCyclicResult(t *testing.T) {
	l := value.NewList(value.Int(1))
	l.Elems = append(l.Elems, l)
	if _, err := transform.Transform(l, transform.Options{}); !diag.IsCode(err, diag.CnvCyclicResult) {
		t.Fatalf("err = %v", err)
	}
}

func TestNativeAndPlaceholderNodes(t *testing.T) {
	v := value.NewTuple(
		&value.Native{Type: "array", Data: []float64{1.5}},
		&value.Native{Type: "socket"},
		&value.Unconvertible{Reason: "file handle"},
		value.Float(math.Inf(1)),
	)
	res, err := transform.Transform(v, transform.Options{Purity: purity.Default()})
	if err != nil {
		t.Fatal(err)
	}
	elems := res.Tree().(map[string]any)["tuple"].([]any)
	arr := elems[0].(map[string]any)["list"].([]any)
	if len(arr) != 1 || arr[0].(map[string]any)["primitive"] != 1.5 {
		t.Fatalf("array = %v", elems[0])
	}
	if got := elems[1].(map[string]any)["untranslatable"]; got != "native socket" {
		t.Fatalf("socket = %v", got)
	}
	if got := elems[2].(map[string]any)["untranslatable"]; got != "file handle" {
		t.Fatalf("placeholder = %v", got)
	}
	if got := elems[3].(map[string]any); got["primitive"] != "+Inf" || got["float"] != true {
		t.Fatalf("inf = %v", got)
	}
}

func TestFunctionsAndInstances(t *testing.T) {
	src := `class Counter:
    def __init__(self):
        self.n = 2
    def get(self):
        return self.n
def make(k):
    unused = [k]
    def inner():
        return k
    return inner
def countdown(k):
    def step(n):
        return k if n == 0 else step(n - 1)
    return step
c = Counter()
m = c.get
f = make(7)
g = countdown(3)
`
	in := interp.New(interp.Options{Stdout: &bytes.Buffer{}})
	mod, err := in.RunSource("main.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	m, _ := mod.Attrs.Get("m")
	res, err := transform.Transform(m, transform.Options{})
	if err != nil {
		t.Fatal(err)
	}
	tree := res.Tree().(map[string]any)
	if tree["methodName"] != "get" {
		t.Fatalf("method = %v", tree)
	}
	inst := tree["boundMethodOn"].(map[string]any)
	n := inst["members"].(map[string]any)["n"].(map[string]any)
	if n["primitive"] != int64(2) {
		t.Fatalf("n = %v", n)
	}
	if loc := inst["classInstance"].(map[string]any)["classObject"].([]any); loc[0] != "main.py" || loc[1] != int64(1) {
		t.Fatalf("class location = %v", loc)
	}

	f, _ := mod.Attrs.Get("f")
	res, err = transform.Transform(f, transform.Options{})
	if err != nil {
		t.Fatal(err)
	}
	fn := res.Tree().(map[string]any)
	if loc := fn["functionInstance"].([]any); loc[1] != int64(8) {
		t.Fatalf("function location = %v", loc)
	}
	members := fn["members"].(map[string]any)
	if len(members) != 1 {
		t.Fatalf("members = %v, want only k", members)
	}
	if k := members["k"].(map[string]any); k["primitive"] != int64(7) {
		t.Fatalf("k = %v", k)
	}

	g, _ := mod.Attrs.Get("g")
	res, err = transform.Transform(g, transform.Options{})
	if err != nil {
		t.Fatalf("recursive closure: %v", err)
	}
	members = res.Tree().(map[string]any)["members"].(map[string]any)
	if _, ok := members["step"]; ok || len(members) != 1 {
		t.Fatalf("members = %v, want only k", members)
	}
}
