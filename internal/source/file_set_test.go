package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("mod.py", []byte("x = 1\n"), 0)
	if id1 != 0 {
		t.Fatalf("expected first FileID to be 0, got %d", id1)
	}
	id2 := fs.Add("mod.py", []byte("x = 2\n"), 0)
	if id2 != 1 {
		t.Fatalf("expected second FileID to be 1, got %d", id2)
	}

	latest, ok := fs.GetLatest("mod.py")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d,%v, want %d,true", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "x = 1\n" {
		t.Fatalf("old version content changed: %q", got)
	}
}

func TestAddVirtualLineIdx(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.py", []byte("a\nb\n"))
	file := fs.Get(id)

	expected := []uint32{1, 3}
	if len(file.LineIdx) != len(expected) {
		t.Fatalf("expected LineIdx length %d, got %d", len(expected), len(file.LineIdx))
	}
	for i, val := range expected {
		if file.LineIdx[i] != val {
			t.Fatalf("LineIdx[%d] = %d, want %d", i, file.LineIdx[i], val)
		}
	}
	if file.Flags&FileVirtual == 0 {
		t.Fatal("expected FileVirtual flag to be set")
	}
	if file.LineCount() != 2 {
		t.Fatalf("LineCount = %d, want 2", file.LineCount())
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("m.py", []byte("ab\ncd\n\nef"))

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{1, LineCol{1, 2}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{4, LineCol{2, 2}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
		{8, LineCol{4, 2}},
	}
	for _, tc := range cases {
		start, _ := fs.Resolve(Span{File: id, Start: tc.off, End: tc.off})
		if start != tc.want {
			t.Fatalf("offset %d: got %+v, want %+v", tc.off, start, tc.want)
		}
	}

	pos := fs.Position(Span{File: id, Start: 7, End: 9})
	if pos.Path != "m.py" || pos.Line != 4 {
		t.Fatalf("Position = %+v", pos)
	}
	if pos.String() != "m.py:4:1" {
		t.Fatalf("Position.String = %q", pos.String())
	}
}

func TestGetLineAndLineStart(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("m.py", []byte("first\nsecond\nthird")))

	if got := f.GetLine(2); got != "second" {
		t.Fatalf("GetLine(2) = %q", got)
	}
	if got := f.GetLine(3); got != "third" {
		t.Fatalf("GetLine(3) = %q", got)
	}
	if got := f.GetLine(4); got != "" {
		t.Fatalf("GetLine(4) = %q, want empty", got)
	}
	if off, ok := f.LineStart(3); !ok || off != 13 {
		t.Fatalf("LineStart(3) = %d,%v", off, ok)
	}
}

func TestEnsureLoadsOnceAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFx = 1\r\ny = 2\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	f1, err := fs.Ensure(path)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if string(f1.Content) != "x = 1\ny = 2\n" {
		t.Fatalf("content not normalized: %q", f1.Content)
	}
	if f1.Flags&FileHadBOM == 0 || f1.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %b", f1.Flags)
	}

	if err := os.WriteFile(path, []byte("changed\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f2, err := fs.Ensure(path)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if f2.ID != f1.ID || fs.Len() != 1 {
		t.Fatalf("Ensure reloaded a cached path")
	}

	fs.Forget(path)
	f3, err := fs.Ensure(path)
	if err != nil {
		t.Fatalf("Ensure after Forget: %v", err)
	}
	if string(f3.Content) != "changed\n" {
		t.Fatalf("Forget did not evict: %q", f3.Content)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("a.py", []byte("x = 1\n"))
	c := fs.Clone()
	c.AddVirtual("b.py", []byte("y = 2\n"))
	if _, ok := fs.GetByPath("b.py"); ok {
		t.Fatal("clone wrote into the original")
	}
	if f, ok := c.GetByPath("a.py"); !ok || string(f.Content) != "x = 1\n" {
		t.Fatal("clone lost a.py")
	}
}
