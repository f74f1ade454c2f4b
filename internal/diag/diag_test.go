package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"capsule/internal/source"
)

func TestBagLimitAndSort(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(New(SevWarning, CapUnconvertible, source.Span{File: 0, Start: 9, End: 10}, "late")) {
		t.Fatal("first Add rejected")
	}
	bag.Add(New(SevError, CapSelfReferencingContainer, source.Span{File: 0, Start: 1, End: 2}, "early"))
	if bag.Add(New(SevInfo, CapInfo, source.Span{}, "dropped")) {
		t.Fatal("Add past limit accepted")
	}
	bag.Sort()
	if got := bag.Items()[0].Message; got != "early" {
		t.Fatalf("first after sort = %q", got)
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatal("expected errors and warnings")
	}
}

func TestBagDedup(t *testing.T) {
	bag := NewBag(10)
	d := New(SevWarning, CapUnconvertible, source.Span{Start: 1, End: 2}, "x")
	bag.Add(d)
	bag.Add(d)
	bag.Add(New(SevWarning, CapUnconvertible, source.Span{Start: 1, End: 2}, "y"))
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("Len after Dedup = %d, want 2", bag.Len())
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	ReportWarning(r, CapUnconvertible, source.Span{}, "same").Emit()
	ReportWarning(r, CapUnconvertible, source.Span{}, "same").Emit()
	b := ReportError(r, CapBadScopedBlock, source.Span{}, "other").WithNote(source.Span{}, "note")
	b.Emit()
	b.Emit()
	if bag.Len() != 2 {
		t.Fatalf("Len = %d, want 2", bag.Len())
	}
	if len(bag.Items()[1].Notes) != 1 {
		t.Fatalf("note lost")
	}
	if r.Suppressed() != 2 {
		t.Fatalf("Suppressed = %d, want 2", r.Suppressed())
	}
}

func TestSeverityNames(t *testing.T) {
	for _, sev := range []Severity{SevInfo, SevWarning, SevError} {
		got, err := ParseSeverity(strings.ToUpper(sev.String()))
		if err != nil || got != sev {
			t.Fatalf("ParseSeverity(%q) = %v, %v", sev, got, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := Worst(nil); ok {
		t.Fatal("Worst of nothing reported a severity")
	}
	worst, _ := Worst([]Diagnostic{{Severity: SevInfo}, {Severity: SevError}, {Severity: SevWarning}})
	if worst != SevError {
		t.Fatalf("Worst = %v", worst)
	}
}

func TestErrorTraceAndMatching(t *testing.T) {
	err := Errorf(CapUnresolvedFreeVariable, source.Position{Path: "m.py", Line: 4, Col: 9}, "free variable %q is not defined in %q", "x", "inner")
	err.WithFrame(Frame{Path: "m.py", Line: 3, Name: "inner"}).WithFrame(Frame{Path: "m.py", Line: 1, Name: "outer"})

	wrapped := fmt.Errorf("capture: %w", err)
	if !errors.Is(wrapped, ErrUnresolvedFreeVariable) {
		t.Fatal("errors.Is by code failed")
	}
	if errors.Is(wrapped, ErrSelfReferencingContainer) {
		t.Fatal("errors.Is matched a different code")
	}
	if !IsCode(wrapped, CapUnresolvedFreeVariable) {
		t.Fatal("IsCode failed")
	}

	msg := err.Error()
	for _, want := range []string{"CAP3001", "m.py:4:9", "in m.py:3 (inner)", "in m.py:1 (outer)"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q lacks %q", msg, want)
		}
	}
	if strings.Index(msg, "inner)") > strings.Index(msg, "outer)") {
		t.Fatal("trace is not innermost first")
	}
}

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.py", []byte("a\nb\n"))
	items := []Diagnostic{
		New(SevWarning, CapUnconvertible, source.Span{File: id, Start: 2, End: 3}, "second\nline"),
		New(SevError, SynUnexpectedToken, source.Span{File: id, Start: 0, End: 1}, "first"),
	}
	want := "error SYN2001 m.py:1:1 first\nwarning CAP3003 m.py:2:1 second line"
	if got := FormatShort(items, fs); got != want {
		t.Fatalf("FormatShort:\nwant %q\ngot  %q", want, got)
	}
}
