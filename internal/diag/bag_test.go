package diag

import "testing"

func TestBag_LimitMergeAndErrors(t *testing.T) {
	b := NewBag(2)
	if !b.Add(New(SevInfo, "A1", "a", "", "")) || !b.Add(New(SevWarning, "B1", "b", "", "")) {
		t.Fatal("first two diagnostics must fit")
	}
	if b.Add(New(SevError, "C1", "c", "", "")) {
		t.Fatal("limit must be honoured")
	}
	if b.HasErrors() || !b.HasWarnings() {
		t.Fatal("unexpected severity summary")
	}

	other := NewBag(0)
	other.Add(New(SevError, "C1", "c", "", ""))
	b.Merge(other)
	if b.Len() != 3 || !b.HasErrors() {
		t.Fatalf("merge must append and grow the limit, len=%d", b.Len())
	}
	if b.Items()[2].Code != "C1" {
		t.Fatal("merge must preserve insertion order")
	}
}

func TestBag_SortAndDedup(t *testing.T) {
	b := NewBag(0)
	at := func(code Code, sev Severity, line, col int) Diagnostic {
		return New(sev, code, "m", "", "").WithLocation(Location{File: "x.sh", Line: line, Column: col})
	}
	b.Add(at("DET001", SevWarning, 3, 1))
	b.Add(at("SEC001", SevError, 1, 5))
	b.Add(at("SC2086", SevWarning, 1, 5))
	b.Add(at("SEC001", SevError, 1, 5))

	b.Dedup()
	if b.Len() != 3 {
		t.Fatalf("dedup left %d items", b.Len())
	}
	b.Sort()
	got := []Code{b.Items()[0].Code, b.Items()[1].Code, b.Items()[2].Code}
	want := []Code{"SEC001", "SC2086", "DET001"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted codes = %v, want %v", got, want)
		}
	}

	b.Filter(func(d *Diagnostic) bool { return d.Severity == SevError })
	if b.Len() != 1 {
		t.Fatalf("filter kept %d items", b.Len())
	}
}
