package observ

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("empty timer report = %+v", r)
	}

	parse := tm.Begin("parse")
	tm.End(parse, "")
	tm.Measure("lint", func() string { return "3 findings" })
	if d := tm.End(42, "ignored"); d != 0 {
		t.Errorf("unknown handle returned %v", d)
	}

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "parse" || r.Phases[1].Note != "3 findings" {
		t.Fatalf("report = %+v", r)
	}
	if r.Phases[0].Count != 1 {
		t.Errorf("count = %d", r.Phases[0].Count)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Errorf("total %v < phase %v", r.TotalMS, r.Phases[0].DurationMS)
	}

	s := tm.Summary()
	for _, want := range []string{"timings:", "parse", "lint", "// 3 findings", "total"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestMerge(t *testing.T) {
	a := Report{TotalMS: 3, Phases: []PhaseReport{
		{Name: "parse", DurationMS: 1, Count: 1, Note: "a"},
		{Name: "lint", DurationMS: 2, Count: 1},
	}}
	b := Report{TotalMS: 10, Phases: []PhaseReport{
		{Name: "load", DurationMS: 4, Count: 1},
		{Name: "parse", DurationMS: 6, Count: 1},
	}}
	got := Merge(a, b, Report{})
	want := Report{TotalMS: 13, Phases: []PhaseReport{
		{Name: "parse", DurationMS: 7, Count: 2},
		{Name: "lint", DurationMS: 2, Count: 1},
		{Name: "load", DurationMS: 4, Count: 1},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}

	slow, ok := got.Slowest()
	if !ok || slow.Name != "parse" {
		t.Errorf("Slowest = %+v, %v", slow, ok)
	}
	if _, ok := (Report{}).Slowest(); ok {
		t.Error("empty report has a slowest phase")
	}
	if !strings.Contains(got.String(), "x2") {
		t.Errorf("merged table lacks file count:\n%s", got.String())
	}
}
