package rules

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
	"shellpure/internal/source"
)

func find(res LintResult, code diag.Code) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range res.Diagnostics {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func codes(res LintResult) []string {
	out := []string{}
	for _, d := range res.Diagnostics {
		out = append(out, string(d.Code))
	}
	return out
}

func TestLint_Eval(t *testing.T) {
	res := Lint(Default(), analysis.LangShell, "run.sh", "eval \"rm -rf $USER_INPUT\"\n")
	ds := find(res, "SEC001")
	if len(ds) != 1 {
		t.Fatalf("SEC001 findings = %d, all: %v", len(ds), codes(res))
	}
	d := ds[0]
	if d.Severity != diag.SevError || d.Fix != nil {
		t.Fatalf("got severity %v fix %v", d.Severity, d.Fix)
	}
	if !strings.Contains(d.Help, "eval") || d.Note == "" {
		t.Fatalf("note %q help %q", d.Note, d.Help)
	}
	if d.Location.File != "run.sh" || d.Location.Line != 1 || d.Location.Column != 1 {
		t.Fatalf("location = %+v", d.Location)
	}
	if q := d.QualityScore(); q != 1.0 {
		t.Fatalf("quality = %v", q)
	}
	if !res.HasErrors() {
		t.Fatal("HasErrors() = false")
	}
}

func TestLint_DetectionOrder(t *testing.T) {
	res := Lint(Default(), analysis.LangShell, "order.sh", "#!/bin/sh\nset -e\neval \"$1\"\nmkdir out\n")
	var got []string
	for _, c := range codes(res) {
		if c == "SEC001" || c == "IDEM001" {
			got = append(got, c)
		}
	}
	// IDEM001 sorts before SEC001 in the registry, although it is on a later line
	if diff := cmp.Diff([]string{"IDEM001", "SEC001"}, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestLint_ParseError(t *testing.T) {
	res := Lint(Default(), analysis.LangShell, "bad.sh", "if true; then\n")
	if diff := cmp.Diff([]string{"SH000"}, codes(res)); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
	res = Lint(Default(), analysis.LangMake, "Makefile", "ifeq $(VAR) value\nendif\n")
	if diff := cmp.Diff([]string{"MAKE000"}, codes(res)); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
	if d := res.Diagnostics[0]; !strings.Contains(d.Help, "ifeq ($(VAR),value)") {
		t.Fatalf("help = %q", d.Help)
	}
}

func TestLint_Suppression(t *testing.T) {
	src := "#!/bin/sh\nset -e\n# shellpure disable=SEC006\ncp $A b\ncp $B c # shellpure disable=sec006\necho ok\ncp $C d\n"
	ds := find(Lint(Default(), analysis.LangShell, "s.sh", src), "SEC006")
	if len(ds) != 1 || ds[0].Location.Line != 7 {
		t.Fatalf("SEC006 = %+v", ds)
	}
}

func TestLint_Overrides(t *testing.T) {
	src := "#!/bin/sh\nset -e\ncp $A b\n"
	reg, err := Default().With(Overrides{Disable: []string{"SEC006"}})
	if err != nil {
		t.Fatal(err)
	}
	if ds := find(Lint(reg, analysis.LangShell, "s.sh", src), "SEC006"); len(ds) != 0 {
		t.Fatalf("disabled rule reported %d findings", len(ds))
	}
	reg, err = Default().With(Overrides{Severity: map[string]string{"SEC006": "info"}})
	if err != nil {
		t.Fatal(err)
	}
	ds := find(Lint(reg, analysis.LangShell, "s.sh", src), "SEC006")
	if len(ds) != 1 || ds[0].Severity != diag.SevInfo {
		t.Fatalf("SEC006 = %+v", ds)
	}
}

func TestLint_FixableComesFromRegistry(t *testing.T) {
	src := "#!/bin/sh\nset -e\nmkdir build\n"
	ds := find(Lint(Default(), analysis.LangShell, "s.sh", src), "IDEM001")
	if len(ds) != 1 || ds[0].Fix == nil || ds[0].Fix.Replacement != " -p" {
		t.Fatalf("IDEM001 = %+v", ds)
	}

	rules := Builtin()
	for i := range rules {
		if rules[i].Code == "IDEM001" {
			rules[i].Fixable = false
		}
	}
	reg, err := NewRegistry(rules)
	if err != nil {
		t.Fatal(err)
	}
	ds = find(Lint(reg, analysis.LangShell, "s.sh", src), "IDEM001")
	if len(ds) != 1 || ds[0].Fix != nil {
		t.Fatalf("IDEM001 = %+v", ds)
	}
}

func TestLint_Makefile(t *testing.T) {
	res := Lint(Default(), analysis.LangMake, "Makefile", "SOURCES = $(wildcard *.c)\n")
	if diff := cmp.Diff([]string{"MAKE003"}, codes(res)); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
	if fx := res.Diagnostics[0].Fix; fx == nil || fx.Replacement != "$(sort $(wildcard *.c))" {
		t.Fatalf("fix = %+v", fx)
	}
	// shell-only rules never run on Makefiles
	res = Lint(Default(), analysis.LangMake, "Makefile", "x:\n\tcp $$A b\n")
	if ds := find(res, "SEC006"); len(ds) != 0 {
		t.Fatalf("SEC006 on a Makefile: %+v", ds)
	}
}

func TestRunPasses_RecoversPanic(t *testing.T) {
	passes := []analysis.Pass[int]{
		{Name: "boom", Analyze: func(int) []analysis.Transformation { panic("index out of range") }},
		{Name: "ok", Analyze: func(int) []analysis.Transformation {
			return []analysis.Transformation{analysis.New(analysis.KindEval, source.Span{}, "eval", "eval is used")}
		}},
	}
	ts, fails := runPasses(passes, 0, nil, source.Span{})
	if len(ts) != 1 {
		t.Fatalf("findings = %d, want 1", len(ts))
	}
	if len(fails) != 1 || fails[0].Code != diag.CodeInternalAnalysis || fails[0].Severity != diag.SevWarning {
		t.Fatalf("failures = %+v", fails)
	}
	if !strings.Contains(fails[0].Message, "boom") {
		t.Fatalf("message = %q", fails[0].Message)
	}
}

func TestLintResult_Merge(t *testing.T) {
	var all LintResult
	all.Merge(LintResult{Diagnostics: []diag.Diagnostic{diag.New(diag.SevInfo, "DET006", "m", "", "")}})
	all.Merge(LintResult{Diagnostics: []diag.Diagnostic{diag.New(diag.SevError, "SEC001", "m", "", "")}})
	if diff := cmp.Diff([]string{"DET006", "SEC001"}, codes(all)); diff != "" {
		t.Fatalf("merge order (-want +got):\n%s", diff)
	}
	if all.Count(diag.SevInfo) != 1 || !all.HasErrors() {
		t.Fatal("counts wrong")
	}
}
