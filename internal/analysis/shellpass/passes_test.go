package shellpass

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
	"shellpure/internal/fix"
	"shellpure/internal/shell/ast"
	"shellpure/internal/shell/parser"
	"shellpure/internal/source"
)

func parse(t *testing.T, text string) *ast.Script {
	t.Helper()
	fs := source.NewFileSet()
	s, err := parser.ParseString(fs, "test.sh", text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return s
}

func codes(ts []analysis.Transformation) []string {
	out := []string{}
	for _, t := range ts {
		out = append(out, string(t.Kind.Code()))
	}
	return out
}

func sorted(ss []string) []string {
	sort.Strings(ss)
	return ss
}

// applyAll applies every safe fix to text.
func applyAll(t *testing.T, text string, ts []analysis.Transformation) string {
	t.Helper()
	var edits []fix.Edit
	var file source.FileID
	for _, tr := range ts {
		if tr.Safe {
			edits = append(edits, *tr.Fix)
			file = tr.Fix.Span.File
		}
	}
	out, err := fix.Apply(text, source.Span{File: file, Start: 0, End: uint32(len(text))}, edits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return out
}

func TestEvalIsErrorWithoutFix(t *testing.T) {
	ts := Security(parse(t, "eval \"rm -rf $USER_INPUT\"\n"))
	if diff := cmp.Diff([]string{"SEC001"}, codes(ts)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	tr := ts[0]
	if tr.Safe || tr.Fix != nil {
		t.Fatal("eval must never be auto-fixed")
	}
	if tr.Kind.Info().Severity != diag.SevError {
		t.Fatalf("severity = %v", tr.Kind.Info().Severity)
	}
	if !strings.Contains(tr.Suggestion, "avoid `eval`") {
		t.Fatalf("suggestion = %q", tr.Suggestion)
	}
}

func TestUnquotedExpansionFix(t *testing.T) {
	text := "cp $SRC \"$DST\" ${OUT:-x} $@ $1\n"
	ts := Security(parse(t, text))
	if diff := cmp.Diff([]string{"SEC006", "SEC006", "SEC006"}, codes(ts)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	got := applyAll(t, text, ts)
	if want := "cp \"$SRC\" \"$DST\" \"${OUT:-x}\" $@ \"$1\"\n"; got != want {
		t.Fatalf("fixed = %q, want %q", got, want)
	}
	if again := Security(parse(t, got)); len(again) != 0 {
		t.Fatalf("quoted script still reports %v", codes(again))
	}
}

func TestBackgroundJobs(t *testing.T) {
	text := "#!/bin/sh\nset -e\nsort a > out.log &\nsort b > out.log &\n"
	got := codes(ParallelSafety(parse(t, text)))
	if diff := cmp.Diff([]string{"PAR001", "PAR002", "PAR002"}, got); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	got = codes(ParallelSafety(parse(t, text+"wait\n")))
	if diff := cmp.Diff([]string{"PAR001"}, got); diff != "" {
		t.Fatalf("with wait (-want +got):\n%s", diff)
	}
}

func TestErrorHandling(t *testing.T) {
	text := "#!/bin/sh\ncd /opt/app\nls | wc -l\n"
	if diff := cmp.Diff([]string{"ERR003", "ERR001", "ERR002"}, codes(ErrorHandling(parse(t, text)))); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	strict := "#!/bin/sh\nset -eo pipefail\ncd /opt/app\nls | wc -l\n"
	if got := ErrorHandling(parse(t, strict)); len(got) != 0 {
		t.Fatalf("strict script reports %v", codes(got))
	}
}

func TestPosixShebang(t *testing.T) {
	text := "#!/bin/bash\nset -e\necho hello\n"
	ts := Portability(parse(t, text))
	if diff := cmp.Diff([]string{"PORT011"}, codes(ts)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if got := applyAll(t, text, ts); got != "#!/bin/sh\nset -e\necho hello\n" {
		t.Fatalf("fixed = %q", got)
	}

	tests := []struct {
		text string
		want []string
	}{
		{"#!/bin/bash\nset -e\nif [[ -f x ]]; then echo y; fi\n", []string{"PORT001"}},
		{"#!/usr/bin/env bash\nset -e\nsource ./lib.sh\n", []string{"PORT003"}},
		{"#!/bin/bash\nxs=(a b)\necho ok\n", []string{}},
		{"#!/bin/bash\nfunction f { echo; }\n", []string{"PORT010"}},
		{"#!/bin/bash -e\necho ok\n", []string{}},
		{"#!/bin/sh\necho ok\n", []string{}},
		{"#!/bin/sh\necho $((1 + 2))\n", []string{}},
		{"#!/bin/bash\necho \"$((2 ** 8))\"\n", []string{"PORT002"}},
		{"#!/bin/sh\n((n++))\n", []string{"PORT002"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, codes(Portability(parse(t, tt.text)))); diff != "" {
			t.Errorf("%q (-want +got):\n%s", tt.text, diff)
		}
	}
}

func TestPosixShebangKeptForBashisms(t *testing.T) {
	bodies := []string{
		"for i in {1..3}; do echo \"$i\"; done\n",
		"cp a{,.bak}\n",
		"echo \"$RANDOM\"\n",
		"echo \"${!name}\"\n",
		"read -ra parts\n",
		"read\n",
		"echo \"$BASH_SOURCE\"\n",
		"echo a |& tee log\n",
		"printf -v out '%s' x\n",
		"trap 'echo failed' ERR\n",
		"echo \"$(echo \"$SECONDS\")\"\n",
	}
	for _, body := range bodies {
		text := "#!/bin/bash\nset -e\n" + body
		for _, c := range codes(Portability(parse(t, text))) {
			if c == "PORT011" {
				t.Errorf("%q: shebang rewrite offered for a bash-only script", body)
			}
		}
	}

	plain := "#!/bin/bash\nset -e\nread -r line\nfind . -exec rm {} +\necho \"${HOME}\"\n"
	if diff := cmp.Diff([]string{"PORT011"}, codes(Portability(parse(t, plain)))); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestIdempotencyInConditions(t *testing.T) {
	tests := []struct {
		text string
		safe bool
	}{
		{"if mkdir /tmp/lock; then echo ok; fi\n", false},
		{"while ! mkdir /tmp/lock; do sleep 1; done\n", false},
		{"until rm stale; do sleep 1; done\n", false},
		{"if true; then mkdir out; fi\n", true},
		{"if mkdir a; true; then echo; fi\n", true},
	}
	for _, tt := range tests {
		ts := Idempotency(parse(t, "#!/bin/sh\nset -e\n"+tt.text))
		if len(ts) != 1 {
			t.Fatalf("%q: want one finding, got %v", tt.text, codes(ts))
		}
		if got := ts[0].Safe && ts[0].Fix != nil; got != tt.safe {
			t.Errorf("%q: safe = %v, want %v", tt.text, got, tt.safe)
		}
	}
}

func TestDeterminism(t *testing.T) {
	text := "x=$(date +%s)\necho $RANDOM $$ > /tmp/f.$$\n"
	got := sorted(codes(Determinism(parse(t, text))))
	want := []string{"DET001", "DET002", "DET003", "DET003"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformance(t *testing.T) {
	got := codes(Performance(parse(t, "cat file | grep x\nn=$(expr 1 + 2)\n")))
	if diff := cmp.Diff([]string{"PERF002", "PERF003"}, got); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanScript(t *testing.T) {
	text := "#!/bin/sh\nset -e\nmkdir -p \"$OUT\"\nrm -f \"$OUT/x\"\nln -sf a b\n"
	if got := Analyze(parse(t, text)); len(got) != 0 {
		t.Fatalf("clean script reports %v", codes(got))
	}
}

func TestPassesCoverEveryCategory(t *testing.T) {
	seen := map[analysis.Category]bool{}
	for _, p := range Passes() {
		seen[p.Category] = true
	}
	if len(seen) != 7 {
		t.Fatalf("categories = %v", seen)
	}
}
