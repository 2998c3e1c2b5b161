package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
)

func codesOf(r *FileResult) []string {
	var out []string
	for _, d := range r.Bag.Items() {
		out = append(out, string(d.Code))
	}
	return out
}

func hasCode(r *FileResult, code diag.Code) bool {
	for _, d := range r.Bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessSourceLint(t *testing.T) {
	res := ProcessSource(context.Background(), "run.sh", []byte("#!/bin/sh\neval \"$X\"\n"), Options{})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Lang != analysis.LangShell {
		t.Errorf("lang = %v", res.Lang)
	}
	if !hasCode(res, "SEC001") || !res.HasErrors() {
		t.Errorf("codes = %v", codesOf(res))
	}
	if res.Changed() {
		t.Error("lint-only run changed the text")
	}
	if len(res.Timing.Phases) == 0 {
		t.Error("no timings recorded")
	}
}

func TestProcessFilePurify(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "Makefile"), "all:\n\tmkdir build\n")
	res := ProcessFile(context.Background(), path, Options{
		Fix:    true,
		Verify: VerifyOptions{Idempotency: true},
	})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Lang != analysis.LangMake {
		t.Fatalf("lang = %v", res.Lang)
	}
	if !res.Changed() || res.Applied == 0 || !strings.Contains(res.Purified, "mkdir -p build") {
		t.Fatalf("purified = %q (applied %d)", res.Purified, res.Applied)
	}
	if hasCode(res, diag.CodeInternalVerify) {
		t.Errorf("verification failed: %v", codesOf(res))
	}
	if len(res.Report) == 0 || !strings.HasPrefix(res.Report[0], "fixed: ") {
		t.Errorf("report = %q", res.Report)
	}
}

func TestProcessForcedLanguage(t *testing.T) {
	// без расширения и shebang язык задаётся явно
	res := ProcessSource(context.Background(), "build-rules", []byte("all:\n\tmkdir out\n"), Options{Lang: analysis.LangMake})
	if res.Err != nil || res.Lang != analysis.LangMake || !hasCode(res, "IDEM001") {
		t.Fatalf("err %v lang %v codes %v", res.Err, res.Lang, codesOf(res))
	}
}

func TestProcessUnknownLanguage(t *testing.T) {
	res := ProcessSource(context.Background(), "notes.txt", []byte("hello\n"), Options{})
	if !errors.Is(res.Err, ErrUnknownLanguage) {
		t.Fatalf("err = %v", res.Err)
	}
	if !hasCode(res, diag.CodeIO) || !res.HasErrors() {
		t.Errorf("codes = %v", codesOf(res))
	}
}

func TestProcessMissingFile(t *testing.T) {
	res := ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.sh"), Options{})
	if !errors.Is(res.Err, os.ErrNotExist) || !hasCode(res, diag.CodeIO) {
		t.Fatalf("err %v codes %v", res.Err, codesOf(res))
	}
}

func TestParseErrorStopsPipeline(t *testing.T) {
	src := "ifeq $(VAR) value\nendif\n"
	res := ProcessSource(context.Background(), "Makefile", []byte(src), Options{Fix: true})
	if got := codesOf(res); !cmp.Equal(got, []string{"MAKE000"}) {
		t.Fatalf("codes = %v", got)
	}
	if res.Changed() || res.Err != nil {
		t.Errorf("changed %v err %v", res.Changed(), res.Err)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "src", "deploy.sh"), "#!/bin/bash\ncp $SRC /tmp\nmkdir /tmp/out\n")
	cache, err := OpenCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Fix: true, Cache: cache, ConfigDigest: [32]byte{1}}

	first := ProcessFile(context.Background(), path, opts)
	if first.Cached || first.Err != nil {
		t.Fatalf("first run cached=%v err=%v", first.Cached, first.Err)
	}
	second := ProcessFile(context.Background(), path, opts)
	if !second.Cached {
		t.Fatal("second run missed the cache")
	}
	if diff := cmp.Diff(first.Bag.Items(), second.Bag.Items()); diff != "" {
		t.Errorf("cached diagnostics differ (-first +second):\n%s", diff)
	}
	if first.Purified != second.Purified || first.Applied != second.Applied {
		t.Errorf("cached purify result differs")
	}

	opts.ConfigDigest = [32]byte{2}
	if third := ProcessFile(context.Background(), path, opts); third.Cached {
		t.Error("config change did not invalidate the cache")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	opts.ConfigDigest = [32]byte{1}
	if fourth := ProcessFile(context.Background(), path, opts); fourth.Cached {
		t.Error("DropAll left entries behind")
	}
}

func TestCacheKey(t *testing.T) {
	content := [32]byte{7}
	base := CacheKey("a.sh", content, analysis.LangShell, "lint", [32]byte{})
	for name, other := range map[string]Digest{
		"path":   CacheKey("b.sh", content, analysis.LangShell, "lint", [32]byte{}),
		"lang":   CacheKey("a.sh", content, analysis.LangMake, "lint", [32]byte{}),
		"mode":   CacheKey("a.sh", content, analysis.LangShell, "purify", [32]byte{}),
		"config": CacheKey("a.sh", content, analysis.LangShell, "lint", [32]byte{1}),
	} {
		if other == base {
			t.Errorf("%s does not change the key", name)
		}
	}
	if CacheKey("a.sh", content, analysis.LangShell, "lint", [32]byte{}) != base {
		t.Error("key is not deterministic")
	}
}

func TestOptionsMode(t *testing.T) {
	if m := (Options{}).mode(); m != "lint" {
		t.Errorf("mode = %q", m)
	}
	o := Options{Fix: true, Verify: VerifyOptions{Idempotency: true, TreeSitter: true}}
	if m := o.mode(); m != "purify+idem+ts" {
		t.Errorf("mode = %q", m)
	}
}

func TestDropFixes(t *testing.T) {
	res := &FileResult{
		Original: "a\n",
		Purified: "b\n",
		Applied:  1,
		Report:   []string{"fixed: one", "manual: two"},
	}
	dropFixes(res)
	if res.Changed() || res.Applied != 0 || !cmp.Equal(res.Report, []string{"manual: two"}) {
		t.Fatalf("after dropFixes: %+v", res)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Status == status {
			n++
		}
	}
	return n
}

func TestRunBatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Makefile"), "all:\n\tmkdir build\n")
	writeFile(t, filepath.Join(root, "a.sh"), "#!/bin/sh\necho \"$1\"\n")
	writeFile(t, filepath.Join(root, "sub", "b.bash"), "#!/bin/bash\neval \"$1\"\n")
	writeFile(t, filepath.Join(root, "tool"), "#!/usr/bin/env bash\necho ok\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "not a script\n")
	writeFile(t, filepath.Join(root, ".git", "hooks", "pre-commit.sh"), "#!/bin/sh\n")

	files, err := ListFiles(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "Makefile"),
		filepath.Join(root, "a.sh"),
		filepath.Join(root, "sub", "b.bash"),
		filepath.Join(root, "tool"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("ListFiles mismatch (-want +got):\n%s", diff)
	}

	onlyMake, err := ListFiles(root, analysis.LangMake)
	if err != nil || len(onlyMake) != 1 {
		t.Fatalf("make files = %v, %v", onlyMake, err)
	}

	rec := &recorder{}
	results, err := Run(context.Background(), files, Options{Progress: rec}, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r == nil || r.Path != files[i] {
			t.Fatalf("result %d = %+v", i, r)
		}
	}
	if !hasCode(results[2], "SEC001") {
		t.Errorf("b.bash codes = %v", codesOf(results[2]))
	}
	if got := rec.count(StatusQueued); got != 4 {
		t.Errorf("queued events = %d", got)
	}
	if got := rec.count(StatusDone) + rec.count(StatusError); got != 4 {
		t.Errorf("finished events = %d", got)
	}

	agg := AggregateTimings(append(results, nil))
	if len(agg.Phases) < 3 || agg.Phases[0].Name != string(StageLoad) {
		t.Errorf("aggregate = %+v", agg)
	}
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "a.sh"), "echo hi\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, []string{path}, Options{}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestExpandDeduplicates(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a.sh"), "echo hi\n")
	files, err := Expand([]string{a, root, a}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(files, []string{a}) {
		t.Fatalf("files = %v", files)
	}
}
