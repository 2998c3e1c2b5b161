package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/driver"
)

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in      string
		want    uiMode
		wantErr bool
	}{
		{"", uiModeAuto, false},
		{"auto", uiModeAuto, false},
		{" ON ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("readUIMode(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("readUIMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !shouldUseTUI(uiModeOn, 1) || shouldUseTUI(uiModeOff, 10) {
		t.Error("explicit ui mode ignored")
	}
}

func TestReadColor(t *testing.T) {
	if on, err := readColor("always"); err != nil || !on {
		t.Errorf("always = %v, %v", on, err)
	}
	if on, err := readColor("off"); err != nil || on {
		t.Errorf("off = %v, %v", on, err)
	}
	if _, err := readColor("rainbow"); err == nil {
		t.Error("expected error for unknown value")
	}
}

func TestUnifiedDiff(t *testing.T) {
	got, err := unifiedDiff("run.sh", "#!/bin/sh\nmkdir out\n", "#!/bin/sh\nmkdir -p out\n")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--- a/run.sh", "+++ b/run.sh", "-mkdir out", "+mkdir -p out", " #!/bin/sh"} {
		if !strings.Contains(got, want) {
			t.Errorf("diff lacks %q:\n%s", want, got)
		}
	}
	same, err := unifiedDiff("run.sh", "echo\n", "echo\n")
	if err != nil || same != "" {
		t.Errorf("diff of equal texts = %q, %v", same, err)
	}
}

func TestPlural(t *testing.T) {
	got := []string{plural(1, "file"), plural(2, "file"), plural(0, "fix"), plural(1, "fix")}
	want := []string{"1 file", "2 files", "0 fixes", "1 fix"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plural mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeSkipsNil(t *testing.T) {
	ok := driver.ProcessSource(context.Background(), "ok.sh", []byte("#!/bin/sh\necho hi\n"), driver.Options{})
	bad := driver.ProcessSource(context.Background(), "bad.sh", []byte("#!/bin/sh\neval \"$X\"\n"), driver.Options{})
	results := []*driver.FileResult{ok, nil, bad}

	sum := summarize(results)
	if sum.files != 2 || sum.errors == 0 {
		t.Errorf("summary = %+v", sum)
	}
	if !errors.Is(finalError(results), errFindings) {
		t.Error("error diagnostics must end with errFindings")
	}
	if err := finalError([]*driver.FileResult{ok, nil}); err != nil {
		t.Errorf("clean results: %v", err)
	}
}

func TestEmitPurifiedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.sh")
	if err := os.WriteFile(path, []byte("mkdir out\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	res := &driver.FileResult{
		Path:     path,
		Original: "mkdir out\n",
		Purified: "mkdir -p out\n",
		Report:   []string{"fixed: IDEM001 mkdir without -p"},
	}
	var out, report bytes.Buffer
	if err := emitPurified(&out, &report, []*driver.FileResult{res}, purifyFlags{write: true}); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("--write printed to stdout: %q", out.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mkdir -p out\n" {
		t.Errorf("file = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
	if !strings.Contains(report.String(), "fixed: IDEM001") || !strings.Contains(report.String(), "wrote "+path) {
		t.Errorf("report = %q", report.String())
	}
}

func TestEmitPurifiedStdout(t *testing.T) {
	res := &driver.FileResult{Path: "run.sh", Original: "a\n", Purified: "b\n"}
	var out bytes.Buffer
	if err := emitPurified(&out, &bytes.Buffer{}, []*driver.FileResult{res}, purifyFlags{}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "b\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLintCommandShort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\neval \"$CMD\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "", "lint", "--format", "short", "--no-cache", "--quiet", "--ui", "off", path)
	if !errors.Is(err, errFindings) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "error SEC001 ") || !strings.Contains(out, "deploy.sh:2:") {
		t.Errorf("output = %q", out)
	}
}

func TestPurifyCommandStdin(t *testing.T) {
	out, err := execute(t, "#!/bin/sh\nset -e\nmkdir $OUT\n", "purify", "--no-cache", "--no-verify", "--quiet", "--format", "short", "-")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if out != "#!/bin/sh\nset -e\nmkdir -p \"$OUT\"\n" {
		t.Errorf("purified = %q", out)
	}
}

func TestRulesCommandJSON(t *testing.T) {
	out, err := execute(t, "", "rules", "--json", "--lang", "make")
	if err != nil {
		t.Fatal(err)
	}
	var list []ruleJSON
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(list) == 0 {
		t.Fatal("no make rules listed")
	}
	for _, r := range list {
		if !strings.Contains(r.Lang, "make") {
			t.Errorf("rule %s has lang %q", r.Code, r.Lang)
		}
	}
}
