package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/diag"
	"shellpure/internal/source"
)

func unquotedDiag(fs *source.FileSet, id source.FileID) diag.Diagnostic {
	return diag.New(diag.SevWarning, diag.Code("SEC006"),
		"unquoted variable expansion `$SRC`",
		"word splitting and globbing apply to the value",
		"quote it: \"$SRC\"",
	).At(fs, source.Span{File: id, Start: 3, End: 7})
}

func TestPrettyLayout(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("run.sh", []byte("cp $SRC /tmp\n"))
	bag := diag.NewBag(10)
	bag.Add(unquotedDiag(fs, id))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Codes: true})

	want := strings.Join([]string{
		"warning[SEC006]: unquoted variable expansion `$SRC` at run.sh:1:4",
		"",
		"1 | cp $SRC /tmp",
		"       ^^^^",
		"",
		"note: word splitting and globbing apply to the value",
		"help: quote it: \"$SRC\"",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("pretty output mismatch (-want +got):\n%s", diff)
	}
}

func TestPrettyWithoutCodes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("run.sh", []byte("cp $SRC /tmp\n"))
	bag := diag.NewBag(10)
	bag.Add(unquotedDiag(fs, id))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	if !strings.HasPrefix(buf.String(), "warning: unquoted") {
		t.Fatalf("unexpected header: %q", buf.String())
	}
}

func TestPrettyTabsAndWideRunes(t *testing.T) {
	fs := source.NewFileSet()
	// "\techo 日本 $X"; $X начинается после двух широких рун
	content := "\techo 日本 $X\n"
	start := strings.Index(content, "$X")
	id := fs.AddVirtual("wide.sh", []byte(content))
	d := diag.New(diag.SevWarning, diag.Code("SEC006"), "unquoted", "n", "h").
		At(fs, source.Span{File: id, Start: uint32(start), End: uint32(start + 2)})
	bag := diag.NewBag(1)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	lines := strings.Split(buf.String(), "\n")
	if lines[2] != "1 |     echo 日本 $X" {
		t.Fatalf("source line = %q", lines[2])
	}
	// 4 (gutter) + 4 (tab) + 5 ("echo ") + 4 (две широкие руны) + 1 (пробел)
	if want := strings.Repeat(" ", 18) + "^^"; lines[3] != want {
		t.Fatalf("underline = %q, want %q", lines[3], want)
	}
}

func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("/home/user/project/src/run.sh", []byte("cp $SRC /tmp\n"))
	bag := diag.NewBag(10)
	bag.Add(unquotedDiag(fs, id))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, " at /home/user/project/src/run.sh:1:4"},
		{"relative", PathModeRelative, " at src/run.sh:1:4"},
		{"basename", PathModeBasename, " at run.sh:1:4"},
		{"as-is", PathModeAsIs, " at /home/user/project/src/run.sh:1:4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"})
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("expected %q in output:\n%s", tt.contains, buf.String())
			}
		})
	}
}

func TestParsePathMode(t *testing.T) {
	for in, want := range map[string]PathMode{
		"":         PathModeAuto,
		"auto":     PathModeAuto,
		"absolute": PathModeAbsolute,
		"relative": PathModeRelative,
		"basename": PathModeBasename,
		"as-is":    PathModeAsIs,
	} {
		got, ok := ParsePathMode(in)
		if !ok || got != want {
			t.Errorf("ParsePathMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParsePathMode("nope"); ok {
		t.Error("unknown mode accepted")
	}
}

func TestPrettyFixPreview(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("run.sh", []byte("#!/bin/sh\ncp $SRC /tmp\n"))
	d := diag.New(diag.SevWarning, diag.Code("SEC006"), "unquoted variable expansion `$SRC`", "", "").
		At(fs, source.Span{File: id, Start: 13, End: 17}).
		WithFix("quote the expansion", source.Span{File: id, Start: 13, End: 17}, `"$SRC"`)
	bag := diag.NewBag(1)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowFixes: true, ShowPreview: true})
	out := buf.String()
	for _, want := range []string{
		"fix: quote the expansion",
		"  - cp $SRC /tmp",
		"  + cp \"$SRC\" /tmp",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	// без ShowFixes исправление не печатается
	buf.Reset()
	Pretty(&buf, bag, fs, PrettyOpts{})
	if strings.Contains(buf.String(), "fix:") {
		t.Errorf("fix printed without ShowFixes:\n%s", buf.String())
	}
}

func TestShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("run.sh", []byte("cp $SRC /tmp\n"))
	bag := diag.NewBag(10)
	bag.Add(unquotedDiag(fs, id))

	var buf bytes.Buffer
	if err := Short(&buf, bag); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "SEC006") || !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("short output = %q", buf.String())
	}

	buf.Reset()
	if err := Short(&buf, diag.NewBag(1)); err != nil || buf.Len() != 0 {
		t.Fatalf("empty bag wrote %q, err %v", buf.String(), err)
	}
}
