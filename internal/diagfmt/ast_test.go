package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	mkparser "shellpure/internal/makefile/parser"
	shparser "shellpure/internal/shell/parser"
	"shellpure/internal/source"
)

func TestShellTreePretty(t *testing.T) {
	fs := source.NewFileSet()
	script, perr := shparser.ParseString(fs, "run.sh", "#!/bin/sh\nx=1\nif true; then echo \"$x\"; fi\n")
	if perr != nil {
		t.Fatalf("parse: %v", perr)
	}
	var buf bytes.Buffer
	FormatASTPretty(&buf, ShellTree(script), fs)
	out := buf.String()

	if !strings.HasPrefix(out, "Script [shebang=\"#!/bin/sh\"] (span: 1:1-") {
		t.Errorf("root line = %q", strings.SplitN(out, "\n", 2)[0])
	}
	for _, want := range []string{
		`Assignment "x"`,
		`Word "1"`,
		"If (span: 3:1-",
		`Word "\"$x\""`,
		"└─ ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMakeTreeJSON(t *testing.T) {
	fs := source.NewFileSet()
	f, perr := mkparser.ParseString(fs, "Makefile", "CC := gcc\nall: main.o\n\t$(CC) -o app main.o\n")
	if perr != nil {
		t.Fatalf("parse: %v", perr)
	}
	var buf bytes.Buffer
	if err := FormatASTJSON(&buf, MakeTree(f)); err != nil {
		t.Fatal(err)
	}
	var root ASTNodeOutput
	if err := json.Unmarshal(buf.Bytes(), &root); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if root.Type != "File" || len(root.Children) < 2 {
		t.Fatalf("root = %+v", root)
	}
	v := root.Children[0]
	if v.Type != "Variable" || v.Text != "CC" || v.Fields["flavor"] != "simple" {
		t.Errorf("variable = %+v", v)
	}
	r := root.Children[1]
	if r.Type != "Rule" || r.Text != "all" || r.Fields["prereqs"] != "main.o" {
		t.Errorf("rule = %+v", r)
	}
	if len(r.Children) != 1 || r.Children[0].Type != "RecipeLine" {
		t.Errorf("recipe = %+v", r.Children)
	}
}

func TestFormatSpanWithoutFileSet(t *testing.T) {
	if got := formatSpan(source.Span{Start: 3, End: 9}, nil); got != "span(3-9)" {
		t.Errorf("formatSpan = %q", got)
	}
}
