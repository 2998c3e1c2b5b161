package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/makefile/ast"
	"shellpure/internal/source"
)

func mustParse(t *testing.T, src string) (*ast.File, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	f, err := ParseString(fs, "Makefile", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return f, fs
}

func TestParseVariableFlavors(t *testing.T) {
	tests := []struct {
		src    string
		name   string
		op     string
		flavor ast.Flavor
		value  string
	}{
		{"CC = gcc", "CC", "=", ast.FlavorRecursive, "gcc"},
		{"CC := gcc", "CC", ":=", ast.FlavorSimple, "gcc"},
		{"CC ::= gcc", "CC", "::=", ast.FlavorSimple, "gcc"},
		{"CC ?= gcc", "CC", "?=", ast.FlavorConditional, "gcc"},
		{"CFLAGS += -O2", "CFLAGS", "+=", ast.FlavorAppend, "-O2"},
		{"REV != git rev-parse HEAD", "REV", "!=", ast.FlavorShell, "git rev-parse HEAD"},
		{"EMPTY =", "EMPTY", "=", ast.FlavorRecursive, ""},
		{"X=a=b", "X", "=", ast.FlavorRecursive, "a=b"},
		{"OBJ = $(SRC:.c=.o)", "OBJ", "=", ast.FlavorRecursive, "$(SRC:.c=.o)"},
		{"X := 1 # note", "X", ":=", ast.FlavorSimple, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, fs := mustParse(t, tt.src+"\n")
			if len(f.Items) != 1 {
				t.Fatalf("expected 1 item, got %d", len(f.Items))
			}
			v, ok := f.Items[0].(*ast.Variable)
			if !ok {
				t.Fatalf("expected *ast.Variable, got %T", f.Items[0])
			}
			if v.Name != tt.name || v.Op != tt.op || v.Flavor != tt.flavor || v.Value != tt.value {
				t.Fatalf("got name=%q op=%q flavor=%v value=%q", v.Name, v.Op, v.Flavor, v.Value)
			}
			if got := fs.Text(v.ValueSpan); got != v.Value {
				t.Fatalf("value span covers %q, want %q", got, v.Value)
			}
		})
	}
}

func TestParseExportOverride(t *testing.T) {
	f, _ := mustParse(t, "export PATH := /bin\noverride CFLAGS += -g\nexport\nunexport FOO\n")
	v0 := f.Items[0].(*ast.Variable)
	if !v0.Export || v0.Name != "PATH" {
		t.Fatalf("export assignment parsed as %+v", v0)
	}
	v1 := f.Items[1].(*ast.Variable)
	if !v1.Override || v1.Flavor != ast.FlavorAppend {
		t.Fatalf("override assignment parsed as %+v", v1)
	}
	if d, ok := f.Items[2].(*ast.Directive); !ok || d.Keyword != "export" || d.Args != "" {
		t.Fatalf("bare export parsed as %#v", f.Items[2])
	}
	if d, ok := f.Items[3].(*ast.Directive); !ok || d.Keyword != "unexport" || d.Args != "FOO" {
		t.Fatalf("unexport parsed as %#v", f.Items[3])
	}
}

func TestParseContinuationValue(t *testing.T) {
	src := "SRCS = a.c \\\n\tb.c \\\n\tc.c\nall:\n"
	f, fs := mustParse(t, src)
	v := f.Items[0].(*ast.Variable)
	if v.Value != "a.c \\\n\tb.c \\\n\tc.c" {
		t.Fatalf("continuation value = %q", v.Value)
	}
	if fs.Text(v.ValueSpan) != v.Value {
		t.Fatalf("value span mismatch")
	}
	if _, ok := f.Items[1].(*ast.Rule); !ok {
		t.Fatalf("expected rule after continued variable, got %T", f.Items[1])
	}
}

func TestParseRules(t *testing.T) {
	src := strings.Join([]string{
		"all: app lib | outdir",
		"%.o: %.c",
		"\t$(CC) -c $< -o $@",
		"objs: %.o: %.c",
		"clean::",
		"\trm -f *.o",
		"debug: CFLAGS += -g",
		"run: ; ./app",
		"",
	}, "\n")
	f, fs := mustParse(t, src)
	rules := f.Rules()
	if len(rules) != 6 {
		t.Fatalf("expected 6 rules, got %d", len(rules))
	}

	if diff := cmp.Diff([]string{"app", "lib"}, rules[0].Prereqs); diff != "" {
		t.Fatalf("prereqs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"outdir"}, rules[0].OrderOnly); diff != "" {
		t.Fatalf("order-only mismatch (-want +got):\n%s", diff)
	}

	if len(rules[1].Recipe) != 1 || rules[1].Recipe[0].Text != "$(CC) -c $< -o $@" {
		t.Fatalf("pattern rule recipe = %+v", rules[1].Recipe)
	}
	if got := fs.Text(rules[1].Recipe[0].Span); got != rules[1].Recipe[0].Text {
		t.Fatalf("recipe span covers %q", got)
	}

	if rules[2].Pattern != "%.o" || len(rules[2].Prereqs) != 1 || rules[2].Prereqs[0] != "%.c" {
		t.Fatalf("static pattern rule = %+v", rules[2])
	}
	if !rules[3].DoubleColon || len(rules[3].Recipe) != 1 {
		t.Fatalf("double-colon rule = %+v", rules[3])
	}
	if rules[4].VarAssign == nil || rules[4].VarAssign.Name != "CFLAGS" || rules[4].VarAssign.Flavor != ast.FlavorAppend {
		t.Fatalf("target-specific variable = %+v", rules[4])
	}
	if len(rules[5].Recipe) != 1 || rules[5].Recipe[0].Text != "./app" {
		t.Fatalf("inline recipe = %+v", rules[5].Recipe)
	}
	if got := fs.Text(rules[5].Recipe[0].Span); got != "./app" {
		t.Fatalf("inline recipe span covers %q", got)
	}
}

func TestParseRecipeBlankAndCommentLines(t *testing.T) {
	src := "build:\n\tstep1\n\n# make comment\n\tstep2\n\nother:\n"
	f, _ := mustParse(t, src)
	r := f.Items[0].(*ast.Rule)
	if len(r.Recipe) != 4 {
		t.Fatalf("expected 4 recipe entries, got %d: %+v", len(r.Recipe), r.Recipe)
	}
	if !r.Recipe[1].Verbatim || !r.Recipe[2].Verbatim {
		t.Fatalf("blank and comment lines inside the recipe must be verbatim")
	}
	refs := f.Recipes()
	if len(refs) != 2 || refs[1].Line.Text != "step2" {
		t.Fatalf("Recipes() = %+v", refs)
	}
	if _, ok := f.Items[1].(*ast.Blank); !ok {
		t.Fatalf("blank line after the recipe should end the rule, got %T", f.Items[1])
	}
}

func TestParseConditionals(t *testing.T) {
	src := strings.Join([]string{
		"ifeq ($(OS),Windows_NT)",
		"EXT = .exe",
		"else ifneq \"$(OS)\" \"Darwin\"",
		"EXT = .elf",
		"else",
		"EXT =",
		"endif",
		"ifdef DEBUG",
		"CFLAGS += -g",
		"endif",
		"",
	}, "\n")
	f, _ := mustParse(t, src)
	if len(f.Items) != 2 {
		t.Fatalf("expected 2 top-level items, got %d", len(f.Items))
	}
	c := f.Items[0].(*ast.Conditional)
	if c.Directive != "ifeq" || c.Arg1 != "$(OS)" || c.Arg2 != "Windows_NT" {
		t.Fatalf("ifeq parsed as %+v", c)
	}
	if len(c.Then) != 1 || len(c.Else) != 1 {
		t.Fatalf("ifeq branches: then=%d else=%d", len(c.Then), len(c.Else))
	}
	chained := c.Else[0].(*ast.Conditional)
	if !chained.Chained || chained.Arg1 != "$(OS)" || chained.Arg2 != "Darwin" {
		t.Fatalf("chained conditional = %+v", chained)
	}
	if chained.Else == nil || len(chained.Else) != 1 {
		t.Fatalf("final else branch = %+v", chained.Else)
	}
	d := f.Items[1].(*ast.Conditional)
	if d.Directive != "ifdef" || d.Arg1 != "DEBUG" || d.Else != nil {
		t.Fatalf("ifdef parsed as %+v", d)
	}
}

func TestParseConditionalAroundRecipe(t *testing.T) {
	src := "test:\n\tgo test ./...\nifdef RACE\n\tgo test -race ./...\nendif\n"
	f, _ := mustParse(t, src)
	refs := f.Recipes()
	if len(refs) != 2 {
		t.Fatalf("expected 2 recipe lines, got %d", len(refs))
	}
	if refs[1].Rule == nil || refs[1].Rule.Targets[0] != "test" {
		t.Fatalf("conditional recipe line should belong to test, got %+v", refs[1].Rule)
	}
}

func TestParseDefineIncludeAndCalls(t *testing.T) {
	src := strings.Join([]string{
		"define HELP :=",
		"usage: make <target>",
		"  endef is not the end",
		"endef",
		"-include local.mk",
		"include a.mk b.mk",
		"$(info building)",
		"",
	}, "\n")
	f, _ := mustParse(t, src)
	d := f.Items[0].(*ast.Define)
	if d.Name != "HELP" || d.Flavor != ast.FlavorSimple {
		t.Fatalf("define = %+v", d)
	}
	if diff := cmp.Diff([]string{"usage: make <target>", "  endef is not the end"}, d.Body); diff != "" {
		t.Fatalf("define body mismatch (-want +got):\n%s", diff)
	}
	inc := f.Items[1].(*ast.Include)
	if !inc.Optional || inc.Paths[0] != "local.mk" {
		t.Fatalf("-include = %+v", inc)
	}
	if inc2 := f.Items[2].(*ast.Include); len(inc2.Paths) != 2 || inc2.Optional {
		t.Fatalf("include = %+v", inc2)
	}
	fc := f.Items[3].(*ast.FunctionCall)
	if fc.Name != "info" || len(fc.Args) != 1 || fc.Args[0] != "building" {
		t.Fatalf("standalone call = %+v", fc)
	}
}

func TestExtractCallsNested(t *testing.T) {
	f, fs := mustParse(t, "SOURCES = $(sort $(wildcard *.c))\nX := $(shell date +%s,%N)\n")
	v := f.Items[0].(*ast.Variable)
	if len(v.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %+v", v.Calls)
	}
	if v.Calls[0].Name != "sort" || v.Calls[1].Name != "wildcard" {
		t.Fatalf("call order = %s, %s", v.Calls[0].Name, v.Calls[1].Name)
	}
	if got := fs.Text(v.Calls[1].Span); got != "$(wildcard *.c)" {
		t.Fatalf("wildcard span covers %q", got)
	}
	if got := fs.Text(v.Calls[1].ArgSpans[0]); got != "*.c" {
		t.Fatalf("wildcard arg span covers %q", got)
	}
	sh := f.Items[1].(*ast.Variable).Calls[0]
	if len(sh.Args) != 1 || sh.Args[0] != "date +%s,%N" {
		t.Fatalf("shell args must not be split on commas: %q", sh.Args)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"empty name", " = value\n", EmptyVariableName},
		{"no operator", "just words here\n", NoAssignmentOperator},
		{"whitespace in name", "my var = 1\n", InvalidVariableAssignment},
		{"include without path", "include\n", InvalidIncludeSyntax},
		{"ifeq without parens", "ifeq $(VAR) value\nendif\n", InvalidConditionalSyntax},
		{"ifeq without comma", "ifeq ($(VAR) value)\nendif\n", InvalidConditionalSyntax},
		{"ifeq without args", "ifeq\nendif\n", MissingConditionalArguments},
		{"ifdef without name", "ifdef\nendif\n", MissingVariableName},
		{"unknown conditional", "ifx (a,b)\n", UnknownConditional},
		{"two bars", "all: a | b | c\n", InvalidTargetRule},
		{"unbalanced ref", "all: $(foo\n", InvalidTargetRule},
		{"empty target", ": dep\n", EmptyTargetName},
		{"missing endif", "ifdef X\nA = 1\n", UnexpectedEof},
		{"missing endef", "define X\nbody\n", UnexpectedEof},
		{"stray endif", "endif\n", InvalidConditionalSyntax},
		{"stray else", "else\n", InvalidConditionalSyntax},
		{"double else", "ifdef X\nelse\nelse\nendif\n", InvalidConditionalSyntax},
		{"override without assignment", "override FOO\n", InvalidVariableAssignment},
		{"undefine without name", "undefine\n", MissingVariableName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			_, err := ParseString(fs, "Makefile", tt.src)
			if err == nil {
				t.Fatalf("expected %s, got no error", tt.kind)
			}
			if err.Kind != tt.kind {
				t.Fatalf("expected %s, got %s (%s)", tt.kind, err.Kind, err.Detail)
			}
			if err.Note() == "" || err.Help() == "" {
				t.Fatalf("note and help must be set")
			}
		})
	}
}

func TestInvalidConditionalHelp(t *testing.T) {
	fs := source.NewFileSet()
	_, err := ParseString(fs, "Makefile", "ifeq $(VAR) value\nendif\n")
	if err == nil || err.Kind != InvalidConditionalSyntax {
		t.Fatalf("expected InvalidConditionalSyntax, got %v", err)
	}
	if !strings.Contains(err.Note(), "parentheses") || !strings.Contains(err.Note(), "comma") {
		t.Fatalf("note should mention parentheses and comma: %q", err.Note())
	}
	if !strings.Contains(err.Help(), "ifeq ($(VAR),value)") {
		t.Fatalf("help should show the corrected line: %q", err.Help())
	}
	if err.Location.Line != 1 || err.Location.Column != 1 || err.Location.File != "Makefile" {
		t.Fatalf("location = %+v", err.Location)
	}
}

func TestErrorQualityScore(t *testing.T) {
	bare := &Error{Kind: NoAssignmentOperator, Detail: "missing separator"}
	if got := bare.QualityScore(); got < 0.70 {
		t.Fatalf("score without location = %v, want >= 0.70", got)
	}
	fs := source.NewFileSet()
	_, err := ParseString(fs, "Makefile", "A = 1\nbogus line\n")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := err.QualityScore(); got != 1.0 {
		t.Fatalf("score with full location = %v, want 1.0 (loc %+v)", got, err.Location)
	}
	if err.Location.Line != 2 || err.Location.SourceLine != "bogus line" {
		t.Fatalf("location = %+v", err.Location)
	}
}
