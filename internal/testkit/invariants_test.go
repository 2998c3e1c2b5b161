package testkit

import (
	"testing"

	mkparser "shellpure/internal/makefile/parser"
	shparser "shellpure/internal/shell/parser"
	"shellpure/internal/source"
)

func TestCheckShellSpans(t *testing.T) {
	fs := source.NewFileSet()
	script, err := shparser.ParseString(fs, "run.sh", "#!/bin/sh\nx=$(date)\nif true; then echo \"$x\"; fi\n")
	if err != nil {
		t.Fatal(err)
	}
	file := fs.Get(0)
	if cerr := CheckShellSpans(script, file); cerr != nil {
		t.Fatalf("valid script: %v", cerr)
	}

	script.Span.End = uint32(len(file.Content)) + 10
	if CheckShellSpans(script, file) == nil {
		t.Error("span beyond content was accepted")
	}
}

func TestCheckMakeSpans(t *testing.T) {
	fs := source.NewFileSet()
	f, err := mkparser.ParseString(fs, "Makefile", "CC = gcc\nall:\n\t$(CC) -o app main.c\n")
	if err != nil {
		t.Fatal(err)
	}
	if cerr := CheckMakeSpans(f, fs.Get(0)); cerr != nil {
		t.Fatalf("valid makefile: %v", cerr)
	}
	if len(f.Items) < 2 {
		t.Fatalf("items = %d", len(f.Items))
	}
	if CheckMakeSpans(nil, fs.Get(0)) == nil {
		t.Error("nil file was accepted")
	}
}

func TestCheckOrdered(t *testing.T) {
	outer := source.Span{Start: 0, End: 20}
	ok := []source.Span{{Start: 0, End: 5}, {Start: 5, End: 9}, {}, {Start: 10, End: 20}}
	if err := checkOrdered("stmt", ok, outer); err != nil {
		t.Fatal(err)
	}
	overlap := []source.Span{{Start: 0, End: 6}, {Start: 5, End: 9}}
	if checkOrdered("stmt", overlap, outer) == nil {
		t.Error("overlap accepted")
	}
}
