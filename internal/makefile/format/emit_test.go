package format

import (
	"testing"

	"shellpure/internal/makefile/parser"
	"shellpure/internal/source"
)

func emitOnce(t *testing.T, src string) string {
	t.Helper()
	fs := source.NewFileSet()
	f, err := parser.ParseString(fs, "Makefile", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return Emit(f)
}

const sample = `# build file
CC ?= cc
export PATH := /usr/bin
SRCS = a.c \
	b.c
OBJS := $(SRCS:.c=.o)

.PHONY: all clean
all: app | out
	@echo building
	$(CC) -o app $(OBJS)

ifeq ($(OS),Windows_NT)
EXT = .exe
else ifdef CROSS
EXT = .elf
else
EXT =
endif

define BANNER
hello
endef
-include local.mk
$(info done)
clean::
	-rm -f app
`

func TestEmitPreservesCanonicalInput(t *testing.T) {
	if got := emitOnce(t, sample); got != sample {
		t.Fatalf("canonical input changed:\n--- got ---\n%s\n--- want ---\n%s", got, sample)
	}
}

func TestEmitNormalises(t *testing.T) {
	src := "CC:=gcc\nall:dep1   dep2|out ;echo hi\n\nifeq ( a , b )\nX=1\nendif\n"
	want := "CC := gcc\nall: dep1 dep2 | out\n\techo hi\n\nifeq ( a , b )\nX = 1\nendif\n"
	if got := emitOnce(t, src); got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestEmitKeepsTrailingComments(t *testing.T) {
	inputs := []string{
		"ifeq ($(X),1) # only on X\nA = 1\nelse # otherwise\nA = 2\nendif # X\n",
		"ifdef A # a\nB = 1\nelse ifdef C # c\nB = 2\nendif\n",
		"include a.mk # shared\n-include local.mk\t# optional\n",
		"vpath %.c src # sources\nunexport CFLAGS # keep env clean\n",
		"A := x  # two spaces stay in the value\nB = y\t# tab\nC = z# tight\n",
		"define BANNER # text\nhello\nendef\n",
		"$(info hi) # say hi\n",
		"t: VAR := v # target specific\n",
	}
	for _, in := range inputs {
		if got := emitOnce(t, in); got != in {
			t.Errorf("emit changed the input:\n got %q\nwant %q", got, in)
		}
	}
}

func TestEmitIsIdempotent(t *testing.T) {
	inputs := []string{
		sample,
		"a:b;c\nX+=y # comment\nexport override Y = 2\n",
		"build:\n\tstep1\n\n# note\n\tstep2\n",
		"t: VAR := v\n%.o: %.c\n\tcc -c $<\n",
	}
	for _, in := range inputs {
		once := emitOnce(t, in)
		twice := emitOnce(t, once)
		if once != twice {
			t.Fatalf("emission not stable:\nonce:\n%q\ntwice:\n%q", once, twice)
		}
	}
}
