package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса
	maxFuzzInput = 1 << 16
)

var shellSeeds = []string{
	"#!/bin/sh\necho hello\n",
	"#!/bin/bash\nset -euo pipefail\nmkdir $OUT\nrm -r build\nln -s a b\n",
	"if [ -f x ]; then\n  cat x | grep y\nelif true; then :; else exit 1; fi\n",
	"for f in *.txt; do echo \"$f\" & done\nwait\n",
	"x=$(date +%s)\ny=`hostname`\necho \"$x-$y-$$-$RANDOM\"\n",
	"cat <<EOF\nbody $HOME\nEOF\n",
	"f() { local a=1; return $a; }\ncase $1 in a|b) f ;; *) ;; esac\n",
	"while read -r line; do echo \"${line%%:*}\"; done < /etc/passwd\n",
	"case \"$1\" in start) echo run;; *) echo usage; esac\n",
	"#!/bin/bash\nmake 2>&1 |& tee build.log\ncp a{,.bak}\n",
}

var makeSeeds = []string{
	"all:\n\tmkdir build\n",
	"SOURCES = $(wildcard *.c)\nOBJ := $(SOURCES:.c=.o)\n\n.PHONY: all\nall: $(OBJ)\n\t$(CC) -o app $^\n",
	"ifeq ($(OS),Windows_NT)\nEXT = .exe\nelse\nEXT =\nendif\n",
	"define banner\n@echo building\nendef\n\ninclude common.mk\n",
	"clean:\n\t-rm -rf $(BUILD)\n\tcd out && $(MAKE) clean\n",
}

func addShellSeeds(f *testing.F) {
	for _, s := range shellSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f, func(path string) bool {
		ext := filepath.Ext(path)
		return ext == ".sh" || ext == ".bash"
	})
}

func addMakeSeeds(f *testing.F) {
	for _, s := range makeSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f, func(path string) bool {
		base := filepath.Base(path)
		return filepath.Ext(base) == ".mk" || strings.EqualFold(base, "makefile") || base == "GNUmakefile"
	})
}

// addTestdataSeeds добавляет файлы из testdata/seeds, подходящие под keep.
func addTestdataSeeds(f *testing.F, keep func(string) bool) {
	root := filepath.Join("testdata", "seeds")
	if _, err := os.Stat(root); err != nil {
		return
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() || !keep(path) {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
	if err != nil {
		f.Logf("seed walk: %v", err)
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
