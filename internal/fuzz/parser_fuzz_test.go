package fuzztests

import (
	"context"
	"testing"
	"time"

	mkparser "shellpure/internal/makefile/parser"
	"shellpure/internal/purify"
	shparser "shellpure/internal/shell/parser"
	"shellpure/internal/source"
	"shellpure/internal/testkit"
)

// parseTimeout is the maximum time allowed for one input. Anything slower
// points at a loop in error recovery.
const parseTimeout = 5 * time.Second

func FuzzShellParserSpans(f *testing.F) {
	addShellSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		fs := source.NewFileSet()
		id := fs.AddVirtual("fuzz.sh", input)
		script, err := shparser.Parse(fs, id)
		if err != nil {
			return
		}
		if cerr := testkit.CheckShellSpans(script, fs.Get(id)); cerr != nil {
			t.Fatalf("span invariant: %v\ninput: %q", cerr, truncateForLog(input, 200))
		}
	})
}

func FuzzMakeParserSpans(f *testing.F) {
	addMakeSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		fs := source.NewFileSet()
		id := fs.AddVirtual("fuzz.mk", input)
		file, err := mkparser.Parse(fs, id)
		if err != nil {
			return
		}
		if cerr := testkit.CheckMakeSpans(file, fs.Get(id)); cerr != nil {
			t.Fatalf("span invariant: %v\ninput: %q", cerr, truncateForLog(input, 200))
		}
	})
}

// FuzzPurifyNoHang checks that purification terminates and that its output
// always parses again.
func FuzzPurifyNoHang(f *testing.F) {
	addShellSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()

		type outcome struct {
			text string
			ok   bool
		}
		done := make(chan outcome, 1)
		go func() {
			res, err := purify.ShellString("fuzz.sh", string(input), purify.Options{})
			done <- outcome{text: res.Text, ok: err == nil}
		}()

		select {
		case out := <-done:
			if !out.ok {
				return
			}
			if _, perr := shparser.ParseString(source.NewFileSet(), "fuzz.sh", out.text); perr != nil {
				t.Fatalf("purified output does not parse: %v\ninput: %q\noutput: %q", perr, truncateForLog(input, 200), out.text)
			}
		case <-ctx.Done():
			t.Fatalf("purify hang detected: took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], []byte("...")...)
}
