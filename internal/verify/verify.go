// Package verify checks purified output: purifying it again must not change
// it, and external parsers and linters must accept it.
//
// The external checks never fail a run. A missing or slow linter is reported
// as a VERIFY001 warning.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
	"shellpure/internal/purify"
)

var (
	// ErrNotIdempotent means a second purify run changed the output.
	ErrNotIdempotent = errors.New("verify: purified output is not a fixed point")
	// ErrLinterUnavailable means the external linter binary could not be run.
	ErrLinterUnavailable = errors.New("verify: external linter unavailable")
)

// Idempotent purifies text, which is the output of a purify run, once more
// and fails when anything changes.
func Idempotent(lang analysis.Language, name, text string, opts purify.Options) error {
	var (
		again   string
		applied int
	)
	switch lang {
	case analysis.LangMake:
		res, err := purify.MakefileString(name, text, opts)
		if err != nil {
			return fmt.Errorf("%w: output does not parse: %w", ErrNotIdempotent, err)
		}
		again, applied = res.Text, res.TransformationsApplied
	default:
		res, err := purify.ShellString(name, text, opts)
		if err != nil {
			return fmt.Errorf("%w: output does not parse: %w", ErrNotIdempotent, err)
		}
		again, applied = res.Text, res.TransformationsApplied
	}
	if again != text || applied != 0 {
		line, was, now := firstDiff(text, again)
		return fmt.Errorf("%w: line %d %q became %q", ErrNotIdempotent, line, was, now)
	}
	return nil
}

// IdempotentDiagnostic converts an Idempotent failure into an INTERNAL002
// diagnostic located at the start of the file.
func IdempotentDiagnostic(name string, err error) diag.Diagnostic {
	return diag.New(diag.SevWarning, diag.CodeInternalVerify, err.Error(),
		"purifying the output again changed it, so the fixes are not stable",
		"please report this with the input file attached; lint findings are unaffected").
		WithLocation(diag.Location{File: name})
}

func firstDiff(a, b string) (line int, was, now string) {
	al, bl := strings.Split(a, "\n"), strings.Split(b, "\n")
	for i := 0; i < len(al) || i < len(bl); i++ {
		var x, y string
		if i < len(al) {
			x = al[i]
		}
		if i < len(bl) {
			y = bl[i]
		}
		if x != y {
			return i + 1, x, y
		}
	}
	return 0, "", ""
}

func sourceLine(text string, line int) string {
	if line <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}
