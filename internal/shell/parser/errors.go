package parser

import (
	"fmt"

	"shellpure/internal/diag"
	"shellpure/internal/source"
)

// Error is a shell syntax error. Parsing stops at the first one.
type Error struct {
	Msg      string
	Span     source.Span
	Location diag.Location
	note     string
}

func (e *Error) Error() string {
	if e.Location.IsZero() {
		return e.Msg
	}
	return fmt.Sprintf("%s at %s", e.Msg, e.Location)
}

// Note explains the failure.
func (e *Error) Note() string {
	if e.note != "" {
		return e.note
	}
	return "the shell grammar does not allow this token here, so no rule was run on the script"
}

// Help suggests where to look.
func (e *Error) Help() string {
	return "check quoting and that every if/for/while/case block and every $( ) is closed; `bash -n` reports the same position"
}

// QualityScore rates the error like any other diagnostic.
func (e *Error) QualityScore() float64 {
	return diag.QualityScore(diag.ScoreInputOf(e.Msg, e.Note(), e.Help(), e.Location))
}

// ToDiagnostic converts the error into an SH000 diagnostic.
func (e *Error) ToDiagnostic() diag.Diagnostic {
	d := diag.NewError(diag.CodeShellParse, e.Msg, e.Note(), e.Help())
	d.Span = e.Span
	d.Location = e.Location
	return d
}

// bailout unwinds the recursive descent on the first error.
type bailout struct {
	err *Error
}
