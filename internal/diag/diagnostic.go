package diag

import (
	"shellpure/internal/source"
)

// Fix is a single text replacement that is known to preserve behaviour.
type Fix struct {
	Title       string
	Span        source.Span
	Replacement string
}

// Diagnostic is one finding produced by a parser, a rule or the verifier.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Location Location
	Span     source.Span
	Note     string
	Help     string
	// Fix is set only when the finding was classified safe.
	Fix *Fix
}

// New builds a diagnostic and fills the note/help fallbacks so that both are
// never empty.
func New(sev Severity, code Code, msg, note, help string) Diagnostic {
	d := Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Note:     note,
		Help:     help,
	}
	return d.normalized()
}

// NewError is a shortcut for SevError diagnostics.
func NewError(code Code, msg, note, help string) Diagnostic {
	return New(SevError, code, msg, note, help)
}

// At attaches the span and the resolved location.
func (d Diagnostic) At(fs *source.FileSet, span source.Span) Diagnostic {
	d.Span = span
	d.Location = Resolve(fs, span)
	return d
}

// WithLocation replaces the location.
func (d Diagnostic) WithLocation(loc Location) Diagnostic {
	d.Location = loc
	return d
}

// WithFix attaches a safe fix.
func (d Diagnostic) WithFix(title string, span source.Span, replacement string) Diagnostic {
	d.Fix = &Fix{Title: title, Span: span, Replacement: replacement}
	return d
}

// HasFix reports whether the diagnostic carries an automatic fix.
func (d *Diagnostic) HasFix() bool {
	return d.Fix != nil
}

// QualityScore rates this diagnostic, see the package-level QualityScore.
func (d *Diagnostic) QualityScore() float64 {
	return QualityScore(ScoreInputOf(d.Message, d.Note, d.Help, d.Location))
}

func (d Diagnostic) normalized() Diagnostic {
	if d.Note == "" {
		d.Note = d.Code.Description()
	}
	if d.Note == "" {
		d.Note = "reported by " + string(d.Code)
	}
	if d.Help == "" {
		d.Help = "run `shellpure rules " + string(d.Code) + "` for details"
	}
	return d
}
