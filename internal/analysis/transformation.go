package analysis

import (
	"fmt"

	"shellpure/internal/diag"
	"shellpure/internal/fix"
	"shellpure/internal/source"
)

// Transformation is one finding of an analysis pass. Fix is set only when
// Safe is true: the rewrite is local and keeps the behaviour of the script.
type Transformation struct {
	Kind       Kind
	Construct  string
	Reason     string
	Suggestion string
	Safe       bool
	Span       source.Span
	Fix        *fix.Edit
}

// New creates a detection-only transformation with the kind's default
// suggestion.
func New(kind Kind, span source.Span, construct, reason string) Transformation {
	return Transformation{
		Kind:       kind,
		Construct:  construct,
		Reason:     reason,
		Suggestion: kind.Info().Help,
		Span:       span,
	}
}

// WithFix marks t safe with the given edit.
func (t Transformation) WithFix(e fix.Edit) Transformation {
	t.Safe = true
	t.Fix = &e
	return t
}

// Suggest overrides the suggestion.
func (t Transformation) Suggest(format string, args ...any) Transformation {
	t.Suggestion = fmt.Sprintf(format, args...)
	return t
}

// Category is shorthand for t.Kind.Category().
func (t Transformation) Category() Category {
	return t.Kind.Category()
}

// Describe renders a one-line report entry.
func (t Transformation) Describe() string {
	return fmt.Sprintf("%s: %s (%s)", t.Kind.Code(), t.Reason, t.Category())
}

// Diagnostic converts t into a diagnostic with severity sev. The fix is
// attached only for safe transformations.
func (t Transformation) Diagnostic(fs *source.FileSet, sev diag.Severity) diag.Diagnostic {
	info := t.Kind.Info()
	d := diag.New(sev, info.Code, t.Reason, info.Summary, t.Suggestion).At(fs, t.Span)
	if t.Safe && t.Fix != nil {
		d = d.WithFix(t.Suggestion, t.Fix.Span, t.Fix.NewText)
	}
	return d
}

// Pass is one independent analysis over an AST of type N.
type Pass[N any] struct {
	Name     string
	Category Category
	Analyze  func(N) []Transformation
}

// PanicError wraps a panic raised inside a pass.
type PanicError struct {
	Pass  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("analysis pass %q panicked: %v", e.Pass, e.Value)
}

// Run executes the pass and converts a panic into a *PanicError.
func (p Pass[N]) Run(n N) (out []Transformation, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &PanicError{Pass: p.Name, Value: r}
		}
	}()
	return p.Analyze(n), nil
}
