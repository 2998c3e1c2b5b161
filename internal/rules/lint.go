package rules

import (
	"sync"

	"shellpure/internal/analysis"
	"shellpure/internal/analysis/makepass"
	"shellpure/internal/analysis/shellpass"
	"shellpure/internal/diag"
	mkast "shellpure/internal/makefile/ast"
	mkparser "shellpure/internal/makefile/parser"
	shast "shellpure/internal/shell/ast"
	shparser "shellpure/internal/shell/parser"
	"shellpure/internal/source"
)

// LintResult holds diagnostics in report order.
type LintResult struct {
	Diagnostics []diag.Diagnostic
}

// Merge appends the diagnostics of other.
func (r *LintResult) Merge(other LintResult) {
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}

// HasErrors reports whether any diagnostic is an error.
func (r LintResult) HasErrors() bool {
	for i := range r.Diagnostics {
		if r.Diagnostics[i].Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics with severity sev.
func (r LintResult) Count(sev diag.Severity) int {
	n := 0
	for i := range r.Diagnostics {
		if r.Diagnostics[i].Severity == sev {
			n++
		}
	}
	return n
}

// Input is one parsed file shared by all rules. The analysis passes run at
// most once per Input.
type Input struct {
	FS     *source.FileSet
	File   source.FileID
	Lang   analysis.Language
	Script *shast.Script
	Make   *mkast.File

	once     sync.Once
	findings []analysis.Transformation
	failures []diag.Diagnostic
	supp     Suppressions
}

// Prepare parses file id as lang. A parse failure is returned as a single
// diagnostic.
func Prepare(fs *source.FileSet, id source.FileID, lang analysis.Language) (*Input, *diag.Diagnostic) {
	in := &Input{FS: fs, File: id, Lang: lang}
	if f := fs.Get(id); f != nil {
		in.supp = ParseSuppressions(f.Content)
	}
	if lang == analysis.LangMake {
		file, err := mkparser.Parse(fs, id)
		if err != nil {
			d := err.ToDiagnostic()
			return nil, &d
		}
		in.Make = file
		return in, nil
	}
	in.Lang = analysis.LangShell
	script, err := shparser.Parse(fs, id)
	if err != nil {
		d := err.ToDiagnostic()
		return nil, &d
	}
	in.Script = script
	return in, nil
}

// Findings returns every transformation the passes reported, before any
// registry filtering.
func (in *Input) Findings() []analysis.Transformation {
	in.run()
	return in.findings
}

// Failures returns one INTERNAL diagnostic per pass that crashed.
func (in *Input) Failures() []diag.Diagnostic {
	in.run()
	return in.failures
}

func (in *Input) run() {
	in.once.Do(func() {
		at := source.Span{File: in.File}
		switch {
		case in.Make != nil:
			in.findings, in.failures = runPasses(makepass.Passes(), in.Make, in.FS, at)
		case in.Script != nil:
			in.findings, in.failures = runPasses(shellpass.Passes(), in.Script, in.FS, at)
		}
	})
}

func runPasses[N any](passes []analysis.Pass[N], n N, fs *source.FileSet, at source.Span) ([]analysis.Transformation, []diag.Diagnostic) {
	var (
		out   []analysis.Transformation
		fails []diag.Diagnostic
	)
	for _, p := range passes {
		ts, err := p.Run(n)
		if err != nil {
			fails = append(fails, PassFailure(fs, at, err))
			continue
		}
		out = append(out, ts...)
	}
	return out, fails
}

// PassFailure converts a crashed pass into a low-confidence INTERNAL001
// warning.
func PassFailure(fs *source.FileSet, at source.Span, err error) diag.Diagnostic {
	return diag.New(diag.SevWarning, diag.CodeInternalAnalysis, err.Error(),
		"low confidence: one analysis pass failed, findings of its category may be missing; the other passes ran normally",
		"please report this with the input file attached").At(fs, at)
}

// Check returns the diagnostics of rule r for in. It never panics: a crashed
// pass yields no findings here and is reported once by Lint.
func (r Rule) Check(in *Input) []diag.Diagnostic {
	if r.Disabled || !r.Lang.Has(in.Lang) {
		return nil
	}
	var out []diag.Diagnostic
	for _, t := range in.Findings() {
		if t.Kind != r.Kind {
			continue
		}
		d := t.Diagnostic(in.FS, r.Severity)
		if !r.Fixable {
			d.Fix = nil
		}
		if in.supp.Suppressed(d.Code, d.Location.Line) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// LintFile runs every enabled rule of reg on file id.
func LintFile(reg *Registry, fs *source.FileSet, id source.FileID, lang analysis.Language) LintResult {
	in, perr := Prepare(fs, id, lang)
	if perr != nil {
		return LintResult{Diagnostics: []diag.Diagnostic{*perr}}
	}
	return LintInput(reg, in)
}

// LintInput runs every enabled rule of reg on an already parsed input.
// Diagnostics keep detection order: rule by rule, each rule in the order
// its passes found them.
func LintInput(reg *Registry, in *Input) LintResult {
	var found []diag.Diagnostic
	for _, rule := range reg.ForLanguage(in.Lang) {
		found = append(found, rule.Check(in)...)
	}
	res := LintResult{Diagnostics: append([]diag.Diagnostic(nil), in.Failures()...)}
	res.Diagnostics = append(res.Diagnostics, found...)
	return res
}

// Lint parses src as lang under the display name name and lints it.
func Lint(reg *Registry, lang analysis.Language, name, src string) LintResult {
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, []byte(src))
	return LintFile(reg, fs, id, lang)
}
