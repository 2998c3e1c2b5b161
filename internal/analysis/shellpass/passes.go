// Package shellpass holds the analysis passes over Bash/POSIX scripts.
package shellpass

import (
	"shellpure/internal/analysis"
	"shellpure/internal/shell/ast"
)

// Passes returns the seven shell passes in category order.
func Passes() []analysis.Pass[*ast.Script] {
	return []analysis.Pass[*ast.Script]{
		{Name: "shell/security", Category: analysis.CatSecurity, Analyze: Security},
		{Name: "shell/idempotency", Category: analysis.CatIdempotency, Analyze: Idempotency},
		{Name: "shell/determinism", Category: analysis.CatReproducibility, Analyze: Determinism},
		{Name: "shell/parallel", Category: analysis.CatParallelSafety, Analyze: ParallelSafety},
		{Name: "shell/errors", Category: analysis.CatErrorHandling, Analyze: ErrorHandling},
		{Name: "shell/portability", Category: analysis.CatPortability, Analyze: Portability},
		{Name: "shell/performance", Category: analysis.CatPerformance, Analyze: Performance},
	}
}

// Analyze runs every pass and concatenates the findings.
func Analyze(script *ast.Script) []analysis.Transformation {
	var out []analysis.Transformation
	for _, p := range Passes() {
		out = append(out, p.Analyze(script)...)
	}
	return out
}

// Security reports injection and trust problems, and unquoted expansions.
func Security(script *ast.Script) []analysis.Transformation {
	chains := analysis.ShellChains(script)
	out := analysis.CheckSecurity(chains)
	out = append(out, unquotedExpansions(script)...)
	return analysis.Dedup(out)
}

// Idempotency reports mkdir/rm/ln calls that fail when run twice.
func Idempotency(script *ast.Script) []analysis.Transformation {
	return analysis.Dedup(analysis.CheckIdempotency(analysis.ShellChains(script)))
}

// Determinism reports values that change between runs.
func Determinism(script *ast.Script) []analysis.Transformation {
	return analysis.Dedup(analysis.CheckDeterminism(analysis.ShellChains(script), analysis.LangShell))
}

// ParallelSafety reports background jobs that race or are never waited for.
func ParallelSafety(script *ast.Script) []analysis.Transformation {
	return analysis.Dedup(backgroundJobs(script))
}

// ErrorHandling reports failures the script does not notice.
func ErrorHandling(script *ast.Script) []analysis.Transformation {
	return analysis.Dedup(errorHandling(script))
}

// Portability reports bashisms and non-portable tools, and offers the
// `#!/bin/sh` rewrite when none are left.
func Portability(script *ast.Script) []analysis.Transformation {
	out := analysis.CheckPortability(analysis.ShellChains(script))
	out = append(out, syntaxBashisms(script)...)
	if t, ok := posixShebang(script, out); ok {
		out = append(out, t)
	}
	return analysis.Dedup(out)
}

// Performance reports needless processes.
func Performance(script *ast.Script) []analysis.Transformation {
	return analysis.Dedup(analysis.CheckPerformance(analysis.ShellChains(script)))
}
