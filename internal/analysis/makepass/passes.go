// Package makepass holds the analysis passes over GNU Makefiles.
//
// Recipe lines and `$(shell ...)` arguments are shell text; they are read
// through analysis.ParseLine and share the command detectors with the shell
// passes. Everything about variables, rules and the prerequisite graph is
// specific to this package.
package makepass

import (
	"shellpure/internal/analysis"
	"shellpure/internal/makefile/ast"
)

// Passes returns the seven Makefile passes in category order.
func Passes() []analysis.Pass[*ast.File] {
	return []analysis.Pass[*ast.File]{
		{Name: "make/security", Category: analysis.CatSecurity, Analyze: Security},
		{Name: "make/idempotency", Category: analysis.CatIdempotency, Analyze: Idempotency},
		{Name: "make/determinism", Category: analysis.CatReproducibility, Analyze: Determinism},
		{Name: "make/parallel", Category: analysis.CatParallelSafety, Analyze: ParallelSafety},
		{Name: "make/errors", Category: analysis.CatErrorHandling, Analyze: ErrorHandling},
		{Name: "make/portability", Category: analysis.CatPortability, Analyze: Portability},
		{Name: "make/performance", Category: analysis.CatPerformance, Analyze: Performance},
	}
}

// Analyze runs every pass and concatenates the findings.
func Analyze(f *ast.File) []analysis.Transformation {
	var out []analysis.Transformation
	for _, p := range Passes() {
		out = append(out, p.Analyze(f)...)
	}
	return out
}

// Security reports injection and trust problems in recipes and variables.
func Security(f *ast.File) []analysis.Transformation {
	recipes := recipeLines(f)
	out := analysis.CheckSecurity(allChains(recipes, shellCalls(f)))
	out = append(out, unquotedRmVars(recipes)...)
	out = append(out, variableSecrets(f)...)
	return analysis.Dedup(out)
}

// Idempotency reports mkdir/rm/ln calls that fail when run twice.
func Idempotency(f *ast.File) []analysis.Transformation {
	return analysis.Dedup(analysis.CheckIdempotency(allChains(recipeLines(f), shellCalls(f))))
}

// Determinism reports values that change between builds, including
// unsorted file lists.
func Determinism(f *ast.File) []analysis.Transformation {
	calls := shellCalls(f)
	out := analysis.CheckDeterminism(allChains(recipeLines(f), calls), analysis.LangMake)
	for _, v := range f.Variables() {
		if analysis.IsEpochLiteral(v.Value) {
			out = append(out, analysis.New(analysis.KindEpochLiteral, v.ValueSpan, v.Value,
				"`"+v.Name+"` holds a hard-coded Unix timestamp"))
		}
	}
	out = append(out, unsortedWildcards(f)...)
	out = append(out, unsortedFinds(calls)...)
	return analysis.Dedup(out)
}

// ParallelSafety reports races under `make -j`.
func ParallelSafety(f *ast.File) []analysis.Transformation {
	recipes := recipeLines(f)
	out := literalMake(recipes)
	if !f.HasSpecialTarget(".NOTPARALLEL") {
		out = append(out, sharedOutputs(recipes, newGraph(f))...)
		out = append(out, sharedTmpPaths(recipes)...)
	}
	return analysis.Dedup(out)
}

// ErrorHandling reports failures make does not notice.
func ErrorHandling(f *ast.File) []analysis.Transformation {
	recipes := recipeLines(f)
	out := analysis.CheckMaskedFailures(allChains(recipes, nil))
	out = append(out, ignoredErrors(recipes)...)
	out = append(out, missingDeleteOnError(f, recipes)...)
	out = append(out, missingPhony(f)...)
	if !f.HasSpecialTarget(".ONESHELL") {
		out = append(out, lonelyCd(recipes)...)
	}
	return analysis.Dedup(out)
}

// Portability reports bashisms and non-portable tools in recipes; make runs
// them with /bin/sh.
func Portability(f *ast.File) []analysis.Transformation {
	recipes := recipeLines(f)
	out := analysis.CheckPortability(allChains(recipes, shellCalls(f)))
	out = append(out, recipeArithmetic(recipes)...)
	return analysis.Dedup(out)
}

// Performance reports repeated expansion and needless processes.
func Performance(f *ast.File) []analysis.Transformation {
	recipes := recipeLines(f)
	out := variableExpansion(f)
	out = append(out, shellInRecipes(recipes)...)
	out = append(out, analysis.CheckPerformance(allChains(recipes, nil))...)
	return analysis.Dedup(out)
}
