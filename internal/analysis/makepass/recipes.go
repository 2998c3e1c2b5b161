package makepass

import (
	"strings"

	"shellpure/internal/analysis"
	"shellpure/internal/fix"
	"shellpure/internal/makefile/ast"
	"shellpure/internal/makefile/parser"
	"shellpure/internal/source"
)

// recipe is one recipe line split into its prefix and its commands.
type recipe struct {
	ref    ast.RecipeRef
	prefix string
	chains []analysis.Chain
}

func (r recipe) rule() *ast.Rule { return r.ref.Rule }

// recipeLines parses every recipe line of the file. The @, - and + prefixes
// are not part of the shell text.
func recipeLines(f *ast.File) []recipe {
	var out []recipe
	for _, ref := range f.Recipes() {
		text := ref.Line.Text
		off := 0
		for off < len(text) && strings.IndexByte("@-+ \t", text[off]) >= 0 {
			off++
		}
		out = append(out, recipe{
			ref:    ref,
			prefix: strings.TrimSpace(text[:off]),
			chains: analysis.ParseLine(text[off:], ref.Line.Span.Sub(off, len(text))),
		})
	}
	return out
}

// shellCall is the command text of a `$(shell ...)` call outside recipes.
type shellCall struct {
	call   ast.FunctionCall
	chains []analysis.Chain
}

// shellCalls parses the outermost `$(shell ...)` calls of variable values
// and standalone calls. Nested calls are reached through ParseLine.
func shellCalls(f *ast.File) []shellCall {
	var calls []ast.FunctionCall
	for _, v := range f.Variables() {
		calls = append(calls, v.Calls...)
	}
	ast.Walk(f.Items, func(it ast.Item) bool {
		if c, ok := it.(*ast.FunctionCall); ok {
			calls = append(calls, *c)
			calls = append(calls, nestedCalls(c)...)
		}
		return true
	})
	var out []shellCall
	for i, c := range calls {
		if c.Name != "shell" || len(c.Args) == 0 || len(c.ArgSpans) == 0 || insideShell(calls, i) {
			continue
		}
		out = append(out, shellCall{call: c, chains: analysis.ParseLine(c.Args[0], c.ArgSpans[0])})
	}
	return out
}

func nestedCalls(c *ast.FunctionCall) []ast.FunctionCall {
	var out []ast.FunctionCall
	for i, a := range c.Args {
		if i < len(c.ArgSpans) {
			out = append(out, parser.ExtractCalls(a, c.ArgSpans[i])...)
		}
	}
	return out
}

func insideShell(calls []ast.FunctionCall, i int) bool {
	for j, c := range calls {
		if j != i && c.Name == "shell" && c.Span.Contains(calls[i].Span) && c.Span != calls[i].Span {
			return true
		}
	}
	return false
}

func allChains(recipes []recipe, calls []shellCall) []analysis.Chain {
	var out []analysis.Chain
	for _, r := range recipes {
		out = append(out, r.chains...)
	}
	for _, c := range calls {
		out = append(out, c.chains...)
	}
	return out
}

func isMakeRef(raw string) bool {
	return strings.HasPrefix(raw, "$(") || strings.HasPrefix(raw, "${")
}

// unquotedRmVars reports `rm -r $(VAR)`: an empty or spaced value removes
// more than intended.
func unquotedRmVars(recipes []recipe) []analysis.Transformation {
	var out []analysis.Transformation
	for _, r := range recipes {
		for _, cmd := range analysis.Commands(r.chains) {
			if cmd.Name() != "rm" || (!cmd.HasFlag('r', "recursive") && !cmd.HasFlag('R', "")) {
				continue
			}
			for _, a := range cmd.Operands() {
				if !a.Quoted && isMakeRef(a.Raw) {
					out = append(out, analysis.New(analysis.KindUnquotedRmVar, a.Span, a.Raw,
						"`rm -r "+a.Raw+"` deletes whatever the variable expands to"))
				}
			}
		}
	}
	return out
}

func variableSecrets(f *ast.File) []analysis.Transformation {
	var out []analysis.Transformation
	for _, v := range f.Variables() {
		if analysis.IsSecretAssignment(v.Name, v.Value) {
			out = append(out, analysis.New(analysis.KindHardcodedSecret, v.Span, v.Name+" = …",
				"`"+v.Name+"` is assigned a literal credential"))
			continue
		}
		if start, end, ok := analysis.SecretToken(v.Value); ok {
			out = append(out, analysis.New(analysis.KindHardcodedSecret, v.ValueSpan.Sub(start, end), "…",
				"`"+v.Name+"` contains a credential-shaped token"))
		}
	}
	return out
}

// unsortedWildcards reports `$(wildcard ...)` outside `$(sort ...)` and
// wraps it.
func unsortedWildcards(f *ast.File) []analysis.Transformation {
	var groups [][]ast.FunctionCall
	for _, v := range f.Variables() {
		groups = append(groups, v.Calls)
	}
	for _, ref := range f.Recipes() {
		groups = append(groups, ref.Line.Calls)
	}
	var out []analysis.Transformation
	for _, calls := range groups {
		for _, c := range calls {
			if c.Name != "wildcard" || sortedBy(calls, c.Span) {
				continue
			}
			t := analysis.New(analysis.KindUnsortedWildcard, c.Span, c.Raw,
				"`"+c.Raw+"` is not sorted").Suggest("use `$(sort %s)`", c.Raw)
			out = append(out, t.WithFix(fixWrap(c)))
		}
	}
	return out
}

func fixWrap(c ast.FunctionCall) fix.Edit {
	return fix.WrapWith(c.Span, c.Raw, "$(sort ", ")")
}

func sortedBy(calls []ast.FunctionCall, span source.Span) bool {
	for _, c := range calls {
		if c.Name == "sort" && c.Span.Contains(span) && c.Span != span {
			return true
		}
	}
	return false
}

// unsortedFinds reports `$(shell find ...)` whose output is not sorted.
func unsortedFinds(calls []shellCall) []analysis.Transformation {
	var out []analysis.Transformation
	for _, sc := range calls {
		for _, ch := range sc.chains {
			hasFind, hasSort := false, false
			for _, cmd := range ch.Cmds {
				switch cmd.Name() {
				case "find":
					hasFind = true
				case "sort":
					hasSort = true
				}
			}
			if hasFind && !hasSort {
				out = append(out, analysis.New(analysis.KindUnsortedFind, sc.call.Span, sc.call.Raw,
					"`find` output is used unsorted"))
			}
		}
	}
	return out
}

func literalMake(recipes []recipe) []analysis.Transformation {
	var out []analysis.Transformation
	for _, r := range recipes {
		for _, cmd := range analysis.Commands(r.chains) {
			name, ok := cmd.NameArg()
			if ok && name.Raw == "make" {
				out = append(out, analysis.New(analysis.KindLiteralMake, name.Span, name.Raw,
					"recursive call uses a literal `make`"))
			}
		}
	}
	return out
}

func ignoredErrors(recipes []recipe) []analysis.Transformation {
	var out []analysis.Transformation
	for _, r := range recipes {
		if strings.Contains(r.prefix, "-") {
			out = append(out, analysis.New(analysis.KindIgnoredRecipeError, r.ref.Line.Span, r.ref.Line.Text,
				"errors of this recipe line are ignored"))
		}
	}
	return out
}

func missingDeleteOnError(f *ast.File, recipes []recipe) []analysis.Transformation {
	if len(recipes) == 0 || f.HasSpecialTarget(".DELETE_ON_ERROR") {
		return nil
	}
	var first *ast.Rule
	for _, r := range recipes {
		if r.rule() != nil {
			first = r.rule()
			break
		}
	}
	span := recipes[0].ref.Line.Span
	if first != nil {
		span = first.HeaderSpan
	}
	return []analysis.Transformation{analysis.New(analysis.KindMissingDeleteOnError, span, "",
		"the Makefile does not declare `.DELETE_ON_ERROR:`")}
}

var conventionalPhony = map[string]bool{
	"all": true, "clean": true, "distclean": true, "install": true, "uninstall": true,
	"test": true, "check": true, "help": true, "lint": true, "fmt": true, "format": true,
	"run": true, "docs": true, "release": true, "deploy": true,
}

func missingPhony(f *ast.File) []analysis.Transformation {
	phony := map[string]bool{}
	for _, r := range f.Rules() {
		for _, t := range r.Targets {
			if t == ".PHONY" {
				for _, p := range r.Prereqs {
					phony[p] = true
				}
			}
		}
	}
	var out []analysis.Transformation
	seen := map[string]bool{}
	for _, r := range f.Rules() {
		if r.VarAssign != nil {
			continue
		}
		for _, t := range r.Targets {
			if conventionalPhony[t] && !phony[t] && !seen[t] {
				seen[t] = true
				out = append(out, analysis.New(analysis.KindMissingPhony, r.HeaderSpan, t,
					"target `"+t+"` is not declared `.PHONY`").Suggest("add `.PHONY: %s`", t))
			}
		}
	}
	return out
}

func lonelyCd(recipes []recipe) []analysis.Transformation {
	var out []analysis.Transformation
	for _, r := range recipes {
		if len(r.chains) == 0 {
			continue
		}
		ch := r.chains[0]
		if len(ch.Cmds) == 1 && ch.Cmds[0].Name() == "cd" {
			out = append(out, analysis.New(analysis.KindCdOwnLine, ch.Cmds[0].Span, ch.Cmds[0].Text(),
				"`cd` on its own recipe line does not affect the following lines"))
		}
	}
	return out
}

// variableExpansion reports recursive variables that reference themselves
// or run `$(shell ...)` on every expansion.
func variableExpansion(f *ast.File) []analysis.Transformation {
	var out []analysis.Transformation
	for _, v := range f.Variables() {
		if v.Flavor != ast.FlavorRecursive {
			continue
		}
		if refersTo(v.Value, v.Name) {
			out = append(out, analysis.New(analysis.KindSelfReference, v.Span, v.Name+" = "+v.Value,
				"recursive variable `"+v.Name+"` references itself").
				Suggest("use `%s := ...` to expand once, or `%s += ...` to append", v.Name, v.Name))
		}
		for _, c := range v.Calls {
			if c.Name == "shell" {
				out = append(out, analysis.New(analysis.KindShellInRecursiveVar, c.Span, c.Raw,
					"`"+v.Name+" =` runs `"+c.Raw+"` on every expansion").
					Suggest("use `%s :=` so the command runs once", v.Name))
				break
			}
		}
	}
	return out
}

// refersTo reports whether value contains $(name) or ${name}.
func refersTo(value, name string) bool {
	return strings.Contains(value, "$("+name+")") || strings.Contains(value, "${"+name+"}")
}

func shellInRecipes(recipes []recipe) []analysis.Transformation {
	var out []analysis.Transformation
	for _, r := range recipes {
		for _, c := range r.ref.Line.Calls {
			if c.Name == "shell" {
				out = append(out, analysis.New(analysis.KindShellInRecipe, c.Span, c.Raw,
					"`"+c.Raw+"` runs inside a recipe"))
			}
		}
	}
	return out
}

// recipeArithmetic reports `$$(( ))` in recipe words that needs bash.
func recipeArithmetic(recipes []recipe) []analysis.Transformation {
	var out []analysis.Transformation
	for _, r := range recipes {
		for _, cmd := range analysis.Commands(r.chains) {
			for _, a := range cmd.Words() {
				raw := a.Raw
				for off := 0; ; {
					i := strings.Index(raw[off:], "$$((")
					if i < 0 {
						break
					}
					start := off + i + 4
					end := strings.Index(raw[start:], "))")
					if end < 0 {
						break
					}
					expr := raw[start : start+end]
					if analysis.BashArith(expr) {
						span := a.Span.Sub(off+i, start+end+2)
						out = append(out, analysis.New(analysis.KindArithmetic, span, raw[off+i:start+end+2],
							"`$$(("+expr+"))` uses an operator POSIX arithmetic lacks"))
					}
					off = start + end + 2
				}
			}
		}
	}
	return out
}
