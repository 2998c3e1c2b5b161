package purify

import (
	"shellpure/internal/analysis/makepass"
	"shellpure/internal/makefile/ast"
	"shellpure/internal/makefile/format"
	"shellpure/internal/makefile/parser"
	"shellpure/internal/source"
)

// MakeResult is the result of purifying a Makefile.
type MakeResult = Result[*ast.File]

func makeLanguage() language[*ast.File] {
	return language[*ast.File]{
		passes: makepass.Passes(),
		file:   func(f *ast.File) source.FileID { return f.Span.File },
		name:   func(f *ast.File) string { return f.Path },
		clone:  (*ast.File).Clone,
		leaves: makeLeaves,
		emit:   format.Emit,
		reparse: func(fs *source.FileSet, name, text string) (*ast.File, error) {
			f, err := parser.ParseString(fs, name, text)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// makeLeaves lists variable values and recipe lines, including those inside
// conditionals.
func makeLeaves(f *ast.File) []leaf {
	var out []leaf
	recipe := func(l *ast.RecipeLine) {
		if !l.Verbatim {
			out = append(out, leaf{span: l.Span, text: &l.Text})
		}
	}
	var walk func([]ast.Item)
	walk = func(items []ast.Item) {
		for _, it := range items {
			switch n := it.(type) {
			case *ast.Variable:
				out = append(out, leaf{span: n.ValueSpan, text: &n.Value})
			case *ast.Rule:
				if n.VarAssign != nil {
					out = append(out, leaf{span: n.VarAssign.ValueSpan, text: &n.VarAssign.Value})
				}
				for i := range n.Recipe {
					recipe(&n.Recipe[i])
				}
			case *ast.RecipeItem:
				recipe(&n.Line)
			case *ast.Conditional:
				walk(n.Then)
				walk(n.Else)
			}
		}
	}
	walk(f.Items)
	return out
}

// Makefile purifies a parsed Makefile. The input tree is not modified.
func Makefile(fs *source.FileSet, file *ast.File, opts Options) MakeResult {
	return run(fs, file, makeLanguage(), opts)
}

// MakefileString parses src and purifies it.
func MakefileString(name, src string, opts Options) (MakeResult, error) {
	fs := source.NewFileSet()
	file, err := parser.ParseString(fs, name, src)
	if err != nil {
		return MakeResult{}, err
	}
	return Makefile(fs, file, opts), nil
}
