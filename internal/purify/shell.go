package purify

import (
	"shellpure/internal/analysis/shellpass"
	"shellpure/internal/shell/ast"
	"shellpure/internal/shell/format"
	"shellpure/internal/shell/parser"
	"shellpure/internal/source"
)

// ShellResult is the result of purifying a script.
type ShellResult = Result[*ast.Script]

func shellLanguage() language[*ast.Script] {
	return language[*ast.Script]{
		passes: shellpass.Passes(),
		file:   func(s *ast.Script) source.FileID { return s.Span.File },
		name:   func(s *ast.Script) string { return s.Path },
		clone:  (*ast.Script).Clone,
		leaves: shellLeaves,
		emit:   format.Emit,
		reparse: func(fs *source.FileSet, name, text string) (*ast.Script, error) {
			s, err := parser.ParseString(fs, name, text)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// shellLeaves lists the shebang and every outermost word. Words inside
// command substitutions are part of the enclosing word's text.
func shellLeaves(s *ast.Script) []leaf {
	var out []leaf
	if s.Shebang != "" {
		out = append(out, leaf{span: s.ShebangSpan, text: &s.Shebang})
	}
	ast.EachWord(s, func(w *ast.Word) {
		out = append(out, leaf{span: w.Span, text: &w.Raw})
	})
	return out
}

// Shell purifies a parsed script. The input tree is not modified.
func Shell(fs *source.FileSet, script *ast.Script, opts Options) ShellResult {
	return run(fs, script, shellLanguage(), opts)
}

// ShellString parses src and purifies it.
func ShellString(name, src string, opts Options) (ShellResult, error) {
	fs := source.NewFileSet()
	script, err := parser.ParseString(fs, name, src)
	if err != nil {
		return ShellResult{}, err
	}
	return Shell(fs, script, opts), nil
}
