package verify

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"

	"shellpure/internal/diag"
)

// SyntaxError is the first ERROR or MISSING node of a tree-sitter parse.
type SyntaxError struct {
	Line    int // 1-based
	Column  int // 1-based, in bytes
	Missing bool
	Kind    string
}

// TreeSitterSyntax parses text with the tree-sitter bash grammar and
// returns the first syntax error, or nil.
func TreeSitterSyntax(ctx context.Context, text string) (*SyntaxError, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(bash.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("tree-sitter: %w", err)
	}
	defer tree.Close()
	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	if n := firstError(root); n != nil {
		p := n.StartPoint()
		return &SyntaxError{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Missing: n.IsMissing(), Kind: n.Type()}, nil
	}
	return &SyntaxError{Line: 1, Column: 1}, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstError(n.Child(i)); e != nil {
			return e
		}
	}
	return nil
}

// SyntaxDiagnostics cross-parses a purified script and reports a rejected
// one as VERIFY003.
func SyntaxDiagnostics(ctx context.Context, name, text string) []diag.Diagnostic {
	se, err := TreeSitterSyntax(ctx, text)
	if err != nil {
		return []diag.Diagnostic{Unavailable(name, err)}
	}
	if se == nil {
		return nil
	}
	msg := "purified script does not parse with the tree-sitter bash grammar"
	if se.Missing {
		msg = fmt.Sprintf("%s: missing %q", msg, se.Kind)
	}
	d := diag.New(diag.SevWarning, diag.CodeVerifySyntax, msg,
		"a second, independent parser rejected the output; the fixes may have produced invalid shell",
		"run `sh -n` on the output and report the input file if it is valid shell")
	return []diag.Diagnostic{d.WithLocation(diag.Location{
		File:       name,
		Line:       se.Line,
		Column:     se.Column,
		SourceLine: sourceLine(text, se.Line),
	})}
}
