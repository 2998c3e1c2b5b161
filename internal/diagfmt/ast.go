package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	mkast "shellpure/internal/makefile/ast"
	shast "shellpure/internal/shell/ast"
	"shellpure/internal/source"
)

// ASTNodeOutput is one node of a syntax tree dump.
type ASTNodeOutput struct {
	Type     string            `json:"type"`
	Span     source.Span       `json:"span"`
	Text     string            `json:"text,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Children []ASTNodeOutput   `json:"children,omitempty"`
}

// ShellTree converts a script into a dump tree.
func ShellTree(s *shast.Script) ASTNodeOutput {
	out := ASTNodeOutput{Type: "Script", Span: s.Span}
	if s.Shebang != "" {
		out.Fields = map[string]string{"shebang": s.Shebang}
	}
	out.Children = shellNodes(s.Stmts)
	return out
}

func shellNodes(ns []shast.Node) []ASTNodeOutput {
	out := make([]ASTNodeOutput, 0, len(ns))
	for _, n := range ns {
		out = append(out, shellNode(n))
	}
	return out
}

func words(ws []*shast.Word) []ASTNodeOutput {
	out := make([]ASTNodeOutput, 0, len(ws))
	for _, w := range ws {
		out = append(out, ASTNodeOutput{Type: "Word", Span: w.Span, Text: w.Raw})
	}
	return out
}

func redirects(rs []*shast.Redirect) []ASTNodeOutput {
	out := make([]ASTNodeOutput, 0, len(rs))
	for _, r := range rs {
		node := ASTNodeOutput{Type: "Redirect", Span: r.Span, Text: r.N + r.Op}
		if r.Word != nil {
			node.Text += " " + r.Word.Raw
		}
		if r.Heredoc != nil {
			node.Fields = map[string]string{"delim": r.Heredoc.Delim}
		}
		out = append(out, node)
	}
	return out
}

func group(name string, span source.Span, children []ASTNodeOutput) ASTNodeOutput {
	return ASTNodeOutput{Type: name, Span: span, Children: children}
}

func shellNode(n shast.Node) ASTNodeOutput {
	switch n := n.(type) {
	case *shast.Command:
		out := ASTNodeOutput{Type: "Command", Span: n.Span}
		for _, a := range n.Assigns {
			node := ASTNodeOutput{Type: "Assignment", Span: a.Span, Text: a.Name}
			if a.Value != nil {
				node.Children = words([]*shast.Word{a.Value})
			}
			if a.Array != nil {
				node.Children = append(node.Children, group("Array", a.Span, words(a.Array)))
			}
			out.Children = append(out.Children, node)
		}
		out.Children = append(out.Children, words(n.Args)...)
		out.Children = append(out.Children, redirects(n.Redirs)...)
		return out
	case *shast.Pipeline:
		out := group("Pipeline", n.Span, shellNodes(n.Cmds))
		out.Fields = map[string]string{}
		if n.Negated {
			out.Fields["negated"] = "true"
		}
		if slices.Contains(n.Ops, "|&") {
			out.Fields["ops"] = strings.Join(n.Ops, " ")
		}
		if len(out.Fields) == 0 {
			out.Fields = nil
		}
		return out
	case *shast.BinaryCmd:
		out := group("BinaryCmd", n.Span, []ASTNodeOutput{shellNode(n.X), shellNode(n.Y)})
		out.Text = n.Op
		return out
	case *shast.Background:
		return group("Background", n.Span, []ASTNodeOutput{shellNode(n.X)})
	case *shast.If:
		children := []ASTNodeOutput{group("Cond", n.Span, shellNodes(n.Cond)), group("Then", n.Span, shellNodes(n.Then))}
		for _, e := range n.Elifs {
			children = append(children, group("Elif", e.Span, append(shellNodes(e.Cond), shellNodes(e.Then)...)))
		}
		if n.Else != nil {
			children = append(children, group("Else", n.Span, shellNodes(n.Else)))
		}
		return group("If", n.Span, append(children, redirects(n.Redirs)...))
	case *shast.While:
		name := "While"
		if n.Until {
			name = "Until"
		}
		return group(name, n.Span, []ASTNodeOutput{group("Cond", n.Span, shellNodes(n.Cond)), group("Body", n.Span, shellNodes(n.Body))})
	case *shast.For:
		out := group("For", n.Span, append(words(n.Items), group("Body", n.Span, shellNodes(n.Body))))
		if n.Select {
			out.Type = "Select"
		}
		out.Text = n.Var
		return out
	case *shast.ArithFor:
		out := group("ArithFor", n.Span, shellNodes(n.Body))
		out.Text = n.Expr
		return out
	case *shast.Case:
		out := ASTNodeOutput{Type: "Case", Span: n.Span, Text: n.Word.Raw}
		for _, it := range n.Items {
			item := group("CaseItem", it.Span, append(words(it.Patterns), shellNodes(it.Body)...))
			item.Text = it.Term
			out.Children = append(out.Children, item)
		}
		return out
	case *shast.Function:
		out := group("Function", n.Span, []ASTNodeOutput{shellNode(n.Body)})
		out.Text = n.Name
		if n.Keyword {
			out.Fields = map[string]string{"keyword": "true"}
		}
		return out
	case *shast.Group:
		return group("Group", n.Span, append(shellNodes(n.Stmts), redirects(n.Redirs)...))
	case *shast.Subshell:
		return group("Subshell", n.Span, append(shellNodes(n.Stmts), redirects(n.Redirs)...))
	case *shast.ArithCmd:
		return ASTNodeOutput{Type: "ArithCmd", Span: n.Span, Text: n.Expr}
	case *shast.TestClause:
		return group("TestClause", n.Span, words(n.Words))
	case *shast.Comment:
		return ASTNodeOutput{Type: "Comment", Span: n.Span, Text: n.Text}
	case *shast.BlankLine:
		return ASTNodeOutput{Type: "BlankLine", Span: n.Span}
	case nil:
		return ASTNodeOutput{Type: "nil"}
	}
	return ASTNodeOutput{Type: fmt.Sprintf("%T", n), Span: n.Pos()}
}

// MakeTree converts a Makefile into a dump tree.
func MakeTree(f *mkast.File) ASTNodeOutput {
	return ASTNodeOutput{Type: "File", Span: f.Span, Children: makeItems(f.Items)}
}

func makeItems(items []mkast.Item) []ASTNodeOutput {
	out := make([]ASTNodeOutput, 0, len(items))
	for _, it := range items {
		out = append(out, makeItem(it))
	}
	return out
}

func calls(cs []mkast.FunctionCall) []ASTNodeOutput {
	out := make([]ASTNodeOutput, 0, len(cs))
	for _, c := range cs {
		out = append(out, ASTNodeOutput{Type: "FunctionCall", Span: c.Span, Text: c.Name,
			Fields: map[string]string{"args": strings.Join(c.Args, ",")}})
	}
	return out
}

func recipeLine(l mkast.RecipeLine) ASTNodeOutput {
	return ASTNodeOutput{Type: "RecipeLine", Span: l.Span, Text: l.Text, Children: calls(l.Calls)}
}

func variable(v *mkast.Variable) ASTNodeOutput {
	out := ASTNodeOutput{Type: "Variable", Span: v.Span, Text: v.Name,
		Fields:   map[string]string{"flavor": v.Flavor.String(), "value": v.Value},
		Children: calls(v.Calls)}
	if v.Export {
		out.Fields["export"] = "true"
	}
	if v.Override {
		out.Fields["override"] = "true"
	}
	return out
}

func makeItem(it mkast.Item) ASTNodeOutput {
	switch n := it.(type) {
	case *mkast.Variable:
		return variable(n)
	case *mkast.Rule:
		out := ASTNodeOutput{Type: "Rule", Span: n.Span, Text: strings.Join(n.Targets, " "),
			Fields: map[string]string{"prereqs": strings.Join(n.Prereqs, " ")}}
		if len(n.OrderOnly) > 0 {
			out.Fields["order_only"] = strings.Join(n.OrderOnly, " ")
		}
		if n.DoubleColon {
			out.Fields["double_colon"] = "true"
		}
		if n.VarAssign != nil {
			out.Children = append(out.Children, variable(n.VarAssign))
		}
		for _, l := range n.Recipe {
			out.Children = append(out.Children, recipeLine(l))
		}
		return out
	case *mkast.RecipeItem:
		return recipeLine(n.Line)
	case *mkast.Conditional:
		out := ASTNodeOutput{Type: "Conditional", Span: n.Span, Text: n.Directive + " " + n.Condition}
		out.Children = append(out.Children, group("Then", n.Span, makeItems(n.Then)))
		if n.Else != nil {
			out.Children = append(out.Children, group("Else", n.Span, makeItems(n.Else)))
		}
		return out
	case *mkast.Include:
		return ASTNodeOutput{Type: "Include", Span: n.Span, Text: strings.Join(n.Paths, " "),
			Fields: map[string]string{"directive": n.Directive}}
	case *mkast.FunctionCall:
		return calls([]mkast.FunctionCall{*n})[0]
	case *mkast.Define:
		return ASTNodeOutput{Type: "Define", Span: n.Span, Text: n.Name,
			Fields: map[string]string{"flavor": n.Flavor.String(), "lines": fmt.Sprint(len(n.Body))}}
	case *mkast.Directive:
		return ASTNodeOutput{Type: "Directive", Span: n.Span, Text: strings.TrimSpace(n.Keyword + " " + n.Args)}
	case *mkast.Comment:
		return ASTNodeOutput{Type: "Comment", Span: n.Span, Text: n.Text}
	case *mkast.Blank:
		return ASTNodeOutput{Type: "Blank", Span: n.Span}
	}
	return ASTNodeOutput{Type: fmt.Sprintf("%T", it)}
}

// FormatASTPretty печатает дерево с ├─/└─ и позициями line:col.
func FormatASTPretty(w io.Writer, root ASTNodeOutput, fs *source.FileSet) {
	fmt.Fprintf(w, "%s (span: %s)\n", nodeLabel(root), formatSpan(root.Span, fs))
	writeChildren(w, root.Children, fs, "")
}

func writeChildren(w io.Writer, children []ASTNodeOutput, fs *source.FileSet, prefix string) {
	for i, c := range children {
		branch, next := "├─ ", "│  "
		if i == len(children)-1 {
			branch, next = "└─ ", "   "
		}
		fmt.Fprintf(w, "%s%s%s (span: %s)\n", prefix, branch, nodeLabel(c), formatSpan(c.Span, fs))
		writeChildren(w, c.Children, fs, prefix+next)
	}
}

func nodeLabel(n ASTNodeOutput) string {
	label := n.Type
	if n.Text != "" {
		label += " " + fmt.Sprintf("%q", n.Text)
	}
	if len(n.Fields) > 0 {
		keys := make([]string, 0, len(n.Fields))
		for k := range n.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+fmt.Sprintf("%q", n.Fields[k]))
		}
		label += " [" + strings.Join(parts, " ") + "]"
	}
	return label
}

// FormatASTJSON печатает дерево как JSON.
func FormatASTJSON(w io.Writer, root ASTNodeOutput) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(root)
}

func formatSpan(span source.Span, fs *source.FileSet) string {
	if fs != nil && fs.Get(span.File) != nil {
		start, end := fs.Resolve(span)
		return fmt.Sprintf("%d:%d-%d:%d", start.Line, start.Col, end.Line, end.Col)
	}
	return fmt.Sprintf("span(%d-%d)", span.Start, span.End)
}
