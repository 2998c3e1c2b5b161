package analysis

import (
	"shellpure/internal/shell/ast"
)

// ShellChains returns a chain for every statement of the script, including
// statements nested in compound commands, function bodies and command
// substitutions, in source order of their lists.
func ShellChains(n ast.Node) []Chain {
	var out []Chain
	ast.Walk(n, func(n ast.Node) bool {
		conds := condLists(n)
		for _, list := range stmtLists(n) {
			for i, st := range list {
				ch, ok := chainOf(st)
				if !ok {
					continue
				}
				// статус условия определяет последняя команда списка
				if i == len(list)-1 && conds[st] {
					ch.Cmds[len(ch.Cmds)-1].Tested = true
				}
				out = append(out, ch)
			}
		}
		return true
	})
	return out
}

// condLists returns the last statement of every condition list owned by n.
func condLists(n ast.Node) map[ast.Node]bool {
	var lists [][]ast.Node
	switch n := n.(type) {
	case *ast.If:
		lists = append(lists, n.Cond)
		for _, e := range n.Elifs {
			lists = append(lists, e.Cond)
		}
	case *ast.While:
		lists = append(lists, n.Cond)
	default:
		return nil
	}
	out := make(map[ast.Node]bool, len(lists))
	for _, l := range lists {
		if len(l) > 0 {
			out[l[len(l)-1]] = true
		}
	}
	return out
}

// stmtLists returns the statement lists owned directly by n.
func stmtLists(n ast.Node) [][]ast.Node {
	switch n := n.(type) {
	case *ast.Script:
		return [][]ast.Node{n.Stmts}
	case *ast.Command:
		var ws []*ast.Word
		for _, a := range n.Assigns {
			ws = append(ws, a.Value)
			ws = append(ws, a.Array...)
		}
		ws = append(ws, n.Args...)
		for _, r := range n.Redirs {
			ws = append(ws, r.Word)
		}
		return substLists(ws...)
	case *ast.If:
		out := [][]ast.Node{n.Cond, n.Then}
		for _, e := range n.Elifs {
			out = append(out, e.Cond, e.Then)
		}
		return append(out, n.Else)
	case *ast.While:
		return [][]ast.Node{n.Cond, n.Body}
	case *ast.For:
		return append(substLists(n.Items...), n.Body)
	case *ast.ArithFor:
		return [][]ast.Node{n.Body}
	case *ast.Case:
		out := substLists(n.Word)
		for _, it := range n.Items {
			out = append(out, it.Body)
		}
		return out
	case *ast.Group:
		return [][]ast.Node{n.Stmts}
	case *ast.Subshell:
		return [][]ast.Node{n.Stmts}
	case *ast.TestClause:
		return substLists(n.Words...)
	}
	return nil
}

func substLists(ws ...*ast.Word) [][]ast.Node {
	var out [][]ast.Node
	for _, w := range ws {
		if w == nil {
			continue
		}
		for _, cs := range w.CmdSubsts() {
			out = append(out, cs.Stmts)
		}
	}
	return out
}

type chainBuilder struct {
	ch Chain
}

func chainOf(st ast.Node) (Chain, bool) {
	switch st.(type) {
	case *ast.Comment, *ast.BlankLine, *ast.Function:
		return Chain{}, false
	}
	b := &chainBuilder{}
	b.add(st)
	if len(b.ch.Cmds) == 0 {
		return Chain{}, false
	}
	b.ch.Span = st.Pos()
	return b.ch, true
}

func (b *chainBuilder) setOp(op string) {
	if n := len(b.ch.Cmds); n > 0 {
		b.ch.Cmds[n-1].Op = op
	}
}

func (b *chainBuilder) add(n ast.Node) {
	switch n := n.(type) {
	case *ast.Background:
		b.add(n.X)
		b.setOp("&")
		b.ch.Background = true
	case *ast.BinaryCmd:
		b.add(n.X)
		b.setOp(n.Op)
		b.add(n.Y)
	case *ast.Pipeline:
		for i, c := range n.Cmds {
			if i > 0 {
				b.setOp("|")
			}
			b.add(c)
		}
		if n.Negated {
			b.ch.Cmds[len(b.ch.Cmds)-1].Tested = true
		}
	case *ast.Command:
		b.ch.Cmds = append(b.ch.Cmds, CommandOf(n))
	default:
		b.ch.Cmds = append(b.ch.Cmds, Command{Compound: true, Span: n.Pos()})
	}
}

// CommandOf builds the detector view of a simple command.
func CommandOf(c *ast.Command) Command {
	out := Command{Span: c.Span}
	for _, a := range c.Assigns {
		var v Arg
		if a.Value != nil {
			v = ArgOf(a.Value)
		}
		out.Assigns = append(out.Assigns, Assign{Name: a.Name, Value: v, Span: a.Span})
	}
	for _, w := range c.Args {
		out.Args = append(out.Args, ArgOf(w))
	}
	for _, r := range c.Redirs {
		rd := Redirect{N: r.N, Op: r.Op}
		if r.Word != nil && r.Heredoc == nil {
			rd.Target = ArgOf(r.Word)
		}
		out.Redirs = append(out.Redirs, rd)
	}
	return out
}

// ArgOf builds the detector view of a shell word.
func ArgOf(w *ast.Word) Arg {
	return Arg{Text: w.Unquoted(), Raw: w.Raw, Span: w.Span, Quoted: w.IsQuoted(), Word: w}
}
