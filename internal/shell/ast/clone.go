package ast

import "slices"

// Clone deep-copies the statement structure and every word. Word parts are
// shared with the original; callers that edit a clone rewrite Word.Raw and
// re-parse.
func (s *Script) Clone() *Script {
	if s == nil {
		return nil
	}
	c := *s
	c.Stmts = cloneList(s.Stmts)
	return &c
}

// CloneNode deep-copies one node.
func CloneNode(n Node) Node {
	switch n := n.(type) {
	case nil:
		return nil
	case *Script:
		return n.Clone()
	case *Command:
		c := *n
		c.Assigns = make([]*Assignment, len(n.Assigns))
		for i, a := range n.Assigns {
			ac := *a
			ac.Value = cloneWord(a.Value)
			ac.Array = cloneWords(a.Array)
			c.Assigns[i] = &ac
		}
		c.Args = cloneWords(n.Args)
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *Pipeline:
		c := *n
		c.Cmds = cloneList(n.Cmds)
		c.Ops = slices.Clone(n.Ops)
		return &c
	case *BinaryCmd:
		c := *n
		c.X, c.Y = CloneNode(n.X), CloneNode(n.Y)
		return &c
	case *Background:
		c := *n
		c.X = CloneNode(n.X)
		return &c
	case *If:
		c := *n
		c.Cond, c.Then, c.Else = cloneList(n.Cond), cloneList(n.Then), cloneList(n.Else)
		c.Elifs = make([]*Elif, len(n.Elifs))
		for i, e := range n.Elifs {
			c.Elifs[i] = &Elif{Cond: cloneList(e.Cond), Then: cloneList(e.Then), Span: e.Span}
		}
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *While:
		c := *n
		c.Cond, c.Body = cloneList(n.Cond), cloneList(n.Body)
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *For:
		c := *n
		c.Items = cloneWords(n.Items)
		c.Body = cloneList(n.Body)
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *ArithFor:
		c := *n
		c.Body = cloneList(n.Body)
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *Case:
		c := *n
		c.Word = cloneWord(n.Word)
		c.Items = make([]*CaseItem, len(n.Items))
		for i, it := range n.Items {
			c.Items[i] = &CaseItem{
				Patterns: cloneWords(it.Patterns),
				Body:     cloneList(it.Body),
				Term:     it.Term,
				Span:     it.Span,
			}
		}
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *Function:
		c := *n
		c.Body = CloneNode(n.Body)
		return &c
	case *Group:
		c := *n
		c.Stmts = cloneList(n.Stmts)
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *Subshell:
		c := *n
		c.Stmts = cloneList(n.Stmts)
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *ArithCmd:
		c := *n
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *TestClause:
		c := *n
		c.Words = cloneWords(n.Words)
		c.Redirs = cloneRedirs(n.Redirs)
		return &c
	case *Comment:
		c := *n
		return &c
	case *BlankLine:
		c := *n
		return &c
	}
	return n
}

func cloneList(ns []Node) []Node {
	if ns == nil {
		return nil
	}
	out := make([]Node, len(ns))
	for i, n := range ns {
		out[i] = CloneNode(n)
	}
	return out
}

func cloneWord(w *Word) *Word {
	if w == nil {
		return nil
	}
	c := *w
	c.Parts = slices.Clone(w.Parts)
	return &c
}

func cloneWords(ws []*Word) []*Word {
	if ws == nil {
		return nil
	}
	out := make([]*Word, len(ws))
	for i, w := range ws {
		out[i] = cloneWord(w)
	}
	return out
}

func cloneRedirs(rs []*Redirect) []*Redirect {
	if rs == nil {
		return nil
	}
	out := make([]*Redirect, len(rs))
	for i, r := range rs {
		c := *r
		c.Word = cloneWord(r.Word)
		if r.Heredoc != nil {
			h := *r.Heredoc
			c.Heredoc = &h
		}
		out[i] = &c
	}
	return out
}
