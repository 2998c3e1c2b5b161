package ast

// Walk visits n and its descendants depth-first, including the statements of
// command substitutions inside words. Returning false from fn skips the
// children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Script:
		WalkList(n.Stmts, fn)
	case *Command:
		for _, a := range n.Assigns {
			walkWord(a.Value, fn)
			for _, w := range a.Array {
				walkWord(w, fn)
			}
		}
		for _, w := range n.Args {
			walkWord(w, fn)
		}
		walkRedirs(n.Redirs, fn)
	case *Pipeline:
		WalkList(n.Cmds, fn)
	case *BinaryCmd:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *Background:
		Walk(n.X, fn)
	case *If:
		WalkList(n.Cond, fn)
		WalkList(n.Then, fn)
		for _, e := range n.Elifs {
			WalkList(e.Cond, fn)
			WalkList(e.Then, fn)
		}
		WalkList(n.Else, fn)
		walkRedirs(n.Redirs, fn)
	case *While:
		WalkList(n.Cond, fn)
		WalkList(n.Body, fn)
		walkRedirs(n.Redirs, fn)
	case *For:
		for _, w := range n.Items {
			walkWord(w, fn)
		}
		WalkList(n.Body, fn)
		walkRedirs(n.Redirs, fn)
	case *ArithFor:
		WalkList(n.Body, fn)
		walkRedirs(n.Redirs, fn)
	case *Case:
		walkWord(n.Word, fn)
		for _, it := range n.Items {
			WalkList(it.Body, fn)
		}
		walkRedirs(n.Redirs, fn)
	case *Function:
		Walk(n.Body, fn)
	case *Group:
		WalkList(n.Stmts, fn)
		walkRedirs(n.Redirs, fn)
	case *Subshell:
		WalkList(n.Stmts, fn)
		walkRedirs(n.Redirs, fn)
	case *TestClause:
		for _, w := range n.Words {
			walkWord(w, fn)
		}
	}
}

// WalkList walks every node of a statement list.
func WalkList(ns []Node, fn func(Node) bool) {
	for _, n := range ns {
		Walk(n, fn)
	}
}

func walkRedirs(rs []*Redirect, fn func(Node) bool) {
	for _, r := range rs {
		walkWord(r.Word, fn)
	}
}

func walkWord(w *Word, fn func(Node) bool) {
	if w == nil {
		return
	}
	for _, cs := range w.CmdSubsts() {
		WalkList(cs.Stmts, fn)
	}
}

// Commands returns every simple command in the tree, in source order.
func Commands(n Node) []*Command {
	var out []*Command
	Walk(n, func(n Node) bool {
		if c, ok := n.(*Command); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// EachWord calls fn for every word owned by a statement: arguments,
// assignment values, redirection targets, loop lists and case words. It does
// not descend into command substitutions, whose text is part of the
// enclosing word.
func EachWord(n Node, fn func(*Word)) {
	visit := func(w *Word) {
		if w != nil {
			fn(w)
		}
	}
	var walk func(Node)
	walkList := func(ns []Node) {
		for _, n := range ns {
			walk(n)
		}
	}
	redirs := func(rs []*Redirect) {
		for _, r := range rs {
			visit(r.Word)
		}
	}
	walk = func(n Node) {
		switch n := n.(type) {
		case *Script:
			walkList(n.Stmts)
		case *Command:
			for _, a := range n.Assigns {
				visit(a.Value)
				for _, w := range a.Array {
					visit(w)
				}
			}
			for _, w := range n.Args {
				visit(w)
			}
			redirs(n.Redirs)
		case *Pipeline:
			walkList(n.Cmds)
		case *BinaryCmd:
			walk(n.X)
			walk(n.Y)
		case *Background:
			walk(n.X)
		case *If:
			walkList(n.Cond)
			walkList(n.Then)
			for _, e := range n.Elifs {
				walkList(e.Cond)
				walkList(e.Then)
			}
			walkList(n.Else)
			redirs(n.Redirs)
		case *While:
			walkList(n.Cond)
			walkList(n.Body)
			redirs(n.Redirs)
		case *For:
			for _, w := range n.Items {
				visit(w)
			}
			walkList(n.Body)
			redirs(n.Redirs)
		case *ArithFor:
			walkList(n.Body)
			redirs(n.Redirs)
		case *Case:
			visit(n.Word)
			for _, it := range n.Items {
				for _, p := range it.Patterns {
					visit(p)
				}
				walkList(it.Body)
			}
			redirs(n.Redirs)
		case *Function:
			walk(n.Body)
		case *Group:
			walkList(n.Stmts)
			redirs(n.Redirs)
		case *Subshell:
			walkList(n.Stmts)
			redirs(n.Redirs)
		case *ArithCmd:
			redirs(n.Redirs)
		case *TestClause:
			for _, w := range n.Words {
				visit(w)
			}
			redirs(n.Redirs)
		}
	}
	walk(n)
}

// Name returns the literal command name, or "" when the command has no words
// or its first word is not a plain literal.
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0].Unquoted()
}
