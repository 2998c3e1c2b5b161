// Package format renders a shell syntax tree back to text.
//
// Words are printed exactly as parsed; everything between them is
// normalised: one statement per line, two-space indentation, single spaces
// around operators. Compound commands written on one line stay on one line.
package format

import (
	"strings"

	"shellpure/internal/shell/ast"
)

const indentUnit = "  "

type printer struct {
	b       strings.Builder
	indent  int
	pending []*ast.Heredoc
}

// Emit renders the script. Non-empty output ends with a newline.
func Emit(s *ast.Script) string {
	if s == nil {
		return ""
	}
	p := &printer{}
	if s.Shebang != "" {
		p.b.WriteString(s.Shebang)
		p.newline()
	}
	p.stmts(s.Stmts)
	return p.b.String()
}

// Node renders a single statement on one line where possible. Pending
// here-document bodies are appended after it.
func Node(n ast.Node) string {
	p := &printer{}
	p.node(n)
	if len(p.pending) > 0 {
		p.newline()
	}
	return p.b.String()
}

func (p *printer) newline() {
	p.b.WriteByte('\n')
	pending := p.pending
	p.pending = nil
	for _, h := range pending {
		p.b.WriteString(h.Body)
		p.b.WriteString(h.Delim)
		p.b.WriteByte('\n')
	}
}

func (p *printer) writeIndent() {
	for range p.indent {
		p.b.WriteString(indentUnit)
	}
}

// stmts prints a statement list one per line at the current indentation.
func (p *printer) stmts(list []ast.Node) {
	for i := 0; i < len(list); i++ {
		switch n := list[i].(type) {
		case *ast.BlankLine:
			p.newline()
			continue
		case *ast.Comment:
			p.writeIndent()
			p.b.WriteString(n.Text)
			p.newline()
			continue
		}
		p.writeIndent()
		p.node(list[i])
		if i+1 < len(list) {
			if c, ok := list[i+1].(*ast.Comment); ok && c.Inline {
				p.b.WriteByte(' ')
				p.b.WriteString(c.Text)
				i++
			}
		}
		p.newline()
	}
}

// inline prints a list on the current line, statements separated by "; ".
// With term set, the list is also terminated so that a keyword can follow.
func (p *printer) inline(list []ast.Node, term bool) {
	var kept []ast.Node
	for _, n := range list {
		switch n.(type) {
		case *ast.Comment, *ast.BlankLine:
			continue
		}
		kept = append(kept, n)
	}
	for i, n := range kept {
		p.node(n)
		_, bg := n.(*ast.Background)
		last := i == len(kept)-1
		switch {
		case last && !term:
		case bg:
			p.b.WriteByte(' ')
		default:
			p.b.WriteString("; ")
		}
	}
}

// needsSemi reports whether an inline list must be closed by `;` before a
// following reserved word.
func needsSemi(list []ast.Node) bool {
	for i := len(list) - 1; i >= 0; i-- {
		switch list[i].(type) {
		case *ast.Comment, *ast.BlankLine:
			continue
		case *ast.Background:
			return false
		}
		return true
	}
	return false
}

// body prints a compound body either indented on its own lines or inline.
func (p *printer) body(list []ast.Node, multi bool) {
	if !multi {
		p.inline(list, true)
		return
	}
	p.newline()
	p.indent++
	p.stmts(list)
	p.indent--
	p.writeIndent()
}

func (p *printer) node(n ast.Node) {
	switch n := n.(type) {
	case *ast.Command:
		p.command(n)
	case *ast.Pipeline:
		if n.Negated {
			p.b.WriteString("! ")
		}
		for i, c := range n.Cmds {
			if i > 0 {
				p.b.WriteByte(' ')
				p.b.WriteString(n.Op(i))
				p.b.WriteByte(' ')
			}
			p.node(c)
		}
	case *ast.BinaryCmd:
		p.node(n.X)
		p.b.WriteByte(' ')
		p.b.WriteString(n.Op)
		p.b.WriteByte(' ')
		p.node(n.Y)
	case *ast.Background:
		p.node(n.X)
		p.b.WriteString(" &")
	case *ast.If:
		p.b.WriteString("if ")
		p.inline(n.Cond, true)
		p.b.WriteString("then")
		if !n.Multiline {
			p.b.WriteByte(' ')
		}
		p.body(n.Then, n.Multiline)
		for _, e := range n.Elifs {
			p.b.WriteString("elif ")
			p.inline(e.Cond, true)
			p.b.WriteString("then")
			if !n.Multiline {
				p.b.WriteByte(' ')
			}
			p.body(e.Then, n.Multiline)
		}
		if n.Else != nil {
			p.b.WriteString("else")
			if !n.Multiline {
				p.b.WriteByte(' ')
			}
			p.body(n.Else, n.Multiline)
		}
		p.b.WriteString("fi")
		p.redirs(n.Redirs)
	case *ast.While:
		if n.Until {
			p.b.WriteString("until ")
		} else {
			p.b.WriteString("while ")
		}
		p.inline(n.Cond, true)
		p.loopBody(n.Body, n.Multiline)
		p.redirs(n.Redirs)
	case *ast.For:
		if n.Select {
			p.b.WriteString("select ")
		} else {
			p.b.WriteString("for ")
		}
		p.b.WriteString(n.Var)
		if n.InList {
			p.b.WriteString(" in")
			for _, w := range n.Items {
				p.b.WriteByte(' ')
				p.b.WriteString(w.Raw)
			}
		}
		p.b.WriteString("; ")
		p.loopBody(n.Body, n.Multiline)
		p.redirs(n.Redirs)
	case *ast.ArithFor:
		p.b.WriteString("for ((")
		p.b.WriteString(n.Expr)
		p.b.WriteString(")); ")
		p.loopBody(n.Body, n.Multiline)
		p.redirs(n.Redirs)
	case *ast.Case:
		p.caseClause(n)
	case *ast.Function:
		if n.Keyword {
			p.b.WriteString("function ")
		}
		p.b.WriteString(n.Name)
		if n.Parens || !n.Keyword {
			p.b.WriteString("()")
		}
		p.b.WriteByte(' ')
		p.node(n.Body)
	case *ast.Group:
		if n.Multiline {
			p.b.WriteString("{")
			p.body(n.Stmts, true)
		} else {
			p.b.WriteString("{ ")
			p.inline(n.Stmts, true)
		}
		p.b.WriteString("}")
		p.redirs(n.Redirs)
	case *ast.Subshell:
		p.b.WriteString("(")
		if n.Multiline {
			p.body(n.Stmts, true)
		} else {
			p.inline(n.Stmts, false)
		}
		p.b.WriteString(")")
		p.redirs(n.Redirs)
	case *ast.ArithCmd:
		p.b.WriteString("((")
		p.b.WriteString(n.Expr)
		p.b.WriteString("))")
		p.redirs(n.Redirs)
	case *ast.TestClause:
		p.b.WriteString("[[")
		for _, w := range n.Words {
			p.b.WriteByte(' ')
			p.b.WriteString(w.Raw)
		}
		p.b.WriteString(" ]]")
		p.redirs(n.Redirs)
	case *ast.Comment:
		p.b.WriteString(n.Text)
	}
}

func (p *printer) loopBody(body []ast.Node, multi bool) {
	p.b.WriteString("do")
	if !multi {
		p.b.WriteByte(' ')
	}
	p.body(body, multi)
	p.b.WriteString("done")
}

func (p *printer) caseClause(n *ast.Case) {
	p.b.WriteString("case ")
	p.b.WriteString(n.Word.Raw)
	p.b.WriteString(" in")
	if !n.Multiline {
		for _, it := range n.Items {
			p.b.WriteByte(' ')
			p.patterns(it)
			if len(it.Body) > 0 {
				p.b.WriteByte(' ')
				p.inline(it.Body, false)
			}
			switch {
			case it.Term != "":
				p.b.WriteByte(' ')
				p.b.WriteString(it.Term)
			case needsSemi(it.Body):
				// последний элемент без `;;`: esac иначе станет аргументом
				p.b.WriteByte(';')
			}
		}
		p.b.WriteString(" esac")
		p.redirs(n.Redirs)
		return
	}
	p.newline()
	p.indent++
	for _, it := range n.Items {
		p.writeIndent()
		p.patterns(it)
		p.newline()
		p.indent++
		p.stmts(it.Body)
		if it.Term != "" {
			p.writeIndent()
			p.b.WriteString(it.Term)
			p.newline()
		}
		p.indent--
	}
	p.indent--
	p.writeIndent()
	p.b.WriteString("esac")
	p.redirs(n.Redirs)
}

func (p *printer) patterns(it *ast.CaseItem) {
	for i, w := range it.Patterns {
		if i > 0 {
			p.b.WriteByte('|')
		}
		p.b.WriteString(w.Raw)
	}
	p.b.WriteByte(')')
}

func (p *printer) command(c *ast.Command) {
	first := true
	sep := func() {
		if !first {
			p.b.WriteByte(' ')
		}
		first = false
	}
	for _, a := range c.Assigns {
		sep()
		p.b.WriteString(Assignment(a))
	}
	for _, w := range c.Args {
		sep()
		p.b.WriteString(w.Raw)
	}
	for _, r := range c.Redirs {
		sep()
		p.redirect(r)
	}
}

func (p *printer) redirs(rs []*ast.Redirect) {
	for _, r := range rs {
		p.b.WriteByte(' ')
		p.redirect(r)
	}
}

func (p *printer) redirect(r *ast.Redirect) {
	p.b.WriteString(r.N)
	p.b.WriteString(r.Op)
	if r.Word != nil {
		p.b.WriteString(r.Word.Raw)
	}
	if r.Heredoc != nil {
		p.pending = append(p.pending, r.Heredoc)
	}
}

// Assignment renders NAME=value or NAME=(a b c).
func Assignment(a *ast.Assignment) string {
	var b strings.Builder
	b.WriteString(a.Name)
	if a.Append {
		b.WriteString("+=")
	} else {
		b.WriteByte('=')
	}
	switch {
	case a.Array != nil:
		b.WriteByte('(')
		for i, w := range a.Array {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w.Raw)
		}
		b.WriteByte(')')
	case a.Value != nil:
		b.WriteString(a.Value.Raw)
	}
	return b.String()
}
