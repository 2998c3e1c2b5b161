// Package ast defines the Bash/POSIX shell syntax tree.
//
// Node and WordPart are closed sum types: every implementation lives in this
// package. Each node keeps the exact source span it was parsed from so that
// fixes can be applied as text edits on words.
package ast

import "shellpure/internal/source"

// Node is any statement-level element of a script.
type Node interface {
	Pos() source.Span
	node()
}

// Script is a parsed shell file.
type Script struct {
	Path        string
	Shebang     string // "#!/bin/bash" or ""
	ShebangSpan source.Span
	Stmts       []Node
	Span        source.Span
}

// Command is a simple command: assignments, words and redirections.
type Command struct {
	Assigns []*Assignment
	Args    []*Word
	Redirs  []*Redirect
	Span    source.Span
}

// Pipeline is `a | b | c`, optionally negated with `!`. Ops[i] joins
// Cmds[i] and Cmds[i+1] and is "|" or "|&".
type Pipeline struct {
	Negated bool
	Cmds    []Node
	Ops     []string
	Span    source.Span
}

// Op returns the operator in front of Cmds[i], i >= 1.
func (p *Pipeline) Op(i int) string {
	if i-1 < len(p.Ops) && p.Ops[i-1] != "" {
		return p.Ops[i-1]
	}
	return "|"
}

// BinaryCmd is `x && y` or `x || y`.
type BinaryCmd struct {
	Op   string
	X, Y Node
	Span source.Span
}

// Background is `x &`.
type Background struct {
	X    Node
	Span source.Span
}

// If is an if/elif/else/fi block. Else is nil when absent.
type If struct {
	Cond   []Node
	Then   []Node
	Elifs  []*Elif
	Else   []Node
	Redirs []*Redirect
	// Multiline is true when the block spans several lines in the source.
	Multiline bool
	Span      source.Span
}

// Elif is one elif branch.
type Elif struct {
	Cond []Node
	Then []Node
	Span source.Span
}

// While is a while or until loop.
type While struct {
	Until     bool
	Cond      []Node
	Body      []Node
	Redirs    []*Redirect
	Multiline bool
	Span      source.Span
}

// For is `for name [in words]; do ...; done`, or select with the same shape.
type For struct {
	Select    bool
	Var       string
	InList    bool
	Items     []*Word
	Body      []Node
	Redirs    []*Redirect
	Multiline bool
	Span      source.Span
}

// ArithFor is `for ((init; cond; post)); do ...; done`. Expr is the text
// between the double parentheses.
type ArithFor struct {
	Expr      string
	Body      []Node
	Redirs    []*Redirect
	Multiline bool
	Span      source.Span
}

// Case is `case word in ... esac`.
type Case struct {
	Word      *Word
	Items     []*CaseItem
	Redirs    []*Redirect
	Multiline bool
	Span      source.Span
}

// CaseItem is one `pattern) body ;;` clause.
type CaseItem struct {
	Patterns []*Word
	Body     []Node
	Term     string // ";;", ";&" or ";;&"
	Span     source.Span
}

// Function is `name() body` or `function name body`.
type Function struct {
	Name    string
	Keyword bool
	Parens  bool
	Body    Node
	Span    source.Span
}

// Group is `{ ...; }`.
type Group struct {
	Stmts     []Node
	Redirs    []*Redirect
	Multiline bool
	Span      source.Span
}

// Subshell is `( ... )`.
type Subshell struct {
	Stmts     []Node
	Redirs    []*Redirect
	Multiline bool
	Span      source.Span
}

// ArithCmd is `(( expr ))`.
type ArithCmd struct {
	Expr   string
	Redirs []*Redirect
	Span   source.Span
}

// TestClause is `[[ ... ]]`; Words excludes the brackets.
type TestClause struct {
	Words  []*Word
	Redirs []*Redirect
	Span   source.Span
}

// Comment is a `#` comment. Inline comments follow a statement on its line.
type Comment struct {
	Text   string
	Inline bool
	Span   source.Span
}

// BlankLine records one or more empty lines between statements.
type BlankLine struct {
	Span source.Span
}

// Assignment is `NAME=value`, `NAME+=value` or `NAME=(a b c)`.
type Assignment struct {
	Name   string
	Append bool
	Value  *Word   // nil for an array or an empty value
	Array  []*Word // nil unless the value is an array
	Span   source.Span
}

// Redirect is one redirection such as `2>&1`, `>file` or `<<EOF`.
type Redirect struct {
	N       string // file descriptor prefix, "" when absent
	Op      string
	Word    *Word
	Heredoc *Heredoc
	Span    source.Span
}

// Heredoc is the body of a `<<` or `<<-` redirection.
type Heredoc struct {
	Delim     string
	Quoted    bool
	StripTabs bool
	Body      string // raw lines including their newlines
	BodySpan  source.Span
}

func (s *Script) Pos() source.Span     { return s.Span }
func (c *Command) Pos() source.Span    { return c.Span }
func (p *Pipeline) Pos() source.Span   { return p.Span }
func (b *BinaryCmd) Pos() source.Span  { return b.Span }
func (b *Background) Pos() source.Span { return b.Span }
func (i *If) Pos() source.Span         { return i.Span }
func (w *While) Pos() source.Span      { return w.Span }
func (f *For) Pos() source.Span        { return f.Span }
func (f *ArithFor) Pos() source.Span   { return f.Span }
func (c *Case) Pos() source.Span       { return c.Span }
func (f *Function) Pos() source.Span   { return f.Span }
func (g *Group) Pos() source.Span      { return g.Span }
func (s *Subshell) Pos() source.Span   { return s.Span }
func (a *ArithCmd) Pos() source.Span   { return a.Span }
func (t *TestClause) Pos() source.Span { return t.Span }
func (c *Comment) Pos() source.Span    { return c.Span }
func (b *BlankLine) Pos() source.Span  { return b.Span }

func (*Script) node()     {}
func (*Command) node()    {}
func (*Pipeline) node()   {}
func (*BinaryCmd) node()  {}
func (*Background) node() {}
func (*If) node()         {}
func (*While) node()      {}
func (*For) node()        {}
func (*ArithFor) node()   {}
func (*Case) node()       {}
func (*Function) node()   {}
func (*Group) node()      {}
func (*Subshell) node()   {}
func (*ArithCmd) node()   {}
func (*TestClause) node() {}
func (*Comment) node()    {}
func (*BlankLine) node()  {}
