package ast

import (
	"strings"

	"shellpure/internal/source"
)

// Word is one shell word. Raw is the exact source text; Parts is its
// decomposition into literal, quoted and expansion pieces.
type Word struct {
	Raw   string
	Parts []WordPart
	Span  source.Span
}

// WordPart is a piece of a word.
type WordPart interface {
	Pos() source.Span
	wordPart()
}

// Lit is unquoted literal text; Value keeps backslash escapes.
type Lit struct {
	Value string
	Span  source.Span
}

// SglQuoted is '...' or, with Dollar, $'...'.
type SglQuoted struct {
	Value  string
	Dollar bool
	Span   source.Span
}

// DblQuoted is "..." with its inner parts.
type DblQuoted struct {
	Parts []WordPart
	Span  source.Span
}

// ParamExp is $name, $1, $? or ${...}.
type ParamExp struct {
	Name   string
	Braced bool
	// Op is everything after the name inside braces, e.g. ":-default".
	Op   string
	Raw  string
	Span source.Span
}

// CmdSubst is $(...), `...`, or a process substitution <(...) / >(...).
type CmdSubst struct {
	Stmts     []Node
	Backquote bool
	ProcSubst string // "<(" or ">(" for process substitution
	Raw       string
	Span      source.Span
}

// ArithExp is $((...)).
type ArithExp struct {
	Expr string
	Span source.Span
}

func (l *Lit) Pos() source.Span       { return l.Span }
func (s *SglQuoted) Pos() source.Span { return s.Span }
func (d *DblQuoted) Pos() source.Span { return d.Span }
func (p *ParamExp) Pos() source.Span  { return p.Span }
func (c *CmdSubst) Pos() source.Span  { return c.Span }
func (a *ArithExp) Pos() source.Span  { return a.Span }

func (*Lit) wordPart()       {}
func (*SglQuoted) wordPart() {}
func (*DblQuoted) wordPart() {}
func (*ParamExp) wordPart()  {}
func (*CmdSubst) wordPart()  {}
func (*ArithExp) wordPart()  {}

// Lit returns the word's value when it is a single unquoted literal without
// escapes, and ok=false otherwise.
func (w *Word) Lit() (string, bool) {
	if w == nil || len(w.Parts) != 1 {
		return "", false
	}
	l, ok := w.Parts[0].(*Lit)
	if !ok || strings.ContainsRune(l.Value, '\\') {
		return "", false
	}
	return l.Value, true
}

// Unquoted returns the word with quotes removed and expansions kept as
// written. It is meant for matching command names and flags.
func (w *Word) Unquoted() string {
	if w == nil {
		return ""
	}
	var b strings.Builder
	unquoteParts(&b, w.Parts)
	return b.String()
}

func unquoteParts(b *strings.Builder, parts []WordPart) {
	for _, p := range parts {
		switch n := p.(type) {
		case *Lit:
			b.WriteString(unescape(n.Value))
		case *SglQuoted:
			b.WriteString(n.Value)
		case *DblQuoted:
			unquoteParts(b, n.Parts)
		case *ParamExp:
			b.WriteString(n.Raw)
		case *CmdSubst:
			b.WriteString(n.Raw)
		case *ArithExp:
			b.WriteString("$((" + n.Expr + "))")
		}
	}
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] == '\n' {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// IsQuoted reports whether any part of the word is quoted.
func (w *Word) IsQuoted() bool {
	for _, p := range w.Parts {
		switch p.(type) {
		case *SglQuoted, *DblQuoted:
			return true
		}
	}
	return false
}

// UnquotedParams lists parameter expansions that are not inside quotes.
func (w *Word) UnquotedParams() []*ParamExp {
	var out []*ParamExp
	for _, p := range w.Parts {
		if pe, ok := p.(*ParamExp); ok {
			out = append(out, pe)
		}
	}
	return out
}

// CmdSubsts lists command substitutions at any quoting level.
func (w *Word) CmdSubsts() []*CmdSubst {
	var out []*CmdSubst
	var walk func([]WordPart)
	walk = func(parts []WordPart) {
		for _, p := range parts {
			switch n := p.(type) {
			case *CmdSubst:
				out = append(out, n)
			case *DblQuoted:
				walk(n.Parts)
			}
		}
	}
	walk(w.Parts)
	return out
}

// Params lists parameter expansions at any quoting level, in order.
func (w *Word) Params() []*ParamExp {
	var out []*ParamExp
	var walk func([]WordPart)
	walk = func(parts []WordPart) {
		for _, p := range parts {
			switch n := p.(type) {
			case *ParamExp:
				out = append(out, n)
			case *DblQuoted:
				walk(n.Parts)
			}
		}
	}
	walk(w.Parts)
	return out
}
