package parser

import (
	"strings"

	"shellpure/internal/shell/ast"
)

func (p *parser) word() *ast.Word {
	start := p.pos
	parts := p.wordParts(false)
	if p.pos == start {
		if p.eof() {
			p.fail(start, start, "unexpected end of file, expected a word")
		}
		p.fail(start, start+1, "unexpected %q, expected a word", string(p.peek()))
	}
	return &ast.Word{Raw: p.src[start:p.pos], Parts: parts, Span: p.span(start, p.pos)}
}

// wordParts scans one word. Inside [[ ]] (test) only whitespace ends a word,
// so operators such as <, ( and | stay part of the text.
func (p *parser) wordParts(test bool) []ast.WordPart {
	var parts []ast.WordPart
	wordStart := p.pos
	litStart := -1
	flush := func() {
		if litStart >= 0 {
			parts = append(parts, &ast.Lit{Value: p.src[litStart:p.pos], Span: p.span(litStart, p.pos)})
			litStart = -1
		}
	}
	lit := func(n int) {
		if litStart < 0 {
			litStart = p.pos
		}
		p.pos = min(p.pos+n, p.limit)
	}
loop:
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			break loop
		case test && (c == ';' || c == '&' || c == '|' || c == ')' || c == '(' || c == '<' || c == '>'):
			lit(1)
		case c == ';' || c == '&' || c == '|' || c == ')':
			break loop
		case (c == '<' || c == '>') && p.peekAt(1) == '(' && p.pos == wordStart:
			flush()
			parts = append(parts, p.procSubst())
		case c == '<' || c == '>':
			break loop
		case c == '(':
			// extglob @(a|b) and `arr=(...)` arguments of declare/local
			if p.pos > wordStart && strings.IndexByte("?*+@!=", p.src[p.pos-1]) >= 0 {
				end := p.matchParen(p.pos)
				lit(end + 1 - p.pos)
				continue
			}
			break loop
		case c == '\\':
			lit(2)
		case c == '\'':
			flush()
			parts = append(parts, p.singleQuoted(false))
		case c == '"':
			flush()
			parts = append(parts, p.doubleQuoted())
		case c == '`':
			flush()
			parts = append(parts, p.backquote())
		case c == '$' && p.peekAt(1) == '\'':
			flush()
			parts = append(parts, p.singleQuoted(true))
		case c == '$':
			if part := p.dollar(); part != nil {
				flush()
				parts = append(parts, part)
				continue
			}
			lit(1)
		default:
			lit(1)
		}
	}
	flush()
	return parts
}

// matchParen returns the index of the ')' matching the '(' at open.
func (p *parser) matchParen(open int) int {
	depth := 0
	for i := open; i < p.limit; i++ {
		switch p.src[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	p.fail(open, open+1, "unbalanced '('")
	return 0
}

func (p *parser) singleQuoted(dollar bool) ast.WordPart {
	start := p.pos
	if dollar {
		p.pos++
	}
	p.pos++
	valStart := p.pos
	for !p.eof() {
		switch p.peek() {
		case '\\':
			if dollar {
				p.pos += 2
				continue
			}
		case '\'':
			val := p.src[valStart:p.pos]
			p.pos++
			return &ast.SglQuoted{Value: val, Dollar: dollar, Span: p.span(start, p.pos)}
		}
		p.pos++
	}
	p.fail(start, start+1, "unterminated single quote")
	return nil
}

func (p *parser) doubleQuoted() ast.WordPart {
	start := p.pos
	p.pos++
	var parts []ast.WordPart
	litStart := -1
	flush := func() {
		if litStart >= 0 {
			parts = append(parts, &ast.Lit{Value: p.src[litStart:p.pos], Span: p.span(litStart, p.pos)})
			litStart = -1
		}
	}
	for !p.eof() {
		switch c := p.peek(); c {
		case '"':
			flush()
			p.pos++
			return &ast.DblQuoted{Parts: parts, Span: p.span(start, p.pos)}
		case '\\':
			if litStart < 0 {
				litStart = p.pos
			}
			p.pos = min(p.pos+2, p.limit)
		case '`':
			flush()
			parts = append(parts, p.backquote())
		case '$':
			if part := p.dollar(); part != nil {
				flush()
				parts = append(parts, part)
				continue
			}
			fallthrough
		default:
			if litStart < 0 {
				litStart = p.pos
			}
			p.pos++
		}
	}
	p.fail(start, start+1, "unterminated double quote")
	return nil
}

// dollar parses an expansion at '$' or returns nil when the '$' is literal.
func (p *parser) dollar() ast.WordPart {
	start := p.pos
	next := p.peekAt(1)
	switch {
	case next == '(' && p.peekAt(2) == '(':
		p.pos += 3
		end := p.arithEnd(start)
		expr := p.src[p.pos:end]
		p.pos = end + 2
		return &ast.ArithExp{Expr: expr, Span: p.span(start, p.pos)}
	case next == '(':
		p.pos += 2
		stmts := p.nested(start)
		p.skipSpace()
		if p.peek() != ')' {
			p.fail(start, start+2, "unterminated command substitution")
		}
		p.pos++
		return &ast.CmdSubst{Stmts: stmts, Raw: p.src[start:p.pos], Span: p.span(start, p.pos)}
	case next == '{':
		return p.braceParam()
	case isNameStart(next):
		p.pos++
		for !p.eof() && isNameChar(p.peek()) {
			p.pos++
		}
		return &ast.ParamExp{Name: p.src[start+1 : p.pos], Raw: p.src[start:p.pos], Span: p.span(start, p.pos)}
	case isDigit(next) || next != 0 && strings.IndexByte("@*#?$!-", next) >= 0:
		p.pos += 2
		return &ast.ParamExp{Name: string(next), Raw: p.src[start:p.pos], Span: p.span(start, p.pos)}
	}
	return nil
}

// nested parses the statements of a command or process substitution.
func (p *parser) nested(start int) []ast.Node {
	p.depth++
	if p.depth > maxDepth {
		p.fail(start, start+2, "command substitutions nested deeper than %d levels", maxDepth)
	}
	stmts := p.list()
	p.depth--
	return stmts
}

func (p *parser) procSubst() ast.WordPart {
	start := p.pos
	op := p.src[p.pos : p.pos+2]
	p.pos += 2
	stmts := p.nested(start)
	p.skipSpace()
	if p.peek() != ')' {
		p.fail(start, start+2, "unterminated process substitution")
	}
	p.pos++
	return &ast.CmdSubst{Stmts: stmts, ProcSubst: op, Raw: p.src[start:p.pos], Span: p.span(start, p.pos)}
}

func (p *parser) backquote() ast.WordPart {
	start := p.pos
	end := -1
	for i := start + 1; i < p.limit; i++ {
		if p.src[i] == '\\' {
			i++
			continue
		}
		if p.src[i] == '`' {
			end = i
			break
		}
	}
	if end < 0 {
		p.fail(start, start+1, "unterminated backquote")
	}
	if p.depth+1 > maxDepth {
		p.fail(start, start+1, "command substitutions nested deeper than %d levels", maxDepth)
	}
	sub := &parser{file: p.file, src: p.src, pos: start + 1, limit: end, depth: p.depth + 1}
	stmts := sub.list()
	if !sub.eof() {
		sub.fail(sub.pos, sub.pos+1, "unexpected %q in backquote", string(sub.peek()))
	}
	p.pos = end + 1
	return &ast.CmdSubst{Stmts: stmts, Backquote: true, Raw: p.src[start:p.pos], Span: p.span(start, p.pos)}
}

func (p *parser) braceParam() ast.WordPart {
	start := p.pos
	p.pos += 2
	inner := p.pos
	depth := 1
	for !p.eof() {
		switch p.peek() {
		case '\\':
			p.pos += 2
			continue
		case '\'':
			p.singleQuoted(false)
			continue
		case '"':
			p.doubleQuoted()
			continue
		case '$':
			if p.dollar() != nil {
				continue
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				body := p.src[inner:p.pos]
				p.pos++
				name, op := splitParam(body)
				return &ast.ParamExp{Name: name, Braced: true, Op: op, Raw: p.src[start:p.pos], Span: p.span(start, p.pos)}
			}
		}
		p.pos++
	}
	p.fail(start, start+2, "unterminated ${")
	return nil
}

// splitParam splits the inside of ${...} into the parameter name and the
// remaining operator text. A leading '#' or '!' stays in op.
func splitParam(body string) (name, op string) {
	prefix := ""
	if len(body) > 1 && (body[0] == '#' || body[0] == '!') {
		prefix, body = body[:1], body[1:]
	}
	n := 0
	switch {
	case n < len(body) && isNameStart(body[n]):
		for n < len(body) && isNameChar(body[n]) {
			n++
		}
	case n < len(body) && isDigit(body[n]):
		for n < len(body) && isDigit(body[n]) {
			n++
		}
	case n < len(body) && strings.IndexByte("@*#?$!-", body[n]) >= 0:
		n = 1
	}
	return body[:n], prefix + body[n:]
}
