// Package parser is a recursive-descent parser for Bash and POSIX sh.
//
// There is no separate lexer: shell tokenisation depends on the grammar
// position (reserved words, assignments, here-documents), so the parser
// scans bytes directly. Command substitutions are parsed recursively up to
// maxDepth levels.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"shellpure/internal/diag"
	"shellpure/internal/shell/ast"
	"shellpure/internal/source"
)

const maxDepth = 64

var reserved = map[string]bool{
	"if": true, "then": true, "elif": true, "else": true, "fi": true,
	"while": true, "until": true, "for": true, "select": true, "do": true,
	"done": true, "case": true, "esac": true, "function": true,
	"{": true, "}": true, "[[": true,
}

type parser struct {
	file  *source.File
	src   string
	pos   int
	limit int
	depth int

	// heredocs wait for the end of the current line.
	heredocs []*ast.Redirect
	// leadingBlank allows a BlankLine before the first top-level statement.
	leadingBlank bool
}

// Parse parses the file id of fs.
func Parse(fs *source.FileSet, id source.FileID) (script *ast.Script, err *Error) {
	f := fs.Get(id)
	if f == nil {
		return nil, &Error{Msg: fmt.Sprintf("unknown file id %d", id)}
	}
	p := &parser{file: f, src: string(f.Content), limit: len(f.Content)}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			b.err.Location = diag.Resolve(fs, b.err.Span)
			script, err = nil, b.err
		}
	}()

	s := &ast.Script{Path: f.Path}
	if strings.HasPrefix(p.src, "#!") {
		end := strings.IndexByte(p.src, '\n')
		if end < 0 {
			end = len(p.src)
		}
		s.Shebang = strings.TrimRight(p.src[:end], " \t")
		s.ShebangSpan = p.span(0, len(s.Shebang))
		p.pos = end
		p.leadingBlank = true
	}
	s.Stmts = p.list()
	if !p.eof() {
		p.fail(p.pos, p.pos+1, "unexpected %q", string(p.peek()))
	}
	s.Span = p.span(0, len(p.src))
	return s, nil
}

// ParseString registers text as a virtual file and parses it.
func ParseString(fs *source.FileSet, path, text string) (*ast.Script, *Error) {
	id := fs.AddVirtual(path, []byte(text))
	return Parse(fs, id)
}

func (p *parser) span(start, end int) source.Span {
	s, errStart := safecast.Conv[uint32](start)
	e, errEnd := safecast.Conv[uint32](end)
	if err := errors.Join(errStart, errEnd); err != nil {
		panic(fmt.Errorf("span %d..%d overflow: %w", start, end, err))
	}
	return source.Span{File: p.file.ID, Start: s, End: e}
}

func (p *parser) fail(start, end int, format string, args ...any) {
	if end > p.limit {
		end = p.limit
	}
	if start > end {
		start = end
	}
	panic(bailout{err: &Error{Msg: fmt.Sprintf(format, args...), Span: p.span(start, end)}})
}

func (p *parser) eof() bool {
	return p.pos >= p.limit
}

func (p *parser) peek() byte {
	return p.peekAt(0)
}

func (p *parser) peekAt(i int) byte {
	if p.pos+i >= p.limit {
		return 0
	}
	return p.src[p.pos+i]
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.src[p.pos:p.limit], s)
}

func isDelim(c byte) bool {
	switch c {
	case 0, ' ', '\t', '\n', ';', '&', '|', '(', ')', '<', '>':
		return true
	}
	return false
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// reservedWord returns the reserved word at the cursor, or "".
func (p *parser) reservedWord() string {
	end := p.pos
	for end < p.limit && !isDelim(p.src[end]) {
		end++
	}
	if w := p.src[p.pos:end]; reserved[w] {
		return w
	}
	return ""
}

// atWord reports whether the plain word w is at the cursor.
func (p *parser) atWord(w string) bool {
	return p.hasPrefix(w) && isDelim(p.peekAt(len(w)))
}

func (p *parser) expectWord(w string) {
	if p.reservedWord() != w && !p.atWord(w) {
		if p.eof() {
			p.fail(p.pos, p.pos, "unexpected end of file, expected %q", w)
		}
		p.fail(p.pos, p.pos+1, "expected %q", w)
	}
	p.pos += len(w)
}

// skipBlanks skips spaces, tabs and line continuations.
func (p *parser) skipBlanks() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t':
			p.pos++
		case c == '\\' && p.peekAt(1) == '\n':
			p.pos += 2
		default:
			return
		}
	}
}

// skipSpace also consumes newlines and returns how many it saw.
func (p *parser) skipSpace() (newlines int) {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t':
			p.pos++
		case c == '\\' && p.peekAt(1) == '\n':
			p.pos += 2
		case c == '\n':
			newlines++
			p.newline()
		default:
			return newlines
		}
	}
	return newlines
}

// skipLinebreaks skips whitespace, newlines and comments after an operator
// that continues the statement on the next line.
func (p *parser) skipLinebreaks() {
	for {
		p.skipSpace()
		if p.peek() != '#' {
			return
		}
		p.comment()
	}
}

// newline consumes '\n' and reads the bodies of pending here-documents.
func (p *parser) newline() {
	p.pos++
	pending := p.heredocs
	p.heredocs = nil
	for _, r := range pending {
		p.heredocBody(r.Heredoc)
	}
}

func (p *parser) heredocBody(h *ast.Heredoc) {
	start := p.pos
	for !p.eof() {
		ls := p.pos
		le := strings.IndexByte(p.src[ls:p.limit], '\n')
		next := p.limit
		if le < 0 {
			le = p.limit
		} else {
			le += ls
			next = le + 1
		}
		line := p.src[ls:le]
		if h.StripTabs {
			line = strings.TrimLeft(line, "\t")
		}
		if line == h.Delim {
			h.Body = p.src[start:ls]
			h.BodySpan = p.span(start, ls)
			p.pos = next
			return
		}
		p.pos = next
	}
	h.Body = p.src[start:p.limit]
	h.BodySpan = p.span(start, p.limit)
}

func (p *parser) comment() *ast.Comment {
	start := p.pos
	end := strings.IndexByte(p.src[start:p.limit], '\n')
	if end < 0 {
		end = p.limit
	} else {
		end += start
	}
	p.pos = end
	return &ast.Comment{Text: strings.TrimRight(p.src[start:end], " \t"), Span: p.span(start, end)}
}

// atListEnd reports whether the statement list stops at the cursor.
func (p *parser) atListEnd(stops []string) bool {
	switch c := p.peek(); {
	case c == ')':
		return true
	case c == ';' && (p.peekAt(1) == ';' || p.peekAt(1) == '&'):
		return true
	}
	w := p.reservedWord()
	for _, s := range stops {
		if w == s {
			return true
		}
	}
	return false
}

// list parses statements separated by newlines, ';' and '&' until the end
// of input, a ')' or ';;', or one of the stop words.
func (p *parser) list(stops ...string) []ast.Node {
	var out []ast.Node
	leading := p.leadingBlank
	p.leadingBlank = false
	for {
		blankStart := p.pos
		nl := p.skipSpace()
		blank := nl >= 2 && (len(out) > 0 || leading)
		leading = false
		if p.eof() {
			return out
		}
		if p.peek() == '#' {
			if blank {
				out = append(out, &ast.BlankLine{Span: p.span(blankStart, p.pos)})
			}
			c := p.comment()
			c.Inline = nl == 0 && len(out) > 0
			out = append(out, c)
			continue
		}
		if p.atListEnd(stops) {
			return out
		}
		if blank {
			out = append(out, &ast.BlankLine{Span: p.span(blankStart, p.pos)})
		}
		start := p.pos
		stmt := p.andOr()
		p.skipBlanks()
		switch {
		case p.peek() == '&' && p.peekAt(1) != '&' && p.peekAt(1) != '>':
			p.pos++
			stmt = &ast.Background{X: stmt, Span: p.span(start, p.pos)}
		case p.peek() == ';' && p.peekAt(1) != ';' && p.peekAt(1) != '&':
			p.pos++
		}
		out = append(out, stmt)
	}
}

func (p *parser) andOr() ast.Node {
	x := p.pipeline()
	for {
		save := p.pos
		p.skipBlanks()
		if !p.hasPrefix("&&") && !p.hasPrefix("||") {
			p.pos = save
			return x
		}
		op := p.src[p.pos : p.pos+2]
		p.pos += 2
		p.skipLinebreaks()
		y := p.pipeline()
		x = &ast.BinaryCmd{Op: op, X: x, Y: y, Span: x.Pos().Cover(y.Pos())}
	}
}

func (p *parser) pipeline() ast.Node {
	start := p.pos
	negated := false
	if p.peek() == '!' && isDelim(p.peekAt(1)) {
		negated = true
		p.pos++
		p.skipBlanks()
	}
	cmds := []ast.Node{p.command()}
	var ops []string
	for {
		save := p.pos
		p.skipBlanks()
		if p.peek() != '|' || p.peekAt(1) == '|' {
			p.pos = save
			break
		}
		p.pos++
		op := "|"
		if p.peek() == '&' {
			p.pos++
			op = "|&"
		}
		ops = append(ops, op)
		p.skipLinebreaks()
		cmds = append(cmds, p.command())
	}
	if len(cmds) == 1 && !negated {
		return cmds[0]
	}
	last := cmds[len(cmds)-1].Pos()
	return &ast.Pipeline{Negated: negated, Cmds: cmds, Ops: ops, Span: p.span(start, int(last.End))}
}

func (p *parser) command() ast.Node {
	p.skipBlanks()
	if p.eof() {
		p.fail(p.pos, p.pos, "unexpected end of file, expected a command")
	}
	if p.hasPrefix("((") {
		return p.arithCmd()
	}
	switch c := p.peek(); c {
	case '(':
		return p.subshell()
	case ')', ';', '&', '|', '\n':
		p.fail(p.pos, p.pos+1, "unexpected %q, expected a command", string(c))
	}
	switch w := p.reservedWord(); w {
	case "if":
		return p.ifClause()
	case "while", "until":
		return p.whileClause(w)
	case "for", "select":
		return p.forClause(w)
	case "case":
		return p.caseClause()
	case "function":
		return p.functionKeyword()
	case "{":
		return p.group()
	case "[[":
		return p.testClause()
	case "then", "elif", "else", "fi", "do", "done", "esac", "}":
		p.fail(p.pos, p.pos+len(w), "unexpected %q", w)
	}
	return p.simpleCommand()
}

func (p *parser) multiline(start int) bool {
	return strings.Contains(p.src[start:p.pos], "\n")
}

func (p *parser) simpleCommand() ast.Node {
	start := p.pos
	end := p.pos
	cmd := &ast.Command{}
loop:
	for {
		p.skipBlanks()
		if p.eof() {
			break
		}
		switch c := p.peek(); {
		case c == '\n' || c == ';' || c == '|' || c == ')' || c == '#':
			break loop
		case c == '&' && p.peekAt(1) != '>':
			break loop
		case p.atRedirect():
			cmd.Redirs = append(cmd.Redirs, p.redirect())
		case c == '(':
			if len(cmd.Args) == 1 && len(cmd.Assigns) == 0 && len(cmd.Redirs) == 0 && p.atFuncParens() {
				return p.funcDef(cmd.Args[0], start)
			}
			p.fail(p.pos, p.pos+1, "unexpected '('")
		default:
			if len(cmd.Args) == 0 {
				if a := p.assignment(); a != nil {
					cmd.Assigns = append(cmd.Assigns, a)
					end = p.pos
					continue
				}
			}
			cmd.Args = append(cmd.Args, p.word())
		}
		end = p.pos
	}
	if len(cmd.Args) == 0 && len(cmd.Assigns) == 0 && len(cmd.Redirs) == 0 {
		p.fail(p.pos, p.pos+1, "expected a command")
	}
	cmd.Span = p.span(start, end)
	return cmd
}

// assignment parses NAME=value, NAME+=value, NAME[i]=value or NAME=(...)
// and returns nil, without moving, when the cursor is not on one.
func (p *parser) assignment() *ast.Assignment {
	start := p.pos
	i := p.pos
	if i >= p.limit || !isNameStart(p.src[i]) {
		return nil
	}
	for i < p.limit && isNameChar(p.src[i]) {
		i++
	}
	nameEnd := i
	if i < p.limit && p.src[i] == '[' {
		j := strings.IndexByte(p.src[i:p.limit], ']')
		if j < 0 {
			return nil
		}
		i += j + 1
		nameEnd = i
	}
	a := &ast.Assignment{Name: p.src[start:nameEnd]}
	switch {
	case strings.HasPrefix(p.src[i:p.limit], "+="):
		a.Append = true
		i += 2
	case i < p.limit && p.src[i] == '=':
		i++
	default:
		return nil
	}
	p.pos = i
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		a.Array = []*ast.Word{}
		for {
			p.skipLinebreaks()
			if p.eof() {
				p.fail(start, p.pos, "unterminated array assignment")
			}
			if p.peek() == ')' {
				p.pos++
				break
			}
			a.Array = append(a.Array, p.word())
		}
	case isDelim(c):
	default:
		a.Value = p.word()
	}
	a.Span = p.span(start, p.pos)
	return a
}

func (p *parser) atFuncParens() bool {
	i := p.pos + 1
	for i < p.limit && (p.src[i] == ' ' || p.src[i] == '\t') {
		i++
	}
	return i < p.limit && p.src[i] == ')'
}

func (p *parser) funcDef(name *ast.Word, start int) ast.Node {
	p.pos++
	p.skipBlanks()
	p.pos++ // ')'
	p.skipLinebreaks()
	body := p.command()
	return &ast.Function{Name: name.Raw, Parens: true, Body: body, Span: p.span(start, int(body.Pos().End))}
}

func (p *parser) functionKeyword() ast.Node {
	start := p.pos
	p.pos += len("function")
	p.skipBlanks()
	nameStart := p.pos
	for !p.eof() && !isDelim(p.peek()) {
		p.pos++
	}
	name := p.src[nameStart:p.pos]
	if name == "" {
		p.fail(nameStart, nameStart+1, "function without a name")
	}
	fn := &ast.Function{Name: name, Keyword: true}
	p.skipBlanks()
	if p.peek() == '(' && p.atFuncParens() {
		p.pos++
		p.skipBlanks()
		p.pos++
		fn.Parens = true
	}
	p.skipLinebreaks()
	fn.Body = p.command()
	fn.Span = p.span(start, int(fn.Body.Pos().End))
	return fn
}

func (p *parser) trailingRedirects() []*ast.Redirect {
	var out []*ast.Redirect
	for {
		save := p.pos
		p.skipBlanks()
		if !p.atRedirect() {
			p.pos = save
			return out
		}
		out = append(out, p.redirect())
	}
}

func (p *parser) ifClause() ast.Node {
	start := p.pos
	p.pos += len("if")
	n := &ast.If{}
	n.Cond = p.condition("if", "then")
	n.Then = p.list("elif", "else", "fi")
	for p.reservedWord() == "elif" {
		es := p.pos
		p.pos += len("elif")
		e := &ast.Elif{Cond: p.condition("elif", "then")}
		e.Then = p.list("elif", "else", "fi")
		e.Span = p.span(es, p.pos)
		n.Elifs = append(n.Elifs, e)
	}
	if p.reservedWord() == "else" {
		p.pos += len("else")
		n.Else = p.list("fi")
		if n.Else == nil {
			n.Else = []ast.Node{}
		}
	}
	p.expectWord("fi")
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	n.Multiline = p.multiline(start)
	return n
}

// condition parses the list between a keyword and its closing word.
func (p *parser) condition(keyword, closing string) []ast.Node {
	at := p.pos
	cond := p.list(closing)
	if len(cond) == 0 {
		p.fail(at, p.pos+1, "%s without a condition", keyword)
	}
	p.expectWord(closing)
	return cond
}

func (p *parser) whileClause(kw string) ast.Node {
	start := p.pos
	p.pos += len(kw)
	n := &ast.While{Until: kw == "until"}
	n.Cond = p.condition(kw, "do")
	n.Body = p.list("done")
	p.expectWord("done")
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	n.Multiline = p.multiline(start)
	return n
}

func (p *parser) forClause(kw string) ast.Node {
	start := p.pos
	p.pos += len(kw)
	p.skipBlanks()
	if kw == "for" && p.hasPrefix("((") {
		p.pos += 2
		end := p.arithEnd(start)
		n := &ast.ArithFor{Expr: p.src[p.pos:end]}
		p.pos = end + 2
		p.loopHead()
		n.Body = p.list("done")
		p.expectWord("done")
		n.Redirs = p.trailingRedirects()
		n.Span = p.span(start, p.pos)
		n.Multiline = p.multiline(start)
		return n
	}

	nameStart := p.pos
	for !p.eof() && isNameChar(p.peek()) {
		p.pos++
	}
	n := &ast.For{Select: kw == "select", Var: p.src[nameStart:p.pos]}
	if n.Var == "" {
		p.fail(nameStart, nameStart+1, "%s without a variable name", kw)
	}
	p.skipSpace()
	if p.atWord("in") {
		p.pos += len("in")
		n.InList = true
		n.Items = []*ast.Word{}
		for {
			p.skipBlanks()
			if c := p.peek(); c == 0 || c == ';' || c == '\n' || c == '#' {
				break
			}
			n.Items = append(n.Items, p.word())
		}
	}
	p.loopHead()
	n.Body = p.list("done")
	p.expectWord("done")
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	n.Multiline = p.multiline(start)
	return n
}

// loopHead consumes the separator and the `do` that open a loop body.
func (p *parser) loopHead() {
	p.skipBlanks()
	if p.peek() == ';' {
		p.pos++
	}
	p.skipLinebreaks()
	p.expectWord("do")
}

func (p *parser) caseClause() ast.Node {
	start := p.pos
	p.pos += len("case")
	p.skipBlanks()
	n := &ast.Case{Word: p.word()}
	p.skipSpace()
	p.expectWord("in")
	for {
		p.skipLinebreaks()
		if p.eof() || p.reservedWord() == "esac" {
			break
		}
		itemStart := p.pos
		if p.peek() == '(' {
			p.pos++
		}
		it := &ast.CaseItem{}
		for {
			p.skipBlanks()
			it.Patterns = append(it.Patterns, p.word())
			p.skipBlanks()
			if p.peek() == '|' {
				p.pos++
				continue
			}
			if p.peek() != ')' {
				p.fail(p.pos, p.pos+1, "expected ')' after case pattern")
			}
			p.pos++
			break
		}
		it.Body = p.list("esac")
		for _, term := range []string{";;&", ";;", ";&"} {
			if p.hasPrefix(term) {
				it.Term = term
				p.pos += len(term)
				break
			}
		}
		it.Span = p.span(itemStart, p.pos)
		n.Items = append(n.Items, it)
		if it.Term == "" {
			p.skipSpace()
			break
		}
	}
	p.expectWord("esac")
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	n.Multiline = p.multiline(start)
	return n
}

func (p *parser) group() ast.Node {
	start := p.pos
	p.pos++
	n := &ast.Group{Stmts: p.list("}")}
	p.expectWord("}")
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	n.Multiline = p.multiline(start)
	return n
}

func (p *parser) subshell() ast.Node {
	start := p.pos
	p.pos++
	n := &ast.Subshell{Stmts: p.list()}
	if p.peek() != ')' {
		p.fail(start, start+1, "unterminated subshell")
	}
	p.pos++
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	n.Multiline = p.multiline(start)
	return n
}

func (p *parser) arithCmd() ast.Node {
	start := p.pos
	p.pos += 2
	end := p.arithEnd(start)
	n := &ast.ArithCmd{Expr: p.src[p.pos:end]}
	p.pos = end + 2
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	return n
}

// arithEnd finds the "))" closing an arithmetic expression that starts at
// the cursor.
func (p *parser) arithEnd(start int) int {
	depth := 0
	for i := p.pos; i < p.limit; i++ {
		switch p.src[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				if i+1 < p.limit && p.src[i+1] == ')' {
					return i
				}
				p.fail(start, i+1, "malformed arithmetic expression")
			}
			depth--
		}
	}
	p.fail(start, start+2, "unterminated arithmetic expression")
	return 0
}

func (p *parser) testClause() ast.Node {
	start := p.pos
	p.pos += 2
	n := &ast.TestClause{Words: []*ast.Word{}}
	for {
		p.skipSpace()
		if p.eof() {
			p.fail(start, start+2, "unterminated [[")
		}
		if p.atWord("]]") {
			p.pos += 2
			break
		}
		ws := p.pos
		parts := p.wordParts(true)
		n.Words = append(n.Words, &ast.Word{Raw: p.src[ws:p.pos], Parts: parts, Span: p.span(ws, p.pos)})
	}
	n.Redirs = p.trailingRedirects()
	n.Span = p.span(start, p.pos)
	return n
}

func (p *parser) atRedirect() bool {
	i := p.pos
	for i < p.limit && isDigit(p.src[i]) {
		i++
	}
	if i >= p.limit {
		return false
	}
	switch p.src[i] {
	case '<', '>':
		// process substitution is a word, not a redirection
		return i+1 >= p.limit || p.src[i+1] != '('
	case '&':
		return i == p.pos && i+1 < p.limit && p.src[i+1] == '>'
	}
	return false
}

var redirOps = []string{"&>>", "&>", "<<<", "<<-", "<<", ">>", ">&", "<&", ">|", "<>", ">", "<"}

func (p *parser) redirect() *ast.Redirect {
	start := p.pos
	for isDigit(p.peek()) {
		p.pos++
	}
	r := &ast.Redirect{N: p.src[start:p.pos]}
	for _, op := range redirOps {
		if p.hasPrefix(op) {
			r.Op = op
			break
		}
	}
	p.pos += len(r.Op)
	p.skipBlanks()
	if p.eof() || isDelim(p.peek()) && !p.atProcSubst() {
		p.fail(start, p.pos, "redirection %q without a target", r.Op)
	}
	r.Word = p.word()
	if r.Op == "<<" || r.Op == "<<-" {
		r.Heredoc = &ast.Heredoc{
			Delim:     r.Word.Unquoted(),
			Quoted:    r.Word.IsQuoted() || strings.ContainsRune(r.Word.Raw, '\\'),
			StripTabs: r.Op == "<<-",
		}
		p.heredocs = append(p.heredocs, r)
	}
	r.Span = p.span(start, p.pos)
	return r
}

func (p *parser) atProcSubst() bool {
	return (p.peek() == '<' || p.peek() == '>') && p.peekAt(1) == '('
}
