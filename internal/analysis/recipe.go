package analysis

import (
	"strings"

	"shellpure/internal/source"
)

// maxSubstDepth bounds the recursion into nested command substitutions.
const maxSubstDepth = 8

// ParseLine splits one line of shell text, such as a Makefile recipe line or
// the argument of `$(shell ...)`, into chains of commands. The first chain
// is the line itself; the rest come from command substitutions (`$$(...)`,
// backquotes) and `$(shell ...)` calls inside its words. base is the span of
// text in its file. Make references `$(...)`, `${...}` and `$$` escapes stay
// inside the words they appear in. The scan is lexical: control keywords are
// dropped and compound commands are flattened.
func ParseLine(text string, base source.Span) []Chain {
	return parseLine(text, base, 0)
}

func parseLine(text string, base source.Span, depth int) []Chain {
	s := &lineScanner{src: text, base: base}
	ch := s.chain()
	var out []Chain
	if len(ch.Cmds) > 0 {
		out = append(out, ch)
	}
	if depth >= maxSubstDepth {
		return out
	}
	for _, sub := range s.subs {
		out = append(out, parseLine(text[sub[0]:sub[1]], s.span(sub[0], sub[1]), depth+1)...)
	}
	return out
}

type lineScanner struct {
	src  string
	base source.Span
	pos  int

	ch       Chain
	cmd      Command
	cmdStart int
	lastEnd  int
	// subs are [start, end) offsets of nested command text.
	subs [][2]int
}

var leadKeywords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "do": true,
	"while": true, "until": true, "!": true, "{": true, "}": true,
	"fi": true, "done": true, "esac": true,
}

func (s *lineScanner) span(start, end int) source.Span {
	return s.base.Sub(start, end)
}

func (s *lineScanner) eof() bool { return s.pos >= len(s.src) }

func (s *lineScanner) peekAt(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *lineScanner) chain() Chain {
	s.cmdStart = -1
	for {
		s.skipBlank()
		if s.eof() {
			break
		}
		c := s.src[s.pos]
		switch {
		case c == ';':
			s.pos++
			if s.peekAt(0) == ';' {
				s.pos++
			}
			s.flush(";")
		case c == '&' && s.peekAt(1) == '&':
			s.pos += 2
			s.flush("&&")
		case c == '|' && s.peekAt(1) == '|':
			s.pos += 2
			s.flush("||")
		case c == '|':
			s.pos++
			if s.peekAt(0) == '&' {
				s.pos++
			}
			s.flush("|")
		case c == '&' && s.peekAt(1) != '>':
			s.pos++
			s.flush("&")
		case c == '(' && s.peekAt(1) == '(' && s.cmdStart < 0:
			start := s.pos
			end := strings.Index(s.src[s.pos:], "))")
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += end + 2
			}
			s.mark(start)
			raw := s.src[start:s.pos]
			s.cmd.Args = append(s.cmd.Args, Arg{Text: raw, Raw: raw, Span: s.span(start, s.pos)})
		case c == '(' || c == ')':
			s.pos++
		case s.atRedirect():
			start := s.pos
			r := s.redirect()
			s.mark(start)
			s.cmd.Redirs = append(s.cmd.Redirs, r)
		default:
			start := s.pos
			a := s.word()
			if s.pos == start {
				s.pos++
				continue
			}
			if len(s.cmd.Args) == 0 && !a.Quoted && leadKeywords[a.Text] {
				continue
			}
			s.mark(start)
			if name, off, ok := assignName(a.Raw); ok && len(s.cmd.Args) == 0 {
				value := Arg{
					Text:   a.Text[min(off, len(a.Text)):],
					Raw:    a.Raw[off:],
					Span:   s.span(start+off, s.pos),
					Quoted: a.Quoted,
				}
				s.cmd.Assigns = append(s.cmd.Assigns, Assign{Name: name, Value: value, Span: a.Span})
				continue
			}
			s.cmd.Args = append(s.cmd.Args, a)
		}
	}
	s.flush("")
	if n := len(s.ch.Cmds); n > 0 {
		s.ch.Background = s.ch.Cmds[n-1].Op == "&"
		s.ch.Span = s.ch.Cmds[0].Span.Cover(s.ch.Cmds[n-1].Span)
	}
	return s.ch
}

func (s *lineScanner) mark(start int) {
	if s.cmdStart < 0 {
		s.cmdStart = start
	}
	s.lastEnd = s.pos
}

func (s *lineScanner) flush(op string) {
	switch {
	case s.cmdStart >= 0:
		s.cmd.Op = op
		s.cmd.Span = s.span(s.cmdStart, s.lastEnd)
		s.ch.Cmds = append(s.ch.Cmds, s.cmd)
	case op != "" && len(s.ch.Cmds) > 0:
		// `fi; next` or `done | sort`: the operator belongs to the
		// dropped keyword, attach it to the previous command.
		s.ch.Cmds[len(s.ch.Cmds)-1].Op = op
	}
	s.cmd = Command{}
	s.cmdStart = -1
}

func (s *lineScanner) skipBlank() {
	for !s.eof() {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		case '\\':
			if s.peekAt(1) != '\n' {
				return
			}
			s.pos += 2
		case '#':
			// comment to end of line
			if s.pos > 0 && !isBlank(s.src[s.pos-1]) {
				return
			}
			for !s.eof() && s.src[s.pos] != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

func (s *lineScanner) atRedirect() bool {
	i := s.pos
	for i < len(s.src) && s.src[i] >= '0' && s.src[i] <= '9' {
		i++
	}
	if i < len(s.src) && (s.src[i] == '>' || s.src[i] == '<') {
		return true
	}
	return s.src[s.pos] == '&' && s.peekAt(1) == '>'
}

var redirOps = []string{"&>>", "&>", "<<<", "<<-", ">>", ">|", ">&", "<<", "<>", "<&", ">", "<"}

func (s *lineScanner) redirect() Redirect {
	start := s.pos
	for !s.eof() && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
		s.pos++
	}
	r := Redirect{N: s.src[start:s.pos]}
	for _, op := range redirOps {
		if strings.HasPrefix(s.src[s.pos:], op) {
			r.Op = op
			s.pos += len(op)
			break
		}
	}
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
	if !s.eof() && !strings.ContainsRune(";&|<>()\n", rune(s.src[s.pos])) {
		r.Target = s.word()
	}
	return r
}

// word reads one shell word, keeping quoted and expansion text intact.
func (s *lineScanner) word() Arg {
	start := s.pos
	var b strings.Builder
	quoted := false
loop:
	for !s.eof() {
		c := s.src[s.pos]
		switch c {
		case ' ', '\t', '\n', '\r', ';', '&', '|', '<', '>', '(', ')':
			break loop
		case '\\':
			if s.peekAt(1) == '\n' || s.pos+1 >= len(s.src) {
				break loop
			}
			b.WriteByte(s.src[s.pos+1])
			s.pos += 2
		case '\'':
			end := strings.IndexByte(s.src[s.pos+1:], '\'')
			if end < 0 {
				end = len(s.src) - s.pos - 1
			}
			b.WriteString(s.src[s.pos+1 : s.pos+1+end])
			s.pos = min(s.pos+end+2, len(s.src))
			quoted = true
		case '"':
			end := s.doubleEnd(s.pos + 1)
			s.quotedSubs(s.pos+1, end)
			b.WriteString(unescapeDouble(s.src[s.pos+1 : end]))
			s.pos = min(end+1, len(s.src))
			quoted = true
		case '$':
			from := s.pos
			switch next := s.peekAt(1); {
			case next == '(' || next == '{':
				s.pos = balanced(s.src, s.pos+1)
				if rest := s.src[from+2:]; next == '(' && strings.HasPrefix(rest, "shell") && len(rest) > 5 && isBlank(rest[5]) {
					s.addSub(from+8, s.pos-1)
				}
			case next == '$' && s.peekAt(2) == '(' && s.peekAt(3) != '(':
				s.pos = balanced(s.src, s.pos+2)
				s.addSub(from+3, s.pos-1)
			case next == '$' && (s.peekAt(2) == '(' || s.peekAt(2) == '{'):
				s.pos = balanced(s.src, s.pos+2)
			case next == '$':
				s.pos += 2
			default:
				s.pos++
			}
			b.WriteString(s.src[from:s.pos])
		case '`':
			end := strings.IndexByte(s.src[s.pos+1:], '`')
			from := s.pos
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += end + 2
				s.addSub(from+1, s.pos-1)
			}
			b.WriteString(s.src[from:s.pos])
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return Arg{Text: b.String(), Raw: s.src[start:s.pos], Span: s.span(start, s.pos), Quoted: quoted}
}

func (s *lineScanner) addSub(start, end int) {
	if start < end && end <= len(s.src) {
		s.subs = append(s.subs, [2]int{start, end})
	}
}

// quotedSubs records the substitutions inside a "..." string.
func (s *lineScanner) quotedSubs(from, to int) {
	for i := from; i < to; i++ {
		switch {
		case s.src[i] == '\\':
			i++
		case strings.HasPrefix(s.src[i:to], "$$(") && !strings.HasPrefix(s.src[i:to], "$$(("):
			end := balanced(s.src[:to], i+2)
			s.addSub(i+3, end-1)
			i = end - 1
		case strings.HasPrefix(s.src[i:to], "$(shell") && i+7 < to && isBlank(s.src[i+7]):
			end := balanced(s.src[:to], i+1)
			s.addSub(i+8, end-1)
			i = end - 1
		case s.src[i] == '`':
			if j := strings.IndexByte(s.src[i+1:to], '`'); j >= 0 {
				s.addSub(i+1, i+1+j)
				i += j + 1
			}
		}
	}
}

// doubleEnd returns the index of the quote closing a "..." string that
// starts at i, or len(src).
func (s *lineScanner) doubleEnd(i int) int {
	for i < len(s.src) {
		switch s.src[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i
		case '$':
			if i+1 < len(s.src) && (s.src[i+1] == '(' || s.src[i+1] == '{') {
				i = balanced(s.src, i+1)
				continue
			}
		}
		i++
	}
	return len(s.src)
}

// balanced returns the index just past the bracket matching src[open].
func balanced(src string, open int) int {
	if open >= len(src) {
		return len(src)
	}
	opener := src[open]
	closer := byte(')')
	if opener == '{' {
		closer = '}'
	}
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\'':
			if opener == '(' {
				if end := strings.IndexByte(src[i+1:], '\''); end >= 0 {
					i += end + 1
				}
			}
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(src)
}

func unescapeDouble(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte("\"\\$`\n", s[i+1]) >= 0 {
			i++
			if s[i] == '\n' {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// assignName returns NAME and the offset of the value for a word of the
// form NAME=value or NAME+=value.
func assignName(raw string) (string, int, bool) {
	eq := strings.IndexByte(raw, '=')
	if eq <= 0 {
		return "", 0, false
	}
	name := strings.TrimSuffix(raw[:eq], "+")
	if !IsName(name) {
		return "", 0, false
	}
	return name, eq + 1, true
}

// IsName reports whether s is a valid shell variable name.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || i > 0 && '0' <= c && c <= '9' {
			continue
		}
		return false
	}
	return true
}
