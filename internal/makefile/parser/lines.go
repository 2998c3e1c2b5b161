package parser

import (
	"strings"

	"shellpure/internal/makefile/ast"
)

// lineReader walks the source line by line. Offsets are byte offsets into
// the file; line ends exclude the newline.
type lineReader struct {
	src string
	off int
}

func (r *lineReader) eof() bool {
	return r.off >= len(r.src)
}

func (r *lineReader) physical() (start, end int) {
	start = r.off
	if nl := strings.IndexByte(r.src[start:], '\n'); nl >= 0 {
		end = start + nl
		r.off = end + 1
	} else {
		end = len(r.src)
		r.off = end
	}
	return start, end
}

// logical joins backslash-continued physical lines.
func (r *lineReader) logical() (start, end int) {
	start, end = r.physical()
	for continued(r.src[start:end]) && !r.eof() {
		_, end = r.physical()
	}
	return start, end
}

// peekRecipe reports whether the next line that is neither blank nor a
// column-0 comment starts with a tab.
func (r *lineReader) peekRecipe() bool {
	saved := r.off
	defer func() { r.off = saved }()
	for !r.eof() {
		start, end := r.logical()
		line := r.src[start:end]
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.HasPrefix(line, "\t")
	}
	return false
}

func continued(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// joinContinuations folds "\\\n" plus the following indentation into one
// space, the way make reads non-recipe lines.
func joinContinuations(s string) string {
	if !strings.Contains(s, "\\\n") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "\\\n")
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(strings.TrimRight(s[:i], " \t"))
		b.WriteByte(' ')
		s = strings.TrimLeft(s[i+2:], " \t")
	}
	return b.String()
}

// stripComment cuts s at the first unescaped '#'. The comment is returned
// with its '#'.
func stripComment(s string) (body, comment string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '#':
			return strings.TrimRight(s[:i], " \t"), strings.TrimSpace(s[i:])
		}
	}
	return s, ""
}

// splitComment is stripComment that keeps the comment's padding.
func splitComment(s string) (string, ast.Trailing) {
	body, comment := stripComment(s)
	if comment == "" {
		return body, ast.Trailing{}
	}
	i := len(body)
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return body, ast.Trailing{Pad: s[len(body):i], Text: comment}
}

// leadingWord returns the directive-like word at the start of s: letters and
// '-' followed by whitespace, '(' or the end of the line.
func leadingWord(s string) (word, rest string) {
	n := 0
	for n < len(s) && (s[n] >= 'a' && s[n] <= 'z' || s[n] == '-') {
		n++
	}
	if n == 0 {
		return "", s
	}
	if n < len(s) && s[n] != ' ' && s[n] != '\t' && s[n] != '(' {
		return "", s
	}
	return s[:n], strings.TrimSpace(s[n:])
}

// findOperator locates the first top-level ':' or assignment operator.
// Text inside $(...) and ${...} is skipped, as is everything after '#'.
func findOperator(s string) (idx int, op string, ok bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case c == '$' && i+1 < len(s) && s[i+1] == '$':
			i++
		case c == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{'):
			depth++
			i++
		case depth > 0:
			switch c {
			case '(', '{':
				depth++
			case ')', '}':
				depth--
			}
		case c == '#':
			return 0, "", false
		case c == ':':
			switch {
			case strings.HasPrefix(s[i:], "::="):
				return i, "::=", true
			case strings.HasPrefix(s[i:], ":="):
				return i, ":=", true
			}
			return i, ":", true
		case c == '=':
			if i > 0 {
				switch s[i-1] {
				case '?', '+', '!':
					return i - 1, s[i-1 : i+1], true
				}
			}
			return i, "=", true
		}
	}
	return 0, "", false
}

// splitTopLevel splits s on sep outside of variable references.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{'):
			depth++
			i++
		case depth > 0 && (c == '(' || c == '{'):
			depth++
		case depth > 0 && (c == ')' || c == '}'):
			depth--
		case depth == 0 && c == sep:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// fields splits on whitespace while keeping variable references whole, so
// `$(addprefix a, b)` stays one word.
func fields(s string) []string {
	var out []string
	depth := 0
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{'):
			if start < 0 {
				start = i
			}
			depth++
			i++
			continue
		case depth > 0 && (c == '(' || c == '{'):
			depth++
		case depth > 0 && (c == ')' || c == '}'):
			depth--
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}
