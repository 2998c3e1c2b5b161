package parser

import (
	"shellpure/internal/makefile/ast"
	"shellpure/internal/source"
)

// knownFunctions maps GNU make functions to their maximum argument count;
// 0 means unbounded. The last argument takes the remainder, so commas inside
// `$(shell ...)` are not split.
var knownFunctions = map[string]int{
	"subst": 3, "patsubst": 3, "strip": 1, "findstring": 2, "filter": 2,
	"filter-out": 2, "sort": 1, "word": 2, "wordlist": 3, "words": 1,
	"firstword": 1, "lastword": 1, "dir": 1, "notdir": 1, "suffix": 1,
	"basename": 1, "addsuffix": 2, "addprefix": 2, "join": 2, "wildcard": 1,
	"realpath": 1, "abspath": 1, "error": 1, "warning": 1, "info": 1,
	"shell": 1, "origin": 1, "flavor": 1, "foreach": 3, "if": 3, "or": 0,
	"and": 0, "call": 0, "eval": 1, "file": 2, "value": 1, "let": 3,
	"intcmp": 5, "guile": 1,
}

// IsFunction reports whether name is a GNU make built-in function.
func IsFunction(name string) bool {
	_, ok := knownFunctions[name]
	return ok
}

// ExtractCalls returns every function call in text, outer calls before the
// calls nested in their arguments. base is the span of text in the file.
func ExtractCalls(text string, base source.Span) []ast.FunctionCall {
	var out []ast.FunctionCall
	extractCalls(text, 0, base, &out)
	return out
}

func extractCalls(text string, off int, base source.Span, out *[]ast.FunctionCall) {
	for i := 0; i < len(text)-1; i++ {
		if text[i] != '$' {
			continue
		}
		if text[i+1] == '$' {
			i++
			continue
		}
		if text[i+1] != '(' && text[i+1] != '{' {
			continue
		}
		end := matchClose(text, i+1)
		if end < 0 {
			return
		}
		inner := text[i+2 : end]
		name, argOff := callName(inner)
		if maxArgs, ok := knownFunctions[name]; ok {
			fc := ast.FunctionCall{
				Name: name,
				Raw:  text[i : end+1],
				Span: base.Sub(off+i, off+end+1),
			}
			argBase := off + i + 2 + argOff
			for _, a := range splitArgs(inner[argOff:], maxArgs) {
				fc.Args = append(fc.Args, a.text)
				fc.ArgSpans = append(fc.ArgSpans, base.Sub(argBase+a.start, argBase+a.start+len(a.text)))
			}
			*out = append(*out, fc)
		}
		extractCalls(inner, off+i+2, base, out)
		i = end
	}
}

// callName splits "name args" and returns the name and the offset of the
// first argument. A reference without whitespace after the name is a plain
// variable and yields "".
func callName(inner string) (string, int) {
	n := 0
	for n < len(inner) && (inner[n] >= 'a' && inner[n] <= 'z' || inner[n] == '-') {
		n++
	}
	if n == 0 || n == len(inner) || (inner[n] != ' ' && inner[n] != '\t') {
		return "", 0
	}
	off := n
	for off < len(inner) && (inner[off] == ' ' || inner[off] == '\t') {
		off++
	}
	return inner[:n], off
}

type arg struct {
	text  string
	start int
}

func splitArgs(s string, maxArgs int) []arg {
	var out []arg
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		case ',':
			if depth == 0 && (maxArgs == 0 || len(out) < maxArgs-1) {
				out = append(out, arg{text: s[start:i], start: start})
				start = i + 1
			}
		}
	}
	return append(out, arg{text: s[start:], start: start})
}

// matchClose returns the index of the delimiter closing the one at open,
// or -1.
func matchClose(s string, open int) int {
	opener := s[open]
	closer := byte(')')
	if opener == '{' {
		closer = '}'
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// balanced reports whether every $( and ${ in s is closed.
func balanced(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '$' && (s[i+1] == '(' || s[i+1] == '{') {
			end := matchClose(s, i+1)
			if end < 0 {
				return false
			}
			i = end
		}
	}
	return true
}
