// Package parser turns Makefile text into an ast.File.
//
// The parser is line based: it assembles logical lines from backslash
// continuations, keeps a stack of open conditionals and switches to a raw
// sub-state inside define/endef. It stops at the first error.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"shellpure/internal/diag"
	"shellpure/internal/makefile/ast"
	"shellpure/internal/source"
)

// frame is one open conditional.
type frame struct {
	cond    *ast.Conditional
	inElse  bool
	chained bool
}

type parser struct {
	fs   *source.FileSet
	file *source.File
	r    lineReader

	items []ast.Item
	stack []*frame

	// rule receives the following tab lines; recipe stays true across
	// conditional directives so that their tab lines remain recipe lines.
	rule   *ast.Rule
	recipe bool
}

// Parse parses the file id of fs.
func Parse(fs *source.FileSet, id source.FileID) (*ast.File, *Error) {
	f := fs.Get(id)
	if f == nil {
		return nil, &Error{Kind: UnexpectedEof, Detail: fmt.Sprintf("unknown file id %d", id)}
	}
	p := &parser{
		fs:   fs,
		file: f,
		r:    lineReader{src: string(f.Content)},
	}
	if err := p.run(); err != nil {
		return nil, err.WithLocation(diag.Resolve(fs, err.Span))
	}
	return &ast.File{
		Path:  f.Path,
		Items: p.items,
		Span:  p.span(0, len(f.Content)),
	}, nil
}

// ParseString registers text as a virtual file and parses it.
func ParseString(fs *source.FileSet, path, text string) (*ast.File, *Error) {
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

func (p *parser) errorf(kind ErrorKind, start, end int, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Span: p.span(start, end)}
}

func (p *parser) run() *Error {
	for !p.r.eof() {
		start, end := p.r.logical()
		if err := p.line(start, end); err != nil {
			return err
		}
	}
	if n := len(p.stack); n > 0 {
		open := p.stack[0].cond
		return p.errorf(UnexpectedEof, int(open.Span.Start), int(open.Span.End),
			"missing endif for %s %s", open.Directive, open.Condition)
	}
	return nil
}

func (p *parser) add(it ast.Item) {
	if len(p.stack) == 0 {
		p.items = append(p.items, it)
		return
	}
	f := p.stack[len(p.stack)-1]
	if f.inElse {
		f.cond.Else = append(f.cond.Else, it)
	} else {
		f.cond.Then = append(f.cond.Then, it)
	}
}

func (p *parser) endRule() {
	p.rule = nil
	p.recipe = false
}

func (p *parser) addRecipe(text string, start, end int, verbatim bool) {
	rl := ast.RecipeLine{Text: text, Verbatim: verbatim, Span: p.span(start, end)}
	if !verbatim {
		rl.Calls = ExtractCalls(text, rl.Span)
	}
	if p.rule != nil {
		p.rule.Recipe = append(p.rule.Recipe, rl)
		p.rule.Span = p.rule.Span.Cover(rl.Span)
		return
	}
	p.add(&ast.RecipeItem{Line: rl})
}

func (p *parser) line(start, end int) *Error {
	raw := p.r.src[start:end]
	if p.recipe && strings.HasPrefix(raw, "\t") {
		p.addRecipe(raw[1:], start+1, end, false)
		return nil
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if p.rule != nil && p.r.peekRecipe() {
			p.addRecipe("", start, end, true)
			return nil
		}
		p.endRule()
		p.add(&ast.Blank{Span: p.span(start, end)})
		return nil
	}
	if trimmed[0] == '#' {
		if p.rule != nil && raw[0] == '#' && p.r.peekRecipe() {
			p.addRecipe(raw, start, end, true)
			return nil
		}
		p.endRule()
		p.add(&ast.Comment{Text: trimmed, Span: p.span(start, end)})
		return nil
	}

	lead := len(raw) - len(strings.TrimLeft(raw, " \t"))
	body := strings.TrimRight(raw[lead:], " \t")
	bodyStart := start + lead

	word, rest := leadingWord(body)
	switch word {
	case "ifeq", "ifneq", "ifdef", "ifndef":
		return p.openConditional(word, rest, start, end)
	case "else":
		return p.elseLine(rest, start, end)
	case "endif":
		return p.endif(rest, start, end)
	case "define":
		p.endRule()
		return p.define(rest, false, false, start, end)
	case "endef":
		return p.errorf(InvalidVariableAssignment, start, end, "endef without matching define")
	}

	p.endRule()
	if word != "" && !startsWithOperator(rest) {
		if handled, err := p.directive(word, rest, body, bodyStart, start, end); handled || err != nil {
			return err
		}
	}

	if fc, ok := p.standaloneCall(body, bodyStart); ok {
		p.add(fc)
		return nil
	}

	idx, op, ok := findOperator(body)
	if !ok {
		if strings.HasPrefix(word, "if") || strings.HasPrefix(body, "if") {
			w, _, _ := strings.Cut(body, " ")
			return p.errorf(UnknownConditional, start, end, "unknown conditional directive %q", w)
		}
		return p.errorf(NoAssignmentOperator, start, end, "missing separator in %q", trimmed)
	}
	if op == ":" {
		return p.parseRule(body, bodyStart, idx, start, end)
	}
	v, err := p.assignment(body, bodyStart, idx, op, start, end)
	if err != nil {
		return err
	}
	p.add(v)
	return nil
}

func startsWithOperator(s string) bool {
	for _, op := range []string{"=", ":=", "::=", "?=", "+=", "!="} {
		if strings.HasPrefix(s, op) {
			return true
		}
	}
	return false
}

// directive handles keyword lines. handled is false when the line should be
// parsed as an ordinary assignment or rule.
func (p *parser) directive(word, rest, body string, bodyStart, start, end int) (handled bool, err *Error) {
	restOff := bodyStart + len(body) - len(rest)
	switch word {
	case "include", "-include", "sinclude":
		paths, com := splitComment(rest)
		ps := fields(joinContinuations(paths))
		if len(ps) == 0 {
			return true, p.errorf(InvalidIncludeSyntax, start, end, "%s without a file name", word)
		}
		p.add(&ast.Include{
			Directive: word,
			Paths:     ps,
			Optional:  word != "include",
			Comment:   com,
			Span:      p.span(start, end),
		})
		return true, nil
	case "override", "export":
		if w, r := leadingWord(rest); w == "define" {
			return true, p.define(r, word == "export", word == "override", start, end)
		}
		if rest == "" {
			p.add(&ast.Directive{Keyword: word, Span: p.span(start, end)})
			return true, nil
		}
		idx, op, ok := findOperator(rest)
		if !ok || op == ":" {
			if word == "override" {
				return true, p.errorf(InvalidVariableAssignment, start, end, "override must be followed by an assignment")
			}
			args, com := splitComment(rest)
			p.add(&ast.Directive{Keyword: word, Args: joinContinuations(args), Comment: com, Span: p.span(start, end)})
			return true, nil
		}
		v, err := p.assignment(rest, restOff, idx, op, start, end)
		if err != nil {
			return true, err
		}
		// `export override X = 1` and the reverse
		if inner, r := leadingWord(v.Name); inner == "override" || inner == "export" {
			v.Name = r
			v.Override = v.Override || inner == "override"
			v.Export = v.Export || inner == "export"
		}
		v.Export = v.Export || word == "export"
		v.Override = v.Override || word == "override"
		if strings.ContainsAny(v.Name, " \t") {
			return true, p.errorf(InvalidVariableAssignment, start, end, "variable name %q contains whitespace", v.Name)
		}
		p.add(v)
		return true, nil
	case "unexport", "vpath":
		args, com := splitComment(rest)
		p.add(&ast.Directive{Keyword: word, Args: joinContinuations(args), Comment: com, Span: p.span(start, end)})
		return true, nil
	case "undefine":
		args, com := splitComment(rest)
		if len(fields(args)) == 0 {
			return true, p.errorf(MissingVariableName, start, end, "undefine without a variable name")
		}
		p.add(&ast.Directive{Keyword: word, Args: args, Comment: com, Span: p.span(start, end)})
		return true, nil
	}
	return false, nil
}

// standaloneCall recognises a line made of a single function call such as
// `$(info ...)` or `$(eval ...)`.
func (p *parser) standaloneCall(body string, bodyStart int) (*ast.FunctionCall, bool) {
	if !strings.HasPrefix(body, "$(") && !strings.HasPrefix(body, "${") {
		return nil, false
	}
	closeIdx := matchClose(body, 1)
	if closeIdx < 0 {
		return nil, false
	}
	tail, com := splitComment(body[closeIdx+1:])
	if strings.TrimSpace(tail) != "" {
		return nil, false
	}
	calls := ExtractCalls(body[:closeIdx+1], p.span(bodyStart, bodyStart+closeIdx+1))
	if len(calls) == 0 || calls[0].Span.Start != p.span(bodyStart, bodyStart).Start {
		return nil, false
	}
	fc := calls[0]
	fc.Comment = com
	return &fc, true
}

func (p *parser) assignment(body string, bodyStart, idx int, op string, start, end int) (*ast.Variable, *Error) {
	name := strings.TrimSpace(joinContinuations(body[:idx]))
	if name == "" {
		return nil, p.errorf(EmptyVariableName, start, end, "assignment with %q has no variable name", op)
	}
	if strings.ContainsAny(name, " \t") {
		if w, _ := leadingWord(name); w != "export" && w != "override" {
			return nil, p.errorf(InvalidVariableAssignment, start, end, "variable name %q contains whitespace", name)
		}
	}
	flavor, _ := ast.FlavorOf(op)

	vs := idx + len(op)
	for vs < len(body) && (body[vs] == ' ' || body[vs] == '\t') {
		vs++
	}
	value, comment := splitComment(body[vs:])
	if comment.Text == "" {
		trimmed := strings.TrimRight(value, " \t")
		comment.Pad = value[len(trimmed):]
		value = trimmed
	}
	vspan := p.span(bodyStart+vs, bodyStart+vs+len(value))
	return &ast.Variable{
		Name:      name,
		Flavor:    flavor,
		Op:        op,
		Value:     value,
		Comment:   comment,
		Calls:     ExtractCalls(value, vspan),
		ValueSpan: vspan,
		Span:      p.span(start, end),
	}, nil
}

func (p *parser) parseRule(body string, bodyStart, idx, start, end int) *Error {
	targetsText := joinContinuations(body[:idx])
	targets := fields(targetsText)
	if len(targets) == 0 {
		return p.errorf(EmptyTargetName, start, end, "rule without a target")
	}
	if !balanced(targetsText) {
		return p.errorf(InvalidTargetRule, start, end, "unbalanced reference in targets %q", strings.TrimSpace(targetsText))
	}

	r := &ast.Rule{Targets: targets}
	after := idx + 1
	if after < len(body) && body[after] == ':' {
		r.DoubleColon = true
		after++
	}
	rest := body[after:]
	restStart := bodyStart + after

	var inline string
	inlineStart := -1
	if parts := splitTopLevel(rest, ';'); len(parts) > 1 {
		semi := len(parts[0])
		inline = strings.TrimSpace(rest[semi+1:])
		if inline != "" {
			inlineStart = restStart + semi + 1 + strings.Index(rest[semi+1:], inline)
		}
		rest = parts[0]
	}
	rest, r.Comment = splitComment(rest)

	if vidx, op, ok := findOperator(rest); ok && op != ":" {
		v, err := p.assignment(rest, restStart, vidx, op, start, end)
		if err != nil {
			return err
		}
		if w, nm := leadingWord(v.Name); w == "export" || w == "override" {
			v.Name = nm
			v.Export = w == "export"
			v.Override = w == "override"
		}
		// комментарий относится к значению переменной
		v.Comment, r.Comment = r.Comment, ast.Trailing{}
		r.VarAssign = v
		r.HeaderSpan = p.span(start, end)
		r.Span = r.HeaderSpan
		p.add(r)
		return nil
	} else if ok {
		r.Pattern = strings.TrimSpace(joinContinuations(rest[:vidx]))
		rest = rest[vidx+1:]
	}

	prereqText := joinContinuations(rest)
	if !balanced(prereqText) {
		return p.errorf(InvalidTargetRule, start, end, "unbalanced reference in prerequisites of %s", targets[0])
	}
	groups := splitTopLevel(prereqText, '|')
	if len(groups) > 2 {
		return p.errorf(InvalidTargetRule, start, end, "more than one '|' in the prerequisites of %s", targets[0])
	}
	r.Prereqs = fields(groups[0])
	if len(groups) == 2 {
		r.OrderOnly = fields(groups[1])
	}
	r.HeaderSpan = p.span(start, end)
	r.Span = r.HeaderSpan
	p.add(r)
	p.rule = r
	p.recipe = true
	if inlineStart >= 0 {
		p.addRecipe(inline, inlineStart, inlineStart+len(inline), false)
	}
	return nil
}

func (p *parser) openConditional(dir, rest string, start, end int) *Error {
	c, err := p.conditional(dir, rest, start, end)
	if err != nil {
		return err
	}
	p.rule = nil
	p.add(c)
	p.stack = append(p.stack, &frame{cond: c})
	return nil
}

func (p *parser) conditional(dir, rest string, start, end int) (*ast.Conditional, *Error) {
	cond, com := splitComment(rest)
	cond = strings.TrimSpace(joinContinuations(cond))
	c := &ast.Conditional{Directive: dir, Condition: cond, Comment: com, Span: p.span(start, end)}
	if cond == "" {
		if dir == "ifdef" || dir == "ifndef" {
			return nil, p.errorf(MissingVariableName, start, end, "%s without a variable name", dir)
		}
		return nil, p.errorf(MissingConditionalArguments, start, end, "%s without arguments", dir)
	}
	if dir == "ifdef" || dir == "ifndef" {
		fs := fields(cond)
		if len(fs) != 1 {
			return nil, p.errorf(InvalidConditionalSyntax, start, end, "%s takes a single variable name, got %q", dir, cond)
		}
		c.Arg1 = fs[0]
		return c, nil
	}
	a, b, ok := conditionArgs(cond)
	if !ok {
		err := p.errorf(InvalidConditionalSyntax, start, end, "malformed %s condition %q", dir, cond)
		if fs := fields(cond); len(fs) == 2 {
			err.hint = fmt.Sprintf("write the condition as `%s (%s,%s)`", dir, fs[0], fs[1])
		}
		return nil, err
	}
	c.Arg1, c.Arg2 = a, b
	return c, nil
}

// conditionArgs parses "(a,b)", "'a' 'b'" or "\"a\" \"b\"".
func conditionArgs(cond string) (string, string, bool) {
	switch cond[0] {
	case '(':
		closeIdx := matchClose(cond, 0)
		if closeIdx != len(cond)-1 {
			return "", "", false
		}
		parts := splitTopLevel(cond[1:closeIdx], ',')
		if len(parts) != 2 {
			return "", "", false
		}
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
	case '"', '\'':
		a, rest, ok := quoted(cond)
		if !ok {
			return "", "", false
		}
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
			return "", "", false
		}
		b, tail, ok := quoted(rest)
		if !ok || strings.TrimSpace(tail) != "" {
			return "", "", false
		}
		return a, b, true
	}
	return "", "", false
}

func quoted(s string) (string, string, bool) {
	q := s[0]
	closeIdx := strings.IndexByte(s[1:], q)
	if closeIdx < 0 {
		return "", "", false
	}
	return s[1 : 1+closeIdx], s[closeIdx+2:], true
}

func (p *parser) elseLine(rest string, start, end int) *Error {
	if len(p.stack) == 0 {
		return p.errorf(InvalidConditionalSyntax, start, end, "else without matching conditional")
	}
	top := p.stack[len(p.stack)-1]
	if top.inElse {
		return p.errorf(InvalidConditionalSyntax, start, end, "only one else is allowed per conditional")
	}
	p.rule = nil
	top.inElse = true
	top.cond.Else = []ast.Item{}
	rest, com := splitComment(rest)
	if rest == "" {
		top.cond.ElseComment = com
		return nil
	}
	word, condRest := leadingWord(rest)
	switch word {
	case "ifeq", "ifneq", "ifdef", "ifndef":
	default:
		return p.errorf(InvalidConditionalSyntax, start, end, "unexpected text after else: %q", rest)
	}
	c, err := p.conditional(word, condRest, start, end)
	if err != nil {
		return err
	}
	c.Chained = true
	c.Comment = com
	top.cond.Else = append(top.cond.Else, c)
	p.stack = append(p.stack, &frame{cond: c, chained: true})
	return nil
}

func (p *parser) endif(rest string, start, end int) *Error {
	if len(p.stack) == 0 {
		return p.errorf(InvalidConditionalSyntax, start, end, "endif without matching conditional")
	}
	r, com := splitComment(rest)
	if r != "" {
		return p.errorf(InvalidConditionalSyntax, start, end, "unexpected text after endif: %q", r)
	}
	p.rule = nil
	closing := p.span(start, end)
	for len(p.stack) > 0 {
		f := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		f.cond.Span = f.cond.Span.Cover(closing)
		if !f.chained {
			f.cond.EndifComment = com
			break
		}
	}
	return nil
}

// define reads a define/endef block in raw mode. Nested define blocks are
// counted so that their endef does not close the outer one.
func (p *parser) define(rest string, export, override bool, start, end int) *Error {
	rest, com := splitComment(rest)
	d := &ast.Define{Export: export, Override: override, Flavor: ast.FlavorRecursive, Comment: com}
	if idx, op, ok := findOperator(rest); ok && op != ":" {
		d.Name = strings.TrimSpace(rest[:idx])
		d.Op = op
		d.Flavor, _ = ast.FlavorOf(op)
		if tail := strings.TrimSpace(rest[idx+len(op):]); tail != "" {
			return p.errorf(InvalidVariableAssignment, start, end, "unexpected text after define operator: %q", tail)
		}
	} else {
		d.Name = strings.TrimSpace(rest)
	}
	if d.Name == "" {
		return p.errorf(MissingVariableName, start, end, "define without a variable name")
	}

	depth := 0
	for !p.r.eof() {
		ls, le := p.r.physical()
		line := p.r.src[ls:le]
		t := strings.TrimSpace(line)
		if w, _ := leadingWord(t); w == "define" {
			depth++
		}
		if t == "endef" {
			if depth == 0 {
				d.Span = p.span(start, le)
				p.add(d)
				return nil
			}
			depth--
		}
		d.Body = append(d.Body, line)
	}
	return p.errorf(UnexpectedEof, start, end, "define %s is missing its endef", d.Name)
}
