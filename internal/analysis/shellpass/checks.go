package shellpass

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"shellpure/internal/analysis"
	"shellpure/internal/fix"
	"shellpure/internal/shell/ast"
)

// unquotedExpansions offers to quote `$name` and `${name...}` expansions in
// argument position. The command name and special parameters are left
// alone: quoting them would change what runs or what "$@" means.
func unquotedExpansions(script *ast.Script) []analysis.Transformation {
	var out []analysis.Transformation
	for _, c := range ast.Commands(script) {
		if len(c.Args) < 2 || c.Name() == "eval" {
			continue
		}
		for _, w := range c.Args[1:] {
			for _, p := range w.UnquotedParams() {
				if !quotable(p) {
					continue
				}
				t := analysis.New(analysis.KindUnquotedVar, p.Span, p.Raw,
					"`"+p.Raw+"` is not quoted and undergoes word splitting")
				out = append(out, t.WithFix(fix.ReplaceSpan(p.Span, `"`+p.Raw+`"`, p.Raw)))
			}
		}
	}
	return out
}

func quotable(p *ast.ParamExp) bool {
	if analysis.IsName(p.Name) {
		return !strings.Contains(p.Op, "[@]") && !strings.Contains(p.Op, "[*]")
	}
	return len(p.Name) == 1 && p.Name[0] >= '1' && p.Name[0] <= '9'
}

// backgroundJobs reports jobs started with `&` that write the same path as
// another job, and jobs that are never waited for.
func backgroundJobs(script *ast.Script) []analysis.Transformation {
	chains := analysis.ShellChains(script)
	sort.SliceStable(chains, func(i, j int) bool { return chains[i].Span.Start < chains[j].Span.Start })

	var out []analysis.Transformation
	var pending []analysis.Chain
	writers := map[string]bool{}
	for _, ch := range chains {
		if isWait(ch) {
			pending = pending[:0]
			clear(writers)
			continue
		}
		if !ch.Background {
			continue
		}
		pending = append(pending, ch)
		for _, cmd := range analysis.Commands([]analysis.Chain{ch}) {
			for _, w := range cmd.Writes() {
				if strings.ContainsAny(w.Raw, "$`") || w.Text == "/dev/null" {
					continue
				}
				if writers[w.Text] {
					out = append(out, analysis.New(analysis.KindBackgroundSharedOutput, w.Span, w.Raw,
						"several background jobs write `"+w.Text+"`"))
				}
				writers[w.Text] = true
			}
		}
	}
	for _, ch := range pending {
		out = append(out, analysis.New(analysis.KindBackgroundNoWait, ch.Span, chainText(ch),
			"background job is not followed by `wait`"))
	}
	return out
}

func isWait(ch analysis.Chain) bool {
	for _, c := range ch.Cmds {
		if c.Name() == "wait" {
			return true
		}
	}
	return false
}

func chainText(ch analysis.Chain) string {
	parts := make([]string, 0, len(ch.Cmds))
	for _, c := range ch.Cmds {
		parts = append(parts, c.Text())
	}
	return strings.Join(parts, " | ")
}

// shellOptions reports which of errexit and pipefail the script enables,
// through `set` or shebang arguments.
func shellOptions(script *ast.Script) (errexit, pipefail bool) {
	if f := strings.Fields(script.Shebang); len(f) > 1 {
		for _, a := range f[1:] {
			if analysis.IsShortCluster(a) && strings.ContainsRune(a, 'e') {
				errexit = true
			}
		}
	}
	for _, c := range ast.Commands(script) {
		if c.Name() != "set" {
			continue
		}
		for _, w := range c.Args[1:] {
			a := w.Unquoted()
			switch {
			case a == "errexit":
				errexit = true
			case a == "pipefail":
				pipefail = true
			case analysis.IsShortCluster(a) && strings.ContainsRune(a, 'e'):
				errexit = true
			}
		}
	}
	return errexit, pipefail
}

func errorHandling(script *ast.Script) []analysis.Transformation {
	var out []analysis.Transformation
	errexit, pipefail := shellOptions(script)
	commands := ast.Commands(script)
	if len(commands) == 0 {
		return nil
	}
	if !errexit {
		span := script.ShebangSpan
		if script.Shebang == "" {
			span = commands[0].Span
		}
		out = append(out, analysis.New(analysis.KindNoErrexit, span, script.Shebang,
			"the script does not stop on errors"))
		for _, ch := range analysis.ShellChains(script) {
			if len(ch.Cmds) == 1 && ch.Cmds[0].Name() == "cd" && !ch.Background {
				cmd := ch.Cmds[0]
				out = append(out, analysis.New(analysis.KindMaskedFailure, cmd.Span, cmd.Text(),
					"a failed `cd` is ignored and later commands run in the wrong directory").
					Suggest("write `%s || exit 1`", cmd.Text()))
			}
		}
	}
	if !pipefail {
		ast.Walk(script, func(n ast.Node) bool {
			if p, ok := n.(*ast.Pipeline); ok && len(p.Cmds) > 1 && !pipefail {
				out = append(out, analysis.New(analysis.KindNoPipefail, p.Span, "",
					"failures before the last command of this pipeline are ignored"))
				pipefail = true
			}
			return true
		})
	}
	return out
}

// syntaxBashisms reports bash-only syntax the command views cannot see.
func syntaxBashisms(script *ast.Script) []analysis.Transformation {
	var out []analysis.Transformation
	ast.Walk(script, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.TestClause:
			out = append(out, analysis.New(analysis.KindDoubleBracket, n.Span, "[[ ]]", "`[[ ]]` is a bash extension"))
		case *ast.ArithCmd:
			out = append(out, analysis.New(analysis.KindArithmetic, n.Span, "(("+n.Expr+"))", "`(( ))` is a bash extension"))
		case *ast.ArithFor:
			out = append(out, analysis.New(analysis.KindArithmetic, n.Span, "for ((...))", "C-style `for` loops are a bash extension"))
		case *ast.Function:
			if n.Keyword {
				out = append(out, analysis.New(analysis.KindFunctionKeyword, n.Span, "function "+n.Name,
					"`function "+n.Name+"` uses the bash keyword form"))
			}
		}
		return true
	})
	ast.EachWord(script, func(w *ast.Word) {
		eachArith(w.Parts, func(a *ast.ArithExp) {
			if analysis.BashArith(a.Expr) {
				out = append(out, analysis.New(analysis.KindArithmetic, a.Span, "$(("+a.Expr+"))",
					"`$(("+a.Expr+"))` uses an operator POSIX arithmetic lacks"))
			}
		})
	})
	return out
}

// eachArith visits arithmetic expansions, including those nested in double
// quotes and command substitutions.
func eachArith(parts []ast.WordPart, fn func(*ast.ArithExp)) {
	for _, p := range parts {
		switch n := p.(type) {
		case *ast.ArithExp:
			fn(n)
		case *ast.DblQuoted:
			eachArith(n.Parts, fn)
		case *ast.CmdSubst:
			ast.EachWord(&ast.Script{Stmts: n.Stmts}, func(w *ast.Word) { eachArith(w.Parts, fn) })
		}
	}
}

var blocksShebang = map[analysis.Kind]bool{
	analysis.KindDoubleBracket:   true,
	analysis.KindArithmetic:      true,
	analysis.KindSource:          true,
	analysis.KindDeclare:         true,
	analysis.KindEchoFlags:       true,
	analysis.KindDoubleEquals:    true,
	analysis.KindFunctionKeyword: true,
}

// posixShebang offers `#!/bin/sh` for a bash/zsh/ksh script that uses no
// feature of those shells.
func posixShebang(script *ast.Script, found []analysis.Transformation) (analysis.Transformation, bool) {
	sb := script.Shebang
	if sb == "" || !strings.HasPrefix(sb, "#!") {
		return analysis.Transformation{}, false
	}
	interp := strings.Fields(strings.TrimPrefix(sb, "#!"))
	if len(interp) == 0 {
		return analysis.Transformation{}, false
	}
	name := interp[0]
	if strings.HasSuffix(name, "/env") && len(interp) > 1 {
		name = interp[1]
	} else if len(interp) > 1 {
		// options such as `-e` would be lost
		return analysis.Transformation{}, false
	}
	switch name[strings.LastIndexByte(name, '/')+1:] {
	case "bash", "zsh", "ksh":
	default:
		return analysis.Transformation{}, false
	}
	for _, t := range found {
		if blocksShebang[t.Kind] {
			return analysis.Transformation{}, false
		}
	}
	if hasBashSyntax(script) {
		return analysis.Transformation{}, false
	}
	t := analysis.New(analysis.KindNonPosixShebang, script.ShebangSpan, sb,
		"`"+sb+"` requests a non-POSIX shell the script does not need")
	return t.WithFix(fix.ReplaceSpan(script.ShebangSpan, "#!/bin/sh", sb)), true
}

var bashBuiltins = map[string]bool{
	"shopt": true, "pushd": true, "popd": true, "mapfile": true, "readarray": true,
	"declare": true, "typeset": true, "let": true, "source": true, "select": true,
	"complete": true, "compgen": true, "disown": true, "caller": true, "dirs": true,
	"coproc": true, "builtin": true, "enable": true, "bind": true, "history": true,
}

// bashVars are parameters only bash assigns; under sh they expand to "".
var bashVars = map[string]bool{
	"RANDOM": true, "SRANDOM": true, "SECONDS": true, "EPOCHSECONDS": true, "EPOCHREALTIME": true,
	"FUNCNAME": true, "PIPESTATUS": true, "REPLY": true, "HOSTNAME": true, "HOSTTYPE": true,
	"OSTYPE": true, "MACHTYPE": true, "UID": true, "EUID": true, "GROUPS": true, "DIRSTACK": true,
	"SHLVL": true, "HISTFILE": true, "READLINE_LINE": true, "COPROC": true,
}

// braceExpansion matches `{a,b}` and `{1..3}` in unquoted text.
var braceExpansion = regexp.MustCompile(`\{[^{}\s]*(,|\.\.)[^{}\s]*\}`)

// hasBashSyntax looks for features that only exist in bash-like shells.
func hasBashSyntax(script *ast.Script) bool {
	found := false
	ast.Walk(script, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Pipeline:
			found = found || slices.Contains(n.Ops, "|&")
		case *ast.Command:
			if bashBuiltins[n.Name()] || bashFlags(n) {
				found = true
			}
			for _, a := range n.Assigns {
				if a.Array != nil || a.Append {
					found = true
				}
			}
			for _, r := range n.Redirs {
				if bashRedirect(r) {
					found = true
				}
			}
			if n.Name() == "set" {
				for _, w := range n.Args[1:] {
					if w.Unquoted() == "pipefail" {
						found = true
					}
				}
			}
		case *ast.For:
			found = found || n.Select
		case *ast.TestClause, *ast.ArithCmd, *ast.ArithFor:
			found = true
		case *ast.Function:
			found = found || n.Keyword
		case *ast.If:
			found = found || redirsBash(n.Redirs)
		case *ast.While:
			found = found || redirsBash(n.Redirs)
		case *ast.Group:
			found = found || redirsBash(n.Redirs)
		case *ast.Subshell:
			found = found || redirsBash(n.Redirs)
		case *ast.Case:
			for _, it := range n.Items {
				if it.Term != ";;" && it.Term != "" {
					found = true
				}
			}
		}
		return !found
	})
	if found {
		return true
	}
	ast.EachWord(script, func(w *ast.Word) {
		if !found && (bashWord(w.Parts) || braceExpansion.MatchString(unquotedText(w.Parts))) {
			found = true
		}
	})
	return found
}

// bashFlags reports POSIX builtins called with bash-only options:
// `read -a`, `printf -v`, `wait -n` and `trap ... ERR`.
func bashFlags(c *ast.Command) bool {
	if len(c.Args) == 0 {
		return false
	}
	args := c.Args[1:]
	switch c.Name() {
	case "read":
		for _, w := range args {
			a := w.Unquoted()
			if !strings.HasPrefix(a, "-") || a == "--" {
				break
			}
			if strings.Trim(a, "-r") != "" {
				return true
			}
		}
		// `read` без имени пишет в REPLY
		for _, w := range args {
			if !strings.HasPrefix(w.Unquoted(), "-") {
				return false
			}
		}
		return true
	case "printf":
		return len(args) > 0 && args[0].Unquoted() == "-v"
	case "wait":
		return len(args) > 0 && (args[0].Unquoted() == "-n" || args[0].Unquoted() == "-f")
	case "trap":
		for _, w := range args {
			switch w.Unquoted() {
			case "ERR", "RETURN", "DEBUG":
				return true
			}
		}
	}
	return false
}

// unquotedText joins the unquoted literal parts of a word; every other part
// becomes a single 'x'.
func unquotedText(parts []ast.WordPart) string {
	var b strings.Builder
	for _, p := range parts {
		if l, ok := p.(*ast.Lit); ok {
			b.WriteString(l.Value)
			continue
		}
		b.WriteByte('x')
	}
	return b.String()
}

func redirsBash(rs []*ast.Redirect) bool {
	for _, r := range rs {
		if bashRedirect(r) {
			return true
		}
	}
	return false
}

func bashRedirect(r *ast.Redirect) bool {
	switch r.Op {
	case "&>", "&>>", "<<<":
		return true
	}
	return false
}

func bashWord(parts []ast.WordPart) bool {
	for _, p := range parts {
		switch n := p.(type) {
		case *ast.SglQuoted:
			if n.Dollar {
				return true
			}
		case *ast.DblQuoted:
			if bashWord(n.Parts) {
				return true
			}
		case *ast.ParamExp:
			if bashParam(n) || bashVars[n.Name] || strings.HasPrefix(n.Name, "BASH") {
				return true
			}
		case *ast.ArithExp:
			if analysis.BashArith(n.Expr) {
				return true
			}
		case *ast.CmdSubst:
			if n.ProcSubst != "" {
				return true
			}
			if hasBashSyntax(&ast.Script{Stmts: n.Stmts}) {
				return true
			}
		}
	}
	return false
}

// bashParam reports expansions such as ${x//a/b}, ${x:1:2}, ${x^^} and ${a[0]}.
func bashParam(p *ast.ParamExp) bool {
	if !p.Braced || p.Op == "" {
		return false
	}
	op := p.Op
	switch {
	case strings.HasPrefix(op, "!"):
		// ${!name}, ${!prefix*}
		return true
	case strings.HasPrefix(op, "["):
		return true
	case strings.HasPrefix(op, "/"), strings.HasPrefix(op, "^"), strings.HasPrefix(op, ","), strings.HasPrefix(op, "@"):
		return true
	case strings.HasPrefix(op, ":") && len(op) > 1 && strings.IndexByte("-=?+", op[1]) < 0:
		return true
	}
	return false
}
