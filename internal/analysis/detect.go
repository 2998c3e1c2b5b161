package analysis

import (
	"regexp"
	"strings"

	"shellpure/internal/fix"
	"shellpure/internal/source"
)

// The Check* functions hold the detectors shared by the shell and Makefile
// passes. They see commands through Chain, so they work the same on a shell
// AST and on recipe text; lang only changes how `$` expansions are spelled.

var shells = map[string]bool{"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true, "ash": true}

// CheckSecurity reports eval, download-and-run pipelines, TLS bypass,
// hard-coded secrets and unterminated find -exec.
func CheckSecurity(chains []Chain) []Transformation {
	var out []Transformation
	for _, ch := range chains {
		for i := range ch.Cmds {
			cmd := &ch.Cmds[i]
			if cmd.Compound {
				continue
			}
			switch cmd.Name() {
			case "eval":
				out = append(out, New(KindEval, cmd.Span, cmd.Text(),
					"`eval` executes its arguments as shell code"))
			case "curl", "wget", "fetch":
				if cmd.Op == "|" && i+1 < len(ch.Cmds) && shells[ch.Cmds[i+1].Name()] {
					next := &ch.Cmds[i+1]
					out = append(out, New(KindCurlPipeShell, cmd.Span.Cover(next.Span), cmd.Text()+" | "+next.Text(),
						"output of `"+cmd.Name()+"` is piped into `"+next.Name()+"`"))
				}
			case "find":
				if t, ok := findExec(cmd); ok {
					out = append(out, t)
				}
			}
			out = append(out, tlsBypass(cmd)...)
			out = append(out, secrets(cmd)...)
		}
	}
	return out
}

func tlsBypass(cmd *Command) []Transformation {
	var out []Transformation
	flag := func(a Arg) {
		out = append(out, New(KindTLSBypass, a.Span, a.Raw, "`"+a.Text+"` disables TLS certificate verification"))
	}
	for _, a := range cmd.Assigns {
		if a.Name == "GIT_SSL_NO_VERIFY" || (a.Name == "NODE_TLS_REJECT_UNAUTHORIZED" && a.Value.Text == "0") {
			out = append(out, New(KindTLSBypass, a.Span, a.Name+"="+a.Value.Raw,
				"`"+a.Name+"` disables TLS certificate verification"))
		}
	}
	switch cmd.Name() {
	case "curl":
		for _, a := range cmd.Params() {
			if a.Text == "--insecure" || IsShortCluster(a.Text) && strings.ContainsRune(a.Text, 'k') {
				flag(a)
			}
		}
	case "wget":
		for _, a := range cmd.Params() {
			if a.Text == "--no-check-certificate" {
				flag(a)
			}
		}
	case "git", "npm", "yarn", "pip", "pip3":
		for _, a := range cmd.Params() {
			lower := strings.ToLower(a.Text)
			if strings.Contains(lower, "sslverify=false") || a.Text == "--trusted-host" || a.Text == "strict-ssl" {
				flag(a)
			}
		}
	}
	return out
}

var (
	secretName  = regexp.MustCompile(`(?i)(passw(or)?d|secret|token|api_?key|access_?key|private_?key|credential)`)
	secretToken = regexp.MustCompile(`AKIA[0-9A-Z]{16}|gh[pousr]_[A-Za-z0-9]{36}|xox[abpr]-[A-Za-z0-9-]{10,}|sk_live_[0-9A-Za-z]{24,}|-----BEGIN [A-Z ]*PRIVATE KEY-----`)
)

// IsSecretAssignment reports whether NAME=value stores a literal credential.
func IsSecretAssignment(name, value string) bool {
	if !secretName.MatchString(name) {
		return false
	}
	v := strings.TrimSpace(value)
	return len(v) >= 4 && !strings.ContainsAny(v, "$`")
}

// SecretToken returns the offsets of a credential-shaped token in s.
func SecretToken(s string) (start, end int, ok bool) {
	loc := secretToken.FindStringIndex(s)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

func secrets(cmd *Command) []Transformation {
	var out []Transformation
	for _, a := range cmd.Assigns {
		if IsSecretAssignment(a.Name, a.Value.Text) {
			out = append(out, New(KindHardcodedSecret, a.Span, a.Name+"=…",
				"`"+a.Name+"` is assigned a literal credential"))
		}
	}
	params := cmd.Params()
	for _, a := range cmd.Args {
		if start, end, ok := SecretToken(a.Raw); ok {
			out = append(out, New(KindHardcodedSecret, a.Span.Sub(start, end), "…",
				"argument contains a credential-shaped token"))
			continue
		}
		if name, value, ok := strings.Cut(a.Text, "="); ok && strings.HasPrefix(name, "--") && IsSecretAssignment(name[2:], value) {
			out = append(out, New(KindHardcodedSecret, a.Span, name+"=…",
				"`"+name+"` is given a literal credential"))
		}
	}
	if n := cmd.Name(); n == "curl" || n == "wget" {
		for i, a := range params {
			if (a.Text == "-u" || a.Text == "--user") && i+1 < len(params) {
				v := params[i+1].Text
				if user, pass, ok := strings.Cut(v, ":"); ok && user != "" && pass != "" && !strings.ContainsAny(pass, "$`") {
					out = append(out, New(KindHardcodedSecret, params[i+1].Span, user+":…",
						"credentials are passed on the command line"))
				}
			}
		}
	}
	return out
}

func findExec(cmd *Command) (Transformation, bool) {
	params := cmd.Params()
	for i, a := range params {
		if a.Text != "-exec" && a.Text != "-execdir" && a.Text != "-ok" {
			continue
		}
		for _, b := range params[i+1:] {
			if b.Text == ";" || b.Text == "+" || b.Text == "{}+" {
				return Transformation{}, false
			}
		}
		return New(KindFindExec, cmd.Span, cmd.Text(),
			"`find "+a.Text+"` has no `\\;` or `+` terminator"), true
	}
	return Transformation{}, false
}

// CheckIdempotency reports mkdir, rm and ln invocations that fail on a
// second run. All three come with a flag-insertion fix unless the exit
// status is tested: `if mkdir "$lock"` relies on the failure.
func CheckIdempotency(chains []Chain) []Transformation {
	var out []Transformation
	for _, cmd := range Commands(chains) {
		name, ok := cmd.NameArg()
		if !ok || len(cmd.Operands()) == 0 {
			continue
		}
		var t Transformation
		switch cmd.Name() {
		case "mkdir":
			if cmd.HasFlag('p', "parents") {
				continue
			}
			t = New(KindMkdirNoParents, cmd.Span, cmd.Text(), "`mkdir` without `-p` fails if the directory exists").
				WithFix(fix.InsertText(endOf(name.Span), " -p"))
		case "rm":
			if cmd.HasFlag('f', "force") || cmd.HasFlag('i', "interactive") {
				continue
			}
			t = New(KindRmNoForce, cmd.Span, cmd.Text(), "`rm` without `-f` fails if the file is missing").
				WithFix(addShortFlag(cmd, name, 'f', "rRdvI"))
		case "ln":
			if cmd.HasFlag('f', "force") {
				continue
			}
			t = New(KindLnNoForce, cmd.Span, cmd.Text(), "`ln` without `-f` fails if the link exists")
			if cmd.HasFlag('s', "symbolic") {
				t = t.Suggest("use `ln -sf`")
			}
			t = t.WithFix(addShortFlag(cmd, name, 'f', "snvLP"))
		default:
			continue
		}
		if cmd.StatusTested() {
			t.Safe, t.Fix = false, nil
			t = t.Suggest("the exit status is tested; decide whether a second run should take the other branch")
		}
		out = append(out, t)
	}
	return out
}

func endOf(s source.Span) source.Span {
	return source.Span{File: s.File, Start: s.End, End: s.End}
}

// addShortFlag merges flag into a leading option cluster made only of
// mergeable letters ("-s" becomes "-sf"), or inserts " -flag" after the
// command name.
func addShortFlag(cmd *Command, name Arg, flag byte, mergeable string) fix.Edit {
	params := cmd.Params()
	if len(params) > 0 {
		p := params[0]
		if !p.Quoted && IsShortCluster(p.Raw) && strings.Trim(p.Raw[1:], mergeable) == "" {
			return fix.InsertText(endOf(p.Span), string(flag))
		}
	}
	return fix.InsertText(endOf(name.Span), " -"+string(flag))
}

// CheckDeterminism reports time, randomness, PID, host and temp-name
// sources. lang selects how expansions are spelled: shell words are read
// from the AST, recipe text is scanned for `$$NAME`.
func CheckDeterminism(chains []Chain, lang Language) []Transformation {
	var out []Transformation
	for _, cmd := range Commands(chains) {
		switch cmd.Name() {
		case "date":
			if !fixedDate(cmd) {
				out = append(out, New(KindTimestamp, cmd.Span, cmd.Text(), "`date` reads the current time"))
			}
		case "hostname":
			out = append(out, New(KindHostname, cmd.Span, cmd.Text(), "`hostname` depends on the build machine"))
		case "uname":
			if cmd.HasFlag('n', "nodename") {
				out = append(out, New(KindHostname, cmd.Span, cmd.Text(), "`uname -n` depends on the build machine"))
			}
		case "mktemp":
			out = append(out, New(KindMktemp, cmd.Span, cmd.Text(), "`mktemp` creates a different name on every run"))
		case "git":
			if t, ok := gitDate(cmd); ok {
				out = append(out, t)
			}
		}
		for _, a := range cmd.Words() {
			out = append(out, expansionSources(a, lang)...)
			if IsEpochLiteral(a.Text) {
				out = append(out, New(KindEpochLiteral, a.Span, a.Raw, "`"+a.Text+"` looks like a hard-coded Unix timestamp"))
			}
		}
	}
	return out
}

func fixedDate(cmd *Command) bool {
	if strings.Contains(cmd.Text(), "SOURCE_DATE_EPOCH") {
		return true
	}
	for _, a := range cmd.Params() {
		if a.Text == "-d" || a.Text == "-r" || strings.HasPrefix(a.Text, "--date") || strings.HasPrefix(a.Text, "--reference") {
			return true
		}
	}
	return false
}

var gitDateFormats = []string{"%ad", "%cd", "%ai", "%ci", "%ar", "%cr", "%aD", "%cD", "--date", "--since", "--until", "--relative-date"}

func gitDate(cmd *Command) (Transformation, bool) {
	ops := cmd.Operands()
	if len(ops) == 0 || ops[0].Text != "log" && ops[0].Text != "show" {
		return Transformation{}, false
	}
	for _, a := range cmd.Params() {
		for _, f := range gitDateFormats {
			if strings.Contains(a.Text, f) {
				return New(KindGitDate, cmd.Span, cmd.Text(), "`git "+ops[0].Text+"` formats dates in the local time zone"), true
			}
		}
	}
	return Transformation{}, false
}

var epochLiteral = regexp.MustCompile(`(?:^|[=@:])1[5-9][0-9]{8}$`)

// IsEpochLiteral reports whether s ends in a 10-digit Unix timestamp from
// 2017 to 2033, alone or after `=`, `@` or `:`.
func IsEpochLiteral(s string) bool {
	return epochLiteral.MatchString(s)
}

// expansionSources finds $RANDOM, $$ and $HOSTNAME in a word. Shell words
// use their parsed expansions; recipe text is searched for the `$$` forms.
func expansionSources(a Arg, lang Language) []Transformation {
	var out []Transformation
	add := func(name string, span source.Span, raw string) {
		switch name {
		case "RANDOM", "SRANDOM":
			out = append(out, New(KindRandom, span, raw, "`$"+name+"` changes on every run"))
		case "$", "BASHPID":
			out = append(out, New(KindProcessID, span, raw, "`"+raw+"` expands to the process id"))
		case "HOSTNAME":
			out = append(out, New(KindHostname, span, raw, "`$HOSTNAME` depends on the build machine"))
		}
	}
	if a.Word != nil {
		for _, p := range a.Word.Params() {
			add(p.Name, p.Span, p.Raw)
		}
		return out
	}
	if lang != LangMake {
		return nil
	}
	raw := a.Raw
	for i := 0; i+1 < len(raw); i++ {
		if raw[i] != '$' || raw[i+1] != '$' {
			continue
		}
		rest := raw[i+2:]
		switch {
		case strings.HasPrefix(rest, "$$"):
			add("$", a.Span.Sub(i, i+4), "$$$$")
			i += 3
		case strings.HasPrefix(rest, "{"):
			if end := strings.IndexByte(rest, '}'); end > 0 {
				name := rest[1:end]
				add(name, a.Span.Sub(i, i+3+end), raw[i:i+3+end])
			}
			i++
		default:
			n := 0
			for n < len(rest) && IsName(rest[:n+1]) {
				n++
			}
			if n > 0 {
				add(rest[:n], a.Span.Sub(i, i+2+n), raw[i:i+2+n])
			}
			i++
		}
	}
	return out
}

var stateChanging = map[string]bool{
	"cd": true, "mkdir": true, "cp": true, "mv": true, "rm": true, "ln": true,
	"install": true, "tar": true, "touch": true, "chmod": true, "chown": true,
	"rsync": true, "pushd": true,
}

// CheckMaskedFailures reports state-changing commands followed by `;`,
// whose failure is ignored by the rest of the line.
func CheckMaskedFailures(chains []Chain) []Transformation {
	var out []Transformation
	for _, ch := range chains {
		for i := range ch.Cmds {
			cmd := &ch.Cmds[i]
			if cmd.Compound || cmd.Op != ";" || i+1 >= len(ch.Cmds) || !stateChanging[cmd.Name()] {
				continue
			}
			out = append(out, New(KindMaskedFailure, cmd.Span, cmd.Text(),
				"failure of `"+cmd.Name()+"` is masked by `;`").Suggest("replace `;` with `&&`, or append `|| exit 1`"))
		}
	}
	return out
}

// BashArith reports arithmetic that uses bash-only operators: `**`, `++`,
// `--` and the comma operator. Plain `$(( ))` is POSIX.
func BashArith(expr string) bool {
	return strings.Contains(expr, "**") || strings.Contains(expr, "++") ||
		strings.Contains(expr, "--") || strings.Contains(expr, ",")
}

var posixTools = map[string]bool{
	"cp": true, "mv": true, "rm": true, "ls": true, "mkdir": true, "ln": true,
	"grep": true, "sed": true, "sort": true, "head": true, "tail": true, "cut": true,
	"tr": true, "touch": true, "chmod": true, "chown": true, "wc": true, "uniq": true,
	"xargs": true, "cat": true, "diff": true, "date": true,
}

// CheckPortability reports commands and options that are missing from a
// POSIX shell or from non-GNU userlands.
func CheckPortability(chains []Chain) []Transformation {
	var out []Transformation
	for _, cmd := range Commands(chains) {
		name, ok := cmd.NameArg()
		if !ok {
			continue
		}
		switch cmd.Name() {
		case "[[":
			out = append(out, New(KindDoubleBracket, cmd.Span, cmd.Text(), "`[[ ]]` is a bash extension"))
		case "let":
			out = append(out, New(KindArithmetic, cmd.Span, cmd.Text(), "`let` is a bash builtin"))
		case "source":
			t := New(KindSource, name.Span, name.Raw, "`source` is not available in POSIX sh")
			if name.Raw == "source" {
				t = t.WithFix(fix.ReplaceSpan(name.Span, ".", "source"))
			}
			out = append(out, t)
		case "declare", "typeset":
			out = append(out, New(KindDeclare, cmd.Span, cmd.Text(), "`"+cmd.Name()+"` is not POSIX"))
		case "sed":
			if cmd.HasFlag('i', "in-place") {
				out = append(out, New(KindSedInPlace, cmd.Span, cmd.Text(), "`sed -i` is not portable between GNU and BSD"))
			}
		case "echo":
			if ps := cmd.Params(); len(ps) > 0 && isEchoFlag(ps[0].Text) {
				out = append(out, New(KindEchoFlags, ps[0].Span, ps[0].Raw, "`echo "+ps[0].Text+"` is not portable"))
			}
		case "uname", "ifconfig":
			out = append(out, New(KindPlatformSpecific, cmd.Span, cmd.Text(), "`"+cmd.Name()+"` output differs between systems"))
		case "[", "test":
			for _, a := range cmd.Params() {
				if a.Text == "==" && !a.Quoted {
					out = append(out, New(KindDoubleEquals, a.Span, a.Raw, "`==` in `"+cmd.Name()+"` is a bash extension"))
				}
			}
		}
		if strings.HasPrefix(name.Text, "((") {
			out = append(out, New(KindArithmetic, cmd.Span, cmd.Text(), "`(( ))` is a bash extension"))
		}
		if posixTools[cmd.Name()] {
			for _, a := range cmd.Params() {
				if a.Text == "--" {
					break
				}
				if strings.HasPrefix(a.Text, "--") && !a.Quoted {
					out = append(out, New(KindLongFlag, a.Span, a.Raw, "`"+cmd.Name()+" "+a.Text+"` is a GNU long option"))
					break
				}
			}
		}
		for _, a := range cmd.Words() {
			if strings.Contains(a.Text, "/proc/") {
				out = append(out, New(KindPlatformSpecific, a.Span, a.Raw, "/proc exists only on Linux"))
			}
		}
	}
	return out
}

func isEchoFlag(s string) bool {
	switch s {
	case "-e", "-n", "-en", "-ne", "-E":
		return true
	}
	return false
}

var combinable = map[string]bool{"sed": true, "grep": true, "tr": true, "awk": true}

// CheckPerformance reports useless cat, expr arithmetic and pipelines of
// the same filter.
func CheckPerformance(chains []Chain) []Transformation {
	var out []Transformation
	for _, ch := range chains {
		for i := range ch.Cmds {
			cmd := &ch.Cmds[i]
			if cmd.Compound {
				continue
			}
			switch cmd.Name() {
			case "cat":
				if cmd.Op == "|" && len(cmd.Params()) == 1 && len(cmd.Operands()) == 1 && len(cmd.Redirs) == 0 {
					out = append(out, New(KindUselessCat, cmd.Span, cmd.Text(), "`cat` only feeds a single file into a pipe"))
				}
			case "expr":
				out = append(out, New(KindExpr, cmd.Span, cmd.Text(), "`expr` is used for arithmetic"))
			}
			if i > 0 && ch.Cmds[i-1].Op == "|" && combinable[cmd.Name()] && ch.Cmds[i-1].Name() == cmd.Name() &&
				!cmd.HasFlag('v', "invert-match") && !ch.Cmds[i-1].HasFlag('v', "invert-match") {
				prev := &ch.Cmds[i-1]
				out = append(out, New(KindCombinable, prev.Span.Cover(cmd.Span), prev.Text()+" | "+cmd.Text(),
					"two `"+cmd.Name()+"` processes in a row"))
			}
		}
	}
	return out
}

// Dedup drops transformations with the same kind and span as an earlier one.
func Dedup(ts []Transformation) []Transformation {
	type key struct {
		kind Kind
		span source.Span
	}
	seen := make(map[key]bool, len(ts))
	out := ts[:0]
	for _, t := range ts {
		k := key{t.Kind, t.Span}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}
