package analysis

import (
	"path"
	"strings"

	"shellpure/internal/shell/ast"
	"shellpure/internal/source"
)

// Arg is one word of a command as the detectors see it.
type Arg struct {
	// Text is the value with quotes removed and expansions kept as written.
	Text   string
	Raw    string
	Span   source.Span
	Quoted bool
	// Word is the shell word behind the argument; nil for Makefile recipes.
	Word *ast.Word
}

// Redirect is an output or input redirection of a command.
type Redirect struct {
	N      string
	Op     string
	Target Arg
}

// Assign is a `NAME=value` prefix of a command.
type Assign struct {
	Name  string
	Value Arg
	Span  source.Span
}

// Command is a simple command inside a chain. Op joins it to the next
// command: "|", "&&", "||", ";", "&", or "" for the last one.
type Command struct {
	Assigns []Assign
	Args    []Arg
	Redirs  []Redirect
	Op      string
	// Compound marks a placeholder for an if/while/case/... statement.
	Compound bool
	// Tested is set when the exit status decides what runs next: an
	// if/while/until condition, the left side of && or ||, or after `!`.
	Tested bool
	Span   source.Span
}

// StatusTested reports whether the command's exit status is consumed by
// control flow rather than by errexit.
func (c *Command) StatusTested() bool {
	return c.Tested || c.Op == "&&" || c.Op == "||"
}

// Chain is one statement: commands joined by pipes and list operators.
type Chain struct {
	Cmds       []Command
	Background bool
	Span       source.Span
}

var wrappers = map[string]bool{
	"sudo": true, "command": true, "builtin": true, "exec": true,
	"nohup": true, "time": true, "env": true,
}

// NameIndex returns the index of the effective command word, skipping
// wrappers such as sudo and env (with their flags and assignments), or -1.
func (c *Command) NameIndex() int {
	for i := 0; i < len(c.Args); i++ {
		name := path.Base(c.Args[i].Text)
		if !wrappers[name] {
			return i
		}
		for i+1 < len(c.Args) {
			next := c.Args[i+1].Text
			if strings.HasPrefix(next, "-") || (name == "env" && strings.Contains(next, "=")) {
				i++
				continue
			}
			break
		}
	}
	return -1
}

// Name returns the base name of the effective command, or "".
func (c *Command) Name() string {
	i := c.NameIndex()
	if i < 0 {
		return ""
	}
	return path.Base(c.Args[i].Text)
}

// NameArg returns the effective command word.
func (c *Command) NameArg() (Arg, bool) {
	i := c.NameIndex()
	if i < 0 {
		return Arg{}, false
	}
	return c.Args[i], true
}

// Params returns the words after the command name.
func (c *Command) Params() []Arg {
	i := c.NameIndex()
	if i < 0 {
		return nil
	}
	return c.Args[i+1:]
}

// Operands returns the parameters that are not options. Everything after
// "--" is an operand.
func (c *Command) Operands() []Arg {
	var out []Arg
	opts := true
	for _, a := range c.Params() {
		if opts && a.Text == "--" {
			opts = false
			continue
		}
		if opts && strings.HasPrefix(a.Text, "-") && len(a.Text) > 1 && !a.Quoted {
			continue
		}
		out = append(out, a)
	}
	return out
}

// IsShortCluster reports whether s is a group of short options like "-rf".
func IsShortCluster(s string) bool {
	if len(s) < 2 || s[0] != '-' || s[1] == '-' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

// HasFlag reports whether the command carries the short option short
// (possibly inside a cluster) or the long option --long. Zero values skip
// either form.
func (c *Command) HasFlag(short byte, long string) bool {
	for _, a := range c.Params() {
		t := a.Text
		if t == "--" {
			return false
		}
		if short != 0 && IsShortCluster(t) && strings.IndexByte(t[1:], short) >= 0 {
			return true
		}
		if long != "" && (t == "--"+long || strings.HasPrefix(t, "--"+long+"=")) {
			return true
		}
	}
	return false
}

// HasArg reports whether any parameter's text equals s.
func (c *Command) HasArg(s string) bool {
	for _, a := range c.Params() {
		if a.Text == s {
			return true
		}
	}
	return false
}

// Text renders the command back from its raw words.
func (c *Command) Text() string {
	parts := make([]string, 0, len(c.Assigns)+len(c.Args))
	for _, a := range c.Assigns {
		parts = append(parts, a.Name+"="+a.Value.Raw)
	}
	for _, a := range c.Args {
		parts = append(parts, a.Raw)
	}
	return strings.Join(parts, " ")
}

// Writes returns the redirect targets the command writes to.
func (c *Command) Writes() []Arg {
	var out []Arg
	for _, r := range c.Redirs {
		switch r.Op {
		case ">", ">>", ">|", "&>", "&>>":
			if r.Target.Raw != "" {
				out = append(out, r.Target)
			}
		}
	}
	return out
}

// Words returns every argument, assignment value and redirect target.
func (c *Command) Words() []Arg {
	out := make([]Arg, 0, len(c.Args)+len(c.Assigns)+len(c.Redirs))
	for _, a := range c.Assigns {
		out = append(out, a.Value)
	}
	out = append(out, c.Args...)
	for _, r := range c.Redirs {
		out = append(out, r.Target)
	}
	return out
}

// Commands flattens chains into their simple commands.
func Commands(chains []Chain) []*Command {
	var out []*Command
	for i := range chains {
		for j := range chains[i].Cmds {
			if !chains[i].Cmds[j].Compound {
				out = append(out, &chains[i].Cmds[j])
			}
		}
	}
	return out
}
