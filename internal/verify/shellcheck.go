package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"shellpure/internal/diag"
)

// DefaultTimeout bounds one external linter run.
const DefaultTimeout = 10 * time.Second

// ShellCheck runs the shellcheck binary on purified scripts.
type ShellCheck struct {
	// Path is the binary; empty means "shellcheck" from $PATH.
	Path string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Shell is the dialect passed to --shell; empty means the one named by
	// the script's shebang, "sh" without one.
	Shell string
}

// Finding is one entry of shellcheck's JSON output.
type Finding struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	EndLine   int    `json:"endLine"`
	Column    int    `json:"column"`
	EndColumn int    `json:"endColumn"`
	Level     string `json:"level"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
}

// Run checks text and returns shellcheck's findings. A missing binary
// returns ErrLinterUnavailable; a timeout returns context.DeadlineExceeded.
func (c ShellCheck) Run(ctx context.Context, text string) ([]Finding, error) {
	path := c.Path
	if path == "" {
		path = "shellcheck"
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLinterUnavailable, err)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	shell := c.Shell
	if shell == "" {
		shell = Dialect(text)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "--format=json", "--shell="+shell, "-")
	cmd.Stdin = bytes.NewBufferString(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("shellcheck: %w", ctxErr)
	}
	// exit status 1 only means "findings present"
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 1) {
		return nil, fmt.Errorf("%w: %w: %s", ErrLinterUnavailable, err, bytes.TrimSpace(stderr.Bytes()))
	}
	var out []Finding
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%w: bad JSON output: %w", ErrLinterUnavailable, err)
	}
	return out, nil
}

// Dialect maps the interpreter on text's shebang line to a shellcheck
// --shell value.
func Dialect(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	if !strings.HasPrefix(line, "#!") {
		return "sh"
	}
	f := strings.Fields(strings.TrimPrefix(line, "#!"))
	if len(f) == 0 {
		return "sh"
	}
	name := path.Base(f[0])
	if name == "env" {
		for _, a := range f[1:] {
			if !strings.HasPrefix(a, "-") && !strings.Contains(a, "=") {
				name = path.Base(a)
				break
			}
		}
	}
	switch name {
	case "bash", "zsh":
		// zsh shellcheck не поддерживает, bash ближе всего
		return "bash"
	case "ksh", "mksh", "ksh93", "pdksh":
		return "ksh"
	case "dash":
		return "dash"
	}
	return "sh"
}

// Diagnose runs shellcheck and converts its findings to VERIFY002
// diagnostics. Any failure to run becomes a single VERIFY001 warning.
func (c ShellCheck) Diagnose(ctx context.Context, name, text string) []diag.Diagnostic {
	findings, err := c.Run(ctx, text)
	if err != nil {
		return []diag.Diagnostic{Unavailable(name, err)}
	}
	out := make([]diag.Diagnostic, 0, len(findings))
	for _, f := range findings {
		d := diag.New(levelSeverity(f.Level), diag.CodeVerifyExternal,
			fmt.Sprintf("SC%d: %s", f.Code, f.Message),
			"shellcheck reported this on the purified output",
			fmt.Sprintf("see https://www.shellcheck.net/wiki/SC%d", f.Code))
		out = append(out, d.WithLocation(diag.Location{
			File:       name,
			Line:       f.Line,
			Column:     f.Column,
			SourceLine: sourceLine(text, f.Line),
		}))
	}
	return out
}

// Unavailable builds the VERIFY001 warning for a linter that could not run.
func Unavailable(name string, err error) diag.Diagnostic {
	return diag.New(diag.SevWarning, diag.CodeVerifyUnavailable, err.Error(),
		"the external linter cross-check was skipped; shellpure's own findings are complete",
		"install shellcheck, set [verify] shellcheck_path, or raise [verify] timeout").
		WithLocation(diag.Location{File: name})
}

func levelSeverity(level string) diag.Severity {
	switch level {
	case "error":
		return diag.SevError
	case "warning":
		return diag.SevWarning
	}
	return diag.SevInfo
}
