package diag

import (
	"strings"
	"unicode"
)

// Code is a stable diagnostic identifier such as SEC001 or MAKE013.
type Code string

// Codes owned by the tool itself rather than by a lint rule.
const (
	UnknownCode Code = ""

	// CodeShellParse reports a Bash/POSIX script that could not be parsed.
	CodeShellParse Code = "SH000"
	// CodeMakeParse reports a Makefile that could not be parsed.
	CodeMakeParse Code = "MAKE000"
	// CodeIO reports an unreadable input file.
	CodeIO Code = "IO001"

	// CodeInternalAnalysis is a pass that crashed; the other passes still ran.
	CodeInternalAnalysis Code = "INTERNAL001"
	// CodeInternalVerify is a fix that failed post-fix verification and was dropped.
	CodeInternalVerify Code = "INTERNAL002"

	// CodeVerifyUnavailable means the external linter could not be run.
	CodeVerifyUnavailable Code = "VERIFY001"
	// CodeVerifyExternal wraps one finding reported by the external linter.
	CodeVerifyExternal Code = "VERIFY002"
	// CodeVerifySyntax is a purified script rejected by the cross-check parser.
	CodeVerifySyntax Code = "VERIFY003"
)

var codeDescription = map[Code]string{
	CodeShellParse:        "the script could not be parsed, no rule was run on it",
	CodeMakeParse:         "the Makefile could not be parsed, no rule was run on it",
	CodeIO:                "the input file could not be read",
	CodeInternalAnalysis:  "an analysis pass failed internally; its findings are missing from this report",
	CodeInternalVerify:    "an automatic fix failed verification and was not applied",
	CodeVerifyUnavailable: "the external linter cross-check was skipped",
	CodeVerifyExternal:    "finding reported by the external linter",
	CodeVerifySyntax:      "the purified script was rejected by the cross-check parser",
}

// Description returns the known description of the code or "".
func (c Code) Description() string {
	return codeDescription[c]
}

// ID returns the string form.
func (c Code) ID() string {
	if c == UnknownCode {
		return "E0000"
	}
	return string(c)
}

// Prefix returns the alphabetic family of the code ("SEC", "MAKE", "SC", ...).
func (c Code) Prefix() string {
	return strings.TrimRightFunc(string(c), unicode.IsDigit)
}

// IsInternal reports whether the code marks a tool defect rather than a user issue.
func (c Code) IsInternal() bool {
	return c.Prefix() == "INTERNAL"
}
