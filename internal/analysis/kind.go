package analysis

import (
	"strings"

	"shellpure/internal/diag"
)

// Language selects the rule set a finding belongs to.
type Language uint8

const (
	LangShell Language = 1 << iota
	LangMake

	LangBoth = LangShell | LangMake
)

func (l Language) String() string {
	switch l {
	case LangShell:
		return "shell"
	case LangMake:
		return "make"
	case LangBoth:
		return "shell,make"
	}
	return "none"
}

// Has reports whether l includes other.
func (l Language) Has(other Language) bool {
	return l&other != 0
}

// Category groups kinds; its order is the fix priority.
type Category uint8

const (
	CatSecurity Category = iota
	CatIdempotency
	CatReproducibility
	CatParallelSafety
	CatErrorHandling
	CatPortability
	CatPerformance
)

func (c Category) String() string {
	switch c {
	case CatSecurity:
		return "security"
	case CatIdempotency:
		return "idempotency"
	case CatReproducibility:
		return "reproducibility"
	case CatParallelSafety:
		return "parallel-safety"
	case CatErrorHandling:
		return "error-handling"
	case CatPortability:
		return "portability"
	case CatPerformance:
		return "performance"
	}
	return "unknown"
}

// Priority ranks overlapping fixes: security > idempotency > determinism >
// everything else. Lower wins.
func (c Category) Priority() int {
	switch c {
	case CatSecurity:
		return 0
	case CatIdempotency:
		return 1
	case CatReproducibility:
		return 2
	}
	return 3
}

// Kind tags a Transformation.
type Kind uint8

const (
	KindInvalid Kind = iota

	// security
	KindEval
	KindCurlPipeShell
	KindTLSBypass
	KindHardcodedSecret
	KindFindExec
	KindUnquotedVar

	// idempotency
	KindMkdirNoParents
	KindRmNoForce
	KindLnNoForce

	// determinism
	KindTimestamp
	KindRandom
	KindProcessID
	KindHostname
	KindGitDate
	KindMktemp
	KindEpochLiteral

	// make-specific
	KindSelfReference
	KindShellInRecursiveVar
	KindUnsortedWildcard
	KindUnsortedFind
	KindMissingDeleteOnError
	KindIgnoredRecipeError
	KindLiteralMake
	KindSharedOutput
	KindSharedTmpPath
	KindUnquotedRmVar
	KindMissingPhony
	KindCdOwnLine
	KindShellInRecipe

	// shell parallel safety
	KindBackgroundSharedOutput
	KindBackgroundNoWait

	// error handling
	KindMaskedFailure
	KindNoPipefail
	KindNoErrexit

	// portability
	KindDoubleBracket
	KindArithmetic
	KindSource
	KindDeclare
	KindLongFlag
	KindSedInPlace
	KindEchoFlags
	KindPlatformSpecific
	KindDoubleEquals
	KindFunctionKeyword
	KindNonPosixShebang

	// performance
	KindCombinable
	KindUselessCat
	KindExpr

	kindCount
)

// KindInfo is the static metadata of a kind. The rule registry is built
// from this table.
type KindInfo struct {
	Code     diag.Code
	Name     string
	Category Category
	Severity diag.Severity
	Lang     Language
	Fixable  bool
	Summary  string
	Help     string
}

var kindTable = [kindCount]KindInfo{
	KindEval: {"SEC001", "eval", CatSecurity, diag.SevError, LangBoth, false,
		"eval re-parses its arguments as code, so any expanded value can inject commands",
		"avoid `eval`: call the command directly or dispatch with a `case` over known values"},
	KindCurlPipeShell: {"SEC002", "curl-pipe-shell", CatSecurity, diag.SevError, LangBoth, false,
		"piping a download into a shell runs unverified remote code",
		"download to a file, verify its checksum or signature, then run it"},
	KindTLSBypass: {"SEC003", "tls-bypass", CatSecurity, diag.SevWarning, LangBoth, false,
		"disabling certificate verification allows man-in-the-middle tampering",
		"remove the flag and install the CA certificate instead"},
	KindHardcodedSecret: {"SEC004", "hardcoded-secret", CatSecurity, diag.SevWarning, LangBoth, false,
		"credentials written into the source end up in history, logs and artifacts",
		"read the secret from the environment or a secrets file outside the repository"},
	KindFindExec: {"SEC005", "find-exec", CatSecurity, diag.SevWarning, LangBoth, false,
		"`-exec` needs a terminator the shell passes through literally: `\\;`, `';'` or `+`",
		"write `find ... -exec cmd '{}' \\;` or batch with `-exec cmd {} +`"},
	KindUnquotedVar: {"SEC006", "unquoted-variable", CatSecurity, diag.SevWarning, LangShell, true,
		"an unquoted expansion is split on whitespace and glob-expanded",
		"wrap the expansion in double quotes"},

	KindMkdirNoParents: {"IDEM001", "mkdir-without-p", CatIdempotency, diag.SevWarning, LangBoth, true,
		"`mkdir` fails when the directory already exists, so a second run breaks",
		"use `mkdir -p`"},
	KindRmNoForce: {"IDEM002", "rm-without-f", CatIdempotency, diag.SevWarning, LangBoth, true,
		"`rm` fails when the file is already gone, so a second run breaks",
		"use `rm -f`"},
	KindLnNoForce: {"IDEM003", "ln-without-f", CatIdempotency, diag.SevWarning, LangBoth, true,
		"`ln` fails when the link already exists, so a second run breaks",
		"use `ln -sf` (or `ln -f` for hard links)"},

	KindTimestamp: {"DET001", "timestamp", CatReproducibility, diag.SevWarning, LangBoth, false,
		"the current time makes every run produce different output",
		"use `$SOURCE_DATE_EPOCH` (e.g. `date -u -d @$SOURCE_DATE_EPOCH`) or a fixed value"},
	KindRandom: {"DET002", "random", CatReproducibility, diag.SevWarning, LangBoth, false,
		"`$RANDOM` yields a different value on every run",
		"derive the value from a fixed seed or an input such as the version"},
	KindProcessID: {"DET003", "process-id", CatReproducibility, diag.SevWarning, LangBoth, false,
		"the process id differs between runs, so names built from it are not reproducible",
		"use a fixed name, or `mktemp` when uniqueness is really needed"},
	KindHostname: {"DET004", "hostname", CatReproducibility, diag.SevWarning, LangBoth, false,
		"the host name makes output depend on the machine that ran the build",
		"pass the value in explicitly or drop it from the output"},
	KindGitDate: {"DET005", "git-date", CatReproducibility, diag.SevInfo, LangBoth, false,
		"commit dates in the local time zone depend on the machine",
		"use `git log -1 --format=%ct` and format it with TZ=UTC, or set SOURCE_DATE_EPOCH from it"},
	KindMktemp: {"DET006", "mktemp", CatReproducibility, diag.SevInfo, LangBoth, false,
		"`mktemp` creates a different path on every run",
		"use a fixed path under the build directory when the path ends up in the output"},
	KindEpochLiteral: {"DET007", "epoch-literal", CatReproducibility, diag.SevInfo, LangBoth, false,
		"a hard-coded Unix timestamp is usually a captured build time",
		"read the timestamp from `$SOURCE_DATE_EPOCH`"},

	KindSelfReference: {"MAKE001", "recursive-self-reference", CatPerformance, diag.SevWarning, LangMake, false,
		"a recursive (`=`) variable that references itself expands forever; make aborts",
		"use `:=` to expand once, or `+=` to append"},
	KindShellInRecursiveVar: {"MAKE002", "shell-in-recursive-variable", CatPerformance, diag.SevWarning, LangMake, false,
		"a recursive (`=`) variable re-runs `$(shell ...)` every time it is expanded",
		"use `:=` so the command runs once"},
	KindUnsortedWildcard: {"MAKE003", "unsorted-wildcard", CatReproducibility, diag.SevWarning, LangMake, true,
		"`$(wildcard ...)` returns files in file-system order, which differs between machines",
		"wrap it: `$(sort $(wildcard ...))`"},
	KindUnsortedFind: {"MAKE004", "unsorted-find", CatReproducibility, diag.SevWarning, LangMake, false,
		"`find` lists files in directory order, which differs between machines",
		"pipe the output through `sort` or wrap the call in `$(sort ...)`"},
	KindMissingDeleteOnError: {"MAKE005", "missing-delete-on-error", CatErrorHandling, diag.SevInfo, LangMake, false,
		"without `.DELETE_ON_ERROR:` a failed recipe leaves a half-written target that looks up to date",
		"add `.DELETE_ON_ERROR:` near the top of the Makefile"},
	KindIgnoredRecipeError: {"MAKE006", "ignored-recipe-error", CatErrorHandling, diag.SevWarning, LangMake, false,
		"a `-` prefix makes make ignore the command's failure",
		"remove the `-` and handle the expected failure explicitly, e.g. `rm -f`"},
	KindLiteralMake: {"MAKE007", "literal-make", CatParallelSafety, diag.SevWarning, LangMake, false,
		"a literal `make` does not inherit the jobserver or the command-line flags",
		"use `$(MAKE)`"},
	KindSharedOutput: {"MAKE008", "shared-output", CatParallelSafety, diag.SevWarning, LangMake, false,
		"targets without a dependency edge run concurrently under `make -j`, and both write this path",
		"add an order-only prerequisite (`target: | other`) or declare `.NOTPARALLEL:`"},
	KindSharedTmpPath: {"MAKE009", "shared-tmp-path", CatParallelSafety, diag.SevWarning, LangMake, false,
		"a fixed path under /tmp is shared by every concurrent build on the machine",
		"use a path under the build directory or `$(shell mktemp -d)` once per build"},
	KindUnquotedRmVar: {"MAKE010", "unquoted-rm-variable", CatSecurity, diag.SevWarning, LangMake, false,
		"`rm -rf $(VAR)` removes whatever the variable expands to, including `/` when it is empty or spaced",
		"quote the argument and guard it: `rm -rf \"$(VAR)\"` with a non-empty check"},
	KindMissingPhony: {"MAKE011", "missing-phony", CatErrorHandling, diag.SevInfo, LangMake, false,
		"a target that names no file is skipped when a file with that name appears",
		"declare it with `.PHONY:`"},
	KindCdOwnLine: {"MAKE012", "cd-own-line", CatErrorHandling, diag.SevWarning, LangMake, false,
		"every recipe line runs in a new shell, so a lone `cd` has no effect on the next line",
		"join the commands: `cd dir && cmd`"},
	KindShellInRecipe: {"MAKE013", "shell-in-recipe", CatPerformance, diag.SevInfo, LangMake, false,
		"`$(shell ...)` in a recipe runs when make expands the recipe, before the recipe's own commands",
		"call the command directly in the recipe (`$$(cmd)`)"},

	KindBackgroundSharedOutput: {"PAR001", "background-shared-output", CatParallelSafety, diag.SevWarning, LangShell, false,
		"background jobs writing the same path race with each other",
		"write to separate files, or run the jobs sequentially"},
	KindBackgroundNoWait: {"PAR002", "background-no-wait", CatParallelSafety, diag.SevWarning, LangShell, false,
		"the script can exit while background jobs are still running",
		"add `wait` after starting the jobs"},

	KindMaskedFailure: {"ERR001", "masked-failure", CatErrorHandling, diag.SevWarning, LangBoth, false,
		"a failure of this command is not checked, and the following commands run in the wrong state",
		"chain with `&&` or append `|| exit 1`"},
	KindNoPipefail: {"ERR002", "no-pipefail", CatErrorHandling, diag.SevInfo, LangShell, false,
		"a pipeline reports only the status of its last command",
		"check the producer separately, or use `set -o pipefail` where the shell supports it"},
	KindNoErrexit: {"ERR003", "no-errexit", CatErrorHandling, diag.SevInfo, LangShell, false,
		"without `set -e` the script keeps going after a failed command",
		"add `set -e` after the shebang"},

	KindDoubleBracket: {"PORT001", "double-bracket", CatPortability, diag.SevWarning, LangBoth, false,
		"`[[ ]]` is a bash extension; /bin/sh on Debian and Alpine rejects it",
		"use `[ ]` with quoted operands"},
	KindArithmetic: {"PORT002", "arithmetic", CatPortability, diag.SevInfo, LangBoth, false,
		"`(( ))`, `let` and C-style for loops are not POSIX",
		"use `$(( ))` inside `[ ]` or an assignment, and a while loop"},
	KindSource: {"PORT003", "source", CatPortability, diag.SevWarning, LangBoth, true,
		"`source` is a bash builtin; POSIX shells only have `.`",
		"use `.`"},
	KindDeclare: {"PORT004", "declare", CatPortability, diag.SevWarning, LangBoth, false,
		"`declare` and `typeset` are not POSIX",
		"use a plain assignment, plus `export` or `readonly` where needed"},
	KindLongFlag: {"PORT005", "gnu-long-flag", CatPortability, diag.SevInfo, LangBoth, false,
		"GNU long options are missing from BSD and busybox tools",
		"use the short POSIX option"},
	KindSedInPlace: {"PORT006", "sed-in-place", CatPortability, diag.SevWarning, LangBoth, false,
		"`sed -i` takes an argument on BSD and none on GNU",
		"write to a temporary file and move it over the original"},
	KindEchoFlags: {"PORT007", "echo-flags", CatPortability, diag.SevWarning, LangBoth, false,
		"`echo -e` and `echo -n` behave differently between shells",
		"use `printf`"},
	KindPlatformSpecific: {"PORT008", "platform-specific", CatPortability, diag.SevInfo, LangBoth, false,
		"this interface exists only on some systems",
		"guard it with a platform check or use a portable alternative"},
	KindDoubleEquals: {"PORT009", "double-equals", CatPortability, diag.SevWarning, LangBoth, false,
		"`==` inside `[ ]` is a bash extension",
		"use `=`"},
	KindFunctionKeyword: {"PORT010", "function-keyword", CatPortability, diag.SevInfo, LangShell, false,
		"the `function` keyword is not POSIX",
		"write `name() { ...; }`"},
	KindNonPosixShebang: {"PORT011", "non-posix-shebang", CatPortability, diag.SevInfo, LangShell, true,
		"the script uses no bash features but asks for bash",
		"use `#!/bin/sh`"},

	KindCombinable: {"PERF001", "combinable-invocations", CatPerformance, diag.SevInfo, LangBoth, false,
		"consecutive invocations of the same filter can run as one process",
		"merge them, e.g. `sed -e a -e b` or one `grep -E` pattern"},
	KindUselessCat: {"PERF002", "useless-cat", CatPerformance, diag.SevInfo, LangBoth, false,
		"`cat file | cmd` spawns an extra process",
		"redirect instead: `cmd < file`"},
	KindExpr: {"PERF003", "expr", CatPerformance, diag.SevInfo, LangBoth, false,
		"`expr` forks a process for arithmetic the shell can do",
		"use `$(( ))`"},
}

// Info returns the metadata of k.
func (k Kind) Info() KindInfo {
	if k <= KindInvalid || k >= kindCount {
		return KindInfo{Name: "invalid"}
	}
	return kindTable[k]
}

func (k Kind) String() string { return k.Info().Name }

// Code returns the stable diagnostic code.
func (k Kind) Code() diag.Code { return k.Info().Code }

// Category returns the category of k.
func (k Kind) Category() Category { return k.Info().Category }

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindInvalid + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// KindByCode looks a kind up by its code; the match is case-insensitive.
func KindByCode(code string) (Kind, bool) {
	for _, k := range Kinds() {
		if strings.EqualFold(string(k.Code()), code) {
			return k, true
		}
	}
	return KindInvalid, false
}
