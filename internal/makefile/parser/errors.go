package parser

import (
	"fmt"

	"shellpure/internal/diag"
	"shellpure/internal/source"
)

// ErrorKind classifies Makefile parse failures.
type ErrorKind uint8

const (
	InvalidVariableAssignment ErrorKind = iota
	EmptyVariableName
	NoAssignmentOperator
	InvalidIncludeSyntax
	InvalidConditionalSyntax
	MissingConditionalArguments
	MissingVariableName
	UnknownConditional
	InvalidTargetRule
	EmptyTargetName
	UnexpectedEof
)

var kindNames = [...]string{
	InvalidVariableAssignment:   "InvalidVariableAssignment",
	EmptyVariableName:           "EmptyVariableName",
	NoAssignmentOperator:        "NoAssignmentOperator",
	InvalidIncludeSyntax:        "InvalidIncludeSyntax",
	InvalidConditionalSyntax:    "InvalidConditionalSyntax",
	MissingConditionalArguments: "MissingConditionalArguments",
	MissingVariableName:         "MissingVariableName",
	UnknownConditional:          "UnknownConditional",
	InvalidTargetRule:           "InvalidTargetRule",
	EmptyTargetName:             "EmptyTargetName",
	UnexpectedEof:               "UnexpectedEof",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Note explains what is wrong, independently of the offending line.
func (k ErrorKind) Note() string {
	switch k {
	case InvalidVariableAssignment:
		return "a variable assignment must be NAME followed by one of =, :=, ::=, ?=, += or != and a value"
	case EmptyVariableName:
		return "the left-hand side of the assignment operator is empty, make cannot name the variable"
	case NoAssignmentOperator:
		return "the line is neither a rule (no ':') nor an assignment (no '='); make reports this as a missing separator"
	case InvalidIncludeSyntax:
		return "include, -include and sinclude need at least one file name"
	case InvalidConditionalSyntax:
		return "ifeq/ifneq take their two arguments in parentheses separated by a comma, or as two quoted strings"
	case MissingConditionalArguments:
		return "the conditional directive has nothing to compare"
	case MissingVariableName:
		return "the directive needs exactly one variable name"
	case UnknownConditional:
		return "only ifeq, ifneq, ifdef and ifndef open a conditional block"
	case InvalidTargetRule:
		return "the rule header has unbalanced references or more than one '|' separator"
	case EmptyTargetName:
		return "there is no target name before the ':'"
	case UnexpectedEof:
		return "the file ended inside an open block"
	}
	return "unknown parse failure"
}

// Help suggests how to fix the line.
func (k ErrorKind) Help() string {
	switch k {
	case InvalidVariableAssignment:
		return "write the assignment as `NAME := value`"
	case EmptyVariableName:
		return "put a variable name before the operator, e.g. `CFLAGS = -O2`"
	case NoAssignmentOperator:
		return "add ':' to declare a rule or '=' to assign a variable; recipe lines must start with a tab"
	case InvalidIncludeSyntax:
		return "name the file to include, e.g. `include config.mk`"
	case InvalidConditionalSyntax:
		return "use the parenthesised form: `ifeq ($(VAR),value)`"
	case MissingConditionalArguments:
		return "add the arguments, e.g. `ifeq ($(VAR),value)`"
	case MissingVariableName:
		return "name the variable, e.g. `ifdef DEBUG`"
	case UnknownConditional:
		return "use ifeq, ifneq, ifdef or ifndef"
	case InvalidTargetRule:
		return "balance every $( with ) and keep a single '|' before order-only prerequisites"
	case EmptyTargetName:
		return "name the target before the ':', e.g. `all: build`"
	case UnexpectedEof:
		return "close the block with the matching endif or endef"
	}
	return ""
}

// Error is a parse failure with its position.
type Error struct {
	Kind     ErrorKind
	Detail   string
	Span     source.Span
	Location diag.Location
	// hint overrides the kind's generic help when the parser can rebuild
	// the intended line.
	hint string
}

func (e *Error) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s at %s", e.Kind, e.Detail, e.Location)
}

// Note is the fixed explanation of the error kind.
func (e *Error) Note() string {
	return e.Kind.Note()
}

// Help is the specific suggestion when one exists, the kind's default otherwise.
func (e *Error) Help() string {
	if e.hint != "" {
		return e.hint
	}
	return e.Kind.Help()
}

// WithLocation attaches a location and returns the same error.
func (e *Error) WithLocation(loc diag.Location) *Error {
	e.Location = loc
	return e
}

// QualityScore rates the error like any other diagnostic.
func (e *Error) QualityScore() float64 {
	return diag.QualityScore(diag.ScoreInputOf(e.Detail, e.Note(), e.Help(), e.Location))
}

// ToDiagnostic converts the error into a MAKE000 diagnostic.
func (e *Error) ToDiagnostic() diag.Diagnostic {
	d := diag.NewError(diag.CodeMakeParse, e.Detail, e.Note(), e.Help())
	d.Span = e.Span
	d.Location = e.Location
	return d
}
