// Package ast defines the Makefile syntax tree.
//
// Item is a closed sum type: every concrete node lives in this package and
// implements the unexported item marker. Conditionals own their branches, so
// the tree has no cycles. Every node keeps the exact span it was parsed from.
package ast

import "shellpure/internal/source"

// Item is one top-level (or conditional-branch) element of a Makefile.
type Item interface {
	Pos() source.Span
	item()
}

// File is a parsed Makefile.
type File struct {
	Path  string
	Items []Item
	Span  source.Span
}

// Flavor is the assignment flavor of a variable.
type Flavor uint8

const (
	// FlavorRecursive is `=`: expanded at every use.
	FlavorRecursive Flavor = iota
	// FlavorSimple is `:=` (or `::=`): expanded once at definition.
	FlavorSimple
	// FlavorConditional is `?=`.
	FlavorConditional
	// FlavorAppend is `+=`.
	FlavorAppend
	// FlavorShell is `!=`.
	FlavorShell
)

func (f Flavor) String() string {
	switch f {
	case FlavorRecursive:
		return "recursive"
	case FlavorSimple:
		return "simple"
	case FlavorConditional:
		return "conditional"
	case FlavorAppend:
		return "append"
	case FlavorShell:
		return "shell"
	}
	return "unknown"
}

// Operator returns the canonical operator for the flavor.
func (f Flavor) Operator() string {
	switch f {
	case FlavorSimple:
		return ":="
	case FlavorConditional:
		return "?="
	case FlavorAppend:
		return "+="
	case FlavorShell:
		return "!="
	}
	return "="
}

// FlavorOf maps an operator to its flavor.
func FlavorOf(op string) (Flavor, bool) {
	switch op {
	case "=":
		return FlavorRecursive, true
	case ":=", "::=":
		return FlavorSimple, true
	case "?=":
		return FlavorConditional, true
	case "+=":
		return FlavorAppend, true
	case "!=":
		return FlavorShell, true
	}
	return FlavorRecursive, false
}

// Trailing is a "# ..." comment at the end of a line. Pad is the whitespace
// between the line content and '#' exactly as written: in an assignment make
// keeps it in the value.
type Trailing struct {
	Pad  string
	Text string // with its '#', "" when the line has no comment
}

// String renders the comment with its padding.
func (t Trailing) String() string {
	return t.Pad + t.Text
}

// Variable is `NAME op value`.
type Variable struct {
	Name   string
	Flavor Flavor
	Op     string // operator exactly as written
	Value  string // raw value, continuation lines included, trailing comment excluded
	// Comment keeps trailing whitespace of the value in Pad even without a
	// comment.
	Comment  Trailing
	Export   bool
	Override bool

	Calls     []FunctionCall
	ValueSpan source.Span
	Span      source.Span
}

// RecipeLine is one shell line of a rule. Text excludes the leading tab and
// keeps the @/-/+ prefixes; Span covers exactly Text.
type RecipeLine struct {
	Text string

	// Verbatim marks a blank or column-0 "#" line inside a recipe block. Make
	// does not pass it to the shell and it is emitted without the tab.
	Verbatim bool
	Calls    []FunctionCall
	Span     source.Span
}

// Rule is `targets: prerequisites | order-only` followed by its recipe.
type Rule struct {
	Targets     []string
	Pattern     string // target pattern of a static pattern rule
	Prereqs     []string
	OrderOnly   []string
	DoubleColon bool
	// VarAssign is set for target-specific variables (`t: VAR = x`); such a
	// rule has no prerequisites and no recipe.
	VarAssign *Variable
	Comment   Trailing
	Recipe    []RecipeLine

	HeaderSpan source.Span
	Span       source.Span
}

// RecipeItem is a tab-indented line that belongs to the recipe of an earlier
// rule but is separated from it by a conditional directive.
type RecipeItem struct {
	Line RecipeLine
}

// Conditional is an ifeq/ifneq/ifdef/ifndef block.
type Conditional struct {
	Directive string // ifeq, ifneq, ifdef, ifndef
	Condition string // text after the directive, exactly as written
	Arg1      string
	Arg2      string
	Then      []Item
	// Else is nil when the block has no else branch.
	Else []Item
	// Chained marks a conditional written as `else ifeq ...`; it shares the
	// endif of its parent.
	Chained bool
	// comments of the directive, else and endif lines
	Comment      Trailing
	ElseComment  Trailing
	EndifComment Trailing
	Span         source.Span
}

// Include is `include`, `-include` or `sinclude`.
type Include struct {
	Directive string
	Paths     []string
	Optional  bool
	Comment   Trailing
	Span      source.Span
}

// FunctionCall is `$(name arg1,arg2,...)`.
type FunctionCall struct {
	Name string
	Args []string
	Raw  string
	// ArgSpans holds the span of each argument in Args.
	ArgSpans []source.Span
	// Comment is set only for a call standing alone on its line.
	Comment Trailing
	Span    source.Span
}

// Define is a `define NAME [op] ... endef` block. Body lines are verbatim.
type Define struct {
	Name     string
	Flavor   Flavor
	Op       string // "" when the header had no operator
	Body     []string
	Export   bool
	Override bool
	Comment  Trailing
	Span     source.Span
}

// Directive is a keyword line without assignment: export, unexport, vpath,
// undefine, or a bare override.
type Directive struct {
	Keyword string
	Args    string
	Comment Trailing
	Span    source.Span
}

// Comment is a "#" line outside recipes.
type Comment struct {
	Text string
	Span source.Span
}

// Blank is an empty line.
type Blank struct {
	Span source.Span
}

func (v *Variable) Pos() source.Span     { return v.Span }
func (r *Rule) Pos() source.Span         { return r.Span }
func (r *RecipeItem) Pos() source.Span   { return r.Line.Span }
func (c *Conditional) Pos() source.Span  { return c.Span }
func (i *Include) Pos() source.Span      { return i.Span }
func (f *FunctionCall) Pos() source.Span { return f.Span }
func (d *Define) Pos() source.Span       { return d.Span }
func (d *Directive) Pos() source.Span    { return d.Span }
func (c *Comment) Pos() source.Span      { return c.Span }
func (b *Blank) Pos() source.Span        { return b.Span }

func (*Variable) item()     {}
func (*Rule) item()         {}
func (*RecipeItem) item()   {}
func (*Conditional) item()  {}
func (*Include) item()      {}
func (*FunctionCall) item() {}
func (*Define) item()       {}
func (*Directive) item()    {}
func (*Comment) item()      {}
func (*Blank) item()        {}
