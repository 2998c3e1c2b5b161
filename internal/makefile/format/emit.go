// Package format renders a Makefile syntax tree back to text.
//
// Output is normalised (single spaces around operators, one item per line,
// recipe lines indented with one tab) and stable: emitting a re-parsed
// emission yields the same text.
package format

import (
	"strings"

	"shellpure/internal/makefile/ast"
)

// Emit renders the whole file. Non-empty output ends with a newline.
func Emit(f *ast.File) string {
	if f == nil {
		return ""
	}
	return EmitItems(f.Items)
}

// EmitItems renders a list of items.
func EmitItems(items []ast.Item) string {
	var b strings.Builder
	writeItems(&b, items)
	return b.String()
}

func writeItems(b *strings.Builder, items []ast.Item) {
	for _, it := range items {
		writeItem(b, it)
	}
}

func writeItem(b *strings.Builder, it ast.Item) {
	switch n := it.(type) {
	case *ast.Variable:
		b.WriteString(Variable(n))
		b.WriteByte('\n')
	case *ast.Rule:
		b.WriteString(RuleHeader(n))
		b.WriteByte('\n')
		for _, l := range n.Recipe {
			writeRecipe(b, l)
		}
	case *ast.RecipeItem:
		writeRecipe(b, n.Line)
	case *ast.Conditional:
		writeConditional(b, n)
		b.WriteString("endif")
		writeComment(b, n.EndifComment)
		b.WriteByte('\n')
	case *ast.Include:
		b.WriteString(n.Directive)
		b.WriteByte(' ')
		b.WriteString(strings.Join(n.Paths, " "))
		writeComment(b, n.Comment)
		b.WriteByte('\n')
	case *ast.FunctionCall:
		b.WriteString(n.Raw)
		writeComment(b, n.Comment)
		b.WriteByte('\n')
	case *ast.Define:
		writeDefine(b, n)
	case *ast.Directive:
		b.WriteString(n.Keyword)
		if n.Args != "" {
			b.WriteByte(' ')
			b.WriteString(n.Args)
		}
		writeComment(b, n.Comment)
		b.WriteByte('\n')
	case *ast.Comment:
		b.WriteString(n.Text)
		b.WriteByte('\n')
	case *ast.Blank:
		b.WriteByte('\n')
	}
}

// Variable renders one assignment without a trailing newline.
func Variable(v *ast.Variable) string {
	var b strings.Builder
	if v.Override {
		b.WriteString("override ")
	}
	if v.Export {
		b.WriteString("export ")
	}
	b.WriteString(v.Name)
	b.WriteByte(' ')
	op := v.Op
	if op == "" {
		op = v.Flavor.Operator()
	}
	b.WriteString(op)
	if v.Value != "" {
		b.WriteByte(' ')
		b.WriteString(v.Value)
		// пробелы перед '#' входят в значение
		b.WriteString(v.Comment.String())
	} else {
		writeComment(&b, v.Comment)
	}
	return b.String()
}

// writeComment renders a trailing comment of a line whose content was
// normalised; a comment without padding gets a single space.
func writeComment(b *strings.Builder, c ast.Trailing) {
	if c.Text == "" {
		return
	}
	if c.Pad == "" {
		b.WriteByte(' ')
	}
	b.WriteString(c.String())
}

// RuleHeader renders `targets: prereqs | order-only` without the recipe.
func RuleHeader(r *ast.Rule) string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Targets, " "))
	if r.DoubleColon {
		b.WriteString("::")
	} else {
		b.WriteByte(':')
	}
	if r.Pattern != "" {
		b.WriteByte(' ')
		b.WriteString(r.Pattern)
		b.WriteByte(':')
	}
	if r.VarAssign != nil {
		b.WriteByte(' ')
		b.WriteString(Variable(r.VarAssign))
		writeComment(&b, r.Comment)
		return b.String()
	}
	if len(r.Prereqs) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(r.Prereqs, " "))
	}
	if len(r.OrderOnly) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(r.OrderOnly, " "))
	}
	writeComment(&b, r.Comment)
	return b.String()
}

func writeRecipe(b *strings.Builder, l ast.RecipeLine) {
	if !l.Verbatim {
		b.WriteByte('\t')
	}
	b.WriteString(l.Text)
	b.WriteByte('\n')
}

func writeConditional(b *strings.Builder, c *ast.Conditional) {
	b.WriteString(c.Directive)
	b.WriteByte(' ')
	b.WriteString(c.Condition)
	writeComment(b, c.Comment)
	b.WriteByte('\n')
	writeItems(b, c.Then)
	if c.Else == nil {
		return
	}
	if len(c.Else) == 1 {
		if next, ok := c.Else[0].(*ast.Conditional); ok && next.Chained {
			b.WriteString("else ")
			writeConditional(b, next)
			return
		}
	}
	b.WriteString("else")
	writeComment(b, c.ElseComment)
	b.WriteByte('\n')
	writeItems(b, c.Else)
}

func writeDefine(b *strings.Builder, d *ast.Define) {
	if d.Override {
		b.WriteString("override ")
	}
	if d.Export {
		b.WriteString("export ")
	}
	b.WriteString("define ")
	b.WriteString(d.Name)
	if d.Op != "" {
		b.WriteByte(' ')
		b.WriteString(d.Op)
	}
	writeComment(b, d.Comment)
	b.WriteByte('\n')
	for _, l := range d.Body {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("endef\n")
}
