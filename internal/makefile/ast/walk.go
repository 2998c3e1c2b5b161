package ast

// Walk calls fn for every item in pre-order, descending into conditional
// branches. Returning false from fn skips the children of that item.
func Walk(items []Item, fn func(Item) bool) {
	for _, it := range items {
		if !fn(it) {
			continue
		}
		if c, ok := it.(*Conditional); ok {
			Walk(c.Then, fn)
			Walk(c.Else, fn)
		}
	}
}

// Rules returns every rule of the file, including those inside conditionals.
func (f *File) Rules() []*Rule {
	var out []*Rule
	Walk(f.Items, func(it Item) bool {
		if r, ok := it.(*Rule); ok {
			out = append(out, r)
		}
		return true
	})
	return out
}

// Variables returns every variable assignment, including target-specific ones.
func (f *File) Variables() []*Variable {
	var out []*Variable
	Walk(f.Items, func(it Item) bool {
		switch n := it.(type) {
		case *Variable:
			out = append(out, n)
		case *Rule:
			if n.VarAssign != nil {
				out = append(out, n.VarAssign)
			}
		}
		return true
	})
	return out
}

// RecipeRef points at one recipe line together with the rule it belongs to.
// Rule is nil for a RecipeItem that follows no rule.
type RecipeRef struct {
	Rule *Rule
	Line *RecipeLine
}

// Recipes lists every recipe line in source order. Lines of a RecipeItem are
// attributed to the closest preceding rule.
func (f *File) Recipes() []RecipeRef {
	var out []RecipeRef
	var last *Rule
	Walk(f.Items, func(it Item) bool {
		switch n := it.(type) {
		case *Rule:
			last = n
			for i := range n.Recipe {
				if n.Recipe[i].Verbatim {
					continue
				}
				out = append(out, RecipeRef{Rule: n, Line: &n.Recipe[i]})
			}
		case *RecipeItem:
			if !n.Line.Verbatim {
				out = append(out, RecipeRef{Rule: last, Line: &n.Line})
			}
		}
		return true
	})
	return out
}

// HasSpecialTarget reports whether a rule declares the given special target
// such as ".DELETE_ON_ERROR" or ".NOTPARALLEL".
func (f *File) HasSpecialTarget(name string) bool {
	found := false
	Walk(f.Items, func(it Item) bool {
		if r, ok := it.(*Rule); ok {
			for _, t := range r.Targets {
				if t == name {
					found = true
				}
			}
		}
		return !found
	})
	return found
}
