package ast

import "slices"

// Clone returns a deep copy of the file.
func (f *File) Clone() *File {
	if f == nil {
		return nil
	}
	return &File{
		Path:  f.Path,
		Items: CloneItems(f.Items),
		Span:  f.Span,
	}
}

// CloneItems deep-copies a slice of items, preserving nil-ness.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = CloneItem(it)
	}
	return out
}

// CloneItem deep-copies one item.
func CloneItem(it Item) Item {
	switch n := it.(type) {
	case *Variable:
		return n.clone()
	case *Rule:
		c := *n
		c.Targets = slices.Clone(n.Targets)
		c.Prereqs = slices.Clone(n.Prereqs)
		c.OrderOnly = slices.Clone(n.OrderOnly)
		if n.VarAssign != nil {
			c.VarAssign = n.VarAssign.clone()
		}
		if n.Recipe != nil {
			c.Recipe = make([]RecipeLine, len(n.Recipe))
			for i, l := range n.Recipe {
				c.Recipe[i] = l.clone()
			}
		}
		return &c
	case *RecipeItem:
		return &RecipeItem{Line: n.Line.clone()}
	case *Conditional:
		c := *n
		c.Then = CloneItems(n.Then)
		c.Else = CloneItems(n.Else)
		return &c
	case *Include:
		c := *n
		c.Paths = slices.Clone(n.Paths)
		return &c
	case *FunctionCall:
		c := n.clone()
		return &c
	case *Define:
		c := *n
		c.Body = slices.Clone(n.Body)
		return &c
	case *Directive:
		c := *n
		return &c
	case *Comment:
		c := *n
		return &c
	case *Blank:
		c := *n
		return &c
	}
	return it
}

func (v *Variable) clone() *Variable {
	c := *v
	c.Calls = cloneCalls(v.Calls)
	return &c
}

func (l RecipeLine) clone() RecipeLine {
	l.Calls = cloneCalls(l.Calls)
	return l
}

func (fc FunctionCall) clone() FunctionCall {
	fc.Args = slices.Clone(fc.Args)
	fc.ArgSpans = slices.Clone(fc.ArgSpans)
	return fc
}

func cloneCalls(calls []FunctionCall) []FunctionCall {
	if calls == nil {
		return nil
	}
	out := make([]FunctionCall, len(calls))
	for i, c := range calls {
		out[i] = c.clone()
	}
	return out
}
