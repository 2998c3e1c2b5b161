package makepass

import (
	"strings"

	"shellpure/internal/analysis"
	"shellpure/internal/makefile/ast"
)

// graph is the prerequisite graph: target -> prerequisites, order-only
// prerequisites included.
type graph struct {
	edges map[string][]string
}

func newGraph(f *ast.File) *graph {
	g := &graph{edges: make(map[string][]string)}
	for _, r := range f.Rules() {
		if r.VarAssign != nil {
			continue
		}
		for _, t := range r.Targets {
			g.edges[t] = append(g.edges[t], r.Prereqs...)
			g.edges[t] = append(g.edges[t], r.OrderOnly...)
		}
	}
	return g
}

// reaches reports whether to is a direct or indirect prerequisite of from.
func (g *graph) reaches(from, to string) bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// ordered reports whether make always runs a and b one after the other.
func (g *graph) ordered(a, b *ast.Rule) bool {
	if a == b {
		return true
	}
	for _, x := range a.Targets {
		for _, y := range b.Targets {
			if x == y || g.reaches(x, y) || g.reaches(y, x) {
				return true
			}
		}
	}
	return false
}

type access struct {
	rule *ast.Rule
	arg  analysis.Arg
}

func literalPath(a analysis.Arg) bool {
	return a.Text != "" && !strings.ContainsAny(a.Raw, "$`*?") && !strings.HasPrefix(a.Text, "/dev/") && !strings.HasPrefix(a.Text, "&")
}

// writes collects the literal paths each rule's recipe writes to with a
// redirection or tee.
func writes(recipes []recipe) ([]string, map[string][]access) {
	var order []string
	by := make(map[string][]access)
	add := func(r *ast.Rule, a analysis.Arg) {
		if !literalPath(a) {
			return
		}
		if _, ok := by[a.Text]; !ok {
			order = append(order, a.Text)
		}
		by[a.Text] = append(by[a.Text], access{rule: r, arg: a})
	}
	for _, rc := range recipes {
		if rc.rule() == nil {
			continue
		}
		for _, cmd := range analysis.Commands(rc.chains) {
			for _, w := range cmd.Writes() {
				add(rc.rule(), w)
			}
			if cmd.Name() == "tee" {
				for _, a := range cmd.Operands() {
					add(rc.rule(), a)
				}
			}
		}
	}
	return order, by
}

// sharedOutputs reports a path written by two rules that make may run at
// the same time.
func sharedOutputs(recipes []recipe, g *graph) []analysis.Transformation {
	order, by := writes(recipes)
	var out []analysis.Transformation
	for _, path := range order {
		ws := by[path]
		for i := 1; i < len(ws); i++ {
			for j := 0; j < i; j++ {
				if g.ordered(ws[j].rule, ws[i].rule) {
					continue
				}
				this, other := firstTarget(ws[i].rule), firstTarget(ws[j].rule)
				out = append(out, analysis.New(analysis.KindSharedOutput, ws[i].arg.Span, ws[i].arg.Raw,
					"`"+path+"` is written by both `"+other+"` and `"+this+"` with no dependency between them").
					Suggest("add an order-only prerequisite `%s: | %s`, or declare `.NOTPARALLEL:`", this, other))
				break
			}
		}
	}
	return out
}

// sharedTmpPaths reports fixed /tmp paths used by more than one rule.
func sharedTmpPaths(recipes []recipe) []analysis.Transformation {
	first := make(map[string]*ast.Rule)
	var out []analysis.Transformation
	for _, rc := range recipes {
		if rc.rule() == nil {
			continue
		}
		for _, cmd := range analysis.Commands(rc.chains) {
			for _, a := range cmd.Words() {
				if !strings.HasPrefix(a.Text, "/tmp/") || !literalPath(a) {
					continue
				}
				owner, ok := first[a.Text]
				if !ok {
					first[a.Text] = rc.rule()
					continue
				}
				if owner != rc.rule() {
					out = append(out, analysis.New(analysis.KindSharedTmpPath, a.Span, a.Raw,
						"`"+a.Text+"` is also used by `"+firstTarget(owner)+"`"))
				}
			}
		}
	}
	return out
}

func firstTarget(r *ast.Rule) string {
	if len(r.Targets) == 0 {
		return "?"
	}
	return r.Targets[0]
}
