// Package purify applies the safe fixes reported by the analysis passes.
//
// Fixes are byte edits. Each round clones the tree, writes the accepted
// edits into the leaf text that contains them (a shell word, the shebang, a
// recipe line or a variable value), emits the clone and parses the result
// again. Detection then runs on the new tree, so a fix that was deferred
// because it overlapped a higher-priority one is only applied if it still
// holds. Rounds stop when nothing safe is left.
package purify

import (
	"errors"
	"fmt"
	"sort"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
	"shellpure/internal/fix"
	"shellpure/internal/rules"
	"shellpure/internal/source"
)

// DefaultMaxRounds bounds the fix/re-detect loop.
const DefaultMaxRounds = 8

var (
	// ErrNotConverged means safe fixes were still reported after the last
	// allowed round.
	ErrNotConverged = errors.New("purify: fixes did not converge")
	// ErrReparse means the text produced by a round no longer parses.
	ErrReparse = errors.New("purify: fixed text does not parse")
)

// Options controls a purify run. The zero value uses the default registry.
type Options struct {
	// Registry decides which findings are enabled and fixable.
	Registry *rules.Registry
	// MaxRounds defaults to DefaultMaxRounds.
	MaxRounds int
	// KeepShebang leaves a bash shebang alone even when `#!/bin/sh` would do.
	KeepShebang bool
}

func (o Options) registry() *rules.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return rules.Default()
}

func (o Options) maxRounds() int {
	if o.MaxRounds > 0 {
		return o.MaxRounds
	}
	return DefaultMaxRounds
}

// Result is the outcome of purifying one tree.
type Result[N any] struct {
	// Report has one line per applied fix followed by one per manual finding.
	Report                 []string
	TransformationsApplied int
	ManualFixesNeeded      int
	Applied                []analysis.Transformation
	Manual                 []analysis.Transformation
	// AST is the purified tree; it is the input tree when nothing applied.
	AST  N
	Text string
	// Rounds counts the rounds that changed the text.
	Rounds int
	// Diagnostics holds INTERNAL findings about the run itself.
	Diagnostics []diag.Diagnostic
	// Err is set when the last round was dropped (ErrNotConverged, ErrReparse).
	Err error
}

// leaf is a piece of text in a cloned tree that edits may rewrite. span is
// its position in the file the tree was parsed from.
type leaf struct {
	span source.Span
	text *string
}

// language adapts one tree type to the engine.
type language[N any] struct {
	passes  []analysis.Pass[N]
	file    func(N) source.FileID
	name    func(N) string
	clone   func(N) N
	leaves  func(N) []leaf
	emit    func(N) string
	reparse func(fs *source.FileSet, name, text string) (N, error)
}

type findingKey struct {
	kind      analysis.Kind
	construct string
	reason    string
}

func keyOf(t analysis.Transformation) findingKey {
	return findingKey{kind: t.Kind, construct: t.Construct, reason: t.Reason}
}

func run[N any](fs *source.FileSet, root N, lang language[N], opts Options) Result[N] {
	reg := opts.registry()
	res := Result[N]{AST: root}
	cur := root
	// findings whose edit could not be placed; they are reported as manual
	stuck := make(map[findingKey]bool)
	first := true
	for {
		safe, manual, fails := classify(fs, cur, lang, reg, opts, stuck)
		if first {
			res.Diagnostics = append(res.Diagnostics, fails...)
			first = false
		}
		if len(safe) == 0 {
			res.Manual = manual
			break
		}
		if res.Rounds >= opts.maxRounds() {
			res.fail(fs, lang.file(cur), fmt.Errorf("%w after %d rounds", ErrNotConverged, res.Rounds))
			res.Manual = append(manual, safe...)
			break
		}
		next, applied, rejected := applyEdits(cur, resolve(safe), lang)
		for _, t := range rejected {
			stuck[keyOf(t)] = true
		}
		if len(applied) == 0 {
			continue
		}
		reparsed, err := lang.reparse(fs, lang.name(cur), lang.emit(next))
		if err != nil {
			res.fail(fs, lang.file(cur), fmt.Errorf("%w: %w", ErrReparse, err))
			res.Manual = append(manual, safe...)
			break
		}
		res.Rounds++
		res.Applied = append(res.Applied, applied...)
		cur = reparsed
	}

	res.AST = cur
	res.Text = lang.emit(cur)
	if res.Rounds == 0 && res.Err == nil {
		// без правок выход тоже должен разбираться; иначе отдаём исходник
		if _, err := lang.reparse(fs, lang.name(cur), res.Text); err != nil {
			res.fail(fs, lang.file(cur), fmt.Errorf("%w: %w", ErrReparse, err))
			if f := fs.Get(lang.file(cur)); f != nil {
				res.Text = string(f.Content)
			}
		}
	}
	res.TransformationsApplied = len(res.Applied)
	res.ManualFixesNeeded = len(res.Manual)
	for _, t := range res.Applied {
		res.Report = append(res.Report, "fixed: "+t.Describe())
	}
	for _, t := range res.Manual {
		res.Report = append(res.Report, "manual: "+t.Describe())
	}
	return res
}

func (r *Result[N]) fail(fs *source.FileSet, file source.FileID, err error) {
	r.Err = err
	r.Diagnostics = append(r.Diagnostics, diag.New(diag.SevWarning, diag.CodeInternalVerify, err.Error(),
		"the fixes of the last round were dropped, the output keeps the last text that passed verification",
		"please report this with the input file attached; `--max-rounds` changes the round limit").
		At(fs, source.Span{File: file}))
}

// classify runs the passes on cur and splits enabled findings into safe and
// manual ones.
func classify[N any](fs *source.FileSet, cur N, lang language[N], reg *rules.Registry, opts Options, stuck map[findingKey]bool) (safe, manual []analysis.Transformation, fails []diag.Diagnostic) {
	file := lang.file(cur)
	var supp rules.Suppressions
	if f := fs.Get(file); f != nil {
		supp = rules.ParseSuppressions(f.Content)
	}
	for _, p := range lang.passes {
		ts, err := p.Run(cur)
		if err != nil {
			fails = append(fails, rules.PassFailure(fs, source.Span{File: file}, err))
			continue
		}
		for _, t := range ts {
			rule, ok := reg.Lookup(t.Kind.Code())
			if !ok || rule.Disabled {
				continue
			}
			if len(supp) > 0 {
				start, _ := fs.Resolve(t.Span)
				if supp.Suppressed(rule.Code, int(start.Line)) {
					continue
				}
			}
			fixable := t.Safe && t.Fix != nil && rule.Fixable && !stuck[keyOf(t)]
			if opts.KeepShebang && t.Kind == analysis.KindNonPosixShebang {
				fixable = false
			}
			if fixable {
				safe = append(safe, t)
			} else {
				manual = append(manual, t)
			}
		}
	}
	return safe, manual, fails
}

// resolve picks the edits of one round: higher category priority first,
// then source position. An edit overlapping an accepted one waits for the
// next round.
func resolve(safe []analysis.Transformation) []analysis.Transformation {
	sorted := append([]analysis.Transformation(nil), safe...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Category().Priority(), sorted[j].Category().Priority()
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Span.Start < sorted[j].Span.Start
	})
	var (
		accepted []analysis.Transformation
		edits    []fix.Edit
	)
	for _, t := range sorted {
		if fix.ConflictsWithAny(edits, *t.Fix) {
			continue
		}
		accepted = append(accepted, t)
		edits = append(edits, *t.Fix)
	}
	return accepted
}

// applyEdits writes the accepted edits into a clone of cur.
func applyEdits[N any](cur N, accepted []analysis.Transformation, lang language[N]) (next N, applied, rejected []analysis.Transformation) {
	next = lang.clone(cur)
	leaves := lang.leaves(next)
	groups := make(map[int][]analysis.Transformation)
	var order []int
	for _, t := range accepted {
		i := leafFor(leaves, t.Fix.Span)
		if i < 0 {
			rejected = append(rejected, t)
			continue
		}
		if _, ok := groups[i]; !ok {
			order = append(order, i)
		}
		groups[i] = append(groups[i], t)
	}
	for _, i := range order {
		ts := groups[i]
		edits := make([]fix.Edit, len(ts))
		for k, t := range ts {
			edits[k] = *t.Fix
		}
		out, err := fix.Apply(*leaves[i].text, leaves[i].span, edits)
		if err != nil {
			rejected = append(rejected, ts...)
			continue
		}
		*leaves[i].text = out
		applied = append(applied, ts...)
	}
	sort.SliceStable(applied, func(i, j int) bool { return applied[i].Span.Start < applied[j].Span.Start })
	return next, applied, rejected
}

// leafFor returns the first leaf containing span; an insertion may sit at
// the end of its leaf.
func leafFor(leaves []leaf, span source.Span) int {
	for i, l := range leaves {
		if l.span.File == span.File && l.span.Start <= span.Start && span.End <= l.span.End {
			return i
		}
	}
	return -1
}
