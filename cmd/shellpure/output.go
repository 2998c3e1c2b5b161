package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"shellpure/internal/diag"
	"shellpure/internal/diagfmt"
	"shellpure/internal/driver"
	"shellpure/internal/rules"
	"shellpure/internal/version"
)

type renderOpts struct {
	showFixes   bool
	showPreview bool
	args        []string
}

// renderDiagnostics prints every result's diagnostics in the chosen format.
// Cancelled batches may leave nil slots; they are skipped.
func renderDiagnostics(out io.Writer, results []*driver.FileResult, s *runSettings, ro renderOpts) error {
	switch s.format {
	case "short":
		merged := diag.NewBag(0)
		for _, r := range results {
			if r != nil {
				merged.Merge(r.Bag)
			}
		}
		return diagfmt.Short(out, merged)

	case "json":
		jsonOpts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         s.pathMode,
			Max:              s.opts.MaxDiagnostics,
			IncludeFixes:     ro.showFixes,
			IncludePreviews:  ro.showPreview,
		}
		combined := diagfmt.DiagnosticsOutput{Diagnostics: []diagfmt.DiagnosticJSON{}}
		for _, r := range results {
			if r == nil {
				continue
			}
			part := diagfmt.BuildDiagnosticsOutput(r.Bag, r.FileSet, jsonOpts)
			combined.Diagnostics = append(combined.Diagnostics, part.Diagnostics...)
			combined.Count += part.Count
			combined.Errors += part.Errors
			combined.Warnings += part.Warnings
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(combined)

	case "sarif":
		merged := diag.NewBag(0)
		for _, r := range results {
			if r != nil {
				merged.Merge(r.Bag)
			}
		}
		return diagfmt.Sarif(out, merged, diagfmt.SarifRunMeta{
			ToolName:       "shellpure",
			ToolVersion:    version.Version,
			InvocationArgs: ro.args,
			Rules:          sarifRules(s.opts.Registry),
			PathMode:       s.pathMode,
		})
	}

	prettyOpts := diagfmt.PrettyOpts{
		Color:       s.color,
		PathMode:    s.pathMode,
		Codes:       true,
		ShowFixes:   ro.showFixes,
		ShowPreview: ro.showPreview,
	}
	printed := false
	for _, r := range results {
		if r == nil || r.Bag.Len() == 0 {
			continue
		}
		if printed {
			fmt.Fprintln(out)
		}
		diagfmt.Pretty(out, r.Bag, r.FileSet, prettyOpts)
		printed = true
	}
	return nil
}

func sarifRules(reg *rules.Registry) []diagfmt.SarifRule {
	if reg == nil {
		return nil
	}
	all := reg.Rules()
	out := make([]diagfmt.SarifRule, 0, len(all))
	for _, r := range all {
		level := "note"
		switch r.Severity {
		case diag.SevError:
			level = "error"
		case diag.SevWarning:
			level = "warning"
		}
		out = append(out, diagfmt.SarifRule{
			ID:          r.Code.ID(),
			Name:        r.Name,
			Description: r.Description,
			Help:        r.Help,
			Level:       level,
		})
	}
	return out
}

type summary struct {
	files    int
	errors   int
	warnings int
	changed  int
	applied  int
	manual   int
	cached   int
}

func summarize(results []*driver.FileResult) summary {
	var sum summary
	for _, r := range results {
		if r == nil {
			continue
		}
		sum.files++
		for _, d := range r.Bag.Items() {
			switch d.Severity {
			case diag.SevError:
				sum.errors++
			case diag.SevWarning:
				sum.warnings++
			}
		}
		if r.Changed() {
			sum.changed++
		}
		sum.applied += r.Applied
		sum.manual += r.Manual
		if r.Cached {
			sum.cached++
		}
	}
	return sum
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	if word == "fix" {
		return fmt.Sprintf("%d fixes", n)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// printLintSummary пишет итоговую строку в stderr, чтобы не мешать
// машинному выводу в stdout.
func printLintSummary(w io.Writer, sum summary) {
	fmt.Fprintf(w, "checked %s: %s, %s", plural(sum.files, "file"), plural(sum.errors, "error"), plural(sum.warnings, "warning"))
	if sum.cached > 0 {
		fmt.Fprintf(w, " (%d cached)", sum.cached)
	}
	fmt.Fprintln(w)
}

func printPurifySummary(w io.Writer, sum summary) {
	fmt.Fprintf(w, "purified %s: %s changed, %s applied, %s need manual review\n",
		plural(sum.files, "file"), plural(sum.changed, "file"), plural(sum.applied, "fix"), plural(sum.manual, "finding"))
}

func printTimings(w io.Writer, results []*driver.FileResult, elapsed time.Duration) {
	report := driver.AggregateTimings(results)
	fmt.Fprint(w, report.String())
	if slow, ok := report.Slowest(); ok {
		fmt.Fprintf(w, "  slowest: %s (%d files)\n", slow.Name, slow.Count)
	}
	fmt.Fprintf(w, "  %-20s %7.2f ms\n", "wall", toMillis(elapsed))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// finalError maps results to the process exit status.
func finalError(results []*driver.FileResult) error {
	for _, r := range results {
		if r != nil && r.HasErrors() {
			return errFindings
		}
	}
	return nil
}

func stderrIfVisible(quiet bool) io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stderr
}
