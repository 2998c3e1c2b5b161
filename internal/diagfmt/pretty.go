package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"shellpure/internal/diag"
	"shellpure/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info *color.Color
	bold, gutter    *color.Color
	note, help      *color.Color
	del, add        *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		bold:   mk(color.Bold),
		gutter: mk(color.FgBlue, color.Bold),
		note:   mk(color.FgGreen, color.Bold),
		help:   mk(color.FgMagenta, color.Bold),
		del:    mk(color.FgRed),
		add:    mk(color.FgGreen),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид:
//
//	error: <message> at <file>:<line>:<col>
//
//	<line#> | <source_line>
//	          ^^^^
//
//	note: <explanation>
//	help: <suggestion>
//
// Диагностики разделяются пустой строкой, порядок как в bag.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writePretty(w, &d, fs, opts, p)
	}
}

func writePretty(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	sev := p.severity(d.Severity)
	head := d.Severity.Label()
	if opts.Codes {
		head += "[" + d.Code.ID() + "]"
	}
	fmt.Fprintf(w, "%s: %s", sev.Sprint(head), p.bold.Sprint(d.Message))
	loc := d.Location
	loc.File = opts.PathMode.format(loc.File, opts.BaseDir)
	loc.SourceLine = ""
	if s := loc.String(); s != "" {
		fmt.Fprintf(w, " at %s", s)
	}
	fmt.Fprintln(w)

	if d.Location.Line > 0 && d.Location.SourceLine != "" {
		num := strconv.Itoa(d.Location.Line)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s | %s\n", p.gutter.Sprint(num), expandTabs(d.Location.SourceLine))
		fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", len(num)+3), sev.Sprint(underline(d, fs)))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", p.note.Sprint("note:"), d.Note)
	fmt.Fprintf(w, "%s %s\n", p.help.Sprint("help:"), d.Help)

	if opts.ShowFixes && d.Fix != nil {
		fmt.Fprintf(w, "%s %s\n", p.note.Sprint("fix:"), d.Fix.Title)
		if opts.ShowPreview {
			if pv, err := buildFixPreview(fs, d.Fix); err == nil {
				for _, l := range pv.before {
					fmt.Fprintln(w, p.del.Sprint("  - "+expandTabs(l)))
				}
				for _, l := range pv.after {
					fmt.Fprintln(w, p.add.Sprint("  + "+expandTabs(l)))
				}
			}
		}
	}
}

// underline returns the padding and carets under the span on its first
// line. Widths are display columns, so wide characters stay aligned.
func underline(d *diag.Diagnostic, fs *source.FileSet) string {
	line := d.Location.SourceLine
	col := min(max(d.Location.Column, 1), len(line)+1)
	prefix := line[:col-1]

	width := 1
	if fs != nil && !d.Span.Empty() && fs.Get(d.Span.File) != nil {
		start, end := fs.Resolve(d.Span)
		endCol := len(line) + 1
		if end.Line == start.Line {
			endCol = min(int(end.Col), endCol)
		}
		if endCol > col {
			width = max(runewidth.StringWidth(expandTabs(line[col-1:endCol-1])), 1)
		}
	}
	return strings.Repeat(" ", runewidth.StringWidth(expandTabs(prefix))) + strings.Repeat("^", width)
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// Short печатает по одной диагностике на строку, см. diag.FormatShort.
func Short(w io.Writer, bag *diag.Bag) error {
	s := diag.FormatShort(bag.Items())
	if s == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, s)
	return err
}
