package diagfmt

import (
	"encoding/json"
	"io"

	"shellpure/internal/diag"
	"shellpure/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File       string `json:"file"`
	StartByte  uint32 `json:"start_byte"`
	EndByte    uint32 `json:"end_byte"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	EndLine    int    `json:"end_line,omitempty"`
	EndColumn  int    `json:"end_column,omitempty"`
	SourceLine string `json:"source_line,omitempty"`
}

// FixJSON представляет безопасное исправление для JSON
type FixJSON struct {
	Title       string       `json:"title"`
	Location    LocationJSON `json:"location"`
	Replacement string       `json:"replacement"`
	BeforeLines []string     `json:"before_lines,omitempty"`
	AfterLines  []string     `json:"after_lines,omitempty"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Note     string       `json:"note"`
	Help     string       `json:"help"`
	Quality  float64      `json:"quality"`
	Fix      *FixJSON     `json:"fix,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
}

// makeLocation берёт путь из Location, байты из span; конец диапазона
// вычисляется через FileSet, если файл в нём есть.
func makeLocation(loc diag.Location, span source.Span, fs *source.FileSet, opts JSONOpts) LocationJSON {
	out := LocationJSON{
		File:      opts.PathMode.format(loc.File, opts.BaseDir),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if !opts.IncludePositions {
		return out
	}
	out.Line = loc.Line
	out.Column = loc.Column
	out.SourceLine = loc.SourceLine
	if fs != nil && fs.Get(span.File) != nil {
		start, end := fs.Resolve(span)
		out.Line, out.Column = int(start.Line), int(start.Col)
		out.EndLine, out.EndColumn = int(end.Line), int(end.Col)
	}
	return out
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	diagnostics := make([]DiagnosticJSON, 0, maxItems)
	out := DiagnosticsOutput{}
	for i := range maxItems {
		d := items[i]
		switch d.Severity {
		case diag.SevError:
			out.Errors++
		case diag.SevWarning:
			out.Warnings++
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: makeLocation(d.Location, d.Span, fs, opts),
			Note:     d.Note,
			Help:     d.Help,
			Quality:  d.QualityScore(),
		}
		if opts.IncludeFixes && d.Fix != nil {
			fj := &FixJSON{
				Title:       d.Fix.Title,
				Location:    makeLocation(diag.Location{File: d.Location.File}, d.Fix.Span, fs, opts),
				Replacement: d.Fix.Replacement,
			}
			if opts.IncludePreviews {
				if pv, err := buildFixPreview(fs, d.Fix); err == nil {
					fj.BeforeLines = pv.before
					fj.AfterLines = pv.after
				}
			}
			dj.Fix = fj
		}
		diagnostics = append(diagnostics, dj)
	}
	out.Diagnostics = diagnostics
	out.Count = len(diagnostics)
	return out
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
