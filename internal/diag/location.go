package diag

import (
	"fmt"

	"shellpure/internal/source"
)

// Location is the human-facing position attached to a diagnostic.
// Zero values mean "unknown": File == "", Line == 0, Column == 0, SourceLine == "".
type Location struct {
	File       string
	Line       int
	Column     int
	SourceLine string
}

// IsZero reports whether no location field is known.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0 && l.SourceLine == ""
}

func (l Location) String() string {
	switch {
	case l.File != "" && l.Line > 0 && l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	case l.File != "" && l.Line > 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	case l.Line > 0:
		return fmt.Sprintf("line %d", l.Line)
	default:
		return l.File
	}
}

// Resolve builds a Location for span using the file set.
// The SourceLine snippet is the whole first line of the span.
func Resolve(fs *source.FileSet, span source.Span) Location {
	if fs == nil {
		return Location{}
	}
	f := fs.Get(span.File)
	if f == nil {
		return Location{}
	}
	start, _ := fs.Resolve(span)
	return Location{
		File:       f.Path,
		Line:       int(start.Line),
		Column:     int(start.Col),
		SourceLine: f.GetLine(start.Line),
	}
}
