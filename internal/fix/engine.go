package fix

// todo: --backup флаг: писать .orig рядом с файлом перед WriteBack.

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"

	"shellpure/internal/source"
)

var (
	// ErrConflict is returned when two edits touch the same bytes.
	ErrConflict = errors.New("fix: overlapping edits")
	// ErrOutOfRange is returned for an edit outside the target text.
	ErrOutOfRange = errors.New("fix: edit span out of range")
	// ErrMismatch is returned when an edit's guard does not match the text.
	ErrMismatch = errors.New("fix: existing text does not match expected content")
)

// Conflicts reports whether two edits overlap.
// Spans are half-open intervals [Start, End). Two insertions conflict only at
// the same position, since their relative order would be ambiguous. An
// insertion conflicts with a replacement when it sits inside it
// (Start <= pos < End). Two replacements conflict on any overlap.
func Conflicts(a, b Edit) bool {
	if a.Span.File != b.Span.File {
		return false
	}
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return aStart == bStart
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

// ConflictsWithAny reports whether e overlaps any of the accepted edits.
func ConflictsWithAny(accepted []Edit, e Edit) bool {
	for _, prev := range accepted {
		if Conflicts(prev, e) {
			return true
		}
	}
	return false
}

// Apply rewrites text, whose bytes start at base.Start in the original file,
// with edits. Edits must lie inside base and must not conflict; they are
// applied from the end so earlier offsets stay valid.
func Apply(text string, base source.Span, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start == sorted[j].Span.Start {
			return sorted[i].Span.End > sorted[j].Span.End
		}
		return sorted[i].Span.Start > sorted[j].Span.Start
	})
	for i := 1; i < len(sorted); i++ {
		if Conflicts(sorted[i-1], sorted[i]) {
			return text, fmt.Errorf("%w at %s", ErrConflict, sorted[i].Span)
		}
	}

	textLen, err := safecast.Conv[uint32](len(text))
	if err != nil {
		return text, fmt.Errorf("%w: text length: %w", ErrOutOfRange, err)
	}
	working := []byte(text)
	for _, e := range sorted {
		if e.Span.File != base.File || e.Span.Start < base.Start || e.Span.End > base.Start+textLen {
			return text, fmt.Errorf("%w: %s not in %s", ErrOutOfRange, e.Span, base)
		}
		start := int(e.Span.Start - base.Start)
		end := int(e.Span.End - base.Start)
		if e.OldText != "" && string(working[start:end]) != e.OldText {
			return text, fmt.Errorf("%w: want %q, have %q", ErrMismatch, e.OldText, working[start:end])
		}
		suffix := append([]byte(nil), working[end:]...)
		working = append(append(working[:start], e.NewText...), suffix...)
	}
	return string(working), nil
}

// WriteBack replaces the file at path with content, keeping its permissions.
func WriteBack(path string, content []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
