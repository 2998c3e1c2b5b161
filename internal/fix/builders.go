package fix

import (
	"shellpure/internal/source"
)

// Edit replaces the bytes under Span with NewText. A non-empty OldText is a
// guard: the edit is rejected when the current text differs.
type Edit struct {
	Span    source.Span
	NewText string
	OldText string
}

// InsertText creates an edit that inserts text at pos (only pos.Start is used).
func InsertText(pos source.Span, text string) Edit {
	return Edit{
		Span:    source.Span{File: pos.File, Start: pos.Start, End: pos.Start},
		NewText: text,
	}
}

// DeleteSpan removes text covered by span.
func DeleteSpan(span source.Span, expect string) Edit {
	return Edit{Span: span, OldText: expect}
}

// ReplaceSpan replaces text covered by span with newText.
func ReplaceSpan(span source.Span, newText, expect string) Edit {
	return Edit{Span: span, NewText: newText, OldText: expect}
}

// WrapWith surrounds the text under span with prefix and suffix. It is a
// single replacement so that it never splits against another edit.
func WrapWith(span source.Span, text, prefix, suffix string) Edit {
	return Edit{Span: span, NewText: prefix + text + suffix, OldText: text}
}

// IsInsert reports whether the edit only inserts text.
func (e Edit) IsInsert() bool {
	return e.Span.Start == e.Span.End
}
