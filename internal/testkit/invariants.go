// Package testkit holds structural checks shared by parser tests and fuzz
// harnesses.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	mkast "shellpure/internal/makefile/ast"
	shast "shellpure/internal/shell/ast"
	"shellpure/internal/source"
)

// CheckShellSpans runs span invariants on a parsed script:
// 1) the script span belongs to sf and ends within its content
// 2) every node span is ordered, in bounds and points at sf
// 3) top-level statements appear in source order without overlap
func CheckShellSpans(s *shast.Script, sf *source.File) error {
	if s == nil || sf == nil {
		return fmt.Errorf("nil script or file")
	}
	limit, err := contentLen(sf)
	if err != nil {
		return err
	}
	if err := checkSpan("script", s.Span, sf.ID, limit); err != nil {
		return err
	}
	var walkErr error
	shast.Walk(s, func(n shast.Node) bool {
		if walkErr != nil {
			return false
		}
		walkErr = checkSpan(fmt.Sprintf("%T", n), n.Pos(), sf.ID, limit)
		return walkErr == nil
	})
	if walkErr != nil {
		return walkErr
	}
	spans := make([]source.Span, 0, len(s.Stmts))
	for _, st := range s.Stmts {
		spans = append(spans, st.Pos())
	}
	return checkOrdered("statement", spans, s.Span)
}

// CheckMakeSpans is CheckShellSpans for Makefiles; nested items of
// conditionals are checked for bounds only.
func CheckMakeSpans(f *mkast.File, sf *source.File) error {
	if f == nil || sf == nil {
		return fmt.Errorf("nil makefile or file")
	}
	limit, err := contentLen(sf)
	if err != nil {
		return err
	}
	if err := checkSpan("file", f.Span, sf.ID, limit); err != nil {
		return err
	}
	var walkErr error
	mkast.Walk(f.Items, func(it mkast.Item) bool {
		if walkErr != nil {
			return false
		}
		walkErr = checkSpan(fmt.Sprintf("%T", it), it.Pos(), sf.ID, limit)
		return walkErr == nil
	})
	if walkErr != nil {
		return walkErr
	}
	spans := make([]source.Span, 0, len(f.Items))
	for _, it := range f.Items {
		spans = append(spans, it.Pos())
	}
	return checkOrdered("item", spans, f.Span)
}

func contentLen(sf *source.File) (uint32, error) {
	n, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return 0, fmt.Errorf("len content overflow: %w", err)
	}
	return n, nil
}

func checkSpan(what string, sp source.Span, id source.FileID, limit uint32) error {
	if sp.End < sp.Start {
		return fmt.Errorf("%s span is inverted: %v", what, sp)
	}
	if sp.End > limit {
		return fmt.Errorf("%s span end beyond content: %d > %d", what, sp.End, limit)
	}
	// пустые спаны синтезированных узлов не привязаны к файлу
	if !sp.Empty() && sp.File != id {
		return fmt.Errorf("%s span file mismatch: got=%d want=%d", what, sp.File, id)
	}
	return nil
}

func checkOrdered(what string, spans []source.Span, outer source.Span) error {
	var prevEnd uint32
	for i, sp := range spans {
		if sp.Empty() {
			continue
		}
		if sp.Start < outer.Start || sp.End > outer.End {
			return fmt.Errorf("%s %d span %v is outside %v", what, i, sp, outer)
		}
		if sp.Start < prevEnd {
			return fmt.Errorf("%s %d span %v overlaps the previous one (end %d)", what, i, sp, prevEnd)
		}
		prevEnd = sp.End
	}
	return nil
}
