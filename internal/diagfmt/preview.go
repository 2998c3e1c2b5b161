package diagfmt

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"shellpure/internal/diag"
	"shellpure/internal/source"
)

type fixPreview struct {
	before []string
	after  []string
}

// buildFixPreview renders the whole lines touched by fx before and after
// the replacement.
func buildFixPreview(fs *source.FileSet, fx *diag.Fix) (fixPreview, error) {
	if fs == nil {
		return fixPreview{}, fmt.Errorf("nil FileSet")
	}
	file := fs.Get(fx.Span.File)
	if file == nil {
		return fixPreview{}, fmt.Errorf("file %d not found in FileSet", fx.Span.File)
	}

	startPos, endPos := fs.Resolve(fx.Span)
	startLine := startPos.Line
	endLine := max(endPos.Line, startLine)

	blockStart := lineStartOffset(file, startLine)
	blockEnd := max(lineEndOffsetInclusive(file, endLine), blockStart)

	lenFileContent, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return fixPreview{}, fmt.Errorf("len file content overflow: %w", err)
	}
	blockEnd = min(blockEnd, lenFileContent)

	original := file.Content[blockStart:blockEnd]
	relStart := int(fx.Span.Start) - int(blockStart)
	relEnd := int(fx.Span.End) - int(blockStart)
	if relStart < 0 || relStart > len(original) {
		return fixPreview{}, fmt.Errorf("fix span start %d out of range for preview block", relStart)
	}
	if relEnd < relStart || relEnd > len(original) {
		return fixPreview{}, fmt.Errorf("fix span end %d out of range for preview block", relEnd)
	}

	after := make([]byte, 0, len(original)+len(fx.Replacement))
	after = append(after, original[:relStart]...)
	after = append(after, fx.Replacement...)
	after = append(after, original[relEnd:]...)

	return fixPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

func splitPreviewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	// хвостовой \n не даёт лишней пустой строки
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func lineStartOffset(f *source.File, line uint32) uint32 {
	if line <= 1 {
		return 0
	}
	idx := line - 2
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return contentLen(f)
}

func lineEndOffsetInclusive(f *source.File, line uint32) uint32 {
	if line == 0 {
		return 0
	}
	idx := line - 1
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return contentLen(f)
}

func contentLen(f *source.File) uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return n
}
