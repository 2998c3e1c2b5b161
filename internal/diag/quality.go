package diag

import "strings"

// Weights of the diagnostic quality score. They sum to qualityTotal.
const (
	weightMessage = 1.0
	weightNote    = 2.5
	weightHelp    = 2.5
	weightFile    = 1.0
	weightLine    = 0.25
	weightColumn  = 0.25
	weightSnippet = 1.0

	qualityTotal = 8.5
)

// ScoreInput lists which parts of a diagnostic are present.
type ScoreInput struct {
	Message bool
	Note    bool
	Help    bool
	File    bool
	Line    bool
	Column  bool
	Snippet bool
}

// QualityScore rates how actionable a diagnostic is, in [0, 1].
func QualityScore(in ScoreInput) float64 {
	var sum float64
	add := func(present bool, w float64) {
		if present {
			sum += w
		}
	}
	add(in.Message, weightMessage)
	add(in.Note, weightNote)
	add(in.Help, weightHelp)
	add(in.File, weightFile)
	add(in.Line, weightLine)
	add(in.Column, weightColumn)
	add(in.Snippet, weightSnippet)

	score := sum / qualityTotal
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// ScoreInputOf collects presence flags from free-form fields.
func ScoreInputOf(msg, note, help string, loc Location) ScoreInput {
	return ScoreInput{
		Message: strings.TrimSpace(msg) != "",
		Note:    strings.TrimSpace(note) != "",
		Help:    strings.TrimSpace(help) != "",
		File:    loc.File != "",
		Line:    loc.Line > 0,
		Column:  loc.Column > 0,
		Snippet: loc.SourceLine != "",
	}
}
