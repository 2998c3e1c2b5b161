package diag

import (
	"math"
	"testing"

	"shellpure/internal/source"
)

func TestQualityScore_FloorWithoutLocation(t *testing.T) {
	d := New(SevError, "SEC001", "eval of untrusted input", "", "")
	if d.Note == "" || d.Help == "" {
		t.Fatalf("note and help must never be empty: %+v", d)
	}
	score := d.QualityScore()
	if score < 0.70 {
		t.Fatalf("score %.4f below floor", score)
	}
	if want := 6.0 / 8.5; math.Abs(score-want) > 1e-9 {
		t.Fatalf("score = %.6f, want %.6f", score, want)
	}
}

func TestQualityScore_FullLocation(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("deploy.sh", []byte("#!/bin/sh\neval \"$CMD\"\n"))
	d := New(SevError, "SEC001", "eval of untrusted input", "note", "help").
		At(fs, source.Span{File: id, Start: 10, End: 14})

	if d.Location.Line != 2 || d.Location.Column != 1 || d.Location.SourceLine != "eval \"$CMD\"" {
		t.Fatalf("unexpected location %+v", d.Location)
	}
	if got := d.QualityScore(); got != 1.0 {
		t.Fatalf("score = %v, want exactly 1.0", got)
	}
}

func TestQualityScore_Partial(t *testing.T) {
	tests := []struct {
		name string
		in   ScoreInput
		want float64
	}{
		{"nothing", ScoreInput{}, 0},
		{"message only", ScoreInput{Message: true}, 1.0 / 8.5},
		{"line only location", ScoreInput{Message: true, Note: true, Help: true, Line: true}, 6.25 / 8.5},
		{"all", ScoreInput{true, true, true, true, true, true, true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityScore(tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
