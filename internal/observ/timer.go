// Package observ measures pipeline phases per file and across a batch.
package observ

import (
	"fmt"
	"strings"
	"time"
)

type span struct {
	name  string
	start time.Time
	dur   time.Duration
	note  string
}

// Timer records the phases of one file in call order. Not safe for
// concurrent use: every worker owns its timer.
type Timer struct {
	spans []span
}

// NewTimer returns an empty timer.
func NewTimer() *Timer { return &Timer{spans: make([]span, 0, 5)} }

// Begin opens a phase and returns the handle End expects.
func (t *Timer) Begin(name string) int {
	t.spans = append(t.spans, span{name: name, start: time.Now()})
	return len(t.spans) - 1
}

// End closes the phase idx; unknown handles are ignored.
func (t *Timer) End(idx int, note string) time.Duration {
	if idx < 0 || idx >= len(t.spans) {
		return 0
	}
	s := &t.spans[idx]
	s.dur = time.Since(s.start)
	s.note = note
	return s.dur
}

// Measure runs fn as the phase name; fn returns the phase note.
func (t *Timer) Measure(name string, fn func() string) time.Duration {
	idx := t.Begin(name)
	return t.End(idx, fn())
}

// Summary is Report().String().
func (t *Timer) Summary() string {
	return t.Report().String()
}

// PhaseReport is one line of a report. Count is 1 for a single file and the
// number of files that ran the phase after Merge.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count"`
	Note       string  `json:"note,omitempty"`
}

// Report is the serialisable form of a timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report снимает текущие фазы; незакрытые фазы идут с нулевой длительностью.
func (t *Timer) Report() Report {
	if len(t.spans) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.spans))}
	var total time.Duration
	for i, s := range t.spans {
		total += s.dur
		report.Phases[i] = PhaseReport{Name: s.name, DurationMS: millis(s.dur), Count: 1, Note: s.note}
	}
	report.TotalMS = millis(total)
	return report
}

// Merge sums reports phase by phase, keeping first-seen phase order.
// Notes are per file and are dropped.
func Merge(reports ...Report) Report {
	var out Report
	index := make(map[string]int)
	for _, r := range reports {
		for _, p := range r.Phases {
			i, ok := index[p.Name]
			if !ok {
				i = len(out.Phases)
				index[p.Name] = i
				out.Phases = append(out.Phases, PhaseReport{Name: p.Name})
			}
			out.Phases[i].DurationMS += p.DurationMS
			out.Phases[i].Count += max(p.Count, 1)
		}
		out.TotalMS += r.TotalMS
	}
	return out
}

// Slowest returns the phase with the largest duration.
func (r Report) Slowest() (PhaseReport, bool) {
	if len(r.Phases) == 0 {
		return PhaseReport{}, false
	}
	best := r.Phases[0]
	for _, p := range r.Phases[1:] {
		if p.DurationMS > best.DurationMS {
			best = p
		}
	}
	return best, true
}

// String renders the report as an aligned table; merged phases show their
// file count.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&b, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Count > 1 {
			fmt.Fprintf(&b, "  x%d", p.Count)
		}
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms\n", "total", r.TotalMS)
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
