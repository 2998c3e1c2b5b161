package driver

import (
	"shellpure/internal/observ"
)

// AggregateTimings sums phase durations over a batch, phases in first-seen
// order. Cached and failed files contribute what they ran.
func AggregateTimings(results []*FileResult) observ.Report {
	reports := make([]observ.Report, 0, len(results))
	for _, r := range results {
		if r != nil {
			reports = append(reports, r.Timing)
		}
	}
	return observ.Merge(reports...)
}
