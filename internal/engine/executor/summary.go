package executor

import (
	"fmt"
	"time"

	"gitlab.com/plantguard-2025.net/internal/domain"
)

// Summarize aggregates results into a RunSummary.
func Summarize(results []domain.ExecutionResult) *domain.RunSummary {
	s := &domain.RunSummary{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	s.PassRate = PassRate(s.Passed, s.Total)
	return s
}

// PassRate formats passed/total as a percentage with one decimal, or "0%"
// for an empty run.
func PassRate(passed, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(passed)/float64(total)*100)
}

// FormatDuration renders d in whole milliseconds, e.g. "12ms".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
