// Package progress computes completion percentages for levels and routines.
//
// All functions are pure. Percentages use integer floor division and are
// clamped to [0,100]; an empty denominator yields 0, never 100.
package progress

import "github.com/roach88/hackpath/internal/content"

// Summary is the shape returned to presentation code for any progress query.
type Summary struct {
	Percentage     int  `json:"percentage"`
	CompletedCount int  `json:"completed_count"`
	TotalCount     int  `json:"total_count"`
	IsCompleted    bool `json:"is_completed"`
}

// Percentage returns floor(done/total*100), or 0 when total <= 0.
func Percentage(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}

// NewSummary builds a Summary from counts. done is clamped to [0,total].
func NewSummary(done, total int) Summary {
	if total < 0 {
		total = 0
	}
	done = min(max(done, 0), total)
	pct := Percentage(done, total)
	return Summary{
		Percentage:     pct,
		CompletedCount: done,
		TotalCount:     total,
		IsCompleted:    pct == 100,
	}
}

// ComputeLevelProgress counts the level's required hacks found in completed.
//
// Optional hacks never count toward a level. IsUnlocked is left false; the
// unlock evaluator owns that field.
func ComputeLevelProgress(level content.Node, hacks []content.Node, completed content.Set) content.LevelProgress {
	total, done := 0, 0
	for _, h := range hacks {
		if !h.RequiredInParent {
			continue
		}
		total++
		if completed.Has(h.ID) {
			done++
		}
	}
	s := NewSummary(done, total)
	return content.LevelProgress{
		LevelID:                level.ID,
		CompletedRequiredCount: s.CompletedCount,
		TotalRequiredCount:     s.TotalCount,
		IsCompleted:            s.IsCompleted,
	}
}

// LevelSummary converts a LevelProgress into a Summary.
func LevelSummary(lp content.LevelProgress) Summary {
	return NewSummary(lp.CompletedRequiredCount, lp.TotalRequiredCount)
}

// ComputeRoutineProgress counts the routine steps found in completedSteps.
// The total is routine.TotalSteps().
func ComputeRoutineProgress(routine content.Routine, completedSteps content.Set) Summary {
	done := 0
	for _, id := range routine.Steps {
		if completedSteps.Has(id) {
			done++
		}
	}
	return NewSummary(done, routine.TotalSteps())
}
