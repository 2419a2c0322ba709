package roster

import (
	"time"

	"github.com/shiftpulse/backend/internal/models"
	"github.com/shiftpulse/backend/internal/utils"
)

// Matcher resolves a POS server name against the staffing roster. Names on
// the two sides rarely agree byte-for-byte ("Smith, J" vs "john smith").
type Matcher interface {
	Match(name string) (models.TimeEntry, bool)
}

type FuzzyMatcher struct {
	entries   []models.TimeEntry
	threshold float64
}

func NewFuzzyMatcher(entries []models.TimeEntry) *FuzzyMatcher {
	return &FuzzyMatcher{entries: entries, threshold: 0.5}
}

func (m *FuzzyMatcher) Match(name string) (models.TimeEntry, bool) {
	best := models.TimeEntry{}
	bestScore := 0.0
	for _, e := range m.entries {
		score := utils.NameSimilarity(name, e.Employee)
		if score > bestScore {
			best = e
			bestScore = score
		}
	}
	if bestScore < m.threshold {
		return models.TimeEntry{}, false
	}
	return best, true
}

// ActiveDuring counts entries whose clock interval intersects [start, end).
func ActiveDuring(entries []models.TimeEntry, start, end time.Time) int {
	count := 0
	for _, e := range entries {
		if e.ClockIn.Before(end) && e.ClockOut.After(start) {
			count++
		}
	}
	return count
}

// TotalHours sums clocked hours across the roster.
func TotalHours(entries []models.TimeEntry) float64 {
	total := 0.0
	for _, e := range entries {
		total += e.Hours()
	}
	return total
}
