package publish

import "context"

// DaySummary is the boundary record pushed to the hosted dashboard backend
// after a business day completes.
type DaySummary struct {
	Restaurant string `json:"restaurant"`
	Date       string `json:"business_date"`
	Orders     int    `json:"orders"`
	HotSlots   int    `json:"hot_slots"`
	ColdSlots  int    `json:"cold_slots"`
	Passed     int    `json:"slots_passed"`
	Failed     int    `json:"slots_failed"`
	Patterns   int    `json:"patterns_updated"`
}

type Publisher interface {
	PublishDay(ctx context.Context, summary DaySummary) (int64, error)
}
