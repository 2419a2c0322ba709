package roster

import (
	"testing"
	"time"

	"github.com/shiftpulse/backend/internal/models"
)

func TestFuzzyMatcher(t *testing.T) {
	entries := []models.TimeEntry{
		{Employee: "Smith, John", Position: "Server"},
		{Employee: "Jane Quill", Position: "Drive Thru Cashier"},
	}
	m := NewFuzzyMatcher(entries)

	e, ok := m.Match("john smith")
	if !ok {
		t.Fatalf("expected reordered name to match")
	}
	if e.Position != "Server" {
		t.Fatalf("matched wrong entry: %+v", e)
	}

	e, ok = m.Match("Jane")
	if !ok {
		t.Fatalf("expected partial name to match")
	}
	if e.Employee != "Jane Quill" {
		t.Fatalf("matched wrong entry: %+v", e)
	}

	if _, ok := m.Match("Totally Different"); ok {
		t.Fatalf("expected no match below the threshold")
	}
	if _, ok := m.Match(""); ok {
		t.Fatalf("expected empty name to not match")
	}
}

func TestActiveDuring(t *testing.T) {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	entries := []models.TimeEntry{
		{Employee: "a", ClockIn: day.Add(6 * time.Hour), ClockOut: day.Add(14 * time.Hour)},
		{Employee: "b", ClockIn: day.Add(10 * time.Hour), ClockOut: day.Add(18 * time.Hour)},
		{Employee: "c", ClockIn: day.Add(14 * time.Hour), ClockOut: day.Add(22 * time.Hour)},
	}

	got := ActiveDuring(entries, day.Add(11*time.Hour), day.Add(11*time.Hour+15*time.Minute))
	if got != 2 {
		t.Fatalf("expected 2 active during 11:00 slot, got %d", got)
	}
	// Clock-out at exactly the slot start does not count.
	got = ActiveDuring(entries, day.Add(14*time.Hour), day.Add(14*time.Hour+15*time.Minute))
	if got != 2 {
		t.Fatalf("expected 2 active during 14:00 slot, got %d", got)
	}
}

func TestTotalHours(t *testing.T) {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	entries := []models.TimeEntry{
		{Employee: "a", ClockIn: day.Add(6 * time.Hour), ClockOut: day.Add(14 * time.Hour)},
		{Employee: "b", ClockIn: day.Add(9 * time.Hour), ClockOut: day.Add(13*time.Hour + 30*time.Minute)},
		{Employee: "bad", ClockIn: day.Add(10 * time.Hour), ClockOut: day.Add(9 * time.Hour)},
	}
	if got := TotalHours(entries); got != 12.5 {
		t.Fatalf("expected 12.5 hours, got %v", got)
	}
}
