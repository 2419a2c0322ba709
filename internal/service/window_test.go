package service

import (
	"testing"
	"time"

	"github.com/shiftpulse/backend/internal/models"
)

var testDay = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func TestBuildDaySlots(t *testing.T) {
	day := BuildDaySlots(testDay)
	if len(day.Morning) != 32 {
		t.Fatalf("expected 32 morning slots, got %d", len(day.Morning))
	}
	if len(day.Evening) != 32 {
		t.Fatalf("expected 32 evening slots, got %d", len(day.Evening))
	}
	if day.Morning[0].Label != "06:00-06:15" {
		t.Fatalf("expected first morning label 06:00-06:15, got %s", day.Morning[0].Label)
	}
	if day.Evening[0].Label != "14:00-14:15" {
		t.Fatalf("expected first evening label 14:00-14:15, got %s", day.Evening[0].Label)
	}
	last := day.Evening[31]
	if last.End.Hour() != 22 || last.End.Minute() != 0 {
		t.Fatalf("expected evening shift to end at 22:00, got %v", last.End)
	}
}

func TestBuildDaySlotsPeakWindows(t *testing.T) {
	day := BuildDaySlots(testDay)
	byLabel := map[string]models.Timeslot{}
	for _, s := range day.All() {
		byLabel[s.Label] = *s
	}
	if !byLabel["11:45-12:00"].PeakTime {
		t.Fatalf("expected 11:45-12:00 flagged as lunch peak")
	}
	if !byLabel["17:30-17:45"].PeakTime {
		t.Fatalf("expected 17:30-17:45 flagged as dinner peak")
	}
	if byLabel["06:00-06:15"].PeakTime {
		t.Fatalf("did not expect 06:00-06:15 to be peak")
	}
	if byLabel["13:00-13:15"].PeakTime {
		t.Fatalf("did not expect 13:00-13:15 to be peak")
	}
}

func TestWindowOrdersOverlapSpansSlots(t *testing.T) {
	// 22-minute prep starting 11:10 covers 11:00-11:15, 11:15-11:30 and
	// 11:30-11:45.
	orders := []models.Order{{
		CheckID:         "c1",
		Category:        models.CategoryLobby,
		OrderedAt:       testDay.Add(11*time.Hour + 10*time.Minute),
		FulfillmentMins: 22,
	}}
	day, outOfHours := WindowOrders(orders, testDay, nil)
	if outOfHours != 0 {
		t.Fatalf("expected no out-of-hours orders, got %d", outOfHours)
	}

	assigned := 0
	var labels []string
	for _, slot := range day.All() {
		if slot.TotalOrders > 0 {
			assigned += slot.TotalOrders
			labels = append(labels, slot.Label)
		}
	}
	if assigned != 3 {
		t.Fatalf("expected order in 3 slots, got %d (%v)", assigned, labels)
	}
	if assigned < len(orders) {
		t.Fatalf("summed slot totals %d below order count %d", assigned, len(orders))
	}
}

func TestWindowOrdersZeroDuration(t *testing.T) {
	orders := []models.Order{{
		CheckID:   "c1",
		Category:  models.CategoryToGo,
		OrderedAt: testDay.Add(9*time.Hour + 14*time.Minute),
	}}
	day, _ := WindowOrders(orders, testDay, nil)
	for _, slot := range day.All() {
		if slot.TotalOrders > 0 && slot.Label != "09:00-09:15" {
			t.Fatalf("zero-duration order landed in %s", slot.Label)
		}
	}
	if day.Morning[12].TotalOrders != 1 {
		t.Fatalf("expected containing slot 09:00-09:15 to hold the order")
	}
}

func TestWindowOrdersOutOfHoursCounted(t *testing.T) {
	orders := []models.Order{
		// Prepared entirely before opening.
		{CheckID: "early", Category: models.CategoryToGo, OrderedAt: testDay.Add(5 * time.Hour), FulfillmentMins: 10},
		// No usable timestamp.
		{CheckID: "blank", Category: models.CategoryToGo, FulfillmentMins: 5},
		{CheckID: "ok", Category: models.CategoryLobby, OrderedAt: testDay.Add(10 * time.Hour), FulfillmentMins: 4},
	}
	day, outOfHours := WindowOrders(orders, testDay, nil)
	if outOfHours != 2 {
		t.Fatalf("expected 2 out-of-hours orders, got %d", outOfHours)
	}
	windowed := 0
	for _, slot := range day.All() {
		windowed += slot.TotalOrders
	}
	if windowed != 1 {
		t.Fatalf("expected only the in-hours order windowed, got %d", windowed)
	}
	if windowed+outOfHours < len(orders) {
		t.Fatalf("every order must be windowed or counted out: %d + %d < %d", windowed, outOfHours, len(orders))
	}
}

func TestWindowOrdersSlotStats(t *testing.T) {
	base := testDay.Add(10 * time.Hour)
	orders := []models.Order{
		{CheckID: "a", Category: models.CategoryLobby, OrderedAt: base, FulfillmentMins: 4},
		{CheckID: "b", Category: models.CategoryDriveThru, OrderedAt: base.Add(time.Minute), FulfillmentMins: 6},
		{CheckID: "c", Category: models.CategoryToGo, OrderedAt: base.Add(2 * time.Minute), FulfillmentMins: 11},
	}
	entries := []models.TimeEntry{
		{Employee: "Jane", ClockIn: testDay.Add(6 * time.Hour), ClockOut: testDay.Add(14 * time.Hour)},
		{Employee: "Bob", ClockIn: testDay.Add(14 * time.Hour), ClockOut: testDay.Add(22 * time.Hour)},
	}
	day, _ := WindowOrders(orders, testDay, entries)

	slot := day.Morning[16] // 10:00-10:15
	if slot.LobbyCount != 1 || slot.DriveThruCount != 1 || slot.ToGoCount != 1 {
		t.Fatalf("category counts wrong: %+v", slot)
	}
	if slot.AvgFulfillment != 7 {
		t.Fatalf("expected avg 7, got %v", slot.AvgFulfillment)
	}
	if slot.MedFulfillment != 6 {
		t.Fatalf("expected median 6, got %v", slot.MedFulfillment)
	}
	if slot.ActiveStaff != 1 {
		t.Fatalf("expected 1 active staff in morning slot, got %d", slot.ActiveStaff)
	}
	if slot.Empty {
		t.Fatalf("slot with orders must not be empty")
	}
}
