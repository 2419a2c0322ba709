package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/models"
)

func testGrader() *Grader {
	return NewGrader(config.DefaultGrading(), zerolog.Nop())
}

func makeSlot(label string, orders ...models.Order) models.Timeslot {
	slot := models.Timeslot{Label: label, Shift: models.ShiftMorning, Orders: orders}
	fillSlotStats(&slot, nil)
	return slot
}

func lobbyOrders(mins ...float64) []models.Order {
	out := make([]models.Order, 0, len(mins))
	for i, m := range mins {
		out = append(out, models.Order{
			CheckID:         string(rune('a' + i)),
			Category:        models.CategoryLobby,
			FulfillmentMins: m,
			OrderedAt:       time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		})
	}
	return out
}

func TestGradeSlotPassWarningFail(t *testing.T) {
	g := testGrader()

	// 9 of 10 within 15 * 1.15: pass.
	pass := makeSlot("10:00-10:15", lobbyOrders(10, 10, 10, 10, 10, 10, 10, 10, 10, 30)...)
	g.gradeSlot(&pass, nil)
	if pass.PassRateStandards != 90 {
		t.Fatalf("expected 90%% standards rate, got %v", pass.PassRateStandards)
	}
	if pass.Status != models.StatusPass {
		t.Fatalf("expected pass, got %s", pass.Status)
	}

	// 7 of 10: warning band.
	warn := makeSlot("10:15-10:30", lobbyOrders(10, 10, 10, 10, 10, 10, 10, 30, 30, 30)...)
	g.gradeSlot(&warn, nil)
	if warn.Status != models.StatusWarning {
		t.Fatalf("expected warning at 70%%, got %s (%v)", warn.Status, warn.PassRateStandards)
	}

	// 5 of 10: fail.
	fail := makeSlot("10:30-10:45", lobbyOrders(10, 10, 10, 10, 10, 30, 30, 30, 30, 30)...)
	g.gradeSlot(&fail, nil)
	if fail.Status != models.StatusFail {
		t.Fatalf("expected fail at 50%%, got %s", fail.Status)
	}
	if len(fail.Failures) != 5 {
		t.Fatalf("expected 5 failure records, got %d", len(fail.Failures))
	}
}

func TestGradeSlotEmptyVacuousPass(t *testing.T) {
	g := testGrader()
	slot := models.Timeslot{Label: "06:00-06:15", Shift: models.ShiftMorning, Empty: true}
	g.gradeSlot(&slot, nil)
	if slot.Status != models.StatusPass {
		t.Fatalf("expected empty slot to pass, got %s", slot.Status)
	}
	if slot.PassRateStandards != 100 || slot.PassRateHistory != 100 {
		t.Fatalf("expected vacuous 100%% rates, got %v/%v", slot.PassRateStandards, slot.PassRateHistory)
	}
}

func TestGradeSlotHistoryTrack(t *testing.T) {
	g := testGrader()
	slot := makeSlot("10:00-10:15", lobbyOrders(10)...)
	history := map[models.Category]models.TimeslotPattern{
		models.CategoryLobby: {Baseline: 5, Variance: 1, Confidence: 0.7, Observations: 10},
	}
	g.gradeSlot(&slot, history)
	if !slot.PassedStandards {
		t.Fatalf("10 min lobby order should pass the fixed standard")
	}
	if slot.PassedHistory {
		t.Fatalf("10 min against baseline 5 should fail the history track")
	}
	if len(slot.Failures) != 1 {
		t.Fatalf("expected a failure record, got %d", len(slot.Failures))
	}
	rec := slot.Failures[0]
	if rec.FailedStandards || !rec.FailedHistory {
		t.Fatalf("expected history-only failure, got %+v", rec)
	}
	if rec.Baseline != 5 {
		t.Fatalf("expected baseline on record, got %v", rec.Baseline)
	}
}

func TestGradeSlotNoHistoryPassesHistoryTrack(t *testing.T) {
	g := testGrader()
	slot := makeSlot("10:00-10:15", lobbyOrders(10)...)
	g.gradeSlot(&slot, nil)
	if slot.PassRateHistory != 100 || !slot.PassedHistory {
		t.Fatalf("no patterns should mean vacuous history pass, got %v", slot.PassRateHistory)
	}
}

func TestFoldStreaksHotRun(t *testing.T) {
	g := testGrader()
	slots := []models.Timeslot{
		makeSlot("10:00-10:15", lobbyOrders(10)...),
		{Label: "10:15-10:30", Shift: models.ShiftMorning, Empty: true},
		makeSlot("10:30-10:45", lobbyOrders(10)...),
	}
	for i := range slots {
		g.gradeSlot(&slots[i], nil)
	}
	ptrs := []*models.Timeslot{&slots[0], &slots[1], &slots[2]}
	var result GradeResult
	g.foldStreaks(ptrs, &result)

	if result.HotSlots != 3 {
		t.Fatalf("expected 3 hot slots, got %d", result.HotSlots)
	}
	if slots[2].ConsecutivePasses != 3 {
		t.Fatalf("expected streak of 3, got %d", slots[2].ConsecutivePasses)
	}
	if slots[2].StreakType != models.StreakHot {
		t.Fatalf("expected hot streak, got %q", slots[2].StreakType)
	}
}

func TestFoldStreaksColdRunMarksNewStreak(t *testing.T) {
	g := testGrader()
	slots := []models.Timeslot{
		makeSlot("10:00-10:15", lobbyOrders(10)...),
		makeSlot("10:15-10:30", lobbyOrders(30, 30, 10)...),
		makeSlot("10:30-10:45", lobbyOrders(30, 30, 10)...),
	}
	for i := range slots {
		g.gradeSlot(&slots[i], nil)
	}
	ptrs := []*models.Timeslot{&slots[0], &slots[1], &slots[2]}
	var result GradeResult
	g.foldStreaks(ptrs, &result)

	if slots[1].ConsecutiveFails != 1 || slots[2].ConsecutiveFails != 2 {
		t.Fatalf("expected cold run 1 then 2, got %d and %d", slots[1].ConsecutiveFails, slots[2].ConsecutiveFails)
	}
	for _, rec := range slots[1].Failures {
		if !rec.NewStreak {
			t.Fatalf("first cold slot failures must be flagged as a new streak")
		}
	}
	for _, rec := range slots[2].Failures {
		if rec.NewStreak {
			t.Fatalf("continuation slot failures must not be flagged as new")
		}
	}
	if result.ColdSlots != 2 {
		t.Fatalf("expected 2 cold slots, got %d", result.ColdSlots)
	}
}

func TestGradeDayObservationsOnlyFromFullyPassingSlots(t *testing.T) {
	g := testGrader()
	day := BuildDaySlots(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	base := time.Date(2025, 3, 3, 10, 2, 0, 0, time.UTC)
	day.Morning[16].Orders = []models.Order{
		{CheckID: "ok", Category: models.CategoryLobby, FulfillmentMins: 10, OrderedAt: base},
	}
	fillSlotStats(&day.Morning[16], nil)
	day.Morning[17].Orders = []models.Order{
		{CheckID: "late", Category: models.CategoryLobby, FulfillmentMins: 40, OrderedAt: base.Add(15 * time.Minute)},
	}
	fillSlotStats(&day.Morning[17], nil)

	result := g.GradeDay(&day, nil, "Monday")
	if result.Graded != 64 {
		t.Fatalf("expected 64 graded slots, got %d", result.Graded)
	}
	if len(result.Observations) != 1 {
		t.Fatalf("expected 1 observation from the passing slot, got %d", len(result.Observations))
	}
	obs := result.Observations[0]
	if obs.TimeWindow != "10:00-10:15" || obs.Category != models.CategoryLobby || obs.DayName != "Monday" {
		t.Fatalf("unexpected observation %+v", obs)
	}
}
