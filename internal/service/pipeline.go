package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/db"
	"github.com/shiftpulse/backend/internal/models"
	"github.com/shiftpulse/backend/internal/patterns"
	"github.com/shiftpulse/backend/internal/publish"
	"github.com/shiftpulse/backend/internal/roster"
)

const (
	RunSuccess = "SUCCESS"
	RunFailed  = "FAILED"
	RunSkipped = "SKIPPED"
)

// ProcessingError marks a whole-stage failure: the business day is aborted
// and surfaced to the caller, unlike per-check failures which degrade
// locally.
type ProcessingError struct {
	Stage   string
	Message string
	Err     error
}

func (e ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

const (
	LearnLearned = "learned"
	LearnSkipped = "skipped"
)

// LearnOutcome distinguishes a completed learning pass from a deliberately
// skipped one. Both are non-error outcomes; pattern learning never fails a
// run.
type LearnOutcome struct {
	Status   string                   `json:"status"`
	Reason   string                   `json:"reason,omitempty"`
	Daily    *models.DailyPattern     `json:"daily,omitempty"`
	Timeslot []models.TimeslotPattern `json:"timeslot,omitempty"`
}

type DayInput struct {
	Restaurant string
	Date       time.Time
	Kitchen    []models.KitchenRow
	EndOfDay   []models.EndOfDayRow
	Details    []models.OrderDetailRow
	Roster     []models.TimeEntry
}

type DayResult struct {
	Orders   []models.Order
	Slots    DaySlots
	Grade    GradeResult
	Learning LearnOutcome
	Skipped  bool
	Summary  RunSummary
}

type RunSummary struct {
	Events  []map[string]any `json:"events"`
	Counts  map[string]any   `json:"counts"`
	Samples []map[string]any `json:"samples,omitempty"`
}

type ProcessingService struct {
	Store     *db.Store
	Publisher publish.Publisher
	Logger    zerolog.Logger
	Cfg       config.Config

	dailyStorage patterns.Storage[models.DailyPattern]
	slotStorage  patterns.Storage[models.TimeslotPattern]
	daily        map[string]*patterns.DailyManager
	slots        map[string]*patterns.TimeslotManager
}

// NewProcessingService wires the engine. Pattern state lives in the given
// storages and is carried across business days; every restaurant gets its
// own manager pair so observations never mix.
func NewProcessingService(store *db.Store, pub publish.Publisher, logger zerolog.Logger, cfg config.Config,
	dailyStorage patterns.Storage[models.DailyPattern], slotStorage patterns.Storage[models.TimeslotPattern]) *ProcessingService {
	return &ProcessingService{
		Store:        store,
		Publisher:    pub,
		Logger:       logger,
		Cfg:          cfg,
		dailyStorage: dailyStorage,
		slotStorage:  slotStorage,
		daily:        map[string]*patterns.DailyManager{},
		slots:        map[string]*patterns.TimeslotManager{},
	}
}

func (s *ProcessingService) DailyManager(restaurant string) *patterns.DailyManager {
	if m, ok := s.daily[restaurant]; ok {
		return m
	}
	m := patterns.NewDailyManager(restaurant, s.dailyStorage, s.Cfg.Learning)
	s.daily[restaurant] = m
	return m
}

// DailyPatterns exposes the stored daily aggregates for the API layer.
func (s *ProcessingService) DailyPatterns(ctx context.Context) ([]models.DailyPattern, error) {
	return s.dailyStorage.List(ctx)
}

func (s *ProcessingService) TimeslotManager(restaurant string) *patterns.TimeslotManager {
	if m, ok := s.slots[restaurant]; ok {
		return m
	}
	m := patterns.NewTimeslotManager(restaurant, s.slotStorage, s.Cfg.Learning)
	s.slots[restaurant] = m
	return m
}

// ProcessBusinessDay runs the engine over one day's already-loaded source
// rows: categorize, window, grade. It only reads pattern storage; learning
// is applied separately so pattern state never changes for a day whose
// results were not committed.
func (s *ProcessingService) ProcessBusinessDay(ctx context.Context, input DayInput, debug bool) (DayResult, error) {
	summary := RunSummary{Counts: map[string]any{}}
	start := time.Now()
	result := DayResult{Summary: summary}

	if len(input.Kitchen) == 0 && len(input.EndOfDay) == 0 && len(input.Details) == 0 {
		result.Skipped = true
		result.Summary.Counts["skipped_reason"] = "no source data"
		return result, nil
	}
	if len(input.Kitchen) == 0 {
		return result, ProcessingError{Stage: "categorize", Message: "kitchen log absent for business day"}
	}

	var staff roster.Matcher
	if len(input.Roster) > 0 {
		staff = roster.NewFuzzyMatcher(input.Roster)
	}

	categorizer := NewCategorizer(s.Cfg.Categorizer, staff, s.Logger)
	orders, catStats := categorizer.CategorizeOrders(input.Kitchen, input.EndOfDay, input.Details)
	result.Orders = orders
	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":       "categorization",
		"total":      catStats.Total,
		"lobby":      catStats.Lobby,
		"drive_thru": catStats.DriveThru,
		"togo":       catStats.ToGo,
		"excluded":   catStats.Excluded,
		"degraded":   catStats.Degraded,
		"time":       time.Now().UTC(),
	})

	slots, outOfHours := WindowOrders(orders, input.Date, input.Roster)
	result.Slots = slots
	windowed := 0
	for _, slot := range result.Slots.All() {
		windowed += slot.TotalOrders
	}
	if outOfHours > 0 {
		s.Logger.Warn().Int("orders", outOfHours).Msg("orders outside operating hours dropped from windowing")
	}
	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":          "windowing",
		"slot_orders":   windowed,
		"input_orders":  len(orders),
		"out_of_hours":  outOfHours,
		"morning_slots": len(result.Slots.Morning),
		"evening_slots": len(result.Slots.Evening),
		"time":          time.Now().UTC(),
	})

	dayName := input.Date.Weekday().String()
	slotManager := s.TimeslotManager(input.Restaurant)
	history, err := slotManager.PatternsForDay(ctx, dayName, true)
	if err != nil {
		return result, ProcessingError{Stage: "grade", Message: "loading timeslot patterns", Err: err}
	}

	grader := NewGrader(s.Cfg.Grading, s.Logger)
	grade := grader.GradeDay(&result.Slots, history, dayName)
	result.Grade = grade
	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":       "grading",
		"graded":     grade.Graded,
		"passed":     grade.Passed,
		"warnings":   grade.Warnings,
		"failed":     grade.Failed,
		"hot_slots":  grade.HotSlots,
		"cold_slots": grade.ColdSlots,
		"time":       time.Now().UTC(),
	})
	if debug {
		for _, slot := range result.Slots.All() {
			for _, f := range slot.Failures {
				if len(result.Summary.Samples) >= 5 {
					break
				}
				result.Summary.Samples = append(result.Summary.Samples, map[string]any{
					"slot":             slot.Label,
					"check_id":         f.CheckID,
					"category":         f.Category,
					"fulfillment_mins": f.FulfillmentMins,
					"target":           f.Target,
				})
			}
		}
	}

	result.Summary.Counts["orders"] = len(orders)
	result.Summary.Counts["slot_orders"] = windowed
	result.Summary.Counts["out_of_hours"] = outOfHours
	result.Summary.Counts["slots_passed"] = grade.Passed
	result.Summary.Counts["slots_warning"] = grade.Warnings
	result.Summary.Counts["slots_failed"] = grade.Failed
	result.Summary.Counts["elapsed_ms"] = time.Since(start).Milliseconds()
	return result, nil
}

// learn feeds fully passing slots into the timeslot learner and the day's
// labor metrics into the daily learner. Missing metrics skip learning with
// a recorded reason instead of failing the run. Called only after the day's
// results have committed.
func (s *ProcessingService) learn(ctx context.Context, input DayInput, grade GradeResult) LearnOutcome {
	outcome := LearnOutcome{Status: LearnLearned}

	slotManager := s.TimeslotManager(input.Restaurant)
	for _, obs := range grade.Observations {
		updated, err := slotManager.Learn(ctx, obs.DayName, obs.Shift, obs.TimeWindow, obs.Category, obs.FulfillmentMins)
		if err != nil {
			s.Logger.Warn().Err(err).Str("window", obs.TimeWindow).Msg("timeslot learning failed")
			continue
		}
		outcome.Timeslot = append(outcome.Timeslot, updated)
	}

	hours := roster.TotalHours(input.Roster)
	sales := 0.0
	for _, r := range input.EndOfDay {
		sales += r.NetSales
	}
	if hours <= 0 || sales <= 0 {
		if len(outcome.Timeslot) == 0 {
			outcome.Status = LearnSkipped
			outcome.Reason = "missing labor metrics and no passing slots"
		} else {
			outcome.Reason = "missing labor metrics, daily pattern not updated"
		}
		return outcome
	}

	laborPct := hours * s.Cfg.HourlyRate / sales * 100
	daily, err := s.DailyManager(input.Restaurant).Learn(ctx, int(input.Date.Weekday()), laborPct, hours)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("daily learning failed")
		outcome.Reason = "daily pattern update failed"
		return outcome
	}
	outcome.Daily = &daily
	return outcome
}

// ProcessDate loads one business day from the store, runs the engine, and
// persists the results transactionally. A failed day writes no orders, no
// timeslots, and is marked FAILED; a day without source data is SKIPPED.
func (s *ProcessingService) ProcessDate(ctx context.Context, restaurant string, date time.Time, debug bool) (DayResult, string, error) {
	dateKey := date.Format("2006-01-02")

	kitchen, err := s.Store.GetKitchenRows(ctx, restaurant, dateKey)
	if err != nil {
		return DayResult{}, RunFailed, err
	}
	endOfDay, err := s.Store.GetEndOfDayRows(ctx, restaurant, dateKey)
	if err != nil {
		return DayResult{}, RunFailed, err
	}
	details, err := s.Store.GetOrderDetailRows(ctx, restaurant, dateKey)
	if err != nil {
		return DayResult{}, RunFailed, err
	}
	timeEntries, err := s.Store.GetTimeEntries(ctx, restaurant, dateKey)
	if err != nil {
		return DayResult{}, RunFailed, err
	}

	input := DayInput{
		Restaurant: restaurant,
		Date:       date,
		Kitchen:    kitchen,
		EndOfDay:   endOfDay,
		Details:    details,
		Roster:     timeEntries,
	}
	result, err := s.ProcessBusinessDay(ctx, input, debug)
	if err != nil {
		return result, RunFailed, err
	}
	if result.Skipped {
		return result, RunSkipped, nil
	}

	err = s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.Store.DeleteDayResults(ctx, tx, restaurant, dateKey); err != nil {
			return err
		}
		if err := s.Store.InsertOrders(ctx, tx, restaurant, dateKey, result.Orders); err != nil {
			return err
		}
		return s.Store.InsertTimeslots(ctx, tx, restaurant, dateKey, result.Slots.All())
	})
	if err != nil {
		return result, RunFailed, err
	}

	// Pattern learning happens only once the day's results are committed;
	// a failed run leaves pattern state untouched.
	result.Learning = s.learn(ctx, input, result.Grade)
	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":              "pattern_learning",
		"status":            result.Learning.Status,
		"reason":            result.Learning.Reason,
		"timeslot_patterns": len(result.Learning.Timeslot),
		"time":              time.Now().UTC(),
	})
	result.Summary.Counts["patterns_updated"] = len(result.Learning.Timeslot)

	s.publishDay(ctx, restaurant, dateKey, result)
	return result, RunSuccess, nil
}

func (s *ProcessingService) publishDay(ctx context.Context, restaurant, dateKey string, result DayResult) {
	if s.Publisher == nil {
		return
	}
	summary := publish.DaySummary{
		Restaurant: restaurant,
		Date:       dateKey,
		Orders:     len(result.Orders),
		HotSlots:   result.Grade.HotSlots,
		ColdSlots:  result.Grade.ColdSlots,
		Passed:     result.Grade.Passed,
		Failed:     result.Grade.Failed,
		Patterns:   len(result.Learning.Timeslot),
	}
	latency, err := s.Publisher.PublishDay(ctx, summary)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("dashboard publish failed")
		return
	}
	s.Logger.Info().Int64("latency_ms", latency).Msg("dashboard publish complete")
}

func MarshalSummary(summary RunSummary) []byte {
	b, _ := json.Marshal(summary)
	return b
}
