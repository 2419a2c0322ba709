package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/models"
)

// Observation is one order's fulfillment time, keyed the way the timeslot
// pattern learner expects. The grader emits observations only for slots
// that fully pass, so the learned baselines track good service.
type Observation struct {
	DayName         string
	Shift           models.Shift
	TimeWindow      string
	Category        models.Category
	FulfillmentMins float64
}

type GradeResult struct {
	Observations []Observation
	Graded       int
	Passed       int
	Warnings     int
	Failed       int
	HotSlots     int
	ColdSlots    int
}

type Grader struct {
	cfg    config.GradingConfig
	logger zerolog.Logger
}

func NewGrader(cfg config.GradingConfig, logger zerolog.Logger) *Grader {
	return &Grader{cfg: cfg, logger: logger}
}

// GradeDay scores every slot against the fixed standards and, where a
// reliable pattern exists, against the learned baseline, then folds the
// hot/cold streak state across the slots in chronological order. history is
// keyed "{shift}_{window}" as produced by the timeslot manager.
func (g *Grader) GradeDay(day *DaySlots, history map[string]map[models.Category]models.TimeslotPattern, dayName string) GradeResult {
	result := GradeResult{}
	slots := day.All()

	for _, slot := range slots {
		g.gradeSlot(slot, history[string(slot.Shift)+"_"+slot.Label])
		result.Graded++
		switch slot.Status {
		case models.StatusPass:
			result.Passed++
		case models.StatusWarning:
			result.Warnings++
		case models.StatusFail:
			result.Failed++
		}
	}

	g.foldStreaks(slots, &result)

	for _, slot := range slots {
		if slot.Empty || !slot.PassedStandards || !slot.PassedHistory {
			continue
		}
		for _, o := range slot.Orders {
			result.Observations = append(result.Observations, Observation{
				DayName:         dayName,
				Shift:           slot.Shift,
				TimeWindow:      slot.Label,
				Category:        o.Category,
				FulfillmentMins: o.FulfillmentMins,
			})
		}
	}
	return result
}

func (g *Grader) gradeSlot(slot *models.Timeslot, history map[models.Category]models.TimeslotPattern) {
	if slot.Empty {
		// Vacuous pass: nothing was served, nothing was late.
		slot.PassRateStandards = 100
		slot.PassRateHistory = 100
		slot.PassedStandards = true
		slot.PassedHistory = true
		slot.Status = models.StatusPass
		return
	}

	stdPassed := 0
	histPassed := 0
	histTotal := 0
	var failures []models.FailureRecord

	for _, o := range slot.Orders {
		target := g.standardFor(o.Category)
		passStd := o.FulfillmentMins <= target*g.cfg.Tolerance
		if passStd {
			stdPassed++
		}

		passHist := true
		var pattern *models.TimeslotPattern
		if p, ok := history[o.Category]; ok {
			pattern = &p
			histTotal++
			passHist = o.FulfillmentMins <= p.Baseline*g.cfg.Tolerance
			if passHist {
				histPassed++
			}
		}

		if !passStd || !passHist {
			rec := models.FailureRecord{
				CheckID:         o.CheckID,
				Category:        o.Category,
				Employee:        o.Server,
				OrderedAt:       o.OrderedAt.Format(time.RFC3339),
				FulfillmentMins: o.FulfillmentMins,
				FailedStandards: !passStd,
				FailedHistory:   !passHist,
				Target:          target,
			}
			if pattern != nil {
				rec.Baseline = pattern.Baseline
				rec.Variance = pattern.Variance
			}
			failures = append(failures, rec)
		}
	}

	slot.PassRateStandards = float64(stdPassed) / float64(slot.TotalOrders) * 100
	if histTotal == 0 {
		slot.PassRateHistory = 100
	} else {
		slot.PassRateHistory = float64(histPassed) / float64(histTotal) * 100
	}
	slot.PassedStandards = slot.PassRateStandards >= g.cfg.PassRate
	slot.PassedHistory = slot.PassRateHistory >= g.cfg.PassRate
	slot.Failures = failures

	switch {
	case slot.PassRateStandards >= g.cfg.PassRate:
		slot.Status = models.StatusPass
	case slot.PassRateStandards >= g.cfg.WarningRate:
		slot.Status = models.StatusWarning
	default:
		slot.Status = models.StatusFail
	}
}

// foldStreaks walks the slots chronologically, extending hot runs while
// pass rates hold above the pass cut-off, cold runs while they sit below
// the warning cut-off, and resetting both in the band between.
func (g *Grader) foldStreaks(slots []*models.Timeslot, result *GradeResult) {
	prevHot := false
	prevCold := false
	runPasses := 0
	runFails := 0

	for _, slot := range slots {
		rate := slot.PassRateStandards
		switch {
		case rate >= g.cfg.PassRate:
			if prevHot {
				runPasses++
			} else {
				runPasses = 1
			}
			runFails = 0
			slot.StreakType = models.StreakHot
			slot.ConsecutivePasses = runPasses
			slot.ConsecutiveFails = 0
			prevHot, prevCold = true, false
			result.HotSlots++
		case rate < g.cfg.WarningRate:
			if prevCold {
				runFails++
			} else {
				runFails = 1
			}
			runPasses = 0
			slot.StreakType = models.StreakCold
			slot.ConsecutiveFails = runFails
			slot.ConsecutivePasses = 0
			if runFails == 1 {
				for i := range slot.Failures {
					slot.Failures[i].NewStreak = true
				}
			}
			prevHot, prevCold = false, true
			result.ColdSlots++
		default:
			runPasses = 0
			runFails = 0
			slot.StreakType = models.StreakNone
			slot.ConsecutivePasses = 0
			slot.ConsecutiveFails = 0
			prevHot, prevCold = false, false
		}
	}
}

func (g *Grader) standardFor(category models.Category) float64 {
	switch category {
	case models.CategoryLobby:
		return g.cfg.LobbyStandardMins
	case models.CategoryDriveThru:
		return g.cfg.DriveStandardMins
	default:
		return g.cfg.ToGoStandardMins
	}
}
