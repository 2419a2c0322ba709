package patterns

import (
	"context"
	"errors"
	"fmt"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/models"
)

// DailyManager learns per-day-of-week labor baselines for one restaurant.
// One manager instance per restaurant; observations never mix across
// restaurants.
type DailyManager struct {
	restaurant string
	storage    Storage[models.DailyPattern]
	cfg        config.LearningConfig
}

func NewDailyManager(restaurant string, storage Storage[models.DailyPattern], cfg config.LearningConfig) *DailyManager {
	return &DailyManager{restaurant: restaurant, storage: storage, cfg: cfg}
}

// Learn folds one observed day into the pattern for that day of week and
// returns the replacement value.
func (m *DailyManager) Learn(ctx context.Context, dayOfWeek int, laborPct, totalHours float64) (models.DailyPattern, error) {
	key := fmt.Sprintf("%s|%d", m.restaurant, dayOfWeek)

	existing, err := m.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return models.DailyPattern{}, err
		}
		created, err := models.NewDailyPattern(m.restaurant, dayOfWeek, laborPct, totalHours, m.confidence(1), 1)
		if err != nil {
			return models.DailyPattern{}, err
		}
		if err := m.storage.Save(ctx, created); err != nil {
			return models.DailyPattern{}, err
		}
		return created, nil
	}

	lr := m.cfg.MatureRate
	if existing.Observations < m.cfg.EarlyThreshold {
		lr = m.cfg.EarlyRate
	}
	n := existing.Observations + 1
	updated, err := models.NewDailyPattern(
		m.restaurant,
		dayOfWeek,
		(1-lr)*existing.LaborPct+lr*laborPct,
		(1-lr)*existing.TotalHours+lr*totalHours,
		m.confidence(n),
		n,
	)
	if err != nil {
		return models.DailyPattern{}, err
	}
	if err := m.storage.Update(ctx, updated); err != nil {
		return models.DailyPattern{}, err
	}
	return updated, nil
}

// Get returns the reliable pattern for the day of week, or a fallback
// synthesized from the restaurant's other reliable days. A nil pattern with
// nil error means no usable history exists and the caller must grade against
// fixed standards only.
func (m *DailyManager) Get(ctx context.Context, dayOfWeek int, useFallbacks bool) (*models.DailyPattern, error) {
	key := fmt.Sprintf("%s|%d", m.restaurant, dayOfWeek)

	exact, err := m.storage.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err == nil && m.Reliable(exact.Confidence, exact.Observations) {
		return &exact, nil
	}
	if !useFallbacks {
		return nil, nil
	}

	all, err := m.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	var reliable []models.DailyPattern
	for _, p := range all {
		if p.Restaurant != m.restaurant || p.DayOfWeek == dayOfWeek {
			continue
		}
		if m.Reliable(p.Confidence, p.Observations) {
			reliable = append(reliable, p)
		}
	}

	switch len(reliable) {
	case 0:
		return nil, nil
	case 1:
		// A single reliable day is returned as-is, no averaging.
		return &reliable[0], nil
	}

	var pctSum, hoursSum, confSum float64
	obsSum := 0
	for _, p := range reliable {
		pctSum += p.LaborPct
		hoursSum += p.TotalHours
		confSum += p.Confidence
		obsSum += p.Observations
	}
	n := float64(len(reliable))
	synthetic, err := models.NewDailyPattern(m.restaurant, dayOfWeek, pctSum/n, hoursSum/n, confSum/n, obsSum)
	if err != nil {
		return nil, err
	}
	return &synthetic, nil
}

func (m *DailyManager) Reliable(confidence float64, observations int) bool {
	return confidence >= m.cfg.MinConfidence && observations >= m.cfg.MinObservations
}

// confidence(n) = min(maxConfidence, 1 - 1/(n+1)); 0.5 after the first
// observation, approaching the cap from below.
func (m *DailyManager) confidence(observations int) float64 {
	c := 1 - 1/float64(observations+1)
	if c > m.cfg.MaxConfidence {
		return m.cfg.MaxConfidence
	}
	return c
}
