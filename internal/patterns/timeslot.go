package patterns

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/models"
)

// TimeslotManager learns fulfillment-time baselines per
// (day name, shift, window, category) for one restaurant. Unlike the daily
// manager it smooths with a fixed alpha and its confidence converges slowly:
// crossing the reliability gate takes several dozen consistent observations.
type TimeslotManager struct {
	restaurant string
	storage    Storage[models.TimeslotPattern]
	cfg        config.LearningConfig
}

func NewTimeslotManager(restaurant string, storage Storage[models.TimeslotPattern], cfg config.LearningConfig) *TimeslotManager {
	return &TimeslotManager{restaurant: restaurant, storage: storage, cfg: cfg}
}

func (m *TimeslotManager) key(dayName string, shift models.Shift, timeWindow string, category models.Category) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", m.restaurant, dayName, shift, timeWindow, category)
}

// Learn folds one observed fulfillment time into the keyed pattern and
// returns the replacement value.
func (m *TimeslotManager) Learn(ctx context.Context, dayName string, shift models.Shift, timeWindow string, category models.Category, fulfillmentMins float64) (models.TimeslotPattern, error) {
	key := m.key(dayName, shift, timeWindow, category)

	existing, err := m.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return models.TimeslotPattern{}, err
		}
		created, err := models.NewTimeslotPattern(m.restaurant, dayName, shift, timeWindow, category,
			fulfillmentMins, 0, m.cfg.TimeslotInitialConf, 1)
		if err != nil {
			return models.TimeslotPattern{}, err
		}
		if err := m.storage.Save(ctx, created); err != nil {
			return models.TimeslotPattern{}, err
		}
		return created, nil
	}

	alpha := m.cfg.TimeslotAlpha
	deviation := math.Abs(fulfillmentMins - existing.Baseline)
	updated, err := models.NewTimeslotPattern(m.restaurant, dayName, shift, timeWindow, category,
		(1-alpha)*existing.Baseline+alpha*fulfillmentMins,
		(1-alpha)*existing.Variance+alpha*deviation,
		m.nextConfidence(existing.Confidence),
		existing.Observations+1,
	)
	if err != nil {
		return models.TimeslotPattern{}, err
	}
	if err := m.storage.Update(ctx, updated); err != nil {
		return models.TimeslotPattern{}, err
	}
	return updated, nil
}

// Get returns the keyed pattern only when it has cleared the reliability
// gate; nil otherwise.
func (m *TimeslotManager) Get(ctx context.Context, dayName string, shift models.Shift, timeWindow string, category models.Category) (*models.TimeslotPattern, error) {
	p, err := m.storage.Get(ctx, m.key(dayName, shift, timeWindow, category))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !m.Reliable(p.Confidence, p.Observations) {
		return nil, nil
	}
	return &p, nil
}

// PatternsForDay returns "{shift}_{window}" -> category -> pattern for the
// restaurant and day name, optionally filtered to reliable entries.
func (m *TimeslotManager) PatternsForDay(ctx context.Context, dayName string, reliableOnly bool) (map[string]map[models.Category]models.TimeslotPattern, error) {
	all, err := m.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]map[models.Category]models.TimeslotPattern{}
	for _, p := range all {
		if p.Restaurant != m.restaurant || p.DayName != dayName {
			continue
		}
		if reliableOnly && !m.Reliable(p.Confidence, p.Observations) {
			continue
		}
		slot := fmt.Sprintf("%s_%s", p.Shift, p.TimeWindow)
		if out[slot] == nil {
			out[slot] = map[models.Category]models.TimeslotPattern{}
		}
		out[slot][p.Category] = p
	}
	return out, nil
}

func (m *TimeslotManager) Reliable(confidence float64, observations int) bool {
	return confidence >= m.cfg.MinConfidence && observations >= m.cfg.MinObservations
}

// nextConfidence moves a small fixed fraction of the remaining headroom
// toward the cap each observation. Monotonic with diminishing returns.
func (m *TimeslotManager) nextConfidence(confidence float64) float64 {
	c := confidence + m.cfg.TimeslotConfGrowth*(m.cfg.MaxConfidence-confidence)
	if c > m.cfg.MaxConfidence {
		return m.cfg.MaxConfidence
	}
	return c
}
