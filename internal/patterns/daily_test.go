package patterns

import (
	"context"
	"math"
	"testing"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/models"
)

func testDailyManager() (*DailyManager, *MemoryStore[models.DailyPattern]) {
	store := NewMemoryStore[models.DailyPattern]()
	return NewDailyManager("r1", store, config.DefaultLearning()), store
}

func TestDailyLearnFirstObservation(t *testing.T) {
	m, _ := testDailyManager()
	p, err := m.Learn(context.Background(), 1, 28.0, 80)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if p.LaborPct != 28.0 || p.TotalHours != 80 {
		t.Fatalf("first observation must seed the baseline, got %+v", p)
	}
	if p.Observations != 1 {
		t.Fatalf("expected 1 observation, got %d", p.Observations)
	}
	if math.Abs(p.Confidence-0.5) > 1e-9 {
		t.Fatalf("expected confidence 0.5 after first observation, got %v", p.Confidence)
	}
}

func TestDailyLearnEarlyRateBlend(t *testing.T) {
	m, _ := testDailyManager()
	ctx := context.Background()
	if _, err := m.Learn(ctx, 1, 10, 50); err != nil {
		t.Fatalf("learn: %v", err)
	}
	p, err := m.Learn(ctx, 1, 15, 50)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	// Under 5 observations the fast rate 0.3 applies: 0.7*10 + 0.3*15.
	if math.Abs(p.LaborPct-11.5) > 1e-9 {
		t.Fatalf("expected blended labor pct 11.5, got %v", p.LaborPct)
	}
	if p.Observations != 2 {
		t.Fatalf("expected 2 observations, got %d", p.Observations)
	}
}

func TestDailyLearnMatureRate(t *testing.T) {
	m, store := testDailyManager()
	ctx := context.Background()
	seed, _ := models.NewDailyPattern("r1", 2, 20, 60, 0.9, 10)
	if err := store.Save(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := m.Learn(ctx, 2, 30, 60)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	// Mature rate 0.2: 0.8*20 + 0.2*30 = 22.
	if math.Abs(p.LaborPct-22) > 1e-9 {
		t.Fatalf("expected labor pct 22, got %v", p.LaborPct)
	}
}

func TestDailyConfidenceGrowth(t *testing.T) {
	m, _ := testDailyManager()
	ctx := context.Background()
	var last models.DailyPattern
	prev := 0.0
	for i := 0; i < 30; i++ {
		p, err := m.Learn(ctx, 3, 25, 70)
		if err != nil {
			t.Fatalf("learn %d: %v", i, err)
		}
		if p.Confidence < prev {
			t.Fatalf("confidence must be monotonic, dropped to %v at obs %d", p.Confidence, i+1)
		}
		prev = p.Confidence
		last = p
	}
	if last.Confidence > 0.95 {
		t.Fatalf("confidence must cap at 0.95, got %v", last.Confidence)
	}
	if last.Confidence < 0.9 {
		t.Fatalf("expected confidence near cap after 30 observations, got %v", last.Confidence)
	}
}

func TestDailyGetExactWhenReliable(t *testing.T) {
	m, store := testDailyManager()
	ctx := context.Background()
	seed, _ := models.NewDailyPattern("r1", 1, 25, 70, 0.8, 6)
	if err := store.Save(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := m.Get(ctx, 1, true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p == nil || p.DayOfWeek != 1 {
		t.Fatalf("expected exact reliable pattern, got %+v", p)
	}
}

func TestDailyGetSingleFallbackReturnedAsIs(t *testing.T) {
	m, store := testDailyManager()
	ctx := context.Background()
	seed, _ := models.NewDailyPattern("r1", 5, 31, 90, 0.8, 8)
	if err := store.Save(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := m.Get(ctx, 2, true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p == nil {
		t.Fatalf("expected single-day fallback")
	}
	if p.LaborPct != 31 || p.DayOfWeek != 5 {
		t.Fatalf("single reliable day must come back unchanged, got %+v", p)
	}
}

func TestDailyGetAveragedFallback(t *testing.T) {
	m, store := testDailyManager()
	ctx := context.Background()
	a, _ := models.NewDailyPattern("r1", 1, 20, 60, 0.8, 5)
	b, _ := models.NewDailyPattern("r1", 3, 30, 80, 0.9, 7)
	other, _ := models.NewDailyPattern("r2", 4, 99, 99, 0.9, 9)
	for _, p := range []models.DailyPattern{a, b, other} {
		if err := store.Save(ctx, p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	p, err := m.Get(ctx, 6, true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p == nil {
		t.Fatalf("expected synthesized fallback")
	}
	if math.Abs(p.LaborPct-25) > 1e-9 || math.Abs(p.TotalHours-70) > 1e-9 {
		t.Fatalf("expected averaged metrics 25/70, got %v/%v", p.LaborPct, p.TotalHours)
	}
	if p.Observations != 12 {
		t.Fatalf("expected summed observations 12, got %d", p.Observations)
	}
}

func TestDailyGetNoFallbacks(t *testing.T) {
	m, store := testDailyManager()
	ctx := context.Background()
	seed, _ := models.NewDailyPattern("r1", 5, 31, 90, 0.8, 8)
	if err := store.Save(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := m.Get(ctx, 2, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatalf("fallbacks disabled must yield nil, got %+v", p)
	}
}

func TestDailyGetUnreliableIgnored(t *testing.T) {
	m, store := testDailyManager()
	ctx := context.Background()
	seed, _ := models.NewDailyPattern("r1", 1, 25, 70, 0.3, 2)
	if err := store.Save(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := m.Get(ctx, 1, true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatalf("unreliable pattern must not be returned, got %+v", p)
	}
}
