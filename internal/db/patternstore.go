package db

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftpulse/backend/internal/models"
	"github.com/shiftpulse/backend/internal/patterns"
)

// DailyPatternStore adapts Postgres to patterns.Storage for the daily
// aggregate shape. Keys are the "restaurant|day_of_week" composites the
// managers build.
type DailyPatternStore struct {
	Pool *pgxpool.Pool
}

func NewDailyPatternStore(pool *pgxpool.Pool) *DailyPatternStore {
	return &DailyPatternStore{Pool: pool}
}

func (s *DailyPatternStore) Get(ctx context.Context, key string) (models.DailyPattern, error) {
	restaurant, dow, err := splitDailyKey(key)
	if err != nil {
		return models.DailyPattern{}, err
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT restaurant, day_of_week, labor_pct, total_hours, confidence, observations, updated_at
		FROM daily_patterns WHERE restaurant = $1 AND day_of_week = $2`, restaurant, dow)
	var p models.DailyPattern
	if err := row.Scan(&p.Restaurant, &p.DayOfWeek, &p.LaborPct, &p.TotalHours, &p.Confidence, &p.Observations, &p.UpdatedAt); err != nil {
		if isNoRows(err) {
			return models.DailyPattern{}, patterns.PatternError{Op: "get", Key: key, Err: patterns.ErrNotFound}
		}
		return models.DailyPattern{}, patterns.PatternError{Op: "get", Key: key, Err: err}
	}
	return p, nil
}

func (s *DailyPatternStore) Save(ctx context.Context, p models.DailyPattern) error {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO daily_patterns (restaurant, day_of_week, labor_pct, total_hours, confidence, observations, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (restaurant, day_of_week) DO NOTHING`,
		p.Restaurant, p.DayOfWeek, p.LaborPct, p.TotalHours, p.Confidence, p.Observations, p.UpdatedAt)
	if err != nil {
		return patterns.PatternError{Op: "save", Key: p.Key(), Err: err}
	}
	if tag.RowsAffected() == 0 {
		return patterns.PatternError{Op: "save", Key: p.Key(), Err: patterns.ErrConflict}
	}
	return nil
}

func (s *DailyPatternStore) Update(ctx context.Context, p models.DailyPattern) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE daily_patterns SET labor_pct = $1, total_hours = $2, confidence = $3, observations = $4, updated_at = $5
		WHERE restaurant = $6 AND day_of_week = $7`,
		p.LaborPct, p.TotalHours, p.Confidence, p.Observations, p.UpdatedAt, p.Restaurant, p.DayOfWeek)
	if err != nil {
		return patterns.PatternError{Op: "update", Key: p.Key(), Err: err}
	}
	if tag.RowsAffected() == 0 {
		return patterns.PatternError{Op: "update", Key: p.Key(), Err: patterns.ErrNotFound}
	}
	return nil
}

func (s *DailyPatternStore) Upsert(ctx context.Context, p models.DailyPattern) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO daily_patterns (restaurant, day_of_week, labor_pct, total_hours, confidence, observations, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (restaurant, day_of_week) DO UPDATE SET
			labor_pct = EXCLUDED.labor_pct,
			total_hours = EXCLUDED.total_hours,
			confidence = EXCLUDED.confidence,
			observations = EXCLUDED.observations,
			updated_at = EXCLUDED.updated_at`,
		p.Restaurant, p.DayOfWeek, p.LaborPct, p.TotalHours, p.Confidence, p.Observations, p.UpdatedAt)
	if err != nil {
		return patterns.PatternError{Op: "upsert", Key: p.Key(), Err: err}
	}
	return nil
}

func (s *DailyPatternStore) Delete(ctx context.Context, key string) error {
	restaurant, dow, err := splitDailyKey(key)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM daily_patterns WHERE restaurant = $1 AND day_of_week = $2`, restaurant, dow)
	if err != nil {
		return patterns.PatternError{Op: "delete", Key: key, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return patterns.PatternError{Op: "delete", Key: key, Err: patterns.ErrNotFound}
	}
	return nil
}

func (s *DailyPatternStore) List(ctx context.Context) ([]models.DailyPattern, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT restaurant, day_of_week, labor_pct, total_hours, confidence, observations, updated_at
		FROM daily_patterns ORDER BY restaurant, day_of_week`)
	if err != nil {
		return nil, patterns.PatternError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []models.DailyPattern
	for rows.Next() {
		var p models.DailyPattern
		if err := rows.Scan(&p.Restaurant, &p.DayOfWeek, &p.LaborPct, &p.TotalHours, &p.Confidence, &p.Observations, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *DailyPatternStore) ClearAll(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM daily_patterns`)
	return err
}

// TimeslotPatternStore adapts Postgres to patterns.Storage for the
// per-window shape.
type TimeslotPatternStore struct {
	Pool *pgxpool.Pool
}

func NewTimeslotPatternStore(pool *pgxpool.Pool) *TimeslotPatternStore {
	return &TimeslotPatternStore{Pool: pool}
}

func (s *TimeslotPatternStore) Get(ctx context.Context, key string) (models.TimeslotPattern, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 5 {
		return models.TimeslotPattern{}, patterns.PatternError{Op: "get", Key: key, Err: patterns.ErrNotFound}
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT restaurant, day_name, shift, time_window, category, baseline, variance, confidence, observations, updated_at
		FROM timeslot_patterns
		WHERE restaurant = $1 AND day_name = $2 AND shift = $3 AND time_window = $4 AND category = $5`,
		parts[0], parts[1], parts[2], parts[3], parts[4])
	p, err := scanTimeslotPattern(row)
	if err != nil {
		if isNoRows(err) {
			return models.TimeslotPattern{}, patterns.PatternError{Op: "get", Key: key, Err: patterns.ErrNotFound}
		}
		return models.TimeslotPattern{}, patterns.PatternError{Op: "get", Key: key, Err: err}
	}
	return p, nil
}

func (s *TimeslotPatternStore) Save(ctx context.Context, p models.TimeslotPattern) error {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO timeslot_patterns (restaurant, day_name, shift, time_window, category, baseline, variance, confidence, observations, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (restaurant, day_name, shift, time_window, category) DO NOTHING`,
		p.Restaurant, p.DayName, string(p.Shift), p.TimeWindow, string(p.Category), p.Baseline, p.Variance, p.Confidence, p.Observations, p.UpdatedAt)
	if err != nil {
		return patterns.PatternError{Op: "save", Key: p.Key(), Err: err}
	}
	if tag.RowsAffected() == 0 {
		return patterns.PatternError{Op: "save", Key: p.Key(), Err: patterns.ErrConflict}
	}
	return nil
}

func (s *TimeslotPatternStore) Update(ctx context.Context, p models.TimeslotPattern) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE timeslot_patterns SET baseline = $1, variance = $2, confidence = $3, observations = $4, updated_at = $5
		WHERE restaurant = $6 AND day_name = $7 AND shift = $8 AND time_window = $9 AND category = $10`,
		p.Baseline, p.Variance, p.Confidence, p.Observations, p.UpdatedAt,
		p.Restaurant, p.DayName, string(p.Shift), p.TimeWindow, string(p.Category))
	if err != nil {
		return patterns.PatternError{Op: "update", Key: p.Key(), Err: err}
	}
	if tag.RowsAffected() == 0 {
		return patterns.PatternError{Op: "update", Key: p.Key(), Err: patterns.ErrNotFound}
	}
	return nil
}

func (s *TimeslotPatternStore) Upsert(ctx context.Context, p models.TimeslotPattern) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO timeslot_patterns (restaurant, day_name, shift, time_window, category, baseline, variance, confidence, observations, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (restaurant, day_name, shift, time_window, category) DO UPDATE SET
			baseline = EXCLUDED.baseline,
			variance = EXCLUDED.variance,
			confidence = EXCLUDED.confidence,
			observations = EXCLUDED.observations,
			updated_at = EXCLUDED.updated_at`,
		p.Restaurant, p.DayName, string(p.Shift), p.TimeWindow, string(p.Category), p.Baseline, p.Variance, p.Confidence, p.Observations, p.UpdatedAt)
	if err != nil {
		return patterns.PatternError{Op: "upsert", Key: p.Key(), Err: err}
	}
	return nil
}

func (s *TimeslotPatternStore) Delete(ctx context.Context, key string) error {
	parts := strings.Split(key, "|")
	if len(parts) != 5 {
		return patterns.PatternError{Op: "delete", Key: key, Err: patterns.ErrNotFound}
	}
	tag, err := s.Pool.Exec(ctx, `
		DELETE FROM timeslot_patterns
		WHERE restaurant = $1 AND day_name = $2 AND shift = $3 AND time_window = $4 AND category = $5`,
		parts[0], parts[1], parts[2], parts[3], parts[4])
	if err != nil {
		return patterns.PatternError{Op: "delete", Key: key, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return patterns.PatternError{Op: "delete", Key: key, Err: patterns.ErrNotFound}
	}
	return nil
}

func (s *TimeslotPatternStore) List(ctx context.Context) ([]models.TimeslotPattern, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT restaurant, day_name, shift, time_window, category, baseline, variance, confidence, observations, updated_at
		FROM timeslot_patterns ORDER BY restaurant, day_name, shift, time_window, category`)
	if err != nil {
		return nil, patterns.PatternError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []models.TimeslotPattern
	for rows.Next() {
		p, err := scanTimeslotPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *TimeslotPatternStore) ClearAll(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM timeslot_patterns`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimeslotPattern(row rowScanner) (models.TimeslotPattern, error) {
	var (
		p        models.TimeslotPattern
		shift    string
		category string
	)
	if err := row.Scan(&p.Restaurant, &p.DayName, &shift, &p.TimeWindow, &category, &p.Baseline, &p.Variance, &p.Confidence, &p.Observations, &p.UpdatedAt); err != nil {
		return models.TimeslotPattern{}, err
	}
	p.Shift = models.Shift(shift)
	p.Category = models.Category(category)
	return p, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func splitDailyKey(key string) (string, int, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 2 {
		return "", 0, patterns.PatternError{Op: "key", Key: key, Err: patterns.ErrNotFound}
	}
	dow, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, patterns.PatternError{Op: "key", Key: key, Err: patterns.ErrNotFound}
	}
	return parts[0], dow, nil
}
