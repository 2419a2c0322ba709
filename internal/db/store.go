package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftpulse/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReplaceSourceRows swaps out one business day's raw source tables in a
// single transaction. Re-importing a day is idempotent.
func (s *Store) ReplaceSourceRows(ctx context.Context, restaurant, date string,
	kitchen []models.KitchenRow, endOfDay []models.EndOfDayRow, details []models.OrderDetailRow, entries []models.TimeEntry) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, table := range []string{"kitchen_rows", "eod_rows", "detail_rows", "time_entries"} {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE restaurant = $1 AND business_date = $2`, table), restaurant, date); err != nil {
				return err
			}
		}

		kitchenRows := make([][]any, 0, len(kitchen))
		for _, r := range kitchen {
			kitchenRows = append(kitchenRows, []any{restaurant, date, r.CheckID, r.OrderedAt, r.FulfillmentTime, r.Server, r.Table, r.ExpoLevel})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"kitchen_rows"},
			[]string{"restaurant", "business_date", "check_id", "ordered_at", "fulfillment_time", "server", "table_name", "expo_level"},
			pgx.CopyFromRows(kitchenRows)); err != nil {
			return err
		}

		eodRows := make([][]any, 0, len(endOfDay))
		for _, r := range endOfDay {
			eodRows = append(eodRows, []any{restaurant, date, r.CheckID, r.CashDrawer, r.Table, r.DiningOption, r.NetSales})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"eod_rows"},
			[]string{"restaurant", "business_date", "check_id", "cash_drawer", "table_name", "dining_option", "net_sales"},
			pgx.CopyFromRows(eodRows)); err != nil {
			return err
		}

		detailRows := make([][]any, 0, len(details))
		for _, r := range details {
			detailRows = append(detailRows, []any{restaurant, date, r.CheckID, r.Table, r.OrderDuration, r.DiningOption})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"detail_rows"},
			[]string{"restaurant", "business_date", "check_id", "table_name", "order_duration", "dining_option"},
			pgx.CopyFromRows(detailRows)); err != nil {
			return err
		}

		entryRows := make([][]any, 0, len(entries))
		for _, e := range entries {
			entryRows = append(entryRows, []any{restaurant, date, e.Employee, e.Position, e.ClockIn, e.ClockOut})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"time_entries"},
			[]string{"restaurant", "business_date", "employee", "position", "clock_in", "clock_out"},
			pgx.CopyFromRows(entryRows))
		return err
	})
}

func (s *Store) GetKitchenRows(ctx context.Context, restaurant, date string) ([]models.KitchenRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT check_id, ordered_at, fulfillment_time, server, table_name, expo_level
		FROM kitchen_rows WHERE restaurant = $1 AND business_date = $2 ORDER BY ordered_at ASC`, restaurant, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.KitchenRow
	for rows.Next() {
		var r models.KitchenRow
		if err := rows.Scan(&r.CheckID, &r.OrderedAt, &r.FulfillmentTime, &r.Server, &r.Table, &r.ExpoLevel); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetEndOfDayRows(ctx context.Context, restaurant, date string) ([]models.EndOfDayRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT check_id, cash_drawer, table_name, dining_option, net_sales
		FROM eod_rows WHERE restaurant = $1 AND business_date = $2 ORDER BY check_id ASC`, restaurant, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EndOfDayRow
	for rows.Next() {
		var r models.EndOfDayRow
		if err := rows.Scan(&r.CheckID, &r.CashDrawer, &r.Table, &r.DiningOption, &r.NetSales); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetOrderDetailRows(ctx context.Context, restaurant, date string) ([]models.OrderDetailRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT check_id, table_name, order_duration, dining_option
		FROM detail_rows WHERE restaurant = $1 AND business_date = $2 ORDER BY check_id ASC`, restaurant, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OrderDetailRow
	for rows.Next() {
		var r models.OrderDetailRow
		if err := rows.Scan(&r.CheckID, &r.Table, &r.OrderDuration, &r.DiningOption); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetTimeEntries(ctx context.Context, restaurant, date string) ([]models.TimeEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT employee, position, clock_in, clock_out
		FROM time_entries WHERE restaurant = $1 AND business_date = $2 ORDER BY clock_in ASC`, restaurant, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TimeEntry
	for rows.Next() {
		var e models.TimeEntry
		if err := rows.Scan(&e.Employee, &e.Position, &e.ClockIn, &e.ClockOut); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDayResults(ctx context.Context, tx pgx.Tx, restaurant, date string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE restaurant = $1 AND business_date = $2`, restaurant, date); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `DELETE FROM timeslots WHERE restaurant = $1 AND business_date = $2`, restaurant, date)
	return err
}

func (s *Store) InsertOrders(ctx context.Context, tx pgx.Tx, restaurant, date string, orders []models.Order) error {
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{restaurant, date, o.CheckID, string(o.Category), o.FulfillmentMins, o.OrderMins,
			o.OrderedAt, o.Server, string(o.Shift), o.TableID, o.CashDrawer, o.DiningOption, o.Position, o.ExpoLevel})
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"orders"},
		[]string{"restaurant", "business_date", "check_id", "category", "fulfillment_mins", "order_mins",
			"ordered_at", "server", "shift", "table_id", "cash_drawer", "dining_option", "position", "expo_level"},
		pgx.CopyFromRows(rows))
	return err
}

func (s *Store) InsertTimeslots(ctx context.Context, tx pgx.Tx, restaurant, date string, slots []*models.Timeslot) error {
	rows := make([][]any, 0, len(slots))
	for _, t := range slots {
		failures, _ := json.Marshal(t.Failures)
		rows = append(rows, []any{restaurant, date, string(t.Shift), t.Label, t.Start, t.End,
			t.TotalOrders, t.LobbyCount, t.DriveThruCount, t.ToGoCount,
			t.AvgFulfillment, t.MedFulfillment, t.ActiveStaff, t.PeakTime, t.Empty,
			t.PassedStandards, t.PassedHistory, t.PassRateStandards, t.PassRateHistory,
			string(t.Status), string(t.StreakType), t.ConsecutivePasses, t.ConsecutiveFails, failures})
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"timeslots"},
		[]string{"restaurant", "business_date", "shift", "label", "start_at", "end_at",
			"total_orders", "lobby_count", "drive_thru_count", "togo_count",
			"avg_fulfillment", "med_fulfillment", "active_staff", "peak_time", "empty",
			"passed_standards", "passed_history", "pass_rate_standards", "pass_rate_history",
			"status", "streak_type", "consecutive_passes", "consecutive_fails", "failures"},
		pgx.CopyFromRows(rows))
	return err
}

func (s *Store) ListTimeslots(ctx context.Context, restaurant, date, shift string) ([]models.Timeslot, error) {
	query := `
		SELECT shift, label, start_at, end_at, total_orders, lobby_count, drive_thru_count, togo_count,
			avg_fulfillment, med_fulfillment, active_staff, peak_time, empty,
			passed_standards, passed_history, pass_rate_standards, pass_rate_history,
			status, streak_type, consecutive_passes, consecutive_fails, failures
		FROM timeslots WHERE restaurant = $1 AND business_date = $2`
	args := []any{restaurant, date}
	if shift != "" {
		args = append(args, shift)
		query += fmt.Sprintf(" AND shift = $%d", len(args))
	}
	query += " ORDER BY start_at ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Timeslot
	for rows.Next() {
		var (
			t        models.Timeslot
			shiftStr string
			status   string
			streak   string
			failures []byte
		)
		if err := rows.Scan(&shiftStr, &t.Label, &t.Start, &t.End, &t.TotalOrders, &t.LobbyCount, &t.DriveThruCount, &t.ToGoCount,
			&t.AvgFulfillment, &t.MedFulfillment, &t.ActiveStaff, &t.PeakTime, &t.Empty,
			&t.PassedStandards, &t.PassedHistory, &t.PassRateStandards, &t.PassRateHistory,
			&status, &streak, &t.ConsecutivePasses, &t.ConsecutiveFails, &failures); err != nil {
			return nil, err
		}
		t.Shift = models.Shift(shiftStr)
		t.Status = models.SlotStatus(status)
		t.StreakType = models.StreakType(streak)
		if len(failures) > 0 {
			_ = json.Unmarshal(failures, &t.Failures)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context, restaurant, date, category string, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT check_id, category, fulfillment_mins, order_mins, ordered_at, server, shift,
			table_id, cash_drawer, dining_option, position, expo_level
		FROM orders WHERE restaurant = $1 AND business_date = $2`
	args := []any{restaurant, date}
	var wheres []string
	if category != "" {
		args = append(args, category)
		wheres = append(wheres, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " AND " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY ordered_at ASC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		var (
			o        models.Order
			category string
			shift    string
		)
		if err := rows.Scan(&o.CheckID, &category, &o.FulfillmentMins, &o.OrderMins, &o.OrderedAt, &o.Server, &shift,
			&o.TableID, &o.CashDrawer, &o.DiningOption, &o.Position, &o.ExpoLevel); err != nil {
			return nil, err
		}
		o.Category = models.Category(category)
		o.Shift = models.Shift(shift)
		out = append(out, o)
	}
	return out, rows.Err()
}

// ReclassifyOrder applies a manual category override with an audit reason.
func (s *Store) ReclassifyOrder(ctx context.Context, restaurant, date, checkID, category, reason string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE orders SET category = $1, manual_reason = $2
		WHERE restaurant = $3 AND business_date = $4 AND check_id = $5`,
		category, reason, restaurant, date, checkID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) CreateRun(ctx context.Context, restaurant, date, status string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO runs (restaurant, business_date, status, started_at) VALUES ($1, $2, $3, NOW()) RETURNING id`,
		restaurant, date, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, restaurant, business_date, started_at, finished_at, status, summary
		FROM runs ORDER BY started_at DESC LIMIT 1`)
	var (
		r        models.Run
		finished *time.Time
	)
	if err := row.Scan(&r.ID, &r.Restaurant, &r.Date, &r.StartedAt, &finished, &r.Status, &r.Summary); err != nil {
		return models.Run{}, err
	}
	r.FinishedAt = finished
	return r, nil
}
