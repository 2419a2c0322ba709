package service

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/models"
	"github.com/shiftpulse/backend/internal/roster"
)

// Signals are the raw categorization inputs collected for one check from the
// three source logs plus the optional roster.
type Signals struct {
	CheckID      string
	TableSources int
	Table        string
	CashDrawer   string
	DiningOption string
	Position     string
	Server       string
	ExpoLevel    string
	KitchenMins  float64
	OrderMins    float64
}

type CascadeStage struct {
	Name    string
	Matched bool
}

type CategorizeResult struct {
	Order    models.Order
	Stages   []CascadeStage
	Degraded bool
	Reason   string
}

type CategorizeStats struct {
	Total     int
	Lobby     int
	DriveThru int
	ToGo      int
	Excluded  int
	Degraded  int
}

type Categorizer struct {
	cfg    config.CategorizerConfig
	staff  roster.Matcher
	logger zerolog.Logger
}

// NewCategorizer builds a categorizer. staff may be nil when no roster was
// supplied for the day.
func NewCategorizer(cfg config.CategorizerConfig, staff roster.Matcher, logger zerolog.Logger) *Categorizer {
	return &Categorizer{cfg: cfg, staff: staff, logger: logger}
}

// CategorizeOrders classifies every check that has a kitchen-log row. Checks
// appearing only in the other logs are excluded as not yet fulfilled;
// any per-check signal failure degrades that check to ToGo and the batch
// continues.
func (c *Categorizer) CategorizeOrders(kitchen []models.KitchenRow, endOfDay []models.EndOfDayRow, details []models.OrderDetailRow) ([]models.Order, CategorizeStats) {
	kitchenByID := map[string]models.KitchenRow{}
	for _, r := range kitchen {
		kitchenByID[r.CheckID] = r
	}
	eodByID := map[string]models.EndOfDayRow{}
	for _, r := range endOfDay {
		eodByID[r.CheckID] = r
	}
	detailByID := map[string]models.OrderDetailRow{}
	for _, r := range details {
		detailByID[r.CheckID] = r
	}

	ids := map[string]struct{}{}
	for id := range kitchenByID {
		ids[id] = struct{}{}
	}
	for id := range eodByID {
		ids[id] = struct{}{}
	}
	for id := range detailByID {
		ids[id] = struct{}{}
	}
	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	stats := CategorizeStats{}
	var out []models.Order
	for _, id := range ordered {
		kr, ok := kitchenByID[id]
		if !ok {
			stats.Excluded++
			continue
		}
		res := c.CategorizeCheck(kr, eodByID[id], detailByID[id])
		if res.Degraded {
			stats.Degraded++
			c.logger.Warn().Str("check_id", id).Str("reason", res.Reason).Msg("check degraded to ToGo")
		}
		switch res.Order.Category {
		case models.CategoryLobby:
			stats.Lobby++
		case models.CategoryDriveThru:
			stats.DriveThru++
		case models.CategoryToGo:
			stats.ToGo++
		}
		stats.Total++
		out = append(out, res.Order)
	}
	return out, stats
}

// CategorizeCheck runs the cascade for one check. The kitchen row is
// required; the other rows may be zero values.
func (c *Categorizer) CategorizeCheck(kr models.KitchenRow, er models.EndOfDayRow, dr models.OrderDetailRow) CategorizeResult {
	sig := c.ExtractSignals(kr, er, dr)

	category, stages := c.Classify(sig)

	degraded := false
	reason := ""
	if kr.OrderedAt.IsZero() {
		// Without an order timestamp the check cannot be windowed; keep it
		// in the output but on the safest category.
		category = models.CategoryToGo
		degraded = true
		reason = "missing order timestamp"
	}

	order := models.Order{
		CheckID:         sig.CheckID,
		Category:        category,
		FulfillmentMins: sig.KitchenMins,
		OrderMins:       sig.OrderMins,
		OrderedAt:       kr.OrderedAt,
		Server:          kr.Server,
		Shift:           shiftFor(kr.OrderedAt),
		TableID:         sig.Table,
		CashDrawer:      sig.CashDrawer,
		DiningOption:    sig.DiningOption,
		Position:        sig.Position,
		ExpoLevel:       kr.ExpoLevel,
	}
	return CategorizeResult{Order: order, Stages: stages, Degraded: degraded, Reason: reason}
}

// ExtractSignals pulls the cascade inputs out of the three rows.
func (c *Categorizer) ExtractSignals(kr models.KitchenRow, er models.EndOfDayRow, dr models.OrderDetailRow) Signals {
	sig := Signals{
		CheckID:     kr.CheckID,
		CashDrawer:  er.CashDrawer,
		Server:      kr.Server,
		ExpoLevel:   kr.ExpoLevel,
		KitchenMins: ParseDurationMinutes(kr.FulfillmentTime),
		OrderMins:   ParseDurationMinutes(dr.OrderDuration),
	}
	for _, table := range []string{kr.Table, er.Table, dr.Table} {
		if strings.TrimSpace(table) != "" {
			sig.TableSources++
			if sig.Table == "" {
				sig.Table = strings.TrimSpace(table)
			}
		}
	}
	sig.DiningOption = strings.TrimSpace(er.DiningOption)
	if sig.DiningOption == "" {
		sig.DiningOption = strings.TrimSpace(dr.DiningOption)
	}
	if c.staff != nil {
		if entry, ok := c.staff.Match(kr.Server); ok {
			sig.Position = entry.Position
		}
	}
	return sig
}

// Classify applies the filter cascade in fixed priority order, first match
// wins.
func (c *Categorizer) Classify(sig Signals) (models.Category, []CascadeStage) {
	position := strings.ToLower(sig.Position)
	drawer := strings.ToLower(sig.CashDrawer)

	lobby := sig.TableSources >= c.cfg.TableSourcesForLobby ||
		(sig.TableSources >= 1 && strings.Contains(position, "server")) ||
		(sig.TableSources >= 1 && (sig.KitchenMins > c.cfg.LobbyKitchenMins || sig.OrderMins > c.cfg.LobbyOrderMins))
	stages := []CascadeStage{{Name: "lobby_rule", Matched: lobby}}
	if lobby {
		return models.CategoryLobby, stages
	}

	driveThru := strings.Contains(drawer, "drive") ||
		strings.Contains(position, "drive") ||
		(sig.TableSources == 0 && sig.KitchenMins > 0 && sig.KitchenMins < c.cfg.DriveKitchenMaxMins) ||
		(sig.TableSources == 0 && sig.OrderMins > 0 && sig.OrderMins < c.cfg.DriveOrderMaxMins)
	stages = append(stages, CascadeStage{Name: "drive_thru_rule", Matched: driveThru})
	if driveThru {
		return models.CategoryDriveThru, stages
	}

	stages = append(stages, CascadeStage{Name: "togo_default", Matched: true})
	return models.CategoryToGo, stages
}

func shiftFor(t time.Time) models.Shift {
	if t.Hour() < 14 {
		return models.ShiftMorning
	}
	return models.ShiftEvening
}
