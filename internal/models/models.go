package models

import (
	"fmt"
	"time"
)

type Category string

const (
	CategoryLobby     Category = "Lobby"
	CategoryDriveThru Category = "Drive-Thru"
	CategoryToGo      Category = "ToGo"
	CategoryUnknown   Category = "Unknown"
)

func ParseCategory(value string) (Category, error) {
	switch Category(value) {
	case CategoryLobby, CategoryDriveThru, CategoryToGo, CategoryUnknown:
		return Category(value), nil
	}
	return "", ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", value)}
}

type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"
)

type SlotStatus string

const (
	StatusPass    SlotStatus = "pass"
	StatusWarning SlotStatus = "warning"
	StatusFail    SlotStatus = "fail"
)

type StreakType string

const (
	StreakHot  StreakType = "hot"
	StreakCold StreakType = "cold"
	StreakNone StreakType = ""
)

// Order is built once by the categorizer and never mutated afterwards.
type Order struct {
	CheckID         string    `json:"check_id"`
	Category        Category  `json:"category"`
	FulfillmentMins float64   `json:"fulfillment_mins"`
	OrderMins       float64   `json:"order_mins,omitempty"`
	OrderedAt       time.Time `json:"ordered_at"`
	Server          string    `json:"server"`
	Shift           Shift     `json:"shift"`
	TableID         string    `json:"table_id,omitempty"`
	CashDrawer      string    `json:"cash_drawer,omitempty"`
	DiningOption    string    `json:"dining_option,omitempty"`
	Position        string    `json:"position,omitempty"`
	ExpoLevel       string    `json:"expo_level,omitempty"`
}

type FailureRecord struct {
	CheckID         string   `json:"check_id"`
	Category        Category `json:"category"`
	Employee        string   `json:"employee"`
	OrderedAt       string   `json:"ordered_at"`
	FulfillmentMins float64  `json:"fulfillment_mins"`
	FailedStandards bool     `json:"failed_standards"`
	FailedHistory   bool     `json:"failed_history"`
	Target          float64  `json:"target"`
	Baseline        float64  `json:"baseline,omitempty"`
	Variance        float64  `json:"variance,omitempty"`
	NewStreak       bool     `json:"new_streak"`
}

// Timeslot is created by the windower and graded in place afterwards
// (single writer, sequential).
type Timeslot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
	Shift Shift     `json:"shift"`

	Orders         []Order `json:"orders,omitempty"`
	TotalOrders    int     `json:"total_orders"`
	LobbyCount     int     `json:"lobby_count"`
	DriveThruCount int     `json:"drive_thru_count"`
	ToGoCount      int     `json:"togo_count"`
	AvgFulfillment float64 `json:"avg_fulfillment"`
	MedFulfillment float64 `json:"med_fulfillment"`
	ActiveStaff    int     `json:"active_staff"`
	PeakTime       bool    `json:"peak_time"`
	Empty          bool    `json:"empty"`

	PassedStandards   bool            `json:"passed_standards"`
	PassedHistory     bool            `json:"passed_history"`
	PassRateStandards float64         `json:"pass_rate_standards"`
	PassRateHistory   float64         `json:"pass_rate_history"`
	Status            SlotStatus      `json:"status"`
	StreakType        StreakType      `json:"streak_type,omitempty"`
	ConsecutivePasses int             `json:"consecutive_passes"`
	ConsecutiveFails  int             `json:"consecutive_fails"`
	Failures          []FailureRecord `json:"failures,omitempty"`
}

// DailyPattern is the per-restaurant, per-day-of-week aggregate baseline.
// Value semantics: an update produces a new value, never mutates a stored one.
type DailyPattern struct {
	Restaurant   string    `json:"restaurant"`
	DayOfWeek    int       `json:"day_of_week"`
	LaborPct     float64   `json:"labor_pct"`
	TotalHours   float64   `json:"total_hours"`
	Confidence   float64   `json:"confidence"`
	Observations int       `json:"observations"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewDailyPattern(restaurant string, dayOfWeek int, laborPct, totalHours, confidence float64, observations int) (DailyPattern, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return DailyPattern{}, ValidationError{Field: "day_of_week", Message: fmt.Sprintf("day_of_week %d outside 0-6", dayOfWeek)}
	}
	if confidence < 0 || confidence > 1 {
		return DailyPattern{}, ValidationError{Field: "confidence", Message: fmt.Sprintf("confidence %.3f outside [0,1]", confidence)}
	}
	if observations < 0 {
		return DailyPattern{}, ValidationError{Field: "observations", Message: "observations must be >= 0"}
	}
	return DailyPattern{
		Restaurant:   restaurant,
		DayOfWeek:    dayOfWeek,
		LaborPct:     laborPct,
		TotalHours:   totalHours,
		Confidence:   confidence,
		Observations: observations,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

func (p DailyPattern) Key() string {
	return fmt.Sprintf("%s|%d", p.Restaurant, p.DayOfWeek)
}

// TimeslotPattern is the learned fulfillment baseline for one
// (restaurant, day name, shift, window, category) key.
type TimeslotPattern struct {
	Restaurant   string    `json:"restaurant"`
	DayName      string    `json:"day_name"`
	Shift        Shift     `json:"shift"`
	TimeWindow   string    `json:"time_window"`
	Category     Category  `json:"category"`
	Baseline     float64   `json:"baseline"`
	Variance     float64   `json:"variance"`
	Confidence   float64   `json:"confidence"`
	Observations int       `json:"observations"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewTimeslotPattern(restaurant, dayName string, shift Shift, timeWindow string, category Category, baseline, variance, confidence float64, observations int) (TimeslotPattern, error) {
	if confidence < 0 || confidence > 1 {
		return TimeslotPattern{}, ValidationError{Field: "confidence", Message: fmt.Sprintf("confidence %.3f outside [0,1]", confidence)}
	}
	if baseline < 0 {
		return TimeslotPattern{}, ValidationError{Field: "baseline", Message: "baseline must be >= 0"}
	}
	if observations < 0 {
		return TimeslotPattern{}, ValidationError{Field: "observations", Message: "observations must be >= 0"}
	}
	if _, err := ParseCategory(string(category)); err != nil {
		return TimeslotPattern{}, err
	}
	return TimeslotPattern{
		Restaurant:   restaurant,
		DayName:      dayName,
		Shift:        shift,
		TimeWindow:   timeWindow,
		Category:     category,
		Baseline:     baseline,
		Variance:     variance,
		Confidence:   confidence,
		Observations: observations,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

func (p TimeslotPattern) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", p.Restaurant, p.DayName, p.Shift, p.TimeWindow, p.Category)
}

// KitchenRow is one record of the kitchen-fulfillment log. An order without
// a kitchen row is considered not yet fulfilled and is excluded.
type KitchenRow struct {
	CheckID         string    `json:"check_id"`
	OrderedAt       time.Time `json:"ordered_at"`
	FulfillmentTime string    `json:"fulfillment_time"`
	Server          string    `json:"server"`
	Table           string    `json:"table"`
	ExpoLevel       string    `json:"expo_level"`
}

// EndOfDayRow is one record of the end-of-day/cash log.
type EndOfDayRow struct {
	CheckID      string  `json:"check_id"`
	CashDrawer   string  `json:"cash_drawer"`
	Table        string  `json:"table"`
	DiningOption string  `json:"dining_option"`
	NetSales     float64 `json:"net_sales"`
}

// OrderDetailRow is one record of the order-detail log.
type OrderDetailRow struct {
	CheckID       string `json:"check_id"`
	Table         string `json:"table"`
	OrderDuration string `json:"order_duration"`
	DiningOption  string `json:"dining_option"`
}

// TimeEntry is one clock-in/out record of the staffing roster.
type TimeEntry struct {
	Employee string    `json:"employee"`
	Position string    `json:"position"`
	ClockIn  time.Time `json:"clock_in"`
	ClockOut time.Time `json:"clock_out"`
}

func (e TimeEntry) Hours() float64 {
	if e.ClockOut.Before(e.ClockIn) {
		return 0
	}
	return e.ClockOut.Sub(e.ClockIn).Hours()
}

type Run struct {
	ID         string     `json:"id"`
	Restaurant string     `json:"restaurant"`
	Date       string     `json:"business_date"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Summary    []byte     `json:"summary,omitempty"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
