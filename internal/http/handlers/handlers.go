package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/shiftpulse/backend/internal/db"
	"github.com/shiftpulse/backend/internal/models"
	"github.com/shiftpulse/backend/internal/roster"
	"github.com/shiftpulse/backend/internal/service"
)

const dateLayout = "2006-01-02"

type Handler struct {
	Store      *db.Store
	Processor  *service.ProcessingService
	Validator  *validator.Validate
	Logger     zerolog.Logger
	AdminKey   string
	Restaurant string
}

type ImportSummary struct {
	Kitchen struct {
		Parsed int `json:"parsed"`
		Errors int `json:"errors"`
	} `json:"kitchen"`
	EndOfDay struct {
		Parsed int `json:"parsed"`
		Errors int `json:"errors"`
	} `json:"end_of_day"`
	OrderDetails struct {
		Parsed int `json:"parsed"`
		Errors int `json:"errors"`
	} `json:"order_details"`
	Roster struct {
		Parsed int `json:"parsed"`
		Errors int `json:"errors"`
	} `json:"roster"`
	Errors []string `json:"errors"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Import one business day's POS exports
// @Description Upload kitchen, end-of-day, and order-detail CSV files, plus an optional staffing roster
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param business_date formData string true "Business date (YYYY-MM-DD)"
// @Param kitchen formData file true "kitchen.csv"
// @Param end_of_day formData file true "end_of_day.csv"
// @Param order_details formData file true "order_details.csv"
// @Param roster formData file false "roster.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	dateStr := strings.TrimSpace(c.PostForm("business_date"))
	if _, err := time.Parse(dateLayout, dateStr); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "business_date must be YYYY-MM-DD", nil)
		return
	}
	restaurant := h.restaurantFrom(c)

	kitchenFile, err := c.FormFile("kitchen")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "kitchen file required", nil)
		return
	}
	eodFile, err := c.FormFile("end_of_day")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "end_of_day file required", nil)
		return
	}
	detailsFile, err := c.FormFile("order_details")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "order_details file required", nil)
		return
	}
	rosterFile, _ := c.FormFile("roster")

	if !validateExt(kitchenFile.Filename) || !validateExt(eodFile.Filename) || !validateExt(detailsFile.Filename) ||
		(rosterFile != nil && !validateExt(rosterFile.Filename)) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", nil)
		return
	}

	summary := ImportSummary{Errors: []string{}}

	kitchen, errs := parseKitchenCSV(kitchenFile)
	summary.Kitchen.Parsed = len(kitchen)
	summary.Kitchen.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	endOfDay, errs := parseEndOfDayCSV(eodFile)
	summary.EndOfDay.Parsed = len(endOfDay)
	summary.EndOfDay.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	details, errs := parseOrderDetailsCSV(detailsFile)
	summary.OrderDetails.Parsed = len(details)
	summary.OrderDetails.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	var entries []models.TimeEntry
	if rosterFile != nil {
		entries, errs = parseRosterCSV(rosterFile)
		summary.Roster.Parsed = len(entries)
		summary.Roster.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	if err := h.Store.ReplaceSourceRows(c.Request.Context(), restaurant, dateStr, kitchen, endOfDay, details, entries); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store source rows", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

type ProcessRequest struct {
	BusinessDate string `json:"business_date" validate:"required"`
	ToDate       string `json:"to_date"`
	Debug        bool   `json:"debug"`
}

// @Summary Process business days
// @Description Run the timeslot performance engine over one date or an inclusive date range
// @Tags process
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	from, err := time.Parse(dateLayout, req.BusinessDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "business_date must be YYYY-MM-DD", nil)
		return
	}
	to := from
	if req.ToDate != "" {
		to, err = time.Parse(dateLayout, req.ToDate)
		if err != nil || to.Before(from) {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "to_date must be YYYY-MM-DD and not before business_date", nil)
			return
		}
	}

	restaurant := h.restaurantFrom(c)
	var results []map[string]any
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		results = append(results, h.processOne(c.Request.Context(), restaurant, date, req.Debug))
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// processOne books a run record around a single business day. Failed days
// keep their FAILED run status and partial results are never persisted;
// days without source data finish SKIPPED.
func (h *Handler) processOne(ctx context.Context, restaurant string, date time.Time, debug bool) map[string]any {
	dateKey := date.Format(dateLayout)
	runID, err := h.Store.CreateRun(ctx, restaurant, dateKey, "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		return map[string]any{"business_date": dateKey, "status": service.RunFailed, "error": err.Error()}
	}

	result, status, procErr := h.Processor.ProcessDate(ctx, restaurant, date, debug)
	if finishErr := h.Store.FinishRun(ctx, runID, status, service.MarshalSummary(result.Summary)); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	entry := map[string]any{
		"business_date": dateKey,
		"status":        status,
		"run_id":        runID,
	}
	if procErr != nil {
		h.Logger.Error().Err(procErr).Str("date", dateKey).Msg("processing failed")
		entry["error"] = procErr.Error()
		return entry
	}
	entry["counts"] = result.Summary.Counts
	if debug {
		entry["events"] = result.Summary.Events
		entry["samples"] = result.Summary.Samples
	}
	return entry
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	run, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) TimeslotsList(c *gin.Context) {
	dateStr := strings.TrimSpace(c.Query("date"))
	if _, err := time.Parse(dateLayout, dateStr); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", nil)
		return
	}
	shift := strings.ToLower(strings.TrimSpace(c.Query("shift")))
	if shift != "" && shift != string(models.ShiftMorning) && shift != string(models.ShiftEvening) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "shift must be morning or evening", nil)
		return
	}

	slots, err := h.Store.ListTimeslots(c.Request.Context(), h.restaurantFrom(c), dateStr, shift)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list timeslots", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": slots})
}

func (h *Handler) OrdersList(c *gin.Context) {
	dateStr := strings.TrimSpace(c.Query("date"))
	if _, err := time.Parse(dateLayout, dateStr); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", nil)
		return
	}
	category := strings.TrimSpace(c.Query("category"))
	if category != "" {
		if _, err := models.ParseCategory(category); err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "unknown category", nil)
			return
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.Store.ListOrders(c.Request.Context(), h.restaurantFrom(c), dateStr, category, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list orders", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orders, "limit": limit, "offset": offset})
}

func (h *Handler) PatternsList(c *gin.Context) {
	restaurant := h.restaurantFrom(c)
	day := strings.TrimSpace(c.Query("day"))
	reliableOnly := c.Query("reliable") == "1" || strings.EqualFold(c.Query("reliable"), "true")

	daily, err := h.Processor.DailyPatterns(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PATTERN_ERROR", "Failed to list daily patterns", err.Error())
		return
	}
	resp := gin.H{"daily": daily}

	if day != "" {
		slots, err := h.Processor.TimeslotManager(restaurant).PatternsForDay(c.Request.Context(), day, reliableOnly)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "PATTERN_ERROR", "Failed to list timeslot patterns", err.Error())
			return
		}
		resp["timeslot"] = slots

		if dow, ok := dayOfWeek(day); ok {
			expected, err := h.Processor.DailyManager(restaurant).Get(c.Request.Context(), dow, true)
			if err != nil {
				writeError(c, http.StatusInternalServerError, "PATTERN_ERROR", "Failed to resolve daily expectation", err.Error())
				return
			}
			if expected != nil {
				resp["daily_expected"] = expected
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Debug categorization
// @Description Show the extracted signals and cascade verdict for one check
// @Tags debug
// @Produce json
// @Param check_id query string true "Check ID"
// @Param date query string true "Business date"
// @Success 200 {object} map[string]any
// @Router /api/debug/categorize [get]
func (h *Handler) DebugCategorize(c *gin.Context) {
	checkID := strings.TrimSpace(c.Query("check_id"))
	dateStr := strings.TrimSpace(c.Query("date"))
	if checkID == "" || dateStr == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "check_id and date are required", nil)
		return
	}
	restaurant := h.restaurantFrom(c)

	kitchen, err := h.Store.GetKitchenRows(c.Request.Context(), restaurant, dateStr)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load kitchen rows", err.Error())
		return
	}
	var kitchenRow *models.KitchenRow
	for i := range kitchen {
		if kitchen[i].CheckID == checkID {
			kitchenRow = &kitchen[i]
			break
		}
	}
	if kitchenRow == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No kitchen row for check; order not yet fulfilled", nil)
		return
	}

	endOfDay, err := h.Store.GetEndOfDayRows(c.Request.Context(), restaurant, dateStr)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load end-of-day rows", err.Error())
		return
	}
	details, err := h.Store.GetOrderDetailRows(c.Request.Context(), restaurant, dateStr)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load order details", err.Error())
		return
	}
	entries, err := h.Store.GetTimeEntries(c.Request.Context(), restaurant, dateStr)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load time entries", err.Error())
		return
	}

	var eodRow models.EndOfDayRow
	for _, r := range endOfDay {
		if r.CheckID == checkID {
			eodRow = r
			break
		}
	}
	var detailRow models.OrderDetailRow
	for _, r := range details {
		if r.CheckID == checkID {
			detailRow = r
			break
		}
	}

	var staff roster.Matcher
	if len(entries) > 0 {
		staff = roster.NewFuzzyMatcher(entries)
	}
	categorizer := service.NewCategorizer(h.Processor.Cfg.Categorizer, staff, h.Logger)
	res := categorizer.CategorizeCheck(*kitchenRow, eodRow, detailRow)
	signals := categorizer.ExtractSignals(*kitchenRow, eodRow, detailRow)

	stages := map[string]bool{}
	for _, s := range res.Stages {
		stages[s.Name] = s.Matched
	}
	c.JSON(http.StatusOK, gin.H{
		"check_id": checkID,
		"category": res.Order.Category,
		"degraded": res.Degraded,
		"signals": gin.H{
			"table_sources": signals.TableSources,
			"table":         signals.Table,
			"cash_drawer":   signals.CashDrawer,
			"position":      signals.Position,
			"kitchen_mins":  signals.KitchenMins,
			"order_mins":    signals.OrderMins,
		},
		"stages": stages,
	})
}

type ReclassifyRequest struct {
	BusinessDate string `json:"business_date" validate:"required"`
	Category     string `json:"category" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
}

func (h *Handler) Reclassify(c *gin.Context) {
	checkID := c.Param("id")
	var req ReclassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "unknown category", err.Error())
		return
	}

	err = h.Store.ReclassifyOrder(c.Request.Context(), h.restaurantFrom(c), req.BusinessDate, checkID, string(category), req.Reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reclassify", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "category": category})
}

func dayOfWeek(name string) (int, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(name, d.String()) {
			return int(d), true
		}
	}
	return 0, false
}

func (h *Handler) restaurantFrom(c *gin.Context) string {
	if v := strings.TrimSpace(c.Query("restaurant")); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.PostForm("restaurant")); v != "" {
		return v
	}
	return h.Restaurant
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
