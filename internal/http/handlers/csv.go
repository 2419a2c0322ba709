package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shiftpulse/backend/internal/models"
)

func parseKitchenCSV(file *multipart.FileHeader) ([]models.KitchenRow, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errors []string
	var out []models.KitchenRow

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		id := normalizeTrim(getFieldAny(rec, index, "check_id", "check id", "check", "order_id", "ticket"))
		orderedAtStr := normalizeTrim(getFieldAny(rec, index, "ordered_at", "order_time", "sent_time", "time"))
		fulfillment := normalizeTrim(getFieldAny(rec, index, "fulfillment_time", "fulfillment", "kitchen_time", "prep_time"))
		server := normalizeTrim(getFieldAny(rec, index, "server", "employee", "staff"))
		table := normalizeTrim(getFieldAny(rec, index, "table", "table_name", "table_id"))
		expo := normalizeTrim(getFieldAny(rec, index, "expo_level", "expo", "expediter"))

		if id == "" {
			errors = append(errors, fmt.Sprintf("kitchen line %d: check_id required", line))
			continue
		}

		out = append(out, models.KitchenRow{
			CheckID:         id,
			OrderedAt:       parseTimestamp(orderedAtStr),
			FulfillmentTime: fulfillment,
			Server:          server,
			Table:           table,
			ExpoLevel:       expo,
		})
	}
	return out, errors
}

func parseEndOfDayCSV(file *multipart.FileHeader) ([]models.EndOfDayRow, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errors []string
	var out []models.EndOfDayRow

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		id := normalizeTrim(getFieldAny(rec, index, "check_id", "check id", "check", "order_id"))
		if id == "" {
			errors = append(errors, fmt.Sprintf("end-of-day line %d: check_id required", line))
			continue
		}
		salesStr := normalizeTrim(getFieldAny(rec, index, "net_sales", "sales", "amount", "total"))
		sales, _ := strconv.ParseFloat(salesStr, 64)

		out = append(out, models.EndOfDayRow{
			CheckID:      id,
			CashDrawer:   normalizeTrim(getFieldAny(rec, index, "cash_drawer", "drawer", "register")),
			Table:        normalizeTrim(getFieldAny(rec, index, "table", "table_name", "table_id")),
			DiningOption: normalizeTrim(getFieldAny(rec, index, "dining_option", "dining option", "order_type")),
			NetSales:     sales,
		})
	}
	return out, errors
}

func parseOrderDetailsCSV(file *multipart.FileHeader) ([]models.OrderDetailRow, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errors []string
	var out []models.OrderDetailRow

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		id := normalizeTrim(getFieldAny(rec, index, "check_id", "check id", "check", "order_id"))
		if id == "" {
			errors = append(errors, fmt.Sprintf("order-details line %d: check_id required", line))
			continue
		}

		out = append(out, models.OrderDetailRow{
			CheckID:       id,
			Table:         normalizeTrim(getFieldAny(rec, index, "table", "table_name", "table_id")),
			OrderDuration: normalizeTrim(getFieldAny(rec, index, "order_duration", "duration", "total_time")),
			DiningOption:  normalizeTrim(getFieldAny(rec, index, "dining_option", "dining option", "order_type")),
		})
	}
	return out, errors
}

func parseRosterCSV(file *multipart.FileHeader) ([]models.TimeEntry, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errors []string
	var out []models.TimeEntry

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		employee := normalizeTrim(getFieldAny(rec, index, "employee", "name", "staff"))
		if employee == "" {
			errors = append(errors, fmt.Sprintf("roster line %d: employee required", line))
			continue
		}

		out = append(out, models.TimeEntry{
			Employee: employee,
			Position: normalizeTrim(getFieldAny(rec, index, "position", "job_title", "job title", "role")),
			ClockIn:  parseTimestamp(normalizeTrim(getFieldAny(rec, index, "clock_in", "clock in", "in"))),
			ClockOut: parseTimestamp(normalizeTrim(getFieldAny(rec, index, "clock_out", "clock out", "out"))),
		})
	}
	return out, errors
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	h = strings.ReplaceAll(h, " ", "_")
	return strings.ToLower(strings.TrimSpace(h))
}

func normalizeTrim(v string) string {
	return strings.TrimSpace(v)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
