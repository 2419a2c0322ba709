package service

import (
	"strconv"
	"strings"
)

// ParseDurationMinutes converts the free-text duration forms found in POS
// exports into minutes: "5 minutes and 39 seconds", "MM:SS", "HH:MM:SS", or
// a bare number of minutes. Unparseable input yields 0.
func ParseDurationMinutes(raw string) float64 {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0
	}

	if strings.Contains(raw, ":") {
		return parseClockForm(raw)
	}
	if strings.Contains(raw, "hour") || strings.Contains(raw, "minute") || strings.Contains(raw, "second") {
		return parseWordForm(raw)
	}

	if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
		return v
	}
	return 0
}

// parseClockForm handles "MM:SS" and "HH:MM:SS".
func parseClockForm(raw string) float64 {
	parts := strings.Split(raw, ":")
	nums := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return 0
		}
		nums = append(nums, v)
	}
	switch len(nums) {
	case 2:
		return nums[0] + nums[1]/60
	case 3:
		return nums[0]*60 + nums[1] + nums[2]/60
	}
	return 0
}

// parseWordForm handles "2 minutes and 52 seconds" and friends.
func parseWordForm(raw string) float64 {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", " "))
	total := 0.0
	for i := 0; i < len(fields)-1; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || v < 0 {
			continue
		}
		unit := fields[i+1]
		switch {
		case strings.HasPrefix(unit, "hour"):
			total += v * 60
		case strings.HasPrefix(unit, "min"):
			total += v
		case strings.HasPrefix(unit, "sec"):
			total += v / 60
		}
	}
	return total
}
