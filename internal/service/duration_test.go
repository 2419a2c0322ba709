package service

import (
	"math"
	"testing"
)

func TestParseDurationMinutes(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"2 minutes and 52 seconds", 2 + 52.0/60},
		{"1 hour and 5 minutes", 65},
		{"39 seconds", 39.0 / 60},
		{"1:23", 1 + 23.0/60},
		{"1:02:30", 62.5},
		{"15.5", 15.5},
		{"7", 7},
		{"", 0},
		{"soon", 0},
		{"-3", 0},
	}
	for _, c := range cases {
		got := ParseDurationMinutes(c.raw)
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("ParseDurationMinutes(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
