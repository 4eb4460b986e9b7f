package fetch

import (
	"testing"
	"time"
)

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"PT4M13S", 4*time.Minute + 13*time.Second},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"PT15S", 15 * time.Second},
		{"PT2H", 2 * time.Hour},
		{"P1DT2H", 26 * time.Hour},
		{"PT0S", 0},
	}

	for _, tt := range tests {
		got, err := parseISO8601Duration(tt.raw)
		if err != nil {
			t.Errorf("parseISO8601Duration(%q) error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseISO8601Duration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseISO8601Duration_Invalid(t *testing.T) {
	for _, raw := range []string{"", "4m13s", "TP4M", "PT4X"} {
		if _, err := parseISO8601Duration(raw); err == nil {
			t.Errorf("parseISO8601Duration(%q) expected error", raw)
		}
	}
}
