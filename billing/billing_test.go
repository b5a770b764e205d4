package billing

import (
	"testing"
	"time"
)

func TestMinutesBetween(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"zero", start, 0},
		{"negative clock skew", start.Add(-time.Second), 0},
		{"exact minute", start.Add(time.Minute), 1},
		{"partial minute rounds up", start.Add(30 * time.Second), 1},
		{"exact hour", start.Add(60 * time.Minute), 60},
		{"hour boundary overshoot", start.Add(60*time.Minute + 5*time.Second), 61},
		{"ninety minutes", start.Add(90 * time.Minute), 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := minutesBetween(start, tt.end); got != tt.want {
				t.Errorf("minutesBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}
