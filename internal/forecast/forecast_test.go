package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/tnunamak/usagemon/internal/usage"
)

func TestProject(t *testing.T) {
	now := time.Date(2025, 8, 11, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { r := now.Add(d); return &r }

	tests := []struct {
		name      string
		w         usage.Window
		window    time.Duration
		wantPct   float64
		indicator string
	}{
		// 40% used after 2h of 5h: 100% by reset.
		{"over limit", usage.Window{Utilization: 0.4, ResetsAt: at(3 * time.Hour)}, ShortTermWindow, 100, "over limit"},
		// 18% after 1 of 7 days: 126%.
		{"week over", usage.Window{Utilization: 0.18, ResetsAt: at(6 * 24 * time.Hour)}, LongTermWindow, 126, "over limit"},
		// 10% after 4h of 5h: 12.5%.
		{"on track", usage.Window{Utilization: 0.1, ResetsAt: at(time.Hour)}, ShortTermWindow, 12.5, "on track"},
		{"just started", usage.Window{Utilization: 0.05, ResetsAt: at(5 * time.Hour)}, ShortTermWindow, 5, "on track"},
		{"unknown reset", usage.Window{Utilization: 0.92}, ShortTermWindow, 92, "tight"},
		{"unused", usage.Window{ResetsAt: at(time.Hour)}, ShortTermWindow, 0, "on track"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.w, tt.window, now)
			if math.Abs(p.ProjectedPct-tt.wantPct) > 0.01 {
				t.Errorf("ProjectedPct = %v, want %v", p.ProjectedPct, tt.wantPct)
			}
			if got := p.Indicator(); got != tt.indicator {
				t.Errorf("Indicator() = %q, want %q", got, tt.indicator)
			}
			if p.OnTrack != (p.ProjectedPct < 100) {
				t.Errorf("OnTrack = %v for %v", p.OnTrack, p.ProjectedPct)
			}
		})
	}
}
