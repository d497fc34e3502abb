package usage

import (
	"fmt"
	"math"
	"time"
)

const unknown = "unknown"

// Window is one rolling quota window.
type Window struct {
	// Utilization is the used fraction of the window, 0 to 1.
	Utilization float64    `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at,omitempty"`
}

func (w Window) Percent() int {
	return int(w.Utilization * 100)
}

// ResetIn formats the time left until the window resets, relative to now.
func (w Window) ResetIn(now time.Time) string {
	if w.ResetsAt == nil {
		return "Unknown"
	}
	d := w.ResetsAt.Sub(now)
	if d <= 0 {
		return "Now"
	}
	secs := int64(d / time.Second)
	hours := secs / 3600
	mins := (secs % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// Snapshot is the result of one poll. Built once and passed by value.
type Snapshot struct {
	ShortTerm        Window    `json:"short_term"`
	LongTerm         Window    `json:"long_term"`
	SubscriptionType string    `json:"subscription_type"`
	CredentialSource string    `json:"credential_source"`
	Connected        bool      `json:"connected"`
	Error            string    `json:"error,omitempty"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// NewConnected builds a snapshot from parsed windows.
func NewConnected(short, long Window, subscription, source string, at time.Time) Snapshot {
	return Snapshot{
		ShortTerm:        clampWindow(short),
		LongTerm:         clampWindow(long),
		SubscriptionType: orUnknown(subscription),
		CredentialSource: orUnknown(source),
		Connected:        true,
		FetchedAt:        at,
	}
}

// Disconnected builds a snapshot that carries only an error. Its windows are
// zero and must not be rendered as data.
func Disconnected(subscription, source, message string, at time.Time) Snapshot {
	return Snapshot{
		SubscriptionType: orUnknown(subscription),
		CredentialSource: orUnknown(source),
		Error:            message,
		FetchedAt:        at,
	}
}

func (s Snapshot) ShortTermPercent() int { return s.ShortTerm.Percent() }
func (s Snapshot) LongTermPercent() int  { return s.LongTerm.Percent() }

func (s Snapshot) ShortTermResetIn(now time.Time) string { return s.ShortTerm.ResetIn(now) }
func (s Snapshot) LongTermResetIn(now time.Time) string  { return s.LongTerm.ResetIn(now) }

func (s Snapshot) MaxUsage() float64 {
	if s.LongTerm.Utilization > s.ShortTerm.Utilization {
		return s.LongTerm.Utilization
	}
	return s.ShortTerm.Utilization
}

// Dominant returns the window closer to its limit, preferring the short-term
// window on ties, and whether it is the long-term one.
func (s Snapshot) Dominant() (Window, bool) {
	if s.LongTermPercent() > s.ShortTermPercent() {
		return s.LongTerm, true
	}
	return s.ShortTerm, false
}

// StatusText is a one-line description suitable for tooltips and logs.
func (s Snapshot) StatusText(now time.Time) string {
	if !s.Connected {
		if s.Error != "" {
			return s.Error
		}
		return "Not connected"
	}
	return fmt.Sprintf("5h: %d%% (resets in %s)  7d: %d%% (resets in %s)",
		s.ShortTermPercent(), s.ShortTermResetIn(now),
		s.LongTermPercent(), s.LongTermResetIn(now))
}

func clampWindow(w Window) Window {
	w.Utilization = Clamp(w.Utilization)
	return w
}

// Clamp bounds a fraction to [0,1].
func Clamp(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
