package notify

import (
	"fmt"
	"sync"

	"github.com/tnunamak/usagemon/internal/usage"
)

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, body string, urgency Urgency) error
}

type Alert struct {
	Title   string
	Body    string
	Urgency Urgency
}

// Alerts remembers the last seen usage and reports upward threshold crossings.
type Alerts struct {
	thresholds usage.Thresholds

	mu   sync.Mutex
	last float64
}

func NewAlerts(th usage.Thresholds) *Alerts {
	return &Alerts{thresholds: th}
}

// Check compares a snapshot with the previous one. Disconnected snapshots
// neither alert nor reset the memory.
func (a *Alerts) Check(s usage.Snapshot) (Alert, bool) {
	if !s.Connected {
		return Alert{}, false
	}
	pct := s.MaxUsage()

	a.mu.Lock()
	prev := a.last
	a.last = pct
	a.mu.Unlock()

	switch {
	case pct >= a.thresholds.Critical && prev < a.thresholds.Critical:
		return Alert{
			Title:   "Claude usage critical",
			Body:    fmt.Sprintf("Usage at %.0f%%, you may be rate limited soon", pct*100),
			Urgency: UrgencyCritical,
		}, true
	case pct >= a.thresholds.Warning && prev < a.thresholds.Warning:
		return Alert{
			Title:   "Claude usage warning",
			Body:    fmt.Sprintf("Usage at %.0f%%", pct*100),
			Urgency: UrgencyNormal,
		}, true
	}
	return Alert{}, false
}

// Send delivers the alert through n.
func (a Alert) Send(n Notifier) error {
	return n.Notify(a.Title, a.Body, a.Urgency)
}
