package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tnunamak/usagemon/internal/usage"
)

const namespace = "usagemon"

const (
	windowShortTerm = "five_hour"
	windowLongTerm  = "seven_day"
)

// Metrics exports poll results as Prometheus series.
type Metrics struct {
	utilization   *prometheus.GaugeVec
	resetAt       *prometheus.GaugeVec
	connected     prometheus.Gauge
	credential    *prometheus.GaugeVec
	polls         *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		utilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "quota_utilization_ratio",
				Help:      "Used fraction of the quota window (0-1)",
			},
			[]string{"window"},
		),
		resetAt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "quota_reset_timestamp_seconds",
				Help:      "Unix time at which the quota window resets",
			},
			[]string{"window"},
		),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 if the last poll returned usage data",
		}),
		credential: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "credential_info",
				Help:      "Credential source and subscription type of the last poll",
			},
			[]string{"source", "subscription"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_total",
				Help:      "Total usage polls",
			},
			[]string{"result"}, // "ok" / "error"
		),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Usage fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
	}
	reg.MustRegister(m.utilization, m.resetAt, m.connected, m.credential, m.polls, m.fetchDuration)
	return m
}

// Observe records one poll. Utilization series keep their last good value
// while disconnected.
func (m *Metrics) Observe(s usage.Snapshot, took time.Duration) {
	m.fetchDuration.Observe(took.Seconds())

	m.credential.Reset()
	m.credential.WithLabelValues(s.CredentialSource, s.SubscriptionType).Set(1)

	if !s.Connected {
		m.polls.WithLabelValues("error").Inc()
		m.connected.Set(0)
		return
	}
	m.polls.WithLabelValues("ok").Inc()
	m.connected.Set(1)

	for name, w := range map[string]usage.Window{windowShortTerm: s.ShortTerm, windowLongTerm: s.LongTerm} {
		m.utilization.WithLabelValues(name).Set(w.Utilization)
		if w.ResetsAt != nil {
			m.resetAt.WithLabelValues(name).Set(float64(w.ResetsAt.Unix()))
		} else {
			m.resetAt.DeleteLabelValues(name)
		}
	}
}
