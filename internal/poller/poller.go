package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tnunamak/usagemon/internal/metrics"
	"github.com/tnunamak/usagemon/internal/usage"
)

// Fetcher produces one snapshot per call.
type Fetcher interface {
	Fetch(ctx context.Context) usage.Snapshot
}

// Invalidator is implemented by fetchers that cache credentials. An explicit
// refresh drops the cache so edited credentials are picked up.
type Invalidator interface {
	Invalidate()
}

// Handler receives every snapshot, on the poller's goroutine.
type Handler func(usage.Snapshot)

type Options struct {
	Interval time.Duration
	Metrics  *metrics.Metrics // optional
	Logger   *zap.Logger
}

// Poller fetches on start, on every tick and on demand. Fetches never overlap.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	refresh  chan struct{}

	mu       sync.RWMutex
	latest   usage.Snapshot
	hasData  bool
	handlers []Handler
}

func New(f Fetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Poller{
		fetcher:  f,
		interval: opts.Interval,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		refresh:  make(chan struct{}, 1),
	}
}

func (p *Poller) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Refresh asks for a fetch with freshly resolved credentials as soon as
// possible. Requests made while one is pending are merged.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Latest returns the most recent snapshot, if any poll has finished.
func (p *Poller) Latest() (usage.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.hasData
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		case <-p.refresh:
			if inv, ok := p.fetcher.(Invalidator); ok {
				inv.Invalidate()
			}
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	start := time.Now()
	snap := p.fetcher.Fetch(ctx)
	took := time.Since(start)

	if ctx.Err() != nil {
		return
	}
	if p.metrics != nil {
		p.metrics.Observe(snap, took)
	}
	if snap.Connected {
		p.logger.Debug("usage polled",
			zap.Int("five_hour_pct", snap.ShortTermPercent()),
			zap.Int("seven_day_pct", snap.LongTermPercent()),
			zap.String("source", snap.CredentialSource),
			zap.Duration("took", took),
		)
	} else {
		p.logger.Info("usage unavailable", zap.String("error", snap.Error))
	}

	p.mu.Lock()
	p.latest, p.hasData = snap, true
	handlers := append([]Handler(nil), p.handlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
}
