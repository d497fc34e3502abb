package cli

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tnunamak/usagemon/internal/poller"
	"github.com/tnunamak/usagemon/internal/usage"
)

// Watch prints a line per poll until ctx is canceled.
func (a *App) Watch(ctx context.Context, plainMode bool) int {
	p := poller.New(a.Client, poller.Options{
		Interval: a.Config.RefreshInterval,
		Logger:   a.Logger,
	})
	p.Subscribe(func(s usage.Snapshot) {
		if s.Connected {
			if err := a.Cache.Write(s); err != nil {
				a.Logger.Warn("write cache failed", zap.Error(err))
			}
		}
		if a.color(plainMode) {
			PrintColor(a.Stdout, s, a.Config.DisplayThresholds(), a.Now())
			return
		}
		PrintPlain(a.Stdout, s, a.Now())
	})

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("watch stopped", zap.Error(err))
		return ExitFetchFailed
	}
	return ExitOK
}
