package tray

import (
	"go.uber.org/zap"

	"github.com/tnunamak/usagemon/internal/config"
	"github.com/tnunamak/usagemon/internal/notify"
	"github.com/tnunamak/usagemon/internal/poller"
	"github.com/tnunamak/usagemon/internal/usage"
)

type Options struct {
	Version    string
	Poller     *poller.Poller
	Thresholds usage.Thresholds
	// Alerts and Notifier are nil when notifications are disabled.
	Alerts   *notify.Alerts
	Notifier notify.Notifier
	// ConfigDir holds settings.json; it is reread on every poll.
	ConfigDir string
	Logger    *zap.Logger
}

func (o Options) darkMode() bool {
	if o.ConfigDir == "" {
		return false
	}
	prefs, err := config.LoadPreferences(o.ConfigDir)
	if err != nil {
		o.Logger.Debug("load preferences failed", zap.Error(err))
		return false
	}
	return prefs.DarkMode
}
