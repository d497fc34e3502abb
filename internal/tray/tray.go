//go:build tray

package tray

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"time"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/tnunamak/usagemon/internal/tray/icons"
	"github.com/tnunamak/usagemon/internal/usage"
)

// Run shows the tray icon until Quit is chosen or ctx is canceled.
func Run(ctx context.Context, opts Options) int {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	systray.Run(func() { onReady(ctx, cancel, opts) }, cancel)
	return 0
}

func onReady(ctx context.Context, cancel context.CancelFunc, opts Options) {
	systray.SetIcon(icons.ForSnapshot(usage.Snapshot{}, opts.Thresholds, opts.darkMode()))
	systray.SetTitle("usagemon")
	systray.SetTooltip("Claude usage monitor " + opts.Version)

	mHeader := systray.AddMenuItem("Claude", "")
	mHeader.Disable()
	systray.AddSeparator()
	mFive := systray.AddMenuItem("5h:  --", "")
	mFive.Disable()
	mSeven := systray.AddMenuItem("7d:  --", "")
	mSeven.Disable()
	mSource := systray.AddMenuItem("Source: unknown", "")
	mSource.Disable()
	mError := systray.AddMenuItem("", "")
	mError.Disable()
	mError.Hide()
	systray.AddSeparator()
	mRefresh := systray.AddMenuItem("Refresh Now", "Fetch usage immediately")
	mOpen := systray.AddMenuItem("Open Claude.ai", UsageURL)
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "")

	opts.Poller.Subscribe(func(s usage.Snapshot) {
		v := Render(s, time.Now())
		systray.SetIcon(icons.ForSnapshot(s, opts.Thresholds, opts.darkMode()))
		systray.SetTitle(v.Title)
		systray.SetTooltip(v.Tooltip)
		mHeader.SetTitle(v.Header)
		mFive.SetTitle(v.ShortTerm)
		mSeven.SetTitle(v.LongTerm)
		mSource.SetTitle(v.Source)
		if v.Error != "" {
			mError.SetTitle(v.Error)
			mError.Show()
		} else {
			mError.Hide()
		}

		if opts.Alerts == nil || opts.Notifier == nil {
			return
		}
		if alert, ok := opts.Alerts.Check(s); ok {
			if err := alert.Send(opts.Notifier); err != nil {
				opts.Logger.Warn("notification failed", zap.Error(err))
			}
		}
	})

	go func() {
		if err := opts.Poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			opts.Logger.Error("poller stopped", zap.Error(err))
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				systray.Quit()
				return
			case <-mRefresh.ClickedCh:
				opts.Poller.Refresh()
			case <-mOpen.ClickedCh:
				if err := openURL(UsageURL); err != nil {
					opts.Logger.Warn("open browser failed", zap.Error(err))
				}
			case <-mQuit.ClickedCh:
				cancel()
			}
		}
	}()
}

func openURL(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
