package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tnunamak/usagemon/internal/api"
	"github.com/tnunamak/usagemon/internal/cache"
	"github.com/tnunamak/usagemon/internal/credentials"
	"github.com/tnunamak/usagemon/internal/forecast"
	"github.com/tnunamak/usagemon/internal/usage"
)

const barWidth = 20

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func ansi(l usage.Level) string {
	switch l {
	case usage.LevelCritical:
		return "\033[31m" // red
	case usage.LevelWarning:
		return "\033[33m" // yellow
	default:
		return "\033[32m" // green
	}
}

const reset = "\033[0m"

func bar(fraction float64) string {
	filled := int(math.Round(fraction * barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// PrintColor renders both windows as colored bars with a forecast.
func PrintColor(w io.Writer, s usage.Snapshot, th usage.Thresholds, now time.Time) {
	if !s.Connected {
		fmt.Fprintf(w, "usagemon  \033[90mnot connected\033[0m  %s\n", s.Error)
		return
	}
	five := forecast.Project(s.ShortTerm, forecast.ShortTermWindow, now)
	seven := forecast.Project(s.LongTerm, forecast.LongTermWindow, now)

	fmt.Fprintf(w, "usagemon  5h %s%s%s %3d%%  resets %-9s %s\n",
		ansi(th.Level(s.ShortTerm.Utilization)), bar(s.ShortTerm.Utilization), reset,
		s.ShortTermPercent(), s.ShortTermResetIn(now), five.ColorIndicator())
	fmt.Fprintf(w, "          7d %s%s%s %3d%%  resets %-9s %s\n",
		ansi(th.Level(s.LongTerm.Utilization)), bar(s.LongTerm.Utilization), reset,
		s.LongTermPercent(), s.LongTermResetIn(now), seven.ColorIndicator())
	fmt.Fprintf(w, "          %s plan via %s\n", s.SubscriptionType, s.CredentialSource)
}

// PrintPlain renders a single uncolored line.
func PrintPlain(w io.Writer, s usage.Snapshot, now time.Time) {
	if !s.Connected {
		fmt.Fprintf(w, "not connected: %s\n", s.Error)
		return
	}
	fmt.Fprintf(w, "5h: %d%% (resets %s)  7d: %d%% (resets %s)\n",
		s.ShortTermPercent(), s.ShortTermResetIn(now),
		s.LongTermPercent(), s.LongTermResetIn(now))
}

type JSONOutput struct {
	Usage usage.Snapshot `json:"usage"`
	Cache *CacheInfo     `json:"cache,omitempty"`
}

type CacheInfo struct {
	Hit       bool      `json:"hit"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

func PrintJSON(w io.Writer, s usage.Snapshot, cacheEntry *cache.Entry) {
	out := JSONOutput{Usage: s}
	if cacheEntry != nil {
		out.Cache = &CacheInfo{Hit: true, FetchedAt: cacheEntry.FetchedAt}
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(w, string(data))
}

func (a *App) print(s usage.Snapshot, entry *cache.Entry, jsonMode, plainMode bool) {
	switch {
	case jsonMode:
		PrintJSON(a.Stdout, s, entry)
	case a.color(plainMode):
		PrintColor(a.Stdout, s, a.Config.DisplayThresholds(), a.Now())
	default:
		PrintPlain(a.Stdout, s, a.Now())
	}
}

// Status prints the current usage once and returns the process exit code.
func (a *App) Status(ctx context.Context, jsonMode, plainMode bool) int {
	cred, err := a.Client.Credential(ctx)
	if err != nil {
		fmt.Fprintf(a.Stderr, "usagemon: %s\n", api.Message(err))
		if errors.Is(err, credentials.ErrNoCredentials) {
			return ExitNoAuth
		}
		return ExitFetchFailed
	}
	if cred.Expired(a.Now()) {
		fmt.Fprintf(a.Stderr, "usagemon: %s\n", api.Message(api.ErrTokenExpired))
		return ExitNoAuth
	}

	if entry, ok := a.Cache.Fresh(); ok {
		a.Logger.Debug("using cached usage", zap.Time("fetched_at", entry.FetchedAt))
		a.print(entry.Usage, entry, jsonMode, plainMode)
		return ExitOK
	}

	snap := a.Client.Fetch(ctx)
	if !snap.Connected {
		if jsonMode {
			PrintJSON(a.Stdout, snap, nil)
		}
		fmt.Fprintf(a.Stderr, "usagemon: %s\n", snap.Error)
		return ExitFetchFailed
	}

	if err := a.Cache.Write(snap); err != nil {
		a.Logger.Warn("write cache failed", zap.Error(err))
	}
	a.print(snap, nil, jsonMode, plainMode)
	return ExitOK
}
