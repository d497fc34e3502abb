package tray

import (
	"fmt"
	"strings"
	"time"

	"github.com/tnunamak/usagemon/internal/usage"
)

// UsageURL is opened by the "Open Claude.ai" menu entry.
const UsageURL = "https://claude.ai/settings/usage"

// View is the text shown by the tray for one snapshot.
type View struct {
	Title     string
	Tooltip   string
	Header    string
	ShortTerm string
	LongTerm  string
	Source    string
	// Error is empty when connected.
	Error string
}

// Render builds the tray text for s.
func Render(s usage.Snapshot, now time.Time) View {
	v := View{
		Header:  planName(s.SubscriptionType),
		Source:  "Source: " + s.CredentialSource,
		Tooltip: "usagemon: " + s.StatusText(now),
	}
	if !s.Connected {
		v.Title = "--"
		v.ShortTerm = "5h:  --"
		v.LongTerm = "7d:  --"
		v.Error = s.Error
		if v.Error == "" {
			v.Error = "Not connected"
		}
		return v
	}

	w, _ := s.Dominant()
	v.Title = fmt.Sprintf("%d%% · %s", w.Percent(), w.ResetIn(now))
	v.ShortTerm = fmt.Sprintf("5h: %3d%%  resets in %s", s.ShortTermPercent(), s.ShortTermResetIn(now))
	v.LongTerm = fmt.Sprintf("7d: %3d%%  resets in %s", s.LongTermPercent(), s.LongTermResetIn(now))
	return v
}

func planName(subscription string) string {
	if subscription == "" || subscription == "unknown" {
		return "Claude"
	}
	return "Claude " + strings.ToUpper(subscription[:1]) + subscription[1:]
}
