package api

import (
	"math"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemon/internal/usage"
)

// Current and legacy field names of the usage payload.
const (
	shortTermKey       = "five_hour"
	longTermKey        = "seven_day"
	legacyShortTermKey = "dailyUsage"
	legacyLongTermKey  = "longTermUsage"
)

// ParseUsage extracts both windows from a usage payload. Unknown shapes
// yield zero windows rather than an error; only invalid JSON fails.
func ParseUsage(body []byte) (short, long usage.Window, err error) {
	if !gjson.ValidBytes(body) {
		return usage.Window{}, usage.Window{}, ErrMalformed
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return usage.Window{}, usage.Window{}, nil
	}
	return parseWindow(root, shortTermKey, legacyShortTermKey),
		parseWindow(root, longTermKey, legacyLongTermKey),
		nil
}

// parseWindow reads the current schema when its key is present at all, even
// if null; only an absent key falls back to the legacy field.
func parseWindow(root gjson.Result, current, legacy string) usage.Window {
	if cur := root.Get(current); cur.Exists() {
		if !cur.IsObject() {
			return usage.Window{}
		}
		return window(cur.Get("utilization"), cur.Get("resets_at"))
	}
	if old := root.Get(legacy); old.IsObject() {
		return window(old.Get("percentUsed"), old.Get("resetsAt"))
	}
	return usage.Window{}
}

func window(percent, resetsAt gjson.Result) usage.Window {
	return usage.Window{
		Utilization: usage.Clamp(percent.Float() / 100),
		ResetsAt:    parseTimestamp(resetsAt),
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts epoch seconds, epoch milliseconds (values above
// 1e12) and ISO 8601 strings; naive strings are taken as UTC.
func parseTimestamp(r gjson.Result) *time.Time {
	switch r.Type {
	case gjson.Number:
		f := r.Float()
		if f <= 0 || math.IsInf(f, 0) {
			return nil
		}
		if f > 1e12 {
			f /= 1000
		}
		sec, frac := math.Modf(f)
		t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		return &t
	case gjson.String:
		s := r.String()
		if s == "" {
			return nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
		for _, layout := range naiveLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return &t
			}
		}
	}
	return nil
}

// parseOrganizationID finds the org uuid in a bootstrap or organizations payload.
func parseOrganizationID(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	for _, path := range []string{
		"account.memberships.0.organization.uuid",
		"organizations.0.uuid",
		"organizations.0.id",
		"0.uuid",
		"0.id",
	} {
		if id := root.Get(path).String(); id != "" {
			return id
		}
	}
	return ""
}
