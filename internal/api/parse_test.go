package api

import (
	"errors"
	"testing"
	"time"
)

func TestParseUsageCurrentSchema(t *testing.T) {
	body := []byte(`{
		"five_hour": {"utilization": 42.5, "resets_at": "2025-08-11T10:00:00.123456+00:00"},
		"seven_day": {"utilization": 17, "resets_at": "2025-08-15T03:00:00Z"},
		"seven_day_opus": null
	}`)
	short, long, err := ParseUsage(body)
	if err != nil {
		t.Fatalf("ParseUsage: %v", err)
	}
	if short.Utilization != 0.425 || short.Percent() != 42 {
		t.Errorf("short = %+v", short)
	}
	if long.Utilization != 0.17 {
		t.Errorf("long = %+v", long)
	}
	wantShort := time.Date(2025, 8, 11, 10, 0, 0, 123456000, time.UTC)
	if short.ResetsAt == nil || !short.ResetsAt.Equal(wantShort) {
		t.Errorf("short reset = %v, want %v", short.ResetsAt, wantShort)
	}
	wantLong := time.Date(2025, 8, 15, 3, 0, 0, 0, time.UTC)
	if long.ResetsAt == nil || !long.ResetsAt.Equal(wantLong) {
		t.Errorf("long reset = %v, want %v", long.ResetsAt, wantLong)
	}
}

func TestParseUsageLegacySchema(t *testing.T) {
	body := []byte(`{
		"dailyUsage": {"percentUsed": 80, "resetsAt": 1754906400},
		"longTermUsage": {"percentUsed": 5, "resetsAt": 1754906400000}
	}`)
	short, long, err := ParseUsage(body)
	if err != nil {
		t.Fatalf("ParseUsage: %v", err)
	}
	if short.Utilization != 0.8 || long.Utilization != 0.05 {
		t.Errorf("short = %v, long = %v", short.Utilization, long.Utilization)
	}
	want := time.Unix(1754906400, 0)
	if short.ResetsAt == nil || !short.ResetsAt.Equal(want) {
		t.Errorf("seconds timestamp = %v", short.ResetsAt)
	}
	if long.ResetsAt == nil || !long.ResetsAt.Equal(want) {
		t.Errorf("milliseconds timestamp = %v", long.ResetsAt)
	}
}

func TestParseUsageMixedSchemas(t *testing.T) {
	body := []byte(`{"five_hour": {"utilization": 10}, "longTermUsage": {"percentUsed": 30}}`)
	short, long, err := ParseUsage(body)
	if err != nil {
		t.Fatal(err)
	}
	if short.Utilization != 0.1 || long.Utilization != 0.3 {
		t.Errorf("short = %v, long = %v", short.Utilization, long.Utilization)
	}
	if short.ResetsAt != nil || long.ResetsAt != nil {
		t.Error("resets should be unknown when absent")
	}
}

func TestParseUsageNullCurrentBlocksLegacy(t *testing.T) {
	body := []byte(`{"five_hour": null, "dailyUsage": {"percentUsed": 55}}`)
	short, _, err := ParseUsage(body)
	if err != nil {
		t.Fatal(err)
	}
	if short.Utilization != 0 {
		t.Errorf("null current field must not fall back to legacy, got %v", short.Utilization)
	}
}

func TestParseUsageOddShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"array", `[1,2,3]`},
		{"string fields", `{"five_hour": "busy", "seven_day": 12}`},
		{"missing utilization", `{"five_hour": {"resets_at": null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			short, long, err := ParseUsage([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseUsage: %v", err)
			}
			if short.Utilization != 0 || long.Utilization != 0 || short.ResetsAt != nil {
				t.Errorf("short = %+v, long = %+v", short, long)
			}
		})
	}
}

func TestParseUsageClampsOverLimit(t *testing.T) {
	short, _, err := ParseUsage([]byte(`{"five_hour": {"utilization": 112}}`))
	if err != nil {
		t.Fatal(err)
	}
	if short.Utilization != 1 {
		t.Errorf("Utilization = %v, want 1", short.Utilization)
	}
}

func TestParseUsageInvalidJSON(t *testing.T) {
	if _, _, err := ParseUsage([]byte(`<html>`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestParseTimestampForms(t *testing.T) {
	want := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)
	midnight := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		want *time.Time
	}{
		{`"2025-08-11T10:00:00Z"`, &want},
		{`"2025-08-11T12:00:00+02:00"`, &want},
		{`"2025-08-11T10:00:00"`, &want},
		{`"2025-08-11 10:00:00"`, &want},
		{`"2025-08-11"`, &midnight},
		{`1754906400`, &want},
		{`1754906400000`, &want},
		{`0`, nil},
		{`""`, nil},
		{`"next tuesday"`, nil},
		{`null`, nil},
		{`true`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			short, _, err := ParseUsage([]byte(`{"five_hour": {"utilization": 1, "resets_at": ` + tt.raw + `}}`))
			if err != nil {
				t.Fatal(err)
			}
			got := short.ResetsAt
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOrganizationID(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"account": {"memberships": [{"organization": {"uuid": "org-a"}}]}}`, "org-a"},
		{`{"account": {"memberships": []}, "organizations": [{"uuid": "org-b"}]}`, "org-b"},
		{`{"organizations": [{"id": "org-c"}]}`, "org-c"},
		{`[{"uuid": "org-d", "name": "Personal"}]`, "org-d"},
		{`{"account": {}}`, ""},
		{`nope`, ""},
	}
	for _, tt := range tests {
		if got := parseOrganizationID([]byte(tt.body)); got != tt.want {
			t.Errorf("parseOrganizationID(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
