package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tnunamak/usagemon/internal/cache"
	"github.com/tnunamak/usagemon/internal/config"
	"github.com/tnunamak/usagemon/internal/credentials"
	"github.com/tnunamak/usagemon/internal/usage"
)

var now = time.Date(2025, 8, 11, 8, 0, 0, 0, time.UTC)

type fakeClient struct {
	cred    *credentials.Credential
	credErr error
	snap    usage.Snapshot
	fetches int
}

func (f *fakeClient) Credential(context.Context) (*credentials.Credential, error) {
	return f.cred, f.credErr
}

func (f *fakeClient) Fetch(context.Context) usage.Snapshot {
	f.fetches++
	return f.snap
}

func newTestApp(t *testing.T, client UsageClient) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var cfg config.Config
	cfg.ApplyDefaults()
	var stdout, stderr bytes.Buffer
	dir := t.TempDir()
	return &App{
		ConfigDir: dir,
		Config:    cfg,
		Logger:    zap.NewNop(),
		Cache:     cache.New(dir, time.Minute),
		Client:    client,
		Stdout:    &stdout,
		Stderr:    &stderr,
		Now:       func() time.Time { return now },
		IsTTY:     func() bool { return false },
	}, &stdout, &stderr
}

func connected() usage.Snapshot {
	short := now.Add(90 * time.Minute)
	long := now.Add(143*time.Hour + 5*time.Minute)
	return usage.NewConnected(
		usage.Window{Utilization: 0.37, ResetsAt: &short},
		usage.Window{Utilization: 0.125, ResetsAt: &long},
		"max", "claude_code", now,
	)
}

func sessionCred() *credentials.Credential {
	return &credentials.Credential{Token: "sk-ant-sid01-abcdefghijkl", Source: credentials.SourceManual, Kind: credentials.KindSessionKey, SubscriptionType: "unknown"}
}

func TestStatusPlain(t *testing.T) {
	app, stdout, _ := newTestApp(t, &fakeClient{cred: sessionCred(), snap: connected()})

	if code := app.Status(context.Background(), false, false); code != ExitOK {
		t.Fatalf("exit = %d", code)
	}
	want := "5h: 37% (resets 1h 30m)  7d: 12% (resets 143h 5m)\n"
	if stdout.String() != want {
		t.Errorf("output = %q, want %q", stdout.String(), want)
	}
}

func TestStatusUsesFreshCache(t *testing.T) {
	client := &fakeClient{cred: sessionCred(), snap: connected()}
	app, _, _ := newTestApp(t, client)

	app.Status(context.Background(), false, false)
	app.Status(context.Background(), false, false)
	if client.fetches != 1 {
		t.Errorf("fetches = %d, want 1", client.fetches)
	}
}

func TestStatusJSON(t *testing.T) {
	app, stdout, _ := newTestApp(t, &fakeClient{cred: sessionCred(), snap: connected()})

	if code := app.Status(context.Background(), true, false); code != ExitOK {
		t.Fatalf("exit = %d", code)
	}
	var out JSONOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, stdout)
	}
	if !out.Usage.Connected || out.Usage.ShortTermPercent() != 37 || out.Cache != nil {
		t.Errorf("out = %+v", out)
	}
}

func TestStatusNoCredentials(t *testing.T) {
	app, stdout, stderr := newTestApp(t, &fakeClient{credErr: credentials.ErrNoCredentials})

	if code := app.Status(context.Background(), false, false); code != ExitNoAuth {
		t.Errorf("exit = %d, want %d", code, ExitNoAuth)
	}
	if !strings.Contains(stderr.String(), "usagemon auth set") {
		t.Errorf("stderr = %q", stderr)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestStatusExpiredToken(t *testing.T) {
	cred := &credentials.Credential{Token: "tok", Kind: credentials.KindOAuth, Expiry: now.Add(-time.Minute)}
	client := &fakeClient{cred: cred}
	app, _, stderr := newTestApp(t, client)

	if code := app.Status(context.Background(), false, false); code != ExitNoAuth {
		t.Errorf("exit = %d", code)
	}
	if client.fetches != 0 {
		t.Error("fetched with an expired token")
	}
	if !strings.Contains(stderr.String(), "Token expired") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestStatusFetchFailure(t *testing.T) {
	snap := usage.Disconnected("", "manual", "Session expired. Update your session key.", now)
	app, stdout, stderr := newTestApp(t, &fakeClient{cred: sessionCred(), snap: snap})

	if code := app.Status(context.Background(), false, false); code != ExitFetchFailed {
		t.Errorf("exit = %d", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("numbers printed for a disconnected snapshot: %q", stdout)
	}
	if !strings.Contains(stderr.String(), "Session expired") {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := app.Cache.Read(); err == nil {
		t.Error("disconnected snapshot was cached")
	}
}

func TestPrintColor(t *testing.T) {
	var buf bytes.Buffer
	PrintColor(&buf, connected(), usage.DefaultThresholds, now)
	out := buf.String()
	for _, want := range []string{"37%", "resets 1h 30m", "\033[32m", "max plan via claude_code"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintColor(&buf, usage.Disconnected("", "", "Timed out", now), usage.DefaultThresholds, now)
	if !strings.Contains(buf.String(), "not connected") || strings.Contains(buf.String(), "%") {
		t.Errorf("disconnected output = %q", buf.String())
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		fraction float64
		filled   int
	}{
		{0, 0},
		{0.5, 10},
		{1, 20},
		{1.5, 20},
		{-0.2, 0},
	}
	for _, tt := range tests {
		got := strings.Count(bar(tt.fraction), "█")
		if got != tt.filled {
			t.Errorf("bar(%v) filled = %d, want %d", tt.fraction, got, tt.filled)
		}
	}
}
