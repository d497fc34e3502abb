package cache

import (
	"testing"
	"time"

	"github.com/tnunamak/usagemon/internal/usage"
)

func TestCacheFreshness(t *testing.T) {
	now := time.Date(2025, 8, 11, 9, 0, 0, 0, time.UTC)
	c := New(t.TempDir(), time.Minute)
	c.now = func() time.Time { return now }

	if _, ok := c.Fresh(); ok {
		t.Fatal("empty cache reported fresh")
	}

	reset := now.Add(time.Hour)
	snap := usage.NewConnected(usage.Window{Utilization: 0.33, ResetsAt: &reset}, usage.Window{Utilization: 0.1}, "pro", "manual", now)
	if err := c.Write(snap); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entry, ok := c.Fresh()
	if !ok {
		t.Fatal("expected fresh entry")
	}
	if entry.Usage.ShortTermPercent() != 33 || entry.Usage.SubscriptionType != "pro" {
		t.Errorf("entry = %+v", entry.Usage)
	}
	if entry.Usage.ShortTerm.ResetsAt == nil || !entry.Usage.ShortTerm.ResetsAt.Equal(reset) {
		t.Errorf("reset lost in round trip: %v", entry.Usage.ShortTerm.ResetsAt)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Fresh(); ok {
		t.Error("entry should expire after TTL")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := c.Read(); err == nil {
		t.Error("expected error reading cleared cache")
	}
}

func TestCacheIgnoresDisconnected(t *testing.T) {
	c := New(t.TempDir(), time.Minute)
	if err := c.Write(usage.Disconnected("", "", "Timed out", time.Now())); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := c.Read(); err == nil {
		t.Error("disconnected snapshot should not be cached")
	}
}
