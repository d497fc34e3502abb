package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tnunamak/usagemon/internal/usage"
)

const fileName = "usage.json"

// Cache keeps the last connected snapshot on disk for short-lived commands.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

type Entry struct {
	Usage     usage.Snapshot `json:"usage"`
	FetchedAt time.Time      `json:"fetched_at"`
}

func New(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl, now: time.Now}
}

func (c *Cache) path() string {
	return filepath.Join(c.dir, fileName)
}

func (c *Cache) Read() (*Entry, error) {
	data, err := os.ReadFile(c.path())
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Fresh returns the cached entry if it is younger than the TTL.
func (c *Cache) Fresh() (*Entry, bool) {
	entry, err := c.Read()
	if err != nil {
		return nil, false
	}
	if !entry.Usage.Connected || c.now().Sub(entry.FetchedAt) >= c.ttl {
		return nil, false
	}
	return entry, true
}

// Write stores a connected snapshot; disconnected ones are ignored.
func (c *Cache) Write(snap usage.Snapshot) error {
	if !snap.Connected {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	entry := Entry{
		Usage:     snap,
		FetchedAt: c.now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tmp := c.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmp, c.path())
}

// Clear removes the cached entry, e.g. after credentials change.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
