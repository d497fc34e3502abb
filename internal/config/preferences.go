package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const preferencesFile = "settings.json"

// Preferences are the user-facing toggles kept next to the session key.
type Preferences struct {
	DarkMode bool `json:"dark_mode"`
}

func LoadPreferences(dir string) (Preferences, error) {
	data, err := os.ReadFile(filepath.Join(dir, preferencesFile))
	if errors.Is(err, os.ErrNotExist) {
		return Preferences{}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("parse preferences: %w", err)
	}
	return p, nil
}

func SavePreferences(dir string, p Preferences) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, preferencesFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmp, path)
}
