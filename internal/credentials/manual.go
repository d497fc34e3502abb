package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sessionFile = "session.json"

// ManualStore keeps a session key entered by the user.
type ManualStore struct {
	path string
}

type manualFile struct {
	SessionKey string `json:"session_key"`
	OrgID      string `json:"org_id,omitempty"`
}

func NewManualStore(configDir string) *ManualStore {
	return &ManualStore{path: filepath.Join(configDir, sessionFile)}
}

func (m *ManualStore) Name() Source { return SourceManual }

func (m *ManualStore) Path() string { return m.path }

func (m *ManualStore) Lookup(_ context.Context) (*Credential, error) {
	f, err := m.read()
	if err != nil {
		return nil, err
	}
	return &Credential{
		Token: f.SessionKey,
		OrgID: f.OrgID,
		Kind:  KindSessionKey,
	}, nil
}

func (m *ManualStore) read() (*manualFile, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.path, err)
	}
	var f manualFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.path, err)
	}
	f.SessionKey = strings.TrimSpace(f.SessionKey)
	f.OrgID = strings.TrimSpace(f.OrgID)
	if f.SessionKey == "" {
		return nil, ErrNotFound
	}
	return &f, nil
}

// Save writes the session key and optional org id, readable only by the owner.
func (m *ManualStore) Save(sessionKey, orgID string) error {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return errors.New("session key is empty")
	}
	data, err := json.Marshal(manualFile{SessionKey: sessionKey, OrgID: strings.TrimSpace(orgID)})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmp, m.path)
}

func (m *ManualStore) Clear() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
