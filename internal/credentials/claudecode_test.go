package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func newTestClaudeCode(t *testing.T, env map[string]string) (*ClaudeCodeSource, string) {
	t.Helper()
	home := t.TempDir()
	s := NewClaudeCodeSource(home)
	s.keychain = nil
	s.getenv = func(k string) string { return env[k] }
	return s, home
}

func writeClaudeCodeFile(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, ".claude")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".credentials.json"), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestClaudeCodeEnvToken(t *testing.T) {
	s, home := newTestClaudeCode(t, map[string]string{claudeCodeTokenEnv: "sk-ant-oat01-env"})
	writeClaudeCodeFile(t, home, `{"claudeAiOauth":{"accessToken":"from-file"}}`)

	cred, err := s.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if cred.Token != "sk-ant-oat01-env" || cred.Kind != KindOAuth {
		t.Errorf("got %+v", cred)
	}
	if !cred.Expiry.IsZero() {
		t.Error("env token should have unknown expiry")
	}
}

func TestClaudeCodeFile(t *testing.T) {
	s, home := newTestClaudeCode(t, nil)
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	writeClaudeCodeFile(t, home, `{"claudeAiOauth":{"accessToken":"sk-ant-oat01-file","refreshToken":"r","expiresAt":`+
		strconv.FormatInt(expires.UnixMilli(), 10)+`,"subscriptionType":"max"}}`)

	cred, err := s.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if cred.Token != "sk-ant-oat01-file" || cred.SubscriptionType != "max" {
		t.Errorf("got %+v", cred)
	}
	if !cred.Expiry.Equal(expires) {
		t.Errorf("Expiry = %v, want %v", cred.Expiry, expires)
	}
	if cred.Expired(expires.Add(-time.Second)) {
		t.Error("should not be expired before expiry")
	}
	if !cred.Expired(expires) {
		t.Error("should be expired at expiry")
	}
	tok := cred.OAuthToken()
	if tok.AccessToken != cred.Token || tok.Type() != "Bearer" {
		t.Errorf("OAuthToken() = %+v", tok)
	}
}

func TestClaudeCodeMissingOrEmpty(t *testing.T) {
	s, home := newTestClaudeCode(t, nil)
	if _, err := s.Lookup(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file: err = %v", err)
	}
	writeClaudeCodeFile(t, home, `{"claudeAiOauth":{"accessToken":""}}`)
	if _, err := s.Lookup(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty token: err = %v", err)
	}
}

func TestClaudeCodeKeychainRawToken(t *testing.T) {
	s, _ := newTestClaudeCode(t, nil)
	s.keychain = func(service string) (string, error) {
		if service != claudeCodeKeychainItem {
			t.Errorf("service = %q", service)
		}
		return "sk-ant-oat01-raw", nil
	}
	cred, err := s.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if cred.Token != "sk-ant-oat01-raw" {
		t.Errorf("Token = %q", cred.Token)
	}
}

func TestMasked(t *testing.T) {
	c := &Credential{Token: "sk-ant-REDACTED"}
	if got := c.Masked(); got != "sk-ant-sid...cdef" {
		t.Errorf("Masked() = %q", got)
	}
	if got := (&Credential{Token: "short"}).Masked(); got != "****" {
		t.Errorf("Masked() = %q", got)
	}
}
