package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	claudeCodeTokenEnv     = "CLAUDE_CODE_OAUTH_TOKEN"
	claudeCodeKeychainItem = "Claude Code-credentials"
)

var homeDir = os.UserHomeDir

// ClaudeCodeSource reads the OAuth token the Claude Code CLI stores after login.
type ClaudeCodeSource struct {
	path string
	// keychain is nil off macOS.
	keychain func(service string) (string, error)
	getenv   func(string) string
}

type claudeCodeFile struct {
	ClaudeAiOauth struct {
		AccessToken      string   `json:"accessToken"`
		RefreshToken     string   `json:"refreshToken"`
		ExpiresAt        int64    `json:"expiresAt"`
		Scopes           []string `json:"scopes"`
		SubscriptionType string   `json:"subscriptionType"`
		RateLimitTier    string   `json:"rateLimitTier"`
	} `json:"claudeAiOauth"`
}

func NewClaudeCodeSource(home string) *ClaudeCodeSource {
	s := &ClaudeCodeSource{
		path:   filepath.Join(home, ".claude", ".credentials.json"),
		getenv: os.Getenv,
	}
	if runtime.GOOS == "darwin" {
		s.keychain = readKeychain
	}
	return s
}

func (s *ClaudeCodeSource) Name() Source { return SourceClaudeCode }

// Lookup tries, in order:
//  1. CLAUDE_CODE_OAUTH_TOKEN env var (raw access token)
//  2. macOS Keychain
//  3. ~/.claude/.credentials.json
func (s *ClaudeCodeSource) Lookup(_ context.Context) (*Credential, error) {
	if token := strings.TrimSpace(s.getenv(claudeCodeTokenEnv)); token != "" {
		return &Credential{Token: token, Kind: KindOAuth}, nil
	}

	if s.keychain != nil {
		if data, err := s.keychain(claudeCodeKeychainItem); err == nil {
			var f claudeCodeFile
			if err := json.Unmarshal([]byte(data), &f); err != nil {
				// Might be a raw token string
				return &Credential{Token: data, Kind: KindOAuth}, nil
			}
			if cred := f.credential(); cred != nil {
				return cred, nil
			}
		}
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var f claudeCodeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if cred := f.credential(); cred != nil {
		return cred, nil
	}
	return nil, ErrNotFound
}

func (f *claudeCodeFile) credential() *Credential {
	o := f.ClaudeAiOauth
	if strings.TrimSpace(o.AccessToken) == "" {
		return nil
	}
	cred := &Credential{
		Token:            o.AccessToken,
		Kind:             KindOAuth,
		SubscriptionType: o.SubscriptionType,
	}
	if o.ExpiresAt > 0 {
		cred.Expiry = time.UnixMilli(o.ExpiresAt)
	}
	return cred
}

// OAuthToken exposes an oauth credential as an oauth2.Token.
func (c *Credential) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: c.Token,
		TokenType:   "Bearer",
		Expiry:      c.Expiry,
	}
}

func readKeychain(service string) (string, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-w").Output()
	if err != nil {
		return "", fmt.Errorf("keychain: %w", err)
	}
	data := strings.TrimSpace(string(out))
	if data == "" {
		return "", fmt.Errorf("keychain: empty value")
	}
	return data, nil
}
