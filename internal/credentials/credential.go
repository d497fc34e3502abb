package credentials

import (
	"errors"
	"time"
)

// Source names where a credential came from.
type Source string

const (
	SourceManual     Source = "manual"
	SourceBrowser    Source = "browser"
	SourceClaudeCode Source = "claude_code"
)

// Kind decides which endpoint a token is good for.
type Kind string

const (
	// KindSessionKey is a claude.ai web session cookie value (sk-ant-sid...).
	KindSessionKey Kind = "session_key"
	// KindOAuth is an OAuth access token issued to the Claude Code CLI.
	KindOAuth Kind = "oauth"
)

var (
	ErrNoCredentials = errors.New("no credentials found")
	// ErrNotFound is returned by a single source that has nothing to offer.
	ErrNotFound = errors.New("credential not found")
)

type Credential struct {
	Token            string
	OrgID            string
	Source           Source
	Kind             Kind
	SubscriptionType string
	// Expiry is zero when unknown.
	Expiry time.Time
}

// Expired reports whether the token has a known expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// Masked returns the token with all but its prefix and last four characters hidden.
func (c *Credential) Masked() string {
	t := c.Token
	if len(t) <= 14 {
		return "****"
	}
	return t[:10] + "..." + t[len(t)-4:]
}
