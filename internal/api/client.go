package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tnunamak/usagemon/internal/credentials"
	"github.com/tnunamak/usagemon/internal/usage"
)

const (
	DefaultWebBaseURL = "https://claude.ai"
	DefaultOAuthURL   = "https://api.anthropic.com/api/oauth/usage"
	DefaultTimeout    = 15 * time.Second

	betaHeader   = "oauth-2025-04-20"
	maxBodyBytes = 1 << 20
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Resolver supplies the credential used for requests.
type Resolver interface {
	Resolve(ctx context.Context) (*credentials.Credential, error)
}

type Config struct {
	WebBaseURL string
	OAuthURL   string
	Timeout    time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Now        func() time.Time
}

// Client fetches usage for the resolved credential. The credential and the
// discovered organization id are cached in memory until Invalidate.
type Client struct {
	resolver Resolver
	http     *http.Client
	webBase  string
	oauthURL string
	now      func() time.Time
	logger   *zap.Logger

	mu    sync.Mutex
	cred  *credentials.Credential
	orgID string
}

func New(resolver Resolver, cfg Config, logger *zap.Logger) *Client {
	if cfg.WebBaseURL == "" {
		cfg.WebBaseURL = DefaultWebBaseURL
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = DefaultOAuthURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		resolver: resolver,
		http:     cfg.HTTPClient,
		webBase:  cfg.WebBaseURL,
		oauthURL: cfg.OAuthURL,
		now:      cfg.Now,
		logger:   logger,
	}
}

// Invalidate forgets the cached credential and organization id so the next
// fetch resolves them again.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = nil
	c.orgID = ""
}

// Credential returns the cached credential, resolving it on first use.
func (c *Client) Credential(ctx context.Context) (*credentials.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred != nil {
		return c.cred, nil
	}
	cred, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	c.cred = cred
	return cred, nil
}

// Fetch always returns a snapshot; failures are reported in its Error field.
func (c *Client) Fetch(ctx context.Context) usage.Snapshot {
	snap, cred, err := c.fetch(ctx)
	if err == nil {
		return snap
	}
	c.logger.Debug("fetch usage failed", zap.Error(err))

	var subscription, source string
	if cred != nil {
		subscription, source = cred.SubscriptionType, string(cred.Source)
	}
	return usage.Disconnected(subscription, source, Message(err), c.now())
}

// FetchUsage fetches one snapshot. Errors that point at a stale credential
// drop the cached one so the next call resolves it again.
func (c *Client) FetchUsage(ctx context.Context) (usage.Snapshot, error) {
	snap, _, err := c.fetch(ctx)
	return snap, err
}

func (c *Client) fetch(ctx context.Context) (usage.Snapshot, *credentials.Credential, error) {
	snap, cred, err := c.fetchUsage(ctx)
	if staleCredential(err) {
		c.logger.Debug("dropping cached credential", zap.Error(err))
		c.Invalidate()
	}
	return snap, cred, err
}

func staleCredential(err error) bool {
	var se *StatusError
	switch {
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrNoOrganization):
		return true
	case errors.As(err, &se):
		return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
	}
	return false
}

func (c *Client) fetchUsage(ctx context.Context) (usage.Snapshot, *credentials.Credential, error) {
	cred, err := c.Credential(ctx)
	if err != nil {
		return usage.Snapshot{}, nil, err
	}
	if cred.Expired(c.now()) {
		return usage.Snapshot{}, cred, ErrTokenExpired
	}

	var body []byte
	switch cred.Kind {
	case credentials.KindOAuth:
		body, err = c.get(ctx, c.oauthURL, cred)
	default:
		var org string
		if org, err = c.organization(ctx, cred); err != nil {
			return usage.Snapshot{}, cred, err
		}
		body, err = c.get(ctx, c.webBase+"/api/organizations/"+url.PathEscape(org)+"/usage", cred)
	}
	if err != nil {
		return usage.Snapshot{}, cred, err
	}

	short, long, err := ParseUsage(body)
	if err != nil {
		return usage.Snapshot{}, cred, err
	}
	return usage.NewConnected(short, long, cred.SubscriptionType, string(cred.Source), c.now()), cred, nil
}

// organization returns the credential's org id, discovering it once through
// the bootstrap endpoint and then the organizations list.
func (c *Client) organization(ctx context.Context, cred *credentials.Credential) (string, error) {
	if cred.OrgID != "" {
		return cred.OrgID, nil
	}
	c.mu.Lock()
	cached := c.orgID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var lastErr error
	for _, path := range []string{"/api/bootstrap", "/api/organizations"} {
		body, err := c.get(ctx, c.webBase+path, cred)
		if err != nil {
			c.logger.Debug("organization discovery failed", zap.String("path", path), zap.Error(err))
			lastErr = err
			continue
		}
		if id := parseOrganizationID(body); id != "" {
			c.mu.Lock()
			c.orgID = id
			c.mu.Unlock()
			c.logger.Debug("organization discovered", zap.String("path", path))
			return id, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoOrganization, lastErr)
	}
	return "", ErrNoOrganization
}

func (c *Client) get(ctx context.Context, rawURL string, cred *credentials.Credential) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	setHeaders(req, cred)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("api request",
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func setHeaders(req *http.Request, cred *credentials.Credential) {
	if cred.Kind == credentials.KindOAuth {
		cred.OAuthToken().SetAuthHeader(req)
		req.Header.Set("anthropic-beta", betaHeader)
		req.Header.Set("Accept", "application/json")
		return
	}

	// claude.ai only answers requests that look like they come from its web app.
	h := req.Header
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Content-Type", "application/json")
	h.Set("anthropic-client-platform", "web_claude_ai")
	h.Set("anthropic-client-version", "1.0.0")
	h.Set("User-Agent", userAgent)
	h.Set("Origin", "https://claude.ai")
	h.Set("Referer", "https://claude.ai/settings/usage")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	req.AddCookie(&http.Cookie{Name: "sessionKey", Value: cred.Token})
}
