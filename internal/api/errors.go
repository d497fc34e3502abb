package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/tnunamak/usagemon/internal/credentials"
)

var (
	ErrTokenExpired   = errors.New("oauth token expired")
	ErrNoOrganization = errors.New("organization id not found")
	ErrMalformed      = errors.New("malformed usage response")
)

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d", e.Code)
}

// Cloudflare reports whether the body is a Cloudflare challenge page.
func (e *StatusError) Cloudflare() bool {
	return strings.Contains(e.Body, "Just a moment")
}

// Message turns a fetch error into the short text shown to the user.
func Message(err error) string {
	var (
		se *StatusError
		ne net.Error
		ue *url.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, credentials.ErrNoCredentials):
		return "No credentials. Run 'usagemon auth set' to configure."
	case errors.Is(err, ErrTokenExpired):
		return "Token expired. Run 'claude' to refresh."
	case errors.Is(err, ErrNoOrganization):
		return "Could not get organization ID. Check your session key."
	case errors.As(err, &se):
		switch {
		case se.Code == 401:
			return "Session expired. Update your session key."
		case se.Code == 403 && se.Cloudflare():
			return "Blocked by Cloudflare. Try again later."
		case se.Code == 403:
			return "Access forbidden"
		default:
			return fmt.Sprintf("HTTP %d", se.Code)
		}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "Timed out"
	case errors.As(err, &ue):
		return "Connection failed"
	default:
		return err.Error()
	}
}
