package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tnunamak/usagemon/internal/api"
	"github.com/tnunamak/usagemon/internal/credentials"
)

const cookiePrefix = "sessionKey="

// readSecret reads one line from in without echo when in is a terminal.
func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Session key: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}

// normalizeSessionKey accepts a bare key or a pasted "sessionKey=..." cookie.
func normalizeSessionKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.TrimPrefix(key, cookiePrefix)
	if i := strings.IndexByte(key, ';'); i >= 0 {
		key = key[:i]
	}
	return strings.TrimSpace(key)
}

// AuthSet stores a claude.ai session key read from in.
func (a *App) AuthSet(in io.Reader, orgID string) int {
	raw, err := readSecret(in, a.Stderr)
	if err != nil {
		fmt.Fprintf(a.Stderr, "usagemon: read session key: %v\n", err)
		return ExitFetchFailed
	}
	key := normalizeSessionKey(raw)
	if key == "" {
		fmt.Fprintln(a.Stderr, "usagemon: no session key given")
		return ExitNoAuth
	}

	store := credentials.NewManualStore(a.ConfigDir)
	if err := store.Save(key, strings.TrimSpace(orgID)); err != nil {
		fmt.Fprintf(a.Stderr, "usagemon: %v\n", err)
		return ExitFetchFailed
	}
	a.invalidate()

	masked := (&credentials.Credential{Token: key}).Masked()
	fmt.Fprintf(a.Stdout, "Saved session key %s to %s\n", masked, store.Path())
	return ExitOK
}

// AuthClear removes the stored session key. Browser and Claude Code
// credentials are left alone.
func (a *App) AuthClear() int {
	store := credentials.NewManualStore(a.ConfigDir)
	if err := store.Clear(); err != nil {
		fmt.Fprintf(a.Stderr, "usagemon: %v\n", err)
		return ExitFetchFailed
	}
	a.invalidate()
	fmt.Fprintln(a.Stdout, "Session key removed")
	return ExitOK
}

// AuthShow reports which credential would be used, without revealing it.
func (a *App) AuthShow(ctx context.Context) int {
	cred, err := a.Client.Credential(ctx)
	if err != nil {
		fmt.Fprintf(a.Stderr, "usagemon: %s\n", api.Message(err))
		if errors.Is(err, credentials.ErrNoCredentials) {
			return ExitNoAuth
		}
		return ExitFetchFailed
	}

	fmt.Fprintf(a.Stdout, "Source:       %s\n", cred.Source)
	fmt.Fprintf(a.Stdout, "Kind:         %s\n", cred.Kind)
	fmt.Fprintf(a.Stdout, "Token:        %s\n", cred.Masked())
	fmt.Fprintf(a.Stdout, "Subscription: %s\n", cred.SubscriptionType)
	if cred.OrgID != "" {
		fmt.Fprintf(a.Stdout, "Organization: %s\n", cred.OrgID)
	}
	if !cred.Expiry.IsZero() {
		state := "valid"
		if cred.Expired(a.Now()) {
			state = "expired"
		}
		fmt.Fprintf(a.Stdout, "Expires:      %s (%s)\n", cred.Expiry.Local().Format("2006-01-02 15:04"), state)
	}
	return ExitOK
}
