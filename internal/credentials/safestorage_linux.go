//go:build linux

package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	secretsDest    = "org.freedesktop.secrets"
	secretsPath    = "/org/freedesktop/secrets"
	secretsService = "org.freedesktop.Secret.Service"
)

// Linux Chromium uses a fixed password for v10 and a keyring-held one for v11.
func platformChromeKey() func(chromeStore, string) ([]byte, error) {
	var (
		mu    sync.Mutex
		cache = map[string][]byte{}
	)
	return func(store chromeStore, version string) ([]byte, error) {
		if version == "v10" {
			return deriveChromeKey("peanuts", 1), nil
		}
		mu.Lock()
		defer mu.Unlock()
		if key, ok := cache[store.app]; ok {
			return key, nil
		}
		password, err := secretServicePassword(store.app)
		if err != nil {
			return nil, err
		}
		key := deriveChromeKey(password, 1)
		cache[store.app] = key
		return key, nil
	}
}

type secret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// secretServicePassword fetches "<Browser> Safe Storage" from the desktop
// keyring over the Secret Service D-Bus API.
func secretServicePassword(app string) (string, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return "", fmt.Errorf("session bus: %w", err)
	}
	svc := conn.Object(secretsDest, secretsPath)

	var (
		output  dbus.Variant
		session dbus.ObjectPath
	)
	if err := svc.Call(secretsService+".OpenSession", 0, "plain", dbus.MakeVariant("")).Store(&output, &session); err != nil {
		return "", fmt.Errorf("open secret session: %w", err)
	}
	defer conn.Object(secretsDest, session).Call("org.freedesktop.Secret.Session.Close", 0)

	var unlocked, locked []dbus.ObjectPath
	if err := svc.Call(secretsService+".SearchItems", 0, map[string]string{"application": app}).Store(&unlocked, &locked); err != nil {
		return "", fmt.Errorf("search secrets: %w", err)
	}
	if len(unlocked) == 0 {
		if len(locked) > 0 {
			return "", errors.New("keyring is locked")
		}
		return "", fmt.Errorf("no safe storage entry for %s", app)
	}

	var s secret
	if err := conn.Object(secretsDest, unlocked[0]).Call("org.freedesktop.Secret.Item.GetSecret", 0, session).Store(&s); err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	if len(s.Value) == 0 {
		return "", errors.New("empty safe storage password")
	}
	return string(s.Value), nil
}
