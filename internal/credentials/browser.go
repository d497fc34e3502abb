package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	cookieDomain = "claude.ai"
	cookieName   = "sessionKey"
)

// chromeStore is one Chromium-family browser's user data directory.
type chromeStore struct {
	browser string
	root    string
	// app is the Secret Service application attribute on Linux and the
	// keychain item prefix on macOS.
	app string
}

// BrowserSource pulls the claude.ai session cookie out of Firefox and
// Chromium-family cookie databases.
type BrowserSource struct {
	firefoxRoots []string
	chromeStores []chromeStore
	chromeKey    func(store chromeStore, version string) ([]byte, error)
	logger       *zap.Logger
}

func NewBrowserSource(home string, logger *zap.Logger) *BrowserSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BrowserSource{logger: logger, chromeKey: platformChromeKey()}
	switch runtime.GOOS {
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		b.firefoxRoots = []string{filepath.Join(support, "Firefox", "Profiles")}
		b.chromeStores = []chromeStore{
			{"chrome", filepath.Join(support, "Google", "Chrome"), "Chrome"},
			{"chromium", filepath.Join(support, "Chromium"), "Chromium"},
			{"brave", filepath.Join(support, "BraveSoftware", "Brave-Browser"), "Brave"},
		}
	default:
		b.firefoxRoots = []string{
			filepath.Join(home, ".mozilla", "firefox"),
			filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox"),
		}
		config := filepath.Join(home, ".config")
		b.chromeStores = []chromeStore{
			{"chrome", filepath.Join(config, "google-chrome"), "chrome"},
			{"chromium", filepath.Join(config, "chromium"), "chromium"},
			{"brave", filepath.Join(config, "BraveSoftware", "Brave-Browser"), "brave"},
		}
	}
	return b
}

func (b *BrowserSource) Name() Source { return SourceBrowser }

func (b *BrowserSource) Lookup(ctx context.Context) (*Credential, error) {
	for _, db := range b.firefoxDatabases() {
		value, err := b.firefoxCookie(ctx, db)
		if err != nil {
			b.logger.Debug("firefox cookie lookup failed", zap.String("db", db), zap.Error(err))
			continue
		}
		if value != "" {
			return &Credential{Token: value, Kind: KindSessionKey}, nil
		}
	}

	for _, store := range b.chromeStores {
		for _, db := range chromeDatabases(store.root) {
			value, err := b.chromeCookie(ctx, store, db)
			if err != nil {
				b.logger.Debug("chrome cookie lookup failed",
					zap.String("browser", store.browser),
					zap.String("db", db),
					zap.Error(err),
				)
				continue
			}
			if value != "" {
				return &Credential{Token: value, Kind: KindSessionKey}, nil
			}
		}
	}
	return nil, ErrNotFound
}

// firefoxDatabases lists cookies.sqlite files of every profile, most recently
// written first.
func (b *BrowserSource) firefoxDatabases() []string {
	type found struct {
		path string
		mod  int64
	}
	var dbs []found
	for _, root := range b.firefoxRoots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(root, e.Name(), "cookies.sqlite")
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			dbs = append(dbs, found{path, info.ModTime().UnixNano()})
		}
	}
	sort.SliceStable(dbs, func(i, j int) bool { return dbs[i].mod > dbs[j].mod })
	out := make([]string, len(dbs))
	for i, d := range dbs {
		out[i] = d.path
	}
	return out
}

func chromeDatabases(root string) []string {
	var out []string
	for _, rel := range []string{
		filepath.Join("Default", "Network", "Cookies"),
		filepath.Join("Default", "Cookies"),
	} {
		path := filepath.Join(root, rel)
		if _, err := os.Stat(path); err == nil {
			out = append(out, path)
		}
	}
	return out
}

func (b *BrowserSource) firefoxCookie(ctx context.Context, path string) (string, error) {
	db, cleanup, err := openCopy(path)
	if err != nil {
		return "", err
	}
	defer cleanup()

	var value string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM moz_cookies WHERE (host = ? OR host LIKE ?) AND name = ? ORDER BY lastAccessed DESC LIMIT 1`,
		cookieDomain, "%."+cookieDomain, cookieName,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query moz_cookies: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func (b *BrowserSource) chromeCookie(ctx context.Context, store chromeStore, path string) (string, error) {
	db, cleanup, err := openCopy(path)
	if err != nil {
		return "", err
	}
	defer cleanup()

	var (
		hostKey   string
		value     string
		encrypted []byte
	)
	err = db.QueryRowContext(ctx,
		`SELECT host_key, value, encrypted_value FROM cookies WHERE (host_key = ? OR host_key LIKE ?) AND name = ? ORDER BY last_access_utc DESC LIMIT 1`,
		cookieDomain, "%."+cookieDomain, cookieName,
	).Scan(&hostKey, &value, &encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query cookies: %w", err)
	}
	if v := strings.TrimSpace(value); v != "" {
		return v, nil
	}
	if len(encrypted) == 0 {
		return "", nil
	}
	plain, err := decryptCookie(encrypted, hostKey, func(version string) ([]byte, error) {
		return b.chromeKey(store, version)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(plain), nil
}

// openCopy copies a browser SQLite database and its WAL sidecars to a temp dir
// and opens the copy; browsers keep the original locked.
func openCopy(path string) (*sql.DB, func(), error) {
	dir, err := os.MkdirTemp("", "usagemon-cookies-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	dst := filepath.Join(dir, filepath.Base(path))
	if err := copyFile(path, dst); err != nil {
		cleanup()
		return nil, nil, err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(path + suffix); err == nil {
			_ = copyFile(path+suffix, dst+suffix)
		}
	}

	db, err := sql.Open("sqlite", dst)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, func() {
		db.Close()
		cleanup()
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
