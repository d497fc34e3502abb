package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

const (
	DefaultRepo         = "tnunamak/usagemon"
	DefaultAPIBase      = "https://api.github.com"
	DefaultDownloadBase = "https://github.com"
	binaryName          = "usagemon"
	httpTimeout         = 15 * time.Second
	downloadTimeout     = 60 * time.Second
)

type Release struct {
	Version string
	URL     string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
}

// Updater checks GitHub releases and replaces the running binary.
type Updater struct {
	Repo         string
	APIBase      string
	DownloadBase string
	HTTPClient   *http.Client
	Logger       *zap.Logger
	// Executable returns the path to replace. Defaults to os.Executable.
	Executable func() (string, error)
}

func New(logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{
		Repo:         DefaultRepo,
		APIBase:      DefaultAPIBase,
		DownloadBase: DefaultDownloadBase,
		HTTPClient:   &http.Client{Timeout: downloadTimeout},
		Logger:       logger,
		Executable:   os.Executable,
	}
}

// Check queries GitHub for the latest release and returns it if newer
// than currentVersion. Returns nil if already up to date or running a dev build.
func (u *Updater) Check(ctx context.Context, currentVersion string) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.APIBase+"/repos/"+u.Repo+"/releases/latest", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("check update: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("check update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("check update: GitHub API returned %d", resp.StatusCode)
	}

	var rel ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("check update: %w", err)
	}
	u.Logger.Debug("latest release", zap.String("tag", rel.TagName), zap.String("current", currentVersion))

	if !Newer(rel.TagName, currentVersion) {
		return nil, nil
	}

	url := fmt.Sprintf("%s/%s/releases/download/%s/%s-%s-%s",
		u.DownloadBase, u.Repo, rel.TagName, binaryName, runtime.GOOS, runtime.GOARCH)
	return &Release{Version: rel.TagName, URL: url}, nil
}

// Newer reports whether latest is a strictly higher release than current.
// Dev builds and unparsable tags never update.
func Newer(latest, current string) bool {
	latest, current = withV(latest), withV(current)
	if !semver.IsValid(latest) || !semver.IsValid(current) {
		return false
	}
	return semver.Compare(latest, current) > 0
}

func withV(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// Apply downloads the binary from url, verifies it, and replaces the
// currently running executable. The caller should restart after Apply returns.
func (u *Updater) Apply(ctx context.Context, url string) error {
	exe, err := u.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}

	// Same directory as the target so the final rename stays on one filesystem.
	tmpDir, err := os.MkdirTemp(filepath.Dir(exe), ".usagemon-update-*")
	if err != nil {
		tmpDir, err = os.MkdirTemp("", "usagemon-update-*")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
	}
	defer os.RemoveAll(tmpDir)

	tmpBin := filepath.Join(tmpDir, binaryName)
	if err := u.download(ctx, url, tmpBin); err != nil {
		return err
	}

	// macOS quarantine
	if runtime.GOOS == "darwin" {
		_ = exec.Command("xattr", "-d", "com.apple.quarantine", tmpBin).Run()
	}

	// Verify: run "help" as a smoke test
	if err := exec.CommandContext(ctx, tmpBin, "help").Run(); err != nil {
		return fmt.Errorf("verify binary: %w", err)
	}

	if err := os.Rename(tmpBin, exe); err != nil {
		u.Logger.Debug("rename failed, copying", zap.Error(err))
		if err := copyFile(tmpBin, exe); err != nil {
			return fmt.Errorf("replace binary: %w", err)
		}
	}
	u.Logger.Info("binary replaced", zap.String("path", exe))
	return nil
}

func (u *Updater) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write binary: %w", err)
	}
	return f.Close()
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
		return errors.Join(err, out.Close())
	}
	if err := out.Chmod(0755); err != nil {
		return errors.Join(err, out.Close())
	}
	return out.Close()
}

// StripV removes a leading "v" prefix for display: "v1.2.3" -> "1.2.3".
func StripV(version string) string {
	return strings.TrimPrefix(version, "v")
}
