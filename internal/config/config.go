package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tnunamak/usagemon/internal/usage"
)

const (
	appName  = "usagemon"
	fileName = "config.yaml"

	// DirEnv overrides the config directory.
	DirEnv = "USAGEMON_CONFIG_DIR"
)

// Config holds usagemon settings.
type Config struct {
	RefreshInterval time.Duration       `yaml:"refresh_interval"`
	HTTP            HTTPConfig          `yaml:"http"`
	Cache           CacheConfig         `yaml:"cache"`
	Display         DisplayConfig       `yaml:"display"`
	Notifications   NotificationsConfig `yaml:"notifications"`
	Serve           ServeConfig         `yaml:"serve"`
	Logging         LoggingConfig       `yaml:"logging"`
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// DisplayConfig holds the percentages at which the icon changes color.
type DisplayConfig struct {
	WarningPercent  int `yaml:"warning_percent"`
	CriticalPercent int `yaml:"critical_percent"`
}

type NotificationsConfig struct {
	Enabled         *bool `yaml:"enabled"`
	WarningPercent  int   `yaml:"warning_percent"`
	CriticalPercent int   `yaml:"critical_percent"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console (default) or json
}

// Dir returns the config directory: $USAGEMON_CONFIG_DIR or <user config dir>/usagemon.
func Dir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// CacheDir returns <user cache dir>/usagemon.
func CacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// Load reads config.yaml from dir. A missing file yields the defaults.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, fileName)

	var cfg Config
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
		if err := validateExplicit(data); err != nil {
			return Config{}, fmt.Errorf("invalid config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 5 * time.Minute
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 60 * time.Second
	}
	if c.Display.WarningPercent <= 0 {
		c.Display.WarningPercent = 70
	}
	if c.Display.CriticalPercent <= 0 {
		c.Display.CriticalPercent = 90
	}
	if c.Notifications.Enabled == nil {
		enabled := true
		c.Notifications.Enabled = &enabled
	}
	if c.Notifications.WarningPercent <= 0 {
		c.Notifications.WarningPercent = 80
	}
	if c.Notifications.CriticalPercent <= 0 {
		c.Notifications.CriticalPercent = 95
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = "127.0.0.1:9479"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// explicitValues mirrors the numeric keys with pointers, so a value written
// in the file can be told apart from one left out.
type explicitValues struct {
	RefreshInterval *time.Duration `yaml:"refresh_interval"`
	HTTP            struct {
		Timeout *time.Duration `yaml:"timeout"`
	} `yaml:"http"`
	Cache struct {
		TTL *time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Display struct {
		WarningPercent  *int `yaml:"warning_percent"`
		CriticalPercent *int `yaml:"critical_percent"`
	} `yaml:"display"`
	Notifications struct {
		WarningPercent  *int `yaml:"warning_percent"`
		CriticalPercent *int `yaml:"critical_percent"`
	} `yaml:"notifications"`
}

// validateExplicit rejects zero or negative values written in the file.
// ApplyDefaults would otherwise replace them silently.
func validateExplicit(data []byte) error {
	var v explicitValues
	if err := yaml.Unmarshal(data, &v); err != nil {
		return err
	}
	for name, d := range map[string]*time.Duration{
		"refresh_interval": v.RefreshInterval,
		"http.timeout":     v.HTTP.Timeout,
		"cache.ttl":        v.Cache.TTL,
	} {
		if d != nil && *d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *d)
		}
	}
	for name, p := range map[string]*int{
		"display.warning_percent":        v.Display.WarningPercent,
		"display.critical_percent":       v.Display.CriticalPercent,
		"notifications.warning_percent":  v.Notifications.WarningPercent,
		"notifications.critical_percent": v.Notifications.CriticalPercent,
	} {
		if p != nil && *p <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *p)
		}
	}
	return nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.RefreshInterval < 30*time.Second {
		return fmt.Errorf("refresh_interval must be at least 30s, got %s", c.RefreshInterval)
	}
	if err := validPercents("display", c.Display.WarningPercent, c.Display.CriticalPercent); err != nil {
		return err
	}
	if err := validPercents("notifications", c.Notifications.WarningPercent, c.Notifications.CriticalPercent); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

func validPercents(section string, warning, critical int) error {
	if warning >= critical || critical > 100 {
		return fmt.Errorf("%s: need 0 < warning_percent < critical_percent <= 100, got %d and %d",
			section, warning, critical)
	}
	return nil
}

// NotificationsEnabled reports the effective notifications switch.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications.Enabled == nil || *c.Notifications.Enabled
}

// DisplayThresholds converts the display percentages to fractions.
func (c *Config) DisplayThresholds() usage.Thresholds {
	return usage.Thresholds{
		Warning:  float64(c.Display.WarningPercent) / 100,
		Critical: float64(c.Display.CriticalPercent) / 100,
	}
}

// NotifyThresholds converts the notification percentages to fractions.
func (c *Config) NotifyThresholds() usage.Thresholds {
	return usage.Thresholds{
		Warning:  float64(c.Notifications.WarningPercent) / 100,
		Critical: float64(c.Notifications.CriticalPercent) / 100,
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
