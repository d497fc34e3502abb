package cli

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tnunamak/usagemon/internal/api"
	"github.com/tnunamak/usagemon/internal/cache"
	"github.com/tnunamak/usagemon/internal/config"
	"github.com/tnunamak/usagemon/internal/credentials"
	"github.com/tnunamak/usagemon/internal/usage"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFetchFailed = 1
	ExitNoAuth      = 2
)

// UsageClient is the part of api.Client the commands need.
type UsageClient interface {
	Credential(ctx context.Context) (*credentials.Credential, error)
	Fetch(ctx context.Context) usage.Snapshot
}

// App carries what every subcommand shares.
type App struct {
	ConfigDir string
	Config    config.Config
	Logger    *zap.Logger
	Cache     *cache.Cache
	Client    UsageClient

	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time
	// IsTTY reports whether stdout is a terminal.
	IsTTY func() bool
}

// NewApp wires the default resolver, client and cache from cfg.
func NewApp(configDir, cacheDir string, cfg config.Config, logger *zap.Logger) (*App, error) {
	resolver, err := credentials.DefaultResolver(configDir, logger.Named("resolver"))
	if err != nil {
		return nil, err
	}
	client := api.New(resolver, api.Config{Timeout: cfg.HTTP.Timeout}, logger.Named("api"))
	return &App{
		ConfigDir: configDir,
		Config:    cfg,
		Logger:    logger,
		Cache:     cache.New(cacheDir, cfg.Cache.TTL),
		Client:    client,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Now:       time.Now,
		IsTTY:     isTTY,
	}, nil
}

// invalidate makes the client resolve credentials again after they changed.
func (a *App) invalidate() {
	if inv, ok := a.Client.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
	_ = a.Cache.Clear()
}

func (a *App) color(plain bool) bool {
	return !plain && a.IsTTY != nil && a.IsTTY()
}
