package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tnunamak/usagemon/internal/cli"
	"github.com/tnunamak/usagemon/internal/config"
	"github.com/tnunamak/usagemon/internal/logger"
	"github.com/tnunamak/usagemon/internal/metrics"
	"github.com/tnunamak/usagemon/internal/notify"
	"github.com/tnunamak/usagemon/internal/poller"
	"github.com/tnunamak/usagemon/internal/server"
	"github.com/tnunamak/usagemon/internal/tray"
	"github.com/tnunamak/usagemon/internal/update"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := "status", os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version", "--version", "-v":
		fmt.Println("usagemon " + Version)
		return 0
	case "help", "--help", "-h":
		printHelp()
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "usagemon: %v\n", err)
		return cli.ExitNoAuth
	}
	defer func() { _ = app.Logger.Sync() }()

	switch cmd {
	case "status":
		return statusCmd(ctx, app, args)
	case "watch":
		return watchCmd(ctx, app, args)
	case "serve":
		return serveCmd(ctx, app, args)
	case "tray":
		return trayCmd(ctx, app)
	case "auth":
		return authCmd(ctx, app, args)
	case "settings":
		return settingsCmd(app, args)
	case "update":
		return updateCmd(ctx, app)
	default:
		fmt.Fprintf(os.Stderr, "usagemon: unknown command %q\n", cmd)
		printHelp()
		return 1
	}
}

func setup() (*cli.App, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	return cli.NewApp(dir, cacheDir, cfg, log)
}

func statusCmd(ctx context.Context, app *cli.App, args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonMode := fs.Bool("json", false, "output JSON")
	plainMode := fs.Bool("plain", false, "plain text (no color)")
	_ = fs.Parse(args)
	return app.Status(ctx, *jsonMode, *plainMode)
}

func watchCmd(ctx context.Context, app *cli.App, args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	plainMode := fs.Bool("plain", false, "plain text (no color)")
	_ = fs.Parse(args)
	return app.Watch(ctx, *plainMode)
}

func serveCmd(ctx context.Context, app *cli.App, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", app.Config.Serve.Addr, "listen address")
	_ = fs.Parse(args)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := poller.New(app.Client, poller.Options{
		Interval: app.Config.RefreshInterval,
		Metrics:  metrics.New(reg),
		Logger:   app.Logger.Named("poller"),
	})
	srv := server.New(p, reg, app.Logger.Named("server"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, *addr) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error("serve failed", zap.Error(err))
		return 1
	}
	return 0
}

func trayCmd(ctx context.Context, app *cli.App) int {
	opts := tray.Options{
		Version: Version,
		Poller: poller.New(app.Client, poller.Options{
			Interval: app.Config.RefreshInterval,
			Logger:   app.Logger.Named("poller"),
		}),
		Thresholds: app.Config.DisplayThresholds(),
		ConfigDir:  app.ConfigDir,
		Logger:     app.Logger.Named("tray"),
	}
	if app.Config.NotificationsEnabled() {
		opts.Alerts = notify.NewAlerts(app.Config.NotifyThresholds())
		opts.Notifier = notify.NewDesktop("usagemon", app.Logger)
	}
	return tray.Run(ctx, opts)
}

func authCmd(ctx context.Context, app *cli.App, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usagemon: auth needs a subcommand: set, clear or show")
		return 1
	}
	switch args[0] {
	case "set":
		fs := flag.NewFlagSet("auth set", flag.ExitOnError)
		orgID := fs.String("org-id", "", "organization id (discovered automatically when empty)")
		_ = fs.Parse(args[1:])
		return app.AuthSet(os.Stdin, *orgID)
	case "clear":
		return app.AuthClear()
	case "show":
		return app.AuthShow(ctx)
	default:
		fmt.Fprintf(os.Stderr, "usagemon: unknown auth subcommand %q\n", args[0])
		return 1
	}
}

func settingsCmd(app *cli.App, args []string) int {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	darkMode := fs.String("dark-mode", "", "on or off")
	_ = fs.Parse(args)
	return app.Settings(*darkMode)
}

func updateCmd(ctx context.Context, app *cli.App) int {
	u := update.New(app.Logger)
	rel, err := u.Check(ctx, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "usagemon: %v\n", err)
		return 1
	}
	if rel == nil {
		fmt.Printf("usagemon %s is up to date\n", update.StripV(Version))
		return 0
	}

	fmt.Printf("Updating to %s...\n", update.StripV(rel.Version))
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := u.Apply(ctx, rel.URL); err != nil {
		fmt.Fprintf(os.Stderr, "usagemon: %v\n", err)
		return 1
	}
	fmt.Println("Updated. Restart any running usagemon tray to pick it up.")
	return 0
}

func printHelp() {
	fmt.Fprintln(os.Stderr, `Usage: usagemon [command] [flags]

Commands:
  status      Show current usage (default)
  watch       Print usage on every refresh
  serve       Run the JSON/Prometheus exporter
  tray        Run as system tray icon
  auth set    Store a claude.ai session key (read from stdin)
  auth clear  Remove the stored session key
  auth show   Show which credential is in use
  settings    Show or change preferences
  update      Update to the latest release
  version     Show version
  help        Show this help

Status flags:
  --json    Output as JSON
  --plain   Plain text, no color codes

Serve flags:
  --addr    Listen address (default from config, 127.0.0.1:9479)

Auth set flags:
  --org-id  Organization id, if it cannot be discovered

Settings flags:
  --dark-mode on|off

Exit codes: 0 ok, 1 fetch or other failure, 2 missing or expired credentials.
Config directory: $USAGEMON_CONFIG_DIR or the platform config dir.`)
}
