package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rileyhilliard/fleetd/internal/calendar"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/server"
	"github.com/rileyhilliard/fleetd/internal/session"
	"github.com/rileyhilliard/fleetd/internal/wallpaper"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP status API",
		Long: `Start the status API and serve the dashboard's static assets.

The server stops gracefully on SIGINT or SIGTERM, letting in-flight
requests finish.

Examples:
  fleetd serve
  fleetd serve --addr 0.0.0.0:8082`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

// runServe blocks until ctx is cancelled or the listener fails.
func runServe(ctx context.Context, opts *rootOptions, addr string) error {
	cfg, path, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	log, flush, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return err
	}
	defer func() { _ = flush() }()
	logger.SetDefault(log)

	if path != "" {
		log.Info("config loaded from %s", path)
	} else {
		log.Info("no config file found, using defaults")
	}

	applySSHSettings(cfg, log)
	defer sshutil.CloseAgent()

	reader, err := resolveReader(ctx, cfg, log)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	srv := server.New(server.Deps{
		Status:    newAggregator(cfg, reader, log),
		Sessions:  session.NewStore(fs, cfg.Session.StatusFile, cfg.Session.BreakEndFile),
		Locker:    session.NewLocker(fs, cfg.Session.LockCommand, cfg.Session.AllowedLockCommands),
		Wallpaper: wallpaper.NewResolver(fs, cfg.Wallpaper.NitrogenConfig),
		Calendar:  calendar.NewStore(fs, cfg.Calendar.File),
		PublicDir: cfg.Server.PublicDir,
		Log:       logger.Named(log, "http"),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown: %v", err)
		return err
	}
	return <-errCh
}
