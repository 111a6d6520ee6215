package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/volunteer-portal/internal/server"
	"github.com/jakechorley/volunteer-portal/pkg/audit"
	"github.com/jakechorley/volunteer-portal/pkg/core/services"
	"github.com/jakechorley/volunteer-portal/pkg/dedupe"
	"github.com/jakechorley/volunteer-portal/pkg/livefeed"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification worker and sweep schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(app)
		},
	}
}

func serve(app *AppContext) error {
	ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := app.Database()
	if err != nil {
		return err
	}
	if err := database.RunMigrations(ctx); err != nil {
		return err
	}

	schedule, err := app.Cfg.SweepSchedule(time.Now().In(services.EventZone))
	if err != nil {
		return err
	}

	dispatcher, err := app.NewDispatcher()
	if err != nil {
		return err
	}

	hub := livefeed.NewHub(app.Logger)
	deps := services.Deps{
		Auditor:  audit.NewLogger(database, app.Logger, hub),
		Notifier: dispatcher,
	}

	guard, closeGuard := newGuard(ctx, app)
	defer closeGuard()

	srv := server.New(server.Options{
		Store:         database,
		Deps:          deps,
		Hub:           hub,
		Guard:         guard,
		JWTSecret:     app.Cfg.Admin.JWTSecret,
		WebhookSecret: app.Cfg.Telegram.WebhookSecret,
	}, app.Logger)
	if app.Cfg.Admin.JWTSecret == "" {
		app.Logger.Warn("admin.jwtSecret is not set, admin routes are unauthenticated")
	}

	httpServer := &http.Server{
		Addr:              app.Cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	if schedule != nil {
		g.Go(func() error {
			next := func(after time.Time) time.Time { return schedule.After(after, false) }
			return runOnSchedule(gctx, app.Logger, next, func(ctx context.Context) {
				if _, err := services.SweepOpenSessions(ctx, database, deps, app.Logger); err != nil {
					app.Logger.Error("Scheduled sweep failed", zap.Error(err))
				}
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced shutdown: %w", err))
		}
		hub.Close()
		if err := dispatcher.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	app.Logger.Info("Server stopped")
	return nil
}

// newGuard uses Redis when configured, falling back to an in-process guard
func newGuard(ctx context.Context, app *AppContext) (dedupe.Guard, func()) {
	if app.Cfg.Redis == nil {
		return dedupe.NewMemoryGuard(24 * time.Hour), func() {}
	}

	guard := dedupe.NewRedisGuard(dedupe.RedisOptions{
		Addr:     app.Cfg.Redis.Addr,
		Password: app.Cfg.Redis.Password,
		DB:       app.Cfg.Redis.DB,
		TTL:      app.Cfg.Redis.DedupeTTL,
	})
	if err := guard.Ping(ctx); err != nil {
		app.Logger.Warn("Redis unavailable, updates will not be de-duplicated until it recovers", zap.Error(err))
	}

	return guard, func() {
		if err := guard.Close(); err != nil {
			app.Logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

// runOnSchedule calls fn at each time returned by next until ctx is done or next returns zero
func runOnSchedule(ctx context.Context, logger *zap.Logger, next func(after time.Time) time.Time, fn func(context.Context)) error {
	for {
		at := next(time.Now())
		if at.IsZero() {
			logger.Info("Sweep schedule has no further occurrences")
			return nil
		}

		logger.Debug("Next sweep scheduled", zap.Time("at", at))
		timer := time.NewTimer(time.Until(at))

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			fn(ctx)
		}
	}
}
