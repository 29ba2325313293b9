package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/pacto/internal/auth"
	"github.com/dukerupert/pacto/internal/config"
	"github.com/dukerupert/pacto/internal/database"
	"github.com/dukerupert/pacto/internal/metrics"
	"github.com/dukerupert/pacto/internal/middleware"
	"github.com/dukerupert/pacto/internal/push"
	"github.com/dukerupert/pacto/internal/server"
	"github.com/dukerupert/pacto/internal/store"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the overdue scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := commonRun()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serveRun(cmd.Context(), cfg, logger)
		},
	}
}

// notifier builds the delivery pipeline: Expo and Web Push behind an async
// queue. The caller must Close the queue.
func notifier(db *sql.DB, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*push.Queue, *push.Service) {
	expo := push.NewExpoClient(
		push.WithEndpoint(cfg.ExpoEndpoint),
		push.WithAccessToken(cfg.ExpoAccessToken),
		push.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
	)

	webCfg := push.WebPushConfig{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.VAPIDSubscriber,
	}
	var web *push.WebPushSender
	if webCfg.Configured() {
		web = push.NewWebPushSender(webCfg)
	} else {
		logger.Info("web push disabled: VAPID keys not configured")
	}

	pushLogger := logger.With("component", "push")
	svc := push.NewService(store.NewDeviceStore(db), expo, web, m, pushLogger)
	return push.NewQueue(svc, cfg.NotifyQueueSize, m, pushLogger), svc
}

func serveRun(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	queue, svc := notifier(db, cfg, m, logger)
	scheduler := push.NewScheduler(store.NewPactStore(db), queue, cfg.ScanInterval, m, logger.With("component", "scheduler"))

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 10*time.Minute)
	}

	srvCfg := server.Config{
		Verifier:       auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Notifier:       queue,
		VAPIDPublicKey: svc.VAPIDPublicKey(),
		Location:       loc,
		InviteTTL:      cfg.InviteTTL,
		RateLimiter:    limiter,
		Metrics:        m,
	}
	if cfg.MetricsEnabled {
		srvCfg.Gatherer = reg
	}
	srv := server.New(db, srvCfg, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("pacto listening", "addr", httpServer.Addr, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		queue.Close()
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	return g.Wait()
}
