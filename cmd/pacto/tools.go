package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dukerupert/pacto/internal/auth"
	"github.com/dukerupert/pacto/internal/database"
	"github.com/dukerupert/pacto/internal/metrics"
	"github.com/dukerupert/pacto/internal/push"
	"github.com/dukerupert/pacto/internal/store"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := commonRun()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			v, err := database.Version(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s at version %d\n", cfg.DBPath, v)
			return nil
		},
	}
}

func scanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one overdue sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := commonRun()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			m := metrics.New(prometheus.NewRegistry())
			queue, _ := notifier(db, cfg, m, logger)
			scheduler := push.NewScheduler(store.NewPactStore(db), queue, cfg.ScanInterval, m, logger.With("component", "scheduler"))

			n, err := scheduler.Tick(cmd.Context())
			queue.Close()
			if err != nil {
				return fmt.Errorf("overdue sweep: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "claimed %d overdue pacts\n", n)
			return nil
		},
	}
}

func vapidKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate a VAPID key pair for Web Push",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PACTO_VAPID_PUBLIC_KEY=%s\nPACTO_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}

func tokenCommand() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := commonRun()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("jwtSecret is required")
			}
			token, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer).Issue(userID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the token subject")
	cmd.Flags().StringVar(&email, "email", "", "optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
