// Command ctl is the PrepWise operations CLI.
//
// Usage:
//
//	prepwise-ctl migrate up
//	prepwise-ctl migrate down --steps 1
//	prepwise-ctl migrate version
//	prepwise-ctl notify test --device 6f1c...
//	prepwise-ctl notify test --all-devices
//	prepwise-ctl notify alert-test
//	prepwise-ctl drills seed
//	prepwise-ctl drills seed --file tsunami.json
//	prepwise-ctl drills validate --file tsunami.json
//	prepwise-ctl token issue --user 6f1c... --role admin --ttl 24h
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prepwise/prepwise-api/internal/auth"
	"github.com/prepwise/prepwise-api/internal/config"
	"github.com/prepwise/prepwise-api/internal/db"
	"github.com/prepwise/prepwise-api/internal/device"
	"github.com/prepwise/prepwise-api/internal/drill"
	"github.com/prepwise/prepwise-api/internal/notifications"
	"github.com/prepwise/prepwise-api/internal/seed"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "prepwise-ctl",
		Short:         "PrepWise operations CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(notifyCmd())
	root.AddCommand(drillsCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateVersionCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator) error {
				if err := m.Up(steps); err != nil {
					return err
				}
				return logVersion(m)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to apply (0 = all)")
	return cmd
}

func migrateDownCmd() *cobra.Command {
	var (
		steps int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 && !all {
				return errors.New("pass --steps n, or --all to drop every table")
			}
			return withMigrator(func(m *db.Migrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return logVersion(m)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "Roll back every migration")
	return cmd
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(logVersion)
		},
	}
}

func logVersion(m *db.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("Schema version", "version", version, "dirty", dirty)
	return nil
}

func withMigrator(fn func(m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	m, err := db.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

// --------------------------------------------------------------------------
// notify command
// --------------------------------------------------------------------------

func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send test push notifications to registered devices",
	}
	cmd.AddCommand(notifyTestCmd())
	cmd.AddCommand(notifyAlertTestCmd())
	return cmd
}

func notifyTestCmd() *cobra.Command {
	var (
		deviceID   string
		allDevices bool
	)
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test notification to one device or every active device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (deviceID == "") == !allDevices {
				return errors.New("pass exactly one of --device or --all-devices")
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := device.NewStore(pool)
				expo := newExpo(cfg)

				var targets []device.Device
				if allDevices {
					list, err := store.ListActive(ctx)
					if err != nil {
						return err
					}
					if len(list) == 0 {
						logger.Warn("No active devices found")
						return nil
					}
					logger.Info("Found active devices", "count", len(list))
					targets = list
				} else {
					id, err := uuid.Parse(deviceID)
					if err != nil {
						return fmt.Errorf("invalid --device %q: %w", deviceID, err)
					}
					d, err := store.GetAny(ctx, id)
					if err != nil {
						return fmt.Errorf("device %s: %w", id, err)
					}
					targets = []device.Device{*d}
				}

				var failed int
				for _, d := range targets {
					res := expo.SendTest(ctx, d.Token, "Test Notification", "Hello! This is a test notification from PrepWise.")
					prune(ctx, store, res.Unregistered)
					if err := res.Err(); err != nil {
						failed++
						logger.Error("Failed to send", "device_id", d.ID, "platform", d.Platform, "error", err)
						continue
					}
					logger.Info("Sent", "device_id", d.ID, "platform", d.Platform)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d notifications failed", failed, len(targets))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&deviceID, "device", "", "Device ID to notify")
	cmd.Flags().BoolVar(&allDevices, "all-devices", false, "Notify every active device")
	return cmd
}

func notifyAlertTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alert-test",
		Short: "Send a test CRITICAL alert to every active device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := device.NewStore(pool)
				tokens, err := notifications.NewResolver(store, logger).Resolve(ctx, []string{"Test Region"})
				if err != nil {
					return err
				}
				if len(tokens) == 0 {
					logger.Warn("No active devices found for alert test")
					return nil
				}

				logger.Info("Sending test alert", "devices", len(tokens))
				res := newExpo(cfg).SendAlert(ctx, notifications.AlertNotice{
					Title:       "TEST ALERT - Earthquake Warning!",
					Description: "This is a test disaster alert. Drop, Cover, Hold On and practice staying safe.",
					Severity:    "CRITICAL",
					RegionTags:  []string{"Test Region"},
				}, tokens)
				prune(ctx, store, res.Unregistered)
				if err := res.Err(); err != nil {
					return fmt.Errorf("send alert: %w", err)
				}
				logger.Info("Test alert sent", "devices", len(tokens), "batches", len(res.Results))
				return nil
			})
		},
	}
}

func newExpo(cfg *config.Config) *notifications.ExpoClient {
	return notifications.NewExpoClient(notifications.ExpoConfig{
		URL:         cfg.ExpoPushURL,
		AccessToken: cfg.ExpoAccessToken,
		Timeout:     cfg.PushTimeout,
		BatchRate:   cfg.PushBatchRate,
	}, logger)
}

func prune(ctx context.Context, store *device.Store, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	n, err := store.DeactivateTokens(ctx, tokens)
	if err != nil {
		logger.Warn("Deactivate unregistered tokens", "error", err)
		return
	}
	logger.Info("Deactivated unregistered devices", "devices", n)
}

// --------------------------------------------------------------------------
// drills command
// --------------------------------------------------------------------------

func drillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drills",
		Short: "Manage drill scenarios",
	}
	cmd.AddCommand(drillsSeedCmd())
	cmd.AddCommand(drillsValidateCmd())
	return cmd
}

func drillsSeedCmd() *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create scenarios from JSON files, or the built-in samples when none are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := loadSources(files)
			if err != nil {
				return err
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				svc := drill.NewService(drill.NewStore(pool), logger)
				start := time.Now()
				result := seed.Scenarios(ctx, svc, sources, logger)
				logger.Info("Drill seed finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("seed error", "error", e)
				}
				if len(result.Errors) > 0 {
					return fmt.Errorf("%d scenarios failed", len(result.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&files, "file", nil, "Scenario JSON file (repeatable)")
	return cmd
}

func drillsValidateCmd() *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check scenario JSON files without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := loadSources(files)
			if err != nil {
				return err
			}
			var failed int
			for _, src := range sources {
				if err := seed.Check(src); err != nil {
					failed++
					logger.Error("Invalid scenario", "error", err)
					continue
				}
				logger.Info("Scenario OK", "file", src.Name, "title", src.Input.Title,
					"total_steps", src.Input.Tree.TotalSteps())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios invalid", failed, len(sources))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&files, "file", nil, "Scenario JSON file (repeatable)")
	return cmd
}

func loadSources(files []string) ([]seed.Source, error) {
	if len(files) == 0 {
		return seed.Samples()
	}
	return seed.ReadFiles(files)
}

// --------------------------------------------------------------------------
// token command
// --------------------------------------------------------------------------

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer tokens for local development and operations",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET must be set")
			}
			issuer := os.Getenv("JWT_ISSUER")
			if issuer == "" {
				issuer = config.DefaultJWTIssuer
			}

			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user %q: %w", userID, err)
				}
				id = parsed
			}
			if !auth.Role(role).Valid() {
				return fmt.Errorf("invalid --role %q (student, teacher, admin)", role)
			}

			raw, err := auth.NewTokens(secret, issuer).Issue(auth.Actor{UserID: id, Role: auth.Role(role)}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStudent), "Role: student, teacher or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWithDB handles config loading, DB connection, and context cancellation.
func runWithDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
