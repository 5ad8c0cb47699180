package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finops/finops/internal/config"
	"github.com/finops/finops/internal/domain/billing"
	"github.com/finops/finops/internal/domain/cycles"
	"github.com/finops/finops/internal/domain/identity"
	"github.com/finops/finops/internal/domain/source"
	"github.com/finops/finops/internal/domain/timeline"
	"github.com/finops/finops/internal/pipeline"
	"github.com/finops/finops/internal/platform/db"
	"github.com/finops/finops/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finops-pipeline",
		Short: "Clinical identity-resolution and timeline pipeline",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the environment configuration; callers
// never see a config that would fail Validate.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one full pipeline pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline()
		},
	}
}

func runPipeline() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	cutoff, err := cfg.CutoffDate()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid cutoff date")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer pool.Close()
	logger.Info().Msg("connected to store")

	if err := db.EnsureSchemas(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schemas")
	}

	metrics := telemetry.NewRunMetrics()
	runner := pipeline.NewRunner(logger, metrics, cutoff, cfg.InductionOffsetDays, pipeline.Deps{
		Snapshots:   source.NewSnapshotRepoPG(pool),
		Refs:        identity.NewReferenceRepoPG(pool),
		Annotations: identity.NewAnnotationRepoPG(pool),
		Ledger:      billing.NewLedgerRepoPG(pool),
		Events:      timeline.NewSourceRepoPG(pool),
		Timelines:   timeline.NewTimelineRepoPG(pool),
		Summaries:   cycles.NewSummaryRepoPG(pool),
	})

	if _, err := runner.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		return err
	}

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error().Err(err).Msg("failed to export run metrics")
	}
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run store migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.EnsureSchemas(ctx, pool); err != nil {
				return err
			}

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}
