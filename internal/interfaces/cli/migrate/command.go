package migrate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"kreltrack/internal/infrastructure/database"
	"kreltrack/internal/infrastructure/migration"
	"kreltrack/internal/interfaces/cli/app"
	"kreltrack/internal/shared/logger"
)

var (
	name  string
	dir   string
	steps int
)

func NewCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage the schema: apply or roll back the embedded migration scripts, show their status, or create a new script pair.`,
	}

	cmd.AddCommand(
		newUpCommand(opts),
		newDownCommand(opts),
		newStatusCommand(opts),
		newCreateCommand(opts),
	)

	return cmd
}

func newUpCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(ctx context.Context, gdb *gorm.DB, driver string, log logger.Interface) error {
				log.Infow("running up migrations", "driver", driver)
				if err := migration.NewManager(driver, log).Migrate(ctx, gdb); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newDownCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(ctx context.Context, gdb *gorm.DB, driver string, log logger.Interface) error {
				strategy, err := migration.NewGooseStrategy(driver, log)
				if err != nil {
					return fmt.Errorf("down migration is only supported with goose strategy: %w", err)
				}
				log.Infow("running down migrations", "steps", steps)
				if err := strategy.MigrateDown(ctx, gdb, steps); err != nil {
					return fmt.Errorf("down migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(ctx context.Context, gdb *gorm.DB, driver string, log logger.Interface) error {
				strategy, err := migration.NewGooseStrategy(driver, log)
				if err != nil {
					return fmt.Errorf("status check is only supported with goose strategy: %w", err)
				}
				version, err := strategy.GetVersion(ctx, gdb)
				if err != nil {
					return fmt.Errorf("failed to get migration version: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\nMigration Status:\n")
				fmt.Fprintf(out, "  Driver:          %s\n", driver)
				fmt.Fprintf(out, "  Current Version: %d\n", version)

				return strategy.Status(ctx, gdb)
			})
		},
	}
}

func newCreateCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := app.Load(opts)
			if err != nil {
				return err
			}
			driver := cfg.Database.Driver
			strategy, err := migration.NewGooseStrategy(driver, log)
			if err != nil {
				return err
			}
			target := dir
			if target == "" {
				target = filepath.Join("internal", "infrastructure", "migration", "scripts", driver)
			}
			if err := strategy.Create(target, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migration %q created in %s\n", name, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory for the new scripts (default: scripts dir of the configured driver)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// withStore opens the configured store without wiring any service.
func withStore(ctx context.Context, opts *app.Options, fn func(ctx context.Context, gdb *gorm.DB, driver string, log logger.Interface) error) error {
	cfg, log, err := app.Load(opts)
	if err != nil {
		return err
	}
	gdb, err := database.Open(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(gdb) }()

	if err := fn(ctx, gdb, cfg.Database.Driver, log); err != nil {
		log.Errorw("migration command failed", "error", err)
		return err
	}
	return nil
}
