package admin

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/talentlens/internal/config"
	"github.com/cloo-solutions/talentlens/internal/logging"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

const defaultMigrationsDir = "migrations"

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or inspect database migrations",
		Long:      "Apply (up), roll back one step (down) or print the current schema version of the Postgres database",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE:      runMigrate,
	}

	cmd.Flags().String("dir", defaultMigrationsDir, "Directory holding the migration files")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("TALENTLENS_DATABASE_URL is required")
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, cfg.Debug)
	dir, _ := cmd.Flags().GetString("dir")

	action := "up"
	if len(args) == 1 {
		action = args[0]
	}

	m, closeFn, err := newMigrator(cfg.DatabaseURL, dir)
	if err != nil {
		return err
	}
	defer closeFn()

	switch action {
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	case "version":
	default:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
	}

	logger.Debug("migrate finished", "action", action)
	return nil
}

func newMigrator(databaseURL, dir string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, func() { _, _ = m.Close() }, nil
}

// runMigrations brings the schema up to date.
func runMigrations(databaseURL, dir string, logger *slog.Logger) error {
	m, closeFn, err := newMigrator(databaseURL, dir)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	logger.Info("migrations applied", "version", version)
	return nil
}
