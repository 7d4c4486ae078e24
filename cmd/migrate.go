package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/leave-management/db"
	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations",
	}
	migrateRollback bool
	migrateStatus   bool
	migrateAuto     bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.Flags().BoolVarP(&migrateStatus, "status", "s", false, "print the applied and pending migrations")
	migrateCmd.Flags().BoolVar(&migrateAuto, "auto", false, "create the schema from the gorm models instead of the sql migrations")

	rootCmd.AddCommand(migrateCmd)
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	// the sql migrations target postgres; other drivers get the gorm schema
	if migrateAuto || cfg.Database.Driver != internal.DriverPostgres {
		s, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := autoMigrate(s.Gorm); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		lg.Info("schema migrated from models", "driver", cfg.Database.Driver)
		return nil
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(db.Migrations)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	switch {
	case migrateStatus:
		err = goose.StatusContext(ctx, sqlDB, db.MigrationsDir)
	case migrateRollback:
		err = goose.DownContext(ctx, sqlDB, db.MigrationsDir)
	default:
		err = goose.UpContext(ctx, sqlDB, db.MigrationsDir)
	}
	if err != nil {
		return fmt.Errorf("goose: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}
	lg.Info("migrations applied", "version", version)
	return nil
}
