package cmd

import (
	"database/sql"
	"fmt"

	"github.com/frahmantamala/leave-management/internal"
	balanceDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leavebalance"
	requestDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leaverequest"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// store bundles the gorm handle used by the leave repositories and the sqlx
// handle used by the user repository. Both share one connection pool.
type store struct {
	Gorm *gorm.DB
	SQLX *sqlx.DB
	SQL  *sql.DB
}

func (s *store) Close() error {
	return s.SQL.Close()
}

func gormDialector(cfg internal.DatabaseConfig) (gorm.Dialector, string, error) {
	switch cfg.Driver {
	case internal.DriverPostgres:
		return postgres.Open(cfg.GetDSN()), "pgx", nil
	case internal.DriverMySQL:
		return mysql.Open(cfg.GetDSN()), "mysql", nil
	case internal.DriverSQLite:
		return sqlite.Open(cfg.GetDSN()), "sqlite3", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openStore(cfg internal.DatabaseConfig) (*store, error) {
	dialector, sqlxDriver, err := gormDialector(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &store{
		Gorm: gdb,
		SQLX: sqlx.NewDb(sqlDB, sqlxDriver),
		SQL:  sqlDB,
	}, nil
}

// autoMigrate creates the schema from the gorm models. It backs sqlite and
// mysql runs, where the goose SQL (written for postgres) does not apply.
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userDatamodel.User{},
		&balanceDatamodel.LeaveBalance{},
		&requestDatamodel.LeaveRequest{},
	)
}
