package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kreltrack/internal/shared/config"
	"kreltrack/internal/shared/logger"
)

const (
	DriverSQLite    = "sqlite"
	DriverMySQL     = "mysql"
	DriverSQLServer = "sqlserver"
)

// Open connects to the configured store and verifies the connection.
func Open(cfg *config.DatabaseConfig, log logger.Interface) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLogger := gormlogger.New(
		&filteredLogger{log: log.Named("gorm")},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == DriverSQLite || cfg.Driver == "" {
		// one writer at a time; the busy timeout in the DSN covers readers
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Infow("database connection established", "driver", driverName(cfg), "database", describe(cfg))
	return gdb, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		dsn := cfg.GetDSN()
		if dsn != ":memory:" && !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000&_foreign_keys=1"
		}
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		return mysql.New(mysql.Config{
			DSN:                       cfg.GetDSN(),
			SkipInitializeWithVersion: true,
		}), nil
	case DriverSQLServer:
		return sqlserver.Open(cfg.GetDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func driverName(cfg *config.DatabaseConfig) string {
	if cfg.Driver == "" {
		return DriverSQLite
	}
	return cfg.Driver
}

func describe(cfg *config.DatabaseConfig) string {
	if driverName(cfg) == DriverSQLite {
		return cfg.GetDSN()
	}
	return cfg.Database
}

// Close releases the connection pool.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// filteredLogger routes gorm output into the application logger and drops
// driver bootstrap noise.
type filteredLogger struct {
	log logger.Interface
}

func (l *filteredLogger) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "information_schema.schemata") ||
		strings.Contains(lower, "select version()") ||
		strings.Contains(lower, "sqlite_version()") {
		return
	}

	switch {
	case strings.Contains(lower, "[error]"):
		l.log.Errorw("database error", "details", msg)
	case strings.Contains(lower, "slow sql"):
		l.log.Warnw("slow query", "details", msg)
	default:
		l.log.Debugw("database query", "details", msg)
	}
}
