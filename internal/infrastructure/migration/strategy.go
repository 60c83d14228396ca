package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"kreltrack/internal/shared/logger"
)

//go:embed scripts/sqlite/*.sql scripts/mysql/*.sql
var embeddedScripts embed.FS

// Strategy defines the interface for different migration strategies
type Strategy interface {
	// Migrate brings the schema up to date
	Migrate(ctx context.Context, db *gorm.DB) error
	// GetName returns the strategy name
	GetName() string
}

// GormAutoMigrateStrategy derives the schema from the persistence models.
type GormAutoMigrateStrategy struct {
	models []interface{}
	logger logger.Interface
}

func NewGormAutoMigrateStrategy(log logger.Interface, models ...interface{}) *GormAutoMigrateStrategy {
	if len(models) == 0 {
		models = AutoMigrateModels()
	}
	return &GormAutoMigrateStrategy{
		models: models,
		logger: log.With("component", "migration.automigrate"),
	}
}

func (s *GormAutoMigrateStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	s.logger.Infow("starting gorm auto migration", "models_count", len(s.models))

	if err := db.WithContext(ctx).AutoMigrate(s.models...); err != nil {
		s.logger.Errorw("auto migration failed", "error", err)
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}

// goose keeps its dialect, filesystem and logger in package globals.
var gooseMu sync.Mutex

// GooseStrategy runs the versioned SQL scripts embedded in the binary.
type GooseStrategy struct {
	dialect goose.Dialect
	dir     string
	fsys    fs.FS
	logger  logger.Interface
}

// NewGooseStrategy picks the script directory that matches the driver.
func NewGooseStrategy(driver string, log logger.Interface) (*GooseStrategy, error) {
	s := &GooseStrategy{
		fsys:   embeddedScripts,
		logger: log.With("component", "migration.goose"),
	}
	switch driver {
	case "sqlite", "":
		s.dialect = goose.DialectSQLite3
		s.dir = "scripts/sqlite"
	case "mysql":
		s.dialect = goose.DialectMySQL
		s.dir = "scripts/mysql"
	default:
		return nil, fmt.Errorf("no migration scripts for driver %q", driver)
	}
	return s, nil
}

func (s *GooseStrategy) GetName() string {
	return "goose"
}

// prepare configures goose and returns the release func for gooseMu.
func (s *GooseStrategy) prepare() (func(), error) {
	gooseMu.Lock()
	goose.SetBaseFS(s.fsys)
	goose.SetLogger(&gooseLogger{log: s.logger})
	if err := goose.SetDialect(string(s.dialect)); err != nil {
		gooseMu.Unlock()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseMu.Unlock, nil
}

func (s *GooseStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	s.logger.Infow("starting goose migration", "dialect", s.dialect, "scripts", s.dir)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	release, err := s.prepare()
	if err != nil {
		return err
	}
	defer release()

	currentVersion, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		s.logger.Errorw("failed to get current version", "error", err)
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, s.dir); err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	s.logger.Infow("migration completed successfully",
		"from_version", currentVersion,
		"to_version", finalVersion)
	return nil
}

func (s *GooseStrategy) MigrateDown(ctx context.Context, db *gorm.DB, steps int) error {
	s.logger.Infow("starting down migration", "steps", steps)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	release, err := s.prepare()
	if err != nil {
		return err
	}
	defer release()

	for i := 0; i < steps; i++ {
		if err := goose.DownContext(ctx, sqlDB, s.dir); err != nil {
			s.logger.Errorw("down migration failed", "error", err)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}
	return nil
}

func (s *GooseStrategy) GetVersion(ctx context.Context, db *gorm.DB) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	release, err := s.prepare()
	if err != nil {
		return 0, err
	}
	defer release()

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// Status logs the applied state of every script.
func (s *GooseStrategy) Status(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	release, err := s.prepare()
	if err != nil {
		return err
	}
	defer release()

	if err := goose.StatusContext(ctx, sqlDB, s.dir); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return nil
}

type gooseLogger struct {
	log logger.Interface
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infow(fmt.Sprintf(format, v...))
}

// Fatalf must not exit the process; goose returns the error to the caller as well.
func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Errorw(fmt.Sprintf(format, v...))
}

// Create writes a new timestamped script pair into dir on disk. Scripts only
// ship after they are copied under scripts/<dialect>.
func (s *GooseStrategy) Create(dir, name string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(nil)
	goose.SetLogger(&gooseLogger{log: s.logger})
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}

	s.logger.Infow("migration created successfully", "name", name, "dir", dir)
	return nil
}
