package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ArCaneSec/apidock/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	DSN    string

	// Clock stamps created/updated columns. Defaults to time.Now.
	Clock func() time.Time

	Log *slog.Logger
}

func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	}
	if cfg.Clock != nil {
		gcfg.NowFunc = cfg.Clock
	}
	if cfg.Log != nil {
		gcfg.Logger = newGormLogger(cfg.Log)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("an error occured when attempting to connect to the database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to an in-memory sqlite database sees its own empty database
	if cfg.Driver == DriverSQLite && strings.Contains(cfg.DSN, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping wasnt successfull: %w", err)
	}

	return db, nil
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("an error occured when tried to migrate the schema: %w", err)
	}
	return nil
}

// Flush drops every table, children first.
func Flush(db *gorm.DB) error {
	tables := models.All()
	for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
		tables[i], tables[j] = tables[j], tables[i]
	}
	if err := db.Migrator().DropTable(tables...); err != nil {
		return fmt.Errorf("error while flushing database: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
