package db

import (
	"fmt"
	"time"

	"imob-crm/internal/config"
	"imob-crm/internal/logging"
	"imob-crm/internal/spend"
	"imob-crm/pkg/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM database instance
type Database struct {
	DB *gorm.DB
}

// PoolConfig holds connection pool settings
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPool is used by Open
var DefaultPool = PoolConfig{
	MaxIdleConns:    10,
	MaxOpenConns:    50,
	ConnMaxLifetime: time.Hour,
}

// zapWriter routes GORM's logger through zap
type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Infof(format, args...)
}

// GormConfig returns the GORM settings shared by every dialect.
func GormConfig(environment string) *gorm.Config {
	level := logger.Warn
	if environment == "development" {
		level = logger.Info
	}

	return &gorm.Config{
		Logger: logger.New(zapWriter{log: logging.Named("gorm").Sugar()}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Open connects to PostgreSQL and configures the pool. It does not migrate.
func Open(cfg *config.DatabaseConfig, environment string) (*Database, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(environment))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(DefaultPool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(DefaultPool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(DefaultPool.ConnMaxLifetime)

	logging.L().Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
	)
	return &Database{DB: gdb}, nil
}

// OpenSQLite opens a pure-Go SQLite database for local development and
// tests. ":memory:" gives a private in-memory database; the pool is pinned
// to one connection so every query sees the same data.
func OpenSQLite(path, environment string) (*Database, error) {
	gdb, err := gorm.Open(sqlite.Open(path), GormConfig(environment))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return &Database{DB: gdb}, nil
}

// Connect opens the database selected by cfg.Driver.
func Connect(cfg *config.DatabaseConfig, environment string) (*Database, error) {
	if cfg.Driver == "sqlite" {
		logging.L().Warn("using sqlite database", zap.String("path", cfg.SQLitePath))
		return OpenSQLite(cfg.SQLitePath, environment)
	}
	return Open(cfg, environment)
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	return Migrate(d.DB)
}

// Migrate auto-migrates every CRM model and the spend audit table.
func Migrate(gdb *gorm.DB) error {
	start := time.Now()

	tables := append(models.All(), &spend.SpendEvent{})
	if err := gdb.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logging.L().Info("database migrations completed",
		zap.Int("tables", len(tables)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Ping checks the connection
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
