package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/visaexplorer/internal/explorer/db/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultCityRankMinGroups = 500
)

// Repository runs the read-only dataset queries over a single pooled
// connection opened at startup.
type Repository struct {
	db      *gorm.DB
	dialect dialect
	// cityRankMinGroups is the number of (employer, job title) groups a
	// city must exceed to be ranked.
	cityRankMinGroups int
}

type Config struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the driver-specific connection string.
func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case DriverMySQL, "":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DBName), nil
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode), nil
	case DriverSQLite:
		return c.DBName, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		dialector = mysql.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return newRepository(db), nil
}

// Connect opens the repository, retrying with exponential backoff until
// the store answers a ping or maxElapsed passes. A configuration error
// fails immediately.
func Connect(ctx context.Context, cfg *Config, maxElapsed time.Duration, log *zap.Logger) (*Repository, error) {
	if _, err := cfg.DSN(); err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	var repo *Repository
	err := backoff.RetryNotify(func() error {
		r, err := NewRepository(cfg)
		if err != nil {
			return err
		}
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return err
		}
		repo = r
		return nil
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		log.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func newRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:                db,
		dialect:           dialect(db.Dialector.Name()),
		cityRankMinGroups: defaultCityRankMinGroups,
	}
}

// Migrate creates the dataset tables. Only fixtures call it; the
// production schema is owned by the ingestion process.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(dbmodels.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping verifies the store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// raw prepares a dataset query for the connected store.
func (r *Repository) raw(ctx context.Context, query string, args ...interface{}) *gorm.DB {
	return r.db.WithContext(ctx).Raw(r.dialect.tables(query), args...)
}

// Exec runs a raw statement. Fixtures use it to seed data.
func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(r.dialect.tables(query), params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
