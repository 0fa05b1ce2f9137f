// Package store persists clients, visits, monthly reports and invoices in a
// relational database through gorm. SQLite is the default; PostgreSQL is
// used when configured.
package store

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"recon/internal/logger"
	"recon/pkg/models"
)

// ErrUnsupportedDriver is returned for database drivers other than sqlite and postgres.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Store wraps the database handle.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the database and migrates the schema.
func Open(driver, dsn string, debug bool) (*Store, error) {
	const op = "Open"

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedDriver, driver)
	}

	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect database: %w", op, err)
	}
	return New(db)
}

// New migrates the schema on an open connection and returns the store.
func New(db *gorm.DB) (*Store, error) {
	const op = "New"

	if err := db.AutoMigrate(
		&models.Client{},
		&models.Visit{},
		&models.VisitItem{},
		&models.MonthlyReport{},
		&models.Invoice{},
		&models.InvoiceItem{},
	); err != nil {
		return nil, fmt.Errorf("%s: migrations failed: %w", op, err)
	}
	return &Store{db: db, log: logger.WithComponent("store")}, nil
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
