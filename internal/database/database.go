// Package database persists properties, bookings, expenses and cached
// liquidations in SQLite. The scheduling and settlement math itself lives
// in internal/schedule and internal/liquidation; this layer only loads
// snapshots and writes rows.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"rentero/internal/models"
)

// DB wraps the SQLite connection together with the property cache and the
// per-property write locks used to serialize conflict-check + insert pairs.
type DB struct {
	*sql.DB
	logger *zerolog.Logger

	propCache map[int64]models.Property
	cacheTime time.Time
	mu        sync.RWMutex

	propLocks map[int64]*sync.Mutex
	locksMu   sync.Mutex
}

var (
	// ErrConflict is returned when a booking overlaps an existing one for
	// the same property. The conflicting rows accompany it.
	ErrConflict = errors.New("booking dates conflict with an existing booking")
	ErrNotFound = models.ErrNotFound
)

// NewDB opens (or creates) the database, runs migrations and warms the
// property cache.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and a busy timeout keep the single-writer model usable from
	// the bot and the HTTP API at the same time.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:        db,
		logger:    logger,
		propCache: make(map[int64]models.Property),
		propLocks: make(map[int64]*sync.Mutex),
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := instance.ReloadProperties(); err != nil {
		logger.Error().Err(err).Msg("Failed to load properties into cache")
		// Not fatal: the app can start with an empty portfolio.
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT,
			owner TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id INTEGER NOT NULL,
			tenant_name TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			rent_amount TEXT NOT NULL DEFAULT '0',
			rent_currency TEXT NOT NULL DEFAULT 'USD',
			source TEXT NOT NULL DEFAULT 'Personal',
			commission_paid TEXT,
			commission_currency TEXT,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(property_id) REFERENCES properties(id)
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id INTEGER NOT NULL,
			expense_date TEXT NOT NULL,
			category TEXT NOT NULL,
			amount TEXT NOT NULL DEFAULT '0',
			currency TEXT NOT NULL DEFAULT 'USD',
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(property_id) REFERENCES properties(id)
		)`,

		// Cached settlement records; derived data, never the source of truth.
		`CREATE TABLE IF NOT EXISTS liquidations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			type TEXT NOT NULL,
			identifier TEXT NOT NULL,
			commission_percentage TEXT NOT NULL,
			total_income TEXT NOT NULL,
			total_expenses TEXT NOT NULL,
			commission_amount TEXT NOT NULL,
			owner_net TEXT NOT NULL,
			calculated_at DATETIME NOT NULL,
			UNIQUE(year, month, type, identifier, commission_percentage) ON CONFLICT REPLACE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_properties_owner ON properties(owner)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_property ON bookings(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_dates ON bookings(property_id, start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_end_date ON bookings(end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_property ON expenses(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(expense_date)`,
		`CREATE INDEX IF NOT EXISTS idx_liquidations_key ON liquidations(year, month, type, identifier)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return db.ensureNewColumns()
}

// ensureNewColumns adds columns introduced after the first release.
func (db *DB) ensureNewColumns() error {
	migrations := []string{
		`ALTER TABLE bookings ADD COLUMN commission_currency TEXT`,
		`ALTER TABLE bookings ADD COLUMN rent_currency TEXT NOT NULL DEFAULT 'USD'`,
		`ALTER TABLE expenses ADD COLUMN currency TEXT NOT NULL DEFAULT 'USD'`,
	}

	for _, m := range migrations {
		_, err := db.Exec(m)
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			if db.logger != nil {
				db.logger.Debug().Err(err).Str("migration", m).Msg("Migration skipped")
			}
		}
	}
	return nil
}

// propertyLock returns the mutex guarding writes for one property,
// creating it on first use.
func (db *DB) propertyLock(propertyID int64) *sync.Mutex {
	db.locksMu.Lock()
	defer db.locksMu.Unlock()
	l, ok := db.propLocks[propertyID]
	if !ok {
		l = &sync.Mutex{}
		db.propLocks[propertyID] = l
	}
	return l
}

func (db *DB) Close() error {
	return db.DB.Close()
}
