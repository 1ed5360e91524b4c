// Package sqlite is the embedded storage backend: vehicles, drivers and
// transactions in a single SQLite file (or ":memory:") through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var tracer = otel.Tracer("sqlite")

// timeLayout is fixed-width so that TEXT ordering equals time ordering.
// Times are stored in UTC; a transaction's own offset lives in utc_offset.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the database handle.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, logger *zap.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; also keeps a ":memory:" database on one connection.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB, logger: logger}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.Info("sqlite: database ready", zap.String("path", path))
	return db, nil
}

// Close releases the database handle.
func (db *DB) Close() error {
	return db.db.Close()
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) migrate() error {
	for _, stmt := range migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite migration failed: %w", err)
		}
	}
	return nil
}

// migrations returns the schema statements, one per Exec.
func migrations() []string {
	return []string{
		`PRAGMA busy_timeout = 5000`,

		`CREATE TABLE IF NOT EXISTS vehicles (
			id            TEXT PRIMARY KEY,
			make          TEXT NOT NULL,
			model         TEXT NOT NULL,
			year          INTEGER NOT NULL,
			license_plate TEXT NOT NULL UNIQUE,
			vin           TEXT NOT NULL UNIQUE,
			status        TEXT NOT NULL DEFAULT 'active',
			vehicle_type  TEXT NOT NULL,
			mileage       INTEGER,
			fuel_type     TEXT,
			color         TEXT,
			notes         TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicles_status ON vehicles(status)`,

		`CREATE TABLE IF NOT EXISTS drivers (
			id             TEXT PRIMARY KEY,
			first_name     TEXT NOT NULL,
			last_name      TEXT NOT NULL,
			email          TEXT,
			phone          TEXT,
			license_number TEXT NOT NULL UNIQUE,
			license_expiry TEXT,
			status         TEXT NOT NULL DEFAULT 'active',
			notes          TEXT,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id                TEXT PRIMARY KEY,
			transaction_id    TEXT NOT NULL UNIQUE,
			uuid              TEXT,
			kind              TEXT NOT NULL,
			timestamp         TEXT NOT NULL,
			utc_offset        INTEGER NOT NULL DEFAULT 0,
			amount            TEXT NOT NULL,
			currency          TEXT,
			transaction_type  TEXT NOT NULL,
			vehicle_id        TEXT,
			driver_id         TEXT,
			latitude          REAL,
			longitude         REAL,
			merchant_name     TEXT,
			merchant_category TEXT,
			notes             TEXT,
			odometer_reading  INTEGER,
			fuel_type         TEXT,
			fuel_volume       TEXT,
			fuel_volume_unit  TEXT,
			maintenance_type  TEXT,
			created_at        TEXT NOT NULL,
			updated_at        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_vehicle ON transactions(vehicle_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_driver ON transactions(driver_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp)`,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// mapError turns driver errors into domain errors.
func mapError(err error, resource, id string) error {
	return mapWriteError(err, resource, id, nil)
}

// mapWriteError is mapError for inserts and updates. keys holds the values
// written to unique columns, so a conflict can name the one that collided.
func mapWriteError(err error, resource, id string, keys map[string]string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	var se *msqlite.Error
	if errors.As(err, &se) && isUniqueViolation(se) {
		field := constraintColumn(se.Error())
		return &domain.ErrConflict{Resource: resource, Field: field, Key: keys[field]}
	}
	return &domain.ErrExternalService{Service: "sqlite/" + resource, Err: err}
}

func isUniqueViolation(se *msqlite.Error) bool {
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// constraintColumn extracts the column from "UNIQUE constraint failed:
// transactions.transaction_id".
func constraintColumn(msg string) string {
	i := strings.Index(msg, "UNIQUE constraint failed:")
	if i < 0 {
		return ""
	}
	col := strings.TrimSpace(msg[i+len("UNIQUE constraint failed:"):])
	if j := strings.IndexAny(col, ", ("); j >= 0 {
		col = col[:j]
	}
	if j := strings.LastIndex(col, "."); j >= 0 {
		col = col[j+1:]
	}
	return col
}

// checkAffected reports ErrNotFound when an UPDATE or DELETE touched no row.
func checkAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, resource, id)
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
