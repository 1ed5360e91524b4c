package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const driverColumns = `id, first_name, last_name, email, phone, license_number, license_expiry,
	status, notes, created_at, updated_at`

func scanDriver(s scanner) (*domain.Driver, error) {
	var (
		d                    domain.Driver
		expiry               sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.LicenseNumber, &expiry,
		&d.Status, &d.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if d.LicenseExpiry, err = parseNullTime(expiry); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (db *DB) CreateDriver(ctx context.Context, d *domain.Driver) (*domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateDriver")
	defer span.End()

	now := time.Now().UTC()
	created := *d
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := db.db.ExecContext(ctx, `
		INSERT INTO drivers (`+driverColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, created.ID, created.FirstName, created.LastName, created.Email, created.Phone, created.LicenseNumber,
		formatNullTime(created.LicenseExpiry), created.Status, created.Notes, formatTime(now), formatTime(now))
	if err != nil {
		return nil, mapWriteError(err, "driver", created.ID, driverKeys(&created))
	}

	db.logger.Info("sqlite: driver created", zap.String("driver_id", created.ID))
	return &created, nil
}

func (db *DB) GetDriver(ctx context.Context, id string) (*domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetDriver")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	d, err := scanDriver(db.db.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err, "driver", id)
	}
	return d, nil
}

func (db *DB) ListDrivers(ctx context.Context, page domain.Page) ([]domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListDrivers")
	defer span.End()

	rows, err := db.db.QueryContext(ctx, `
		SELECT `+driverColumns+` FROM drivers
		ORDER BY created_at, id LIMIT ? OFFSET ?
	`, page.Limit, page.Skip)
	if err != nil {
		return nil, mapError(err, "driver", "")
	}
	defer rows.Close()

	drivers := []domain.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, mapError(err, "driver", "")
		}
		drivers = append(drivers, *d)
	}
	return drivers, mapError(rows.Err(), "driver", "")
}

func (db *DB) UpdateDriver(ctx context.Context, id string, u *domain.DriverUpdate) (*domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateDriver")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "driver", id)
	}
	defer tx.Rollback()

	d, err := scanDriver(tx.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err, "driver", id)
	}
	u.Apply(d)
	d.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE drivers SET first_name = ?, last_name = ?, email = ?, phone = ?, license_number = ?,
			license_expiry = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, d.FirstName, d.LastName, d.Email, d.Phone, d.LicenseNumber,
		formatNullTime(d.LicenseExpiry), d.Status, d.Notes, formatTime(d.UpdatedAt), id)
	if err != nil {
		return nil, mapWriteError(err, "driver", id, driverKeys(d))
	}
	if err := tx.Commit(); err != nil {
		return nil, mapError(err, "driver", id)
	}
	return d, nil
}

func (db *DB) DeleteDriver(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteDriver")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	res, err := db.db.ExecContext(ctx, `DELETE FROM drivers WHERE id = ?`, id)
	if err != nil {
		return mapError(err, "driver", id)
	}
	return checkAffected(res, "driver", id)
}

func driverKeys(d *domain.Driver) map[string]string {
	return map[string]string{"license_number": d.LicenseNumber}
}
