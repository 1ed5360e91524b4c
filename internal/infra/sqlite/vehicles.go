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

const vehicleColumns = `id, make, model, year, license_plate, vin, status, vehicle_type,
	mileage, fuel_type, color, notes, created_at, updated_at`

func scanVehicle(s scanner) (*domain.Vehicle, error) {
	var (
		v                    domain.Vehicle
		createdAt, updatedAt string
	)
	err := s.Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.LicensePlate, &v.VIN, &v.Status, &v.VehicleType,
		&v.Mileage, &v.FuelType, &v.Color, &v.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (db *DB) CreateVehicle(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateVehicle")
	defer span.End()

	now := time.Now().UTC()
	created := *v
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := db.db.ExecContext(ctx, `
		INSERT INTO vehicles (`+vehicleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, created.ID, created.Make, created.Model, created.Year, created.LicensePlate, created.VIN,
		created.Status, created.VehicleType, created.Mileage, created.FuelType, created.Color, created.Notes,
		formatTime(now), formatTime(now))
	if err != nil {
		return nil, mapWriteError(err, "vehicle", created.ID, vehicleKeys(&created))
	}

	db.logger.Info("sqlite: vehicle created", zap.String("vehicle_id", created.ID))
	return &created, nil
}

func (db *DB) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	row := db.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if err != nil {
		return nil, mapError(err, "vehicle", id)
	}
	return v, nil
}

func (db *DB) ListVehicles(ctx context.Context, page domain.Page) ([]domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListVehicles")
	defer span.End()

	rows, err := db.db.QueryContext(ctx, `
		SELECT `+vehicleColumns+` FROM vehicles
		ORDER BY created_at, id LIMIT ? OFFSET ?
	`, page.Limit, page.Skip)
	return collectVehicles(rows, err)
}

func (db *DB) ListVehiclesByStatus(ctx context.Context, status domain.VehicleStatus, page domain.Page) ([]domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListVehiclesByStatus")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.status", string(status)))

	rows, err := db.db.QueryContext(ctx, `
		SELECT `+vehicleColumns+` FROM vehicles WHERE status = ?
		ORDER BY created_at, id LIMIT ? OFFSET ?
	`, status, page.Limit, page.Skip)
	return collectVehicles(rows, err)
}

func collectVehicles(rows *sql.Rows, err error) ([]domain.Vehicle, error) {
	if err != nil {
		return nil, mapError(err, "vehicle", "")
	}
	defer rows.Close()

	vehicles := []domain.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, mapError(err, "vehicle", "")
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, mapError(rows.Err(), "vehicle", "")
}

// UpdateVehicle applies u to the stored row inside one transaction.
func (db *DB) UpdateVehicle(ctx context.Context, id string, u *domain.VehicleUpdate) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "vehicle", id)
	}
	defer tx.Rollback()

	v, err := scanVehicle(tx.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err, "vehicle", id)
	}
	u.Apply(v)
	v.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE vehicles SET make = ?, model = ?, year = ?, license_plate = ?, vin = ?, status = ?,
			vehicle_type = ?, mileage = ?, fuel_type = ?, color = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, v.Make, v.Model, v.Year, v.LicensePlate, v.VIN, v.Status, v.VehicleType,
		v.Mileage, v.FuelType, v.Color, v.Notes, formatTime(v.UpdatedAt), id)
	if err != nil {
		return nil, mapWriteError(err, "vehicle", id, vehicleKeys(v))
	}
	if err := tx.Commit(); err != nil {
		return nil, mapError(err, "vehicle", id)
	}
	return v, nil
}

func (db *DB) DeleteVehicle(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	res, err := db.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return mapError(err, "vehicle", id)
	}
	return checkAffected(res, "vehicle", id)
}

func vehicleKeys(v *domain.Vehicle) map[string]string {
	return map[string]string{"vin": v.VIN, "license_plate": v.LicensePlate}
}
