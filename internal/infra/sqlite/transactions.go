package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const transactionColumns = `id, transaction_id, uuid, kind, timestamp, utc_offset, amount, currency, transaction_type,
	vehicle_id, driver_id, latitude, longitude, merchant_name, merchant_category, notes, odometer_reading,
	fuel_type, fuel_volume, fuel_volume_unit, maintenance_type, created_at, updated_at`

// transactionArgs returns the column values of tx in transactionColumns order,
// without id and the two audit timestamps.
func transactionArgs(tx *domain.Transaction) []any {
	var (
		id                        uuid.NullUUID
		currency                  sql.NullString
		fuelType, fuelUnit, mType sql.NullString
		fuelVolume                decimal.NullDecimal
	)
	if tx.UUID != nil {
		id = uuid.NullUUID{UUID: *tx.UUID, Valid: true}
	}
	if tx.Currency != "" {
		currency = sql.NullString{String: tx.Currency, Valid: true}
	}
	if tx.Fuel != nil {
		fuelType = sql.NullString{String: tx.Fuel.FuelType, Valid: true}
		fuelVolume = decimal.NullDecimal{Decimal: tx.Fuel.FuelVolume, Valid: true}
		fuelUnit = sql.NullString{String: tx.Fuel.FuelVolumeUnit, Valid: true}
	}
	if tx.Maintenance != nil {
		mType = sql.NullString{String: tx.Maintenance.MaintenanceType, Valid: true}
	}
	return []any{
		tx.TransactionID, id, string(tx.Kind), formatTime(tx.Timestamp), domain.UTCOffset(tx.Timestamp), tx.Amount, currency, tx.TransactionType,
		tx.VehicleID, tx.DriverID, tx.Latitude, tx.Longitude, tx.MerchantName, tx.MerchantCategory, tx.Notes,
		tx.OdometerReading, fuelType, fuelVolume, fuelUnit, mType,
	}
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var (
		tx                        domain.Transaction
		id                        uuid.NullUUID
		kind, ts, createdAt       string
		offset                    int
		currency                  sql.NullString
		fuelType, fuelUnit, mType sql.NullString
		fuelVolume                decimal.NullDecimal
		updatedAt                 sql.NullString
	)
	err := s.Scan(&tx.ID, &tx.TransactionID, &id, &kind, &ts, &offset, &tx.Amount, &currency, &tx.TransactionType,
		&tx.VehicleID, &tx.DriverID, &tx.Latitude, &tx.Longitude, &tx.MerchantName, &tx.MerchantCategory,
		&tx.Notes, &tx.OdometerReading, &fuelType, &fuelVolume, &fuelUnit, &mType, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	tx.Kind = domain.TransactionKind(kind)
	if id.Valid {
		u := id.UUID
		tx.UUID = &u
	}
	tx.Currency = currency.String
	if tx.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	tx.Timestamp = domain.AtUTCOffset(tx.Timestamp, offset)
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if tx.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, err
	}

	switch tx.Kind {
	case domain.KindFuel:
		tx.Fuel = &domain.FuelDetails{
			FuelType:       fuelType.String,
			FuelVolume:     fuelVolume.Decimal,
			FuelVolumeUnit: fuelUnit.String,
		}
	case domain.KindMaintenance:
		tx.Maintenance = &domain.MaintenanceDetails{MaintenanceType: mType.String}
	}
	return &tx, nil
}

func (db *DB) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", tx.TransactionID))

	created, err := db.CreateTransactions(ctx, []domain.Transaction{*tx})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// CreateTransactions inserts every row or none.
func (db *DB) CreateTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(txs)))

	sqlTx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "transaction", "")
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, mapError(err, "transaction", "")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	created := make([]domain.Transaction, 0, len(txs))
	for i := range txs {
		t := txs[i]
		t.ID = uuid.NewString()
		t.CreatedAt = now
		t.UpdatedAt = nil

		args := append([]any{t.ID}, transactionArgs(&t)...)
		args = append(args, formatTime(now), nil)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, mapWriteError(err, "transaction", t.ID, transactionKeys(&t))
		}
		created = append(created, t)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, mapError(err, "transaction", "")
	}

	db.logger.Info("sqlite: transactions created", zap.Int("count", len(created)))
	return created, nil
}

func (db *DB) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	tx, err := scanTransaction(db.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err, "transaction", id)
	}
	return tx, nil
}

func (db *DB) ListTransactions(ctx context.Context, filter domain.TransactionFilter, page domain.Page) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListTransactions")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if filter.VehicleID != "" {
		where = append(where, "vehicle_id = ?")
		args = append(args, filter.VehicleID)
	}
	if filter.DriverID != "" {
		where = append(where, "driver_id = ?")
		args = append(args, filter.DriverID)
	}
	if filter.From != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTime(*filter.To))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY timestamp, id LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Skip)

	return db.queryTransactions(ctx, query, args...)
}

func (db *DB) ListTransactionsByVehicle(ctx context.Context, vehicleID string, page domain.Page) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListTransactionsByVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	return db.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE vehicle_id = ?
		ORDER BY timestamp DESC, id LIMIT ? OFFSET ?
	`, vehicleID, page.Limit, page.Skip)
}

func (db *DB) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "transaction", "")
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, mapError(err, "transaction", "")
		}
		txs = append(txs, *tx)
	}
	return txs, mapError(rows.Err(), "transaction", "")
}

func (db *DB) UpdateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", tx.ID))

	now := time.Now().UTC()
	args := append(transactionArgs(tx), formatTime(now), tx.ID)
	res, err := db.db.ExecContext(ctx, `
		UPDATE transactions SET transaction_id = ?, uuid = ?, kind = ?, timestamp = ?, utc_offset = ?, amount = ?,
			currency = ?, transaction_type = ?, vehicle_id = ?, driver_id = ?, latitude = ?, longitude = ?,
			merchant_name = ?, merchant_category = ?, notes = ?, odometer_reading = ?, fuel_type = ?,
			fuel_volume = ?, fuel_volume_unit = ?, maintenance_type = ?, updated_at = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return nil, mapWriteError(err, "transaction", tx.ID, transactionKeys(tx))
	}
	if err := checkAffected(res, "transaction", tx.ID); err != nil {
		return nil, err
	}
	return db.GetTransaction(ctx, tx.ID)
}

func (db *DB) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	res, err := db.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return mapError(err, "transaction", id)
	}
	return checkAffected(res, "transaction", id)
}

func transactionKeys(tx *domain.Transaction) map[string]string {
	return map[string]string{"transaction_id": tx.TransactionID}
}
