package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions: one flat table, variant columns keyed by kind
// ============================================================

// transactionRow maps the transactions table. Fuel and maintenance columns
// are null unless kind selects them.
type transactionRow struct {
	ID               string           `json:"id,omitempty"`
	TransactionID    string           `json:"transaction_id"`
	UUID             *uuid.UUID       `json:"uuid"`
	Kind             string           `json:"kind"`
	Timestamp        time.Time        `json:"timestamp"`
	UTCOffset        int              `json:"utc_offset"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         *string          `json:"currency"`
	TransactionType  string           `json:"transaction_type"`
	VehicleID        *string          `json:"vehicle_id"`
	DriverID         *string          `json:"driver_id"`
	Latitude         *float64         `json:"latitude"`
	Longitude        *float64         `json:"longitude"`
	MerchantName     *string          `json:"merchant_name"`
	MerchantCategory *string          `json:"merchant_category"`
	Notes            *string          `json:"notes"`
	OdometerReading  *int64           `json:"odometer_reading"`
	FuelType         *string          `json:"fuel_type"`
	FuelVolume       *decimal.Decimal `json:"fuel_volume"`
	FuelVolumeUnit   *string          `json:"fuel_volume_unit"`
	MaintenanceType  *string          `json:"maintenance_type"`
	CreatedAt        *time.Time       `json:"created_at,omitempty"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`
}

var errEmptyInsert = errors.New("insert returned no rows")

func toRow(tx *domain.Transaction) transactionRow {
	r := transactionRow{
		TransactionID:    tx.TransactionID,
		UUID:             tx.UUID,
		Kind:             string(tx.Kind),
		Timestamp:        tx.Timestamp.UTC(),
		UTCOffset:        domain.UTCOffset(tx.Timestamp),
		Amount:           tx.Amount,
		TransactionType:  tx.TransactionType,
		VehicleID:        tx.VehicleID,
		DriverID:         tx.DriverID,
		Latitude:         tx.Latitude,
		Longitude:        tx.Longitude,
		MerchantName:     tx.MerchantName,
		MerchantCategory: tx.MerchantCategory,
		Notes:            tx.Notes,
		OdometerReading:  tx.OdometerReading,
	}
	if tx.Currency != "" {
		r.Currency = &tx.Currency
	}
	if tx.Fuel != nil {
		r.FuelType = &tx.Fuel.FuelType
		r.FuelVolume = &tx.Fuel.FuelVolume
		r.FuelVolumeUnit = &tx.Fuel.FuelVolumeUnit
	}
	if tx.Maintenance != nil {
		r.MaintenanceType = &tx.Maintenance.MaintenanceType
	}
	return r
}

func (r *transactionRow) toDomain() domain.Transaction {
	tx := domain.Transaction{
		Kind:             domain.TransactionKind(r.Kind),
		ID:               r.ID,
		TransactionID:    r.TransactionID,
		UUID:             r.UUID,
		Timestamp:        domain.AtUTCOffset(r.Timestamp, r.UTCOffset),
		Amount:           r.Amount,
		TransactionType:  r.TransactionType,
		VehicleID:        r.VehicleID,
		DriverID:         r.DriverID,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		MerchantName:     r.MerchantName,
		MerchantCategory: r.MerchantCategory,
		Notes:            r.Notes,
		OdometerReading:  r.OdometerReading,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Currency != nil {
		tx.Currency = *r.Currency
	}
	if r.CreatedAt != nil {
		tx.CreatedAt = *r.CreatedAt
	}

	switch tx.Kind {
	case domain.KindFuel:
		fuel := domain.FuelDetails{}
		if r.FuelType != nil {
			fuel.FuelType = *r.FuelType
		}
		if r.FuelVolume != nil {
			fuel.FuelVolume = *r.FuelVolume
		}
		if r.FuelVolumeUnit != nil {
			fuel.FuelVolumeUnit = *r.FuelVolumeUnit
		}
		tx.Fuel = &fuel
	case domain.KindMaintenance:
		m := domain.MaintenanceDetails{}
		if r.MaintenanceType != nil {
			m.MaintenanceType = *r.MaintenanceType
		}
		tx.Maintenance = &m
	}
	return tx
}

func rowsToDomain(rows []transactionRow) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out
}

func (c *Client) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", tx.TransactionID))

	created, err := c.CreateTransactions(ctx, []domain.Transaction{*tx})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: errEmptyInsert}
	}
	return &created[0], nil
}

// CreateTransactions inserts all rows in a single request. Row ids are
// assigned here so that a retry whose first attempt committed can be told
// apart from a real duplicate: a conflict on a retry is resolved by reading
// the rows back by id.
func (c *Client) CreateTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(txs)))

	rows := make([]transactionRow, 0, len(txs))
	ids := make([]string, 0, len(txs))
	for i := range txs {
		row := toRow(&txs[i])
		row.ID = uuid.NewString()
		rows = append(rows, row)
		ids = append(ids, row.ID)
	}

	var created []domain.Transaction
	attempt := 0
	err := c.call(ctx, "supabase/transactions", func() error {
		attempt++
		body, err := c.doPost(ctx, "transactions", rows)
		var conflict *domain.ErrConflict
		if attempt > 1 && errors.As(err, &conflict) {
			stored, rerr := c.transactionsByID(ctx, ids)
			if rerr != nil {
				return rerr
			}
			if len(stored) < len(ids) {
				return err
			}
			c.logger.Warn("supabase: insert committed before retry", zap.Int("attempt", attempt))
			created = stored
			return nil
		}
		if err != nil {
			return err
		}
		out, err := decodeRows[transactionRow](body, "transactions")
		if err != nil {
			return err
		}
		created = rowsToDomain(out)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("supabase: transactions created", zap.Int("count", len(created)))
	return created, nil
}

// transactionsByID reads the rows with the given ids, in the order of ids.
func (c *Client) transactionsByID(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	q := url.Values{}
	q.Set("id", "in.("+strings.Join(ids, ",")+")")
	body, err := c.doRequest(ctx, http.MethodGet, "transactions?"+q.Encode())
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[transactionRow](body, "transactions")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Transaction, len(rows))
	for i := range rows {
		byID[rows[i].ID] = rows[i].toDomain()
	}
	out := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		if tx, ok := byID[id]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	var tx *domain.Transaction
	err := c.call(ctx, "supabase/transactions", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, eq("transactions", "id", id)+"&limit=1")
		if err != nil {
			return err
		}
		rows, err := decodeRows[transactionRow](body, "transaction")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "transaction", ID: id}
		}
		t := rows[0].toDomain()
		tx = &t
		return nil
	})
	return tx, err
}

func (c *Client) ListTransactions(ctx context.Context, filter domain.TransactionFilter, page domain.Page) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()

	q := url.Values{}
	if filter.VehicleID != "" {
		q.Set("vehicle_id", "eq."+filter.VehicleID)
	}
	if filter.DriverID != "" {
		q.Set("driver_id", "eq."+filter.DriverID)
	}
	if filter.From != nil {
		q.Add("timestamp", "gte."+filter.From.UTC().Format(time.RFC3339Nano))
	}
	if filter.To != nil {
		q.Add("timestamp", "lte."+filter.To.UTC().Format(time.RFC3339Nano))
	}
	return c.listTransactions(ctx, q, "timestamp.asc", page)
}

func (c *Client) ListTransactionsByVehicle(ctx context.Context, vehicleID string, page domain.Page) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactionsByVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	q := url.Values{}
	q.Set("vehicle_id", "eq."+vehicleID)
	return c.listTransactions(ctx, q, "timestamp.desc", page)
}

func (c *Client) listTransactions(ctx context.Context, q url.Values, order string, page domain.Page) ([]domain.Transaction, error) {
	path := "transactions?" + pageQuery(q, order, page).Encode()

	var txs []domain.Transaction
	err := c.call(ctx, "supabase/transactions", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		rows, err := decodeRows[transactionRow](body, "transactions")
		if err != nil {
			return err
		}
		txs = rowsToDomain(rows)
		return nil
	})
	return txs, err
}

// UpdateTransaction replaces every column of the stored row except its ids
// and creation time.
func (c *Client) UpdateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", tx.ID))

	row := toRow(tx)
	now := time.Now().UTC()
	row.UpdatedAt = &now

	var updated *domain.Transaction
	err := c.call(ctx, "supabase/transactions", func() error {
		body, err := c.doPatch(ctx, eq("transactions", "id", tx.ID), row)
		if err != nil {
			return err
		}
		rows, err := decodeRows[transactionRow](body, "transaction")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
		}
		t := rows[0].toDomain()
		updated = &t
		return nil
	})
	return updated, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	return c.call(ctx, "supabase/transactions", func() error {
		body, err := c.doDelete(ctx, eq("transactions", "id", id))
		if err != nil {
			return err
		}
		rows, err := decodeRows[transactionRow](body, "transaction")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "transaction", ID: id}
		}
		return nil
	})
}
