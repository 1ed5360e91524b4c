package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions
// ============================================================

// TransactionKind discriminates the closed set of transaction shapes.
type TransactionKind string

const (
	KindGeneric     TransactionKind = "generic"
	KindFuel        TransactionKind = "fuel"
	KindMaintenance TransactionKind = "maintenance"
)

// Valid reports whether k is one of the known variants.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindGeneric, KindFuel, KindMaintenance:
		return true
	}
	return false
}

// FuelDetails carries the fields only a fuel purchase has.
type FuelDetails struct {
	FuelType       string          `json:"fuel_type"`
	FuelVolume     decimal.Decimal `json:"fuel_volume"`
	FuelVolumeUnit string          `json:"fuel_volume_unit"`
}

// MaintenanceDetails carries the fields only a maintenance event has.
type MaintenanceDetails struct {
	MaintenanceType string `json:"maintenance_type"`
}

// Transaction is one recorded financial or operational event for a vehicle
// or driver. Kind is the explicit discriminant: Fuel is set iff Kind is
// KindFuel, Maintenance is set iff Kind is KindMaintenance. Use the
// constructors below rather than building the struct by hand.
type Transaction struct {
	Kind            TransactionKind `json:"kind"`
	ID              string          `json:"id,omitempty"` // storage row id
	TransactionID   string          `json:"transaction_id"`
	UUID            *uuid.UUID      `json:"uuid,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	TransactionType string          `json:"transaction_type"`

	VehicleID *string `json:"vehicle_id,omitempty"`
	DriverID  *string `json:"driver_id,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	MerchantName     *string `json:"merchant_name,omitempty"`
	MerchantCategory *string `json:"merchant_category,omitempty"`
	Notes            *string `json:"notes,omitempty"`

	OdometerReading *int64 `json:"odometer_reading,omitempty"`

	Fuel        *FuelDetails        `json:"fuel,omitempty"`
	Maintenance *MaintenanceDetails `json:"maintenance,omitempty"`

	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewGenericTransaction builds a transaction with no type-specific fields.
func NewGenericTransaction(transactionID string, ts time.Time, amount decimal.Decimal, txType string) Transaction {
	return Transaction{
		Kind:            KindGeneric,
		TransactionID:   transactionID,
		Timestamp:       ts,
		Amount:          amount,
		TransactionType: txType,
	}
}

// NewFuelTransaction builds a fuel purchase.
func NewFuelTransaction(transactionID string, ts time.Time, amount decimal.Decimal, txType string, fuel FuelDetails) Transaction {
	tx := NewGenericTransaction(transactionID, ts, amount, txType)
	tx.Kind = KindFuel
	tx.Fuel = &fuel
	return tx
}

// NewMaintenanceTransaction builds a maintenance event.
func NewMaintenanceTransaction(transactionID string, ts time.Time, amount decimal.Decimal, txType string, m MaintenanceDetails) Transaction {
	tx := NewGenericTransaction(transactionID, ts, amount, txType)
	tx.Kind = KindMaintenance
	tx.Maintenance = &m
	return tx
}

// HasVehicle reports whether the transaction is attached to a vehicle.
func (t *Transaction) HasVehicle() bool {
	return t.VehicleID != nil && *t.VehicleID != ""
}

// Validate checks the structural invariants of a transaction. It is the
// boundary check: everything downstream assumes a transaction that passed it.
func (t *Transaction) Validate() error {
	if !t.Kind.Valid() {
		return &ErrValidation{Field: "kind", Message: fmt.Sprintf("unknown transaction kind '%s'", t.Kind)}
	}
	if t.TransactionID == "" {
		return &ErrValidation{Field: "transaction_id", Message: "required"}
	}
	if len(t.TransactionID) > 36 {
		return &ErrValidation{Field: "transaction_id", Message: "must be at most 36 characters"}
	}
	if t.Timestamp.IsZero() {
		return &ErrValidation{Field: "timestamp", Message: "required"}
	}
	if !t.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if t.TransactionType == "" {
		return &ErrValidation{Field: "transaction_type", Message: "required"}
	}
	if t.Currency != "" && !isCurrencyCode(t.Currency) {
		return &ErrValidation{Field: "currency", Message: "must be 3 uppercase letters (ISO 4217)"}
	}
	if (t.Latitude == nil) != (t.Longitude == nil) {
		return &ErrValidation{Field: "latitude", Message: "latitude and longitude must be provided together"}
	}
	if t.Latitude != nil && (*t.Latitude < -90 || *t.Latitude > 90) {
		return &ErrValidation{Field: "latitude", Message: "must be between -90 and 90"}
	}
	if t.Longitude != nil && (*t.Longitude < -180 || *t.Longitude > 180) {
		return &ErrValidation{Field: "longitude", Message: "must be between -180 and 180"}
	}
	if t.OdometerReading != nil && *t.OdometerReading <= 0 {
		return &ErrValidation{Field: "odometer_reading", Message: "must be positive"}
	}

	switch t.Kind {
	case KindFuel:
		if t.Fuel == nil {
			return &ErrValidation{Field: "fuel", Message: "required for fuel transactions"}
		}
		if t.Fuel.FuelType == "" {
			return &ErrValidation{Field: "fuel_type", Message: "required"}
		}
		if t.Fuel.FuelVolume.IsNegative() {
			return &ErrValidation{Field: "fuel_volume", Message: "must not be negative"}
		}
		if t.Maintenance != nil {
			return &ErrValidation{Field: "maintenance", Message: "not allowed on fuel transactions"}
		}
	case KindMaintenance:
		if t.Maintenance == nil || t.Maintenance.MaintenanceType == "" {
			return &ErrValidation{Field: "maintenance_type", Message: "required"}
		}
		if t.Fuel != nil {
			return &ErrValidation{Field: "fuel", Message: "not allowed on maintenance transactions"}
		}
	case KindGeneric:
		if t.Fuel != nil || t.Maintenance != nil {
			return &ErrValidation{Field: "kind", Message: "generic transactions carry no fuel or maintenance fields"}
		}
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// UTCOffset returns the offset of t's zone in seconds east of UTC.
func UTCOffset(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

// AtUTCOffset returns t in a fixed zone offset seconds east of UTC. Stores
// keep timestamps in UTC and use it to restore a transaction's recorded offset.
func AtUTCOffset(t time.Time, offset int) time.Time {
	if offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", offset))
}

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	VehicleID string
	DriverID  string
	From      *time.Time
	To        *time.Time
}
