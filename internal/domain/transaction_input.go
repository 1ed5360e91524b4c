package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionInput is the flat wire form of a transaction, as accepted by
// the API and the CLI. Variant fields sit at the top level; Kind may be left
// empty, in which case it is inferred from them.
type TransactionInput struct {
	Kind            TransactionKind `json:"kind,omitempty"`
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

	FuelType       *string          `json:"fuel_type,omitempty"`
	FuelVolume     *decimal.Decimal `json:"fuel_volume,omitempty"`
	FuelVolumeUnit *string          `json:"fuel_volume_unit,omitempty"`

	MaintenanceType *string `json:"maintenance_type,omitempty"`
}

func (in *TransactionInput) kind() TransactionKind {
	switch {
	case in.Kind != "":
		return in.Kind
	case in.FuelType != nil || in.FuelVolume != nil:
		return KindFuel
	case in.MaintenanceType != nil:
		return KindMaintenance
	}
	return KindGeneric
}

// ToTransaction builds the tagged transaction and validates it.
func (in *TransactionInput) ToTransaction() (Transaction, error) {
	var tx Transaction
	switch kind := in.kind(); kind {
	case KindFuel:
		fuel := FuelDetails{FuelVolumeUnit: "liters"}
		if in.FuelType != nil {
			fuel.FuelType = *in.FuelType
		}
		if in.FuelVolume == nil {
			return Transaction{}, &ErrValidation{Field: "fuel_volume", Message: "required for fuel transactions"}
		}
		fuel.FuelVolume = *in.FuelVolume
		if in.FuelVolumeUnit != nil {
			fuel.FuelVolumeUnit = *in.FuelVolumeUnit
		}
		tx = NewFuelTransaction(in.TransactionID, in.Timestamp, in.Amount, in.TransactionType, fuel)
	case KindMaintenance:
		m := MaintenanceDetails{}
		if in.MaintenanceType != nil {
			m.MaintenanceType = *in.MaintenanceType
		}
		tx = NewMaintenanceTransaction(in.TransactionID, in.Timestamp, in.Amount, in.TransactionType, m)
	case KindGeneric:
		if in.FuelType != nil || in.FuelVolume != nil || in.MaintenanceType != nil {
			return Transaction{}, &ErrValidation{Field: "kind", Message: "generic transactions carry no fuel or maintenance fields"}
		}
		tx = NewGenericTransaction(in.TransactionID, in.Timestamp, in.Amount, in.TransactionType)
	default:
		tx = Transaction{Kind: kind}
	}

	tx.UUID = in.UUID
	tx.Currency = in.Currency
	tx.VehicleID = in.VehicleID
	tx.DriverID = in.DriverID
	tx.Latitude = in.Latitude
	tx.Longitude = in.Longitude
	tx.MerchantName = in.MerchantName
	tx.MerchantCategory = in.MerchantCategory
	tx.Notes = in.Notes
	tx.OdometerReading = in.OdometerReading

	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}
