// Package processing derives a normalized, feature-enriched record from a raw
// fleet transaction and the prior transactions of its vehicle. The output is
// the input of anomaly scoring; nothing here scores, persists, or logs.
//
// Every function in this package is pure: it reads only its arguments and
// allocates its own result, so callers may invoke it from any number of
// goroutines without locking.
package processing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocationType is the coarse location bucket of a transaction.
type LocationType string

const (
	LocationStandard LocationType = "standard"
	LocationRemote   LocationType = "remote"
)

// ProcessedTransaction is the flat, fully-typed result of Preprocess.
//
// Optional fields are nil (and omitted from JSON) whenever their
// precondition does not hold. A nil field and a zero field mean different
// things to downstream scoring, so never fill one with a default.
type ProcessedTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	OriginalUUID    *uuid.UUID      `json:"original_uuid,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	VehicleID       *string         `json:"vehicle_id"`
	DriverID        *string         `json:"driver_id"`

	HourOfDay       int  `json:"hour_of_day"`
	DayOfWeek       int  `json:"day_of_week"` // Monday = 0
	IsWeekend       bool `json:"is_weekend"`
	IsBusinessHours bool `json:"is_business_hours"`

	HasLocation  bool          `json:"has_location"`
	Latitude     *float64      `json:"latitude,omitempty"`
	Longitude    *float64      `json:"longitude,omitempty"`
	LocationType *LocationType `json:"location_type,omitempty"`

	FuelType     *string          `json:"fuel_type,omitempty"`
	FuelVolume   *decimal.Decimal `json:"fuel_volume,omitempty"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`

	MaintenanceType *string `json:"maintenance_type,omitempty"`

	DaysSinceLastTransaction     *int             `json:"days_since_last_transaction,omitempty"`
	DistanceSinceLastTransaction *int64           `json:"distance_since_last_transaction,omitempty"`
	AvgConsumptionRate           *decimal.Decimal `json:"avg_consumption_rate,omitempty"`
}

// SchemaError describes a ProcessedTransaction that violates its own schema.
// It is only ever raised as a panic value: it means an extractor is wrong,
// not that the input was bad.
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("processed transaction schema violation on '%s': %s", e.Field, e.Message)
}

// Validate checks the record against the output schema and returns the first
// violation found.
func (p *ProcessedTransaction) Validate() error {
	switch {
	case p.TransactionID == "":
		return &SchemaError{Field: "transaction_id", Message: "required"}
	case p.Timestamp.IsZero():
		return &SchemaError{Field: "timestamp", Message: "required"}
	case p.HourOfDay < 0 || p.HourOfDay > 23:
		return &SchemaError{Field: "hour_of_day", Message: fmt.Sprintf("out of range: %d", p.HourOfDay)}
	case p.DayOfWeek < 0 || p.DayOfWeek > 6:
		return &SchemaError{Field: "day_of_week", Message: fmt.Sprintf("out of range: %d", p.DayOfWeek)}
	case p.IsWeekend != (p.DayOfWeek >= 5):
		return &SchemaError{Field: "is_weekend", Message: "inconsistent with day_of_week"}
	case p.IsBusinessHours != (p.HourOfDay >= businessHoursStart && p.HourOfDay < businessHoursEnd):
		return &SchemaError{Field: "is_business_hours", Message: "inconsistent with hour_of_day"}
	}

	if p.HasLocation {
		if p.Latitude == nil || p.Longitude == nil || p.LocationType == nil {
			return &SchemaError{Field: "has_location", Message: "location present but coordinates or type missing"}
		}
		if *p.LocationType != LocationStandard && *p.LocationType != LocationRemote {
			return &SchemaError{Field: "location_type", Message: fmt.Sprintf("unknown value '%s'", *p.LocationType)}
		}
	} else if p.Latitude != nil || p.Longitude != nil || p.LocationType != nil {
		return &SchemaError{Field: "has_location", Message: "location absent but coordinates or type set"}
	}

	if p.PricePerUnit != nil && p.FuelVolume == nil {
		return &SchemaError{Field: "price_per_unit", Message: "set without fuel_volume"}
	}
	if p.DaysSinceLastTransaction != nil && *p.DaysSinceLastTransaction < 0 {
		return &SchemaError{Field: "days_since_last_transaction", Message: "negative"}
	}
	if p.DistanceSinceLastTransaction != nil && *p.DistanceSinceLastTransaction < 0 {
		return &SchemaError{Field: "distance_since_last_transaction", Message: "negative"}
	}
	if p.DistanceSinceLastTransaction != nil && p.DaysSinceLastTransaction == nil {
		return &SchemaError{Field: "distance_since_last_transaction", Message: "set without a last transaction"}
	}
	if p.AvgConsumptionRate != nil && (p.FuelVolume == nil || p.DistanceSinceLastTransaction == nil || *p.DistanceSinceLastTransaction <= 0) {
		return &SchemaError{Field: "avg_consumption_rate", Message: "set without fuel volume and positive distance"}
	}
	return nil
}

// mustValidate panics on a schema violation.
func (p *ProcessedTransaction) mustValidate() {
	if err := p.Validate(); err != nil {
		panic(err)
	}
}
