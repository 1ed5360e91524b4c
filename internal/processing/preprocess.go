package processing

import (
	"github.com/fleetsight/fleetsight-go/internal/domain"

	"github.com/google/uuid"
)

// Preprocess turns a validated transaction into a ProcessedTransaction.
//
// history is optional; when it is non-empty and tx has a vehicle, the
// history-relative features are computed from it. Preprocess never returns an
// error for a transaction that passed domain.Transaction.Validate. It panics
// with a *SchemaError if the assembled record violates its schema, which
// means one of the extractors is broken.
func Preprocess(tx domain.Transaction, history []domain.Transaction) ProcessedTransaction {
	p := ProcessedTransaction{
		TransactionID:   tx.TransactionID,
		OriginalUUID:    copyUUID(tx.UUID),
		Timestamp:       tx.Timestamp,
		Amount:          tx.Amount,
		TransactionType: tx.TransactionType,
		VehicleID:       copyString(tx.VehicleID),
		DriverID:        copyString(tx.DriverID),
	}

	tf := ExtractTimeFeatures(tx.Timestamp)
	p.HourOfDay = tf.HourOfDay
	p.DayOfWeek = tf.DayOfWeek
	p.IsWeekend = tf.IsWeekend
	p.IsBusinessHours = tf.IsBusinessHours

	lf := ExtractLocationFeatures(&tx)
	p.HasLocation = lf.HasLocation
	p.Latitude = lf.Latitude
	p.Longitude = lf.Longitude
	p.LocationType = lf.LocationType

	ff := ExtractFuelFeatures(&tx)
	p.FuelType = ff.FuelType
	p.FuelVolume = ff.FuelVolume
	p.PricePerUnit = ff.PricePerUnit

	p.MaintenanceType = ExtractMaintenanceFeatures(&tx).MaintenanceType

	if len(history) > 0 {
		hf := ExtractHistoryFeatures(&tx, history)
		p.DaysSinceLastTransaction = hf.DaysSinceLastTransaction
		p.DistanceSinceLastTransaction = hf.DistanceSinceLastTransaction
		p.AvgConsumptionRate = hf.AvgConsumptionRate
	}

	p.mustValidate()
	return p
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
