package processing

import (
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// HistoryFeatures compare a transaction with the previous one recorded for
// the same vehicle. All fields are nil when there is no previous transaction.
type HistoryFeatures struct {
	DaysSinceLastTransaction     *int
	DistanceSinceLastTransaction *int64
	AvgConsumptionRate           *decimal.Decimal // volume per 100 distance units
}

// ExtractHistoryFeatures derives the history-relative features of tx.
// history may hold any vehicles in any order; only entries of tx's vehicle
// strictly earlier than tx are considered.
func ExtractHistoryFeatures(tx *domain.Transaction, history []domain.Transaction) HistoryFeatures {
	if len(history) == 0 || !tx.HasVehicle() {
		return HistoryFeatures{}
	}

	last := lastBefore(tx, history)
	if last == nil {
		return HistoryFeatures{}
	}

	days := int(tx.Timestamp.Sub(last.Timestamp) / (24 * time.Hour))
	out := HistoryFeatures{DaysSinceLastTransaction: &days}

	if tx.OdometerReading == nil || last.OdometerReading == nil {
		return out
	}

	distance := *tx.OdometerReading - *last.OdometerReading
	if distance < 0 {
		distance = 0
	}
	out.DistanceSinceLastTransaction = &distance

	if tx.Kind == domain.KindFuel && tx.Fuel != nil && !tx.Fuel.FuelVolume.IsZero() && distance > 0 {
		rate := tx.Fuel.FuelVolume.Mul(hundred).Div(decimal.NewFromInt(distance))
		out.AvgConsumptionRate = &rate
	}
	return out
}

// lastBefore returns the most recent entry of tx's vehicle with a timestamp
// strictly before tx's. Entries at or after tx are excluded so that a batch
// of same-timestamp imports never sees itself. On equal timestamps the
// earliest entry in history wins.
func lastBefore(tx *domain.Transaction, history []domain.Transaction) *domain.Transaction {
	var last *domain.Transaction
	for i := range history {
		h := &history[i]
		if !h.HasVehicle() || *h.VehicleID != *tx.VehicleID {
			continue
		}
		if !h.Timestamp.Before(tx.Timestamp) {
			continue
		}
		if last == nil || h.Timestamp.After(last.Timestamp) {
			last = h
		}
	}
	return last
}
