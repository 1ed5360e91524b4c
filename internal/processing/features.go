package processing

import (
	"math"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	businessHoursStart = 8
	businessHoursEnd   = 18 // exclusive

	// Placeholder heuristic: a single latitude-magnitude threshold. Replace it
	// with a real geospatial classification rather than extending it.
	remoteLatitudeThreshold = 60.0
)

// ============================================================
// Time
// ============================================================

// TimeFeatures are the calendar features of a timestamp.
type TimeFeatures struct {
	HourOfDay       int
	DayOfWeek       int // Monday = 0 ... Sunday = 6
	IsWeekend       bool
	IsBusinessHours bool
}

// ExtractTimeFeatures reads the hour and weekday in the timestamp's own
// location; no timezone conversion happens here.
func ExtractTimeFeatures(ts time.Time) TimeFeatures {
	hour := ts.Hour()
	// time.Weekday starts the week on Sunday = 0.
	dow := (int(ts.Weekday()) + 6) % 7

	return TimeFeatures{
		HourOfDay:       hour,
		DayOfWeek:       dow,
		IsWeekend:       dow >= 5,
		IsBusinessHours: hour >= businessHoursStart && hour < businessHoursEnd,
	}
}

// ============================================================
// Location
// ============================================================

// LocationFeatures describe where a transaction happened. Latitude,
// Longitude and LocationType are nil unless HasLocation is true.
type LocationFeatures struct {
	HasLocation  bool
	Latitude     *float64
	Longitude    *float64
	LocationType *LocationType
}

func ExtractLocationFeatures(tx *domain.Transaction) LocationFeatures {
	if tx.Latitude == nil || tx.Longitude == nil {
		return LocationFeatures{}
	}

	lat, lon := *tx.Latitude, *tx.Longitude
	lt := LocationStandard
	if math.Abs(lat) > remoteLatitudeThreshold {
		lt = LocationRemote
	}

	return LocationFeatures{
		HasLocation:  true,
		Latitude:     &lat,
		Longitude:    &lon,
		LocationType: &lt,
	}
}

// ============================================================
// Fuel
// ============================================================

// FuelFeatures are only populated for fuel transactions with a non-zero volume.
type FuelFeatures struct {
	FuelType     *string
	FuelVolume   *decimal.Decimal
	PricePerUnit *decimal.Decimal
}

func ExtractFuelFeatures(tx *domain.Transaction) FuelFeatures {
	if tx.Kind != domain.KindFuel || tx.Fuel == nil || tx.Fuel.FuelVolume.IsZero() {
		return FuelFeatures{}
	}

	fuelType := tx.Fuel.FuelType
	volume := tx.Fuel.FuelVolume
	return FuelFeatures{
		FuelType:     &fuelType,
		FuelVolume:   &volume,
		PricePerUnit: divide(tx.Amount, volume),
	}
}

// divide returns a / b, or nil when the quotient is undefined.
func divide(a, b decimal.Decimal) *decimal.Decimal {
	if a.IsZero() || b.IsZero() {
		return nil
	}
	q := a.Div(b)
	return &q
}

// ============================================================
// Maintenance
// ============================================================

// MaintenanceFeatures are only populated for maintenance transactions.
type MaintenanceFeatures struct {
	MaintenanceType *string
}

func ExtractMaintenanceFeatures(tx *domain.Transaction) MaintenanceFeatures {
	if tx.Kind != domain.KindMaintenance || tx.Maintenance == nil {
		return MaintenanceFeatures{}
	}
	mt := tx.Maintenance.MaintenanceType
	return MaintenanceFeatures{MaintenanceType: &mt}
}
