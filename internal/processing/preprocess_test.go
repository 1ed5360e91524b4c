package processing_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/processing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func historyEntry(vehicleID string, ts time.Time, odometer int64) domain.Transaction {
	tx := domain.NewGenericTransaction("H-"+ts.Format(time.RFC3339), ts, dec("60.00"), "FUEL")
	tx.VehicleID = ptr(vehicleID)
	tx.OdometerReading = ptr(odometer)
	return tx
}

func TestExtractHistoryFeatures_DaysDistanceAndConsumption(t *testing.T) {
	tx := fuelTx("80.00", "40")
	tx.OdometerReading = ptr(int64(50000))
	history := []domain.Transaction{historyEntry("VEH-001", monday.AddDate(0, 0, -10), 49500)}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if got.DaysSinceLastTransaction == nil || *got.DaysSinceLastTransaction != 10 {
		t.Fatalf("DaysSinceLastTransaction = %v, want 10", got.DaysSinceLastTransaction)
	}
	if got.DistanceSinceLastTransaction == nil || *got.DistanceSinceLastTransaction != 500 {
		t.Fatalf("DistanceSinceLastTransaction = %v, want 500", got.DistanceSinceLastTransaction)
	}
	if got.AvgConsumptionRate == nil || !got.AvgConsumptionRate.Equal(decimal.NewFromInt(8)) {
		t.Errorf("AvgConsumptionRate = %v, want 8", got.AvgConsumptionRate)
	}
}

func TestExtractHistoryFeatures_DaysTruncate(t *testing.T) {
	tx := genericTx()
	history := []domain.Transaction{historyEntry("VEH-001", monday.Add(-(10*24*time.Hour + 23*time.Hour)), 1)}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if got.DaysSinceLastTransaction == nil || *got.DaysSinceLastTransaction != 10 {
		t.Errorf("DaysSinceLastTransaction = %v, want 10", got.DaysSinceLastTransaction)
	}
}

func TestExtractHistoryFeatures_SameDay(t *testing.T) {
	tx := genericTx()
	history := []domain.Transaction{historyEntry("VEH-001", monday.Add(-2*time.Hour), 1)}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if got.DaysSinceLastTransaction == nil || *got.DaysSinceLastTransaction != 0 {
		t.Errorf("DaysSinceLastTransaction = %v, want 0", got.DaysSinceLastTransaction)
	}
}

func TestExtractHistoryFeatures_PicksMostRecentFromUnsortedHistory(t *testing.T) {
	tx := genericTx()
	tx.OdometerReading = ptr(int64(10000))
	history := []domain.Transaction{
		historyEntry("VEH-001", monday.AddDate(0, 0, -30), 7000),
		historyEntry("VEH-001", monday.AddDate(0, 0, -3), 9700),
		historyEntry("VEH-001", monday.AddDate(0, 0, -12), 8800),
	}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if *got.DaysSinceLastTransaction != 3 {
		t.Errorf("DaysSinceLastTransaction = %d, want 3", *got.DaysSinceLastTransaction)
	}
	if *got.DistanceSinceLastTransaction != 300 {
		t.Errorf("DistanceSinceLastTransaction = %d, want 300", *got.DistanceSinceLastTransaction)
	}
	if got.AvgConsumptionRate != nil {
		t.Error("expected avg_consumption_rate absent for non-fuel transaction")
	}
}

func TestExtractHistoryFeatures_TieKeepsFirstEntry(t *testing.T) {
	tx := genericTx()
	tx.OdometerReading = ptr(int64(10000))
	ts := monday.AddDate(0, 0, -1)
	history := []domain.Transaction{
		historyEntry("VEH-001", ts, 9000),
		historyEntry("VEH-001", ts, 9900),
	}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if *got.DistanceSinceLastTransaction != 1000 {
		t.Errorf("DistanceSinceLastTransaction = %d, want 1000", *got.DistanceSinceLastTransaction)
	}
}

func TestExtractHistoryFeatures_IgnoresOtherVehiclesAndLaterEntries(t *testing.T) {
	tx := fuelTx("80.00", "40")
	tx.OdometerReading = ptr(int64(50000))
	history := []domain.Transaction{
		historyEntry("VEH-999", monday.AddDate(0, 0, -1), 49990),
		historyEntry("VEH-001", monday, 49999),                    // same instant
		historyEntry("VEH-001", monday.AddDate(0, 0, 2), 50100),   // future
		historyEntry("VEH-001", monday.AddDate(0, 0, -10), 49500), // the only eligible one
	}
	unvehicled := domain.NewGenericTransaction("H-none", monday.AddDate(0, 0, -1), dec("1"), "X")
	history = append(history, unvehicled)

	got := processing.ExtractHistoryFeatures(&tx, history)
	if *got.DaysSinceLastTransaction != 10 || *got.DistanceSinceLastTransaction != 500 {
		t.Errorf("got days=%d distance=%d, want 10 and 500",
			*got.DaysSinceLastTransaction, *got.DistanceSinceLastTransaction)
	}
}

func TestExtractHistoryFeatures_NoEligibleEntries(t *testing.T) {
	tx := genericTx()
	history := []domain.Transaction{
		historyEntry("VEH-999", monday.AddDate(0, 0, -1), 1),
		historyEntry("VEH-001", monday, 1),
	}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if got != (processing.HistoryFeatures{}) {
		t.Errorf("expected all history fields absent, got %+v", got)
	}
}

func TestExtractHistoryFeatures_Preconditions(t *testing.T) {
	history := []domain.Transaction{historyEntry("VEH-001", monday.AddDate(0, 0, -1), 1)}

	noVehicle := genericTx()
	noVehicle.VehicleID = nil
	if got := processing.ExtractHistoryFeatures(&noVehicle, history); got != (processing.HistoryFeatures{}) {
		t.Errorf("no vehicle: expected absent, got %+v", got)
	}

	tx := genericTx()
	if got := processing.ExtractHistoryFeatures(&tx, nil); got != (processing.HistoryFeatures{}) {
		t.Errorf("nil history: expected absent, got %+v", got)
	}
}

func TestExtractHistoryFeatures_OdometerRollbackClampsToZero(t *testing.T) {
	tx := fuelTx("80.00", "40")
	tx.OdometerReading = ptr(int64(49000))
	history := []domain.Transaction{historyEntry("VEH-001", monday.AddDate(0, 0, -5), 49500)}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if got.DistanceSinceLastTransaction == nil || *got.DistanceSinceLastTransaction != 0 {
		t.Fatalf("DistanceSinceLastTransaction = %v, want 0", got.DistanceSinceLastTransaction)
	}
	if got.AvgConsumptionRate != nil {
		t.Errorf("expected avg_consumption_rate absent at zero distance, got %s", got.AvgConsumptionRate)
	}
}

func TestExtractHistoryFeatures_MissingOdometer(t *testing.T) {
	tx := fuelTx("80.00", "40")
	history := []domain.Transaction{historyEntry("VEH-001", monday.AddDate(0, 0, -5), 49500)}

	got := processing.ExtractHistoryFeatures(&tx, history)
	if got.DaysSinceLastTransaction == nil || *got.DaysSinceLastTransaction != 5 {
		t.Fatalf("DaysSinceLastTransaction = %v, want 5", got.DaysSinceLastTransaction)
	}
	if got.DistanceSinceLastTransaction != nil || got.AvgConsumptionRate != nil {
		t.Errorf("expected distance and consumption absent, got %+v", got)
	}
}

func TestPreprocess_GenericTransaction(t *testing.T) {
	id := uuid.New()
	tx := genericTx()
	tx.UUID = &id
	tx.Latitude, tx.Longitude = ptr(40.7128), ptr(-74.0060)

	got := processing.Preprocess(tx, nil)

	if got.TransactionID != "TRX-1" || got.TransactionType != "STANDARD" {
		t.Errorf("base fields not copied: %+v", got)
	}
	if got.OriginalUUID == nil || *got.OriginalUUID != id {
		t.Errorf("OriginalUUID = %v, want %s", got.OriginalUUID, id)
	}
	if !got.Amount.Equal(dec("100")) {
		t.Errorf("Amount = %s, want 100", got.Amount)
	}
	if got.HourOfDay != 14 || got.DayOfWeek != 0 || got.IsWeekend || !got.IsBusinessHours {
		t.Errorf("unexpected time features: %+v", got)
	}
	if !got.HasLocation || *got.LocationType != processing.LocationStandard {
		t.Errorf("unexpected location features: %+v", got)
	}
	if got.FuelType != nil || got.FuelVolume != nil || got.PricePerUnit != nil || got.MaintenanceType != nil {
		t.Errorf("expected variant fields absent: %+v", got)
	}
	if got.DaysSinceLastTransaction != nil || got.DistanceSinceLastTransaction != nil || got.AvgConsumptionRate != nil {
		t.Errorf("expected history fields absent without history: %+v", got)
	}
}

func TestPreprocess_FuelWithHistory(t *testing.T) {
	tx := fuelTx("80.00", "40.00")
	tx.OdometerReading = ptr(int64(50000))
	history := []domain.Transaction{historyEntry("VEH-001", monday.AddDate(0, 0, -10), 49500)}

	got := processing.Preprocess(tx, history)

	if !got.PricePerUnit.Equal(decimal.NewFromInt(2)) {
		t.Errorf("PricePerUnit = %s, want 2", got.PricePerUnit)
	}
	if *got.DaysSinceLastTransaction != 10 || *got.DistanceSinceLastTransaction != 500 {
		t.Errorf("unexpected history features: %+v", got)
	}
	if !got.AvgConsumptionRate.Equal(decimal.NewFromInt(8)) {
		t.Errorf("AvgConsumptionRate = %s, want 8", got.AvgConsumptionRate)
	}
}

func TestPreprocess_MaintenanceTransaction(t *testing.T) {
	got := processing.Preprocess(maintenanceTx(), nil)
	if got.MaintenanceType == nil || *got.MaintenanceType != "oil_change" {
		t.Errorf("MaintenanceType = %v, want oil_change", got.MaintenanceType)
	}
	if got.FuelType != nil {
		t.Error("expected fuel_type absent")
	}
}

func TestPreprocess_Idempotent(t *testing.T) {
	tx := fuelTx("73.19", "41.3")
	tx.OdometerReading = ptr(int64(50210))
	tx.Latitude, tx.Longitude = ptr(64.1), ptr(-21.9)
	history := []domain.Transaction{
		historyEntry("VEH-001", monday.AddDate(0, 0, -4), 49800),
		historyEntry("VEH-002", monday.AddDate(0, 0, -1), 12000),
	}

	first := processing.Preprocess(tx, history)
	second := processing.Preprocess(tx, history)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("outputs differ:\n%+v\n%+v", first, second)
	}
}

func TestPreprocess_DoesNotAliasInput(t *testing.T) {
	tx := genericTx()
	tx.Latitude, tx.Longitude = ptr(10.0), ptr(20.0)

	got := processing.Preprocess(tx, nil)
	*tx.VehicleID = "CHANGED"
	*tx.Latitude = 80

	if *got.VehicleID != "VEH-001" || *got.Latitude != 10.0 {
		t.Errorf("output changed with input: vehicle=%s lat=%v", *got.VehicleID, *got.Latitude)
	}
}

func TestPreprocess_AbsentFieldsAreOmittedFromJSON(t *testing.T) {
	tx := genericTx()
	got := processing.Preprocess(tx, nil)

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, k := range []string{
		"original_uuid", "latitude", "longitude", "location_type",
		"fuel_type", "fuel_volume", "price_per_unit", "maintenance_type",
		"days_since_last_transaction", "distance_since_last_transaction", "avg_consumption_rate",
	} {
		if _, ok := fields[k]; ok {
			t.Errorf("expected %q absent, got %v", k, fields[k])
		}
	}
	if fields["has_location"] != false {
		t.Errorf("has_location = %v, want false", fields["has_location"])
	}
}

func TestProcessedTransaction_Validate(t *testing.T) {
	valid := processing.Preprocess(genericTx(), nil)
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	bad := valid
	bad.HourOfDay = 24
	bad.IsBusinessHours = false

	var schemaErr *processing.SchemaError
	if err := bad.Validate(); !errors.As(err, &schemaErr) || schemaErr.Field != "hour_of_day" {
		t.Errorf("expected hour_of_day schema error, got %v", err)
	}

	orphan := valid
	lt := processing.LocationRemote
	orphan.LocationType = &lt
	if err := orphan.Validate(); !errors.As(err, &schemaErr) || schemaErr.Field != "has_location" {
		t.Errorf("expected has_location schema error, got %v", err)
	}
}
