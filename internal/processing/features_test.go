package processing_test

import (
	"testing"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/processing"

	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// 2023-05-15 is a Monday.
var monday = time.Date(2023, 5, 15, 14, 30, 0, 0, time.UTC)

func genericTx() domain.Transaction {
	tx := domain.NewGenericTransaction("TRX-1", monday, dec("100.00"), "STANDARD")
	tx.VehicleID = ptr("VEH-001")
	tx.DriverID = ptr("DRV-001")
	return tx
}

func fuelTx(amount, volume string) domain.Transaction {
	tx := domain.NewFuelTransaction("TRX-F", monday, dec(amount), "FUEL", domain.FuelDetails{
		FuelType:       "diesel",
		FuelVolume:     dec(volume),
		FuelVolumeUnit: "liters",
	})
	tx.VehicleID = ptr("VEH-001")
	return tx
}

func maintenanceTx() domain.Transaction {
	tx := domain.NewMaintenanceTransaction("TRX-M", monday, dec("250.00"), "MAINTENANCE", domain.MaintenanceDetails{
		MaintenanceType: "oil_change",
	})
	tx.VehicleID = ptr("VEH-001")
	return tx
}

func TestExtractTimeFeatures(t *testing.T) {
	tests := []struct {
		name         string
		ts           time.Time
		wantHour     int
		wantDow      int
		wantWeekend  bool
		wantBusiness bool
	}{
		{"tuesday afternoon", time.Date(2023, 5, 2, 14, 0, 0, 0, time.UTC), 14, 1, false, true},
		{"monday 8am opens business hours", time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC), 8, 0, false, true},
		{"just before 8am", time.Date(2023, 5, 1, 7, 59, 59, 0, time.UTC), 7, 0, false, false},
		{"6pm closes business hours", time.Date(2023, 5, 3, 18, 0, 0, 0, time.UTC), 18, 2, false, false},
		{"5:59pm", time.Date(2023, 5, 3, 17, 59, 0, 0, time.UTC), 17, 2, false, true},
		{"midnight friday", time.Date(2023, 5, 5, 0, 0, 0, 0, time.UTC), 0, 4, false, false},
		{"saturday", time.Date(2023, 5, 6, 10, 0, 0, 0, time.UTC), 10, 5, true, true},
		{"sunday late", time.Date(2023, 5, 7, 23, 0, 0, 0, time.UTC), 23, 6, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := processing.ExtractTimeFeatures(tt.ts)
			if got.HourOfDay != tt.wantHour {
				t.Errorf("HourOfDay = %d, want %d", got.HourOfDay, tt.wantHour)
			}
			if got.DayOfWeek != tt.wantDow {
				t.Errorf("DayOfWeek = %d, want %d", got.DayOfWeek, tt.wantDow)
			}
			if got.IsWeekend != tt.wantWeekend {
				t.Errorf("IsWeekend = %v, want %v", got.IsWeekend, tt.wantWeekend)
			}
			if got.IsBusinessHours != tt.wantBusiness {
				t.Errorf("IsBusinessHours = %v, want %v", got.IsBusinessHours, tt.wantBusiness)
			}
		})
	}
}

func TestExtractTimeFeatures_UsesTimestampLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	// 03:00 UTC on Saturday is 22:00 on Friday in UTC-5.
	ts := time.Date(2023, 5, 6, 3, 0, 0, 0, time.UTC).In(loc)

	got := processing.ExtractTimeFeatures(ts)
	if got.HourOfDay != 22 || got.DayOfWeek != 4 {
		t.Errorf("got hour=%d dow=%d, want hour=22 dow=4", got.HourOfDay, got.DayOfWeek)
	}
}

func TestExtractTimeFeatures_WeekendAndBusinessInvariants(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*14; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		got := processing.ExtractTimeFeatures(ts)
		if got.IsWeekend != (got.DayOfWeek == 5 || got.DayOfWeek == 6) {
			t.Fatalf("%s: IsWeekend=%v with DayOfWeek=%d", ts, got.IsWeekend, got.DayOfWeek)
		}
		if got.IsBusinessHours != (got.HourOfDay >= 8 && got.HourOfDay < 18) {
			t.Fatalf("%s: IsBusinessHours=%v with HourOfDay=%d", ts, got.IsBusinessHours, got.HourOfDay)
		}
	}
}

func TestExtractLocationFeatures(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon *float64
		wantHas  bool
		wantType processing.LocationType
	}{
		{"no coordinates", nil, nil, false, ""},
		{"latitude only", ptr(40.7128), nil, false, ""},
		{"longitude only", nil, ptr(-74.0060), false, ""},
		{"new york", ptr(40.7128), ptr(-74.0060), true, processing.LocationStandard},
		{"northern remote", ptr(65.0), ptr(25.0), true, processing.LocationRemote},
		{"southern remote", ptr(-61.5), ptr(-58.0), true, processing.LocationRemote},
		{"threshold is standard", ptr(60.0), ptr(10.0), true, processing.LocationStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := genericTx()
			tx.Latitude, tx.Longitude = tt.lat, tt.lon

			got := processing.ExtractLocationFeatures(&tx)
			if got.HasLocation != tt.wantHas {
				t.Fatalf("HasLocation = %v, want %v", got.HasLocation, tt.wantHas)
			}
			if !tt.wantHas {
				if got.Latitude != nil || got.Longitude != nil || got.LocationType != nil {
					t.Errorf("expected coordinates and type absent, got %+v", got)
				}
				return
			}
			if *got.LocationType != tt.wantType {
				t.Errorf("LocationType = %q, want %q", *got.LocationType, tt.wantType)
			}
			if *got.Latitude != *tt.lat || *got.Longitude != *tt.lon {
				t.Errorf("coordinates not echoed: %v,%v", *got.Latitude, *got.Longitude)
			}
		})
	}
}

func TestExtractFuelFeatures_PricePerUnitIsExact(t *testing.T) {
	tx := fuelTx("80.00", "40.00")

	got := processing.ExtractFuelFeatures(&tx)
	if got.PricePerUnit == nil {
		t.Fatal("expected price_per_unit")
	}
	if !got.PricePerUnit.Equal(decimal.NewFromInt(2)) {
		t.Errorf("PricePerUnit = %s, want 2", got.PricePerUnit)
	}
	if *got.FuelType != "diesel" {
		t.Errorf("FuelType = %q, want diesel", *got.FuelType)
	}
	if !got.FuelVolume.Equal(dec("40")) {
		t.Errorf("FuelVolume = %s, want 40", got.FuelVolume)
	}
}

func TestExtractFuelFeatures_ZeroVolume(t *testing.T) {
	tx := fuelTx("80.00", "0")

	got := processing.ExtractFuelFeatures(&tx)
	if got.FuelType != nil || got.FuelVolume != nil || got.PricePerUnit != nil {
		t.Errorf("expected all fuel fields absent, got %+v", got)
	}
}

func TestExtractFuelFeatures_NonFuelVariants(t *testing.T) {
	for _, tx := range []domain.Transaction{genericTx(), maintenanceTx()} {
		got := processing.ExtractFuelFeatures(&tx)
		if got.FuelType != nil || got.FuelVolume != nil || got.PricePerUnit != nil {
			t.Errorf("%s: expected all fuel fields absent, got %+v", tx.Kind, got)
		}
	}
}

func TestExtractMaintenanceFeatures(t *testing.T) {
	m := maintenanceTx()
	got := processing.ExtractMaintenanceFeatures(&m)
	if got.MaintenanceType == nil || *got.MaintenanceType != "oil_change" {
		t.Errorf("MaintenanceType = %v, want oil_change", got.MaintenanceType)
	}

	for _, tx := range []domain.Transaction{genericTx(), fuelTx("10", "5")} {
		if got := processing.ExtractMaintenanceFeatures(&tx); got.MaintenanceType != nil {
			t.Errorf("%s: expected maintenance_type absent, got %q", tx.Kind, *got.MaintenanceType)
		}
	}
}

func TestCleanTextFields(t *testing.T) {
	tx := genericTx()
	tx.MerchantName = ptr("  Shell   STATION\n#42 ")
	tx.MerchantCategory = ptr("FUEL")

	got := processing.CleanTextFields(&tx)
	if got[processing.FieldMerchantName] != "shell station #42" {
		t.Errorf("merchant_name = %q", got[processing.FieldMerchantName])
	}
	if got[processing.FieldMerchantCategory] != "fuel" {
		t.Errorf("merchant_category = %q", got[processing.FieldMerchantCategory])
	}
	if _, ok := got[processing.FieldNotes]; ok {
		t.Error("expected notes absent")
	}
}

func TestNormalizeText(t *testing.T) {
	in := map[string]any{
		"notes":         12345,
		"merchant_name": "\tACME\t\tFuels  ",
		"empty":         "",
		"missing":       nil,
	}

	got := processing.NormalizeText(in)
	if got["notes"] != 12345 {
		t.Errorf("non-string value changed: %v", got["notes"])
	}
	if got["merchant_name"] != "acme fuels" {
		t.Errorf("merchant_name = %q", got["merchant_name"])
	}
	if _, ok := got["empty"]; ok {
		t.Error("expected empty string dropped")
	}
	if _, ok := got["missing"]; ok {
		t.Error("expected nil dropped")
	}
	if in["merchant_name"] != "\tACME\t\tFuels  " {
		t.Error("input map was modified")
	}
}
