package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/handler"
	"github.com/fleetsight/fleetsight-go/internal/infra/cache"
	"github.com/fleetsight/fleetsight-go/internal/infra/observability"
	"github.com/fleetsight/fleetsight-go/internal/infra/resilience"
	"github.com/fleetsight/fleetsight-go/internal/infra/supabase"
	"github.com/fleetsight/fleetsight-go/internal/service"

	"go.uber.org/zap"
)

// fakePostgREST keeps the transactions table in memory and answers the
// subset of PostgREST the Supabase client uses for it.
type fakePostgREST struct {
	mu             sync.Mutex
	rows           []map[string]any
	historyQueries int
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/rest/v1/vehicles":
		w.Write([]byte(`[]`))
	case r.URL.Path == "/rest/v1/transactions" && r.Method == http.MethodPost:
		f.insert(w, r)
	case r.URL.Path == "/rest/v1/transactions" && r.Method == http.MethodGet:
		f.selectByVehicle(w, r)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakePostgREST) insert(w http.ResponseWriter, r *http.Request) {
	var rows []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	for _, row := range rows {
		for _, existing := range f.rows {
			if existing["transaction_id"] == row["transaction_id"] {
				w.WriteHeader(http.StatusConflict)
				fmt.Fprintf(w, `{"code":"23505","details":"Key (transaction_id)=(%s) already exists."}`, row["transaction_id"])
				return
			}
		}
	}
	for _, row := range rows {
		if _, ok := row["id"]; !ok {
			row["id"] = fmt.Sprintf("row-%d", len(f.rows)+1)
		}
		row["created_at"] = "2024-01-01T00:00:00Z"
		f.rows = append(f.rows, row)
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rows)
}

func (f *fakePostgREST) selectByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle := strings.TrimPrefix(r.URL.Query().Get("vehicle_id"), "eq.")
	if r.URL.Query().Get("order") == "timestamp.desc" {
		f.historyQueries++
	}

	out := []map[string]any{}
	for _, row := range f.rows {
		if vehicle == "" || row["vehicle_id"] == vehicle {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["timestamp"].(string) > out[j]["timestamp"].(string)
	})
	json.NewEncoder(w).Encode(out)
}

func newStack(t *testing.T, backend http.Handler, maxRetries int) (http.Handler, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: maxRetries, InitialBackoff: time.Millisecond, MaxConcurrency: 4}

	store := supabase.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		srv.URL,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker(t.Name(), logger),
		cfg,
		logger,
	)

	vehicleCache := cache.New[*domain.Vehicle](5 * time.Minute)
	t.Cleanup(vehicleCache.Close)

	router := handler.NewRouter(
		service.NewVehicleService(store, vehicleCache, metrics, logger),
		service.NewDriverService(store, metrics, logger),
		service.NewTransactionService(store, resilience.NewBulkhead(cfg.MaxConcurrency), 1000, metrics, logger),
		store,
		nil,
		metrics,
		logger,
	)
	return router, metrics
}

func post(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_FullFlow imports a batch through the API into a Supabase
// backend, then preprocesses a new fuel purchase against the stored history.
func TestIntegration_FullFlow(t *testing.T) {
	backend := &fakePostgREST{}
	router, metrics := newStack(t, backend, 1)

	batch := []map[string]any{
		{"transaction_id": "TRX-1", "timestamp": "2023-05-01T08:00:00Z", "amount": "45.00",
			"transaction_type": "TOLL", "vehicle_id": "VEH-001", "odometer_reading": 49000},
		{"transaction_id": "TRX-2", "timestamp": "2023-05-02T09:30:00Z", "amount": "310.00",
			"transaction_type": "MAINTENANCE", "vehicle_id": "VEH-001", "odometer_reading": 49500,
			"maintenance_type": "oil_change"},
		{"transaction_id": "TRX-3", "timestamp": "2023-05-03T11:00:00Z", "amount": "12.50",
			"transaction_type": "PARKING", "vehicle_id": "VEH-002"},
	}

	rec := post(t, router, "/v1/transactions/batch", batch)
	if rec.Code != http.StatusCreated {
		t.Fatalf("batch: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	if backend.historyQueries != 2 {
		t.Errorf("expected one history query per distinct vehicle (2), got %d", backend.historyQueries)
	}
	if len(backend.rows) != 3 {
		t.Fatalf("expected 3 stored rows, got %d", len(backend.rows))
	}
	if backend.rows[1]["kind"] != "maintenance" {
		t.Errorf("expected maintenance kind to be inferred, got %v", backend.rows[1]["kind"])
	}

	fuel := map[string]any{
		"transaction_id": "TRX-4", "timestamp": "2023-05-12T14:00:00Z", "amount": "80.00",
		"transaction_type": "FUEL", "vehicle_id": "VEH-001", "odometer_reading": 50000,
		"fuel_type": "diesel", "fuel_volume": "40.00", "latitude": 40.7, "longitude": -74.0,
	}
	rec = post(t, router, "/v1/transactions", fuel)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Transaction domain.Transaction `json:"transaction"`
		Processed   map[string]any     `json:"processed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result.Transaction.Kind != domain.KindFuel || result.Transaction.Fuel.FuelVolumeUnit != "liters" {
		t.Errorf("unexpected stored transaction: %+v", result.Transaction)
	}
	p := result.Processed
	if p["days_since_last_transaction"] != float64(10) {
		t.Errorf("expected 10 days since TRX-2, got %v", p["days_since_last_transaction"])
	}
	if p["distance_since_last_transaction"] != float64(500) {
		t.Errorf("expected distance 500, got %v", p["distance_since_last_transaction"])
	}
	if p["location_type"] != "standard" {
		t.Errorf("expected standard location, got %v", p["location_type"])
	}
	if p["is_business_hours"] != true {
		t.Errorf("expected business hours, got %v", p["is_business_hours"])
	}

	rec = post(t, router, "/v1/transactions", fuel)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "TRX-4") {
		t.Errorf("expected the duplicate transaction_id in %s", rec.Body.String())
	}

	snap := metrics.GetProcessingSnapshot()
	if snap.ProcessedTotal != 4 || snap.ProcessedByKind["maintenance"] != 1 {
		t.Errorf("unexpected processing metrics: %+v", snap)
	}
	if snap.HistoryFetchesSaved != 1 {
		t.Errorf("expected 1 saved history fetch, got %d", snap.HistoryFetchesSaved)
	}
}

// TestIntegration_StoreUnavailable checks that a failing backend surfaces as
// 502 and is reported by the health endpoint.
func TestIntegration_StoreUnavailable(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	router, metrics := newStack(t, backend, 0)

	rec := post(t, router, "/v1/transactions", map[string]any{
		"transaction_id": "TRX-1", "timestamp": "2023-05-01T08:00:00Z", "amount": "45.00",
		"transaction_type": "TOLL", "vehicle_id": "VEH-001",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	if metrics.GetProcessingSnapshot().ExternalErrors == 0 {
		t.Error("expected the store failure to be counted")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("expected degraded, got %s", health.Status)
	}
}
