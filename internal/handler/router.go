package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/infra/observability"
	"github.com/fleetsight/fleetsight-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger is the storage health probe used by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
// A nil verifier leaves /v1 open.
func NewRouter(
	vehicleSvc *service.VehicleService,
	driverSvc *service.DriverService,
	txSvc *service.TransactionService,
	store Pinger,
	verifier *service.TokenVerifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if verifier != nil {
			r.Use(BearerAuthMiddleware(verifier, logger))
		}

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", listVehiclesHandler(vehicleSvc, logger))
			r.Post("/", createVehicleHandler(vehicleSvc, logger))
			r.Get("/{vehicleId}", getVehicleHandler(vehicleSvc, logger))
			r.Put("/{vehicleId}", updateVehicleHandler(vehicleSvc, logger))
			r.Patch("/{vehicleId}", updateVehicleHandler(vehicleSvc, logger))
			r.Delete("/{vehicleId}", deleteVehicleHandler(vehicleSvc, logger))
			r.Get("/{vehicleId}/transactions", listVehicleTransactionsHandler(txSvc, logger))
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Get("/", listDriversHandler(driverSvc, logger))
			r.Post("/", createDriverHandler(driverSvc, logger))
			r.Get("/{driverId}", getDriverHandler(driverSvc, logger))
			r.Put("/{driverId}", updateDriverHandler(driverSvc, logger))
			r.Patch("/{driverId}", updateDriverHandler(driverSvc, logger))
			r.Delete("/{driverId}", deleteDriverHandler(driverSvc, logger))
			r.Get("/{driverId}/transactions", listDriverTransactionsHandler(txSvc, logger))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", listTransactionsHandler(txSvc, logger))
			r.Post("/", createTransactionHandler(txSvc, logger))
			r.Post("/batch", createTransactionBatchHandler(txSvc, logger))
			r.Get("/range", listTransactionsInRangeHandler(txSvc, logger))
			r.Get("/{transactionId}", getTransactionHandler(txSvc, logger))
			r.Put("/{transactionId}", updateTransactionHandler(txSvc, logger))
			r.Delete("/{transactionId}", deleteTransactionHandler(txSvc, logger))
			r.Get("/{transactionId}/processed", processTransactionHandler(txSvc, logger))
		})

		r.Get("/metrics/processing", processingMetricsHandler(metrics))
	})

	return r
}

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "fleetsight-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := store.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("health: store ping failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func processingMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetProcessingSnapshot())
	}
}
