package handler

import (
	"net/http"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Vehicles
// ============================================================

func listVehiclesHandler(svc *service.VehicleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/vehicles")
		defer span.End()

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status := domain.VehicleStatus(r.URL.Query().Get("status"))

		vehicles, err := svc.List(ctx, status, page)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse(vehicles, page))
	}
}

func createVehicleHandler(svc *service.VehicleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/vehicles")
		defer span.End()

		var v domain.Vehicle
		if err := decodeJSON(w, r, &v); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		v.ID = ""

		created, err := svc.Create(ctx, &v)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func getVehicleHandler(svc *service.VehicleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/vehicles/{vehicleId}")
		defer span.End()

		vehicleID := chi.URLParam(r, "vehicleId")
		span.SetAttributes(attribute.String("vehicle.id", vehicleID))

		v, err := svc.Get(ctx, vehicleID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func updateVehicleHandler(svc *service.VehicleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" /v1/vehicles/{vehicleId}")
		defer span.End()

		vehicleID := chi.URLParam(r, "vehicleId")
		var u domain.VehicleUpdate
		if err := decodeJSON(w, r, &u); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		v, err := svc.Update(ctx, vehicleID, &u)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func deleteVehicleHandler(svc *service.VehicleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/vehicles/{vehicleId}")
		defer span.End()

		vehicleID := chi.URLParam(r, "vehicleId")
		if err := svc.Delete(ctx, vehicleID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "vehicle deleted", ID: vehicleID})
	}
}
