package handler

import (
	"net/http"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func listDriversHandler(svc *service.DriverService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/drivers")
		defer span.End()

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		drivers, err := svc.List(ctx, page)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse(drivers, page))
	}
}

func createDriverHandler(svc *service.DriverService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/drivers")
		defer span.End()

		var d domain.Driver
		if err := decodeJSON(w, r, &d); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		d.ID = ""

		created, err := svc.Create(ctx, &d)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func getDriverHandler(svc *service.DriverService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/drivers/{driverId}")
		defer span.End()

		d, err := svc.Get(ctx, chi.URLParam(r, "driverId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func updateDriverHandler(svc *service.DriverService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" /v1/drivers/{driverId}")
		defer span.End()

		var u domain.DriverUpdate
		if err := decodeJSON(w, r, &u); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		d, err := svc.Update(ctx, chi.URLParam(r, "driverId"), &u)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func deleteDriverHandler(svc *service.DriverService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/drivers/{driverId}")
		defer span.End()

		driverID := chi.URLParam(r, "driverId")
		if err := svc.Delete(ctx, driverID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "driver deleted", ID: driverID})
	}
}
