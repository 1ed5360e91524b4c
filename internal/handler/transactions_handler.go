package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

type batchResponse struct {
	Created int                     `json:"created"`
	Results []service.ProcessResult `json:"results"`
}

func listTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		from, err := parseTimeParam(r, "from")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseTimeParam(r, "to")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		filter := domain.TransactionFilter{
			VehicleID: r.URL.Query().Get("vehicle_id"),
			DriverID:  r.URL.Query().Get("driver_id"),
			From:      from,
			To:        to,
		}
		txs, err := svc.List(ctx, filter, page)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse(txs, page))
	}
}

func listVehicleTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/vehicles/{vehicleId}/transactions")
		defer span.End()

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		txs, err := svc.ListByVehicle(ctx, chi.URLParam(r, "vehicleId"), page)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse(txs, page))
	}
}

func listDriverTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/drivers/{driverId}/transactions")
		defer span.End()

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		txs, err := svc.ListByDriver(ctx, chi.URLParam(r, "driverId"), page)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse(txs, page))
	}
}

// listTransactionsInRangeHandler requires both ends of the range.
func listTransactionsInRangeHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/range")
		defer span.End()

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		from, err := parseTimeParam(r, "from")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseTimeParam(r, "to")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if from == nil || to == nil {
			handleServiceError(w, &domain.ErrValidation{Field: "from", Message: "both 'from' and 'to' are required"}, logger)
			return
		}

		txs, err := svc.ListByTimeRange(ctx, *from, *to, page)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse(txs, page))
	}
}

func createTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()
		span.SetAttributes(attribute.String("auth.subject", SubjectFromContext(ctx)))

		process, err := parseProcess(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var in domain.TransactionInput
		if err := decodeJSON(w, r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		tx, err := in.ToTransaction()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.Create(ctx, &tx, process)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func createTransactionBatchHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/batch")
		defer span.End()
		span.SetAttributes(attribute.String("auth.subject", SubjectFromContext(ctx)))

		process, err := parseProcess(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var inputs []domain.TransactionInput
		if err := decodeJSON(w, r, &inputs); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		txs := make([]domain.Transaction, 0, len(inputs))
		for i := range inputs {
			tx, err := inputs[i].ToTransaction()
			if err != nil {
				handleServiceError(w, indexed(i, err), logger)
				return
			}
			txs = append(txs, tx)
		}

		results, err := svc.CreateBatch(ctx, txs, process)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, batchResponse{Created: len(results), Results: results})
	}
}

// indexed prefixes a validation error's field with the batch position.
func indexed(i int, err error) error {
	var ve *domain.ErrValidation
	if errors.As(err, &ve) {
		return &domain.ErrValidation{Field: fmt.Sprintf("transactions[%d].%s", i, ve.Field), Message: ve.Message}
	}
	return err
}

func getTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{transactionId}")
		defer span.End()

		tx, err := svc.Get(ctx, chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/{transactionId}")
		defer span.End()

		process, err := parseProcess(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var in domain.TransactionInput
		if err := decodeJSON(w, r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		tx, err := in.ToTransaction()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.Update(ctx, chi.URLParam(r, "transactionId"), &tx, process)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func deleteTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{transactionId}")
		defer span.End()

		id := chi.URLParam(r, "transactionId")
		if err := svc.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "transaction deleted", ID: id})
	}
}

func processTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{transactionId}/processed")
		defer span.End()

		result, err := svc.Process(ctx, chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
