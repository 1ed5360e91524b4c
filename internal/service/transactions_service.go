package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/infra/observability"
	"github.com/fleetsight/fleetsight-go/internal/infra/resilience"
	"github.com/fleetsight/fleetsight-go/internal/port"
	"github.com/fleetsight/fleetsight-go/internal/processing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var txTracer = otel.Tracer("service/transactions")

// ProcessResult is a stored transaction plus, when it was run through the
// pipeline, its processed record and normalized free text.
type ProcessResult struct {
	Transaction    *domain.Transaction              `json:"transaction"`
	Processed      *processing.ProcessedTransaction `json:"processed,omitempty"`
	NormalizedText map[string]any                   `json:"normalized_text,omitempty"`
}

// TransactionService persists transactions and runs them through
// preprocessing against the vehicle's stored history.
type TransactionService struct {
	store        port.TransactionStore
	bulkhead     *resilience.Bulkhead
	historyLimit int
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewTransactionService creates a transaction service. historyLimit is the
// page size for history reads; bulkhead bounds concurrent history reads in a
// batch.
func NewTransactionService(
	store port.TransactionStore,
	bulkhead *resilience.Bulkhead,
	historyLimit int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		store:        store,
		bulkhead:     bulkhead,
		historyLimit: historyLimit,
		metrics:      metrics,
		logger:       logger,
	}
}

// Create validates and stores tx. With process set, the vehicle's history is
// read before the insert and the stored transaction is preprocessed against it.
func (s *TransactionService) Create(ctx context.Context, tx *domain.Transaction, process bool) (*ProcessResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.id", tx.TransactionID),
		attribute.String("transaction.kind", string(tx.Kind)),
	)

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	var history []domain.Transaction
	if process && tx.HasVehicle() {
		h, err := s.fetchHistory(ctx, *tx.VehicleID, tx.Timestamp)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordHistoryFetches(1, 0)
		history = h
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("id", created.ID),
		zap.String("transaction_id", created.TransactionID),
		zap.String("kind", string(created.Kind)),
	)

	if !process {
		return &ProcessResult{Transaction: created}, nil
	}
	return s.preprocess(created, history), nil
}

// CreateBatch validates and stores txs as one unit. Each distinct vehicle's
// history is read exactly once, concurrently, before anything is inserted,
// so transactions in the same batch never see each other as history.
func (s *TransactionService) CreateBatch(ctx context.Context, txs []domain.Transaction, process bool) ([]ProcessResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.CreateBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(txs)))

	if len(txs) == 0 {
		return nil, &domain.ErrValidation{Field: "transactions", Message: "at least one transaction is required"}
	}
	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			var ve *domain.ErrValidation
			if errors.As(err, &ve) {
				return nil, &domain.ErrValidation{Field: fmt.Sprintf("transactions[%d].%s", i, ve.Field), Message: ve.Message}
			}
			return nil, err
		}
	}
	seenIDs := make(map[string]struct{}, len(txs))
	for i := range txs {
		if _, ok := seenIDs[txs[i].TransactionID]; ok {
			return nil, domain.TransactionConflict(txs[i].TransactionID)
		}
		seenIDs[txs[i].TransactionID] = struct{}{}
	}

	var histories map[string][]domain.Transaction
	if process {
		h, err := s.prefetchHistories(ctx, txs)
		if err != nil {
			return nil, err
		}
		histories = h
	}

	created, err := s.store.CreateTransactions(ctx, txs)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}

	s.logger.Info("transaction batch created", zap.Int("count", len(created)))

	results := make([]ProcessResult, len(created))
	for i := range created {
		tx := &created[i]
		if !process {
			results[i] = ProcessResult{Transaction: tx}
			continue
		}
		var history []domain.Transaction
		if tx.HasVehicle() {
			history = histories[*tx.VehicleID]
		}
		results[i] = *s.preprocess(tx, history)
	}
	return results, nil
}

// prefetchHistories reads the history of every distinct vehicle in txs.
func (s *TransactionService) prefetchHistories(ctx context.Context, txs []domain.Transaction) (map[string][]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.prefetchHistories")
	defer span.End()

	// earliest holds the oldest batch timestamp per vehicle; history must
	// reach back past it.
	var vehicleIDs []string
	earliest := make(map[string]time.Time)
	withVehicle := 0
	for i := range txs {
		if !txs[i].HasVehicle() {
			continue
		}
		withVehicle++
		id := *txs[i].VehicleID
		if ts, ok := earliest[id]; ok {
			if txs[i].Timestamp.Before(ts) {
				earliest[id] = txs[i].Timestamp
			}
			continue
		}
		earliest[id] = txs[i].Timestamp
		vehicleIDs = append(vehicleIDs, id)
	}
	span.SetAttributes(attribute.Int("vehicles.count", len(vehicleIDs)))

	var mu sync.Mutex
	histories := make(map[string][]domain.Transaction, len(vehicleIDs))
	g, gCtx := errgroup.WithContext(ctx)
	for _, id := range vehicleIDs {
		g.Go(func() error {
			return s.bulkhead.Do(gCtx, func(ctx context.Context) error {
				h, err := s.fetchHistory(ctx, id, earliest[id])
				if err != nil {
					return err
				}
				mu.Lock()
				histories[id] = h
				mu.Unlock()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.metrics.RecordHistoryFetches(len(vehicleIDs), withVehicle-len(vehicleIDs))
	return histories, nil
}

// fetchHistory reads a vehicle's transactions newest first, historyLimit rows
// per page, until a page is short or holds a row earlier than before. The
// result always contains the direct predecessor of a transaction at before.
func (s *TransactionService) fetchHistory(ctx context.Context, vehicleID string, before time.Time) ([]domain.Transaction, error) {
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("history_fetch", time.Since(start)) }()

	var history []domain.Transaction
	page := domain.Page{Limit: s.historyLimit}
	for {
		rows, err := s.store.ListTransactionsByVehicle(ctx, vehicleID, page)
		if err != nil {
			countStoreError(s.metrics, err)
			s.logger.Error("failed to fetch vehicle history",
				zap.String("vehicle_id", vehicleID),
				zap.Int("skip", page.Skip),
				zap.Error(err),
			)
			return nil, err
		}
		history = append(history, rows...)
		if page.Limit <= 0 || len(rows) < page.Limit || rows[len(rows)-1].Timestamp.Before(before) {
			return history, nil
		}
		page.Skip += page.Limit
	}
}

func (s *TransactionService) preprocess(tx *domain.Transaction, history []domain.Transaction) *ProcessResult {
	processed := processing.Preprocess(*tx, history)
	s.metrics.IncrProcessed(tx.Kind)
	return &ProcessResult{
		Transaction:    tx,
		Processed:      &processed,
		NormalizedText: processing.CleanTextFields(tx),
	}
}

func (s *TransactionService) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	return tx, nil
}

// List returns a window of transactions in timestamp order.
func (s *TransactionService) List(ctx context.Context, filter domain.TransactionFilter, page domain.Page) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.List")
	defer span.End()

	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, &domain.ErrValidation{Field: "from", Message: "must not be after 'to'"}
	}

	txs, err := s.store.ListTransactions(ctx, filter, normalizePage(page))
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	return txs, nil
}

func (s *TransactionService) ListByVehicle(ctx context.Context, vehicleID string, page domain.Page) ([]domain.Transaction, error) {
	if vehicleID == "" {
		return nil, &domain.ErrValidation{Field: "vehicle_id", Message: "required"}
	}
	return s.List(ctx, domain.TransactionFilter{VehicleID: vehicleID}, page)
}

func (s *TransactionService) ListByDriver(ctx context.Context, driverID string, page domain.Page) ([]domain.Transaction, error) {
	if driverID == "" {
		return nil, &domain.ErrValidation{Field: "driver_id", Message: "required"}
	}
	return s.List(ctx, domain.TransactionFilter{DriverID: driverID}, page)
}

// ListByTimeRange returns transactions with from <= timestamp <= to.
func (s *TransactionService) ListByTimeRange(ctx context.Context, from, to time.Time, page domain.Page) ([]domain.Transaction, error) {
	return s.List(ctx, domain.TransactionFilter{From: &from, To: &to}, page)
}

// Update replaces the stored transaction id with tx after re-validating it.
// With process set the result is preprocessed against the current history.
func (s *TransactionService) Update(ctx context.Context, id string, tx *domain.Transaction, process bool) (*ProcessResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	tx.ID = id
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}

	s.logger.Info("transaction updated", zap.String("id", id))

	if !process {
		return &ProcessResult{Transaction: updated}, nil
	}
	return s.processStored(ctx, updated)
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		countStoreError(s.metrics, err)
		return err
	}

	s.logger.Info("transaction deleted", zap.String("id", id))
	return nil
}

// Process reprocesses a stored transaction against its vehicle's current history.
func (s *TransactionService) Process(ctx context.Context, id string) (*ProcessResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Process")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.row_id", id))

	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	return s.processStored(ctx, tx)
}

// processStored preprocesses a transaction that is already stored. Its own
// row is in the history it reads; the strictly-earlier filter excludes it.
func (s *TransactionService) processStored(ctx context.Context, tx *domain.Transaction) (*ProcessResult, error) {
	var history []domain.Transaction
	if tx.HasVehicle() {
		h, err := s.fetchHistory(ctx, *tx.VehicleID, tx.Timestamp)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordHistoryFetches(1, 0)
		history = h
	}
	return s.preprocess(tx, history), nil
}
