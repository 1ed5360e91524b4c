package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/infra/observability"
	"github.com/fleetsight/fleetsight-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var fleetTracer = otel.Tracer("service/fleet")

// VehicleService manages fleet vehicles. Single-vehicle reads go through
// the cache; updates and deletes invalidate it.
type VehicleService struct {
	store   port.VehicleStore
	cache   port.Cache[*domain.Vehicle]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewVehicleService creates a vehicle service.
func NewVehicleService(store port.VehicleStore, cache port.Cache[*domain.Vehicle], metrics *observability.Metrics, logger *zap.Logger) *VehicleService {
	return &VehicleService{store: store, cache: cache, metrics: metrics, logger: logger}
}

func vehicleKey(id string) string {
	return fmt.Sprintf("vehicle:%s", id)
}

func (s *VehicleService) Create(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "VehicleService.Create")
	defer span.End()

	if err := v.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateVehicle(ctx, v)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}

	s.logger.Info("vehicle created",
		zap.String("vehicle_id", created.ID),
		zap.String("license_plate", created.LicensePlate),
	)
	return created, nil
}

func (s *VehicleService) Get(ctx context.Context, id string) (*domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "VehicleService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	if v, ok := s.cache.Get(vehicleKey(id)); ok {
		s.metrics.IncrCacheHit(observability.CacheVehicles)
		return v, nil
	}
	s.metrics.IncrCacheMiss(observability.CacheVehicles)

	start := time.Now()
	v, err := s.store.GetVehicle(ctx, id)
	s.metrics.RecordRequestDuration("vehicle_get", time.Since(start))
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	s.cache.Set(vehicleKey(id), v)
	return v, nil
}

// List returns a window of vehicles, optionally restricted to one status.
func (s *VehicleService) List(ctx context.Context, status domain.VehicleStatus, page domain.Page) ([]domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "VehicleService.List")
	defer span.End()

	page = normalizePage(page)

	var (
		vehicles []domain.Vehicle
		err      error
	)
	if status == "" {
		vehicles, err = s.store.ListVehicles(ctx, page)
	} else {
		if !status.Valid() {
			return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status '%s'", status)}
		}
		vehicles, err = s.store.ListVehiclesByStatus(ctx, status, page)
	}
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	return vehicles, nil
}

func (s *VehicleService) Update(ctx context.Context, id string, u *domain.VehicleUpdate) (*domain.Vehicle, error) {
	ctx, span := fleetTracer.Start(ctx, "VehicleService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	// Validate the merged result before writing anything.
	current, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	merged := *current
	u.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateVehicle(ctx, id, u)
	s.cache.Delete(vehicleKey(id))
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}

	s.logger.Info("vehicle updated", zap.String("vehicle_id", id))
	return updated, nil
}

func (s *VehicleService) Delete(ctx context.Context, id string) error {
	ctx, span := fleetTracer.Start(ctx, "VehicleService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	err := s.store.DeleteVehicle(ctx, id)
	s.cache.Delete(vehicleKey(id))
	if err != nil {
		countStoreError(s.metrics, err)
		return err
	}

	s.logger.Info("vehicle deleted", zap.String("vehicle_id", id))
	return nil
}
