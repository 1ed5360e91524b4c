package service

import (
	"context"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/infra/observability"
	"github.com/fleetsight/fleetsight-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DriverService manages drivers.
type DriverService struct {
	store   port.DriverStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDriverService creates a driver service.
func NewDriverService(store port.DriverStore, metrics *observability.Metrics, logger *zap.Logger) *DriverService {
	return &DriverService{store: store, metrics: metrics, logger: logger}
}

func (s *DriverService) Create(ctx context.Context, d *domain.Driver) (*domain.Driver, error) {
	ctx, span := fleetTracer.Start(ctx, "DriverService.Create")
	defer span.End()

	if err := d.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateDriver(ctx, d)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}

	s.logger.Info("driver created", zap.String("driver_id", created.ID))
	return created, nil
}

func (s *DriverService) Get(ctx context.Context, id string) (*domain.Driver, error) {
	ctx, span := fleetTracer.Start(ctx, "DriverService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	d, err := s.store.GetDriver(ctx, id)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	return d, nil
}

func (s *DriverService) List(ctx context.Context, page domain.Page) ([]domain.Driver, error) {
	ctx, span := fleetTracer.Start(ctx, "DriverService.List")
	defer span.End()

	drivers, err := s.store.ListDrivers(ctx, normalizePage(page))
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}
	return drivers, nil
}

func (s *DriverService) Update(ctx context.Context, id string, u *domain.DriverUpdate) (*domain.Driver, error) {
	ctx, span := fleetTracer.Start(ctx, "DriverService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	if u.FirstName != nil && *u.FirstName == "" {
		return nil, &domain.ErrValidation{Field: "first_name", Message: "must not be empty"}
	}
	if u.LastName != nil && *u.LastName == "" {
		return nil, &domain.ErrValidation{Field: "last_name", Message: "must not be empty"}
	}
	if u.LicenseNumber != nil && *u.LicenseNumber == "" {
		return nil, &domain.ErrValidation{Field: "license_number", Message: "must not be empty"}
	}

	updated, err := s.store.UpdateDriver(ctx, id, u)
	if err != nil {
		countStoreError(s.metrics, err)
		return nil, err
	}

	s.logger.Info("driver updated", zap.String("driver_id", id))
	return updated, nil
}

func (s *DriverService) Delete(ctx context.Context, id string) error {
	ctx, span := fleetTracer.Start(ctx, "DriverService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	if err := s.store.DeleteDriver(ctx, id); err != nil {
		countStoreError(s.metrics, err)
		return err
	}

	s.logger.Info("driver deleted", zap.String("driver_id", id))
	return nil
}
