// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/fleetsight/fleetsight-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// VehicleStore persists fleet vehicles.
type VehicleStore interface {
	CreateVehicle(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, page domain.Page) ([]domain.Vehicle, error)
	ListVehiclesByStatus(ctx context.Context, status domain.VehicleStatus, page domain.Page) ([]domain.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, u *domain.VehicleUpdate) (*domain.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
}

// DriverStore persists drivers.
type DriverStore interface {
	CreateDriver(ctx context.Context, d *domain.Driver) (*domain.Driver, error)
	GetDriver(ctx context.Context, id string) (*domain.Driver, error)
	ListDrivers(ctx context.Context, page domain.Page) ([]domain.Driver, error)
	UpdateDriver(ctx context.Context, id string, u *domain.DriverUpdate) (*domain.Driver, error)
	DeleteDriver(ctx context.Context, id string) error
}

// TransactionStore persists transactions of every kind.
//
// ListTransactionsByVehicle is also the history source for preprocessing: it
// returns the vehicle's transactions newest first and applies no other
// filtering.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	CreateTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, page domain.Page) ([]domain.Transaction, error)
	ListTransactionsByVehicle(ctx context.Context, vehicleID string, page domain.Page) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// FleetStore is the full persistence surface a backend provides.
type FleetStore interface {
	VehicleStore
	DriverStore
	TransactionStore

	// Ping checks connectivity for health probes.
	Ping(ctx context.Context) error
}
