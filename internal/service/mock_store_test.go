package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/port"
)

var _ port.FleetStore = (*mockStore)(nil)

// mockStore is an in-memory FleetStore. err, when set, is returned by every call.
type mockStore struct {
	mu           sync.Mutex
	vehicles     map[string]domain.Vehicle
	drivers      map[string]domain.Driver
	transactions []domain.Transaction
	nextID       int

	err          error
	historyCalls map[string]int
	getVehicle   int
}

func newMockStore() *mockStore {
	return &mockStore{
		vehicles:     map[string]domain.Vehicle{},
		drivers:      map[string]domain.Driver{},
		historyCalls: map[string]int{},
	}
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockStore) Ping(context.Context) error { return m.err }

func (m *mockStore) CreateVehicle(_ context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := *v
	c.ID = m.id("veh")
	m.vehicles[c.ID] = c
	return &c, nil
}

func (m *mockStore) GetVehicle(_ context.Context, id string) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getVehicle++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.vehicles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "vehicle", ID: id}
	}
	return &v, nil
}

func (m *mockStore) ListVehicles(_ context.Context, page domain.Page) ([]domain.Vehicle, error) {
	return m.listVehicles("", page)
}

func (m *mockStore) ListVehiclesByStatus(_ context.Context, status domain.VehicleStatus, page domain.Page) ([]domain.Vehicle, error) {
	return m.listVehicles(status, page)
}

func (m *mockStore) listVehicles(status domain.VehicleStatus, page domain.Page) ([]domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Vehicle{}
	for _, v := range m.vehicles {
		if status == "" || v.Status == status {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), nil
}

func (m *mockStore) UpdateVehicle(_ context.Context, id string, u *domain.VehicleUpdate) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.vehicles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "vehicle", ID: id}
	}
	u.Apply(&v)
	m.vehicles[id] = v
	return &v, nil
}

func (m *mockStore) DeleteVehicle(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.vehicles[id]; !ok {
		return &domain.ErrNotFound{Resource: "vehicle", ID: id}
	}
	delete(m.vehicles, id)
	return nil
}

func (m *mockStore) CreateDriver(_ context.Context, d *domain.Driver) (*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := *d
	c.ID = m.id("drv")
	m.drivers[c.ID] = c
	return &c, nil
}

func (m *mockStore) GetDriver(_ context.Context, id string) (*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.drivers[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "driver", ID: id}
	}
	return &d, nil
}

func (m *mockStore) ListDrivers(_ context.Context, page domain.Page) ([]domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Driver{}
	for _, d := range m.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), nil
}

func (m *mockStore) UpdateDriver(_ context.Context, id string, u *domain.DriverUpdate) (*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.drivers[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "driver", ID: id}
	}
	u.Apply(&d)
	m.drivers[id] = d
	return &d, nil
}

func (m *mockStore) DeleteDriver(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.drivers[id]; !ok {
		return &domain.ErrNotFound{Resource: "driver", ID: id}
	}
	delete(m.drivers, id)
	return nil
}

func (m *mockStore) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	created, err := m.CreateTransactions(ctx, []domain.Transaction{*tx})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

func (m *mockStore) CreateTransactions(_ context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		tx.ID = m.id("tx")
		out[i] = tx
	}
	m.transactions = append(m.transactions, out...)
	return out, nil
}

func (m *mockStore) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, tx := range m.transactions {
		if tx.ID == id {
			return &tx, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
}

func (m *mockStore) ListTransactions(_ context.Context, f domain.TransactionFilter, page domain.Page) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Transaction{}
	for _, tx := range m.transactions {
		if f.VehicleID != "" && (tx.VehicleID == nil || *tx.VehicleID != f.VehicleID) {
			continue
		}
		if f.DriverID != "" && (tx.DriverID == nil || *tx.DriverID != f.DriverID) {
			continue
		}
		if f.From != nil && tx.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && tx.Timestamp.After(*f.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return window(out, page), nil
}

func (m *mockStore) ListTransactionsByVehicle(_ context.Context, vehicleID string, page domain.Page) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls[vehicleID]++
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Transaction{}
	for _, tx := range m.transactions {
		if tx.VehicleID != nil && *tx.VehicleID == vehicleID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return window(out, page), nil
}

func (m *mockStore) UpdateTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.transactions {
		if m.transactions[i].ID == tx.ID {
			m.transactions[i] = *tx
			c := *tx
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
}

func (m *mockStore) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.transactions {
		if m.transactions[i].ID == id {
			m.transactions = append(m.transactions[:i], m.transactions[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "transaction", ID: id}
}

func (m *mockStore) historyCallsFor(vehicleID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls[vehicleID]
}

func window[T any](items []T, page domain.Page) []T {
	if page.Skip >= len(items) {
		return []T{}
	}
	items = items[page.Skip:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
