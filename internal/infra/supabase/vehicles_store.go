package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Vehicles: CRUD via PostgREST
// ============================================================

func (c *Client) CreateVehicle(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateVehicle")
	defer span.End()

	data := map[string]any{
		"make":          v.Make,
		"model":         v.Model,
		"year":          v.Year,
		"license_plate": v.LicensePlate,
		"vin":           v.VIN,
		"status":        v.Status,
		"vehicle_type":  v.VehicleType,
		"mileage":       v.Mileage,
		"fuel_type":     v.FuelType,
		"color":         v.Color,
		"notes":         v.Notes,
	}

	var created *domain.Vehicle
	err := c.call(ctx, "supabase/vehicles", func() error {
		body, err := c.doPost(ctx, "vehicles", data)
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Vehicle](body, "vehicle")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "vehicle", ID: v.VIN}
		}
		created = &rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("supabase: vehicle created", zap.String("vehicle_id", created.ID))
	return created, nil
}

func (c *Client) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	var vehicle *domain.Vehicle
	err := c.call(ctx, "supabase/vehicles", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, eq("vehicles", "id", id)+"&limit=1")
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Vehicle](body, "vehicle")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "vehicle", ID: id}
		}
		vehicle = &rows[0]
		return nil
	})
	return vehicle, err
}

func (c *Client) ListVehicles(ctx context.Context, page domain.Page) ([]domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListVehicles")
	defer span.End()

	return c.listVehicles(ctx, url.Values{}, page)
}

func (c *Client) ListVehiclesByStatus(ctx context.Context, status domain.VehicleStatus, page domain.Page) ([]domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListVehiclesByStatus")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.status", string(status)))

	q := url.Values{}
	q.Set("status", "eq."+string(status))
	return c.listVehicles(ctx, q, page)
}

func (c *Client) listVehicles(ctx context.Context, q url.Values, page domain.Page) ([]domain.Vehicle, error) {
	path := "vehicles?" + pageQuery(q, "created_at.asc", page).Encode()

	var vehicles []domain.Vehicle
	err := c.call(ctx, "supabase/vehicles", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		vehicles, err = decodeRows[domain.Vehicle](body, "vehicles")
		return err
	})
	return vehicles, err
}

func (c *Client) UpdateVehicle(ctx context.Context, id string, u *domain.VehicleUpdate) (*domain.Vehicle, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	fields, err := patchFields(u)
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = time.Now().UTC()

	var updated *domain.Vehicle
	err = c.call(ctx, "supabase/vehicles", func() error {
		body, err := c.doPatch(ctx, eq("vehicles", "id", id), fields)
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Vehicle](body, "vehicle")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "vehicle", ID: id}
		}
		updated = &rows[0]
		return nil
	})
	return updated, err
}

func (c *Client) DeleteVehicle(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", id))

	return c.call(ctx, "supabase/vehicles", func() error {
		body, err := c.doDelete(ctx, eq("vehicles", "id", id))
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Vehicle](body, "vehicle")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "vehicle", ID: id}
		}
		return nil
	})
}
