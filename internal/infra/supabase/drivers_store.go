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
// Drivers: CRUD via PostgREST
// ============================================================

func (c *Client) CreateDriver(ctx context.Context, d *domain.Driver) (*domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateDriver")
	defer span.End()

	data := map[string]any{
		"first_name":     d.FirstName,
		"last_name":      d.LastName,
		"email":          d.Email,
		"phone":          d.Phone,
		"license_number": d.LicenseNumber,
		"license_expiry": d.LicenseExpiry,
		"status":         d.Status,
		"notes":          d.Notes,
	}

	var created *domain.Driver
	err := c.call(ctx, "supabase/drivers", func() error {
		body, err := c.doPost(ctx, "drivers", data)
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Driver](body, "driver")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "driver", ID: d.LicenseNumber}
		}
		created = &rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("supabase: driver created", zap.String("driver_id", created.ID))
	return created, nil
}

func (c *Client) GetDriver(ctx context.Context, id string) (*domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDriver")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	var driver *domain.Driver
	err := c.call(ctx, "supabase/drivers", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, eq("drivers", "id", id)+"&limit=1")
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Driver](body, "driver")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "driver", ID: id}
		}
		driver = &rows[0]
		return nil
	})
	return driver, err
}

func (c *Client) ListDrivers(ctx context.Context, page domain.Page) ([]domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDrivers")
	defer span.End()

	path := "drivers?" + pageQuery(url.Values{}, "created_at.asc", page).Encode()

	var drivers []domain.Driver
	err := c.call(ctx, "supabase/drivers", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		drivers, err = decodeRows[domain.Driver](body, "drivers")
		return err
	})
	return drivers, err
}

func (c *Client) UpdateDriver(ctx context.Context, id string, u *domain.DriverUpdate) (*domain.Driver, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateDriver")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	fields, err := patchFields(u)
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = time.Now().UTC()

	var updated *domain.Driver
	err = c.call(ctx, "supabase/drivers", func() error {
		body, err := c.doPatch(ctx, eq("drivers", "id", id), fields)
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Driver](body, "driver")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "driver", ID: id}
		}
		updated = &rows[0]
		return nil
	})
	return updated, err
}

func (c *Client) DeleteDriver(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteDriver")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", id))

	return c.call(ctx, "supabase/drivers", func() error {
		body, err := c.doDelete(ctx, eq("drivers", "id", id))
		if err != nil {
			return err
		}
		rows, err := decodeRows[domain.Driver](body, "driver")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "driver", ID: id}
		}
		return nil
	})
}
