// Package supabase provides a client for Supabase (PostgREST).
// Used as the primary data backend for vehicles, drivers and transactions.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// doRequest executes an authenticated request to Supabase PostgREST.
// A 404 or 204 yields a nil body and no error.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	c.setHeaders(req, "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, statusError(method, path, resp.StatusCode, body)
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

func (c *Client) setHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// call runs fn behind the circuit breaker with retries and maps the outcome
// to domain errors. Not-found, conflict and validation errors are final: they
// are neither retried nor counted against the breaker.
func (c *Client) call(ctx context.Context, service string, fn func() error) error {
	var final error
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			err := fn()
			if isFinal(err) {
				final = err
				return nil
			}
			return err
		})
	})

	switch {
	case err == nil:
		return final
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

func isFinal(err error) bool {
	var notFound *domain.ErrNotFound
	var conflict *domain.ErrConflict
	var validation *domain.ErrValidation
	return errors.As(err, &notFound) || errors.As(err, &conflict) || errors.As(err, &validation)
}

// statusError converts a non-2xx PostgREST response into an error.
// 409 is a unique-constraint violation.
func statusError(method, path string, status int, body []byte) error {
	if status == http.StatusConflict {
		return conflictError(path, body)
	}
	return fmt.Errorf("supabase %s %s returned status %d: %s", method, path, status, string(body))
}

// postgrestError is the error body PostgREST returns with a 409.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

var (
	// Key (transaction_id)=(TRX-1) already exists.
	conflictDetails = regexp.MustCompile(`Key \(([^)]+)\)=\(([^)]*)\)`)
	// duplicate key value violates unique constraint "vehicles_vin_key"
	conflictConstraint = regexp.MustCompile(`constraint "([a-z0-9_]+)_key"`)
)

var tableResources = map[string]string{
	"vehicles":     "vehicle",
	"drivers":      "driver",
	"transactions": "transaction",
}

// conflictError names the resource, column and value of a 409 as far as
// the response body reveals them.
func conflictError(path string, body []byte) *domain.ErrConflict {
	table, _, _ := strings.Cut(path, "?")
	conflict := &domain.ErrConflict{Resource: tableResources[table]}
	if conflict.Resource == "" {
		conflict.Resource = table
	}

	var pe postgrestError
	if json.Unmarshal(body, &pe) != nil {
		return conflict
	}
	if m := conflictDetails.FindStringSubmatch(pe.Details); m != nil {
		conflict.Field, conflict.Key = m[1], m[2]
		return conflict
	}
	if m := conflictConstraint.FindStringSubmatch(pe.Message); m != nil {
		conflict.Field = strings.TrimPrefix(m[1], table+"_")
	}
	return conflict
}

// Ping checks that PostgREST answers for the vehicles table.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "vehicles?select=id&limit=1")
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase", Err: err}
	}
	return nil
}
