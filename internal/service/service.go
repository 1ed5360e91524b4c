// Package service provides the business logic layer (use cases):
// fleet CRUD and the transaction preprocessing flow.
package service

import (
	"errors"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/infra/observability"
)

// countStoreError increments the external error counter when err came from
// the storage backend rather than from the caller.
func countStoreError(metrics *observability.Metrics, err error) {
	var (
		ext     *domain.ErrExternalService
		timeout *domain.ErrTimeout
		open    *domain.ErrCircuitOpen
	)
	if errors.As(err, &ext) || errors.As(err, &timeout) || errors.As(err, &open) {
		metrics.IncrExternalError(observability.ServiceStore)
	}
}

// normalizePage clamps a listing window to sane bounds.
func normalizePage(p domain.Page) domain.Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 || p.Limit > 1000 {
		p.Limit = domain.DefaultPage.Limit
	}
	return p
}
