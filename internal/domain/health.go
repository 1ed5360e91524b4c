package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ProcessingMetrics is returned by GET /v1/metrics/processing.
type ProcessingMetrics struct {
	ProcessedTotal      int64            `json:"processedTotal"`
	ProcessedByKind     map[string]int64 `json:"processedByKind"`
	HistoryFetches      int64            `json:"historyFetches"`
	HistoryFetchesSaved int64            `json:"historyFetchesSaved"`
	ExternalErrors      int64            `json:"externalErrors"`
	CacheHitRate        float64          `json:"cacheHitRate"`
	Period              string           `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps skip/limit list results.
type ListResponse[T any] struct {
	Data    []T  `json:"data"`
	Count   int  `json:"count"`
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
