package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checkedAt"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	CheckedAt  time.Time    `json:"checkedAt"`
	DurationMs int64        `json:"durationMs"`
}

// CheckFunc reports the readiness of one dependency.
type CheckFunc func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	h := &HealthHandler{checks: map[string]CheckFunc{}, timeout: 2 * time.Second}
	if db != nil {
		h.WithCheck("database", db.PingContext)
	}
	return h
}

func (h *HealthHandler) WithCheck(name string, check CheckFunc) *HealthHandler {
	h.checks[name] = check
	return h
}

// pingHandler answers liveness checks.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler runs every check and answers 503 if any fails.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:     HealthHealthy,
		Components: make(map[string]CheckEntry, len(names)),
	}
	for _, name := range names {
		start := time.Now()
		entry := CheckEntry{Status: HealthHealthy}
		if err := h.checks[name](ctx); err != nil {
			entry.Status = HealthUnhealthy
			entry.Message = err.Error()
			resp.Status = HealthUnhealthy
		}
		entry.CheckedAt = time.Now()
		entry.DurationMs = time.Since(start).Milliseconds()
		resp.Components[name] = entry
	}
	resp.CheckedAt = time.Now()

	status := http.StatusOK
	if resp.Status == HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
