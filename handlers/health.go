package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the service health endpoint
type HealthHandler struct {
	db      Pinger
	backend string
}

// NewHealthHandler creates a new handler checking the given storage backend
func NewHealthHandler(db Pinger, backend string) *HealthHandler {
	return &HealthHandler{db: db, backend: backend}
}

// HealthResponse is the JSON response for GET /health
type HealthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Backend  string    `json:"backend"`
	Time     time.Time `json:"time"`
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "ok",
		Database: "up",
		Backend:  h.backend,
		Time:     time.Now().UTC(),
	}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "down"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}
