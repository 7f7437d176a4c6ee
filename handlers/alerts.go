package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/saurav7545/smartbus/metrics"
	"github.com/saurav7545/smartbus/models"
)

// AlertRepository defines the interface for alert operations
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert models.Alert) (*models.Alert, error)
	ListAlerts(ctx context.Context, userEmail string, alertType models.AlertType) ([]models.Alert, error)
}

// AlertHandler handles HTTP requests for alerts
type AlertHandler struct {
	repo    AlertRepository
	metrics *metrics.Collector
}

// NewAlertHandler creates a new handler with the given repository
func NewAlertHandler(repo AlertRepository, collector *metrics.Collector) *AlertHandler {
	return &AlertHandler{repo: repo, metrics: collector}
}

// CreateAlertRequest is the JSON body for POST /api/alerts
type CreateAlertRequest struct {
	Type            string `json:"type" validate:"required"`
	Priority        string `json:"priority"`
	Title           string `json:"title" validate:"required,max=200"`
	Message         string `json:"message" validate:"required"`
	AssignmentID    *int64 `json:"assignment_id" validate:"omitempty,min=1"`
	RouteID         *int64 `json:"route_id" validate:"omitempty,min=1"`
	TargetUserEmail string `json:"target_user" validate:"omitempty,email"`
	ExpiresInHours  int    `json:"expires_in_hours" validate:"omitempty,min=1,max=168"`
}

// ListAlertsResponse is the JSON response for GET /api/alerts
type ListAlertsResponse struct {
	Alerts []models.Alert `json:"alerts"`
	Count  int            `json:"count"`
}

// ListAlerts handles GET /api/alerts?user_email=...&type=...
// Returns active, unexpired alerts: broadcasts plus those targeted at the
// given email.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userEmail := r.URL.Query().Get("user_email")
	alertType := models.AlertType(r.URL.Query().Get("type"))
	if alertType != "" && !alertType.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown alert type", map[string]interface{}{
			"type": string(alertType),
		})
		return
	}

	alerts, err := h.repo.ListAlerts(r.Context(), userEmail, alertType)
	if err != nil {
		writeRepoError(w, err, "Failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, ListAlertsResponse{Alerts: alerts, Count: len(alerts)})
}

// CreateAlert handles POST /api/alerts
// Manual alert creation, e.g. operator announcements.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	alertType := models.AlertType(req.Type)
	if !alertType.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown alert type", map[string]interface{}{
			"type": req.Type,
		})
		return
	}
	priority := models.PriorityMedium
	if req.Priority != "" {
		priority = models.AlertPriority(req.Priority)
		if !priority.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown alert priority", map[string]interface{}{
				"priority": req.Priority,
			})
			return
		}
	}

	alert := models.Alert{
		AlertType:       alertType,
		Priority:        priority,
		Title:           req.Title,
		Message:         req.Message,
		AssignmentID:    req.AssignmentID,
		RouteID:         req.RouteID,
		TargetUserEmail: req.TargetUserEmail,
		IsActive:        true,
	}
	if req.ExpiresInHours > 0 {
		expires := time.Now().UTC().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		alert.ExpiresAt = &expires
	}

	created, err := h.repo.CreateAlert(r.Context(), alert)
	if err != nil {
		writeRepoError(w, err, "Failed to create alert")
		return
	}

	h.metrics.AlertsEmitted.WithLabelValues(string(created.AlertType)).Inc()
	writeJSON(w, http.StatusCreated, created)
}
