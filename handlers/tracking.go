package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saurav7545/smartbus/metrics"
	"github.com/saurav7545/smartbus/models"
)

// TrackingRepository defines the interface for live tracking operations
type TrackingRepository interface {
	ApplyLocationSample(ctx context.Context, sample models.LocationSample) (*models.TrackingSnapshot, error)
	ApplyStatusSample(ctx context.Context, sample models.StatusSample) (*models.BusOperationalStatus, error)
	GetLiveBus(ctx context.Context, busNumber string) (*models.LiveBusView, error)
	GetRouteOverview(ctx context.Context, routeName string) (*models.RouteLiveOverview, error)
}

// TrackingHandler handles HTTP requests for driver updates and live views
type TrackingHandler struct {
	repo    TrackingRepository
	metrics *metrics.Collector
}

// NewTrackingHandler creates a new handler with the given repository
func NewTrackingHandler(repo TrackingRepository, collector *metrics.Collector) *TrackingHandler {
	return &TrackingHandler{repo: repo, metrics: collector}
}

// LocationUpdateRequest is the JSON body for POST /api/driver/location/update
type LocationUpdateRequest struct {
	BusNumber      string   `json:"bus_number" validate:"required"`
	Latitude       *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude      *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Speed          float64  `json:"speed" validate:"min=0"`
	Bearing        float64  `json:"bearing" validate:"min=0,max=360"`
	Accuracy       float64  `json:"accuracy" validate:"min=0"`
	Altitude       float64  `json:"altitude"`
	EngineOn       *bool    `json:"engine_on"`
	DriverName     *string  `json:"driver_name"`
	DriverPhone    *string  `json:"driver_phone"`
	PassengerCount *int     `json:"passenger_count" validate:"omitempty,min=0"`
	FuelLevel      *float64 `json:"fuel_level" validate:"omitempty,min=0,max=100"`
}

// LocationUpdateResponse is the JSON response for a location update
type LocationUpdateResponse struct {
	Success  bool                     `json:"success"`
	Message  string                   `json:"message"`
	Tracking *models.TrackingSnapshot `json:"data"`
}

// StatusUpdateRequest is the JSON body for POST /api/driver/status/update
type StatusUpdateRequest struct {
	BusNumber      string   `json:"bus_number" validate:"required"`
	Status         string   `json:"status" validate:"required"`
	PassengerCount *int     `json:"passenger_count" validate:"omitempty,min=0"`
	FuelLevel      *float64 `json:"fuel_level" validate:"omitempty,min=0,max=100"`
}

// StatusUpdateResponse is the JSON response for a status update
type StatusUpdateResponse struct {
	Success bool                         `json:"success"`
	Message string                       `json:"message"`
	Status  *models.BusOperationalStatus `json:"data"`
}

// UpdateLocation handles POST /api/driver/location/update
// Applies one GPS sample from a driver device in a single transaction.
func (h *TrackingHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.LocationUpdateErrs.Inc()
		return
	}

	sample := models.LocationSample{
		BusNumber:      req.BusNumber,
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		Speed:          req.Speed,
		Bearing:        req.Bearing,
		Accuracy:       req.Accuracy,
		Altitude:       req.Altitude,
		EngineOn:       true,
		DriverName:     req.DriverName,
		DriverPhone:    req.DriverPhone,
		PassengerCount: req.PassengerCount,
		FuelLevel:      req.FuelLevel,
	}
	if req.EngineOn != nil {
		sample.EngineOn = *req.EngineOn
	}

	snapshot, err := h.repo.ApplyLocationSample(r.Context(), sample)
	if err != nil {
		h.metrics.LocationUpdateErrs.Inc()
		writeRepoError(w, err, "Failed to apply location update")
		return
	}

	h.metrics.LocationUpdates.Inc()
	writeJSON(w, http.StatusOK, LocationUpdateResponse{
		Success:  true,
		Message:  "Location updated successfully",
		Tracking: snapshot,
	})
}

// UpdateStatus handles POST /api/driver/status/update
func (h *TrackingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.StatusUpdateErrs.Inc()
		return
	}

	status := models.OperationalStatus(req.Status)
	if !status.Valid() {
		h.metrics.StatusUpdateErrs.Inc()
		writeError(w, http.StatusBadRequest, "Unknown status value", map[string]interface{}{
			"status": req.Status,
		})
		return
	}

	updated, err := h.repo.ApplyStatusSample(r.Context(), models.StatusSample{
		BusNumber:      req.BusNumber,
		Status:         status,
		PassengerCount: req.PassengerCount,
		FuelLevel:      req.FuelLevel,
	})
	if err != nil {
		h.metrics.StatusUpdateErrs.Inc()
		writeRepoError(w, err, "Failed to apply status update")
		return
	}

	h.metrics.StatusUpdates.Inc()
	writeJSON(w, http.StatusOK, StatusUpdateResponse{
		Success: true,
		Message: "Status updated successfully",
		Status:  updated,
	})
}

// GetLiveBus handles GET /api/live/{busNumber}
// Returns the full live snapshot for one bus.
func (h *TrackingHandler) GetLiveBus(w http.ResponseWriter, r *http.Request) {
	busNumber := chi.URLParam(r, "busNumber")
	if busNumber == "" {
		writeError(w, http.StatusBadRequest, "busNumber parameter is required", nil)
		return
	}

	view, err := h.repo.GetLiveBus(r.Context(), busNumber)
	if err != nil {
		writeRepoError(w, err, "Failed to retrieve live bus data")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// GetRouteOverview handles GET /api/live/route/{routeName}
// Returns every actively tracked bus on a route.
func (h *TrackingHandler) GetRouteOverview(w http.ResponseWriter, r *http.Request) {
	routeName := chi.URLParam(r, "routeName")
	if routeName == "" {
		writeError(w, http.StatusBadRequest, "routeName parameter is required", nil)
		return
	}

	overview, err := h.repo.GetRouteOverview(r.Context(), routeName)
	if err != nil {
		writeRepoError(w, err, "Failed to retrieve route overview")
		return
	}

	writeJSON(w, http.StatusOK, overview)
}
