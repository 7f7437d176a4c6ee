package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/saurav7545/smartbus/models"
)

// UserRepository defines the interface for favorite-route operations
type UserRepository interface {
	AddFavorite(ctx context.Context, userEmail string, routeID int64, assignmentID *int64, nickname string) (*models.FavoriteRoute, error)
	ListFavorites(ctx context.Context, userEmail string) ([]models.FavoriteRoute, error)
	UpdateFavorite(ctx context.Context, userEmail string, favoriteID int64, update models.FavoriteUpdate) (*models.FavoriteRoute, error)
	DeleteFavorite(ctx context.Context, userEmail string, favoriteID int64) error
	ArrivalNotifications(ctx context.Context, userEmail string) ([]models.ArrivalNotification, error)
}

// FavoriteHandler handles HTTP requests for a user's saved routes
type FavoriteHandler struct {
	repo UserRepository
}

// NewFavoriteHandler creates a new handler with the given repository
func NewFavoriteHandler(repo UserRepository) *FavoriteHandler {
	return &FavoriteHandler{repo: repo}
}

// AddFavoriteRequest is the JSON body for POST /api/user/favorites
type AddFavoriteRequest struct {
	UserEmail    string `json:"user_email" validate:"required,email"`
	RouteID      int64  `json:"route_id" validate:"required,min=1"`
	AssignmentID *int64 `json:"assignment_id" validate:"omitempty,min=1"`
	Nickname     string `json:"nickname" validate:"max=100"`
}

// UpdateFavoriteRequest is the JSON body for PATCH /api/user/favorites/{favoriteId}
type UpdateFavoriteRequest struct {
	UserEmail           string  `json:"user_email" validate:"required,email"`
	Nickname            *string `json:"nickname" validate:"omitempty,max=100"`
	NotificationEnabled *bool   `json:"notification_enabled"`
	NotifyMinutesBefore *int    `json:"notification_time_before" validate:"omitempty,min=1,max=180"`
}

// ListFavoritesResponse is the JSON response for GET /api/user/favorites
type ListFavoritesResponse struct {
	Favorites []models.FavoriteRoute `json:"favorites"`
	Count     int                    `json:"count"`
}

// ArrivalNotificationsResponse is the JSON response for GET /api/user/notifications/arrivals
type ArrivalNotificationsResponse struct {
	Notifications []models.ArrivalNotification `json:"notifications"`
	Count         int                          `json:"count"`
}

// requireEmail extracts the user email from the query string.
func requireEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := r.URL.Query().Get("user_email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "user_email query parameter is required", nil)
		return "", false
	}
	return email, true
}

// AddFavorite handles POST /api/user/favorites
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req AddFavoriteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	favorite, err := h.repo.AddFavorite(r.Context(), req.UserEmail, req.RouteID, req.AssignmentID, req.Nickname)
	if err != nil {
		writeRepoError(w, err, "Failed to add favorite")
		return
	}

	writeJSON(w, http.StatusCreated, favorite)
}

// ListFavorites handles GET /api/user/favorites?user_email=...
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	favorites, err := h.repo.ListFavorites(r.Context(), email)
	if err != nil {
		writeRepoError(w, err, "Failed to list favorites")
		return
	}

	writeJSON(w, http.StatusOK, ListFavoritesResponse{Favorites: favorites, Count: len(favorites)})
}

// UpdateFavorite handles PATCH /api/user/favorites/{favoriteId}
func (h *FavoriteHandler) UpdateFavorite(w http.ResponseWriter, r *http.Request) {
	favoriteID, err := strconv.ParseInt(chi.URLParam(r, "favoriteId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "favoriteId must be an integer", nil)
		return
	}

	var req UpdateFavoriteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	favorite, err := h.repo.UpdateFavorite(r.Context(), req.UserEmail, favoriteID, models.FavoriteUpdate{
		Nickname:            req.Nickname,
		NotificationEnabled: req.NotificationEnabled,
		NotifyMinutesBefore: req.NotifyMinutesBefore,
	})
	if err != nil {
		writeRepoError(w, err, "Failed to update favorite")
		return
	}

	writeJSON(w, http.StatusOK, favorite)
}

// DeleteFavorite handles DELETE /api/user/favorites/{favoriteId}?user_email=...
func (h *FavoriteHandler) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	favoriteID, err := strconv.ParseInt(chi.URLParam(r, "favoriteId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "favoriteId must be an integer", nil)
		return
	}
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteFavorite(r.Context(), email, favoriteID); err != nil {
		writeRepoError(w, err, "Failed to delete favorite")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GetArrivalNotifications handles GET /api/user/notifications/arrivals?user_email=...
func (h *FavoriteHandler) GetArrivalNotifications(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	notifications, err := h.repo.ArrivalNotifications(r.Context(), email)
	if err != nil {
		writeRepoError(w, err, "Failed to compute arrival notifications")
		return
	}

	writeJSON(w, http.StatusOK, ArrivalNotificationsResponse{
		Notifications: notifications,
		Count:         len(notifications),
	})
}
