package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/saurav7545/smartbus/models"
)

// RouteRepository defines the interface for route catalogue operations
type RouteRepository interface {
	GetAllRoutes(ctx context.Context) ([]models.RouteSummary, error)
	GetRouteDetails(ctx context.Context, routeID int64) (*models.RouteDetail, error)
	SearchRoutes(ctx context.Context, source, destination string) ([]models.RouteSearchResult, error)
	ListCities(ctx context.Context) ([]string, error)
}

// RouteHandler handles HTTP requests for route data
type RouteHandler struct {
	repo RouteRepository
}

// NewRouteHandler creates a new handler with the given repository
func NewRouteHandler(repo RouteRepository) *RouteHandler {
	return &RouteHandler{repo: repo}
}

// GetAllRoutesResponse is the JSON response for GET /api/routes
type GetAllRoutesResponse struct {
	Routes []models.RouteSummary `json:"routes"`
	Count  int                   `json:"count"`
}

// SearchRoutesResponse is the JSON response for GET /api/routes/search
type SearchRoutesResponse struct {
	Source      string                     `json:"source"`
	Destination string                     `json:"destination"`
	Routes      []models.RouteSearchResult `json:"routes"`
	Count       int                        `json:"count"`
	Reversed    bool                       `json:"reversed,omitempty"`
}

// GetAllRoutes handles GET /api/routes
func (h *RouteHandler) GetAllRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.repo.GetAllRoutes(r.Context())
	if err != nil {
		writeRepoError(w, err, "Failed to retrieve routes")
		return
	}

	writeJSON(w, http.StatusOK, GetAllRoutesResponse{Routes: routes, Count: len(routes)})
}

// GetRouteDetails handles GET /api/routes/{routeId}
func (h *RouteHandler) GetRouteDetails(w http.ResponseWriter, r *http.Request) {
	routeID, err := strconv.ParseInt(chi.URLParam(r, "routeId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "routeId must be an integer", nil)
		return
	}

	detail, err := h.repo.GetRouteDetails(r.Context(), routeID)
	if err != nil {
		writeRepoError(w, err, "Failed to retrieve route details")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// SearchRoutes handles GET /api/routes/search?from=...&to=...
// City names are matched loosely against the served cities; unknown names
// get "did you mean" suggestions. When no route serves the requested
// direction, the reverse direction is offered instead.
func (h *RouteHandler) SearchRoutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to query parameters are required", nil)
		return
	}

	cities, err := h.repo.ListCities(ctx)
	if err != nil {
		writeRepoError(w, err, "Failed to search routes")
		return
	}

	source, ok, fromSuggestions := matchCity(from, cities)
	if !ok {
		writeError(w, http.StatusNotFound, "No routes from this city", map[string]interface{}{
			"city":        from,
			"suggestions": fromSuggestions,
		})
		return
	}
	destination, ok, toSuggestions := matchCity(to, cities)
	if !ok {
		writeError(w, http.StatusNotFound, "No routes to this city", map[string]interface{}{
			"city":        to,
			"suggestions": toSuggestions,
		})
		return
	}

	results, err := h.repo.SearchRoutes(ctx, source, destination)
	if err != nil {
		writeRepoError(w, err, "Failed to search routes")
		return
	}

	response := SearchRoutesResponse{
		Source:      source,
		Destination: destination,
		Routes:      results,
		Count:       len(results),
	}

	// No direct service: offer the opposite direction when it exists.
	if len(results) == 0 {
		reversed, err := h.repo.SearchRoutes(ctx, destination, source)
		if err != nil {
			writeRepoError(w, err, "Failed to search routes")
			return
		}
		if len(reversed) > 0 {
			response.Routes = reversed
			response.Count = len(reversed)
			response.Reversed = true
		}
	}

	writeJSON(w, http.StatusOK, response)
}
