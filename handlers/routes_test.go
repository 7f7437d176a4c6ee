package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/saurav7545/smartbus/models"
)

type stubRouteRepo struct {
	routes  []models.RouteSummary
	detail  *models.RouteDetail
	results map[string][]models.RouteSearchResult // keyed "source|destination"
	cities  []string
	err     error
}

func (s *stubRouteRepo) GetAllRoutes(context.Context) ([]models.RouteSummary, error) {
	return s.routes, s.err
}

func (s *stubRouteRepo) GetRouteDetails(context.Context, int64) (*models.RouteDetail, error) {
	return s.detail, s.err
}

func (s *stubRouteRepo) SearchRoutes(_ context.Context, source, destination string) ([]models.RouteSearchResult, error) {
	return s.results[source+"|"+destination], s.err
}

func (s *stubRouteRepo) ListCities(context.Context) ([]string, error) {
	return s.cities, s.err
}

func newRouteRouter(repo RouteRepository) http.Handler {
	h := NewRouteHandler(repo)
	r := chi.NewRouter()
	r.Get("/api/routes", h.GetAllRoutes)
	r.Get("/api/routes/search", h.SearchRoutes)
	r.Get("/api/routes/{routeId}", h.GetRouteDetails)
	return r
}

func TestSearchRoutesFuzzyCityMatch(t *testing.T) {
	repo := &stubRouteRepo{
		cities: []string{"Delhi", "Muzaffarnagar"},
		results: map[string][]models.RouteSearchResult{
			"Delhi|Muzaffarnagar": {{Route: models.Route{RouteName: "Delhi-Muzaffarnagar Express"}}},
		},
	}
	router := newRouteRouter(repo)

	// Misspelled but close enough to resolve via prefix matching.
	req := httptest.NewRequest(http.MethodGet, "/api/routes/search?from=delh&to=muzaffar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp SearchRoutesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Source != "Delhi" || resp.Destination != "Muzaffarnagar" {
		t.Errorf("resolved cities = %q -> %q", resp.Source, resp.Destination)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestSearchRoutesUnknownCitySuggests(t *testing.T) {
	repo := &stubRouteRepo{cities: []string{"Delhi", "Dehradun"}}
	router := newRouteRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/routes/search?from=dilhi&to=Dehradun", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	suggestions, _ := resp.Details["suggestions"].([]interface{})
	if len(suggestions) == 0 || suggestions[0] != "Delhi" {
		t.Errorf("suggestions = %v, want Delhi offered", resp.Details["suggestions"])
	}
}

func TestSearchRoutesReverseDirection(t *testing.T) {
	repo := &stubRouteRepo{
		cities: []string{"Delhi", "Muzaffarnagar"},
		results: map[string][]models.RouteSearchResult{
			"Delhi|Muzaffarnagar": {{Route: models.Route{RouteName: "Delhi-Muzaffarnagar Express"}}},
		},
	}
	router := newRouteRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/routes/search?from=Muzaffarnagar&to=Delhi", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp SearchRoutesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Reversed || resp.Count != 1 {
		t.Errorf("response = %+v, want reversed result", resp)
	}
}

func TestSearchRoutesMissingParams(t *testing.T) {
	router := newRouteRouter(&stubRouteRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/routes/search?from=Delhi", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRouteDetailsBadID(t *testing.T) {
	router := newRouteRouter(&stubRouteRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/routes/not-a-number", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMatchCity(t *testing.T) {
	cities := []string{"Delhi", "Dehradun", "Muzaffarnagar"}

	if m, ok, _ := matchCity("DELHI", cities); !ok || m != "Delhi" {
		t.Errorf("exact match = %q/%v", m, ok)
	}
	if m, ok, _ := matchCity("dehra", cities); !ok || m != "Dehradun" {
		t.Errorf("prefix match = %q/%v", m, ok)
	}
	if _, ok, suggestions := matchCity("dilhi", cities); ok || len(suggestions) == 0 {
		t.Errorf("near miss ok=%v suggestions=%v, want suggestions only", ok, suggestions)
	}
	if _, ok, suggestions := matchCity("Chennai", cities); ok || len(suggestions) != 0 {
		t.Errorf("far miss ok=%v suggestions=%v, want nothing", ok, suggestions)
	}
}
