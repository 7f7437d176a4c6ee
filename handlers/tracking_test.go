package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/saurav7545/smartbus/metrics"
	"github.com/saurav7545/smartbus/models"
)

// stubTrackingRepo is a canned-response TrackingRepository.
type stubTrackingRepo struct {
	snapshot *models.TrackingSnapshot
	status   *models.BusOperationalStatus
	view     *models.LiveBusView
	overview *models.RouteLiveOverview
	err      error

	lastSample models.LocationSample
	lastStatus models.StatusSample
}

func (s *stubTrackingRepo) ApplyLocationSample(_ context.Context, sample models.LocationSample) (*models.TrackingSnapshot, error) {
	s.lastSample = sample
	return s.snapshot, s.err
}

func (s *stubTrackingRepo) ApplyStatusSample(_ context.Context, sample models.StatusSample) (*models.BusOperationalStatus, error) {
	s.lastStatus = sample
	return s.status, s.err
}

func (s *stubTrackingRepo) GetLiveBus(context.Context, string) (*models.LiveBusView, error) {
	return s.view, s.err
}

func (s *stubTrackingRepo) GetRouteOverview(context.Context, string) (*models.RouteLiveOverview, error) {
	return s.overview, s.err
}

func newTrackingRouter(repo TrackingRepository) http.Handler {
	router, _ := newTrackingRouterWithMetrics(repo)
	return router
}

func newTrackingRouterWithMetrics(repo TrackingRepository) (http.Handler, *metrics.Collector) {
	collector := metrics.NewCollector()
	h := NewTrackingHandler(repo, collector)
	r := chi.NewRouter()
	r.Post("/api/driver/location/update", h.UpdateLocation)
	r.Post("/api/driver/status/update", h.UpdateStatus)
	r.Get("/api/live/{busNumber}", h.GetLiveBus)
	r.Get("/api/live/route/{routeName}", h.GetRouteOverview)
	return r, collector
}

func TestUpdateLocationSuccess(t *testing.T) {
	repo := &stubTrackingRepo{snapshot: &models.TrackingSnapshot{
		BusNumber:   "DL-1PC-1234",
		RouteName:   "Delhi Express",
		CurrentStop: "Ghaziabad",
		LastUpdated: time.Now().UTC(),
	}}
	router := newTrackingRouter(repo)

	body := `{"bus_number":"DL-1PC-1234","latitude":28.6692,"longitude":77.4538,"speed":45,"passenger_count":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/driver/location/update", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp LocationUpdateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Tracking.CurrentStop != "Ghaziabad" {
		t.Errorf("response = %+v", resp)
	}

	if repo.lastSample.BusNumber != "DL-1PC-1234" || repo.lastSample.Speed != 45 {
		t.Errorf("sample = %+v", repo.lastSample)
	}
	if !repo.lastSample.EngineOn {
		t.Error("engine_on should default to true when omitted")
	}
	if repo.lastSample.PassengerCount == nil || *repo.lastSample.PassengerCount != 12 {
		t.Errorf("passenger_count = %v, want 12", repo.lastSample.PassengerCount)
	}
	if repo.lastSample.DriverName != nil {
		t.Error("omitted driver_name should stay nil")
	}
}

func TestUpdateLocationValidation(t *testing.T) {
	router := newTrackingRouter(&stubTrackingRepo{})

	cases := []struct {
		name string
		body string
	}{
		{"missing bus number", `{"latitude":28.6,"longitude":77.2}`},
		{"missing latitude", `{"bus_number":"X","longitude":77.2,"speed":45}`},
		{"missing both coordinates", `{"bus_number":"X","speed":45}`},
		{"latitude out of range", `{"bus_number":"X","latitude":91,"longitude":77.2}`},
		{"negative speed", `{"bus_number":"X","latitude":28.6,"longitude":77.2,"speed":-3}`},
		{"malformed json", `{"bus_number":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/driver/location/update", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestUpdateLocationNotFound(t *testing.T) {
	repo := &stubTrackingRepo{err: fmt.Errorf("%w: bus HR-0000", models.ErrNotFound)}
	router := newTrackingRouter(repo)

	body := `{"bus_number":"HR-0000","latitude":28.6,"longitude":77.2}`
	req := httptest.NewRequest(http.MethodPost, "/api/driver/location/update", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if !strings.Contains(resp.Error, "HR-0000") {
		t.Errorf("error = %q, want bus number included", resp.Error)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := &stubTrackingRepo{status: &models.BusOperationalStatus{
		BusID:         1,
		CurrentStatus: models.StatusBreakdown,
	}}
	router := newTrackingRouter(repo)

	body := `{"bus_number":"DL-1PC-1234","status":"breakdown"}`
	req := httptest.NewRequest(http.MethodPost, "/api/driver/status/update", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if repo.lastStatus.Status != models.StatusBreakdown {
		t.Errorf("applied status = %s", repo.lastStatus.Status)
	}

	// Unknown status values never reach the repository.
	req = httptest.NewRequest(http.MethodPost, "/api/driver/status/update",
		strings.NewReader(`{"bus_number":"DL-1PC-1234","status":"exploded"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status code = %d, want 400", rec.Code)
	}
}

func TestUpdateStatusCountsErrors(t *testing.T) {
	repo := &stubTrackingRepo{status: &models.BusOperationalStatus{BusID: 1}}
	router, collector := newTrackingRouterWithMetrics(repo)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/driver/status/update", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	post(`{"bus_number":"DL-1PC-1234","status":"exploded"}`) // unknown value
	post(`{"bus_number":"DL-1PC-1234"}`)                     // missing status
	if got := testutil.ToFloat64(collector.StatusUpdateErrs); got != 2 {
		t.Errorf("status update errors = %v, want 2", got)
	}

	repo.err = fmt.Errorf("%w: bus HR-0000", models.ErrNotFound)
	post(`{"bus_number":"HR-0000","status":"active"}`)
	if got := testutil.ToFloat64(collector.StatusUpdateErrs); got != 3 {
		t.Errorf("status update errors after repo failure = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.StatusUpdates); got != 0 {
		t.Errorf("status updates = %v, want 0", got)
	}
}

func TestGetLiveBus(t *testing.T) {
	stopName := "Meerut"
	repo := &stubTrackingRepo{view: &models.LiveBusView{
		Bus:          models.Bus{BusNumber: "DL-1PC-1234"},
		NextStopName: &stopName,
	}}
	router := newTrackingRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/live/DL-1PC-1234", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view models.LiveBusView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Bus.BusNumber != "DL-1PC-1234" || view.NextStopName == nil || *view.NextStopName != "Meerut" {
		t.Errorf("view = %+v", view)
	}
}

func TestGetRouteOverview(t *testing.T) {
	repo := &stubTrackingRepo{overview: &models.RouteLiveOverview{
		Route: models.Route{RouteName: "Delhi Express"},
		Buses: []models.RouteLiveBus{},
	}}
	router := newTrackingRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/live/route/Delhi%20Express", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var overview models.RouteLiveOverview
	if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if overview.Route.RouteName != "Delhi Express" {
		t.Errorf("route = %+v", overview.Route)
	}
}
