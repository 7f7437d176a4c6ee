package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/saurav7545/smartbus/metrics"
	"github.com/saurav7545/smartbus/models"
)

type stubUserRepo struct {
	favorite      *models.FavoriteRoute
	favorites     []models.FavoriteRoute
	notifications []models.ArrivalNotification
	err           error

	deletedID int64
}

func (s *stubUserRepo) AddFavorite(context.Context, string, int64, *int64, string) (*models.FavoriteRoute, error) {
	return s.favorite, s.err
}

func (s *stubUserRepo) ListFavorites(context.Context, string) ([]models.FavoriteRoute, error) {
	return s.favorites, s.err
}

func (s *stubUserRepo) UpdateFavorite(context.Context, string, int64, models.FavoriteUpdate) (*models.FavoriteRoute, error) {
	return s.favorite, s.err
}

func (s *stubUserRepo) DeleteFavorite(_ context.Context, _ string, favoriteID int64) error {
	s.deletedID = favoriteID
	return s.err
}

func (s *stubUserRepo) ArrivalNotifications(context.Context, string) ([]models.ArrivalNotification, error) {
	return s.notifications, s.err
}

func newFavoriteRouter(repo UserRepository) http.Handler {
	h := NewFavoriteHandler(repo)
	r := chi.NewRouter()
	r.Post("/api/user/favorites", h.AddFavorite)
	r.Get("/api/user/favorites", h.ListFavorites)
	r.Delete("/api/user/favorites/{favoriteId}", h.DeleteFavorite)
	r.Get("/api/user/notifications/arrivals", h.GetArrivalNotifications)
	return r
}

func TestAddFavoriteValidation(t *testing.T) {
	router := newFavoriteRouter(&stubUserRepo{})

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"route_id":1}`},
		{"malformed email", `{"user_email":"not-an-email","route_id":1}`},
		{"missing route", `{"user_email":"rider@example.com"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/user/favorites", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAddFavoriteCreated(t *testing.T) {
	repo := &stubUserRepo{favorite: &models.FavoriteRoute{FavoriteID: 7, RouteID: 1}}
	router := newFavoriteRouter(repo)

	body := `{"user_email":"rider@example.com","route_id":1,"nickname":"office"}`
	req := httptest.NewRequest(http.MethodPost, "/api/user/favorites", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteFavoriteRequiresEmail(t *testing.T) {
	repo := &stubUserRepo{}
	router := newFavoriteRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/user/favorites/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status without email = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/user/favorites/7?user_email=rider@example.com", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if repo.deletedID != 7 {
		t.Errorf("deleted favorite = %d, want 7", repo.deletedID)
	}
}

func TestGetArrivalNotifications(t *testing.T) {
	repo := &stubUserRepo{notifications: []models.ArrivalNotification{
		{BusNumber: "DL-1PC-1234", NextStop: "Meerut", ETAMinutes: 6},
	}}
	router := newFavoriteRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/user/notifications/arrivals?user_email=rider@example.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ArrivalNotificationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Notifications[0].NextStop != "Meerut" {
		t.Errorf("response = %+v", resp)
	}
}

type stubAlertRepo struct {
	alerts  []models.Alert
	created *models.Alert
	err     error
}

func (s *stubAlertRepo) CreateAlert(_ context.Context, alert models.Alert) (*models.Alert, error) {
	if s.created == nil {
		s.created = &alert
	}
	return s.created, s.err
}

func (s *stubAlertRepo) ListAlerts(context.Context, string, models.AlertType) ([]models.Alert, error) {
	return s.alerts, s.err
}

func newAlertRouter(repo AlertRepository) http.Handler {
	h := NewAlertHandler(repo, metrics.NewCollector())
	r := chi.NewRouter()
	r.Get("/api/alerts", h.ListAlerts)
	r.Post("/api/alerts", h.CreateAlert)
	return r
}

func TestCreateAlertDefaultsAndValidation(t *testing.T) {
	repo := &stubAlertRepo{}
	router := newAlertRouter(repo)

	body := `{"type":"traffic","title":"Jam on NH-58","message":"Avoid the Meerut bypass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/alerts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if repo.created.Priority != models.PriorityMedium {
		t.Errorf("default priority = %s, want medium", repo.created.Priority)
	}
	if !repo.created.IsActive {
		t.Error("created alert should be active")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/alerts",
		strings.NewReader(`{"type":"rumor","title":"x","message":"y"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", rec.Code)
	}
}

func TestListAlertsRejectsUnknownType(t *testing.T) {
	router := newAlertRouter(&stubAlertRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?type=rumor", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
