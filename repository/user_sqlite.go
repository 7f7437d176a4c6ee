package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saurav7545/smartbus/models"
)

// SQLiteUserRepository serves favorite routes and arrival notifications.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func sqScanFavorite(row sqlRow) (*models.FavoriteRoute, error) {
	var (
		f            models.FavoriteRoute
		createdAt    string
		lastAccessed string
	)
	err := row.Scan(&f.FavoriteID, &f.UserEmail, &f.RouteID, &f.AssignmentID, &f.Nickname,
		&f.NotificationEnabled, &f.NotifyMinutesBefore, &createdAt, &lastAccessed)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(createdAt)
	f.LastAccessed = parseTime(lastAccessed)
	return &f, nil
}

// AddFavorite saves a route for a user. Saving the same route twice is
// rejected as invalid input.
func (r *SQLiteUserRepository) AddFavorite(ctx context.Context, userEmail string, routeID int64, assignmentID *int64, nickname string) (*models.FavoriteRoute, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM routes WHERE route_id = ? AND is_active)`, routeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check route: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: route %d", models.ErrNotFound, routeID)
	}

	now := timeToString(time.Now().UTC())
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO favorite_routes (user_email, route_id, assignment_id, nickname, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userEmail, routeID, assignmentID, nickname, now, now)
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: route already in favorites", models.ErrInvalidInput)
	}

	favoriteID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	return r.favoriteByID(ctx, favoriteID)
}

func (r *SQLiteUserRepository) favoriteByID(ctx context.Context, favoriteID int64) (*models.FavoriteRoute, error) {
	fav, err := sqScanFavorite(r.db.QueryRowContext(ctx, `
		SELECT `+favoriteColumns+`
		FROM favorite_routes WHERE favorite_id = ?`, favoriteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: favorite %d", models.ErrNotFound, favoriteID)
	}
	if err != nil {
		return nil, fmt.Errorf("load favorite: %w", err)
	}
	return fav, nil
}

// ListFavorites returns a user's saved routes, most recently used first.
func (r *SQLiteUserRepository) ListFavorites(ctx context.Context, userEmail string) ([]models.FavoriteRoute, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+favoriteColumns+`
		FROM favorite_routes
		WHERE user_email = ?
		ORDER BY last_accessed DESC`, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []models.FavoriteRoute
	for rows.Next() {
		fav, err := sqScanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, *fav)
	}
	return favorites, rows.Err()
}

// UpdateFavorite applies partial settings changes; nil fields keep their
// stored value. The favorite must belong to the given user.
func (r *SQLiteUserRepository) UpdateFavorite(ctx context.Context, userEmail string, favoriteID int64, update models.FavoriteUpdate) (*models.FavoriteRoute, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE favorite_routes SET
			nickname = COALESCE(?, nickname),
			notification_enabled = COALESCE(?, notification_enabled),
			notify_minutes_before = COALESCE(?, notify_minutes_before),
			last_accessed = ?
		WHERE favorite_id = ? AND user_email = ?`,
		update.Nickname, update.NotificationEnabled, update.NotifyMinutesBefore,
		timeToString(time.Now().UTC()), favoriteID, userEmail)
	if err != nil {
		return nil, fmt.Errorf("update favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update favorite: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: favorite %d", models.ErrNotFound, favoriteID)
	}
	return r.favoriteByID(ctx, favoriteID)
}

// DeleteFavorite removes a user's saved route.
func (r *SQLiteUserRepository) DeleteFavorite(ctx context.Context, userEmail string, favoriteID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM favorite_routes WHERE favorite_id = ? AND user_email = ?`, favoriteID, userEmail)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: favorite %d", models.ErrNotFound, favoriteID)
	}
	return nil
}

// ArrivalNotifications synthesizes "bus arriving soon" events for the user's
// notification-enabled favorites.
func (r *SQLiteUserRepository) ArrivalNotifications(ctx context.Context, userEmail string) ([]models.ArrivalNotification, error) {
	now := time.Now().UTC()

	rows, err := r.db.QueryContext(ctx, `
		SELECT f.favorite_id, f.notify_minutes_before,
			b.bus_number, b.bus_name, rt.route_name,
			t.eta_next_stop, t.delay_minutes,
			cs.stop_name, ns.stop_name
		FROM favorite_routes f
		JOIN routes rt ON rt.route_id = f.route_id
		JOIN bus_routes a ON a.route_id = f.route_id AND a.is_operational
		JOIN buses b ON b.bus_id = a.bus_id
		JOIN live_route_tracking t ON t.assignment_id = a.assignment_id AND t.is_active
		LEFT JOIN route_stops cs ON cs.stop_id = t.current_stop_id
		LEFT JOIN route_stops ns ON ns.stop_id = t.next_stop_id
		WHERE f.user_email = ? AND f.notification_enabled AND t.eta_next_stop IS NOT NULL
		ORDER BY t.eta_next_stop`, userEmail)
	if err != nil {
		return nil, fmt.Errorf("load arrival candidates: %w", err)
	}
	defer rows.Close()

	var notifications []models.ArrivalNotification
	for rows.Next() {
		var (
			favoriteID   int64
			leadMinutes  int
			busNumber    string
			busName      string
			routeName    string
			etaStr       string
			delayMinutes int
			currentStop  *string
			nextStop     *string
		)
		if err := rows.Scan(&favoriteID, &leadMinutes, &busNumber, &busName, &routeName,
			&etaStr, &delayMinutes, &currentStop, &nextStop); err != nil {
			return nil, fmt.Errorf("scan arrival candidate: %w", err)
		}

		minutes, ok := withinLeadWindow(parseTime(etaStr), now, leadMinutes)
		if !ok {
			continue
		}

		n := models.ArrivalNotification{
			FavoriteID:  favoriteID,
			BusNumber:   busNumber,
			BusName:     busName,
			RouteName:   routeName,
			CurrentStop: enRouteLabel,
			NextStop:    destinationLabel,
			ETAMinutes:  minutes,
			DelayStatus: models.DelayStatusFor(delayMinutes),
		}
		if currentStop != nil {
			n.CurrentStop = *currentStop
		}
		if nextStop != nil {
			n.NextStop = *nextStop
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// SQLiteAlertRepository persists and queries bus alerts. It is also the
// AlertEmitter used by the tracking pipeline.
type SQLiteAlertRepository struct {
	db *sql.DB
}

func NewSQLiteAlertRepository(db *sql.DB) *SQLiteAlertRepository {
	return &SQLiteAlertRepository{db: db}
}

// CreateAlert inserts an alert row. A zero AlertID is assigned here.
func (r *SQLiteAlertRepository) CreateAlert(ctx context.Context, alert models.Alert) (*models.Alert, error) {
	if alert.AlertID == uuid.Nil {
		alert.AlertID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bus_alerts (alert_id, alert_type, priority, title, message,
			assignment_id, route_id, target_user_email, is_active, is_sent, sent_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.AlertID.String(), string(alert.AlertType), string(alert.Priority), alert.Title, alert.Message,
		alert.AssignmentID, alert.RouteID, alert.TargetUserEmail,
		alert.IsActive, alert.IsSent, timePtrToString(alert.SentAt), timePtrToString(alert.ExpiresAt),
		timeToString(alert.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	return &alert, nil
}

// Emit satisfies AlertEmitter.
func (r *SQLiteAlertRepository) Emit(ctx context.Context, alert models.Alert) error {
	_, err := r.CreateAlert(ctx, alert)
	return err
}

// ListAlerts returns the newest active, unexpired alerts visible to a user:
// broadcast alerts plus those targeted at the given email. An empty alertType
// matches all types.
func (r *SQLiteAlertRepository) ListAlerts(ctx context.Context, userEmail string, alertType models.AlertType) ([]models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT alert_id, alert_type, priority, title, message,
			assignment_id, route_id, target_user_email, is_active, is_sent, sent_at, expires_at, created_at
		FROM bus_alerts
		WHERE is_active
			AND (expires_at IS NULL OR datetime(expires_at) > datetime('now'))
			AND (target_user_email = '' OR target_user_email = ?)
			AND (? = '' OR alert_type = ?)
		ORDER BY created_at DESC
		LIMIT 50`, userEmail, string(alertType), string(alertType))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var (
			a         models.Alert
			alertID   string
			sentAt    *string
			expiresAt *string
			createdAt string
		)
		if err := rows.Scan(&alertID, &a.AlertType, &a.Priority, &a.Title, &a.Message,
			&a.AssignmentID, &a.RouteID, &a.TargetUserEmail, &a.IsActive, &a.IsSent,
			&sentAt, &expiresAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		id, err := uuid.Parse(alertID)
		if err != nil {
			return nil, fmt.Errorf("parse alert id %q: %w", alertID, err)
		}
		a.AlertID = id
		a.SentAt = parseTimeString(sentAt)
		a.ExpiresAt = parseTimeString(expiresAt)
		a.CreatedAt = parseTime(createdAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
