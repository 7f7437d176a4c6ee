package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saurav7545/smartbus/models"
)

// PostgresUserRepository serves favorite routes and arrival notifications.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(db *PostgresDB) *PostgresUserRepository {
	return &PostgresUserRepository{pool: db.pool}
}

const favoriteColumns = `favorite_id, user_email, route_id, assignment_id, nickname,
	notification_enabled, notify_minutes_before, created_at, last_accessed`

func pgScanFavorite(row pgx.Row) (*models.FavoriteRoute, error) {
	var f models.FavoriteRoute
	err := row.Scan(&f.FavoriteID, &f.UserEmail, &f.RouteID, &f.AssignmentID, &f.Nickname,
		&f.NotificationEnabled, &f.NotifyMinutesBefore, &f.CreatedAt, &f.LastAccessed)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// AddFavorite saves a route for a user. Saving the same route twice is
// rejected as invalid input.
func (r *PostgresUserRepository) AddFavorite(ctx context.Context, userEmail string, routeID int64, assignmentID *int64, nickname string) (*models.FavoriteRoute, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM routes WHERE route_id = $1 AND is_active)`, routeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check route: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: route %d", models.ErrNotFound, routeID)
	}

	fav, err := pgScanFavorite(r.pool.QueryRow(ctx, `
		INSERT INTO favorite_routes (user_email, route_id, assignment_id, nickname)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_email, route_id) DO NOTHING
		RETURNING `+favoriteColumns,
		userEmail, routeID, assignmentID, nickname))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: route already in favorites", models.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	return fav, nil
}

// ListFavorites returns a user's saved routes, most recently used first.
func (r *PostgresUserRepository) ListFavorites(ctx context.Context, userEmail string) ([]models.FavoriteRoute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+favoriteColumns+`
		FROM favorite_routes
		WHERE user_email = $1
		ORDER BY last_accessed DESC`, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []models.FavoriteRoute
	for rows.Next() {
		fav, err := pgScanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, *fav)
	}
	return favorites, rows.Err()
}

// UpdateFavorite applies partial settings changes; nil fields keep their
// stored value. The favorite must belong to the given user.
func (r *PostgresUserRepository) UpdateFavorite(ctx context.Context, userEmail string, favoriteID int64, update models.FavoriteUpdate) (*models.FavoriteRoute, error) {
	fav, err := pgScanFavorite(r.pool.QueryRow(ctx, `
		UPDATE favorite_routes SET
			nickname = COALESCE($3, nickname),
			notification_enabled = COALESCE($4, notification_enabled),
			notify_minutes_before = COALESCE($5, notify_minutes_before),
			last_accessed = NOW()
		WHERE favorite_id = $1 AND user_email = $2
		RETURNING `+favoriteColumns,
		favoriteID, userEmail, update.Nickname, update.NotificationEnabled, update.NotifyMinutesBefore))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: favorite %d", models.ErrNotFound, favoriteID)
	}
	if err != nil {
		return nil, fmt.Errorf("update favorite: %w", err)
	}
	return fav, nil
}

// DeleteFavorite removes a user's saved route.
func (r *PostgresUserRepository) DeleteFavorite(ctx context.Context, userEmail string, favoriteID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM favorite_routes WHERE favorite_id = $1 AND user_email = $2`, favoriteID, userEmail)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: favorite %d", models.ErrNotFound, favoriteID)
	}
	return nil
}

// ArrivalNotifications synthesizes "bus arriving soon" events for the user's
// notification-enabled favorites: any actively tracked bus on a favorite
// route whose next-stop ETA falls inside the favorite's lead window.
func (r *PostgresUserRepository) ArrivalNotifications(ctx context.Context, userEmail string) ([]models.ArrivalNotification, error) {
	now := time.Now().UTC()

	rows, err := r.pool.Query(ctx, `
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
		WHERE f.user_email = $1 AND f.notification_enabled AND t.eta_next_stop IS NOT NULL
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
			eta          time.Time
			delayMinutes int
			currentStop  *string
			nextStop     *string
		)
		if err := rows.Scan(&favoriteID, &leadMinutes, &busNumber, &busName, &routeName,
			&eta, &delayMinutes, &currentStop, &nextStop); err != nil {
			return nil, fmt.Errorf("scan arrival candidate: %w", err)
		}

		minutes, ok := withinLeadWindow(eta, now, leadMinutes)
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

// PostgresAlertRepository persists and queries bus alerts. It is also the
// AlertEmitter used by the tracking pipeline.
type PostgresAlertRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAlertRepository(db *PostgresDB) *PostgresAlertRepository {
	return &PostgresAlertRepository{pool: db.pool}
}

// CreateAlert inserts an alert row. A zero AlertID is assigned here.
func (r *PostgresAlertRepository) CreateAlert(ctx context.Context, alert models.Alert) (*models.Alert, error) {
	if alert.AlertID == uuid.Nil {
		alert.AlertID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO bus_alerts (alert_id, alert_type, priority, title, message,
			assignment_id, route_id, target_user_email, is_active, is_sent, sent_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		alert.AlertID, alert.AlertType, alert.Priority, alert.Title, alert.Message,
		alert.AssignmentID, alert.RouteID, alert.TargetUserEmail,
		alert.IsActive, alert.IsSent, alert.SentAt, alert.ExpiresAt, alert.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	return &alert, nil
}

// Emit satisfies AlertEmitter.
func (r *PostgresAlertRepository) Emit(ctx context.Context, alert models.Alert) error {
	_, err := r.CreateAlert(ctx, alert)
	return err
}

// ListAlerts returns the newest active, unexpired alerts visible to a user:
// broadcast alerts plus those targeted at the given email. An empty alertType
// matches all types.
func (r *PostgresAlertRepository) ListAlerts(ctx context.Context, userEmail string, alertType models.AlertType) ([]models.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT alert_id, alert_type, priority, title, message,
			assignment_id, route_id, target_user_email, is_active, is_sent, sent_at, expires_at, created_at
		FROM bus_alerts
		WHERE is_active
			AND (expires_at IS NULL OR expires_at > NOW())
			AND (target_user_email = '' OR target_user_email = $1)
			AND ($2 = '' OR alert_type = $2)
		ORDER BY created_at DESC
		LIMIT 50`, userEmail, string(alertType))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.AlertID, &a.AlertType, &a.Priority, &a.Title, &a.Message,
			&a.AssignmentID, &a.RouteID, &a.TargetUserEmail, &a.IsActive, &a.IsSent,
			&a.SentAt, &a.ExpiresAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
