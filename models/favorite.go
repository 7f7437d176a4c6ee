package models

import "time"

// FavoriteRoute is a user's saved route (favorite_routes). Users are
// identified by email; there is no account system behind this.
type FavoriteRoute struct {
	FavoriteID          int64     `db:"favorite_id" json:"id"`
	UserEmail           string    `db:"user_email" json:"user_email"`
	RouteID             int64     `db:"route_id" json:"route_id"`
	AssignmentID        *int64    `db:"assignment_id" json:"assignment_id"`
	Nickname            string    `db:"nickname" json:"nickname"`
	NotificationEnabled bool      `db:"notification_enabled" json:"notification_enabled"`
	NotifyMinutesBefore int       `db:"notify_minutes_before" json:"notification_time_before"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	LastAccessed        time.Time `db:"last_accessed" json:"last_accessed"`
}

// FavoriteUpdate carries the mutable favorite settings; nil fields are left
// unchanged.
type FavoriteUpdate struct {
	Nickname            *string
	NotificationEnabled *bool
	NotifyMinutesBefore *int
}

// ArrivalNotification is a synthesized "bus arriving soon" event for a
// favorite with notifications enabled.
type ArrivalNotification struct {
	FavoriteID  int64  `json:"favorite_id"`
	BusNumber   string `json:"bus_number"`
	BusName     string `json:"bus_name"`
	RouteName   string `json:"route_name"`
	CurrentStop string `json:"current_stop"`
	NextStop    string `json:"next_stop"`
	ETAMinutes  int    `json:"eta_minutes"`
	DelayStatus string `json:"delay_status"`
}
