package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType enumerates bus_alerts.alert_type values.
type AlertType string

const (
	AlertArrival     AlertType = "arrival"
	AlertDelay       AlertType = "delay"
	AlertBreakdown   AlertType = "breakdown"
	AlertRouteChange AlertType = "route_change"
	AlertMaintenance AlertType = "maintenance"
	AlertTraffic     AlertType = "traffic"
	AlertWeather     AlertType = "weather"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertArrival, AlertDelay, AlertBreakdown, AlertRouteChange, AlertMaintenance, AlertTraffic, AlertWeather:
		return true
	}
	return false
}

// AlertPriority enumerates bus_alerts.priority values.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p AlertPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Alert is an immutable-after-creation notification row (bus_alerts).
// An empty TargetUserEmail means broadcast.
type Alert struct {
	AlertID         uuid.UUID     `db:"alert_id" json:"id"`
	AlertType       AlertType     `db:"alert_type" json:"type"`
	Priority        AlertPriority `db:"priority" json:"priority"`
	Title           string        `db:"title" json:"title"`
	Message         string        `db:"message" json:"message"`
	AssignmentID    *int64        `db:"assignment_id" json:"assignment_id"`
	RouteID         *int64        `db:"route_id" json:"route_id"`
	TargetUserEmail string        `db:"target_user_email" json:"target_user"`
	IsActive        bool          `db:"is_active" json:"is_active"`
	IsSent          bool          `db:"is_sent" json:"is_sent"`
	SentAt          *time.Time    `db:"sent_at" json:"sent_at"`
	ExpiresAt       *time.Time    `db:"expires_at" json:"expires_at"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}
