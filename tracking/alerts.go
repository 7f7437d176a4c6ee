package tracking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saurav7545/smartbus/models"
)

// Alert emission thresholds and lifetimes.
const (
	// DelayAlertAfterMinutes is the delay beyond which a delay alert is
	// emitted on every qualifying update. There is no de-duplication
	// window; repeated breaches emit repeated alerts.
	DelayAlertAfterMinutes = 10

	// DelayAlertHighMinutes upgrades the delay alert priority to high.
	DelayAlertHighMinutes = 20

	DelayAlertTTL  = 2 * time.Hour
	StatusAlertTTL = 6 * time.Hour
)

// NewDelayAlert builds the broadcast alert emitted when a tracked bus
// crosses the delay alert threshold.
func NewDelayAlert(busNumber, routeName string, assignmentID, routeID int64, delayMinutes int, now time.Time) models.Alert {
	priority := models.PriorityMedium
	if delayMinutes >= DelayAlertHighMinutes {
		priority = models.PriorityHigh
	}
	expires := now.Add(DelayAlertTTL)
	return models.Alert{
		AlertID:      uuid.New(),
		AlertType:    models.AlertDelay,
		Priority:     priority,
		Title:        fmt.Sprintf("Bus %s Delayed", busNumber),
		Message:      fmt.Sprintf("Bus %s on %s is delayed by %d minutes.", busNumber, routeName, delayMinutes),
		AssignmentID: &assignmentID,
		RouteID:      &routeID,
		IsActive:     true,
		ExpiresAt:    &expires,
		CreatedAt:    now,
	}
}

// NewStatusAlert builds the alert for a transition into breakdown or
// maintenance. The second return value is false for statuses that do not
// warrant an alert.
func NewStatusAlert(busNumber string, status models.OperationalStatus, now time.Time) (models.Alert, bool) {
	var (
		alertType models.AlertType
		priority  models.AlertPriority
		title     string
		message   string
	)
	switch status {
	case models.StatusBreakdown:
		alertType = models.AlertBreakdown
		priority = models.PriorityCritical
		title = fmt.Sprintf("Bus %s Breakdown", busNumber)
		message = fmt.Sprintf("Bus %s has broken down and is temporarily out of service.", busNumber)
	case models.StatusMaintenance:
		alertType = models.AlertMaintenance
		priority = models.PriorityHigh
		title = fmt.Sprintf("Bus %s Maintenance", busNumber)
		message = fmt.Sprintf("Bus %s is under maintenance and temporarily unavailable.", busNumber)
	default:
		return models.Alert{}, false
	}

	expires := now.Add(StatusAlertTTL)
	return models.Alert{
		AlertID:   uuid.New(),
		AlertType: alertType,
		Priority:  priority,
		Title:     title,
		Message:   message,
		IsActive:  true,
		ExpiresAt: &expires,
		CreatedAt: now,
	}, true
}
