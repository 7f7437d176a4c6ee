package tracking

import (
	"strings"
	"testing"
	"time"

	"github.com/saurav7545/smartbus/models"
)

func TestNewDelayAlertPriorities(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	alert := NewDelayAlert("DL-1234", "Delhi Express", 7, 3, 15, now)
	if alert.Priority != models.PriorityMedium {
		t.Errorf("priority at 15 min = %s, want medium", alert.Priority)
	}
	if alert.AlertType != models.AlertDelay {
		t.Errorf("type = %s, want delay", alert.AlertType)
	}
	if alert.ExpiresAt == nil || !alert.ExpiresAt.Equal(now.Add(2*time.Hour)) {
		t.Errorf("expires_at = %v, want exactly now+2h", alert.ExpiresAt)
	}
	if !strings.Contains(alert.Message, "15 minutes") {
		t.Errorf("message %q missing delay amount", alert.Message)
	}
	if alert.AssignmentID == nil || *alert.AssignmentID != 7 {
		t.Errorf("assignment_id = %v, want 7", alert.AssignmentID)
	}

	if a := NewDelayAlert("DL-1234", "Delhi Express", 7, 3, 25, now); a.Priority != models.PriorityHigh {
		t.Errorf("priority at 25 min = %s, want high", a.Priority)
	}
}

func TestNewStatusAlert(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	alert, ok := NewStatusAlert("DL-1234", models.StatusBreakdown, now)
	if !ok {
		t.Fatal("breakdown should produce an alert")
	}
	if alert.Priority != models.PriorityCritical || alert.AlertType != models.AlertBreakdown {
		t.Errorf("breakdown alert = %s/%s, want breakdown/critical", alert.AlertType, alert.Priority)
	}
	if alert.ExpiresAt == nil || !alert.ExpiresAt.Equal(now.Add(6*time.Hour)) {
		t.Errorf("expires_at = %v, want now+6h", alert.ExpiresAt)
	}

	alert, ok = NewStatusAlert("DL-1234", models.StatusMaintenance, now)
	if !ok || alert.Priority != models.PriorityHigh || alert.AlertType != models.AlertMaintenance {
		t.Errorf("maintenance alert = %s/%s ok=%v, want maintenance/high", alert.AlertType, alert.Priority, ok)
	}

	if _, ok := NewStatusAlert("DL-1234", models.StatusActive, now); ok {
		t.Error("active status should not produce an alert")
	}
}
