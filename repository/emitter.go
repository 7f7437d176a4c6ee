package repository

import (
	"context"

	"github.com/saurav7545/smartbus/models"
)

// AlertEmitter receives alerts produced by the tracking pipeline. Emission
// happens after the tracking transaction commits; a failed emit is logged by
// the caller and never fails the parent update.
type AlertEmitter interface {
	Emit(ctx context.Context, alert models.Alert) error
}
