// Package tray models the OS notification tray. The tray is shadow state the
// app does not own: the OS or the user may add or remove entries at any time.
package tray

import (
	"context"
	"errors"

	"github.com/nhle/fusion-prompts/internal/model"
)

// ErrPermissionDenied is returned when the user has not allowed notifications.
var ErrPermissionDenied = errors.New("notification permission denied")

// Tray is the boundary to the OS notification subsystem.
type Tray interface {
	// RequestPermission asks the OS for permission to present notifications.
	RequestPermission(ctx context.Context) error

	// RegisterCategories installs the notification categories and their actions.
	RegisterCategories(ctx context.Context, categories []model.Category) error

	// Presented lists the notifications currently shown to the user.
	Presented(ctx context.Context) ([]model.TrayNotification, error)

	// Present shows a notification.
	Present(ctx context.Context, n model.TrayNotification) error

	// Dismiss removes a notification from the tray. Dismissing an id that is
	// not presented is not an error.
	Dismiss(ctx context.Context, notificationID string) error
}

// PresentedIDs returns the ids currently presented in t, as a set.
func PresentedIDs(ctx context.Context, t Tray) (map[string]bool, error) {
	presented, err := t.Presented(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(presented))
	for _, n := range presented {
		ids[n.ID] = true
	}
	return ids, nil
}
