// Package presenter surfaces prompt notifications so that at most one
// notification per prompt is live in the tray at a time.
package presenter

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/store"
	"github.com/nhle/fusion-prompts/internal/tray"
)

// Decision tells the OS how to display a notification that arrives while the
// app is in the foreground.
type Decision struct {
	ShowAlert bool
	PlaySound bool
	SetBadge  bool
}

// defaultDecision shows the alert silently, without touching the badge.
var defaultDecision = Decision{ShowAlert: true}

// Presenter retires superseded notifications before presenting new ones.
type Presenter struct {
	store store.Store
	tray  tray.Tray
	log   zerolog.Logger
}

// New creates a Presenter.
func New(s store.Store, t tray.Tray, log zerolog.Logger) *Presenter {
	return &Presenter{
		store: s,
		tray:  t,
		log:   log.With().Str("component", "presenter").Logger(),
	}
}

// Present records n as issued for its prompt, dismisses every other
// presented notification of that prompt, and then shows n. The new
// notification is shown only after the dismissals have been attempted. If
// the tray refuses n, its record is removed again.
//
// A user tapping a superseded notification just before its dismissal lands
// can still answer it; its record is kept so that answer resolves.
func (p *Presenter) Present(ctx context.Context, n model.TrayNotification) error {
	if n.PromptUUID == "" {
		return fmt.Errorf("notification %s has no prompt", n.ID)
	}

	var presentedAt int64
	if !n.PresentedAt.IsZero() {
		presentedAt = n.PresentedAt.Unix()
	}
	if err := p.store.RecordPresentedNotification(ctx, n.PromptUUID, n.ID, presentedAt); err != nil {
		return fmt.Errorf("recording notification %s: %w", n.ID, err)
	}

	if _, err := p.Retire(ctx, n.PromptUUID, n.ID); err != nil {
		// Presenting anyway keeps the prompt visible; the next event for this
		// prompt retries the cleanup.
		p.log.Warn().Err(err).Str("notification", n.ID).Msg("retiring superseded notifications")
	}

	if err := p.tray.Present(ctx, n); err != nil {
		// Never shown, so nothing can be tapped.
		if rmErr := p.store.RemoveNotificationRecord(ctx, n.ID); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return fmt.Errorf("presenting notification %s: %w", n.ID, err)
	}
	return nil
}

// HandleArrival runs when the OS hands the app a notification that is about
// to be shown. It resolves the owning prompt and retires the prompt's other
// presented notifications. Unknown notifications are shown unchanged.
func (p *Presenter) HandleArrival(ctx context.Context, notificationID string) (Decision, error) {
	promptUUID, err := p.store.LookupPromptForNotification(ctx, notificationID)
	if errors.Is(err, store.ErrNotFound) {
		p.log.Debug().Str("notification", notificationID).Msg("arrival for unknown notification")
		return defaultDecision, nil
	}
	if err != nil {
		return defaultDecision, err
	}

	if _, err := p.Retire(ctx, promptUUID, notificationID); err != nil {
		return defaultDecision, err
	}
	return defaultDecision, nil
}

// Retire dismisses every presented notification recorded for promptUUID
// except keepID, and returns the ids it dismissed. Individual dismiss
// failures are logged and joined into the returned error; the remaining
// notifications are still attempted.
func (p *Presenter) Retire(ctx context.Context, promptUUID, keepID string) ([]string, error) {
	presented, err := tray.PresentedIDs(ctx, p.tray)
	if err != nil {
		return nil, fmt.Errorf("listing presented notifications: %w", err)
	}

	known, err := p.store.ListNotificationIDsForPrompt(ctx, promptUUID)
	if err != nil {
		return nil, err
	}

	var (
		dismissed []string
		errs      []error
	)
	for _, id := range known {
		if id == keepID || !presented[id] {
			continue
		}
		// The same id may be recorded twice; dismiss it once.
		delete(presented, id)

		if err := p.tray.Dismiss(ctx, id); err != nil {
			p.log.Warn().Err(err).Str("notification", id).Msg("dismissing notification")
			errs = append(errs, fmt.Errorf("dismissing %s: %w", id, err))
			continue
		}
		dismissed = append(dismissed, id)
	}

	if len(dismissed) > 0 {
		p.log.Debug().Strs("dismissed", dismissed).Msg("retired superseded notifications")
	}
	return dismissed, errors.Join(errs...)
}
