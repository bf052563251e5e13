package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/fusion-prompts/internal/model"
)

// RecordIssuedNotification appends a mapping from an OS notification id to
// the prompt it was issued for, without a presentation time.
func (s *SQLiteStore) RecordIssuedNotification(
	ctx context.Context,
	promptUUID string,
	notificationID string,
) error {
	return s.RecordPresentedNotification(ctx, promptUUID, notificationID, 0)
}

// RecordPresentedNotification appends a mapping from an OS notification id
// to its prompt together with the unix time it was presented. The time is
// the trigger timestamp of any answer given through that notification.
func (s *SQLiteStore) RecordPresentedNotification(
	ctx context.Context,
	promptUUID string,
	notificationID string,
	presentedAt int64,
) error {
	if strings.TrimSpace(promptUUID) == "" {
		return fmt.Errorf("prompt uuid must not be empty")
	}
	if strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("notification id must not be empty")
	}

	return s.withTx(ctx, "record notification", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prompt_notifications (promptUuid, notificationId, presentedAt)
			VALUES (?, ?, ?)`,
			promptUUID, notificationID, presentedAt,
		)
		if err != nil {
			return unavailable(fmt.Sprintf("recording notification %s", notificationID), err)
		}
		return nil
	})
}

// GetIssuedNotification returns the most recent record for notificationID,
// or ErrNotFound.
func (s *SQLiteStore) GetIssuedNotification(
	ctx context.Context,
	notificationID string,
) (*model.IssuedNotification, error) {
	var n model.IssuedNotification
	err := s.db.GetContext(ctx, &n, `
		SELECT id, promptUuid, notificationId, presentedAt FROM prompt_notifications
		WHERE notificationId = ?
		ORDER BY id DESC
		LIMIT 1`, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("getting notification %s", notificationID), err)
	}
	return &n, nil
}

// LookupPromptForNotification returns the UUID of the prompt that owns
// notificationID, or ErrNotFound. If the OS reused an id, the most recently
// recorded mapping wins.
func (s *SQLiteStore) LookupPromptForNotification(
	ctx context.Context,
	notificationID string,
) (string, error) {
	var promptUUID string
	err := s.db.GetContext(ctx, &promptUUID, `
		SELECT promptUuid FROM prompt_notifications
		WHERE notificationId = ?
		ORDER BY id DESC
		LIMIT 1`, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	if err != nil {
		return "", unavailable(fmt.Sprintf("looking up notification %s", notificationID), err)
	}
	return promptUUID, nil
}

// ListNotificationIDsForPrompt returns the notification ids recorded for a
// prompt in insertion order.
func (s *SQLiteStore) ListNotificationIDsForPrompt(
	ctx context.Context,
	promptUUID string,
) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT notificationId FROM prompt_notifications
		WHERE promptUuid = ?
		ORDER BY id`, promptUUID)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("listing notifications for prompt %s", promptUUID), err)
	}
	return ids, nil
}

// RemoveNotificationRecord deletes the mapping for notificationID. Removing
// an id that is already gone is not an error.
func (s *SQLiteStore) RemoveNotificationRecord(
	ctx context.Context,
	notificationID string,
) error {
	return s.withTx(ctx, "remove notification", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM prompt_notifications WHERE notificationId = ?", notificationID)
		if err != nil {
			return unavailable(fmt.Sprintf("removing notification %s", notificationID), err)
		}
		return nil
	})
}
