package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/fusion-prompts/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateResponse is returned by AppendResponse when a response for
	// the same prompt and trigger timestamp was already recorded.
	ErrDuplicateResponse = errors.New("response already recorded")
)

// UnavailableError indicates that the database itself failed while running
// an operation. Callers should not retry automatically.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err (or any error in its chain) is an
// UnavailableError.
func IsUnavailable(err error) bool {
	var unavailableErr *UnavailableError
	return errors.As(err, &unavailableErr)
}

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}

// ResponseFilter controls filtering and pagination for response queries.
type ResponseFilter struct {
	PromptUUID *string // nil for all prompts
	Since      *int64  // minimum responseTimestamp (unix seconds)
	Limit      int
	Offset     int
}

// Store defines the persistence interface for prompts, the notifications
// issued for them, and the responses recorded against them.
type Store interface {
	// CreateSchema creates any missing tables. It never drops data and is
	// safe to call repeatedly.
	CreateSchema(ctx context.Context) error

	// === Prompts ===

	SavePrompt(ctx context.Context, prompt model.Prompt) error
	GetPrompt(ctx context.Context, uuid string) (*model.Prompt, error)
	GetPrompts(ctx context.Context) ([]model.Prompt, error)

	// === Issued notifications ===

	RecordIssuedNotification(ctx context.Context, promptUUID, notificationID string) error
	RecordPresentedNotification(ctx context.Context, promptUUID, notificationID string, presentedAt int64) error
	GetIssuedNotification(ctx context.Context, notificationID string) (*model.IssuedNotification, error)
	LookupPromptForNotification(ctx context.Context, notificationID string) (string, error)
	ListNotificationIDsForPrompt(ctx context.Context, promptUUID string) ([]string, error)
	RemoveNotificationRecord(ctx context.Context, notificationID string) error

	// === Responses ===

	AppendResponse(ctx context.Context, response *model.Response) error
	GetResponses(ctx context.Context, filter ResponseFilter) ([]model.Response, error)
	CountResponses(ctx context.Context) (int, error)

	// Reset deletes every prompt, notification record and response.
	Reset(ctx context.Context) error
}
