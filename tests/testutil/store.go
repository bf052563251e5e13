package testutil

import (
	"context"
	"testing"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with the schema applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedPrompt saves a prompt with the given UUID and response type and
// records the listed notification ids for it, in order.
func SeedPrompt(
	t *testing.T,
	s store.Store,
	uuid string,
	responseType model.ResponseType,
	notificationIDs ...string,
) model.Prompt {
	t.Helper()

	ctx := context.Background()
	p := model.Prompt{
		UUID:         uuid,
		PromptText:   "How are you feeling?",
		ResponseType: responseType,
		Schedule: model.NotificationSchedule{
			Days:        map[string]bool{"Monday": true},
			StartTime:   "09:00",
			EndTime:     "17:00",
			CountPerDay: 2,
		},
	}
	if err := s.SavePrompt(ctx, p); err != nil {
		t.Fatalf("saving prompt %s: %v", uuid, err)
	}
	for _, id := range notificationIDs {
		if err := s.RecordIssuedNotification(ctx, uuid, id); err != nil {
			t.Fatalf("recording notification %s: %v", id, err)
		}
	}
	return p
}
