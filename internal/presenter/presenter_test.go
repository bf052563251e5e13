package presenter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/presenter"
	"github.com/nhle/fusion-prompts/internal/store"
	"github.com/nhle/fusion-prompts/internal/tray"
	"github.com/nhle/fusion-prompts/tests/testutil"
)

func notification(id, promptUUID string) model.TrayNotification {
	return model.TrayNotification{
		ID:          id,
		PromptUUID:  promptUUID,
		Category:    model.ResponseTypeYesNo,
		PresentedAt: time.Unix(1700000000, 0),
	}
}

func presentedIDs(t *testing.T, m *tray.Memory) []string {
	t.Helper()
	presented, err := m.Presented(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(presented))
	for _, n := range presented {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestPresentKeepsOneLiveNotificationPerPrompt(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	m := tray.NewMemory(true)
	p := presenter.New(s, m, zerolog.Nop())

	testutil.SeedPrompt(t, s, "P1", model.ResponseTypeYesNo)
	testutil.SeedPrompt(t, s, "P2", model.ResponseTypeText)

	for _, n := range []model.TrayNotification{
		notification("N1", "P1"),
		notification("M1", "P2"),
		notification("N2", "P1"),
		notification("N3", "P1"),
		notification("M2", "P2"),
	} {
		require.NoError(t, p.Present(ctx, n))

		perPrompt := make(map[string]int)
		presented, err := m.Presented(ctx)
		require.NoError(t, err)
		for _, live := range presented {
			perPrompt[live.PromptUUID]++
		}
		for promptUUID, count := range perPrompt {
			assert.LessOrEqual(t, count, 1, "prompt %s after presenting %s", promptUUID, n.ID)
		}
	}

	assert.ElementsMatch(t, []string{"N3", "M2"}, presentedIDs(t, m))

	ids, err := s.ListNotificationIDsForPrompt(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"N1", "N2", "N3"}, ids, "superseded records are kept")
}

func TestLaterNotificationSupersedesEarlierNeverReverse(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	m := tray.NewMemory(true)
	p := presenter.New(s, m, zerolog.Nop())

	require.NoError(t, p.Present(ctx, notification("N1", "P1")))
	assert.Empty(t, m.Dismissed())

	require.NoError(t, p.Present(ctx, notification("N2", "P1")))
	assert.Equal(t, []string{"N1"}, m.Dismissed())
	assert.Equal(t, []string{"N2"}, presentedIDs(t, m))
}

func TestPresentIgnoresNotificationsGoneFromTray(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	m := tray.NewMemory(true)
	p := presenter.New(s, m, zerolog.Nop())

	require.NoError(t, p.Present(ctx, notification("N1", "P1")))
	m.Swipe("N1")

	require.NoError(t, p.Present(ctx, notification("N2", "P1")))
	assert.Empty(t, m.Dismissed())
}

func TestPresentStillShowsWhenDismissFails(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	m := tray.NewMemory(true)
	p := presenter.New(s, m, zerolog.Nop())

	require.NoError(t, p.Present(ctx, notification("N1", "P1")))
	m.FailDismiss = func(string) error { return errors.New("tray busy") }

	require.NoError(t, p.Present(ctx, notification("N2", "P1")))
	assert.ElementsMatch(t, []string{"N1", "N2"}, presentedIDs(t, m))
}

func TestPresentRequiresPrompt(t *testing.T) {
	s := testutil.NewTestStore(t)
	p := presenter.New(s, tray.NewMemory(true), zerolog.Nop())

	assert.Error(t, p.Present(context.Background(), notification("N1", "")))
}

func TestPresentPermissionDenied(t *testing.T) {
	s := testutil.NewTestStore(t)
	p := presenter.New(s, tray.NewMemory(false), zerolog.Nop())

	err := p.Present(context.Background(), notification("N1", "P1"))
	assert.ErrorIs(t, err, tray.ErrPermissionDenied)

	_, err = s.LookupPromptForNotification(context.Background(), "N1")
	assert.ErrorIs(t, err, store.ErrNotFound, "no record for a notification that was never shown")
}

func TestPresentRecordsPresentationTime(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	p := presenter.New(s, tray.NewMemory(true), zerolog.Nop())

	n := notification("N1", "P1")
	n.PresentedAt = time.Unix(1700000000, 500)
	require.NoError(t, p.Present(ctx, n))

	issued, err := s.GetIssuedNotification(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, "P1", issued.PromptUUID)
	assert.Equal(t, int64(1700000000), issued.PresentedAt)
}

func TestHandleArrivalRetiresOthers(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	m := tray.NewMemory(true)
	p := presenter.New(s, m, zerolog.Nop())

	testutil.SeedPrompt(t, s, "P1", model.ResponseTypeYesNo, "N1", "N2", "N3")
	for _, id := range []string{"N1", "N2"} {
		require.NoError(t, m.Present(ctx, notification(id, "P1")))
	}

	decision, err := p.HandleArrival(ctx, "N3")
	require.NoError(t, err)
	assert.Equal(t, presenter.Decision{ShowAlert: true}, decision)
	assert.Equal(t, []string{"N1", "N2"}, m.Dismissed())
}

func TestHandleArrivalUnknownNotification(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	m := tray.NewMemory(true)
	p := presenter.New(s, m, zerolog.Nop())

	require.NoError(t, m.Present(ctx, notification("N1", "P1")))

	decision, err := p.HandleArrival(ctx, "ghost-123")
	require.NoError(t, err)
	assert.True(t, decision.ShowAlert)
	assert.Empty(t, m.Dismissed())
}

func TestRetireJoinsDismissErrors(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	m := tray.NewMemory(true)
	p := presenter.New(s, m, zerolog.Nop())

	testutil.SeedPrompt(t, s, "P1", model.ResponseTypeYesNo, "N1", "N2")
	for _, id := range []string{"N1", "N2"} {
		require.NoError(t, m.Present(ctx, notification(id, "P1")))
	}
	m.FailDismiss = func(id string) error {
		if id == "N1" {
			return errors.New("tray busy")
		}
		return nil
	}

	dismissed, err := p.Retire(ctx, "P1", "")
	assert.Error(t, err)
	assert.Equal(t, []string{"N2"}, dismissed)
}
