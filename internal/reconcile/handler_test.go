package reconcile_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fusion-prompts/internal/mask"
	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/reconcile"
	"github.com/nhle/fusion-prompts/internal/resolver"
	"github.com/nhle/fusion-prompts/internal/store"
	"github.com/nhle/fusion-prompts/internal/telemetry"
	"github.com/nhle/fusion-prompts/internal/tray"
	"github.com/nhle/fusion-prompts/tests/testutil"
)

var (
	presentedAt = time.Unix(1700000000, 0)
	answeredAt  = time.Unix(1700000060, 0)
)

type recordingSink struct {
	mu     sync.Mutex
	events []telemetry.Event
	err    error
}

func (s *recordingSink) Track(ctx context.Context, e telemetry.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) Events() []telemetry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]telemetry.Event(nil), s.events...)
}

type entry struct {
	promptUUID string
	trigger    int64
}

type recordingNavigator struct {
	entries []entry
	err     error
	panics  bool
}

func (n *recordingNavigator) OpenPromptEntry(ctx context.Context, promptUUID string, trigger int64) error {
	if n.panics {
		panic("navigation stack corrupted")
	}
	n.entries = append(n.entries, entry{promptUUID, trigger})
	return n.err
}

type fixture struct {
	store  *store.SQLiteStore
	tray   *tray.Memory
	sink   *recordingSink
	nav    *recordingNavigator
	masker *mask.Masker
	h      *reconcile.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	m, err := mask.New(bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)

	f := &fixture{
		store:  testutil.NewTestStore(t),
		tray:   tray.NewMemory(true),
		sink:   &recordingSink{},
		nav:    &recordingNavigator{},
		masker: m,
	}
	f.h = reconcile.New(f.store, f.tray, f.masker, f.sink, zerolog.Nop(),
		reconcile.WithClock(func() time.Time { return answeredAt }),
		reconcile.WithNavigator(f.nav),
	)
	return f
}

func (f *fixture) present(t *testing.T, promptUUID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, f.tray.Present(context.Background(), model.TrayNotification{
			ID: id, PromptUUID: promptUUID, PresentedAt: presentedAt,
		}))
	}
}

func (f *fixture) responses(t *testing.T) []model.Response {
	t.Helper()
	responses, err := f.store.GetResponses(context.Background(), store.ResponseFilter{})
	require.NoError(t, err)
	return responses
}

func yesOn(notificationID string) model.InteractionEvent {
	return model.InteractionEvent{
		ActionID:       model.AnswerYes,
		NotificationID: notificationID,
		Category:       model.ResponseTypeYesNo,
		PresentedAt:    presentedAt,
	}
}

func TestHandleYesRetiresSiblings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P1", model.ResponseTypeYesNo, "N1", "N2")
	f.present(t, "P1", "N1", "N2")

	result, err := f.h.Handle(ctx, yesOn("N2"))
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeRecord, result.Outcome)
	assert.False(t, result.Duplicate)
	assert.NoError(t, result.CleanupErr)
	assert.Contains(t, result.Dismissed, "N1")

	responses := f.responses(t)
	require.Len(t, responses, 1)
	assert.Equal(t, "P1", responses[0].PromptUUID)
	assert.Equal(t, "Yes", responses[0].Value)
	assert.Equal(t, presentedAt.Unix(), responses[0].TriggerTimestamp)
	assert.Equal(t, answeredAt.Unix(), responses[0].ResponseTimestamp)

	presented, err := f.tray.Presented(ctx)
	require.NoError(t, err)
	assert.Empty(t, presented)

	ids, err := f.store.ListNotificationIDsForPrompt(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"N2"}, ids, "answered record kept, sibling removed")
}

func TestHandleRedeliveredTapDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P1", model.ResponseTypeYesNo, "N1", "N2")
	f.present(t, "P1", "N1", "N2")

	_, err := f.h.Handle(ctx, yesOn("N2"))
	require.NoError(t, err)

	result, err := f.h.Handle(ctx, yesOn("N2"))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Nil(t, result.Response)

	assert.Len(t, f.responses(t), 1)
	assert.Len(t, f.sink.Events(), 1, "duplicates emit no telemetry")
}

func TestHandleUnknownNotificationWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P1", model.ResponseTypeYesNo, "N1")
	f.present(t, "P1", "N1")

	result, err := f.h.Handle(ctx, yesOn("ghost-123"))
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeUnresolvable, result.Outcome)

	assert.Empty(t, f.responses(t))
	assert.Empty(t, f.tray.Dismissed())
	assert.Empty(t, f.sink.Events())
}

func TestHandleDefaultTapDefersToApp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P2", model.ResponseTypeNumber, "M1")
	f.present(t, "P2", "M1")

	result, err := f.h.Handle(ctx, model.InteractionEvent{
		ActionID:       model.DefaultActionID,
		NotificationID: "M1",
		Category:       model.ResponseTypeNumber,
		PresentedAt:    presentedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeDeferToApp, result.Outcome)
	assert.Equal(t, "P2", result.PromptUUID)
	assert.Equal(t, []entry{{"P2", presentedAt.Unix()}}, f.nav.entries)

	assert.Empty(t, f.responses(t))
	assert.Empty(t, f.tray.Dismissed())
}

func TestHandleNavigatorError(t *testing.T) {
	f := newFixture(t)
	f.nav.err = errors.New("screen unavailable")

	testutil.SeedPrompt(t, f.store, "P2", model.ResponseTypeNumber, "M1")

	_, err := f.h.Handle(context.Background(), model.InteractionEvent{
		ActionID: model.DefaultActionID, NotificationID: "M1", PresentedAt: presentedAt,
	})
	assert.ErrorContains(t, err, "screen unavailable")
}

func TestHandleEmitsMaskedTelemetry(t *testing.T) {
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P1", model.ResponseTypeYesNo, "N1")

	_, err := f.h.Handle(context.Background(), yesOn("N1"))
	require.NoError(t, err)

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.Event{
		Name:              telemetry.EventPromptResponse,
		MaskedPromptToken: f.masker.MaskPromptID("P1"),
		TriggerTimestamp:  presentedAt.Unix(),
		ResponseTimestamp: answeredAt.Unix(),
		Time:              answeredAt,
	}, events[0])
	assert.NotEqual(t, "P1", events[0].MaskedPromptToken)
}

func TestHandleTelemetryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("offline")

	testutil.SeedPrompt(t, f.store, "P1", model.ResponseTypeYesNo, "N1")

	result, err := f.h.Handle(context.Background(), yesOn("N1"))
	require.NoError(t, err)
	assert.NotNil(t, result.Response)
	assert.Len(t, f.responses(t), 1)
}

func TestHandleTrayFailureKeepsResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P1", model.ResponseTypeYesNo, "N1", "N2")
	f.present(t, "P1", "N1", "N2")
	f.tray.FailPresented = errors.New("tray unreachable")

	result, err := f.h.Handle(ctx, yesOn("N2"))
	require.NoError(t, err)
	assert.Error(t, result.CleanupErr)
	assert.Empty(t, result.Dismissed)
	assert.Len(t, f.responses(t), 1)
	assert.Len(t, f.sink.Events(), 1)

	// The next event for the prompt retries the cleanup.
	f.tray.FailPresented = nil
	result, err = f.h.SubmitEntry(ctx, "P1", presentedAt.Unix()+3600, "No")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"N1", "N2"}, result.Dismissed)
}

func TestHandleDismissOfAlreadyRemovedRecordIsHarmless(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P1", model.ResponseTypeYesNo, "N1", "N2")
	f.present(t, "P1", "N1", "N2")

	// Another event already retired N1's record while it lingers in the tray.
	require.NoError(t, f.store.RemoveNotificationRecord(ctx, "N1"))
	require.NoError(t, f.tray.Dismiss(ctx, "N1"))
	require.NoError(t, f.store.RemoveNotificationRecord(ctx, "N1"))

	result, err := f.h.Handle(ctx, yesOn("N2"))
	require.NoError(t, err)
	assert.NoError(t, result.CleanupErr)
	assert.Equal(t, []string{"N2"}, result.Dismissed)
}

func TestHandleStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	_, err := f.h.Handle(context.Background(), yesOn("N1"))
	require.Error(t, err)
	assert.True(t, store.IsUnavailable(err))
	assert.Empty(t, f.sink.Events())
}

func TestSubmitEntryAfterDefer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	testutil.SeedPrompt(t, f.store, "P2", model.ResponseTypeNumber, "M1")
	f.present(t, "P2", "M1")

	_, err := f.h.Handle(ctx, model.InteractionEvent{
		ActionID: model.DefaultActionID, NotificationID: "M1", PresentedAt: presentedAt,
	})
	require.NoError(t, err)
	require.Len(t, f.nav.entries, 1)

	deferred := f.nav.entries[0]
	result, err := f.h.SubmitEntry(ctx, deferred.promptUUID, deferred.trigger, "4")
	require.NoError(t, err)
	require.NotNil(t, result.Response)
	assert.Equal(t, "4", result.Response.Value)
	assert.Equal(t, []string{"M1"}, result.Dismissed)

	ids, err := f.store.ListNotificationIDsForPrompt(ctx, "P2")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Answering the same occurrence twice keeps one row.
	result, err = f.h.SubmitEntry(ctx, deferred.promptUUID, deferred.trigger, "5")
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Len(t, f.responses(t), 1)
}
