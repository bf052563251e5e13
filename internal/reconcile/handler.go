// Package reconcile records answers from notification interactions and keeps
// the tray consistent with them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/presenter"
	"github.com/nhle/fusion-prompts/internal/resolver"
	"github.com/nhle/fusion-prompts/internal/store"
	"github.com/nhle/fusion-prompts/internal/telemetry"
	"github.com/nhle/fusion-prompts/internal/tray"
)

// Navigator opens the app's manual entry screen for a prompt.
type Navigator interface {
	OpenPromptEntry(ctx context.Context, promptUUID string, triggerTimestamp int64) error
}

// Masker converts prompt UUIDs into telemetry tokens.
type Masker interface {
	MaskPromptID(promptUUID string) string
}

// Result describes what Handle did with one event.
type Result struct {
	Outcome    resolver.Outcome
	PromptUUID string

	// Response is the newly persisted response, if any.
	Response *model.Response

	// Duplicate is set when the answer had already been recorded.
	Duplicate bool

	// Dismissed lists the notifications removed from the tray.
	Dismissed []string

	// CleanupErr holds tray or record cleanup failures that happened after
	// the response was safely persisted.
	CleanupErr error
}

// Handler orchestrates resolve, persist, tray cleanup and telemetry. It is
// safe for concurrent use when its store and tray are.
type Handler struct {
	store     store.Store
	resolver  *resolver.Resolver
	presenter *presenter.Presenter
	masker    Masker
	sink      telemetry.Sink
	navigator Navigator
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock overrides the clock used for response and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithNavigator sets the collaborator that receives deferred entries.
func WithNavigator(n Navigator) Option {
	return func(h *Handler) { h.navigator = n }
}

// New creates a Handler. A nil sink discards telemetry.
func New(
	s store.Store,
	t tray.Tray,
	m Masker,
	sink telemetry.Sink,
	log zerolog.Logger,
	opts ...Option,
) *Handler {
	if sink == nil {
		sink = telemetry.Nop{}
	}
	h := &Handler{
		store:  s,
		masker: m,
		sink:   sink,
		now:    time.Now,
		log:    log.With().Str("component", "reconcile").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.resolver = resolver.New(s, log, resolver.WithClock(h.now))
	h.presenter = presenter.New(s, t, log)
	return h
}

// Handle processes one interaction event. Lookup misses are dropped and
// reported through Result; the returned error is non-nil only when the store
// failed before the response was persisted or navigation failed.
func (h *Handler) Handle(ctx context.Context, event model.InteractionEvent) (Result, error) {
	res, err := h.resolver.Resolve(ctx, event)
	if err != nil {
		return Result{}, fmt.Errorf("resolving notification %s: %w", event.NotificationID, err)
	}

	result := Result{Outcome: res.Outcome, PromptUUID: res.PromptUUID}

	switch res.Outcome {
	case resolver.OutcomeUnresolvable:
		h.log.Warn().
			Str("notification", event.NotificationID).
			Str("action", event.ActionID).
			Msg("dropping interaction for unknown notification")
		return result, nil

	case resolver.OutcomeDeferToApp:
		if h.navigator == nil {
			h.log.Warn().Str("notification", event.NotificationID).Msg("no navigator for deferred entry")
			return result, nil
		}
		if err := h.navigator.OpenPromptEntry(ctx, res.PromptUUID, res.TriggerTimestamp); err != nil {
			return result, fmt.Errorf("opening entry for notification %s: %w", event.NotificationID, err)
		}
		return result, nil
	}

	return h.record(ctx, result, res.Response, event.NotificationID)
}

// SubmitEntry records an answer captured by the app's entry screen after a
// deferred interaction, then tidies the tray the same way Handle does.
func (h *Handler) SubmitEntry(
	ctx context.Context,
	promptUUID string,
	triggerTimestamp int64,
	value string,
) (Result, error) {
	response := &model.Response{
		PromptUUID:        promptUUID,
		TriggerTimestamp:  triggerTimestamp,
		ResponseTimestamp: h.now().Unix(),
		Value:             value,
	}
	result := Result{Outcome: resolver.OutcomeRecord, PromptUUID: promptUUID}
	return h.record(ctx, result, response, "")
}

// record persists the response before touching the tray, so a failure in
// cleanup can never lose an answer.
func (h *Handler) record(
	ctx context.Context,
	result Result,
	response *model.Response,
	answeredID string,
) (Result, error) {
	err := h.store.AppendResponse(ctx, response)
	switch {
	case errors.Is(err, store.ErrDuplicateResponse):
		result.Duplicate = true
		h.log.Debug().Str("notification", answeredID).Msg("response already recorded")
	case err != nil:
		return result, fmt.Errorf("persisting response: %w", err)
	default:
		result.Response = response
	}

	dismissed, err := h.presenter.Retire(ctx, result.PromptUUID, "")
	result.Dismissed = dismissed
	if err != nil {
		result.CleanupErr = err
	}

	// The answered notification keeps its record so a redelivered tap still
	// resolves and deduplicates.
	for _, id := range dismissed {
		if id == answeredID {
			continue
		}
		if err := h.store.RemoveNotificationRecord(ctx, id); err != nil {
			result.CleanupErr = errors.Join(result.CleanupErr, err)
		}
	}
	if result.CleanupErr != nil {
		h.log.Warn().Err(result.CleanupErr).Msg("tray cleanup incomplete")
	}

	if result.Duplicate {
		return result, nil
	}

	event := telemetry.Event{
		Name:              telemetry.EventPromptResponse,
		MaskedPromptToken: h.masker.MaskPromptID(response.PromptUUID),
		TriggerTimestamp:  response.TriggerTimestamp,
		ResponseTimestamp: response.ResponseTimestamp,
		Time:              h.now(),
	}
	if err := h.sink.Track(ctx, event); err != nil {
		h.log.Warn().Err(err).Msg("tracking response event")
	}

	return result, nil
}
