// Package resolver turns raw notification interactions into candidate
// responses.
package resolver

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/store"
)

// Outcome classifies a resolved interaction.
type Outcome int

const (
	// OutcomeRecord means the interaction carries an answer to persist.
	OutcomeRecord Outcome = iota

	// OutcomeDeferToApp means the user tapped the notification body and the
	// answer must be captured by the app's entry screen.
	OutcomeDeferToApp

	// OutcomeUnresolvable means the notification maps to no known prompt.
	OutcomeUnresolvable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecord:
		return "record"
	case OutcomeDeferToApp:
		return "defer_to_app"
	case OutcomeUnresolvable:
		return "unresolvable"
	}
	return "unknown"
}

// Resolution is the result of resolving one interaction.
type Resolution struct {
	Outcome          Outcome
	PromptUUID       string
	TriggerTimestamp int64

	// Response is set only for OutcomeRecord.
	Response *model.Response
}

// Resolver looks up the prompt behind an interaction and derives its answer.
type Resolver struct {
	store store.Store
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the clock used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New creates a Resolver.
func New(s store.Store, log zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store: s,
		now:   time.Now,
		log:   log.With().Str("component", "resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps event to a prompt and, unless the user opened the app, to a
// candidate response. A lookup miss is reported as OutcomeUnresolvable, not
// as an error; errors are reserved for store failures.
func (r *Resolver) Resolve(ctx context.Context, event model.InteractionEvent) (Resolution, error) {
	trigger := event.PresentedAt.Unix()

	promptUUID, err := r.store.LookupPromptForNotification(ctx, event.NotificationID)
	if errors.Is(err, store.ErrNotFound) {
		r.log.Debug().Str("notification", event.NotificationID).Msg("no prompt for notification")
		return Resolution{Outcome: OutcomeUnresolvable, TriggerTimestamp: trigger}, nil
	}
	if err != nil {
		return Resolution{}, err
	}

	if event.ActionID == model.DefaultActionID {
		return Resolution{
			Outcome:          OutcomeDeferToApp,
			PromptUUID:       promptUUID,
			TriggerTimestamp: trigger,
		}, nil
	}

	response := &model.Response{
		PromptUUID:        promptUUID,
		TriggerTimestamp:  trigger,
		ResponseTimestamp: r.now().Unix(),
		Value:             r.value(event),
	}
	if response.ResponseTimestamp < response.TriggerTimestamp {
		r.log.Warn().
			Str("notification", event.NotificationID).
			Int64("trigger", response.TriggerTimestamp).
			Int64("response", response.ResponseTimestamp).
			Msg("response precedes trigger")
	}

	return Resolution{
		Outcome:          OutcomeRecord,
		PromptUUID:       promptUUID,
		TriggerTimestamp: trigger,
		Response:         response,
	}, nil
}

// value derives the answer from the event's category. Unknown categories
// yield an empty answer.
func (r *Resolver) value(event model.InteractionEvent) string {
	switch event.Category {
	case model.ResponseTypeYesNo:
		return event.ActionID
	case model.ResponseTypeNumber:
		text := strings.TrimSpace(event.UserText)
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			r.log.Warn().Str("notification", event.NotificationID).Msg("number answer is not numeric")
			return event.UserText
		}
		return text
	case model.ResponseTypeText:
		return event.UserText
	default:
		r.log.Warn().
			Str("notification", event.NotificationID).
			Str("category", string(event.Category)).
			Msg("unknown notification category")
		return ""
	}
}
