package reconcile

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/nhle/fusion-prompts/internal/model"
	"github.com/nhle/fusion-prompts/internal/store"
)

// Runner feeds interaction events to a Handler one at a time, in arrival
// order. Errors and panics from a single event are logged and never stop
// the loop.
type Runner struct {
	handler *Handler
	log     zerolog.Logger

	// OnResult, when set, is called after every event.
	OnResult func(event model.InteractionEvent, result Result, err error)
}

// NewRunner creates a Runner for h.
func NewRunner(h *Handler, log zerolog.Logger) *Runner {
	return &Runner{
		handler: h,
		log:     log.With().Str("component", "runner").Logger(),
	}
}

// Run consumes events until ctx is cancelled or events is closed. It returns
// ctx.Err() on cancellation and nil when the channel closes.
func (r *Runner) Run(ctx context.Context, events <-chan model.InteractionEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			r.handleOne(ctx, event)
		}
	}
}

// handleOne processes a single event.
func (r *Runner) handleOne(ctx context.Context, event model.InteractionEvent) {
	var (
		result Result
		err    error
	)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic handling notification %s: %v", event.NotificationID, p)
			r.log.Error().Err(err).Str("stack", string(debug.Stack())).Msg("recovered")
		}
		if r.OnResult != nil {
			r.OnResult(event, result, err)
		}
	}()

	result, err = r.handler.Handle(ctx, event)
	if err != nil {
		level := zerolog.WarnLevel
		if store.IsUnavailable(err) {
			level = zerolog.ErrorLevel
		}
		r.log.WithLevel(level).Err(err).Str("notification", event.NotificationID).Msg("handling interaction")
		return
	}

	r.log.Debug().
		Str("notification", event.NotificationID).
		Stringer("outcome", result.Outcome).
		Bool("duplicate", result.Duplicate).
		Int("dismissed", len(result.Dismissed)).
		Msg("handled interaction")
}
