// Package telemetry emits analytics events. Events only ever carry masked
// prompt tokens, never raw prompt UUIDs.
package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event names.
const (
	EventPromptResponse = "prompt_response"
	EventAppStarted     = "app_started"
)

// Event is a single analytics event.
type Event struct {
	Name              string    `json:"name"`
	MaskedPromptToken string    `json:"identifier,omitempty"`
	TriggerTimestamp  int64     `json:"triggerTimestamp,omitempty"`
	ResponseTimestamp int64     `json:"responseTimestamp,omitempty"`
	Time              time.Time `json:"time"`
}

// Sink receives analytics events.
type Sink interface {
	Track(ctx context.Context, event Event) error
}

// LogSink writes events to a zerolog logger.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "telemetry").Logger()}
}

// Track implements Sink.
func (s *LogSink) Track(ctx context.Context, event Event) error {
	e := s.log.Info().Str("event", event.Name).Time("at", event.Time)
	if event.MaskedPromptToken != "" {
		e = e.Str("identifier", event.MaskedPromptToken).
			Int64("triggerTimestamp", event.TriggerTimestamp).
			Int64("responseTimestamp", event.ResponseTimestamp)
	}
	e.Msg("telemetry")
	return nil
}

// Nop discards every event.
type Nop struct{}

// Track implements Sink.
func (Nop) Track(context.Context, Event) error { return nil }
