package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes events as JSON on a NATS subject.
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

// DialNATS connects to url and returns a sink publishing on subject.
func DialNATS(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("fusion-prompts"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}
	return NewNATSSink(nc, subject), nil
}

// NewNATSSink wraps an existing connection.
func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	return &NATSSink{nc: nc, subject: subject}
}

// Track implements Sink. Publishing is buffered by the client; delivery is
// best effort.
func (s *NATSSink) Track(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.Name, err)
	}
	if err := s.nc.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publishing %s event: %w", event.Name, err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (s *NATSSink) Close() error {
	if err := s.nc.Drain(); err != nil {
		return fmt.Errorf("draining nats connection: %w", err)
	}
	return nil
}
