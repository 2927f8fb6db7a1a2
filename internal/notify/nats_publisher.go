// Package notify publishes bootstrap stage transitions as pipeline events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// flushTimeout bounds how long a stage waits on a slow or reconnecting server.
const flushTimeout = 2 * time.Second

// StatusEvent is the payload published for every stage transition.
type StatusEvent struct {
	Header events.EventHeader `json:"header"`
	Stage  core.Stage         `json:"stage"`
	State  core.State         `json:"state"`
	Error  string             `json:"error,omitempty"`
}

// NATSPublisher implements core.StatusNotifier on a NATS subject.
type NATSPublisher struct {
	natsConnection *nats.Conn
	subject        string
	runID          string
	log            *logger.Logger
}

// NewNATSPublisher creates a publisher; runID becomes the WorkflowID of every event.
func NewNATSPublisher(natsConnection *nats.Conn, subject, runID string, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		natsConnection: natsConnection,
		subject:        subject,
		runID:          runID,
		log:            log,
	}
}

// Notify publishes the transition. Failures are logged and swallowed: the
// bootstrap outcome never depends on the status transport.
func (p *NATSPublisher) Notify(_ context.Context, stage core.Stage, state core.State, cause error) {
	event := StatusEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: p.runID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		Stage: stage,
		State: state,
		Error: "",
	}

	if cause != nil {
		event.Error = cause.Error()
	}

	err := p.publish(&event)
	if err != nil {
		p.log.Warn("Failed to publish status for stage %s: %v", stage, err)
	}
}

func (p *NATSPublisher) publish(event *StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	err = p.natsConnection.Publish(p.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", p.subject, err)
	}

	err = p.natsConnection.FlushTimeout(flushTimeout)
	if err != nil {
		return fmt.Errorf("failed to flush status event: %w", err)
	}

	return nil
}

// Nop discards every transition. It is used when no NATS URL is configured.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, core.Stage, core.State, error) {}
