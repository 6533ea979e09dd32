// Package notify publishes run completion events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/logfields"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// EventRunCompleted is the event type published after every run.
const EventRunCompleted = "RunCompleted"

const flushTimeout = 5 * time.Second

// Event is the JSON payload published for a completed run.
type Event struct {
	Type         string    `json:"type"`
	RunID        string    `json:"run_id"`
	Project      string    `json:"project"`
	Revision     string    `json:"revision,omitempty"`
	Outcome      string    `json:"outcome"`
	FailedChecks []string  `json:"failed_checks,omitempty"`
	Findings     int       `json:"findings"`
	ExitCode     int       `json:"exit_code"`
	DurationMS   int64     `json:"duration_ms"`
	FinishedAt   time.Time `json:"finished_at"`
}

// NewEvent summarises r.
func NewEvent(r *verifier.Report) Event {
	return Event{
		Type:         EventRunCompleted,
		RunID:        r.ID,
		Project:      r.Project,
		Revision:     r.Revision,
		Outcome:      string(r.Outcome),
		FailedChecks: r.FailedChecks(),
		Findings:     r.FindingCount(),
		ExitCode:     r.ExitCode(),
		DurationMS:   r.Duration().Milliseconds(),
		FinishedAt:   r.FinishedAt,
	}
}

// Notifier is a report sink that must be closed.
type Notifier interface {
	verifier.Sink
	Close() error
}

// New returns a NATS notifier when a URL is configured, Noop otherwise.
func New(cfg config.NotifyConfig) (Notifier, error) {
	if cfg.NATSURL == "" {
		return Noop{}, nil
	}
	return NewNATSNotifier(cfg.NATSURL, cfg.Subject)
}

// publisher is the subset of *nats.Conn the notifier uses.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSNotifier publishes events on a core NATS subject.
type NATSNotifier struct {
	conn    publisher
	subject string
}

// NewNATSNotifier connects to url.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("docverify"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, errors.NotifyError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS notifier connected", logfields.URL(url), logfields.Subject(subject))
	return newNATSNotifier(conn, subject), nil
}

func newNATSNotifier(conn publisher, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

// Name implements verifier.Sink.
func (n *NATSNotifier) Name() string { return "nats" }

// Record publishes a RunCompleted event for r.
func (n *NATSNotifier) Record(ctx context.Context, r *verifier.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "failed to publish event").
			Warning().WithContext("subject", n.subject).Build()
	}
	if err := n.conn.FlushTimeout(flushTimeout); err != nil {
		return errors.NotifyError("failed to flush event").
			WithCause(err).WithContext("subject", n.subject).Build()
	}
	slog.Debug("Published run event", logfields.RunID(r.ID), logfields.Subject(n.subject))
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

// Noop discards events.
type Noop struct{}

func (Noop) Name() string                                    { return "noop" }
func (Noop) Record(context.Context, *verifier.Report) error { return nil }
func (Noop) Close() error                                    { return nil }
