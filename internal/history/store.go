// Package history persists verification reports so past runs can be listed
// and compared.
package history

import (
	"context"
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// ErrNotFound is returned when no run matches.
var ErrNotFound = stderrors.New("run not found")

// Entry summarises one stored run.
type Entry struct {
	ID          string           `json:"id"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Project     string           `json:"project"`
	Revision    string           `json:"revision,omitempty"`
	InputDigest string           `json:"input_digest,omitempty"`
	Outcome     verifier.Outcome `json:"outcome"`
	ExitCode    int              `json:"exit_code"`
}

// Duration returns the wall time of the run.
func (e Entry) Duration() time.Duration { return e.FinishedAt.Sub(e.StartedAt) }

// Store persists reports.
type Store interface {
	Save(ctx context.Context, r *verifier.Report) error
	List(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id string) (*verifier.Report, error)
	Last(ctx context.Context) (*verifier.Report, error)
	Close() error
}
