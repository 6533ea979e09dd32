// Package watch re-runs verification when inputs change or on a schedule,
// and serves the latest result over HTTP.
package watch

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/docverify/internal/logfields"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// Run reasons.
const (
	ReasonStartup  = "startup"
	ReasonChange   = "change"
	ReasonSchedule = "schedule"
	ReasonAPI      = "api"
)

// Runner serialises verification runs. Requests arriving while a run is
// queued are coalesced into it.
type Runner struct {
	verifier *verifier.Verifier
	digest   func(ctx context.Context) (string, error)
	requests chan string
	done     chan struct{}

	mu         sync.RWMutex
	last       *verifier.Report
	lastDigest string
	runs       int
}

// NewRunner creates a runner for v.
func NewRunner(v *verifier.Verifier) *Runner {
	return &Runner{
		verifier: v,
		digest: func(ctx context.Context) (string, error) {
			return verifier.DigestInputs(ctx, v.Config())
		},
		requests: make(chan string, 1),
		done:     make(chan struct{}),
	}
}

// Trigger queues a run. It returns false when a run is already queued.
func (r *Runner) Trigger(reason string) bool {
	select {
	case r.requests <- reason:
		return true
	default:
		return false
	}
}

// Last returns the most recent report, nil before the first run.
func (r *Runner) Last() *verifier.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Runs returns the number of completed runs.
func (r *Runner) Runs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}

// Loop processes queued runs until ctx is done.
func (r *Runner) Loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-r.requests:
			r.runOnce(ctx, reason)
		}
	}
}

// Done is closed when Loop returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) runOnce(ctx context.Context, reason string) {
	digest, err := r.digest(ctx)
	if err != nil {
		slog.Warn("Could not digest inputs", logfields.Error(err))
	}

	r.mu.RLock()
	unchanged := digest != "" && digest == r.lastDigest
	r.mu.RUnlock()
	if reason == ReasonSchedule && unchanged {
		slog.Debug("Inputs unchanged, skipping scheduled run")
		return
	}

	slog.Info("Running verification", slog.String("reason", reason))
	report, err := r.verifier.Run(ctx)
	if err != nil {
		slog.Error("Verification aborted", logfields.RunID(report.ID), logfields.Error(err))
	}

	r.mu.Lock()
	r.last = report
	r.runs++
	if report.InputDigest != "" {
		r.lastDigest = report.InputDigest
	} else {
		r.lastDigest = digest
	}
	r.mu.Unlock()
}
