package verifier

import (
	"time"

	"git.home.luguber.info/inful/docverify/internal/metrics"
	"git.home.luguber.info/inful/docverify/internal/sitebuild"
)

// Outcome is the overall result of a verification run.
type Outcome string

const (
	OutcomePassed      Outcome = "passed"
	OutcomeFailed      Outcome = "failed"
	OutcomeBuildFailed Outcome = "build_failed"
	OutcomeError       Outcome = "error"
)

// Finding is one assertion failure.
type Finding struct {
	Check    string `json:"check"`
	Subject  string `json:"subject"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Diff     string `json:"diff,omitempty"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string              `json:"name"`
	Status   metrics.CheckStatus `json:"status"`
	Findings []Finding           `json:"findings,omitempty"`
	Duration time.Duration       `json:"duration"`
	Error    string              `json:"error,omitempty"`
}

// Passed reports whether the check passed or was skipped.
func (c CheckResult) Passed() bool {
	return c.Status == metrics.CheckPassed || c.Status == metrics.CheckSkipped
}

// Report describes one build-and-verify cycle.
type Report struct {
	ID          string            `json:"id"`
	Project     string            `json:"project"`
	Revision    string            `json:"revision,omitempty"`
	Dirty       bool              `json:"dirty,omitempty"`
	InputDigest string            `json:"input_digest,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Build       *sitebuild.Result `json:"build,omitempty"`
	Sets        map[string]int    `json:"sets,omitempty"`
	Checks      []CheckResult     `json:"checks"`
	Outcome     Outcome           `json:"outcome"`
	Error       string            `json:"error,omitempty"`
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool { return r.Outcome == OutcomePassed }

// FailedChecks returns the names of failed checks in execution order.
func (r *Report) FailedChecks() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Passed() {
			out = append(out, c.Name)
		}
	}
	return out
}

// FindingCount returns the total number of findings across checks.
func (r *Report) FindingCount() int {
	n := 0
	for _, c := range r.Checks {
		n += len(c.Findings)
	}
	return n
}

// Check returns the result for name.
func (r *Report) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// ExitCode returns the generator exit code, or -1 when it did not run.
func (r *Report) ExitCode() int {
	if r.Build == nil {
		return -1
	}
	return r.Build.ExitCode
}
