package metrics

import "time"

// CheckStatus enumerates check result categories for counters.
type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckSkipped CheckStatus = "skipped"
	CheckError   CheckStatus = "error"
)

// Recorder defines observability hooks for verification runs.
type Recorder interface {
	ObserveBuildDuration(d time.Duration, exitCode int)
	ObserveCheckDuration(check string, d time.Duration)
	IncCheckResult(check string, status CheckStatus)
	AddFindings(check string, n int)
	IncRunOutcome(outcome string)
	ObserveRunDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration, int)   {}
func (NoopRecorder) ObserveCheckDuration(string, time.Duration) {}
func (NoopRecorder) IncCheckResult(string, CheckStatus)         {}
func (NoopRecorder) AddFindings(string, int)                    {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
