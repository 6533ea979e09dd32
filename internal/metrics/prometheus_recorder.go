package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration *prom.HistogramVec
	checkDuration *prom.HistogramVec
	checkResults  *prom.CounterVec
	findings      *prom.CounterVec
	runOutcomes   *prom.CounterVec
	runDuration   prom.Histogram
	lastRun       prom.Gauge
}

// NewPrometheusRecorder constructs and registers the verifier metrics on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docverify",
			Name:      "build_duration_seconds",
			Help:      "Duration of site generator invocations",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"exit_code"}),
		checkDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docverify",
			Name:      "check_duration_seconds",
			Help:      "Duration of individual verification checks",
			Buckets:   prom.DefBuckets,
		}, []string{"check"}),
		checkResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docverify",
			Name:      "check_results_total",
			Help:      "Check results by status",
		}, []string{"check", "status"}),
		findings: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docverify",
			Name:      "findings_total",
			Help:      "Assertion failures reported by each check",
		}, []string{"check"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docverify",
			Name:      "run_outcomes_total",
			Help:      "Verification runs by final outcome",
		}, []string{"outcome"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docverify",
			Name:      "run_duration_seconds",
			Help:      "Total duration of build-and-verify cycles",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: "docverify",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.checkDuration, pr.checkResults, pr.findings, pr.runOutcomes, pr.runDuration, pr.lastRun)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration, exitCode int) {
	p.buildDuration.WithLabelValues(strconv.Itoa(exitCode)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCheckDuration(check string, d time.Duration) {
	p.checkDuration.WithLabelValues(check).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCheckResult(check string, status CheckStatus) {
	p.checkResults.WithLabelValues(check, string(status)).Inc()
}

func (p *PrometheusRecorder) AddFindings(check string, n int) {
	if n <= 0 {
		return
	}
	p.findings.WithLabelValues(check).Add(float64(n))
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	p.runOutcomes.WithLabelValues(outcome).Inc()
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}
