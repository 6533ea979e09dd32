// Package metrics records verification metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check. PrometheusRecorder is
// activated by watch mode, which serves the registry on /metrics.
package metrics
