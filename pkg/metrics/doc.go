// Package metrics defines the Prometheus collectors exported by drey
// managers and workers, along with a small timer helper for observing
// durations.
package metrics
