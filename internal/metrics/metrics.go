// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the conversion pipeline.
//
// The package is intentionally minimal:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems stay isolated in subpackages; the pipeline
//     depends only on this interface.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordRows increments a record-level counter for the given kind.
//
// Typical kinds mirror the run counter names, e.g.:
//   - "tweets"
//   - "referenced_tweets"
//   - "duplicates"
//   - "unavailable"
//   - "non_tweets"
//   - "parse_errors"
//   - "rows"
func RecordRows(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("twarc_csv_records_total", float64(delta), Labels{
		"kind": kind,
	})
}

// RecordChunk counts one chunk handed to the writer.
func RecordChunk() {
	backend.IncCounter("twarc_csv_chunks_total", 1, nil)
}

// RecordRun records one completed conversion run with its duration and
// success/failure status.
func RecordRun(err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"status": status}
	backend.IncCounter("twarc_csv_runs_total", 1, lbls)
	backend.ObserveHistogram("twarc_csv_run_duration_seconds", d.Seconds(), lbls)
}
