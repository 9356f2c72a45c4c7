// Package metrics provides Prometheus-compatible metrics for batch
// download and repair operations.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds all download/repair metrics
type Metrics struct {
	// Counters
	downloadsTotal     int64 // downloads started
	downloadsCompleted int64 // downloads that ended valid
	downloadsFailed    int64 // downloads that exhausted their retries
	repairsTotal       int64 // invalid files deleted and re-fetched
	validationFailures int64 // validation mismatches observed
	bytesDownloaded    int64 // total bytes written

	// Gauges
	activeBatches int64 // currently running batches

	// Histogram buckets for per-item duration
	durationBuckets map[string]int64

	startTime time.Time

	mu sync.RWMutex
}

// New creates a new Metrics instance
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		durationBuckets: map[string]int64{
			"le_1s":   0,
			"le_5s":   0,
			"le_30s":  0,
			"le_60s":  0,
			"le_300s": 0,
			"le_inf":  0,
		},
	}
}

// IncDownloadsTotal increments the started downloads counter
func (m *Metrics) IncDownloadsTotal() {
	atomic.AddInt64(&m.downloadsTotal, 1)
}

// IncDownloadsCompleted increments the completed downloads counter
func (m *Metrics) IncDownloadsCompleted() {
	atomic.AddInt64(&m.downloadsCompleted, 1)
}

// IncDownloadsFailed increments the failed downloads counter
func (m *Metrics) IncDownloadsFailed() {
	atomic.AddInt64(&m.downloadsFailed, 1)
}

// IncRepairsTotal increments the repair counter
func (m *Metrics) IncRepairsTotal() {
	atomic.AddInt64(&m.repairsTotal, 1)
}

// IncValidationFailures increments the validation failure counter
func (m *Metrics) IncValidationFailures() {
	atomic.AddInt64(&m.validationFailures, 1)
}

// AddBytesDownloaded adds to the total bytes downloaded
func (m *Metrics) AddBytesDownloaded(bytes int64) {
	atomic.AddInt64(&m.bytesDownloaded, bytes)
}

// IncActiveBatches increments the running batch gauge
func (m *Metrics) IncActiveBatches() {
	atomic.AddInt64(&m.activeBatches, 1)
}

// DecActiveBatches decrements the running batch gauge
func (m *Metrics) DecActiveBatches() {
	atomic.AddInt64(&m.activeBatches, -1)
}

// RecordItemDuration records a per-item duration in the histogram
func (m *Metrics) RecordItemDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	secs := d.Seconds()
	switch {
	case secs <= 1:
		m.durationBuckets["le_1s"]++
	case secs <= 5:
		m.durationBuckets["le_5s"]++
	case secs <= 30:
		m.durationBuckets["le_30s"]++
	case secs <= 60:
		m.durationBuckets["le_60s"]++
	case secs <= 300:
		m.durationBuckets["le_300s"]++
	default:
		m.durationBuckets["le_inf"]++
	}
}

// GetStats returns current metrics as a map
func (m *Metrics) GetStats() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]int64{
		"downloads_total":     atomic.LoadInt64(&m.downloadsTotal),
		"downloads_completed": atomic.LoadInt64(&m.downloadsCompleted),
		"downloads_failed":    atomic.LoadInt64(&m.downloadsFailed),
		"repairs_total":       atomic.LoadInt64(&m.repairsTotal),
		"validation_failures": atomic.LoadInt64(&m.validationFailures),
		"bytes_downloaded":    atomic.LoadInt64(&m.bytesDownloaded),
		"active_batches":      atomic.LoadInt64(&m.activeBatches),
		"uptime_seconds":      int64(time.Since(m.startTime).Seconds()),
	}

	for k, v := range m.durationBuckets {
		stats["item_duration_seconds_bucket_"+k] = v
	}

	return stats
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		stats := m.GetStats()

		fmt.Fprintln(w, "# HELP oneclick_downloads_total Downloads started")
		fmt.Fprintln(w, "# TYPE oneclick_downloads_total counter")
		fmt.Fprintf(w, "oneclick_downloads_total %d\n", stats["downloads_total"])

		fmt.Fprintln(w, "# HELP oneclick_downloads_completed_total Downloads that verified successfully")
		fmt.Fprintln(w, "# TYPE oneclick_downloads_completed_total counter")
		fmt.Fprintf(w, "oneclick_downloads_completed_total %d\n", stats["downloads_completed"])

		fmt.Fprintln(w, "# HELP oneclick_downloads_failed_total Downloads that exhausted their retries")
		fmt.Fprintln(w, "# TYPE oneclick_downloads_failed_total counter")
		fmt.Fprintf(w, "oneclick_downloads_failed_total %d\n", stats["downloads_failed"])

		fmt.Fprintln(w, "# HELP oneclick_repairs_total Invalid files deleted and re-fetched")
		fmt.Fprintln(w, "# TYPE oneclick_repairs_total counter")
		fmt.Fprintf(w, "oneclick_repairs_total %d\n", stats["repairs_total"])

		fmt.Fprintln(w, "# HELP oneclick_validation_failures_total Validation mismatches observed")
		fmt.Fprintln(w, "# TYPE oneclick_validation_failures_total counter")
		fmt.Fprintf(w, "oneclick_validation_failures_total %d\n", stats["validation_failures"])

		fmt.Fprintln(w, "# HELP oneclick_bytes_downloaded_total Total bytes downloaded")
		fmt.Fprintln(w, "# TYPE oneclick_bytes_downloaded_total counter")
		fmt.Fprintf(w, "oneclick_bytes_downloaded_total %d\n", stats["bytes_downloaded"])

		fmt.Fprintln(w, "# HELP oneclick_active_batches Currently running batches")
		fmt.Fprintln(w, "# TYPE oneclick_active_batches gauge")
		fmt.Fprintf(w, "oneclick_active_batches %d\n", stats["active_batches"])

		fmt.Fprintln(w, "# HELP oneclick_uptime_seconds Time since start in seconds")
		fmt.Fprintln(w, "# TYPE oneclick_uptime_seconds counter")
		fmt.Fprintf(w, "oneclick_uptime_seconds %d\n", stats["uptime_seconds"])

		fmt.Fprintln(w, "# HELP oneclick_item_duration_seconds_bucket Per-item duration histogram")
		fmt.Fprintln(w, "# TYPE oneclick_item_duration_seconds_bucket histogram")
		fmt.Fprintf(w, "oneclick_item_duration_seconds_bucket{le=\"1\"} %d\n", stats["item_duration_seconds_bucket_le_1s"])
		fmt.Fprintf(w, "oneclick_item_duration_seconds_bucket{le=\"5\"} %d\n", stats["item_duration_seconds_bucket_le_5s"])
		fmt.Fprintf(w, "oneclick_item_duration_seconds_bucket{le=\"30\"} %d\n", stats["item_duration_seconds_bucket_le_30s"])
		fmt.Fprintf(w, "oneclick_item_duration_seconds_bucket{le=\"60\"} %d\n", stats["item_duration_seconds_bucket_le_60s"])
		fmt.Fprintf(w, "oneclick_item_duration_seconds_bucket{le=\"300\"} %d\n", stats["item_duration_seconds_bucket_le_300s"])
		fmt.Fprintf(w, "oneclick_item_duration_seconds_bucket{le=\"+Inf\"} %d\n", stats["item_duration_seconds_bucket_le_inf"])
	})
}

// Server wraps an HTTP server for metrics
type Server struct {
	server  *http.Server
	metrics *Metrics
}

// NewServer creates a new metrics server
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		metrics: m,
	}
}

// Start starts the metrics server in a goroutine
func (s *Server) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Printf("Metrics server error: %v\n", err)
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	return s.server.Close()
}

// Addr returns the server address
func (s *Server) Addr() string {
	return s.server.Addr
}
