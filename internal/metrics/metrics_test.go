package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounters(t *testing.T) {
	m := New()

	m.IncDownloadsTotal()
	m.IncDownloadsTotal()
	m.IncDownloadsCompleted()
	m.IncDownloadsFailed()
	m.IncRepairsTotal()
	m.IncValidationFailures()
	m.AddBytesDownloaded(2048)
	m.IncActiveBatches()

	stats := m.GetStats()

	tests := []struct {
		key  string
		want int64
	}{
		{"downloads_total", 2},
		{"downloads_completed", 1},
		{"downloads_failed", 1},
		{"repairs_total", 1},
		{"validation_failures", 1},
		{"bytes_downloaded", 2048},
		{"active_batches", 1},
	}
	for _, tt := range tests {
		if got := stats[tt.key]; got != tt.want {
			t.Errorf("%s = %d, want %d", tt.key, got, tt.want)
		}
	}

	m.DecActiveBatches()
	if got := m.GetStats()["active_batches"]; got != 0 {
		t.Errorf("active_batches after dec = %d, want 0", got)
	}
}

func TestRecordItemDuration(t *testing.T) {
	m := New()

	m.RecordItemDuration(500 * time.Millisecond)
	m.RecordItemDuration(3 * time.Second)
	m.RecordItemDuration(2 * time.Minute)
	m.RecordItemDuration(time.Hour)

	stats := m.GetStats()
	tests := []struct {
		key  string
		want int64
	}{
		{"item_duration_seconds_bucket_le_1s", 1},
		{"item_duration_seconds_bucket_le_5s", 1},
		{"item_duration_seconds_bucket_le_300s", 1},
		{"item_duration_seconds_bucket_le_inf", 1},
	}
	for _, tt := range tests {
		if got := stats[tt.key]; got != tt.want {
			t.Errorf("%s = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncDownloadsTotal()
	m.AddBytesDownloaded(512)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %s", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE oneclick_downloads_total counter",
		"oneclick_downloads_total 1",
		"oneclick_bytes_downloaded_total 512",
		"oneclick_active_batches 0",
		`oneclick_item_duration_seconds_bucket{le="+Inf"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServer_Health(t *testing.T) {
	m := New()
	s := NewServer("127.0.0.1:0", m)

	if s.Addr() != "127.0.0.1:0" {
		t.Errorf("Addr = %s", s.Addr())
	}

	// Exercise the mux directly; the listener itself is not under test.
	srv := httptest.NewServer(s.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp2.StatusCode)
	}
}
