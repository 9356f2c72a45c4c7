package batch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/budingricky/oneclick/internal/catalog"
	"github.com/budingricky/oneclick/internal/fetch"
	"github.com/budingricky/oneclick/internal/logging"
	"github.com/budingricky/oneclick/internal/repair"
	"github.com/budingricky/oneclick/internal/verify"
)

var testPayload = []byte("MZ\x90\x00 fake installer payload")

func payloadHash(t *testing.T) string {
	t.Helper()
	sum, err := verify.CalculateReader(bytes.NewReader(testPayload), verify.AlgorithmSHA256)
	if err != nil {
		t.Fatalf("hashing payload: %v", err)
	}
	return sum.Value
}

func newTestRunner(t *testing.T, maxRetries int) (*Runner, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(testPayload)
	}))
	t.Cleanup(server.Close)

	validator := verify.NewValidator(logging.Discard(), verify.AlgorithmSHA256)
	corrector := repair.NewCorrector(fetch.NewHTTPClient(), validator, logging.Discard(), repair.Config{
		MaxRetries: maxRetries,
		Backoff:    repair.Backoff{Initial: time.Millisecond, Multiplier: 1, Max: time.Millisecond},
	})
	return NewRunner(corrector, logging.Discard()), server
}

func TestRun_ProcessesSequentially(t *testing.T) {
	runner, server := newTestRunner(t, 2)
	dir := t.TempDir()

	records := []*catalog.Record{
		{Name: "Good1", URL: server.URL + "/a.exe", Filename: "a.exe", Hash: payloadHash(t)},
		{Name: "Good2", URL: server.URL + "/b.exe", Filename: "b.exe", Hash: payloadHash(t)},
		{Name: "Bad", URL: server.URL + "/c.exe", Filename: "c.exe", Hash: strings.Repeat("0", 64)},
	}

	var progressNames []string
	var progressDone []int
	runner.SetProgress(func(done, total int, name string, ok bool) {
		progressNames = append(progressNames, name)
		progressDone = append(progressDone, done)
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
	})

	results := runner.Run(context.Background(), records, dir)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !results["Good1"].OK || !results["Good2"].OK {
		t.Errorf("good records failed: %+v", results)
	}
	if results["Bad"].OK {
		t.Error("record with a permanently wrong digest succeeded")
	}
	// One bad item never fails the batch; the others still completed.
	if !strings.Contains(results["Bad"].Message, "failed after 2 attempts") {
		t.Errorf("Bad message = %q", results["Bad"].Message)
	}

	// Sequential processing reports progress in record order.
	wantNames := []string{"Good1", "Good2", "Bad"}
	for i, name := range wantNames {
		if progressNames[i] != name || progressDone[i] != i+1 {
			t.Errorf("progress[%d] = (%s, %d), want (%s, %d)",
				i, progressNames[i], progressDone[i], name, i+1)
		}
	}

	stats := runner.Stats()
	if stats.Completed != 2 || stats.Failed != 1 || stats.Total != 3 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestRun_ProgressPanicDoesNotAbort(t *testing.T) {
	runner, server := newTestRunner(t, 1)
	dir := t.TempDir()

	records := []*catalog.Record{
		{Name: "A", URL: server.URL + "/a.exe", Filename: "a.exe", Hash: payloadHash(t)},
		{Name: "B", URL: server.URL + "/b.exe", Filename: "b.exe", Hash: payloadHash(t)},
	}

	runner.SetProgress(func(done, total int, name string, ok bool) {
		panic("listener is gone")
	})

	results := runner.Run(context.Background(), records, dir)

	if len(results) != 2 || !results["A"].OK || !results["B"].OK {
		t.Errorf("batch did not survive a panicking progress callback: %+v", results)
	}
}

func TestRun_ItemTransitions(t *testing.T) {
	runner, server := newTestRunner(t, 1)
	dir := t.TempDir()

	records := []*catalog.Record{
		{Name: "A", URL: server.URL + "/a.exe", Filename: "a.exe", Hash: payloadHash(t)},
	}

	var statuses []Status
	runner.SetItemFunc(func(item *Item, outcome Outcome) {
		statuses = append(statuses, item.Status)
	})

	runner.Run(context.Background(), records, dir)

	if len(statuses) != 2 || statuses[0] != StatusDownloading || statuses[1] != StatusCompleted {
		t.Errorf("status transitions = %v, want [downloading completed]", statuses)
	}

	items := runner.Items()
	if len(items) != 1 || items[0].EndTime.Before(items[0].StartTime) {
		t.Errorf("item timing not recorded: %+v", items)
	}
}

func TestRun_UnusableTargetDirFailsAllItems(t *testing.T) {
	runner, server := newTestRunner(t, 1)

	// A regular file where the directory should be fails preflight.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatalf("writing blocker: %v", err)
	}

	records := []*catalog.Record{
		{Name: "A", URL: server.URL + "/a.exe", Filename: "a.exe"},
		{Name: "B", URL: server.URL + "/b.exe", Filename: "b.exe"},
	}

	var notified int
	runner.SetProgress(func(done, total int, name string, ok bool) {
		notified++
		if ok {
			t.Errorf("item %s reported ok on a failed preflight", name)
		}
	})

	results := runner.Run(context.Background(), records, blocked)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for name, outcome := range results {
		if outcome.OK {
			t.Errorf("%s succeeded despite unusable directory", name)
		}
	}
	if notified != 2 {
		t.Errorf("progress notified %d times, want 2", notified)
	}
}

func TestRun_InsufficientSpaceFailsAllItems(t *testing.T) {
	runner, server := newTestRunner(t, 1)
	dir := t.TempDir()

	records := []*catalog.Record{
		{Name: "Huge", URL: server.URL + "/huge.exe", Filename: "huge.exe", Size: 1 << 62},
	}

	results := runner.Run(context.Background(), records, dir)
	outcome := results["Huge"]
	if outcome.OK || !strings.Contains(outcome.Message, "not enough free space") {
		t.Errorf("outcome = %+v, want a free-space failure", outcome)
	}
}

func TestRun_CanceledContextSkipsItems(t *testing.T) {
	runner, server := newTestRunner(t, 1)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []*catalog.Record{
		{Name: "A", URL: server.URL + "/a.exe", Filename: "a.exe"},
	}

	results := runner.Run(ctx, records, dir)
	if results["A"].OK || results["A"].Message != "batch canceled" {
		t.Errorf("outcome = %+v", results["A"])
	}
	if stats := runner.Stats(); stats.Skipped != 1 {
		t.Errorf("Stats = %+v, want one skipped item", stats)
	}
}

func TestStart_RunsInBackground(t *testing.T) {
	runner, server := newTestRunner(t, 1)
	dir := t.TempDir()

	records := []*catalog.Record{
		{Name: "A", URL: server.URL + "/a.exe", Filename: "a.exe", Hash: payloadHash(t)},
	}

	select {
	case results := <-runner.Start(context.Background(), records, dir):
		if !results["A"].OK {
			t.Errorf("background batch failed: %+v", results["A"])
		}
	case <-time.After(10 * time.Second):
		t.Fatal("batch did not finish")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusPending, "pending"},
		{StatusDownloading, "downloading"},
		{StatusCompleted, "completed"},
		{StatusFailed, "failed"},
		{StatusSkipped, "skipped"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %s, want %s", tt.status, got, tt.want)
		}
	}
}
