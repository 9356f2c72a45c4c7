// Package batch runs download-and-repair for a set of catalog records,
// sequentially, on a single background goroutine per batch.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/budingricky/oneclick/internal/catalog"
	"github.com/budingricky/oneclick/internal/logging"
	"github.com/budingricky/oneclick/internal/repair"
	"github.com/budingricky/oneclick/internal/storage"
)

// Status is the lifecycle state of a batch item.
type Status int

const (
	StatusPending Status = iota
	StatusDownloading
	StatusCompleted
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Item tracks one record through the batch.
type Item struct {
	Record    *catalog.Record
	Status    Status
	Message   string
	StartTime time.Time
	EndTime   time.Time
}

// Outcome is the ephemeral per-record result reported to the caller.
type Outcome struct {
	Name     string
	OK       bool
	Message  string
	Duration time.Duration
}

// Stats aggregates batch counters.
type Stats struct {
	Total       int
	Pending     int
	Downloading int
	Completed   int
	Failed      int
	Skipped     int
}

// ProgressFunc is invoked after each item completes. It runs on the
// batch goroutine and is expected to hand off to the caller's event
// loop; it must not block.
type ProgressFunc func(done, total int, name string, ok bool)

// ItemFunc observes item transitions. It fires once when an item
// starts downloading (zero-value outcome) and once when it finishes.
type ItemFunc func(item *Item, outcome Outcome)

// Runner processes a batch of records through the corrector.
type Runner struct {
	corrector *repair.Corrector
	log       *logging.Logger

	progress ProgressFunc
	onItem   ItemFunc

	mu    sync.RWMutex
	items []*Item
}

// NewRunner creates a batch runner.
func NewRunner(corrector *repair.Corrector, log *logging.Logger) *Runner {
	return &Runner{corrector: corrector, log: log}
}

// SetProgress sets the per-item progress callback.
func (r *Runner) SetProgress(fn ProgressFunc) {
	r.progress = fn
}

// SetItemFunc sets the per-item outcome observer.
func (r *Runner) SetItemFunc(fn ItemFunc) {
	r.onItem = fn
}

// Items returns a snapshot of the batch items.
func (r *Runner) Items() []*Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*Item, len(r.items))
	copy(items, r.items)
	return items
}

// Stats returns current batch counters.
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.items)}
	for _, item := range r.items {
		switch item.Status {
		case StatusPending:
			stats.Pending++
		case StatusDownloading:
			stats.Downloading++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusSkipped:
			stats.Skipped++
		}
	}
	return stats
}

// Run processes the records sequentially and returns the aggregate
// result map. Target directory problems fail the whole batch up front,
// one outcome per record; nothing else is fatal to the batch.
func (r *Runner) Run(ctx context.Context, records []*catalog.Record, targetDir string) map[string]Outcome {
	r.mu.Lock()
	r.items = make([]*Item, len(records))
	for i, rec := range records {
		r.items[i] = &Item{Record: rec, Status: StatusPending}
	}
	r.mu.Unlock()

	results := make(map[string]Outcome, len(records))

	if ok, reason := storage.PrepareDir(targetDir); !ok {
		r.log.Error(logging.ChannelDownload, "target directory unusable",
			"dir", targetDir, "reason", reason)
		for i, rec := range records {
			outcome := Outcome{Name: rec.Name, OK: false, Message: reason}
			results[rec.Name] = outcome
			r.finishItem(i, StatusFailed, outcome)
			r.notify(i+1, len(records), rec.Name, false)
		}
		return results
	}

	if ok, reason := storage.CheckFreeSpace(targetDir, catalog.TotalSize(records)); !ok {
		r.log.Error(logging.ChannelDownload, "insufficient disk space",
			"dir", targetDir, "reason", reason)
		for i, rec := range records {
			outcome := Outcome{Name: rec.Name, OK: false, Message: reason}
			results[rec.Name] = outcome
			r.finishItem(i, StatusFailed, outcome)
			r.notify(i+1, len(records), rec.Name, false)
		}
		return results
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			outcome := Outcome{Name: rec.Name, OK: false, Message: "batch canceled"}
			results[rec.Name] = outcome
			r.finishItem(i, StatusSkipped, outcome)
			continue
		}

		r.setStatus(i, StatusDownloading)
		r.log.Info(logging.ChannelDownload, "processing item",
			"software", rec.Name, "index", i+1, "total", len(records))

		start := time.Now()
		ok, message := r.corrector.Correct(ctx, rec, targetDir)
		outcome := Outcome{
			Name:     rec.Name,
			OK:       ok,
			Message:  message,
			Duration: time.Since(start),
		}
		results[rec.Name] = outcome

		status := StatusCompleted
		if !ok {
			status = StatusFailed
		}
		r.finishItem(i, status, outcome)
		r.notify(i+1, len(records), rec.Name, ok)
	}

	return results
}

// Start runs the batch on its own goroutine and delivers the result map
// on the returned channel.
func (r *Runner) Start(ctx context.Context, records []*catalog.Record, targetDir string) <-chan map[string]Outcome {
	done := make(chan map[string]Outcome, 1)
	go func() {
		done <- r.Run(ctx, records, targetDir)
		close(done)
	}()
	return done
}

func (r *Runner) setStatus(i int, status Status) {
	r.mu.Lock()
	r.items[i].Status = status
	if status == StatusDownloading {
		r.items[i].StartTime = time.Now()
	}
	item := r.items[i]
	r.mu.Unlock()

	if status == StatusDownloading && r.onItem != nil {
		r.onItem(item, Outcome{Name: item.Record.Name})
	}
}

func (r *Runner) finishItem(i int, status Status, outcome Outcome) {
	r.mu.Lock()
	r.items[i].Status = status
	r.items[i].Message = outcome.Message
	r.items[i].EndTime = time.Now()
	item := r.items[i]
	r.mu.Unlock()

	if r.onItem != nil {
		r.onItem(item, outcome)
	}
}

// notify invokes the progress callback, swallowing panics: the callback
// may target a UI element that no longer exists.
func (r *Runner) notify(done, total int, name string, ok bool) {
	if r.progress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn(logging.ChannelMain, "progress callback panicked", "panic", rec)
		}
	}()
	r.progress(done, total, name, ok)
}
