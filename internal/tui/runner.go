package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/budingricky/oneclick/internal/batch"
	"github.com/budingricky/oneclick/internal/catalog"
)

// Runner manages the picker TUI and batch coordination
type Runner struct {
	model   *Model
	program *tea.Program
	index   map[string]*catalog.Record
	batch   *batch.Runner
	dir     string

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	results map[string]batch.Outcome
}

// NewRunner creates a TUI runner over the given records. The picker
// offers exactly this set, so callers control any category filtering.
func NewRunner(records []*catalog.Record, br *batch.Runner, targetDir string) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	model := NewModel(records)

	index := make(map[string]*catalog.Record, len(records))
	for _, rec := range records {
		index[rec.Name] = rec
	}

	r := &Runner{
		model:  &model,
		index:  index,
		batch:  br,
		dir:    targetDir,
		ctx:    ctx,
		cancel: cancel,
	}

	model.SetCallbacks(r.onStart, r.onCancel)

	return r
}

// Run starts the TUI and blocks until it exits.
func (r *Runner) Run() error {
	r.program = tea.NewProgram(r.model, tea.WithAltScreen())

	r.batch.SetProgress(func(done, total int, name string, ok bool) {
		if r.program == nil {
			return
		}
		r.program.Send(ItemDoneMsg{Done: done, Total: total, Name: name, OK: ok})
	})
	r.batch.SetItemFunc(func(item *batch.Item, outcome batch.Outcome) {
		if r.program == nil {
			return
		}
		if item.Status == batch.StatusDownloading {
			r.program.Send(ItemStartMsg{Name: item.Record.Name})
		}
	})

	_, err := r.program.Run()
	r.cancel()
	return err
}

// Results returns the outcome map of the last batch, if any.
func (r *Runner) Results() map[string]batch.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

// Context returns the runner's context
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Stop stops the TUI
func (r *Runner) Stop() {
	if r.program != nil {
		r.program.Quit()
	}
	r.cancel()
}

// Callbacks

func (r *Runner) onStart(names []string) {
	records := make([]*catalog.Record, 0, len(names))
	for _, name := range names {
		if rec, ok := r.index[name]; ok {
			records = append(records, rec)
		}
	}

	go func() {
		results := <-r.batch.Start(r.ctx, records, r.dir)

		r.mu.Lock()
		r.results = results
		r.mu.Unlock()

		var completed, failed int
		for _, outcome := range results {
			if outcome.OK {
				completed++
			} else {
				failed++
			}
		}
		if r.program != nil {
			r.program.Send(BatchDoneMsg{Completed: completed, Failed: failed})
		}
	}()
}

func (r *Runner) onCancel() {
	r.cancel()
}
