// Package ui provides terminal output for batch operations.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/budingricky/oneclick/internal/batch"
	"github.com/budingricky/oneclick/internal/catalog"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
)

// Printer renders batch progress and summaries to a terminal.
type Printer struct {
	out     io.Writer
	noColor bool
	quiet   bool
}

// PrinterOption configures a Printer
type PrinterOption func(*Printer)

// WithOutput sets the output writer
func WithOutput(w io.Writer) PrinterOption {
	return func(p *Printer) {
		p.out = w
	}
}

// WithNoColor disables colored output
func WithNoColor(noColor bool) PrinterOption {
	return func(p *Printer) {
		p.noColor = noColor
	}
}

// WithQuiet suppresses per-item lines
func WithQuiet(quiet bool) PrinterOption {
	return func(p *Printer) {
		p.quiet = quiet
	}
}

// NewPrinter creates a Printer writing to stdout by default.
func NewPrinter(opts ...PrinterOption) *Printer {
	p := &Printer{out: os.Stdout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) color(code, s string) string {
	if p.noColor {
		return s
	}
	return code + s + colorReset
}

// ItemDone prints one line per finished item. Safe to hand to
// batch.Runner as its progress callback.
func (p *Printer) ItemDone(done, total int, name string, ok bool) {
	if p.quiet {
		return
	}
	mark := p.color(colorGreen, "ok")
	if !ok {
		mark = p.color(colorRed, "FAILED")
	}
	fmt.Fprintf(p.out, "[%d/%d] %s %s\n", done, total, p.color(colorBold, name), mark)
}

// Summary prints the aggregate result of a batch.
func (p *Printer) Summary(results map[string]batch.Outcome) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var completed, failed int
	for _, name := range names {
		outcome := results[name]
		if outcome.OK {
			completed++
		} else {
			failed++
		}
	}

	fmt.Fprintf(p.out, "\n%s %d completed, %d failed of %d\n",
		p.color(colorBold, "Summary:"), completed, failed, len(results))

	for _, name := range names {
		outcome := results[name]
		if outcome.OK {
			continue
		}
		fmt.Fprintf(p.out, "  %s %s: %s\n", p.color(colorRed, "!"), name, outcome.Message)
	}
}

// CatalogListing prints one line per catalog record.
func (p *Printer) CatalogListing(records []*catalog.Record) {
	for _, rec := range records {
		size := "unknown size"
		if rec.Size > 0 {
			size = FormatSize(rec.Size)
		}
		cat := rec.Category
		if cat == "" {
			cat = "uncategorized"
		}
		fmt.Fprintf(p.out, "%-30s  %-15s  %s\n",
			p.color(colorBold, rec.Name), p.color(colorCyan, cat), size)
	}
}

// FormatSize renders a byte count as a human-readable string.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
