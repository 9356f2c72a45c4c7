// Package tui provides an interactive terminal interface using Bubbletea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/budingricky/oneclick/internal/catalog"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))
)

// Phase represents the current interface phase
type Phase int

const (
	PhasePicking Phase = iota
	PhaseRunning
	PhaseDone
)

// entry is one selectable catalog row
type entry struct {
	record   *catalog.Record
	selected bool
}

// Model is the Bubbletea model for the catalog picker and batch progress
type Model struct {
	phase   Phase
	entries []entry
	cursor  int
	offset  int

	// Batch progress
	done     int
	total    int
	current  string
	failures []string

	// UI components
	progress progress.Model
	spinner  spinner.Model
	width    int
	height   int
	quitting bool

	// Invoked with the selected names when the user confirms
	onStart  func(names []string)
	onCancel func()
}

// ItemStartMsg is sent when a download begins
type ItemStartMsg struct {
	Name string
}

// ItemDoneMsg is sent when one item finishes
type ItemDoneMsg struct {
	Done  int
	Total int
	Name  string
	OK    bool
}

// BatchDoneMsg is sent when the whole batch finishes
type BatchDoneMsg struct {
	Completed int
	Failed    int
}

// NewModel creates a picker model over the given catalog records
func NewModel(records []*catalog.Record) Model {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	entries := make([]entry, len(records))
	for i, rec := range records {
		entries[i] = entry{record: rec}
	}

	return Model{
		phase:    PhasePicking,
		entries:  entries,
		progress: p,
		spinner:  s,
		width:    80,
		height:   24,
	}
}

// SetCallbacks sets the control callbacks
func (m *Model) SetCallbacks(onStart func(names []string), onCancel func()) {
	m.onStart = onStart
	m.onCancel = onCancel
}

// Selected returns the names of the currently selected entries
func (m Model) Selected() []string {
	var names []string
	for _, e := range m.entries {
		if e.selected {
			names = append(names, e.record.Name)
		}
	}
	return names
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, tea.Quit

		case "up", "k":
			if m.phase == PhasePicking && m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.phase == PhasePicking && m.cursor < len(m.entries)-1 {
				m.cursor++
			}

		case " ":
			if m.phase == PhasePicking && len(m.entries) > 0 {
				m.entries[m.cursor].selected = !m.entries[m.cursor].selected
			}

		case "a":
			if m.phase == PhasePicking {
				all := true
				for _, e := range m.entries {
					if !e.selected {
						all = false
						break
					}
				}
				for i := range m.entries {
					m.entries[i].selected = !all
				}
			}

		case "enter":
			if m.phase == PhasePicking {
				names := m.Selected()
				if len(names) == 0 {
					return m, nil
				}
				m.phase = PhaseRunning
				m.total = len(names)
				m.done = 0
				if m.onStart != nil {
					m.onStart(names)
				}
			} else if m.phase == PhaseDone {
				m.quitting = true
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 10
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ItemStartMsg:
		m.current = msg.Name
		return m, nil

	case ItemDoneMsg:
		m.done = msg.Done
		m.total = msg.Total
		if !msg.OK {
			m.failures = append(m.failures, msg.Name)
		}
		return m, nil

	case BatchDoneMsg:
		m.phase = PhaseDone
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("📦 oneclick software downloader"))
	b.WriteString("\n\n")

	switch m.phase {
	case PhasePicking:
		b.WriteString(m.renderPicker())
	case PhaseRunning:
		b.WriteString(m.renderBatch())
	case PhaseDone:
		b.WriteString(m.renderSummary())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderPicker() string {
	var b strings.Builder

	visible := m.height - 8
	if visible < 3 {
		visible = 3
	}

	start := m.offset
	if m.cursor < start {
		start = m.cursor
	}
	if m.cursor >= start+visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.entries) {
		end = len(m.entries)
	}

	for i := start; i < end; i++ {
		e := m.entries[i]

		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}

		check := "[ ]"
		if e.selected {
			check = successStyle.Render("[x]")
		}

		line := fmt.Sprintf("%s%s %s", cursor, check, e.record.Name)
		if e.record.Category != "" {
			line += "  " + categoryStyle.Render(e.record.Category)
		}
		if e.record.Size > 0 {
			line += "  " + dimStyle.Render(formatBytes(e.record.Size))
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	selected := len(m.Selected())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d selected", selected, len(m.entries))))

	return b.String()
}

func (m Model) renderBatch() string {
	var b strings.Builder

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}

	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("  ")
	b.WriteString(highlightStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total)))
	b.WriteString("\n\n")

	if m.current != "" {
		b.WriteString(m.spinner.View())
		b.WriteString(" Downloading ")
		b.WriteString(highlightStyle.Render(m.current))
	}

	if len(m.failures) > 0 {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d failed", len(m.failures))))
	}

	return b.String()
}

func (m Model) renderSummary() string {
	var b strings.Builder

	completed := m.total - len(m.failures)
	b.WriteString(successStyle.Render(fmt.Sprintf("✓ %d completed", completed)))
	if len(m.failures) > 0 {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %d failed", len(m.failures))))
		b.WriteString("\n\n")
		for _, name := range m.failures {
			b.WriteString(errorStyle.Render("  ✗ "))
			b.WriteString(name)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderHelp() string {
	var keys []string

	switch m.phase {
	case PhasePicking:
		keys = append(keys, "↑/↓:move", "space:select", "a:all", "enter:download")
	case PhaseDone:
		keys = append(keys, "enter:close")
	}
	keys = append(keys, "q:quit")

	help := strings.Join(keys, " • ")
	return dimStyle.Render(help)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
