// Package hooks provides lifecycle hooks fired per batch item.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Event represents a batch item lifecycle event
type Event string

const (
	EventComplete Event = "complete" // item downloaded and verified
	EventFailed   Event = "failed"   // item exhausted its retries
)

// Payload carries the item outcome to the hooks
type Payload struct {
	Event     Event     `json:"event"`
	Software  string    `json:"software"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration_seconds,omitempty"`
}

// Hook is the interface for all hook types
type Hook interface {
	Execute(ctx context.Context, payload *Payload) error
	Name() string
}

// CommandHook executes a shell command for matching events
type CommandHook struct {
	Command string
	Events  []Event
	Timeout time.Duration
}

// NewCommandHook creates a new command hook
func NewCommandHook(command string, events ...Event) *CommandHook {
	if len(events) == 0 {
		events = []Event{EventComplete, EventFailed}
	}
	return &CommandHook{
		Command: command,
		Events:  events,
		Timeout: 30 * time.Second,
	}
}

// Name returns the hook name
func (h *CommandHook) Name() string {
	return fmt.Sprintf("command:%s", h.Command)
}

// Execute runs the command with environment variables set
func (h *CommandHook) Execute(ctx context.Context, payload *Payload) error {
	if !shouldHandle(h.Events, payload.Event) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", h.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", h.Command)
	}

	cmd.Env = append(os.Environ(),
		fmt.Sprintf("ONECLICK_EVENT=%s", payload.Event),
		fmt.Sprintf("ONECLICK_SOFTWARE=%s", payload.Software),
		fmt.Sprintf("ONECLICK_URL=%s", payload.URL),
		fmt.Sprintf("ONECLICK_FILE=%s", payload.Filename),
		fmt.Sprintf("ONECLICK_MESSAGE=%s", payload.Message),
		fmt.Sprintf("ONECLICK_DURATION=%.2f", payload.Duration),
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("hook command failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}

// WebhookHook sends HTTP POST requests for matching events
type WebhookHook struct {
	URL     string
	Events  []Event
	Headers map[string]string
	Timeout time.Duration
	client  *http.Client
}

// NewWebhookHook creates a new webhook hook
func NewWebhookHook(url string, events ...Event) *WebhookHook {
	if len(events) == 0 {
		events = []Event{EventComplete, EventFailed}
	}
	return &WebhookHook{
		URL:     url,
		Events:  events,
		Headers: make(map[string]string),
		Timeout: 10 * time.Second,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithHeader adds a header to the webhook request
func (h *WebhookHook) WithHeader(key, value string) *WebhookHook {
	h.Headers[key] = value
	return h
}

// Name returns the hook name
func (h *WebhookHook) Name() string {
	return fmt.Sprintf("webhook:%s", h.URL)
}

// Execute sends the webhook request
func (h *WebhookHook) Execute(ctx context.Context, payload *Payload) error {
	if !shouldHandle(h.Events, payload.Event) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "oneclick-webhook/1.0")
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func shouldHandle(events []Event, event Event) bool {
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

// Manager fans an event out to all registered hooks
type Manager struct {
	hooks []Hook
}

// NewManager creates a new hook manager
func NewManager() *Manager {
	return &Manager{hooks: make([]Hook, 0)}
}

// Add adds a hook to the manager
func (m *Manager) Add(hook Hook) {
	m.hooks = append(m.hooks, hook)
}

// AddCommand adds a command hook
func (m *Manager) AddCommand(command string, events ...Event) {
	m.Add(NewCommandHook(command, events...))
}

// AddWebhook adds a webhook hook
func (m *Manager) AddWebhook(url string, events ...Event) {
	m.Add(NewWebhookHook(url, events...))
}

// Execute runs all hooks for the given event, collecting failures
func (m *Manager) Execute(ctx context.Context, payload *Payload) error {
	var errs []string

	for _, hook := range m.hooks {
		if err := hook.Execute(ctx, payload); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", hook.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("hook errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ExecuteAsync runs all hooks asynchronously (fire and forget)
func (m *Manager) ExecuteAsync(ctx context.Context, payload *Payload) {
	for _, hook := range m.hooks {
		go func(h Hook) {
			_ = h.Execute(ctx, payload)
		}(hook)
	}
}

// Count returns the number of registered hooks
func (m *Manager) Count() int {
	return len(m.hooks)
}
