// Package logging provides per-channel leveled logging for oneclick.
//
// The manager keeps separate log channels for general operation, downloads
// and validation so that a failed batch can be diagnosed from the channel
// that owns it. Each channel writes to its own file under the log directory;
// without a directory everything goes to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Channel identifies a log channel
type Channel string

const (
	ChannelMain       Channel = "main"
	ChannelDownload   Channel = "download"
	ChannelValidation Channel = "validation"
	ChannelError      Channel = "error"
)

// channelFiles maps channels to their log file names
var channelFiles = map[Channel]string{
	ChannelMain:       "oneclick.log",
	ChannelDownload:   "downloads.log",
	ChannelValidation: "validation.log",
	ChannelError:      "errors.log",
}

// Logger dispatches records to per-channel slog loggers.
type Logger struct {
	loggers map[Channel]*slog.Logger
	files   []*os.File
}

// New creates a Logger writing each channel to its own file under dir.
// An empty dir sends every channel to stderr.
func New(dir string, level slog.Level) (*Logger, error) {
	l := &Logger{loggers: make(map[Channel]*slog.Logger)}

	if dir == "" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		for ch := range channelFiles {
			l.loggers[ch] = slog.New(handler).With("channel", string(ch))
		}
		return l, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	for ch, name := range channelFiles {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("opening log file %s: %w", name, err)
		}
		l.files = append(l.files, f)
		handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
		l.loggers[ch] = slog.New(handler)
	}
	return l, nil
}

// Discard returns a Logger that drops everything. Used in tests.
func Discard() *Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	l := &Logger{loggers: make(map[Channel]*slog.Logger)}
	for ch := range channelFiles {
		l.loggers[ch] = slog.New(handler)
	}
	return l
}

// get returns the logger for a channel, falling back to main.
func (l *Logger) get(ch Channel) *slog.Logger {
	if logger, ok := l.loggers[ch]; ok {
		return logger
	}
	return l.loggers[ChannelMain]
}

// Debug logs at debug level on the given channel.
func (l *Logger) Debug(ch Channel, msg string, args ...any) {
	l.get(ch).Debug(msg, args...)
}

// Info logs at info level on the given channel.
func (l *Logger) Info(ch Channel, msg string, args ...any) {
	l.get(ch).Info(msg, args...)
}

// Warn logs at warn level on the given channel.
func (l *Logger) Warn(ch Channel, msg string, args ...any) {
	l.get(ch).Warn(msg, args...)
}

// Error logs at error level; errors always also land on the error channel.
func (l *Logger) Error(ch Channel, msg string, args ...any) {
	l.get(ch).Error(msg, args...)
	if ch != ChannelError {
		l.get(ChannelError).Error(msg, args...)
	}
}

// Close closes all channel files.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}

// ParseLevel maps a config string to a slog level. Unknown strings
// default to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
