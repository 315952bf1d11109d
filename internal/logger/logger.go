// Package logger provides structured logging for bomctl on top of log/slog,
// with a colored text handler for terminals and a JSON handler for files.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

type state struct {
	mu     sync.RWMutex
	level  slog.Level
	format string
	out    io.Writer
	color  bool
	log    *slog.Logger
}

var std = func() *state {
	s := &state{
		level:  slog.LevelInfo,
		format: "text",
		out:    os.Stderr,
		color:  isTerminal(os.Stderr),
	}
	s.rebuild()
	return s
}()

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

// rebuild swaps the slog handler for the current settings. Callers must
// not hold s.mu.
func (s *state) rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()

	lv := new(slog.LevelVar)
	lv.Set(s.level)
	opts := &slog.HandlerOptions{Level: lv}

	var h slog.Handler
	if s.format == "json" {
		h = slog.NewJSONHandler(s.out, opts)
	} else {
		h = newTextHandler(s.out, opts, s.color)
	}
	s.log = slog.New(h)
}

// Init configures the global logger. Output may be "stdout", "stderr",
// or a file path; files are appended to and never colored.
func Init(cfg Config) error {
	if cfg.Output != "" {
		std.mu.Lock()
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			std.out = os.Stdout
			std.color = isTerminal(os.Stdout)
		case "stderr":
			std.out = os.Stderr
			std.color = isTerminal(os.Stderr)
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				std.mu.Unlock()
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			std.out = f
			std.color = false
		}
		std.mu.Unlock()
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	std.rebuild()
	return nil
}

// InitWithWriter points the logger at a custom writer, for tests.
func InitWithWriter(w io.Writer, level, format string, color bool) {
	std.mu.Lock()
	std.out = w
	std.color = color
	std.mu.Unlock()

	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	std.rebuild()
}

// SetLevel sets the minimum log level. Unknown levels are ignored.
func SetLevel(level string) {
	l, ok := parseLevel(level)
	if !ok {
		return
	}
	std.mu.Lock()
	std.level = l
	std.mu.Unlock()
	std.rebuild()
}

// SetFormat sets the output format, "text" or "json".
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	std.mu.Lock()
	std.format = format
	std.mu.Unlock()
	std.rebuild()
}

// DebugEnabled reports whether debug logging is active. The PLM client
// gates request/response logging on it.
func DebugEnabled() bool {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.level <= slog.LevelDebug
}

func current() *slog.Logger {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.log
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// Debug logs at debug level with structured fields.
// Usage: Debug("message", KeyRack, "RK-100")
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs at info level with structured fields.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs at warn level with structured fields.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs at error level with structured fields.
func Error(msg string, args ...any) { current().Error(msg, args...) }
