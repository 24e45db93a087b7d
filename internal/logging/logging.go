package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	// Logger is the global structured logger
	Logger *slog.Logger

	// Verbose enables debug logging
	Verbose bool

	jsonOutput bool
)

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Setup configures the logger based on verbosity and output preferences
func Setup(verbose bool, json bool, w io.Writer) {
	Verbose = verbose
	jsonOutput = json

	if w == nil {
		w = os.Stderr
	}
	Logger = slog.New(newHandler(w))
}

func newHandler(w io.Writer) slog.Handler {
	level := slog.LevelInfo
	if Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// RedirectToFile sends structured logs to path, keeping the current
// verbosity and format. Full-screen programs use it so log lines do not
// land on top of the rendered view. The returned func restores stderr
// logging and closes the file.
func RedirectToFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	prev := Logger
	Logger = slog.New(newHandler(f))
	return func() {
		Logger = prev
		_ = f.Close()
	}, nil
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}
