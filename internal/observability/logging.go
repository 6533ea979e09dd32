// Package observability configures the process-wide slog logger.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelEnv overrides the log level when --verbose is not given.
const LevelEnv = "DOCVERIFY_LOG_LEVEL"

// LogOptions configures Setup.
type LogOptions struct {
	Verbose bool
	Level   string    // debug, info, warn or error; empty reads LevelEnv
	File    string    // optional rotating log file, written in addition to Stderr
	JSON    bool      // JSON handler instead of text
	Stderr  io.Writer // defaults to os.Stderr
}

// ParseLevel maps a level name to a slog level. Verbose always wins.
func ParseLevel(verbose bool, name string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Setup builds a logger from opts and installs it as the slog default.
// The returned closer flushes the log file, if any.
func Setup(opts LogOptions) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	if opts.Stderr != nil {
		out = opts.Stderr
	}
	level := opts.Level
	if level == "" {
		level = os.Getenv(LevelEnv)
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		logWriter := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
		out = io.MultiWriter(out, logWriter)
		closer = logWriter
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Verbose, level)}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
