package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level string // debug | info | warn | error
	JSON  bool
	File  string // appended to in addition to the console writer
}

// NewLogger builds the process logger. Console output goes through charmbracelet/log
// unless JSON is requested. The returned close func releases the log file, if any.
func NewLogger(cfg LogConfig, console io.Writer) (*slog.Logger, func() error, error) {
	if console == nil {
		console = os.Stderr
	}
	closeFn := func() error { return nil }

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, closeFn, err
	}

	w := console
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closeFn, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(console, f)
		closeFn = f.Close
	}

	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
	}

	cl := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           charmlog.Level(level),
	})
	return slog.New(cl), closeFn, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, NewAppError("CONFIG_ERROR", fmt.Sprintf("invalid log level %q", s), ErrInvalidInput)
	}
	return l, nil
}
