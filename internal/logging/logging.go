// Package logging configures slog on top of charmbracelet/log.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-logfmt/logfmt"
)

// New creates a logger writing to w at the given level.
// Valid levels: "debug", "info", "warn", "error".
func New(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Setup installs a charmbracelet logger as the slog default and returns it.
func Setup(w io.Writer, level string) *log.Logger {
	logger := New(w, level)
	slog.SetDefault(slog.New(logger))
	return logger
}

// SetupFile is Setup for log files: records are logfmt with timestamps so
// RecordLevel can read them back.
func SetupFile(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
	})
	logger.SetLevel(ParseLevel(level))
	slog.SetDefault(slog.New(logger))
	return logger
}

// RecordLevel returns the level of a logfmt record written by SetupFile.
func RecordLevel(line string) (log.Level, bool) {
	d := logfmt.NewDecoder(strings.NewReader(line))
	for d.ScanRecord() {
		for d.ScanKeyval() {
			if string(d.Key()) == "level" {
				return ParseLevel(string(d.Value())), true
			}
		}
	}
	return log.InfoLevel, false
}
