package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{" DEBUG ", log.DebugLevel},
		{"invalid", log.InfoLevel},
		{"", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.level))
		})
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "entity", "T:Ns.Foo")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "T:Ns.Foo")
}

func TestSetup(t *testing.T) {
	// Not parallel because it replaces the slog default.
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	Setup(&buf, "debug")
	slog.Debug("relocated", "moved", 3)

	assert.Contains(t, buf.String(), "relocated")
	assert.Contains(t, buf.String(), "moved=3")
}

func TestSetupFile_RecordLevel(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	SetupFile(&buf, "debug")
	slog.Warn("entity left untransformed", "entity", "T:Ns.Foo")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `msg="entity left untransformed"`)
	assert.Contains(t, line, "time=")
	level, ok := RecordLevel(line)
	assert.True(t, ok)
	assert.Equal(t, log.WarnLevel, level)
}

func TestRecordLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line  string
		want  log.Level
		found bool
	}{
		{`time=2026-01-02T03:04:05Z level=error msg=boom`, log.ErrorLevel, true},
		{`level=debug msg="loading graph" path=a.json`, log.DebugLevel, true},
		{`msg="no level here"`, log.InfoLevel, false},
		{`plain text`, log.InfoLevel, false},
	}
	for _, tt := range tests {
		level, ok := RecordLevel(tt.line)
		assert.Equal(t, tt.found, ok, tt.line)
		assert.Equal(t, tt.want, level, tt.line)
	}
}
