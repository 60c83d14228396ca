package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionalSourceHandler(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		levels     []slog.Level
		wantSource bool
	}{
		{name: "info skipped", level: slog.LevelInfo, levels: []slog.Level{slog.LevelWarn, slog.LevelError}},
		{name: "warn annotated", level: slog.LevelWarn, levels: []slog.Level{slog.LevelWarn, slog.LevelError}, wantSource: true},
		{name: "error annotated", level: slog.LevelError, levels: []slog.Level{slog.LevelWarn, slog.LevelError}, wantSource: true},
		{name: "info annotated in development", level: slog.LevelInfo, levels: []slog.Level{slog.LevelDebug, slog.LevelInfo}, wantSource: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			log := slog.New(NewConditionalSourceHandler(base, tt.levels...))

			log.Log(context.Background(), tt.level, "request saved", "number", "20240110-001")

			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
			assert.Contains(t, buf.String(), "number=20240110-001")
		})
	}
}

func TestConditionalSourceHandlerKeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	log := slog.New(NewConditionalSourceHandler(base, slog.LevelError)).
		With("component", "eventbus").
		WithGroup("event")

	log.Info("delivered", "kind", "request_created")

	assert.Contains(t, buf.String(), "component=eventbus")
	assert.Contains(t, buf.String(), "event.kind=request_created")
	assert.NotContains(t, buf.String(), "source=")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
