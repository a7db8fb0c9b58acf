package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiHandler(t *testing.T) {
	var debug, warn bytes.Buffer

	logger := slog.New(NewMultiHandler(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)).With("hold_id", "h-1")

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger.Info("seats held")
	logger.WithGroup("seat").Warn("seat force released", "label", "A1")

	assert.Contains(t, debug.String(), "msg=\"seats held\" hold_id=h-1")
	assert.Contains(t, debug.String(), "seat.label=A1")
	assert.NotContains(t, warn.String(), "seats held")
	assert.Contains(t, warn.String(), "msg=\"seat force released\" hold_id=h-1 seat.label=A1")
}
