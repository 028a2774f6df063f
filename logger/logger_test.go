package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zerr"

	"flowroute/diagram"
	"flowroute/logger"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.Options{Level: "debug", JSON: true})

	log.Debug("batch flushed", "connections", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "batch flushed", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.InDelta(t, 3, rec["connections"], 0)
}

func TestNewPrettyFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.Options{Level: "warn"})

	log.Info("hidden")
	log.Warn("unknown port", "port", "north")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "unknown port")
	assert.Contains(t, out, "port=north")
}

func TestPrettyHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewPrettyHandler(&buf, nil)).With("session", "s1").WithGroup("cache")

	log.Info("stats", "hits", 4)

	assert.Equal(t, "stats session=s1 cache.hits=4\n", buf.String())
}

func TestPrettyHandlerNestedGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewPrettyHandler(&buf, nil)).
		WithGroup("scheduler").With("debounce", "16ms").WithGroup("batch")

	log.Info("flushed", slog.Group("dirty", "nodes", 2, "regions", 1), "", nil)

	assert.Equal(t,
		"flushed scheduler.debounce=16ms scheduler.batch.dirty.nodes=2 scheduler.batch.dirty.regions=1\n",
		buf.String())
}

func TestPrettyHandlerLevelIcons(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.Debug("routing", "connection", "c1")
	log.Warn("unknown port")
	log.Error("cycle rejected")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "routing connection=c1", lines[0])
	assert.Equal(t, "! unknown port", lines[1])
	assert.Equal(t, "✗ cycle rejected", lines[2])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logger.ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, diagram.ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatError(t *testing.T) {
	err := zerr.Wrap(zerr.Wrap(errors.New("open graph.yaml: no such file"), "failed to read graph"), "failed to run route")

	want := "Error: failed to run route\n\n  Caused by:\n    → failed to read graph\n    → open graph.yaml: no such file"
	assert.Equal(t, want, logger.FormatError(err))
	assert.Equal(t, "Error: plain", logger.FormatError(errors.New("plain")))
	assert.Empty(t, logger.FormatError(nil))
}
