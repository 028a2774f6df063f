package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	graph := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(graph, []byte(`
nodes:
  - {id: A, x: 0, y: 0, width: 100, height: 60}
  - {id: B, x: 300, y: 0, width: 100, height: 60}
connections:
  - {id: c1, source: A, target: B}
`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"route", graph}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "c1")
}

func TestRun_FailureFormatsError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"route", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: ")
	assert.Contains(t, stderr.String(), "failed to read graph")
}
