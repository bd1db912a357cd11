package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/coaster/internal/cli"
	"github.com/chazu/coaster/pkg/graph"
	"github.com/chazu/coaster/pkg/kernel"
)

var loopScript = filepath.Join("..", "..", "examples", "loop.track")

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func requireExit(t *testing.T, err error, code int) *cli.ExitError {
	t.Helper()
	var ee *cli.ExitError
	require.True(t, errors.As(err, &ee), "err = %v", err)
	require.Equal(t, code, ee.Code, ee.Message)
	return ee
}

func TestRunHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), &out, &errOut, []string{"-h"}))
	require.Contains(t, out.String(), "Usage:")
}

func TestRunScriptWritesSnapshot(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "park.json")
	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), &out, &errOut, []string{"-o", snapshot, loopScript}))

	require.Contains(t, out.String(), "ride-1\t\"Square Loop\"\tcomplete\tsegments=14 nodes=14")

	data, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	s, err := graph.DecodeSnapshot(data)
	require.NoError(t, err)
	park, err := graph.Restore(s)
	require.NoError(t, err)
	require.Equal(t, 1, park.Len())

	// The saved snapshot passes -check with the same summary.
	out.Reset()
	require.NoError(t, run(context.Background(), &out, &errOut, []string{"-check", snapshot}))
	require.Contains(t, out.String(), "ride-1\t\"Square Loop\"\tcomplete")
}

func TestRunSnapshotToStdout(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), &out, &errOut, []string{"-q", "-o", "-", loopScript}))
	s, err := graph.DecodeSnapshot(out.Bytes())
	require.NoError(t, err)
	require.Contains(t, s, graph.RideID("ride-1"))
}

func TestRunScriptError(t *testing.T) {
	path := writeFile(t, "bad.track", "(place :at (vec3 0 0 0))\n(commit 1 2)\n")
	var out, errOut bytes.Buffer
	ee := requireExit(t, run(context.Background(), &out, &errOut, []string{path}), 1)
	require.True(t, strings.HasPrefix(ee.Message, path), ee.Message)
}

func TestRunCheckRejectsCorruptSnapshot(t *testing.T) {
	path := writeFile(t, "park.json", `{"ride-1": {"id": "ride-1", "nodes": [], "segments": []}}`)
	var out, errOut bytes.Buffer
	requireExit(t, run(context.Background(), &out, &errOut, []string{"-check", path}), 1)
}

func TestRunMissingInputs(t *testing.T) {
	var out, errOut bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing")
	requireExit(t, run(context.Background(), &out, &errOut, []string{missing + ".track"}), 2)
	requireExit(t, run(context.Background(), &out, &errOut, []string{"-config", missing + ".hcl", loopScript}), 2)
}

func TestRunMeshes(t *testing.T) {
	cfg := writeFile(t, "coaster.hcl", `
mesh {
  cells       = 24
  rail_radius = 0.3
  samples     = 2
}
log {
  level  = "debug"
  format = "json"
}
`)
	script := writeFile(t, "one.track", `(place :at (vec3 0 0 0)) (track "SS")`)
	meshes := filepath.Join(t.TempDir(), "meshes.json")

	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), &out, &errOut, []string{"-config", cfg, "-meshes", meshes, script}))
	require.Contains(t, out.String(), "open\tsegments=2")
	require.Contains(t, errOut.String(), `"msg":"meshes written"`)

	data, err := os.ReadFile(meshes)
	require.NoError(t, err)
	var got []kernel.Mesh
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	for _, m := range got {
		require.True(t, strings.HasPrefix(m.Name, "ride-1/s"), m.Name)
		require.NotEmpty(t, m.Indices)
	}
}
