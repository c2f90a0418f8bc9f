package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const rectHCL = `
class "rect" {
  property "left" {
    default = 10
  }
  property "width" {
    default = 100
    valid   = value >= 0
  }

  computed "right" {
    get = left + width
    set = {
      width = value - left
    }
  }
}

class "square" {
  extends = "rect"

  property "height" {
    default = 100
  }

  compute "keep_square" {
    update = {
      height = width
    }
  }
}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

type output struct {
	Class string         `json:"class" yaml:"class"`
	State map[string]any `json:"state" yaml:"state"`
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunDefaults(t *testing.T) {
	classes := writeFile(t, t.TempDir(), "rect.hcl", rectHCL)

	stdout, _, err := runCLI(t, classes)
	require.NoError(t, err)

	var out output
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "rect", out.Class)
	assert.Equal(t, map[string]any{"left": 10.0, "width": 100.0}, out.State)
}

func TestRunSetThroughComputed(t *testing.T) {
	classes := writeFile(t, t.TempDir(), "rect.hcl", rectHCL)

	stdout, _, err := runCLI(t, "-classes", classes, "-set", "right=150", "-format", "yaml")
	require.NoError(t, err)

	var out output
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 140, out.State["width"])
}

func TestRunComputeNode(t *testing.T) {
	classes := writeFile(t, t.TempDir(), "rect.hcl", rectHCL)

	stdout, _, err := runCLI(t, "-class", "square", "-set", "width=42", classes)
	require.NoError(t, err)

	var out output
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "square", out.Class)
	assert.Equal(t, 42.0, out.State["height"])
}

func TestRunRejectedSet(t *testing.T) {
	classes := writeFile(t, t.TempDir(), "rect.hcl", rectHCL)

	_, _, err := runCLI(t, "-set", "width=-1", classes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width")
}

func TestRunSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	classes := writeFile(t, dir, "rect.hcl", rectHCL)
	snap := filepath.Join(dir, "snap.json")

	_, _, err := runCLI(t, "-set", "left=5", "-save", snap, classes)
	require.NoError(t, err)
	require.FileExists(t, snap)

	stdout, _, err := runCLI(t, "-load", snap, "-set", `width=1`, classes)
	require.NoError(t, err)

	var out output
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 5.0, out.State["left"])
	assert.Equal(t, 1.0, out.State["width"])
}

func TestRunDOT(t *testing.T) {
	classes := writeFile(t, t.TempDir(), "rect.hcl", rectHCL)

	stdout, _, err := runCLI(t, "-dot", classes)
	require.NoError(t, err)
	assert.Contains(t, stdout, `digraph "rect" {`)
	assert.Contains(t, stdout, `"left" -> "right";`)
	assert.Contains(t, stdout, `"right" -> "width" [style=dashed];`)
	assert.Contains(t, stdout, `label="right = 110"`)
}

func TestRunSchema(t *testing.T) {
	classes := writeFile(t, t.TempDir(), "rect.hcl", rectHCL)

	stdout, _, err := runCLI(t, "-schema", classes)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, `"right"`)
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	classes := writeFile(t, dir, "rect.hcl", rectHCL)
	cfg := writeFile(t, dir, "smartstate.toml", `
classes = "`+filepath.ToSlash(classes)+`"
class = "square"
log_level = "error"

[set]
width = 7
`)

	stdout, _, err := runCLI(t, "-config", cfg)
	require.NoError(t, err)

	var out output
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 7.0, out.State["width"])
	assert.Equal(t, 7.0, out.State["height"])

	// flags win over the file
	stdout, _, err = runCLI(t, "-config", cfg, "-set", "width=9")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 9.0, out.State["width"])
}

func TestRunConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := runCLI(t, "-config", writeFile(t, dir, "bad.toml", `nope = 1`))
	assert.ErrorContains(t, err, "unknown key")

	_, _, err = runCLI(t, "-config", writeFile(t, dir, "waves.toml", `max_waves = 0`))
	assert.ErrorContains(t, err, "max_waves")
}

func TestRunUsage(t *testing.T) {
	_, stderr, err := runCLI(t)
	assert.ErrorContains(t, err, "no class file")
	assert.Contains(t, stderr, "Usage:")

	_, _, err = runCLI(t, "-h")
	assert.ErrorIs(t, err, flag.ErrHelp)

	_, _, err = runCLI(t, "-set", "nokey", "x.hcl")
	assert.Error(t, err)
}

func TestRunUnknownClass(t *testing.T) {
	classes := writeFile(t, t.TempDir(), "rect.hcl", rectHCL)
	_, _, err := runCLI(t, "-class", "circle", classes)
	assert.ErrorContains(t, err, `no class "circle"`)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 3.0, parseValue("3"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, []any{"a"}, parseValue(`["a"]`))
	assert.Equal(t, "plain", parseValue("plain"))
}
