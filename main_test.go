package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/blockfall/game/engine"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{AppName}, args...))
	return out.String(), err
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "blockfall", AppName)
	assert.NotEmpty(t, Version)
}

func TestInitializeServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	gameService, sessions, err := initializeServices("configs")
	require.NoError(t, err)
	require.NotNil(t, gameService)

	info, err := gameService.CreateSession(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "classic", info.ConfigName)
	assert.Equal(t, 1, sessions.Count())
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	_, _, err := initializeServices("/non/existent/path")
	assert.Error(t, err)
}

func TestSimulate(t *testing.T) {
	record := t.TempDir()
	out, err := run(t, "--config-dir", "", "simulate",
		"--games", "3", "--seed", "5", "--max-steps", "400", "--verify", "--record", record)
	require.NoError(t, err)

	var summary simulateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Games)
	assert.Equal(t, "greedy", summary.Player)
	require.Len(t, summary.Results, 3)
	for i, r := range summary.Results {
		assert.Equal(t, uint64(5+i), r.Seed)
		require.NotNil(t, r.Verified)
		assert.True(t, *r.Verified)
	}

	t.Run("runs are reproducible", func(t *testing.T) {
		again, err := run(t, "--config-dir", "", "simulate", "--games", "3", "--seed", "5", "--max-steps", "400", "--verify")
		require.NoError(t, err)
		assert.JSONEq(t, out, again)
	})

	t.Run("recorded scripts replay", func(t *testing.T) {
		text, err := run(t, "replay", filepath.Join(record, "game-6.json"))
		require.NoError(t, err)
		assert.Contains(t, text, "Pieces: ")
		assert.Contains(t, text, "Score: ")
	})
}

func TestSimulateErrors(t *testing.T) {
	_, err := run(t, "--config-dir", "", "simulate", "--preset", "nope")
	assert.Error(t, err)

	_, err = run(t, "--config-dir", "", "simulate", "--player", "oracle", "--seed", "1")
	assert.Error(t, err)

	_, err = run(t, "--config-dir", "", "simulate", "--games", "0")
	assert.Error(t, err)

	_, err = run(t, "--log-level", "loud", "presets", "schema")
	assert.Error(t, err)
}

func TestReplayErrors(t *testing.T) {
	_, err := run(t, "replay")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"seed":1,"config":{"width":1}}`), 0644))
	_, err = run(t, "replay", bad)
	assert.Error(t, err)
}

func TestPresets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zen.yaml"), []byte("name: Zen\nspeedup_ms: 0\n"), 0644))

	t.Run("list", func(t *testing.T) {
		out, err := run(t, "--config-dir", dir, "presets", "list")
		require.NoError(t, err)
		assert.Contains(t, out, `"config_id":"classic"`)
		assert.Contains(t, out, `"config_id":"zen"`)
	})

	t.Run("validate", func(t *testing.T) {
		out, err := run(t, "--config-dir", dir, "presets", "validate")
		require.NoError(t, err)
		assert.Contains(t, out, `"valid":true`)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.json"), []byte(`{"width":2}`), 0644))
		out, err = run(t, "--config-dir", dir, "presets", "validate")
		assert.Error(t, err)
		assert.Contains(t, out, `"valid":false`)
	})

	t.Run("schema", func(t *testing.T) {
		out, err := run(t, "presets", "schema")
		require.NoError(t, err)
		assert.Contains(t, out, "blockfall preset")
	})
}

func TestShippedPresetsAreValid(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	out, err := run(t, "presets", "validate")
	require.NoError(t, err, out)

	var reports []struct {
		ConfigID string `json:"config_id"`
		Valid    bool   `json:"valid"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	assert.NotEmpty(t, reports)
	for _, r := range reports {
		assert.True(t, r.Valid, r.ConfigID)
	}
}

func TestWatch(t *testing.T) {
	out, err := run(t, "--config-dir", "", "watch", "--seed", "3", "--tick", "1ms", "--move-delay", "1ms", "--duration", "300ms")
	require.NoError(t, err)
	assert.Contains(t, out, "seed 3: score")
	assert.Contains(t, out, "@")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, engine.DefaultConfig()))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")), "compact when not a terminal")
}
