package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func writeConfigFile(t *testing.T, dir, name string, config engine.Config) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	require.NoError(t, err)
	writeFile(t, dir, name+".json", string(data))
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "classic", engine.DefaultConfig())

		manager, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, manager.Dir())
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		assert.Error(t, err)
	})

	t.Run("built-in only", func(t *testing.T) {
		manager, err := NewManager("")
		require.NoError(t, err)

		def := manager.GetDefault()
		require.NotNil(t, def)
		assert.Equal(t, engine.DefaultConfig(), *def)
	})

	t.Run("empty directory falls back to built-in classic", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "classic", manager.GetDefault().Name)
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	fast := engine.DefaultConfig()
	fast.Name = "Fast"
	fast.BaseIntervalMs = 300
	writeConfigFile(t, dir, "fast", fast)

	writeFile(t, dir, "zen.yaml", `
name: Zen
description: Slow gravity
base_interval_ms: 1500
min_interval_ms: 1500
speedup_ms: 0
`)

	manager, err := NewManager(dir)
	require.NoError(t, err)

	t.Run("load json preset", func(t *testing.T) {
		config, err := manager.LoadConfig("fast")
		require.NoError(t, err)
		assert.Equal(t, "Fast", config.Name)
		assert.Equal(t, 300, config.BaseIntervalMs)
	})

	t.Run("load with extension", func(t *testing.T) {
		config, err := manager.LoadConfig("fast.json")
		require.NoError(t, err)
		assert.Equal(t, "Fast", config.Name)
	})

	t.Run("yaml preset keeps classic values it does not name", func(t *testing.T) {
		config, err := manager.LoadConfig("zen")
		require.NoError(t, err)
		assert.Equal(t, "Zen", config.Name)
		assert.Equal(t, 1500, config.BaseIntervalMs)
		assert.Equal(t, 0, config.SpeedupMs)
		assert.Equal(t, engine.DefaultWidth, config.Width)
		assert.Equal(t, engine.DefaultHeight, config.Height)
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, err := manager.LoadConfig("fast")
		require.NoError(t, err)
		config2, err := manager.LoadConfig("fast")
		require.NoError(t, err)
		assert.Same(t, config1, config2)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.ErrorIs(t, err, service.ErrConfigNotFound)
	})

	t.Run("paths are not preset ids", func(t *testing.T) {
		_, err := manager.LoadConfig("../fast")
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("classic is built in", func(t *testing.T) {
		config, err := manager.LoadConfig("classic")
		require.NoError(t, err)
		assert.Equal(t, engine.DefaultConfig(), *config)
	})

	t.Run("invalid values", func(t *testing.T) {
		writeFile(t, dir, "broken.json", `{"name":"Broken","width":2}`)

		_, err := manager.LoadConfig("broken")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unknown field", func(t *testing.T) {
		writeFile(t, dir, "typo.yml", "name: Typo\nwidht: 12\n")

		_, err := manager.LoadConfig("typo")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	narrow := engine.DefaultConfig()
	narrow.Name = "Narrow"
	narrow.Width = 6
	writeConfigFile(t, dir, "narrow", narrow)
	writeFile(t, dir, "zen.yaml", "name: Zen\nspeedup_ms: 0\n")
	writeFile(t, dir, "broken.json", `{"width":`)
	writeFile(t, dir, "notes.txt", "not a preset")

	manager, err := NewManager(dir)
	require.NoError(t, err)

	configs, err := manager.ListConfigs()
	require.NoError(t, err)

	var ids []string
	for _, c := range configs {
		ids = append(ids, c.ConfigID)
	}
	assert.Equal(t, []string{"classic", "narrow", "zen"}, ids)

	assert.Equal(t, "narrow.json", configs[1].Filename)
	assert.Equal(t, 6, configs[1].Width)
	assert.Equal(t, "", configs[0].Filename, "built-in classic has no file")
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zen.yaml", "name: Zen\nspeedup_ms: 0\n")

	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, manager.SetDefault("zen"))
	assert.Equal(t, "Zen", manager.GetDefault().Name)

	assert.ErrorIs(t, manager.SetDefault("missing"), ErrConfigNotFound)
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fast.json", `{"name":"Fast","base_interval_ms":300}`)

	manager, err := NewManager(dir)
	require.NoError(t, err)

	config, err := manager.LoadConfig("fast")
	require.NoError(t, err)
	assert.Equal(t, 300, config.BaseIntervalMs)

	writeFile(t, dir, "fast.json", `{"name":"Fast","base_interval_ms":200}`)

	config, err = manager.LoadConfig("fast")
	require.NoError(t, err)
	assert.Equal(t, 300, config.BaseIntervalMs, "cached until refreshed")

	require.NoError(t, manager.RefreshCache())
	config, err = manager.LoadConfig("fast")
	require.NoError(t, err)
	assert.Equal(t, 200, config.BaseIntervalMs)
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	cfg := engine.DefaultConfig()
	cfg.Name = "Saved"
	cfg.Randomizer = engine.RandomizerBag

	require.NoError(t, manager.SaveConfig("saved.yaml", &cfg))
	loaded, err := LoadFile(filepath.Join(dir, "saved.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)

	bad := cfg
	bad.Height = 1
	assert.ErrorIs(t, manager.SaveConfig("bad", &bad), ErrInvalidConfig)

	builtin, err := NewManager("")
	require.NoError(t, err)
	assert.Error(t, builtin.SaveConfig("x", &cfg))
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"name":"Good"}`)
	writeFile(t, dir, "wide.yaml", "name: Wide\nwidth: 100\n")
	writeFile(t, dir, "slow.yml", "name: Slow\nbase_interval_ms: 50\nmin_interval_ms: 100\n")

	reports, err := ValidateDir(dir)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	require.Len(t, reports, 3)

	byFile := map[string]FileReport{}
	for _, r := range reports {
		byFile[r.File] = r
	}
	assert.True(t, byFile["good.json"].Valid)
	assert.False(t, byFile["wide.yaml"].Valid)
	assert.Contains(t, byFile["wide.yaml"].Error, "width")
	assert.False(t, byFile["slow.yml"].Valid)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "blockfall preset", schema["title"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"name", "width", "height", "base_interval_ms", "min_interval_ms", "speedup_ms", "randomizer", "defer_spawn"} {
		assert.Contains(t, props, key)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zen.yaml", "name: Zen\nspeedup_ms: 0\n")
	writeFile(t, dir, "fast.json", `{"name":"Fast","base_interval_ms":300}`)

	manager, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := manager.LoadConfig("zen")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := manager.ListConfigs()
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_ = manager.GetDefault()
			errs <- manager.RefreshCache()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
