// Package config provides preset management for blockfall.
//
// The config package handles:
//   - Loading presets from JSON and YAML files
//   - Preset validation, per file and per directory
//   - Default preset selection
//   - Preset discovery and listing
//   - The JSON schema of the preset format
//
// Preset Format:
//
// A preset is an engine.Config stored as <id>.json, <id>.yaml or <id>.yml.
// Fields left out of a file keep the classic values, so a preset only names
// what it changes:
//
//	name: Zen
//	description: Slow gravity that never speeds up
//	speedup_ms: 0
//	base_interval_ms: 1500
//	min_interval_ms: 1500
//
// Unknown fields are rejected.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg, err := manager.LoadConfig("zen")
//	presets, err := manager.ListConfigs()
//	def := manager.GetDefault()
//
// The classic preset always exists: when no classic file is present the
// manager serves engine.DefaultConfig under that ID.
package config
