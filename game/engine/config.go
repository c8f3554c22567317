package engine

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Randomizer names accepted by Config.Randomizer.
const (
	RandomizerUniform = "uniform"
	RandomizerBag     = "bag"
)

// Config describes the rules of one game: field size, gravity timing and
// piece selection.
type Config struct {
	Name           string `json:"name" yaml:"name" jsonschema:"description=Display name of the preset"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	Width          int    `json:"width" yaml:"width" jsonschema:"minimum=4,maximum=64,default=10"`
	Height         int    `json:"height" yaml:"height" jsonschema:"minimum=4,maximum=128,default=22"`
	BaseIntervalMs int    `json:"base_interval_ms" yaml:"base_interval_ms" jsonschema:"minimum=1,default=1000,description=Gravity interval at score 0"`
	MinIntervalMs  int    `json:"min_interval_ms" yaml:"min_interval_ms" jsonschema:"minimum=1,default=100,description=Floor for the gravity interval"`
	SpeedupMs      int    `json:"speedup_ms" yaml:"speedup_ms" jsonschema:"minimum=0,default=1,description=Milliseconds removed from the interval per point scored"`
	Randomizer     string `json:"randomizer,omitempty" yaml:"randomizer,omitempty" jsonschema:"enum=uniform,enum=bag,default=uniform"`
	DeferSpawn     bool   `json:"defer_spawn,omitempty" yaml:"defer_spawn,omitempty" jsonschema:"description=Spawn the next piece on the following tick instead of right after a lock"`
}

// DefaultConfig returns the reference rules: a 10x22 field, a one second
// gravity interval shrinking by 1ms per point down to 100ms.
func DefaultConfig() Config {
	return Config{
		Name:           "classic",
		Description:    "Reference rules on a 10x22 field",
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		BaseIntervalMs: DefaultBaseIntervalMs,
		MinIntervalMs:  DefaultMinIntervalMs,
		SpeedupMs:      DefaultSpeedupMs,
		Randomizer:     RandomizerUniform,
	}
}

// ValidateConfig checks a configuration and reports every problem found.
func ValidateConfig(cfg Config) error {
	var err error
	if cfg.Name == "" {
		err = multierr.Append(err, fmt.Errorf("config validation: name is required"))
	}
	if cfg.Width < MinFieldWidth || cfg.Width > MaxFieldWidth {
		err = multierr.Append(err, fmt.Errorf("config validation: width must be between %d and %d, got %d", MinFieldWidth, MaxFieldWidth, cfg.Width))
	}
	if cfg.Height < MinFieldHeight || cfg.Height > MaxFieldHeight {
		err = multierr.Append(err, fmt.Errorf("config validation: height must be between %d and %d, got %d", MinFieldHeight, MaxFieldHeight, cfg.Height))
	}
	if cfg.BaseIntervalMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("config validation: base_interval_ms must be positive, got %d", cfg.BaseIntervalMs))
	}
	if cfg.MinIntervalMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("config validation: min_interval_ms must be positive, got %d", cfg.MinIntervalMs))
	}
	if cfg.MinIntervalMs > cfg.BaseIntervalMs && cfg.BaseIntervalMs > 0 {
		err = multierr.Append(err, fmt.Errorf("config validation: min_interval_ms (%d) exceeds base_interval_ms (%d)", cfg.MinIntervalMs, cfg.BaseIntervalMs))
	}
	if cfg.SpeedupMs < 0 {
		err = multierr.Append(err, fmt.Errorf("config validation: speedup_ms must not be negative, got %d", cfg.SpeedupMs))
	}
	switch cfg.Randomizer {
	case "", RandomizerUniform, RandomizerBag:
	default:
		err = multierr.Append(err, fmt.Errorf("config validation: randomizer must be %q or %q, got %q", RandomizerUniform, RandomizerBag, cfg.Randomizer))
	}
	return err
}

// Interval returns the gravity interval at the given score. The interval
// shrinks linearly with score and never drops below MinIntervalMs.
func (c Config) Interval(score int) time.Duration {
	ms := c.BaseIntervalMs - score*c.SpeedupMs
	if ms < c.MinIntervalMs {
		ms = c.MinIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// SpawnPoint returns the column and row new pieces are anchored at.
func (c Config) SpawnPoint() (int, int) {
	return c.Width / 2, c.Height - 1
}

// NewSource builds the kind source named by Randomizer.
func (c Config) NewSource(seed uint64) KindSource {
	if c.Randomizer == RandomizerBag {
		return NewBagSource(seed)
	}
	return NewUniformSource(seed)
}
