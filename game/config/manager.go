package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/log"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigID names the preset used when none is requested.
const DefaultConfigID = "classic"

// Extensions accepted for preset files, in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// Manager handles preset loading and caching. A manager without a
// directory serves only the built-in classic rules.
type Manager struct {
	configDir     string
	defaultConfig *engine.Config
	configs       map[string]*engine.Config
	logger        *log.Logger
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configDir is
// allowed; a non-empty one must exist.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.Config),
		logger:    log.Default(),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// Dir returns the preset directory, or "" for a built-in-only manager.
func (m *Manager) Dir() string {
	return m.configDir
}

// LoadConfig loads a preset by ID. The ID may carry one of the accepted
// extensions; without one each extension is tried in turn.
func (m *Manager) LoadConfig(name string) (*engine.Config, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, err := m.findFile(name)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) && id == DefaultConfigID {
			config := engine.DefaultConfig()
			m.configs[id] = &config
			return &config, nil
		}
		return nil, err
	}

	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	m.logger.Debug("loaded preset %s from %s", id, path)
	return config, nil
}

// ListConfigs returns information about every valid preset, sorted by ID.
// Invalid files are skipped and logged.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	files, err := m.presetFiles()
	if err != nil {
		return nil, err
	}

	var configs []*service.ConfigInfo
	seen := map[string]bool{}

	for _, file := range files {
		id := configID(file)
		if seen[id] {
			continue
		}
		config, err := m.LoadConfig(file)
		if err != nil {
			m.logger.Warn("skipping preset %s: %v", file, err)
			continue
		}
		seen[id] = true
		configs = append(configs, configInfo(file, id, config))
	}

	if !seen[DefaultConfigID] {
		config, err := m.LoadConfig(DefaultConfigID)
		if err == nil {
			configs = append(configs, configInfo("", DefaultConfigID, config))
		}
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached presets and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.Config)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// SaveConfig writes a preset into the directory, as YAML when name ends in
// .yaml or .yml and as JSON otherwise.
func (m *Manager) SaveConfig(name string, config *engine.Config) error {
	if m.configDir == "" {
		return fmt.Errorf("no config directory configured")
	}
	if err := engine.ValidateConfig(*config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	var data []byte
	var err error
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[configID(filename)] = config
	m.mu.Unlock()

	return nil
}

// loadDefaultConfig picks classic, else the first valid preset, else the
// built-in rules.
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultConfigID)
	if err != nil {
		m.logger.Warn("default preset %s unusable: %v", DefaultConfigID, err)
		configs, listErr := m.ListConfigs()
		if listErr == nil {
			for _, info := range configs {
				if config, err = m.LoadConfig(info.ConfigID); err == nil {
					break
				}
			}
		}
		if config == nil {
			builtin := engine.DefaultConfig()
			config = &builtin
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

func (m *Manager) findFile(name string) (string, error) {
	if m.configDir == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", ErrConfigNotFound
	}

	candidates := []string{name}
	if !hasPresetExt(name) {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, c := range candidates {
		path := filepath.Join(m.configDir, c)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat config file: %w", err)
		}
	}
	return "", ErrConfigNotFound
}

func (m *Manager) presetFiles() ([]string, error) {
	if m.configDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !hasPresetExt(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

// LoadFile reads and validates a single preset file. Fields missing from
// the file take their values from engine.DefaultConfig, and the name
// defaults to the file's base name.
func LoadFile(path string) (*engine.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := engine.DefaultConfig()
	config.Name = configID(filepath.Base(path))
	config.Description = ""

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&config)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}

	if err := engine.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

// FileReport is the validation outcome for one preset file.
type FileReport struct {
	File     string `json:"file"`
	ConfigID string `json:"config_id"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

// ValidateDir checks every preset file in dir. It returns one report per
// file and a combined error naming each invalid file.
func ValidateDir(dir string) ([]FileReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var reports []FileReport
	var errs error
	for _, entry := range entries {
		if entry.IsDir() || !hasPresetExt(entry.Name()) {
			continue
		}
		r := FileReport{File: entry.Name(), ConfigID: configID(entry.Name()), Valid: true}
		if _, err := LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			r.Valid = false
			r.Error = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
		}
		reports = append(reports, r)
	}
	return reports, errs
}

// Schema returns the JSON schema of a preset file.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := r.Reflect(&engine.Config{})
	s.Title = "blockfall preset"
	s.Description = "Field size, gravity timing and piece selection for one game"
	return json.MarshalIndent(s, "", "  ")
}

func configInfo(file, id string, config *engine.Config) *service.ConfigInfo {
	return &service.ConfigInfo{
		Filename:       file,
		ConfigID:       id,
		Name:           config.Name,
		Description:    config.Description,
		Width:          config.Width,
		Height:         config.Height,
		BaseIntervalMs: config.BaseIntervalMs,
		Randomizer:     config.Randomizer,
		DeferSpawn:     config.DeferSpawn,
	}
}

func hasPresetExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// configID strips a preset extension from name.
func configID(name string) string {
	if hasPresetExt(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
