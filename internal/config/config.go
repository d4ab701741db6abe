// Package config loads napkin-history settings from YAML or CUE files.
//
// Precedence, lowest first: built-in defaults, the config file, explicit
// command-line flags (applied by the caller).
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/ipcrm/napkin/internal/history"
)

//go:embed schema.cue
var schemaCUE string

// Default values.
const (
	DefaultDatabase   = "napkin-history.db"
	DefaultSession    = "default"
	DefaultDebounceMS = 500
)

// Config holds the retention policy and runtime settings.
type Config struct {
	// MaxSnapshots caps the retained history per session.
	MaxSnapshots int `yaml:"max_snapshots" json:"max_snapshots"`

	// BaselineInterval is the number of snapshots between full baselines.
	BaselineInterval int `yaml:"baseline_interval" json:"baseline_interval"`

	// Database is the SQLite file holding session histories.
	Database string `yaml:"database" json:"database"`

	// Session names the history to operate on.
	Session string `yaml:"session" json:"session"`

	// DebounceMS is the quiet period before the watcher checkpoints.
	DebounceMS int `yaml:"debounce_ms" json:"debounce_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxSnapshots:     history.DefaultMaxSnapshots,
		BaselineInterval: history.DefaultBaselineInterval,
		Database:         DefaultDatabase,
		Session:          DefaultSession,
		DebounceMS:       DefaultDebounceMS,
	}
}

// Load reads a config file. An empty path returns Default().
//
// Files ending in .yaml or .yml are decoded strictly: unknown keys are
// errors. Files ending in .cue are unified with the embedded schema, which
// supplies defaults and bounds. Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	case ".cue":
		cfg, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// parseYAML decodes YAML on top of the defaults.
func parseYAML(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// parseCUE unifies the file with #Config and decodes the concrete result.
func parseCUE(path string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the history engine cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxSnapshots <= 0 {
		errs = append(errs, fmt.Errorf("max_snapshots must be positive, got %d", c.MaxSnapshots))
	}
	if c.BaselineInterval <= 0 {
		errs = append(errs, fmt.Errorf("baseline_interval must be positive, got %d", c.BaselineInterval))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database must not be empty"))
	}
	if c.Session == "" {
		errs = append(errs, errors.New("session must not be empty"))
	}
	if c.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMS))
	}
	return errors.Join(errs...)
}

// Debounce returns DebounceMS as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// NewHistory returns an empty history with this config's retention policy.
func (c *Config) NewHistory() *history.History {
	return history.New(c.MaxSnapshots, c.BaselineInterval)
}
