// Package config holds the tuning knobs for the project-state core.
//
// Configuration is static: load it once at startup, normalize it, then hand
// each section to the component it configures. Components never read
// configuration through a global.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for every knob.
const (
	DefaultSyncDebounce            = 500 * time.Millisecond
	DefaultMaxWorkingSet           = 16
	DefaultAccessMaxAge            = time.Hour
	DefaultPerFileTokens           = 10000
	DefaultContextCeiling          = 100000
	DefaultRecentCount             = 10
	DefaultCompactMaxFiles         = 8
	DefaultCompactRecentCount      = 5
	DefaultCompactInstructionChars = 2000
)

// DefaultAlwaysHot lists the files a generated app always needs in context:
// the dependency manifest and the root layout and page.
func DefaultAlwaysHot() []string {
	return []string{"package.json", "app/layout.tsx", "app/page.tsx"}
}

// Duration wraps time.Duration so YAML values can be written as "500ms" or "1h".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// StoreConfig configures the project file store.
type StoreConfig struct {
	// SyncDebounce is how long a dirty file waits for further writes
	// before its durable sync runs.
	SyncDebounce Duration `yaml:"sync_debounce"`
}

// TrackerConfig configures access tracking and working-set selection.
type TrackerConfig struct {
	// MaxWorkingSet caps how many files a relevance query returns,
	// always-hot files included.
	MaxWorkingSet int `yaml:"max_working_set"`

	// AccessMaxAge is how long an access record stays relevant.
	AccessMaxAge Duration `yaml:"access_max_age"`

	// AlwaysHot lists path patterns (glob syntax allowed) that are always
	// part of the working set regardless of access history.
	AlwaysHot []string `yaml:"always_hot"`
}

// AssemblerConfig configures context assembly.
type AssemblerConfig struct {
	// PerFileTokens is the per-file truncation budget in tokens.
	PerFileTokens int `yaml:"per_file_tokens"`

	// ContextCeiling is the hard token ceiling for an assembled context.
	ContextCeiling int `yaml:"context_ceiling"`

	// CompactMaxFiles caps the file count in compact assembly.
	CompactMaxFiles int `yaml:"compact_max_files"`

	// CompactRecentCount is how many raw history messages compact assembly keeps.
	CompactRecentCount int `yaml:"compact_recent_count"`

	// CompactInstructionChars caps the instruction block in compact assembly.
	CompactInstructionChars int `yaml:"compact_instruction_chars"`
}

// HistoryConfig configures history collapsing.
type HistoryConfig struct {
	// RecentCount is the number of trailing messages never collapsed.
	RecentCount int `yaml:"recent_count"`
}

// Config is the root configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Assembler AssemblerConfig `yaml:"assembler"`
	History   HistoryConfig   `yaml:"history"`
}

// Default returns a configuration with every knob at its default value.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			SyncDebounce: Duration(DefaultSyncDebounce),
		},
		Tracker: TrackerConfig{
			MaxWorkingSet: DefaultMaxWorkingSet,
			AccessMaxAge:  Duration(DefaultAccessMaxAge),
			AlwaysHot:     DefaultAlwaysHot(),
		},
		Assembler: AssemblerConfig{
			PerFileTokens:           DefaultPerFileTokens,
			ContextCeiling:          DefaultContextCeiling,
			CompactMaxFiles:         DefaultCompactMaxFiles,
			CompactRecentCount:      DefaultCompactRecentCount,
			CompactInstructionChars: DefaultCompactInstructionChars,
		},
		History: HistoryConfig{
			RecentCount: DefaultRecentCount,
		},
	}
}

// Load reads a YAML configuration file. Knobs absent from the file keep
// their defaults; out-of-range values are normalized back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize resets out-of-range knobs to their defaults.
func (c *Config) Normalize() {
	if c.Store.SyncDebounce <= 0 {
		c.Store.SyncDebounce = Duration(DefaultSyncDebounce)
	}
	if c.Tracker.MaxWorkingSet <= 0 {
		c.Tracker.MaxWorkingSet = DefaultMaxWorkingSet
	}
	if c.Tracker.AccessMaxAge <= 0 {
		c.Tracker.AccessMaxAge = Duration(DefaultAccessMaxAge)
	}
	if c.Tracker.AlwaysHot == nil {
		c.Tracker.AlwaysHot = DefaultAlwaysHot()
	}
	if c.Assembler.PerFileTokens <= 0 {
		c.Assembler.PerFileTokens = DefaultPerFileTokens
	}
	if c.Assembler.ContextCeiling <= 0 {
		c.Assembler.ContextCeiling = DefaultContextCeiling
	}
	if c.Assembler.CompactMaxFiles <= 0 {
		c.Assembler.CompactMaxFiles = DefaultCompactMaxFiles
	}
	if c.Assembler.CompactRecentCount <= 0 {
		c.Assembler.CompactRecentCount = DefaultCompactRecentCount
	}
	if c.Assembler.CompactInstructionChars <= 0 {
		c.Assembler.CompactInstructionChars = DefaultCompactInstructionChars
	}
	if c.History.RecentCount <= 0 {
		c.History.RecentCount = DefaultRecentCount
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Assembler.PerFileTokens > c.Assembler.ContextCeiling {
		return fmt.Errorf("per_file_tokens (%d) exceeds context_ceiling (%d)",
			c.Assembler.PerFileTokens, c.Assembler.ContextCeiling)
	}
	return nil
}
