// Package config loads the coordinator's tunables (spec §6: tickRate,
// rollbackCapacity, maxRollbackDistance, partitionTarget,
// partitionRedundancy, snapshotInterval) from embedded defaults optionally
// overridden by a user YAML file, the same layered-defaults pattern the
// rest of this codebase uses for its own configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable the sync coordinator reads at startup.
type Config struct {
	Tick      TickConfig      `yaml:"tick"`
	Rollback  RollbackConfig  `yaml:"rollback"`
	Partition PartitionConfig `yaml:"partition"`
	HashCheck HashCheckConfig `yaml:"hash_check"`

	// Derived holds values computed once after load rather than read
	// directly off YAML.
	Derived Derived `yaml:"-"`
}

// Derived is computed from the rest of Config once, at Load time, so
// callers never recompute it per tick.
type Derived struct {
	// TickInterval is the wall-clock duration of one fixed tick.
	TickInterval time.Duration
}

// TickConfig controls the fixed simulation rate and how often a full
// snapshot is republished (spec §4.L step 6).
type TickConfig struct {
	Rate             int   `yaml:"rate"`
	SnapshotInterval int32 `yaml:"snapshot_interval"`
}

// RollbackConfig bounds how much history is retained for resimulation
// (spec §4.H, §4.I).
type RollbackConfig struct {
	Capacity    int   `yaml:"capacity"`
	MaxDistance int32 `yaml:"max_distance"`
}

// PartitionConfig controls delta partitioning (spec §4.K).
// ReliabilityAlpha is loaded but not passed to sync.Game, whose
// reliability tracker always uses partition.DefaultAlpha.
type PartitionConfig struct {
	TargetPerPartition int     `yaml:"target_per_partition"`
	Redundancy         int     `yaml:"redundancy"`
	ReliabilityAlpha   float64 `yaml:"reliability_alpha"`
}

// HashCheckConfig holds a rolling pass/fail window size (spec §4.L
// diagnostics). WindowSize is loaded but not read by sync.Game, whose
// window is fixed at 100 checks.
type HashCheckConfig struct {
	WindowSize int `yaml:"window_size"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from path, or embedded defaults alone if path
// is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load reads the embedded defaults, then overlays path (if non-empty) on
// top, so a user file only needs to name what it changes.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	rate := cfg.Tick.Rate
	if rate <= 0 {
		rate = 1
	}
	cfg.Derived = Derived{TickInterval: time.Second / time.Duration(rate)}
	return cfg, nil
}
