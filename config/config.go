// Package config loads engine settings and graph fixtures from YAML.
package config

import (
	"os"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"flowroute/diagram"
	"flowroute/logger"
	"flowroute/pathfinding"
)

// Config is the root of the configuration file.
type Config struct {
	Routing   Routing   `yaml:"routing"`
	Cache     Cache     `yaml:"cache"`
	Scheduler Scheduler `yaml:"scheduler"`
	Graph     Graph     `yaml:"graph"`
	Log       Log       `yaml:"log"`
}

// Routing tunes the path router.
type Routing struct {
	ArrowLength  float64 `yaml:"arrow_length"`
	Clearance    float64 `yaml:"clearance"`
	Policy       string  `yaml:"policy"`
	SnapDistance float64 `yaml:"snap_distance"`
}

// Cache tunes the path cache. A zero TargetSize follows MaxEntries.
type Cache struct {
	TargetSize    int `yaml:"target_size"`
	MaxEntries    int `yaml:"max_entries"`
	WarmUpWorkers int `yaml:"warmup_workers"`
}

// Scheduler tunes the batch scheduler.
type Scheduler struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Graph holds the connection validation rules.
type Graph struct {
	ForbidCycles bool `yaml:"forbid_cycles"`
}

// Log selects the logger level and format ("pretty" or "json").
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Routing: Routing{
			ArrowLength:  pathfinding.DefaultArrowLength,
			Clearance:    pathfinding.DefaultClearance,
			Policy:       pathfinding.PolicyAdaptive.String(),
			SnapDistance: pathfinding.DefaultSnapDistance,
		},
		Cache: Cache{
			MaxEntries:    1000,
			WarmUpWorkers: 4,
		},
		Scheduler: Scheduler{Debounce: 16 * time.Millisecond},
		Log:       Log{Level: "info", Format: "pretty"},
	}
}

// Load reads and validates the configuration at path. Missing keys keep
// their defaults.
func Load(path string) (Config, error) {
	// #nosec G304 -- path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, zerr.With(zerr.Wrap(err, "failed to read configuration"), "path", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, zerr.With(err, "path", path)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, zerr.Wrap(err, "failed to parse configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	invalid := func(key string, value any) error {
		return zerr.With(zerr.Wrap(diagram.ErrInvalidConfig, "value out of range"), key, value)
	}

	switch {
	case c.Routing.ArrowLength < 0:
		return invalid("routing.arrow_length", c.Routing.ArrowLength)
	case c.Routing.Clearance < 0:
		return invalid("routing.clearance", c.Routing.Clearance)
	case c.Routing.SnapDistance < 0:
		return invalid("routing.snap_distance", c.Routing.SnapDistance)
	case c.Cache.MaxEntries < 0:
		return invalid("cache.max_entries", c.Cache.MaxEntries)
	case c.Cache.TargetSize < 0:
		return invalid("cache.target_size", c.Cache.TargetSize)
	case c.Cache.MaxEntries > 0 && c.Cache.EffectiveTargetSize() > c.Cache.MaxEntries:
		return invalid("cache.target_size", c.Cache.TargetSize)
	case c.Cache.WarmUpWorkers < 0:
		return invalid("cache.warmup_workers", c.Cache.WarmUpWorkers)
	case c.Scheduler.Debounce < 0:
		return invalid("scheduler.debounce", c.Scheduler.Debounce.String())
	}

	if _, err := pathfinding.ParsePolicy(c.Routing.Policy); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "pretty", "json":
	default:
		return zerr.With(zerr.Wrap(diagram.ErrInvalidConfig, "unknown log format"), "format", c.Log.Format)
	}
	return nil
}

// RouterOptions converts the routing section.
func (c Config) RouterOptions() pathfinding.Options {
	// Validate has already rejected unknown policies
	policy, _ := pathfinding.ParsePolicy(c.Routing.Policy)
	return pathfinding.Options{
		ArrowLength:  c.Routing.ArrowLength,
		Clearance:    c.Routing.Clearance,
		Policy:       policy,
		SnapDistance: c.Routing.SnapDistance,
	}
}

// EffectiveTargetSize is TargetSize, or half of MaxEntries when unset.
func (c Cache) EffectiveTargetSize() int {
	if c.TargetSize > 0 {
		return c.TargetSize
	}
	return c.MaxEntries / 2
}

// LoggerOptions converts the log section.
func (c Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.Log.Level, JSON: c.Log.Format == "json"}
}
