// Package config loads the coordinator's YAML configuration: the worker
// fleet, output image shape, scene bounds used by the spatial index, and
// the runaway/stats tuning knobs.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"fresnel/asset"
	"fresnel/protocol"
	"fresnel/types"
)

// Config is the coordinator's run configuration.
type Config struct {
	// Workers lists the fleet, in the order workers are assigned ids
	// 1..W. Each entry is "host" or "host:port"; a bare host defaults
	// to protocol.DefaultPort.
	Workers []string `yaml:"workers"`

	Image struct {
		Name    string   `yaml:"name"`
		Width   int      `yaml:"width"`
		Height  int      `yaml:"height"`
		Buffers []string `yaml:"buffers"`
	} `yaml:"image"`

	Bounds struct {
		Min [3]float32 `yaml:"min"`
		Max [3]float32 `yaml:"max"`
	} `yaml:"bounds"`

	// Runaway is the progress delta past the slowest worker that
	// triggers a RENDER_PAUSE (§4.6).
	Runaway float32 `yaml:"runaway"`

	// StatsIntervalMS is the runaway-throttle tick interval; the
	// interest detector ticks at StatsIntervalMS * MaxIntervals.
	StatsIntervalMS int `yaml:"stats_interval_ms"`

	// MaxIntervals sizes the per-worker stats ring buffer used by the
	// interest detector.
	MaxIntervals int `yaml:"max_intervals"`

	// UseLinearScan skips WBVH construction, per §4.3's shortcut.
	UseLinearScan bool `yaml:"use_linear_scan"`
}

// WorkerCount returns the configured fleet size, W.
func (c *Config) WorkerCount() int {
	return len(c.Workers)
}

// MinBounds and MaxBounds expose the configured scene AABB as
// types.Vec3, used by the spatial index.
func (c *Config) MinBounds() types.Vec3 { return types.XYZ(c.Bounds.Min[0], c.Bounds.Min[1], c.Bounds.Min[2]) }
func (c *Config) MaxBounds() types.Vec3 { return types.XYZ(c.Bounds.Max[0], c.Bounds.Max[1], c.Bounds.Max[2]) }

// WorkerAddr returns the resolved host:port for the i-th (0-indexed)
// configured worker, applying the default port when none is given.
func (c *Config) WorkerAddr(i int) (string, error) {
	if i < 0 || i >= len(c.Workers) {
		return "", fmt.Errorf("config: worker index %d out of range", i)
	}
	spec := c.Workers[i]
	if strings.Contains(spec, ":") {
		return spec, nil
	}
	return fmt.Sprintf("%s:%d", spec, protocol.DefaultPort), nil
}

// Load reads and validates a YAML config from res (a local file or
// http(s) URL, via fresnel/asset).
func Load(res *asset.Resource) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(res)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", res.Path(), err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", res.Path(), err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StatsIntervalMS == 0 {
		c.StatsIntervalMS = 1000
	}
	if c.MaxIntervals == 0 {
		c.MaxIntervals = 3
	}
	if len(c.Image.Buffers) == 0 {
		c.Image.Buffers = []string{"color"}
	}
}

// Validate checks the invariants the coordinator depends on: at least
// one worker, a positive image size, non-degenerate scene bounds, and a
// non-negative runaway delta.
func (c *Config) Validate() error {
	if len(c.Workers) == 0 {
		return fmt.Errorf("config: at least one worker is required")
	}
	for i, w := range c.Workers {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("config: workers[%d] is empty", i)
		}
		if _, err := c.WorkerAddr(i); err != nil {
			return err
		}
		if strings.Contains(w, ":") {
			host, port, ok := strings.Cut(w, ":")
			if !ok || host == "" {
				return fmt.Errorf("config: workers[%d] %q has no host", i, w)
			}
			if _, err := strconv.Atoi(port); err != nil {
				return fmt.Errorf("config: workers[%d] %q has a non-numeric port", i, w)
			}
		}
	}
	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		return fmt.Errorf("config: image width/height must be > 0")
	}
	if c.Image.Name == "" {
		return fmt.Errorf("config: image name must not be empty")
	}
	for axis := 0; axis < 3; axis++ {
		if c.Bounds.Max[axis] <= c.Bounds.Min[axis] {
			return fmt.Errorf("config: bounds.max must exceed bounds.min on every axis")
		}
	}
	if c.Runaway < 0 {
		return fmt.Errorf("config: runaway must be >= 0")
	}
	if c.StatsIntervalMS <= 0 {
		return fmt.Errorf("config: stats_interval_ms must be > 0")
	}
	if c.MaxIntervals <= 0 {
		return fmt.Errorf("config: max_intervals must be > 0")
	}
	return nil
}
