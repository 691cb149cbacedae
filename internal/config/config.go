// Package config loads the stationgen YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/stationgen/internal/catalog"
	"github.com/lawnchairsociety/stationgen/internal/database"
	"github.com/lawnchairsociety/stationgen/internal/generator"
	"github.com/lawnchairsociety/stationgen/internal/mount"
	"github.com/lawnchairsociety/stationgen/internal/seed"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds every section of a stationgen configuration file.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Database   database.Config  `yaml:"database"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Stream     StreamConfig     `yaml:"stream"`
	Export     ExportConfig     `yaml:"export"`
}

// GenerationConfig tunes a generation session.
type GenerationConfig struct {
	Seed int64 `yaml:"seed"`
	// SeedPart names the first room. Partial names match case-insensitively.
	SeedPart string       `yaml:"seed_part"`
	Profile  seed.Profile `yaml:"profile"`

	GrowthSteps            int     `yaml:"growth_steps"`
	GrowthTarget           float64 `yaml:"growth_target"`
	ClosingTarget          float64 `yaml:"closing_target"`
	ClosingTriesMultiplier int     `yaml:"closing_tries_multiplier"`

	// Selection is "best" or "quantile".
	Selection         string   `yaml:"selection"`
	Quantile          float64  `yaml:"quantile"`
	RandomWeight      float64  `yaml:"random_weight"`
	GrowthPenalty     float64  `yaml:"growth_penalty"`
	RequirementWeight float64  `yaml:"requirement_weight"`
	ExcludeParts      []string `yaml:"exclude_parts"`

	MountCacheBytes     int `yaml:"mount_cache_bytes"`
	TerminalSocketLimit int `yaml:"terminal_socket_limit"`
}

// CatalogConfig locates the part catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
	// Validate checks the file against the catalog JSON schema.
	Validate bool `yaml:"validate"`
}

// SnapshotConfig controls where finished constructions are saved.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
	// Compress writes .yaml.zst instead of .yaml.
	Compress bool `yaml:"compress"`
}

// StreamConfig holds live viewer WebSocket settings.
type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`

	// AllowedOrigins lists origins allowed to connect. Empty enforces
	// same-origin; "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	MaxMessageSize int64 `yaml:"max_message_size"`

	// MaxPerIP and MaxTotal limit concurrent viewers. 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`
	MaxTotal int `yaml:"max_total"`
}

// ExportConfig tunes STL export.
type ExportConfig struct {
	// MeshCells is the marching cubes resolution along the longest axis.
	MeshCells int `yaml:"mesh_cells"`
	// GridSize is the edge length of one grid cell in output units.
	GridSize float64 `yaml:"grid_size"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	opts := generator.DefaultOptions()
	drv := generator.DefaultDriverConfig()
	mc := mount.DefaultConfig()
	return &Config{
		Generation: GenerationConfig{
			Seed:                   1,
			GrowthSteps:            drv.GrowthSteps,
			GrowthTarget:           drv.GrowthTarget,
			ClosingTarget:          drv.ClosingTarget,
			ClosingTriesMultiplier: drv.ClosingTriesMultiplier,
			Selection:              opts.Selection.String(),
			Quantile:               opts.Quantile,
			RandomWeight:           opts.RandomWeight,
			GrowthPenalty:          opts.GrowthPenalty,
			RequirementWeight:      opts.RequirementWeight,
			MountCacheBytes:        mc.CacheBytes,
			TerminalSocketLimit:    mc.TerminalSocketLimit,
		},
		Catalog: CatalogConfig{
			Path:     "data/parts.yaml",
			Validate: true,
		},
		Database: database.DefaultConfig("data/stationgen.db"),
		Snapshot: SnapshotConfig{
			Dir: "data/snapshots",
		},
		Stream: StreamConfig{
			Address:        ":8090",
			AllowedOrigins: []string{},
			MaxMessageSize: 4096,
			MaxPerIP:       3,
			MaxTotal:       100,
		},
		Export: ExportConfig{
			MeshCells: 200,
			GridSize:  2.5,
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults. A
// missing file yields the defaults; a parse error yields the defaults and
// the error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}
	return config, nil
}

// Validate reports settings no session can run with.
func (c *Config) Validate() error {
	g := c.Generation
	if g.GrowthSteps < 0 {
		return fmt.Errorf("%w: growth_steps must not be negative", ErrInvalidConfig)
	}
	if g.ClosingTriesMultiplier < 0 {
		return fmt.Errorf("%w: closing_tries_multiplier must not be negative", ErrInvalidConfig)
	}
	sel, err := generator.ParseSelection(g.Selection)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if sel == generator.SelectQuantile && (g.Quantile <= 0 || g.Quantile >= 1) {
		return fmt.Errorf("%w: quantile must be in (0,1)", ErrInvalidConfig)
	}
	if c.Export.MeshCells < 0 || c.Export.GridSize <= 0 {
		return fmt.Errorf("%w: export mesh_cells and grid_size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Options converts the generation section into generator options.
func (g GenerationConfig) Options() (generator.Options, error) {
	sel, err := generator.ParseSelection(g.Selection)
	if err != nil {
		return generator.Options{}, err
	}
	opts := generator.Options{
		Selection:         sel,
		Quantile:          g.Quantile,
		RandomWeight:      g.RandomWeight,
		GrowthPenalty:     g.GrowthPenalty,
		RequirementWeight: g.RequirementWeight,
	}
	if len(g.ExcludeParts) > 0 {
		opts.Filter = catalog.ExcludeParts(g.ExcludeParts...)
	}
	return opts, nil
}

// DriverConfig converts the generation section into a session schedule.
func (g GenerationConfig) DriverConfig() generator.DriverConfig {
	return generator.DriverConfig{
		GrowthSteps:            g.GrowthSteps,
		GrowthTarget:           g.GrowthTarget,
		ClosingTarget:          g.ClosingTarget,
		ClosingTriesMultiplier: g.ClosingTriesMultiplier,
	}
}

// MatcherConfig converts the generation section into socket matcher
// settings.
func (g GenerationConfig) MatcherConfig() mount.Config {
	return mount.Config{
		CacheBytes:          g.MountCacheBytes,
		TerminalSocketLimit: g.TerminalSocketLimit,
	}
}

// SeedValue returns the construction seed described by the section.
func (g GenerationConfig) SeedValue() seed.Seed {
	return seed.Seed{Value: g.Seed, Profile: g.Profile}
}

// IsOriginAllowed checks an Origin header against the configured list.
// Returns true if:
// - AllowedOrigins contains "*"
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host
func (c *StreamConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser client
	}
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")
	return originHost == requestHost
}
