package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DefaultPhases returns the fixed discover → build → inspect table.
func DefaultPhases() []Phase {
	return []Phase{
		{Name: PhaseDiscoverer, Order: 1, Label: "Discovery"},
		{Name: PhaseBuilder, Order: 2, Label: "Build"},
		{Name: PhaseInspector, Order: 3, Label: "Inspection"},
	}
}

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it applies defaults to any fields left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config file in standard locations and loads the
// first one found. Search order: ./agents.yaml, ~/.agents/config.yaml. When no
// file exists the built-in defaults are returned.
func LoadDefault() (*Config, error) {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// SearchPaths lists the locations LoadDefault checks, in order.
func SearchPaths() []string {
	candidates := []string{"agents.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".agents", "config.yaml"))
	}
	return candidates
}

// applyDefaults fills unset fields. Phase entries from a file only override
// labels; missing canonical phases are added back and the table is sorted
// by order.
func applyDefaults(cfg *Config) {
	if cfg.TrackingDir == "" {
		cfg.TrackingDir = ".agent-tracking"
	}
	if cfg.HiddenPrefix == "" {
		cfg.HiddenPrefix = "."
	}
	if cfg.CombinedStatusFile == "" {
		cfg.CombinedStatusFile = ".multi-repo-status.json"
	}
	if cfg.MaxLoops == 0 {
		cfg.MaxLoops = 3
	}
	if len(cfg.RepoMarkers) == 0 {
		cfg.RepoMarkers = []string{".git", "package.json", "pom.xml", "build.gradle"}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Events.Driver == "" {
		cfg.Events.Driver = EventsSQLite
	}

	defaults := DefaultPhases()
	for _, d := range defaults {
		p := cfg.PhaseByName(d.Name)
		if p == nil {
			cfg.Phases = append(cfg.Phases, d)
			continue
		}
		if p.Order == 0 {
			p.Order = d.Order
		}
		if p.Label == "" {
			p.Label = d.Label
		}
	}
	sort.SliceStable(cfg.Phases, func(i, j int) bool {
		return cfg.Phases[i].Order < cfg.Phases[j].Order
	})
}
