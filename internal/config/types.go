package config

// Canonical phase names. The phase set and its order are fixed; only labels
// may be overridden from a config file.
const (
	PhaseDiscoverer = "discoverer"
	PhaseBuilder    = "builder"
	PhaseInspector  = "inspector"
)

// Config is the explicit configuration value handed to every component.
type Config struct {
	TrackingDir        string       `yaml:"tracking_dir"`
	HiddenPrefix       string       `yaml:"hidden_prefix"`
	CombinedStatusFile string       `yaml:"combined_status_file"`
	MaxLoops           int          `yaml:"max_loops"`
	RepoMarkers        []string     `yaml:"repo_markers"`
	Phases             []Phase      `yaml:"phases"`
	PromptDir          string       `yaml:"prompt_dir"`
	LogLevel           string       `yaml:"log_level"`
	Events             EventsConfig `yaml:"events"`
}

// Phase is one row of the phase-order table.
type Phase struct {
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
	Label string `yaml:"label"`
}

// EventsConfig selects where transition history is recorded.
type EventsConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres" or "none"
	DSN    string `yaml:"dsn"`
}

// Event log drivers.
const (
	EventsSQLite   = "sqlite"
	EventsPostgres = "postgres"
	EventsNone     = "none"
)

// PhaseByName returns the phase with the given name, or nil if unknown.
func (c *Config) PhaseByName(name string) *Phase {
	for i := range c.Phases {
		if c.Phases[i].Name == name {
			return &c.Phases[i]
		}
	}
	return nil
}

// PhaseNames returns the configured phase names in order.
func (c *Config) PhaseNames() []string {
	names := make([]string, 0, len(c.Phases))
	for _, p := range c.Phases {
		names = append(names, p.Name)
	}
	return names
}
