package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var recognizedDrivers = map[string]bool{
	EventsSQLite:   true,
	EventsPostgres: true,
	EventsNone:     true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.TrackingDir == "" {
		errs = append(errs, ValidationError{Field: "tracking_dir", Message: "is required"})
	} else if strings.ContainsAny(cfg.TrackingDir, `/\`) || cfg.TrackingDir == "." || cfg.TrackingDir == ".." {
		errs = append(errs, ValidationError{Field: "tracking_dir", Message: fmt.Sprintf("%q must be a single directory name", cfg.TrackingDir)})
	}
	if cfg.MaxLoops < 1 {
		errs = append(errs, ValidationError{Field: "max_loops", Message: fmt.Sprintf("must be >= 1, got %d", cfg.MaxLoops)})
	}
	if len(cfg.RepoMarkers) == 0 {
		errs = append(errs, ValidationError{Field: "repo_markers", Message: "at least one marker is required"})
	}
	if strings.ContainsAny(cfg.CombinedStatusFile, `/\`) {
		errs = append(errs, ValidationError{Field: "combined_status_file", Message: "must be a file name, not a path"})
	}

	// The phase table is fixed: same names, same orders.
	canonical := make(map[string]int)
	for _, p := range DefaultPhases() {
		canonical[p.Name] = p.Order
	}
	seen := make(map[string]bool)
	for i, p := range cfg.Phases {
		field := fmt.Sprintf("phases[%d]", i)
		want, ok := canonical[p.Name]
		if !ok {
			errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("unknown phase %q", p.Name)})
			continue
		}
		if seen[p.Name] {
			errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate phase %q", p.Name)})
		}
		seen[p.Name] = true
		if p.Order != want {
			errs = append(errs, ValidationError{Field: field + ".order", Message: fmt.Sprintf("phase %q must have order %d, got %d", p.Name, want, p.Order)})
		}
		if p.Label == "" {
			errs = append(errs, ValidationError{Field: field + ".label", Message: "is required"})
		}
	}
	for _, p := range DefaultPhases() {
		if !seen[p.Name] {
			errs = append(errs, ValidationError{Field: "phases", Message: fmt.Sprintf("missing phase %q", p.Name)})
		}
	}

	if !recognizedDrivers[cfg.Events.Driver] {
		errs = append(errs, ValidationError{Field: "events.driver", Message: fmt.Sprintf("unrecognized driver %q", cfg.Events.Driver)})
	}
	if cfg.Events.Driver == EventsPostgres && cfg.Events.DSN == "" {
		errs = append(errs, ValidationError{Field: "events.dsn", Message: "is required for the postgres driver"})
	}

	return errs
}
