package pipeline

import "errors"

var (
	// ErrUnknownPhase is returned for a phase name outside the phase table.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrNotInitialized is returned when a transition targets a pipeline
	// whose status document does not exist yet.
	ErrNotInitialized = errors.New("pipeline not initialized")
)
