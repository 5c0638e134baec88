package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Input is the pipeline input document.
type Input struct {
	Endpoints []Endpoint `json:"endpoints"`
	SchemaRef string     `json:"schemaRef,omitempty"`
	Languages []string   `json:"languages,omitempty"`
}

// Endpoint is one HTTP endpoint the pipeline works on.
type Endpoint struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Attributes  []string `json:"attributes"`
	Description string   `json:"description,omitempty"`
	Target      string   `json:"target,omitempty"`
}

// DiscovererOutput holds the fields of a discoverer output the pipeline
// reads; the rest of the document is passed through untouched.
type DiscovererOutput struct {
	RepoPath     string            `json:"repoPath"`
	ScannedFiles int               `json:"scannedFiles"`
	Language     string            `json:"language"`
	Occurrences  []json.RawMessage `json:"occurrences"`
}

// BuilderOutput holds the fields of a builder output the pipeline reads.
type BuilderOutput struct {
	GeneratedFiles []json.RawMessage `json:"generatedFiles"`
	TestResults    map[string]any    `json:"testResults"`
	ModifiedFiles  []json.RawMessage `json:"modifiedFiles"`
}

// InspectorOutput holds the fields of an inspector output the pipeline reads.
type InspectorOutput struct {
	ValidationResults   map[string]any `json:"validationResults"`
	RequiresBuilderLoop bool           `json:"requiresBuilderLoop"`
	LoopReason          *string        `json:"loopReason,omitempty"`
	LoopItems           []any          `json:"loopItems,omitempty"`
	Recommendations     []any          `json:"recommendations,omitempty"`
	ChangedFileReview   []any          `json:"changedFileReview,omitempty"`
	ConfidenceScore     *float64       `json:"confidenceScore,omitempty"`
}

// Reason returns the loop reason, or "" when none was given.
func (o *InspectorOutput) Reason() string {
	if o.LoopReason == nil {
		return ""
	}
	return *o.LoopReason
}

// ParseInput validates and decodes an input document. Comments and
// trailing commas are accepted; the returned bytes are plain JSON.
func (v *Validator) ParseInput(source string, data []byte) (*Input, []byte, error) {
	plain := jsonc.ToJSON(data)
	if err := v.Validate(KindInput, source, plain); err != nil {
		return nil, nil, err
	}
	var in Input
	if err := json.Unmarshal(plain, &in); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", source, err)
	}
	return &in, plain, nil
}

// LoadInput reads, validates and decodes the input document at path.
func (v *Validator) LoadInput(path string) (*Input, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	return v.ParseInput(path, data)
}

// Decode validates an output document of the given kind and decodes it
// into out.
func (v *Validator) Decode(kind Kind, source string, data []byte, out any) error {
	if err := v.Validate(kind, source, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}
	return nil
}
