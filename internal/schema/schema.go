// Package schema validates the JSON documents exchanged with the external
// actor against CUE definitions before anything is recorded from them.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/ajrichter/my-agents-cc/internal/config"
)

//go:embed schema.cue
var source string

// Kind names a document shape.
type Kind string

const (
	KindInput            Kind = "input"
	KindDiscovererOutput Kind = "discoverer-output"
	KindBuilderOutput    Kind = "builder-output"
	KindInspectorOutput  Kind = "inspector-output"
)

var definitions = map[Kind]string{
	KindInput:            "#Input",
	KindDiscovererOutput: "#DiscovererOutput",
	KindBuilderOutput:    "#BuilderOutput",
	KindInspectorOutput:  "#InspectorOutput",
}

// OutputKind returns the output shape a phase produces.
func OutputKind(phase string) (Kind, bool) {
	switch phase {
	case config.PhaseDiscoverer:
		return KindDiscovererOutput, true
	case config.PhaseBuilder:
		return KindBuilderOutput, true
	case config.PhaseInspector:
		return KindInspectorOutput, true
	}
	return "", false
}

// ErrInvalid matches every *ValidationError via errors.Is.
var ErrInvalid = errors.New("document does not match schema")

// Problem is one schema violation.
type Problem struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// ValidationError lists every violation found in one document.
type ValidationError struct {
	Kind     Kind
	Source   string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Source, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Validator checks documents against the embedded definitions. A
// cue.Context is not safe for concurrent use, so calls are serialized.
type Validator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[Kind]cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(source, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	defs := make(map[Kind]cue.Value, len(definitions))
	for kind, path := range definitions {
		def := root.LookupPath(cue.ParsePath(path))
		if !def.Exists() {
			return nil, fmt.Errorf("schema definition %s missing", path)
		}
		defs[kind] = def
	}
	return &Validator{ctx: ctx, defs: defs}, nil
}

// Validate checks JSON data of the given kind. source names the document
// in error messages. The result is nil or a *ValidationError.
func (v *Validator) Validate(kind Kind, source string, data []byte) error {
	def, ok := v.defs[kind]
	if !ok {
		return fmt.Errorf("unknown document kind %q", kind)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	doc := v.ctx.CompileBytes(data, cue.Filename(source))
	if err := doc.Err(); err != nil {
		return newValidationError(kind, source, err)
	}
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return newValidationError(kind, source, err)
	}
	return nil
}

func newValidationError(kind Kind, source string, err error) *ValidationError {
	ve := &ValidationError{Kind: kind, Source: source}
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		ve.Problems = append(ve.Problems, Problem{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(ve.Problems) == 0 {
		ve.Problems = []Problem{{Message: err.Error()}}
	}
	return ve
}
