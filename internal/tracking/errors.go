package tracking

import (
	"errors"
	"fmt"
)

// ErrMalformed marks a tracking document that exists but cannot be decoded
// into its typed shape.
var ErrMalformed = errors.New("malformed tracking document")

// DocumentError reports which document failed structural decoding.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformed, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}
