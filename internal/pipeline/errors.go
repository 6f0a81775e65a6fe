package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrRuntimeUnavailable is returned for submissions to a runtime that
	// failed to start or was closed. Published output stays valid.
	ErrRuntimeUnavailable = errors.New("pipeline: runtime unavailable")

	// ErrSuperseded answers a queued request replaced by a newer one before
	// it started.
	ErrSuperseded = errors.New("pipeline: request superseded")
)

// TransformError is the failure outcome of a Response. Payload is the input
// that could not be transformed.
type TransformError struct {
	Seq     uint64
	Payload string
	Err     error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform #%d: %v", e.Seq, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
