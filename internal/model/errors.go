package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer of the pipeline.
var (
	// ErrInvalidTarget is returned when a submitted URL cannot be scanned.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInvalidOptions is returned when job options name an unknown probe
	// or form factor.
	ErrInvalidOptions = errors.New("invalid scan options")

	// ErrSessionUnavailable is returned when the shared browser session
	// cannot be created.
	ErrSessionUnavailable = errors.New("browser session unavailable")

	// ErrExternalTool is returned when an external command (ping,
	// traceroute, lighthouse) cannot be started or exits abnormally.
	ErrExternalTool = errors.New("external tool error")

	// ErrPersistence is returned when a result or job cannot be written
	// to or read from the store.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound is returned when no result is stored for a target and kind.
	ErrNotFound = errors.New("result not found")

	// ErrJobNotFound is returned when a job id is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobActive is returned when an operation requires a terminal job.
	ErrJobActive = errors.New("job is still active")
)

// ProbeError reports that a probe exhausted its attempts.
// It corresponds to the ProbeFailed(kind) member of the taxonomy.
type ProbeError struct {
	Kind ProbeKind
	Err  error
}

// NewProbeError wraps err as a failure of the given probe kind.
func NewProbeError(kind ProbeKind, err error) *ProbeError {
	return &ProbeError{Kind: kind, Err: err}
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe failed: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsProbeFailure reports whether err contains a ProbeError for kind,
// including errors combined with errors.Join.
func IsProbeFailure(err error, kind ProbeKind) bool {
	if err == nil {
		return false
	}
	if pe, ok := err.(*ProbeError); ok && pe.Kind == kind {
		return true
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsProbeFailure(inner, kind) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return IsProbeFailure(e.Unwrap(), kind)
	}
	return false
}
