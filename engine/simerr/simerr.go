// Package simerr defines the error taxonomy of the simulation core.
//
// Errors are wrapped with github.com/pkg/errors at the failure site, so callers
// should compare with Is, which unwraps using errors.Cause.
package simerr

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned for unknown entity or instance IDs. It is recovered locally and never aborts a tick.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded is returned when a spawn would exceed the instance capacity. No entity is created.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrInvalidComponent is returned when component data does not match its component kind.
	ErrInvalidComponent = errors.New("invalid component")
	// ErrInvalidPosition is returned when a position or velocity has a NaN or infinite coordinate.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrDraining is returned when spawning into an instance that is being destroyed.
	ErrDraining = errors.New("instance is draining")
	// ErrQuarantined is returned when ticking an instance that was quarantined.
	ErrQuarantined = errors.New("instance is quarantined")
	// ErrInvariantViolation means the entity store and the spatial index disagree. It quarantines the instance.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Is checks if the cause of err is target
func Is(err error, target error) bool {
	if err == nil {
		return false
	}
	return errors.Cause(err) == target
}

// NotFound wraps ErrNotFound with a formatted message
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// InvariantViolation wraps ErrInvariantViolation with a formatted message
func InvariantViolation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvariantViolation, format, args...)
}
