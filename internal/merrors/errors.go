// Package merrors implements the error taxonomy of the multiline codec:
// ConfigError, CapacityExceeded, DownstreamError and the wrap/sentinel
// helpers the rest of the packages build on. The shape is carried over
// from dtail's internal/errors package (sentinel errors plus thin
// Wrap/Wrapf/Is/As helpers over the standard errors package).
package merrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that do not carry per-call context.
var (
	ErrUnknownWhat        = errors.New("unknown continuation direction")
	ErrUnknownCharset     = errors.New("unknown charset")
	ErrBadSequencerBounds = errors.New("sequencer_start must be less than sequencer_rollover")
	ErrClosed             = errors.New("codec is closed")
	ErrRequired           = errors.New("required field missing")
)

// ConfigError wraps a registration-time failure: a bad pattern, an
// unknown charset, contradictory sequencer bounds or an unknown `what`.
// It is fatal and always surfaces to the caller of assembler.New.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError for the named field.
func NewConfigError(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}

// CapacityExceeded is raised by the IdentityMap when, after an attempted
// cleanup, no slot could be freed for a new identity.
type CapacityExceeded struct {
	MaxIdentities int
}

func (e *CapacityExceeded) Error() string {
	return fmt.Sprintf("identity map at capacity (max_identities=%d)", e.MaxIdentities)
}

// NewCapacityExceeded builds a CapacityExceeded error.
func NewCapacityExceeded(max int) error {
	return &CapacityExceeded{MaxIdentities: max}
}

// DownstreamError wraps any error raised by a sink during a flush.
// Flushes triggered by Decode, Accept or the auto-flush timer log it and
// do not propagate it; an explicit Assembler.Flush returns it to its
// caller. The type lets callers that see it distinguish it from a
// ConfigError.
type DownstreamError struct {
	Err error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream sink error: %v", e.Err)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

// NewDownstreamError wraps an error returned by a sink.
func NewDownstreamError(err error) error {
	if err == nil {
		return nil
	}
	return &DownstreamError{Err: err}
}

// Wrap wraps an error with additional context, returning nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is is a thin re-export of errors.Is for convenience at call sites that
// already import this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a thin re-export of errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
