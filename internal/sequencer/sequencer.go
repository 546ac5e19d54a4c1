// Package sequencer implements the per-Assembler sequence counter: a
// bounded integer that advances after each emission and
// wraps back to its start value on reaching its rollover bound. Shaped
// after the mutex-guarded counter idiom in dtail's
// internal/mapr/safe_aggregateset.go (a single mutex guarding a small
// piece of mutable state with a Clone method returning an independent
// copy), generalized from an aggregate set to a scalar counter.
package sequencer

import "sync"

// Sequencer produces values in [start, rollover), wrapping to start
// after rollover-1. It is safe for concurrent use, but the order is only
// meaningful when a single goroutine drives Decode for the owning
// Assembler; which of several concurrent callers gets which value is not
// defined.
type Sequencer struct {
	mu        sync.Mutex
	start     int
	rollover  int
	current   int
	enabled   bool
	fieldName string
}

// New builds a Sequencer. Bounds are assumed already validated (start <
// rollover) by internal/config.Options.Validate.
func New(enabled bool, fieldName string, start, rollover int) *Sequencer {
	return &Sequencer{
		start:     start,
		rollover:  rollover,
		current:   start,
		enabled:   enabled,
		fieldName: fieldName,
	}
}

// Enabled reports whether sequencing is configured on.
func (s *Sequencer) Enabled() bool {
	return s.enabled
}

// FieldName is the configured field name events carry the value under.
func (s *Sequencer) FieldName() string {
	return s.fieldName
}

// Next returns the current value and advances the counter, wrapping to
// start when rollover is reached. The emitted value is never equal to
// rollover.
func (s *Sequencer) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.current
	s.current++
	if s.current >= s.rollover {
		s.current = s.start
	}
	return v
}

// Clone returns an independent Sequencer starting fresh at start, for
// use when the IdentityMap clones a base assembler per identity: each
// identity gets its own counter, not a shared one: a clone's buffer,
// pattern matcher, and sequence state are all independent of its base.
func (s *Sequencer) Clone() *Sequencer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return New(s.enabled, s.fieldName, s.start, s.rollover)
}
