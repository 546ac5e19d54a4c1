// Package config provides the registration-time configuration for a
// multiline Assembler. It follows the same shape as dtail's configuration
// layer (internal/config): a plain value struct with documented defaults,
// constructed by a Default() function and validated once at registration
// time rather than scattered across the hot path, with optional JSON file
// loading layered on top of the defaults.
//
// Configuration precedence, narrowest to widest:
//  1. Default() values
//  2. JSON file (LoadJSON), if any
//  3. Caller overrides applied to the returned Options before assembler.New
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mimecast/multiline/internal/constants"
	"github.com/mimecast/multiline/internal/merrors"
)

// What is the continuation direction: does a continuing line belong to the
// previous record, or does it announce that the next lines belong to it?
type What string

const (
	// WhatPrevious: a continuing line is appended to the record started by
	// the preceding non-continuing line.
	WhatPrevious What = "previous"
	// WhatNext: a continuing line is appended to the record that the
	// current non-continuing line will start.
	WhatNext What = "next"
)

// Options is the immutable-after-registration configuration of an
// Assembler.
type Options struct {
	// Pattern is the continuation regex (or grok pattern, see internal/regex).
	Pattern string `json:"pattern"`
	// What selects the continuation direction. Required.
	What What `json:"what"`
	// Negate inverts the continuation predicate.
	Negate bool `json:"negate,omitempty"`
	// PatternsDir lists extra directories to load named sub-patterns from,
	// consumed by internal/regex's grok-backed LineMatcher.
	PatternsDir []string `json:"patterns_dir,omitempty"`
	// Charset is the declared source byte encoding, e.g. "UTF-8", "ASCII-8BIT".
	Charset string `json:"charset,omitempty"`
	// Delimiter is the line terminator the Tokenizer splits on.
	Delimiter string `json:"delimiter,omitempty"`
	// MultilineTag tags merged-from-many events; empty disables tagging.
	MultilineTag string `json:"multiline_tag,omitempty"`
	// MaxLines bounds pending buffer size before a forced flush.
	MaxLines int `json:"max_lines,omitempty"`
	// MaxBytes bounds pending buffer byte count before a forced flush.
	MaxBytes int `json:"max_bytes,omitempty"`
	// AutoFlushInterval, if positive, arms the quiet-period timer.
	AutoFlushInterval time.Duration `json:"auto_flush_interval,omitempty"`
	// SequencerEnabled emits a monotone, wrapping sequence field per event.
	SequencerEnabled bool `json:"sequencer_enabled,omitempty"`
	// SequencerField names the emitted sequence field.
	SequencerField string `json:"sequencer_field,omitempty"`
	// SequencerStart is the inclusive lower bound / wrap-to value.
	SequencerStart int `json:"sequencer_start,omitempty"`
	// SequencerRollover is the exclusive upper bound.
	SequencerRollover int `json:"sequencer_rollover,omitempty"`
}

// Default returns an Options populated with the library's default
// tunables, leaving Pattern and What unset since they are required
// fields the caller must supply.
func Default() Options {
	return Options{
		Charset:           constants.DefaultCharset,
		Delimiter:         constants.DefaultDelimiter,
		MultilineTag:      constants.DefaultMultilineTag,
		MaxLines:          constants.DefaultMaxLines,
		MaxBytes:          constants.DefaultMaxBytes,
		SequencerField:    constants.DefaultSequencerField,
		SequencerStart:    constants.DefaultSequencerStart,
		SequencerRollover: constants.DefaultSequencerRollover,
	}
}

// LoadJSON reads an Options overlay from a JSON file on top of Default().
func LoadJSON(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, merrors.Wrapf(err, "reading config file %s", path)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, merrors.NewConfigError("json", err)
	}
	return opts, nil
}

// Validate checks the invariants required at registration time: a
// required pattern and What, and consistent sequencer bounds.
// Compile-ability of Pattern itself is checked by internal/regex, not here.
func (o Options) Validate() error {
	if o.Pattern == "" {
		return merrors.NewConfigError("pattern", merrors.Wrap(merrors.ErrRequired, "pattern is required"))
	}
	switch o.What {
	case WhatPrevious, WhatNext:
	default:
		return merrors.NewConfigError("what", merrors.Wrapf(merrors.ErrUnknownWhat, "got %q", o.What))
	}
	if o.SequencerEnabled && o.SequencerStart >= o.SequencerRollover {
		return merrors.NewConfigError("sequencer", merrors.ErrBadSequencerBounds)
	}
	if o.MaxLines <= 0 {
		return merrors.NewConfigError("max_lines", merrors.Wrap(merrors.ErrRequired, "max_lines must be positive"))
	}
	if o.MaxBytes <= 0 {
		return merrors.NewConfigError("max_bytes", merrors.Wrap(merrors.ErrRequired, "max_bytes must be positive"))
	}
	return nil
}
