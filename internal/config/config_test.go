package config

import (
	"testing"
	"time"

	"github.com/mimecast/multiline/internal/testutil"
)

func TestDefaultRequiresPatternAndWhat(t *testing.T) {
	opts := Default()
	if err := opts.Validate(); err == nil {
		t.Fatal("expected validation error for missing pattern/what")
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	opts := Default()
	opts.Pattern = `^\s`
	opts.What = WhatPrevious
	if err := opts.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsUnknownWhat(t *testing.T) {
	opts := Default()
	opts.Pattern = "x"
	opts.What = "sideways"
	if err := opts.Validate(); err == nil {
		t.Fatal("expected error for unknown what")
	}
}

func TestLoadJSONOverlaysDefaults(t *testing.T) {
	path := testutil.TempFile(t, `{"pattern": "^\\s", "what": "next", "auto_flush_interval": 250000000}`)

	opts, err := LoadJSON(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, `^\s`, opts.Pattern)
	testutil.AssertEqual(t, WhatNext, opts.What)
	testutil.AssertEqual(t, 250*time.Millisecond, opts.AutoFlushInterval)

	// Unset fields still carry Default()'s values.
	testutil.AssertEqual(t, "UTF-8", opts.Charset)

	if err := opts.Validate(); err != nil {
		t.Fatalf("expected the loaded config to validate, got %v", err)
	}
}

func TestLoadJSONRejectsMissingFile(t *testing.T) {
	_, err := LoadJSON("/nonexistent/path/to/config.json")
	testutil.AssertError(t, err, "reading config file")
}

func TestValidateRejectsBadSequencerBounds(t *testing.T) {
	opts := Default()
	opts.Pattern = "x"
	opts.What = WhatNext
	opts.SequencerEnabled = true
	opts.SequencerStart = 10
	opts.SequencerRollover = 10
	if err := opts.Validate(); err == nil {
		t.Fatal("expected error for sequencer_start >= sequencer_rollover")
	}
}
