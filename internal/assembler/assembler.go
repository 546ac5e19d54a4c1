// Package assembler implements the multiline state machine that buffers
// pending lines and emits merged events once a record is complete,
// bound-exceeded, or a quiet period elapses. It is the composition root
// for the leaf components (internal/regex's Matcher as the LineMatcher,
// internal/charset's Converter, internal/tokenizer, internal/sequencer,
// internal/autoflush) the same way dtail's internal/server wires
// together its leaf packages into one request handler — generalized
// here from a network request handler to a pattern-driven accumulator.
// A single mutex guards the buffer, pattern state, and the timer, so
// append and flush never interleave.
package assembler

import (
	"strings"
	"sync"
	"time"

	"github.com/mimecast/multiline/internal/autoflush"
	"github.com/mimecast/multiline/internal/charset"
	"github.com/mimecast/multiline/internal/config"
	"github.com/mimecast/multiline/internal/constants"
	"github.com/mimecast/multiline/internal/dlog"
	"github.com/mimecast/multiline/internal/event"
	"github.com/mimecast/multiline/internal/listener"
	"github.com/mimecast/multiline/internal/merrors"
	"github.com/mimecast/multiline/internal/regex"
	"github.com/mimecast/multiline/internal/sequencer"
	"github.com/mimecast/multiline/internal/tokenizer"
)

// AutoFlushable is the capability interface IdentityMap and the reaper
// query in place of a duck-typed respond_to?(:auto_flush) check.
type AutoFlushable interface {
	SupportsAutoFlush() bool
	AutoFlush()
}

// Assembler is the multiline state machine. Zero value is not usable;
// build one with New.
type Assembler struct {
	mu sync.Mutex

	opts    config.Options
	matcher *regex.Matcher
	conv    *charset.Converter
	tok     *tokenizer.Tokenizer
	seq     *sequencer.Sequencer
	timer   autoflush.Flusher

	buffer    []string
	byteCount int
	closed    bool

	// truncatedPending marks that the buffer currently being accumulated
	// contains a line truncated by the single-line safety valve; it is
	// folded into the next built event's tags and cleared on flush.
	truncatedPending bool

	stats Stats

	// decodeSink remembers the sink of the most recent plain Decode
	// call, the "@decode_block" of eviction flush policy.
	decodeSink listener.Sink
	// lastListener and originListener implement the "what_based_listener"
	// selection of : lastListener is the listener of the most
	// recent Accept call; originListener is the listener under which the
	// currently buffered record began accumulating.
	lastListener   *listener.Listener
	originListener *listener.Listener
}

// New validates opts and builds an Assembler as a constructor rather
// than a two-step build-then-register call, the idiomatic Go shape for
// one-time, failure-capable initialization.
func New(opts config.Options) (*Assembler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	matcher, err := regex.NewMatcher(opts.Pattern, opts.PatternsDir)
	if err != nil {
		return nil, merrors.NewConfigError("pattern", err)
	}
	conv, err := charset.New(opts.Charset)
	if err != nil {
		return nil, err
	}

	a := &Assembler{
		opts:    opts,
		matcher: matcher,
		conv:    conv,
		tok:     tokenizer.New(opts.Delimiter),
		seq:     sequencer.New(opts.SequencerEnabled, opts.SequencerField, opts.SequencerStart, opts.SequencerRollover),
	}
	a.timer = autoflush.New(opts.AutoFlushInterval, a.autoFlush)
	return a, nil
}

// Clone returns a freshly initialized Assembler sharing this instance's
// configuration, compiled matcher, and charset converter, but none of
// its buffer, timer, or pattern-match state. The IdentityMap calls this
// once per new stream identity.
func (a *Assembler) Clone() *Assembler {
	a.mu.Lock()
	defer a.mu.Unlock()

	clone := &Assembler{
		opts:    a.opts,
		matcher: a.matcher,
		conv:    a.conv,
		tok:     tokenizer.New(a.opts.Delimiter),
		seq:     a.seq.Clone(),
	}
	clone.timer = autoflush.New(a.opts.AutoFlushInterval, clone.autoFlush)
	return clone
}

// Decode tokenizes chunk, charset-converts it, and feeds each line into
// the state machine, delivering merged events to sink as they
// materialize. Downstream errors are logged and swallowed; the buffer
// is preserved for the next flush attempt.
func (a *Assembler) Decode(chunk []byte, sink listener.Sink) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return merrors.ErrClosed
	}
	a.decodeSink = sink

	for _, raw := range a.tok.Extract(chunk) {
		line := a.conv.Convert([]byte(raw))
		a.step(line, sink, sink)
	}
	return nil
}

// Accept decodes l.Data the same way Decode does, except the sink an
// emitted event is attributed to depends on mode —
// the listener active when the flushed buffer began accumulating for
// `what: previous`, the listener of this call for `what: next` — per
// the rationale that a `previous`-mode flush fires on the new line that
// terminates the prior record, but that record's provenance belongs to
// the prior line's listener.
func (a *Assembler) Accept(l *listener.Listener) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return merrors.ErrClosed
	}
	a.lastListener = l
	if a.originListener == nil {
		a.originListener = l
	}

	for _, raw := range a.tok.Extract(l.Data) {
		line := a.conv.Convert([]byte(raw))
		a.step(line, a.whatBasedSink(), l)
		if len(a.buffer) <= 1 {
			// The buffer now holds at most this line: a new record began here.
			a.originListener = l
		}
	}
	return nil
}

// whatBasedSink resolves the listener an emitted event is attributed to,
// per the mode-dependent rule documented on Accept.
func (a *Assembler) whatBasedSink() listener.Sink {
	if a.opts.What == config.WhatPrevious {
		if a.originListener != nil {
			return a.originListener
		}
	}
	return a.lastListener
}

// step runs one line through the continuation predicate and the mode's
// append/flush sequencing, then enforces the size/line bounds. priorSink
// is used for flushes of the buffer that existed before this line
// arrived (previous-mode termination, bound enforcement); thisLineSink
// is used for next-mode's append-then-flush.
func (a *Assembler) step(line string, priorSink, thisLineSink listener.Sink) {
	continues := a.matcher.Match([]byte(line)) != a.opts.Negate

	switch a.opts.What {
	case config.WhatPrevious:
		if continues {
			a.appendToBuffer(line)
		} else {
			a.swallowFlush(priorSink, "")
			a.appendToBuffer(line)
			a.timer.Start()
		}
	default: // config.WhatNext
		a.appendToBuffer(line)
		if continues {
			a.timer.Start()
		} else {
			a.swallowFlush(thisLineSink, "")
		}
	}

	if tag := a.boundTag(); tag != "" {
		a.swallowFlush(priorSink, tag)
	}
}

// appendToBuffer applies the single-line truncation safety valve before
// appending: a line longer than max_bytes on its own would otherwise
// block progress forever (it can never fit under the buffer's byte
// bound), so it is truncated to the bound and tagged rather than
// accumulated whole.
func (a *Assembler) appendToBuffer(line string) {
	if a.opts.MaxBytes > 0 && len(line) > a.opts.MaxBytes {
		line = line[:a.opts.MaxBytes]
		a.truncatedPending = true
		a.stats.Truncated++
	}
	a.buffer = append(a.buffer, line)
	a.byteCount += len(line)
}

// boundTag reports which bound, if any, the buffer now exceeds.
func (a *Assembler) boundTag() string {
	switch {
	case len(a.buffer) > a.opts.MaxLines:
		return constants.MaxLinesReachedTag
	case a.byteCount >= a.opts.MaxBytes:
		return constants.MaxBytesReachedTag
	default:
		return ""
	}
}

// swallowFlush flushes and logs any downstream error rather than
// propagating it: decode-path flushes never fail the caller.
func (a *Assembler) swallowFlush(sink listener.Sink, boundTag string) {
	if err := a.flushLocked(sink, boundTag); err != nil {
		dlog.Error("assembler: flush failed, buffer preserved:", err)
	}
}

// flushLocked must be called with mu held. It builds and delivers a
// merged event if the buffer is non-empty, clearing the buffer only on
// successful delivery; on a DownstreamError the buffer is preserved for
// a later retry.
func (a *Assembler) flushLocked(sink listener.Sink, boundTag string) error {
	if len(a.buffer) == 0 {
		return nil
	}
	if sink == nil {
		return nil
	}
	ev := a.buildEvent(boundTag)
	if err := sink.ProcessEvent(ev); err != nil {
		return merrors.NewDownstreamError(err)
	}
	a.buffer = a.buffer[:0]
	a.byteCount = 0
	a.truncatedPending = false
	return nil
}

func (a *Assembler) buildEvent(boundTag string) event.Event {
	var tags event.TagSet
	if len(a.buffer) > 1 && a.opts.MultilineTag != "" {
		tags.Add(a.opts.MultilineTag)
		a.stats.Merged++
	}
	if a.truncatedPending {
		tags.Add(constants.TruncatedTag)
	}
	tags.Add(boundTag)
	if boundTag == constants.MaxLinesReachedTag || boundTag == constants.MaxBytesReachedTag {
		a.stats.BoundFlushed++
	}

	ev := event.Event{
		Timestamp: time.Now(),
		Message:   strings.Join(a.buffer, a.opts.Delimiter),
		Tags:      tags.Slice(),
	}
	if a.seq.Enabled() {
		v := a.seq.Next()
		ev.Seq = &v
		ev.SeqField = a.seq.FieldName()
	}
	return ev
}

// autoFlush is the AutoFlushTimer callback: flushes through the most
// recently seen listener, falling back to the last plain Decode sink
// when this assembler was never used through a Listener.
func (a *Assembler) autoFlush() {
	a.mu.Lock()
	sink := a.decodeSink
	if a.lastListener != nil {
		sink = a.lastListener
	}
	err := a.flushLocked(sink, "")
	a.mu.Unlock()
	if err != nil {
		dlog.Error("assembler: auto-flush failed, buffer preserved:", err)
	}
}

// DetectedPattern returns the continuation pattern currently compiled
// into this Assembler's matcher. It is purely informational: auto
// detection of a pattern is out of scope, this only exposes the shape
// of what is active so a caller embedding the codec into a tailer can
// carry it across log rotation.
func (a *Assembler) DetectedPattern() string {
	return a.matcher.Pattern()
}

// Stats is a read-only snapshot of per-assembler event counters,
// exposed for observability. Merged counts events built from more than
// one line, Truncated counts lines cut short by the single-line safety
// valve, and BoundFlushed counts flushes forced by MaxLines/MaxBytes.
type Stats struct {
	Merged       int
	Truncated    int
	BoundFlushed int
}

// Stats returns a snapshot of this assembler's counters. It opens no
// new mutation path: the only way these counters change is through
// Decode/Accept driving the state machine.
func (a *Assembler) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// SupportsAutoFlush reports whether auto_flush_interval was configured,
// the capability check used in place of respond_to?(:auto_flush).
func (a *Assembler) SupportsAutoFlush() bool {
	return a.timer != autoflush.Unset
}

// AutoFlush exposes the timer's callback directly, for the IdentityMap
// and reaper's eviction flush policy.
func (a *Assembler) AutoFlush() {
	a.autoFlush()
}

// DecodeSink returns the last sink passed to Decode, the fallback used
// by the eviction flush policy.
func (a *Assembler) DecodeSink() listener.Sink {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.decodeSink
}

// Flush forces emission of the current buffer through sink. Unlike
// decode-path flushes, the downstream error is returned to the caller,
// who explicitly asked for a synchronous drain.
func (a *Assembler) Flush(sink listener.Sink) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(sink, "")
}

// Encode is the pass-through half of the codec contract: the codec is
// decode-oriented, so encoding a caller-built event is simply handed
// straight to sink without touching the pending buffer or any state.
func (a *Assembler) Encode(ev event.Event, sink listener.Sink) error {
	return sink.ProcessEvent(ev)
}

// Close stops the timer, requests the Tokenizer's residue as a final
// line, feeds it through the state machine, then flushes through sink.
// No further calls are permitted afterward.
func (a *Assembler) Close(sink listener.Sink) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return merrors.ErrClosed
	}
	a.timer.Stop()

	if tail := a.tok.Flush(); tail != "" {
		line := a.conv.Convert([]byte(tail))
		a.step(line, sink, sink)
		a.timer.Stop() // step may have re-armed the timer; cancel it again
	}
	err := a.flushLocked(sink, "")
	a.closed = true
	a.tok.Close()
	return err
}

// Closed reports whether Close has already run.
func (a *Assembler) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}
