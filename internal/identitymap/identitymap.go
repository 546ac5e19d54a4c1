// Package identitymap implements the IdentityMap
// demultiplexer that fans a shared base Assembler out into one cloned
// Assembler per stream identity, enforces a capacity ceiling, and
// performs idle-timeout eviction via internal/reaper. The map is
// sharded (internal/constants.IdentityShardCount shards, each its own
// mutex) the way a high-throughput keyed cache would be built in this
// stack, with the shard key derived via golang.org/x/crypto/blake2b and
// concurrent clone-on-miss collapsed per identity with
// golang.org/x/sync/singleflight — both drawn from the dependency
// surface the rest of this module's pack exercises, repurposed here
// from their usual roles (content hashing, request coalescing) to
// identity-map sharding and clone coalescing.
package identitymap

import (
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mimecast/multiline/internal/assembler"
	"github.com/mimecast/multiline/internal/constants"
	"github.com/mimecast/multiline/internal/dlog"
	"github.com/mimecast/multiline/internal/event"
	"github.com/mimecast/multiline/internal/listener"
	"github.com/mimecast/multiline/internal/merrors"
	"github.com/mimecast/multiline/internal/reaper"
)

type mapEntry struct {
	assembler *assembler.Assembler
	deadline  time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*mapEntry
	group   singleflight.Group
}

// Options configures an IdentityMap's capacity and eviction policy
// (builder configuration: max_identities, evict_timeout,
// cleaner_interval, eviction_block). Kept out of internal/config.Options
// because EvictionBlock is an internal/listener.Sink and the builder
// settings govern the map, not any one Assembler's registration.
type Options struct {
	MaxIdentities   int
	EvictTimeout    time.Duration
	CleanerInterval time.Duration
	// EvictionBlock is the fallback sink used to flush an evicted
	// assembler that does not support auto-flush.
	EvictionBlock listener.Sink
}

// DefaultOptions returns the builder defaults for an IdentityMap.
func DefaultOptions() Options {
	return Options{
		MaxIdentities:   constants.DefaultMaxIdentities,
		EvictTimeout:    constants.DefaultEvictTimeout,
		CleanerInterval: constants.DefaultCleanerInterval,
	}
}

// Map is the IdentityMap demultiplexer. The empty string is treated as
// the "nil identity", routed to the shared base assembler
// without ever touching the shards or the capacity ceiling.
type Map struct {
	opts Options
	base *assembler.Assembler

	shards  [constants.IdentityShardCount]*shard
	cleaner *reaper.Runner

	mu     sync.Mutex // guards count/closed only; shard contents have their own locks
	count  int
	closed bool
}

// New builds a Map fanning out from base. The background reaper is
// built but not started; call StartCleaner to arm it.
func New(base *assembler.Assembler, opts Options) *Map {
	m := &Map{opts: opts, base: base}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]*mapEntry)}
	}
	m.cleaner = reaper.New(opts.CleanerInterval, m.cleanup)
	return m
}

// StartCleaner arms the background reaper. Idempotent.
func (m *Map) StartCleaner() {
	m.cleaner.Start()
}

func shardIndex(identity string) int {
	sum := blake2b.Sum256([]byte(identity))
	return int(sum[0]) % constants.IdentityShardCount
}

// IdentityCount returns the number of distinct non-nil identities
// currently mapped. This never exceeds opts.MaxIdentities, and is
// observable to external callers.
func (m *Map) IdentityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// resolve implements the routing and capacity protocol: route to the
// identity's existing assembler, or clone one from base on first sight.
func (m *Map) resolve(identity string) (*assembler.Assembler, error) {
	if identity == "" {
		return m.base, nil
	}

	sh := m.shards[shardIndex(identity)]

	sh.mu.Lock()
	if e, ok := sh.entries[identity]; ok {
		e.deadline = time.Now().Add(m.opts.EvictTimeout)
		a := e.assembler
		sh.mu.Unlock()
		return a, nil
	}
	sh.mu.Unlock()

	if err := m.checkCapacity(); err != nil {
		return nil, err
	}

	v, err, _ := sh.group.Do(identity, func() (interface{}, error) {
		sh.mu.Lock()
		if e, ok := sh.entries[identity]; ok {
			e.deadline = time.Now().Add(m.opts.EvictTimeout)
			a := e.assembler
			sh.mu.Unlock()
			return a, nil
		}
		sh.mu.Unlock()

		// Reserve the slot under m.mu so concurrent new identities cannot
		// together push the count past the ceiling.
		m.mu.Lock()
		if m.count >= m.opts.MaxIdentities {
			m.mu.Unlock()
			return nil, merrors.NewCapacityExceeded(m.opts.MaxIdentities)
		}
		m.count++
		m.mu.Unlock()

		clone := m.base.Clone()
		sh.mu.Lock()
		sh.entries[identity] = &mapEntry{assembler: clone, deadline: time.Now().Add(m.opts.EvictTimeout)}
		sh.mu.Unlock()
		return clone, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*assembler.Assembler), nil
}

// checkCapacity enforces the capacity protocol: trigger
// cleanup at the ceiling, fail with CapacityExceeded if still full
// after cleanup, and log a warning on each call made while the map is
// at or above the 80% threshold.
func (m *Map) checkCapacity() error {
	m.mu.Lock()
	size, max := m.count, m.opts.MaxIdentities
	m.mu.Unlock()

	if size >= max {
		m.cleanup()
		m.mu.Lock()
		size = m.count
		m.mu.Unlock()
		if size >= max {
			dlog.Error("identitymap: capacity exceeded even after cleanup, max_identities =", max)
			return merrors.NewCapacityExceeded(max)
		}
		return nil
	}
	if max > 0 && float64(size) >= constants.CapacityWarnFraction*float64(max) {
		dlog.Warn("identitymap: approaching capacity:", size, "of", max)
	}
	return nil
}

// Evict implements idempotent removal of identity,
// auto-flushing the assembler before disposal if it supports it.
func (m *Map) Evict(identity string) {
	if identity == "" {
		return
	}
	sh := m.shards[shardIndex(identity)]

	sh.mu.Lock()
	e, ok := sh.entries[identity]
	if ok {
		delete(sh.entries, identity)
	}
	sh.mu.Unlock()
	if !ok {
		return
	}

	m.mu.Lock()
	m.count--
	m.mu.Unlock()

	if e.assembler.SupportsAutoFlush() {
		e.assembler.AutoFlush()
	}
}

// Decode routes to identity's assembler (or the base assembler for the
// nil identity).
func (m *Map) Decode(identity string, chunk []byte, sink listener.Sink) error {
	if m.isClosed() {
		return merrors.ErrClosed
	}
	a, err := m.resolve(identity)
	if err != nil {
		return err
	}
	return a.Decode(chunk, sink)
}

// Accept routes a Listener through identity's assembler, the
// demultiplexed fan-in path.
func (m *Map) Accept(identity string, l *listener.Listener) error {
	if m.isClosed() {
		return merrors.ErrClosed
	}
	a, err := m.resolve(identity)
	if err != nil {
		return err
	}
	return a.Accept(l)
}

// Stats returns identity's per-assembler event counters. It is
// read-only: unlike resolve, a lookup miss is reported via ok=false
// rather than cloning a new assembler into existence. The nil identity
// reports the shared base assembler's counters.
func (m *Map) Stats(identity string) (assembler.Stats, bool) {
	if identity == "" {
		return m.base.Stats(), true
	}
	sh := m.shards[shardIndex(identity)]
	sh.mu.Lock()
	e, ok := sh.entries[identity]
	sh.mu.Unlock()
	if !ok {
		return assembler.Stats{}, false
	}
	return e.assembler.Stats(), true
}

// Encode routes the pass-through emission to identity's assembler (or
// the base assembler for the nil identity), resolving/cloning exactly
// as Decode and Accept do.
func (m *Map) Encode(identity string, ev event.Event, sink listener.Sink) error {
	if m.isClosed() {
		return merrors.ErrClosed
	}
	a, err := m.resolve(identity)
	if err != nil {
		return err
	}
	return a.Encode(ev, sink)
}

func (m *Map) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Flush implements a broadcast flush: with a sink, every
// assembler is flushed against it; without one, auto-flushable
// assemblers are auto-flushed and the rest fall back to their last
// decode sink.
func (m *Map) Flush(sink listener.Sink) error {
	var firstErr error
	flushOne := func(a *assembler.Assembler) {
		var err error
		switch {
		case sink != nil:
			err = a.Flush(sink)
		case a.SupportsAutoFlush():
			a.AutoFlush()
		default:
			if s := a.DecodeSink(); s != nil {
				err = a.Flush(s)
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	flushOne(m.base)
	for _, sh := range m.shards {
		for _, a := range sh.snapshot() {
			flushOne(a)
		}
	}
	return firstErr
}

// FlushMapped rebinds listener's path to each identity before flushing
// that identity's assembler; per-identity sink errors are swallowed
// (best-effort shutdown).
func (m *Map) FlushMapped(l *listener.Listener) {
	for _, sh := range m.shards {
		for id, a := range sh.snapshotWithIDs() {
			rebound := listener.New(id, l.Sink)
			if err := a.Flush(rebound); err != nil {
				dlog.Error("identitymap: flush_mapped failed for identity", id, ":", err)
			}
		}
	}
}

// cleanup atomically (per shard) deletes entries whose deadline has
// passed, then flushes each deleted assembler per the eviction flush
// policy. Also invoked synchronously from checkCapacity when the map is
// at its ceiling, not just by the background reaper.
func (m *Map) cleanup() {
	now := time.Now()
	for _, sh := range m.shards {
		sh.mu.Lock()
		var expired []*assembler.Assembler
		for id, e := range sh.entries {
			if !e.deadline.After(now) {
				expired = append(expired, e.assembler)
				delete(sh.entries, id)
			}
		}
		sh.mu.Unlock()

		if len(expired) == 0 {
			continue
		}
		m.mu.Lock()
		m.count -= len(expired)
		m.mu.Unlock()

		var g errgroup.Group
		for _, a := range expired {
			a := a
			g.Go(func() error {
				m.evictionFlush(a)
				return nil
			})
		}
		g.Wait()
	}
}

// evictionFlush applies the per-assembler flush policy on eviction:
// prefer auto-flush, then the configured eviction_block, then the
// assembler's last-seen decode sink.
func (m *Map) evictionFlush(a *assembler.Assembler) {
	switch {
	case a.SupportsAutoFlush():
		a.AutoFlush()
	case m.opts.EvictionBlock != nil:
		if err := a.Flush(m.opts.EvictionBlock); err != nil {
			dlog.Error("identitymap: eviction flush via eviction_block failed:", err)
		}
	default:
		if sink := a.DecodeSink(); sink != nil {
			if err := a.Flush(sink); err != nil {
				dlog.Error("identitymap: eviction flush via decode sink failed:", err)
			}
		}
	}
}

// Close stops the cleaner before closing every assembler, in that order
// so no sweep runs concurrently with shutdown.
func (m *Map) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cleaner.Stop()

	var firstErr error
	if err := m.base.Close(m.base.DecodeSink()); err != nil {
		firstErr = err
	}
	for _, sh := range m.shards {
		for _, a := range sh.drain() {
			if err := a.Close(a.DecodeSink()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *shard) snapshot() []*assembler.Assembler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*assembler.Assembler, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.assembler)
	}
	return out
}

func (s *shard) snapshotWithIDs() map[string]*assembler.Assembler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*assembler.Assembler, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.assembler
	}
	return out
}

func (s *shard) drain() []*assembler.Assembler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*assembler.Assembler, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.assembler)
	}
	s.entries = make(map[string]*mapEntry)
	return out
}
