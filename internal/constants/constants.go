// Package constants collects the default sizes, timeouts and buffer
// capacities shared across the multiline packages, mirroring the way the
// upstream dtail project keeps its tunables in one small leaf package
// rather than scattered magic numbers.
package constants

import "time"

// Line and buffer defaults.
const (
	// DefaultMaxLines bounds how many pending lines an Assembler accumulates
	// before forcing a flush.
	DefaultMaxLines = 500

	// DefaultMaxBytes bounds the accumulated byte size of a pending buffer.
	DefaultMaxBytes = 10 * 1024 * 1024

	// DefaultMultilineTag is the tag attached to merged-from-many events.
	DefaultMultilineTag = "multiline"

	// MaxLinesReachedTag is attached when a flush was forced by the
	// configured max_lines bound.
	MaxLinesReachedTag = "multiline_codec_max_lines_reached"

	// MaxBytesReachedTag is attached when a flush was forced by the
	// configured max_bytes bound.
	MaxBytesReachedTag = "multiline_codec_max_bytes_reached"

	// TruncatedTag is attached when a single line had to be truncated because
	// it alone exceeded the configured max_bytes bound.
	TruncatedTag = "multiline_codec_truncated"

	// ReadBufferSize is a chunk size for reads handed to the Tokenizer. No
	// package in this module uses it; multilinectl reads 64 KiB chunks.
	ReadBufferSize = 8192

	// LineBufferInitialCapacity sizes the pooled line byte buffers.
	LineBufferInitialCapacity = 4096
)

// Sequencer defaults.
const (
	DefaultSequencerField    = "seq"
	DefaultSequencerStart    = 1
	DefaultSequencerRollover = 100000
)

// IdentityMap defaults.
const (
	// DefaultMaxIdentities bounds the number of concurrently tracked streams.
	DefaultMaxIdentities = 20000

	// DefaultEvictTimeout is the idle duration after which a stream's
	// Assembler is eligible for reaping.
	DefaultEvictTimeout = time.Hour

	// DefaultCleanerInterval is how often the reaper sweeps the map.
	DefaultCleanerInterval = 5 * time.Minute

	// CapacityWarnFraction is the fill fraction at or above which a warning
	// is logged for each new identity, before the hard ceiling is hit.
	CapacityWarnFraction = 0.8

	// IdentityShardCount is the number of independently locked shards the
	// IdentityMap hashes identities across.
	IdentityShardCount = 16
)

// Misc.
const (
	// DefaultCharset is used when a registration omits charset.
	DefaultCharset = "UTF-8"

	// DefaultDelimiter is the line terminator assumed absent explicit config.
	DefaultDelimiter = "\n"
)
