// Package tokenizer implements chunk-to-line splitting: buffering
// arbitrary byte chunks and yielding complete delimiter-terminated
// lines, with a terminal flush of any undelimited tail. Grounded on the
// teacher's internal/io/pool.BytesBuffer sync.Pool (reused here verbatim
// for residue buffering, since chunked log reading is exactly the
// workload that pool was built for) and the byte-slicing style of its
// line-at-a-time read loop.
package tokenizer

import (
	"bytes"

	"github.com/mimecast/multiline/internal/io/pool"
)

// Tokenizer splits a byte stream on a configured delimiter, retaining
// any undelimited tail between calls. Not safe for concurrent use; the
// Assembler that owns one serializes access to it the same way it
// serializes buffer access.
type Tokenizer struct {
	delimiter []byte
	residue   *bytes.Buffer
}

// New builds a Tokenizer for the given delimiter (e.g. "\n").
func New(delimiter string) *Tokenizer {
	return &Tokenizer{
		delimiter: []byte(delimiter),
		residue:   pool.BytesBuffer.Get().(*bytes.Buffer),
	}
}

// Extract appends chunk to the internal residue, splits on the
// configured delimiter, and returns all complete lines. The tail
// (including an empty tail) is retained as residue for the next call.
func (t *Tokenizer) Extract(chunk []byte) []string {
	t.residue.Write(chunk)

	data := t.residue.Bytes()
	var lines []string
	start := 0
	for {
		idx := bytes.Index(data[start:], t.delimiter)
		if idx < 0 {
			break
		}
		end := start + idx
		lines = append(lines, string(data[start:end]))
		start = end + len(t.delimiter)
	}

	tail := make([]byte, len(data)-start)
	copy(tail, data[start:])
	t.residue.Reset()
	t.residue.Write(tail)

	return lines
}

// Flush returns the current residue as a line and clears it. Every
// Extract's output plus this final Flush, joined with the delimiter,
// equals the concatenation of every input chunk.
func (t *Tokenizer) Flush() string {
	s := t.residue.String()
	t.residue.Reset()
	return s
}

// Close returns the pooled residue buffer. After Close the Tokenizer
// must not be used again.
func (t *Tokenizer) Close() {
	pool.RecycleBytesBuffer(t.residue)
	t.residue = nil
}
