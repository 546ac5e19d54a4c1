package tokenizer

import (
	"testing"

	"github.com/mimecast/multiline/internal/testutil"
)

func TestExtractSplitsCompleteLines(t *testing.T) {
	tok := New("\n")
	lines := tok.Extract([]byte("one\ntwo\nthree"))
	want := []string{"one", "two"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if got := tok.Flush(); got != "three" {
		t.Errorf("Flush() = %q, want %q", got, "three")
	}
}

func TestExtractAcrossMultipleChunks(t *testing.T) {
	tok := New("\n")
	lines := tok.Extract([]byte("par"))
	if len(lines) != 0 {
		t.Fatalf("expected no complete lines yet, got %v", lines)
	}
	lines = tok.Extract([]byte("tial\nrest"))
	if len(lines) != 1 || lines[0] != "partial" {
		t.Fatalf("got %v", lines)
	}
	if got := tok.Flush(); got != "rest" {
		t.Errorf("Flush() = %q", got)
	}
}

func TestFlushClearsResidue(t *testing.T) {
	tok := New("\n")
	tok.Extract([]byte("abc"))
	tok.Flush()
	if got := tok.Flush(); got != "" {
		t.Errorf("second Flush() = %q, want empty", got)
	}
}

func TestConcatenationInvariant(t *testing.T) {
	input := "alpha\nbeta\ngam" + "ma\ndelta"
	chunks := []string{"alpha\nbe", "ta\ngam", "ma\ndelta"}

	tok := New("\n")
	var rebuilt string
	for i, c := range chunks {
		lines := tok.Extract([]byte(c))
		for _, l := range lines {
			if rebuilt != "" {
				rebuilt += "\n"
			}
			rebuilt += l
		}
		_ = i
	}
	tail := tok.Flush()
	if tail != "" {
		if rebuilt != "" {
			rebuilt += "\n"
		}
		rebuilt += tail
	}
	if rebuilt != input {
		t.Errorf("rebuilt = %q, want %q", rebuilt, input)
	}
}

// Feeding a large generated corpus through odd-sized chunk boundaries
// must still yield exactly as many lines as were generated, with none
// dropped or merged and none empty.
func TestExtractAcrossManyOddSizedChunks(t *testing.T) {
	data := testutil.GenerateTestData(500, 37)

	tok := New("\n")
	const chunkSize = 17 // deliberately not a divisor of the line length
	var got []string
	for start := 0; start < len(data); start += chunkSize {
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		got = append(got, tok.Extract([]byte(data[start:end]))...)
	}
	if tail := tok.Flush(); tail != "" {
		got = append(got, tail)
	}

	if len(got) != 500 {
		t.Fatalf("got %d lines, want 500", len(got))
	}
	for i, line := range got {
		if line == "" {
			t.Fatalf("line %d unexpectedly empty", i)
		}
	}
}

func TestEmptyDelimitedLinesPreserved(t *testing.T) {
	tok := New("\n")
	lines := tok.Extract([]byte("a\n\nb\n"))
	want := []string{"a", "", "b"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
