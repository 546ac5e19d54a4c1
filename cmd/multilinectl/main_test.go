package main

import (
	"testing"
	"time"

	"github.com/mimecast/multiline/internal/event"
	"github.com/mimecast/multiline/internal/testutil"
)

func TestPrintEventFormatsMessageAndPath(t *testing.T) {
	ev := event.Event{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Message:   "hello world\n   second line",
		Tags:      []string{"multiline"},
		Path:      "app.log",
	}

	out := testutil.CaptureOutput(t, func() {
		printEvent(ev)
	})

	testutil.AssertContains(t, out, "path=app.log")
	testutil.AssertContains(t, out, "tags=multiline")
	testutil.AssertContains(t, out, "hello world\n   second line")
	testutil.AssertNotContains(t, out, "seq=")
}

func TestPrintEventOmitsSeqWhenDisabled(t *testing.T) {
	ev := event.Event{Message: "single line", Path: "-"}

	out := testutil.CaptureOutput(t, func() {
		printEvent(ev)
	})

	testutil.AssertNotContains(t, out, "seq=")
	testutil.AssertContains(t, out, "single line")
}

func TestPrintEventIncludesSeqWhenSet(t *testing.T) {
	n := 7
	ev := event.Event{Message: "line", SeqField: "seq", Seq: &n, Path: "-"}

	out := testutil.CaptureOutput(t, func() {
		printEvent(ev)
	})

	testutil.AssertContains(t, out, "seq=7")
}
