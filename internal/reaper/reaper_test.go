package reaper

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerSweepsOnInterval(t *testing.T) {
	var count int32
	r := New(15*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	r.Start()
	defer r.Stop()

	time.Sleep(70 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got < 2 {
		t.Errorf("sweep count = %d, want at least 2", got)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	var count int32
	r := New(10*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	r.Start()
	r.Start()
	r.Start()
	defer r.Stop()

	if !r.Running() {
		t.Error("expected Running() true")
	}
}

func TestStopHaltsSweeping(t *testing.T) {
	var count int32
	r := New(10*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	r.Start()
	time.Sleep(25 * time.Millisecond)
	r.Stop()
	if r.Running() {
		t.Error("expected Running() false after Stop")
	}
	after := atomic.LoadInt32(&count)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&count) != after {
		t.Error("sweep fired after Stop")
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	r := New(10*time.Millisecond, func() {})
	r.Stop()
	if r.Running() {
		t.Error("Running() should be false")
	}
}
