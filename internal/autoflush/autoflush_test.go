package autoflush

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestUnsetFlusherReportsNullStates(t *testing.T) {
	if Unset.Pending() {
		t.Error("Unset.Pending() should be false")
	}
	if !Unset.Stopped() {
		t.Error("Unset.Stopped() should be true")
	}
	if !Unset.Finished() {
		t.Error("Unset.Finished() should be true")
	}
	Unset.Start()
	Unset.Stop()
}

func TestNewWithNonPositiveIntervalReturnsUnset(t *testing.T) {
	f := New(0, func() {})
	if f != Unset {
		t.Error("expected Unset for non-positive interval")
	}
}

func TestStartSchedulesAndFires(t *testing.T) {
	var fired int32
	f := New(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	f.Start()
	if !f.Pending() {
		t.Error("expected Pending() after Start")
	}
	time.Sleep(80 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if !f.Finished() {
		t.Error("expected Finished() after callback completes")
	}
}

func TestStartReschedulesPendingTimer(t *testing.T) {
	var fired int32
	f := New(30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	f.Start()
	time.Sleep(15 * time.Millisecond)
	f.Start() // re-arm before the first would have fired
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("fired too early: %d", fired)
	}
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 {
		t.Errorf("fired = %d, want exactly 1", fired)
	}
}

func TestStopPreventsFutureFires(t *testing.T) {
	var fired int32
	f := New(15*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	f.Start()
	f.Stop()
	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Errorf("fired after Stop: %d", fired)
	}
	if !f.Stopped() {
		t.Error("expected Stopped() true")
	}
	f.Start()
	if f.Pending() {
		t.Error("Start() after Stop() must be a no-op")
	}
}

func TestStartWaitsForRunningCallback(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var fired int32
	f := New(10*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
		close(started)
		<-release
	})
	f.Start()
	<-started // callback is now running (holds runMu)

	done := make(chan struct{})
	go func() {
		f.Start() // must block until the running callback finishes
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Start() returned before the running callback finished")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	<-done
	if atomic.LoadInt32(&fired) != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}
