package sequencer

import "testing"

func TestNextWrapsAtRollover(t *testing.T) {
	s := New(true, "seq", 10, 13)
	want := []int{10, 11, 12, 10}
	for i, w := range want {
		if got := s.Next(); got != w {
			t.Errorf("Next() #%d = %d, want %d", i, got, w)
		}
	}
}

func TestNextNeverEqualsRollover(t *testing.T) {
	s := New(true, "seq", 0, 3)
	for i := 0; i < 100; i++ {
		if got := s.Next(); got == 3 {
			t.Fatalf("Next() returned rollover value at iteration %d", i)
		}
	}
}

func TestCloneStartsFresh(t *testing.T) {
	s := New(true, "seq", 0, 5)
	s.Next()
	s.Next()
	c := s.Clone()
	if got := c.Next(); got != 0 {
		t.Errorf("cloned sequencer should restart at 0, got %d", got)
	}
}
