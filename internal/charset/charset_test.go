package charset

import "testing"

func TestConvertUTF8PassesThroughValidInput(t *testing.T) {
	c, err := New("UTF-8")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := c.Convert([]byte("hello \xe4\xb8\x96\xe7\x95\x8c"))
	if got != "hello 世界" {
		t.Errorf("got %q", got)
	}
}

func TestConvertUTF8ReplacesInvalidSequences(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := c.Convert([]byte("ok\xffbad"))
	want := "ok�bad"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestConvertASCII8BitReplacesNonASCII(t *testing.T) {
	c, err := New(ASCII8BIT)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := c.Convert([]byte{'a', 'b', 0xFF, 'c'})
	want := "ab�c"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestConvertASCIIRoundTrips(t *testing.T) {
	c, err := New(ASCII8BIT)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := "plain ascii line"
	if got := c.Convert([]byte(in)); got != in {
		t.Errorf("got %q want %q", got, in)
	}
}

func TestConvertNamedEncoding(t *testing.T) {
	c, err := New("ISO-8859-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 0xE9 in Latin-1 is U+00E9 (é)
	got := c.Convert([]byte{'c', 0xE9})
	if got != "cé" {
		t.Errorf("got %q", got)
	}
}

func TestNewUnknownCharsetIsConfigError(t *testing.T) {
	_, err := New("NOT-A-REAL-CHARSET")
	if err == nil {
		t.Fatal("expected error for unknown charset")
	}
}
