package ring

import (
	"bytes"
	"testing"
)

func TestWriteSnapshotRoundTrip(t *testing.T) {
	b := New(16)
	b.Write([]byte("hello"))
	b.Write([]byte(" world"))
	if got := b.Snapshot(); !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("Snapshot = %q, want %q", got, "hello world")
	}
	if b.Overflowed() {
		t.Fatalf("should not have overflowed yet")
	}
}

func TestOverwritesOldestOnOverflow(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcdefgh"))
	b.Write([]byte("IJ"))
	got := b.Snapshot()
	want := []byte("cdefghIJ")
	if !bytes.Equal(got, want) {
		t.Fatalf("Snapshot = %q, want %q", got, want)
	}
	if !b.Overflowed() {
		t.Fatalf("expected overflow flag set")
	}
}

func TestSingleWriteLargerThanCapacityKeepsTail(t *testing.T) {
	b := New(4)
	b.Write([]byte("0123456789"))
	got := b.Snapshot()
	want := []byte("6789")
	if !bytes.Equal(got, want) {
		t.Fatalf("Snapshot = %q, want %q", got, want)
	}
}

func TestWrapsAroundMultipleTimes(t *testing.T) {
	b := New(4)
	for i := 0; i < 10; i++ {
		b.Write([]byte{byte('a' + i)})
	}
	got := b.Snapshot()
	want := []byte("ghij")
	if !bytes.Equal(got, want) {
		t.Fatalf("Snapshot = %q, want %q", got, want)
	}
}

func TestLenTracksContents(t *testing.T) {
	b := New(8)
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
	b.Write([]byte("abc"))
	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	b.Write([]byte("defgh"))
	if b.Len() != 8 {
		t.Fatalf("Len = %d, want 8 (capacity)", b.Len())
	}
}

func TestResetClearsContents(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcdefgh12"))
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len after reset = %d, want 0", b.Len())
	}
	if b.Overflowed() {
		t.Fatalf("Overflowed after reset should be false")
	}
	if got := b.Snapshot(); len(got) != 0 {
		t.Fatalf("Snapshot after reset = %q, want empty", got)
	}
}

func TestEmptyWriteIsNoop(t *testing.T) {
	b := New(8)
	b.Write(nil)
	b.Write([]byte{})
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
}
