package muxerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(NotFound, "session xyz", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(SpawnFailed, "starting pty", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(AlreadyAttached, "primary slot occupied")
	if !Is(err, AlreadyAttached) {
		t.Fatalf("Is(err, AlreadyAttached) = false")
	}
	if Is(err, NotFound) {
		t.Fatalf("Is(err, NotFound) = true, want false")
	}
}

func TestIsMatchesWrappedError(t *testing.T) {
	inner := New(NotFound, "session abc")
	outer := fmt.Errorf("list sessions: %w", inner)
	if !Is(outer, NotFound) {
		t.Fatalf("Is should see through fmt.Errorf %%w wrapping")
	}
}

func TestKindOfUnknownForPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != Unknown {
		t.Fatalf("KindOf(plain error) should be Unknown")
	}
}

func TestErrorStringIncludesKindAndCause(t *testing.T) {
	err := Wrap(ConnectFailed, "dial unix socket", errors.New("connection refused"))
	want := "connect_failed: dial unix socket: connection refused"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
