package rpc

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"muxd/internal/config"
	"muxd/internal/host"
)

func newTestServer(t *testing.T) (addr string, h *host.Host) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := &config.Config{ReapGrace: time.Minute}
	h, err := host.New(cfg)
	if err != nil {
		t.Fatalf("host.New: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	sockPath := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close(); os.Remove(sockPath) })

	srv := NewServer(h)
	go srv.Serve(ln)

	return "unix://" + sockPath, h
}

func dialTest(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := DialTimeout(addr, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDialUnsupportedSchemeIsRejected(t *testing.T) {
	if _, err := Dial("ws://example/socket"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestCreateListKillRoundTrip(t *testing.T) {
	addr, _ := newTestServer(t)
	c := dialTest(t, addr)

	d, err := c.Create("s1", PTYOptions{Command: "/bin/cat", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID != "s1" {
		t.Fatalf("ID = %q", d.ID)
	}

	list, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}

	killed, err := c.Kill("s1", true)
	if err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if !killed {
		t.Fatal("expected killed = true")
	}
}

func TestAttachReceivesOutputThenExit(t *testing.T) {
	addr, _ := newTestServer(t)
	c := dialTest(t, addr)

	if _, err := c.Create("s2", PTYOptions{Command: "/bin/sh", Arguments: []string{"-c", "echo hi; exit 0"}, Cols: 80, Rows: 24}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	att, err := c.Attach("s2", 0, 0, true)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	var sawOutput bool
	deadline := time.After(3 * time.Second)
loop:
	for {
		select {
		case chunk, ok := <-att.Output():
			if !ok {
				break loop
			}
			if len(chunk) > 0 {
				sawOutput = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for output/exit")
		}
	}
	if !sawOutput {
		t.Fatal("expected at least one non-empty output chunk before exit")
	}
}

func TestSecondPrimaryAttachFailsButConnectionUsable(t *testing.T) {
	addr, _ := newTestServer(t)
	c1 := dialTest(t, addr)
	c2 := dialTest(t, addr)

	if _, err := c1.Create("s3", PTYOptions{Command: "/bin/cat", Cols: 80, Rows: 24}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	att1, err := c1.Attach("s3", 0, 0, true)
	if err != nil {
		t.Fatalf("first attach: %v", err)
	}
	defer att1.Detach()

	if _, err := c2.Attach("s3", 0, 0, true); err == nil {
		t.Fatal("expected second primary attach to fail")
	}

	// c2's connection must remain usable for ordinary requests.
	if _, err := c2.List(); err != nil {
		t.Fatalf("List after failed attach: %v", err)
	}
}

func TestDetachReturnsConnectionToRequestResponseMode(t *testing.T) {
	addr, _ := newTestServer(t)
	c := dialTest(t, addr)

	if _, err := c.Create("s4", PTYOptions{Command: "/bin/cat", Cols: 80, Rows: 24}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	att, err := c.Attach("s4", 0, 0, true)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := att.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}

	// Drain until the egress side observes detach and closes Output.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-att.Output():
			if !ok {
				goto drained
			}
		case <-deadline:
			t.Fatal("timed out waiting for output channel to close after detach")
		}
	}
drained:

	if _, err := c.List(); err != nil {
		t.Fatalf("List after detach: %v", err)
	}
}
