package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"muxd/internal/config"
	"muxd/internal/host"
	"muxd/internal/rpc"
)

func startTestDaemon(t *testing.T) string {
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
	t.Cleanup(func() { ln.Close() })

	srv := rpc.NewServer(h)
	go srv.Serve(ln)

	return "unix://" + sockPath
}

// runCmdCaptureStdout runs the root command, capturing os.Stdout: the
// subcommands print directly with fmt.Println rather than cmd.OutOrStdout,
// matching the teacher's plain-CLI style, so tests redirect the real
// process stdout instead of wiring a cobra output buffer.
func runCmdCaptureStdout(t *testing.T, args ...string) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	cmd := newRootCmd()
	cmd.SetArgs(args)
	runErr := cmd.Execute()

	w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), runErr
}

func TestLsEmptyDaemon(t *testing.T) {
	addr := startTestDaemon(t)
	out, err := runCmdCaptureStdout(t, "ls", "--addr", addr)
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, "No sessions") {
		t.Fatalf("output = %q, want it to report no sessions", out)
	}
}

func TestCreateListKill(t *testing.T) {
	addr := startTestDaemon(t)

	createOut, err := runCmdCaptureStdout(t, "create", "--addr", addr, "--id", "cmdtest", "--command", "/bin/cat")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(createOut, "cmdtest") {
		t.Fatalf("create output = %q, want it to contain the session id", createOut)
	}

	lsOut, err := runCmdCaptureStdout(t, "ls", "--addr", addr)
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(lsOut, "cmdtest") {
		t.Fatalf("ls output = %q, want it to list cmdtest", lsOut)
	}

	killOut, err := runCmdCaptureStdout(t, "kill", "--addr", addr, "cmdtest", "--force")
	if err != nil {
		t.Fatalf("kill: %v", err)
	}
	if !strings.Contains(killOut, "Killed") {
		t.Fatalf("kill output = %q, want Killed", killOut)
	}
}

func TestKillUnknownSessionReportsNoSuchSession(t *testing.T) {
	addr := startTestDaemon(t)
	out, err := runCmdCaptureStdout(t, "kill", "--addr", addr, "ghost")
	if err != nil {
		t.Fatalf("kill: %v", err)
	}
	if !strings.Contains(out, "No such session") {
		t.Fatalf("output = %q, want it to report no such session", out)
	}
}
