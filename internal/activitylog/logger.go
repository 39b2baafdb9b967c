// Package activitylog writes an append-only, newline-delimited JSON event
// log per session, for operational debugging of the daemon independent of
// the output ring/screen buffer.
package activitylog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Logger appends JSON-lines events to a per-session log file. A disabled
// Logger (or Nop()) accepts every call as a no-op, so call sites never need
// to branch on whether logging is on.
type Logger struct {
	enabled   bool
	actor     string
	sessionID string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// New opens (creating if necessary) the log file at path and returns a
// Logger that tags every event with actor and sessionID. If enabled is
// false, no file is opened and every method is a no-op.
func New(enabled bool, path, actor, sessionID string) *Logger {
	l := &Logger{enabled: enabled, actor: actor, sessionID: sessionID}
	if !enabled {
		return l
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		// Logging must never be the reason a session fails to run.
		l.enabled = false
		return l
	}
	l.file = f
	l.enc = json.NewEncoder(f)
	return l
}

// Nop returns a Logger that discards every event, for code paths that
// don't have a session directory to log into (e.g. CLI-only commands).
func Nop() *Logger {
	return &Logger{enabled: false}
}

// Close closes the underlying file, if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) write(event string, fields map[string]any) {
	if !l.enabled {
		return
	}
	entry := map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"actor":      l.actor,
		"session_id": l.sessionID,
		"event":      event,
	}
	for k, v := range fields {
		entry[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enc == nil {
		return
	}
	_ = l.enc.Encode(entry)
}

// Created logs that the session's PTY child was spawned.
func (l *Logger) Created(command string, argv []string) {
	l.write("created", map[string]any{"command": command, "argv": argv})
}

// Attached logs a subscriber attaching, recording whether it took the
// primary slot.
func (l *Logger) Attached(subscriberID string, primary bool) {
	l.write("attached", map[string]any{"subscriber_id": subscriberID, "primary": primary})
}

// Detached logs a subscriber detaching.
func (l *Logger) Detached(subscriberID string) {
	l.write("detached", map[string]any{"subscriber_id": subscriberID})
}

// Resized logs a resize operation.
func (l *Logger) Resized(cols, rows int) {
	l.write("resized", map[string]any{"cols": cols, "rows": rows})
}

// Killed logs that the session was killed, noting whether it was forced.
func (l *Logger) Killed(force bool) {
	l.write("killed", map[string]any{"force": force})
}

// Exited logs the child process exiting, with its exit code.
func (l *Logger) Exited(exitCode int) {
	l.write("exited", map[string]any{"exit_code": exitCode})
}
