// Package session implements a single PTY-backed session: the child
// process, its screen buffer mirror, its output ring, and the set of
// attached subscribers that receive its output as it is produced.
package session

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"muxd/internal/activitylog"
	"muxd/internal/muxerr"
	"muxd/internal/ring"
	"muxd/internal/vt"
)

// State is a session's lifecycle stage.
type State int

const (
	Starting State = iota
	Running
	Exited
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Options are the spawn-time parameters for a new session, mirroring the
// PTY options carried by a create request.
type Options struct {
	Command     string
	Argv        []string
	Cwd         string
	Env         map[string]string
	Cols        int
	Rows        int
	IdleTimeout time.Duration // 0 means never idle-killed
}

// Descriptor is the session's public snapshot, independent of the wire
// encoding (internal/rpc converts this to its own wire struct).
type Descriptor struct {
	ID        string
	Command   string
	Cwd       string
	State     State
	ExitCode  *int
	Cols      int
	Rows      int
	CreatedAt time.Time
}

// outboundBufSize is the bounded capacity of each subscriber's outbound
// channel.
const outboundBufSize = 64

// ptyWriteTimeout bounds how long SendInput waits for the kernel PTY
// buffer to accept a write before giving up, matching the teacher's
// timeout-guarded PTY write pattern.
const ptyWriteTimeout = 5 * time.Second

// killGrace bounds how long Kill waits after SIGINT before escalating to
// SIGKILL.
const killGrace = 3 * time.Second

// Subscriber is a per-attached-client endpoint: a bounded outbound channel
// of output chunks plus a signal the session uses to tell the subscriber
// its stream has ended (detach, session exit, or slow-consumer drop).
type Subscriber struct {
	ID string

	out  chan []byte
	done chan struct{}

	mu      sync.Mutex
	dropped bool
	closed  bool
}

// NewSubscriber creates a Subscriber with the standard bounded buffer size.
func NewSubscriber(id string) *Subscriber {
	return &Subscriber{ID: id, out: make(chan []byte, outboundBufSize), done: make(chan struct{})}
}

// Out returns the channel of output chunks to forward to the client.
func (s *Subscriber) Out() <-chan []byte { return s.out }

// Done is closed when the subscriber's stream has ended: explicit detach,
// session exit, or a slow-consumer drop.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Dropped reports whether the session dropped this subscriber for being a
// slow consumer, as opposed to an ordinary detach or session exit.
func (s *Subscriber) Dropped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// send attempts a non-blocking delivery; on a full channel it drops the
// subscriber rather than blocking the PTY reader.
func (s *Subscriber) send(b []byte) bool {
	select {
	case s.out <- b:
		return true
	default:
		s.mu.Lock()
		s.dropped = true
		s.mu.Unlock()
		s.close()
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Session owns a PTY child process, its screen buffer mirror, its output
// ring, and its subscriber set. All mutation of cols/rows/state/subscriber
// set happens under mu; the PTY-reader task is the sole writer of the
// screen buffer and ring.
type Session struct {
	ID        string
	command   string
	argv      []string
	cwd       string
	createdAt time.Time

	mu           sync.Mutex
	state        State
	exitCode     *int
	cols, rows   int
	subscribers  map[string]*Subscriber
	primaryID    string
	idleTimeout  time.Duration
	idleDeadline time.Time

	ptmx   *os.File
	cmd    *exec.Cmd
	parser *vt.Parser
	screen *vt.Screen
	ring   *ring.Buffer

	exitCh chan struct{}
	log    *activitylog.Logger
}

// New spawns a PTY child process per opts and starts its background
// reader/waiter tasks. New returns only after the child has started, so the
// returned Session is already Running; Starting is never observed by callers.
func New(id string, opts Options, log *activitylog.Logger) (*Session, error) {
	if log == nil {
		log = activitylog.Nop()
	}
	cols, rows := opts.Cols, opts.Rows
	if cols < 1 {
		cols = 80
	}
	if rows < 1 {
		rows = 24
	}

	s := &Session{
		ID:          id,
		command:     opts.Command,
		argv:        opts.Argv,
		cwd:         opts.Cwd,
		createdAt:   time.Now(),
		state:       Starting,
		cols:        cols,
		rows:        rows,
		subscribers: make(map[string]*Subscriber),
		idleTimeout: opts.IdleTimeout,
		parser:      vt.NewParser(),
		screen:      vt.NewScreen(cols, rows),
		ring:        ring.New(ring.DefaultCapacity),
		exitCh:      make(chan struct{}),
		log:         log,
	}

	cmd := exec.Command(opts.Command, opts.Argv...)
	cmd.Dir = opts.Cwd
	if len(opts.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), opts.Env)
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, muxerr.Wrap(muxerr.SpawnFailed, "start "+opts.Command, err)
	}
	s.cmd = cmd
	s.ptmx = ptmx
	s.state = Running
	s.bumpIdleDeadline()

	s.log.Created(opts.Command, opts.Argv)

	go s.pumpOutput()
	go s.awaitExit()

	return s, nil
}

// mergeEnv overrides base (typically os.Environ()) with the key/value pairs
// in overrides, matching the teacher's env-override-by-key convention.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key := kv
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			key = kv[:idx]
		}
		if _, overridden := overrides[key]; !overridden {
			env = append(env, kv)
		}
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// pumpOutput is the session's single PTY-reader task: every chunk is
// written into the ring, fed to the parser (mutating the screen buffer),
// and multicast to subscribers, in that order.
func (s *Session) pumpOutput() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)

			s.mu.Lock()
			s.ring.Write(chunk)
			s.parser.Parse(s.screen, chunk)
			s.bumpIdleDeadline()
			subs := make([]*Subscriber, 0, len(s.subscribers))
			for _, sub := range s.subscribers {
				subs = append(subs, sub)
			}
			s.mu.Unlock()

			for _, sub := range subs {
				if !sub.send(chunk) {
					s.mu.Lock()
					delete(s.subscribers, sub.ID)
					if s.primaryID == sub.ID {
						s.primaryID = ""
					}
					s.mu.Unlock()
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// awaitExit waits for the child process to exit, records the exit code,
// transitions to Exited, and signals every subscriber.
func (s *Session) awaitExit() {
	err := s.cmd.Wait()

	s.mu.Lock()
	s.state = Exited
	s.exitCode = exitCodeFromError(err)
	code := 0
	if s.exitCode != nil {
		code = *s.exitCode
	}
	subs := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subscribers = make(map[string]*Subscriber)
	s.primaryID = ""
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	close(s.exitCh)
	s.log.Exited(code)
}

// exitCodeFromError reports the child's exit code, or nil if it terminated
// by signal or the code could not be determined (spec §7: "exit_code =
// None" for these cases).
func exitCodeFromError(err error) *int {
	if err == nil {
		zero := 0
		return &zero
	}
	ee, ok := err.(*exec.ExitError)
	if !ok {
		return nil
	}
	code := ee.ExitCode()
	if code < 0 {
		return nil
	}
	return &code
}

func (s *Session) bumpIdleDeadline() {
	if s.idleTimeout > 0 {
		s.idleDeadline = time.Now().Add(s.idleTimeout)
	}
}

// Descriptor returns a snapshot of the session's public state.
func (s *Session) Descriptor() Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Descriptor{
		ID:        s.ID,
		Command:   s.command,
		Cwd:       s.cwd,
		State:     s.state,
		ExitCode:  s.exitCode,
		Cols:      s.cols,
		Rows:      s.rows,
		CreatedAt: s.createdAt,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IdleDeadline returns the time after which the session should be
// idle-killed, and whether an idle timeout is configured at all.
func (s *Session) IdleDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimeout <= 0 {
		return time.Time{}, false
	}
	return s.idleDeadline, true
}

// Resize resizes the PTY and allocates a fresh screen buffer of the new
// size.
func (s *Session) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return muxerr.New(muxerr.NotRunning, "session is not running")
	}
	if cols < 1 || rows < 1 {
		return muxerr.New(muxerr.ArgumentError, "cols and rows must be positive")
	}
	s.cols, s.rows = cols, rows
	s.screen = vt.NewScreen(cols, rows)
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return muxerr.Wrap(muxerr.SpawnFailed, "resize pty", err)
	}
	s.log.Resized(cols, rows)
	return nil
}

// SendInput writes bytes to the PTY. A timeout bounds the write so a hung
// child cannot block the caller indefinitely.
func (s *Session) SendInput(p []byte) error {
	s.mu.Lock()
	running := s.state == Running
	ptmx := s.ptmx
	s.bumpIdleDeadline()
	s.mu.Unlock()
	if !running {
		return muxerr.New(muxerr.NotRunning, "session is not running")
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := ptmx.Write(p)
		errCh <- err
	}()
	timer := time.NewTimer(ptyWriteTimeout)
	defer timer.Stop()
	select {
	case err := <-errCh:
		return err
	case <-timer.C:
		return muxerr.New(muxerr.NotRunning, "write to pty timed out: child appears hung")
	}
}

// Attach adds sub to the subscriber set. If primary is true and the
// primary slot is already occupied, it fails with AlreadyAttached without
// modifying the subscriber set. Returns the authoritative replay of the
// current visible state (the serialized screen buffer).
func (s *Session) Attach(sub *Subscriber, primary bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if primary && s.primaryID != "" {
		return nil, muxerr.New(muxerr.AlreadyAttached, "a primary subscriber is already attached")
	}
	s.subscribers[sub.ID] = sub
	if primary {
		s.primaryID = sub.ID
	}
	replay := s.screen.Serialize()
	s.log.Attached(sub.ID, primary)
	return replay, nil
}

// Detach removes a subscriber from the set and clears the primary slot if
// it held it.
func (s *Session) Detach(subscriberID string) {
	s.mu.Lock()
	sub, ok := s.subscribers[subscriberID]
	if ok {
		delete(s.subscribers, subscriberID)
		if s.primaryID == subscriberID {
			s.primaryID = ""
		}
	}
	s.mu.Unlock()
	if ok {
		sub.close()
		s.log.Detached(subscriberID)
	}
}

// WaitForExit blocks until the child process exits, returning its exit
// code, or returns false if cancel fires first.
func (s *Session) WaitForExit(cancel <-chan struct{}) (int, bool) {
	select {
	case <-s.exitCh:
		s.mu.Lock()
		code := 0
		if s.exitCode != nil {
			code = *s.exitCode
		}
		s.mu.Unlock()
		return code, true
	case <-cancel:
		return 0, false
	}
}

// Kill terminates the child process: SIGINT normally, SIGKILL if force is
// set or if the process does not exit within killGrace.
func (s *Session) Kill(force bool) error {
	s.mu.Lock()
	var proc *os.Process
	if s.cmd != nil {
		proc = s.cmd.Process
	}
	already := s.state == Exited
	s.mu.Unlock()
	if already || proc == nil {
		return nil
	}

	s.log.Killed(force)
	if force {
		return proc.Kill()
	}
	if err := proc.Signal(os.Interrupt); err != nil {
		return proc.Kill()
	}

	select {
	case <-s.exitCh:
		return nil
	case <-time.After(killGrace):
		return proc.Kill()
	}
}
