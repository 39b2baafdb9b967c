// Package host manages the lifetime of every PTY-backed session in one
// daemon process: creation, lookup, enumeration, kill, and background
// reap/idle-kill maintenance.
package host

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"muxd/internal/activitylog"
	"muxd/internal/config"
	"muxd/internal/muxerr"
	"muxd/internal/session"
	"muxd/internal/socketdir"
)

// maintenanceTick is the coarse evaluation period for idle-timeout and reap
// checks.
const maintenanceTick = time.Second

// maintenanceWindowSlack bounds how long after an RRULE occurrence the
// maintenance window is considered "open", so a schedule like
// "FREQ=DAILY;BYHOUR=3" gates a window rather than a single instant.
const maintenanceWindowSlack = 5 * time.Minute

// Host owns the id→session map for one daemon process.
type Host struct {
	cfg *config.Config

	mu        sync.Mutex
	sessions  map[string]*session.Session
	exitedAt  map[string]time.Time

	lock      *flock.Flock
	maintRule *rrule.RRule

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Host bound to cfg, taking the single-instance lock over the
// socket directory and parsing the optional maintenance-window RRULE.
func New(cfg *config.Config) (*Host, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	if err := socketdir.EnsureDir(); err != nil {
		return nil, muxerr.Wrap(muxerr.Unknown, "create socket directory", err)
	}

	lockPath := filepath.Join(socketdir.Dir(), ".host.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, muxerr.Wrap(muxerr.Unknown, "acquire host lock", err)
	}
	if !locked {
		return nil, muxerr.New(muxerr.AlreadyExists, "another daemon already holds the socket directory lock")
	}

	var rule *rrule.RRule
	if cfg.MaintenanceSchedule != "" {
		rule, err = rrule.StrToRRule(cfg.MaintenanceSchedule)
		if err != nil {
			lock.Unlock()
			return nil, muxerr.Wrap(muxerr.Unknown, "parse maintenance_schedule", err)
		}
	}

	h := &Host{
		cfg:       cfg,
		sessions:  make(map[string]*session.Session),
		exitedAt:  make(map[string]time.Time),
		lock:      lock,
		maintRule: rule,
		stopCh:    make(chan struct{}),
	}

	h.wg.Add(1)
	go h.runMaintenance()

	return h, nil
}

// Close stops the maintenance loop and releases the single-instance lock.
// It does not kill running sessions.
func (h *Host) Close() error {
	close(h.stopCh)
	h.wg.Wait()
	return h.lock.Unlock()
}

// Create spawns a new session under id. If id names a session that exists
// and is not Exited, it fails with AlreadyExists.
func (h *Host) Create(id string, opts session.Options) (session.Descriptor, error) {
	if id == "" {
		id = uuid.NewString()
	}

	h.mu.Lock()
	if existing, ok := h.sessions[id]; ok && existing.State() != session.Exited {
		h.mu.Unlock()
		return session.Descriptor{}, muxerr.New(muxerr.AlreadyExists, "session "+id+" already exists")
	}
	h.mu.Unlock()

	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = h.cfg.IdleTimeout
	}

	logPath := filepath.Join(config.ConfigDir(), "logs", id+".jsonl")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		log.Printf("warning: create activity log directory: %v", err)
	}
	alog := activitylog.New(true, logPath, "host", id)

	s, err := session.New(id, opts, alog)
	if err != nil {
		alog.Close()
		return session.Descriptor{}, err
	}

	h.mu.Lock()
	h.sessions[id] = s
	delete(h.exitedAt, id)
	h.mu.Unlock()

	return s.Descriptor(), nil
}

// Get returns the session named id, if one exists.
func (h *Host) Get(id string) (*session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// List returns a snapshot of every live session's descriptor.
func (h *Host) List() []session.Descriptor {
	h.mu.Lock()
	sessions := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	out := make([]session.Descriptor, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Descriptor())
	}
	return out
}

// Kill terminates the session named id, returning true iff a session
// existed.
func (h *Host) Kill(id string, force bool) (bool, error) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, s.Kill(force)
}

// Count returns the number of sessions currently tracked (including
// Exited ones pending reap).
func (h *Host) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// runMaintenance evaluates idle-timeout and reap-grace on a coarse tick,
// gated by the optional maintenance-window RRULE.
func (h *Host) runMaintenance() {
	defer h.wg.Done()
	ticker := time.NewTicker(maintenanceTick)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case now := <-ticker.C:
			if h.inMaintenanceWindow(now) {
				h.tick(now)
			}
		}
	}
}

// inMaintenanceWindow reports whether maintenance is allowed to run at t.
// With no configured rule, maintenance always runs, matching spec's
// mandatory idle-timeout check.
func (h *Host) inMaintenanceWindow(t time.Time) bool {
	if h.maintRule == nil {
		return true
	}
	last := h.maintRule.Before(t, true)
	if last.IsZero() {
		return false
	}
	return t.Sub(last) <= maintenanceWindowSlack
}

func (h *Host) tick(now time.Time) {
	h.mu.Lock()
	snapshot := make(map[string]*session.Session, len(h.sessions))
	for id, s := range h.sessions {
		snapshot[id] = s
	}
	h.mu.Unlock()

	var toReap []string
	for id, s := range snapshot {
		switch s.State() {
		case session.Exited:
			h.mu.Lock()
			since, seen := h.exitedAt[id]
			if !seen {
				h.exitedAt[id] = now
			} else if now.Sub(since) >= h.cfg.ReapGrace {
				toReap = append(toReap, id)
			}
			h.mu.Unlock()
		case session.Running:
			if deadline, ok := s.IdleDeadline(); ok && now.After(deadline) {
				go s.Kill(false)
			}
		}
	}

	if len(toReap) == 0 {
		return
	}
	h.mu.Lock()
	for _, id := range toReap {
		delete(h.sessions, id)
		delete(h.exitedAt, id)
	}
	h.mu.Unlock()
}
