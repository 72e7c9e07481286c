package hub

import (
	"sync"
	"time"
)

type heartbeatEntry struct {
	timer    *time.Timer
	lastSeen time.Time
}

// Monitor tracks per-session liveness deadlines. A session that stops
// signaling within the timeout is handed to onExpire. Stopping a session
// cancels its timer; a timer that fires after Stop finds no entry and does
// nothing, so a reused session pointer can never be closed by a stale timer.
type Monitor struct {
	timeout  time.Duration
	onExpire func(*Session)

	mu      sync.Mutex
	entries map[*Session]*heartbeatEntry
	now     func() time.Time
}

// NewMonitor creates a liveness monitor with the given deadline.
func NewMonitor(timeout time.Duration, onExpire func(*Session)) *Monitor {
	return &Monitor{
		timeout:  timeout,
		onExpire: onExpire,
		entries:  make(map[*Session]*heartbeatEntry),
		now:      time.Now,
	}
}

// Track starts the deadline timer for a session.
func (m *Monitor) Track(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[s]; ok {
		return
	}
	m.entries[s] = &heartbeatEntry{
		lastSeen: m.now(),
		timer:    time.AfterFunc(m.timeout, func() { m.expire(s) }),
	}
}

// Signal records a liveness signal, pushing the deadline out.
func (m *Monitor) Signal(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[s]; ok {
		e.lastSeen = m.now()
	}
}

// Stop cancels tracking for a session.
func (m *Monitor) Stop(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[s]; ok {
		e.timer.Stop()
		delete(m.entries, s)
	}
}

// Tracked reports whether the session currently has a live deadline.
func (m *Monitor) Tracked(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[s]
	return ok
}

// expire runs on the timer goroutine. A signal that arrived after the timer
// was armed defers the deadline instead of expiring the session.
func (m *Monitor) expire(s *Session) {
	m.mu.Lock()
	e, ok := m.entries[s]
	if !ok {
		m.mu.Unlock()
		return
	}
	if remaining := m.timeout - m.now().Sub(e.lastSeen); remaining > 0 {
		e.timer.Reset(remaining)
		m.mu.Unlock()
		return
	}
	delete(m.entries, s)
	m.mu.Unlock()

	m.onExpire(s)
}
