package hub

import (
	"sync"
	"testing"
	"time"
)

type expireRecorder struct {
	mu      sync.Mutex
	expired []*Session
}

func (r *expireRecorder) record(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, s)
}

func (r *expireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expired)
}

func TestMonitor_ExpiresSilentSession(t *testing.T) {
	rec := &expireRecorder{}
	m := NewMonitor(30*time.Millisecond, rec.record)
	s := NewSession("", newFakeConn())

	m.Track(s)
	if !m.Tracked(s) {
		t.Fatal("expected session to be tracked")
	}

	deadline := time.After(2 * time.Second)
	for rec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for expiry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if m.Tracked(s) {
		t.Error("expired session must no longer be tracked")
	}
}

func TestMonitor_SignalDefersDeadline(t *testing.T) {
	rec := &expireRecorder{}
	m := NewMonitor(60*time.Millisecond, rec.record)
	s := NewSession("", newFakeConn())

	m.Track(s)
	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		m.Signal(s)
	}

	if rec.count() != 0 {
		t.Error("signaling session must not expire")
	}

	// Silence after the last signal lets the deadline pass.
	deadline := time.After(2 * time.Second)
	for rec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for expiry after signals stopped")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMonitor_StopCancelsDeadline(t *testing.T) {
	rec := &expireRecorder{}
	m := NewMonitor(30*time.Millisecond, rec.record)
	s := NewSession("", newFakeConn())

	m.Track(s)
	m.Stop(s)
	if m.Tracked(s) {
		t.Error("stopped session must not be tracked")
	}

	time.Sleep(80 * time.Millisecond)
	if rec.count() != 0 {
		t.Error("stopped session must never expire")
	}
}

func TestMonitor_SignalAfterStopIsNoop(t *testing.T) {
	rec := &expireRecorder{}
	m := NewMonitor(30*time.Millisecond, rec.record)
	s := NewSession("", newFakeConn())

	m.Track(s)
	m.Stop(s)
	m.Signal(s)

	time.Sleep(80 * time.Millisecond)
	if rec.count() != 0 {
		t.Error("signal on an untracked session must not revive it")
	}
	if m.Tracked(s) {
		t.Error("session must stay untracked")
	}
}

func TestMonitor_TrackIsIdempotent(t *testing.T) {
	rec := &expireRecorder{}
	m := NewMonitor(30*time.Millisecond, rec.record)
	s := NewSession("", newFakeConn())

	m.Track(s)
	m.Track(s)

	deadline := time.After(2 * time.Second)
	for rec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for expiry")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(80 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("expected a single expiry, got %d", rec.count())
	}
}
