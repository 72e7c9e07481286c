package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"coinfeed_go/internal/infra"
)

// envelope is the wire framing for named events.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// lifecycleReq carries a register/unregister request into the run loop. The
// ack channel is closed once the loop has applied it, making both operations
// synchronous for callers.
type lifecycleReq struct {
	session *Session
	ack     chan struct{}
}

// Hub owns the set of live client connections. It enforces at most one
// connection per non-empty client identity by force-closing superseded
// sessions, and fans broadcast events out to every registered session.
//
// All registry state is mutated only inside Run's loop; handlers and the
// publisher talk to it over channels, so the maps never need locking.
type Hub struct {
	register   chan lifecycleReq
	unregister chan lifecycleReq
	broadcast  chan []byte
	done       chan struct{}

	sessions   map[*Session]struct{}
	byIdentity map[string]*Session

	active  atomic.Int32
	unique  atomic.Int32
	monitor *Monitor
	logger  *slog.Logger
	metrics *infra.Metrics
}

// NewHub creates a hub whose sessions expire after heartbeatTimeout without
// a liveness signal.
func NewHub(heartbeatTimeout time.Duration, metrics *infra.Metrics) *Hub {
	h := &Hub{
		register:   make(chan lifecycleReq),
		unregister: make(chan lifecycleReq),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		sessions:   make(map[*Session]struct{}),
		byIdentity: make(map[string]*Session),
		logger:     slog.Default().With("module", "hub"),
		metrics:    metrics,
	}
	h.monitor = NewMonitor(heartbeatTimeout, h.expireSession)
	return h
}

// Run processes lifecycle and broadcast events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				h.remove(s, 0, "")
			}
			return
		case req := <-h.register:
			h.add(req.session)
			close(req.ack)
		case req := <-h.unregister:
			h.remove(req.session, 0, "")
			close(req.ack)
		case frame := <-h.broadcast:
			for s := range h.sessions {
				if !s.enqueue(frame) {
					// Slow consumer: drop the frame for this
					// session, never stall the others.
					h.logger.Warn("Dropped frame for slow session", slog.String("session", s.ID))
				}
			}
		}
	}
}

// Register admits a session, evicting any prior session with the same
// identity. The eviction is synchronous: once Register returns, Count
// reflects the survivor only.
func (h *Hub) Register(s *Session) {
	req := lifecycleReq{session: s, ack: make(chan struct{})}
	select {
	case h.register <- req:
		<-req.ack
	case <-h.done:
		s.close(0, "")
	}
}

// Unregister removes a session if it is still registered. A session that was
// already superseded by a newer connection is left alone.
func (h *Hub) Unregister(s *Session) {
	req := lifecycleReq{session: s, ack: make(chan struct{})}
	select {
	case h.unregister <- req:
		<-req.ack
	case <-h.done:
	}
}

// Broadcast delivers a named event to every registered session,
// fire-and-forget per session.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("Failed to encode broadcast", slog.String("event", event), slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- frame:
	case <-h.done:
	}
}

// Count returns the number of live transport sessions, without identity dedup.
func (h *Hub) Count() int {
	return int(h.active.Load())
}

// UniqueCount returns the number of distinct identified clients.
func (h *Hub) UniqueCount() int {
	return int(h.unique.Load())
}

// Touch records a liveness signal for a session.
func (h *Hub) Touch(s *Session) {
	h.monitor.Signal(s)
}

// add runs inside the Run loop.
func (h *Hub) add(s *Session) {
	if s.Identity != "" {
		if prev, ok := h.byIdentity[s.Identity]; ok {
			// Reconnect without a clean close (page reload, duplicated
			// tab): the stale session would double the fan-out and keep
			// a dead heartbeat entry alive. Hard-close it.
			h.remove(prev, CloseSuperseded, "superseded by newer connection")
		}
		h.byIdentity[s.Identity] = s
	}
	h.sessions[s] = struct{}{}
	h.monitor.Track(s)
	h.updateCounts()

	h.logger.Info("Client connected",
		slog.String("session", s.ID),
		slog.String("identity", s.Identity),
		slog.Int("active", h.Count()),
	)
}

// remove runs inside the Run loop.
func (h *Hub) remove(s *Session, code int, reason string) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	if s.Identity != "" && h.byIdentity[s.Identity] == s {
		delete(h.byIdentity, s.Identity)
	}
	h.monitor.Stop(s)
	s.close(code, reason)
	close(s.send)
	h.updateCounts()

	h.logger.Info("Client disconnected",
		slog.String("session", s.ID),
		slog.String("identity", s.Identity),
		slog.String("reason", reason),
		slog.Int("active", h.Count()),
	)
}

// expireSession runs on a heartbeat timer goroutine, so it must not mutate
// the registry directly. Closing the connection also ends the session's
// ReadPump, which unregisters it a second time; remove tolerates that.
func (h *Hub) expireSession(s *Session) {
	h.logger.Warn("Heartbeat timeout", slog.String("session", s.ID), slog.String("identity", s.Identity))
	s.close(CloseHeartbeatTimeout, "heartbeat timeout")
	h.Unregister(s)
}

func (h *Hub) updateCounts() {
	h.active.Store(int32(len(h.sessions)))
	h.unique.Store(int32(len(h.byIdentity)))
	h.metrics.SetConnections(h.active.Load(), h.unique.Load())
}
