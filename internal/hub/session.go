package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Close codes sent when the server force-closes a connection.
const (
	CloseSuperseded       = 4000
	CloseHeartbeatTimeout = 4001
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second

	// Clients only ever send small heartbeat events; anything larger is abuse.
	maxFrameSize = 512
)

// Conn is the subset of *websocket.Conn the hub needs. Tests substitute fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
	Close() error
}

// Session is one registered transport connection. Identity is the
// client-supplied dedup key; it may be empty for anonymous connections.
type Session struct {
	ID       string
	Identity string

	conn      Conn
	send      chan []byte
	closeOnce sync.Once
}

// NewSession wraps an upgraded connection.
func NewSession(identity string, conn Conn) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

// enqueue hands a frame to the session's writer without blocking.
// Returns false when the buffer is full and the frame was dropped.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// WritePump drains queued frames onto the wire. It exits when the hub closes
// the send channel or a write fails. Within one session, frames go out in the
// order the publisher issued them.
func (s *Session) WritePump() {
	for frame := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// ReadPump consumes inbound frames, feeding liveness signals to the hub.
// It blocks until the connection drops and then unregisters the session.
func (s *Session) ReadPump(h *Hub) {
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetPongHandler(func(string) error {
		h.Touch(s)
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			h.Unregister(s)
			return
		}

		// Any readable frame proves the client is alive; the explicit
		// heartbeat event exists for clients without ping/pong access.
		h.Touch(s)

		var msg struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(frame, &msg) == nil && msg.Event == "heartbeat" {
			continue
		}
	}
}

// close shuts the transport down, sending a close frame with the given code
// first when one is supplied. Safe to call more than once.
func (s *Session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		if code != 0 {
			frame := websocket.FormatCloseMessage(code, reason)
			s.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
		}
		s.conn.Close()
	})
}
