package server

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"coinfeed_go/internal/hub"
	"coinfeed_go/internal/infra"
	"coinfeed_go/internal/service"

	"github.com/gorilla/websocket"
)

// Server wires the HTTP surface: order intake, reference price lookups,
// health reporting, icons and the WebSocket endpoint.
type Server struct {
	cfg       *infra.Config
	hub       *hub.Hub
	intake    *service.Intake
	refs      *service.ReferenceCache
	icons     *infra.IconCache
	metrics   *infra.Metrics
	upgrader  websocket.Upgrader
	logger    *slog.Logger
	startedAt time.Time
}

// New creates the HTTP server facade.
func New(cfg *infra.Config, h *hub.Hub, intake *service.Intake, refs *service.ReferenceCache,
	icons *infra.IconCache, metrics *infra.Metrics) *Server {
	allowed := cfg.Server.AllowedOrigin
	return &Server{
		cfg:     cfg,
		hub:     h,
		intake:  intake,
		refs:    refs,
		icons:   icons,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowed == "" || allowed == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowed
			},
		},
		logger:    slog.Default().With("module", "server"),
		startedAt: time.Now(),
	}
}

// Routes builds the route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /price-transaction/{id}", s.handlePriceLookup)
	mux.HandleFunc("POST /price-transaction", s.handleSubmitOrder)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /icons/{id}", s.handleIcon)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// handleWebSocket upgrades the connection and registers it with the hub.
// The optional clientId query parameter is the dedup identity.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	sess := hub.NewSession(r.URL.Query().Get("clientId"), conn)
	s.hub.Register(sess)

	go sess.WritePump()
	sess.ReadPump(s.hub)
}

// handleIcon serves a cached coin icon.
func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	path := s.icons.Path(r.PathValue("id"))
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}
