package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/gravitas-games/cachegrid/internal/config"
	"github.com/gravitas-games/cachegrid/internal/luck"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Server represents the game server
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator
	redis        *redis.Client
	ownsRedis    bool
	storage      *storage
	luck         luck.Source
	log          *logrus.Entry

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithRedisClient uses client instead of dialling cfg.Redis.
func WithRedisClient(client *redis.Client) Option {
	return func(s *Server) { s.redis = client }
}

// WithLuck replaces the seeded hash every player's map draws from.
func WithLuck(src luck.Source) Option {
	return func(s *Server) { s.luck = src }
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:      cfg,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		log:         logger.Component("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"access_token"},
			CheckOrigin:     originChecker(cfg.Server.AllowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.log.Info("Initializing server")

	if srv.redis == nil && needsRedis(cfg) {
		client, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			cancel()
			return nil, err
		}
		srv.redis = client
		srv.ownsRedis = true
		srv.log.WithField("address", cfg.Redis.Address).Info("Connected to Redis")
	}

	st, err := openStorage(cfg, srv.redis)
	if err != nil {
		srv.closeRedis()
		cancel()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	srv.storage = st

	if cfg.JWT.Enabled {
		var blacklist redis.Cmdable
		if srv.redis != nil {
			blacklist = srv.redis
		}
		v, err := NewJWTValidator(ctx, cfg, blacklist)
		if err != nil {
			srv.release()
			return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
		srv.jwtValidator = v
	} else {
		srv.log.Warn("JWT disabled, players connect anonymously with ?player=<name>")
	}

	srv.session = NewSession("main", cfg.Session.MaxPlayers)

	srv.log.WithField("storage", st.kind).Info("Server initialized")
	return srv, nil
}

// Handler returns the HTTP routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.WithFields(logrus.Fields{
		"ws":     fmt.Sprintf("ws://%s/ws", addr),
		"health": fmt.Sprintf("http://%s/health", addr),
	}).Info("Starting WebSocket server")

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	s.release()
	s.log.Info("Server shutdown complete")
	return nil
}

func (s *Server) release() {
	s.cancel()
	if s.storage != nil {
		if err := s.storage.close(); err != nil {
			s.log.WithError(err).Warn("Storage close error")
		}
	}
	s.closeRedis()
}

func (s *Server) closeRedis() {
	if s.redis != nil && s.ownsRedis {
		if err := s.redis.Close(); err != nil {
			s.log.WithError(err).Warn("Redis close error")
		}
	}
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	player, err := s.authenticate(r)
	if err != nil {
		s.log.WithError(err).WithField("remote", r.RemoteAddr).Warn("Authentication failed")
		http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	conn := NewConnection(ws, s, player)

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	entry := s.log.WithFields(logrus.Fields{"player": player.ID, "remote": r.RemoteAddr})
	entry.Info("WebSocket connection established")

	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	entry.Info("WebSocket connection closed")
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.session.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"storage": s.storage.kind,
		"players": status.PlayerCount,
		"uptime":  status.Uptime,
	})
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and, when allowed is set, browser origins listed in it.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
