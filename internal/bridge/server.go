// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jeranaias/codebuddy/internal/editor"
	"github.com/jeranaias/codebuddy/internal/panel"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:7345"

	// DefaultMessagesPerSecond is the default inbound message rate per connection.
	DefaultMessagesPerSecond = 5.0

	// MaxMessageSize bounds one inbound websocket message (1MB).
	MaxMessageSize = 1 * 1024 * 1024

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ErrNotBound is returned when the server has no controller.
var ErrNotBound = errors.New("bridge has no panel controller")

// ErrNoClient is returned when a snippet is inserted with no attached client.
var ErrNoClient = errors.New("no webview attached to the bridge")

// Options configures a Server.
type Options struct {
	// Addr is the listen address (default DefaultAddr)
	Addr string
	// Token is the shared bearer token; empty disables auth
	Token string
	// MessagesPerSecond limits inbound messages per connection (0 = DefaultMessagesPerSecond)
	MessagesPerSecond float64
	// Version is reported by /health
	Version string
	// Logger for bridge events
	Logger logrus.FieldLogger
}

// ============================================================================
// SERVER
// ============================================================================

// Server attaches one IDE webview to a panel controller over a websocket.
//
// Only one webview is attached at a time; a new connection replaces the
// previous one. The selection pushed by the webview is exposed through Editor.
type Server struct {
	addr    string
	token   string
	limit   rate.Limit
	version string
	log     logrus.FieldLogger

	editor   *editor.Shared
	upgrader websocket.Upgrader
	server   *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	ctrl *panel.Controller
	conn *connection
}

// NewServer creates a bridge. Bind must be called before serving.
func NewServer(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = DefaultMessagesPerSecond
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:    opts.Addr,
		token:   opts.Token,
		limit:   rate.Limit(opts.MessagesPerSecond),
		version: opts.Version,
		log:     opts.Logger.WithField("component", "bridge"),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.editor = editor.NewShared(s.insertSnippet)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Editor returns the editor fed by the attached webview.
func (s *Server) Editor() *editor.Shared {
	return s.editor
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Bind attaches the controller whose outbox is forwarded to the webview.
func (s *Server) Bind(ctrl *panel.Controller) {
	s.mu.Lock()
	s.ctrl = ctrl
	s.mu.Unlock()
}

func (s *Server) controller() *panel.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// Handler returns the HTTP handler with routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /panel", AuthMiddleware(s.token, s.log)(http.HandlerFunc(s.handlePanel)))

	return Chain(
		RecoveryMiddleware(s.log),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.log),
	)(mux)
}

// ListenAndServe serves until ctx is cancelled or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bridge listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or Shutdown is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.controller() == nil {
		_ = ln.Close()
		return ErrNotBound
	}

	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Shutdown()
		case <-s.ctx.Done():
		}
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("bridge listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown detaches the webview and stops the HTTP server.
func (s *Server) Shutdown() error {
	s.cancel()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	srv := s.server
	s.mu.Unlock()

	if conn != nil {
		conn.close()
	}
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	State     string `json:"state"`
	Connected bool   `json:"connected"`
	Attached  bool   `json:"attached"`
	Tokens    int64  `json:"tokens"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{Status: "ok", Version: s.version, State: "unbound"}
	if ctrl := s.controller(); ctrl != nil {
		health.State = ctrl.State().String()
		health.Connected = ctrl.Connected()
		health.Tokens = ctrl.TokenCount()
	}
	s.mu.Lock()
	health.Attached = s.conn != nil
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller()
	if ctrl == nil {
		http.Error(w, ErrNotBound.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn := newConnection(ws, rate.NewLimiter(s.limit, int(s.limit)+1), s.log)
	s.attach(conn)

	go s.writeLoop(ctrl, conn)
	s.readLoop(ctrl, conn)
}

// attach makes conn the active connection and closes the previous one.
func (s *Server) attach(conn *connection) {
	s.mu.Lock()
	prev := s.conn
	s.conn = conn
	s.mu.Unlock()

	if prev != nil {
		prev.log.Info("webview replaced by a new connection")
		prev.close()
	}
	conn.log.Info("webview attached")
}

func (s *Server) detach(conn *connection) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.close()
}

func (s *Server) active() *connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// readLoop dispatches inbound messages until the connection fails.
// Selection and click events are handled in order; chat requests run
// concurrently so later selection updates are not blocked.
func (s *Server) readLoop(ctrl *panel.Controller, conn *connection) {
	defer s.detach(conn)

	conn.ws.SetReadLimit(MaxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg panel.InboundMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.log.WithError(err).Warn("webview read failed")
			}
			return
		}
		if !conn.limiter.Allow() {
			conn.log.WithField("type", msg.Type).Warn("dropping message over rate limit")
			continue
		}

		switch msg.Type {
		case panel.TypePrompt, panel.TypeCommand:
			go s.dispatch(ctrl, conn, msg)
		default:
			s.dispatch(ctrl, conn, msg)
		}
	}
}

func (s *Server) dispatch(ctrl *panel.Controller, conn *connection, msg panel.InboundMessage) {
	if err := ctrl.Handle(s.ctx, msg); err != nil {
		conn.log.WithError(err).WithField("type", msg.Type).Debug("panel message failed")
	}
}

// writeLoop forwards the controller outbox to conn and keeps it alive.
func (s *Server) writeLoop(ctrl *panel.Controller, conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-conn.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				s.detach(conn)
				return
			}
		case msg, ok := <-ctrl.Outbox():
			if !ok {
				s.detach(conn)
				return
			}
			if err := conn.send(msg); err != nil {
				conn.log.WithError(err).Warn("webview write failed")
				s.detach(conn)
				return
			}
		}
	}
}

// insertSnippet is the insert callback of the shared editor.
func (s *Server) insertSnippet(code string) error {
	conn := s.active()
	if conn == nil {
		return ErrNoClient
	}
	return conn.send(panel.InsertSnippet(code))
}

// checkOrigin accepts handshakes without an Origin header, any origin when a
// token is required, and otherwise only IDE webviews and loopback pages.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.token != "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == "vscode-webview" {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ============================================================================
// CONNECTION
// ============================================================================

// connection is one attached webview.
type connection struct {
	id      string
	ws      *websocket.Conn
	limiter *rate.Limiter
	log     logrus.FieldLogger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, limiter *rate.Limiter, log logrus.FieldLogger) *connection {
	id := uuid.NewString()
	return &connection{
		id:      id,
		ws:      ws,
		limiter: limiter,
		log:     log.WithFields(logrus.Fields{"conn": id, "remote": ws.RemoteAddr().String()}),
		done:    make(chan struct{}),
	}
}

func (c *connection) send(msg panel.OutboundMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
