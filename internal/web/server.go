package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"safeclaw/internal/hub"
	"safeclaw/internal/session"
)

//go:embed static/*
var staticFiles embed.FS

const (
	writeWait      = 10 * time.Second
	maxRequestBody = 1 << 16
)

// Snapshotter produces the current session list.
type Snapshotter interface {
	Snapshot(ctx context.Context) []session.Session
}

// Lifecycle issues session commands.
type Lifecycle interface {
	Stop(ctx context.Context, name string) bool
	Start(ctx context.Context, name string) session.Result
	Delete(ctx context.Context, name string) bool
	Create(ctx context.Context, opts session.CreateOptions) session.Result
}

// Middleware wraps the whole handler, e.g. request metrics.
type Middleware func(http.Handler) http.Handler

// Server is the dashboard: JSON API, push channel and static page.
type Server struct {
	registry   Snapshotter
	commander  Lifecycle
	hub        *hub.Hub
	metrics    http.Handler
	middleware Middleware
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	srv *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h under /metrics and wraps every route with mw.
func WithMetrics(h http.Handler, mw Middleware) Option {
	return func(s *Server) {
		s.metrics = h
		s.middleware = mw
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new dashboard server.
func NewServer(registry Snapshotter, commander Lifecycle, h *hub.Hub, opts ...Option) *Server {
	s := &Server{
		registry:  registry,
		commander: commander,
		hub:       h,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: sameHost}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	contentStatic, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(contentStatic)))

	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/delete", s.handleDelete)
	mux.HandleFunc("/api/create", s.handleCreate)
	mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	var h http.Handler = mux
	if s.middleware != nil {
		h = s.middleware(h)
	}
	return h
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting dashboard", "url", "http://"+ln.Addr().String())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.registry.Snapshot(r.Context()))
}

type nameRequest struct {
	Name string `json:"name"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodePost(w, r, &req) {
		return
	}
	writeJSON(w, successResponse{Success: s.commander.Stop(r.Context(), req.Name)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodePost(w, r, &req) {
		return
	}
	writeJSON(w, successResponse{Success: s.commander.Delete(r.Context(), req.Name)})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodePost(w, r, &req) {
		return
	}
	writeJSON(w, s.commander.Start(r.Context(), req.Name))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req session.CreateOptions
	if !decodePost(w, r, &req) {
		return
	}
	writeJSON(w, s.commander.Create(r.Context(), req))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade error", "error", err)
		return
	}

	o := s.hub.Subscribe()
	s.logger.Debug("WebSocket client connected", "remote", r.RemoteAddr, "observer", o.ID)

	go s.writePump(conn, o)

	go func() {
		defer func() {
			s.hub.Unsubscribe(o)
			s.logger.Debug("WebSocket client disconnected", "remote", r.RemoteAddr, "observer", o.ID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writePump drains the observer queue onto the connection. It exits when the
// queue is closed by Unsubscribe or a write fails.
func (s *Server) writePump(conn *websocket.Conn, o *hub.Observer) {
	defer conn.Close()
	for msg := range o.Messages() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.hub.Unsubscribe(o)
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// sameHost accepts clients without an Origin header and browsers loading the
// page from the same host the dashboard is bound to.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
