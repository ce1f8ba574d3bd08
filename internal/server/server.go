package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jpalmerr/pulsewatch/internal/poller"
	"github.com/jpalmerr/pulsewatch/internal/status"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "pulsewatch"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Backend is what the server reads from and controls.
type Backend interface {
	Snapshot() []status.Entry
	Subscribe() <-chan status.Event
	Unsubscribe(ch <-chan status.Event)

	Start() bool
	Stop() bool
	Running() bool
	Session() (poller.SessionInfo, bool)
}

// Server handles HTTP requests for the pulsewatch dashboard and API.
//
// Routes:
//   - GET /: Serves the embedded dashboard HTML
//   - GET /healthz: Liveness probe
//   - GET /api/status: Current session and entries as JSON
//   - GET /api/events: Server-Sent Events stream of status events
//   - POST /api/start, POST /api/stop: Session control
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	backend    Backend
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
	addr       net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - b: Backend providing status data and session control
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "pulsewatch" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(b Backend, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		backend: b,
		port:    port,
		assets:  assets,
		title:   title,
		logger:  logger,
	}
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	Running bool                `json:"running"`
	Session *poller.SessionInfo `json:"session"`
	Entries []status.Entry      `json:"entries"`
}

// controlResponse is the body of the start/stop endpoints.
type controlResponse struct {
	Running bool `json:"running"`
	Changed bool `json:"changed"`
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleSSE)
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
	})

	if s.assets != nil {
		r.Get("/", s.handleDashboard)
	}

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns the current session and all entries as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Running: s.backend.Running(),
		Entries: s.backend.Snapshot(),
	}
	if info, ok := s.backend.Session(); ok {
		resp.Session = &info
	}

	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, resp)
}

// handleStart opens a session. A no-op start answers 409.
func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	changed := s.backend.Start()
	s.writeControl(w, changed)
}

// handleStop ends the session. A no-op stop answers 409.
func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	changed := s.backend.Stop()
	s.writeControl(w, changed)
}

func (s *Server) writeControl(w http.ResponseWriter, changed bool) {
	code := http.StatusOK
	if !changed {
		code = http.StatusConflict
	}
	s.writeJSON(w, code, controlResponse{Running: s.backend.Running(), Changed: changed})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams status events via Server-Sent Events.
//
// The stream opens with one "snapshot" event carrying every entry, followed
// by one "status" event per transition. Write deadlines prevent goroutine
// leaks when clients are slow or disconnected.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(event string, data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before snapshotting so no transition falls in the gap
	ch := s.backend.Subscribe()
	defer s.backend.Unsubscribe(ch)

	snapshot, err := json.Marshal(s.backend.Snapshot())
	if err != nil {
		s.logger.Error("failed to encode snapshot", "error", err)
		return
	}
	if err := writeAndFlush("snapshot", snapshot); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := writeAndFlush("status", data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
