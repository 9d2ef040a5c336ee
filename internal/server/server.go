// Package server exposes the running engine over HTTP: timer control, agent task
// creation, task lifecycle transitions, chat and a server-sent event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dorae/dorae/internal/timer"
	"github.com/dorae/dorae/internal/usecase"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = "127.0.0.1:5001"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Deps are the collaborators served over HTTP.
type Deps struct {
	Engine     *timer.Engine
	CreateTask *usecase.CreateTaskAsAgent
	Chat       *usecase.Chat
	CloseTask  *usecase.CloseTask
	ReopenTask *usecase.ReopenTask
	DeleteTask *usecase.DeleteTask
	EmptyTrash *usecase.EmptyTrash
	Broker     *Broker
	Logger     *slog.Logger
}

// Server is the dorae HTTP API.
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a Server and registers its routes.
func New(deps Deps) *Server {
	if deps.Broker == nil {
		deps.Broker = NewBroker()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{deps: deps, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)

	s.mux.HandleFunc("GET /api/timers", s.handleListTimers)
	s.mux.HandleFunc("DELETE /api/timers/{id}", s.handleStopTimer)
	s.mux.HandleFunc("POST /api/timers/{id}/run", s.handleRunTick)
	s.mux.HandleFunc("POST /api/agents/{id}/timers", s.handleStartTimer)
	s.mux.HandleFunc("GET /api/agents/{id}/timers", s.handleListAgentTimers)
	s.mux.HandleFunc("DELETE /api/agents/{id}/timers", s.handleStopAgentTimers)

	s.mux.HandleFunc("POST /api/agents/{id}/tasks", s.handleCreateTaskAsAgent)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)

	s.mux.HandleFunc("POST /api/tasks/{id}/close", s.handleCloseTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/reopen", s.handleReopenTask)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	s.mux.HandleFunc("POST /api/trash/empty", s.handleEmptyTrash)
	return s
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Serve listens on addr and blocks until ctx is cancelled.
// ready, when non-nil, receives the bound address once listening.
func (s *Server) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // disabled for SSE
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln.Addr())
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.deps.Logger.Error("server shutdown", "error", err)
		}
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.deps.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}
