package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/nao1215/codewatcher/internal/model"
)

const (
	// HealthPath reports service liveness.
	HealthPath = "/api/v1/health"

	// RenderPath renders a posted analysis payload.
	RenderPath = "/api/v1/reports/render"

	// RequestIDHeader carries the per-request ID.
	RequestIDHeader = "X-Request-Id"

	// WarningsHeader carries the number of schema warnings for a payload.
	WarningsHeader = "X-Schema-Warnings"

	// ServiceName is reported by the health endpoint.
	ServiceName = "codewatcher"

	// MaxBodyBytes bounds the size of a render request body.
	MaxBodyBytes = 10 << 20

	shutdownTimeout = 10 * time.Second
)

// Server is the render service.
type Server struct {
	addr        string
	version     string
	logger      *slog.Logger
	accessLog   io.Writer
	viewOptions []model.ViewOption
	handler     http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for errors and schema warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAccessLog writes Apache combined log lines to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// WithVersion sets the version embedded in JSON reports.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithViewOptions sets the preview limits used when rendering.
func WithViewOptions(opts ...model.ViewOption) Option {
	return func(s *Server) {
		s.viewOptions = opts
	}
}

// New creates a Server that listens on addr.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.buildHandler()
	return s
}

// Handler returns the service handler with its middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(HealthPath, s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc(RenderPath, s.handleRender).Methods(http.MethodPost)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	var h http.Handler = requestIDMiddleware(router)
	if s.accessLog != nil {
		h = handlers.CombinedLoggingHandler(s.accessLog, h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: s.logger}),
	)(h)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("render service listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down render service: %w", err)
		}
		return nil
	}
}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("recovered from panic", "detail", fmt.Sprint(v...))
}
