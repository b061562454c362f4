package mtapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/directory"
)

// Server is the HTTP front of a Directory.
type Server struct {
	dir     *directory.Directory
	cfg     config.ServerConfig
	logger  *slog.Logger
	metrics http.Handler
	router  chi.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

func NewServer(dir *directory.Directory, cfg config.ServerConfig, opts ...ServerOption) *Server {
	s := &Server{dir: dir, cfg: cfg, logger: slog.Default()}
	for _, fn := range opts {
		fn(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.RequestTimeoutS > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout()))
	}
	if s.cfg.CrossOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{s.cfg.CrossOrigin},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}))
	}

	r.Get("/", s.handleIndex)
	r.Get("/by-location", s.handleByLocation)
	r.Get("/by-route/{route}", s.handleSubwayByRoute)
	r.Get("/by-id/{ids}", s.handleByIDs)
	r.Get("/routes", s.handleSubwayRoutes)
	r.Get("/search", s.handleSearch)
	r.Get("/alerts/search", s.handleAlertSearch)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/refresh/{system}", s.handleRefresh)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/{system}", func(r chi.Router) {
		r.Use(s.systemCtx)
		r.Get("/routes", s.handleRoutes)
		r.Get("/stops", s.handleStops)
		r.Get("/by-route/{route}", s.handleByRoute)
		r.Get("/by-id/{id}", s.handleByID)
		r.Get("/search", s.handleSystemSearch)
		r.Get("/by-location", s.handleSystemByLocation)
		r.Get("/alerts", s.handleSystemAlerts)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server shut down successfully")
	return nil
}
