// Package server exposes a Coordinator over an HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/export"
)

// DefaultMaxUploadBytes bounds a single multipart upload request.
const DefaultMaxUploadBytes int64 = 256 * 1024 * 1024

// SaverFactory opens a destination for one export request.
type SaverFactory func(ctx context.Context, params batch.Params) (export.Saver, error)

// Config configures a Server.
type Config struct {
	Coordinator    *batch.Coordinator
	Saver          SaverFactory
	Logger         hclog.Logger
	MaxUploadBytes int64
}

// Server routes HTTP requests to a Coordinator.
type Server struct {
	coord     *batch.Coordinator
	newSaver  SaverFactory
	log       hclog.Logger
	maxUpload int64
	router    *chi.Mux
}

// New builds a Server and its routes.
func New(cfg Config) *Server {
	s := &Server{
		coord:     cfg.Coordinator,
		newSaver:  cfg.Saver,
		log:       cfg.Logger,
		maxUpload: cfg.MaxUploadBytes,
	}
	if s.log == nil {
		s.log = hclog.NewNullLogger()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Get("/", s.handleListImages)
			r.Post("/", s.handleUpload)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetImage)
				r.Delete("/", s.handleDeleteImage)
				r.Get("/source", s.handleSource)
				r.Get("/processed", s.handleProcessed)
			})
		})

		r.Route("/params", func(r chi.Router) {
			r.Get("/", s.handleGetParams)
			r.Put("/opacity", s.handleSetOpacity)
			r.Put("/background", s.handleSetBackground)
		})

		r.Get("/colours", s.handleListColours)
		r.Get("/colours/{hex}/name", s.handleColourName)

		r.Post("/export", s.handleExport)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
