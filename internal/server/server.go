// Package server exposes the analysis pipeline over HTTP. Requester
// identity comes from the X-User-ID header; an optional bearer token gates
// all non-health routes. Full authentication lives with the upstream
// gateway, not here.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/config"
	"github.com/sells-group/rfp-insight/internal/pipeline"
	"github.com/sells-group/rfp-insight/internal/worker"
)

// Server wires the pipeline and the ingest worker pool to HTTP routes.
type Server struct {
	pipeline *pipeline.Pipeline
	pool     *worker.Pool
	cfg      config.ServerConfig
}

// New constructs a Server. The pool must already be started.
func New(p *pipeline.Pipeline, pool *worker.Pool, cfg config.ServerConfig) *Server {
	return &Server{pipeline: p, pool: pool, cfg: cfg}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIToken != "" {
			r.Use(bearerAuth(s.cfg.APIToken))
		}

		r.Post("/analyses", s.handleCreateAnalysis)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Post("/analyses/{id}/questions/generate", s.handleGenerateQuestions)
		r.Get("/analyses/{id}/questions/list", s.handleListQuestions)
		r.Post("/analyses/save-answers", s.handleSaveAnswers)
		r.Post("/analyses/{id}/consolidate", s.handleConsolidate)
		r.Post("/analyses/secondary-analysis", s.handleSecondaryAnalysis)
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}
