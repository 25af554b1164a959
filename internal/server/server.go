// Package server exposes the conversion pipeline over HTTP.
//
// Routes:
//
//	POST /v1/import   railML JSON document -> graph, geometry, provenance
//	POST /v1/export   graph, geometry, provenance -> railML JSON document
//	POST /v1/render   graph -> DOT or SVG diagram (?format=dot|svg&detailed=true)
//	GET  /healthz     liveness and build version
//
// Failures are reported as JSON {"code", "message", "refs"} with a status
// derived from the error code.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/railtopo/pkg/pipeline"
	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// Converter is the part of [pipeline.Runner] the server needs.
type Converter interface {
	Import(ctx context.Context, doc *railml.Document) (*pipeline.ImportResult, error)
	Export(ctx context.Context, in pipeline.ExportInput) (*pipeline.ExportResult, error)
	Render(ctx context.Context, g *topo.Graph, opts pipeline.RenderOptions) ([]byte, bool, error)
}

// Options configures a [Server].
type Options struct {
	// MaxBodyBytes limits request bodies. Zero means 32 MiB.
	MaxBodyBytes int64
	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string
	// Logger receives request logs. Nil discards them.
	Logger *log.Logger
}

// Server routes HTTP requests to a [Converter].
type Server struct {
	conv   Converter
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New creates a server backed by conv.
func New(conv Converter, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{conv: conv, opts: opts, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/import", s.handleImport)
		r.Post("/export", s.handleExport)
		r.Post("/render", s.handleRender)
	})
	return r
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, readTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
