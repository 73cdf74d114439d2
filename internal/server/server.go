// Package server exposes the evaluator over HTTP.
//
// Routes:
//
//	POST /v1/metrics   evaluate a corpus; JSON by default, ?format=text|html
//	POST /v1/tokenize  tokenize one text
//	GET  /healthz      liveness probe
//	GET  /readyz       readiness probe
//	GET  /metrics      Prometheus scrape endpoint
//	     /mcp          MCP streamable HTTP endpoint (when configured)
//
// Every route runs behind [observe.Middleware].
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/alteval/internal/app"
	"github.com/MrWong99/alteval/internal/config"
	"github.com/MrWong99/alteval/internal/health"
	"github.com/MrWong99/alteval/internal/observe"
	"github.com/MrWong99/alteval/internal/report"
	"github.com/MrWong99/alteval/pkg/evaluate"
	"github.com/MrWong99/alteval/pkg/lang"
	"github.com/MrWong99/alteval/pkg/tokenize"
)

const (
	defaultMaxBodyBytes = 32 << 20
	shutdownTimeout     = 15 * time.Second
)

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMetrics sets the instruments used by the HTTP middleware. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMCPHandler mounts h under /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithMetricsHandler replaces the Prometheus scrape handler. Default:
// [promhttp.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.scrape = h }
}

// WithMaxBodyBytes limits request bodies. Default: 32 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// Server serves the HTTP API. Construct one with [New].
type Server struct {
	app     *app.App
	health  *health.Handler
	metrics *observe.Metrics
	mcp     http.Handler
	scrape  http.Handler
	maxBody int64
}

// New returns a Server backed by a. Readiness checks come from
// [app.App.ReadinessChecks].
func New(a *app.App, opts ...Option) *Server {
	s := &Server{
		app:     a,
		health:  health.New(a.ReadinessChecks()...),
		maxBody: defaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.scrape == nil {
		s.scrape = promhttp.Handler()
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/metrics", s.handleMetrics)
	mux.HandleFunc("POST /v1/tokenize", s.handleTokenize)
	mux.Handle("GET /metrics", s.scrape)
	s.health.Register(mux)
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}
	return observe.Middleware(s.metrics)(mux)
}

// ListenAndServe serves on cfg.ListenAddr until ctx is cancelled, then
// drains readiness and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln, cfg.TLS)
}

// Serve is like [Server.ListenAndServe] on an existing listener. A non-nil
// tlsCfg enables HTTPS.
func (s *Server) Serve(ctx context.Context, ln net.Listener, tlsCfg *config.TLSConfig) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server: listening", "addr", ln.Addr().String(), "tls", tlsCfg != nil)
		if tlsCfg != nil {
			errCh <- srv.ServeTLS(ln, tlsCfg.CertFile, tlsCfg.KeyFile)
		} else {
			errCh <- srv.Serve(ln)
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.health.Drain()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("server: stopped")
	return nil
}

// metricsRequest is the JSON body of POST /v1/metrics.
type metricsRequest struct {
	Name                string   `json:"name"`
	IDs                 []string `json:"ids"`
	References          []string `json:"references"`
	Hypotheses          []string `json:"hypotheses"`
	Languages           []string `json:"languages"`
	VisualizeErrors     *bool    `json:"visualize_errors"`
	NormalizeHypotheses *bool    `json:"normalize_hypotheses"`
}

// handleMetrics handles POST /v1/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = report.ParseFormat(f); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	var req metricsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.References == nil || req.Hypotheses == nil {
		writeError(w, http.StatusBadRequest, errors.New("references and hypotheses are required"))
		return
	}

	res, err := s.app.Evaluate(r.Context(), app.Request{
		References:          req.References,
		Hypotheses:          req.Hypotheses,
		Languages:           req.Languages,
		VisualizeErrors:     req.VisualizeErrors,
		NormalizeHypotheses: req.NormalizeHypotheses,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	doc := report.NewDocument(req.Name, req.IDs, res)
	switch format {
	case report.FormatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case report.FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	if err := report.Write(w, format, doc); err != nil {
		observe.Logger(r.Context()).Warn("server: write response", "err", err)
	}
}

// tokenizeRequest is the JSON body of POST /v1/tokenize.
type tokenizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type tokenizeResponse struct {
	Language string         `json:"language"`
	Tokens   []report.Token `json:"tokens"`
}

// handleTokenize handles POST /v1/tokenize.
func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	tokens, code, err := s.app.Tokenize(req.Text, req.Language)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tokenizeResponse{Language: code, Tokens: report.Tokens(tokens)})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// statusFor maps evaluation errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, evaluate.ErrLengthMismatch),
		errors.Is(err, evaluate.ErrLanguageCount),
		errors.Is(err, lang.ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, tokenize.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
