// Package server exposes card extraction and KYC verification over HTTP
// and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
)

// Extractor runs the extraction phases. *pipeline.Pipeline satisfies it.
type Extractor interface {
	Stream(ctx context.Context, img image.Image, obs pipeline.PhaseObserver) *pipeline.Result
}

// Config holds server settings.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	Timeout         time.Duration // per extraction, 0 for none
	ShutdownTimeout time.Duration
	Policy          string // kyc decision policy, "all" or "any"
	RateLimit       RateLimitConfig
}

// DefaultConfig listens on localhost:8080.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		CORSOrigin:      "*",
		MaxUploadMB:     20,
		Timeout:         60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Policy:          "all",
	}
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	cfg     Config
	ext     Extractor
	store   kyc.Store
	policy  kyc.Policy
	limiter *RateLimiter
}

// New creates a Server. store may be nil, in which case results are not
// kept and /v1/results answers 404.
func New(cfg Config, ext Extractor, store kyc.Store) (*Server, error) {
	if ext == nil {
		return nil, errors.New("server: nil extractor")
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("server: max upload must be positive, got %d MB", cfg.MaxUploadMB)
	}
	policy, err := kyc.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, ext: ext, store: store, policy: policy}
	if cfg.RateLimit.RequestsPerMinute > 0 || cfg.RateLimit.MaxUploadMBPerDay > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit)
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.instrument("/health", s.healthHandler))
	mux.HandleFunc("POST /v1/extract", s.instrument("/v1/extract", s.limit(s.extractHandler)))
	mux.HandleFunc("POST /v1/verify", s.instrument("/v1/verify", s.limit(s.verifyHandler)))
	mux.HandleFunc("GET /v1/results/{id}", s.instrument("/v1/results", s.resultHandler))
	mux.HandleFunc("GET /ws/extract", s.wsHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.cors(mux)
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the result store.
func (s *Server) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Server) extractionContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.cfg.Timeout)
}
