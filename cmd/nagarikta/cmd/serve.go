package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/nagarikta/internal/config"
	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction and verification HTTP server",
	Long: `Start an HTTP server exposing the pipeline.

Endpoints:
  POST /v1/extract       - extract a card (multipart "file" or raw body)
  POST /v1/verify        - extract and check claims (full_name, date_of_birth, citizenship_no)
  GET  /v1/results/{id}  - stored result by run id
  GET  /ws/extract       - WebSocket with per-phase progress
  GET  /health           - health check
  GET  /metrics          - Prometheus metrics

Examples:
  nagarikta serve
  nagarikta serve --host 0.0.0.0 --port 3000
  nagarikta serve --store redis --redis-addr cache:6379`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("host", "", "listen host (default server.host)")
	f.IntP("port", "p", 0, "listen port (default server.port)")
	f.String("cors-origin", "", "allowed CORS origin")
	f.Int("max-upload-size", 0, "maximum upload size in MB")
	f.Int("timeout", 0, "per extraction timeout in seconds")
	f.String("policy", "", "verification policy: all or any")
	f.Int("requests-per-minute", 0, "per client request limit, 0 disables")
	f.String("store", "", "result store: memory or redis")
	f.String("redis-addr", "", "redis address for the redis store")
	f.String("ocr-engine", "", "primary OCR engine (paddle, tesseract)")
}

// applyServeFlags copies changed flags over the configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("host") {
		cfg.Server.Host, _ = fl.GetString("host")
	}
	if fl.Changed("port") {
		cfg.Server.Port, _ = fl.GetInt("port")
	}
	if fl.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = fl.GetString("cors-origin")
	}
	if fl.Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = fl.GetInt("max-upload-size")
	}
	if fl.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = fl.GetInt("timeout")
	}
	if fl.Changed("policy") {
		cfg.Server.Policy, _ = fl.GetString("policy")
	}
	if fl.Changed("requests-per-minute") {
		cfg.Server.RateLimitPerMinute, _ = fl.GetInt("requests-per-minute")
	}
	if fl.Changed("store") {
		cfg.Store.Backend, _ = fl.GetString("store")
	}
	if fl.Changed("redis-addr") {
		cfg.Store.RedisAddr, _ = fl.GetString("redis-addr")
	}
	applyEngineFlag(cmd, cfg)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	p, err := pipeline.New(cfg.ToPipelineConfig())
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	var store kyc.Store
	switch cfg.Store.Backend {
	case config.StoreRedis:
		rs, err := kyc.NewRedisStore(ctx, cfg.ToRedisConfig())
		if err != nil {
			return err
		}
		store = rs
	default:
		store = kyc.NewMemoryStore(cfg.StoreTTL())
	}

	srv, err := server.New(cfg.ToServerConfig(), p, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() { _ = srv.Close() }()

	slog.Info("starting server", "addr", srv.Addr(), "store", cfg.Store.Backend, "engine", cfg.OCR.Engine)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())
	return srv.ListenAndServe(ctx)
}
