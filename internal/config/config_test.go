package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/testutil"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1200, cfg.Geometry.CanonicalWidth)
	assert.Equal(t, 600, cfg.Geometry.CanonicalHeight)
	assert.Equal(t, "paddle", cfg.OCR.Engine)
	assert.Equal(t, "tesseract", cfg.OCR.FallbackEngine)
	assert.Equal(t, "eng+nep", cfg.OCR.Tesseract.Language)
	assert.InDelta(t, 70.0, cfg.Semantic.LabelThreshold, 1e-9)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"output format", func(c *Config) { c.Output.Format = "csv" }, "invalid output format"},
		{"geometry", func(c *Config) { c.Geometry.CanonicalWidth = 0 }, "geometry"},
		{"engine", func(c *Config) { c.OCR.Engine = "easyocr" }, "invalid ocr engine"},
		{"fallback", func(c *Config) { c.OCR.FallbackEngine = "easyocr" }, "invalid ocr fallback engine"},
		{"confidence", func(c *Config) { c.OCR.MinConfidence = 1.5 }, "ocr.min_confidence"},
		{"semantic", func(c *Config) { c.Semantic.LabelThreshold = 0 }, "semantic"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"policy", func(c *Config) { c.Server.Policy = "majority" }, "policy"},
		{"rate limit", func(c *Config) { c.Server.RateLimitPerMinute = -1 }, "invalid rate limits"},
		{"backend", func(c *Config) { c.Store.Backend = "s3" }, "invalid store backend"},
		{"redis addr", func(c *Config) { c.Store.Backend, c.Store.RedisAddr = StoreRedis, "" }, "redis_addr"},
		{"workers", func(c *Config) { c.Batch.Workers = -2 }, "invalid batch workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := DefaultConfig()
	cfg.OCR.FallbackEngine = ""
	assert.NoError(t, cfg.Validate(), "fallback engine is optional")
}

func TestLoad_Defaults(t *testing.T) {
	testutil.Isolate(t)
	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_SearchPathAndEnv(t *testing.T) {
	dir := testutil.Isolate(t)
	yaml := `
log_level: debug
ocr:
  engine: tesseract
  tesseract:
    language: eng
semantic:
  label_threshold: 80
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nagarikta.yaml"), []byte(yaml), 0o600))
	t.Setenv("NAGARIKTA_SERVER_CORS_ORIGIN", "https://kyc.example.org")
	t.Setenv("NAGARIKTA_OCR_PADDLE_DB_THRESH", "0.4")

	l := NewLoaderWith(viper.New())
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "nagarikta.yaml", filepath.Base(l.ConfigFileUsed()))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, "eng", cfg.OCR.Tesseract.Language)
	assert.InDelta(t, 80.0, cfg.Semantic.LabelThreshold, 1e-9)
	assert.InDelta(t, 0.30, cfg.Semantic.NoiseMinConfidence, 1e-9, "unset keys keep defaults")
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://kyc.example.org", cfg.Server.CORSOrigin)
	assert.InDelta(t, 0.4, cfg.OCR.Paddle.DBThresh, 1e-9)
}

func TestLoadWithFile(t *testing.T) {
	dir := testutil.Isolate(t)

	_, err := NewLoaderWith(viper.New()).LoadWithFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("output:\n  format: csv\n"), 0o600))
	_, err = NewLoaderWith(viper.New()).LoadWithFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	good := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(good, []byte("store:\n  backend: redis\n  redis_addr: cache:6379\n  ttl_hours: 2\n"), 0o600))
	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(good)
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	rc := cfg.ToRedisConfig()
	assert.Equal(t, "cache:6379", rc.Addr)
	assert.Equal(t, 2*time.Hour, rc.TTL)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	dir := testutil.Isolate(t)
	path := filepath.Join(dir, "generated.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = "/opt/models"
	cfg.Geometry.MultiStrategy = false
	cfg.OCR.MinConfidence = 0.2
	cfg.OCR.SuppressUpperRegion = true
	cfg.OCR.Tesseract.Language = "ENG+nep"
	cfg.OCR.Paddle.UseGPU = true
	cfg.Server.TimeoutSec = 45
	cfg.Server.RateLimitPerMinute = 30
	cfg.Batch.Workers = 3

	geo := cfg.ToGeometryConfig()
	assert.False(t, geo.MultiStrategy)
	assert.Equal(t, 1200, geo.CanonicalWidth)

	lay := cfg.ToLayoutConfig()
	assert.InDelta(t, 0.2, lay.MinConfidence, 1e-9)
	assert.True(t, lay.SuppressUpperRegion)

	eng := cfg.ToEngineConfig()
	assert.Equal(t, "/opt/models", eng.Paddle.ModelsDir)
	assert.Equal(t, []string{"eng", "nep"}, eng.Tesseract.Languages)
	assert.True(t, eng.Paddle.GPU.UseGPU)
	assert.Positive(t, eng.Paddle.RecHeight, "untouched engine settings keep their defaults")

	srv := cfg.ToServerConfig()
	assert.Equal(t, 45*time.Second, srv.Timeout)
	assert.Equal(t, int64(20), srv.MaxUploadMB)
	assert.Equal(t, 30, srv.RateLimit.RequestsPerMinute)

	p := cfg.ToPipelineConfig()
	assert.Equal(t, 3, p.Parallel.MaxWorkers)
	assert.Equal(t, eng, p.Engine)
	assert.Equal(t, cfg.Semantic, p.Semantic)
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := testutil.Isolate(t)
	paths := GetConfigSearchPaths()
	assert.Equal(t, []string{".", dir, filepath.Join(dir, "xdg", "nagarikta"), "/etc/nagarikta"}, paths)
}

func TestLogger(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	cfg.LogLevel = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	cfg.Verbose = true
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	var console bytes.Buffer
	cfg.Verbose = false
	logger, closer := cfg.NewLogger(&console)
	assert.Nil(t, closer)
	logger.Info("hidden")
	logger.Warn("shown", "phase", "layout_ocr")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), `"phase":"layout_ocr"`)

	cfg.LogFile = filepath.Join(t.TempDir(), "nagarikta.log")
	console.Reset()
	logger, closer = cfg.NewLogger(&console)
	require.NotNil(t, closer)
	logger.Error("engine failed", "engine", "paddle")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine failed")
	assert.Equal(t, console.String(), string(data))
}
