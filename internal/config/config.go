// Package config loads the nagarikta configuration from files, environment
// variables and command-line flags, and converts it into the settings of
// the individual packages.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/nagarikta/internal/geometry"
	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/layout"
	"github.com/MeKo-Tech/nagarikta/internal/models"
	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/semantic"
	"github.com/MeKo-Tech/nagarikta/internal/server"
)

// Config is the complete application configuration. It covers every
// command (extract, normalize, verify, serve, batch).
type Config struct {
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Rotating log file, disabled when LogFile is empty.
	LogFile       string `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb" json:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups" yaml:"log_max_backups" json:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days" yaml:"log_max_age_days" json:"log_max_age_days"`
	LogCompress   bool   `mapstructure:"log_compress" yaml:"log_compress" json:"log_compress"`

	Geometry GeometryConfig  `mapstructure:"geometry" yaml:"geometry" json:"geometry"`
	OCR      OCRConfig       `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Semantic semantic.Config `mapstructure:"semantic" yaml:"semantic" json:"semantic"`
	Output   OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	Store    StoreConfig     `mapstructure:"store" yaml:"store" json:"store"`
	Batch    BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// GeometryConfig exposes the border detection bounds.
type GeometryConfig struct {
	CanonicalWidth  int     `mapstructure:"canonical_width" yaml:"canonical_width" json:"canonical_width"`
	CanonicalHeight int     `mapstructure:"canonical_height" yaml:"canonical_height" json:"canonical_height"`
	MinAreaRatio    float64 `mapstructure:"min_area_ratio" yaml:"min_area_ratio" json:"min_area_ratio"`
	MaxAreaRatio    float64 `mapstructure:"max_area_ratio" yaml:"max_area_ratio" json:"max_area_ratio"`
	MinAspectRatio  float64 `mapstructure:"min_aspect_ratio" yaml:"min_aspect_ratio" json:"min_aspect_ratio"`
	MaxAspectRatio  float64 `mapstructure:"max_aspect_ratio" yaml:"max_aspect_ratio" json:"max_aspect_ratio"`
	MultiStrategy   bool    `mapstructure:"multi_strategy" yaml:"multi_strategy" json:"multi_strategy"`
}

// OCRConfig selects the engines and the layout filters.
type OCRConfig struct {
	Engine              string          `mapstructure:"engine" yaml:"engine" json:"engine"`
	FallbackEngine      string          `mapstructure:"fallback_engine" yaml:"fallback_engine" json:"fallback_engine"`
	MinConfidence       float64         `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	SuppressUpperRegion bool            `mapstructure:"suppress_upper_region" yaml:"suppress_upper_region" json:"suppress_upper_region"`
	SuppressLowerRegion bool            `mapstructure:"suppress_lower_region" yaml:"suppress_lower_region" json:"suppress_lower_region"`
	Paddle              PaddleConfig    `mapstructure:"paddle" yaml:"paddle" json:"paddle"`
	Tesseract           TesseractConfig `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
}

// PaddleConfig contains the PP-OCR model settings. Empty paths resolve
// under ModelsDir.
type PaddleConfig struct {
	DetModel    string  `mapstructure:"det_model" yaml:"det_model" json:"det_model"`
	RecModel    string  `mapstructure:"rec_model" yaml:"rec_model" json:"rec_model"`
	DictPath    string  `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	DBThresh    float64 `mapstructure:"db_thresh" yaml:"db_thresh" json:"db_thresh"`
	DBBoxThresh float64 `mapstructure:"db_box_thresh" yaml:"db_box_thresh" json:"db_box_thresh"`
	UnclipRatio float64 `mapstructure:"unclip_ratio" yaml:"unclip_ratio" json:"unclip_ratio"`
	NumThreads  int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	UseGPU      bool    `mapstructure:"use_gpu" yaml:"use_gpu" json:"use_gpu"`
}

// TesseractConfig holds the Tesseract language list in "eng+nep" form.
type TesseractConfig struct {
	Language string `mapstructure:"language" yaml:"language" json:"language"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`
	YAML   bool   `mapstructure:"yaml" yaml:"yaml" json:"yaml"` // also write extraction.yaml
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host               string `mapstructure:"host" yaml:"host" json:"host"`
	Port               int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin         string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB        int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec         int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout    int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	Policy             string `mapstructure:"policy" yaml:"policy" json:"policy"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	MaxUploadMBPerDay  int    `mapstructure:"max_upload_mb_per_day" yaml:"max_upload_mb_per_day" json:"max_upload_mb_per_day"`
}

// StoreConfig selects where extraction results are kept.
type StoreConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend" json:"backend"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db" json:"redis_db"`
	TTLHours      int    `mapstructure:"ttl_hours" yaml:"ttl_hours" json:"ttl_hours"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	Report  string `mapstructure:"report" yaml:"report" json:"report"` // XLSX summary path
}

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"json", "yaml", "text"}
	validBackends  = []string{StoreMemory, StoreRedis}
)

// DefaultConfig returns a configuration with the tuned defaults of every
// package.
func DefaultConfig() Config {
	geo := geometry.DefaultConfig()
	lay := layout.DefaultConfig()
	eng := ocrengine.DefaultConfig()
	srv := server.DefaultConfig()
	return Config{
		ModelsDir:     models.DefaultModelsDir,
		LogLevel:      "info",
		LogMaxSizeMB:  20,
		LogMaxBackups: 5,
		LogMaxAgeDays: 30,
		LogCompress:   true,
		Geometry: GeometryConfig{
			CanonicalWidth:  geo.CanonicalWidth,
			CanonicalHeight: geo.CanonicalHeight,
			MinAreaRatio:    geo.MinAreaRatio,
			MaxAreaRatio:    geo.MaxAreaRatio,
			MinAspectRatio:  geo.MinAspectRatio,
			MaxAspectRatio:  geo.MaxAspectRatio,
			MultiStrategy:   geo.MultiStrategy,
		},
		OCR: OCRConfig{
			Engine:              eng.Primary,
			FallbackEngine:      eng.Fallback,
			MinConfidence:       lay.MinConfidence,
			SuppressUpperRegion: lay.SuppressUpperRegion,
			SuppressLowerRegion: lay.SuppressLowerRegion,
			Paddle: PaddleConfig{
				DBThresh:    eng.Paddle.DBThresh,
				DBBoxThresh: eng.Paddle.DBBoxThresh,
				UnclipRatio: eng.Paddle.UnclipRatio,
				NumThreads:  eng.Paddle.NumThreads,
				UseGPU:      eng.Paddle.GPU.UseGPU,
			},
			Tesseract: TesseractConfig{Language: strings.Join(eng.Tesseract.Languages, "+")},
		},
		Semantic: semantic.DefaultConfig(),
		Output:   OutputConfig{Format: "json"},
		Server: ServerConfig{
			Host:            srv.Host,
			Port:            srv.Port,
			CORSOrigin:      srv.CORSOrigin,
			MaxUploadMB:     int(srv.MaxUploadMB),
			TimeoutSec:      int(srv.Timeout / time.Second),
			ShutdownTimeout: int(srv.ShutdownTimeout / time.Second),
			Policy:          srv.Policy,
		},
		Store: StoreConfig{
			Backend:   StoreMemory,
			RedisAddr: "localhost:6379",
			TTLHours:  24,
		},
		Batch: BatchConfig{Workers: 4},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if err := c.ToGeometryConfig().Validate(); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}

	engines := ocrengine.DefaultRegistry().Names()
	if !slices.Contains(engines, c.OCR.Engine) {
		return fmt.Errorf("invalid ocr engine: %s (must be one of: %s)", c.OCR.Engine, strings.Join(engines, ", "))
	}
	if c.OCR.FallbackEngine != "" && !slices.Contains(engines, c.OCR.FallbackEngine) {
		return fmt.Errorf("invalid ocr fallback engine: %s (must be one of: %s)", c.OCR.FallbackEngine, strings.Join(engines, ", "))
	}
	for name, v := range map[string]float64{
		"ocr.min_confidence":       c.OCR.MinConfidence,
		"ocr.paddle.db_thresh":     c.OCR.Paddle.DBThresh,
		"ocr.paddle.db_box_thresh": c.OCR.Paddle.DBBoxThresh,
	} {
		if err := validateThreshold(v, name); err != nil {
			return err
		}
	}
	if err := c.Semantic.Validate(); err != nil {
		return fmt.Errorf("semantic: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid server timeouts: %d/%d (cannot be negative)", c.Server.TimeoutSec, c.Server.ShutdownTimeout)
	}
	if _, err := kyc.ParsePolicy(c.Server.Policy); err != nil {
		return err
	}
	if c.Server.RateLimitPerMinute < 0 || c.Server.MaxUploadMBPerDay < 0 {
		return fmt.Errorf("invalid rate limits: %d/min, %d MB/day (cannot be negative)",
			c.Server.RateLimitPerMinute, c.Server.MaxUploadMBPerDay)
	}

	if !slices.Contains(validBackends, c.Store.Backend) {
		return fmt.Errorf("invalid store backend: %s (must be one of: %s)", c.Store.Backend, strings.Join(validBackends, ", "))
	}
	if c.Store.Backend == StoreRedis && c.Store.RedisAddr == "" {
		return fmt.Errorf("store.redis_addr is required for the redis backend")
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("invalid batch workers: %d (cannot be negative)", c.Batch.Workers)
	}
	return nil
}

func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// ToGeometryConfig overlays the configured bounds on geometry defaults.
func (c *Config) ToGeometryConfig() geometry.Config {
	cfg := geometry.DefaultConfig()
	cfg.CanonicalWidth = c.Geometry.CanonicalWidth
	cfg.CanonicalHeight = c.Geometry.CanonicalHeight
	cfg.MinAreaRatio = c.Geometry.MinAreaRatio
	cfg.MaxAreaRatio = c.Geometry.MaxAreaRatio
	cfg.MinAspectRatio = c.Geometry.MinAspectRatio
	cfg.MaxAspectRatio = c.Geometry.MaxAspectRatio
	cfg.MultiStrategy = c.Geometry.MultiStrategy
	return cfg
}

// ToLayoutConfig converts the OCR filters to layout.Config.
func (c *Config) ToLayoutConfig() layout.Config {
	cfg := layout.DefaultConfig()
	cfg.MinConfidence = c.OCR.MinConfidence
	cfg.SuppressUpperRegion = c.OCR.SuppressUpperRegion
	cfg.SuppressLowerRegion = c.OCR.SuppressLowerRegion
	return cfg
}

// ToSemanticConfig returns the semantic thresholds.
func (c *Config) ToSemanticConfig() semantic.Config {
	return c.Semantic
}

// ToEngineConfig converts the engine selection and model settings.
func (c *Config) ToEngineConfig() ocrengine.Config {
	cfg := ocrengine.DefaultConfig()
	cfg.Primary = c.OCR.Engine
	cfg.Fallback = c.OCR.FallbackEngine

	p := c.OCR.Paddle
	cfg.Paddle.ModelsDir = models.GetModelsDir(c.ModelsDir)
	cfg.Paddle.DetModel = p.DetModel
	cfg.Paddle.RecModel = p.RecModel
	cfg.Paddle.DictPath = p.DictPath
	cfg.Paddle.DBThresh = p.DBThresh
	cfg.Paddle.DBBoxThresh = p.DBBoxThresh
	cfg.Paddle.UnclipRatio = p.UnclipRatio
	cfg.Paddle.NumThreads = p.NumThreads
	cfg.Paddle.GPU.UseGPU = p.UseGPU

	if langs := splitLanguages(c.OCR.Tesseract.Language); len(langs) > 0 {
		cfg.Tesseract.Languages = langs
	}
	return cfg
}

func splitLanguages(s string) []string {
	var out []string
	for _, l := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' }) {
		out = append(out, strings.ToLower(l))
	}
	return out
}

// ToPipelineConfig assembles the full pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Geometry = c.ToGeometryConfig()
	cfg.Layout = c.ToLayoutConfig()
	cfg.Semantic = c.ToSemanticConfig()
	cfg.Engine = c.ToEngineConfig()
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg
}

// ToServerConfig converts to server.Config.
func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		CORSOrigin:      c.Server.CORSOrigin,
		MaxUploadMB:     int64(c.Server.MaxUploadMB),
		Timeout:         time.Duration(c.Server.TimeoutSec) * time.Second,
		ShutdownTimeout: time.Duration(c.Server.ShutdownTimeout) * time.Second,
		Policy:          c.Server.Policy,
		RateLimit: server.RateLimitConfig{
			RequestsPerMinute: c.Server.RateLimitPerMinute,
			MaxUploadMBPerDay: int64(c.Server.MaxUploadMBPerDay),
		},
	}
}

// ToRedisConfig converts the store settings for kyc.NewRedisStore.
func (c *Config) ToRedisConfig() kyc.RedisConfig {
	return kyc.RedisConfig{
		Addr:     c.Store.RedisAddr,
		Password: c.Store.RedisPassword,
		DB:       c.Store.RedisDB,
		TTL:      c.StoreTTL(),
	}
}

// StoreTTL is the result retention, 0 for unlimited.
func (c *Config) StoreTTL() time.Duration {
	return time.Duration(c.Store.TTLHours) * time.Hour
}
