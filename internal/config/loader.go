package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "nagarikta"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "NAGARIKTA"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the CLI are seen.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader on its own viper instance.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the first nagarikta config file found on the search paths,
// the environment and the defaults, then validates the result.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.prepare()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.decode(true)
}

// LoadWithFile loads configuration from a specific file path. An empty
// path falls back to Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}
	l.v.SetConfigFile(configFile)
	l.prepare()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.decode(true)
}

// Current unmarshals the configuration as it stands now, including flags
// bound after loading. It is not validated.
func (l *Loader) Current() (*Config, error) {
	return l.decode(false)
}

func (l *Loader) prepare() {
	l.setupEnvironmentVariables()
	l.setDefaults()
}

func (l *Loader) decode(validate bool) (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file used.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// ocr.paddle.db_thresh -> NAGARIKTA_OCR_PADDLE_DB_THRESH
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key, which also makes each one reachable
// through its environment variable.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("models_dir", d.ModelsDir)
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("log_file", d.LogFile)
	l.v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	l.v.SetDefault("log_max_backups", d.LogMaxBackups)
	l.v.SetDefault("log_max_age_days", d.LogMaxAgeDays)
	l.v.SetDefault("log_compress", d.LogCompress)

	l.v.SetDefault("geometry.canonical_width", d.Geometry.CanonicalWidth)
	l.v.SetDefault("geometry.canonical_height", d.Geometry.CanonicalHeight)
	l.v.SetDefault("geometry.min_area_ratio", d.Geometry.MinAreaRatio)
	l.v.SetDefault("geometry.max_area_ratio", d.Geometry.MaxAreaRatio)
	l.v.SetDefault("geometry.min_aspect_ratio", d.Geometry.MinAspectRatio)
	l.v.SetDefault("geometry.max_aspect_ratio", d.Geometry.MaxAspectRatio)
	l.v.SetDefault("geometry.multi_strategy", d.Geometry.MultiStrategy)

	l.v.SetDefault("ocr.engine", d.OCR.Engine)
	l.v.SetDefault("ocr.fallback_engine", d.OCR.FallbackEngine)
	l.v.SetDefault("ocr.min_confidence", d.OCR.MinConfidence)
	l.v.SetDefault("ocr.suppress_upper_region", d.OCR.SuppressUpperRegion)
	l.v.SetDefault("ocr.suppress_lower_region", d.OCR.SuppressLowerRegion)
	l.v.SetDefault("ocr.paddle.det_model", d.OCR.Paddle.DetModel)
	l.v.SetDefault("ocr.paddle.rec_model", d.OCR.Paddle.RecModel)
	l.v.SetDefault("ocr.paddle.dict_path", d.OCR.Paddle.DictPath)
	l.v.SetDefault("ocr.paddle.db_thresh", d.OCR.Paddle.DBThresh)
	l.v.SetDefault("ocr.paddle.db_box_thresh", d.OCR.Paddle.DBBoxThresh)
	l.v.SetDefault("ocr.paddle.unclip_ratio", d.OCR.Paddle.UnclipRatio)
	l.v.SetDefault("ocr.paddle.num_threads", d.OCR.Paddle.NumThreads)
	l.v.SetDefault("ocr.paddle.use_gpu", d.OCR.Paddle.UseGPU)
	l.v.SetDefault("ocr.tesseract.language", d.OCR.Tesseract.Language)

	l.v.SetDefault("semantic.label_threshold", d.Semantic.LabelThreshold)
	l.v.SetDefault("semantic.noise_min_confidence", d.Semantic.NoiseMinConfidence)
	l.v.SetDefault("semantic.noise_max_chars", d.Semantic.NoiseMaxChars)
	l.v.SetDefault("semantic.band_tolerance", d.Semantic.BandTolerance)
	l.v.SetDefault("semantic.row_tolerance", d.Semantic.RowTolerance)
	l.v.SetDefault("semantic.right_max_widths", d.Semantic.RightMaxWidths)
	l.v.SetDefault("semantic.below_max_gap", d.Semantic.BelowMaxGap)
	l.v.SetDefault("semantic.below_min_overlap", d.Semantic.BelowMinOverlap)
	l.v.SetDefault("semantic.district_threshold", d.Semantic.DistrictThreshold)
	l.v.SetDefault("semantic.municipality_threshold", d.Semantic.MunicipalityThreshold)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.dir", d.Output.Dir)
	l.v.SetDefault("output.yaml", d.Output.YAML)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.policy", d.Server.Policy)
	l.v.SetDefault("server.rate_limit_per_minute", d.Server.RateLimitPerMinute)
	l.v.SetDefault("server.max_upload_mb_per_day", d.Server.MaxUploadMBPerDay)

	l.v.SetDefault("store.backend", d.Store.Backend)
	l.v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	l.v.SetDefault("store.redis_password", d.Store.RedisPassword)
	l.v.SetDefault("store.redis_db", d.Store.RedisDB)
	l.v.SetDefault("store.ttl_hours", d.Store.TTLHours)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.report", d.Batch.Report)
}

// GenerateDefaultConfigFile writes the defaults to filename, nagarikta.yaml
// when empty.
func GenerateDefaultConfigFile(filename string) error {
	l := NewLoaderWith(viper.New())
	l.setDefaults()
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return l.v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the directories searched for nagarikta.yaml,
// in order.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && dir != "" {
		paths = append(paths, filepath.Join(dir, ConfigFileName))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}
	return append(paths, "/etc/"+ConfigFileName)
}
