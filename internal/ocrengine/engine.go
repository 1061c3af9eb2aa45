// Package ocrengine defines the text detection and recognition engine
// contract and its implementations. Engines are reached through a Handle,
// which loads them lazily, serializes every call and substitutes the
// fallback engine when the primary fails.
package ocrengine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/onnx"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Engine names understood by the default registry.
const (
	EnginePaddle    = "paddle"
	EngineTesseract = "tesseract"
)

var (
	// ErrEngineUnavailable means neither the primary nor the fallback
	// engine produced a result.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	// ErrNoBackend is returned by engines that were not compiled in.
	ErrNoBackend = errors.New("ocr engine backend not linked into this build")
	// ErrUnknownEngine is returned for names missing from the registry.
	ErrUnknownEngine = errors.New("unknown ocr engine")
)

// Detection is one recognized text region in image coordinates.
type Detection struct {
	Polygon    [4]utils.Point // TL, TR, BR, BL
	Text       string
	Confidence float64 // recognition confidence in [0, 1]
}

// Engine detects and recognizes text in an image. Implementations need not
// be safe for concurrent use; Handle serializes calls.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// Config selects and tunes the engines.
type Config struct {
	Primary   string          `mapstructure:"engine" yaml:"engine" json:"engine"`
	Fallback  string          `mapstructure:"fallback_engine" yaml:"fallback_engine" json:"fallback_engine"`
	Paddle    PaddleConfig    `mapstructure:"paddle" yaml:"paddle" json:"paddle"`
	Tesseract TesseractConfig `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
}

// PaddleConfig tunes the PP-OCR ONNX engine. Empty paths resolve under
// ModelsDir.
type PaddleConfig struct {
	ModelsDir   string         `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	DetModel    string         `mapstructure:"det_model" yaml:"det_model" json:"det_model"`
	RecModel    string         `mapstructure:"rec_model" yaml:"rec_model" json:"rec_model"`
	DictPath    string         `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	DBThresh    float64        `mapstructure:"db_thresh" yaml:"db_thresh" json:"db_thresh"`
	DBBoxThresh float64        `mapstructure:"db_box_thresh" yaml:"db_box_thresh" json:"db_box_thresh"`
	UnclipRatio float64        `mapstructure:"unclip_ratio" yaml:"unclip_ratio" json:"unclip_ratio"`
	MaxSideLen  int            `mapstructure:"max_side_len" yaml:"max_side_len" json:"max_side_len"`
	RecHeight   int            `mapstructure:"rec_height" yaml:"rec_height" json:"rec_height"`
	RecMaxWidth int            `mapstructure:"rec_max_width" yaml:"rec_max_width" json:"rec_max_width"`
	NumThreads  int            `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	GPU         onnx.GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// TesseractConfig tunes the Tesseract engine.
type TesseractConfig struct {
	Languages []string `mapstructure:"languages" yaml:"languages" json:"languages"`
}

// DefaultConfig uses PaddleOCR with Tesseract as the fallback. The DB
// parameters keep boxes tight around single words.
func DefaultConfig() Config {
	return Config{
		Primary:  EnginePaddle,
		Fallback: EngineTesseract,
		Paddle: PaddleConfig{
			DBThresh:    0.3,
			DBBoxThresh: 0.5,
			UnclipRatio: 1.3,
			MaxSideLen:  960,
			RecHeight:   48,
			RecMaxWidth: 3200,
			GPU:         onnx.DefaultGPUConfig(),
		},
		Tesseract: TesseractConfig{Languages: []string{"eng", "nep"}},
	}
}

// Factory builds an engine from the configuration.
type Factory func(cfg Config) (Engine, error)

// Registry maps engine names to factories.
type Registry map[string]Factory

// DefaultRegistry returns the engines compiled into this build.
func DefaultRegistry() Registry {
	return Registry{
		EnginePaddle:    func(cfg Config) (Engine, error) { return NewPaddle(cfg.Paddle) },
		EngineTesseract: func(cfg Config) (Engine, error) { return newTesseract(cfg.Tesseract) },
	}
}

// Names lists the registered engine names in sorted order.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for n := range r {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New builds the named engine.
func (r Registry) New(name string, cfg Config) (Engine, error) {
	f, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return f(cfg)
}
