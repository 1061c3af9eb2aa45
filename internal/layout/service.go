package layout

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
)

// Config tunes detection filtering.
type Config struct {
	MinConfidence       float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	SuppressUpperRegion bool    `mapstructure:"suppress_upper_region" yaml:"suppress_upper_region" json:"suppress_upper_region"`
	SuppressLowerRegion bool    `mapstructure:"suppress_lower_region" yaml:"suppress_lower_region" json:"suppress_lower_region"`
	UpperRegionRatio    float64 `mapstructure:"upper_region_ratio" yaml:"upper_region_ratio" json:"upper_region_ratio"`
	LowerRegionRatio    float64 `mapstructure:"lower_region_ratio" yaml:"lower_region_ratio" json:"lower_region_ratio"`
	NMSThreshold        float64 `mapstructure:"nms_threshold" yaml:"nms_threshold" json:"nms_threshold"`
	SkipEnhance         bool    `mapstructure:"skip_enhance" yaml:"skip_enhance" json:"skip_enhance"`
}

// DefaultConfig keeps every detection above 10% confidence.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.10,
		UpperRegionRatio: 0.05,
		LowerRegionRatio: 0.85,
		NMSThreshold:     DefaultNMSThreshold,
	}
}

// Validate checks ratio ranges.
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence %.2f outside [0, 1]", c.MinConfidence)
	}
	if c.UpperRegionRatio < 0 || c.LowerRegionRatio > 1 || c.UpperRegionRatio >= c.LowerRegionRatio {
		return fmt.Errorf("invalid region ratios %.2f/%.2f", c.UpperRegionRatio, c.LowerRegionRatio)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold %.2f outside (0, 1]", c.NMSThreshold)
	}
	return nil
}

// Recognizer is the OCR dependency of the service. *ocrengine.Handle
// satisfies it.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (ocrengine.Output, error)
}

// Service runs OCR over canonical images and builds the row layout.
type Service struct {
	cfg Config
	ocr Recognizer
}

// New creates a Service.
func New(cfg Config, ocr Recognizer) (*Service, error) {
	if ocr == nil {
		return nil, errors.New("layout: nil recognizer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout config: %w", err)
	}
	return &Service{cfg: cfg, ocr: ocr}, nil
}

// Config returns the active configuration.
func (s *Service) Config() Config { return s.cfg }

// DetectAndLayout enhances img, recognizes text and groups the surviving
// boxes into rows. Box coordinates are in img's frame.
func (s *Service) DetectAndLayout(ctx context.Context, img image.Image) (Layout, error) {
	if img == nil || img.Bounds().Empty() {
		return Layout{}, errors.New("layout: empty image")
	}
	in := img
	if !s.cfg.SkipEnhance {
		in = EnhanceForOCR(img)
	}
	out, err := s.ocr.Recognize(ctx, in)
	if err != nil {
		return Layout{}, err
	}

	h := float64(img.Bounds().Dy())
	boxes := make([]*Box, 0, len(out.Detections))
	for _, d := range out.Detections {
		b := FromDetection(d)
		if s.keep(b, h) {
			boxes = append(boxes, b)
		}
	}
	kept := Suppress(boxes, s.cfg.NMSThreshold)
	l := Analyze(kept)
	l.Engine, l.Fallback = out.Engine, out.Fallback
	slog.Debug("layout built",
		"engine", out.Engine, "detections", len(out.Detections),
		"boxes", len(l.Boxes), "rows", len(l.Rows))
	return l, nil
}

func (s *Service) keep(b *Box, imgH float64) bool {
	if b.Confidence < s.cfg.MinConfidence || !b.HasText() {
		return false
	}
	cy := b.PolygonCenterY()
	if s.cfg.SuppressLowerRegion && cy > imgH*s.cfg.LowerRegionRatio {
		return false
	}
	if s.cfg.SuppressUpperRegion && cy < imgH*s.cfg.UpperRegionRatio {
		return false
	}
	return true
}
