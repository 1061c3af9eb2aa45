// Package geometry locates the printed information box of a citizenship
// card in a photo and warps it to a fixed size canonical image.
package geometry

import (
	"errors"
	"fmt"
)

// Config holds the tunables of border detection and warping.
type Config struct {
	CanonicalWidth  int // output width in pixels
	CanonicalHeight int // output height in pixels

	BlurKSize        int     // Gaussian kernel size
	CannyLow         float64 // hysteresis low threshold
	CannyHigh        float64 // hysteresis high threshold
	DilateIterations int     // dilation passes after edge detection
	MorphKSize       int     // rectangular structuring element size

	MinAreaRatio       float64 // quad area / image area lower bound
	MaxAreaRatio       float64 // quad area / image area upper bound
	ApproxEpsilonRatio float64 // first polygon approximation tolerance, fraction of perimeter
	MinAspectRatio     float64 // mean width / mean height lower bound
	MaxAspectRatio     float64 // mean width / mean height upper bound

	AdaptiveBlockSize int     // neighbourhood of the adaptive threshold
	AdaptiveC         float64 // offset below the local mean

	MultiStrategy bool // run every strategy instead of edges only
}

// DefaultConfig returns the tuned defaults for 1200x600 output.
func DefaultConfig() Config {
	return Config{
		CanonicalWidth:     1200,
		CanonicalHeight:    600,
		BlurKSize:          5,
		CannyLow:           30,
		CannyHigh:          120,
		DilateIterations:   3,
		MorphKSize:         5,
		MinAreaRatio:       0.10,
		MaxAreaRatio:       0.95,
		ApproxEpsilonRatio: 0.02,
		MinAspectRatio:     1.3,
		MaxAspectRatio:     5.0,
		AdaptiveBlockSize:  51,
		AdaptiveC:          10,
		MultiStrategy:      true,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.CanonicalWidth <= 0 || c.CanonicalHeight <= 0 {
		return fmt.Errorf("canonical size must be positive, got %dx%d", c.CanonicalWidth, c.CanonicalHeight)
	}
	if c.MinAreaRatio < 0 || c.MaxAreaRatio > 1 || c.MinAreaRatio >= c.MaxAreaRatio {
		return fmt.Errorf("invalid area ratio range [%.2f, %.2f]", c.MinAreaRatio, c.MaxAreaRatio)
	}
	if c.MinAspectRatio <= 0 || c.MinAspectRatio >= c.MaxAspectRatio {
		return fmt.Errorf("invalid aspect ratio range [%.2f, %.2f]", c.MinAspectRatio, c.MaxAspectRatio)
	}
	if c.BlurKSize <= 0 || c.MorphKSize <= 0 {
		return errors.New("kernel sizes must be positive")
	}
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("invalid canny thresholds %.0f/%.0f", c.CannyLow, c.CannyHigh)
	}
	return nil
}
