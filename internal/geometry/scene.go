package geometry

import (
	"image"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
)

// Scene is one input image with lazily computed intermediate rasters that
// several strategies share.
type Scene struct {
	Src  *image.NRGBA
	W, H int
	cfg  Config

	gray         *imgproc.Gray
	blurred      *imgproc.Gray
	edges        *imgproc.Gray
	enhancedBlur *imgproc.Gray
	dilatedEdges *imgproc.Gray
}

// NewScene wraps img for detection.
func NewScene(img image.Image, cfg Config) *Scene {
	src := imgproc.ToNRGBA(img)
	return &Scene{Src: src, W: src.Rect.Dx(), H: src.Rect.Dy(), cfg: cfg}
}

// Area returns the pixel count of the image.
func (s *Scene) Area() float64 { return float64(s.W * s.H) }

// Gray returns the plain luma raster.
func (s *Scene) Gray() *imgproc.Gray {
	if s.gray == nil {
		s.gray = imgproc.ToGray(s.Src)
	}
	return s.gray
}

// Blurred returns the Gaussian blurred luma raster.
func (s *Scene) Blurred() *imgproc.Gray {
	if s.blurred == nil {
		s.blurred = imgproc.GaussianBlur(s.Gray(), s.cfg.BlurKSize, 0)
	}
	return s.blurred
}

// Edges returns Canny edges of the blurred luma raster.
func (s *Scene) Edges() *imgproc.Gray {
	if s.edges == nil {
		s.edges = imgproc.Canny(s.Blurred(), s.cfg.CannyLow, s.cfg.CannyHigh)
	}
	return s.edges
}

// DilatedEdges returns Edges thickened by the configured dilation.
func (s *Scene) DilatedEdges() *imgproc.Gray {
	if s.dilatedEdges == nil {
		k := s.cfg.MorphKSize
		s.dilatedEdges = imgproc.Dilate(s.Edges(), k, k, s.cfg.DilateIterations)
	}
	return s.dilatedEdges
}

// EnhancedBlurred returns the blurred luma of the contrast equalized image.
func (s *Scene) EnhancedBlurred() *imgproc.Gray {
	if s.enhancedBlur == nil {
		enhanced := imgproc.EnhanceLuminance(s.Src, 2.0, 8)
		s.enhancedBlur = imgproc.GaussianBlur(imgproc.ToGray(enhanced), s.cfg.BlurKSize, 0)
	}
	return s.enhancedBlur
}
