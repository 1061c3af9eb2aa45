package layout

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
)

// sharpen lifts text edges; its weights sum to one so flat areas keep
// their brightness.
var sharpen = [9]float64{
	0, -0.5, 0,
	-0.5, 3, -0.5,
	0, -0.5, 0,
}

// EnhanceForOCR equalizes luminance with CLAHE (clip 2.5, 8x8 tiles) and
// sharpens the result.
func EnhanceForOCR(img image.Image) *image.NRGBA {
	eq := imgproc.EnhanceLuminance(img, 2.5, 8)
	return imaging.Convolve3x3(eq, sharpen, nil)
}
