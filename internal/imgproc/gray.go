// Package imgproc holds the low level raster operations used by border
// detection and OCR pre-processing: grayscale conversion, filtering, edge
// detection, morphology, thresholding, contour tracing and line finding.
//
// All operations work on plain Go slices and are deterministic, so running
// the same input twice yields bit-identical output.
package imgproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// Gray is a single channel 8-bit raster stored row-major.
type Gray struct {
	W, H int
	Pix  []uint8
}

// NewGray allocates a zeroed raster.
func NewGray(w, h int) *Gray {
	return &Gray{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At returns the pixel at (x, y). Callers must stay in bounds.
func (g *Gray) At(x, y int) uint8 { return g.Pix[y*g.W+x] }

// Set writes the pixel at (x, y).
func (g *Gray) Set(x, y int, v uint8) { g.Pix[y*g.W+x] = v }

// Clone returns a deep copy.
func (g *Gray) Clone() *Gray {
	out := &Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	copy(out.Pix, g.Pix)
	return out
}

// CountNonZero returns the number of foreground pixels.
func (g *Gray) CountNonZero() int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// ToImage wraps the raster as an *image.Gray sharing no memory.
func (g *Gray) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.W, g.H))
	copy(img.Pix, g.Pix)
	return img
}

// ToNRGBA returns img as a tightly packed NRGBA anchored at the origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	return imaging.Clone(img)
}

// ToGray converts to luma with the fixed point BT.601 weights used by
// common computer vision libraries, so thresholds tuned there carry over.
func ToGray(img image.Image) *Gray {
	src := ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := NewGray(w, h)
	for i, j := 0, 0; j < len(out.Pix); i, j = i+4, j+1 {
		r := int(src.Pix[i])
		gr := int(src.Pix[i+1])
		b := int(src.Pix[i+2])
		out.Pix[j] = uint8((r*4899 + gr*9617 + b*1868 + 8192) >> 14)
	}
	return out
}

// reflect101 maps an out of range index into [0, n) mirroring around the
// edge pixel without repeating it (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// replicate clamps an index into [0, n).
func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clampU8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
