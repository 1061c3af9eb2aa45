package imgproc

import (
	"image"
	"math"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Border selects how samples outside the source are filled.
type Border int

const (
	// BorderConstant fills with opaque black.
	BorderConstant Border = iota
	// BorderReplicate repeats the nearest edge pixel.
	BorderReplicate
)

// Affine is a 2x3 forward transform.
type Affine [2][3]float64

// Apply transforms a point.
func (m Affine) Apply(p utils.Point) utils.Point {
	return utils.Point{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2],
	}
}

// Invert returns the inverse transform. A singular matrix yields the
// identity.
func (m Affine) Invert() Affine {
	det := m[0][0]*m[1][1] - m[0][1]*m[1][0]
	if math.Abs(det) < 1e-12 {
		return Affine{{1, 0, 0}, {0, 1, 0}}
	}
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	return Affine{
		{e / det, -b / det, (b*f - c*e) / det},
		{-d / det, a / det, (c*d - a*f) / det},
	}
}

// RotationAffine rotates by angleDeg around (cx, cy) and scales by scale.
// Positive angles turn the picture counter-clockwise as displayed.
func RotationAffine(cx, cy, angleDeg, scale float64) Affine {
	rad := angleDeg * math.Pi / 180
	a := scale * math.Cos(rad)
	b := scale * math.Sin(rad)
	return Affine{
		{a, b, (1-a)*cx - b*cy},
		{-b, a, b*cx + (1-a)*cy},
	}
}

// RotateExpanded rotates img by angleDeg around its centre onto a canvas
// large enough to hold every source pixel. Uncovered areas replicate the
// nearest edge. It returns the rotated image and the forward transform
// from source to rotated coordinates.
func RotateExpanded(img image.Image, angleDeg float64) (*image.NRGBA, Affine) {
	src := ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	m := RotationAffine(float64(w)/2, float64(h)/2, angleDeg, 1)
	cosA, sinA := math.Abs(m[0][0]), math.Abs(m[0][1])
	nw := int(float64(w)*cosA + float64(h)*sinA)
	nh := int(float64(h)*cosA + float64(w)*sinA)
	m[0][2] += float64(nw-w) / 2
	m[1][2] += float64(nh-h) / 2
	return WarpAffine(src, m, nw, nh, BorderReplicate), m
}

// WarpAffine renders a dstW x dstH image where each output pixel samples
// the source at the inverse transform of its position.
func WarpAffine(src *image.NRGBA, m Affine, dstW, dstH int, border Border) *image.NRGBA {
	inv := m.Invert()
	out := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	for y := range dstH {
		for x := range dstW {
			p := inv.Apply(utils.Point{X: float64(x), Y: float64(y)})
			i := out.PixOffset(x, y)
			Bilinear(src, p.X, p.Y, border, out.Pix[i:i+4])
		}
	}
	return out
}

// WarpPerspective renders a dstW x dstH image using inv, the homography
// from destination to source coordinates. Samples outside the source are
// black.
func WarpPerspective(src *image.NRGBA, inv [3][3]float64, dstW, dstH int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	for y := range dstH {
		fy := float64(y)
		for x := range dstW {
			fx := float64(x)
			wz := inv[2][0]*fx + inv[2][1]*fy + inv[2][2]
			i := out.PixOffset(x, y)
			if math.Abs(wz) < 1e-12 {
				out.Pix[i+3] = 255
				continue
			}
			sx := (inv[0][0]*fx + inv[0][1]*fy + inv[0][2]) / wz
			sy := (inv[1][0]*fx + inv[1][1]*fy + inv[1][2]) / wz
			Bilinear(src, sx, sy, BorderConstant, out.Pix[i:i+4])
		}
	}
	return out
}

// Bilinear samples src at (x, y) into dst (4 bytes, NRGBA order).
func Bilinear(src *image.NRGBA, x, y float64, border Border, dst []uint8) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	if border == BorderConstant && (x0 < -1 || y0 < -1 || x0 >= w || y0 >= h) {
		dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 255
		return
	}

	var c [4][4]float64
	for k, off := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		sx, sy := x0+off[0], y0+off[1]
		if sx < 0 || sy < 0 || sx >= w || sy >= h {
			if border == BorderConstant {
				c[k] = [4]float64{0, 0, 0, 255}
				continue
			}
			sx, sy = replicate(sx, w), replicate(sy, h)
		}
		i := sy*src.Stride + sx*4
		c[k] = [4]float64{float64(src.Pix[i]), float64(src.Pix[i+1]), float64(src.Pix[i+2]), float64(src.Pix[i+3])}
	}
	for ch := range 4 {
		top := c[0][ch]*(1-fx) + c[1][ch]*fx
		bot := c[2][ch]*(1-fx) + c[3][ch]*fx
		dst[ch] = clampU8(top*(1-fy) + bot*fy)
	}
}
