package imgproc

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// AdaptiveMeanThresholdInv marks a pixel 255 when it is at least c darker
// than the mean of its block x block neighbourhood (replicated borders).
// Even block sizes are bumped to the next odd value.
func AdaptiveMeanThresholdInv(g *Gray, block int, c float64) *Gray {
	if block%2 == 0 {
		block++
	}
	block = max(block, 3)
	w, h := g.W, g.H
	r := block / 2

	// Integral image over the replicated padded raster.
	pw, ph := w+2*r, h+2*r
	integral := make([]int64, (pw+1)*(ph+1))
	for y := range ph {
		sy := replicate(y-r, h)
		var rowSum int64
		for x := range pw {
			rowSum += int64(g.Pix[sy*w+replicate(x-r, w)])
			integral[(y+1)*(pw+1)+x+1] = integral[y*(pw+1)+x+1] + rowSum
		}
	}
	area := float64(block * block)
	out := NewGray(w, h)
	for y := range h {
		for x := range w {
			x0, y0 := x, y
			x1, y1 := x+block, y+block
			sum := integral[y1*(pw+1)+x1] - integral[y0*(pw+1)+x1] -
				integral[y1*(pw+1)+x0] + integral[y0*(pw+1)+x0]
			mean := float64(clampU8(float64(sum) / area))
			if float64(g.Pix[y*w+x]) <= mean-c {
				out.Pix[y*w+x] = 255
			}
		}
	}
	return out
}

// DarkMask marks pixels whose HSV saturation and value (both on a 0-255
// scale) are at most maxS and maxV. The printed black border passes this
// regardless of hue.
func DarkMask(img image.Image, maxS, maxV float64) *Gray {
	src := ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := NewGray(w, h)
	for j := range out.Pix {
		i := j * 4
		c := colorful.Color{
			R: float64(src.Pix[i]) / 255,
			G: float64(src.Pix[i+1]) / 255,
			B: float64(src.Pix[i+2]) / 255,
		}
		_, s, v := c.Hsv()
		if s*255 <= maxS && v*255 <= maxV {
			out.Pix[j] = 255
		}
	}
	return out
}

// BinaryInv marks pixels at or below t.
func BinaryInv(g *Gray, t uint8) *Gray {
	out := NewGray(g.W, g.H)
	for i, v := range g.Pix {
		if v <= t {
			out.Pix[i] = 255
		}
	}
	return out
}
