package imgproc

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// CLAHE applies contrast limited adaptive histogram equalization over a
// tilesX x tilesY grid. Tiles extend past the image with reflect-101
// sampling when the size is not divisible by the grid.
func CLAHE(g *Gray, clipLimit float64, tilesX, tilesY int) *Gray {
	w, h := g.W, g.H
	if w == 0 || h == 0 {
		return g.Clone()
	}
	tilesX = max(tilesX, 1)
	tilesY = max(tilesY, 1)
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	tileArea := tileW * tileH

	clip := 0
	if clipLimit > 0 {
		clip = max(int(clipLimit*float64(tileArea)/256), 1)
	}
	lutScale := 255.0 / float64(tileArea)

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := range tilesY {
		for tx := range tilesX {
			var hist [256]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				row := reflect101(y, h) * w
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[g.Pix[row+reflect101(x, w)]]++
				}
			}
			if clip > 0 {
				clipHistogram(&hist, clip)
			}
			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range 256 {
				sum += hist[i]
				lut[i] = clampU8(math.Round(float64(sum) * lutScale))
			}
		}
	}

	out := NewGray(w, h)
	invTW := 1.0 / float64(tileW)
	invTH := 1.0 / float64(tileH)
	for y := range h {
		tyf := float64(y)*invTH - 0.5
		ty1 := int(math.Floor(tyf))
		ty2 := ty1 + 1
		ya := tyf - float64(ty1)
		ty1 = max(ty1, 0)
		ty2 = min(ty2, tilesY-1)
		for x := range w {
			txf := float64(x)*invTW - 0.5
			tx1 := int(math.Floor(txf))
			tx2 := tx1 + 1
			xa := txf - float64(tx1)
			tx1 = max(tx1, 0)
			tx2 = min(tx2, tilesX-1)

			v := g.Pix[y*w+x]
			l11 := float64(luts[ty1*tilesX+tx1][v])
			l12 := float64(luts[ty1*tilesX+tx2][v])
			l21 := float64(luts[ty2*tilesX+tx1][v])
			l22 := float64(luts[ty2*tilesX+tx2][v])
			res := (l11*(1-xa)+l12*xa)*(1-ya) + (l21*(1-xa)+l22*xa)*ya
			out.Pix[y*w+x] = clampU8(res)
		}
	}
	return out
}

// clipHistogram caps every bin at clip and spreads the excess evenly, with
// the remainder handed out at a fixed stride.
func clipHistogram(hist *[256]int, clip int) {
	excess := 0
	for i, v := range hist {
		if v > clip {
			excess += v - clip
			hist[i] = clip
		}
	}
	batch := excess / 256
	residual := excess - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// EnhanceLuminance equalizes the L channel of CIE Lab with CLAHE and
// converts back to sRGB, leaving chroma untouched.
func EnhanceLuminance(img image.Image, clipLimit float64, grid int) *image.NRGBA {
	src := ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	l := NewGray(w, h)
	as := make([]float32, w*h)
	bs := make([]float32, w*h)
	for j := range l.Pix {
		i := j * 4
		c := colorful.Color{
			R: float64(src.Pix[i]) / 255,
			G: float64(src.Pix[i+1]) / 255,
			B: float64(src.Pix[i+2]) / 255,
		}
		lv, av, bv := c.Lab()
		l.Pix[j] = clampU8(lv * 255)
		as[j], bs[j] = float32(av), float32(bv)
	}

	eq := CLAHE(l, clipLimit, grid, grid)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for j, v := range eq.Pix {
		i := j * 4
		c := colorful.Lab(float64(v)/255, float64(as[j]), float64(bs[j])).Clamped()
		r, g, b := c.RGB255()
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r, g, b, src.Pix[i+3]
	}
	return out
}
