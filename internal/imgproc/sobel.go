package imgproc

import "math"

// FloatGrid is a single channel float raster.
type FloatGrid struct {
	W, H int
	Data []float64
}

// At returns the value at (x, y).
func (f *FloatGrid) At(x, y int) float64 { return f.Data[y*f.W+x] }

// RowMeans averages each row of the window [x0,x1) x [y0,y1) and returns
// one value per row. Bounds are clamped to the grid.
func (f *FloatGrid) RowMeans(x0, x1, y0, y1 int) []float64 {
	x0, x1 = max(x0, 0), min(x1, f.W)
	y0, y1 = max(y0, 0), min(y1, f.H)
	if x1 <= x0 || y1 <= y0 {
		return nil
	}
	out := make([]float64, 0, y1-y0)
	for y := y0; y < y1; y++ {
		s := 0.0
		for x := x0; x < x1; x++ {
			s += f.Data[y*f.W+x]
		}
		out = append(out, s/float64(x1-x0))
	}
	return out
}

// SobelY5Abs returns |d/dy| computed with the 5x5 Sobel kernel (derivative
// [-1 -2 0 2 1] vertically, smoothing [1 4 6 4 1] horizontally) on
// reflect-101 borders. Strong responses mark horizontal edges.
func SobelY5Abs(g *Gray) *FloatGrid {
	w, h := g.W, g.H
	smooth := [5]float64{1, 4, 6, 4, 1}
	deriv := [5]float64{-1, -2, 0, 2, 1}

	tmp := make([]float64, w*h)
	for y := range h {
		row := g.Pix[y*w : (y+1)*w]
		for x := range w {
			s := 0.0
			for i, k := range smooth {
				s += k * float64(row[reflect101(x+i-2, w)])
			}
			tmp[y*w+x] = s
		}
	}
	out := &FloatGrid{W: w, H: h, Data: make([]float64, w*h)}
	for y := range h {
		for x := range w {
			s := 0.0
			for i, k := range deriv {
				if k == 0 {
					continue
				}
				s += k * tmp[reflect101(y+i-2, h)*w+x]
			}
			out.Data[y*w+x] = math.Abs(s)
		}
	}
	return out
}
