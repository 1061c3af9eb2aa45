package imgproc

import "math"

// GaussianKernel returns a normalized 1-D kernel. A non-positive sigma is
// derived from the size as 0.3*((k-1)/2-1)+0.8.
func GaussianKernel(ksize int, sigma float64) []float64 {
	if ksize < 1 {
		ksize = 1
	}
	if ksize%2 == 0 {
		ksize++
	}
	if sigma <= 0 {
		sigma = 0.3*(float64(ksize-1)*0.5-1) + 0.8
	}
	k := make([]float64, ksize)
	half := ksize / 2
	sum := 0.0
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur applies a separable Gaussian with reflect-101 borders.
func GaussianBlur(g *Gray, ksize int, sigma float64) *Gray {
	k := GaussianKernel(ksize, sigma)
	return separable(g, k, k)
}

// separable convolves rows with kx and columns with ky.
func separable(g *Gray, kx, ky []float64) *Gray {
	w, h := g.W, g.H
	tmp := make([]float64, w*h)
	hx := len(kx) / 2
	for y := range h {
		row := g.Pix[y*w : (y+1)*w]
		for x := range w {
			s := 0.0
			for i, kv := range kx {
				s += kv * float64(row[reflect101(x+i-hx, w)])
			}
			tmp[y*w+x] = s
		}
	}
	out := NewGray(w, h)
	hy := len(ky) / 2
	for y := range h {
		for x := range w {
			s := 0.0
			for i, kv := range ky {
				s += kv * tmp[reflect101(y+i-hy, h)*w+x]
			}
			out.Pix[y*w+x] = clampU8(s)
		}
	}
	return out
}
