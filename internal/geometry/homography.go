package geometry

import (
	"math"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// computeHomography returns the 3x3 matrix H mapping p[i] -> q[i] with
// h22 fixed to 1.
func computeHomography(p, q [4]utils.Point) ([3][3]float64, bool) {
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := p[i].X, p[i].Y
		x, y := q[i].X, q[i].Y
		r := 2 * i
		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x
		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}
	h, ok := solve8x8(a, b)
	if !ok {
		return [3][3]float64{}, false
	}
	return [3][3]float64{{h[0], h[1], h[2]}, {h[3], h[4], h[5]}, {h[6], h[7], 1}}, true
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	for col := range 8 {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return [8]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := range 8 {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < 8; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

// applyHomography maps (x, y) through h. A point on the line at infinity
// maps far outside any image.
func applyHomography(h [3][3]float64, x, y float64) (float64, float64) {
	den := h[2][0]*x + h[2][1]*y + h[2][2]
	if den == 0 {
		return -1e9, -1e9
	}
	return (h[0][0]*x + h[0][1]*y + h[0][2]) / den, (h[1][0]*x + h[1][1]*y + h[1][2]) / den
}

// invert3x3 returns the inverse matrix scaled so the last element is 1
// when possible.
func invert3x3(m [3][3]float64) ([3][3]float64, bool) {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if math.Abs(det) < 1e-15 {
		return [3][3]float64{}, false
	}
	var inv [3][3]float64
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / det
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / det
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / det
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det
	if s := inv[2][2]; math.Abs(s) > 1e-15 {
		for i := range 3 {
			for j := range 3 {
				inv[i][j] /= s
			}
		}
	}
	return inv, true
}

// canonicalCorners returns the destination rectangle TL, TR, BR, BL.
func canonicalCorners(w, h int) [4]utils.Point {
	return fullImageQuad(w, h)
}
