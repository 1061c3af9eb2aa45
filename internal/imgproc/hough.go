package imgproc

import (
	"math"
	"sort"
)

// Segment is a detected straight line segment.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Length returns the Euclidean length.
func (s Segment) Length() float64 { return math.Hypot(s.X2-s.X1, s.Y2-s.Y1) }

// AngleDeg returns |atan2(dy, dx)| in degrees, within [0, 180].
func (s Segment) AngleDeg() float64 {
	return math.Abs(math.Atan2(s.Y2-s.Y1, s.X2-s.X1) * 180 / math.Pi)
}

// MidX returns the mean x of both endpoints.
func (s Segment) MidX() float64 { return (s.X1 + s.X2) / 2 }

// MidY returns the mean y of both endpoints.
func (s Segment) MidY() float64 { return (s.Y1 + s.Y2) / 2 }

// IsHorizontal reports whether the segment is within tol degrees of the
// x axis in either direction.
func (s Segment) IsHorizontal(tol float64) bool {
	a := s.AngleDeg()
	return a < tol || a > 180-tol
}

// IsVertical reports whether the segment is strictly within tol degrees of
// the y axis.
func (s Segment) IsVertical(tol float64) bool {
	a := s.AngleDeg()
	return a > 90-tol && a < 90+tol
}

const houghAngles = 180

type houghCell struct {
	theta, rho int
	votes      int32
}

// HoughSegments finds line segments in a binary edge map. Lines are voted
// in a (theta, rho) accumulator at 1 degree and 1 pixel resolution; peaks
// at or above threshold are then walked in descending vote order over the
// edge pixels not yet claimed, splitting on gaps longer than maxGap and
// keeping runs at least minLen long. The result depends only on the input.
func HoughSegments(edges *Gray, threshold int, minLen, maxGap float64) []Segment {
	w, h := edges.W, edges.H
	if w == 0 || h == 0 {
		return nil
	}
	var cosT, sinT [houghAngles]float64
	for t := range houghAngles {
		a := float64(t) * math.Pi / houghAngles
		cosT[t], sinT[t] = math.Cos(a), math.Sin(a)
	}
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	nrho := 2*diag + 1

	acc := make([]int32, houghAngles*nrho)
	mask := make([]bool, w*h)
	for i, v := range edges.Pix {
		if v == 0 {
			continue
		}
		mask[i] = true
		x, y := float64(i%w), float64(i/w)
		for t := range houghAngles {
			r := int(math.Round(x*cosT[t]+y*sinT[t])) + diag
			acc[t*nrho+r]++
		}
	}

	var cells []houghCell
	for t := range houghAngles {
		for r := range nrho {
			v := acc[t*nrho+r]
			if int(v) < threshold || !isPeak(acc, t, r, nrho) {
				continue
			}
			cells = append(cells, houghCell{theta: t, rho: r - diag, votes: v})
		}
	}
	sort.SliceStable(cells, func(i, j int) bool { return cells[i].votes > cells[j].votes })

	var out []Segment
	for _, c := range cells {
		out = append(out, walkLine(mask, w, h, cosT[c.theta], sinT[c.theta], float64(c.rho), minLen, maxGap)...)
	}
	return out
}

// isPeak reports whether the cell is not smaller than any of its
// neighbours. Theta wraps around with rho mirrored.
func isPeak(acc []int32, t, r, nrho int) bool {
	v := acc[t*nrho+r]
	for dt := -1; dt <= 1; dt++ {
		for dr := -1; dr <= 1; dr++ {
			if dt == 0 && dr == 0 {
				continue
			}
			tt, rr := t+dt, r+dr
			if tt < 0 || tt >= houghAngles {
				tt = (tt + houghAngles) % houghAngles
				rr = nrho - 1 - rr
			}
			if rr < 0 || rr >= nrho {
				continue
			}
			if acc[tt*nrho+rr] > v {
				return false
			}
		}
	}
	return true
}

// walkLine scans x*cos + y*sin = rho along its dominant axis, tolerating
// one pixel of deviation on the minor axis, and emits the qualifying runs.
// Pixels of emitted runs are removed from mask.
func walkLine(mask []bool, w, h int, cosT, sinT, rho, minLen, maxGap float64) []Segment {
	alongX := math.Abs(sinT) > math.Abs(cosT)
	n := h
	if alongX {
		n = w
	}

	var (
		out        []Segment
		inRun      bool
		sx, sy     float64
		ex, ey     float64
		lastHit    int
		runPixels  []int
		probePixel = make([]int, 0, 3)
	)
	closeRun := func() {
		if inRun && math.Hypot(ex-sx, ey-sy) >= minLen {
			out = append(out, Segment{X1: sx, Y1: sy, X2: ex, Y2: ey})
			for _, i := range runPixels {
				mask[i] = false
			}
		}
		inRun = false
		runPixels = runPixels[:0]
	}

	for m := range n {
		var px, py float64
		if alongX {
			px = float64(m)
			py = (rho - px*cosT) / sinT
		} else {
			py = float64(m)
			px = (rho - py*sinT) / cosT
		}
		ix, iy := int(math.Round(px)), int(math.Round(py))
		probePixel = probePixel[:0]
		for _, d := range [3]int{0, -1, 1} {
			x, y := ix, iy
			if alongX {
				y += d
			} else {
				x += d
			}
			if x < 0 || y < 0 || x >= w || y >= h {
				continue
			}
			if mask[y*w+x] {
				probePixel = append(probePixel, y*w+x)
			}
		}
		if len(probePixel) == 0 {
			continue
		}
		if inRun && float64(m-lastHit-1) > maxGap {
			closeRun()
		}
		if !inRun {
			inRun = true
			sx, sy = px, py
		}
		ex, ey = px, py
		lastHit = m
		runPixels = append(runPixels, probePixel...)
	}
	closeRun()
	return out
}
