package ocrengine

import (
	"math"
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/mempool"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// dbParams controls differentiable binarization post-processing.
type dbParams struct {
	thresh    float64 // pixel threshold on the probability map
	boxThresh float64 // minimum mean probability of a region
	unclip    float64 // outward expansion ratio
	minSize   float64 // shortest side kept, in map pixels
}

type scoredQuad struct {
	quad  [4]utils.Point
	score float64
}

// dbBoxes extracts text quads from a probability map. Each 8-connected
// region above thresh becomes its minimum area rectangle, is scored by
// its mean probability and expanded by area*unclip/perimeter.
func dbBoxes(prob []float32, w, h int, p dbParams) []scoredQuad {
	if w <= 0 || h <= 0 || len(prob) != w*h {
		return nil
	}
	mask := mempool.GetBool(w * h)
	defer mempool.PutBool(mask)
	for i, v := range prob {
		mask[i] = float64(v) > p.thresh
	}

	seen := make([]bool, w*h)
	stack := make([]int, 0, 256)
	var out []scoredQuad
	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		var pts []utils.Point
		var sum float64
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			pts = append(pts, utils.Point{X: float64(x), Y: float64(y)})
			sum += float64(prob[i])
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if mask[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		if q, ok := regionQuad(pts, sum/float64(len(pts)), p); ok {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].quad[0], out[j].quad[0]
		if math.Abs(a.Y-b.Y) >= 10 {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

func regionQuad(pts []utils.Point, score float64, p dbParams) (scoredQuad, bool) {
	if len(pts) < 4 || score < p.boxThresh {
		return scoredQuad{}, false
	}
	r := utils.MinAreaRect(pts)
	if math.Min(r.Width, r.Height) < p.minSize {
		return scoredQuad{}, false
	}
	perim := 2 * (r.Width + r.Height)
	d := r.Width * r.Height * p.unclip / perim
	if math.Min(r.Width, r.Height)+2*d < p.minSize+2 {
		return scoredQuad{}, false
	}
	grown := expandRect(r, d)
	return scoredQuad{quad: utils.OrderCorners(grown[:]), score: score}, true
}

// expandRect moves every side of r outward by d.
func expandRect(r utils.RotatedRect, d float64) [4]utils.Point {
	c := r.Corners
	e1 := unit(c[1].Sub(c[0]))
	e2 := unit(c[3].Sub(c[0]))
	var out [4]utils.Point
	for i, p := range c {
		rel := p.Sub(r.Center)
		s1 := sign(rel.X*e1.X + rel.Y*e1.Y)
		s2 := sign(rel.X*e2.X + rel.Y*e2.Y)
		out[i] = utils.Point{
			X: p.X + d*(s1*e1.X+s2*e2.X),
			Y: p.Y + d*(s1*e1.Y+s2*e2.Y),
		}
	}
	return out
}

func unit(v utils.Point) utils.Point {
	l := math.Hypot(v.X, v.Y)
	if l == 0 {
		return utils.Point{}
	}
	return utils.Point{X: v.X / l, Y: v.Y / l}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// scaleQuad maps a quad from map coordinates to an image of size ow x oh.
func scaleQuad(q [4]utils.Point, mapW, mapH, ow, oh int) [4]utils.Point {
	sx := float64(ow) / float64(mapW)
	sy := float64(oh) / float64(mapH)
	for i := range q {
		q[i].X = utils.ClampFloat(q[i].X*sx, 0, float64(ow))
		q[i].Y = utils.ClampFloat(q[i].Y*sy, 0, float64(oh))
	}
	return q
}
