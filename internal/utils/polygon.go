package utils

import "math"

// ApproxPolygon reduces a closed contour with the Douglas–Peucker algorithm.
// The contour is split at two mutually distant vertices and each chain is
// simplified independently, so the result does not depend on where the
// tracer started.
func ApproxPolygon(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n <= 3 || epsilon <= 0 {
		return append([]Point(nil), pts...)
	}
	a := farthestFrom(pts, 0)
	b := farthestFrom(pts, a)
	if a == b {
		return []Point{pts[a]}
	}

	chain := func(from, to int) []Point {
		out := make([]Point, 0, n)
		for i := from; ; i = (i + 1) % n {
			out = append(out, pts[i])
			if i == to {
				break
			}
		}
		return out
	}

	first := simplifyOpen(chain(a, b), epsilon)
	second := simplifyOpen(chain(b, a), epsilon)
	// Drop the shared endpoints of the second chain.
	out := append([]Point(nil), first...)
	if len(second) > 2 {
		out = append(out, second[1:len(second)-1]...)
	}
	return out
}

func farthestFrom(pts []Point, idx int) int {
	best, bestD := idx, -1.0
	for i, p := range pts {
		if d := p.Dist(pts[idx]); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

func simplifyOpen(pts []Point, eps float64) []Point {
	if len(pts) <= 2 {
		return pts
	}
	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true
	dpSimplify(pts, 0, len(pts)-1, eps, keep)
	out := make([]Point, 0, len(pts))
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

func dpSimplify(pts []Point, start, end int, eps float64, keep []bool) {
	if end <= start+1 {
		return
	}
	maxDist, index := -1.0, -1
	for i := start + 1; i < end; i++ {
		if d := perpendicularDistance(pts[i], pts[start], pts[end]); d > maxDist {
			maxDist, index = d, i
		}
	}
	if maxDist > eps {
		keep[index] = true
		dpSimplify(pts, start, index, eps, keep)
		dpSimplify(pts, index, end, eps, keep)
	}
}

func perpendicularDistance(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	if vx == 0 && vy == 0 {
		return p.Dist(a)
	}
	return math.Abs((p.X-a.X)*vy-(p.Y-a.Y)*vx) / math.Hypot(vx, vy)
}

// PolygonArea returns the absolute shoelace area of a closed polygon.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	s := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(s) / 2
}

// Perimeter returns the closed arc length of the polygon.
func Perimeter(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	s := 0.0
	for i := range pts {
		s += pts[i].Dist(pts[(i+1)%len(pts)])
	}
	return s
}

// IsConvex reports whether the closed polygon turns consistently in one
// direction. Collinear vertices are tolerated.
func IsConvex(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	sign := 0
	for i := range n {
		c := cross(pts[i], pts[(i+1)%n], pts[(i+2)%n])
		switch {
		case c > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case c < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. Returns the hull in CCW order without
// duplicating the first point at the end.
func ConvexHull(pts []Point) []Point {
	if len(pts) <= 1 {
		return append([]Point(nil), pts...)
	}
	p := append([]Point(nil), pts...)
	sortPoints(p)
	p = removeDuplicatePoints(p)
	if len(p) <= 2 {
		return p
	}
	lower := make([]Point, 0, len(p))
	for _, pt := range p {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], pt) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, pt)
	}
	upper := make([]Point, 0, len(p))
	for i := len(p) - 1; i >= 0; i-- {
		pt := p[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], pt) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, pt)
	}
	hull := make([]Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

func removeDuplicatePoints(p []Point) []Point {
	q := p[:0]
	for i, pt := range p {
		if i == 0 || pt != q[len(q)-1] {
			q = append(q, pt)
		}
	}
	return q
}

func sortPoints(p []Point) {
	// insertion sort; contours passed here are already short after hulling
	for i := 1; i < len(p); i++ {
		v := p[i]
		j := i - 1
		for j >= 0 && (p[j].X > v.X || (p[j].X == v.X && p[j].Y > v.Y)) {
			p[j+1] = p[j]
			j--
		}
		p[j+1] = v
	}
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// RotatedRect is a minimum-area enclosing rectangle.
type RotatedRect struct {
	Center Point
	// Width runs along the edge direction given by Angle, Height across it.
	Width, Height float64
	// Angle of the Width edge in degrees, image coordinates (y down).
	Angle   float64
	Corners [4]Point
}

// LongSideAngle returns the angle of the rectangle's longer side, folded
// into (-45, 45] so it reads as a deviation from horizontal.
func (r RotatedRect) LongSideAngle() float64 {
	a := r.Angle
	if r.Height > r.Width {
		a += 90
	}
	for a > 45 {
		a -= 90
	}
	for a <= -45 {
		a += 90
	}
	return a
}

// AspectRatio returns long side over short side, or 0 when degenerate.
func (r RotatedRect) AspectRatio() float64 {
	long, short := math.Max(r.Width, r.Height), math.Min(r.Width, r.Height)
	if short <= 0 {
		return 0
	}
	return long / short
}

// MinAreaRect computes the minimum-area enclosing rectangle using a
// rotating calipers approach over the convex hull.
func MinAreaRect(pts []Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		p := hull[0]
		return RotatedRect{Center: p, Corners: [4]Point{p, p, p, p}}
	}

	bestArea := math.Inf(1)
	var best RotatedRect
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l, dy/l
		vx, vy := -uy, ux
		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s := p.X*ux + p.Y*uy
			t := p.X*vx + p.Y*vy
			minS, maxS = math.Min(minS, s), math.Max(maxS, s)
			minT, maxT = math.Min(minT, t), math.Max(maxT, t)
		}
		area := (maxS - minS) * (maxT - minT)
		if area < bestArea {
			bestArea = area
			at := func(s, t float64) Point { return Point{X: ux*s + vx*t, Y: uy*s + vy*t} }
			best = RotatedRect{
				Width:  maxS - minS,
				Height: maxT - minT,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
				Corners: [4]Point{
					at(minS, minT), at(maxS, minT), at(maxS, maxT), at(minS, maxT),
				},
			}
			best.Center = at((minS+maxS)/2, (minT+maxT)/2)
		}
	}
	return best
}
