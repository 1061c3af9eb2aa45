// Package utils holds the geometry primitives, polygon helpers and image IO
// shared by the normalization, layout and artifact code.
package utils

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Box represents an axis-aligned bounding box in float coordinates.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBox constructs a Box from min/max coordinates ensuring ordering.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	if b.MaxX <= b.MinX || b.MaxY <= b.MinY {
		return 0
	}
	return b.Width() * b.Height()
}

// Center returns the box centre.
func (b Box) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// IntersectionArea returns the overlapping area of two boxes.
func (b Box) IntersectionArea(o Box) float64 {
	w := math.Min(b.MaxX, o.MaxX) - math.Max(b.MinX, o.MinX)
	h := math.Min(b.MaxY, o.MaxY) - math.Max(b.MinY, o.MinY)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// ToRect converts a Box to an image.Rectangle, clamped to image bounds.
func (b Box) ToRect(bounds image.Rectangle) image.Rectangle {
	x1 := ClampInt(int(math.Floor(b.MinX)), bounds.Min.X, bounds.Max.X)
	y1 := ClampInt(int(math.Floor(b.MinY)), bounds.Min.Y, bounds.Max.Y)
	x2 := ClampInt(int(math.Ceil(b.MaxX)), bounds.Min.X, bounds.Max.X)
	y2 := ClampInt(int(math.Ceil(b.MaxY)), bounds.Min.Y, bounds.Max.Y)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return image.Rect(x1, y1, x2, y2)
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat limits v to [lo, hi].
func ClampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// BoundingBox computes the axis-aligned bounding box of the points.
func BoundingBox(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	b := Box{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[0].X, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// OrderCorners orders four points as top-left, top-right, bottom-right,
// bottom-left. Top-left has the smallest x+y, bottom-right the largest,
// top-right the smallest y-x and bottom-left the largest y-x.
func OrderCorners(pts []Point) [4]Point {
	var out [4]Point
	if len(pts) == 0 {
		return out
	}
	minSum, maxSum, minDiff, maxDiff := 0, 0, 0, 0
	for i, p := range pts {
		s, d := p.X+p.Y, p.Y-p.X
		if s < pts[minSum].X+pts[minSum].Y {
			minSum = i
		}
		if s > pts[maxSum].X+pts[maxSum].Y {
			maxSum = i
		}
		if d < pts[minDiff].Y-pts[minDiff].X {
			minDiff = i
		}
		if d > pts[maxDiff].Y-pts[maxDiff].X {
			maxDiff = i
		}
	}
	out[0] = pts[minSum]
	out[1] = pts[minDiff]
	out[2] = pts[maxSum]
	out[3] = pts[maxDiff]
	return out
}

// QuadSides returns the mean width and mean height of an ordered quad.
func QuadSides(q [4]Point) (float64, float64) {
	w := (q[1].Dist(q[0]) + q[2].Dist(q[3])) / 2
	h := (q[3].Dist(q[0]) + q[2].Dist(q[1])) / 2
	return w, h
}
