// Package layout turns OCR detections on a canonical card image into
// boxes grouped by text row.
package layout

import (
	"math"
	"strings"

	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Role is the semantic role assigned to a box during field extraction.
type Role string

const (
	RoleUnset Role = ""
	RoleLabel Role = "LABEL"
	RoleValue Role = "VALUE"
	RoleNoise Role = "NOISE"
)

// Box is one recognized text region with its axis aligned bounds.
type Box struct {
	X0, Y0, X1, Y1 float64
	CX, CY         float64
	Points         [4]utils.Point // detector polygon, TL TR BR BL
	Text           string
	Confidence     float64
	Role           Role
}

// NewBox builds a Box from a detector polygon.
func NewBox(pts [4]utils.Point, text string, conf float64) *Box {
	bb := utils.BoundingBox(pts[:])
	return &Box{
		X0:         bb.MinX,
		Y0:         bb.MinY,
		X1:         bb.MaxX,
		Y1:         bb.MaxY,
		CX:         (bb.MinX + bb.MaxX) / 2,
		CY:         (bb.MinY + bb.MaxY) / 2,
		Points:     pts,
		Text:       text,
		Confidence: conf,
	}
}

// FromDetection converts an engine detection.
func FromDetection(d ocrengine.Detection) *Box {
	return NewBox(d.Polygon, d.Text, d.Confidence)
}

// Width of the bounding rectangle.
func (b *Box) Width() float64 { return b.X1 - b.X0 }

// Height of the bounding rectangle.
func (b *Box) Height() float64 { return b.Y1 - b.Y0 }

// Area of the bounding rectangle, never less than one.
func (b *Box) Area() float64 { return math.Max(1, b.Width()*b.Height()) }

// HasText reports whether the box carries non-blank text.
func (b *Box) HasText() bool { return strings.TrimSpace(b.Text) != "" }

// PolygonCenterY is the mean y of the four polygon corners.
func (b *Box) PolygonCenterY() float64 {
	var s float64
	for _, p := range b.Points {
		s += p.Y
	}
	return s / 4
}

// overlap returns the intersection of a and b over the smaller area, so a
// box fully inside another scores 1.
func overlap(a, b *Box) float64 {
	w := math.Min(a.X1, b.X1) - math.Max(a.X0, b.X0)
	h := math.Min(a.Y1, b.Y1) - math.Max(a.Y0, b.Y0)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h / math.Min(a.Area(), b.Area())
}
