package geometry

import (
	"math"
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// minTiltDeg is the smallest tilt worth straightening.
const minTiltDeg = 0.3

// detectInnerTilt estimates the rotation of the inner box from the largest
// edge contour whose minimum area rectangle looks like it: 8-65% of the
// image, aspect 1.3-4.5, centre in the upper three quarters.
func detectInnerTilt(s *Scene) (float64, bool) {
	contours := imgproc.FindContours(s.DilatedEdges(), minBoxArea(s, 0.08))
	bestArea := 0.0
	bestAngle := 0.0
	found := false
	for _, c := range contours {
		area := c.Area()
		ratio := area / s.Area()
		if ratio < 0.08 || ratio > 0.65 {
			continue
		}
		rect := utils.MinAreaRect(c.Points)
		if rect.Width < 1 || rect.Height < 1 {
			continue
		}
		if ar := rect.AspectRatio(); ar < 1.3 || ar > 4.5 {
			continue
		}
		if rect.Center.Y > 0.75*float64(s.H) {
			continue
		}
		if area > bestArea {
			bestArea = area
			bestAngle = rect.LongSideAngle()
			found = true
		}
	}
	if !found || math.Abs(bestAngle) <= minTiltDeg {
		return 0, false
	}
	return bestAngle, true
}

// deskewAndDetect rotates the scene by angle, reruns the contour
// strategies on the straightened image and maps the best inner box back
// to source coordinates.
func deskewAndDetect(s *Scene, angle float64) ([4]utils.Point, bool) {
	rotated, fwd := imgproc.RotateExpanded(s.Src, angle)
	rs := NewScene(rotated, s.cfg)
	nh := float64(rs.H)

	var inner []Candidate
	for _, st := range contourStrategies() {
		for _, c := range st.Detect(rs) {
			top, bottom := quadVerticalExtent(c.Corners)
			if bottom < 0.78*nh && bottom-top < 0.75*nh {
				inner = append(inner, c)
			}
		}
	}
	if len(inner) == 0 {
		if q, ok := houghInnerBox(rs); ok {
			inner = append(inner, newCandidate(q, StrategyInnerDeskew))
		}
	}
	if len(inner) == 0 {
		return [4]utils.Point{}, false
	}
	sort.SliceStable(inner, func(i, j int) bool { return inner[i].Area > inner[j].Area })

	inv := fwd.Invert()
	var back [4]utils.Point
	for i, p := range inner[0].Corners {
		back[i] = inv.Apply(p)
	}
	return utils.OrderCorners(back[:]), true
}

// houghInnerBox builds an axis aligned box from the two topmost clusters of
// long horizontal lines in the upper three quarters of the scene.
func houghInnerBox(s *Scene) ([4]utils.Point, bool) {
	var none [4]utils.Point
	h := float64(s.H)
	segs := imgproc.HoughSegments(s.Edges(), 80, float64(s.W/4), 20)
	if len(segs) < 2 {
		return none, false
	}
	var horiz []imgproc.Segment
	for _, seg := range segs {
		if seg.IsHorizontal(15) && seg.MidY() < 0.75*h {
			horiz = append(horiz, seg)
		}
	}
	if len(horiz) < 2 {
		return none, false
	}
	sort.SliceStable(horiz, func(i, j int) bool { return horiz[i].MidY() < horiz[j].MidY() })

	type cluster struct {
		sumY, minX, maxX float64
		n                int
	}
	var clusters []cluster
	prevY := math.Inf(-1)
	for _, seg := range horiz {
		y := seg.MidY()
		if len(clusters) == 0 || math.Abs(y-prevY) >= 15 {
			clusters = append(clusters, cluster{minX: math.Inf(1), maxX: math.Inf(-1)})
		}
		c := &clusters[len(clusters)-1]
		c.sumY += y
		c.n++
		c.minX = math.Min(c.minX, math.Min(seg.X1, seg.X2))
		c.maxX = math.Max(c.maxX, math.Max(seg.X1, seg.X2))
		prevY = y
	}
	if len(clusters) < 2 {
		return none, false
	}
	top := clusters[0].sumY / float64(clusters[0].n)
	last := clusters[len(clusters)-1]
	bottom := last.sumY / float64(last.n)
	left := math.Min(clusters[0].minX, clusters[1].minX)
	right := math.Max(clusters[0].maxX, clusters[1].maxX)

	boxH, boxW := bottom-top, right-left
	if boxH < 50 || boxW < 100 {
		return none, false
	}
	if ar := boxW / boxH; ar < 1.3 || ar > 4.5 {
		return none, false
	}
	return [4]utils.Point{{X: left, Y: top}, {X: right, Y: top}, {X: right, Y: bottom}, {X: left, Y: bottom}}, true
}
