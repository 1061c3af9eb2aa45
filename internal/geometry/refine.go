package geometry

import (
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

const (
	refineSearchY    = 80  // ± px searched around each corner
	refineStripHalfX = 20  // ± px averaged across each corner
	refineStrongEdge = 500 // minimum mean |Sobel-y| of a real border edge
)

// refineCorners snaps each corner's y onto the nearest strong horizontal
// edge. When only one vertical side has two strong corners, a weak corner
// on the other side is predicted from the strong side's height.
func refineCorners(s *Scene, q [4]utils.Point) [4]utils.Point {
	sobel := imgproc.SobelY5Abs(s.Gray())
	refined := q
	var strength [4]float64

	for i, p := range q {
		cx, cy := int(p.X), int(p.Y)
		y0 := max(0, cy-refineSearchY)
		strip := sobel.RowMeans(cx-refineStripHalfX, cx+refineStripHalfX, y0, cy+refineSearchY)
		type peak struct {
			dist, y int
			v       float64
		}
		var peaks []peak
		for j := 1; j < len(strip)-1; j++ {
			if strip[j] > strip[j-1] && strip[j] >= strip[j+1] && strip[j] >= refineStrongEdge {
				y := y0 + j
				peaks = append(peaks, peak{dist: absInt(y - cy), y: y, v: strip[j]})
			}
		}
		if len(peaks) == 0 {
			continue
		}
		sort.SliceStable(peaks, func(a, b int) bool {
			if peaks[a].dist != peaks[b].dist {
				return peaks[a].dist < peaks[b].dist
			}
			return peaks[a].y < peaks[b].y
		})
		strength[i] = peaks[0].v
		refined[i].Y = float64(peaks[0].y)
	}

	strong := func(i int) bool { return strength[i] >= refineStrongEdge }
	leftOK := strong(0) && strong(3)
	rightOK := strong(1) && strong(2)
	switch {
	case rightOK && !leftOK:
		rightH := refined[2].Y - refined[1].Y
		if strong(0) && !strong(3) {
			refined[3].Y = refined[0].Y + rightH
		} else if strong(3) && !strong(0) {
			refined[0].Y = refined[3].Y - rightH
		}
	case leftOK && !rightOK:
		leftH := refined[3].Y - refined[0].Y
		if strong(1) && !strong(2) {
			refined[2].Y = refined[1].Y + leftH
		} else if strong(2) && !strong(1) {
			refined[1].Y = refined[2].Y - leftH
		}
	}
	return clampQuad(refined, s.W, s.H)
}

// padCorners expands an ordered quad outward by 5% of its mean width and 4%
// of its mean height so text touching the border survives the warp.
func padCorners(q [4]utils.Point, w, h int) [4]utils.Point {
	q = utils.OrderCorners(q[:])
	boxW, boxH := utils.QuadSides(q)
	px, py := boxW*0.05, boxH*0.04
	q[0].X, q[0].Y = q[0].X-px, q[0].Y-py
	q[1].X, q[1].Y = q[1].X+px, q[1].Y-py
	q[2].X, q[2].Y = q[2].X+px, q[2].Y+py
	q[3].X, q[3].Y = q[3].X-px, q[3].Y+py
	return clampQuad(q, w, h)
}

func clampQuad(q [4]utils.Point, w, h int) [4]utils.Point {
	for i := range q {
		q[i].X = utils.ClampFloat(q[i].X, 0, float64(w-1))
		q[i].Y = utils.ClampFloat(q[i].Y, 0, float64(h-1))
	}
	return q
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// fullImageQuad covers the whole scene.
func fullImageQuad(w, h int) [4]utils.Point {
	fw, fh := float64(w-1), float64(h-1)
	return [4]utils.Point{{X: 0, Y: 0}, {X: fw, Y: 0}, {X: fw, Y: fh}, {X: 0, Y: fh}}
}
