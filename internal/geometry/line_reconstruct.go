package geometry

import (
	"math"
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

const (
	probeStep      = 20  // px between extension probes
	probeBand      = 35  // ± px around the predicted border y
	probeDarkLevel = 140 // gray below this counts as border ink
)

// lineCluster is a group of horizontal segments at a similar height.
type lineCluster struct {
	segs        []imgproc.Segment
	left, right float64 // x extent of the longest segment
	xs, ys      []float64
	meanY       float64
}

func (c *lineCluster) span() float64 { return c.right - c.left }

// buildCluster summarises segs. When refLeft < refRight only segments whose
// endpoints lie within the reference range padded by 15% are kept.
func buildCluster(segs []imgproc.Segment, refLeft, refRight float64, filter bool) *lineCluster {
	if filter {
		pad := 0.15 * (refRight - refLeft)
		kept := segs[:0:0]
		for _, s := range segs {
			if math.Min(s.X1, s.X2) >= refLeft-pad && math.Max(s.X1, s.X2) <= refRight+pad {
				kept = append(kept, s)
			}
		}
		segs = kept
	}
	if len(segs) == 0 {
		return nil
	}
	best := segs[0]
	for _, s := range segs[1:] {
		if s.Length() > best.Length() {
			best = s
		}
	}
	c := &lineCluster{segs: segs, left: math.Min(best.X1, best.X2), right: math.Max(best.X1, best.X2)}
	sum := 0.0
	for _, s := range segs {
		c.xs = append(c.xs, s.X1, s.X2)
		c.ys = append(c.ys, s.Y1, s.Y2)
		sum += s.Y1 + s.Y2
	}
	c.meanY = sum / float64(len(c.ys))
	return c
}

// fitLine returns slope and intercept of the least squares line y = a*x + b.
func fitLine(xs, ys []float64) (float64, float64) {
	n := float64(len(xs))
	if len(xs) < 2 {
		return 0, mean(ys)
	}
	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-9 {
		return 0, sy / n
	}
	a := (n*sxy - sx*sy) / den
	return a, (sy - a*sx) / n
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

// reconstructFromLines infers the inner box from two horizontal edge
// clusters when its contour never closes, typically because the vertical
// sides are broken or faint. The box is widened along the fitted border
// lines while ink continues.
func reconstructFromLines(s *Scene) ([4]utils.Point, bool) {
	var none [4]utils.Point
	w, h := float64(s.W), float64(s.H)

	segs := imgproc.HoughSegments(s.Edges(), 60, float64(s.W/6), 25)
	if len(segs) < 4 {
		return none, false
	}
	var horiz []imgproc.Segment
	for _, seg := range segs {
		if seg.IsHorizontal(15) && seg.MidY() < 0.75*h {
			horiz = append(horiz, seg)
		}
	}
	if len(horiz) < 4 {
		return none, false
	}

	gap := math.Max(15, float64(int(h*0.025)))
	sort.SliceStable(horiz, func(i, j int) bool { return horiz[i].MidY() < horiz[j].MidY() })
	var groups [][]imgproc.Segment
	cur := []imgproc.Segment{horiz[0]}
	for _, seg := range horiz[1:] {
		if seg.MidY()-cur[len(cur)-1].MidY() > gap {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, seg)
	}
	groups = append(groups, cur)

	type initial struct {
		info *lineCluster
		raw  []imgproc.Segment
	}
	var firstPass []initial
	for _, g := range groups {
		if info := buildCluster(g, 0, 0, false); info != nil && info.span() > 0.40*w {
			firstPass = append(firstPass, initial{info: info, raw: g})
		}
	}
	if len(firstPass) < 2 {
		return none, false
	}
	sort.SliceStable(firstPass, func(i, j int) bool { return firstPass[i].info.meanY < firstPass[j].info.meanY })
	top := firstPass[0].info

	// Rebuild lower clusters restricted to the top cluster's x range so
	// outer card lines running past the inner box are ignored.
	var bottom *lineCluster
	for _, in := range firstPass[1:] {
		rebuilt := buildCluster(in.raw, top.left, top.right, true)
		if rebuilt == nil || rebuilt.span() <= 0.30*w {
			continue
		}
		if bottom == nil || rebuilt.meanY > bottom.meanY {
			bottom = rebuilt
		}
	}
	if bottom == nil || bottom.meanY-top.meanY < 0.15*h {
		return none, false
	}

	topA, topB := fitLine(top.xs, top.ys)
	botA, botB := fitLine(bottom.xs, bottom.ys)
	gray := s.Gray()
	inked := func(x int) bool {
		return darkNear(gray, x, int(topA*float64(x)+topB)) || darkNear(gray, x, int(botA*float64(x)+botB))
	}

	left, right := top.left, top.right
	for x := int(right) + probeStep; x < s.W; x += probeStep {
		if !inked(x) {
			break
		}
		right = float64(x)
	}
	for x := int(left) - probeStep; x >= 0; x -= probeStep {
		if !inked(x) {
			break
		}
		left = float64(x)
	}

	tl := utils.Point{X: left, Y: topA*left + topB}
	tr := utils.Point{X: right, Y: topA*right + topB}
	bl := utils.Point{X: left, Y: botA*left + botB}
	br := utils.Point{X: right, Y: botA*right + botB}

	boxW := right - left
	boxH := ((bl.Y - tl.Y) + (br.Y - tr.Y)) / 2
	if boxH < 50 || boxW < 100 {
		return none, false
	}
	ar := boxW / boxH
	if ar < s.cfg.MinAspectRatio || ar > s.cfg.MaxAspectRatio {
		return none, false
	}
	if math.Max(bl.Y, br.Y) >= 0.75*h {
		return none, false
	}
	return utils.OrderCorners([]utils.Point{tl, tr, br, bl}), true
}

// darkNear reports whether column x has ink within probeBand of y. The
// probe is skipped when the band would leave the image.
func darkNear(g *imgproc.Gray, x, y int) bool {
	if x < 0 || x >= g.W || y-probeBand < 0 || y+probeBand >= g.H {
		return false
	}
	for yy := y - probeBand; yy < y+probeBand; yy++ {
		if g.At(x, yy) < probeDarkLevel {
			return true
		}
	}
	return false
}
