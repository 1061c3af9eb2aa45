package geometry

import (
	"math"
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// validQuad checks that an ordered quad is large enough and roughly card
// shaped.
func validQuad(q [4]utils.Point, imgArea float64, cfg Config) bool {
	ratio := utils.PolygonArea(q[:]) / math.Max(1, imgArea)
	if ratio < cfg.MinAreaRatio || ratio > cfg.MaxAreaRatio {
		return false
	}
	return aspectInRange(q, cfg.MinAspectRatio, cfg.MaxAspectRatio)
}

func aspectInRange(q [4]utils.Point, lo, hi float64) bool {
	w, h := utils.QuadSides(q)
	if h < 1 {
		return false
	}
	ar := w / h
	return ar >= lo && ar <= hi
}

// approxEpsilons lists the polygon tolerances tried per contour, first
// success wins.
func approxEpsilons(cfg Config) []float64 {
	eps := []float64{cfg.ApproxEpsilonRatio}
	for _, e := range []float64{0.03, 0.04, 0.05} {
		if e != cfg.ApproxEpsilonRatio {
			eps = append(eps, e)
		}
	}
	return eps
}

// quadsFromContours turns traced contours into valid quadrilaterals,
// largest first. Contours that do not simplify to a convex 4-gon fall back
// to their minimum area rectangle. Near-equal areas are deduplicated.
func quadsFromContours(contours []imgproc.Contour, imgArea float64, cfg Config, strategy StrategyName) []Candidate {
	seen := make(map[int64]bool)
	var out []Candidate
	add := func(q [4]utils.Point) {
		c := newCandidate(q, strategy)
		key := int64(math.Round(c.Area / 1000))
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, c)
	}

	eps := approxEpsilons(cfg)
	for _, cnt := range contours {
		if cnt.Area()/imgArea < cfg.MinAreaRatio {
			continue
		}
		peri := utils.Perimeter(cnt.Points)
		found := false
		for _, e := range eps {
			approx := utils.ApproxPolygon(cnt.Points, e*peri)
			if len(approx) != 4 || !utils.IsConvex(approx) {
				continue
			}
			q := utils.OrderCorners(approx)
			if validQuad(q, imgArea, cfg) {
				add(q)
				found = true
				break
			}
		}
		if found {
			continue
		}
		rect := utils.MinAreaRect(cnt.Points)
		var box [4]utils.Point
		for i, p := range rect.Corners {
			box[i] = utils.Point{X: math.Trunc(p.X), Y: math.Trunc(p.Y)}
		}
		q := utils.OrderCorners(box[:])
		if validQuad(q, imgArea, cfg) {
			add(q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Area > out[j].Area })
	return out
}
