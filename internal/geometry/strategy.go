package geometry

import (
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Strategy proposes border quadrilaterals for a scene.
type Strategy interface {
	Name() StrategyName
	Detect(s *Scene) []Candidate
}

// DefaultStrategies returns the detection strategies in evaluation order.
// With multi-strategy disabled only edge contours are used.
func DefaultStrategies(cfg Config) []Strategy {
	all := []Strategy{CannyStrategy{}, AdaptiveStrategy{}, ColorBorderStrategy{}, HoughStrategy{}}
	if !cfg.MultiStrategy {
		return all[:1]
	}
	return all
}

// contourStrategies are the strategies rerun after deskewing.
func contourStrategies() []Strategy {
	return []Strategy{CannyStrategy{}, AdaptiveStrategy{}, ColorBorderStrategy{}}
}

func minBoxArea(s *Scene, ratio float64) int {
	return int(ratio * s.Area())
}

// CannyStrategy traces contours of dilated edges of the contrast
// equalized image.
type CannyStrategy struct{}

// Name implements Strategy.
func (CannyStrategy) Name() StrategyName { return StrategyCanny }

// Detect implements Strategy.
func (c CannyStrategy) Detect(s *Scene) []Candidate {
	k := s.cfg.MorphKSize
	edges := imgproc.Canny(s.EnhancedBlurred(), s.cfg.CannyLow, s.cfg.CannyHigh)
	edges = imgproc.Dilate(edges, k, k, s.cfg.DilateIterations)
	contours := imgproc.FindContours(edges, minBoxArea(s, s.cfg.MinAreaRatio))
	return quadsFromContours(contours, s.Area(), s.cfg, c.Name())
}

// AdaptiveStrategy traces contours of an inverted local mean threshold,
// which copes with uneven lighting.
type AdaptiveStrategy struct{}

// Name implements Strategy.
func (AdaptiveStrategy) Name() StrategyName { return StrategyAdaptive }

// Detect implements Strategy.
func (a AdaptiveStrategy) Detect(s *Scene) []Candidate {
	k := s.cfg.MorphKSize
	bin := imgproc.AdaptiveMeanThresholdInv(s.EnhancedBlurred(), s.cfg.AdaptiveBlockSize, s.cfg.AdaptiveC)
	bin = imgproc.Close(bin, k, k, 2)
	bin = imgproc.Dilate(bin, k, k, s.cfg.DilateIterations)
	contours := imgproc.FindContours(bin, minBoxArea(s, s.cfg.MinAreaRatio))
	return quadsFromContours(contours, s.Area(), s.cfg, a.Name())
}

// ColorBorderStrategy targets the near black printed border directly.
type ColorBorderStrategy struct{}

// Name implements Strategy.
func (ColorBorderStrategy) Name() StrategyName { return StrategyColorBorder }

// Detect implements Strategy.
func (c ColorBorderStrategy) Detect(s *Scene) []Candidate {
	k := s.cfg.MorphKSize
	mask := imgproc.DarkMask(s.Src, 100, 80)
	mask = imgproc.Close(mask, k, k, 3)
	mask = imgproc.Dilate(mask, k, k, s.cfg.DilateIterations)
	contours := imgproc.FindContours(mask, minBoxArea(s, s.cfg.MinAreaRatio))
	return quadsFromContours(contours, s.Area(), s.cfg, c.Name())
}

// HoughStrategy builds a rectangle from the outermost long horizontal and
// vertical line segments. It helps when edges are broken and contours do
// not close.
type HoughStrategy struct{}

// Name implements Strategy.
func (HoughStrategy) Name() StrategyName { return StrategyHoughLines }

// Detect implements Strategy.
func (hs HoughStrategy) Detect(s *Scene) []Candidate {
	minLen := float64(min(s.W, s.H) / 4)
	segs := imgproc.HoughSegments(s.Edges(), 80, minLen, 20)
	if len(segs) < 4 {
		return nil
	}
	var horiz, vert []imgproc.Segment
	for _, seg := range segs {
		switch {
		case seg.IsHorizontal(15):
			horiz = append(horiz, seg)
		case seg.IsVertical(15):
			vert = append(vert, seg)
		}
	}
	if len(horiz) < 2 || len(vert) < 2 {
		return nil
	}
	sort.SliceStable(horiz, func(i, j int) bool { return horiz[i].MidY() < horiz[j].MidY() })
	sort.SliceStable(vert, func(i, j int) bool { return vert[i].MidX() < vert[j].MidX() })

	top, bottom := horiz[0].MidY(), horiz[len(horiz)-1].MidY()
	left, right := vert[0].MidX(), vert[len(vert)-1].MidX()
	q := [4]utils.Point{{X: left, Y: top}, {X: right, Y: top}, {X: right, Y: bottom}, {X: left, Y: bottom}}
	if !validQuad(q, s.Area(), s.cfg) {
		return nil
	}
	return []Candidate{newCandidate(q, hs.Name())}
}
