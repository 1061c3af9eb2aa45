package geometry

import (
	"sort"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// innerBottomRatio and innerHeightRatio bound where the information box
// may sit: its lower edge and its height both stay within the top 75%.
const (
	innerBottomRatio = 0.75
	innerHeightRatio = 0.75
	idealInnerAspect = 2.0
)

// Pool is every candidate proposed for a scene, split into inner box and
// whole card candidates and ranked best first.
type Pool struct {
	Inner []Ranked
	Outer []Ranked
}

// Ranked is a candidate with its selection score.
type Ranked struct {
	Candidate
	Score float64
}

// Classify splits candidates into inner and outer and ranks them. Inner
// candidates score area times closeness to a 2:1 aspect, outer ones area.
func Classify(cands []Candidate, imgH int) Pool {
	var p Pool
	h := float64(imgH)
	for _, c := range cands {
		top, bottom := quadVerticalExtent(c.Corners)
		if bottom < innerBottomRatio*h && bottom-top < innerHeightRatio*h {
			qw, qh := utils.QuadSides(c.Corners)
			ar := qw / max(1, qh)
			arScore := 1 / (1 + abs(ar-idealInnerAspect))
			p.Inner = append(p.Inner, Ranked{Candidate: c, Score: c.Area * arScore})
			continue
		}
		p.Outer = append(p.Outer, Ranked{Candidate: c, Score: c.Area})
	}
	byScore := func(r []Ranked) func(i, j int) bool {
		return func(i, j int) bool { return r[i].Score > r[j].Score }
	}
	sort.SliceStable(p.Inner, byScore(p.Inner))
	sort.SliceStable(p.Outer, byScore(p.Outer))
	return p
}

// Selection is the border chosen by a stage.
type Selection struct {
	Corners  [4]utils.Point
	Strategy StrategyName
}

// Stage is one step of the fallback chain. Stages run in order and the
// first one that selects a border wins.
type Stage interface {
	Name() string
	Select(s *Scene, pool Pool) (Selection, bool)
}

// DefaultStages returns inner box, line reconstruction, deskew and whole
// card selection in that order.
func DefaultStages() []Stage {
	return []Stage{innerStage{}, lineReconstructStage{}, deskewStage{}, outerStage{}}
}

type innerStage struct{}

func (innerStage) Name() string { return "inner" }

func (innerStage) Select(s *Scene, pool Pool) (Selection, bool) {
	if len(pool.Inner) == 0 {
		return Selection{}, false
	}
	best := pool.Inner[0]
	return Selection{Corners: refineCorners(s, best.Corners), Strategy: best.Strategy}, true
}

type lineReconstructStage struct{}

func (lineReconstructStage) Name() string { return string(StrategyLineReconstruct) }

func (lineReconstructStage) Select(s *Scene, _ Pool) (Selection, bool) {
	q, ok := reconstructFromLines(s)
	if !ok {
		return Selection{}, false
	}
	return Selection{Corners: q, Strategy: StrategyLineReconstruct}, true
}

type deskewStage struct{}

func (deskewStage) Name() string { return string(StrategyInnerDeskew) }

func (deskewStage) Select(s *Scene, _ Pool) (Selection, bool) {
	angle, ok := detectInnerTilt(s)
	if !ok {
		return Selection{}, false
	}
	q, ok := deskewAndDetect(s, angle)
	if !ok {
		return Selection{}, false
	}
	return Selection{Corners: q, Strategy: StrategyInnerDeskew}, true
}

type outerStage struct{}

func (outerStage) Name() string { return "outer" }

func (outerStage) Select(_ *Scene, pool Pool) (Selection, bool) {
	if len(pool.Outer) == 0 {
		return Selection{}, false
	}
	best := pool.Outer[0]
	return Selection{Corners: best.Corners, Strategy: best.Strategy}, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
