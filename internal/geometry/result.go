package geometry

import (
	"image"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// StrategyName tags the detection path that produced the border.
type StrategyName string

const (
	StrategyCanny           StrategyName = "canny_edge"
	StrategyAdaptive        StrategyName = "adaptive_threshold"
	StrategyColorBorder     StrategyName = "color_border"
	StrategyHoughLines      StrategyName = "hough_lines"
	StrategyLineReconstruct StrategyName = "line_reconstruct"
	StrategyInnerDeskew     StrategyName = "inner_deskew"
	StrategyFullImage       StrategyName = "fallback_full_image"
)

// WarpMetadata describes the perspective transform that was applied.
type WarpMetadata struct {
	// SourceCorners are in original image coordinates, ordered TL, TR, BR, BL.
	SourceCorners [4]utils.Point `json:"original_corners" yaml:"original_corners"`
	CanonicalSize [2]int         `json:"canonical_size"   yaml:"canonical_size"`
	// Homography maps padded source corners onto the canonical rectangle.
	Homography  [3][3]float64 `json:"homography_matrix" yaml:"homography_matrix"`
	Strategy    StrategyName  `json:"strategy_used"     yaml:"strategy_used"`
	Explanation string        `json:"explanation"       yaml:"explanation"`
}

// CanonicalResult is the output of normalization.
type CanonicalResult struct {
	Image    *image.NRGBA
	Metadata WarpMetadata
	Success  bool
	Error    string
}

// Candidate is a bordered quadrilateral proposed by a strategy.
type Candidate struct {
	Corners  [4]utils.Point // ordered TL, TR, BR, BL
	Area     float64
	Strategy StrategyName
}

func newCandidate(corners [4]utils.Point, strategy StrategyName) Candidate {
	ordered := utils.OrderCorners(corners[:])
	return Candidate{Corners: ordered, Area: utils.PolygonArea(ordered[:]), Strategy: strategy}
}

// quadVerticalExtent returns the top and bottom y of an ordered quad.
func quadVerticalExtent(q [4]utils.Point) (top, bottom float64) {
	top = min(q[0].Y, q[1].Y)
	bottom = max(q[2].Y, q[3].Y)
	return top, bottom
}
