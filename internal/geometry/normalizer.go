package geometry

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/nagarikta/internal/imgproc"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Normalizer detects the information box border and warps it to the
// canonical size. It holds no per-image state and is safe for concurrent
// use.
type Normalizer struct {
	cfg        Config
	strategies []Strategy
	stages     []Stage
}

// New creates a Normalizer with the default strategies and stages.
func New(cfg Config) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry config: %w", err)
	}
	return &Normalizer{cfg: cfg, strategies: DefaultStrategies(cfg), stages: DefaultStages()}, nil
}

// NewDefault creates a Normalizer with DefaultConfig.
func NewDefault() *Normalizer {
	cfg := DefaultConfig()
	return &Normalizer{cfg: cfg, strategies: DefaultStrategies(cfg), stages: DefaultStages()}
}

// Config returns the active configuration.
func (n *Normalizer) Config() Config { return n.cfg }

// NormalizeFile loads an image from disk and normalizes it. Unreadable or
// undecodable files produce a failed result.
func (n *Normalizer) NormalizeFile(path string) CanonicalResult {
	img, err := utils.LoadImage(path)
	if err != nil {
		return n.failed(fmt.Errorf("cannot read image: %w", err))
	}
	return n.Normalize(img)
}

// NormalizeBytes decodes raw image bytes and normalizes them.
func (n *Normalizer) NormalizeBytes(data []byte) CanonicalResult {
	img, err := utils.DecodeImage(data)
	if err != nil {
		return n.failed(err)
	}
	return n.Normalize(img)
}

// Normalize locates the border in img and warps it to the canonical size.
// It only fails for an empty image; when no border is found the whole
// image is used.
func (n *Normalizer) Normalize(img image.Image) CanonicalResult {
	if img == nil || img.Bounds().Empty() {
		return n.failed(fmt.Errorf("%w: empty image", utils.ErrDecode))
	}
	scene := NewScene(img, n.cfg)
	sel := n.Detect(scene)

	padded := padCorners(sel.Corners, scene.W, scene.H)
	cw, ch := n.cfg.CanonicalWidth, n.cfg.CanonicalHeight
	hm, ok := computeHomography(padded, canonicalCorners(cw, ch))
	var inv [3][3]float64
	if ok {
		inv, ok = invert3x3(hm)
	}
	if !ok {
		slog.Warn("degenerate border, warping full image", "strategy", sel.Strategy)
		sel = Selection{Corners: fullImageQuad(scene.W, scene.H), Strategy: StrategyFullImage}
		padded = sel.Corners
		hm, _ = computeHomography(padded, canonicalCorners(cw, ch))
		inv, _ = invert3x3(hm)
	}

	warped := imgproc.WarpPerspective(scene.Src, inv, cw, ch)
	return CanonicalResult{
		Image: warped,
		Metadata: WarpMetadata{
			SourceCorners: utils.OrderCorners(sel.Corners[:]),
			CanonicalSize: [2]int{cw, ch},
			Homography:    hm,
			Strategy:      sel.Strategy,
			Explanation:   fmt.Sprintf("Border detected via '%s' strategy.", sel.Strategy),
		},
		Success: true,
	}
}

// Detect runs the strategies and the stage chain over a scene and returns
// the chosen border. Stages run even when no strategy produced a
// candidate, since line reconstruction and deskewing work from the raw
// image. A panic inside detection degrades to the full image.
func (n *Normalizer) Detect(s *Scene) (sel Selection) {
	full := Selection{Corners: fullImageQuad(s.W, s.H), Strategy: StrategyFullImage}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("border detection panicked", "panic", r)
			sel = full
		}
	}()

	var cands []Candidate
	for _, st := range n.strategies {
		found := st.Detect(s)
		slog.Debug("strategy finished", "strategy", st.Name(), "candidates", len(found))
		cands = append(cands, found...)
	}
	pool := Classify(cands, s.H)

	for _, stage := range n.stages {
		if picked, ok := stage.Select(s, pool); ok {
			slog.Debug("border selected", "stage", stage.Name(), "strategy", picked.Strategy)
			return picked
		}
	}
	slog.Debug("no border found, using full image")
	return full
}

func (n *Normalizer) failed(err error) CanonicalResult {
	if err == nil {
		err = errors.New("unknown failure")
	}
	cw, ch := n.cfg.CanonicalWidth, n.cfg.CanonicalHeight
	return CanonicalResult{
		Image:    image.NewNRGBA(image.Rect(0, 0, cw, ch)),
		Metadata: WarpMetadata{CanonicalSize: [2]int{cw, ch}},
		Success:  false,
		Error:    err.Error(),
	}
}
