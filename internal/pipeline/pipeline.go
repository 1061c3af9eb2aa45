// Package pipeline chains border normalization, text layout discovery and
// field extraction into one run over a card image.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/nagarikta/internal/geometry"
	"github.com/MeKo-Tech/nagarikta/internal/layout"
	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/semantic"
)

// Config holds the configuration of every phase.
type Config struct {
	Geometry geometry.Config
	Layout   layout.Config
	Semantic semantic.Config
	Engine   ocrengine.Config
	Parallel ParallelConfig
}

// DefaultConfig returns the component defaults.
func DefaultConfig() Config {
	return Config{
		Geometry: geometry.DefaultConfig(),
		Layout:   layout.DefaultConfig(),
		Semantic: semantic.DefaultConfig(),
		Engine:   ocrengine.DefaultConfig(),
		Parallel: DefaultParallelConfig(),
	}
}

// Option customizes a Pipeline.
type Option func(*options)

type options struct {
	recognizer layout.Recognizer
	geography  *semantic.Geography
}

// WithRecognizer replaces the engine handle built from Config.Engine.
func WithRecognizer(r layout.Recognizer) Option {
	return func(o *options) { o.recognizer = r }
}

// WithGeography replaces the embedded district table.
func WithGeography(g *semantic.Geography) Option {
	return func(o *options) { o.geography = g }
}

// Pipeline runs the three extraction phases. It is safe for concurrent
// use; OCR calls are serialized by the engine handle.
type Pipeline struct {
	cfg       Config
	norm      *geometry.Normalizer
	layout    *layout.Service
	extractor *semantic.Extractor
	handle    *ocrengine.Handle // nil when a recognizer was injected
}

// New builds a Pipeline. OCR engines are loaded on first use.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Semantic.Validate(); err != nil {
		return nil, fmt.Errorf("invalid semantic config: %w", err)
	}
	norm, err := geometry.New(cfg.Geometry)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, norm: norm}
	rec := o.recognizer
	if rec == nil {
		p.handle = ocrengine.NewHandle(cfg.Engine)
		rec = p.handle
	}
	if p.layout, err = layout.New(cfg.Layout, rec); err != nil {
		return nil, err
	}
	p.extractor = semantic.New(cfg.Semantic, o.geography)
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Close releases the OCR engines.
func (p *Pipeline) Close() error {
	if p.handle == nil {
		return nil
	}
	return p.handle.Close()
}

// Run loads an image or PDF scan from disk and extracts its fields.
func (p *Pipeline) Run(ctx context.Context, path string) *Result {
	img, err := Load(path)
	if err != nil {
		return failedResult(PhaseNormalize, fmt.Errorf("cannot read image: %w", err))
	}
	return p.RunImage(ctx, img)
}

// RunBytes decodes an uploaded image or PDF and extracts its fields.
func (p *Pipeline) RunBytes(ctx context.Context, data []byte) *Result {
	img, err := Decode(data)
	if err != nil {
		return failedResult(PhaseNormalize, err)
	}
	return p.RunImage(ctx, img)
}

// RunImage extracts the fields of an already decoded image.
func (p *Pipeline) RunImage(ctx context.Context, img image.Image) *Result {
	return p.Stream(ctx, img, nil)
}

// Stream is RunImage reporting phase boundaries to obs. A failing phase
// ends the run with Success false and an error naming the phase; a
// cancelled context is noticed between phases.
func (p *Pipeline) Stream(ctx context.Context, img image.Image, obs PhaseObserver) *Result {
	if obs == nil {
		obs = NoOpObserver{}
	}
	res := newResult()
	start := time.Now()
	defer func() { res.Timing["total_s"] = round(time.Since(start).Seconds(), 3) }()

	var canon geometry.CanonicalResult
	ok := p.phase(ctx, res, PhaseNormalize, obs, func() error {
		canon = p.norm.Normalize(img)
		if !canon.Success {
			return errors.New(canon.Error)
		}
		return nil
	})
	if !ok {
		return res
	}
	res.Canonical = canon.Image
	meta := canon.Metadata
	res.WarpMetadata = &meta

	var l layout.Layout
	ok = p.phase(ctx, res, PhaseLayout, obs, func() error {
		var err error
		l, err = p.layout.DetectAndLayout(ctx, canon.Image)
		return err
	})
	if !ok {
		return res
	}
	res.setLayout(l)

	var sem semantic.Result
	ok = p.phase(ctx, res, PhaseSemantic, obs, func() error {
		sem = p.extractor.Extract(l, canon.Image.Bounds().Dy())
		return nil
	})
	if !ok {
		return res
	}
	res.setSemantic(sem, l)
	slog.Info("extraction finished",
		"run_id", res.RunID, "strategy", meta.Strategy, "engine", l.Engine,
		"fields", len(res.Fields), "flags", len(res.FlagsForReview))
	return res
}

func (p *Pipeline) phase(ctx context.Context, res *Result, ph Phase, obs PhaseObserver, fn func() error) bool {
	start := time.Now()
	obs.PhaseStarted(ph)
	err := ctx.Err()
	if err == nil {
		err = guarded(fn)
	}
	d := time.Since(start)
	res.Timing[ph.TimingKey()] = round(d.Seconds(), 3)
	obs.PhaseFinished(ph, d, err)
	if err != nil {
		res.fail(ph, err)
		slog.Warn("extraction phase failed", "run_id", res.RunID, "phase", ph.String(), "error", err)
		return false
	}
	return true
}

func guarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func failedResult(ph Phase, err error) *Result {
	res := newResult()
	res.fail(ph, err)
	return res
}

func newResult() *Result {
	return &Result{
		RunID:            uuid.NewString(),
		Fields:           map[string]semantic.Value{},
		FieldConfidences: map[string]float64{},
		ValidationIssues: []semantic.Issue{},
		FlagsForReview:   []string{},
		BoxRoles:         []BoxRole{},
		Timing:           map[string]float64{},
		Success:          true,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
