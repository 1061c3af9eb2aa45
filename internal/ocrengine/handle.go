package ocrengine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// Output is the result of one Handle call.
type Output struct {
	Detections []Detection
	Engine     string // engine that produced the detections
	Fallback   bool   // true when the primary engine failed
}

// Handle owns the engine instances of a service. Engines are created on
// first use, and a single mutex keeps exactly one engine call in flight,
// since native inference backends are not reentrant.
type Handle struct {
	mu       sync.Mutex
	cfg      Config
	registry Registry
	engines  map[string]Engine
}

// HandleOption customizes a Handle.
type HandleOption func(*Handle)

// WithRegistry replaces the engine registry.
func WithRegistry(r Registry) HandleOption {
	return func(h *Handle) { h.registry = r }
}

// NewHandle creates a Handle. No engine is loaded until Recognize is
// called.
func NewHandle(cfg Config, opts ...HandleOption) *Handle {
	h := &Handle{cfg: cfg, registry: DefaultRegistry(), engines: make(map[string]Engine)}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Config returns the engine configuration.
func (h *Handle) Config() Config { return h.cfg }

// Recognize runs the primary engine and, if it cannot be created or
// fails, the fallback engine once. Both failing yields
// ErrEngineUnavailable wrapping both causes.
func (h *Handle) Recognize(ctx context.Context, img image.Image) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	dets, primaryErr := h.run(ctx, h.cfg.Primary, img)
	if primaryErr == nil {
		return Output{Detections: dets, Engine: h.cfg.Primary}, nil
	}
	fb := h.cfg.Fallback
	if fb == "" || fb == h.cfg.Primary {
		return Output{}, fmt.Errorf("%w: %s: %w", ErrEngineUnavailable, h.cfg.Primary, primaryErr)
	}
	slog.Warn("primary ocr engine failed, using fallback",
		"engine", h.cfg.Primary, "fallback", fb, "error", primaryErr)

	dets, fallbackErr := h.run(ctx, fb, img)
	if fallbackErr != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, errors.Join(
			fmt.Errorf("%s: %w", h.cfg.Primary, primaryErr),
			fmt.Errorf("%s: %w", fb, fallbackErr)))
	}
	return Output{Detections: dets, Engine: fb, Fallback: true}, nil
}

// run must be called with h.mu held.
func (h *Handle) run(ctx context.Context, name string, img image.Image) (dets []Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine %s panicked: %v", name, r)
		}
	}()
	eng, err := h.engine(name)
	if err != nil {
		return nil, err
	}
	return eng.Recognize(ctx, img)
}

func (h *Handle) engine(name string) (Engine, error) {
	if eng, ok := h.engines[name]; ok {
		return eng, nil
	}
	eng, err := h.registry.New(name, h.cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", name, err)
	}
	slog.Info("ocr engine loaded", "engine", name)
	h.engines[name] = eng
	return eng, nil
}

// Loaded lists the engines created so far.
func (h *Handle) Loaded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.engines))
	for n := range h.engines {
		out = append(out, n)
	}
	return out
}

// Close releases every loaded engine.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for name, eng := range h.engines {
		if err := eng.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(h.engines, name)
	}
	return errors.Join(errs...)
}
