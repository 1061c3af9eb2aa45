package ocrengine

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

type fakeEngine struct {
	name     string
	dets     []Detection
	err      error
	panicMsg string
	calls    *atomic.Int32
	active   *atomic.Int32
	overlap  *atomic.Bool
	closed   bool
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(_ context.Context, _ image.Image) ([]Detection, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	if f.active != nil {
		if f.active.Add(1) > 1 {
			f.overlap.Store(true)
		}
		defer f.active.Add(-1)
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.dets, f.err
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Primary = "primary"
	cfg.Fallback = "secondary"
	return cfg
}

func registryOf(engines ...*fakeEngine) Registry {
	r := Registry{}
	for _, e := range engines {
		r[e.name] = func(Config) (Engine, error) { return e, nil }
	}
	return r
}

func sampleDetection(text string) Detection {
	return Detection{
		Polygon:    [4]utils.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}},
		Text:       text,
		Confidence: 0.9,
	}
}

func TestHandle_UsesPrimary(t *testing.T) {
	primary := &fakeEngine{name: "primary", dets: []Detection{sampleDetection("Ram")}}
	h := NewHandle(testConfig(), WithRegistry(registryOf(primary)))

	out, err := h.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, "primary", out.Engine)
	assert.False(t, out.Fallback)
	require.Len(t, out.Detections, 1)
	assert.Equal(t, "Ram", out.Detections[0].Text)
	assert.Equal(t, []string{"primary"}, h.Loaded())
}

func TestHandle_FallsBackOnce(t *testing.T) {
	var calls atomic.Int32
	primary := &fakeEngine{name: "primary", err: errors.New("model missing")}
	secondary := &fakeEngine{name: "secondary", dets: []Detection{sampleDetection("Kathmandu")}, calls: &calls}
	h := NewHandle(testConfig(), WithRegistry(registryOf(primary, secondary)))

	out, err := h.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.Engine)
	assert.True(t, out.Fallback)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHandle_FactoryErrorFallsBack(t *testing.T) {
	secondary := &fakeEngine{name: "secondary"}
	reg := registryOf(secondary)
	reg["primary"] = func(Config) (Engine, error) { return nil, ErrNoBackend }
	h := NewHandle(testConfig(), WithRegistry(reg))

	out, err := h.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Empty(t, out.Detections)
}

func TestHandle_BothFail(t *testing.T) {
	primary := &fakeEngine{name: "primary", err: errors.New("det failed")}
	secondary := &fakeEngine{name: "secondary", panicMsg: "boom"}
	h := NewHandle(testConfig(), WithRegistry(registryOf(primary, secondary)))

	_, err := h.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.Contains(t, err.Error(), "det failed")
	assert.Contains(t, err.Error(), "panicked")
}

func TestHandle_NoFallbackConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Fallback = ""
	primary := &fakeEngine{name: "primary", err: errors.New("bad input")}
	h := NewHandle(cfg, WithRegistry(registryOf(primary)))

	_, err := h.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestHandle_UnknownEngine(t *testing.T) {
	h := NewHandle(testConfig(), WithRegistry(Registry{}))
	_, err := h.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestHandle_CanceledContext(t *testing.T) {
	var calls atomic.Int32
	primary := &fakeEngine{name: "primary", calls: &calls}
	h := NewHandle(testConfig(), WithRegistry(registryOf(primary)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Recognize(ctx, image.NewGray(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestHandle_SerializesCalls(t *testing.T) {
	var active atomic.Int32
	var overlap atomic.Bool
	primary := &fakeEngine{name: "primary", active: &active, overlap: &overlap}
	h := NewHandle(testConfig(), WithRegistry(registryOf(primary)))
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Recognize(context.Background(), img)
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load())
}

func TestHandle_Close(t *testing.T) {
	primary := &fakeEngine{name: "primary"}
	h := NewHandle(testConfig(), WithRegistry(registryOf(primary)))
	_, err := h.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.True(t, primary.closed)
	assert.Empty(t, h.Loaded())
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{EnginePaddle, EngineTesseract}, DefaultRegistry().Names())

	_, err := Registry{}.New("missing", DefaultConfig())
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, EnginePaddle, cfg.Primary)
	assert.Equal(t, EngineTesseract, cfg.Fallback)
	assert.InDelta(t, 0.3, cfg.Paddle.DBThresh, 1e-9)
	assert.InDelta(t, 0.5, cfg.Paddle.DBBoxThresh, 1e-9)
	assert.InDelta(t, 1.3, cfg.Paddle.UnclipRatio, 1e-9)
}
