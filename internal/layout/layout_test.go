package layout

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

func rect(x0, y0, x1, y1 float64) [4]utils.Point {
	return [4]utils.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func box(x0, y0, x1, y1 float64, text string, conf float64) *Box {
	return NewBox(rect(x0, y0, x1, y1), text, conf)
}

func TestNewBox(t *testing.T) {
	b := NewBox([4]utils.Point{{X: 12, Y: 10}, {X: 110, Y: 14}, {X: 108, Y: 40}, {X: 10, Y: 36}}, "Ram", 0.8)
	assert.InDelta(t, 10.0, b.X0, 1e-9)
	assert.InDelta(t, 10.0, b.Y0, 1e-9)
	assert.InDelta(t, 110.0, b.X1, 1e-9)
	assert.InDelta(t, 40.0, b.Y1, 1e-9)
	assert.InDelta(t, 60.0, b.CX, 1e-9)
	assert.InDelta(t, 25.0, b.CY, 1e-9)
	assert.InDelta(t, 25.0, b.PolygonCenterY(), 1e-9)
	assert.Equal(t, RoleUnset, b.Role)
	assert.True(t, b.HasText())
	assert.False(t, box(0, 0, 1, 1, "  ", 1).HasText())
	assert.InDelta(t, 1.0, box(5, 5, 5, 5, "x", 1).Area(), 1e-9)
}

func TestSuppress(t *testing.T) {
	a := box(0, 0, 100, 20, "Kathmandu", 0.9)
	inner := box(10, 2, 60, 18, "Kath", 0.5)
	c := box(200, 0, 300, 20, "Ward", 0.7)

	got := Suppress([]*Box{inner, c, a}, DefaultNMSThreshold)
	assert.Equal(t, []*Box{a, c}, got)
}

func TestSuppress_HalfOverlapKept(t *testing.T) {
	a := box(0, 0, 100, 10, "a", 0.9)
	b := box(50, 0, 150, 10, "b", 0.8)
	assert.Len(t, Suppress([]*Box{a, b}, 0.5), 2)
	assert.Len(t, Suppress([]*Box{a, b}, 0.4), 1)
}

func TestSuppress_Small(t *testing.T) {
	assert.Empty(t, Suppress(nil, 0.5))
	one := []*Box{box(0, 0, 1, 1, "x", 0.1)}
	assert.Equal(t, one, Suppress(one, 0.5))
}

func TestSuppress_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("kept boxes never double count and every dropped box has a keeper", prop.ForAll(
		func(vals []int) bool {
			var boxes []*Box
			for i := 0; i+4 < len(vals); i += 5 {
				x, y := float64(vals[i]), float64(vals[i+1])
				w, h := float64(vals[i+2]%60+1), float64(vals[i+3]%30+1)
				boxes = append(boxes, box(x, y, x+w, y+h, "t", float64(vals[i+4])/100))
			}
			kept := Suppress(boxes, DefaultNMSThreshold)
			if len(boxes) > 0 && len(kept) == 0 {
				return false
			}
			for i := range kept {
				for j := i + 1; j < len(kept); j++ {
					if overlap(kept[i], kept[j]) > DefaultNMSThreshold {
						return false
					}
				}
			}
			isKept := make(map[*Box]bool, len(kept))
			for _, k := range kept {
				isKept[k] = true
			}
			for _, b := range boxes {
				if isKept[b] {
					continue
				}
				covered := false
				for _, k := range kept {
					if k.Confidence >= b.Confidence && overlap(b, k) > DefaultNMSThreshold {
						covered = true
						break
					}
				}
				if !covered {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}

func TestAnalyze_Rows(t *testing.T) {
	a := box(250, 90, 350, 110, "A", 0.9)
	b := box(50, 95, 150, 115, "B", 0.9)
	c := box(0, 130, 100, 150, "C", 0.9)

	l := Analyze([]*Box{a, b, c})
	require.Len(t, l.Rows, 2)
	assert.Equal(t, []*Box{b, a}, l.Rows[0].Boxes)
	assert.InDelta(t, 102.5, l.Rows[0].YCenter, 1e-9)
	assert.Equal(t, []*Box{c}, l.Rows[1].Boxes)
	assert.InDelta(t, 140.0, l.Rows[1].YCenter, 1e-9)
	assert.InDelta(t, 20.0, l.AvgHeight, 1e-9)
	assert.InDelta(t, 100.0, l.AvgWidth, 1e-9)
	assert.Equal(t, []*Box{a, b, c}, l.Boxes)
	assert.Equal(t, 1, l.RowOf(c))
	assert.Equal(t, -1, l.RowOf(box(0, 0, 1, 1, "x", 1)))
}

func TestAnalyze_RunningMean(t *testing.T) {
	var boxes []*Box
	for _, cy := range []float64{100, 110, 120, 130} {
		boxes = append(boxes, box(0, cy-10, 50, cy+10, "x", 0.9))
	}
	l := Analyze(boxes)
	require.Len(t, l.Rows, 2)
	assert.Len(t, l.Rows[0].Boxes, 2)
	assert.Len(t, l.Rows[1].Boxes, 2)
}

func TestAnalyze_ZeroHeight(t *testing.T) {
	l := Analyze([]*Box{
		box(0, 0, 10, 0, "a", 1),
		box(0, 9, 10, 9, "b", 1),
		box(0, 25, 10, 25, "c", 1),
	})
	require.Len(t, l.Rows, 2)
	assert.Len(t, l.Rows[0].Boxes, 2)
}

func TestAnalyze_Empty(t *testing.T) {
	l := Analyze(nil)
	assert.Empty(t, l.Rows)
	assert.Zero(t, l.AvgHeight)
	assert.Empty(t, l.RawText())
}

func TestRawText(t *testing.T) {
	l := Analyze([]*Box{box(0, 0, 10, 10, "Ram", 1), box(0, 30, 10, 40, " ", 1), box(0, 60, 10, 70, "Kathmandu", 1)})
	assert.Equal(t, "Ram\nKathmandu", l.RawText())
}

type fakeRecognizer struct {
	out  ocrengine.Output
	err  error
	seen image.Rectangle
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) (ocrengine.Output, error) {
	f.seen = img.Bounds()
	return f.out, f.err
}

func detection(x0, y0, x1, y1 float64, text string, conf float64) ocrengine.Detection {
	return ocrengine.Detection{Polygon: rect(x0, y0, x1, y1), Text: text, Confidence: conf}
}

func TestService_DetectAndLayout(t *testing.T) {
	rec := &fakeRecognizer{out: ocrengine.Output{
		Engine: "paddle",
		Detections: []ocrengine.Detection{
			detection(100, 100, 300, 130, "Full Name", 0.95),
			detection(110, 102, 200, 128, "Full", 0.60),
			detection(400, 100, 600, 130, "", 0.90),
			detection(400, 200, 600, 230, "smudge", 0.05),
			detection(100, 560, 300, 590, "footer", 0.80),
		},
	}}
	cfg := DefaultConfig()
	cfg.SkipEnhance = true
	svc, err := New(cfg, rec)
	require.NoError(t, err)

	img := imaging.New(1200, 600, color.Gray{Y: 200})
	l, err := svc.DetectAndLayout(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, l.Boxes, 2)
	assert.Equal(t, "Full Name", l.Boxes[0].Text)
	assert.Equal(t, "footer", l.Boxes[1].Text)
	assert.Len(t, l.Rows, 2)
	assert.Equal(t, "paddle", l.Engine)

	cfg.SuppressLowerRegion = true
	svc, err = New(cfg, rec)
	require.NoError(t, err)
	l, err = svc.DetectAndLayout(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, l.Boxes, 1)
	assert.Equal(t, "Full Name", l.Boxes[0].Text)
}

func TestService_UpperRegion(t *testing.T) {
	rec := &fakeRecognizer{out: ocrengine.Output{Detections: []ocrengine.Detection{
		detection(100, 5, 300, 20, "header", 0.9),
		detection(100, 200, 300, 230, "body", 0.9),
	}}}
	cfg := DefaultConfig()
	cfg.SkipEnhance = true
	cfg.SuppressUpperRegion = true
	svc, err := New(cfg, rec)
	require.NoError(t, err)

	l, err := svc.DetectAndLayout(context.Background(), imaging.New(1200, 600, color.White))
	require.NoError(t, err)
	require.Len(t, l.Boxes, 1)
	assert.Equal(t, "body", l.Boxes[0].Text)
}

func TestService_EngineError(t *testing.T) {
	rec := &fakeRecognizer{err: ocrengine.ErrEngineUnavailable}
	svc, err := New(DefaultConfig(), rec)
	require.NoError(t, err)

	_, err = svc.DetectAndLayout(context.Background(), imaging.New(64, 32, color.White))
	assert.True(t, errors.Is(err, ocrengine.ErrEngineUnavailable))
	assert.Equal(t, image.Rect(0, 0, 64, 32), rec.seen, "enhanced image keeps the input size")
}

func TestService_Errors(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.MinConfidence = 2
	_, err = New(bad, &fakeRecognizer{})
	assert.Error(t, err)

	svc, err := New(DefaultConfig(), &fakeRecognizer{})
	require.NoError(t, err)
	_, err = svc.DetectAndLayout(context.Background(), nil)
	assert.Error(t, err)
}

func TestEnhanceForOCR(t *testing.T) {
	src := imaging.New(80, 40, color.Gray{Y: 128})
	out := EnhanceForOCR(src)
	assert.Equal(t, src.Bounds(), out.Bounds())
}
