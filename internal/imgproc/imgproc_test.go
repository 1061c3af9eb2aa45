package imgproc

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

func uniformGray(w, h int, v uint8) *Gray {
	g := NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func fillRect(g *Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.Set(x, y, v)
		}
	}
}

func TestToGray(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.White)
	img.Set(1, 0, color.Black)
	img.Set(2, 0, color.NRGBA{R: 255, A: 255})

	g := ToGray(img)
	require.Equal(t, 3, g.W)
	assert.Equal(t, uint8(255), g.At(0, 0))
	assert.Equal(t, uint8(0), g.At(1, 0))
	assert.Equal(t, uint8(76), g.At(2, 0))
}

func TestToGray_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 14, 12))
	g := ToGray(img)
	assert.Equal(t, 4, g.W)
	assert.Equal(t, 2, g.H)
}

func TestReflect101(t *testing.T) {
	assert.Equal(t, 1, reflect101(-1, 5))
	assert.Equal(t, 2, reflect101(-2, 5))
	assert.Equal(t, 3, reflect101(5, 5))
	assert.Equal(t, 2, reflect101(6, 5))
	assert.Equal(t, 0, reflect101(-3, 1))
}

func TestGaussianKernel(t *testing.T) {
	k := GaussianKernel(5, 0)
	require.Len(t, k, 5)
	sum := 0.0
	for _, v := range k {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, k[0], k[4], 1e-12)
	assert.Greater(t, k[2], k[1])

	assert.Len(t, GaussianKernel(4, 1), 5)
}

func TestGaussianBlur_Uniform(t *testing.T) {
	g := GaussianBlur(uniformGray(20, 10, 200), 5, 0)
	for _, v := range g.Pix {
		assert.Equal(t, uint8(200), v)
	}
}

func TestCanny_VerticalStep(t *testing.T) {
	g := uniformGray(100, 60, 0)
	fillRect(g, 50, 0, 100, 60, 255)

	edges := Canny(g, 30, 120)
	for y := range 60 {
		assert.Equal(t, uint8(255), edges.At(49, y), "row %d", y)
	}
	assert.Equal(t, 60, edges.CountNonZero())
}

func TestCanny_FlatImageHasNoEdges(t *testing.T) {
	assert.Zero(t, Canny(uniformGray(40, 40, 90), 30, 120).CountNonZero())
}

func TestCLAHE_UniformStaysClose(t *testing.T) {
	src := uniformGray(256, 256, 128)
	out := CLAHE(src, 2.0, 8, 8)
	require.Equal(t, src.W, out.W)
	for _, v := range out.Pix {
		assert.InDelta(t, 128, int(v), 5)
	}
	assert.Equal(t, out.Pix, CLAHE(src, 2.0, 8, 8).Pix)
}

func TestClipHistogram_PreservesCount(t *testing.T) {
	var hist [256]int
	hist[10] = 900
	hist[200] = 124
	clipHistogram(&hist, 8)
	total := 0
	for _, v := range hist {
		total += v
	}
	assert.Equal(t, 1024, total)
	assert.LessOrEqual(t, hist[10], 8+4+1)
}

func TestEnhanceLuminance_GrayStaysNeutral(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			v := uint8(60 + x*2)
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	out := EnhanceLuminance(img, 2.0, 8)
	require.Equal(t, img.Bounds(), out.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := int(out.Pix[i]), int(out.Pix[i+1]), int(out.Pix[i+2])
		assert.InDelta(t, r, g, 2)
		assert.InDelta(t, g, b, 2)
	}
}

func TestMorphology_SinglePixel(t *testing.T) {
	g := NewGray(9, 9)
	g.Set(4, 4, 255)

	d := Dilate(g, 3, 3, 1)
	assert.Equal(t, 9, d.CountNonZero())
	assert.Equal(t, uint8(255), d.At(3, 3))
	assert.Equal(t, uint8(0), d.At(2, 4))

	e := Erode(d, 3, 3, 1)
	assert.Equal(t, 1, e.CountNonZero())
	assert.Equal(t, uint8(255), e.At(4, 4))

	assert.Equal(t, 25, Dilate(g, 3, 3, 2).CountNonZero())
	assert.Equal(t, g.Pix, Dilate(g, 3, 3, 0).Pix)
}

func TestClose_FillsGap(t *testing.T) {
	g := NewGray(30, 10)
	fillRect(g, 2, 3, 14, 7, 255)
	fillRect(g, 16, 3, 28, 7, 255)

	c := Close(g, 5, 5, 1)
	assert.Equal(t, uint8(255), c.At(15, 5))
}

func TestAdaptiveMeanThresholdInv(t *testing.T) {
	g := uniformGray(120, 120, 255)
	fillRect(g, 55, 55, 65, 65, 0)

	bin := AdaptiveMeanThresholdInv(g, 50, 10)
	assert.Equal(t, 100, bin.CountNonZero())
	assert.Equal(t, uint8(255), bin.At(60, 60))
	assert.Equal(t, uint8(0), bin.At(10, 10))
}

func TestDarkMask(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.White)
	img.Set(2, 0, color.NRGBA{R: 80, A: 255})
	img.Set(3, 0, color.NRGBA{R: 60, G: 60, B: 60, A: 255})

	m := DarkMask(img, 100, 80)
	assert.Equal(t, []uint8{255, 0, 0, 255}, m.Pix)
}

func TestFindContours_FilledRect(t *testing.T) {
	g := NewGray(100, 60)
	fillRect(g, 20, 10, 80, 50, 255)

	cs := FindContours(g, 0)
	require.Len(t, cs, 1)
	c := cs[0]
	assert.False(t, c.Hole)
	assert.Equal(t, image.Rect(20, 10, 80, 50), c.Bounds)
	assert.Len(t, c.Points, 4)
	assert.InDelta(t, 59*39, c.Area(), 1e-9)
	assert.Equal(t, utils.Point{X: 20, Y: 10}, utils.OrderCorners(c.Points)[0])
}

func TestFindContours_RingHasHole(t *testing.T) {
	g := NewGray(100, 60)
	fillRect(g, 10, 10, 90, 50, 255)
	fillRect(g, 20, 20, 80, 40, 0)

	cs := FindContours(g, 0)
	require.Len(t, cs, 2)

	var outer, hole *Contour
	for i := range cs {
		if cs[i].Hole {
			hole = &cs[i]
		} else {
			outer = &cs[i]
		}
	}
	require.NotNil(t, outer)
	require.NotNil(t, hole)
	assert.Equal(t, image.Rect(10, 10, 90, 50), outer.Bounds)
	assert.Equal(t, image.Rect(20, 20, 80, 40), hole.Bounds)
	assert.InDelta(t, 59*19, hole.Area(), 1e-9)
}

func TestFindContours_MinBoxArea(t *testing.T) {
	g := NewGray(50, 50)
	fillRect(g, 2, 2, 5, 5, 255)
	fillRect(g, 10, 10, 40, 40, 255)

	cs := FindContours(g, 100)
	require.Len(t, cs, 1)
	assert.Equal(t, image.Rect(10, 10, 40, 40), cs[0].Bounds)
	assert.Empty(t, FindContours(NewGray(0, 0), 0))
}

func TestHoughSegments_Horizontal(t *testing.T) {
	g := NewGray(200, 100)
	fillRect(g, 20, 40, 180, 41, 255)

	segs := HoughSegments(g, 50, 100, 5)
	require.Len(t, segs, 1)
	s := segs[0]
	assert.InDelta(t, 20, s.X1, 1e-6)
	assert.InDelta(t, 179, s.X2, 1e-6)
	assert.InDelta(t, 40, s.MidY(), 1e-6)
	assert.True(t, s.IsHorizontal(15))
	assert.False(t, s.IsVertical(15))
}

func TestHoughSegments_SplitsOnGap(t *testing.T) {
	g := NewGray(200, 100)
	fillRect(g, 20, 40, 90, 41, 255)
	fillRect(g, 110, 40, 180, 41, 255)

	segs := HoughSegments(g, 50, 50, 5)
	require.Len(t, segs, 2)
	assert.InDelta(t, 69, segs[0].Length(), 1e-6)
	assert.InDelta(t, 69, segs[1].Length(), 1e-6)

	assert.Len(t, HoughSegments(g, 50, 50, 30), 1)
}

func TestHoughSegments_Vertical(t *testing.T) {
	g := NewGray(200, 100)
	fillRect(g, 30, 10, 31, 90, 255)

	segs := HoughSegments(g, 50, 60, 5)
	require.Len(t, segs, 1)
	assert.True(t, segs[0].IsVertical(15))
	assert.InDelta(t, 30, segs[0].MidX(), 1e-6)
	assert.InDelta(t, 79, segs[0].Length(), 1e-6)
}

func TestAffine_InvertRoundTrip(t *testing.T) {
	m := RotationAffine(50, 25, 12.5, 1)
	inv := m.Invert()
	p := utils.Point{X: 13, Y: 71}
	q := inv.Apply(m.Apply(p))
	assert.InDelta(t, p.X, q.X, 1e-9)
	assert.InDelta(t, p.Y, q.Y, 1e-9)
}

func TestRotateExpanded(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	img.Set(7, 9, color.NRGBA{R: 255, A: 255})

	same, _ := RotateExpanded(img, 0)
	assert.Equal(t, img.Pix, same.Pix)

	rot, m := RotateExpanded(img, 90)
	assert.Equal(t, 50, rot.Bounds().Dx())
	assert.Equal(t, 100, rot.Bounds().Dy())
	c := m.Apply(utils.Point{X: 50, Y: 25})
	assert.InDelta(t, 25, c.X, 1e-9)
	assert.InDelta(t, 50, c.Y, 1e-9)
}

func TestWarpPerspective_Identity(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	id := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	out := WarpPerspective(img, id, 8, 4)
	assert.Equal(t, img.Pix, out.Pix)

	shifted := WarpPerspective(img, [3][3]float64{{1, 0, 100}, {0, 1, 0}, {0, 0, 1}}, 2, 2)
	assert.Equal(t, []uint8{0, 0, 0, 255}, shifted.Pix[:4])
}

func TestSobelY5Abs(t *testing.T) {
	g := uniformGray(40, 40, 0)
	fillRect(g, 0, 20, 40, 40, 255)

	s := SobelY5Abs(g)
	assert.Zero(t, s.At(10, 5))
	assert.Zero(t, s.At(10, 35))
	assert.Greater(t, s.At(10, 20), 0.0)

	means := s.RowMeans(5, 15, 10, 30)
	require.Len(t, means, 20)
	best := 0
	for i, v := range means {
		if v > means[best] {
			best = i
		}
	}
	assert.Contains(t, []int{9, 10}, best)
	assert.Nil(t, s.RowMeans(50, 60, 0, 10))
}
