package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproxPolygon(t *testing.T) {
	tests := []struct {
		name    string
		points  []Point
		epsilon float64
		want    int
	}{
		{
			name:    "empty polygon",
			points:  []Point{},
			epsilon: 1.0,
			want:    0,
		},
		{
			name:    "triangle untouched",
			points:  []Point{{0, 0}, {10, 0}, {5, 10}},
			epsilon: 1.0,
			want:    3,
		},
		{
			name: "rectangle with edge midpoints",
			points: []Point{
				{0, 0}, {50, 0}, {100, 0},
				{100, 25}, {100, 50},
				{50, 50}, {0, 50},
				{0, 25},
			},
			epsilon: 2.0,
			want:    4,
		},
		{
			name: "noisy rectangle",
			points: []Point{
				{0, 0}, {30, 1}, {60, -1}, {100, 0},
				{101, 20}, {99, 40}, {100, 50},
				{70, 51}, {30, 49}, {0, 50},
				{1, 30}, {-1, 10},
			},
			epsilon: 5.0,
			want:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApproxPolygon(tt.points, tt.epsilon)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestPolygonAreaAndPerimeter(t *testing.T) {
	sq := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.InDelta(t, 100.0, PolygonArea(sq), 1e-9)
	assert.InDelta(t, 40.0, Perimeter(sq), 1e-9)

	// Winding direction must not change the sign.
	rev := []Point{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	assert.InDelta(t, 100.0, PolygonArea(rev), 1e-9)
	assert.Zero(t, PolygonArea(sq[:2]))
}

func TestIsConvex(t *testing.T) {
	assert.True(t, IsConvex([]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}))
	assert.False(t, IsConvex([]Point{{0, 0}, {10, 0}, {4, 4}, {0, 10}}))
	assert.False(t, IsConvex([]Point{{0, 0}, {1, 1}}))
}

func TestMinAreaRect(t *testing.T) {
	t.Run("axis aligned", func(t *testing.T) {
		r := MinAreaRect([]Point{{0, 0}, {200, 0}, {200, 100}, {0, 100}, {50, 50}})
		long, short := math.Max(r.Width, r.Height), math.Min(r.Width, r.Height)
		assert.InDelta(t, 200, long, 1e-6)
		assert.InDelta(t, 100, short, 1e-6)
		assert.InDelta(t, 2.0, r.AspectRatio(), 1e-6)
		assert.InDelta(t, 0, r.LongSideAngle(), 1e-6)
		assert.InDelta(t, 100, r.Center.X, 1e-6)
		assert.InDelta(t, 50, r.Center.Y, 1e-6)
	})

	t.Run("tilted", func(t *testing.T) {
		theta := 10 * math.Pi / 180
		c, s := math.Cos(theta), math.Sin(theta)
		var pts []Point
		for _, p := range []Point{{0, 0}, {200, 0}, {200, 80}, {0, 80}} {
			pts = append(pts, Point{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c})
		}
		r := MinAreaRect(pts)
		assert.InDelta(t, 10, r.LongSideAngle(), 1e-6)
		assert.InDelta(t, 2.5, r.AspectRatio(), 1e-6)
	})

	t.Run("degenerate", func(t *testing.T) {
		r := MinAreaRect(nil)
		assert.Zero(t, r.AspectRatio())
	})
}

func TestOrderCorners(t *testing.T) {
	shuffled := []Point{{90, 95}, {10, 12}, {8, 88}, {95, 5}}
	got := OrderCorners(shuffled)
	require.Equal(t, Point{10, 12}, got[0])
	require.Equal(t, Point{95, 5}, got[1])
	require.Equal(t, Point{90, 95}, got[2])
	require.Equal(t, Point{8, 88}, got[3])

	w, h := QuadSides(got)
	assert.Greater(t, w, h*0.5)
}

func TestBoxOps(t *testing.T) {
	a := NewBox(10, 10, 0, 0)
	assert.Equal(t, Box{0, 0, 10, 10}, a)
	b := NewBox(5, 5, 20, 20)
	assert.InDelta(t, 25, a.IntersectionArea(b), 1e-9)
	assert.Zero(t, a.IntersectionArea(NewBox(11, 11, 12, 12)))
	assert.Equal(t, Point{5, 5}, a.Center())
	assert.Equal(t, Box{1, 2, 7, 9}, BoundingBox([]Point{{1, 9}, {7, 2}, {3, 4}}))
}
