package ocrengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

func fillRect(prob []float32, w, x0, y0, x1, y1 int, v float32) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			prob[y*w+x] = v
		}
	}
}

var testDB = dbParams{thresh: 0.3, boxThresh: 0.5, unclip: 1.3, minSize: 3}

func TestDBBoxes_SingleRegion(t *testing.T) {
	w, h := 40, 20
	prob := make([]float32, w*h)
	fillRect(prob, w, 5, 5, 24, 9, 0.9)

	boxes := dbBoxes(prob, w, h, testDB)
	require.Len(t, boxes, 1)
	assert.InDelta(t, 0.9, boxes[0].score, 1e-6)

	// 19x4 centre-to-centre rectangle grown by 19*4*1.3/46 on every side.
	d := 19.0 * 4 * 1.3 / 46
	q := boxes[0].quad
	assert.InDelta(t, 5-d, q[0].X, 0.2)
	assert.InDelta(t, 5-d, q[0].Y, 0.2)
	assert.InDelta(t, 24+d, q[2].X, 0.2)
	assert.InDelta(t, 9+d, q[2].Y, 0.2)
}

func TestDBBoxes_Filters(t *testing.T) {
	w, h := 40, 30
	prob := make([]float32, w*h)
	fillRect(prob, w, 2, 2, 20, 8, 0.4)    // above thresh, below box thresh
	fillRect(prob, w, 30, 20, 31, 21, 0.9) // too small
	assert.Empty(t, dbBoxes(prob, w, h, testDB))
}

func TestDBBoxes_ReadingOrder(t *testing.T) {
	w, h := 60, 40
	prob := make([]float32, w*h)
	fillRect(prob, w, 2, 25, 20, 30, 0.8)
	fillRect(prob, w, 30, 3, 50, 8, 0.8)
	fillRect(prob, w, 5, 3, 22, 8, 0.8)

	boxes := dbBoxes(prob, w, h, testDB)
	require.Len(t, boxes, 3)
	assert.Less(t, boxes[0].quad[0].X, boxes[1].quad[0].X)
	assert.Less(t, boxes[1].quad[0].Y, boxes[2].quad[0].Y)
}

func TestDBBoxes_InvalidMap(t *testing.T) {
	assert.Nil(t, dbBoxes(make([]float32, 10), 4, 4, testDB))
	assert.Nil(t, dbBoxes(nil, 0, 0, testDB))
}

func TestScaleQuad(t *testing.T) {
	q := [4]utils.Point{{X: 10, Y: 10}, {X: 470, Y: 10}, {X: 490, Y: 250}, {X: 10, Y: 230}}
	got := scaleQuad(q, 480, 240, 1200, 600)
	assert.InDelta(t, 25.0, got[0].X, 1e-9)
	assert.InDelta(t, 25.0, got[0].Y, 1e-9)
	assert.InDelta(t, 1175.0, got[1].X, 1e-9)
	assert.InDelta(t, 1200.0, got[2].X, 1e-9)
	assert.InDelta(t, 600.0, got[2].Y, 1e-9)
	assert.InDelta(t, 575.0, got[3].Y, 1e-9)
}

func TestExpandRect(t *testing.T) {
	r := utils.MinAreaRect([]utils.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 4}, {X: 0, Y: 4}})
	grown := expandRect(r, 1)
	got := utils.OrderCorners(grown[:])
	assert.InDelta(t, -1.0, got[0].X, 1e-9)
	assert.InDelta(t, -1.0, got[0].Y, 1e-9)
	assert.InDelta(t, 11.0, got[2].X, 1e-9)
	assert.InDelta(t, 5.0, got[2].Y, 1e-9)
}
