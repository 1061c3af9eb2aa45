package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Ink is the dark print color of synthetic borders.
var Ink = color.NRGBA{R: 20, G: 20, B: 20, A: 255}

// BlankCard is a plain white photo. No border can be found in it.
func BlankCard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// Fill paints r with c.
func Fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// BorderedCard draws a closed dark outline of the given thickness around
// box, the printed border of the information area.
func BorderedCard(w, h int, box image.Rectangle, thickness int) *image.NRGBA {
	img := BlankCard(w, h)
	Fill(img, image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+thickness), Ink)
	Fill(img, image.Rect(box.Min.X, box.Max.Y-thickness, box.Max.X, box.Max.Y), Ink)
	Fill(img, image.Rect(box.Min.X, box.Min.Y, box.Min.X+thickness, box.Max.Y), Ink)
	Fill(img, image.Rect(box.Max.X-thickness, box.Min.Y, box.Max.X, box.Max.Y), Ink)
	return img
}

// RuledCard has only the top and bottom rules of the border, 800 pixels
// wide at y=150 and y=450 of a 1000x800 photo. No contour ever closes.
func RuledCard() *image.NRGBA {
	img := BlankCard(1000, 800)
	Fill(img, image.Rect(100, 147, 900, 153), Ink)
	Fill(img, image.Rect(100, 447, 900, 453), Ink)
	return img
}

// WriteCard saves img as a PNG named name inside dir and returns the path.
func WriteCard(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, utils.SavePNG(path, img), "save %s", path)
	return path
}
