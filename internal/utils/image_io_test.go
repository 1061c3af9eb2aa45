package utils

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImage_RoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 16))
	src.Set(3, 4, color.RGBA{R: 200, A: 255})

	data, err := EncodePNG(src)
	require.NoError(t, err)

	img, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestDecodeImage_Corrupt(t *testing.T) {
	_, err := DecodeImage([]byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))

	var ipe *ImageProcessingError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "decode", ipe.Operation)

	_, err = DecodeImage(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestLoadAndSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.png")
	require.NoError(t, SavePNG(path, image.NewGray(image.Rect(0, 0, 8, 8))))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
	_, err = LoadImage("")
	assert.Error(t, err)
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("card.JPG"))
	assert.True(t, IsSupportedImage("scan.webp"))
	assert.False(t, IsSupportedImage("scan.pdf"))
}

func TestDrawHelpers(t *testing.T) {
	dst := ToRGBA(image.NewGray(image.Rect(0, 0, 50, 30)))
	DrawPolygon(dst, []Point{{2, 2}, {40, 2}, {40, 20}, {2, 20}}, color.RGBA{G: 255, A: 255}, 1)
	assert.Equal(t, uint8(255), dst.RGBAAt(20, 2).G)
	DrawLabel(dst, 3, 15, "VALUE", color.White, color.Black)
	DrawLabel(dst, 3, 15, "", color.White, nil)
}
