package pdf

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n")))
	assert.False(t, IsPDF([]byte("\x89PNG")))
	assert.False(t, IsPDF(nil))
	assert.True(t, IsPDFFile("scan.PDF"))
	assert.False(t, IsPDFFile("scan.png"))
}

func TestPageFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"page_1_image_2.png", 1, false},
		{"card_3_Im1.jpg", 3, false},
		{"scan_front_1_Im0.png", 1, false},
		{"page_x_image_1.png", 0, true},
		{"image.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pageFromFilename(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectPageImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, utils.SavePNG(filepath.Join(dir, "page_1_image_1.png"), image.NewNRGBA(image.Rect(0, 0, 20, 10))))
	require.NoError(t, utils.SavePNG(filepath.Join(dir, "page_1_image_2.png"), image.NewNRGBA(image.Rect(0, 0, 40, 30))))
	require.NoError(t, utils.SavePNG(filepath.Join(dir, "page_2_image_1.png"), image.NewNRGBA(image.Rect(0, 0, 90, 90))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_1_image_3.png"), []byte("broken"), 0o600))

	imgs, err := collectPageImages(dir, 1)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, image.Rect(0, 0, 40, 30), largest(imgs).Bounds())
}

func TestFirstImage_Errors(t *testing.T) {
	_, err := FirstImage(filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.Error(t, err)

	_, err = FirstImageBytes([]byte("not a pdf"), "")
	assert.ErrorContains(t, err, "not a pdf")

	_, err = FirstImageBytes([]byte("%PDF-1.4\ngarbage"), "")
	assert.Error(t, err)
}
