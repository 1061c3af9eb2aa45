// Package pdf pulls the scanned card image out of PDF uploads.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// ErrNoImage is returned when the first page embeds no decodable image.
var ErrNoImage = errors.New("pdf page has no image")

var magic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool { return bytes.HasPrefix(data, magic) }

// IsPDFFile reports whether path has a .pdf extension.
func IsPDFFile(path string) bool { return strings.EqualFold(filepath.Ext(path), ".pdf") }

// FirstImage returns the largest image embedded on the first page of the
// PDF at path. password unlocks encrypted files and may be empty.
func FirstImage(path, password string) (image.Image, error) {
	tempDir, err := os.MkdirTemp("", "nagarikta-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := api.ExtractImagesFile(path, tempDir, []string{"1"}, config(password)); err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}
	imgs, err := collectPageImages(tempDir, 1)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, ErrNoImage
	}
	return largest(imgs), nil
}

// FirstImageBytes is FirstImage for an in-memory document.
func FirstImageBytes(data []byte, password string) (image.Image, error) {
	if !IsPDF(data) {
		return nil, errors.New("not a pdf document")
	}
	f, err := os.CreateTemp("", "nagarikta-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return FirstImage(f.Name(), password)
}

func config(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return conf
}

// collectPageImages loads the images pdfcpu wrote for one page. Extracted
// files are named <stem>_<page>_<id>.<ext> or page_<page>_image_<id>.<ext>
// depending on the pdfcpu version.
func collectPageImages(dir string, page int) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []image.Image
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, err := pageFromFilename(e.Name())
		if err != nil || n != page {
			continue
		}
		img, err := utils.LoadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, img)
	}
	return out, nil
}

// pageFromFilename returns the page number embedded in an extracted
// image name.
func pageFromFilename(name string) (int, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, "_")
	if parts[0] == "page" && len(parts) >= 2 {
		return strconv.Atoi(parts[1])
	}
	if len(parts) >= 3 {
		return strconv.Atoi(parts[len(parts)-2])
	}
	return 0, fmt.Errorf("unexpected image name %q", name)
}

func largest(imgs []image.Image) image.Image {
	best := imgs[0]
	area := func(img image.Image) int { return img.Bounds().Dx() * img.Bounds().Dy() }
	for _, img := range imgs[1:] {
		if area(img) > area(best) {
			best = img
		}
	}
	return best
}
