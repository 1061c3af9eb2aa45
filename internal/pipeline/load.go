package pipeline

import (
	"image"

	"github.com/MeKo-Tech/nagarikta/internal/pdf"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Load reads an image, or the largest image on the first page of a
// PDF scan.
func Load(path string) (image.Image, error) {
	if pdf.IsPDFFile(path) {
		return pdf.FirstImage(path, "")
	}
	return utils.LoadImage(path)
}

// Decode decodes image bytes, or the first page image of PDF bytes.
func Decode(data []byte) (image.Image, error) {
	if pdf.IsPDF(data) {
		return pdf.FirstImageBytes(data, "")
	}
	return utils.DecodeImage(data)
}
