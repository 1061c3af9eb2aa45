//go:build !tesseract

package ocrengine

// newTesseract reports ErrNoBackend; build with -tags=tesseract to link
// libtesseract through gosseract.
func newTesseract(TesseractConfig) (Engine, error) {
	return nil, ErrNoBackend
}
