package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Artifact file names written by SaveArtifacts.
const (
	CanonicalFile  = "canonical.png"
	OverlayFile    = "debug_overlay.png"
	ExtractionJSON = "extraction.json"
	ExtractionYAML = "extraction.yaml"
)

// SaveArtifacts writes the canonical image, the role overlay and the
// serialized result into dir. Images are skipped when normalization did
// not produce a canonical image.
func (r *Result) SaveArtifacts(dir string, withYAML bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	var written []string
	if r.Canonical != nil {
		path := filepath.Join(dir, CanonicalFile)
		if err := utils.SavePNG(path, r.Canonical); err != nil {
			return written, err
		}
		written = append(written, path)

		path = filepath.Join(dir, OverlayFile)
		if err := utils.SavePNG(path, RenderOverlay(r.Canonical, r.Layout)); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	data, err := r.ToJSON()
	if err != nil {
		return written, err
	}
	path := filepath.Join(dir, ExtractionJSON)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // report is not secret
		return written, err
	}
	written = append(written, path)

	if !withYAML {
		return written, nil
	}
	if data, err = r.ToYAML(); err != nil {
		return written, errors.Join(errors.New("encode yaml"), err)
	}
	path = filepath.Join(dir, ExtractionYAML)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // report is not secret
		return written, err
	}
	return append(written, path), nil
}
