//go:build tesseract

package ocrengine

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

type tesseract struct {
	client *gosseract.Client
}

func newTesseract(cfg TesseractConfig) (Engine, error) {
	c := gosseract.NewClient()
	if len(cfg.Languages) > 0 {
		if err := c.SetLanguage(cfg.Languages...); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("tesseract languages: %w", err)
		}
	}
	return &tesseract{client: c}, nil
}

func (t *tesseract) Name() string { return EngineTesseract }

func (t *tesseract) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	data, err := utils.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("tesseract image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	out := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		r := b.Box
		out = append(out, Detection{
			Polygon: [4]utils.Point{
				{X: float64(r.Min.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Max.Y)},
				{X: float64(r.Min.X), Y: float64(r.Max.Y)},
			},
			Text:       text,
			Confidence: utils.ClampFloat(b.Confidence/100, 0, 1),
		})
	}
	return out, nil
}

func (t *tesseract) Close() error { return t.client.Close() }
