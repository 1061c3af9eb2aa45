package pipeline

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/MeKo-Tech/nagarikta/internal/layout"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

var (
	roleColors = map[layout.Role]colorful.Color{
		layout.RoleValue: {R: 0, G: 0.78, B: 0},
		layout.RoleLabel: {R: 0, G: 0.39, B: 1},
		layout.RoleNoise: {R: 0.59, G: 0.59, B: 0.59},
	}
	captionBG = color.RGBA{A: 160}
)

const captionChars = 30

// RenderOverlay draws every box of l over the canonical image, colored by
// role and captioned with the role and the start of its text.
func RenderOverlay(img image.Image, l layout.Layout) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.ToRGBA(img)
	for _, b := range l.Boxes {
		c, ok := roleColors[b.Role]
		if !ok {
			c = roleColors[layout.RoleNoise]
		}
		col := c.Clamped()
		utils.DrawPolygon(dst, b.Points[:], col, 2)

		caption := string(b.Role) + ": " + truncate(b.Text, captionChars)
		if b.Role == layout.RoleUnset {
			caption = truncate(b.Text, captionChars)
		}
		y := max(int(b.Y0)-5, 12)
		utils.DrawLabel(dst, int(b.X0), y, caption, col, captionBG)
	}
	return dst
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
