package semantic

import (
	"github.com/MeKo-Tech/nagarikta/internal/layout"
)

// isAnyLabel reports whether text reads as any field or sub-field label.
func isAnyLabel(text string, threshold float64) bool {
	for _, s := range fieldSpecs {
		if labelScore(text, s.patterns) >= threshold {
			return true
		}
	}
	for _, ls := range [][]subLabel{dobSubLabels, addressSubLabels} {
		for _, l := range ls {
			if labelScore(text, l.patterns) >= threshold {
				return true
			}
		}
	}
	return false
}

func (r *run) role(b *layout.Box) layout.Role {
	if b.Confidence < r.cfg.NoiseMinConfidence {
		return layout.RoleNoise
	}
	core := alnumOnly(b.Text)
	if len([]rune(core)) <= r.cfg.NoiseMaxChars && !allDigits(core) {
		return layout.RoleNoise
	}
	if isAnyLabel(b.Text, r.cfg.LabelThreshold) {
		return layout.RoleLabel
	}
	return layout.RoleValue
}

func (r *run) classify() {
	for _, b := range r.boxes {
		b.Role = r.role(b)
	}
}

// anchor finds, per field, the box inside the field's band that best
// matches its label patterns. Ties keep the earlier box. A box that reads
// better as another field's label is never taken, so "Birth Place" does
// not also anchor the date of birth.
func (r *run) anchor() {
	tol := r.cfg.BandTolerance
	for _, s := range fieldSpecs {
		lo, hi := s.band[0]-tol, s.band[1]+tol
		var best *layout.Box
		bestScore := 0.0
		for _, b := range r.boxes {
			if b.Role == layout.RoleNoise {
				continue
			}
			if f := r.frac(b); f < lo || f > hi {
				continue
			}
			score := labelScore(b.Text, s.patterns)
			if score > bestScore && !betterLabelElsewhere(b.Text, s.field, score) {
				best, bestScore = b, score
			}
		}
		if best != nil && bestScore >= r.cfg.LabelThreshold {
			r.anchors[s.field] = Anchor{Field: s.field, Box: best, Label: best.Text, Score: bestScore}
		}
	}
}

// betterLabelElsewhere reports whether text matches some field other than
// field strictly better than score.
func betterLabelElsewhere(text, field string, score float64) bool {
	for _, s := range fieldSpecs {
		if s.field != field && labelScore(text, s.patterns) > score {
			return true
		}
	}
	return false
}
