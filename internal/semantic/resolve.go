package semantic

import (
	"math"
	"strings"

	"github.com/MeKo-Tech/nagarikta/internal/layout"
)

// resolveField fills a scalar field from its anchor, or from a whole
// layout scan when there is no anchor or the anchor yields nothing.
func (r *run) resolveField(field string) {
	var value string
	conf := 0.0
	if a, ok := r.anchors[field]; ok {
		if v, ok := r.resolve(a, r.boxes); ok {
			value, conf = v, a.Score/100
		}
	}
	if value == "" {
		var ok bool
		switch field {
		case FieldCertificateNumber:
			value, ok = r.certFallback()
			conf = 0.5
		case FieldFullName:
			value, ok = r.nameFallback()
			conf = 0.4
		case FieldSex:
			value, ok = r.sexFallback()
			conf = 0.4
		}
		if !ok {
			return
		}
	}

	switch field {
	case FieldCertificateNumber:
		if c, ok := certFrom(value); ok {
			value = c
		}
	case FieldSex:
		value = canonicalSex(value)
	}
	r.res.set(field, Text(value), conf)
}

// resolve reads the value of an anchored label: inline text first, then
// a pattern on the label text, then the nearest box to the right on the
// same row, then the nearest aligned box below.
func (r *run) resolve(a Anchor, pool []*layout.Box) (string, bool) {
	label := a.Box
	if v, ok := inlineValue(label.Text, specFor(a.Field).patterns); ok && hasAlnum(v) {
		return v, true
	}
	switch a.Field {
	case FieldCertificateNumber:
		if v, ok := certFrom(label.Text); ok {
			return v, true
		}
	case FieldSex:
		if v, ok := sexFrom(label.Text); ok {
			return v, true
		}
	}
	if b := r.rightOf(label, pool); b != nil {
		return strings.TrimSpace(b.Text), true
	}
	if b := r.below(label, pool); b != nil {
		return strings.TrimSpace(b.Text), true
	}
	return "", false
}

// candidate reports whether b may hold the value of label.
func (r *run) candidate(b, label *layout.Box) bool {
	switch {
	case b == label,
		b.Role == layout.RoleNoise,
		b.Role == layout.RoleLabel,
		!hasAlnum(b.Text),
		r.isAnchorBox(b):
		return false
	}
	return true
}

// rightOf returns the closest value box on the label's row, starting
// right of the label centre and no further than RightMaxWidths mean box
// widths from the label's right edge.
func (r *run) rightOf(label *layout.Box, pool []*layout.Box) *layout.Box {
	var best *layout.Box
	bestGap := math.Inf(1)
	for _, b := range pool {
		if !r.candidate(b, label) {
			continue
		}
		if math.Abs(b.CY-label.CY) > r.cfg.RowTolerance*r.avgH || b.CX <= label.CX {
			continue
		}
		gap := b.X0 - label.X1
		if gap >= r.cfg.RightMaxWidths*r.avgW {
			continue
		}
		if gap < bestGap {
			best, bestGap = b, gap
		}
	}
	return best
}

// below returns the closest value box under the label that shares its
// column, by horizontal overlap or a nearby left edge.
func (r *run) below(label *layout.Box, pool []*layout.Box) *layout.Box {
	var best *layout.Box
	bestGap := math.Inf(1)
	for _, b := range pool {
		if !r.candidate(b, label) || b.CY <= label.CY {
			continue
		}
		gap := b.Y0 - label.Y1
		if gap > r.cfg.BelowMaxGap*r.avgH {
			continue
		}
		if !r.aligned(label, b) {
			continue
		}
		if gap < bestGap {
			best, bestGap = b, gap
		}
	}
	return best
}

func (r *run) aligned(a, b *layout.Box) bool {
	ov := math.Min(a.X1, b.X1) - math.Max(a.X0, b.X0)
	w := math.Max(math.Max(a.Width(), b.Width()), 1)
	if ov > 0 && ov/w > r.cfg.BelowMinOverlap {
		return true
	}
	return math.Abs(a.X0-b.X0) < 2.5*r.avgH
}

// certFrom finds a certificate number such as 27-01-76-05678 in text,
// first in its strict form and then with loose separators, which are
// rewritten as dashes.
func certFrom(text string) (string, bool) {
	t := ToASCIIDigits(text)
	if m := certStrict.FindString(t); m != "" {
		return m, true
	}
	if m := certLoose.FindStringSubmatch(t); m != nil {
		return strings.Join(m[1:], "-"), true
	}
	return "", false
}

// sexFrom reads a sex value from label text such as "Sex Female" or a
// truncated "Sex: Fem".
func sexFrom(text string) (string, bool) {
	l := strings.ToLower(text)
	if v, ok := sexKeyword(l); ok {
		return v, true
	}
	for _, v := range sexValues {
		if PartialRatio(l, v) >= 75 {
			return v, true
		}
	}
	letters := strings.TrimPrefix(nonLetterRe.ReplaceAllString(l, ""), "sex")
	return sexPrefix(letters)
}

func sexKeyword(lower string) (string, bool) {
	for _, v := range sexValues {
		if strings.Contains(lower, v) {
			return v, true
		}
	}
	return "", false
}

func sexPrefix(letters string) (string, bool) {
	if len(letters) < 2 {
		return "", false
	}
	for _, v := range sexValues {
		if strings.HasPrefix(v, letters) {
			return v, true
		}
	}
	return "", false
}

// canonicalSex upper-cases a recognized or truncated sex value and keeps
// anything else as read.
func canonicalSex(v string) string {
	l := strings.ToLower(v)
	if s, ok := sexKeyword(l); ok {
		return strings.ToUpper(s)
	}
	if s, ok := sexPrefix(nonLetterRe.ReplaceAllString(l, "")); ok {
		return strings.ToUpper(s)
	}
	return v
}
