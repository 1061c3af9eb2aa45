package semantic

import (
	"strings"
	"unicode"

	"github.com/MeKo-Tech/nagarikta/internal/layout"
)

// Whole layout scans used when a field has no usable anchor.

func (r *run) certFallback() (string, bool) {
	scan := func(maxFrac float64, loose bool) (string, bool) {
		for _, b := range r.boxes {
			if b.Role == layout.RoleNoise || r.frac(b) > maxFrac {
				continue
			}
			t := ToASCIIDigits(b.Text)
			if m := certStrict.FindString(t); m != "" {
				return m, true
			}
			if loose {
				if m := certLoose.FindStringSubmatch(t); m != nil {
					return strings.Join(m[1:], "-"), true
				}
			}
		}
		return "", false
	}
	if v, ok := scan(0.40, false); ok {
		return v, true
	}
	if v, ok := scan(0.40, true); ok {
		return v, true
	}
	return scan(1, false)
}

// nameFallback picks the largest upper case alphabetic value in the top
// half of the card.
func (r *run) nameFallback() (string, bool) {
	var best *layout.Box
	for _, b := range r.boxes {
		if b.Role != layout.RoleValue || r.frac(b) > 0.50 {
			continue
		}
		if !upperName(b.Text) {
			continue
		}
		if best == nil || b.Area() > best.Area() {
			best = b
		}
	}
	if best == nil {
		return "", false
	}
	return strings.TrimSpace(best.Text), true
}

func upperName(text string) bool {
	letters := 0
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			if unicode.IsLower(r) {
				return false
			}
			letters++
		case r == ' ', r == '.':
		default:
			return false
		}
	}
	return letters >= 3
}

func (r *run) sexFallback() (string, bool) {
	var values []*layout.Box
	for _, b := range r.boxes {
		if b.Role == layout.RoleNoise || r.frac(b) > 0.50 {
			continue
		}
		if v, ok := sexKeyword(strings.ToLower(b.Text)); ok {
			return v, true
		}
		if b.Role == layout.RoleValue {
			values = append(values, b)
		}
	}
	for _, b := range values {
		l := strings.ToLower(b.Text)
		if !strings.Contains(l, "sex") {
			continue
		}
		rest := nonLetterRe.ReplaceAllString(sexPrefixRe.ReplaceAllString(l, ""), "")
		if v, ok := sexPrefix(rest); ok {
			return v, true
		}
	}
	for _, b := range values {
		for _, w := range strings.Fields(strings.ToLower(b.Text)) {
			w = nonLetterRe.ReplaceAllString(w, "")
			if w == "" {
				continue
			}
			for _, v := range sexValues {
				if Ratio(w, v) >= 65 {
					return v, true
				}
			}
		}
	}
	return "", false
}
