package semantic

import (
	"math"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/nagarikta/internal/layout"
)

// nextHeaderY is the centre y of the first anchor below header, or +Inf.
func (r *run) nextHeaderY(header *layout.Box) float64 {
	next := math.Inf(1)
	for _, a := range r.anchors {
		if a.Box.CY > header.CY+5 {
			next = math.Min(next, a.Box.CY)
		}
	}
	return next
}

// section returns the non-noise boxes between header and the next field
// header.
func (r *run) section(header *layout.Box, top float64) []*layout.Box {
	bottom := r.nextHeaderY(header)
	var out []*layout.Box
	for _, b := range r.boxes {
		if b.Role == layout.RoleNoise {
			continue
		}
		if b.CY >= top && b.CY < bottom {
			out = append(out, b)
		}
	}
	return out
}

// subValues resolves each sub-label inside the section under header.
// With tokenOnly, inline values are cut to their leading number or word,
// so "Year: 2063 Month: 08" yields 2063 for the year.
func (r *run) subValues(header *layout.Box, labels []subLabel, tokenOnly bool) map[string]string {
	sec := r.section(header, header.CY-0.5*r.avgH)
	out := map[string]string{}
	for _, l := range labels {
		var lb *layout.Box
		best := 0.0
		for _, b := range sec {
			if s := labelScore(b.Text, l.patterns); s > best {
				lb, best = b, s
			}
		}
		if lb == nil || best < r.cfg.LabelThreshold {
			continue
		}
		if v, ok := inlineValue(lb.Text, l.patterns); ok && hasAlnum(v) {
			if tokenOnly {
				m := dateTokenRe.FindStringSubmatch(v)
				if m == nil {
					continue
				}
				v = m[1]
			}
			out[l.key] = v
			continue
		}
		if b := r.rightOf(lb, sec); b != nil {
			out[l.key] = strings.TrimSpace(b.Text)
		} else if b := r.below(lb, sec); b != nil {
			out[l.key] = strings.TrimSpace(b.Text)
		}
	}
	return out
}

func (r *run) dateOfBirth() {
	a, ok := r.anchors[FieldDateOfBirth]
	if !ok {
		return
	}
	raw := r.subValues(a.Box, dobSubLabels, true)
	parts := map[string]string{}
	if y, ok := raw["year"]; ok {
		parts["year"] = y
		if m := yearRe.FindString(ToASCIIDigits(y)); m != "" {
			parts["year"] = m
		}
	}
	if m, ok := raw["month"]; ok {
		parts["month"] = NormalizeMonth(m)
	}
	if d, ok := raw["day"]; ok {
		parts["day"] = d
		if m := dayRe.FindString(ToASCIIDigits(d)); m != "" {
			parts["day"] = m
		}
	}
	r.backfillDate(a.Box, parts)
	if len(parts) == 0 {
		return
	}

	year, month, day := "????", "??", "??"
	if v, ok := parts["year"]; ok {
		year = v
	}
	if v, ok := parts["month"]; ok {
		month = v
	}
	if v, ok := parts["day"]; ok {
		day = v
	}
	conf := a.Score / 100
	r.res.set(FieldDateOfBirth, Text(year+"-"+month+"-"+day), conf)
	r.res.set(FieldDateOfBirthParts, Parts(parts), conf)
}

// backfillDate scans the date section for a year or a day number the
// sub-labels did not yield.
func (r *run) backfillDate(header *layout.Box, parts map[string]string) {
	_, hasYear := parts["year"]
	_, hasDay := parts["day"]
	if hasYear && hasDay {
		return
	}
	for _, b := range r.section(header, header.CY-5) {
		t := ToASCIIDigits(b.Text)
		if !hasYear {
			if m := yearRe.FindString(t); m != "" {
				parts["year"], hasYear = m, true
			}
		}
		if !hasDay {
			for _, m := range dayWordRe.FindAllStringSubmatch(t, -1) {
				n, err := strconv.Atoi(m[1])
				if err != nil || n < 1 || n > 32 {
					continue
				}
				parts["day"], hasDay = m[1], true
				break
			}
		}
	}
}

var addressFields = []string{FieldBirthPlace, FieldPermanentAddress}

func (r *run) addresses() {
	for _, f := range addressFields {
		a, ok := r.anchors[f]
		if !ok {
			continue
		}
		parts := r.subValues(a.Box, addressSubLabels, false)
		if w, ok := parts["ward"]; ok {
			if m := wardRe.FindString(ToASCIIDigits(w)); m != "" {
				parts["ward"] = m
			}
		}
		if len(parts) > 0 {
			r.res.set(f, Parts(parts), a.Score/100)
		}
	}
	r.crossFill()
}

// crossFill copies a missing municipality or ward between the two
// addresses when both name the same district.
func (r *run) crossFill() {
	bp, ok1 := r.res.Fields[FieldBirthPlace]
	pa, ok2 := r.res.Fields[FieldPermanentAddress]
	if !ok1 || !ok2 {
		return
	}
	d1, d2 := bp.Part("district"), pa.Part("district")
	if d1 == "" || foldKey(d1) != foldKey(d2) {
		return
	}
	for _, k := range []string{"municipality", "ward"} {
		v1, v2 := bp.Part(k), pa.Part(k)
		switch {
		case v1 == "" && v2 != "":
			bp.Parts[k] = v2
		case v2 == "" && v1 != "":
			pa.Parts[k] = v1
		}
	}
}
