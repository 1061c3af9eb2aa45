package semantic

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

func (r *run) validate() {
	if v, ok := r.res.Fields[FieldCertificateNumber]; ok && !certStrictFull.MatchString(v.Text) {
		r.res.warn(FieldCertificateNumber,
			fmt.Sprintf("certificate number %q does not match the digit group format", v.Text))
	}
	if v, ok := r.res.Fields[FieldSex]; ok && !validSex(v.Text) {
		r.res.warn(FieldSex, fmt.Sprintf("sex %q is not one of male, female, other", v.Text))
	}
	if v, ok := r.res.Fields[FieldDateOfBirthParts]; ok {
		if y, ok := v.Parts["year"]; ok && !yearFull.MatchString(y) {
			r.res.warn(FieldDateOfBirth+".year", fmt.Sprintf("year %q is not four digits", y))
		}
		if d, ok := v.Parts["day"]; ok && !validDay(d) {
			r.res.warn(FieldDateOfBirth+".day", fmt.Sprintf("day %q is not between 1 and 32", d))
		}
	}
	for _, f := range addressFields {
		if v, ok := r.res.Fields[f]; ok {
			r.validateAddress(f, v.Parts)
		}
	}
}

func validSex(v string) bool {
	l := strings.ToLower(strings.TrimSpace(v))
	for _, s := range sexValues {
		if l == s {
			return true
		}
	}
	return false
}

func validDay(d string) bool {
	n, err := strconv.Atoi(nonDigitRe.ReplaceAllString(ToASCIIDigits(d), ""))
	return err == nil && n >= 1 && n <= 32
}

// validateAddress checks district and municipality against the geography
// table. A close enough match replaces the value in place.
func (r *run) validateAddress(field string, parts map[string]string) {
	district, ok := parts["district"]
	if !ok {
		return
	}
	if !r.geo.ValidateDistrict(district) {
		alt, score := r.geo.MatchDistrict(district)
		if score >= r.cfg.DistrictThreshold {
			slog.Debug("district corrected", "field", field, "from", district, "to", alt, "score", score)
			parts["district"], district = alt, alt
		} else {
			r.res.warn(field+".district", fmt.Sprintf("unknown district %q", district))
		}
	}

	m, ok := parts["municipality"]
	if !ok || r.geo.ValidateMunicipality(district, m) {
		return
	}
	alt, score := r.geo.MatchMunicipality(district, m, r.cfg.DistrictThreshold)
	if alt != "" && score >= r.cfg.MunicipalityThreshold {
		slog.Debug("municipality corrected", "field", field, "from", m, "to", alt, "score", score)
		parts["municipality"] = alt
		return
	}
	r.res.warn(field+".municipality", fmt.Sprintf("unknown municipality %q in district %q", m, district))
}
