// Package kyc compares fields extracted from a citizenship card with the
// details an applicant submitted and keeps the outcome for review.
package kyc

import (
	"errors"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/semantic"
)

// NameThreshold is the minimum similarity in [0, 1] for names to match.
const NameThreshold = 0.85

var (
	// ErrInvalidClaims wraps claim validation failures.
	ErrInvalidClaims = errors.New("invalid claims")
	// ErrNotImplemented is returned by checks that have no detector yet.
	ErrNotImplemented = errors.New("not implemented")
	// ErrNotFound is returned by stores for unknown records.
	ErrNotFound = errors.New("record not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Claims are the applicant supplied details.
type Claims struct {
	SubjectID     string `json:"subject_id,omitempty" yaml:"subject_id,omitempty" validate:"omitempty,max=64"`
	FullName      string `json:"full_name"            yaml:"full_name"            validate:"required,min=2,max=128"`
	DateOfBirth   string `json:"date_of_birth"        yaml:"date_of_birth"        validate:"required,max=32"`
	CitizenshipNo string `json:"citizenship_no"       yaml:"citizenship_no"       validate:"required,max=32"`
}

// Validate checks the claims with their struct tags.
func (c Claims) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidClaims, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidClaims, err)
	}
	return nil
}

// Checks is the outcome of comparing claims with extracted fields. A
// field missing from the card never matches.
type Checks struct {
	NameMatch          bool    `json:"name_match"           yaml:"name_match"`
	NameScore          float64 `json:"name_score"           yaml:"name_score"`
	DOBMatch           bool    `json:"dob_match"            yaml:"dob_match"`
	CitizenshipNoMatch bool    `json:"citizenship_no_match" yaml:"citizenship_no_match"`
}

// CrossCheck compares an extraction result with the claims.
func CrossCheck(res *pipeline.Result, c Claims) Checks {
	var out Checks
	if res == nil {
		return out
	}
	if name := normalizeText(res.Field(semantic.FieldFullName)); name != "" {
		out.NameScore = semantic.Ratio(name, normalizeText(c.FullName)) / 100
		out.NameMatch = out.NameScore >= NameThreshold
	}
	if dob := normalizeDate(res.Field(semantic.FieldDateOfBirth)); dob != "" {
		out.DOBMatch = dob == normalizeDate(c.DateOfBirth)
	}
	if no := normalizeText(semantic.ToASCIIDigits(res.Field(semantic.FieldCertificateNumber))); no != "" {
		out.CitizenshipNoMatch = no == normalizeText(semantic.ToASCIIDigits(c.CitizenshipNo))
	}
	return out
}

// Policy turns checks into a decision.
type Policy func(Checks) bool

// AllMatch passes when every check matched.
func AllMatch(c Checks) bool { return c.NameMatch && c.DOBMatch && c.CitizenshipNoMatch }

// AnyMatch passes when at least one check matched.
func AnyMatch(c Checks) bool { return c.NameMatch || c.DOBMatch || c.CitizenshipNoMatch }

// ParsePolicy maps "all" and "any" to their policies.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return AllMatch, nil
	case "any":
		return AnyMatch, nil
	}
	return nil, fmt.Errorf("unknown decision policy %q", name)
}

// CheckThumbprint would detect a thumbprint on the back of the card.
func CheckThumbprint(image.Image) (bool, error) {
	return false, fmt.Errorf("thumbprint detection: %w", ErrNotImplemented)
}

var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s]+`)
	spaceRe = regexp.MustCompile(`\s+`)
	tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// normalizeText lower-cases s, removes punctuation and collapses spaces.
func normalizeText(s string) string {
	s = punctRe.ReplaceAllString(strings.ToLower(s), "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// normalizeDate brings year, month and day written in any of the card
// or form styles to one key. The month goes through the card's month
// codes and numeric parts lose leading zeros.
func normalizeDate(s string) string {
	parts := tokenRe.FindAllString(semantic.ToASCIIDigits(s), -1)
	if len(parts) != 3 {
		return normalizeText(s)
	}
	parts[1] = semantic.NormalizeMonth(parts[1])
	for i, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			parts[i] = strconv.Itoa(n)
		}
	}
	return strings.ToLower(strings.Join(parts, "-"))
}
