package semantic

import "regexp"

// Output field names.
const (
	FieldCertificateNumber = "citizenship_certificate_number"
	FieldSex               = "sex"
	FieldFullName          = "full_name"
	FieldDateOfBirth       = "date_of_birth"
	FieldDateOfBirthParts  = "date_of_birth_parts"
	FieldBirthPlace        = "birth_place"
	FieldPermanentAddress  = "permanent_address"
)

// ExpectedFields are the fields every card carries, in review flag order.
var ExpectedFields = []string{
	FieldCertificateNumber,
	FieldSex,
	FieldFullName,
	FieldDateOfBirth,
	FieldBirthPlace,
	FieldPermanentAddress,
}

// fieldSpec describes a top level label: its spellings, including common
// OCR misreadings, and the vertical band it is printed in as a fraction
// of the canonical height.
type fieldSpec struct {
	field    string
	patterns []string
	band     [2]float64
}

var fieldSpecs = []fieldSpec{
	{FieldCertificateNumber, []string{
		"citizenship certificate no",
		"citizenship certicate no",
		"citizenship certificale no",
		"certificate no",
		"certicate no",
		"cert no",
		"certificate number",
	}, [2]float64{0.00, 0.35}},
	{FieldSex, []string{"sex"}, [2]float64{0.00, 0.40}},
	{FieldFullName, []string{"full name", "fullname", "name"}, [2]float64{0.00, 0.45}},
	{FieldDateOfBirth, []string{
		"date of birth",
		"date of bith",
		"dale of birth",
		"date ofbirth",
		"date of birth (ad)",
		"birth(ad)",
		"birth (ad)",
		"d.o.b",
		"dob",
	}, [2]float64{0.05, 0.65}},
	{FieldBirthPlace, []string{"birth place", "birthplace", "place of birth"}, [2]float64{0.10, 0.85}},
	{FieldPermanentAddress, []string{
		"permanent address",
		"permanent adress",
		"permanentaddress",
	}, [2]float64{0.20, 1.00}},
}

func specFor(field string) fieldSpec {
	for _, s := range fieldSpecs {
		if s.field == field {
			return s
		}
	}
	return fieldSpec{}
}

// subLabel is a label inside a structured section.
type subLabel struct {
	key      string
	patterns []string
}

var dobSubLabels = []subLabel{
	{"year", []string{"year", "yr"}},
	{"month", []string{"month", "mon"}},
	{"day", []string{"day", "dy"}},
}

var addressSubLabels = []subLabel{
	{"district", []string{"district", "dist", "disrict"}},
	{"municipality", []string{
		"municipality", "r m", "r.m.", "r.m",
		"rural municipality",
		"metro", "metropolitan", "metropolit",
		"sub metropolitan", "sub-metropolitan",
		"sub metropolit", "sub-metropolit",
		"muncipality", "municipallty",
		"municipaity", "v.d.c", "vdc", "gaupalika",
		"nagarpalika",
	}},
	{"ward", []string{"ward no", "ward", "w.no", "wno"}},
}

var (
	certStrict     = regexp.MustCompile(`(\d{1,5}[-/]\d{1,5}(?:[-/]\d{1,5})+)`)
	certStrictFull = regexp.MustCompile(`^\d{1,5}[-/]\d{1,5}(?:[-/]\d{1,5})+$`)
	certLoose      = regexp.MustCompile(`(\d{1,5})\s*[-/.\s]\s*(\d{1,5})\s*[-/.\s]\s*(\d{1,5})\s*[-/.\s]\s*(\d{1,6})`)

	yearRe      = regexp.MustCompile(`((?:19|20)\d{2})`)
	yearFull    = regexp.MustCompile(`^\d{4}$`)
	dayRe       = regexp.MustCompile(`(\d{1,2})`)
	dayWordRe   = regexp.MustCompile(`\b(\d{1,2})\b`)
	wardRe      = regexp.MustCompile(`(\d{1,3})`)
	dateTokenRe = regexp.MustCompile(`^(\d{1,4}|[a-zA-Z]+)`)
	nonDigitRe  = regexp.MustCompile(`\D`)
	nonLetterRe = regexp.MustCompile(`[^a-zA-Z]`)
	sexPrefixRe = regexp.MustCompile(`^.*sex[\s:.\-]*`)
)

// sexValues is ordered so that "female" is tested before "male".
var sexValues = []string{"female", "male", "other"}

var englishMonths = []struct{ name, code string }{
	{"january", "JAN"}, {"february", "FEB"}, {"march", "MAR"},
	{"april", "APR"}, {"may", "MAY"}, {"june", "JUN"},
	{"july", "JUL"}, {"august", "AUG"}, {"september", "SEP"},
	{"october", "OCT"}, {"november", "NOV"}, {"december", "DEC"},
}

var nepaliMonths = []string{
	"baisakh", "jestha", "ashadh", "shrawan", "bhadra", "ashwin",
	"kartik", "mangsir", "poush", "magh", "falgun", "chaitra",
}

func init() {
	for _, s := range fieldSpecs {
		primePatternCache(s.patterns)
	}
	for _, l := range append(append([]subLabel{}, dobSubLabels...), addressSubLabels...) {
		primePatternCache(l.patterns)
	}
}
