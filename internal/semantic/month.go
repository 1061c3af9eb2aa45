package semantic

import (
	"strconv"
	"strings"
)

// NormalizeMonth maps a month token to a three letter code. English names
// and abbreviations and the numbers 1 to 12 map to JAN..DEC; anything
// starting with the first three letters of an English month maps to that
// month; Bikram Sambat month names are upper-cased. Otherwise the digits
// of the token, or the token upper-cased, are returned.
func NormalizeMonth(raw string) string {
	s := strings.TrimSpace(ToASCIIDigits(raw))
	lower := strings.ToLower(s)
	letters := nonLetterRe.ReplaceAllString(lower, "")
	digits := nonDigitRe.ReplaceAllString(s, "")

	if letters != "" {
		for _, m := range englishMonths {
			if letters == m.name || letters == m.name[:3] {
				return m.code
			}
		}
	}
	if letters == "" && digits != "" {
		if n, err := strconv.Atoi(digits); err == nil && n >= 1 && n <= 12 {
			return englishMonths[n-1].code
		}
	}
	if len(letters) >= 3 {
		for _, m := range englishMonths {
			if strings.HasPrefix(letters, m.name[:3]) {
				return m.code
			}
		}
		for _, m := range nepaliMonths {
			if letters == m || (len(letters) >= 4 && strings.HasPrefix(m, letters)) {
				return strings.ToUpper(m)
			}
		}
	}
	if digits != "" {
		return digits
	}
	return strings.ToUpper(s)
}
