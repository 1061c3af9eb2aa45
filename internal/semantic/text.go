package semantic

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// devanagariDigits maps U+0966..U+096F to ASCII digits.
var devanagariDigits = runes.Map(func(r rune) rune {
	if r >= '०' && r <= '९' {
		return '0' + (r - '०')
	}
	return r
})

// ToASCIIDigits transliterates Devanagari digits and repairs common OCR
// confusions next to digits: o and O become 0, l and I become 1.
func ToASCIIDigits(text string) string {
	out, _, err := transform.String(devanagariDigits, text)
	if err != nil {
		out = text
	}
	rs := []rune(out)
	isDigit := func(i int) bool { return i >= 0 && i < len(rs) && unicode.IsDigit(rs[i]) }
	for i, r := range rs {
		var repl rune
		switch r {
		case 'o', 'O':
			repl = '0'
		case 'l', 'I':
			repl = '1'
		default:
			continue
		}
		if isDigit(i-1) || isDigit(i+1) {
			rs[i] = repl
		}
	}
	return string(rs)
}

// normalize folds text to NFC lower case with single spaces.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(text))), " ")
}

func hasAlnum(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// alnumOnly drops everything except letters and digits.
func alnumOnly(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, text)
}

func allDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// labelScore is the best match of text against patterns in [0, 100]. A
// pattern contained in the text scores 100. Patterns of four runes or
// fewer only match whole words of the text, and only from 90 up, so
// "ward" never fires inside "Edward".
func labelScore(text string, patterns []string) float64 {
	t := normalize(text)
	best := 0.0
	for _, p := range patterns {
		if len([]rune(p)) <= 4 {
			best = max(best, shortLabelScore(t, p))
			continue
		}
		if strings.Contains(t, p) {
			return 100
		}
		best = max(best, PartialRatio(t, p))
	}
	return best
}

// shortLabelScore compares p with every run of as many words of t as p
// has. Scores below 90 count as zero.
func shortLabelScore(t, p string) float64 {
	words := labelWords(t)
	n := len(strings.Fields(p))
	best := 0.0
	for i := 0; i+n <= len(words); i++ {
		best = max(best, Ratio(strings.Join(words[i:i+n], " "), p))
	}
	if best < 90 {
		return 0
	}
	return best
}

// labelWords splits t on spaces and label punctuation, trimming dots and
// dashes at word edges.
func labelWords(t string) []string {
	fields := strings.FieldsFunc(t, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":;,()|", r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, ".-"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

var (
	leadingPunct = regexp.MustCompile(`^[\s:.\-]+`)
	flexCache    = map[string]*regexp.Regexp{}
	exactCache   = map[string]*regexp.Regexp{}
)

// flexPattern matches a label with optional whitespace and dots between
// its characters, case-insensitively.
func flexPattern(label string) *regexp.Regexp {
	if rx, ok := flexCache[label]; ok {
		return rx
	}
	parts := make([]string, 0, len(label))
	for _, r := range strings.ToLower(label) {
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, `[\s.]*`))
}

func exactPattern(label string) *regexp.Regexp {
	if rx, ok := exactCache[label]; ok {
		return rx
	}
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label))
}

// primePatternCache compiles every label once; the caches are read-only
// afterwards.
func primePatternCache(lists ...[]string) {
	for _, l := range lists {
		for _, p := range l {
			flexCache[p] = flexPattern(p)
			exactCache[p] = exactPattern(p)
		}
	}
}

func trimValue(s string) string {
	return strings.TrimSpace(leadingPunct.ReplaceAllString(strings.TrimSpace(s), ""))
}

// inlineValue extracts the value from text shaped like "Label: Value". The
// label end is taken from the flexible match reaching furthest, then from
// a colon, then from the longest literal pattern.
func inlineValue(text string, patterns []string) (string, bool) {
	end := -1
	for _, p := range patterns {
		if loc := flexPattern(p).FindStringIndex(text); loc != nil && loc[1] > end {
			end = loc[1]
		}
	}
	if end > 0 {
		if v := trimValue(text[end:]); v != "" {
			return v, true
		}
	}

	if _, rhs, ok := strings.Cut(text, ":"); ok {
		if v := strings.TrimSpace(rhs); v != "" {
			return v, true
		}
	}

	var bestLoc []int
	bestLen := 0
	for _, p := range patterns {
		if loc := exactPattern(p).FindStringIndex(text); loc != nil && len(p) > bestLen {
			bestLoc, bestLen = loc, len(p)
		}
	}
	if bestLoc != nil {
		if v := trimValue(text[bestLoc[1]:]); v != "" {
			return v, true
		}
	}
	return "", false
}
