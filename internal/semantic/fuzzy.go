package semantic

// Ratio scores the similarity of a and b in [0, 100] as twice the longest
// common subsequence over the combined length. Both empty scores 100.
func Ratio(a, b string) float64 {
	return ratioRunes([]rune(a), []rune(b))
}

// PartialRatio aligns the shorter string against every window of the
// longer one, including windows clipped at either end, and returns the
// best Ratio.
func PartialRatio(a, b string) float64 {
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}
	if len(s) == 0 {
		if len(l) == 0 {
			return 100
		}
		return 0
	}
	best := 0.0
	for start := 1 - len(s); start < len(l); start++ {
		lo, hi := max(start, 0), min(start+len(s), len(l))
		if r := ratioRunes(s, l[lo:hi]); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func ratioRunes(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcsLen(a, b)) / float64(total)
}

func lcsLen(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			switch {
			case a[i] == b[j]:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
