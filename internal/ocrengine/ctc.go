package ocrengine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Charset maps recognition classes to text. Class 0 is the CTC blank,
// classes 1..N are the dictionary lines and class N+1 is a space.
type Charset struct {
	tokens []string
}

// LoadCharset reads a dictionary file with one token per line.
func LoadCharset(path string) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // configured dictionary path
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	cs, err := ParseCharset(f)
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", path, err)
	}
	return cs, nil
}

// ParseCharset reads tokens from r. A UTF-8 BOM and trailing line breaks
// are dropped; tokens themselves are not trimmed so a literal space line
// survives.
func ParseCharset(r io.Reader) (*Charset, error) {
	sc := bufio.NewScanner(r)
	var tokens []string
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errors.New("dictionary is empty")
	}
	return &Charset{tokens: tokens}, nil
}

// Classes returns the number of output classes the model must produce.
func (c *Charset) Classes() int { return len(c.tokens) + 2 }

// Token returns the text of a class, or "" for the blank and unknown
// classes.
func (c *Charset) Token(class int) string {
	switch {
	case class <= 0:
		return ""
	case class <= len(c.tokens):
		return c.tokens[class-1]
	case class == len(c.tokens)+1:
		return " "
	default:
		return ""
	}
}

// ctcGreedy decodes a [T, C] score matrix: best class per step, repeats
// collapsed, blanks dropped. It returns the class sequence and the
// probability of each kept class.
func ctcGreedy(scores []float32, steps, classes int) ([]int, []float64) {
	var seq []int
	var probs []float64
	prev := -1
	for t := range steps {
		row := scores[t*classes : (t+1)*classes]
		best := argmax(row)
		if best != 0 && best != prev {
			seq = append(seq, best)
			probs = append(probs, classProb(row, best))
		}
		prev = best
	}
	return seq, probs
}

func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// classProb returns v[idx] when v already sums to one, otherwise its
// softmax probability.
func classProb(v []float32, idx int) float64 {
	var sum float64
	lo, hi := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		lo, hi = min(lo, x), max(hi, x)
	}
	if sum > 0.99 && sum < 1.01 && lo >= 0 && hi <= 1 {
		return float64(v[idx])
	}
	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - hi))
	}
	return math.Exp(float64(v[idx]-hi)) / denom
}

// decodeLine turns a recognition output of shape [1, T, C] into text and a
// mean character confidence.
func decodeLine(scores []float32, shape []int64, cs *Charset) (string, float64, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return "", 0, fmt.Errorf("unexpected recognition output shape %v", shape)
	}
	steps, classes := int(shape[1]), int(shape[2])
	if steps*classes != len(scores) {
		return "", 0, fmt.Errorf("recognition output has %d values for shape %v", len(scores), shape)
	}
	if classes != cs.Classes() {
		return "", 0, fmt.Errorf("model has %d classes, dictionary implies %d", classes, cs.Classes())
	}
	seq, probs := ctcGreedy(scores, steps, classes)
	var sb strings.Builder
	for _, c := range seq {
		sb.WriteString(cs.Token(c))
	}
	conf := 0.0
	for _, p := range probs {
		conf += p
	}
	if len(probs) > 0 {
		conf /= float64(len(probs))
	}
	return strings.TrimSpace(sb.String()), conf, nil
}
