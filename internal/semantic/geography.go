package semantic

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed geography.yaml
var geographyYAML []byte

// District is one district with its local levels.
type District struct {
	Name           string   `yaml:"district"`
	Province       string   `yaml:"province"`
	Municipalities []string `yaml:"municipalities"`
}

// Geography is a read-only district and municipality reference.
type Geography struct {
	districts []District
	index     map[string]int
}

// LoadGeography parses a YAML list of districts.
func LoadGeography(r io.Reader) (*Geography, error) {
	var ds []District
	if err := yaml.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode geography: %w", err)
	}
	if len(ds) == 0 {
		return nil, errors.New("geography has no districts")
	}
	g := &Geography{districts: ds, index: make(map[string]int, len(ds))}
	for i, d := range ds {
		k := foldKey(d.Name)
		if k == "" {
			return nil, fmt.Errorf("geography entry %d has no district name", i)
		}
		if _, dup := g.index[k]; dup {
			return nil, fmt.Errorf("duplicate district %q", d.Name)
		}
		g.index[k] = i
	}
	return g, nil
}

var defaultGeography = sync.OnceValue(func() *Geography {
	g, err := LoadGeography(bytes.NewReader(geographyYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded geography: %v", err))
	}
	return g
})

// DefaultGeography returns the embedded table of the 77 districts of Nepal.
func DefaultGeography() *Geography { return defaultGeography() }

// foldKey builds a case-insensitive lookup key. A Caser keeps state, so a
// fresh one is made per call.
func foldKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// Districts lists the district names in table order.
func (g *Geography) Districts() []string {
	out := make([]string, len(g.districts))
	for i, d := range g.districts {
		out[i] = d.Name
	}
	return out
}

func (g *Geography) district(name string) (District, bool) {
	i, ok := g.index[foldKey(name)]
	if !ok {
		return District{}, false
	}
	return g.districts[i], true
}

// Province returns the province of a district.
func (g *Geography) Province(district string) (string, bool) {
	d, ok := g.district(district)
	return d.Province, ok
}

// ValidateDistrict reports whether name is a known district.
func (g *Geography) ValidateDistrict(name string) bool {
	_, ok := g.district(name)
	return ok
}

// ValidateMunicipality reports whether name is a local level of the given
// district. Unknown districts validate nothing.
func (g *Geography) ValidateMunicipality(district, name string) bool {
	d, ok := g.district(district)
	if !ok {
		return false
	}
	k := foldKey(name)
	for _, m := range d.Municipalities {
		if foldKey(m) == k {
			return true
		}
	}
	return false
}

// MatchDistrict returns the district closest to name and its Ratio score.
func (g *Geography) MatchDistrict(name string) (string, float64) {
	q := strings.ToLower(strings.TrimSpace(name))
	best, bestScore := "", 0.0
	for _, d := range g.districts {
		if s := Ratio(q, strings.ToLower(d.Name)); s > bestScore {
			best, bestScore = d.Name, s
		}
	}
	return best, bestScore
}

// MatchMunicipality returns the local level of district closest to name.
// Partial matches count for names of three runes or more, weighted down
// to 85%. A district that is not known exactly is first resolved with
// MatchDistrict at districtThreshold.
func (g *Geography) MatchMunicipality(district, name string, districtThreshold float64) (string, float64) {
	d, ok := g.district(district)
	if !ok {
		alt, score := g.MatchDistrict(district)
		if score < districtThreshold {
			return "", 0
		}
		d, _ = g.district(alt)
	}
	q := strings.ToLower(strings.TrimSpace(name))
	partial := len([]rune(q)) >= 3
	best, bestScore := "", 0.0
	for _, m := range d.Municipalities {
		lm := strings.ToLower(m)
		s := Ratio(q, lm)
		if partial {
			s = max(s, PartialRatio(q, lm)*0.85)
		}
		if s > bestScore {
			best, bestScore = m, s
		}
	}
	return best, bestScore
}
