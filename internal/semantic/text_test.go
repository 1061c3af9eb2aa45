package semantic

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestToASCIIDigits(t *testing.T) {
	tests := map[string]string{
		"२०६३":      "2063",
		"2O63":      "2063",
		"1O/l2":     "10/12",
		"Old Road":  "Old Road",
		"०७ Baisakh": "07 Baisakh",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToASCIIDigits(in), in)
	}
}

func TestInlineValue(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		patterns []string
		want     string
		ok       bool
	}{
		{"colon", "Full Name: SRISTI", specFor(FieldFullName).patterns, "SRISTI", true},
		{"dotted label", "D.O.B 2063", specFor(FieldDateOfBirth).patterns, "2063", true},
		{"dash", "Name - Ram Thapa", specFor(FieldFullName).patterns, "Ram Thapa", true},
		{"spaced label", "Citizenship Certificate No. 12-34-56", specFor(FieldCertificateNumber).patterns, "12-34-56", true},
		{"label only", "Full Name", specFor(FieldFullName).patterns, "", false},
		{"other colon", "Something: else", specFor(FieldSex).patterns, "else", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := inlineValue(tt.text, tt.patterns)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabelScore(t *testing.T) {
	assert.InDelta(t, 100.0, labelScore("SEX", []string{"sex"}), 1e-9)
	assert.InDelta(t, 100.0, labelScore("Date  of   Bith", specFor(FieldDateOfBirth).patterns), 1e-9)
	assert.InDelta(t, 93.75, labelScore("Permanant Adress", specFor(FieldPermanentAddress).patterns), 1e-9)
	// "dist" aligns with "sristi" at 75, below the short pattern floor.
	assert.Zero(t, labelScore("sristi", []string{"dist"}))

	for text, pattern := range map[string]string{
		"RAM KUMAR MAHAT": "r m",
		"Edward":          "ward",
		"SIMON":           "mon",
		"Sandy":           "dy",
	} {
		assert.Zero(t, labelScore(text, []string{pattern}), text)
	}
	for text, pattern := range map[string]string{
		"Dist.:":    "dist",
		"W.No.":     "w.no",
		"R M":       "r m",
		"Ward No 3": "ward",
		"(Yr)":      "yr",
	} {
		assert.InDelta(t, 100.0, labelScore(text, []string{pattern}), 1e-9, text)
	}
	assert.Less(t, labelScore("Edward", specFor(FieldFullName).patterns), 70.0)
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 100.0, Ratio("", ""), 1e-9)
	assert.InDelta(t, 0.0, Ratio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 93.333, Ratio("kirtipr", "kirtipur"), 1e-3)
	assert.InDelta(t, 100.0, PartialRatio("abc", "xxabcxx"), 1e-9)
	assert.InDelta(t, 100.0, PartialRatio("xxabcxx", "abc"), 1e-9)
	assert.Zero(t, PartialRatio("", "abc"))
	assert.InDelta(t, 100.0, Ratio("काठमाडौं", "काठमाडौं"), 1e-9)
}

func TestRatio_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ratio is symmetric and bounded", prop.ForAll(
		func(a, b string) bool {
			r := Ratio(a, b)
			return r >= 0 && r <= 100 && r == Ratio(b, a)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))
	properties.Property("identical strings score 100", prop.ForAll(
		func(a string) bool { return Ratio(a, a) == 100 && PartialRatio(a, a) == 100 },
		gen.AnyString(),
	))
	properties.Property("a substring aligns fully", prop.ForAll(
		func(a, pre, post string) bool {
			return PartialRatio(a, pre+a+post) == 100
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestNormalizeMonth(t *testing.T) {
	tests := map[string]string{
		"08":      "AUG",
		"8":       "AUG",
		"Aug":     "AUG",
		"AUGUST":  "AUG",
		"Mar.":    "MAR",
		"may":     "MAY",
		"Sept":    "SEP",
		"१२":      "DEC",
		"13":      "13",
		"Magh":    "MAGH",
		"Shrawan": "SHRAWAN",
		"Jest":    "JESTHA",
		"xy":      "XY",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeMonth(in), in)
	}
}

func TestCertFrom(t *testing.T) {
	tests := []struct {
		text, want string
		ok         bool
	}{
		{"No. 27-01-76-05678", "27-01-76-05678", true},
		{"27/01/76", "27/01/76", true},
		{"२७ ०१.७६ 05678", "27-01-76-05678", true},
		{"12-34", "", false},
	}
	for _, tt := range tests {
		got, ok := certFrom(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestSexFrom(t *testing.T) {
	v, ok := sexFrom("Sex Female")
	assert.True(t, ok)
	assert.Equal(t, "female", v)

	v, ok = sexFrom("Sex: Ma")
	assert.True(t, ok)
	assert.Equal(t, "male", v)

	_, ok = sexFrom("Sex")
	assert.False(t, ok)

	assert.Equal(t, "MALE", canonicalSex("male"))
	assert.Equal(t, "FEMALE", canonicalSex("Fem"))
	assert.Equal(t, "X", canonicalSex("X"))
}

func TestValueEncoding(t *testing.T) {
	out, err := json.Marshal(map[string]Value{
		"a": Text("x"),
		"b": Parts(map[string]string{"ward": "5"}),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":{"ward":"5"}}`, string(out))

	var back map[string]Value
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, Text("x"), back["a"])
	assert.Equal(t, "5", back["b"].Part("ward"))
	assert.True(t, back["b"].IsParts())

	y, err := yaml.Marshal(map[string]Value{"a": Text("x")})
	require.NoError(t, err)
	assert.Equal(t, "a: x\n", string(y))
}
