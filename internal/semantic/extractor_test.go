package semantic

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/layout"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

const canonicalHeight = 600

func box(x0, y0, x1, y1 float64, text string, conf float64) *layout.Box {
	pts := [4]utils.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	return layout.NewBox(pts, text, conf)
}

func extract(cfg Config, boxes ...*layout.Box) Result {
	return New(cfg, nil).Extract(layout.Analyze(boxes), canonicalHeight)
}

func frontSide(sexConf float64) []*layout.Box {
	return []*layout.Box{
		box(10, 50, 500, 80, "Citizenship Certificate No: 42-02-81-00802", 0.95),
		box(600, 50, 750, 80, "Sex: Female", sexConf),
		box(10, 120, 300, 150, "Full Name", 0.93),
		box(320, 120, 600, 150, "SRISTI BHATTARAI", 0.91),
	}
}

func assertFlags(t *testing.T, res Result) {
	t.Helper()
	for _, f := range ExpectedFields {
		n := 0
		for _, flag := range res.Flags {
			if flag == "MISSING: "+f {
				n++
			}
		}
		if _, ok := res.Fields[f]; ok {
			assert.Zero(t, n, f)
		} else {
			assert.Equal(t, 1, n, f)
		}
	}
	for f, c := range res.Confidences {
		assert.GreaterOrEqual(t, c, 0.0, f)
		assert.LessOrEqual(t, c, 1.0, f)
		assert.Contains(t, res.Fields, f)
	}
}

func TestExtract_FrontSide(t *testing.T) {
	boxes := frontSide(0.9)
	res := extract(DefaultConfig(), boxes...)

	assert.Equal(t, Text("42-02-81-00802"), res.Fields[FieldCertificateNumber])
	assert.Equal(t, Text("FEMALE"), res.Fields[FieldSex])
	assert.Equal(t, Text("SRISTI BHATTARAI"), res.Fields[FieldFullName])
	assert.InDelta(t, 1.0, res.Confidences[FieldFullName], 1e-9)
	assert.Empty(t, res.Issues)
	assert.Equal(t, []string{
		"MISSING: " + FieldDateOfBirth,
		"MISSING: " + FieldBirthPlace,
		"MISSING: " + FieldPermanentAddress,
	}, res.Flags)
	assertFlags(t, res)

	assert.Equal(t, layout.RoleLabel, boxes[0].Role)
	assert.Equal(t, layout.RoleLabel, boxes[1].Role)
	assert.Equal(t, layout.RoleLabel, boxes[2].Role)
	assert.Equal(t, layout.RoleValue, boxes[3].Role)
	assert.Same(t, boxes[2], res.Anchors[FieldFullName].Box)
}

func TestExtract_LowConfidenceSex(t *testing.T) {
	boxes := frontSide(0.2)
	res := extract(DefaultConfig(), boxes...)

	assert.NotContains(t, res.Fields, FieldSex)
	assert.Contains(t, res.Flags, "MISSING: "+FieldSex)
	assert.Equal(t, layout.RoleNoise, boxes[1].Role)
	assert.Equal(t, Text("42-02-81-00802"), res.Fields[FieldCertificateNumber])
	assert.Equal(t, Text("SRISTI BHATTARAI"), res.Fields[FieldFullName])
	assertFlags(t, res)
}

func TestExtract_DateOfBirthPairs(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 200, 250, 230, "Date of Birth (AD):", 0.9),
		box(260, 200, 320, 230, "Year", 0.9),
		box(330, 200, 400, 230, "2063", 0.9),
		box(420, 200, 500, 230, "Month", 0.9),
		box(510, 200, 540, 230, "08", 0.9),
		box(560, 200, 610, 230, "Day", 0.9),
		box(620, 200, 650, 230, "07", 0.9),
	)

	assert.Equal(t, Text("2063-AUG-07"), res.Fields[FieldDateOfBirth])
	assert.Equal(t, Parts(map[string]string{"year": "2063", "month": "AUG", "day": "07"}),
		res.Fields[FieldDateOfBirthParts])
	assert.InDelta(t, 1.0, res.Confidences[FieldDateOfBirth], 1e-9)
	assert.Empty(t, res.Issues)
	assert.NotContains(t, res.Fields, FieldBirthPlace)
	assertFlags(t, res)
}

func TestExtract_DateOfBirthInline(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 200, 250, 230, "Date of Birth (AD):", 0.9),
		box(10, 240, 400, 270, "Year: 2063 Month: 08 Day: 07", 0.9),
	)
	assert.Equal(t, Text("2063-AUG-07"), res.Fields[FieldDateOfBirth])
}

func TestExtract_DateOfBirthBackfill(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 200, 200, 230, "Date of Birth:", 0.9),
		box(220, 200, 300, 230, "Month", 0.9),
		box(310, 200, 400, 230, "Baisakh", 0.9),
		box(10, 240, 100, 270, "2063", 0.9),
		box(120, 240, 140, 270, "7", 0.9),
	)
	assert.Equal(t, Text("2063-BAISAKH-7"), res.Fields[FieldDateOfBirth])
	assert.Equal(t, "2063", res.Fields[FieldDateOfBirthParts].Part("year"))
}

func TestExtract_DateOfBirthFuzzyHeader(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 200, 200, 230, "Dt f Brth", 0.9),
		box(10, 240, 100, 270, "2063", 0.9),
		box(120, 240, 160, 270, "07", 0.9),
	)

	require.Contains(t, res.Anchors, FieldDateOfBirth)
	assert.Less(t, res.Anchors[FieldDateOfBirth].Score, 90.0)
	assert.Equal(t, Text("2063-??-07"), res.Fields[FieldDateOfBirth])
	assert.Equal(t, Parts(map[string]string{"year": "2063", "day": "07"}),
		res.Fields[FieldDateOfBirthParts])
	assert.Less(t, res.Confidences[FieldDateOfBirth], 0.9)
	assert.NotContains(t, res.Flags, "MISSING: "+FieldDateOfBirth)
	assertFlags(t, res)
}

func TestExtract_DateOfBirthBackfillDayAfterMonth(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 200, 200, 230, "Date of Birth:", 0.9),
		box(220, 200, 300, 230, "Month", 0.9),
		box(310, 200, 360, 230, "07", 0.9),
		box(10, 240, 100, 270, "2063", 0.9),
		box(120, 240, 160, 270, "07", 0.9),
	)
	assert.Equal(t, Text("2063-JUL-07"), res.Fields[FieldDateOfBirth])
	assert.Equal(t, "07", res.Fields[FieldDateOfBirthParts].Part("day"))
}

func permanentAddress(municipality string) []*layout.Box {
	return []*layout.Box{
		box(10, 400, 300, 430, "Permanent Address", 0.9),
		box(10, 450, 120, 480, "District", 0.9),
		box(130, 450, 260, 480, "Kathmandu", 0.9),
		box(280, 450, 420, 480, "Municipality", 0.9),
		box(430, 450, 520, 480, municipality, 0.9),
		box(540, 450, 620, 480, "Ward No", 0.9),
		box(630, 450, 650, 480, "5", 0.9),
	}
}

func TestExtract_AddressValid(t *testing.T) {
	res := extract(DefaultConfig(), permanentAddress("Kirtipur")...)
	assert.Equal(t, Parts(map[string]string{
		"district":     "Kathmandu",
		"municipality": "Kirtipur",
		"ward":         "5",
	}), res.Fields[FieldPermanentAddress])
	assert.Empty(t, res.Issues)
	assertFlags(t, res)
}

func TestExtract_AddressCorrected(t *testing.T) {
	res := extract(DefaultConfig(), permanentAddress("Kirtipr")...)
	assert.Equal(t, "Kirtipur", res.Fields[FieldPermanentAddress].Part("municipality"))
	assert.Empty(t, res.Issues)
}

func TestExtract_AddressCorrectionBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MunicipalityThreshold = 95
	res := extract(cfg, permanentAddress("Kirtipr")...)

	assert.Equal(t, "Kirtipr", res.Fields[FieldPermanentAddress].Part("municipality"))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, FieldPermanentAddress+".municipality", res.Issues[0].Field)
	assert.Equal(t, SeverityWarning, res.Issues[0].Severity)
}

func TestExtract_AddressCrossFill(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 300, 200, 330, "Birth Place", 0.9),
		box(10, 340, 120, 370, "District", 0.9),
		box(130, 340, 260, 370, "Kathmandu", 0.9),
		box(280, 340, 420, 370, "Municipality", 0.9),
		box(430, 340, 520, 370, "Kirtipur", 0.9),
		box(540, 340, 620, 370, "Ward No", 0.9),
		box(630, 340, 650, 370, "3", 0.9),
		box(10, 400, 300, 430, "Permanent Address", 0.9),
		box(10, 440, 120, 470, "District", 0.9),
		box(130, 440, 260, 470, "Kathmandu", 0.9),
	)

	want := map[string]string{"district": "Kathmandu", "municipality": "Kirtipur", "ward": "3"}
	assert.Equal(t, Parts(want), res.Fields[FieldBirthPlace])
	assert.Equal(t, Parts(want), res.Fields[FieldPermanentAddress])
	assert.NotContains(t, res.Anchors, FieldDateOfBirth)
	assert.NotContains(t, res.Fields, FieldDateOfBirth)
	assertFlags(t, res)
}

func TestExtract_NameContainingShortLabel(t *testing.T) {
	name := box(320, 120, 600, 150, "RAM KUMAR MAHAT", 0.91)
	res := extract(DefaultConfig(), box(10, 120, 300, 150, "Full Name", 0.93), name)

	assert.Equal(t, layout.RoleValue, name.Role)
	assert.Equal(t, Text("RAM KUMAR MAHAT"), res.Fields[FieldFullName])
	assertFlags(t, res)
}

func TestExtract_Fallbacks(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 20, 300, 50, "Government of Nepal", 0.9),
		box(10, 60, 300, 90, "42-02-81-00802", 0.9),
		box(10, 120, 400, 160, "RAM BAHADUR THAPA", 0.9),
		box(10, 180, 200, 200, "HARI", 0.9),
		box(10, 400, 590, 460, "NEPAL", 0.9),
	)

	assert.Equal(t, Text("42-02-81-00802"), res.Fields[FieldCertificateNumber])
	assert.InDelta(t, 0.5, res.Confidences[FieldCertificateNumber], 1e-9)
	assert.Equal(t, Text("RAM BAHADUR THAPA"), res.Fields[FieldFullName])
	assert.InDelta(t, 0.4, res.Confidences[FieldFullName], 1e-9)
	assert.NotContains(t, res.Fields, FieldSex)
	assertFlags(t, res)
}

func TestExtract_LooseCertificate(t *testing.T) {
	res := extract(DefaultConfig(),
		box(10, 50, 300, 80, "Certificate No.", 0.9),
		box(320, 50, 560, 80, "२७ ०१.७६ 05678", 0.9),
	)
	assert.Equal(t, Text("27-01-76-05678"), res.Fields[FieldCertificateNumber])
	assert.Empty(t, res.Issues)
}

func TestExtract_TruncatedSex(t *testing.T) {
	res := extract(DefaultConfig(), box(600, 50, 750, 80, "Sex: Fem", 0.9))
	assert.Equal(t, Text("FEMALE"), res.Fields[FieldSex])
}

func TestExtract_InvalidSexWarns(t *testing.T) {
	res := extract(DefaultConfig(), box(600, 50, 750, 80, "Sex: Xyz", 0.9))
	assert.Equal(t, Text("Xyz"), res.Fields[FieldSex])
	require.Len(t, res.Issues, 1)
	assert.Equal(t, FieldSex, res.Issues[0].Field)
}

func TestExtract_Empty(t *testing.T) {
	res := New(DefaultConfig(), nil).Extract(layout.Layout{}, 0)
	assert.Empty(t, res.Fields)
	assert.Len(t, res.Flags, len(ExpectedFields))
	assertFlags(t, res)
}

func TestExtract_RolesAlwaysAssigned(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MaxSize = 12
	properties := gopter.NewProperties(params)
	ex := New(DefaultConfig(), nil)

	properties.Property("every box gets a role", prop.ForAll(
		func(texts []string, conf float64) bool {
			boxes := make([]*layout.Box, len(texts))
			for i, s := range texts {
				y := float64(i * 40)
				boxes[i] = box(10, y, 300, y+30, s, conf)
			}
			ex.Extract(layout.Analyze(boxes), canonicalHeight)
			for _, b := range boxes {
				switch b.Role {
				case layout.RoleLabel, layout.RoleValue, layout.RoleNoise:
				default:
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		conf float64
		want layout.Role
	}{
		{"Full Name", 0.9, layout.RoleLabel},
		{"SRISTI BHATTARAI", 0.9, layout.RoleValue},
		{"07", 0.9, layout.RoleValue},
		{"RAM KUMAR MAHAT", 0.9, layout.RoleValue},
		{"W.No.", 0.9, layout.RoleLabel},
		{"ab", 0.9, layout.RoleNoise},
		{"|:", 0.9, layout.RoleNoise},
		{"Kathmandu", 0.1, layout.RoleNoise},
	}
	r := &run{cfg: DefaultConfig()}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, r.role(box(0, 0, 10, 10, tt.text, tt.conf)))
		})
	}
}

func TestGuard(t *testing.T) {
	ran := false
	assert.NotPanics(t, func() {
		guard("boom", func() { panic("boom") })
		guard("ok", func() { ran = true })
	})
	assert.True(t, ran)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.LabelThreshold = 0
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.NoiseMinConfidence = 2
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.RowTolerance = 0
	assert.ErrorContains(t, cfg.Validate(), "positive")
}
