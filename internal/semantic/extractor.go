// Package semantic maps layout boxes on a canonical card image to named
// identity fields. Boxes are classified as labels, values or noise; each
// field's label is anchored inside the vertical band it is printed in and
// its value is read from the label text itself, from the same row, or
// from the line below. Structured sections (date of birth, addresses) are
// resolved per sub-label and validated against the district table.
package semantic

import (
	"log/slog"
	"math"

	"github.com/MeKo-Tech/nagarikta/internal/layout"
)

// Extractor turns a Layout into field values. It holds no per-call state
// and is safe for concurrent use.
type Extractor struct {
	cfg Config
	geo *Geography
}

// New creates an Extractor. A nil geography selects DefaultGeography.
func New(cfg Config, geo *Geography) *Extractor {
	if geo == nil {
		geo = DefaultGeography()
	}
	return &Extractor{cfg: cfg, geo: geo}
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// run is the state of one Extract call.
type run struct {
	cfg     Config
	geo     *Geography
	boxes   []*layout.Box
	height  float64
	avgH    float64
	avgW    float64
	anchors map[string]Anchor
	res     *Result
}

// Extract classifies every box of l in place, setting its Role, and
// returns the extracted fields. canonicalHeight is the height of the image
// the boxes were detected on; zero derives it from the boxes. Each step is
// isolated: a failing heuristic leaves its field unset and the rest run.
func (e *Extractor) Extract(l layout.Layout, canonicalHeight int) Result {
	res := Result{
		Fields:      map[string]Value{},
		Confidences: map[string]float64{},
		Anchors:     map[string]Anchor{},
	}
	r := &run{
		cfg:     e.cfg,
		geo:     e.geo,
		boxes:   l.Boxes,
		height:  float64(canonicalHeight),
		anchors: res.Anchors,
		res:     &res,
	}
	r.measure(l)

	guard("classify", r.classify)
	guard("anchor", r.anchor)
	for _, f := range []string{FieldCertificateNumber, FieldSex, FieldFullName} {
		guard("resolve "+f, func() { r.resolveField(f) })
	}
	guard("date of birth", r.dateOfBirth)
	guard("addresses", r.addresses)
	guard("validate", r.validate)

	for _, f := range ExpectedFields {
		if _, ok := res.Fields[f]; !ok {
			res.Flags = append(res.Flags, "MISSING: "+f)
		}
	}
	slog.Debug("semantic extraction done",
		"boxes", len(l.Boxes), "anchors", len(res.Anchors),
		"fields", len(res.Fields), "issues", len(res.Issues))
	return res
}

func (r *run) measure(l layout.Layout) {
	avgH, avgW := l.AvgHeight, l.AvgWidth
	if (avgH <= 0 || avgW <= 0) && len(r.boxes) > 0 {
		var sh, sw float64
		for _, b := range r.boxes {
			sh += b.Height()
			sw += b.Width()
		}
		avgH = sh / float64(len(r.boxes))
		avgW = sw / float64(len(r.boxes))
	}
	r.avgH = math.Max(1, avgH)
	r.avgW = math.Max(1, avgW)

	if r.height <= 0 {
		for _, b := range r.boxes {
			r.height = math.Max(r.height, b.Y1)
		}
	}
	r.height = math.Max(1, r.height)
}

func guard(step string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("field heuristic failed", "step", step, "panic", p)
		}
	}()
	fn()
}

// isAnchorBox reports whether b is the label box of any field.
func (r *run) isAnchorBox(b *layout.Box) bool {
	for _, a := range r.anchors {
		if a.Box == b {
			return true
		}
	}
	return false
}

// frac is the vertical position of b as a fraction of the image height.
func (r *run) frac(b *layout.Box) float64 { return b.CY / r.height }
