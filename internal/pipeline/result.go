package pipeline

import (
	"encoding/json"
	"fmt"
	"image"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/nagarikta/internal/geometry"
	"github.com/MeKo-Tech/nagarikta/internal/layout"
	"github.com/MeKo-Tech/nagarikta/internal/semantic"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Result is the outcome of one extraction run. On failure Success is
// false, Error names the failing phase and the outputs of completed phases
// are kept.
type Result struct {
	RunID            string                    `json:"run_id"                  yaml:"run_id"`
	WarpMetadata     *geometry.WarpMetadata    `json:"warp_metadata,omitempty" yaml:"warp_metadata,omitempty"`
	LayoutSummary    *LayoutSummary            `json:"layout_summary,omitempty" yaml:"layout_summary,omitempty"`
	Fields           map[string]semantic.Value `json:"fields"                  yaml:"fields"`
	FieldConfidences map[string]float64        `json:"field_confidences"       yaml:"field_confidences"`
	ValidationIssues []semantic.Issue          `json:"validation_issues"       yaml:"validation_issues"`
	FlagsForReview   []string                  `json:"flags_for_review"        yaml:"flags_for_review"`
	BoxRoles         []BoxRole                 `json:"box_roles"               yaml:"box_roles"`
	Timing           map[string]float64        `json:"timing"                  yaml:"timing"`
	RawText          string                    `json:"raw_ocr_text"            yaml:"raw_ocr_text"`
	Success          bool                      `json:"success"                 yaml:"success"`
	Error            string                    `json:"error,omitempty"         yaml:"error,omitempty"`

	Canonical *image.NRGBA  `json:"-" yaml:"-"`
	Layout    layout.Layout `json:"-" yaml:"-"`
}

// LayoutSummary condenses the text layout of the canonical image.
type LayoutSummary struct {
	NumBoxes     int     `json:"num_boxes"      yaml:"num_boxes"`
	AvgBoxHeight float64 `json:"avg_box_height" yaml:"avg_box_height"`
	AvgBoxWidth  float64 `json:"avg_box_width"  yaml:"avg_box_width"`
	NumLines     int     `json:"num_lines"      yaml:"num_lines"`
	Engine       string  `json:"ocr_engine"     yaml:"ocr_engine"`
	Fallback     bool    `json:"fallback_used"  yaml:"fallback_used"`
}

// BoxRole is the role assigned to one recognized box.
type BoxRole struct {
	Text       string         `json:"text"       yaml:"text"`
	Role       layout.Role    `json:"role"       yaml:"role"`
	Box        [4]utils.Point `json:"box"        yaml:"box"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
}

func (r *Result) fail(ph Phase, err error) {
	r.Success = false
	r.Error = fmt.Sprintf("Phase %d failed: %v", int(ph), err)
}

func (r *Result) setLayout(l layout.Layout) {
	r.Layout = l
	r.RawText = l.RawText()
	r.LayoutSummary = &LayoutSummary{
		NumBoxes:     len(l.Boxes),
		AvgBoxHeight: round(l.AvgHeight, 1),
		AvgBoxWidth:  round(l.AvgWidth, 1),
		NumLines:     len(l.Rows),
		Engine:       l.Engine,
		Fallback:     l.Fallback,
	}
}

func (r *Result) setSemantic(s semantic.Result, l layout.Layout) {
	for k, v := range s.Fields {
		r.Fields[k] = v
	}
	for k, c := range s.Confidences {
		r.FieldConfidences[k] = round(c, 3)
	}
	r.ValidationIssues = append(r.ValidationIssues, s.Issues...)
	r.FlagsForReview = append(r.FlagsForReview, s.Flags...)
	for _, b := range l.Boxes {
		r.BoxRoles = append(r.BoxRoles, BoxRole{
			Text:       b.Text,
			Role:       b.Role,
			Box:        b.Points,
			Confidence: round(b.Confidence, 3),
		})
	}
}

// Field returns the plain text of a field, or "" if it was not extracted.
func (r *Result) Field(name string) string {
	return r.Fields[name].Text
}

// FieldText renders any field as one line, composite parts as sorted
// key=value pairs.
func (r *Result) FieldText(name string) string {
	return formatValue(r.Fields[name])
}

// ToJSON renders the result as indented JSON.
func (r *Result) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToYAML renders the result as YAML.
func (r *Result) ToYAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// ToText renders a short human readable report.
func (r *Result) ToText() string {
	var sb strings.Builder
	if !r.Success {
		fmt.Fprintf(&sb, "Extraction failed: %s\n", r.Error)
	}
	if r.WarpMetadata != nil {
		fmt.Fprintf(&sb, "Border: %s\n", r.WarpMetadata.Strategy)
	}
	if r.LayoutSummary != nil {
		fmt.Fprintf(&sb, "OCR: %d boxes in %d lines (%s)\n",
			r.LayoutSummary.NumBoxes, r.LayoutSummary.NumLines, r.LayoutSummary.Engine)
	}
	names := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&sb, "  %-32s %-40s %.2f\n", k, formatValue(r.Fields[k]), r.FieldConfidences[k])
	}
	for _, is := range r.ValidationIssues {
		fmt.Fprintf(&sb, "  %s %s: %s\n", strings.ToUpper(string(is.Severity)), is.Field, is.Message)
	}
	for _, f := range r.FlagsForReview {
		fmt.Fprintf(&sb, "  FLAG %s\n", f)
	}
	return sb.String()
}

func formatValue(v semantic.Value) string {
	if !v.IsParts() {
		return v.Text
	}
	keys := make([]string, 0, len(v.Parts))
	for k := range v.Parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + v.Parts[k]
	}
	return strings.Join(parts, " ")
}
