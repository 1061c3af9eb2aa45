package semantic

import (
	"bytes"
	"encoding/json"

	"github.com/MeKo-Tech/nagarikta/internal/layout"
)

// Value is an extracted field: plain text, or named parts for structured
// fields such as addresses and the date of birth breakdown.
type Value struct {
	Text  string
	Parts map[string]string
}

// Text returns a scalar Value.
func Text(s string) Value { return Value{Text: s} }

// Parts returns a structured Value.
func Parts(p map[string]string) Value { return Value{Parts: p} }

// IsParts reports whether v is structured.
func (v Value) IsParts() bool { return v.Parts != nil }

// Part returns one named part.
func (v Value) Part(key string) string { return v.Parts[key] }

// MarshalJSON encodes a scalar as a string and parts as an object.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsParts() {
		return json.Marshal(v.Parts)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts either encoding.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		v.Text = ""
		return json.Unmarshal(data, &v.Parts)
	}
	v.Parts = nil
	return json.Unmarshal(data, &v.Text)
}

// MarshalYAML mirrors MarshalJSON.
func (v Value) MarshalYAML() (any, error) {
	if v.IsParts() {
		return v.Parts, nil
	}
	return v.Text, nil
}

// Anchor is the label box found for a field.
type Anchor struct {
	Field string
	Box   *layout.Box // borrowed from the layout
	Label string
	Score float64 // 0..100
}

// Severity of a validation issue.
type Severity string

const SeverityWarning Severity = "warning"

// Issue is a validation finding. Issues never reject a value.
type Issue struct {
	Field    string   `json:"field" yaml:"field"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// Result is the output of Extract.
type Result struct {
	Fields      map[string]Value
	Confidences map[string]float64 // 0..1
	Issues      []Issue
	Flags       []string
	Anchors     map[string]Anchor
}

func (r *Result) set(field string, v Value, conf float64) {
	r.Fields[field] = v
	r.Confidences[field] = min(1, max(0, conf))
}

func (r *Result) warn(field, msg string) {
	r.Issues = append(r.Issues, Issue{Field: field, Severity: SeverityWarning, Message: msg})
}
