package layout

import (
	"math"
	"sort"
	"strings"
)

// Row is a set of boxes on one text line, left to right.
type Row struct {
	Boxes   []*Box
	YCenter float64
}

// Layout is the grouped output of text detection.
type Layout struct {
	Boxes     []*Box
	Rows      []Row
	AvgHeight float64
	AvgWidth  float64

	Engine   string // OCR engine that produced the boxes
	Fallback bool   // true when the fallback engine was used
}

// Analyze computes box statistics and groups boxes into rows. Boxes are
// taken in order of centre y; a new row starts when a box is further than
// 0.6 times the mean box height from the running mean of the current row.
func Analyze(boxes []*Box) Layout {
	if len(boxes) == 0 {
		return Layout{}
	}
	var sumH, sumW float64
	for _, b := range boxes {
		sumH += b.Height()
		sumW += b.Width()
	}
	n := float64(len(boxes))
	avgH, avgW := sumH/n, sumW/n

	tol := 10.0
	if avgH > 0 {
		tol = 0.6 * avgH
	}

	sorted := make([]*Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CY < sorted[j].CY })

	var rows []Row
	var cur []*Box
	var curY, curSum float64
	for _, b := range sorted {
		if len(cur) > 0 && math.Abs(b.CY-curY) > tol {
			rows = append(rows, newRow(cur, curSum))
			cur, curSum = nil, 0
		}
		cur = append(cur, b)
		curSum += b.CY
		curY = curSum / float64(len(cur))
	}
	if len(cur) > 0 {
		rows = append(rows, newRow(cur, curSum))
	}

	return Layout{
		Boxes:     append([]*Box(nil), boxes...),
		Rows:      rows,
		AvgHeight: avgH,
		AvgWidth:  avgW,
	}
}

func newRow(boxes []*Box, sumY float64) Row {
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].CX < boxes[j].CX })
	return Row{Boxes: boxes, YCenter: sumY / float64(len(boxes))}
}

// RawText joins the non-blank box texts with newlines in detection order.
func (l Layout) RawText() string {
	parts := make([]string, 0, len(l.Boxes))
	for _, b := range l.Boxes {
		if b.HasText() {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// RowOf returns the index of the row holding b, or -1.
func (l Layout) RowOf(b *Box) int {
	for i, r := range l.Rows {
		for _, x := range r.Boxes {
			if x == b {
				return i
			}
		}
	}
	return -1
}
