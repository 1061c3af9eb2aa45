package layout

import "sort"

// DefaultNMSThreshold is the containment ratio above which two boxes are
// treated as the same text.
const DefaultNMSThreshold = 0.5

// Suppress removes duplicate detections. Boxes are visited by descending
// confidence and a box is dropped when its intersection with a kept box
// exceeds threshold times the smaller of the two areas.
func Suppress(boxes []*Box, threshold float64) []*Box {
	if len(boxes) <= 1 {
		return boxes
	}
	sorted := make([]*Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })

	keep := make([]*Box, 0, len(sorted))
	for _, b := range sorted {
		dup := false
		for _, k := range keep {
			if overlap(b, k) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			keep = append(keep, b)
		}
	}
	return keep
}
