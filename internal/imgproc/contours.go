package imgproc

import (
	"image"

	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// Contour is a traced region boundary in pixel coordinates.
type Contour struct {
	Points []utils.Point
	// Hole is set for boundaries of background regions enclosed by
	// foreground, the inner edge of a ring.
	Hole   bool
	Bounds image.Rectangle
}

// Area returns the polygon area of the traced boundary.
func (c Contour) Area() float64 { return utils.PolygonArea(c.Points) }

// component is one labelled region with its bounding box.
type component struct {
	label                  int32
	minX, minY, maxX, maxY int
	touchesBorder          bool
}

// FindContours traces the outer boundary of every 8-connected foreground
// region and the boundary of every 4-connected background hole inside one.
// Regions whose bounding box covers fewer than minBoxArea pixels are
// skipped before tracing.
func FindContours(bin *Gray, minBoxArea int) []Contour {
	w, h := bin.W, bin.H
	if w == 0 || h == 0 {
		return nil
	}
	fg := make([]bool, w*h)
	for i, v := range bin.Pix {
		fg[i] = v != 0
	}

	var out []Contour
	labels, comps := labelComponents(fg, w, h, true, true)
	for _, c := range comps {
		if (c.maxX-c.minX+1)*(c.maxY-c.minY+1) < minBoxArea {
			continue
		}
		if pts := traceMoore(labels, w, h, c); len(pts) > 0 {
			out = append(out, Contour{Points: pts, Bounds: c.rect()})
		}
	}

	holeLabels, holes := labelComponents(fg, w, h, false, false)
	for _, c := range holes {
		if c.touchesBorder {
			continue
		}
		if (c.maxX-c.minX+1)*(c.maxY-c.minY+1) < minBoxArea {
			continue
		}
		if pts := traceMoore(holeLabels, w, h, c); len(pts) > 0 {
			out = append(out, Contour{Points: pts, Hole: true, Bounds: c.rect()})
		}
	}
	return out
}

func (c component) rect() image.Rectangle {
	return image.Rect(c.minX, c.minY, c.maxX+1, c.maxY+1)
}

// labelComponents runs a BFS flood fill over pixels whose mask value
// equals want. Foreground uses 8-connectivity, background 4-connectivity,
// so the two never cross each other diagonally.
func labelComponents(mask []bool, w, h int, want, eight bool) ([]int32, []component) {
	labels := make([]int32, w*h)
	var comps []component
	queue := make([]int, 0, 1024)
	var label int32
	for start := range mask {
		if mask[start] != want || labels[start] != 0 {
			continue
		}
		label++
		sx, sy := start%w, start/w
		c := component{label: label, minX: sx, minY: sy, maxX: sx, maxY: sy}
		labels[start] = label
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			c.minX, c.maxX = min(c.minX, x), max(c.maxX, x)
			c.minY, c.maxY = min(c.minY, y), max(c.maxY, y)
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				c.touchesBorder = true
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 || !eight && dx != 0 && dy != 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if mask[j] == want && labels[j] == 0 {
						labels[j] = label
						queue = append(queue, j)
					}
				}
			}
		}
		comps = append(comps, c)
	}
	return labels, comps
}

// Clockwise neighbour order starting east: E, SE, S, SW, W, NW, N, NE.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

func mooreDir(dx, dy int) int {
	for i := range 8 {
		if mooreDX[i] == dx && mooreDY[i] == dy {
			return i
		}
	}
	return 0
}

// traceMoore follows the boundary of one labelled component clockwise.
// The walk starts at the first pixel in raster order with the backtrack on
// its west side and stops once it would repeat its first move.
func traceMoore(labels []int32, w, h int, c component) []utils.Point {
	is := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == c.label
	}

	sx, sy := -1, -1
	for y := c.minY; y <= c.maxY && sx < 0; y++ {
		for x := c.minX; x <= c.maxX; x++ {
			if labels[y*w+x] == c.label {
				sx, sy = x, y
				break
			}
		}
	}
	if sx < 0 {
		return nil
	}

	next := func(cx, cy, bx, by int) (int, int, int, int, bool) {
		d := mooreDir(bx-cx, by-cy)
		for k := 1; k <= 8; k++ {
			i := (d + k) % 8
			tx, ty := cx+mooreDX[i], cy+mooreDY[i]
			if is(tx, ty) {
				return tx, ty, bx, by, true
			}
			bx, by = tx, ty
		}
		return 0, 0, bx, by, false
	}

	pts := make([]utils.Point, 0, 64)
	add := func(x, y int) {
		p := utils.Point{X: float64(x), Y: float64(y)}
		n := len(pts)
		if n > 0 && pts[n-1] == p {
			return
		}
		if n >= 2 && collinear(pts[n-2], pts[n-1], p) {
			pts = pts[:n-1]
		}
		pts = append(pts, p)
	}

	add(sx, sy)
	cx, cy, bx, by := sx, sy, sx-1, sy
	nx, ny, nbx, nby, ok := next(cx, cy, bx, by)
	if !ok {
		return pts
	}
	firstX, firstY := nx, ny
	maxSteps := 4*(c.maxX-c.minX+1)*(c.maxY-c.minY+1) + 8
	for step := 0; step < maxSteps; step++ {
		cx, cy, bx, by = nx, ny, nbx, nby
		nx, ny, nbx, nby, ok = next(cx, cy, bx, by)
		if !ok {
			break
		}
		if cx == sx && cy == sy && nx == firstX && ny == firstY {
			break
		}
		add(cx, cy)
	}

	if n := len(pts); n >= 2 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	// Drop collinear vertices across the closing seam.
	for len(pts) > 3 {
		n := len(pts)
		if collinear(pts[n-2], pts[n-1], pts[0]) {
			pts = pts[:n-1]
			continue
		}
		if collinear(pts[n-1], pts[0], pts[1]) {
			pts = pts[1:]
			continue
		}
		break
	}
	return pts
}

func collinear(a, b, p utils.Point) bool {
	return (b.X-a.X)*(p.Y-b.Y)-(b.Y-a.Y)*(p.X-b.X) == 0
}
