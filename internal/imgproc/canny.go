package imgproc

// Canny runs Canny edge detection with a 3x3 Sobel aperture and L1 gradient
// magnitude. Output pixels are 255 on edges and 0 elsewhere.
func Canny(g *Gray, low, high float64) *Gray {
	w, h := g.W, g.H
	if low > high {
		low, high = high, low
	}
	gx := make([]int32, w*h)
	gy := make([]int32, w*h)
	mag := make([]int32, w*h)
	px := func(x, y int) int32 { return int32(g.Pix[reflect101(y, h)*w+reflect101(x, w)]) }
	for y := range h {
		for x := range w {
			a, b, c := px(x-1, y-1), px(x, y-1), px(x+1, y-1)
			d, f := px(x-1, y), px(x+1, y)
			gg, hh, ii := px(x-1, y+1), px(x, y+1), px(x+1, y+1)
			dx := (c + 2*f + ii) - (a + 2*d + gg)
			dy := (gg + 2*hh + ii) - (a + 2*b + c)
			i := y*w + x
			gx[i], gy[i] = dx, dy
			mag[i] = abs32(dx) + abs32(dy)
		}
	}

	magAt := func(x, y int) int32 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	// Non-maximum suppression along the quantized gradient direction.
	// tan(22.5°) and tan(67.5°) in 15-bit fixed point.
	const tg22 = 13573
	const shift = 15
	candidate := make([]bool, w*h)
	strong := make([]int, 0, 1024)
	ilow := int32(low)
	ihigh := int32(high)
	for y := range h {
		for x := range w {
			i := y*w + x
			m := mag[i]
			if m <= ilow {
				continue
			}
			ax, ay := int64(abs32(gx[i])), int64(abs32(gy[i]))
			tg22x := ax * tg22
			ay <<= shift
			var keep bool
			switch {
			case ay < tg22x:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			default:
				tg67x := tg22x + (ax << (shift + 1))
				if ay > tg67x {
					keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
				} else {
					s := -1
					if (gx[i] < 0) == (gy[i] < 0) {
						s = 1
					}
					keep = m > magAt(x-s, y-1) && m >= magAt(x+s, y+1)
				}
			}
			if !keep {
				continue
			}
			candidate[i] = true
			if m > ihigh {
				strong = append(strong, i)
			}
		}
	}

	// Hysteresis: grow strong edges through 8-connected candidates.
	out := NewGray(w, h)
	for _, i := range strong {
		out.Pix[i] = 255
	}
	queue := strong
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if candidate[j] && out.Pix[j] == 0 {
					out.Pix[j] = 255
					queue = append(queue, j)
				}
			}
		}
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
