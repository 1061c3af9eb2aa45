package imgproc

// Dilate applies a kw x kh rectangular max filter iterations times.
// Pixels outside the image never contribute.
func Dilate(g *Gray, kw, kh, iterations int) *Gray {
	out := g
	for range max(iterations, 0) {
		out = rectFilter(out, kw, kh, true)
	}
	if out == g {
		return g.Clone()
	}
	return out
}

// Erode applies a kw x kh rectangular min filter iterations times.
func Erode(g *Gray, kw, kh, iterations int) *Gray {
	out := g
	for range max(iterations, 0) {
		out = rectFilter(out, kw, kh, false)
	}
	if out == g {
		return g.Clone()
	}
	return out
}

// Close dilates then erodes with the same kernel, each iterations times.
func Close(g *Gray, kw, kh, iterations int) *Gray {
	return Erode(Dilate(g, kw, kh, iterations), kw, kh, iterations)
}

// rectFilter is a separable running max (or min) over a centred window.
func rectFilter(g *Gray, kw, kh int, isMax bool) *Gray {
	w, h := g.W, g.H
	pick := func(a, b uint8) uint8 {
		if isMax == (b > a) {
			return b
		}
		return a
	}
	init := uint8(255)
	if isMax {
		init = 0
	}

	tmp := NewGray(w, h)
	lx, rx := kw/2, (kw-1)/2
	for y := range h {
		row := g.Pix[y*w : (y+1)*w]
		for x := range w {
			v := init
			for xx := max(x-lx, 0); xx <= min(x+rx, w-1); xx++ {
				v = pick(v, row[xx])
			}
			tmp.Pix[y*w+x] = v
		}
	}

	out := NewGray(w, h)
	ly, ry := kh/2, (kh-1)/2
	for y := range h {
		for x := range w {
			v := init
			for yy := max(y-ly, 0); yy <= min(y+ry, h-1); yy++ {
				v = pick(v, tmp.Pix[yy*w+x])
			}
			out.Pix[y*w+x] = v
		}
	}
	return out
}
