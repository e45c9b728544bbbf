package macs

import "math"

// undistort resamples the plane through the radial model. For each output
// pixel the offset from (CXPx, CYPx), normalised by the half diagonal, is
// scaled by 1 + k1 r^2 + k2 r^4 + k3 r^6 to find the source location, which
// is read bilinearly. Sources outside the plane are left at 0.
//
// Bayer planes interpolate between photosites of the same colour, two pixels
// apart, so the mosaic is preserved.
func undistort(src []float64, w, h int, format PixelFormat, d Distortion) []float64 {
	if d.K1 == 0 && d.K2 == 0 && d.K3 == 0 {
		return src
	}
	step := 1
	if format.IsColor() {
		step = 2
	}
	norm := math.Hypot(float64(w)/2, float64(h)/2)
	dst := make([]float64, w*h)
	forRows(w, h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			dy := (float64(y) - d.CYPx) / norm
			for x := 0; x < w; x++ {
				dx := (float64(x) - d.CXPx) / norm
				r2 := dx*dx + dy*dy
				s := 1 + r2*(d.K1+r2*(d.K2+r2*d.K3))
				sx := d.CXPx + dx*s*norm
				sy := d.CYPx + dy*s*norm
				dst[y*w+x] = bilinear(src, w, h, sx, sy, step, x%step, y%step)
			}
		}
	})
	return dst
}

func bilinear(src []float64, w, h int, sx, sy float64, step, px, py int) float64 {
	if math.IsNaN(sx) || math.IsNaN(sy) || sx < 0 || sy < 0 || sx > float64(w-1) || sy > float64(h-1) {
		return 0
	}
	x0, x1, fx := lattice(sx, w, step, px)
	y0, y1, fy := lattice(sy, h, step, py)
	top := src[y0*w+x0]*(1-fx) + src[y0*w+x1]*fx
	bot := src[y1*w+x0]*(1-fx) + src[y1*w+x1]*fx
	return top*(1-fy) + bot*fy
}

// lattice finds the neighbours of s on the grid phase, phase+step, ... below
// n and the fractional weight of the upper one. Positions past either end of
// the grid snap to the end.
func lattice(s float64, n, step, phase int) (i0, i1 int, f float64) {
	last := phase + (n-1-phase)/step*step
	i0 = phase + int(math.Floor((s-float64(phase))/float64(step)))*step
	if i0 < phase {
		return phase, phase, 0
	}
	if i0 >= last {
		return last, last, 0
	}
	return i0, i0 + step, (s - float64(i0)) / float64(step)
}
