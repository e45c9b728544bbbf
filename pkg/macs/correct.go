package macs

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"
)

// Correct runs the correction stages over p in fixed order: devignetting,
// colour balance, distortion, stretch, quantization. The result is a new
// *image.Gray16 holding native-range samples, or an *image.Gray when
// opts.ConvertTo8Bit is set. p is only read.
//
// All stage arithmetic is done in float64; the single rounding step is the
// final quantization.
func Correct(p *Plane, format PixelFormat, opts CorrectionOptions) (image.Image, error) {
	if p == nil || p.Width <= 0 || p.Height <= 0 || p.Height > len(p.Pix)/p.Width {
		return nil, fmt.Errorf("%w: empty or short plane", ErrInvalidGeometry)
	}
	if format.BitDepth() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, format)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	gains, err := vignetteGains(p.Width, p.Height, opts.Devignetting)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	w, h := p.Width, p.Height
	buf := make([]float64, w*h)
	for i := range buf {
		buf[i] = float64(p.Pix[i])
	}

	devignette(buf, w, h, gains)
	balance(buf, w, h, format, opts.ColorBalance)
	buf = undistort(buf, w, h, format, opts.Distortion)
	outMax := float64(format.MaxValue())
	stretch(buf, w, h, outMax, opts.Stretch)

	var out image.Image
	if opts.ConvertTo8Bit {
		out = quantize8(buf, w, h, outMax)
	} else {
		out = quantize16(buf, w, h, outMax)
	}
	slog.Debug("corrected plane",
		slog.Int("width", w),
		slog.Int("height", h),
		slog.String("format", format.String()),
		slog.String("type", ImageType(out)),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

// vignetteGains evaluates the vignetting model for every pixel. A zero
// factor disables the stage and yields nil. Gains that are not finite and
// positive are rejected here, before any pixel is touched.
func vignetteGains(w, h int, d Devignetting) ([]float64, error) {
	if d.Factor == 0 {
		return nil, nil
	}
	gains := make([]float64, w*h)
	for y := 0; y < h; y++ {
		dy := float64(y) - d.CY
		for x := 0; x < w; x++ {
			dx := float64(x) - d.CX
			r2 := dx*dx + dy*dy
			g := d.Offset + d.Factor*(1+r2*(d.A+r2*(d.B+r2*d.C)))
			if math.IsNaN(g) || math.IsInf(g, 0) || g <= 0 {
				return nil, fmt.Errorf("%w: vignetting gain %v at (%d,%d)", ErrInvalidParameter, g, x, y)
			}
			gains[y*w+x] = g
		}
	}
	return gains, nil
}

func devignette(buf []float64, w, h int, gains []float64) {
	if gains == nil {
		return
	}
	forRows(w, h, func(y0, y1 int) {
		for i := y0 * w; i < y1*w; i++ {
			buf[i] /= gains[i]
		}
	})
}

// balance multiplies each photosite by the gain of its filter colour. Mono
// planes pass through.
func balance(buf []float64, w, h int, format PixelFormat, cb ColorBalance) {
	if !format.IsColor() || (cb.R == 1 && cb.G == 1 && cb.B == 1) {
		return
	}
	gain := [3]float64{ChannelR: cb.R, ChannelG: cb.G, ChannelB: cb.B}
	forRows(w, h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := buf[y*w : (y+1)*w]
			for x := range row {
				row[x] *= gain[BayerChannel(format, x, y)]
			}
		}
	})
}

func stretch(buf []float64, w, h int, outMax float64, s Stretch) {
	span := s.Max - s.Min
	inv := 1 / s.Gamma
	forRows(w, h, func(y0, y1 int) {
		for i := y0 * w; i < y1*w; i++ {
			t := (buf[i] - s.Min) / span
			switch {
			case t <= 0:
				t = 0
			case t >= 1:
				t = 1
			case inv != 1:
				t = math.Pow(t, inv)
			}
			buf[i] = outMax * t
		}
	})
}

func quantize16(buf []float64, w, h int, outMax float64) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	forRows(w, h, func(y0, y1 int) {
		for i := y0 * w; i < y1*w; i++ {
			v := uint16(clampRound(buf[i], outMax))
			img.Pix[2*i] = byte(v >> 8)
			img.Pix[2*i+1] = byte(v)
		}
	})
	return img
}

func quantize8(buf []float64, w, h int, outMax float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	scale := 255 / outMax
	forRows(w, h, func(y0, y1 int) {
		for i := y0 * w; i < y1*w; i++ {
			img.Pix[i] = uint8(clampRound(buf[i]*scale, 255))
		}
	})
	return img
}

func clampRound(v, max float64) float64 {
	v = math.Round(v)
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// ImageType names the element type of a corrected image in the CV_<depth>C<channels>
// notation used by the survey tooling, e.g. "CV_16UC1".
func ImageType(img image.Image) string {
	switch img.(type) {
	case *image.Gray:
		return "CV_8UC1"
	case *image.Gray16:
		return "CV_16UC1"
	case *image.RGBA, *image.NRGBA:
		return "CV_8UC4"
	case *image.RGBA64, *image.NRGBA64:
		return "CV_16UC4"
	}
	return "unknown"
}
