package macs

import (
	"image"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gray16Values(t *testing.T, img image.Image) []uint16 {
	t.Helper()
	g, ok := img.(*image.Gray16)
	require.True(t, ok, "expected *image.Gray16, got %T", img)
	b := g.Bounds()
	out := make([]uint16, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, g.Gray16At(x, y).Y)
		}
	}
	return out
}

func randomPlane(rng *rand.Rand, w, h int, format PixelFormat) *Plane {
	p := NewPlane(w, h, format.BitDepth())
	max := int(format.MaxValue()) + 1
	for i := range p.Pix {
		p.Pix[i] = uint16(rng.Intn(max))
	}
	return p
}

func TestCorrectEndToEndMono16To8Bit(t *testing.T) {
	samples := []uint16{0, 1000, 2000, 3000, 4000, 5000, 6000, 65535}
	raw := make([]byte, 0, 16)
	for _, s := range samples {
		raw = append(raw, byte(s>>8), byte(s))
	}
	img := &Image{}
	require.NoError(t, img.ImageData.Init(raw, 4, 2, 8, Mono16, Big))

	opts := CorrectionOptions{
		Stretch:       Stretch{Gamma: 1, Min: 0, Max: 65535},
		Devignetting:  Devignetting{Factor: 0, Offset: 3, A: 1},
		ColorBalance:  ColorBalance{R: 1, G: 1, B: 1},
		Distortion:    Distortion{CXPx: 2, CYPx: 1},
		ConvertTo8Bit: true,
	}
	out, err := img.CorrectedImage(opts)
	require.NoError(t, err)
	g, ok := out.(*image.Gray)
	require.True(t, ok, "expected *image.Gray, got %T", out)
	assert.Equal(t, image.Rect(0, 0, 4, 2), g.Bounds())
	assert.Equal(t, []uint8{0, 4, 8, 12, 16, 19, 23, 255}, g.Pix)
	assert.Equal(t, "CV_8UC1", ImageType(out))

	// the raw buffer is untouched
	assert.Equal(t, raw, img.ImageData.RawData())
}

func TestCorrectIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name   string
		format PixelFormat
		w, h   int
	}{
		{"Mono16", Mono16, 9, 7},
		{"Mono12", Mono12Packed, 9, 7},
		{"BayerRG16", BayerRG16, 10, 6},
		{"BayerGB12", BayerGB12Packed, 5, 5},
		{"LargeParallel", BayerBG16, 256, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := randomPlane(rng, tt.w, tt.h, tt.format)
			out, err := Correct(p, tt.format, IdentityOptions(tt.format))
			require.NoError(t, err)
			assert.Equal(t, p.Pix, gray16Values(t, out))
			assert.Equal(t, "CV_16UC1", ImageType(out))
		})
	}
}

func TestDevignetting(t *testing.T) {
	p := &Plane{Width: 3, Height: 1, Depth: 16, Pix: []uint16{1000, 1000, 1000}}
	opts := IdentityOptions(Mono16)

	// constant gain
	opts.Devignetting = Devignetting{Offset: 0, Factor: 2}
	out, err := Correct(p, Mono16, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{500, 500, 500}, gray16Values(t, out))

	// radial: r^2 = 0, 1, 4 from (0,0) gives gains 1, 2, 5
	opts.Devignetting = Devignetting{Factor: 1, A: 1}
	out, err = Correct(p, Mono16, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1000, 500, 200}, gray16Values(t, out))

	// factor 0 ignores every other coefficient
	opts.Devignetting = Devignetting{Offset: -50, Factor: 0, A: 9, B: 9, C: 9, CX: 1}
	out, err = Correct(p, Mono16, opts)
	require.NoError(t, err)
	assert.Equal(t, p.Pix, gray16Values(t, out))
}

func TestDevignettingRejectsDegenerateGain(t *testing.T) {
	p := &Plane{Width: 3, Height: 1, Depth: 16, Pix: []uint16{1, 2, 3}}
	opts := IdentityOptions(Mono16)
	opts.Devignetting = Devignetting{Offset: -1, Factor: 1}
	_, err := Correct(p, Mono16, opts)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// only the far pixel goes negative
	opts.Devignetting = Devignetting{Factor: 1, A: -0.5}
	_, err = Correct(p, Mono16, opts)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestColorBalance(t *testing.T) {
	p := &Plane{Width: 2, Height: 2, Depth: 16, Pix: []uint16{1000, 1000, 1000, 1000}}
	opts := IdentityOptions(BayerRG16)
	opts.ColorBalance = ColorBalance{R: 2, G: 1, B: 0.5}

	out, err := Correct(p, BayerRG16, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2000, 1000, 1000, 500}, gray16Values(t, out))

	out, err = Correct(p, BayerBG16, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{500, 1000, 1000, 2000}, gray16Values(t, out))

	// mono planes have no filter colours
	out, err = Correct(p, Mono16, opts)
	require.NoError(t, err)
	assert.Equal(t, p.Pix, gray16Values(t, out))
}

func TestColorBalanceSaturates(t *testing.T) {
	p := &Plane{Width: 2, Height: 1, Depth: 12, Pix: []uint16{4000, 4000}}
	opts := IdentityOptions(BayerGR12Packed)
	opts.ColorBalance = ColorBalance{R: 2, G: 1, B: 1}
	out, err := Correct(p, BayerGR12Packed, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{4000, 4095}, gray16Values(t, out))
}

func TestDistortionFillsOutside(t *testing.T) {
	p := &Plane{Width: 3, Height: 3, Depth: 16, Pix: []uint16{
		100, 100, 100,
		100, 100, 100,
		100, 100, 100,
	}}
	opts := IdentityOptions(Mono16)
	opts.Distortion = Distortion{CXPx: 1, CYPx: 1, K1: 10}
	out, err := Correct(p, Mono16, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{
		0, 0, 0,
		0, 100, 0,
		0, 0, 0,
	}, gray16Values(t, out))
}

func TestDistortionInterpolates(t *testing.T) {
	// a horizontal ramp stays a ramp when sampled between columns
	w, h := 21, 1
	p := NewPlane(w, h, 16)
	for x := range p.Pix {
		p.Pix[x] = uint16(100 * x)
	}
	opts := IdentityOptions(Mono16)
	opts.Distortion = Distortion{CXPx: 10, CYPx: 0, K1: -0.1}
	out, err := Correct(p, Mono16, opts)
	require.NoError(t, err)
	vals := gray16Values(t, out)

	assert.Equal(t, uint16(1000), vals[10], "centre does not move")
	for x := 1; x < w; x++ {
		assert.Greater(t, vals[x], vals[x-1], "ramp stays monotonic at %d", x)
	}
	// pincushion pulls samples towards the centre
	assert.Less(t, vals[20], uint16(2000))
	assert.Greater(t, vals[0], uint16(0))
}

func TestLattice(t *testing.T) {
	tests := []struct {
		name           string
		s              float64
		n, step, phase int
		wantI0, wantI1 int
		wantF          float64
	}{
		{"MonoInside", 2.25, 5, 1, 0, 2, 3, 0.25},
		{"MonoLast", 4, 5, 1, 0, 4, 4, 0},
		{"BayerEven", 2.5, 6, 2, 0, 2, 4, 0.25},
		{"BayerOddBelowPhase", 0.5, 6, 2, 1, 1, 1, 0},
		{"BayerOddLast", 5, 6, 2, 1, 5, 5, 0},
		{"BayerEvenPastLast", 4.5, 6, 2, 0, 4, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i0, i1, f := lattice(tt.s, tt.n, tt.step, tt.phase)
			assert.Equal(t, tt.wantI0, i0)
			assert.Equal(t, tt.wantI1, i1)
			assert.InDelta(t, tt.wantF, f, 1e-12)
		})
	}
}

func TestBayerDistortionKeepsMosaic(t *testing.T) {
	// red sites 1000, everything else 0; any colour mixing would leak red
	w, h := 16, 16
	p := NewPlane(w, h, 16)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if BayerChannel(BayerRG16, x, y) == ChannelR {
				p.Pix[y*w+x] = 1000
			}
		}
	}
	opts := IdentityOptions(BayerRG16)
	opts.Distortion = Distortion{CXPx: 8, CYPx: 8, K1: 0.05}
	out, err := Correct(p, BayerRG16, opts)
	require.NoError(t, err)
	vals := gray16Values(t, out)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if BayerChannel(BayerRG16, x, y) != ChannelR {
				assert.Zero(t, vals[y*w+x], "non-red site (%d,%d)", x, y)
			}
		}
	}
}

func TestStretch(t *testing.T) {
	p := &Plane{Width: 4, Height: 1, Depth: 16, Pix: []uint16{0, 1, 4, 9}}
	opts := IdentityOptions(Mono16)

	opts.Stretch = Stretch{Gamma: 2, Min: 0, Max: 4}
	out, err := Correct(p, Mono16, opts)
	require.NoError(t, err)
	// (1/4)^(1/2) = 0.5 -> 32767.5 rounds up; values past max clamp
	assert.Equal(t, []uint16{0, 32768, 65535, 65535}, gray16Values(t, out))

	opts.Stretch = Stretch{Gamma: 1, Min: 2, Max: 6}
	out, err = Correct(p, Mono16, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 0, 32768, 65535}, gray16Values(t, out))
}

func TestStretchTo8BitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	p := randomPlane(rng, 32, 32, Mono12Packed)
	opts := IdentityOptions(Mono12Packed)
	opts.Stretch.Gamma = 2.2
	opts.ConvertTo8Bit = true
	out, err := Correct(p, Mono12Packed, opts)
	require.NoError(t, err)
	g, ok := out.(*image.Gray)
	require.True(t, ok)
	assert.Len(t, g.Pix, 32*32)

	opts.ConvertTo8Bit = false
	out, err = Correct(p, Mono12Packed, opts)
	require.NoError(t, err)
	for _, v := range gray16Values(t, out) {
		assert.LessOrEqual(t, v, uint16(4095))
	}
}

func TestCorrectRejectsOptions(t *testing.T) {
	p := &Plane{Width: 1, Height: 1, Depth: 16, Pix: []uint16{1}}
	tests := []struct {
		name   string
		mutate func(o *CorrectionOptions)
	}{
		{"ZeroGamma", func(o *CorrectionOptions) { o.Stretch.Gamma = 0 }},
		{"NegativeGamma", func(o *CorrectionOptions) { o.Stretch.Gamma = -1 }},
		{"EmptyRange", func(o *CorrectionOptions) { o.Stretch.Min, o.Stretch.Max = 5, 5 }},
		{"NaNGain", func(o *CorrectionOptions) { o.ColorBalance.R = nan() }},
		{"InfK1", func(o *CorrectionOptions) { o.Distortion.K1 = inf() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := IdentityOptions(Mono16)
			tt.mutate(&opts)
			_, err := Correct(p, Mono16, opts)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}

	_, err := Correct(p, Invalid, IdentityOptions(Mono16))
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = Correct(nil, Mono16, IdentityOptions(Mono16))
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestCorrectedImageConcurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := randomPlane(rng, 64, 48, BayerGR16)
	raw, err := Pack(p, 128, BayerGR16, Little)
	require.NoError(t, err)
	img := &Image{}
	require.NoError(t, img.ImageData.Init(raw, 64, 48, 128, BayerGR16, Little))

	var wg sync.WaitGroup
	results := make([]image.Image, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := IdentityOptions(BayerGR16)
			opts.ColorBalance.B = 1 + float64(i)/10
			opts.Devignetting = Devignetting{Factor: 1, A: 1e-5, CX: 32, CY: 24}
			results[i], errs[i] = img.CorrectedImage(opts)
		}()
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, raw, img.ImageData.RawData())

	// same options give the same answer regardless of scheduling
	opts := IdentityOptions(BayerGR16)
	opts.Devignetting = Devignetting{Factor: 1, A: 1e-5, CX: 32, CY: 24}
	want, err := img.CorrectedImage(opts)
	require.NoError(t, err)
	assert.Equal(t, want, results[0])
}
