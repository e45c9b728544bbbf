package macs

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpack12PackedExample(t *testing.T) {
	raw := []byte{0xAB, 0xC1, 0xDE}

	p, err := Unpack(raw, 2, 1, 3, Mono12Packed, Big)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xABC, 0x1DE}, p.Pix)
	assert.Equal(t, 12, p.Depth)

	packed, err := Pack(p, 3, Mono12Packed, Big)
	require.NoError(t, err)
	assert.Equal(t, raw, packed)

	p, err = Unpack(raw, 2, 1, 3, Mono12Packed, Little)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xAB1, 0xDEC}, p.Pix)

	packed, err = Pack(p, 3, Mono12Packed, Little)
	require.NoError(t, err)
	assert.Equal(t, raw, packed)
}

func TestUnpack16Endianness(t *testing.T) {
	raw := []byte{0x12, 0x34, 0xFF, 0x00}

	p, err := Unpack(raw, 2, 1, 4, Mono16, Big)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1234, 0xFF00}, p.Pix)

	p, err = Unpack(raw, 2, 1, 4, BayerGB16, Little)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x3412, 0x00FF}, p.Pix)
}

func TestRoundTrip16(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	for _, format := range []PixelFormat{Mono16, BayerGR16, BayerBG16, BayerRG16, BayerGB16} {
		for _, e := range []PixelEndianness{Big, Little} {
			t.Run(format.String()+"/"+e.String(), func(t *testing.T) {
				w, h := 7, 5
				raw := make([]byte, 2*w*h)
				rng.Read(raw)

				p, err := Unpack(raw, w, h, 2*w, format, e)
				require.NoError(t, err)
				back, err := Pack(p, 2*w, format, e)
				require.NoError(t, err)
				assert.Equal(t, raw, back)
			})
		}
	}
}

func TestRoundTrip12Packed(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for _, w := range []int{1, 2, 3, 8, 11} {
		for _, e := range []PixelEndianness{Big, Little} {
			t.Run(fmt.Sprintf("w%d/%s", w, e), func(t *testing.T) {
				h := 3
				p := NewPlane(w, h, 12)
				for i := range p.Pix {
					p.Pix[i] = uint16(rng.Intn(4096))
				}
				pitch := BayerBG12Packed.RowBytes(w)
				raw, err := Pack(p, pitch, BayerBG12Packed, e)
				require.NoError(t, err)

				got, err := Unpack(raw, w, h, pitch, BayerBG12Packed, e)
				require.NoError(t, err)
				assert.Equal(t, p.Pix, got.Pix)

				again, err := Pack(got, pitch, BayerBG12Packed, e)
				require.NoError(t, err)
				assert.Equal(t, raw, again)
			})
		}
	}
}

func TestUnpackOddWidthDiscardsNibble(t *testing.T) {
	// width 3: pair in bytes 0..2, trailing sample in bytes 3..4
	raw := []byte{0x10, 0x20, 0x30, 0xAB, 0xCF}

	p, err := Unpack(raw, 3, 1, 5, Mono12Packed, Big)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xABC), p.Pix[2])
	packed, err := Pack(p, 5, Mono12Packed, Big)
	require.NoError(t, err)
	assert.Equal(t, byte(0xC0), packed[4])

	p, err = Unpack(raw, 3, 1, 5, Mono12Packed, Little)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xABF), p.Pix[2])
	packed, err = Pack(p, 5, Mono12Packed, Little)
	require.NoError(t, err)
	assert.Equal(t, byte(0x0F), packed[4])
}

func TestUnpackHonoursPitch(t *testing.T) {
	// two rows of one Mono16 pixel, each padded to 4 bytes
	raw := []byte{0x00, 0x01, 0xEE, 0xEE, 0x00, 0x02, 0xEE, 0xEE}
	p, err := Unpack(raw, 1, 2, 4, Mono16, Big)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, p.Pix)

	back, err := Pack(p, 4, Mono16, Big)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0, 0, 0x00, 0x02, 0, 0}, back)
}

func TestUnpackErrors(t *testing.T) {
	raw := make([]byte, 16)
	tests := []struct {
		name   string
		w, h   int
		pitch  int
		format PixelFormat
		e      PixelEndianness
		want   error
	}{
		{"InvalidFormat", 2, 2, 4, Invalid, Big, ErrInvalidFormat},
		{"UndefinedEndianness16", 2, 2, 4, Mono16, Undefined, ErrInvalidEndianness},
		{"UndefinedEndianness12", 2, 2, 3, Mono12Packed, Undefined, ErrInvalidEndianness},
		{"ShortPitch", 4, 2, 7, Mono16, Big, ErrInvalidGeometry},
		{"BufferTooSmall", 2, 5, 4, Mono16, Big, ErrInvalidGeometry},
		{"ZeroWidth", 0, 2, 4, Mono16, Big, ErrInvalidGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpack(raw, tt.w, tt.h, tt.pitch, tt.format, tt.e)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPackRejectsOutOfRange(t *testing.T) {
	p := &Plane{Width: 2, Height: 1, Depth: 16, Pix: []uint16{1, 5000}}
	_, err := Pack(p, 3, Mono12Packed, Big)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPlaneHelpers(t *testing.T) {
	p := NewPlane(3, 2, 16)
	p.Set(2, 1, 900)
	p.Set(0, 0, 7)
	p.Set(5, 5, 1) // dropped
	assert.Equal(t, uint16(900), p.At(2, 1))
	assert.Equal(t, uint16(0), p.At(-1, 0))
	min, max := p.MinMax()
	assert.Equal(t, uint16(0), min)
	assert.Equal(t, uint16(900), max)

	g := p.Gray16()
	assert.Equal(t, uint16(900), g.Gray16At(2, 1).Y)
	assert.Equal(t, uint16(7), g.Gray16At(0, 0).Y)
}

func TestNewPlaneRejectsHugeDimensions(t *testing.T) {
	assert.Panics(t, func() { NewPlane(math.MaxInt/2, 3, 16) })
	assert.Panics(t, func() { NewPlane(-1, 3, 16) })
	assert.NotPanics(t, func() { NewPlane(0, 0, 16) })
}

func TestCorrectRejectsShortPlane(t *testing.T) {
	// a hand-built plane whose area overflows must not pass the length check
	p := &Plane{Width: math.MaxInt / 2, Height: 3, Depth: 16, Pix: make([]uint16, 4)}
	_, err := Correct(p, Mono16, IdentityOptions(Mono16))
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}
