package macs

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
)

// Plane is a decoded single-channel sample plane, row-major without padding.
// Bayer data stays mosaiced: one value per photosite.
type Plane struct {
	Width  int
	Height int
	Depth  int // significant bits per sample
	Pix    []uint16
}

// NewPlane allocates a zeroed plane. Like image.NewGray16 it panics when
// width*height is negative or does not fit in an int.
func NewPlane(width, height, depth int) *Plane {
	if width < 0 || height < 0 || (width > 0 && height > math.MaxInt/width) {
		panic(fmt.Sprintf("macs: NewPlane has huge or negative dimensions %dx%d", width, height))
	}
	return &Plane{
		Width:  width,
		Height: height,
		Depth:  depth,
		Pix:    make([]uint16, width*height),
	}
}

// At returns the sample at (x, y), 0 outside the plane.
func (p *Plane) At(x, y int) uint16 {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return 0
	}
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y); writes outside the plane are dropped.
func (p *Plane) Set(x, y int, v uint16) {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return
	}
	p.Pix[y*p.Width+x] = v
}

// MinMax returns the minimum and maximum sample values.
func (p *Plane) MinMax() (min, max uint16) {
	if len(p.Pix) == 0 {
		return 0, 0
	}
	min, max = p.Pix[0], p.Pix[0]
	for _, v := range p.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return
}

// Gray16 copies the plane into an image.Gray16 without rescaling.
func (p *Plane) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	for i, v := range p.Pix {
		img.Pix[2*i] = byte(v >> 8)
		img.Pix[2*i+1] = byte(v)
	}
	return img
}

func checkLayout(rawLen, width, height, pitch int, format PixelFormat, endianness PixelEndianness) error {
	if format.BitDepth() == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, format)
	}
	if endianness != Big && endianness != Little {
		return fmt.Errorf("%w: %v for %v", ErrInvalidEndianness, endianness, format)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGeometry, width, height)
	}
	// every pixel and row takes at least one byte; this also keeps the
	// products below from overflowing
	if width > rawLen || height > rawLen {
		return fmt.Errorf("%w: %dx%d does not fit in %d bytes", ErrInvalidGeometry, width, height, rawLen)
	}
	if rowBytes := format.RowBytes(width); pitch < rowBytes {
		return fmt.Errorf("%w: pitch %d shorter than row of %d bytes", ErrInvalidGeometry, pitch, rowBytes)
	}
	if pitch > rawLen/height {
		return fmt.Errorf("%w: %d rows of pitch %d need more than the %d bytes held", ErrInvalidGeometry, height, pitch, rawLen)
	}
	return nil
}

// Unpack decodes raw into one sample per pixel. 12-bit values are widened to
// uint16 without scaling.
//
// Packed-12 layout, two samples A and B in three bytes b0 b1 b2:
//
//	Big:    A = b0<<4 | b1>>4     B = (b1&0x0F)<<8 | b2
//	Little: A = b0<<4 | b1&0x0F   B = b2<<4 | b1>>4
//
// For an odd width the last sample of a row uses b0 and its nibble of b1;
// the remaining nibble is ignored.
func Unpack(raw []byte, width, height, pitch int, format PixelFormat, endianness PixelEndianness) (*Plane, error) {
	if err := checkLayout(len(raw), width, height, pitch, format, endianness); err != nil {
		return nil, err
	}
	p := NewPlane(width, height, format.BitDepth())
	for y := 0; y < height; y++ {
		row := raw[y*pitch : y*pitch+format.RowBytes(width)]
		out := p.Pix[y*width : (y+1)*width]
		if format.IsPacked() {
			unpackRow12(row, out, endianness)
		} else {
			unpackRow16(row, out, endianness)
		}
	}
	return p, nil
}

func unpackRow16(row []byte, out []uint16, e PixelEndianness) {
	var order binary.ByteOrder = binary.BigEndian
	if e == Little {
		order = binary.LittleEndian
	}
	for x := range out {
		out[x] = order.Uint16(row[2*x:])
	}
}

func unpackRow12(row []byte, out []uint16, e PixelEndianness) {
	width := len(out)
	for x := 0; x+1 < width; x += 2 {
		i := x / 2 * 3
		b0, b1, b2 := uint16(row[i]), uint16(row[i+1]), uint16(row[i+2])
		if e == Big {
			out[x] = b0<<4 | b1>>4
			out[x+1] = (b1&0x0F)<<8 | b2
		} else {
			out[x] = b0<<4 | b1&0x0F
			out[x+1] = b2<<4 | b1>>4
		}
	}
	if width%2 == 1 {
		i := width / 2 * 3
		b0, b1 := uint16(row[i]), uint16(row[i+1])
		if e == Big {
			out[width-1] = b0<<4 | b1>>4
		} else {
			out[width-1] = b0<<4 | b1&0x0F
		}
	}
}

// Pack is the inverse of Unpack: it writes the plane into a buffer of
// pitch*height bytes, padding and unused nibbles zeroed.
func Pack(p *Plane, pitch int, format PixelFormat, endianness PixelEndianness) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil plane", ErrInvalidGeometry)
	}
	if err := checkLayout(pitch*p.Height, p.Width, p.Height, pitch, format, endianness); err != nil {
		return nil, err
	}
	if len(p.Pix) < p.Width*p.Height {
		return nil, fmt.Errorf("%w: plane holds %d samples, want %d", ErrInvalidGeometry, len(p.Pix), p.Width*p.Height)
	}
	max := format.MaxValue()
	raw := make([]byte, pitch*p.Height)
	for y := 0; y < p.Height; y++ {
		in := p.Pix[y*p.Width : (y+1)*p.Width]
		for x, v := range in {
			if v > max {
				return nil, fmt.Errorf("%w: sample %d at (%d,%d) exceeds %v range", ErrInvalidParameter, v, x, y, format)
			}
		}
		row := raw[y*pitch : y*pitch+format.RowBytes(p.Width)]
		if format.IsPacked() {
			packRow12(row, in, endianness)
		} else {
			packRow16(row, in, endianness)
		}
	}
	return raw, nil
}

func packRow16(row []byte, in []uint16, e PixelEndianness) {
	var order binary.ByteOrder = binary.BigEndian
	if e == Little {
		order = binary.LittleEndian
	}
	for x, v := range in {
		order.PutUint16(row[2*x:], v)
	}
}

func packRow12(row []byte, in []uint16, e PixelEndianness) {
	width := len(in)
	for x := 0; x+1 < width; x += 2 {
		i := x / 2 * 3
		a, b := in[x], in[x+1]
		row[i] = byte(a >> 4)
		if e == Big {
			row[i+1] = byte(a&0x0F)<<4 | byte(b>>8)
			row[i+2] = byte(b)
		} else {
			row[i+1] = byte(b&0x0F)<<4 | byte(a&0x0F)
			row[i+2] = byte(b >> 4)
		}
	}
	if width%2 == 1 {
		i := width / 2 * 3
		a := in[width-1]
		row[i] = byte(a >> 4)
		if e == Big {
			row[i+1] = byte(a&0x0F) << 4
		} else {
			row[i+1] = byte(a & 0x0F)
		}
	}
}
