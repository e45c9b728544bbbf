package macs

import (
	"fmt"
	"strings"
)

// PixelFormat describes how a sensor buffer encodes its samples: the bit depth
// (12 packed or 16) and the colour filter arrangement (mono or a Bayer phase).
type PixelFormat uint8

// Pixel formats produced by the survey cameras. The zero value is Invalid.
const (
	Invalid PixelFormat = iota
	Mono12Packed
	BayerGR12Packed
	BayerBG12Packed
	BayerGB12Packed
	BayerRG12Packed
	Mono16
	BayerGR16
	BayerBG16
	BayerRG16
	BayerGB16
)

var pixelFormatNames = map[PixelFormat]string{
	Invalid:         "INVALID",
	Mono12Packed:    "Mono12Packed",
	BayerGR12Packed: "BayerGR12Packed",
	BayerBG12Packed: "BayerBG12Packed",
	BayerGB12Packed: "BayerGB12Packed",
	BayerRG12Packed: "BayerRG12Packed",
	Mono16:          "Mono16",
	BayerGR16:       "BayerGR16",
	BayerBG16:       "BayerBG16",
	BayerRG16:       "BayerRG16",
	BayerGB16:       "BayerGB16",
}

func (f PixelFormat) String() string {
	if s, ok := pixelFormatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("PixelFormat(%d)", uint8(f))
}

// ParsePixelFormat resolves a format name, case insensitive.
func ParsePixelFormat(name string) (PixelFormat, error) {
	for f, s := range pixelFormatNames {
		if f != Invalid && strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return Invalid, fmt.Errorf("%w: unknown pixel format %q", ErrInvalidFormat, name)
}

// BitDepth returns the significant bits per sample, 0 for Invalid.
func (f PixelFormat) BitDepth() int {
	switch f {
	case Mono12Packed, BayerGR12Packed, BayerBG12Packed, BayerGB12Packed, BayerRG12Packed:
		return 12
	case Mono16, BayerGR16, BayerBG16, BayerRG16, BayerGB16:
		return 16
	}
	return 0
}

// IsPacked reports whether samples are stored at 1.5 bytes each.
func (f PixelFormat) IsPacked() bool {
	return f.BitDepth() == 12
}

func (f PixelFormat) IsMono() bool {
	return f == Mono12Packed || f == Mono16
}

func (f PixelFormat) IsColor() bool {
	return f.BitDepth() != 0 && !f.IsMono()
}

// MaxValue is the largest sample value the format can carry.
func (f PixelFormat) MaxValue() uint16 {
	switch f.BitDepth() {
	case 12:
		return 1<<12 - 1
	case 16:
		return 1<<16 - 1
	}
	return 0
}

// RowBytes is the unpadded length of one row of width pixels.
func (f PixelFormat) RowBytes(width int) int {
	return (width*f.BitDepth() + 7) / 8
}

// PixelEndianness governs how samples spanning multiple bytes are reassembled.
type PixelEndianness uint8

const (
	Undefined PixelEndianness = iota
	Big
	Little
)

func (e PixelEndianness) String() string {
	switch e {
	case Undefined:
		return "Undefined"
	case Big:
		return "Big"
	case Little:
		return "Little"
	}
	return fmt.Sprintf("PixelEndianness(%d)", uint8(e))
}

// ParsePixelEndianness resolves "big" or "little", case insensitive.
func ParsePixelEndianness(name string) (PixelEndianness, error) {
	switch strings.ToLower(name) {
	case "big", "be":
		return Big, nil
	case "little", "le":
		return Little, nil
	}
	return Undefined, fmt.Errorf("%w: unknown endianness %q", ErrInvalidEndianness, name)
}

// Channel is a colour filter of a Bayer mosaic.
type Channel uint8

const (
	ChannelR Channel = iota
	ChannelG
	ChannelB
)

func (c Channel) String() string {
	return [...]string{"R", "G", "B"}[c]
}

// bayerPhase returns the column and row parity of the red filter within the
// 2x2 tile. Blue sits on the opposite diagonal.
func (f PixelFormat) bayerPhase() (rx, ry int) {
	switch f {
	case BayerRG12Packed, BayerRG16:
		return 0, 0
	case BayerGR12Packed, BayerGR16:
		return 1, 0
	case BayerGB12Packed, BayerGB16:
		return 0, 1
	case BayerBG12Packed, BayerBG16:
		return 1, 1
	}
	return 0, 0
}

// BayerChannel returns the filter colour at (x, y) for a Bayer format.
// Mono formats report ChannelG for every pixel.
func BayerChannel(f PixelFormat, x, y int) Channel {
	if !f.IsColor() {
		return ChannelG
	}
	rx, ry := f.bayerPhase()
	px, py := x&1, y&1
	switch {
	case px == rx && py == ry:
		return ChannelR
	case px != rx && py != ry:
		return ChannelB
	}
	return ChannelG
}

// FormatVersion identifies the container layout revision.
type FormatVersion uint16

const (
	// Version1 carries image data and metadata only.
	Version1 FormatVersion = 1
	// Version2 adds the pose block, a preview and compressed image data.
	Version2 FormatVersion = 2
)

func (v FormatVersion) String() string {
	return fmt.Sprintf("Version_%d", uint16(v))
}
