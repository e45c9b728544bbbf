// Package rle compresses raw sensor buffers with PackBits.
//
// Multi-byte samples compress poorly as a single byte stream, so the buffer
// is first split into interleaved byte planes: plane k holds bytes k,
// k+planes, k+2*planes, ... For 16-bit samples two planes separate the high
// and low bytes; packed 12-bit data uses three, one per byte of a sample pair.
//
// Stream layout, all integers little endian:
//
//	uint32  number of planes (1..MaxPlanes)
//	uint32  offset of each plane from the start of the stream, MaxPlanes entries
//	...     PackBits segments, each padded to even length
package rle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPlanes is the number of plane offsets in the header.
const MaxPlanes = 15

const headerSize = 4 + 4*MaxPlanes

// Encode writes data split into the given number of byte planes.
func Encode(w io.Writer, data []byte, planes int) error {
	if planes < 1 || planes > MaxPlanes {
		return fmt.Errorf("rle: plane count %d outside 1..%d", planes, MaxPlanes)
	}
	segments := make([][]byte, planes)
	for k := range segments {
		plane := make([]byte, 0, planeLen(len(data), k, planes))
		for i := k; i < len(data); i += planes {
			plane = append(plane, data[i])
		}
		seg := packBits(plane)
		if len(seg)%2 != 0 {
			seg = append(seg, 0x80) // no-op header keeps segments even
		}
		segments[k] = seg
	}

	header := make([]uint32, 1+MaxPlanes)
	header[0] = uint32(planes)
	offset := uint32(headerSize)
	for k, seg := range segments {
		header[1+k] = offset
		offset += uint32(len(seg))
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, seg := range segments {
		if _, err := w.Write(seg); err != nil {
			return err
		}
	}
	return nil
}

// Decode reverses Encode. size is the length of the original buffer, which
// the stream does not record.
func Decode(data []byte, size int) ([]byte, error) {
	if len(data) < headerSize {
		return nil, errors.New("rle: stream shorter than header")
	}
	planes := int(binary.LittleEndian.Uint32(data))
	if planes < 1 || planes > MaxPlanes {
		return nil, fmt.Errorf("rle: invalid plane count %d", planes)
	}
	offsets := make([]int, planes+1)
	for k := 0; k < planes; k++ {
		offsets[k] = int(binary.LittleEndian.Uint32(data[4+4*k:]))
	}
	offsets[planes] = len(data)

	out := make([]byte, size)
	for k := 0; k < planes; k++ {
		start, end := offsets[k], offsets[k+1]
		if start < headerSize || start > end || end > len(data) {
			return nil, fmt.Errorf("rle: plane %d spans invalid range [%d,%d) of %d bytes", k, start, end, len(data))
		}
		want := planeLen(size, k, planes)
		plane, err := unpackBits(data[start:end], want)
		if err != nil {
			return nil, fmt.Errorf("rle: plane %d: %w", k, err)
		}
		if len(plane) != want {
			return nil, fmt.Errorf("rle: plane %d decoded to %d bytes, want %d", k, len(plane), want)
		}
		for j, v := range plane {
			out[k+j*planes] = v
		}
	}
	return out, nil
}

func planeLen(size, k, planes int) int {
	if k >= size {
		return 0
	}
	return (size - k + planes - 1) / planes
}
