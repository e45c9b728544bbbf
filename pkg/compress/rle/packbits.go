package rle

import (
	"bytes"
	"errors"
	"fmt"
)

// maxRun is the longest literal or replicate run one PackBits header can describe.
const maxRun = 128

// packBits compresses src. A header byte n in [0,127] is followed by n+1
// literal bytes; n in [-127,-1] repeats the next byte 1-n times.
func packBits(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Grow(len(src) + len(src)/maxRun + 1)
	for i := 0; i < len(src); {
		run := 1
		for i+run < len(src) && run < maxRun && src[i+run] == src[i] {
			run++
		}
		if run > 1 {
			buf.WriteByte(byte(int8(1 - run)))
			buf.WriteByte(src[i])
			i += run
			continue
		}
		// literal until three equal bytes start a worthwhile run
		n := 1
		for i+n < len(src) && n < maxRun {
			if i+n+2 < len(src) && src[i+n] == src[i+n+1] && src[i+n] == src[i+n+2] {
				break
			}
			n++
		}
		buf.WriteByte(byte(n - 1))
		buf.Write(src[i : i+n])
		i += n
	}
	return buf.Bytes()
}

// unpackBits expands src, stopping once want bytes are produced when want > 0.
func unpackBits(src []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for i := 0; i < len(src); {
		if want > 0 && len(out) >= want {
			break
		}
		n := int8(src[i])
		i++
		switch {
		case n == -128:
			// no-op header
		case n >= 0:
			count := int(n) + 1
			if i+count > len(src) {
				return nil, fmt.Errorf("rle: literal run of %d at offset %d overruns %d bytes", count, i, len(src))
			}
			out = append(out, src[i:i+count]...)
			i += count
		default:
			if i >= len(src) {
				return nil, errors.New("rle: replicate run missing its value byte")
			}
			v := src[i]
			i++
			for k := 0; k < 1-int(n); k++ {
				out = append(out, v)
			}
		}
	}
	return out, nil
}
