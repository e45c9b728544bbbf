package macs

import (
	"fmt"
	"image"
)

// PreviewSize is the longest side of an embedded preview in pixels.
const PreviewSize = 256

// Preview builds an 8-bit thumbnail of d by decimation, with the long side
// at most size pixels. Bayer data is decimated by an even factor so every
// preview pixel comes from the same filter colour.
func Preview(d *ImageData, size int) (*image.Gray, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: preview size %d", ErrInvalidGeometry, size)
	}
	p, err := d.Data()
	if err != nil {
		return nil, err
	}
	step := (max(p.Width, p.Height) + size - 1) / size
	if step < 1 {
		step = 1
	}
	if d.IsColor() && step%2 == 1 && step > 1 {
		step++
	}
	small := NewPlane((p.Width+step-1)/step, (p.Height+step-1)/step, p.Depth)
	for y := 0; y < small.Height; y++ {
		for x := 0; x < small.Width; x++ {
			small.Pix[y*small.Width+x] = p.At(x*step, y*step)
		}
	}
	opts := IdentityOptions(d.Format())
	opts.ConvertTo8Bit = true
	img, err := Correct(small, d.Format(), opts)
	if err != nil {
		return nil, err
	}
	return img.(*image.Gray), nil
}
