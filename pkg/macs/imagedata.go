package macs

// ImageData is the raw sensor buffer of one exposure together with the
// geometry and format needed to decode it. The zero value is empty.
type ImageData struct {
	raw        []byte
	width      int
	height     int
	pitch      int
	format     PixelFormat
	endianness PixelEndianness
}

// NewImageData validates the layout and takes a private copy of raw.
func NewImageData(raw []byte, width, height, pitch int, format PixelFormat, endianness PixelEndianness) (*ImageData, error) {
	d := &ImageData{}
	if err := d.Init(raw, width, height, pitch, format, endianness); err != nil {
		return nil, err
	}
	return d, nil
}

// Init replaces the whole buffer. On error d is left as it was.
func (d *ImageData) Init(raw []byte, width, height, pitch int, format PixelFormat, endianness PixelEndianness) error {
	if err := checkLayout(len(raw), width, height, pitch, format, endianness); err != nil {
		return err
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	*d = ImageData{
		raw:        buf,
		width:      width,
		height:     height,
		pitch:      pitch,
		format:     format,
		endianness: endianness,
	}
	return nil
}

func (d *ImageData) Width() int                  { return d.width }
func (d *ImageData) Height() int                 { return d.height }
func (d *ImageData) Pitch() int                  { return d.pitch }
func (d *ImageData) Format() PixelFormat         { return d.format }
func (d *ImageData) Endianness() PixelEndianness { return d.endianness }
func (d *ImageData) BitDepth() int               { return d.format.BitDepth() }
func (d *ImageData) IsMono() bool                { return d.format.IsMono() }
func (d *ImageData) IsColor() bool               { return d.format.IsColor() }

// ByteSize is the number of bytes held.
func (d *ImageData) ByteSize() int {
	return len(d.raw)
}

func (d *ImageData) IsValid() bool {
	return d.format != Invalid && d.ByteSize() > 0
}

// RawData returns the stored bytes as loaded. Callers must not modify them.
func (d *ImageData) RawData() []byte {
	return d.raw
}

// Data decodes the buffer into a fresh sample plane on every call.
func (d *ImageData) Data() (*Plane, error) {
	return Unpack(d.raw, d.width, d.height, d.pitch, d.format, d.endianness)
}
