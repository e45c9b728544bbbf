package macs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/jpfielding/macs.go/pkg/compress/rle"
	"github.com/snksoft/crc"
)

// Magic opens every MACS image container.
const Magic = "MACS"

// Chunk identifiers.
const (
	chunkGeometry   = "GEOM"
	chunkMeta       = "META"
	chunkPose       = "POSE"
	chunkPreview    = "PREV"
	chunkData       = "DATA"
	chunkDataRLE    = "RLED"
	chunkHeaderSize = 8
)

// WriteOptions control container output.
type WriteOptions struct {
	Version     FormatVersion
	Preview     bool // embed an 8-bit thumbnail (Version2)
	Compression bool // PackBits-compress the raw buffer (Version2)
}

// WriteFile writes img to a MACS container at path.
func WriteFile(path string, img *Image, opts WriteOptions) (int64, error) {
	f, err := createFile(path)
	if err != nil {
		return 0, err
	}
	n, err := Write(f, img, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Write encodes img as a MACS container.
func Write(w io.Writer, img *Image, opts WriteOptions) (int64, error) {
	if opts.Version == 0 {
		opts.Version = Version2
	}
	if opts.Version != Version1 && opts.Version != Version2 {
		return 0, fmt.Errorf("macs: unsupported container version %d", opts.Version)
	}
	d := &img.ImageData
	if !d.IsValid() {
		return 0, fmt.Errorf("%w: nothing to write", ErrInvalidFormat)
	}
	if opts.Version == Version1 && (opts.Preview || opts.Compression) {
		slog.Warn("preview and compression need Version_2, writing without",
			"version", opts.Version.String())
		opts.Preview, opts.Compression = false, false
	}

	meta, err := encodeMeta(img.MetaData)
	if err != nil {
		return 0, err
	}

	cw := &CountingWriter{Writer: w}
	if _, err := cw.Write([]byte(Magic)); err != nil {
		return cw.Count.Load(), err
	}
	if err := binary.Write(cw, binary.LittleEndian, uint16(opts.Version)); err != nil {
		return cw.Count.Load(), err
	}

	if err := writeChunk(cw, chunkGeometry, encodeGeometry(d)); err != nil {
		return cw.Count.Load(), err
	}
	if err := writeChunk(cw, chunkMeta, meta); err != nil {
		return cw.Count.Load(), err
	}
	if opts.Version >= Version2 {
		if err := writeChunk(cw, chunkPose, encodePose(img.GeoPose)); err != nil {
			return cw.Count.Load(), err
		}
	}
	if opts.Preview {
		prev, err := Preview(d, PreviewSize)
		if err != nil {
			return cw.Count.Load(), fmt.Errorf("building preview: %w", err)
		}
		if err := writeChunk(cw, chunkPreview, encodePreview(prev.Rect.Dx(), prev.Rect.Dy(), prev.Pix)); err != nil {
			return cw.Count.Load(), err
		}
	}
	if opts.Compression {
		var buf bytes.Buffer
		if err := rle.Encode(&buf, d.RawData(), planesFor(d.Format())); err != nil {
			return cw.Count.Load(), fmt.Errorf("compressing image data: %w", err)
		}
		payload := binary.LittleEndian.AppendUint32(nil, uint32(d.ByteSize()))
		payload = append(payload, buf.Bytes()...)
		slog.Debug("compressed image data", "raw", d.ByteSize(), "compressed", buf.Len())
		if err := writeChunk(cw, chunkDataRLE, payload); err != nil {
			return cw.Count.Load(), err
		}
	} else if err := writeChunk(cw, chunkData, d.RawData()); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

// planesFor picks the byte interleave that lines up with the sample layout.
func planesFor(f PixelFormat) int {
	if f.IsPacked() {
		return 3
	}
	return 2
}

var crcTable = crc.NewTable(crc.CRC32)

// chunkCRC covers the chunk id and payload, not the length field.
func chunkCRC(id string, payload []byte) uint32 {
	sum := crcTable.InitCrc()
	sum = crcTable.UpdateCrc(sum, []byte(id))
	sum = crcTable.UpdateCrc(sum, payload)
	return crcTable.CRC32(sum)
}

func writeChunk(w io.Writer, id string, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("macs: chunk %s too large (%d bytes)", id, len(payload))
	}
	hdr := make([]byte, chunkHeaderSize)
	copy(hdr, id)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, chunkCRC(id, payload))
}

func encodeGeometry(d *ImageData) []byte {
	b := make([]byte, 0, 14)
	b = binary.LittleEndian.AppendUint32(b, uint32(d.Width()))
	b = binary.LittleEndian.AppendUint32(b, uint32(d.Height()))
	b = binary.LittleEndian.AppendUint32(b, uint32(d.Pitch()))
	return append(b, byte(d.Format()), byte(d.Endianness()))
}

func encodeMeta(m MetaData) ([]byte, error) {
	var b []byte
	fields := []struct {
		name, value string
	}{
		{"camVendor", m.CamVendor},
		{"camModel", m.CamModel},
		{"camName", m.CamName},
		{"camSerial", m.CamSerial},
		{"camMAC", m.CamMAC},
		{"camIP", m.CamIP},
		{"camFirmware", m.CamFirmware},
		{"comment", m.Comment},
		{"affix", m.Affix},
	}
	for _, f := range fields {
		if len(f.value) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrMetaTooLong, f.name, len(f.value), math.MaxUint16)
		}
		b = binary.LittleEndian.AppendUint16(b, uint16(len(f.value)))
		b = append(b, f.value...)
	}
	for _, v := range []int32{m.ImageID, m.TapCount, m.ImageIDX, m.ExpTimeUS, m.TimeStamp} {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b, nil
}

func encodePose(p PoseEvent) []byte {
	b := make([]byte, 0, 9*8+1+8)
	for _, v := range []float64{p.Roll, p.Pitch, p.Yaw, p.Lat, p.Lon, p.Alt, p.VelN, p.VelE, p.VelUp} {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	ms, ok := ToEpochMillis(p.Time)
	if ok {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return binary.LittleEndian.AppendUint64(b, uint64(ms))
}

func encodePreview(w, h int, pix []byte) []byte {
	b := make([]byte, 0, 8+len(pix))
	b = binary.LittleEndian.AppendUint32(b, uint32(w))
	b = binary.LittleEndian.AppendUint32(b, uint32(h))
	return append(b, pix...)
}

// CountingWriter counts bytes successfully written through it.
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	c.Count.Add(int64(n))
	return n, err
}
