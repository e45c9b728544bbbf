package macs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"

	"github.com/jpfielding/macs.go/pkg/compress/rle"
)

// maxChunkSize guards allocations against corrupt length fields.
const maxChunkSize = 1 << 30

// ReadFile parses the MACS container at path.
func ReadFile(path string) (*Image, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(bufio.NewReader(f))
}

// Parse reads a complete MACS container. Unknown chunks are skipped.
func Parse(r io.Reader) (*Image, error) {
	head := make([]byte, len(Magic)+2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(head[:len(Magic)]) != Magic {
		return nil, errors.New("invalid MACS file: missing magic")
	}
	version := FormatVersion(binary.LittleEndian.Uint16(head[len(Magic):]))
	if version != Version1 && version != Version2 {
		return nil, fmt.Errorf("unsupported container version %d", version)
	}

	img := &Image{Version: version}
	var (
		geom    []byte
		raw     []byte
		rawSeen bool
	)
	for {
		id, payload, err := readChunk(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if version == Version1 && (id == chunkPose || id == chunkPreview || id == chunkDataRLE) {
			slog.Warn("chunk needs Version_2, reading it anyway", "id", id, "version", version.String())
		}
		switch id {
		case chunkGeometry:
			geom = payload
		case chunkMeta:
			if img.MetaData, err = decodeMeta(payload); err != nil {
				return nil, err
			}
		case chunkPose:
			if img.GeoPose, err = decodePose(payload); err != nil {
				return nil, err
			}
		case chunkPreview:
			if img.Preview, err = decodePreview(payload); err != nil {
				return nil, err
			}
		case chunkData:
			raw, rawSeen = payload, true
		case chunkDataRLE:
			if len(payload) < 4 {
				return nil, errors.New("RLED chunk too short")
			}
			size := int(binary.LittleEndian.Uint32(payload))
			if size > maxChunkSize {
				return nil, fmt.Errorf("RLED raw length %d exceeds limit", size)
			}
			if raw, err = rle.Decode(payload[4:], size); err != nil {
				return nil, fmt.Errorf("decompressing image data: %w", err)
			}
			rawSeen = true
		default:
			slog.Debug("skipping unknown chunk", "id", id, "len", len(payload))
		}
	}
	if geom == nil || !rawSeen {
		return nil, errors.New("invalid MACS file: missing GEOM or DATA chunk")
	}
	if len(geom) < 14 {
		return nil, fmt.Errorf("GEOM chunk too short: %d bytes", len(geom))
	}
	err := img.ImageData.Init(raw,
		int(binary.LittleEndian.Uint32(geom[0:])),
		int(binary.LittleEndian.Uint32(geom[4:])),
		int(binary.LittleEndian.Uint32(geom[8:])),
		PixelFormat(geom[12]),
		PixelEndianness(geom[13]))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func readChunk(r io.Reader) (string, []byte, error) {
	hdr := make([]byte, chunkHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if err == io.EOF {
			return "", nil, io.EOF
		}
		return "", nil, fmt.Errorf("failed to read chunk header: %w", err)
	}
	id := string(hdr[:4])
	n := binary.LittleEndian.Uint32(hdr[4:])
	if n > maxChunkSize {
		return "", nil, fmt.Errorf("chunk %s length %d exceeds limit", id, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", nil, fmt.Errorf("failed to read chunk %s: %w", id, err)
	}
	var sum uint32
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return "", nil, fmt.Errorf("failed to read chunk %s checksum: %w", id, err)
	}
	if want := chunkCRC(id, payload); sum != want {
		return "", nil, fmt.Errorf("chunk %s checksum mismatch: got %08x want %08x", id, sum, want)
	}
	return id, payload, nil
}

func decodeMeta(b []byte) (MetaData, error) {
	var m MetaData
	for _, s := range []*string{&m.CamVendor, &m.CamModel, &m.CamName, &m.CamSerial, &m.CamMAC,
		&m.CamIP, &m.CamFirmware, &m.Comment, &m.Affix} {
		if len(b) < 2 {
			return m, errors.New("META chunk truncated")
		}
		n := int(binary.LittleEndian.Uint16(b))
		if len(b) < 2+n {
			return m, errors.New("META chunk truncated")
		}
		*s = string(b[2 : 2+n])
		b = b[2+n:]
	}
	for _, v := range []*int32{&m.ImageID, &m.TapCount, &m.ImageIDX, &m.ExpTimeUS, &m.TimeStamp} {
		if len(b) < 4 {
			return m, errors.New("META chunk truncated")
		}
		*v = int32(binary.LittleEndian.Uint32(b))
		b = b[4:]
	}
	return m, nil
}

func decodePose(b []byte) (PoseEvent, error) {
	var p PoseEvent
	if len(b) < 9*8+1+8 {
		return p, fmt.Errorf("POSE chunk too short: %d bytes", len(b))
	}
	for i, v := range []*float64{&p.Roll, &p.Pitch, &p.Yaw, &p.Lat, &p.Lon, &p.Alt, &p.VelN, &p.VelE, &p.VelUp} {
		*v = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	p.Time = FromEpochMillis(int64(binary.LittleEndian.Uint64(b[73:])), b[72] == 1)
	return p, nil
}

func decodePreview(b []byte) (*image.Gray, error) {
	if len(b) < 8 {
		return nil, errors.New("PREV chunk too short")
	}
	w := int(binary.LittleEndian.Uint32(b))
	h := int(binary.LittleEndian.Uint32(b[4:]))
	if w <= 0 || h <= 0 || w > PreviewSize*4 || h > PreviewSize*4 || len(b)-8 != w*h {
		return nil, fmt.Errorf("PREV chunk geometry %dx%d does not match %d bytes", w, h, len(b)-8)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	copy(img.Pix, b[8:])
	return img, nil
}
