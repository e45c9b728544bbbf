// Package export writes corrected frames to interchange formats for GIS and
// astronomy tooling.
package export

import (
	"fmt"
	"image"
	"io"
	"math"
	"strings"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/jpfielding/macs.go/pkg/macs"
	"golang.org/x/image/tiff"
)

// Kind names an output format.
type Kind string

const (
	TIFF Kind = "tiff"
	FITS Kind = "fits"
)

// ParseKind accepts tiff/tif and fits/fit, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "tiff", "tif":
		return TIFF, nil
	case "fits", "fit":
		return FITS, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Ext is the conventional file extension, with dot.
func (k Kind) Ext() string {
	return "." + string(k)
}

// Write dispatches to WriteTIFF (compressed) or WriteFITS.
func Write(w io.Writer, kind Kind, img image.Image, cards []fitsio.Card) error {
	switch kind {
	case TIFF:
		return WriteTIFF(w, img, true)
	case FITS:
		return WriteFITS(w, img, cards)
	}
	return fmt.Errorf("unknown export format %q", kind)
}

// WriteTIFF encodes a corrected frame as a single-channel TIFF, deflated with
// a horizontal predictor when compress is set.
func WriteTIFF(w io.Writer, img image.Image, compress bool) error {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
	default:
		return fmt.Errorf("tiff: unsupported image type %T", img)
	}
	opts := &tiff.Options{Compression: tiff.Uncompressed}
	if compress {
		opts = &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	}
	return tiff.Encode(w, img, opts)
}

// WriteFITS streams a single-frame FITS file. 16-bit frames are stored as
// signed integers offset by BZERO=32768 as FITS has no unsigned 16-bit type.
func WriteFITS(w io.Writer, img image.Image, cards []fitsio.Card) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("fits: empty image")
	}

	var (
		bitpix int
		data   any
	)
	switch src := img.(type) {
	case *image.Gray:
		bitpix = 8
		pix := make([]byte, 0, width*height)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := src.PixOffset(b.Min.X, y)
			pix = append(pix, src.Pix[off:off+width]...)
		}
		data = pix
	case *image.Gray16:
		bitpix = 16
		cards = append(cards,
			fitsio.Card{Name: "BZERO", Value: 32768},
			fitsio.Card{Name: "BSCALE", Value: 1.0})
		ints := make([]int16, 0, width*height)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				ints = append(ints, int16(int32(src.Gray16At(x, y).Y)-32768))
			}
		}
		data = ints
	default:
		return fmt.Errorf("fits: unsupported image type %T", img)
	}

	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(bitpix, []int{width, height})
	defer im.Close()
	if err := im.Header().Append(cards...); err != nil {
		return err
	}
	if err := im.Write(data); err != nil {
		return err
	}
	return fits.Write(im)
}

// MetadataCards describes the exposure for a FITS header. Pose cards are
// only present for a valid pose.
func MetadataCards(meta macs.MetaData, pose macs.PoseEvent) []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "INSTRUME", Value: strings.TrimSpace(meta.CamVendor + " " + meta.CamModel), Comment: "camera"},
		{Name: "CAMNAME", Value: meta.CamName, Comment: "camera position in the rig"},
		{Name: "CAMSER", Value: meta.CamSerial, Comment: "camera serial number"},
		{Name: "CAMFW", Value: meta.CamFirmware, Comment: "camera firmware"},
		{Name: "IMAGEID", Value: int(meta.ImageID), Comment: "camera frame id"},
		{Name: "IMAGEIDX", Value: int(meta.ImageIDX), Comment: "frame index in session"},
		{Name: "TAPCOUNT", Value: int(meta.TapCount), Comment: "sensor taps"},
		{Name: "EXPTIME", Value: float64(meta.ExpTimeUS) / 1e6, Comment: "exposure time [s]"},
	}
	if meta.Comment != "" {
		cards = append(cards, fitsio.Card{Name: "NOTE", Value: meta.Comment, Comment: "operator comment"})
	}
	if !pose.IsValid() {
		return cards
	}
	return append(cards,
		fitsio.Card{Name: "DATE-OBS", Value: pose.Time.UTC().Format(time.RFC3339Nano), Comment: "pose sample time"},
		fitsio.Card{Name: "LAT", Value: finite(pose.Lat), Comment: "latitude [deg]"},
		fitsio.Card{Name: "LON", Value: finite(pose.Lon), Comment: "longitude [deg]"},
		fitsio.Card{Name: "ALT", Value: finite(pose.Alt), Comment: "altitude [m]"},
		fitsio.Card{Name: "ROLL", Value: finite(pose.Roll), Comment: "[deg]"},
		fitsio.Card{Name: "PITCH", Value: finite(pose.Pitch), Comment: "[deg]"},
		fitsio.Card{Name: "YAW", Value: finite(pose.Yaw), Comment: "[deg]"},
	)
}

// finite maps NaN/Inf, which FITS cannot carry, to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
