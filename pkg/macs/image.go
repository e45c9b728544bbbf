package macs

import (
	"image"
	"io"
)

// Image binds one exposure's raw buffer to its camera metadata and the pose
// sample taken with it. Concurrent CorrectedImage calls on one Image are safe
// as long as nothing reloads it meanwhile.
type Image struct {
	ImageData ImageData
	MetaData  MetaData
	GeoPose   PoseEvent

	// Version is the container revision the image was loaded from.
	Version FormatVersion
	// Preview is the embedded thumbnail, if the container carried one.
	Preview *image.Gray
}

// Load replaces the image with the container at path. On error the image
// is left unchanged and the reader's error is returned wrapped in *IOError.
func (m *Image) Load(path string) error {
	loaded, err := ReadFile(path)
	if err != nil {
		return &IOError{Op: "load", Path: path, Err: err}
	}
	*m = *loaded
	return nil
}

// LoadReader is Load for an already open stream.
func (m *Image) LoadReader(r io.Reader) error {
	loaded, err := Parse(r)
	if err != nil {
		return &IOError{Op: "load", Err: err}
	}
	*m = *loaded
	return nil
}

// CorrectedImage decodes the raw buffer and runs it through Correct. The
// result is a new image owned by the caller; the raw buffer is untouched.
func (m *Image) CorrectedImage(opts CorrectionOptions) (image.Image, error) {
	p, err := m.ImageData.Data()
	if err != nil {
		return nil, err
	}
	return Correct(p, m.ImageData.Format(), opts)
}

// Save writes the held raw state as a Version2 container.
func (m *Image) Save(path string, preview, compression bool) error {
	_, err := WriteFile(path, m, WriteOptions{Version: Version2, Preview: preview, Compression: compression})
	if err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// SaveWriter is Save for an arbitrary destination.
func (m *Image) SaveWriter(w io.Writer, opts WriteOptions) error {
	if _, err := Write(w, m, opts); err != nil {
		return &IOError{Op: "save", Err: err}
	}
	return nil
}
