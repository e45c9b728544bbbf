package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jpfielding/macs.go/pkg/macs"
	"github.com/jpfielding/macs.go/pkg/util"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Info summarises a container for listings.
type Info struct {
	Path       string          `json:"path"`
	Version    string          `json:"version"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Pitch      int             `json:"pitch"`
	Format     string          `json:"format"`
	Endianness string          `json:"endianness"`
	BitDepth   int             `json:"bitDepth"`
	ByteSize   int             `json:"byteSize"`
	RawMD5     string          `json:"rawMD5"`
	Preview    string          `json:"preview,omitempty"`
	Meta       macs.MetaData   `json:"meta"`
	Pose       *macs.PoseEvent `json:"pose,omitempty"`
}

func NewInfo(path string, img *macs.Image) Info {
	d := &img.ImageData
	info := Info{
		Path:       path,
		Version:    img.Version.String(),
		Width:      d.Width(),
		Height:     d.Height(),
		Pitch:      d.Pitch(),
		Format:     d.Format().String(),
		Endianness: d.Endianness().String(),
		BitDepth:   d.BitDepth(),
		ByteSize:   d.ByteSize(),
		RawMD5:     util.Md5ThenHex(d.RawData()),
		Meta:       img.MetaData,
	}
	if img.Preview != nil {
		info.Preview = fmt.Sprintf("%dx%d", img.Preview.Rect.Dx(), img.Preview.Rect.Dy())
	}
	if img.GeoPose.IsValid() {
		pose := img.GeoPose
		info.Pose = &pose
	}
	return info
}

// WriteText prints info as aligned key/value lines.
func (i Info) WriteText(w io.Writer) {
	fmt.Fprintf(w, "File:       %s\n", i.Path)
	fmt.Fprintf(w, "Version:    %s\n", i.Version)
	fmt.Fprintf(w, "Geometry:   %dx%d pitch %d\n", i.Width, i.Height, i.Pitch)
	fmt.Fprintf(w, "Format:     %s (%d bit, %s endian)\n", i.Format, i.BitDepth, i.Endianness)
	fmt.Fprintf(w, "Raw:        %d bytes md5 %s\n", i.ByteSize, i.RawMD5)
	if i.Preview != "" {
		fmt.Fprintf(w, "Preview:    %s\n", i.Preview)
	}
	fmt.Fprintf(w, "Camera:     %s %s %q serial %s\n", i.Meta.CamVendor, i.Meta.CamModel, i.Meta.CamName, i.Meta.CamSerial)
	fmt.Fprintf(w, "Frame:      id %d idx %d exposure %dus\n", i.Meta.ImageID, i.Meta.ImageIDX, i.Meta.ExpTimeUS)
	if i.Pose == nil {
		fmt.Fprintln(w, "Pose:       none")
		return
	}
	p := i.Pose
	fmt.Fprintf(w, "Pose:       %s lat %.7f lon %.7f alt %.2f\n", p.Time.Format(time.RFC3339Nano), p.Lat, p.Lon, p.Alt)
	fmt.Fprintf(w, "Attitude:   roll %.3f pitch %.3f yaw %.3f\n", p.Roll, p.Pitch, p.Yaw)
}

func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [FILE]",
		Short: "show container geometry, metadata and pose",
		Long:  "Loads a MACS container and prints its geometry, pixel format, camera metadata and pose sample.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := inputPath(cmd, args)
			if err != nil {
				return err
			}
			img, err := loadImage(ctx, path)
			if err != nil {
				return err
			}
			info := NewInfo(path, img)
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text":
				info.WriteText(cmd.OutOrStdout())
			default:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "MACS container to inspect")
	pf.StringP("format", "o", "json", "output format (text|json)")
	return cmd
}
