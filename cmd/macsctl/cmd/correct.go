package cmd

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/jpfielding/macs.go/pkg/config"
	"github.com/jpfielding/macs.go/pkg/export"
	"github.com/jpfielding/macs.go/pkg/macs"
	"github.com/jpfielding/macs.go/pkg/util"
	"github.com/spf13/cobra"
)

func NewCorrectCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct [FILE]",
		Short: "apply a correction profile and export the result",
		Long: `Decodes the raw buffer, runs devignetting, colour balance, distortion
correction, stretch and quantization with the given profile, and writes the
corrected frame as TIFF, FITS or a MACS container. Profile values can be
overridden with MACS_* environment variables (MACS_STRETCH__GAMMA=2.2).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := inputPath(cmd, args)
			if err != nil {
				return err
			}
			profile, _ := cmd.Flags().GetString("profile")
			out, _ := cmd.Flags().GetString("out")
			kind, _ := cmd.Flags().GetString("export")

			img, err := loadImage(ctx, path)
			if err != nil {
				return err
			}
			opts, err := config.Load(profile, img.ImageData.Format())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("8bit") {
				opts.ConvertTo8Bit, _ = cmd.Flags().GetBool("8bit")
			}
			if out == "" {
				out = strings.TrimSuffix(path, filepath.Ext(path)) + "_corrected." + strings.ToLower(kind)
			}
			fingerprint := util.HashUUID(opts)
			slog.InfoContext(ctx, "correcting", "in", path, "out", out, "profile", fingerprint)

			corrected, err := img.CorrectedImage(opts)
			if err != nil {
				return err
			}
			return writeCorrected(out, kind, img, corrected, fingerprint)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "MACS container to correct")
	pf.StringP("profile", "p", "", "YAML correction profile (identity when empty)")
	pf.String("out", "", "output path (defaults next to the input)")
	pf.StringP("export", "e", "tiff", "output format (tiff|fits|macs)")
	pf.Bool("8bit", false, "quantize to 8 bit")
	return cmd
}

func writeCorrected(out, kind string, src *macs.Image, corrected image.Image, fingerprint string) error {
	if strings.EqualFold(kind, "macs") {
		return saveCorrectedMACS(out, src, corrected)
	}
	k, err := export.ParseKind(kind)
	if err != nil {
		return err
	}
	cards := export.MetadataCards(src.MetaData, src.GeoPose)
	cards = append(cards,
		fitsio.Card{Name: "PROFILE", Value: fingerprint, Comment: "correction profile id"},
		fitsio.Card{Name: "PIXFMT", Value: src.ImageData.Format().String(), Comment: "sensor pixel format"})
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := export.Write(f, k, corrected, cards); err != nil {
		f.Close()
		return err
	}
	slog.Info("wrote corrected image", "path", out, "type", macs.ImageType(corrected))
	return f.Close()
}

// saveCorrectedMACS re-packs a native-range result into the source's pixel
// layout so it can be stored next to the raw frames.
func saveCorrectedMACS(out string, src *macs.Image, corrected image.Image) error {
	g, ok := corrected.(*image.Gray16)
	if !ok {
		return fmt.Errorf("macs export needs native range output, got %s", macs.ImageType(corrected))
	}
	d := &src.ImageData
	p := macs.NewPlane(d.Width(), d.Height(), d.BitDepth())
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			p.Set(x, y, g.Gray16At(x, y).Y)
		}
	}
	raw, err := macs.Pack(p, d.Pitch(), d.Format(), d.Endianness())
	if err != nil {
		return err
	}
	dst := &macs.Image{MetaData: src.MetaData, GeoPose: src.GeoPose}
	if err := dst.ImageData.Init(raw, d.Width(), d.Height(), d.Pitch(), d.Format(), d.Endianness()); err != nil {
		return err
	}
	return dst.Save(out, true, true)
}
