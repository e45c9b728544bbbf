package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/macs.go/pkg/macs"
	"github.com/spf13/cobra"
)

func NewConvertCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [FILE]",
		Short: "rewrite a container, optionally with preview and compression",
		Long:  "Rewrites a MACS container unchanged in content. Preview and compression need --version 2.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := inputPath(cmd, args)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			version, _ := cmd.Flags().GetInt("version")
			preview, _ := cmd.Flags().GetBool("preview")
			compress, _ := cmd.Flags().GetBool("compress")

			img, err := loadImage(ctx, path)
			if err != nil {
				return err
			}
			opts := macs.WriteOptions{Version: macs.FormatVersion(version), Preview: preview, Compression: compress}
			n, err := macs.WriteFile(out, img, opts)
			if err != nil {
				return &macs.IOError{Op: "save", Path: out, Err: err}
			}
			slog.InfoContext(ctx, "converted",
				"in", path,
				"out", out,
				"version", opts.Version.String(),
				"bytes", n,
				"raw", img.ImageData.ByteSize())
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "MACS container to convert")
	pf.String("out", "", "output path")
	pf.Int("version", int(macs.Version2), "container version (1|2)")
	pf.Bool("preview", false, "embed an 8-bit preview")
	pf.Bool("compress", false, "compress the raw buffer")
	return cmd
}
