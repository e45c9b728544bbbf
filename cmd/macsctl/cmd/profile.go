package cmd

import (
	"context"
	"log/slog"

	"github.com/jpfielding/macs.go/pkg/config"
	"github.com/jpfielding/macs.go/pkg/macs"
	"github.com/jpfielding/macs.go/pkg/util"
	"github.com/spf13/cobra"
)

func NewProfileCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "print the resolved correction profile as YAML",
		Long: `Prints the correction profile that correct would use: identity values for
the pixel format, overlaid by --profile and MACS_* environment variables.
Redirect the output to start a new profile from the defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("pixel-format")
			path, _ := cmd.Flags().GetString("profile")
			format, err := macs.ParsePixelFormat(name)
			if err != nil {
				return err
			}
			opts, err := config.Load(path, format)
			if err != nil {
				return err
			}
			slog.DebugContext(ctx, "resolved profile", "format", format.String(), "id", util.HashUUID(opts))
			return config.Write(cmd.OutOrStdout(), opts)
		},
	}
	pf := cmd.PersistentFlags()
	pf.String("pixel-format", macs.Mono16.String(), "pixel format the defaults are built for")
	pf.StringP("profile", "p", "", "YAML profile to overlay")
	return cmd
}
