package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/macs.go/pkg/logging"
	"github.com/jpfielding/macs.go/pkg/macs"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFileW io.WriteCloser
	cmd := &cobra.Command{
		Use:          "macsctl",
		Short:        "inspect, correct and convert MACS raw images",
		Long:         "macsctl reads MACS raw image containers, applies radiometric and geometric correction, and exports the result.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFile, _ := cmd.Flags().GetString("log-file")
			jsonLogs, _ := cmd.Flags().GetBool("json-logs")

			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stderr
			if logFile != "" {
				logFileW = logging.RotatingFile(logFile)
				w = io.MultiWriter(os.Stderr, logFileW)
			}
			slog.SetDefault(logging.Logger(w, jsonLogs, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFileW == nil {
				return
			}
			slog.SetDefault(logging.Logger(os.Stderr, false, slog.LevelInfo))
			if err := logFileW.Close(); err != nil {
				slog.WarnContext(ctx, "failed to close log file", "error", err)
			}
			logFileW = nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewInfoCmd(ctx),
		NewCorrectCmd(ctx),
		NewConvertCmd(ctx),
		NewProfileCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "also write logs to this rotated file")
	pf.Bool("json-logs", false, "log as JSON instead of text")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// inputPath takes --file, falling back to the first argument.
func inputPath(cmd *cobra.Command, args []string) (string, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return "", fmt.Errorf("file path is required. Use --file flag or provide as argument")
	}
	return path, nil
}

func loadImage(ctx context.Context, path string) (*macs.Image, error) {
	img := &macs.Image{}
	if err := img.Load(path); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "loaded image",
		"path", path,
		"version", img.Version.String(),
		"format", img.ImageData.Format().String(),
		"width", img.ImageData.Width(),
		"height", img.ImageData.Height())
	return img, nil
}
