package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/montagekit/montage/internal/config"
	"github.com/montagekit/montage/internal/logging"
)

const appVersion = "0.3.0"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	scratchDir  string
	ffmpegPath  string
	ffprobePath string
	verbose     bool
}

// engineConfig resolves the persistent flags into an engine configuration.
func (o *rootOptions) engineConfig() *config.Config {
	cfg := config.Default()
	if o.scratchDir != "" {
		cfg.ScratchDir = o.scratchDir
	}
	if o.ffmpegPath != "" {
		cfg.FFmpegPath = o.ffmpegPath
	}
	if o.ffprobePath != "" {
		cfg.FFprobePath = o.ffprobePath
	}
	return cfg
}

func (o *rootOptions) logger() *slog.Logger {
	if !o.verbose {
		return logging.NewNop()
	}
	lc := logging.DefaultConfig()
	lc.Level = logging.LevelDebug
	return logging.New(lc)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "montage",
		Short:         "Compose and render clip montages with ffmpeg",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.scratchDir, "scratch-dir", "",
		"Directory for intermediate renders and the cache (default: per-user temp dir)")
	rootCmd.PersistentFlags().StringVar(&opts.ffmpegPath, "ffmpeg", "", "Path to the ffmpeg binary")
	rootCmd.PersistentFlags().StringVar(&opts.ffprobePath, "ffprobe", "", "Path to the ffprobe binary")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRenderCommand(opts))
	rootCmd.AddCommand(newCacheCommand(opts))
	rootCmd.AddCommand(newProbeCommand(opts))

	return rootCmd
}
