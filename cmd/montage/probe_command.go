package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/montagekit/montage/internal/ffprobe"
)

func newProbeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Probe a media file and print its composition-relevant metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.engineConfig()
			prober := ffprobe.NewExecProber(cfg.FFprobePath, opts.logger())

			meta, err := prober.Probe(context.Background(), args[0])
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			printLabel := func(label, value string) {
				fmt.Printf("  %s %s\n", bold.Sprintf("%-14s", label), value)
			}

			fmt.Println(meta.Path)
			printLabel("Duration:", fmt.Sprintf("%.3fs", meta.Duration))
			printLabel("Frame:", fmt.Sprintf("%dx%d", meta.Width, meta.Height))
			if meta.SampleAspectRatio != "" {
				printLabel("SAR:", meta.SampleAspectRatio)
			}
			if meta.PixelFormat != "" {
				printLabel("Pixel format:", meta.PixelFormat)
			}
			if meta.HasAudio() {
				printLabel("Audio:", fmt.Sprintf("%d channel(s)", meta.AudioChannels))
			} else {
				printLabel("Audio:", "none")
			}
			return nil
		},
	}
}
