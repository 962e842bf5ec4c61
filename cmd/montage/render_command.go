package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/montagekit/montage/internal/compose"
	"github.com/montagekit/montage/internal/manifest"
)

func newRenderCommand(opts *rootOptions) *cobra.Command {
	var (
		force   bool
		quiet   bool
		seed    int64
		batch   int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render <manifest.toml>",
		Short: "Render the composition described by a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := opts.engineConfig()
			cfg.Seed = seed
			cfg.InvokeTimeout = timeout
			if batch > 0 {
				cfg.OverlayBatch = batch
			}

			var reporter compose.Reporter = compose.NullReporter{}
			if !quiet {
				reporter = newTerminalReporter()
			}

			engine, err := compose.NewEngine(cfg, compose.Deps{
				Logger:   opts.logger(),
				Reporter: reporter,
			})
			if err != nil {
				return err
			}

			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			windows, err := m.Build(ctx, engine)
			if err != nil {
				return err
			}

			for _, w := range windows {
				if force {
					w.Force = true
				}
				if _, err := engine.Render(ctx, w); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-render every clip, bypassing cache reads")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Fix the overlay placement RNG (0 seeds from the clock)")
	cmd.Flags().IntVar(&batch, "overlay-batch", 0, "Cascading overlays per ffmpeg invocation")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-invocation timeout (0 = unbounded)")

	return cmd
}
