package compose

import (
	"log/slog"
	"sort"

	"github.com/montagekit/montage/internal/errors"
)

// DistributeOptions tune clip distribution.
type DistributeOptions struct {
	// MinDuration keeps replaying the clip list until every window's
	// schedule reaches this many seconds. Zero distributes each clip
	// exactly once.
	MinDuration float64
	// Shuffle randomizes clip order before each placement pass.
	Shuffle bool
}

// windowStat tracks one window's accumulated schedule during distribution.
type windowStat struct {
	window   *Window
	aspect   float64
	duration float64
}

// Distribute spreads clips across windows, preferring the window whose
// aspect ratio is closest to each clip's and breaking ties toward the least
// loaded. A window admits a clip only while its running duration stays
// within 20% of what the current shortest window would reach with that
// clip, which keeps the windows filling at a similar pace.
//
// With MinDuration set, clips are replayed (optionally reshuffled) until
// every window is at least that long; windows already past the minimum stop
// admitting. Without it, a clip no window can admit is an error.
func (e *Engine) Distribute(clips []*Clip, windows []*Window, opts DistributeOptions) error {
	if len(windows) == 0 {
		return errors.NewConfigurationError("distribution requires at least one window")
	}
	if len(clips) == 0 {
		return nil
	}
	if opts.MinDuration < 0 {
		return errors.NewConfigurationError("minimum duration must not be negative")
	}

	stats := make([]*windowStat, len(windows))
	for i, w := range windows {
		stats[i] = &windowStat{
			window:   w,
			aspect:   w.AspectRatio(),
			duration: w.ComputeDuration(),
		}
	}

	order := make([]*Clip, len(clips))
	copy(order, clips)

	pass := func() error {
		if opts.Shuffle {
			e.rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}
		for _, clip := range order {
			aspect := clip.AspectRatio()
			length := clip.Duration()

			shortest := stats[0].duration
			for _, s := range stats[1:] {
				if s.duration < shortest {
					shortest = s.duration
				}
			}

			ranked := make([]*windowStat, len(stats))
			copy(ranked, stats)
			sort.SliceStable(ranked, func(i, j int) bool {
				di := absDiff(ranked[i].aspect, aspect)
				dj := absDiff(ranked[j].aspect, aspect)
				if di != dj {
					return di < dj
				}
				return ranked[i].duration < ranked[j].duration
			})

			admitted := false
			for _, s := range ranked {
				if s.duration+length > 1.2*(shortest+length) {
					continue
				}
				if opts.MinDuration > 0 && s.duration >= opts.MinDuration {
					continue
				}
				s.window.AddClip(clip)
				s.duration = s.window.ComputeDuration()
				admitted = true
				break
			}
			if !admitted && opts.MinDuration == 0 {
				return errors.NewPlacementError(
					"no window can admit clip " + clip.Asset.Path)
			}
		}
		return nil
	}

	total := func() float64 {
		var sum float64
		for _, s := range stats {
			sum += s.duration
		}
		return sum
	}

	if err := pass(); err != nil {
		return err
	}
	if opts.MinDuration == 0 {
		return nil
	}

	for {
		shortest := stats[0].duration
		for _, s := range stats[1:] {
			if s.duration < shortest {
				shortest = s.duration
			}
		}
		if shortest >= opts.MinDuration {
			break
		}
		before := total()
		if err := pass(); err != nil {
			return err
		}
		// A replay that grows nothing would loop forever; overlay-heavy
		// clip lists can be admitted without extending any schedule.
		if total() <= before {
			return errors.NewPlacementError(
				"distribution stalled before every window reached its minimum duration")
		}
	}

	for _, s := range stats {
		e.log.Debug("distributed window",
			slog.String("window", s.window.Name),
			slog.Int("clips", len(s.window.Clips)),
			slog.Float64("duration", s.duration))
	}
	return nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
