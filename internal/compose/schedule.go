package compose

// Interval is the scheduled on-screen span of one cascading overlay clip.
type Interval struct {
	Start float64
	End   float64
}

// computeSchedule plays the window's clips forward: sequential clips
// contribute their summed length, and cascading overlay clips are staggered
// so that at most OverlayConcurrency of them run at once, each start at
// least OverlayMinGap after the previous.
//
// While fewer clips have started than the concurrency limit, starts land on
// multiples of the gap. After that a clip starts when one of the most
// recently started concurrency-many clips ends, pushed later if that would
// crowd the previous start. The returned intervals are in clip order,
// covering only the cascading clips; the duration is the later of the
// sequential run and the last overlay's end.
func computeSchedule(clips []*Clip, win *Window) (float64, []Interval) {
	var duration float64
	var timing []Interval
	priorStart := 0.0

	for _, clip := range clips {
		display := resolveDisplay(clip, win)
		if display.Style != StyleOverlay {
			duration += clip.Duration()
			continue
		}

		var start float64
		if len(timing) < display.OverlayConcurrency {
			start = float64(len(timing)) * display.OverlayMinGap
		} else {
			recent := timing[len(timing)-display.OverlayConcurrency:]
			start = recent[0].End
			for _, iv := range recent[1:] {
				if iv.End < start {
					start = iv.End
				}
			}
			if start-priorStart < display.OverlayMinGap {
				start = priorStart + display.OverlayMinGap
			}
		}

		end := start + clip.Duration()
		timing = append(timing, Interval{Start: start, End: end})
		if end > duration {
			duration = end
		}
		priorStart = start
	}

	return duration, timing
}
