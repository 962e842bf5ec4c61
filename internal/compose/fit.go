package compose

// fitMode selects how scaled content relates to the target region.
type fitMode int

const (
	// fitInside scales so the content fits entirely inside the region
	// (pad behavior).
	fitInside fitMode = iota
	// fitCover scales so the content covers the entire region (crop and
	// pan behavior).
	fitCover
)

// fitDimensions computes the scaled content size for a target region.
// A scaled dimension within 2 pixels of the target snaps exactly to it,
// avoiding single-pixel borders from aspect-ratio rounding. Odd results are
// bumped to even, which the downstream codec requires.
func fitDimensions(contentW, contentH, windowW, windowH int, mode fitMode) (scale float64, outW, outH int) {
	sx := float64(windowW) / float64(contentW)
	sy := float64(windowH) / float64(contentH)

	if mode == fitInside {
		scale = min(sx, sy)
	} else {
		scale = max(sx, sy)
	}

	outW = int(float64(contentW) * scale)
	outH = int(float64(contentH) * scale)

	if outW > windowW-2 && outW < windowW+2 {
		outW = windowW
	}
	if outH > windowH-2 && outH < windowH+2 {
		outH = windowH
	}

	if outW%2 == 1 {
		outW++
	}
	if outH%2 == 1 {
		outH++
	}

	return scale, outW, outH
}

// evenDown rounds n down to the nearest even value.
func evenDown(n int) int {
	return 2 * (n / 2)
}
