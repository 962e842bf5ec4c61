package compose

// Reporter receives render progress. Implementations must tolerate being
// called from a single render goroutine only.
type Reporter interface {
	// WindowStarted fires when a window begins rendering, including
	// helper renders of child windows.
	WindowStarted(name string, width, height int)

	// Stage fires when a window moves to a new pipeline stage.
	Stage(window, stage string)

	// Invocations reports the running total of ffmpeg invocations for
	// the render.
	Invocations(total int)

	// WindowFinished fires when a window's intermediate (or final
	// output, for the root) has been written.
	WindowFinished(name, output string)
}

// NullReporter discards all progress events.
type NullReporter struct{}

func (NullReporter) WindowStarted(string, int, int) {}
func (NullReporter) Stage(string, string)           {}
func (NullReporter) Invocations(int)                {}
func (NullReporter) WindowFinished(string, string)  {}
