package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// terminalReporter prints human-friendly render progress: a heading per
// window, the pipeline stage as it advances, and a spinner ticking once per
// ffmpeg invocation.
type terminalReporter struct {
	mu      sync.Mutex
	spinner *progressbar.ProgressBar

	cyan  *color.Color
	green *color.Color
	bold  *color.Color
}

func newTerminalReporter() *terminalReporter {
	return &terminalReporter{
		cyan:  color.New(color.FgCyan, color.Bold),
		green: color.New(color.FgGreen),
		bold:  color.New(color.Bold),
	}
}

func (r *terminalReporter) finishSpinner() {
	if r.spinner != nil {
		_ = r.spinner.Finish()
		r.spinner = nil
		fmt.Println()
	}
}

func (r *terminalReporter) WindowStarted(name string, width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishSpinner()
	if name == "" {
		name = "window"
	}
	fmt.Println()
	_, _ = r.cyan.Printf("RENDER %s", name)
	fmt.Printf(" (%dx%d)\n", width, height)
}

func (r *terminalReporter) Stage(window, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishSpinner()
	fmt.Printf("  %s\n", r.bold.Sprint(stage))
}

func (r *terminalReporter) Invocations(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner == nil {
		r.spinner = progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription("ffmpeg"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
		)
	}
	_ = r.spinner.Add(1)
}

func (r *terminalReporter) WindowFinished(name, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishSpinner()
	if name == "" {
		name = "window"
	}
	_, _ = r.green.Printf("  %s -> %s\n", name, output)
}
