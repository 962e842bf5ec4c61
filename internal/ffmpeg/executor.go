package ffmpeg

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/logging"
	"github.com/montagekit/montage/internal/util"
)

// Runner executes ffmpeg invocations.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExecRunner runs the ffmpeg binary as a blocking subprocess.
type ExecRunner struct {
	BinPath string
	// Timeout bounds a single invocation. Zero disables the bound.
	Timeout time.Duration
	Log     *slog.Logger
}

// NewExecRunner creates a runner for the given ffmpeg binary.
func NewExecRunner(binPath string, timeout time.Duration, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecRunner{
		BinPath: binPath,
		Timeout: timeout,
		Log:     logging.WithComponent(logger, "ffmpeg"),
	}
}

// Run executes one invocation. Success requires a zero exit status and the
// declared output file existing afterwards; anything else is a failure with
// no partial-result guarantee.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	r.Log.Debug("running ffmpeg", slog.String("args", strings.Join(inv.Args, " ")))

	cmd := exec.CommandContext(ctx, r.BinPath, inv.Args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.Canceled {
			return errors.NewCancelledError(ctx.Err())
		}
		// Deadline expiry counts as an invocation failure.
		return errors.WrapExecError(r.BinPath, err, tailOf(stderr.String()))
	}

	if inv.Output != "" && !util.FileExists(inv.Output) {
		return errors.NewCommandNoOutputError(r.BinPath)
	}
	return nil
}

// tailOf trims ffmpeg stderr to its last few lines, which carry the actual
// failure reason.
func tailOf(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 8 {
		lines = lines[len(lines)-8:]
	}
	return strings.Join(lines, "\n")
}
