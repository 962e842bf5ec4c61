// Package errors provides structured error types for montage operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindConfiguration represents invalid construction-time input: bad
	// display styles or directions, malformed SAR strings, clip time ranges
	// outside the source duration, incomplete watermarks.
	KindConfiguration ErrorKind = iota
	// KindConsistency represents conflicting sample aspect ratios or pixel
	// formats across a window subtree, detected at render time.
	KindConsistency
	// KindExternalTool represents a non-zero exit or missing expected output
	// from ffmpeg or ffprobe.
	KindExternalTool
	// KindPlacement represents a clip the distributor could not place.
	KindPlacement
	// KindProbeParse represents unparseable ffprobe output.
	KindProbeParse
	// KindIO represents filesystem errors.
	KindIO
	// KindCancelled represents a cancelled render.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "Configuration error"
	case KindConsistency:
		return "Consistency error"
	case KindExternalTool:
		return "External tool failure"
	case KindPlacement:
		return "Placement failure"
	case KindProbeParse:
		return "Probe parse error"
	case KindIO:
		return "I/O error"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandWait means waiting for the command failed.
	CommandWait
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
	// CommandNoOutput means the command exited zero but did not produce its
	// declared output file.
	CommandNoOutput
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandWait:
		return fmt.Sprintf("failed to wait for %s: %v", e.Command, e.Underlying)
	case CommandFailed:
		if e.Stderr != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	case CommandNoOutput:
		return fmt.Sprintf("command %s exited cleanly but produced no output", e.Command)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for montage operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewConfigurationError creates an error for invalid construction input.
func NewConfigurationError(format string, args ...any) *CoreError {
	return &CoreError{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewConsistencyError creates an error for conflicting subtree parameters.
func NewConsistencyError(format string, args ...any) *CoreError {
	return &CoreError{Kind: KindConsistency, Message: fmt.Sprintf(format, args...)}
}

// NewExternalToolError wraps a failed external engine invocation.
func NewExternalToolError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindExternalTool, Message: message, Underlying: underlying}
}

// NewPlacementError creates an error for an unplaceable clip.
func NewPlacementError(message string) *CoreError {
	return &CoreError{Kind: KindPlacement, Message: message}
}

// NewProbeParseError creates an error for unparseable probe output.
func NewProbeParseError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindProbeParse, Message: message, Underlying: underlying}
}

// NewIOError creates a filesystem error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewCancelledError creates an error for a cancelled render.
func NewCancelledError(underlying error) *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "render was cancelled", Underlying: underlying}
}

// NewCommandStartError creates an error for when a command fails to start.
func NewCommandStartError(cmd string, err error) *CoreError {
	return wrapCommandError(&CommandError{Command: cmd, Kind: CommandStart, Underlying: err})
}

// NewCommandFailedError creates an error for when a command returns non-zero
// exit status.
func NewCommandFailedError(cmd string, exitCode int, stderr string) *CoreError {
	return wrapCommandError(&CommandError{Command: cmd, Kind: CommandFailed, ExitCode: exitCode, Stderr: stderr})
}

// NewCommandNoOutputError creates an error for when a command exits zero but
// its declared output file is missing.
func NewCommandNoOutputError(cmd string) *CoreError {
	return wrapCommandError(&CommandError{Command: cmd, Kind: CommandNoOutput})
}

func wrapCommandError(cmdErr *CommandError) *CoreError {
	return &CoreError{Kind: KindExternalTool, Message: cmdErr.Error(), Underlying: cmdErr}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsConfiguration checks if the error is a configuration error.
func IsConfiguration(err error) bool {
	return IsKind(err, KindConfiguration)
}

// IsConsistency checks if the error is a subtree consistency error.
func IsConsistency(err error) bool {
	return IsKind(err, KindConsistency)
}

// IsExternalTool checks if the error is an external tool failure.
func IsExternalTool(err error) bool {
	return IsKind(err, KindExternalTool)
}

// IsPlacement checks if the error is a clip placement failure.
func IsPlacement(err error) bool {
	return IsKind(err, KindPlacement)
}

// WrapExecError wraps an exec.ExitError into a CoreError.
func WrapExecError(cmd string, err error, stderr string) *CoreError {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), stderr)
	}
	return NewCommandStartError(cmd, err)
}
