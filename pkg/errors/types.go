package errors

import (
	"fmt"
	"strings"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// InvalidFolderName is returned when a managed folder name can't be safely
// joined onto the storage roots.
type InvalidFolderName struct {
	Name   string
	Reason string
}

func (err InvalidFolderName) Error() string {
	return fmt.Sprintf("invalid folder name %q: %s", err.Name, err.Reason)
}

// ToolError represents an external tool that ran but exited unsuccessfully.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int

	// Output is the tail of the combined stdout and stderr of the tool.
	Output string
}

func (err ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: exit status %d", err.Tool,
		strings.Join(err.Args, " "), err.ExitCode)
	if err.Output != "" {
		msg += ": " + err.Output
	}
	return msg
}

// LaunchError represents an external tool that couldn't be started at all,
// usually because it isn't installed.
type LaunchError struct {
	Tool  string
	Cause error
}

func (err LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %s", err.Tool, err.Cause)
}

func (err LaunchError) Unwrap() error {
	return err.Cause
}
