// Package proc runs the external tools that storage-manager delegates to,
// such as tar and rsync. Every invocation is synchronous unless stated
// otherwise, and the exit status is always checked.
package proc

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// maxOutputTail is the amount of tool output that's kept for error messages.
const maxOutputTail = 512

// Runner runs external processes.
type Runner interface {
	// Run runs the command to completion. Its output is captured and
	// logged at debug level.
	Run(name string, args ...string) error

	// RunAttached runs the command to completion with its output connected to
	// the terminal. It's used for commands that report progress to the user.
	RunAttached(name string, args ...string) error

	// Output runs the command to completion and returns its stdout.
	Output(name string, args ...string) ([]byte, error)

	// Start starts the command without waiting for it to exit.
	Start(name string, args ...string) error

	// LookPath reports where the named tool would be launched from.
	LookPath(name string) (string, error)
}

type execRunner struct {
	log    logrus.FieldLogger
	stdout io.Writer
	stderr io.Writer
}

// New returns a Runner that executes commands on the local machine.
func New(log logrus.FieldLogger) Runner {
	return execRunner{log: log, stdout: os.Stdout, stderr: os.Stderr}
}

func (r execRunner) Run(name string, args ...string) error {
	var output bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	r.log.WithFields(logrus.Fields{
		"cmd":    name,
		"args":   args,
		"output": output.String(),
	}).Debug("Ran external tool")
	return toolError(name, args, err, output.String())
}

func (r execRunner) RunAttached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	r.log.WithFields(logrus.Fields{"cmd": name, "args": args}).Debug("Running external tool")
	return toolError(name, args, cmd.Run(), "")
}

func (r execRunner) Output(name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	return out, toolError(name, args, err, stderr.String())
}

func (r execRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return errors.LaunchError{Tool: name, Cause: err}
	}

	// Reap the child once it exits so that it doesn't linger as a zombie
	// for the rest of the run.
	go func() {
		if err := cmd.Wait(); err != nil {
			r.log.WithError(err).WithField("cmd", name).Debug("Background tool exited")
		}
	}()
	return nil
}

func (r execRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.LaunchError{Tool: name, Cause: err}
	}
	return path, nil
}

// toolError converts the error returned by exec into either a ToolError, if
// the tool ran and failed, or a LaunchError, if it never ran.
func toolError(name string, args []string, err error, output string) error {
	if err == nil {
		return nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return errors.ToolError{
			Tool:     name,
			Args:     args,
			ExitCode: exitErr.ExitCode(),
			Output:   tail(output),
		}
	}
	return errors.LaunchError{Tool: name, Cause: err}
}

func tail(output string) string {
	output = strings.TrimSpace(output)
	if len(output) > maxOutputTail {
		output = "..." + output[len(output)-maxOutputTail:]
	}
	return output
}
