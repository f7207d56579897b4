package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Mocked out for unit testing.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// HandleFatalError prints the error and exits. Friendly errors are printed
// as is, without the context that was added while they were returned.
func HandleFatalError(err error) {
	if msg, ok := errors.GetFriendlyMessage(err); ok {
		fmt.Fprintln(stderr, msg)
		log.WithError(err).Debug("Fatal error")
	} else {
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	exit(1)
}

// HandlePanic prints a message asking the user to report the crash, and then
// re-panics so that the stack trace is printed.
func HandlePanic() {
	if r := recover(); r != nil {
		fmt.Fprintf(stderr, "storage-manager crashed unexpectedly: %v\n"+
			"Your folders may be half processed. Run the same command again "+
			"once the problem is fixed.\n", r)
		log.Debugf("Stack trace:\n%s", debug.Stack())
		panic(r)
	}
}
