package task

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/buger/goterm"
	"github.com/dustin/go-humanize"

	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/sync"
)

// Report contains the results of running an operation on every folder.
type Report struct {
	Operation sync.Operation
	Results   []sync.Result
	Duration  time.Duration
}

// Failed returns the results of the folders that failed.
func (r Report) Failed() (failed []sync.Result) {
	for _, res := range r.Results {
		if res.Status == sync.Failed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err returns an error describing the folders that failed, or nil if all of
// them succeeded or were skipped.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}

	var names []string
	for _, res := range failed {
		names = append(names, res.Folder)
	}
	return errors.NewFriendlyError("Failed to %s %d of %d folders: %s",
		r.Operation, len(failed), len(r.Results), strings.Join(names, ", "))
}

// Print writes a status line for each folder to `w`, followed by the steps
// that were taken.
func (r Report) Print(w io.Writer) {
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s %s", statusLabel(res.Status), res.Folder)

		var details []string
		if res.Size > 0 {
			details = append(details, humanize.Bytes(uint64(res.Size)))
		}
		if res.Duration > 0 {
			details = append(details, res.Duration.Round(time.Millisecond).String())
		}
		if len(details) > 0 {
			fmt.Fprintf(w, " (%s)", strings.Join(details, ", "))
		}
		fmt.Fprintln(w)

		for _, step := range res.Steps {
			fmt.Fprintf(w, "    %s\n", step)
		}
		if res.Status == sync.Failed {
			fmt.Fprintf(w, "    %s: %s\n", res.Reason, errorMessage(res.Err))
		}
	}
}

func statusLabel(status sync.Status) string {
	var label string
	var color int
	switch status {
	case sync.Succeeded:
		label, color = "[  OK  ]", goterm.GREEN
	case sync.Skipped:
		label, color = "[ SKIP ]", goterm.YELLOW
	default:
		label, color = "[FAILED]", goterm.RED
	}
	return goterm.Color(label, color)
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	if msg, ok := errors.GetFriendlyMessage(err); ok {
		return msg
	}
	return err.Error()
}
