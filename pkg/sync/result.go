package sync

import (
	"fmt"
	"time"
)

// Operation is the name of a synchronizer operation.
type Operation string

const (
	// InitOp restores and virtualizes a folder.
	InitOp Operation = "init"

	// SaveOp persists a folder to remote storage.
	SaveOp Operation = "save"

	// FetchOp restores a single folder without touching its home entry.
	FetchOp Operation = "fetch"
)

// Status is the final state of an operation on a folder.
type Status int

const (
	// Succeeded means that the operation completed.
	Succeeded Status = iota

	// Skipped means that there was nothing to do.
	Skipped

	// Failed means that the operation stopped early. Reason describes which
	// step failed.
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reason classifies why an operation failed.
type Reason int

const (
	// ReasonNone is used for results that didn't fail.
	ReasonNone Reason = iota

	// ReasonNotFound means that the folder doesn't exist in remote storage.
	ReasonNotFound

	// ReasonTransfer means that packing, unpacking or copying failed.
	ReasonTransfer

	// ReasonBackup means that the real home entry couldn't be moved to the
	// backup path. The home entry was left untouched.
	ReasonBackup

	// ReasonLink means that the home symlink couldn't be created.
	ReasonLink

	// ReasonFilesystem means that an entry had an unexpected type, or that
	// a filesystem operation other than the ones above failed.
	ReasonFilesystem
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotFound:
		return "not found"
	case ReasonTransfer:
		return "transfer failed"
	case ReasonBackup:
		return "backup failed"
	case ReasonLink:
		return "link failed"
	case ReasonFilesystem:
		return "filesystem error"
	default:
		return "unknown"
	}
}

// Result is the outcome of running an operation on a single folder.
type Result struct {
	Folder    string
	Operation Operation
	Status    Status

	// Reason and Err are only set when Status is Failed.
	Reason Reason
	Err    error

	// Steps are short, human readable descriptions of what was done, in
	// order.
	Steps []string

	// Size is the number of bytes persisted or restored, if known.
	Size int64

	Duration time.Duration
}

func (r Result) String() string {
	switch r.Status {
	case Failed:
		return fmt.Sprintf("%s %s: %s: %s", r.Operation, r.Folder, r.Reason, r.Err)
	default:
		return fmt.Sprintf("%s %s: %s", r.Operation, r.Folder, r.Status)
	}
}
