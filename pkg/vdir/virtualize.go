package vdir

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Outcome describes what Virtualize did to the home entry.
type Outcome int

const (
	// Linked means that nothing existed at the home path, and a symlink
	// was created.
	Linked Outcome = iota

	// BackedUpAndLinked means that a real entry was moved to the backup
	// path before the symlink was created.
	BackedUpAndLinked

	// AlreadyLinked means that the home path was already a symlink, so
	// nothing was changed.
	AlreadyLinked
)

func (o Outcome) String() string {
	switch o {
	case Linked:
		return "linked"
	case BackedUpAndLinked:
		return "backed up and linked"
	case AlreadyLinked:
		return "already linked"
	default:
		return "unknown"
	}
}

// BackupError is returned when a real home entry couldn't be moved out of
// the way. The home entry is left untouched.
type BackupError struct {
	Cause error
}

func (err BackupError) Error() string {
	return fmt.Sprintf("back up: %s", err.Cause)
}

func (err BackupError) Unwrap() error {
	return err.Cause
}

// LinkError is returned when the symlink couldn't be created.
type LinkError struct {
	Cause error

	// RollbackErr is set if the home entry had been moved to the backup
	// path and couldn't be moved back. In that case, the user's data is only
	// reachable through the backup path.
	RollbackErr error
}

func (err LinkError) Error() string {
	msg := fmt.Sprintf("create symlink: %s", err.Cause)
	if err.RollbackErr != nil {
		msg += fmt.Sprintf(" (restoring the original directory also failed: %s)",
			err.RollbackErr)
	}
	return msg
}

func (err LinkError) Unwrap() error {
	return err.Cause
}

// Mocked out for unit testing.
var symlink = defaultSymlink

func defaultSymlink(target, path string) error {
	linker, ok := fs.(afero.Linker)
	if !ok {
		return errSymlinksUnsupported
	}
	return linker.SymlinkIfPossible(target, path)
}

// Virtualize makes `home` a symlink to `local`. If `home` is a real entry,
// it's moved to `backup` first, replacing any previous backup. If `home` is
// already a symlink, nothing is changed.
func Virtualize(home, local, backup string) (Outcome, error) {
	entry, err := Inspect(home)
	if err != nil {
		return 0, errors.WithContext(err, "inspect home")
	}

	switch entry.State {
	case Symlink:
		if entry.Target != local {
			log.WithFields(log.Fields{
				"path":     home,
				"target":   entry.Target,
				"expected": local,
			}).Warn("Home entry is a symlink to an unexpected location. Leaving it alone.")
		}
		return AlreadyLinked, nil
	case Absent:
		if err := symlink(local, home); err != nil {
			return 0, LinkError{Cause: err}
		}
		return Linked, nil
	}

	if err := Backup(home, backup); err != nil {
		return 0, BackupError{Cause: err}
	}

	if err := symlink(local, home); err != nil {
		linkErr := LinkError{Cause: err}
		if rollbackErr := restore(backup, home); rollbackErr != nil {
			linkErr.RollbackErr = rollbackErr
		}
		return 0, linkErr
	}
	return BackedUpAndLinked, nil
}

// Backup moves the entry at `home` to `backup`, recursively removing
// whatever was at `backup` before. At most one backup exists per folder.
func Backup(home, backup string) error {
	entry, err := Inspect(backup)
	if err != nil {
		return errors.WithContext(err, "inspect previous backup")
	}

	if entry.State != Absent {
		if err := fs.RemoveAll(backup); err != nil {
			return errors.WithContext(err, "remove previous backup")
		}
	}

	if err := fs.Rename(home, backup); err != nil {
		return errors.WithContext(err, "rename")
	}
	return nil
}

// restore undoes a Backup, provided nothing has been created at `home` in the
// meantime.
func restore(backup, home string) error {
	entry, err := Inspect(home)
	if err != nil {
		return errors.WithContext(err, "inspect home")
	}
	if entry.State != Absent {
		return fmt.Errorf("%s was recreated concurrently", home)
	}
	return fs.Rename(backup, home)
}

// LinkIfAbsent creates a symlink at `home` pointing to `local` only if
// nothing exists at `home`. It returns whether the link was created.
func LinkIfAbsent(local, home string) (bool, error) {
	entry, err := Inspect(home)
	if err != nil {
		return false, errors.WithContext(err, "inspect home")
	}
	if entry.State != Absent {
		return false, nil
	}

	if err := symlink(local, home); err != nil {
		return false, LinkError{Cause: err}
	}
	return true, nil
}
