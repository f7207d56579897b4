// Package vdir virtualizes home directory entries by replacing them with
// symlinks into local storage.
//
// Every decision is based on link metadata (lstat), never on the link's
// target: a following stat would report a symlink to a directory as a
// directory, which is exactly the distinction that decides whether an entry
// must be backed up or is already virtualized. Entries are inspected
// immediately before each mutation since local storage may be wiped by the
// system at any time.
package vdir

import (
	"os"

	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// State is the type of a filesystem entry.
type State int

const (
	// Absent means that nothing exists at the path.
	Absent State = iota

	// Directory is a real (non-symlink) directory.
	Directory

	// File is a real entry that isn't a directory.
	File

	// Symlink is a symbolic link, whatever it points at.
	Symlink
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Directory:
		return "directory"
	case File:
		return "file"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// IsReal returns whether the entry holds data of its own, i.e. it exists and
// isn't a symlink.
func (s State) IsReal() bool {
	return s == Directory || s == File
}

// Entry describes what was found at a path.
type Entry struct {
	Path  string
	State State

	// Target is the destination of the link. It's only set for symlinks.
	Target string
}

// Inspect describes the entry at `path` without following symlinks.
func Inspect(path string) (Entry, error) {
	fi, err := lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{Path: path, State: Absent}, nil
		}
		return Entry{}, errors.WithContext(err, "lstat")
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := readlink(path)
		if err != nil {
			return Entry{}, errors.WithContext(err, "read link")
		}
		return Entry{Path: path, State: Symlink, Target: target}, nil
	case fi.IsDir():
		return Entry{Path: path, State: Directory}, nil
	default:
		return Entry{Path: path, State: File}, nil
	}
}

func lstat(path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(path)
		return fi, err
	}
	return fs.Stat(path)
}

func readlink(path string) (string, error) {
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return "", errSymlinksUnsupported
	}
	return reader.ReadlinkIfPossible(path)
}

var errSymlinksUnsupported = errors.New("filesystem doesn't support symlinks")
