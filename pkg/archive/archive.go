// Package archive packs a folder into a single archive file on remote
// storage, and unpacks it again. Archives are plain, uncompressed tar files
// whose entries are rooted at the folder's name, so that unpacking into the
// local root recreates the folder in place.
package archive

import (
	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// partialSuffix is appended to the archive path while it's being written.
// The archive is only renamed into place once it's complete, so a failed
// pack never clobbers the last good archive.
const partialSuffix = ".partial"

// Transport moves folders to and from archive files.
type Transport interface {
	// Pack creates an archive at archivePath of the directory parent/name.
	// Entries in the archive are relative to parent.
	Pack(parent, name, archivePath string) error

	// Unpack extracts the archive at archivePath into parent.
	Unpack(archivePath, parent string) error
}

// commit moves a completed archive into its final location.
func commit(partialPath, archivePath string) error {
	if err := fs.Rename(partialPath, archivePath); err != nil {
		discard(partialPath)
		return errors.WithContext(err, "move archive into place")
	}
	return nil
}

// discard removes an incomplete archive. Failures are ignored since the
// partial file is overwritten by the next pack anyway.
func discard(partialPath string) {
	_ = fs.Remove(partialPath)
}
