// Package mirror recursively copies the contents of one directory into
// another, preserving file attributes. Files that exist in the destination
// but not in the source are left alone.
package mirror

import "github.com/spf13/afero"

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Copier copies directory trees.
type Copier interface {
	// Copy copies the contents of src into dst. dst must already exist.
	Copy(src, dst string) error
}
