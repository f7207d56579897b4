package mirror

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Native is a Copier that copies files in-process.
type Native struct{}

// Copy walks src and copies every entry into dst, overwriting files that
// already exist.
func (Native) Copy(src, dst string) error {
	type dirMeta struct {
		path    string
		mode    os.FileMode
		modTime time.Time
	}
	var dirs []dirMeta

	err := afero.Walk(fs, src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.WithContext(err, "relative path")
		}
		target := filepath.Join(dst, rel)

		switch {
		case fi.IsDir():
			if err := fs.MkdirAll(target, 0755); err != nil {
				return errors.WithContext(err, fmt.Sprintf("make directory %s", target))
			}
			dirs = append(dirs, dirMeta{target, fi.Mode().Perm(), fi.ModTime()})
		case fi.Mode()&os.ModeSymlink != 0:
			if err := copySymlink(path, target); err != nil {
				return errors.WithContext(err, fmt.Sprintf("copy link %s", path))
			}
		case fi.Mode().IsRegular():
			if err := copyFile(path, target, fi); err != nil {
				return errors.WithContext(err, fmt.Sprintf("copy %s", path))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Apply directory metadata bottom up, after all their children have been
	// written.
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		if err := fs.Chmod(dir.path, dir.mode); err != nil {
			return errors.WithContext(err, "set directory mode")
		}
		if err := fs.Chtimes(dir.path, dir.modTime, dir.modTime); err != nil {
			return errors.WithContext(err, "set directory modtime")
		}
	}
	return nil
}

func copyFile(src, dst string, fileInfo os.FileInfo) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	// Remove whatever is at the destination first, since it may be a
	// symlink that we shouldn't write through.
	if err := fs.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.WithContext(err, "remove old destination")
	}

	dstFile, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileInfo.Mode().Perm())
	if err != nil {
		return errors.WithContext(err, "open destination")
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.WithContext(err, "copy")
	}
	if err := dstFile.Close(); err != nil {
		return errors.WithContext(err, "close destination")
	}

	if err := fs.Chmod(dst, fileInfo.Mode().Perm()); err != nil {
		return errors.WithContext(err, "set file mode")
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := fs.Chtimes(dst, time.Now(), fileInfo.ModTime()); err != nil {
		return errors.WithContext(err, "set file modtime")
	}
	return nil
}

func copySymlink(src, dst string) error {
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return errors.New("filesystem doesn't support symlinks")
	}
	linker, ok := fs.(afero.Linker)
	if !ok {
		return errors.New("filesystem doesn't support symlinks")
	}

	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return errors.WithContext(err, "read link")
	}

	// Like rsync, refuse to replace a non-empty directory with a link.
	if err := fs.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.WithContext(err, "remove old destination")
	}
	return linker.SymlinkIfPossible(target, dst)
}
