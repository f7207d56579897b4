package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Native is a Transport that reads and writes tar archives in-process. It
// produces archives that the tar binary can read, and vice versa.
type Native struct{}

// Pack walks parent/name and writes every entry into a new archive.
func (Native) Pack(parent, name, archivePath string) error {
	partialPath := archivePath + partialSuffix
	if err := writeArchive(parent, name, partialPath); err != nil {
		discard(partialPath)
		return errors.WithContext(err, "create archive")
	}
	return commit(partialPath, archivePath)
}

func writeArchive(parent, name, outPath string) error {
	out, err := fs.Create(outPath)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer out.Close()

	tw := tar.NewWriter(out)
	src := filepath.Join(parent, name)
	err = afero.Walk(fs, src, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		var link string
		if fi.Mode()&os.ModeSymlink != 0 {
			if link, err = readlink(file); err != nil {
				return errors.WithContext(err, fmt.Sprintf("read link %s", file))
			}
		}

		header, err := tar.FileInfoHeader(fi, link)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("make header %s", file))
		}

		relPath, err := filepath.Rel(parent, file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("get relative path of %s to %s", file, parent))
		}

		header.Name = filepath.ToSlash(relPath)
		if fi.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return errors.WithContext(err, fmt.Sprintf("write %s header", file))
		}

		// Only write contents if it's a file (i.e. not a directory or link).
		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := fs.Open(file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("open %s", file))
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy %s", file))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return errors.WithContext(err, "finish archive")
	}
	return out.Close()
}

// Unpack extracts every entry of the archive below parent. Entries that
// would land outside of parent are rejected.
func (Native) Unpack(archivePath, parent string) error {
	in, err := fs.Open(archivePath)
	if err != nil {
		return errors.WithContext(err, "open archive")
	}
	defer in.Close()

	// Directory metadata is applied last, since creating their children
	// changes their modification time and may require write permission.
	type dirMeta struct {
		path    string
		mode    os.FileMode
		modTime time.Time
	}
	var dirs []dirMeta

	tr := tar.NewReader(in)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.WithContext(err, "read archive")
		}

		target, err := extractPath(parent, header.Name)
		if err != nil {
			return err
		}

		// A symlink extracted earlier must never be written through.
		// Directories are checked themselves since their metadata is set
		// later, and other entries replace whatever is at their path.
		checked := filepath.Dir(target)
		if header.Typeflag == tar.TypeDir {
			checked = target
		}
		if err := checkNoSymlinks(parent, checked); err != nil {
			return errors.WithContext(err, fmt.Sprintf("extract %s", header.Name))
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0755); err != nil {
				return errors.WithContext(err, fmt.Sprintf("make directory %s", target))
			}
			dirs = append(dirs, dirMeta{target, header.FileInfo().Mode().Perm(), header.ModTime})
		case tar.TypeReg:
			if err := extractFile(tr, header, target); err != nil {
				return errors.WithContext(err, fmt.Sprintf("extract %s", header.Name))
			}
		case tar.TypeSymlink:
			if err := extractSymlink(header.Linkname, target); err != nil {
				return errors.WithContext(err, fmt.Sprintf("extract %s", header.Name))
			}
		default:
			// Device files, FIFOs and hard links never appear in the home
			// folders that are archived.
			continue
		}
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]

		// A later entry may have replaced the directory with a symlink.
		if err := checkNoSymlinks(parent, dir.path); err != nil {
			return err
		}
		if err := fs.Chmod(dir.path, dir.mode); err != nil {
			return errors.WithContext(err, fmt.Sprintf("set mode of %s", dir.path))
		}
		if err := fs.Chtimes(dir.path, dir.modTime, dir.modTime); err != nil {
			return errors.WithContext(err, fmt.Sprintf("set modtime of %s", dir.path))
		}
	}
	return nil
}

// extractPath returns where the archive entry `name` should be written.
func extractPath(parent, name string) (string, error) {
	target := filepath.Join(parent, filepath.FromSlash(name))
	rel, err := filepath.Rel(parent, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes %s", name, parent)
	}
	return target, nil
}

// checkNoSymlinks returns an error if any existing entry below `parent`, up
// to and including `path`, is a symlink.
func checkNoSymlinks(parent, path string) error {
	lstater, ok := fs.(afero.Lstater)
	if !ok {
		return nil
	}

	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}

	current := parent
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		fi, _, err := lstater.LstatIfPossible(current)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%s is a symlink", current)
		}
	}
	return nil
}

func extractFile(r io.Reader, header *tar.Header, target string) error {
	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.WithContext(err, "make parent")
	}

	// Opening an existing symlink would write to its target.
	if err := removeSymlink(target); err != nil {
		return errors.WithContext(err, "remove existing symlink")
	}

	mode := header.FileInfo().Mode().Perm()
	f, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.WithContext(err, "copy")
	}
	if err := f.Close(); err != nil {
		return errors.WithContext(err, "close")
	}

	// OpenFile doesn't change the mode of a file that already existed.
	if err := fs.Chmod(target, mode); err != nil {
		return errors.WithContext(err, "set file mode")
	}
	return fs.Chtimes(target, header.ModTime, header.ModTime)
}

func extractSymlink(linkname, target string) error {
	linker, ok := fs.(afero.Linker)
	if !ok {
		return errors.New("filesystem doesn't support symlinks")
	}

	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.WithContext(err, "make parent")
	}
	if err := fs.Remove(target); err != nil && !os.IsNotExist(err) {
		return errors.WithContext(err, "remove existing entry")
	}
	return linker.SymlinkIfPossible(linkname, target)
}

func removeSymlink(path string) error {
	lstater, ok := fs.(afero.Lstater)
	if !ok {
		return nil
	}

	fi, _, err := lstater.LstatIfPossible(path)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return err
	case fi.Mode()&os.ModeSymlink == 0:
		return nil
	}
	return fs.Remove(path)
}

func readlink(path string) (string, error) {
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return "", errors.New("filesystem doesn't support symlinks")
	}
	return reader.ReadlinkIfPossible(path)
}
