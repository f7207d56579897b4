package config

import (
	"path/filepath"
	"strings"

	"github.com/sidkik/storage-manager/pkg/errors"
)

const (
	localDataDir     = "local_data"
	remoteArchiveDir = "my_archives"
	remoteMirrorDir  = "my_data"

	archiveExtension = ".tar"
	backupSuffix     = "_OLD"
)

// Layout contains the storage roots for the current user. It's computed
// fresh on every invocation and never persisted.
type Layout struct {
	User string
	Mode Mode

	HomeRoot   string
	LocalRoot  string
	RemoteRoot string
}

// Folder contains all the paths derived from a managed folder's name.
type Folder struct {
	Name string

	// HomePath is the user-visible location. After a successful init, it's a
	// symlink to LocalPath.
	HomePath string

	// LocalPath is where the folder's contents are materialized on fast
	// storage.
	LocalPath string

	// RemoteArchivePath is the durable archive form of the folder.
	RemoteArchivePath string

	// RemotePath is the durable mirrored form of the folder.
	RemotePath string

	// BackupPath holds any real directory that was displaced from HomePath.
	BackupPath string
}

// NewLayout computes the storage roots for `user`.
func NewLayout(cfg Storage, user, home string) Layout {
	remoteDir := remoteArchiveDir
	if cfg.Mode == MirrorMode {
		remoteDir = remoteMirrorDir
	}

	return Layout{
		User:       user,
		Mode:       cfg.Mode,
		HomeRoot:   home,
		LocalRoot:  filepath.Join(cfg.LocalBase, user, localDataDir),
		RemoteRoot: filepath.Join(cfg.RemoteBase, user, remoteDir),
	}
}

// Folder returns the derived paths for the folder called `name`.
func (l Layout) Folder(name string) (Folder, error) {
	if err := ValidateFolderName(name); err != nil {
		return Folder{}, err
	}

	return Folder{
		Name:              name,
		HomePath:          filepath.Join(l.HomeRoot, name),
		LocalPath:         filepath.Join(l.LocalRoot, name),
		RemoteArchivePath: filepath.Join(l.RemoteRoot, name+archiveExtension),
		RemotePath:        filepath.Join(l.RemoteRoot, name),
		BackupPath:        filepath.Join(l.HomeRoot, name+backupSuffix),
	}, nil
}

// Folders returns the derived paths for each name, in order.
func (l Layout) Folders(names []string) ([]Folder, error) {
	var folders []Folder
	for _, name := range names {
		f, err := l.Folder(name)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, nil
}

// EnsureRoots creates the local and remote roots if they don't exist yet.
func (l Layout) EnsureRoots() error {
	for _, root := range []string{l.LocalRoot, l.RemoteRoot} {
		if err := fs.MkdirAll(root, 0755); err != nil {
			return errors.WithContext(err, "create "+root)
		}
	}
	return nil
}

// ValidateFolderName checks that `name` refers to a single entry directly
// inside the storage roots.
func ValidateFolderName(name string) error {
	switch {
	case name == "":
		return errors.InvalidFolderName{Name: name, Reason: "name is empty"}
	case name == "." || name == "..":
		return errors.InvalidFolderName{Name: name, Reason: "name refers to a parent directory"}
	case strings.ContainsAny(name, `/\`):
		return errors.InvalidFolderName{Name: name, Reason: "name contains a path separator"}
	}
	return nil
}
