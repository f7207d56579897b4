package sync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/archive"
	"github.com/sidkik/storage-manager/pkg/config"
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/mirror"
	"github.com/sidkik/storage-manager/pkg/vdir"
)

// Mocked out for unit testing.
var (
	fs           = afero.NewOsFs()
	virtualize   = vdir.Virtualize
	linkIfAbsent = vdir.LinkIfAbsent
)

// Synchronizer runs operations on managed folders.
type Synchronizer struct {
	mode      config.Mode
	transport archive.Transport
	copier    mirror.Copier
	clock     clockwork.Clock
	log       logrus.FieldLogger
}

// New creates a Synchronizer. The transport is only used in archive mode.
// The copier is used in both modes since seeding a folder from its home
// directory is always a mirror copy, but it may be nil if only archive mode
// saves are run.
func New(mode config.Mode, transport archive.Transport, copier mirror.Copier,
	log logrus.FieldLogger) *Synchronizer {
	return &Synchronizer{
		mode:      mode,
		transport: transport,
		copier:    copier,
		clock:     clockwork.NewRealClock(),
		log:       log,
	}
}

// Init makes sure that the folder's local path is populated, and that its
// home path is a symlink to it.
func (s *Synchronizer) Init(folder config.Folder) Result {
	op := s.begin(InitOp, folder)

	local, err := vdir.Inspect(folder.LocalPath)
	if err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "inspect local path"))
	}

	switch local.State {
	case vdir.Directory:
		op.step("local copy already present")
	case vdir.Absent:
		if result, ok := s.populate(op, folder); !ok {
			return result
		}
	default:
		return op.fail(ReasonFilesystem,
			fmt.Errorf("local path %s is a %s, not a directory", folder.LocalPath, local.State))
	}

	outcome, err := virtualize(folder.HomePath, folder.LocalPath, folder.BackupPath)
	if err != nil {
		switch err.(type) {
		case vdir.BackupError:
			return op.fail(ReasonBackup, err)
		case vdir.LinkError:
			return op.fail(ReasonLink, err)
		default:
			return op.fail(ReasonFilesystem, err)
		}
	}

	switch outcome {
	case vdir.BackedUpAndLinked:
		op.step("moved existing %s to %s", folder.HomePath, folder.BackupPath)
		op.step("linked %s", folder.HomePath)
	case vdir.Linked:
		op.step("linked %s", folder.HomePath)
	case vdir.AlreadyLinked:
		op.step("already linked")
	}
	return op.succeed()
}

// populate creates the local path, either from remote storage or by seeding
// it from the home path. If it returns false, the returned result should be
// reported and Init should stop.
func (s *Synchronizer) populate(op *operation, folder config.Folder) (Result, bool) {
	available, err := s.remoteAvailable(folder)
	if err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "check remote storage")), false
	}

	if available {
		if err := s.restore(op, folder); err != nil {
			s.cleanupLocal(op, folder)
			return op.fail(ReasonTransfer, err), false
		}
		return Result{}, true
	}

	home, err := vdir.Inspect(folder.HomePath)
	if err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "inspect home path")), false
	}

	if err := fs.MkdirAll(folder.LocalPath, 0755); err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "create local path")), false
	}

	if home.State != vdir.Directory {
		op.step("nothing in remote storage, created empty local copy")
		return Result{}, true
	}

	if err := s.copier.Copy(folder.HomePath, folder.LocalPath); err != nil {
		s.cleanupLocal(op, folder)
		return op.fail(ReasonTransfer, errors.WithContext(err, "seed from home")), false
	}
	op.step("nothing in remote storage, seeded local copy from %s", folder.HomePath)
	return Result{}, true
}

// restore materializes the local path from remote storage. In archive mode,
// a mirrored directory is used if there's no archive for the folder. Only
// Fetch gets that far, since Init seeds from the home path instead.
func (s *Synchronizer) restore(op *operation, folder config.Folder) error {
	if s.mode == config.ArchiveMode {
		archived, err := archiveAvailable(folder)
		if err != nil {
			return errors.WithContext(err, "check archive")
		}

		if archived {
			return s.unpack(op, folder)
		}
	}
	return s.copyFromRemote(op, folder)
}

func (s *Synchronizer) unpack(op *operation, folder config.Folder) error {
	if err := fs.MkdirAll(filepath.Dir(folder.LocalPath), 0755); err != nil {
		return errors.WithContext(err, "create local root")
	}

	if err := s.transport.Unpack(folder.RemoteArchivePath, filepath.Dir(folder.LocalPath)); err != nil {
		return errors.WithContext(err, "unpack")
	}

	// The archive could have been created from a different folder.
	local, err := vdir.Inspect(folder.LocalPath)
	if err != nil {
		return errors.WithContext(err, "inspect local path")
	}
	if local.State != vdir.Directory {
		return fmt.Errorf("archive %s doesn't contain %s", folder.RemoteArchivePath, folder.Name)
	}

	if fi, err := fs.Stat(folder.RemoteArchivePath); err == nil {
		op.result.Size = fi.Size()
	}
	op.step("unpacked %s", folder.RemoteArchivePath)
	return nil
}

func (s *Synchronizer) copyFromRemote(op *operation, folder config.Folder) error {
	if err := fs.MkdirAll(folder.LocalPath, 0755); err != nil {
		return errors.WithContext(err, "create local path")
	}

	if err := s.copier.Copy(folder.RemotePath, folder.LocalPath); err != nil {
		return errors.WithContext(err, "copy from remote")
	}

	if size, err := treeSize(folder.LocalPath); err == nil {
		op.result.Size = size
	}
	op.step("copied %s", folder.RemotePath)
	return nil
}

// cleanupLocal removes a partially restored local path so that the next Init
// tries the restore again instead of linking incomplete data. It's only
// called when the local path didn't exist before the operation.
func (s *Synchronizer) cleanupLocal(op *operation, folder config.Folder) {
	if err := fs.RemoveAll(folder.LocalPath); err != nil {
		op.log.WithError(err).Warn("Failed to clean up partially restored folder")
	}
}

// Save persists the folder's local path to remote storage.
func (s *Synchronizer) Save(folder config.Folder) Result {
	op := s.begin(SaveOp, folder)

	local, err := vdir.Inspect(folder.LocalPath)
	if err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "inspect local path"))
	}

	switch local.State {
	case vdir.Absent:
		return op.skip("no local copy")
	case vdir.Directory:
	default:
		return op.fail(ReasonFilesystem,
			fmt.Errorf("local path %s is a %s, not a directory", folder.LocalPath, local.State))
	}

	if s.mode == config.MirrorMode {
		if err := fs.MkdirAll(folder.RemotePath, 0755); err != nil {
			return op.fail(ReasonFilesystem, errors.WithContext(err, "create remote path"))
		}

		if err := s.copier.Copy(folder.LocalPath, folder.RemotePath); err != nil {
			return op.fail(ReasonTransfer, errors.WithContext(err, "copy to remote"))
		}

		if size, err := treeSize(folder.LocalPath); err == nil {
			op.result.Size = size
		}
		op.step("copied to %s", folder.RemotePath)
		return op.succeed()
	}

	if err := fs.MkdirAll(filepath.Dir(folder.RemoteArchivePath), 0755); err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "create remote root"))
	}

	err = s.transport.Pack(filepath.Dir(folder.LocalPath), folder.Name, folder.RemoteArchivePath)
	if err != nil {
		return op.fail(ReasonTransfer, errors.WithContext(err, "pack"))
	}

	if fi, err := fs.Stat(folder.RemoteArchivePath); err == nil {
		op.result.Size = fi.Size()
	}
	op.step("packed to %s", folder.RemoteArchivePath)
	return op.succeed()
}

// Fetch restores a single folder from remote storage, and links it into the
// home directory if nothing is there yet. Existing home entries are never
// modified.
func (s *Synchronizer) Fetch(folder config.Folder) Result {
	op := s.begin(FetchOp, folder)

	available, err := s.fetchAvailable(folder)
	if err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "check remote storage"))
	}
	if !available {
		return op.fail(ReasonNotFound,
			errors.NewFriendlyError("%s doesn't exist in remote storage", folder.Name))
	}

	local, err := vdir.Inspect(folder.LocalPath)
	if err != nil {
		return op.fail(ReasonFilesystem, errors.WithContext(err, "inspect local path"))
	}
	if local.State != vdir.Absent && local.State != vdir.Directory {
		return op.fail(ReasonFilesystem,
			fmt.Errorf("local path %s is a %s, not a directory", folder.LocalPath, local.State))
	}

	if err := s.restore(op, folder); err != nil {
		return op.fail(ReasonTransfer, err)
	}

	created, err := linkIfAbsent(folder.LocalPath, folder.HomePath)
	if err != nil {
		return op.fail(ReasonLink, err)
	}

	if created {
		op.step("linked %s", folder.HomePath)
	} else {
		op.step("%s already exists, left it alone", folder.HomePath)
	}
	return op.succeed()
}

// remoteAvailable returns whether Init should restore the folder from remote
// storage rather than seed it. In archive mode only the archive counts, so a
// stray directory next to the archives never replaces the home content.
func (s *Synchronizer) remoteAvailable(folder config.Folder) (bool, error) {
	if s.mode == config.ArchiveMode {
		return archiveAvailable(folder)
	}
	return mirrorAvailable(folder)
}

// fetchAvailable is like remoteAvailable, but in archive mode it also accepts
// a mirrored directory.
func (s *Synchronizer) fetchAvailable(folder config.Folder) (bool, error) {
	available, err := s.remoteAvailable(folder)
	if err != nil || available || s.mode != config.ArchiveMode {
		return available, err
	}
	return mirrorAvailable(folder)
}

// archiveAvailable returns whether the folder's archive exists. Like
// mirrorAvailable, it follows links, since remote storage may itself be a
// link to the actual storage.
func archiveAvailable(folder config.Folder) (bool, error) {
	fi, err := fs.Stat(folder.RemoteArchivePath)
	switch {
	case os.IsNotExist(err):
		return false, nil
	case err != nil:
		return false, err
	default:
		return fi.Mode().IsRegular(), nil
	}
}

func mirrorAvailable(folder config.Folder) (bool, error) {
	fi, err := fs.Stat(folder.RemotePath)
	switch {
	case os.IsNotExist(err):
		return false, nil
	case err != nil:
		return false, err
	default:
		return fi.IsDir(), nil
	}
}

// treeSize returns the total size of the regular files under `root`.
func treeSize(root string) (int64, error) {
	var size int64
	err := afero.Walk(fs, root, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() {
			size += fi.Size()
		}
		return nil
	})
	return size, err
}
