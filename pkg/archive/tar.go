package archive

import (
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/proc"
)

// Tar is a Transport that delegates to the system's tar binary.
type Tar struct {
	path   string
	runner proc.Runner
}

// NewTar returns a Tar that runs the tar binary at `path`.
func NewTar(path string, runner proc.Runner) Tar {
	return Tar{path: path, runner: runner}
}

// Pack runs `tar -cf <archive> -C <parent> <name>`.
func (t Tar) Pack(parent, name, archivePath string) error {
	partialPath := archivePath + partialSuffix
	if err := t.runner.Run(t.path, "-cf", partialPath, "-C", parent, name); err != nil {
		discard(partialPath)
		return errors.WithContext(err, "create archive")
	}
	return commit(partialPath, archivePath)
}

// Unpack runs `tar -xf <archive> -C <parent>`.
func (t Tar) Unpack(archivePath, parent string) error {
	if err := t.runner.Run(t.path, "-xf", archivePath, "-C", parent); err != nil {
		return errors.WithContext(err, "extract archive")
	}
	return nil
}

// Check returns an error if the tar binary can't be launched.
func (t Tar) Check() error {
	_, err := t.runner.LookPath(t.path)
	return err
}
