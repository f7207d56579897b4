package config

import (
	"fmt"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/errors"
)

const (
	// StorageConfigPath is the default path to the storage-manager config.
	StorageConfigPath = "~/.storage-manager.yaml"

	// InitialStorageConfigVersion is the first version of the config. Config
	// files that do not specify a version default to this version.
	InitialStorageConfigVersion = "v1alpha1"

	// SupportedStorageConfigVersion is the config version understood by this
	// binary.
	SupportedStorageConfigVersion = "v1alpha1"
)

// Mode selects how folders are persisted to remote storage.
type Mode string

const (
	// ArchiveMode stores each folder as a single tar archive.
	ArchiveMode Mode = "archive"

	// MirrorMode stores each folder as a mirrored directory tree.
	MirrorMode Mode = "mirror"
)

// The implementations available for packing archives and mirroring
// directories.
const (
	ArchiverTar    = "tar"
	ArchiverNative = "native"
	CopierRsync    = "rsync"
	CopierNative   = "native"
)

// DefaultFolders are the folders managed when the config doesn't list any.
var DefaultFolders = []string{".rustup", ".vscode", ".cargo", "Downloads", "Documents"}

// Storage is the user's storage-manager configuration.
type Storage struct {
	Version string `json:"version,omitempty"`

	// Folders are the names of the managed folders, relative to the home
	// directory. They are processed in this order.
	Folders []string `json:"folders"`

	// LocalBase is the root of the fast scratch storage. Folders live in
	// `<LocalBase>/<user>/local_data`.
	LocalBase string `json:"localBase"`

	// RemoteBase is the root of the durable network storage. Folders live in
	// `<RemoteBase>/<user>/my_archives` or `<RemoteBase>/<user>/my_data`
	// depending on the Mode.
	RemoteBase string `json:"remoteBase"`

	Mode     Mode   `json:"mode"`
	Archiver string `json:"archiver,omitempty"`
	Copier   string `json:"copier,omitempty"`

	// TarPath and RsyncPath override the external binaries that are used.
	TarPath   string `json:"tarPath,omitempty"`
	RsyncPath string `json:"rsyncPath,omitempty"`

	// MetricsFile, if set, is where a Prometheus textfile describing the last
	// run is written.
	MetricsFile string `json:"metricsFile,omitempty"`
}

func (s Storage) getVersion() string {
	return s.Version
}

// DefaultStorage returns the configuration used when the user hasn't written
// a config file.
func DefaultStorage() Storage {
	return Storage{
		Version:    InitialStorageConfigVersion,
		Folders:    append([]string{}, DefaultFolders...),
		LocalBase:  "/goinfre",
		RemoteBase: "/sgoinfre/goinfre/Perso",
		Mode:       ArchiveMode,
		Archiver:   ArchiverTar,
		Copier:     CopierRsync,
		TarPath:    "tar",
		RsyncPath:  "rsync",
	}
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseStorage parses the config stored in the default path. If there is no
// config file, the defaults are returned.
func ParseStorage() (Storage, error) {
	path, err := GetStorageConfigPath()
	if err != nil {
		return Storage{}, errors.WithContext(err, "expand config path")
	}

	config := DefaultStorage()
	if err := decodeFile(path, &config, SupportedStorageConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); !ok {
			return Storage{}, errors.WithContext(err, "parse")
		}
		config = DefaultStorage()
	}
	config.fillDefaults()

	for _, path := range []*string{&config.LocalBase, &config.RemoteBase, &config.MetricsFile} {
		if *path, err = homedirExpand(*path); err != nil {
			return Storage{}, errors.WithContext(err, "expand path")
		}
	}

	if err := config.Validate(); err != nil {
		return Storage{}, errors.NewFriendlyError("The configuration in %q "+
			"is invalid:\n%s", path, err)
	}
	return config, nil
}

// fillDefaults sets the optional fields that were left empty.
func (s *Storage) fillDefaults() {
	defaults := DefaultStorage()
	if s.Mode == "" {
		s.Mode = defaults.Mode
	}
	if s.Archiver == "" {
		s.Archiver = defaults.Archiver
	}
	if s.Copier == "" {
		s.Copier = defaults.Copier
	}
	if s.TarPath == "" {
		s.TarPath = defaults.TarPath
	}
	if s.RsyncPath == "" {
		s.RsyncPath = defaults.RsyncPath
	}
}

// Validate checks that the config can be used to compute folder layouts.
func (s Storage) Validate() error {
	if len(s.Folders) == 0 {
		return errors.MissingFieldError{Field: "folders"}
	}
	if s.LocalBase == "" {
		return errors.MissingFieldError{Field: "localBase"}
	}
	if s.RemoteBase == "" {
		return errors.MissingFieldError{Field: "remoteBase"}
	}

	switch s.Mode {
	case ArchiveMode, MirrorMode:
	default:
		return fmt.Errorf("unknown mode %q (expected %q or %q)",
			s.Mode, ArchiveMode, MirrorMode)
	}

	switch s.Archiver {
	case ArchiverTar, ArchiverNative:
	default:
		return fmt.Errorf("unknown archiver %q", s.Archiver)
	}

	switch s.Copier {
	case CopierRsync, CopierNative:
	default:
		return fmt.Errorf("unknown copier %q", s.Copier)
	}

	seen := map[string]struct{}{}
	for _, name := range s.Folders {
		if err := ValidateFolderName(name); err != nil {
			return err
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("folder %q is listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// WriteStorage writes the given config to disk.
func WriteStorage(cfg Storage) error {
	cfg.Version = SupportedStorageConfigVersion
	path, err := GetStorageConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetStorageConfigPath returns the expanded path to the config file.
func GetStorageConfigPath() (string, error) {
	return homedirExpand(StorageConfigPath)
}
