package config

import (
	"fmt"
	"testing"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/storage-manager/pkg/errors"
)

func mockConfigPath(t *testing.T, path string) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(p string) (string, error) {
		if p == StorageConfigPath {
			return path, nil
		}
		return p, nil
	}
	t.Cleanup(func() {
		fs = afero.NewOsFs()
		homedirExpand = homedir.Expand
	})
}

func TestParseStorage(t *testing.T) {
	out := ".storage-manager.yaml"

	custom := Storage{
		Version:    SupportedStorageConfigVersion,
		Folders:    []string{"Projects", ".cache"},
		LocalBase:  "/scratch",
		RemoteBase: "/nfs",
		Mode:       MirrorMode,
	}
	customBytes, err := yaml.Marshal(custom)
	require.NoError(t, err)

	expCustom := custom
	expCustom.Archiver = ArchiverTar
	expCustom.Copier = CopierRsync
	expCustom.TarPath = "tar"
	expCustom.RsyncPath = "rsync"

	tests := []struct {
		name      string
		input     []byte
		expConfig Storage
		expError  error
	}{
		{
			name:      "Custom config",
			input:     customBytes,
			expConfig: expCustom,
		},
		{
			name:      "Missing version defaults to the initial version",
			input:     []byte("folders: [Projects]\n"),
			expConfig: withFolders(DefaultStorage(), "Projects"),
		},
		{
			name:  "Incompatible version",
			input: []byte("version: v2\n"),
			expError: errors.WithContext(versionMismatchError{
				path:      out,
				supported: SupportedStorageConfigVersion,
				found:     "v2",
			}, "parse"),
		},
		{
			name: "Extra fields",
			input: []byte(fmt.Sprintf(
				"version: %s\nextra: fields", SupportedStorageConfigVersion)),
			expError: errors.WithContext(
				errors.NewFriendlyError(invalidYAMLTemplate, out,
					errors.New("error unmarshaling JSON: while decoding JSON: "+
						`json: unknown field "extra"`)),
				"parse"),
		},
		{
			name:  "Invalid folder",
			input: []byte("folders: [../etc]\n"),
			expError: errors.NewFriendlyError("The configuration in %q "+
				"is invalid:\n%s", out, errors.InvalidFolderName{
				Name: "../etc", Reason: "name contains a path separator"}),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mockConfigPath(t, out)
			require.NoError(t, afero.WriteFile(fs, out, test.input, 0644))

			cfg, err := ParseStorage()
			if test.expError != nil {
				assert.Equal(t, test.expError, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expConfig, cfg)
		})
	}
}

func TestParseStorageMissingFile(t *testing.T) {
	mockConfigPath(t, ".storage-manager.yaml")

	cfg, err := ParseStorage()
	assert.NoError(t, err)
	assert.Equal(t, DefaultStorage(), cfg)
}

func TestParseWrittenStorage(t *testing.T) {
	mockConfigPath(t, ".storage-manager.yaml")

	cfg := DefaultStorage()
	cfg.Folders = []string{"Downloads"}
	cfg.Mode = MirrorMode
	cfg.MetricsFile = "/var/lib/node_exporter/storage.prom"
	assert.NoError(t, WriteStorage(cfg))

	parsed, err := ParseStorage()
	assert.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Storage)
		expError string
	}{
		{
			name:   "Defaults",
			mutate: func(*Storage) {},
		},
		{
			name:     "No folders",
			mutate:   func(s *Storage) { s.Folders = nil },
			expError: "missing required field: folders",
		},
		{
			name:     "Duplicate folder",
			mutate:   func(s *Storage) { s.Folders = []string{"a", "b", "a"} },
			expError: `folder "a" is listed twice`,
		},
		{
			name:     "Unknown mode",
			mutate:   func(s *Storage) { s.Mode = "rsync" },
			expError: `unknown mode "rsync" (expected "archive" or "mirror")`,
		},
		{
			name:     "Unknown archiver",
			mutate:   func(s *Storage) { s.Archiver = "zip" },
			expError: `unknown archiver "zip"`,
		},
		{
			name:     "Missing remote base",
			mutate:   func(s *Storage) { s.RemoteBase = "" },
			expError: "missing required field: remoteBase",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultStorage()
			test.mutate(&cfg)
			err := cfg.Validate()
			if test.expError == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, test.expError)
			}
		})
	}
}

func withFolders(cfg Storage, folders ...string) Storage {
	cfg.Folders = folders
	return cfg
}
