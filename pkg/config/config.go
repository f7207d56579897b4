package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// invalidYAMLTemplate is shown when a config file can't be decoded. The yaml
// library's errors don't say which field is wrong, so the most common causes
// are listed instead.
const invalidYAMLTemplate = "%q could not be parsed.\n" +
	"Check that:\n" +
	" - `folders` is a list of names, e.g. `folders: [Documents, .cargo]`\n" +
	" - every other value is a single string\n" +
	" - there are no fields besides the ones shown by `storage-manager config`\n\n" +
	"The parser reported:\n" +
	"%s"

// versioned is implemented by config files that carry a format version.
type versioned interface {
	getVersion() string
}

type versionMismatchError struct {
	path, supported, found string
}

func (err versionMismatchError) Error() string {
	return err.FriendlyMessage()
}

func (err versionMismatchError) FriendlyMessage() string {
	return fmt.Sprintf("%q uses config version %q, but this build of "+
		"storage-manager only understands %q.\n"+
		"Upgrade storage-manager, or regenerate the file with "+
		"`storage-manager config --write`.", err.path, err.found, err.supported)
}

// decodeFile reads the YAML file at `path` into `out`. A missing file is
// reported as errors.FileNotFound so that callers can fall back to defaults.
func decodeFile(path string, out versioned, supported string) error {
	contents, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		return errors.FileNotFound{Path: path}
	case err != nil:
		return errors.WithContext(err, "read file")
	}

	// The version is checked before unknown fields are rejected, since a
	// newer format is the likeliest reason for an unknown field.
	if err := yaml.Unmarshal(contents, out); err != nil {
		return errors.NewFriendlyError(invalidYAMLTemplate, path, err)
	}
	if found := out.getVersion(); found != supported {
		return versionMismatchError{path: path, supported: supported, found: found}
	}

	if err := yaml.UnmarshalStrict(contents, out, yaml.DisallowUnknownFields); err != nil {
		return errors.NewFriendlyError(invalidYAMLTemplate, path, err)
	}
	return nil
}
