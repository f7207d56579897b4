package mirror

import (
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/proc"
)

// progressVersion is the first rsync release that supports
// `--info=progress2`.
var progressVersion = goversion.Must(goversion.NewVersion("3.1.0"))

var rsyncVersionRegex = regexp.MustCompile(`rsync\s+version\s+v?([0-9][0-9.]*)`)

// Rsync is a Copier that delegates to `rsync -a`.
type Rsync struct {
	path   string
	runner proc.Runner

	// progress makes rsync print its overall transfer progress to the
	// terminal.
	progress bool
}

// NewRsync returns an Rsync that runs the rsync binary at `path`.
func NewRsync(path string, runner proc.Runner) Rsync {
	return Rsync{path: path, runner: runner}
}

// WithProgress returns a copy of the Rsync that shows transfer progress if
// the installed rsync supports it. Progress is only meaningful when a single
// folder is being copied, since concurrent progress bars overwrite each other.
func (r Rsync) WithProgress() Rsync {
	version, err := r.Version()
	if err != nil {
		log.WithError(err).Debug("Failed to get rsync version. Progress won't be shown.")
		return r
	}

	r.progress = version.GreaterThanOrEqual(progressVersion)
	return r
}

// Copy runs `rsync -a <src>/ <dst>`. The trailing slash makes rsync copy the
// contents of src rather than src itself.
func (r Rsync) Copy(src, dst string) error {
	args := []string{"-a"}
	if r.progress {
		args = append(args, "--info=progress2")
	}
	args = append(args, strings.TrimRight(src, "/")+"/", dst)

	var err error
	if r.progress {
		err = r.runner.RunAttached(r.path, args...)
	} else {
		err = r.runner.Run(r.path, args...)
	}
	if err != nil {
		return errors.WithContext(err, "rsync")
	}
	return nil
}

// Version returns the version of the installed rsync.
func (r Rsync) Version() (*goversion.Version, error) {
	out, err := r.runner.Output(r.path, "--version")
	if err != nil {
		return nil, errors.WithContext(err, "run")
	}
	return parseRsyncVersion(string(out))
}

// Check returns an error if the rsync binary can't be launched.
func (r Rsync) Check() error {
	_, err := r.runner.LookPath(r.path)
	return err
}

func parseRsyncVersion(output string) (*goversion.Version, error) {
	match := rsyncVersionRegex.FindStringSubmatch(output)
	if match == nil {
		return nil, errors.New("unrecognized `rsync --version` output")
	}

	version, err := goversion.NewVersion(strings.TrimRight(match[1], "."))
	if err != nil {
		return nil, errors.WithContext(err, "parse version")
	}
	return version, nil
}
