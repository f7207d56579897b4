package util

import (
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/storage-manager/pkg/archive"
	"github.com/sidkik/storage-manager/pkg/config"
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/mirror"
	"github.com/sidkik/storage-manager/pkg/proc"
	"github.com/sidkik/storage-manager/pkg/session"
	"github.com/sidkik/storage-manager/pkg/sync"
	"github.com/sidkik/storage-manager/pkg/task"
)

// Mocked out for unit testing.
var (
	parseStorage  = config.ParseStorage
	resolveLayout = config.ResolveLayout
	newRunner     = defaultRunner
)

func defaultRunner() proc.Runner {
	return proc.New(log.StandardLogger())
}

// Env is the environment shared by the folder commands.
type Env struct {
	Config config.Storage
	Layout config.Layout
	Runner proc.Runner
}

// checker is implemented by the tool-backed archivers and copiers.
type checker interface {
	Check() error
}

// LoadEnv loads the configuration and computes the storage layout, without
// touching the filesystem.
func LoadEnv() (Env, error) {
	cfg, err := parseStorage()
	if err != nil {
		return Env{}, errors.WithContext(err, "parse config")
	}

	layout, err := resolveLayout(cfg)
	if err != nil {
		return Env{}, errors.WithContext(err, "resolve layout")
	}

	log.WithFields(log.Fields{
		"user":   layout.User,
		"mode":   layout.Mode,
		"local":  layout.LocalRoot,
		"remote": layout.RemoteRoot,
	}).Debug("Resolved storage layout")
	return Env{Config: cfg, Layout: layout, Runner: newRunner()}, nil
}

// NewEnv is like LoadEnv, but also makes sure that the storage roots exist.
// It must succeed before any folder is touched.
func NewEnv() (Env, error) {
	env, err := LoadEnv()
	if err != nil {
		return Env{}, err
	}

	if err := env.Layout.EnsureRoots(); err != nil {
		return Env{}, errors.NewFriendlyError(
			"Failed to create the storage directories:\n%s", err)
	}
	return env, nil
}

// Folders returns the configured folders.
func (env Env) Folders() ([]config.Folder, error) {
	return env.Layout.Folders(env.Config.Folders)
}

// Transport returns the configured archive transport.
func (env Env) Transport() (archive.Transport, error) {
	if env.Config.Archiver == config.ArchiverNative {
		return archive.Native{}, nil
	}

	tar := archive.NewTar(env.Config.TarPath, env.Runner)
	if err := preflight(tar); err != nil {
		return nil, err
	}
	return tar, nil
}

// Copier returns the configured mirror copier. `progress` asks rsync to
// report its progress on the terminal, if it's able to.
func (env Env) Copier(progress bool) (mirror.Copier, error) {
	if env.Config.Copier == config.CopierNative {
		return mirror.Native{}, nil
	}

	rsync := mirror.NewRsync(env.Config.RsyncPath, env.Runner)
	if err := preflight(rsync); err != nil {
		return nil, err
	}
	if progress {
		rsync = rsync.WithProgress()
	}
	return rsync, nil
}

// Synchronizer creates a Synchronizer for the configured mode. Only the
// tools that `op` can reach are checked, so an archive mode save doesn't
// need the copier.
func (env Env) Synchronizer(op sync.Operation, progress bool) (*sync.Synchronizer, error) {
	var transport archive.Transport
	if env.Config.Mode == config.ArchiveMode {
		var err error
		transport, err = env.Transport()
		if err != nil {
			return nil, err
		}
	}

	var copier mirror.Copier
	if needsCopier(env.Config.Mode, op) {
		var err error
		copier, err = env.Copier(progress)
		if err != nil {
			return nil, err
		}
	}
	return sync.New(env.Config.Mode, transport, copier, log.StandardLogger()), nil
}

// needsCopier returns whether `op` may copy a directory tree in `mode`. Init
// seeds from the home path and Fetch falls back to a mirrored directory, so
// only archive mode saves never copy.
func needsCopier(mode config.Mode, op sync.Operation) bool {
	return !(mode == config.ArchiveMode && op == sync.SaveOp)
}

// TaskRunner creates a task runner that calls `hooks` around the folder
// tasks.
func (env Env) TaskRunner(hooks session.Hooks) task.Runner {
	var metrics *task.Metrics
	if env.Config.MetricsFile != "" {
		metrics = task.NewMetrics(env.Config.MetricsFile)
	}
	return task.NewRunner(hooks, metrics, log.StandardLogger())
}

// preflight makes sure that an external tool can be launched before any
// folder work starts, so that a missing tool fails the whole run rather than
// every folder separately.
func preflight(tool checker) error {
	if err := tool.Check(); err != nil {
		return errors.NewFriendlyError("A required tool is missing:\n%s", err)
	}
	return nil
}

// FinishRun prints the report, and exits with an error if any folder
// failed.
func FinishRun(report task.Report) {
	report.Print(stdout)
	if err := report.Err(); err != nil {
		HandleFatalError(err)
	}
}
