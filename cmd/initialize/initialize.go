package initialize

import (
	"github.com/spf13/cobra"

	"github.com/sidkik/storage-manager/cmd/util"
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/session"
	"github.com/sidkik/storage-manager/pkg/sync"
	"github.com/sidkik/storage-manager/pkg/task"
)

// New creates a new `init` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Restore the managed folders and link them into the home directory",
		Long: "Restore every managed folder from remote storage into local storage,\n" +
			"and replace the folder in the home directory with a symlink to it.\n\n" +
			"Folders that have never been saved are seeded from the home directory.\n" +
			"Existing directories in the home directory are moved to <folder>_OLD\n" +
			"rather than deleted.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			report, err := run()
			if err != nil {
				util.HandleFatalError(err)
			}
			util.FinishRun(report)
		},
	}
}

func run() (task.Report, error) {
	env, err := util.NewEnv()
	if err != nil {
		return task.Report{}, err
	}

	folders, err := env.Folders()
	if err != nil {
		return task.Report{}, errors.WithContext(err, "get folders")
	}

	synchronizer, err := env.Synchronizer(sync.InitOp, false)
	if err != nil {
		return task.Report{}, err
	}

	runner := env.TaskRunner(session.Noop{})
	return runner.Run(sync.InitOp, folders, synchronizer.Init), nil
}
