package fetch

import (
	"github.com/spf13/cobra"

	"github.com/sidkik/storage-manager/cmd/util"
	"github.com/sidkik/storage-manager/pkg/config"
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/session"
	"github.com/sidkik/storage-manager/pkg/sync"
	"github.com/sidkik/storage-manager/pkg/task"
)

// New creates a new `fetch` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch FOLDER",
		Short: "Restore a single folder from remote storage",
		Long: "Restore a single folder from remote storage into local storage, and\n" +
			"link it into the home directory if nothing is there yet.\n\n" +
			"Unlike `init`, fetch never moves or replaces an existing entry in the\n" +
			"home directory. The folder doesn't need to be one of the configured\n" +
			"folders.",
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			report, err := run(args[0])
			if err != nil {
				util.HandleFatalError(err)
			}
			util.FinishRun(report)
		},
	}
}

func run(name string) (task.Report, error) {
	env, err := util.NewEnv()
	if err != nil {
		return task.Report{}, err
	}

	folder, err := env.Layout.Folder(name)
	if err != nil {
		return task.Report{}, errors.NewFriendlyError("Can't fetch %q:\n%s", name, err)
	}

	// Only one folder is copied, so it's safe to show the copy's progress.
	synchronizer, err := env.Synchronizer(sync.FetchOp, true)
	if err != nil {
		return task.Report{}, err
	}

	runner := env.TaskRunner(session.Noop{})
	return runner.Run(sync.FetchOp, []config.Folder{folder}, synchronizer.Fetch), nil
}
