package save

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/storage-manager/cmd/util"
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/session"
	"github.com/sidkik/storage-manager/pkg/sync"
	"github.com/sidkik/storage-manager/pkg/task"
)

// New creates a new `save` command.
func New() *cobra.Command {
	var bye bool
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Persist the managed folders to remote storage",
		Long: "Persist the local copy of every managed folder to remote storage.\n" +
			"Folders without a local copy are skipped.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			report, err := run(bye)
			if err != nil {
				util.HandleFatalError(err)
			}
			util.FinishRun(report)
		},
	}
	cmd.Flags().BoolVarP(&bye, "bye", "b", false,
		"Lock the screen while saving, and log out once every folder is saved.")
	return cmd
}

func run(bye bool) (task.Report, error) {
	env, err := util.NewEnv()
	if err != nil {
		return task.Report{}, err
	}

	folders, err := env.Folders()
	if err != nil {
		return task.Report{}, errors.WithContext(err, "get folders")
	}

	synchronizer, err := env.Synchronizer(sync.SaveOp, false)
	if err != nil {
		return task.Report{}, err
	}

	var hooks session.Hooks = session.Noop{}
	if bye {
		hooks = session.NewDesktop(env.Runner, log.StandardLogger())
	}

	runner := env.TaskRunner(hooks)
	return runner.Run(sync.SaveOp, folders, synchronizer.Save), nil
}
