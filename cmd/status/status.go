package status

import (
	"fmt"
	"io"
	"os"

	"github.com/buger/goterm"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/storage-manager/cmd/util"
	"github.com/sidkik/storage-manager/pkg/config"
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/vdir"
)

// Mocked out for unit testing.
var (
	fs                = afero.NewOsFs()
	stdout  io.Writer = os.Stdout
	loadEnv           = util.LoadEnv
)

// New creates a new `status` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the managed folders",
		Long: "Show whether each managed folder is linked into the home directory,\n" +
			"has a local copy, and has been saved to remote storage.\n" +
			"Nothing is modified.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	env, err := loadEnv()
	if err != nil {
		return err
	}

	folders, err := env.Folders()
	if err != nil {
		return errors.WithContext(err, "get folders")
	}

	fmt.Fprintf(stdout, "Local storage:  %s\n", env.Layout.LocalRoot)
	fmt.Fprintf(stdout, "Remote storage: %s (%s)\n\n", env.Layout.RemoteRoot, env.Layout.Mode)
	for _, folder := range folders {
		home, err := describeHome(folder)
		if err != nil {
			return errors.WithContext(err, folder.Name)
		}

		local, err := describeLocal(folder)
		if err != nil {
			return errors.WithContext(err, folder.Name)
		}

		fmt.Fprintf(stdout, "%s\n    home:   %s\n    local:  %s\n    remote: %s\n",
			folder.Name, home, local, describeRemote(env.Layout.Mode, folder))
	}
	return nil
}

func describeHome(folder config.Folder) (string, error) {
	entry, err := vdir.Inspect(folder.HomePath)
	if err != nil {
		return "", err
	}

	switch {
	case entry.State == vdir.Symlink && entry.Target == folder.LocalPath:
		return goterm.Color("linked", goterm.GREEN), nil
	case entry.State == vdir.Symlink:
		return goterm.Color("linked to "+entry.Target, goterm.YELLOW), nil
	case entry.State == vdir.Absent:
		return goterm.Color("missing", goterm.RED), nil
	default:
		return goterm.Color(fmt.Sprintf("real %s, not managed yet", entry.State),
			goterm.YELLOW), nil
	}
}

func describeLocal(folder config.Folder) (string, error) {
	entry, err := vdir.Inspect(folder.LocalPath)
	if err != nil {
		return "", err
	}

	switch entry.State {
	case vdir.Directory:
		return goterm.Color("present", goterm.GREEN), nil
	case vdir.Absent:
		return goterm.Color("missing", goterm.RED), nil
	default:
		return goterm.Color(fmt.Sprintf("unexpected %s", entry.State), goterm.RED), nil
	}
}

func describeRemote(mode config.Mode, folder config.Folder) string {
	if mode == config.ArchiveMode {
		if fi, err := fs.Stat(folder.RemoteArchivePath); err == nil && fi.Mode().IsRegular() {
			return goterm.Color(fmt.Sprintf("saved %s (%s)",
				humanize.Time(fi.ModTime()), humanize.Bytes(uint64(fi.Size()))), goterm.GREEN)
		}
	}

	if fi, err := fs.Stat(folder.RemotePath); err == nil && fi.IsDir() {
		return goterm.Color(fmt.Sprintf("saved %s", humanize.Time(fi.ModTime())), goterm.GREEN)
	}
	return goterm.Color("never saved", goterm.YELLOW)
}
