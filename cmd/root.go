package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/storage-manager/cmd/config"
	"github.com/sidkik/storage-manager/cmd/fetch"
	"github.com/sidkik/storage-manager/cmd/initialize"
	"github.com/sidkik/storage-manager/cmd/save"
	"github.com/sidkik/storage-manager/cmd/status"
	"github.com/sidkik/storage-manager/cmd/util"
	"github.com/sidkik/storage-manager/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "STORAGE_MANAGER_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	if err := newRootCommand().Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "storage-manager",
		Short:        "Keep home directory folders on fast local storage, backed by remote storage",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		fetch.New(),
		initialize.New(),
		save.New(),
		status.New(),
		version.New(),
	)
	return rootCmd
}
