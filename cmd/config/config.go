package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"

	"github.com/sidkik/storage-manager/cmd/util"
	"github.com/sidkik/storage-manager/pkg/config"
	"github.com/sidkik/storage-manager/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout        io.Writer = os.Stdout
	parseStorage            = config.ParseStorage
	writeStorage            = config.WriteStorage
	getConfigPath           = config.GetStorageConfigPath
)

// New creates a new `config` command.
func New() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the storage-manager configuration",
		Long: "Print the effective configuration: the contents of " +
			config.StorageConfigPath + ",\n" +
			"with defaults filled in for anything that isn't set.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(write); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&write, "write", false,
		"Write the effective configuration to "+config.StorageConfigPath+
			" so that it can be edited.")

	// Setup the commands for querying the contents of the config.
	type getterSpec struct {
		use, short string
		fn         func(config.Storage) string
	}

	getters := []getterSpec{
		{
			use:   "get-folders",
			short: "Get the managed folders, one per line",
			fn:    func(cfg config.Storage) string { return strings.Join(cfg.Folders, "\n") },
		},
		{
			use:   "get-mode",
			short: "Get how folders are persisted to remote storage",
			fn:    func(cfg config.Storage) string { return string(cfg.Mode) },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Args:  cobra.NoArgs,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseStorage()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

func run(write bool) error {
	cfg, err := parseStorage()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	if write {
		if err := writeStorage(cfg); err != nil {
			return errors.WithContext(err, "write config")
		}

		path, err := getConfigPath()
		if err != nil {
			return errors.WithContext(err, "get config path")
		}

		fmt.Fprintf(stdout, "Wrote config to %s\n", path)
		return nil
	}

	cfg.Version = config.SupportedStorageConfigVersion
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	_, err = stdout.Write(yamlBytes)
	return err
}
