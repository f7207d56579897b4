package config

import (
	"os"
	"os/user"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/storage-manager/pkg/errors"
)

// Mocked for unit testing.
var (
	getenv         = os.Getenv
	getCurrentUser = user.Current
	getHomeDir     = homedir.Dir
)

// CurrentUser returns the name of the invoking user. $USER takes precedence
// so that the layout matches what the user sees in their shell.
func CurrentUser() (string, error) {
	if name := getenv("USER"); name != "" {
		return name, nil
	}

	u, err := getCurrentUser()
	if err != nil {
		return "", errors.WithContext(err, "lookup current user")
	}
	if u.Username == "" {
		return "", errors.New("current user has no name")
	}
	return u.Username, nil
}

// ResolveLayout computes the Layout for the invoking user. Failing to find
// either the user or their home directory is fatal, since none of the
// folder paths can be computed.
func ResolveLayout(cfg Storage) (Layout, error) {
	name, err := CurrentUser()
	if err != nil {
		return Layout{}, errors.NewFriendlyError(
			"Failed to determine the current user. Is $USER set?\n%s", err)
	}

	home, err := getHomeDir()
	if err != nil {
		return Layout{}, errors.NewFriendlyError(
			"Failed to find the home directory. Is $HOME set?\n%s", err)
	}
	if home == "" {
		return Layout{}, errors.NewFriendlyError(
			"Failed to find the home directory. Is $HOME set?")
	}

	return NewLayout(cfg, name, home), nil
}
