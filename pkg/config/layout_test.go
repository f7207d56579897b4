package config

import (
	"os"
	"os/user"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/storage-manager/pkg/errors"
)

func TestLayout(t *testing.T) {
	cfg := DefaultStorage()

	archive := NewLayout(cfg, "kevin", "/home/kevin")
	assert.Equal(t, Layout{
		User:       "kevin",
		Mode:       ArchiveMode,
		HomeRoot:   "/home/kevin",
		LocalRoot:  "/goinfre/kevin/local_data",
		RemoteRoot: "/sgoinfre/goinfre/Perso/kevin/my_archives",
	}, archive)

	folder, err := archive.Folder("Downloads")
	require.NoError(t, err)
	assert.Equal(t, Folder{
		Name:              "Downloads",
		HomePath:          "/home/kevin/Downloads",
		LocalPath:         "/goinfre/kevin/local_data/Downloads",
		RemoteArchivePath: "/sgoinfre/goinfre/Perso/kevin/my_archives/Downloads.tar",
		RemotePath:        "/sgoinfre/goinfre/Perso/kevin/my_archives/Downloads",
		BackupPath:        "/home/kevin/Downloads_OLD",
	}, folder)

	cfg.Mode = MirrorMode
	mirror := NewLayout(cfg, "kevin", "/home/kevin")
	assert.Equal(t, "/sgoinfre/goinfre/Perso/kevin/my_data", mirror.RemoteRoot)

	folder, err = mirror.Folder(".cargo")
	require.NoError(t, err)
	assert.Equal(t, "/sgoinfre/goinfre/Perso/kevin/my_data/.cargo", folder.RemotePath)
}

func TestLayoutFolders(t *testing.T) {
	layout := NewLayout(DefaultStorage(), "kevin", "/home/kevin")

	folders, err := layout.Folders([]string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "b", folders[0].Name)
	assert.Equal(t, "a", folders[1].Name)

	_, err = layout.Folders([]string{"ok", ".."})
	assert.Equal(t, errors.InvalidFolderName{
		Name: "..", Reason: "name refers to a parent directory"}, err)
}

func TestValidateFolderName(t *testing.T) {
	for _, name := range []string{"Downloads", ".vscode", "my folder", "Photos_OLD"} {
		assert.NoError(t, ValidateFolderName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", "/abs", `a\b`} {
		assert.Error(t, ValidateFolderName(name), name)
	}
}

func TestEnsureRoots(t *testing.T) {
	fs = afero.NewMemMapFs()
	defer func() { fs = afero.NewOsFs() }()

	layout := NewLayout(DefaultStorage(), "kevin", "/home/kevin")
	require.NoError(t, layout.EnsureRoots())

	for _, root := range []string{layout.LocalRoot, layout.RemoteRoot} {
		isDir, err := afero.IsDir(fs, root)
		assert.NoError(t, err)
		assert.True(t, isDir, root)
	}
}

func TestResolveLayout(t *testing.T) {
	defer func() {
		getenv = os.Getenv
		getCurrentUser = user.Current
		getHomeDir = homedir.Dir
	}()

	tests := []struct {
		name     string
		env      string
		current  *user.User
		home     string
		homeErr  error
		expUser  string
		expError bool
	}{
		{
			name:    "User from environment",
			env:     "kevin",
			home:    "/home/kevin",
			expUser: "kevin",
		},
		{
			name:    "Fallback to user database",
			current: &user.User{Username: "luise"},
			home:    "/home/luise",
			expUser: "luise",
		},
		{
			name:     "No user",
			current:  &user.User{},
			home:     "/home/kevin",
			expError: true,
		},
		{
			name:     "No home",
			env:      "kevin",
			homeErr:  errors.New("no $HOME"),
			expError: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			getenv = func(string) string { return test.env }
			getCurrentUser = func() (*user.User, error) {
				if test.current == nil {
					return nil, errors.New("unknown user")
				}
				return test.current, nil
			}
			getHomeDir = func() (string, error) { return test.home, test.homeErr }

			layout, err := ResolveLayout(DefaultStorage())
			if test.expError {
				assert.Error(t, err)
				_, friendly := errors.GetFriendlyMessage(err)
				assert.True(t, friendly)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expUser, layout.User)
			assert.Equal(t, test.home, layout.HomeRoot)
		})
	}
}
