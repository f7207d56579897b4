package status

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/buger/goterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/storage-manager/cmd/util"
	"github.com/sidkik/storage-manager/pkg/config"
)

func TestStatus(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultStorage()
	cfg.Folders = []string{"Linked", "Real", "Missing"}
	cfg.LocalBase = filepath.Join(root, "goinfre")
	cfg.RemoteBase = filepath.Join(root, "sgoinfre")

	layout := config.NewLayout(cfg, "alice", filepath.Join(root, "home"))
	require.NoError(t, layout.EnsureRoots())

	linked, err := layout.Folder("Linked")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(linked.LocalPath, 0755))
	require.NoError(t, os.MkdirAll(layout.HomeRoot, 0755))
	require.NoError(t, os.Symlink(linked.LocalPath, linked.HomePath))
	require.NoError(t, os.WriteFile(linked.RemoteArchivePath, make([]byte, 2000), 0644))

	unmanaged, err := layout.Folder("Real")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(unmanaged.HomePath, 0755))

	var out bytes.Buffer
	stdout = &out
	loadEnv = func() (util.Env, error) {
		return util.Env{Config: cfg, Layout: layout}, nil
	}
	defer func() {
		stdout = os.Stdout
		loadEnv = util.LoadEnv
	}()

	require.NoError(t, run())

	output := out.String()
	assert.Contains(t, output, "Linked\n    home:   "+goterm.Color("linked", goterm.GREEN))
	assert.Contains(t, output, "    local:  "+goterm.Color("present", goterm.GREEN))
	assert.Contains(t, output, "(2.0 kB)")
	assert.Contains(t, output,
		"Real\n    home:   "+goterm.Color("real directory, not managed yet", goterm.YELLOW))
	assert.Contains(t, output, "Missing\n    home:   "+goterm.Color("missing", goterm.RED))
	assert.Contains(t, output, goterm.Color("never saved", goterm.YELLOW))

	// Nothing was changed.
	_, err = os.Lstat(unmanaged.BackupPath)
	assert.True(t, os.IsNotExist(err))
}
