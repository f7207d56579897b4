package task

import (
	"bytes"
	"os"
	"path/filepath"
	goSync "sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/storage-manager/pkg/config"
	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/sync"
)

type recordingHooks struct {
	lock      goSync.Mutex
	events    []string
	succeeded *bool
}

func (h *recordingHooks) record(event string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHooks) BeforeFanOut() error {
	h.record("before")
	return nil
}

func (h *recordingHooks) AfterJoin(succeeded bool) error {
	h.record("after")
	h.succeeded = &succeeded
	return errors.New("ignored")
}

func folders(names ...string) (folders []config.Folder) {
	for _, name := range names {
		folders = append(folders, config.Folder{Name: name})
	}
	return folders
}

func newTestRunner(hooks *recordingHooks, metrics *Metrics) Runner {
	log, _ := logrusTest.NewNullLogger()
	return NewRunner(hooks, metrics, log)
}

func TestRunIsConcurrent(t *testing.T) {
	var started goSync.WaitGroup
	started.Add(3)

	// Every task waits for all the others to start, so the run can only
	// complete if the tasks run in parallel.
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	fn := func(folder config.Folder) sync.Result {
		started.Done()
		select {
		case <-allStarted:
		case <-time.After(5 * time.Second):
			return sync.Result{Folder: folder.Name, Status: sync.Failed}
		}
		return sync.Result{Folder: folder.Name, Status: sync.Succeeded}
	}

	report := newTestRunner(&recordingHooks{}, nil).Run(sync.InitOp, folders("a", "b", "c"), fn)
	require.Len(t, report.Results, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, report.Results[i].Folder)
		assert.Equal(t, sync.Succeeded, report.Results[i].Status)
	}
	assert.NoError(t, report.Err())
}

func TestRunIsolatesFailures(t *testing.T) {
	hooks := &recordingHooks{}
	fn := func(folder config.Folder) sync.Result {
		hooks.record("task")

		// Make the failing folder finish first so that the others are still
		// running when it fails.
		if folder.Name == "Documents" {
			return sync.Result{
				Folder: folder.Name,
				Status: sync.Failed,
				Reason: sync.ReasonTransfer,
				Err:    errors.New("tar failed"),
			}
		}
		time.Sleep(10 * time.Millisecond)
		return sync.Result{Folder: folder.Name, Status: sync.Succeeded}
	}

	report := newTestRunner(hooks, nil).Run(sync.SaveOp, folders(".cargo", "Documents", "Downloads"), fn)
	assert.Equal(t, sync.SaveOp, report.Operation)
	assert.Equal(t, sync.Succeeded, report.Results[0].Status)
	assert.Equal(t, sync.Failed, report.Results[1].Status)
	assert.Equal(t, sync.Succeeded, report.Results[2].Status)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "Documents", failed[0].Folder)

	msg, ok := errors.GetFriendlyMessage(report.Err())
	assert.True(t, ok)
	assert.Equal(t, "Failed to save 1 of 3 folders: Documents", msg)

	// The hooks run strictly around the tasks.
	assert.Equal(t, []string{"before", "task", "task", "task", "after"}, hooks.events)
	require.NotNil(t, hooks.succeeded)
	assert.False(t, *hooks.succeeded)
}

func TestRunNoFolders(t *testing.T) {
	hooks := &recordingHooks{}
	report := newTestRunner(hooks, nil).Run(sync.InitOp, nil, func(config.Folder) sync.Result {
		t.Fatal("unexpected call")
		return sync.Result{}
	})

	assert.Empty(t, report.Results)
	assert.NoError(t, report.Err())
	assert.Equal(t, []string{"before", "after"}, hooks.events)
	require.NotNil(t, hooks.succeeded)
	assert.True(t, *hooks.succeeded)
}

func TestNewRunnerDefaultHooks(t *testing.T) {
	log, _ := logrusTest.NewNullLogger()
	runner := NewRunner(nil, nil, log)
	report := runner.Run(sync.SaveOp, folders("a"), func(folder config.Folder) sync.Result {
		return sync.Result{Folder: folder.Name, Status: sync.Skipped}
	})
	assert.NoError(t, report.Err())
}

func TestRunWritesMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage_manager.prom")
	metrics := NewMetrics(path)

	fn := func(folder config.Folder) sync.Result {
		if folder.Name == "broken" {
			return sync.Result{Folder: folder.Name, Status: sync.Failed, Err: errors.New("failed")}
		}
		return sync.Result{
			Folder:   folder.Name,
			Status:   sync.Succeeded,
			Size:     2048,
			Duration: time.Second,
		}
	}

	runner := newTestRunner(&recordingHooks{}, metrics)
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	runner.clock = clock
	runner.Run(sync.SaveOp, folders("a", "b", "broken"), fn)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.folderStatus.WithLabelValues("save", "a", "succeeded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(
		metrics.folderStatus.WithLabelValues("save", "a", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.folderStatus.WithLabelValues("save", "broken", "failed")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(
		metrics.folderBytes.WithLabelValues("save", "a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.folderDuration.WithLabelValues("save", "b")))

	assert.NoFileExists(t, path)
	contents, err := os.ReadFile(filepath.Join(filepath.Dir(path), "storage_manager.save.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(contents),
		`storage_manager_folder_status{folder="broken",operation="save",status="failed"} 1`)
	assert.Contains(t, string(contents),
		`storage_manager_last_run_timestamp_seconds{operation="save"} 1.7e+09`)
	assert.NotContains(t, string(contents), "_total")
}

func TestMetricsKeepOtherOperations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storage_manager.prom")
	succeed := func(folder config.Folder) sync.Result {
		return sync.Result{Folder: folder.Name, Status: sync.Succeeded}
	}

	// Each run is a separate process with fresh metrics.
	newTestRunner(&recordingHooks{}, NewMetrics(path)).Run(sync.SaveOp, folders("a"), succeed)
	newTestRunner(&recordingHooks{}, NewMetrics(path)).Run(sync.InitOp, folders("a"), succeed)

	save, err := os.ReadFile(filepath.Join(dir, "storage_manager.save.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(save), `storage_manager_last_run_timestamp_seconds{operation="save"}`)

	initMetrics, err := os.ReadFile(filepath.Join(dir, "storage_manager.init.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(initMetrics), `storage_manager_last_run_timestamp_seconds{operation="init"}`)
	assert.NotContains(t, string(initMetrics), `operation="save"`)
}

func TestMetricsPathFor(t *testing.T) {
	assert.Equal(t, "/var/lib/node_exporter/storage.fetch.prom",
		NewMetrics("/var/lib/node_exporter/storage.prom").PathFor(sync.FetchOp))
	assert.Equal(t, "/tmp/metrics.save", NewMetrics("/tmp/metrics").PathFor(sync.SaveOp))
}

func TestRunDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newTestRunner(&recordingHooks{}, nil)
	runner.clock = clock

	report := runner.Run(sync.SaveOp, folders("a", "b"), func(folder config.Folder) sync.Result {
		if folder.Name == "a" {
			clock.Advance(3 * time.Second)
		}
		return sync.Result{Folder: folder.Name, Status: sync.Succeeded}
	})
	assert.Equal(t, 3*time.Second, report.Duration)
}

func TestRunMetricsWriteFailure(t *testing.T) {
	log, hook := logrusTest.NewNullLogger()
	metrics := NewMetrics(filepath.Join(t.TempDir(), "missing", "storage_manager.prom"))
	runner := NewRunner(nil, metrics, log)

	report := runner.Run(sync.InitOp, folders("a"), func(folder config.Folder) sync.Result {
		return sync.Result{Folder: folder.Name, Status: sync.Succeeded}
	})

	// The run itself still succeeds.
	assert.NoError(t, report.Err())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Failed to write metrics", entry.Message)
}

func TestReportPrint(t *testing.T) {
	report := Report{
		Operation: sync.SaveOp,
		Results: []sync.Result{
			{
				Folder:   "Downloads",
				Status:   sync.Succeeded,
				Steps:    []string{"packed to /remote/Downloads.tar"},
				Size:     1000,
				Duration: 1500 * time.Millisecond,
			},
			{
				Folder: ".rustup",
				Status: sync.Skipped,
				Steps:  []string{"no local copy"},
			},
			{
				Folder: "Documents",
				Status: sync.Failed,
				Reason: sync.ReasonTransfer,
				Err:    errors.NewFriendlyError("disk full"),
			},
		},
	}

	var out bytes.Buffer
	report.Print(&out)

	exp := statusLabel(sync.Succeeded) + " Downloads (1.0 kB, 1.5s)\n" +
		"    packed to /remote/Downloads.tar\n" +
		statusLabel(sync.Skipped) + " .rustup\n" +
		"    no local copy\n" +
		statusLabel(sync.Failed) + " Documents\n" +
		"    transfer failed: disk full\n"
	assert.Equal(t, exp, out.String())
}
