package task

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sidkik/storage-manager/pkg/sync"
)

// Metrics records the outcome of runs in the node exporter's textfile
// format, so that the health of saves can be monitored on shared machines.
//
// Every invocation is a separate process, so all values describe the last run
// of an operation. Each operation is written to its own file so that running
// one operation doesn't erase the values of the others.
type Metrics struct {
	path     string
	registry *prometheus.Registry

	folderStatus   *prometheus.GaugeVec
	folderDuration *prometheus.GaugeVec
	folderBytes    *prometheus.GaugeVec
	lastRun        *prometheus.GaugeVec
}

// NewMetrics creates a Metrics that's written next to `path`. See PathFor.
func NewMetrics(path string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		path:     path,
		registry: registry,
		folderStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "storage_manager_folder_status",
				Help: "1 for the status of each folder in the last run, 0 for the others.",
			},
			[]string{"operation", "folder", "status"},
		),
		folderDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "storage_manager_folder_duration_seconds",
				Help: "Time taken to process a folder in the last run.",
			},
			[]string{"operation", "folder"},
		),
		folderBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "storage_manager_folder_bytes",
				Help: "Bytes transferred for a folder in the last run.",
			},
			[]string{"operation", "folder"},
		),
		lastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "storage_manager_last_run_timestamp_seconds",
				Help: "Unix time at which the last run finished.",
			},
			[]string{"operation"},
		),
	}
}

// PathFor returns the file that the metrics of `op` are written to. The
// operation is inserted before the extension, so that the node exporter's
// *.prom pattern still matches: storage.prom becomes storage.save.prom.
func (m *Metrics) PathFor(op sync.Operation) string {
	ext := filepath.Ext(m.path)
	return strings.TrimSuffix(m.path, ext) + "." + string(op) + ext
}

// Observe records the results in `report`, replacing the values of any
// previous run of the same operation.
func (m *Metrics) Observe(report Report, finished time.Time) {
	op := string(report.Operation)
	for _, res := range report.Results {
		for _, status := range []sync.Status{sync.Succeeded, sync.Skipped, sync.Failed} {
			var value float64
			if res.Status == status {
				value = 1
			}
			m.folderStatus.WithLabelValues(op, res.Folder, status.String()).Set(value)
		}
		m.folderDuration.WithLabelValues(op, res.Folder).Set(res.Duration.Seconds())
		m.folderBytes.WithLabelValues(op, res.Folder).Set(float64(res.Size))
	}
	m.lastRun.WithLabelValues(op).Set(float64(finished.Unix()))
}

// Write atomically replaces the metrics file of `op` with the current values.
func (m *Metrics) Write(op sync.Operation) error {
	return prometheus.WriteToTextfile(m.PathFor(op), m.registry)
}
