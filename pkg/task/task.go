// Package task runs a synchronizer operation on every managed folder
// concurrently, and collects the results into a report.
package task

import (
	goSync "sync"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/storage-manager/pkg/config"
	"github.com/sidkik/storage-manager/pkg/session"
	"github.com/sidkik/storage-manager/pkg/sync"
)

// Func runs an operation on a single folder.
type Func func(config.Folder) sync.Result

// Runner fans out a Func to every folder, and waits for all of them to
// complete.
type Runner struct {
	hooks   session.Hooks
	metrics *Metrics
	clock   clockwork.Clock
	log     logrus.FieldLogger
}

// NewRunner creates a Runner. `metrics` may be nil, in which case no metrics
// are recorded.
func NewRunner(hooks session.Hooks, metrics *Metrics, log logrus.FieldLogger) Runner {
	if hooks == nil {
		hooks = session.Noop{}
	}
	return Runner{
		hooks:   hooks,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		log:     log,
	}
}

// Run calls `fn` on every folder in a separate goroutine, and returns once
// all of them have finished. A failure in one folder never stops the others.
// The results in the report are in the same order as `folders`.
func (r Runner) Run(op sync.Operation, folders []config.Folder, fn Func) Report {
	log := r.log.WithField("operation", op)
	if err := r.hooks.BeforeFanOut(); err != nil {
		log.WithError(err).Warn("Session hook failed")
	}

	start := r.clock.Now()
	results := make([]sync.Result, len(folders))

	var wg goSync.WaitGroup
	for i, folder := range folders {
		wg.Add(1)
		go func(i int, folder config.Folder) {
			defer wg.Done()
			results[i] = fn(folder)
		}(i, folder)
	}
	wg.Wait()

	report := Report{
		Operation: op,
		Results:   results,
		Duration:  r.clock.Since(start),
	}
	log.WithField("duration", report.Duration).Debug("All folders finished")

	if r.metrics != nil {
		r.metrics.Observe(report, r.clock.Now())
		if err := r.metrics.Write(op); err != nil {
			log.WithError(err).Warn("Failed to write metrics")
		}
	}

	if err := r.hooks.AfterJoin(len(report.Failed()) == 0); err != nil {
		log.WithError(err).Warn("Session hook failed")
	}
	return report
}
