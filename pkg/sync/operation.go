package sync

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sidkik/storage-manager/pkg/config"
)

// operation accumulates the Result of a single operation while it runs.
type operation struct {
	result Result
	start  time.Time
	sync   *Synchronizer
	log    logrus.FieldLogger
}

func (s *Synchronizer) begin(op Operation, folder config.Folder) *operation {
	log := s.log.WithFields(logrus.Fields{
		"operation": op,
		"folder":    folder.Name,
	})
	log.Debug("Starting")

	return &operation{
		result: Result{Folder: folder.Name, Operation: op},
		start:  s.clock.Now(),
		sync:   s,
		log:    log,
	}
}

func (op *operation) step(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	op.log.Debug(msg)
	op.result.Steps = append(op.result.Steps, msg)
}

func (op *operation) finish(status Status) Result {
	op.result.Status = status
	op.result.Duration = op.sync.clock.Since(op.start)
	return op.result
}

func (op *operation) succeed() Result {
	op.log.WithField("duration", op.sync.clock.Since(op.start)).Info("Done")
	return op.finish(Succeeded)
}

func (op *operation) skip(why string) Result {
	op.step(why)
	op.log.Info("Skipped: " + why)
	return op.finish(Skipped)
}

func (op *operation) fail(reason Reason, err error) Result {
	op.result.Reason = reason
	op.result.Err = err
	op.log.WithError(err).WithField("reason", reason).Error("Failed")
	return op.finish(Failed)
}
