// Package session contains the desktop session hooks that run around a batch
// of folder operations. Hooks run strictly outside the concurrent phase: once
// before any folder task starts, and once after all of them have finished.
package session

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/storage-manager/pkg/errors"
	"github.com/sidkik/storage-manager/pkg/proc"
)

// Hooks are called by the task runner around the folder tasks.
type Hooks interface {
	// BeforeFanOut runs before any folder task is started.
	BeforeFanOut() error

	// AfterJoin runs after every folder task has completed. `succeeded` is
	// false if any folder failed.
	AfterJoin(succeeded bool) error
}

// Noop is a Hooks that does nothing.
type Noop struct{}

// BeforeFanOut does nothing.
func (Noop) BeforeFanOut() error { return nil }

// AfterJoin does nothing.
func (Noop) AfterJoin(bool) error { return nil }

// lockDelay gives the screen locker time to grab the display before the
// folder tasks start loading the machine.
const lockDelay = 2 * time.Second

const schoolLocker = "ft_lock"

// fallbackLockers are used when the school's locker isn't installed. All of
// them are tried since it isn't known which one the desktop responds to.
var fallbackLockers = [][]string{
	{"gnome-screensaver-command", "-l"},
	{"loginctl", "lock-session"},
}

var logoutCommand = []string{"gnome-session-quit", "--logout", "--no-prompt"}

// Desktop locks the screen before the folder tasks, and logs the user out
// once they're done.
type Desktop struct {
	runner proc.Runner
	clock  clockwork.Clock
	log    logrus.FieldLogger
}

// NewDesktop creates a Desktop that runs the session commands with `runner`.
func NewDesktop(runner proc.Runner, log logrus.FieldLogger) Desktop {
	return Desktop{
		runner: runner,
		clock:  clockwork.NewRealClock(),
		log:    log,
	}
}

// BeforeFanOut locks the screen. Failing to lock isn't fatal: the save
// should still happen.
func (d Desktop) BeforeFanOut() error {
	d.log.Info("Locking the screen")

	err := d.runner.Run(schoolLocker)
	var launchErr errors.LaunchError
	if errors.As(err, &launchErr) {
		d.log.Infof("%s isn't available. Falling back to the desktop's screen locker.", schoolLocker)
		err = nil
		locked := false
		for _, cmd := range fallbackLockers {
			lockErr := d.runner.Run(cmd[0], cmd[1:]...)
			if lockErr != nil {
				d.log.WithError(lockErr).Debug("Screen locker failed")
				err = lockErr
				continue
			}
			locked = true
		}
		if locked {
			err = nil
		}
	}

	d.clock.Sleep(lockDelay)
	return errors.WithContext(err, "lock screen")
}

// AfterJoin logs the user out without waiting for the session to end. If any
// folder failed to save, the user stays logged in so that the local copy
// isn't lost.
func (d Desktop) AfterJoin(succeeded bool) error {
	if !succeeded {
		d.log.Warn("Not logging out since some folders failed to save")
		return nil
	}

	d.log.Info("Logging out")
	if err := d.runner.Start(logoutCommand[0], logoutCommand[1:]...); err != nil {
		return errors.WithContext(err, "log out")
	}
	return nil
}
