package project

import (
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"rcsbsync/internal/logging"
	"rcsbsync/internal/services"
)

// Lock serializes sync runs against one project directory. Concurrent runs
// would race on the obsolete-marking renames, so a second invocation must
// fail fast instead of queueing.
type Lock struct {
	flock  *flock.Flock
	path   string
	logger *slog.Logger
}

// NewLock creates the run lock for a project.
func NewLock(layout Layout, logger *slog.Logger) *Lock {
	if logger == nil {
		logger = logging.NewNop()
	}
	path := layout.LockPath()
	return &Lock{
		flock:  flock.New(path),
		path:   path,
		logger: logging.NewComponentLogger(logger, "project"),
	}
}

// Acquire takes the lock without blocking. A held lock reports
// ErrAlreadyRunning so the caller can exit with a clear message instead of
// waiting behind an unknown run.
func (l *Lock) Acquire() error {
	ok, err := l.flock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "project", "lock", l.path, err)
	}
	if !ok {
		return services.Wrap(services.ErrAlreadyRunning, "project", "lock",
			fmt.Sprintf("another sync run holds %s", l.path), nil)
	}
	l.logger.Debug("run lock acquired", logging.String("path", l.path))
	return nil
}

// Release drops the lock. Failures are logged, not returned: the run is
// already over and the OS releases the lock on exit anyway.
func (l *Lock) Release() {
	if err := l.flock.Unlock(); err != nil {
		l.logger.Warn("failed to release run lock",
			logging.String("path", l.path),
			logging.Error(err))
		return
	}
	l.logger.Debug("run lock released", logging.String("path", l.path))
}
