package workenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Lock is an exclusive PID lock file on a cache folder.
type Lock struct {
	path   string
	logger hclog.Logger
}

// TryAcquireLock attempts to take the lock at path. A lock left by a dead
// process is removed first. A lock held by a live process yields ErrLocked.
func TryAcquireLock(path string, logger hclog.Logger) (*Lock, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	// Check for stale lock first
	if data, err := os.ReadFile(path); err == nil {
		logger.Debug("🔍 Lock file exists, checking if it's stale...")
		contents := strings.TrimSpace(string(data))
		if oldPid, err := strconv.Atoi(contents); err != nil {
			logger.Info("🧹 Removing invalid lock file (couldn't parse PID)")
			os.Remove(path)
		} else if !IsProcessRunning(oldPid) {
			logger.Info("🧹 Removing stale lock from dead process", "pid", oldPid)
			os.Remove(path)
		} else {
			logger.Debug("🔒 Lock held by active process", "pid", oldPid)
			return nil, fmt.Errorf("%w: %s held by pid %d", recipeerrors.ErrLocked, path, oldPid)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", recipeerrors.ErrLocked, path)
		}
		return nil, err
	}
	defer file.Close()

	pid := os.Getpid()
	if _, err := fmt.Fprintf(file, "%d\n", pid); err != nil {
		os.Remove(path)
		return nil, err
	}

	logger.Debug("🔒 Acquired lock", "pid", pid, "path", path)
	return &Lock{path: path, logger: logger}, nil
}

// AcquireLock waits until the lock at path can be taken or ctx is done.
func AcquireLock(ctx context.Context, path string, poll time.Duration, logger hclog.Logger) (*Lock, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		lock, err := TryAcquireLock(path, logger)
		if err == nil || !errors.Is(err, recipeerrors.ErrLocked) {
			return lock, err
		}
		if attempt%10 == 0 {
			logger.Info("⏳ Waiting for another fmtpack process", "lock", path)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", err, ctx.Err())
		case <-time.After(poll):
		}
	}
}

// Release removes the lock file.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	if err := os.Remove(l.path); err != nil {
		l.logger.Debug("⚠️ Failed to remove lock file", "error", err)
	} else {
		l.logger.Debug("🔓 Released lock", "path", l.path)
	}
}
