//go:build unix

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// lockPollInterval is how often a blocked AcquireLock retries.
const lockPollInterval = 100 * time.Millisecond

// AcquireLock takes an exclusive advisory lock on path, creating the file and
// its parent directories if needed. It blocks until the lock is acquired or
// ctx is done. The returned release function is safe to call more than once.
func AcquireLock(ctx context.Context, path string) (func() error, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	fd := int(file.Fd())

	for {
		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = file.Close()

			return nil, fmt.Errorf("lock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			_ = file.Close()

			return nil, fmt.Errorf("lock %s: %w", path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}

	released := false

	return func() error {
		if released {
			return nil
		}

		released = true

		unlockErr := unix.Flock(fd, unix.LOCK_UN)
		closeErr := file.Close()

		return errors.Join(unlockErr, closeErr)
	}, nil
}

// checkWritable reports whether directory path can be created or written:
// path itself if it exists, otherwise its nearest existing ancestor. The
// entry found must be a directory.
func checkWritable(path string) error {
	existing := path

	for {
		info, err := os.Stat(existing)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%w: %s: %s is not a directory", ErrNotWritable, path, existing)
			}

			break
		}

		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrNotWritable, path, err)
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			return fmt.Errorf("%w: %s: no existing ancestor", ErrNotWritable, path)
		}

		existing = parent
	}

	err := unix.Access(existing, unix.W_OK)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotWritable, existing, err)
	}

	return nil
}
