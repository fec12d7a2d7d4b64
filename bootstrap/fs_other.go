//go:build !unix

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// AcquireLock creates the lock file but does not lock it; advisory locks are
// only implemented on unix.
func AcquireLock(_ context.Context, path string) (func() error, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	return func() error { return file.Close() }, nil
}

// checkWritable is a no-op; the creation tool reports permission errors.
func checkWritable(string) error {
	return nil
}
