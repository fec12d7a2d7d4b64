package bootstrap

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// LockPath returns the advisory lock file guarding root. It lives in tempDir
// rather than next to the root, so an uncreatable root cannot prevent
// locking, and removing the root never removes a held lock.
func LockPath(tempDir, root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))

	return filepath.Join(tempDir, "acts-venv-"+hex.EncodeToString(sum[:8])+".lock")
}

// lockPath returns the lock file for this bootstrapper's root.
func (b *Bootstrapper) lockPath() string {
	return LockPath(b.env.TempDir, b.cfg.Root)
}
