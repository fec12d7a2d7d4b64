package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Status describes the on-disk state of an environment.
type Status struct {
	Root         string
	RootExists   bool
	Interpreter  string
	Source       string
	SourceExists bool
	CopyDir      string
	CopyExists   bool

	// InSync is true when the copy holds the same entries, modes, symlink
	// targets and file contents as the source. Installer artifacts (see
	// [IsInstallArtifact]) are ignored on both sides.
	InSync bool

	// Differences lists the slash-separated paths, relative to the copy, that
	// differ between source and copy. Sorted.
	Differences []string
}

// Ready reports whether the environment is created, holds a copy, and the
// copy matches the source.
func (s *Status) Ready() bool {
	return s.RootExists && s.Interpreter != "" && s.CopyExists && s.InSync
}

// Inspect reports the current state of the environment without modifying it.
func (b *Bootstrapper) Inspect(ctx context.Context) (Status, error) {
	st := Status{
		Root:    b.cfg.Root,
		Source:  b.cfg.Source,
		CopyDir: b.CopyDir(),
	}

	var err error

	st.RootExists, err = dirExists(st.Root)
	if err != nil {
		return st, err
	}

	if interp, ok := findInterpreter(st.Root); ok {
		st.Interpreter = interp
	}

	st.SourceExists, err = dirExists(st.Source)
	if err != nil {
		return st, err
	}

	st.CopyExists, err = dirExists(st.CopyDir)
	if err != nil {
		return st, err
	}

	if !st.SourceExists || !st.CopyExists {
		return st, nil
	}

	srcDigest, err := treeDigest(ctx, st.Source)
	if err != nil {
		return st, fmt.Errorf("digest %s: %w", st.Source, err)
	}

	copyDigest, err := treeDigest(ctx, st.CopyDir)
	if err != nil {
		return st, fmt.Errorf("digest %s: %w", st.CopyDir, err)
	}

	st.Differences = diffDigests(srcDigest, copyDigest)
	st.InSync = len(st.Differences) == 0

	return st, nil
}

// Clean removes the environment root. A missing root is not an error. A root
// that holds anything besides an environment fails with [ErrNotEnvironment]
// and is left untouched.
func (b *Bootstrapper) Clean(ctx context.Context) error {
	unlock, err := AcquireLock(ctx, b.lockPath())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	defer func() { _ = unlock() }()

	err = b.checkEnvironmentRoot()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	err = removeAll(b.cfg.Root)
	if err != nil {
		return fmt.Errorf("bootstrap: removing %s: %w", b.cfg.Root, err)
	}

	b.debugf("bootstrap(clean): removed %s", b.cfg.Root)

	return nil
}

// checkEnvironmentRoot accepts a missing or empty root, a root with
// pyvenv.cfg or an interpreter, and a root holding only the source copy (a
// run whose creation step failed).
func (b *Bootstrapper) checkEnvironmentRoot() error {
	entries, err := os.ReadDir(b.cfg.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("reading %s: %w", b.cfg.Root, err)
	}

	if len(entries) == 0 {
		return nil
	}

	_, err = os.Stat(filepath.Join(b.cfg.Root, "pyvenv.cfg"))
	if err == nil {
		return nil
	}

	if _, ok := findInterpreter(b.cfg.Root); ok {
		return nil
	}

	copyName := filepath.Base(b.CopyDir())
	if len(entries) == 1 && entries[0].Name() == copyName && entries[0].IsDir() {
		return nil
	}

	return fmt.Errorf("%w: %s has no pyvenv.cfg or interpreter", ErrNotEnvironment, b.cfg.Root)
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	return info.IsDir(), nil
}

// installArtifactDirs are written into the source tree by setup.py develop
// and pip install -e.
var installArtifactDirs = []string{"__pycache__", "build", ".eggs"}

// IsInstallArtifact reports whether an entry named name is produced by the
// installer rather than copied from the source.
func IsInstallArtifact(name string) bool {
	return strings.HasSuffix(name, ".egg-info") || slices.Contains(installArtifactDirs, name)
}

// treeDigest maps every entry below root, installer artifacts excepted, to a
// description of its type, permissions and content.
func treeDigest(ctx context.Context, root string) (map[string]string, error) {
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, err
	}

	digest := make(map[string]string)

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		err = ctx.Err()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		if IsInstallArtifact(entry.Name()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		key := filepath.ToSlash(rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			digest[key] = fmt.Sprintf("dir %04o", info.Mode().Perm())
		case entry.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}

			digest[key] = "link " + link
		case entry.Type().IsRegular():
			sum, err := fileSHA256(path)
			if err != nil {
				return err
			}

			digest[key] = fmt.Sprintf("file %04o %s", info.Mode().Perm(), sum)
		}

		return nil
	})

	return digest, err
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	defer func() { _ = f.Close() }()

	h := sha256.New()

	_, err = io.Copy(h, f)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func diffDigests(a, b map[string]string) []string {
	var diffs []string

	for k, va := range a {
		if vb, ok := b[k]; !ok || va != vb {
			diffs = append(diffs, k)
		}
	}

	for k := range b {
		if _, ok := a[k]; !ok {
			diffs = append(diffs, k)
		}
	}

	slices.Sort(diffs)

	return diffs
}
