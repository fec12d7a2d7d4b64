package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"
)

// copyParallelism bounds concurrent regular-file copies.
const copyParallelism = 8

// copyTree replaces dst with a copy of the directory src.
//
// Directories are created in walk order and receive src's permissions once
// all files are written, so read-only source directories still copy.
// Regular files are copied concurrently and keep their permission bits.
// Symlinks are recreated with the same target, never followed. Other file
// types (sockets, devices, pipes) are skipped.
//
// Parent directories of dst are created as needed.
func copyTree(ctx context.Context, src, dst string, debugf Debugf) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source %s: %w", src, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("source %s: not a directory", src)
	}

	// WalkDir does not descend into a symlinked root.
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return fmt.Errorf("source %s: %w", src, err)
	}

	src = resolved

	err = removeAll(dst)
	if err != nil {
		return fmt.Errorf("removing previous copy %s: %w", dst, err)
	}

	type dirMode struct {
		path string
		mode fs.FileMode
	}

	var dirs []dirMode

	files := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(copyParallelism)

	walkErr := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		err = groupCtx.Err()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		switch {
		case entry.IsDir():
			entryInfo, err := entry.Info()
			if err != nil {
				return err
			}

			err = os.MkdirAll(target, 0o755)
			if err != nil {
				return err
			}

			dirs = append(dirs, dirMode{path: target, mode: entryInfo.Mode().Perm()})

		case entry.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}

			err = os.Symlink(link, target)
			if err != nil {
				return err
			}

		case entry.Type().IsRegular():
			entryInfo, err := entry.Info()
			if err != nil {
				return err
			}

			mode := entryInfo.Mode().Perm()
			files++

			group.Go(func() error {
				return copyFile(path, target, mode)
			})

		default:
			if debugf != nil {
				debugf("bootstrap(copy): skipping %s (%s)", path, entry.Type())
			}
		}

		return nil
	})

	groupErr := group.Wait()

	// A failed copy cancels groupCtx, which stops the walk with a context
	// error that only repeats groupErr.
	if groupErr != nil && errors.Is(walkErr, context.Canceled) && ctx.Err() == nil {
		walkErr = nil
	}

	err = errors.Join(walkErr, groupErr)
	if err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}

	// Deepest first, so restricting a parent never blocks a child.
	for _, d := range slices.Backward(dirs) {
		err = os.Chmod(d.path, d.mode)
		if err != nil {
			return fmt.Errorf("copying %s to %s: %w", src, dst, err)
		}
	}

	if debugf != nil {
		debugf("bootstrap(copy): %s -> %s (%d dirs, %d files)", src, dst, len(dirs), files)
	}

	return nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if err != nil {
		_ = out.Close()

		return err
	}

	err = out.Close()
	if err != nil {
		return err
	}

	// Set explicitly; OpenFile's mode is subject to the umask.
	return os.Chmod(dst, mode)
}

// removeAll is os.RemoveAll that also removes trees containing read-only
// directories, which copyTree reproduces from the source.
func removeAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}

	_ = filepath.WalkDir(path, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr == nil && entry.IsDir() {
			_ = os.Chmod(p, 0o700)
		}

		return nil
	})

	return os.RemoveAll(path)
}
