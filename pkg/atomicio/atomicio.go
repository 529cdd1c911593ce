// Package atomicio implements the Atomic Writer (spec.md §4.2): write bytes
// to a path such that external readers see either the old or the new
// complete content, never a partial file. Grounded on the teacher's
// pkg/obsidian/fsutil.go WriteFileAtomic, extended with a PID-suffixed temp
// name, a VCS checkout hook, and startup orphan-temp cleanup.
package atomicio

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atomicobject/assetwatch/pkg/vcs"
)

// TmpSuffix marks a temp file as ours, so CleanOrphans can find it.
const TmpSuffix = ".tmp"

// Writer writes files atomically, consulting a VCS hook before clearing a
// read-only attribute.
type Writer struct {
	Hook vcs.Hook
}

// New returns a Writer using hook for read-only files. A nil hook is
// equivalent to vcs.None{}.
func New(hook vcs.Hook) *Writer {
	if hook == nil {
		hook = vcs.None{}
	}
	return &Writer{Hook: hook}
}

// tmpPath computes path + "." + pid + ".tmp", matching spec.md §4.2 step 1.
func tmpPath(path string) string {
	return fmt.Sprintf("%s.%d%s", path, os.Getpid(), TmpSuffix)
}

// WriteFile writes data to path atomically: write to a PID-suffixed temp
// file in the same directory, sync, chmod, then rename over path. If path
// exists and is not writable, it first tries the VCS checkout hook, falling
// back to clearing the read-only bit.
func (w *Writer) WriteFile(ctx context.Context, path string, data []byte, perm fs.FileMode) error {
	if err := w.ensureWritable(ctx, path); err != nil {
		return err
	}

	tmp := tmpPath(path)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Chmod(perm); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ok = true

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// ensureWritable clears read-only on an existing target, trying the VCS
// hook first (spec.md §4.2 step 3). Non-existent paths are fine: the
// rename in WriteFile creates them fresh.
func (w *Writer) ensureWritable(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode().Perm()&0200 != 0 {
		return nil
	}

	if err := w.Hook.Checkout(ctx, path); err != nil {
		return err
	}
	if info, err = os.Stat(path); err == nil && info.Mode().Perm()&0200 != 0 {
		return nil
	}

	return os.Chmod(path, info.Mode().Perm()|0200)
}

// CleanOrphans removes leftover "*.<pid>.tmp" files under root, left behind
// by a process that crashed before renaming. Called once at startup by
// watcher.Service.Start (spec.md §4.2 contract: "the .tmp suffix is recognizable so startup
// cleanup can remove orphans").
func CleanOrphans(root string) (int, error) {
	removed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isOrphanTmpName(d.Name()) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// isOrphanTmpName reports whether name matches "<base>.<digits>.tmp".
func isOrphanTmpName(name string) bool {
	if !strings.HasSuffix(name, TmpSuffix) {
		return false
	}
	trimmed := strings.TrimSuffix(name, TmpSuffix)
	dot := strings.LastIndex(trimmed, ".")
	if dot < 0 || dot == len(trimmed)-1 {
		return false
	}
	pidPart := trimmed[dot+1:]
	for _, r := range pidPart {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
