// Package watcher implements the Filesystem Watcher (spec.md §4.4): it
// subscribes to OS-level file events on the project root recursively,
// classifies each into the event taxonomy spec.md §4.4 names, and dispatches
// to the Reference Index. Grounded on the teacher's pkg/cache/service.go
// watch loop (fsnotify event translation, recursive directory watch
// registration, new-directory rescans), generalized from a dirty-marking
// read-only cache into a writer that must additionally reconcile
// delete+create pairs into renames and respect per-path cooldowns, since
// unlike the teacher's cache it writes back into the tree it watches.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/atomicobject/assetwatch/pkg/atomicio"
	"github.com/atomicobject/assetwatch/pkg/builder"
	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/refindex"
	"github.com/atomicobject/assetwatch/pkg/signals"
	"github.com/fsnotify/fsnotify"
)

// Watcher abstracts the fsnotify backend so tests can substitute a fake,
// mirroring the teacher's pkg/cache.Watcher interface.
type Watcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsNotifyWatcher struct {
	*fsnotify.Watcher
}

func (f *fsNotifyWatcher) Events() <-chan fsnotify.Event { return f.Watcher.Events }
func (f *fsNotifyWatcher) Errors() <-chan error          { return f.Watcher.Errors }

// NewFSNotifyWatcher constructs the default OS-backed Watcher.
func NewFSNotifyWatcher() (Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsNotifyWatcher{Watcher: w}, nil
}

// Service owns one long-lived watcher goroutine for a project root (spec.md
// §5: "one long-lived watcher thread owns the Observer").
type Service struct {
	root string
	cfg  *config.Config
	idx  *refindex.Index
	sink *signals.Sink

	watcher        Watcher
	watcherFactory func() (Watcher, error)

	mu       sync.Mutex
	dirIndex map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService constructs a Service. watcherFactory defaults to
// NewFSNotifyWatcher when nil.
func NewService(root string, cfg *config.Config, idx *refindex.Index, sink *signals.Sink, watcherFactory func() (Watcher, error)) *Service {
	if sink == nil {
		sink = &signals.Sink{}
	}
	if watcherFactory == nil {
		watcherFactory = NewFSNotifyWatcher
	}
	return &Service{
		root:           root,
		cfg:            cfg,
		idx:            idx,
		sink:           sink,
		watcherFactory: watcherFactory,
		dirIndex:       make(map[string]struct{}),
	}
}

// Start removes orphaned atomic-write temp files under root, installs
// recursive directory watches under root and begins processing events in a
// background goroutine. Callers should have already populated idx (e.g. via
// builder.Build + idx.Rebuild) before Start.
func (s *Service) Start(ctx context.Context) error {
	if _, err := atomicio.CleanOrphans(s.root); err != nil {
		s.sink.Log(signals.SeverityWarning, "orphan temp-file cleanup failed: "+err.Error())
	}

	w, err := s.watcherFactory()
	if err != nil {
		s.sink.CriticalError("watcher start failed", err.Error())
		return err
	}
	s.watcher = w

	if err := s.addWatchesRecursive(s.root); err != nil {
		s.sink.CriticalError("initial watch registration failed", err.Error())
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop()
	return nil
}

// Stop unsubscribes the Observer, drains in-flight work, and emits
// watcher-stopped (spec.md §5 cancellation contract).
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	s.sink.WatcherStopped()
}

func (s *Service) addWatchesRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		s.addWatch(path)
		return nil
	})
}

func (s *Service) addWatch(path string) {
	s.mu.Lock()
	if _, ok := s.dirIndex[path]; ok {
		s.mu.Unlock()
		return
	}
	s.dirIndex[path] = struct{}{}
	s.mu.Unlock()
	_ = s.watcher.Add(path)
}

func (s *Service) dropWatch(path string) {
	s.mu.Lock()
	delete(s.dirIndex, path)
	s.mu.Unlock()
}

func (s *Service) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case evt, ok := <-s.watcher.Events():
			if !ok {
				s.sink.CriticalError("watcher failed", "event channel closed")
				return
			}
			s.handleEvent(evt)
		case err, ok := <-s.watcher.Errors():
			if !ok {
				s.sink.CriticalError("watcher failed", "error channel closed")
				return
			}
			s.sink.Log(signals.SeverityWarning, "watcher error: "+err.Error())
		}
	}
}

// handleEvent classifies one fsnotify event per spec.md §4.4's event
// mapping and dispatches to the Index.
func (s *Service) handleEvent(evt fsnotify.Event) {
	switch {
	case evt.Op&fsnotify.Create == fsnotify.Create:
		s.handleCreate(evt.Name)
	case evt.Op&fsnotify.Write == fsnotify.Write:
		s.handleModify(evt.Name)
	case evt.Op&fsnotify.Remove == fsnotify.Remove:
		s.handleDelete(evt.Name)
	case evt.Op&fsnotify.Rename == fsnotify.Rename:
		// fsnotify reports only the old name losing it; the matching create
		// for the new name arrives as a separate event. Treat identically
		// to a delete and let PendingDeletions reconcile it into a rename.
		s.handleDelete(evt.Name)
	}
}

func (s *Service) ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func (s *Service) handleCreate(path string) {
	info, err := os.Stat(path)
	isDir := err == nil && info.IsDir()

	if oldPath, ok := s.idx.MatchPendingDeletion(path); ok {
		s.reconcileRename(oldPath, path, isDir)
		return
	}

	if isDir {
		s.addWatch(path)
		s.rescanDir(path)
		return
	}

	if s.cfg.IsContainer(s.ext(path)) && !s.idx.OnCooldown(path) {
		s.idx.UpsertContainer(path)
	}
}

// reconcileRename classifies a matched delete+create pair (spec.md §4.4
// "rename-by-delete-then-create") as either a directory rename or a file
// rename and dispatches accordingly. A file rename's two consequences are
// independent, not mutually exclusive (spec.md §4.4 lists them as separate
// "if"s): a tracked extension (e.g. .mtl, referenceable by other containers
// without its own extension) triggers rename_asset regardless of whether
// the same file is also a container that must itself be re-indexed under
// its new path.
func (s *Service) reconcileRename(oldPath, newPath string, isDir bool) {
	if isDir {
		s.renameDirectory(oldPath, newPath)
		return
	}

	ext := s.ext(newPath)
	if s.cfg.IsTracked(ext) {
		if err := s.idx.RenameAsset(s.ctx, oldPath, newPath); err != nil {
			s.sink.Log(signals.SeverityError, "rename_asset failed: "+err.Error())
		}
	}
	if s.cfg.IsContainer(ext) && !s.idx.OnCooldown(newPath) {
		s.idx.DropContainer(oldPath)
		s.idx.UpsertContainer(newPath)
	}
}

func (s *Service) renameDirectory(oldDir, newDir string) {
	if !s.cfg.AllowDirChange {
		return
	}
	s.dropWatch(oldDir)
	rebuildFn := func() map[string]map[string]struct{} {
		parsed, err := builder.Build(s.ctx, s.root, s.cfg, s.sink)
		if err != nil {
			s.sink.Log(signals.SeverityError, "rebuild after directory rename failed: "+err.Error())
		}
		return parsed
	}
	if err := s.idx.RenameDirectory(s.ctx, oldDir, newDir, rebuildFn); err != nil {
		s.sink.Log(signals.SeverityError, "rename_directory failed: "+err.Error())
	}
	_ = s.addWatchesRecursive(newDir)
}

func (s *Service) handleModify(path string) {
	if s.cfg.IsContainer(s.ext(path)) && !s.idx.OnCooldown(path) {
		s.idx.UpsertContainer(path)
	}
}

func (s *Service) handleDelete(path string) {
	ext := s.ext(path)
	if s.cfg.IsTracked(ext) || s.cfg.IsContainer(ext) {
		s.idx.RecordPendingDeletion(path)
	}
	s.dropWatch(path)
	if s.cfg.IsContainer(ext) && !s.idx.OnCooldown(path) {
		s.idx.DropContainer(path)
	}
}

// rescanDir refreshes every container already present under a newly
// created directory (e.g. populated by a git checkout or archive extract
// before the watch was registered), recursing into subdirectories.
func (s *Service) rescanDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			s.addWatch(full)
			s.rescanDir(full)
			continue
		}
		if s.cfg.IsContainer(s.ext(full)) {
			s.idx.UpsertContainer(full)
		}
	}
}
