// Package builder implements the Parallel Index Builder (spec.md §4.5):
// walk a project tree once, fan the parse work for every container file out
// to a worker pool sized to the CPU count, and collate the results into the
// Reference Index's rebuild shape. Grounded on the teacher's
// pkg/embeddings/indexer.go ScanVault (walk + bounded worker fan-out),
// generalized from markdown notes to arbitrary container extensions, and on
// original_source's watcher.py build_index (there a ProcessPoolExecutor;
// here a goroutine pool, since the parse step is pure and Go's scheduler
// makes a process pool unnecessary, per spec.md §5).
package builder

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/handler"
	"github.com/atomicobject/assetwatch/pkg/signals"
)

// ProgressCadence is how many completed parses elapse between
// progress-updated signals, to avoid overwhelming the UI channel (spec.md
// §4.5: "at a coarse cadence, e.g. every 20 completions").
const ProgressCadence = 20

type parseResult struct {
	path string
	refs map[string]struct{}
}

// Build walks root for container files (as named by cfg.Handlers), parses
// each with its handler across a worker pool sized to runtime.NumCPU(), and
// returns the path->reference-set map ready for refindex.Index.Rebuild.
// Individual parse failures are logged and skipped; they do not abort the
// build (spec.md §4.5).
func Build(ctx context.Context, root string, cfg *config.Config, sink *signals.Sink) (map[string]map[string]struct{}, error) {
	if sink == nil {
		sink = &signals.Sink{}
	}

	sink.IndexingStarted()
	defer sink.IndexingFinished()

	paths, err := walkContainers(root, cfg)
	if err != nil {
		return nil, err
	}

	total := len(paths)
	jobs := make(chan string)
	results := make(chan parseResult)

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				h := handler.ForKind(cfg.Handlers[strings.ToLower(filepath.Ext(path))])
				if h == nil {
					continue
				}
				content, err := handler.ReadFile(path)
				if err != nil {
					sink.Log(signals.SeverityWarning, "skipping unreadable container "+path+": "+err.Error())
					continue
				}
				refs := h.Parse(content, cfg.Tracked)
				select {
				case results <- parseResult{path: path, refs: refs}:
				case <-ctx.Done():
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]map[string]struct{}, total)
	completed := 0
	for res := range results {
		out[normPath(res.path)] = res.refs
		completed++
		if completed%ProgressCadence == 0 || completed == total {
			sink.ProgressUpdated(completed, total)
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func normPath(p string) string {
	return strings.ToLower(filepath.ToSlash(p))
}

// walkContainers returns every file under root whose extension has a
// registered handler kind, skipping hidden directories.
func walkContainers(root string, cfg *config.Config) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if cfg.IsContainer(ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
