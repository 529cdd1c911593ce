// Package finder implements the orphan/missing asset scanner (a batch
// companion to the live Reference Index, not part of its real-time core).
// Grounded on original_source/app/tasks/finding.py's UnusedAssetFinder and
// MissingAssetFinder, folded into a single pass here since both need the
// same container parse: orphans and missing references are two disjoint
// views over one reference set. Parses containers in its own worker pool
// (parseAll), the same shape as pkg/builder's (grounded on the teacher's
// pkg/embeddings/indexer.go).
package finder

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/handler"
	"github.com/atomicobject/assetwatch/pkg/report"
	"github.com/atomicobject/assetwatch/pkg/signals"
)

// ProgressCadence mirrors pkg/builder's coarse progress-signal cadence.
const ProgressCadence = 20

// modelExtensions extends cfg.Textures into the full "asset" extension set
// original_source's UnusedAssetFinder scans for (TEXTURE_EXTENSIONS union
// {.cgf, .cga, .chr, .skin}).
var modelExtensions = []string{".cgf", ".cga", ".chr", ".skin"}

// Result holds both disjoint finding sets from one scan pass.
type Result struct {
	Orphans      []report.Finding // assets on disk referenced by nothing
	Missing      []report.Finding // references with no backing file, grouped by reference key
	TotalAssets  int
	TotalScanned int // containers parsed
}

type containerRefs struct {
	path string
	refs map[string]struct{}
}

// Scan walks root, parses every container with the shared handler registry,
// and diffs the union of references against assets actually present on
// disk. Individual unreadable containers are logged and skipped, matching
// spec.md §4.5's "parse failures don't abort the build" rule.
func Scan(ctx context.Context, root string, cfg *config.Config, sink *signals.Sink) (Result, error) {
	if sink == nil {
		sink = &signals.Sink{}
	}
	sink.IndexingStarted()
	defer sink.IndexingFinished()

	assetExts := assetExtensions(cfg)
	assets := make(map[string]string) // stem -> relative path

	var containers []string
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
		if contains(assetExts, ext) {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil {
				stem := stemOf(normPath(rel))
				assets[stem] = normPath(rel)
			}
		}
		if cfg.IsContainer(ext) {
			containers = append(containers, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	parsed, err := parseAll(ctx, containers, cfg, sink)
	if err != nil {
		return Result{}, err
	}

	// union of every reference, by stem, and per-reference-key container list
	referencedStems := make(map[string]struct{})
	containersByRef := make(map[string][]string)
	for _, cr := range parsed {
		rel, relErr := filepath.Rel(root, cr.path)
		if relErr != nil {
			rel = cr.path
		}
		for ref := range cr.refs {
			referencedStems[stemOf(ref)] = struct{}{}
			containersByRef[ref] = append(containersByRef[ref], normPath(rel))
		}
	}

	var orphans []report.Finding
	for stem, rel := range assets {
		if _, ok := referencedStems[stem]; !ok {
			orphans = append(orphans, report.Finding{Path: rel})
		}
	}

	var missing []report.Finding
	checked := make(map[string]bool)
	for ref, holders := range containersByRef {
		if checked[ref] {
			continue
		}
		checked[ref] = true
		if assetExists(root, cfg, ref) {
			continue
		}
		missing = append(missing, report.Finding{Path: ref, Containers: holders})
	}

	return Result{
		Orphans:      orphans,
		Missing:      missing,
		TotalAssets:  len(assets),
		TotalScanned: len(containers),
	}, nil
}

func parseAll(ctx context.Context, paths []string, cfg *config.Config, sink *signals.Sink) ([]containerRefs, error) {
	total := len(paths)
	jobs := make(chan string)
	results := make(chan containerRefs)

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
				case results <- containerRefs{path: path, refs: refs}:
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

	out := make([]containerRefs, 0, total)
	completed := 0
	for res := range results {
		out = append(out, res)
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

// assetExists checks whether a reference key resolves to a real file,
// falling back across texture aliases when cfg allows it (spec.md's
// texture-aliasing rule, same one the live Index applies on rename).
func assetExists(root string, cfg *config.Config, ref string) bool {
	if fileExists(filepath.Join(root, filepath.FromSlash(ref))) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(ref))
	if !cfg.MatchAnyTextureExtension || !cfg.IsTexture(ext) {
		return false
	}
	stem := stemOf(ref)
	for _, alt := range cfg.Textures {
		if fileExists(filepath.Join(root, filepath.FromSlash(stem+alt))) {
			return true
		}
	}
	return false
}

func assetExtensions(cfg *config.Config) []string {
	exts := append([]string{}, cfg.Textures...)
	for _, ext := range modelExtensions {
		if !contains(exts, ext) {
			exts = append(exts, ext)
		}
	}
	return exts
}

func stemOf(p string) string {
	ext := filepath.Ext(p)
	return strings.TrimSuffix(p, ext)
}

func normPath(p string) string {
	return strings.ToLower(filepath.ToSlash(p))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
