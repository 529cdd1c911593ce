// Package refindex implements the bidirectional Reference Index (spec.md
// §4.3): a forward map (container -> references) and a reverse map
// (reference -> containers) kept symmetric under one lock, plus the
// cooldown and pending-deletion bookkeeping the Filesystem Watcher needs to
// avoid feedback loops and to recognize delete+create as rename.
package refindex

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atomicobject/assetwatch/pkg/atomicio"
	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/handler"
	"github.com/atomicobject/assetwatch/pkg/signals"
)

// Cooldown is the suppression window applied to every path the core writes
// (spec.md §5 "Feedback-loop avoidance").
const Cooldown = 2 * time.Second

// MoveReconciliationWindow is how long a PendingDeletions entry stays alive
// waiting to be paired with a matching create, classifying the pair as a
// rename (spec.md §4.4).
const MoveReconciliationWindow = 1 * time.Second

// pendingDeletion records a deleted path and when it vanished; Index.pending
// keys it by basename.
type pendingDeletion struct {
	path string
	at   time.Time
}

// Index is the bidirectional reference index. Zero value is not usable; use
// New.
type Index struct {
	cfg    *config.Config
	root   string
	writer *atomicio.Writer
	sink   *signals.Sink

	mu      sync.Mutex
	forward map[string]map[string]struct{} // container path -> set of reference keys
	reverse map[string]map[string]struct{} // reference key -> set of container paths
	cooldown map[string]time.Time
	pending  map[string]pendingDeletion // basename -> deletion record
}

// New constructs an empty Index rooted at root.
func New(root string, cfg *config.Config, writer *atomicio.Writer, sink *signals.Sink) *Index {
	if sink == nil {
		sink = &signals.Sink{}
	}
	return &Index{
		cfg:      cfg,
		root:     root,
		writer:   writer,
		sink:     sink,
		forward:  make(map[string]map[string]struct{}),
		reverse:  make(map[string]map[string]struct{}),
		cooldown: make(map[string]time.Time),
		pending:  make(map[string]pendingDeletion),
	}
}

// normPath returns the canonical case-insensitive, slash-normalized form of
// an absolute path, used as a map key (spec.md §9 open question: path
// comparison is case-insensitive, preserving the original source's
// behavior). On a case-sensitive filesystem this over-matches: paths that
// differ only in case share one key.
func normPath(p string) string {
	p = filepath.ToSlash(p)
	return strings.ToLower(p)
}

// relKey converts an absolute filesystem path into the project-relative,
// normalized reference-key form that Handler.Parse extracts from container
// content (e.g. "textures/wall.dds"), mirroring the original source's
// Path.relative_to(root_path). Reverse/forward keys are always relative;
// a path already relative to idx.root round-trips unchanged. A path outside
// idx.root yields a "../"-prefixed key; if filepath.Rel fails, path is
// normalized as-is rather than erroring, matching pkg/finder's tolerant
// handling of a failed filepath.Rel.
func (idx *Index) relKey(path string) string {
	rel, err := filepath.Rel(idx.root, path)
	if err != nil {
		rel = path
	}
	return normPath(rel)
}

// OnCooldown reports whether path is currently suppressed.
func (idx *Index) OnCooldown(path string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.onCooldownLocked(path)
}

func (idx *Index) onCooldownLocked(path string) bool {
	until, ok := idx.cooldown[normPath(path)]
	if !ok {
		return false
	}
	return time.Now().Before(until)
}

// setCooldownLocked marks path as self-written until now+Cooldown.
func (idx *Index) setCooldownLocked(path string) {
	idx.cooldown[normPath(path)] = time.Now().Add(Cooldown)
}

// RecordPendingDeletion notes that path was deleted just now, keyed by
// basename, for the watcher's delete+create rename reconciliation.
func (idx *Index) RecordPendingDeletion(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pending[filepath.Base(path)] = pendingDeletion{path: path, at: time.Now()}
}

// MatchPendingDeletion looks up a live (younger than MoveReconciliationWindow)
// pending deletion for createdPath, consuming it if found. It first tries an
// exact basename match (spec.md §4.4's literal rule, covering same-name
// editor-save and same-name directory-move patterns). fsnotify cannot
// correlate a rename's old and new names when the basename itself changes
// (no rename-cookie support is available in the pack), so as a fallback,
// when createdPath's basename has no match, a single still-live pending
// deletion sharing createdPath's extension is accepted as a probable rename
// pair — but only when exactly one such candidate exists, to avoid
// misattributing an ambiguous batch of concurrent deletes. Returns
// ("", false) if no live match exists.
func (idx *Index) MatchPendingDeletion(createdPath string) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	base := filepath.Base(createdPath)
	if pd, ok := idx.pending[base]; ok {
		delete(idx.pending, base)
		if time.Since(pd.at) > MoveReconciliationWindow {
			return "", false
		}
		return pd.path, true
	}

	ext := strings.ToLower(filepath.Ext(createdPath))
	var soleMatch string
	var soleKey string
	candidates := 0
	for key, pd := range idx.pending {
		if time.Since(pd.at) > MoveReconciliationWindow {
			continue
		}
		if strings.ToLower(filepath.Ext(pd.path)) != ext {
			continue
		}
		candidates++
		soleMatch = pd.path
		soleKey = key
	}
	if candidates == 1 {
		delete(idx.pending, soleKey)
		return soleMatch, true
	}
	return "", false
}

// handlerFor resolves the Handler for path's extension, or nil if path is
// not a container.
func (idx *Index) handlerFor(path string) handler.Handler {
	ext := strings.ToLower(filepath.Ext(path))
	kind, ok := idx.cfg.Handlers[ext]
	if !ok {
		return nil
	}
	return handler.ForKind(kind)
}

// parse reads and parses path with its handler, returning the normalized
// reference-key set. ok is false if path is unreadable or not a container.
func (idx *Index) parse(path string) (refs map[string]struct{}, ok bool) {
	h := idx.handlerFor(path)
	if h == nil {
		return nil, false
	}
	content, err := handler.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return h.Parse(content, idx.cfg.Tracked), true
}

// Snapshot is a point-in-time, deep-copied view of both maps, for tests and
// MCP queries.
type Snapshot struct {
	Forward map[string]map[string]struct{}
	Reverse map[string]map[string]struct{}
}

// Snapshot returns a deep copy of the current forward/reverse maps.
func (idx *Index) Snapshot() Snapshot {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return Snapshot{
		Forward: deepCopy(idx.forward),
		Reverse: deepCopy(idx.reverse),
	}
}

func deepCopy(m map[string]map[string]struct{}) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(m))
	for k, set := range m {
		cp := make(map[string]struct{}, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		out[k] = cp
	}
	return out
}

// Containers returns the containers currently referencing ref (reverse
// lookup), or nil if none.
func (idx *Index) Containers(ref string) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	set, ok := idx.reverse[normPath(ref)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// References returns the reference set of container (forward lookup), or
// nil if container is not indexed.
func (idx *Index) References(container string) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	set, ok := idx.forward[normPath(container)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	return out
}

// Stats reports the current container/reference counts.
type Stats struct {
	Containers int
	References int
}

func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return Stats{Containers: len(idx.forward), References: len(idx.reverse)}
}

// removeFromReverseLocked deletes container from reverse[ref], dropping the
// reverse entry entirely once empty (spec.md §8 invariant: "no reverse
// entry is an empty set").
func (idx *Index) removeFromReverseLocked(ref, container string) {
	set, ok := idx.reverse[ref]
	if !ok {
		return
	}
	delete(set, container)
	if len(set) == 0 {
		delete(idx.reverse, ref)
	}
}

func (idx *Index) addToReverseLocked(ref, container string) {
	set, ok := idx.reverse[ref]
	if !ok {
		set = make(map[string]struct{})
		idx.reverse[ref] = set
	}
	set[container] = struct{}{}
}

// UpsertContainer re-parses path, diffs against its previous reference set,
// and updates both maps (spec.md §4.3 upsert_container). A no-op if path is
// on cooldown or unreadable.
func (idx *Index) UpsertContainer(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.upsertContainerLocked(path)
}

func (idx *Index) upsertContainerLocked(path string) {
	key := normPath(path)
	if idx.onCooldownLocked(path) {
		return
	}
	refs, ok := idx.parse(path)
	if !ok {
		return
	}

	old := idx.forward[key]
	for ref := range old {
		if _, keep := refs[ref]; !keep {
			idx.removeFromReverseLocked(ref, key)
		}
	}
	for ref := range refs {
		idx.addToReverseLocked(ref, key)
	}
	idx.forward[key] = refs
}

// DropContainer removes path's forward entry and its membership in every
// reverse entry it held (spec.md §4.3 drop_container).
func (idx *Index) DropContainer(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.dropContainerLocked(path)
}

func (idx *Index) dropContainerLocked(path string) {
	key := normPath(path)
	refs, ok := idx.forward[key]
	if !ok {
		return
	}
	for ref := range refs {
		idx.removeFromReverseLocked(ref, key)
	}
	delete(idx.forward, key)
}

// Rebuild clears both maps and repopulates them from containerPaths, each
// pre-parsed into its reference set by the caller (the Parallel Index
// Builder does the parallel walk+parse; Rebuild just installs the result,
// spec.md §4.3 rebuild / §4.5).
func (idx *Index) Rebuild(parsed map[string]map[string]struct{}) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.forward = make(map[string]map[string]struct{}, len(parsed))
	idx.reverse = make(map[string]map[string]struct{})
	for path, refs := range parsed {
		key := normPath(path)
		idx.forward[key] = refs
		for ref := range refs {
			idx.addToReverseLocked(ref, key)
		}
	}
}

// textureVariants expands relKey (an already root-relative, normalized
// reference key) into every TextureExtensions alias sharing its stem, when
// the file is a texture and match_any_texture_extension is set (spec.md
// §4.3 rename_asset step 1).
func (idx *Index) textureVariants(relKey string) []string {
	ext := strings.ToLower(filepath.Ext(relKey))
	if !idx.cfg.MatchAnyTextureExtension || !idx.cfg.IsTexture(ext) {
		return []string{relKey}
	}
	stem := strings.TrimSuffix(relKey, ext)
	variants := make([]string, 0, len(idx.cfg.Textures))
	for _, texExt := range idx.cfg.Textures {
		variants = append(variants, stem+texExt)
	}
	return variants
}

// mtlVariants adds the extensionless form for .mtl references (spec.md §4.3
// rename_asset step 1: "materials may be referenced without .mtl"). relKey
// is already root-relative and normalized.
func mtlVariants(relKey string) []string {
	if strings.ToLower(filepath.Ext(relKey)) != ".mtl" {
		return nil
	}
	return []string{strings.TrimSuffix(relKey, filepath.Ext(relKey))}
}

// candidateVariants computes every reference-key form that might refer to
// the asset at path (an absolute filesystem path), per spec.md §4.3
// rename_asset step 1. path is relativized against idx.root first, since
// reverse/forward keys are always project-relative. When allow_ext_change
// is false, expansion is disabled and the literal relative key is the only
// candidate (spec.md §4.4 "allow_ext_change": reference-key expansion is
// limited to the exact original extension on rename).
func (idx *Index) candidateVariants(path string) []string {
	rel := idx.relKey(path)
	if !idx.cfg.AllowExtChange {
		return []string{rel}
	}
	variants := idx.textureVariants(rel)
	variants = append(variants, mtlVariants(rel)...)
	return variants
}

// RenameAsset rewrites every container referencing oldPath so it now
// references newPath, expanding texture aliases and the extensionless .mtl
// form per spec.md §4.3 rename_asset.
func (idx *Index) RenameAsset(ctx context.Context, oldPath, newPath string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	oldVariants := idx.candidateVariants(oldPath)
	newVariants := idx.candidateVariants(newPath)
	if len(oldVariants) != len(newVariants) {
		// Mismatched shapes (e.g. extension changed in an unexpected way):
		// fall back to a single exact-path replacement.
		oldVariants = []string{idx.relKey(oldPath)}
		newVariants = []string{idx.relKey(newPath)}
	}

	allVariants := make(map[string]string, len(oldVariants))
	for i, ov := range oldVariants {
		allVariants[ov] = newVariants[i]
	}

	affected := make(map[string]struct{})
	for _, ov := range oldVariants {
		for c := range idx.reverse[ov] {
			affected[c] = struct{}{}
		}
	}

	for container := range affected {
		// Restrict to the variants this container actually references, so a
		// rename never manufactures reverse entries for aliases that were
		// never present (spec.md §8 invariant: reverse/forward symmetry).
		refs := idx.forward[container]
		actual := make(map[string]string)
		for old, nw := range allVariants {
			if _, present := refs[old]; present {
				actual[old] = nw
			}
		}
		if len(actual) == 0 {
			continue
		}
		if err := idx.rewriteContainerLocked(ctx, container, actual, false); err != nil {
			idx.sink.Log(signals.SeverityError, "rewrite failed for "+container+": "+err.Error())
			continue
		}
		for old, nw := range actual {
			idx.removeFromReverseLocked(old, container)
			idx.addToReverseLocked(nw, container)
			delete(refs, old)
			refs[nw] = struct{}{}
		}
	}
	return nil
}

// RenameDirectory rewrites every container with a reference under oldDir
// into one under newDir, then triggers a full rebuild (spec.md §4.3
// rename_directory). No-op if allow_dir_change is false. rebuildFn returns
// the freshly re-walked+parsed container set for the post-rewrite rebuild.
func (idx *Index) RenameDirectory(ctx context.Context, oldDir, newDir string, rebuildFn func() map[string]map[string]struct{}) error {
	if !idx.cfg.AllowDirChange {
		return nil
	}

	idx.mu.Lock()
	oldDirRel, newDirRel := idx.relKey(oldDir), idx.relKey(newDir)
	oldPrefix := oldDirRel + "/"
	affected := make(map[string]struct{})
	for container, refs := range idx.forward {
		for ref := range refs {
			if strings.HasPrefix(ref, oldPrefix) {
				affected[container] = struct{}{}
				break
			}
		}
	}
	replacements := map[string]string{oldDirRel: newDirRel}
	for container := range affected {
		if err := idx.rewriteContainerLocked(ctx, container, replacements, true); err != nil {
			idx.sink.Log(signals.SeverityError, "directory rewrite failed for "+container+": "+err.Error())
		}
	}
	idx.mu.Unlock()

	// rebuildFn (the Parallel Index Builder) emits indexing-started/finished
	// and progress itself; a full rebuild is simpler than incrementally
	// fixing every affected reference key (spec.md §4.3 rename_directory
	// step 3).
	parsed := rebuildFn()
	idx.Rebuild(parsed)
	return nil
}

// rewriteContainerLocked applies replacements to container via its Handler
// and writes the result atomically, setting a cooldown on success. Caller
// holds idx.mu.
func (idx *Index) rewriteContainerLocked(ctx context.Context, container string, replacements map[string]string, isDirMove bool) error {
	h := idx.handlerFor(container)
	if h == nil {
		return nil
	}
	content, err := handler.ReadFile(container)
	if err != nil {
		return err
	}
	out, changed := h.Rewrite(content, replacements, isDirMove, idx.cfg.Tracked)
	if !changed {
		return nil
	}
	if idx.cfg.DryRun {
		idx.sink.Log(signals.SeverityInfo, "dry-run: would rewrite "+container)
		return nil
	}
	if err := idx.writer.WriteFile(ctx, container, out, 0644); err != nil {
		return err
	}
	idx.setCooldownLocked(container)
	return nil
}
