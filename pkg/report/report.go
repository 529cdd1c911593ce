// Package report persists the results of the auxiliary batch scanners
// (orphan/missing asset finder, duplicate finder) across CLI invocations,
// keyed by a scan UUID and timestamp so a later run can list past scans
// without re-walking the tree, or compare a fresh scan against a recorded
// one. This is deliberately the only
// cross-run persistence in the whole module: the live Reference Index
// itself is never written to disk, per its own non-goal. Grounded on the
// teacher's pkg/embeddings/sqlite/store.go (schema-on-open, prepared
// statement shape), narrowed from an embedding vector store down to flat
// scan/finding rows.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Kind distinguishes the scan that produced a set of findings.
type Kind string

const (
	KindOrphan    Kind = "orphan"
	KindMissing   Kind = "missing"
	KindDuplicate Kind = "duplicate"
)

// Scan is one completed batch-scan run.
type Scan struct {
	ID         string
	Kind       Kind
	Root       string
	Target     string // target folder, duplicate scans only
	Summary    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Finding is one reported item within a Scan (an orphaned asset, a broken
// reference and its referencing containers, or a deleted duplicate).
type Finding struct {
	Path       string
	Containers []string // referencing containers, missing-reference findings only
	Bytes      int64    // bytes reclaimed, duplicate findings only
}

// Store implements the sqlite-backed report cache.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the report database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("report store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS scans (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			root        TEXT NOT NULL,
			target      TEXT,
			summary     TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scans_kind_started ON scans(kind, started_at);`,
		`CREATE TABLE IF NOT EXISTS findings (
			id         INTEGER PRIMARY KEY,
			scan_id    TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
			path       TEXT NOT NULL,
			containers TEXT,
			bytes      INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_findings_scan_id ON findings(scan_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordScan inserts a completed scan and its findings as one transaction.
// The scan ID is generated here and returned so callers can reference it
// immediately (e.g. to print "scan <id> complete").
func (s *Store) RecordScan(ctx context.Context, kind Kind, root, target, summary string, startedAt, finishedAt time.Time, findings []Finding) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, kind, root, target, summary, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, string(kind), root, target, summary, startedAt.Unix(), finishedAt.Unix())
	if err != nil {
		return "", err
	}

	for _, f := range findings {
		containers := joinContainers(f.Containers)
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO findings (scan_id, path, containers, bytes)
			VALUES (?, ?, ?, ?)
		`, id, f.Path, containers, f.Bytes); err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListScans returns scans of the given kind, most recent first. Pass an
// empty kind to list across all kinds.
func (s *Store) ListScans(ctx context.Context, kind Kind) ([]Scan, error) {
	var rows *sql.Rows
	var err error
	if kind == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, kind, root, target, summary, started_at, finished_at
			FROM scans ORDER BY started_at DESC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, kind, root, target, summary, started_at, finished_at
			FROM scans WHERE kind = ? ORDER BY started_at DESC
		`, string(kind))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var sc Scan
		var kindStr string
		var target sql.NullString
		var started, finished int64
		if err := rows.Scan(&sc.ID, &kindStr, &sc.Root, &target, &sc.Summary, &started, &finished); err != nil {
			return nil, err
		}
		sc.Kind = Kind(kindStr)
		sc.Target = target.String
		sc.StartedAt = time.Unix(started, 0)
		sc.FinishedAt = time.Unix(finished, 0)
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// Findings returns the findings recorded for a scan.
func (s *Store) Findings(ctx context.Context, scanID string) ([]Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, containers, bytes FROM findings WHERE scan_id = ? ORDER BY path
	`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		var containers sql.NullString
		if err := rows.Scan(&f.Path, &containers, &f.Bytes); err != nil {
			return nil, err
		}
		f.Containers = splitContainers(containers.String)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// ScanByID returns a single scan's metadata.
func (s *Store) ScanByID(ctx context.Context, id string) (Scan, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, root, target, summary, started_at, finished_at
		FROM scans WHERE id = ?
	`, id)
	var sc Scan
	var kindStr string
	var target sql.NullString
	var started, finished int64
	if err := row.Scan(&sc.ID, &kindStr, &sc.Root, &target, &sc.Summary, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scan{}, false, nil
		}
		return Scan{}, false, err
	}
	sc.Kind = Kind(kindStr)
	sc.Target = target.String
	sc.StartedAt = time.Unix(started, 0)
	sc.FinishedAt = time.Unix(finished, 0)
	return sc, true, nil
}

const containerSep = "\x1f"

func joinContainers(cs []string) string {
	if len(cs) == 0 {
		return ""
	}
	out := cs[0]
	for _, c := range cs[1:] {
		out += containerSep + c
	}
	return out
}

func splitContainers(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i:i+1] == containerSep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
