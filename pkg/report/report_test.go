package report_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atomicobject/assetwatch/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *report.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reports.db")
	s, err := report.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndListScans(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	start := time.Unix(1000, 0)
	end := time.Unix(1010, 0)
	id, err := s.RecordScan(ctx, report.KindOrphan, "/project", "", "found 2 orphans", start, end, []report.Finding{
		{Path: "textures/unused.dds"},
		{Path: "models/dead.cgf"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	scans, err := s.ListScans(ctx, report.KindOrphan)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, id, scans[0].ID)
	assert.Equal(t, "/project", scans[0].Root)
	assert.Equal(t, "found 2 orphans", scans[0].Summary)

	findings, err := s.Findings(ctx, id)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "models/dead.cgf", findings[0].Path)
}

func TestFindingsPreserveContainerList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.RecordScan(ctx, report.KindMissing, "/project", "", "found 1 broken reference", time.Unix(1, 0), time.Unix(2, 0), []report.Finding{
		{Path: "textures/wall.dds", Containers: []string{"materials/a.mtl", "materials/b.mtl"}},
	})
	require.NoError(t, err)

	findings, err := s.Findings(ctx, id)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, []string{"materials/a.mtl", "materials/b.mtl"}, findings[0].Containers)
}

func TestDuplicateScanRecordsTargetAndBytesSaved(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.RecordScan(ctx, report.KindDuplicate, "/ref", "/target", "saved 4.0 MB", time.Unix(1, 0), time.Unix(2, 0), []report.Finding{
		{Path: "textures/wood.dds", Bytes: 4 * 1024 * 1024},
	})
	require.NoError(t, err)

	scan, ok, err := s.ScanByID(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/target", scan.Target)

	findings, err := s.Findings(ctx, id)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, int64(4*1024*1024), findings[0].Bytes)
}

func TestListScansFiltersByKind(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.RecordScan(ctx, report.KindOrphan, "/project", "", "", time.Unix(1, 0), time.Unix(2, 0), nil)
	require.NoError(t, err)
	_, err = s.RecordScan(ctx, report.KindDuplicate, "/project", "/target", "", time.Unix(3, 0), time.Unix(4, 0), nil)
	require.NoError(t, err)

	orphanScans, err := s.ListScans(ctx, report.KindOrphan)
	require.NoError(t, err)
	assert.Len(t, orphanScans, 1)

	allScans, err := s.ListScans(ctx, "")
	require.NoError(t, err)
	assert.Len(t, allScans, 2)
}

func TestScanByIDMissingReturnsFalse(t *testing.T) {
	s := openStore(t)
	_, ok, err := s.ScanByID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}
