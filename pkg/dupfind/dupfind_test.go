package dupfind_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/dupfind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanDeletesBitExactDuplicate(t *testing.T) {
	refDir := t.TempDir()
	targetDir := t.TempDir()
	writeFile(t, filepath.Join(refDir, "textures/wood.dds"), "same-bytes")
	writeFile(t, filepath.Join(targetDir, "textures/wood.dds"), "same-bytes")

	cfg := config.Default()
	res, err := dupfind.Scan(context.Background(), refDir, targetDir, cfg, nil)
	require.NoError(t, err)

	require.Len(t, res.Deleted, 1)
	assert.Equal(t, "textures/wood.dds", res.Deleted[0].Path)
	assert.Equal(t, int64(len("same-bytes")), res.BytesSaved)

	_, err = os.Stat(filepath.Join(targetDir, "textures/wood.dds"))
	assert.True(t, os.IsNotExist(err))
}

func TestScanKeepsDifferingContent(t *testing.T) {
	refDir := t.TempDir()
	targetDir := t.TempDir()
	writeFile(t, filepath.Join(refDir, "textures/wood.dds"), "version-a")
	writeFile(t, filepath.Join(targetDir, "textures/wood.dds"), "version-b-longer")

	cfg := config.Default()
	res, err := dupfind.Scan(context.Background(), refDir, targetDir, cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Deleted)

	_, err = os.Stat(filepath.Join(targetDir, "textures/wood.dds"))
	assert.NoError(t, err)
}

func TestScanDryRunLeavesFilesInPlace(t *testing.T) {
	refDir := t.TempDir()
	targetDir := t.TempDir()
	writeFile(t, filepath.Join(refDir, "textures/wood.dds"), "same-bytes")
	writeFile(t, filepath.Join(targetDir, "textures/wood.dds"), "same-bytes")

	cfg := config.Default()
	cfg.DryRun = true
	res, err := dupfind.Scan(context.Background(), refDir, targetDir, cfg, nil)
	require.NoError(t, err)
	require.Len(t, res.Deleted, 1)

	_, err = os.Stat(filepath.Join(targetDir, "textures/wood.dds"))
	assert.NoError(t, err)
}

func TestScanRejectsIdenticalFolders(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	_, err := dupfind.Scan(context.Background(), dir, dir, cfg, nil)
	assert.ErrorIs(t, err, dupfind.ErrSameFolder)
}

func TestScanPrunesEmptyDirectoriesAfterDeletion(t *testing.T) {
	refDir := t.TempDir()
	targetDir := t.TempDir()
	writeFile(t, filepath.Join(refDir, "textures/sub/wood.dds"), "same-bytes")
	writeFile(t, filepath.Join(targetDir, "textures/sub/wood.dds"), "same-bytes")

	cfg := config.Default()
	res, err := dupfind.Scan(context.Background(), refDir, targetDir, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RemovedDirs)

	_, err = os.Stat(filepath.Join(targetDir, "textures"))
	assert.True(t, os.IsNotExist(err))
}
