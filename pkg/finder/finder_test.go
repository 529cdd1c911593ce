package finder_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/finder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanFindsOrphanedAsset(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	writeFile(t, root, "textures/wall.dds", "binary")
	writeFile(t, root, "textures/unused.dds", "binary")
	writeFile(t, root, "materials/wall.mtl", `Texture="textures/wall.dds"`)

	res, err := finder.Scan(context.Background(), root, cfg, nil)
	require.NoError(t, err)

	var orphanPaths []string
	for _, o := range res.Orphans {
		orphanPaths = append(orphanPaths, o.Path)
	}
	assert.Contains(t, orphanPaths, "textures/unused.dds")
	assert.NotContains(t, orphanPaths, "textures/wall.dds")
}

func TestScanFindsMissingReferenceWithContainers(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	writeFile(t, root, "materials/wall.mtl", `Texture="textures/missing.dds"`)

	res, err := finder.Scan(context.Background(), root, cfg, nil)
	require.NoError(t, err)

	require.Len(t, res.Missing, 1)
	assert.Equal(t, "textures/missing.dds", res.Missing[0].Path)
	assert.Contains(t, res.Missing[0].Containers, "materials/wall.mtl")
}

func TestScanTextureAliasSuppressesFalseMissing(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	writeFile(t, root, "textures/wall.tif", "binary")
	writeFile(t, root, "materials/wall.mtl", `Texture="textures/wall.dds"`)

	res, err := finder.Scan(context.Background(), root, cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
}

func TestScanReportsTotals(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	writeFile(t, root, "textures/wall.dds", "binary")
	writeFile(t, root, "materials/wall.mtl", `Texture="textures/wall.dds"`)

	res, err := finder.Scan(context.Background(), root, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalAssets)
	assert.Equal(t, 1, res.TotalScanned)
}
