package builder_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/builder"
	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestBuildWalksAndParsesContainers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mat.mtl"), `Texture="textures/wall.dds"`)
	writeFile(t, filepath.Join(root, "sub", "script.lua"), `require("scripts/init.lua")`)
	writeFile(t, filepath.Join(root, "ignored.txt"), "not a container")

	cfg := config.Default()
	parsed, err := builder.Build(context.Background(), root, cfg, nil)
	require.NoError(t, err)
	assert.Len(t, parsed, 2)

	found := false
	for path, refs := range parsed {
		if filepath.Base(path) == "mat.mtl" {
			found = true
			assert.Contains(t, refs, "textures/wall.dds")
		}
	}
	assert.True(t, found)
}

func TestBuildSkipsHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "fake.mtl"), `Texture="x.dds"`)

	cfg := config.Default()
	parsed, err := builder.Build(context.Background(), root, cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestBuildEmitsProgress(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		writeFile(t, filepath.Join(root, "m"+string(rune('0'+i))+".mtl"), `Texture="x.dds"`)
	}

	cfg := config.Default()
	var lastCurrent, lastTotal int
	calls := 0
	sink := &signals.Sink{OnProgressUpdated: func(current, total int) {
		calls++
		lastCurrent, lastTotal = current, total
	}}

	_, err := builder.Build(context.Background(), root, cfg, sink)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 1)
	assert.Equal(t, 3, lastTotal)
	assert.Equal(t, 3, lastCurrent)
}
