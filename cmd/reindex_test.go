package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindexCommandReportsIndexSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "textures", "wall.dds"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "materials.mtl"), []byte(`Texture="textures/wall.dds"`), 0o644))

	rootCmd.SetArgs([]string{"reindex", root})
	err := rootCmd.Execute()
	rootCmd.SetArgs([]string{})

	assert.NoError(t, err)
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	rootCmd.SetArgs([]string{"config"})
	err := rootCmd.Execute()
	rootCmd.SetArgs([]string{})

	assert.NoError(t, err)
}
