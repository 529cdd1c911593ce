package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.Default()

	assert.True(t, cfg.IsContainer(".mtl"))
	assert.True(t, cfg.IsContainer(".lua"))
	assert.Equal(t, config.HandlerAttribute, cfg.Handlers[".mtl"])
	assert.Equal(t, config.HandlerStringLiteral, cfg.Handlers[".lua"])
	assert.True(t, cfg.IsTexture(".dds"))
	assert.True(t, cfg.IsTracked(".cgf"))
	assert.False(t, cfg.IsContainer(".txt"))
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assetwatch.yaml")
	content := `
textures: [".dds", ".png"]
tracked: [".dds", ".png", ".mtl"]
handlers:
  .mtl: attribute
match_any_texture_extension: false
allow_ext_change: false
allow_dir_change: false
dry_run: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{".dds", ".png"}, cfg.Textures)
	assert.False(t, cfg.MatchAnyTextureExtension)
	assert.False(t, cfg.AllowExtChange)
	assert.False(t, cfg.AllowDirChange)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.IsContainer(".mtl"))
	assert.False(t, cfg.IsContainer(".xml"))
}
