package packer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/atomicio"
	"github.com/atomicobject/assetwatch/pkg/packer"
	"github.com/atomicobject/assetwatch/pkg/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackAndUnpackRoundTrip(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "textures", "wall.dds"), []byte("binary-data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "materials.mtl"), []byte(`Texture="textures/wall.dds"`), 0o644))

	archive := filepath.Join(t.TempDir(), "out.zip")
	var progressed []int
	count, err := packer.Pack(root, archive, nil, func(current, total int) {
		progressed = append(progressed, current)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotEmpty(t, progressed)

	extractDir := t.TempDir()
	w := atomicio.New(vcs.None{})
	unpacked, err := packer.Unpack(context.Background(), archive, extractDir, w)
	require.NoError(t, err)
	assert.Equal(t, 2, unpacked)

	content, err := os.ReadFile(filepath.Join(extractDir, "textures", "wall.dds"))
	require.NoError(t, err)
	assert.Equal(t, "binary-data", string(content))
}

func TestPackFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.dds"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("y"), 0o644))

	archive := filepath.Join(t.TempDir(), "out.zip")
	count, err := packer.Pack(root, archive, []string{".dds"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPackReturnsErrNoFilesWhenNothingMatches(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(t.TempDir(), "out.zip")
	_, err := packer.Pack(root, archive, []string{".doesnotexist"}, nil)
	assert.ErrorIs(t, err, packer.ErrNoFiles)
}
