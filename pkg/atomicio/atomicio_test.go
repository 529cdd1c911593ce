package atomicio_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/atomicio"
	"github.com/atomicobject/assetwatch/pkg/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.mtl")
	w := atomicio.New(nil)

	err := w.WriteFile(context.Background(), path, []byte("hello"), 0644)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestWriteFileOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.mtl")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	w := atomicio.New(nil)
	require.NoError(t, w.WriteFile(context.Background(), path, []byte("new"), 0644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestWriteFileNoTempFileLeftBehindOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.mtl")
	w := atomicio.New(nil)
	require.NoError(t, w.WriteFile(context.Background(), path, []byte("x"), 0644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "wall.mtl", entries[0].Name())
}

func TestWriteFileClearsReadOnlyAttribute(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.mtl")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0444))

	w := atomicio.New(vcs.None{})
	err := w.WriteFile(context.Background(), path, []byte("new"), 0644)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestCleanOrphansRemovesStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "wall.mtl.12345.tmp")
	require.NoError(t, os.WriteFile(orphan, []byte("stale"), 0644))
	keep := filepath.Join(dir, "wall.mtl")
	require.NoError(t, os.WriteFile(keep, []byte("real"), 0644))

	removed, err := atomicio.CleanOrphans(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}

func TestCleanOrphansIgnoresNonTmpFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.tmp"), []byte("x"), 0644))

	removed, err := atomicio.CleanOrphans(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
