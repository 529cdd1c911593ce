package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanCommandTrimsTrailingWhitespace(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "level.xml")
	require.NoError(t, os.WriteFile(path, []byte("<Level>   \n</Level>\n"), 0o644))

	rootCmd.SetArgs([]string{"clean", root, "--ext", ".xml"})
	err := rootCmd.Execute()
	rootCmd.SetArgs([]string{})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<Level>\n</Level>\n", string(content))
}
