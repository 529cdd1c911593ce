package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	gomcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/atomicobject/assetwatch/pkg/atomicio"
	"github.com/atomicobject/assetwatch/pkg/config"
	"github.com/atomicobject/assetwatch/pkg/mcp"
	"github.com/atomicobject/assetwatch/pkg/refindex"
	"github.com/atomicobject/assetwatch/pkg/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) (*refindex.Index, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	w := atomicio.New(vcs.None{})
	idx := refindex.New(root, cfg, w, nil)
	mat := filepath.Join(root, "mat.mtl")
	require.NoError(t, os.WriteFile(mat, []byte(`Texture="textures/wall.dds"`), 0644))
	idx.UpsertContainer(mat)
	return idx, root
}

func TestStatusToolReportsSize(t *testing.T) {
	idx, root := newIndex(t)
	tool := mcp.StatusTool(mcp.Config{Index: idx, Root: root, Version: "test"})

	res, err := tool(context.Background(), gomcp.CallToolRequest{})
	require.NoError(t, err)

	var resp mcp.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &resp))
	assert.Equal(t, 1, resp.Containers)
	assert.Equal(t, 1, resp.References)
	assert.Equal(t, root, resp.Root)
}

func TestFindReferencesToolReturnsContainers(t *testing.T) {
	idx, root := newIndex(t)
	tool := mcp.FindReferencesTool(mcp.Config{Index: idx, Root: root})

	req := gomcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"reference": "textures/wall.dds"}

	res, err := tool(context.Background(), req)
	require.NoError(t, err)

	var resp mcp.FindReferencesResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &resp))
	assert.Len(t, resp.Containers, 1)
}

func TestFindReferencesToolMissingArgReturnsError(t *testing.T) {
	idx, root := newIndex(t)
	tool := mcp.FindReferencesTool(mcp.Config{Index: idx, Root: root})

	res, err := tool(context.Background(), gomcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFindContainersToolReturnsReferences(t *testing.T) {
	idx, root := newIndex(t)
	mat := filepath.Join(root, "mat.mtl")
	tool := mcp.FindContainersTool(mcp.Config{Index: idx, Root: root})

	req := gomcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"container": mat}

	res, err := tool(context.Background(), req)
	require.NoError(t, err)

	var resp mcp.FindContainersResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &resp))
	assert.Contains(t, resp.References, "textures/wall.dds")
}

func textOf(t *testing.T, res *gomcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(gomcp.TextContent)
	require.True(t, ok)
	return tc.Text
}
