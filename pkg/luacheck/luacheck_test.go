package luacheck_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/luacheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes a tiny shell script that exits 0 unless its second
// argument (the file path after -p) contains "bad", in which case it exits
// 1 with a message on stderr. Skipped on Windows, where the teacher's own CI only
// targets a POSIX shell for subprocess-backed tests.
func fakeBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake shell script harness requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fakeluac.sh")
	script := "#!/bin/sh\ncase \"$2\" in\n  *bad*) echo 'syntax error near bad' 1>&2; exit 1;;\n  *) exit 0;;\nesac\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunDiagnosticsReportsSyntaxErrorAndOK(t *testing.T) {
	bin := fakeBinary(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "good.lua"), []byte("-- ok"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.lua"), []byte("-- broken"), 0o644))

	tk := luacheck.Toolkit{CompilerPath: bin}
	results, err := tk.RunDiagnostics(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byPath := make(map[string]luacheck.FileResult)
	for _, r := range results {
		byPath[r.RelativePath] = r
	}
	assert.Equal(t, luacheck.StatusOK, byPath["good.lua"].Status)
	assert.Equal(t, luacheck.StatusSyntaxError, byPath["bad.lua"].Status)
	assert.Contains(t, byPath["bad.lua"].Message, "syntax error")
}

func TestRunDiagnosticsNoCompilerConfiguredReturnsNil(t *testing.T) {
	root := t.TempDir()
	tk := luacheck.Toolkit{}
	results, err := tk.RunDiagnostics(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestRunDiagnosticsSkipsNonLuaFiles(t *testing.T) {
	bin := fakeBinary(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))

	tk := luacheck.Toolkit{CompilerPath: bin}
	results, err := tk.RunDiagnostics(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunFormattingWithoutFormatterConfigured(t *testing.T) {
	root := t.TempDir()
	tk := luacheck.Toolkit{}
	summary, err := tk.RunFormatting(context.Background(), root, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, summary, "not configured")
}
