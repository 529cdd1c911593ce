// Package luacheck implements the Lua diagnostics scanner (spec.md §4.12,
// new, supplemented from original_source): shells out to an external Lua
// compiler (and optionally a formatter) rather than embedding a Lua
// frontend. Grounded on original_source/app/tasks/lua.py's LuaToolkit and
// original_source/app/config.py's LUA_COMPILER_EXE_NAME / STYLUA_EXE_NAME
// constants; the subprocess timeout reuses pkg/vcs's CheckoutTimeout
// pattern (spec.md §5's blanket 60s subprocess bound).
package luacheck

import (
	"context"
	"io/fs"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/atomicobject/assetwatch/pkg/signals"
)

// CommandTimeout bounds every luac/stylua invocation (spec.md §5).
const CommandTimeout = 60 * time.Second

// ProgressCadence mirrors the original's "emit every 10 completions".
const ProgressCadence = 10

// Status is the syntax verdict for one Lua file.
type Status string

const (
	StatusOK          Status = "ok"
	StatusSyntaxError Status = "syntax_error"
)

// FileResult is one file's diagnostic outcome.
type FileResult struct {
	RelativePath string
	Status       Status
	Message      string
}

// Toolkit shells out to the configured compiler/formatter binaries.
type Toolkit struct {
	CompilerPath  string // e.g. "luac54", empty disables diagnostics
	FormatterPath string // e.g. "stylua", empty disables formatting
}

// RunDiagnostics runs a syntax-only check (`<compiler> -p <file>`) over
// every .lua file under root, across a bounded worker pool.
func (t Toolkit) RunDiagnostics(ctx context.Context, root string, sink *signals.Sink) ([]FileResult, error) {
	if sink == nil {
		sink = &signals.Sink{}
	}
	if t.CompilerPath == "" {
		return nil, nil
	}

	files, err := findLuaFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	workers := runtime.NumCPU() * 4
	if workers > 32 {
		workers = 32
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	type indexed struct {
		result FileResult
	}
	results := make(chan indexed)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				ok, msg := t.runCommand(ctx, t.CompilerPath, "-p", path)
				rel, relErr := filepath.Rel(root, path)
				if relErr != nil {
					rel = filepath.Base(path)
				}
				status := StatusOK
				if !ok {
					status = StatusSyntaxError
				}
				select {
				case results <- indexed{FileResult{RelativePath: filepath.ToSlash(rel), Status: status, Message: msg}}:
				case <-ctx.Done():
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	total := len(files)
	out := make([]FileResult, 0, total)
	completed := 0
	for r := range results {
		out = append(out, r.result)
		completed++
		if completed%ProgressCadence == 0 || completed == total {
			sink.ProgressUpdated(completed, total)
		}
	}
	return out, ctx.Err()
}

// RunFormatting invokes the formatter over every .lua file under root, in
// chunks of 50 (original_source's CHUNK_SIZE, avoiding the Windows command
// line length limit).
func (t Toolkit) RunFormatting(ctx context.Context, root string, extraArgs []string, sink *signals.Sink) (string, error) {
	if sink == nil {
		sink = &signals.Sink{}
	}
	if t.FormatterPath == "" {
		return "formatter not configured", nil
	}

	files, err := findLuaFiles(root)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "no Lua files found", nil
	}

	const chunkSize = 50
	failedChunks := 0
	var lastErr string

	for i := 0; i < len(files); i += chunkSize {
		end := i + chunkSize
		if end > len(files) {
			end = len(files)
		}
		chunk := files[i:end]

		args := append([]string{"--no-editorconfig"}, extraArgs...)
		args = append(args, chunk...)
		ok, msg := t.runCommand(ctx, t.FormatterPath, args...)
		sink.ProgressUpdated(end, len(files))
		if !ok {
			failedChunks++
			lastErr = msg
		}
	}

	if failedChunks == 0 {
		return "formatting complete", nil
	}
	return "formatting completed with errors in chunk(s); last error: " + lastErr, nil
}

func (t Toolkit) runCommand(ctx context.Context, bin string, args ...string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := strings.TrimSpace(stderr.String())
	if output == "" {
		output = strings.TrimSpace(stdout.String())
	}
	if ctx.Err() != nil {
		return false, "timeout expired"
	}
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return false, output
	}
	return true, output
}

func findLuaFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".lua") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
