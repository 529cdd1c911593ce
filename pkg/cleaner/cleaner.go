// Package cleaner implements the project cleaner (spec.md §4.11, new,
// supplemented from original_source): a set of independent, composable
// cleanup passes applied to container file content in memory, written back
// through the Atomic Writer only when content actually changed. Grounded on
// original_source/app/tasks/cleaner.py's _cleaner_process_file_worker; the
// path-attribute regex keeps original's `key="value.ext"` pattern (see
// pathAttrRe), separate from handler.attributeHandler's.
package cleaner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/atomicobject/assetwatch/pkg/atomicio"
)

// Options selects which independent cleanup passes run. CleanFile applies
// the enabled passes in a fixed order: header strip, path-attribute rewrite
// (NormalizePaths, ResolveRedundantPaths, Lowercase), whitespace trim.
type Options struct {
	StripBOM              bool
	NormalizePaths        bool
	ResolveRedundantPaths bool
	Lowercase             bool
	TrimWhitespace        bool
}

// Status reports what happened to one file.
type Status int

const (
	StatusUnchanged Status = iota
	StatusModified
	StatusSkipped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusModified:
		return "modified"
	case StatusSkipped:
		return "skipped"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Summary aggregates the outcome of one Run across every file processed.
type Summary struct {
	Modified  int
	Unchanged int
	Skipped   int
	Errors    []string // "<path>: <message>"
}

// pathAttrRe matches key="value.ext" / key='value.ext' pairs, mirroring
// original_source's `(\w+\s*=\s*)(["'])([^"']+\.[\w\d]+)\2(\s*,?\s*)`.
var pathAttrRe = regexp.MustCompile(`(?i)(\w+\s*=\s*)(["'])([^"']+\.[\w\d]+)(["'])(\s*,?\s*)`)

// xmlExtensions is the subset of tracked container extensions BOM-stripping
// applies to (original_source's AppConfig.XML_EXTENSIONS).
var xmlExtensions = map[string]bool{".xml": true, ".mtl": true, ".lay": true, ".lyr": true, ".cdf": true}

// Run walks root for files whose extension is in extensions, applying opts
// to each and writing changed files back through writer.
func Run(ctx context.Context, root string, extensions []string, opts Options, writer *atomicio.Writer) (Summary, error) {
	var summary Summary
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(e)] = true
	}

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
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		status, msg, _ := CleanFile(ctx, path, opts, writer)
		switch status {
		case StatusModified:
			summary.Modified++
		case StatusUnchanged, StatusSkipped:
			summary.Unchanged++
		case StatusError:
			summary.Errors = append(summary.Errors, path+": "+msg)
		}
		return nil
	})
	return summary, err
}

// CleanFile applies every enabled pass to one file's content and writes it
// back only if something changed.
func CleanFile(ctx context.Context, path string, opts Options, writer *atomicio.Writer) (Status, string, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return StatusError, err.Error(), err
	}
	if len(original) == 0 {
		return StatusSkipped, "file is empty", nil
	}

	text := string(original)
	processed := text
	var actions []string

	if opts.StripBOM && xmlExtensions[strings.ToLower(filepath.Ext(path))] {
		if idx := strings.Index(processed, "<"); idx > 0 {
			processed = processed[idx:]
			actions = append(actions, "stripped header")
		}
	}

	if opts.NormalizePaths || opts.ResolveRedundantPaths || opts.Lowercase {
		before := processed
		processed = pathAttrRe.ReplaceAllStringFunc(processed, func(m string) string {
			return rewritePathAttr(m, opts)
		})
		if processed != before {
			actions = append(actions, "cleaned paths")
		}
	}

	if opts.TrimWhitespace {
		before := processed
		processed = trimTrailingWhitespace(processed)
		if processed != before {
			actions = append(actions, "trimmed whitespace")
		}
	}

	if len(actions) == 0 {
		return StatusUnchanged, "already clean", nil
	}

	if writer != nil {
		info, statErr := os.Stat(path)
		perm := os.FileMode(0o644)
		if statErr == nil {
			perm = info.Mode().Perm()
		}
		if err := writer.WriteFile(ctx, path, []byte(processed), perm); err != nil {
			return StatusError, err.Error(), err
		}
	}

	return StatusModified, "cleaned (" + strings.Join(actions, ", ") + ")", nil
}

func rewritePathAttr(match string, opts Options) string {
	groups := pathAttrRe.FindStringSubmatch(match)
	if groups == nil {
		return match
	}
	keyEq, quote, value, closeQuote, trailer := groups[1], groups[2], groups[3], groups[4], groups[5]
	// RE2 has no backreference, so the pairing that original's \2 enforces
	// is checked here.
	if closeQuote != quote || !strings.Contains(value, ".") {
		return match
	}

	modified := value
	if opts.NormalizePaths {
		modified = strings.ReplaceAll(modified, "\\", "/")
	}
	if opts.ResolveRedundantPaths {
		modified = filepath.ToSlash(filepath.Clean(modified))
	}
	if opts.Lowercase {
		modified = strings.ToLower(modified)
	}
	return keyEq + quote + modified + quote + trailer
}

// trimTrailingWhitespace strips trailing whitespace from every line while
// preserving a final trailing newline if the original had one.
func trimTrailingWhitespace(text string) string {
	hadTrailingNewline := strings.HasSuffix(text, "\n") || strings.HasSuffix(text, "\r")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	out := strings.Join(lines, "\n")
	if hadTrailingNewline && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
