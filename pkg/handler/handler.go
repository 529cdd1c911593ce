// Package handler implements the two container format handlers described in
// spec.md §4.1: Attribute (for .mtl/.xml/.lay/.lyr/.cdf) and StringLiteral
// (for .lua). Both parse references by regex and rewrite by regex
// substitution so that comments, whitespace, and quote style are preserved
// byte-for-byte — a deliberate redesign of original_source's lxml-backed
// XmlAssetHandler, which reformats on every write.
package handler

import (
	"os"
	"strings"
)

// Kind identifies one of the two closed handler variants.
type Kind string

const (
	KindAttribute     Kind = "attribute"
	KindStringLiteral Kind = "stringliteral"
)

// attributeKeys is the closed, hard-coded set of attribute names that carry
// asset references (spec.md §4.1, §9 open question: kept closed).
var attributeKeys = map[string]bool{
	"file":     true,
	"texture":  true,
	"filename": true,
	"path":     true,
	"material": true,
}

// Handler parses and rewrites references in one container file. trackedExts
// is the closed, lowercase, dotted extension list a reference value must end
// in to be recognized (spec.md §3 TrackedExtensions); it comes from config,
// not from the stateless handler value itself.
type Handler interface {
	Kind() Kind
	// Parse extracts the set of reference keys (lowercased, slash-normalized)
	// found in content.
	Parse(content []byte, trackedExts []string) map[string]struct{}
	// Rewrite substitutes matched references per replacements (old->new,
	// lookup case-insensitive) and returns the new content plus whether
	// anything changed. When isDirMove is true, replacements holds exactly
	// one old_dir->new_dir entry and matching is by path-prefix instead of
	// exact value.
	Rewrite(content []byte, replacements map[string]string, isDirMove bool, trackedExts []string) ([]byte, bool)
}

// ForKind returns the stateless handler value for a handler kind.
func ForKind(k Kind) Handler {
	switch k {
	case KindAttribute:
		return attributeHandler{}
	case KindStringLiteral:
		return stringLiteralHandler{}
	default:
		return nil
	}
}

// normalize converts backslashes to slashes, trims whitespace, and
// lowercases — the canonical form for a ReferenceKey (spec.md §3).
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\\", "/")
	return strings.ToLower(s)
}

// hasTrackedExtension reports whether value ends in one of extensions
// (case-insensitive). Extensions must already be lowercase.
func hasTrackedExtension(valueLower string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(valueLower, ext) {
			return true
		}
	}
	return false
}

// ReadFile reads file content. IO errors propagate per spec.md §4.1 ("IO
// errors do not silently succeed").
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
