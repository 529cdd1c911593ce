package handler

import (
	"regexp"
	"strings"
)

// stringLiteralHandler recognizes quoted string literals ending in a
// tracked extension, for .lua files. Grounded on original_source's
// LuaAssetHandler.
type stringLiteralHandler struct{}

func (stringLiteralHandler) Kind() Kind { return KindStringLiteral }

// literalPattern matches a single- or double-quoted string literal. Group 1:
// quote, group 2: value, group 3: matching close quote.
var literalPattern = regexp.MustCompile(`(["'])([^"']+)(["'])`)

func (stringLiteralHandler) Parse(content []byte, trackedExts []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range literalPattern.FindAllSubmatch(content, -1) {
		if m[1][0] != m[3][0] {
			continue
		}
		norm := normalize(string(m[2]))
		if !hasTrackedExtension(norm, trackedExts) {
			continue
		}
		out[norm] = struct{}{}
	}
	return out
}

func (stringLiteralHandler) Rewrite(content []byte, replacements map[string]string, isDirMove bool, trackedExts []string) ([]byte, bool) {
	replacementsLower := make(map[string]string, len(replacements))
	for k, v := range replacements {
		replacementsLower[strings.ToLower(k)] = v
	}

	var newDir, oldDirPrefix string
	if isDirMove {
		var oldDir string
		for k, v := range replacements {
			oldDir, newDir = k, v
			break
		}
		oldDirPrefix = strings.ToLower(oldDir) + "/"
	}

	changed := false
	result := literalPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		sub := literalPattern.FindSubmatch(match)
		if sub[1][0] != sub[3][0] {
			return match
		}
		value := string(sub[2])
		valueNorm := strings.ReplaceAll(value, `\`, "/")
		valueLower := strings.ToLower(valueNorm)

		var newValue string
		matched := false
		if isDirMove {
			if strings.HasPrefix(valueLower, oldDirPrefix) {
				tail := valueNorm[len(oldDirPrefix)-1:]
				newValue = newDir + tail
				matched = true
			}
		} else if repl, ok := replacementsLower[valueLower]; ok {
			newValue = repl
			matched = true
		}

		if !matched {
			return match
		}
		changed = true
		return concatBytes(sub[1], []byte(newValue), sub[3])
	})
	return result, changed
}
