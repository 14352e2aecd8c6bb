package resourcefs

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Sanitize converts an absolute virtual path into a root-relative,
// slash-separated path made only of normal components. It reports false if
// the path is not rooted at "/" or contains any component that is empty,
// "." or "..", not valid UTF-8, or that the host platform would interpret
// as something other than a plain name.
//
// Sanitize("/") returns ("", true), which refers to the store root itself.
func Sanitize(virtualPath string) (string, bool) {
	parts, ok := sanitizeComponents(virtualPath)
	if !ok {
		return "", false
	}
	return strings.Join(parts, "/"), true
}

func sanitizeComponents(virtualPath string) ([]string, bool) {
	rest, rooted := strings.CutPrefix(virtualPath, "/")
	if !rooted {
		return nil, false
	}
	if rest == "" {
		return []string{}, true
	}
	parts := strings.Split(rest, "/")
	for _, part := range parts {
		if !isNormalComponent(part) {
			return nil, false
		}
	}
	return parts, true
}

func isNormalComponent(part string) bool {
	switch part {
	case "", ".", "..":
		return false
	}
	if !utf8.ValidString(part) || strings.IndexByte(part, 0) >= 0 {
		return false
	}
	// Backslash is a separator on Windows and would let "..\x" slip through.
	if strings.ContainsRune(part, filepath.Separator) || strings.ContainsRune(part, '\\') {
		return false
	}
	return filepath.IsLocal(part)
}
