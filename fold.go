package resourcefs

import "strings"

// folder is the minimal directory access needed to resolve a path
// case-insensitively.
type folder interface {
	exists(name string) bool
	names(dir string) ([]string, error)
	join(dir, name string) string
}

// foldPath resolves parts below root, descending into an exact match when
// one exists and otherwise into the first entry equal under Unicode case
// folding. It reports false if some component has no match at all.
func foldPath(f folder, root string, parts []string) (string, bool) {
	current := root
	for _, part := range parts {
		exact := f.join(current, part)
		if f.exists(exact) {
			current = exact
			continue
		}
		names, err := f.names(current)
		if err != nil {
			return "", false
		}
		found := false
		for _, name := range names {
			if strings.EqualFold(name, part) {
				current = f.join(current, name)
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return current, true
}
