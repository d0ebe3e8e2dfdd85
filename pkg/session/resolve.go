package session

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultSearchRoots are probed, in order, for relative database paths that
// do not exist under the working directory.
var DefaultSearchRoots = []string{".", "~", "~/Documents", "~/Desktop", "~/Downloads"}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// resolvePath finds an existing directory for path. Paths that exist are
// returned unchanged. Missing absolute paths are not resolved. A missing
// relative path is joined to each root in turn and the first existing
// directory is returned as an absolute path.
func resolvePath(path string, roots []string) (string, bool) {
	path = expandHome(path)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	if filepath.IsAbs(path) {
		return "", false
	}

	for _, root := range roots {
		base := expandHome(root)
		if base == "." || base == "" {
			wd, err := os.Getwd()
			if err != nil {
				continue
			}
			base = wd
		}
		candidate := filepath.Join(base, path)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs, true
			}
			return candidate, true
		}
	}
	return "", false
}
