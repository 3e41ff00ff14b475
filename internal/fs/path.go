package fs

import "path/filepath"

// RelPath returns path relative to root, '/'-separated. The root itself
// normalizes to ".". A path outside the root is returned as-is, normalized;
// the walker never produces one.
func RelPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
