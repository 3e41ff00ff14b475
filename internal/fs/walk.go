package fs

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"dirsnap/internal/snap"
)

// TreeWalker enumerates a directory tree lazily, pruning excluded paths.
// It implements snap.Walker.
type TreeWalker struct {
	matcher *ExcludeMatcher
}

// NewTreeWalker creates a walker using the given exclusion matcher.
func NewTreeWalker(matcher *ExcludeMatcher) *TreeWalker {
	return &TreeWalker{matcher: matcher}
}

// Walk yields the surviving absolute paths under dir in depth-first
// pre-order: each directory first, then its children. Excluded directories
// are pruned without being read; excluded children are skipped. Directory
// listing failures yield one ("", err) pair and the subtree is treated as
// empty, so the walk continues elsewhere. Symbolic links are yielded as
// leaves and never followed, which keeps the sequence finite even over trees
// containing link cycles.
func (w *TreeWalker) Walk(dir, root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		w.walk(dir, root, yield)
	}
}

// walk returns false once the consumer stops the iteration.
func (w *TreeWalker) walk(dir, root string, yield func(string, error) bool) bool {
	if w.matcher.Excluded(RelPath(root, dir)) {
		return true
	}
	if !yield(dir, nil) {
		return false
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		// Permission denied or I/O failure: subtree becomes empty.
		return yield("", fmt.Errorf("reading directory %s: %w", dir, err))
	}

	for _, child := range children {
		path := filepath.Join(dir, child.Name())
		if child.IsDir() {
			if !w.walk(path, root, yield) {
				return false
			}
			continue
		}
		// Regular files and symlinks alike; IsDir is false for a link to a
		// directory, so links always land here.
		if w.matcher.Excluded(RelPath(root, path)) {
			continue
		}
		if !yield(path, nil) {
			return false
		}
	}
	return true
}

// Compile-time check that TreeWalker implements snap.Walker.
var _ snap.Walker = (*TreeWalker)(nil)
