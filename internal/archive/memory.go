package archive

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryArchive keeps artifacts in memory. Useful for testing.
// Safe for concurrent use.
type MemoryArchive struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte)}
}

// Put stores the artifact under name, overwriting any previous object.
func (a *MemoryArchive) Put(_ context.Context, name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading artifact: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[name] = data
	return nil
}

// Get returns a stored artifact. Test helper.
func (a *MemoryArchive) Get(name string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.objects[name]
	return data, ok
}

// Len returns the number of stored artifacts. Test helper.
func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}

// Compile-time check that MemoryArchive implements Archive.
var _ Archive = (*MemoryArchive)(nil)
