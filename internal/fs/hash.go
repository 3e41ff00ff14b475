package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"dirsnap/internal/snap"
)

// hashChunkSize bounds how much file content is held in memory while
// hashing, independent of file size.
const hashChunkSize = 128 * 1024

// SHA256Hasher streams file content through an incremental SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a content hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Sum returns the lowercase hex SHA-256 digest of the file's bytes. The
// digest depends only on content, never on metadata.
func (h *SHA256Hasher) Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	digest := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// Compile-time check that SHA256Hasher implements snap.Hasher.
var _ snap.Hasher = (*SHA256Hasher)(nil)
