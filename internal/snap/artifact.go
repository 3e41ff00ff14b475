package snap

import (
	"fmt"
	"os"
	"path/filepath"
)

// signatureHeader is the fixed explanatory preamble of the signature artifact.
const signatureHeader = `# dirsnap snapshot signature
# The value below is the SHA-256 fold of every persisted entry and identity
# row in canonical order. Re-scan the same tree and compare signatures to
# detect any change in content, metadata or ownership.
`

// WriteSignatureFile writes the signature artifact next to the snapshot
// database: a fixed header followed by the signature and snapshot identity.
func WriteSignatureFile(path string, m *Manifest) error {
	body := fmt.Sprintf("%ssignature: %s\nsnapshot:  %s\nroot:      %s\n",
		signatureHeader, m.Signature, m.SnapshotID, m.RootPath)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return fmt.Errorf("writing signature file: %w", err)
	}
	return nil
}

// WriteChecksumFile writes a sha256sum-compatible checksum line for target:
// "<hex-digest>  <filename>\n". Standard tools can verify it with
// `sha256sum -c`.
func WriteChecksumFile(path, target string, hasher Hasher) error {
	digest, err := hasher.Sum(target)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", target, err)
	}
	line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(target))
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		return fmt.Errorf("writing checksum file: %w", err)
	}
	return nil
}
