package snap

import "fmt"

// ErrIncomplete is returned when a store holds entry rows but no manifest:
// the run that produced it aborted before completion.
var ErrIncomplete = fmt.Errorf("snapshot is incomplete: no manifest row")

// Verify recomputes the signature over the persisted rows and compares it to
// the one recorded in the manifest. It returns the manifest on success.
func Verify(store Store) (*Manifest, error) {
	manifest, err := store.ReadManifest()
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if manifest == nil {
		return nil, ErrIncomplete
	}

	signature, err := ComputeSignature(store)
	if err != nil {
		return nil, fmt.Errorf("recomputing signature: %w", err)
	}

	if signature != manifest.Signature {
		return nil, fmt.Errorf("signature mismatch: manifest has %s, computed %s", manifest.Signature, signature)
	}
	return manifest, nil
}
