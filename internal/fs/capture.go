package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"dirsnap/internal/snap"
)

// OSCapturer produces metadata records for paths on the real filesystem.
// It implements snap.Capturer.
type OSCapturer struct {
	root   string
	hasher snap.Hasher
}

// NewOSCapturer creates a capturer for entries under root.
func NewOSCapturer(root string, hasher snap.Hasher) *OSCapturer {
	return &OSCapturer{root: root, hasher: hasher}
}

// Capture reads link-aware status for absPath and builds the matching entry
// record. Directories carry no size, links carry their normalized target,
// files carry size and content digest. Any other kind (device, socket,
// FIFO) returns (nil, nil). Errors here are per-entry soft failures: the
// file may have vanished between enumeration and stat, or be unreadable.
func (c *OSCapturer) Capture(absPath string) (*snap.Entry, error) {
	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absPath, err)
	}

	attr, err := extractAttr(info)
	if err != nil {
		return nil, fmt.Errorf("extracting stat data for %s: %w", absPath, err)
	}
	rel := RelPath(c.root, absPath)

	mode := info.Mode()
	switch {
	case mode.IsDir():
		return snap.NewDirEntry(rel, attr), nil

	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(absPath)
		if err != nil {
			return nil, fmt.Errorf("reading link %s: %w", absPath, err)
		}
		return snap.NewLinkEntry(rel, filepath.ToSlash(target), attr), nil

	case mode.IsRegular():
		digest, err := c.hasher.Sum(absPath)
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", absPath, err)
		}
		return snap.NewFileEntry(rel, info.Size(), digest, attr), nil

	default:
		// Devices, sockets and FIFOs are not part of a snapshot.
		return nil, nil
	}
}

// Compile-time check that OSCapturer implements snap.Capturer.
var _ snap.Capturer = (*OSCapturer)(nil)
