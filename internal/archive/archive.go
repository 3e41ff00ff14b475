// Package archive provides off-host custody storage for completed
// snapshots: the snapshot database and its signature artifact are uploaded
// after a successful run so an auditor holds a copy the scanned host cannot
// later alter.
package archive

import (
	"context"
	"io"
)

// Archive stores named snapshot artifacts.
type Archive interface {
	// Put stores the artifact under name. Storing the same name twice
	// overwrites the previous object.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
}
