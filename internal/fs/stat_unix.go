//go:build unix

package fs

import (
	"fmt"
	"io/fs"
	"syscall"
	"time"

	"dirsnap/internal/snap"
)

// extractAttr extracts Unix-specific stat data from a FileInfo.
func extractAttr(info fs.FileInfo) (snap.Attr, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return snap.Attr{}, fmt.Errorf("cannot extract stat data: expected *syscall.Stat_t, got %T", info.Sys())
	}

	return snap.Attr{
		Mtime: info.ModTime().UnixMilli(),
		Ctime: time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec).UnixMilli(),
		// Birth time is not available on most Unix filesystems.
		Btime: 0,
		Mode:  uint32(info.Mode().Perm()),
		UID:   int64(stat.Uid),
		GID:   int64(stat.Gid),
		Ino:   int64(stat.Ino),
		Nlink: int64(stat.Nlink),
	}, nil
}
